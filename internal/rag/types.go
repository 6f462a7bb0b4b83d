package rag

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_collaborators.go -package=mocks docchat-ai/internal/rag ScoredSearcher,Searcher,Generator,Engine

import (
	"context"
	"time"

	"docchat-ai/internal/attribution"
)

// RetrievedChunk is one text unit returned by the similarity-search
// collaborator. Meta carries the provenance keys written at ingestion time:
// document_id, source, file_path, page, section.
type RetrievedChunk struct {
	Text string
	Meta map[string]any
}

// ScoredChunk pairs a retrieved chunk with its similarity score.
type ScoredChunk struct {
	Chunk RetrievedChunk
	Score float64
}

// ScoredSearcher is a similarity-search collaborator that reports scores.
type ScoredSearcher interface {
	SearchWithScores(ctx context.Context, query string, k int) ([]ScoredChunk, error)
}

// Searcher is the fallback collaborator contract for stores that cannot
// report scores. Wrap with WithDefaultScore to use it in the pipeline.
type Searcher interface {
	Search(ctx context.Context, query string, k int) ([]RetrievedChunk, error)
}

// Generator is the answer-generation collaborator. It must return plain
// text; no structured output is required.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Engine answers questions with source attribution.
type Engine interface {
	// Ask runs the attributed query pipeline. It never fails: internal errors
	// are converted into an error-text response with zero confidence.
	Ask(ctx context.Context, req QueryRequest) AttributedQueryResult
}

// QueryRequest carries a query and its per-call attribution settings. Zero
// values select the defaults: StyleAPA, 5 sources, 0.3 minimum confidence.
type QueryRequest struct {
	Query         string
	CitationStyle attribution.CitationStyle
	MaxSources    int
	MinConfidence float64
}

// ConfidenceBreakdown details how a result's confidence was assembled.
type ConfidenceBreakdown struct {
	OverallConfidence  float64             `json:"overall_confidence"`
	AttributionQuality attribution.Quality `json:"attribution_quality"`
	SourcesUsed        int                 `json:"sources_used"`
	CitationsGenerated int                 `json:"citations_generated"`
	ChunksAnalyzed     int                 `json:"chunks_analyzed"`
	Error              string              `json:"error,omitempty"`
}

// AttributedQueryResult wraps an attributed response with query metadata. It
// is returned to the caller and not persisted beyond the conversation
// history.
type AttributedQueryResult struct {
	Response       attribution.AttributedResponse `json:"response"`
	Query          string                         `json:"query"`
	ProcessingTime time.Duration                  `json:"processing_time"`
	ModelUsed      string                         `json:"model_used"`
	ChunksAnalyzed int                            `json:"chunks_analyzed"`
	Breakdown      ConfidenceBreakdown            `json:"confidence_breakdown"`
}

// defaultScore is assigned to every result when the underlying store cannot
// report similarity scores.
const defaultScore = 0.8

type scoreAdapter struct {
	searcher Searcher
}

// WithDefaultScore adapts a score-less Searcher into a ScoredSearcher by
// assigning defaultScore to every result.
func WithDefaultScore(s Searcher) ScoredSearcher {
	return &scoreAdapter{searcher: s}
}

func (a *scoreAdapter) SearchWithScores(ctx context.Context, query string, k int) ([]ScoredChunk, error) {
	chunks, err := a.searcher.Search(ctx, query, k)
	if err != nil {
		return nil, err
	}
	scored := make([]ScoredChunk, len(chunks))
	for i, chunk := range chunks {
		scored[i] = ScoredChunk{Chunk: chunk, Score: defaultScore}
	}
	return scored, nil
}
