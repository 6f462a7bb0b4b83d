// Package rag implements the attributed query pipeline: retrieve scored
// chunks, filter and deduplicate them, extract an answer from the combined
// context, fall back to per-chunk extraction when nothing is found, and
// assemble an attributed response with citations.
package rag

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"docchat-ai/internal/attribution"
	"docchat-ai/internal/contextutil"
	"docchat-ai/internal/history"
)

const (
	defaultMaxSources    = 5
	maxSourcesLimit      = 10
	defaultMinConfidence = 0.3

	// maxDiverseChunks caps the deduplicated set used for the combined
	// context attempt.
	maxDiverseChunks = 3

	noRelevantInfoReply = "I couldn't find relevant information in the available documents to answer your question."
)

type attributedEngine struct {
	retriever ScoredSearcher
	generator Generator
	manager   *attribution.Manager
	tracker   *history.Tracker
	model     string
	logger    *slog.Logger
}

// NewEngine creates the attributed query engine. The attribution manager and
// history tracker are injected per session; the engine holds no mutable
// per-query settings.
func NewEngine(retriever ScoredSearcher, generator Generator, manager *attribution.Manager, tracker *history.Tracker, model string) Engine {
	return &attributedEngine{
		retriever: retriever,
		generator: generator,
		manager:   manager,
		tracker:   tracker,
		model:     model,
		logger:    slog.Default(),
	}
}

// Ask runs the pipeline for one query. All failures are converted into an
// error-text response; Ask itself never fails.
func (e *attributedEngine) Ask(ctx context.Context, req QueryRequest) AttributedQueryResult {
	start := time.Now()
	logger := contextutil.LoggerFromContext(ctx)

	result, err := e.ask(ctx, req, start, logger)
	if err != nil {
		logger.ErrorContext(ctx, "attributed query failed", "query", req.Query, "error", err)
		return e.errorResult(req.Query, err, time.Since(start))
	}
	return result
}

func (e *attributedEngine) ask(ctx context.Context, req QueryRequest, start time.Time, logger *slog.Logger) (AttributedQueryResult, error) {
	maxSources := req.MaxSources
	if maxSources == 0 {
		maxSources = defaultMaxSources
	}
	if maxSources < 1 {
		maxSources = 1
	}
	if maxSources > maxSourcesLimit {
		maxSources = maxSourcesLimit
	}

	minConfidence := req.MinConfidence
	if minConfidence <= 0 {
		minConfidence = defaultMinConfidence
	}

	style := req.CitationStyle
	if style == "" {
		style = attribution.StyleAPA
	}

	logger.InfoContext(ctx, "attributed query started",
		"query", req.Query,
		"max_sources", maxSources,
		"min_confidence", minConfidence,
		"citation_style", style,
	)

	scored, err := e.retriever.SearchWithScores(ctx, req.Query, maxSources)
	if err != nil {
		return AttributedQueryResult{}, fmt.Errorf("failed to retrieve chunks: %w", err)
	}

	diverse := diverseChunks(scored, minConfidence)
	logger.InfoContext(ctx, "retrieval completed",
		"retrieved", len(scored),
		"diverse", len(diverse),
	)

	if len(diverse) == 0 {
		resp := e.manager.CreateAttributedResponse(noRelevantInfoReply, nil, style)
		if e.tracker != nil {
			e.tracker.Append(req.Query, resp)
		}
		return e.successResult(req.Query, resp, 0, start), nil
	}

	chunkIDs := make([]string, 0, len(diverse))
	contexts := make([]string, 0, len(diverse))
	for _, sc := range diverse {
		meta := e.manager.TrackDocumentChunk(
			metaString(sc.Chunk.Meta, "document_id", "unknown"),
			sc.Chunk.Text,
			metaString(sc.Chunk.Meta, "source", "Unknown Document"),
			metaString(sc.Chunk.Meta, "file_path", "unknown"),
			metaPage(sc.Chunk.Meta),
			metaString(sc.Chunk.Meta, "section", ""),
			"",
		)
		e.manager.UpdateChunkConfidence(meta.ChunkID, sc.Score)
		chunkIDs = append(chunkIDs, meta.ChunkID)
		contexts = append(contexts, sc.Chunk.Text)
	}

	raw, err := e.generator.Generate(ctx, composePrompt(contexts, req.Query))
	if err != nil {
		return AttributedQueryResult{}, fmt.Errorf("failed to generate answer: %w", err)
	}
	answer := cleanAnswer(raw)

	if isNegativeAnswer(answer) {
		logger.InfoContext(ctx, "combined context yielded no answer, retrying per chunk", "chunks", len(contexts))
		aggregated, err := e.retryPerChunk(ctx, contexts, req.Query)
		if err != nil {
			return AttributedQueryResult{}, err
		}
		if aggregated != "" {
			answer = aggregated
		}
	}

	resp := e.manager.CreateAttributedResponse(answer, chunkIDs, style)
	if e.tracker != nil {
		e.tracker.Append(req.Query, resp)
	}

	logger.InfoContext(ctx, "attributed query completed",
		"answer_length", len(resp.ResponseText),
		"sources", len(resp.Sources),
		"overall_confidence", resp.OverallConfidence,
		"quality", resp.Quality,
	)

	return e.successResult(req.Query, resp, len(diverse), start), nil
}

// retryPerChunk reruns extraction against each chunk in isolation and joins
// the non-negative partial answers with newlines. Returns "" when every
// attempt is negative.
func (e *attributedEngine) retryPerChunk(ctx context.Context, contexts []string, query string) (string, error) {
	var partials []string
	for _, chunkContext := range contexts {
		raw, err := e.generator.Generate(ctx, composePrompt([]string{chunkContext}, query))
		if err != nil {
			return "", fmt.Errorf("failed to generate per-chunk answer: %w", err)
		}
		partial := cleanAnswer(raw)
		if partial != "" && !isNegativeAnswer(partial) {
			partials = append(partials, partial)
		}
	}
	return strings.Join(partials, "\n"), nil
}

// diverseChunks drops chunks scoring below minConfidence, deduplicates by
// exact trimmed text keeping the first occurrence, and caps the result at
// maxDiverseChunks.
func diverseChunks(scored []ScoredChunk, minConfidence float64) []ScoredChunk {
	seen := make(map[string]struct{}, len(scored))
	diverse := make([]ScoredChunk, 0, maxDiverseChunks)
	for _, sc := range scored {
		if sc.Score < minConfidence {
			continue
		}
		text := strings.TrimSpace(sc.Chunk.Text)
		if _, dup := seen[text]; dup {
			continue
		}
		seen[text] = struct{}{}
		diverse = append(diverse, sc)
		if len(diverse) >= maxDiverseChunks {
			break
		}
	}
	return diverse
}

func (e *attributedEngine) successResult(query string, resp attribution.AttributedResponse, chunksAnalyzed int, start time.Time) AttributedQueryResult {
	return AttributedQueryResult{
		Response:       resp,
		Query:          query,
		ProcessingTime: time.Since(start),
		ModelUsed:      e.model,
		ChunksAnalyzed: chunksAnalyzed,
		Breakdown: ConfidenceBreakdown{
			OverallConfidence:  resp.OverallConfidence,
			AttributionQuality: resp.Quality,
			SourcesUsed:        len(resp.Sources),
			CitationsGenerated: len(resp.Citations),
			ChunksAnalyzed:     chunksAnalyzed,
		},
	}
}

func (e *attributedEngine) errorResult(query string, err error, elapsed time.Duration) AttributedQueryResult {
	resp := attribution.AttributedResponse{
		ResponseID:   uuid.NewString(),
		ResponseText: fmt.Sprintf("An error occurred while processing your query: %v", err),
		Sources:      []attribution.ChunkMetadata{},
		Citations:    []attribution.Citation{},
		Quality:      attribution.QualityVeryLow,
		GeneratedAt:  time.Now().UTC(),
	}
	return AttributedQueryResult{
		Response:       resp,
		Query:          query,
		ProcessingTime: elapsed,
		ModelUsed:      "error",
		Breakdown: ConfidenceBreakdown{
			AttributionQuality: attribution.QualityVeryLow,
			Error:              err.Error(),
		},
	}
}

// metaString reads a string value from chunk metadata, falling back when the
// key is missing or holds a non-string.
func metaString(meta map[string]any, key, fallback string) string {
	if meta == nil {
		return fallback
	}
	if v, ok := meta[key].(string); ok && v != "" {
		return v
	}
	return fallback
}

// metaPage reads the optional page number, tolerating the integer widths
// different stores deserialize into.
func metaPage(meta map[string]any) *int {
	if meta == nil {
		return nil
	}
	switch v := meta["page"].(type) {
	case int:
		return &v
	case int64:
		page := int(v)
		return &page
	case float64:
		page := int(v)
		return &page
	default:
		return nil
	}
}
