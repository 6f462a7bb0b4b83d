package rag_test

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"go.uber.org/mock/gomock"

	"docchat-ai/internal/attribution"
	"docchat-ai/internal/history"
	"docchat-ai/internal/rag"
	"docchat-ai/internal/rag/mocks"
)

func chunkWithMeta(text, docID, source string) rag.RetrievedChunk {
	return rag.RetrievedChunk{
		Text: text,
		Meta: map[string]any{
			"text":        text,
			"document_id": docID,
			"source":      source,
			"file_path":   "/staging/" + docID + ".md",
			"section":     "Overview",
		},
	}
}

func newEngine(t *testing.T, retriever rag.ScoredSearcher, generator rag.Generator) (rag.Engine, *history.Tracker) {
	t.Helper()
	manager := attribution.NewManager()
	tracker := history.NewTracker(manager)
	return rag.NewEngine(retriever, generator, manager, tracker, "test-model"), tracker
}

func TestEngine_AskNoRelevantChunks(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	retriever := mocks.NewMockScoredSearcher(ctrl)
	generator := mocks.NewMockGenerator(ctrl)

	retriever.EXPECT().
		SearchWithScores(gomock.Any(), "any question", 5).
		Return(nil, nil)

	engine, tracker := newEngine(t, retriever, generator)

	result := engine.Ask(context.Background(), rag.QueryRequest{Query: "any question"})

	if !strings.Contains(result.Response.ResponseText, "couldn't find relevant information") {
		t.Errorf("unexpected response text: %q", result.Response.ResponseText)
	}
	if result.Response.OverallConfidence != 0.0 {
		t.Errorf("OverallConfidence = %v, want 0.0", result.Response.OverallConfidence)
	}
	if result.Response.Quality != attribution.QualityVeryLow {
		t.Errorf("Quality = %q, want %q", result.Response.Quality, attribution.QualityVeryLow)
	}
	if result.ChunksAnalyzed != 0 {
		t.Errorf("ChunksAnalyzed = %d, want 0", result.ChunksAnalyzed)
	}
	if result.ModelUsed != "test-model" {
		t.Errorf("ModelUsed = %q, want %q", result.ModelUsed, "test-model")
	}
	if len(tracker.Recent(0)) != 1 {
		t.Errorf("history entries = %d, want 1", len(tracker.Recent(0)))
	}
}

func TestEngine_AskAnswerFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	retriever := mocks.NewMockScoredSearcher(ctrl)
	generator := mocks.NewMockGenerator(ctrl)

	retriever.EXPECT().
		SearchWithScores(gomock.Any(), "capital of France?", 5).
		Return([]rag.ScoredChunk{
			{Chunk: chunkWithMeta("Paris is the capital of France.", "doc_1", "geo.md"), Score: 0.5},
		}, nil)

	generator.EXPECT().
		Generate(gomock.Any(), gomock.Any()).
		Return("Answer: Paris.", nil)

	engine, _ := newEngine(t, retriever, generator)

	result := engine.Ask(context.Background(), rag.QueryRequest{Query: "capital of France?"})

	if result.Response.ResponseText != "Paris." {
		t.Errorf("ResponseText = %q, want %q", result.Response.ResponseText, "Paris.")
	}
	if result.ChunksAnalyzed != 1 {
		t.Errorf("ChunksAnalyzed = %d, want 1", result.ChunksAnalyzed)
	}
	if result.Response.OverallConfidence != 0.5 {
		t.Errorf("OverallConfidence = %v, want 0.5", result.Response.OverallConfidence)
	}
	if result.Response.Quality != attribution.QualityLow {
		t.Errorf("Quality = %q, want %q", result.Response.Quality, attribution.QualityLow)
	}
	if len(result.Response.Sources) != 1 {
		t.Fatalf("Sources = %d, want 1", len(result.Response.Sources))
	}
	if result.Response.Sources[0].SourceFile != "geo.md" {
		t.Errorf("SourceFile = %q, want %q", result.Response.Sources[0].SourceFile, "geo.md")
	}
	if len(result.Response.Citations) != 1 {
		t.Errorf("Citations = %d, want 1", len(result.Response.Citations))
	}
	if result.Breakdown.SourcesUsed != 1 || result.Breakdown.ChunksAnalyzed != 1 {
		t.Errorf("unexpected breakdown: %+v", result.Breakdown)
	}
}

func TestEngine_AskPerChunkRetry(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	retriever := mocks.NewMockScoredSearcher(ctrl)
	generator := mocks.NewMockGenerator(ctrl)

	retriever.EXPECT().
		SearchWithScores(gomock.Any(), "meaning of life?", 5).
		Return([]rag.ScoredChunk{
			{Chunk: chunkWithMeta("Nothing relevant here.", "doc_1", "a.md"), Score: 0.9},
			{Chunk: chunkWithMeta("The answer is 42.", "doc_2", "b.md"), Score: 0.8},
		}, nil)

	// Combined context fails, then each chunk is retried in isolation.
	calls := 0
	generator.EXPECT().
		Generate(gomock.Any(), gomock.Any()).
		Times(3).
		DoAndReturn(func(_ context.Context, _ string) (string, error) {
			calls++
			switch calls {
			case 1:
				return "Not found.", nil
			case 2:
				return "Not found.", nil
			default:
				return "42", nil
			}
		})

	engine, _ := newEngine(t, retriever, generator)

	result := engine.Ask(context.Background(), rag.QueryRequest{Query: "meaning of life?"})

	if result.Response.ResponseText != "42" {
		t.Errorf("ResponseText = %q, want %q", result.Response.ResponseText, "42")
	}
	if result.ChunksAnalyzed != 2 {
		t.Errorf("ChunksAnalyzed = %d, want 2", result.ChunksAnalyzed)
	}
}

func TestEngine_AskAllRetriesNegative(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	retriever := mocks.NewMockScoredSearcher(ctrl)
	generator := mocks.NewMockGenerator(ctrl)

	retriever.EXPECT().
		SearchWithScores(gomock.Any(), gomock.Any(), 5).
		Return([]rag.ScoredChunk{
			{Chunk: chunkWithMeta("Unrelated text.", "doc_1", "a.md"), Score: 0.9},
		}, nil)

	generator.EXPECT().
		Generate(gomock.Any(), gomock.Any()).
		Times(2).
		Return("Not found.", nil)

	engine, _ := newEngine(t, retriever, generator)

	result := engine.Ask(context.Background(), rag.QueryRequest{Query: "unanswerable"})

	if result.Response.ResponseText != "Not found." {
		t.Errorf("ResponseText = %q, want the negative phrase kept", result.Response.ResponseText)
	}
}

func TestEngine_AskDeduplicatesIdenticalText(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	retriever := mocks.NewMockScoredSearcher(ctrl)
	generator := mocks.NewMockGenerator(ctrl)

	retriever.EXPECT().
		SearchWithScores(gomock.Any(), gomock.Any(), 5).
		Return([]rag.ScoredChunk{
			{Chunk: chunkWithMeta("Shared paragraph.", "doc_1", "a.md"), Score: 0.9},
			{Chunk: chunkWithMeta("Shared paragraph.", "doc_2", "b.md"), Score: 0.7},
		}, nil)

	generator.EXPECT().
		Generate(gomock.Any(), gomock.Any()).
		Return("An answer.", nil)

	engine, _ := newEngine(t, retriever, generator)

	result := engine.Ask(context.Background(), rag.QueryRequest{Query: "anything"})

	if result.ChunksAnalyzed != 1 {
		t.Errorf("ChunksAnalyzed = %d, want 1 after dedup", result.ChunksAnalyzed)
	}
	if len(result.Response.Sources) != 1 {
		t.Errorf("Sources = %d, want 1", len(result.Response.Sources))
	}
}

func TestEngine_AskClampsMaxSources(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	retriever := mocks.NewMockScoredSearcher(ctrl)
	generator := mocks.NewMockGenerator(ctrl)

	// 50 is clamped to the upper bound of 10 before retrieval.
	retriever.EXPECT().
		SearchWithScores(gomock.Any(), gomock.Any(), 10).
		Return(nil, nil)

	engine, _ := newEngine(t, retriever, generator)
	engine.Ask(context.Background(), rag.QueryRequest{Query: "q", MaxSources: 50})

	retriever.EXPECT().
		SearchWithScores(gomock.Any(), gomock.Any(), 1).
		Return(nil, nil)
	engine.Ask(context.Background(), rag.QueryRequest{Query: "q", MaxSources: -3})
}

func TestEngine_AskRetrievalError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	retriever := mocks.NewMockScoredSearcher(ctrl)
	generator := mocks.NewMockGenerator(ctrl)

	retriever.EXPECT().
		SearchWithScores(gomock.Any(), gomock.Any(), 5).
		Return(nil, fmt.Errorf("qdrant unreachable"))

	engine, _ := newEngine(t, retriever, generator)

	result := engine.Ask(context.Background(), rag.QueryRequest{Query: "q"})

	if !strings.Contains(result.Response.ResponseText, "An error occurred while processing your query") {
		t.Errorf("unexpected response text: %q", result.Response.ResponseText)
	}
	if result.ModelUsed != "error" {
		t.Errorf("ModelUsed = %q, want %q", result.ModelUsed, "error")
	}
	if result.Breakdown.Error == "" {
		t.Error("Breakdown.Error should carry the failure")
	}
	if result.Response.OverallConfidence != 0.0 {
		t.Errorf("OverallConfidence = %v, want 0.0", result.Response.OverallConfidence)
	}
	if len(result.Response.Sources) != 0 || len(result.Response.Citations) != 0 {
		t.Errorf("error result should have no sources or citations: %+v", result.Response)
	}
}

func TestEngine_AskGenerationError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	retriever := mocks.NewMockScoredSearcher(ctrl)
	generator := mocks.NewMockGenerator(ctrl)

	retriever.EXPECT().
		SearchWithScores(gomock.Any(), gomock.Any(), 5).
		Return([]rag.ScoredChunk{
			{Chunk: chunkWithMeta("Some text.", "doc_1", "a.md"), Score: 0.9},
		}, nil)

	generator.EXPECT().
		Generate(gomock.Any(), gomock.Any()).
		Return("", fmt.Errorf("llm timeout"))

	engine, _ := newEngine(t, retriever, generator)

	result := engine.Ask(context.Background(), rag.QueryRequest{Query: "q"})

	if result.ModelUsed != "error" {
		t.Errorf("ModelUsed = %q, want %q", result.ModelUsed, "error")
	}
	if !strings.Contains(result.Breakdown.Error, "llm timeout") {
		t.Errorf("Breakdown.Error = %q, want the generation failure", result.Breakdown.Error)
	}
}

func TestEngine_AskAppendsHistory(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	retriever := mocks.NewMockScoredSearcher(ctrl)
	generator := mocks.NewMockGenerator(ctrl)

	retriever.EXPECT().
		SearchWithScores(gomock.Any(), gomock.Any(), 5).
		Return([]rag.ScoredChunk{
			{Chunk: chunkWithMeta("Paris is the capital.", "doc_1", "geo.md"), Score: 0.9},
		}, nil)

	generator.EXPECT().
		Generate(gomock.Any(), gomock.Any()).
		Return("Paris.", nil)

	engine, tracker := newEngine(t, retriever, generator)

	engine.Ask(context.Background(), rag.QueryRequest{Query: "capital?"})

	entries := tracker.Recent(0)
	if len(entries) != 1 {
		t.Fatalf("history entries = %d, want 1", len(entries))
	}
	if entries[0].Question != "capital?" {
		t.Errorf("Question = %q, want %q", entries[0].Question, "capital?")
	}
	if entries[0].Response.ResponseText != "Paris." {
		t.Errorf("ResponseText = %q, want %q", entries[0].Response.ResponseText, "Paris.")
	}
}

func TestWithDefaultScore(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	searcher := mocks.NewMockSearcher(ctrl)
	searcher.EXPECT().
		Search(gomock.Any(), "query", 3).
		Return([]rag.RetrievedChunk{
			{Text: "one"},
			{Text: "two"},
		}, nil)

	adapted := rag.WithDefaultScore(searcher)

	scored, err := adapted.SearchWithScores(context.Background(), "query", 3)
	if err != nil {
		t.Fatalf("SearchWithScores() error = %v", err)
	}
	if len(scored) != 2 {
		t.Fatalf("got %d chunks, want 2", len(scored))
	}
	for _, sc := range scored {
		if sc.Score != 0.8 {
			t.Errorf("Score = %v, want 0.8", sc.Score)
		}
	}
}
