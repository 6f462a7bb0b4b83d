package rag

import (
	"context"
	"fmt"

	"docchat-ai/internal/vectorstore"
)

// Embedder turns query text into vectors. Implemented by llm.EmbeddingsClient.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// VectorRetriever implements ScoredSearcher over a vector store: it embeds
// the query and maps search results back into retrieved chunks. Chunk text is
// stored in the point payload under "text" at ingestion time.
type VectorRetriever struct {
	embedder   Embedder
	store      vectorstore.VectorStore
	collection string
}

// NewVectorRetriever creates a retriever over the given collection.
func NewVectorRetriever(embedder Embedder, store vectorstore.VectorStore, collection string) *VectorRetriever {
	return &VectorRetriever{
		embedder:   embedder,
		store:      store,
		collection: collection,
	}
}

// SearchWithScores embeds the query and returns the top-k chunks with their
// similarity scores.
func (r *VectorRetriever) SearchWithScores(ctx context.Context, query string, k int) ([]ScoredChunk, error) {
	vectors, err := r.embedder.EmbedTexts(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("no embedding returned for query")
	}

	results, err := r.store.Search(ctx, r.collection, vectors[0], k, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to search vector store: %w", err)
	}

	chunks := make([]ScoredChunk, 0, len(results))
	for _, res := range results {
		text, _ := res.Meta["text"].(string)
		chunks = append(chunks, ScoredChunk{
			Chunk: RetrievedChunk{Text: text, Meta: res.Meta},
			Score: float64(res.Score),
		})
	}
	return chunks, nil
}
