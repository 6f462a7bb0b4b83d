package vectorstore

import "context"

// Point is one embedded chunk with its provenance payload. The payload
// carries the chunk text plus the attribution keys (document_id, source,
// file_path, page, section).
type Point struct {
	ID   string
	Vec  []float32
	Meta map[string]any
}

// SearchResult is one similarity-search hit.
type SearchResult struct {
	PointID string
	Score   float32
	Meta    map[string]any
}

// VectorStore is the contract the ingestion pipeline and query retriever
// need from a vector database.
type VectorStore interface {
	// Upsert inserts or updates points in the collection.
	Upsert(ctx context.Context, collection string, points []Point) error

	// Search returns the top-k nearest points with scores. Filters supports
	// the "document_id" key to restrict results to one document.
	Search(ctx context.Context, collection string, query []float32, k int, filters map[string]any) ([]SearchResult, error)

	// Delete removes points by id.
	Delete(ctx context.Context, collection string, ids []string) error

	// EnsureCollection creates the collection if missing and validates the
	// vector size if it exists.
	EnsureCollection(ctx context.Context, collection string, vectorSize int) error

	// CollectionExists reports whether the collection exists.
	CollectionExists(ctx context.Context, collection string) (bool, error)
}
