package vectorstore

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
)

// MemoryStore is an in-memory VectorStore for tests and local development.
// Search uses brute-force cosine similarity.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]*memoryCollection
}

type memoryCollection struct {
	vectorSize int
	points     map[string]Point
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{collections: make(map[string]*memoryCollection)}
}

func (s *MemoryStore) Upsert(_ context.Context, collection string, points []Point) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	coll, ok := s.collections[collection]
	if !ok {
		return fmt.Errorf("collection %q does not exist", collection)
	}
	for _, p := range points {
		if coll.vectorSize > 0 && len(p.Vec) != coll.vectorSize {
			return fmt.Errorf("vector size mismatch: expected %d, got %d", coll.vectorSize, len(p.Vec))
		}
		coll.points[p.ID] = p
	}
	return nil
}

func (s *MemoryStore) Search(_ context.Context, collection string, query []float32, k int, filters map[string]any) ([]SearchResult, error) {
	if k <= 0 {
		return nil, fmt.Errorf("k must be greater than 0")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	coll, ok := s.collections[collection]
	if !ok {
		return nil, fmt.Errorf("collection %q does not exist", collection)
	}

	docID, _ := filters["document_id"].(string)

	results := make([]SearchResult, 0, len(coll.points))
	for _, p := range coll.points {
		if docID != "" {
			if got, _ := p.Meta["document_id"].(string); got != docID {
				continue
			}
		}
		results = append(results, SearchResult{
			PointID: p.ID,
			Score:   cosineSimilarity(query, p.Vec),
			Meta:    p.Meta,
		})
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

func (s *MemoryStore) Delete(_ context.Context, collection string, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	coll, ok := s.collections[collection]
	if !ok {
		return fmt.Errorf("collection %q does not exist", collection)
	}
	for _, id := range ids {
		delete(coll.points, id)
	}
	return nil
}

func (s *MemoryStore) EnsureCollection(_ context.Context, collection string, vectorSize int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if coll, ok := s.collections[collection]; ok {
		if coll.vectorSize != vectorSize {
			return fmt.Errorf("collection vector size mismatch: expected %d, got %d", vectorSize, coll.vectorSize)
		}
		return nil
	}
	s.collections[collection] = &memoryCollection{
		vectorSize: vectorSize,
		points:     make(map[string]Point),
	}
	return nil
}

func (s *MemoryStore) CollectionExists(_ context.Context, collection string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.collections[collection]
	return ok, nil
}

func cosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
