package attribution

import (
	"crypto/md5"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Manager tracks chunk provenance and generates citations and attributed
// responses. It owns the chunk-metadata mapping and the citation registry for
// its lifetime and is safe for concurrent use, but is intended to be created
// per session and passed to collaborators by constructor injection rather
// than shared globally.
type Manager struct {
	mu        sync.RWMutex
	chunks    map[string]ChunkMetadata
	citations map[string]Citation
	now       func() time.Time
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock overrides the wall clock used for timestamps and document id
// generation. Intended for tests and callers that need reproducible ids.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// NewManager creates an empty attribution manager.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		chunks:    make(map[string]ChunkMetadata),
		citations: make(map[string]Citation),
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// GenerateDocumentID derives an id for a source file from an MD5 prefix of
// the path plus a timestamp component. Re-ingesting the same file therefore
// produces a new id: each upload is treated as a new document version. Pin
// the clock with WithClock to get deterministic ids.
func (m *Manager) GenerateDocumentID(sourcePath string) string {
	sum := md5.Sum([]byte(sourcePath))
	return fmt.Sprintf("doc_%x_%s", sum[:4], m.now().Format("20060102_150405"))
}

// TrackDocumentChunk records provenance metadata for a chunk and returns it.
// Word and character counts are derived from chunkText; empty text yields
// zero counts. Tracking always succeeds.
func (m *Manager) TrackDocumentChunk(docID, chunkText, documentName, filePath string, pageNumber *int, sectionTitle, extractionMethod string) ChunkMetadata {
	if extractionMethod == "" {
		extractionMethod = "default"
	}

	now := m.now()
	meta := ChunkMetadata{
		ChunkID:             uuid.NewString(),
		DocumentID:          docID,
		SourceFile:          documentName,
		FilePath:            filePath,
		PageNumber:          pageNumber,
		Section:             sectionTitle,
		ConfidenceScore:     1.0,
		ExtractionMethod:    extractionMethod,
		TextContent:         chunkText,
		WordCount:           len(strings.Fields(chunkText)),
		CharacterCount:      len(chunkText),
		CreatedAt:           now,
		ExtractionTimestamp: now,
	}

	m.mu.Lock()
	m.chunks[meta.ChunkID] = meta
	m.mu.Unlock()

	return meta
}

// UpdateChunkConfidence overwrites the confidence score for a tracked chunk.
// Unknown chunk ids are a no-op.
func (m *Manager) UpdateChunkConfidence(chunkID string, score float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	meta, ok := m.chunks[chunkID]
	if !ok {
		return
	}
	meta.ConfidenceScore = score
	m.chunks[chunkID] = meta
}

// ChunkMetadata returns the metadata for a tracked chunk.
func (m *Manager) ChunkMetadata(chunkID string) (ChunkMetadata, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	meta, ok := m.chunks[chunkID]
	return meta, ok
}

// ChunkCount returns the number of tracked chunks.
func (m *Manager) ChunkCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.chunks)
}

// GenerateCitationsForChunks builds one citation per known chunk id in the
// requested style. Ids that were never tracked are silently skipped; input
// order is preserved and duplicate ids produce duplicate citations
// (deduplication happens upstream, in the query pipeline).
func (m *Manager) GenerateCitationsForChunks(chunkIDs []string, style CitationStyle) []Citation {
	m.mu.Lock()
	defer m.mu.Unlock()

	citations := make([]Citation, 0, len(chunkIDs))
	for _, id := range chunkIDs {
		meta, ok := m.chunks[id]
		if !ok {
			continue
		}
		citation := Citation{
			CitationID:   uuid.NewString(),
			SourceFile:   meta.SourceFile,
			CitationText: renderCitationText(meta.SourceFile, meta.PageNumber, style),
			Style:        style,
			PageNumber:   meta.PageNumber,
		}
		m.citations[citation.CitationID] = citation
		citations = append(citations, citation)
	}
	return citations
}

// CreateAttributedResponse assembles a response from tracked chunks. Unknown
// chunk ids are dropped. OverallConfidence is the mean of the found sources'
// confidence scores, 0.0 when none are found, and the quality label follows
// the single four-level scale in QualityForConfidence.
func (m *Manager) CreateAttributedResponse(responseText string, sourceChunkIDs []string, style CitationStyle) AttributedResponse {
	sources := make([]ChunkMetadata, 0, len(sourceChunkIDs))
	m.mu.RLock()
	for _, id := range sourceChunkIDs {
		if meta, ok := m.chunks[id]; ok {
			sources = append(sources, meta)
		}
	}
	m.mu.RUnlock()

	citations := m.GenerateCitationsForChunks(sourceChunkIDs, style)

	overall := 0.0
	if len(sources) > 0 {
		var sum float64
		for _, src := range sources {
			sum += src.ConfidenceScore
		}
		overall = sum / float64(len(sources))
	}

	return AttributedResponse{
		ResponseID:        uuid.NewString(),
		ResponseText:      responseText,
		Sources:           sources,
		Citations:         citations,
		OverallConfidence: overall,
		Quality:           QualityForConfidence(overall),
		GeneratedAt:       m.now(),
	}
}

// ExportAttributionData snapshots all tracked chunk metadata and citations.
// It is a pure read with no side effects.
func (m *Manager) ExportAttributionData() ExportData {
	m.mu.RLock()
	defer m.mu.RUnlock()

	chunks := make(map[string]ChunkMetadata, len(m.chunks))
	for id, meta := range m.chunks {
		chunks[id] = meta
	}
	citations := make(map[string]Citation, len(m.citations))
	for id, citation := range m.citations {
		citations[id] = citation
	}

	return ExportData{
		ChunkMetadata:  chunks,
		Citations:      citations,
		ExportedAt:     m.now(),
		TotalChunks:    len(chunks),
		TotalCitations: len(citations),
	}
}

// Reset clears all tracked chunks and citations. Chunks are never deleted
// individually; this bulk reset is the only removal path.
func (m *Manager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chunks = make(map[string]ChunkMetadata)
	m.citations = make(map[string]Citation)
}

// JSON serializes the export snapshot with indentation.
func (d ExportData) JSON() ([]byte, error) {
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal attribution export: %w", err)
	}
	return data, nil
}

// WriteFile serializes the snapshot and writes it to path.
func (d ExportData) WriteFile(path string) error {
	data, err := d.JSON()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write attribution export: %w", err)
	}
	return nil
}
