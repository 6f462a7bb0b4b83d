package ingest

import (
	"context"
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"docchat-ai/internal/attribution"
	"docchat-ai/internal/contextutil"
	"docchat-ai/internal/storage"
	"docchat-ai/internal/vectorstore"
)

// Embedder generates embedding vectors for chunk texts.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Pipeline orchestrates document ingestion: validate, stage, chunk, embed,
// upsert vectors, and record the document in the catalog.
type Pipeline struct {
	docs       storage.DocumentStore
	embedder   Embedder
	store      vectorstore.VectorStore
	collection string
	manager    *attribution.Manager
	stagingDir string
	markdown   *MarkdownChunker
	plain      *TextSplitter
}

// NewPipeline creates an ingestion pipeline. stagingDir is where uploaded
// content is written; it falls back to the OS temp dir when empty.
func NewPipeline(
	docs storage.DocumentStore,
	embedder Embedder,
	store vectorstore.VectorStore,
	collection string,
	manager *attribution.Manager,
	stagingDir string,
) *Pipeline {
	if stagingDir == "" {
		stagingDir = os.TempDir()
	}
	return &Pipeline{
		docs:       docs,
		embedder:   embedder,
		store:      store,
		collection: collection,
		manager:    manager,
		stagingDir: stagingDir,
		markdown:   NewMarkdownChunker(),
		plain:      NewTextSplitter(),
	}
}

// Result reports what ingestion did with one upload.
type Result struct {
	Document        storage.Document `json:"document"`
	ChunksIndexed   int              `json:"chunks_indexed"`
	AlreadyIngested bool             `json:"already_ingested"`
}

// Ingest processes one uploaded file. Content already present in the catalog
// (matched by SHA256) is not re-processed.
func (p *Pipeline) Ingest(ctx context.Context, file UploadedFile) (*Result, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if err := file.Validate(); err != nil {
		return nil, fmt.Errorf("invalid upload: %w", err)
	}

	hash := fmt.Sprintf("%x", sha256.Sum256(file.Data))

	existing, err := p.docs.GetByHash(ctx, hash)
	if err != nil && err != storage.ErrNotFound {
		return nil, fmt.Errorf("failed to check existing document: %w", err)
	}
	if existing != nil {
		logger.InfoContext(ctx, "skipping already ingested content", "name", file.Name, "document_id", existing.ID)
		return &Result{Document: *existing, ChunksIndexed: existing.ChunkCount, AlreadyIngested: true}, nil
	}

	docID := p.manager.GenerateDocumentID(file.Name)

	stagedPath := filepath.Join(p.stagingDir, docID+filepath.Ext(file.Name))
	if err := os.WriteFile(stagedPath, file.Data, 0o600); err != nil {
		return nil, fmt.Errorf("failed to stage upload: %w", err)
	}

	var chunks []Chunk
	var extractionMethod string
	if file.isMarkdown() {
		chunks = p.markdown.Chunk(file.Data)
		extractionMethod = "markdown"
	} else {
		chunks = p.plain.Chunk(file.Data)
		extractionMethod = "text"
	}
	if len(chunks) == 0 {
		return nil, fmt.Errorf("no chunks produced from %q", file.Name)
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}

	embeddings, err := p.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to embed chunks: %w", err)
	}
	if len(embeddings) != len(chunks) {
		return nil, fmt.Errorf("embedding count mismatch: expected %d, got %d", len(chunks), len(embeddings))
	}

	points := make([]vectorstore.Point, len(chunks))
	for i, chunk := range chunks {
		meta := p.manager.TrackDocumentChunk(docID, chunk.Text, file.Name, stagedPath, nil, chunk.Section, extractionMethod)

		points[i] = vectorstore.Point{
			ID:  uuid.NewString(),
			Vec: embeddings[i],
			Meta: map[string]any{
				"text":        chunk.Text,
				"document_id": docID,
				"source":      file.Name,
				"file_path":   stagedPath,
				"section":     chunk.Section,
				"chunk_index": chunk.Index,
				"chunk_id":    meta.ChunkID,
			},
		}
	}

	if err := p.store.Upsert(ctx, p.collection, points); err != nil {
		return nil, fmt.Errorf("failed to upsert vectors: %w", err)
	}

	doc := storage.Document{
		ID:         docID,
		Name:       file.Name,
		FilePath:   stagedPath,
		Hash:       hash,
		SizeBytes:  int64(len(file.Data)),
		ChunkCount: len(chunks),
		UploadedAt: time.Now().UTC(),
	}
	if err := p.docs.Insert(ctx, &doc); err != nil {
		return nil, fmt.Errorf("failed to record document: %w", err)
	}

	logger.InfoContext(ctx, "document ingested",
		"name", file.Name,
		"document_id", docID,
		"chunks", len(chunks),
		"extraction_method", extractionMethod,
	)

	return &Result{Document: doc, ChunksIndexed: len(chunks)}, nil
}
