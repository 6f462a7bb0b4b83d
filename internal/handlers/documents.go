package handlers

import (
	"io"
	"net/http"
	"time"

	"docchat-ai/internal/contextutil"
	"docchat-ai/internal/ingest"
	"docchat-ai/internal/storage"
)

// DocumentsHandler handles document upload and listing.
type DocumentsHandler struct {
	pipeline *ingest.Pipeline
	docs     storage.DocumentStore
}

// NewDocumentsHandler creates a new DocumentsHandler.
func NewDocumentsHandler(pipeline *ingest.Pipeline, docs storage.DocumentStore) *DocumentsHandler {
	return &DocumentsHandler{pipeline: pipeline, docs: docs}
}

// Upload handles POST multipart uploads. The file part must be named "file".
func (h *DocumentsHandler) Upload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if err := r.ParseMultipartForm(ingest.MaxUploadBytes); err != nil {
		logger.WarnContext(ctx, "invalid multipart form", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}

	part, header, err := r.FormFile("file")
	if err != nil {
		logger.WarnContext(ctx, "missing file part", "error", err)
		writeError(w, http.StatusBadRequest, "A file part named \"file\" is required")
		return
	}
	defer func() {
		_ = part.Close()
	}()

	data, err := io.ReadAll(io.LimitReader(part, ingest.MaxUploadBytes+1))
	if err != nil {
		logger.ErrorContext(ctx, "failed to read upload", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to read upload")
		return
	}

	file := ingest.UploadedFile{
		Name: header.Filename,
		Size: int64(len(data)),
		Data: data,
	}

	result, err := h.pipeline.Ingest(ctx, file)
	if err != nil {
		logger.WarnContext(ctx, "ingestion failed", "name", header.Filename, "error", err)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	status := http.StatusCreated
	if result.AlreadyIngested {
		status = http.StatusOK
	}
	writeJSON(w, status, result)
}

// DocumentSummary is one document in the listing response.
type DocumentSummary struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	SizeBytes  int64  `json:"size_bytes"`
	ChunkCount int    `json:"chunk_count"`
	UploadedAt string `json:"uploaded_at"`
}

// List handles GET requests for the document catalog.
func (h *DocumentsHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	docs, err := h.docs.ListAll(ctx)
	if err != nil {
		logger.ErrorContext(ctx, "failed to list documents", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to list documents")
		return
	}

	summaries := make([]DocumentSummary, len(docs))
	for i, doc := range docs {
		summaries[i] = DocumentSummary{
			ID:         doc.ID,
			Name:       doc.Name,
			SizeBytes:  doc.SizeBytes,
			ChunkCount: doc.ChunkCount,
			UploadedAt: doc.UploadedAt.UTC().Format(time.RFC3339),
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"documents": summaries,
		"total":     len(summaries),
	})
}
