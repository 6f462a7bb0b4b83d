package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_document_store.go -package=mocks docchat-ai/internal/storage DocumentStore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a record is not found.
	ErrNotFound = errors.New("record not found")
)

// DocumentStore defines the interface for document storage operations.
type DocumentStore interface {
	// Insert inserts a document record. The document ID must be set.
	Insert(ctx context.Context, doc *Document) error
	// GetByID gets a document by its ID. Returns ErrNotFound if not found.
	GetByID(ctx context.Context, id string) (*Document, error)
	// GetByHash gets the most recently uploaded document with the given
	// content hash. Returns ErrNotFound if none exists.
	GetByHash(ctx context.Context, hash string) (*Document, error)
	// ListAll returns all documents ordered by upload time, newest first.
	ListAll(ctx context.Context) ([]Document, error)
}

// DocumentRepo provides methods for document operations.
// It implements the DocumentStore interface.
type DocumentRepo struct {
	db *sql.DB
}

// NewDocumentRepo creates a new DocumentRepo.
func NewDocumentRepo(db *sql.DB) *DocumentRepo {
	return &DocumentRepo{db: db}
}

// Insert inserts a document record. The document ID must be set.
func (r *DocumentRepo) Insert(ctx context.Context, doc *Document) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO documents (id, name, file_path, hash, size_bytes, chunk_count, uploaded_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
		doc.ID, doc.Name, doc.FilePath, doc.Hash, doc.SizeBytes, doc.ChunkCount, doc.UploadedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert document: %w", err)
	}
	return nil
}

// GetByID gets a document by its ID. Returns ErrNotFound if not found.
func (r *DocumentRepo) GetByID(ctx context.Context, id string) (*Document, error) {
	var doc Document
	err := r.db.QueryRowContext(ctx,
		"SELECT id, name, file_path, hash, size_bytes, chunk_count, uploaded_at FROM documents WHERE id = ?",
		id,
	).Scan(&doc.ID, &doc.Name, &doc.FilePath, &doc.Hash, &doc.SizeBytes, &doc.ChunkCount, &doc.UploadedAt)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query document: %w", err)
	}

	return &doc, nil
}

// GetByHash gets the most recently uploaded document with the given content
// hash. Returns ErrNotFound if none exists.
func (r *DocumentRepo) GetByHash(ctx context.Context, hash string) (*Document, error) {
	var doc Document
	err := r.db.QueryRowContext(ctx,
		"SELECT id, name, file_path, hash, size_bytes, chunk_count, uploaded_at FROM documents WHERE hash = ? ORDER BY uploaded_at DESC LIMIT 1",
		hash,
	).Scan(&doc.ID, &doc.Name, &doc.FilePath, &doc.Hash, &doc.SizeBytes, &doc.ChunkCount, &doc.UploadedAt)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query document by hash: %w", err)
	}

	return &doc, nil
}

// ListAll returns all documents ordered by upload time, newest first.
func (r *DocumentRepo) ListAll(ctx context.Context) ([]Document, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, name, file_path, hash, size_bytes, chunk_count, uploaded_at FROM documents ORDER BY uploaded_at DESC, id",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var docs []Document
	for rows.Next() {
		var doc Document
		if err := rows.Scan(&doc.ID, &doc.Name, &doc.FilePath, &doc.Hash, &doc.SizeBytes, &doc.ChunkCount, &doc.UploadedAt); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, doc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return docs, nil
}
