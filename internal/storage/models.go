package storage

import "time"

// Document represents one ingested document in the database.
type Document struct {
	ID         string // Generated document ID (doc_<hash>_<timestamp>)
	Name       string // Original filename as uploaded
	FilePath   string // Path the content was staged at during ingestion
	Hash       string // SHA256 hex string of file content
	SizeBytes  int64
	ChunkCount int
	UploadedAt time.Time
}
