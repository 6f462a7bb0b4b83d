// Package ingest turns uploaded documents into embedded, attributed chunks in
// the vector store, with a catalog row per document in SQLite.
package ingest

import (
	"fmt"
	"path/filepath"
	"strings"
)

// MaxUploadBytes caps upload size at 32 MiB.
const MaxUploadBytes = 32 << 20

// UploadedFile is one file received for ingestion. Name is the original
// filename as the user uploaded it; it is what citations display, never the
// staging path the content is written to.
type UploadedFile struct {
	Name string
	Size int64
	Data []byte
}

// supportedExtensions maps file extensions to the chunking strategy used.
var supportedExtensions = map[string]bool{
	".md":       true,
	".markdown": true,
	".txt":      true,
}

// Validate checks the upload before any processing happens.
func (f UploadedFile) Validate() error {
	if strings.TrimSpace(f.Name) == "" {
		return fmt.Errorf("filename is empty")
	}
	if len(f.Data) == 0 {
		return fmt.Errorf("file %q is empty", f.Name)
	}
	if f.Size > MaxUploadBytes {
		return fmt.Errorf("file %q exceeds maximum size of %d bytes", f.Name, MaxUploadBytes)
	}
	ext := strings.ToLower(filepath.Ext(f.Name))
	if !supportedExtensions[ext] {
		return fmt.Errorf("unsupported file type %q", ext)
	}
	return nil
}

// isMarkdown reports whether the file should go through the markdown chunker.
func (f UploadedFile) isMarkdown() bool {
	ext := strings.ToLower(filepath.Ext(f.Name))
	return ext == ".md" || ext == ".markdown"
}
