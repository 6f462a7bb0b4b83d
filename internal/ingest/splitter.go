package ingest

import (
	"strings"
	"unicode/utf8"
)

const (
	// splitterOverlap carries trailing context into the next chunk so
	// sentences cut at a boundary stay answerable.
	splitterOverlap = 100
)

// TextSplitter chunks plain text by size with overlap between consecutive
// chunks. Splits prefer paragraph and sentence boundaries.
type TextSplitter struct {
	chunkSize int
	overlap   int
}

// NewTextSplitter creates a splitter with the default chunk size and overlap.
func NewTextSplitter() *TextSplitter {
	return &TextSplitter{chunkSize: maxChunkRunes, overlap: splitterOverlap}
}

// Chunk splits the content into overlapping chunks. Sections are left empty;
// plain text has no heading structure to attribute.
func (s *TextSplitter) Chunk(content []byte) []Chunk {
	trimmed := strings.TrimSpace(string(content))
	if trimmed == "" {
		return nil
	}

	runes := []rune(trimmed)
	if len(runes) <= s.chunkSize {
		return []Chunk{{Index: 0, Text: trimmed}}
	}

	var chunks []Chunk
	start := 0
	for start < len(runes) {
		end := start + s.chunkSize
		if end >= len(runes) {
			text := strings.TrimSpace(string(runes[start:]))
			if text != "" {
				chunks = append(chunks, Chunk{Text: text})
			}
			break
		}

		window := string(runes[start:end])
		cut := end
		if idx := strings.LastIndex(window, "\n\n"); idx != -1 {
			cut = start + utf8.RuneCountInString(window[:idx]) + 2
		} else if idx := strings.LastIndex(window, ". "); idx != -1 {
			cut = start + utf8.RuneCountInString(window[:idx]) + 2
		} else if idx := strings.LastIndex(window, " "); idx != -1 {
			cut = start + utf8.RuneCountInString(window[:idx]) + 1
		}

		text := strings.TrimSpace(string(runes[start:cut]))
		if text != "" {
			chunks = append(chunks, Chunk{Text: text})
		}

		next := cut - s.overlap
		if next <= start {
			next = cut
		}
		start = next
	}

	for i := range chunks {
		chunks[i].Index = i
	}
	return chunks
}
