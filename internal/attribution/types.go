package attribution

import (
	"fmt"
	"strings"
	"time"
)

// CitationStyle selects the format used when rendering citation text.
type CitationStyle string

const (
	StyleAPA     CitationStyle = "apa"
	StyleMLA     CitationStyle = "mla"
	StyleChicago CitationStyle = "chicago"
	StyleIEEE    CitationStyle = "ieee"
)

// ParseCitationStyle converts a user-provided style name to a CitationStyle.
// Matching is case-insensitive. An empty string yields StyleAPA.
func ParseCitationStyle(s string) (CitationStyle, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "apa":
		return StyleAPA, nil
	case "mla":
		return StyleMLA, nil
	case "chicago":
		return StyleChicago, nil
	case "ieee":
		return StyleIEEE, nil
	default:
		return "", fmt.Errorf("unknown citation style: %q", s)
	}
}

// Quality is a coarse bucket derived from aggregate confidence.
type Quality string

const (
	QualityVeryLow Quality = "very_low"
	QualityLow     Quality = "low"
	QualityMedium  Quality = "medium"
	QualityHigh    Quality = "high"
)

// Qualities lists all quality levels in ascending order.
func Qualities() []Quality {
	return []Quality{QualityVeryLow, QualityLow, QualityMedium, QualityHigh}
}

// QualityForConfidence maps an aggregate confidence score onto the quality
// scale: <0.3 very_low, <0.6 low, <0.8 medium, >=0.8 high.
func QualityForConfidence(score float64) Quality {
	switch {
	case score >= 0.8:
		return QualityHigh
	case score >= 0.6:
		return QualityMedium
	case score >= 0.3:
		return QualityLow
	default:
		return QualityVeryLow
	}
}

// ChunkMetadata records the provenance of one retrieved text unit.
// SourceFile is always the original uploaded file name visible to the end
// user, never an internal temporary path; every derived structure (citations,
// exports, API responses) propagates this field.
type ChunkMetadata struct {
	ChunkID             string    `json:"chunk_id"`
	DocumentID          string    `json:"document_id,omitempty"`
	SourceFile          string    `json:"source_file"`
	FilePath            string    `json:"file_path,omitempty"`
	PageNumber          *int      `json:"page_number,omitempty"`
	Section             string    `json:"section,omitempty"`
	ConfidenceScore     float64   `json:"confidence_score"`
	ExtractionMethod    string    `json:"extraction_method"`
	TextContent         string    `json:"text_content"`
	WordCount           int       `json:"word_count"`
	CharacterCount      int       `json:"character_count"`
	CreatedAt           time.Time `json:"created_at"`
	ExtractionTimestamp time.Time `json:"extraction_timestamp"`
}

// Citation is a formatted reference derived from one chunk's metadata.
// Citations are immutable once created and never deduplicated.
type Citation struct {
	CitationID   string        `json:"citation_id"`
	SourceFile   string        `json:"source_file"`
	CitationText string        `json:"citation_text"`
	Style        CitationStyle `json:"style"`
	PageNumber   *int          `json:"page_number,omitempty"`
}

// AttributedResponse is one answer to one query, with the source chunks and
// citations that justify it. OverallConfidence is the arithmetic mean of the
// sources' confidence scores; 0.0 with QualityVeryLow when there are none.
type AttributedResponse struct {
	ResponseID        string          `json:"response_id"`
	ResponseText      string          `json:"response_text"`
	Sources           []ChunkMetadata `json:"sources"`
	Citations         []Citation      `json:"citations"`
	OverallConfidence float64         `json:"overall_confidence"`
	Quality           Quality         `json:"attribution_quality"`
	GeneratedAt       time.Time       `json:"generated_at"`
}

// ExportData is a point-in-time snapshot of all tracked chunk metadata and
// generated citations, for diagnostics or backup.
type ExportData struct {
	ChunkMetadata  map[string]ChunkMetadata `json:"chunk_metadata"`
	Citations      map[string]Citation      `json:"citations"`
	ExportedAt     time.Time                `json:"export_timestamp"`
	TotalChunks    int                      `json:"total_chunks"`
	TotalCitations int                      `json:"total_citations"`
}
