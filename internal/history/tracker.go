// Package history keeps the append-only conversation log of attributed
// responses for one chat session.
package history

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"docchat-ai/internal/attribution"
)

// Entry pairs an attributed response with the question that produced it.
type Entry struct {
	Question string                          `json:"question"`
	Response attribution.AttributedResponse  `json:"response"`
}

// Stats aggregates the stored responses.
type Stats struct {
	TotalResponses      int                         `json:"total_responses"`
	TotalSourcesUsed    int                         `json:"total_sources_used"`
	AverageConfidence   float64                     `json:"average_confidence"`
	QualityDistribution map[attribution.Quality]int `json:"quality_distribution"`
}

// SourceUsage reports how often one document was cited across the session.
type SourceUsage struct {
	SourceFile        string  `json:"source_file"`
	Count             int     `json:"count"`
	AverageConfidence float64 `json:"average_confidence"`
}

// Export is the serialized form of a session's history.
type Export struct {
	SessionID      string    `json:"session_id"`
	StartedAt      time.Time `json:"started_at"`
	ExportedAt     time.Time `json:"exported_at"`
	TotalResponses int       `json:"total_responses"`
	Responses      []Entry   `json:"responses"`
}

// Tracker is the per-session conversation history. Appends are ordered;
// entries are only replaced by RegenerateWithStyle and only removed by Clear.
type Tracker struct {
	mu        sync.Mutex
	manager   *attribution.Manager
	entries   []Entry
	sessionID string
	startedAt time.Time
}

// NewTracker creates an empty tracker bound to the session's attribution
// manager, which it needs to re-derive citations on style regeneration.
func NewTracker(manager *attribution.Manager) *Tracker {
	return &Tracker{
		manager:   manager,
		sessionID: "session_" + uuid.NewString()[:8],
		startedAt: time.Now().UTC(),
	}
}

// SessionID returns the tracker's session identifier.
func (t *Tracker) SessionID() string {
	return t.sessionID
}

// Append adds a question/response pair to the history.
func (t *Tracker) Append(question string, resp attribution.AttributedResponse) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = append(t.entries, Entry{Question: question, Response: resp})
}

// Recent returns up to limit of the most recent entries, oldest first.
// A non-positive limit returns everything.
func (t *Tracker) Recent(limit int) []Entry {
	t.mu.Lock()
	defer t.mu.Unlock()

	start := 0
	if limit > 0 && len(t.entries) > limit {
		start = len(t.entries) - limit
	}
	out := make([]Entry, len(t.entries)-start)
	copy(out, t.entries[start:])
	return out
}

// Clear removes all entries.
func (t *Tracker) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = nil
}

// Stats aggregates response count, total sources cited, average confidence,
// and a histogram over the four quality levels.
func (t *Tracker) Stats() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()

	stats := Stats{
		QualityDistribution: make(map[attribution.Quality]int, 4),
	}
	for _, q := range attribution.Qualities() {
		stats.QualityDistribution[q] = 0
	}

	if len(t.entries) == 0 {
		return stats
	}

	var confidenceSum float64
	for _, entry := range t.entries {
		stats.TotalSourcesUsed += len(entry.Response.Sources)
		confidenceSum += entry.Response.OverallConfidence
		stats.QualityDistribution[entry.Response.Quality]++
	}
	stats.TotalResponses = len(t.entries)
	stats.AverageConfidence = confidenceSum / float64(len(t.entries))
	return stats
}

// RegenerateWithStyle re-derives the citations of a past response under a new
// style and replaces the entry in place. The response id, text, sources, and
// confidence are unchanged; only the citations are rebuilt. Returns false if
// no entry has the given response id.
func (t *Tracker) RegenerateWithStyle(responseID string, style attribution.CitationStyle) (attribution.AttributedResponse, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i, entry := range t.entries {
		if entry.Response.ResponseID != responseID {
			continue
		}

		chunkIDs := make([]string, 0, len(entry.Response.Sources))
		for _, src := range entry.Response.Sources {
			chunkIDs = append(chunkIDs, src.ChunkID)
		}

		updated := entry.Response
		updated.Citations = t.manager.GenerateCitationsForChunks(chunkIDs, style)
		t.entries[i].Response = updated
		return updated, true
	}

	return attribution.AttributedResponse{}, false
}

// Export serializes the full history, including nested citations and source
// metadata. Format "json" produces indented JSON; any other format falls back
// to a plain string rendering.
func (t *Tracker) Export(format string) (string, error) {
	t.mu.Lock()
	entries := make([]Entry, len(t.entries))
	copy(entries, t.entries)
	export := Export{
		SessionID:      t.sessionID,
		StartedAt:      t.startedAt,
		ExportedAt:     time.Now().UTC(),
		TotalResponses: len(entries),
		Responses:      entries,
	}
	t.mu.Unlock()

	if format == "json" || format == "" {
		data, err := json.MarshalIndent(export, "", "  ")
		if err != nil {
			return "", fmt.Errorf("failed to marshal history export: %w", err)
		}
		return string(data), nil
	}
	return fmt.Sprintf("%+v", export), nil
}

// MostCitedSources returns the documents cited most often, with their average
// per-citation confidence, most cited first.
func (t *Tracker) MostCitedSources(limit int) []SourceUsage {
	t.mu.Lock()
	defer t.mu.Unlock()

	type agg struct {
		count int
		total float64
	}
	counts := make(map[string]*agg)
	for _, entry := range t.entries {
		for _, src := range entry.Response.Sources {
			a, ok := counts[src.SourceFile]
			if !ok {
				a = &agg{}
				counts[src.SourceFile] = a
			}
			a.count++
			a.total += src.ConfidenceScore
		}
	}

	usages := make([]SourceUsage, 0, len(counts))
	for name, a := range counts {
		usages = append(usages, SourceUsage{
			SourceFile:        name,
			Count:             a.count,
			AverageConfidence: a.total / float64(a.count),
		})
	}
	sort.Slice(usages, func(i, j int) bool {
		if usages[i].Count != usages[j].Count {
			return usages[i].Count > usages[j].Count
		}
		return usages[i].SourceFile < usages[j].SourceFile
	})

	if limit > 0 && len(usages) > limit {
		usages = usages[:limit]
	}
	return usages
}

// EntriesBySource returns all entries whose response cites the named document.
func (t *Tracker) EntriesBySource(sourceFile string) []Entry {
	t.mu.Lock()
	defer t.mu.Unlock()

	var matches []Entry
	for _, entry := range t.entries {
		for _, src := range entry.Response.Sources {
			if src.SourceFile == sourceFile {
				matches = append(matches, entry)
				break
			}
		}
	}
	return matches
}
