package ingest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleMarkdown = `# Deployment Guide

This guide explains how the service is deployed to production and what to check when a rollout misbehaves in interesting ways.

## Prerequisites

You need credentials for the container registry and access to the cluster before any of the steps below will work for you.

## Rollout

Apply the manifests in order and watch the pod status until every replica reports ready, then run the smoke checks against the new build.
`

func TestMarkdownChunker_SectionPaths(t *testing.T) {
	chunks := NewMarkdownChunker().Chunk([]byte(sampleMarkdown))
	require.NotEmpty(t, chunks)

	sections := make([]string, 0, len(chunks))
	for _, c := range chunks {
		sections = append(sections, c.Section)
	}
	assert.Contains(t, sections, "Deployment Guide")
	assert.Contains(t, sections, "Deployment Guide > Prerequisites")
	assert.Contains(t, sections, "Deployment Guide > Rollout")

	for i, c := range chunks {
		assert.Equal(t, i, c.Index)
		assert.NotEmpty(t, strings.TrimSpace(c.Text))
	}
}

func TestMarkdownChunker_HeadingTextExcludedFromBody(t *testing.T) {
	chunks := NewMarkdownChunker().Chunk([]byte(sampleMarkdown))
	require.NotEmpty(t, chunks)

	for _, c := range chunks {
		assert.NotContains(t, c.Text, "# ")
	}
}

func TestMarkdownChunker_EmptyContent(t *testing.T) {
	assert.Empty(t, NewMarkdownChunker().Chunk(nil))
	assert.Empty(t, NewMarkdownChunker().Chunk([]byte("   \n\n  ")))
}

func TestMarkdownChunker_NoHeadings(t *testing.T) {
	content := "Just a paragraph of text without any structure to speak of, long enough to stand on its own as a chunk."
	chunks := NewMarkdownChunker().Chunk([]byte(content))
	require.Len(t, chunks, 1)
	assert.Equal(t, "", chunks[0].Section)
	assert.Contains(t, chunks[0].Text, "without any structure")
}

func TestMarkdownChunker_Table(t *testing.T) {
	content := `# Limits

The table below lists the default limits enforced by the API for every tenant unless an override has been granted.

| Resource | Limit |
|----------|-------|
| Requests | 100   |
| Uploads  | 10    |
`
	chunks := NewMarkdownChunker().Chunk([]byte(content))
	require.NotEmpty(t, chunks)

	var all strings.Builder
	for _, c := range chunks {
		all.WriteString(c.Text)
		all.WriteString("\n")
	}
	assert.Contains(t, all.String(), "Requests | 100")
	assert.Contains(t, all.String(), "Uploads | 10")
}

func TestMarkdownChunker_SplitsOversizedSections(t *testing.T) {
	var b strings.Builder
	b.WriteString("# Big Section\n\n")
	for i := 0; i < 60; i++ {
		b.WriteString("This sentence pads the section far beyond the maximum chunk size. ")
	}

	chunks := NewMarkdownChunker().Chunk([]byte(b.String()))
	require.Greater(t, len(chunks), 1)

	for _, c := range chunks {
		assert.LessOrEqual(t, len([]rune(c.Text)), maxChunkRunes)
		assert.Equal(t, "Big Section", c.Section)
	}
}

func TestMarkdownChunker_MergesTinySections(t *testing.T) {
	content := `# A

Tiny.

# B

Also tiny.
`
	chunks := NewMarkdownChunker().Chunk([]byte(content))
	require.Len(t, chunks, 1)
	assert.Contains(t, chunks[0].Text, "Tiny.")
	assert.Contains(t, chunks[0].Text, "Also tiny.")
}
