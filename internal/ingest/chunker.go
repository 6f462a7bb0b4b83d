package ingest

import (
	"strings"
	"unicode/utf8"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
)

const (
	minChunkRunes = 50
	// maxChunkRunes targets roughly 450 tokens for a 512-token embedding model.
	maxChunkRunes = 700
)

// Chunk is one unit of document text bound for embedding. Section carries the
// heading path ("Intro > Setup") the chunk came from, empty for plain text.
type Chunk struct {
	Index   int
	Section string
	Text    string
}

// MarkdownChunker splits markdown into section-aligned chunks using the
// goldmark AST.
type MarkdownChunker struct {
	parser goldmark.Markdown
}

// NewMarkdownChunker creates a markdown chunker with table support.
func NewMarkdownChunker() *MarkdownChunker {
	return &MarkdownChunker{
		parser: goldmark.New(
			goldmark.WithExtensions(extension.Table),
		),
	}
}

// Chunk parses the content and returns one chunk per section, merged and
// split to stay within size bounds.
func (c *MarkdownChunker) Chunk(content []byte) []Chunk {
	if len(strings.TrimSpace(string(content))) == 0 {
		return nil
	}

	doc := c.parser.Parser().Parse(text.NewReader(content))
	sections := collectSections(doc, content)

	chunks := make([]Chunk, 0, len(sections))
	for _, sec := range sections {
		body := strings.TrimSpace(sec.body.String())
		if body == "" {
			continue
		}
		chunks = append(chunks, Chunk{Section: sec.path, Text: body})
	}

	if len(chunks) == 0 {
		chunks = []Chunk{{Text: strings.TrimSpace(string(content))}}
	}

	return normalizeChunks(chunks)
}

type section struct {
	path string
	body strings.Builder
}

// collectSections walks the AST, opening a new section at each heading and
// accumulating plain text into the current one. The heading path joins the
// active heading stack with " > ".
func collectSections(doc ast.Node, content []byte) []*section {
	var sections []*section
	var stack []struct {
		level int
		title string
	}

	current := func() *section {
		if len(sections) == 0 {
			sections = append(sections, &section{})
		}
		return sections[len(sections)-1]
	}

	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		switch node := n.(type) {
		case *ast.Heading:
			for len(stack) > 0 && stack[len(stack)-1].level >= node.Level {
				stack = stack[:len(stack)-1]
			}
			stack = append(stack, struct {
				level int
				title string
			}{node.Level, nodeText(node, content)})

			titles := make([]string, len(stack))
			for i, h := range stack {
				titles[i] = h.title
			}
			sections = append(sections, &section{path: strings.Join(titles, " > ")})
			return ast.WalkSkipChildren, nil

		case *ast.Text:
			current().body.Write(node.Segment.Value(content))

		case *ast.String:
			current().body.Write(node.Value)

		case *ast.CodeBlock:
			sec := current()
			ensureNewline(sec)
			lines := node.Lines()
			for i := 0; i < lines.Len(); i++ {
				seg := lines.At(i)
				sec.body.Write(seg.Value(content))
			}
			return ast.WalkSkipChildren, nil

		case *ast.FencedCodeBlock:
			sec := current()
			ensureNewline(sec)
			lines := node.Lines()
			for i := 0; i < lines.Len(); i++ {
				seg := lines.At(i)
				sec.body.Write(seg.Value(content))
			}
			return ast.WalkSkipChildren, nil

		case *ast.Paragraph, *ast.ListItem:
			ensureNewline(current())

		default:
			// Table rows render as "cell | cell" lines.
			kind := n.Kind().String()
			if kind == "TableRow" || kind == "TableHeader" {
				sec := current()
				ensureNewline(sec)
				sec.body.WriteString(tableRowText(n, content))
				return ast.WalkSkipChildren, nil
			}
		}
		return ast.WalkContinue, nil
	})

	return sections
}

func ensureNewline(sec *section) {
	if sec.body.Len() > 0 && !strings.HasSuffix(sec.body.String(), "\n") {
		sec.body.WriteString("\n")
	}
}

// nodeText returns the concatenated plain text of a node's subtree.
func nodeText(n ast.Node, content []byte) string {
	var b strings.Builder
	_ = ast.Walk(n, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch v := node.(type) {
		case *ast.Text:
			b.Write(v.Segment.Value(content))
		case *ast.String:
			b.Write(v.Value)
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(b.String())
}

func tableRowText(row ast.Node, content []byte) string {
	var cells []string
	for cell := row.FirstChild(); cell != nil; cell = cell.NextSibling() {
		cells = append(cells, nodeText(cell, content))
	}
	return strings.Join(cells, " | ")
}

// normalizeChunks merges undersized chunks into their successor when the
// result stays within bounds, splits oversized chunks, and reassigns indexes.
func normalizeChunks(chunks []Chunk) []Chunk {
	var result []Chunk
	for i := 0; i < len(chunks); i++ {
		current := chunks[i]
		for i+1 < len(chunks) {
			next := chunks[i+1]
			sameSection := current.Section == next.Section && current.Section != ""
			tooSmall := utf8.RuneCountInString(current.Text) < minChunkRunes
			if !sameSection && !tooSmall {
				break
			}
			merged := current.Text + "\n\n" + next.Text
			if utf8.RuneCountInString(merged) > maxChunkRunes {
				break
			}
			current.Text = merged
			i++
		}
		result = append(result, splitOversized(current)...)
	}

	for i := range result {
		result[i].Index = i
	}
	return result
}

// splitOversized breaks a chunk exceeding maxChunkRunes at the best boundary
// available: paragraph break, then newline, then sentence end, then hard cut.
func splitOversized(chunk Chunk) []Chunk {
	runes := []rune(chunk.Text)
	if len(runes) <= maxChunkRunes {
		return []Chunk{chunk}
	}

	var splits []Chunk
	start := 0
	for start < len(runes) {
		end := start + maxChunkRunes
		if end >= len(runes) {
			splits = append(splits, Chunk{Section: chunk.Section, Text: string(runes[start:])})
			break
		}

		window := string(runes[start:end])
		cut := end
		if idx := strings.LastIndex(window, "\n\n"); idx != -1 {
			cut = start + utf8.RuneCountInString(window[:idx]) + 2
		} else if idx := strings.LastIndex(window, "\n"); idx != -1 {
			cut = start + utf8.RuneCountInString(window[:idx]) + 1
		} else if idx := strings.LastIndex(window, ". "); idx != -1 {
			cut = start + utf8.RuneCountInString(window[:idx]) + 2
		}

		splits = append(splits, Chunk{Section: chunk.Section, Text: string(runes[start:cut])})
		start = cut
	}
	return splits
}
