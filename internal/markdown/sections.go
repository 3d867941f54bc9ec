// Package markdown splits markdown documents into header-scoped sections.
package markdown

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"go.abhg.dev/goldmark/toc"
)

// Section is the text between one H1/H2 heading and the next.
type Section struct {
	Index      int    // Position in document (0, 1, 2...)
	HeaderPath string // Hierarchy: "# Doc Title > ## Section Name"
	Title      string // Heading text, empty for the preamble
	Level      int    // Heading level, 0 for the preamble
	Content    string // Section markdown including its heading line
}

// Splitter splits markdown at H1 and H2 boundaries.
type Splitter struct {
	parser goldmark.Markdown
}

// NewSplitter creates a splitter configured with the goldmark parser.
func NewSplitter() *Splitter {
	md := goldmark.New(
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
	)
	return &Splitter{
		parser: md,
	}
}

// heading is a flattened TOC entry.
type heading struct {
	path  []pathSegment
	node  *ast.Heading
	start int
}

type pathSegment struct {
	level int
	title string
}

// Split returns the document's sections in order. Text before the first
// heading becomes a preamble section with an empty HeaderPath. A document
// without headings is a single preamble section. Whitespace-only sections
// are dropped.
func (s *Splitter) Split(source []byte) ([]Section, error) {
	reader := text.NewReader(source)
	doc := s.parser.Parser().Parse(reader)

	tree, err := toc.Inspect(doc, source,
		toc.MinDepth(1),
		toc.MaxDepth(2),
		toc.Compact(true),
	)
	if err != nil {
		return nil, fmt.Errorf("inspect TOC: %w", err)
	}

	var headings []heading
	flatten(doc, source, tree.Items, nil, &headings)

	var sections []Section
	add := func(sec Section) {
		if strings.TrimSpace(sec.Content) == "" {
			return
		}
		sec.Index = len(sections)
		sections = append(sections, sec)
	}

	end := len(source)
	if len(headings) > 0 {
		end = headings[0].start
	}
	add(Section{Content: extractContent(source, 0, end)})

	for i, h := range headings {
		end := len(source)
		if i+1 < len(headings) {
			end = headings[i+1].start
		}
		last := h.path[len(h.path)-1]
		add(Section{
			HeaderPath: formatHeaderPath(h.path),
			Title:      last.title,
			Level:      last.level,
			Content:    extractContent(source, h.start, end),
		})
	}

	return sections, nil
}

// Title returns the text of the first H1 heading, or "".
func Title(sections []Section) string {
	for _, sec := range sections {
		if sec.Level == 1 {
			return sec.Title
		}
	}
	return ""
}

// flatten walks TOC items depth-first, which is document order, resolving
// each item to its heading node.
func flatten(doc ast.Node, source []byte, items toc.Items, ancestors []pathSegment, out *[]heading) {
	for _, item := range items {
		node := findHeaderByID(doc, string(item.ID))
		path := ancestors
		if node != nil && node.Lines().Len() > 0 {
			path = append(append([]pathSegment(nil), ancestors...), pathSegment{
				level: node.Level,
				title: string(item.Title),
			})
			*out = append(*out, heading{
				path:  path,
				node:  node,
				start: lineStart(source, node.Lines().At(0).Start),
			})
		}
		if len(item.Items) > 0 {
			flatten(doc, source, item.Items, path, out)
		}
	}
}

// formatHeaderPath builds a header hierarchy string.
// Example: [{1 Installation} {2 Prerequisites}] -> "# Installation > ## Prerequisites"
func formatHeaderPath(path []pathSegment) string {
	parts := make([]string, 0, len(path))
	for _, seg := range path {
		parts = append(parts, fmt.Sprintf("%s %s", strings.Repeat("#", seg.level), seg.title))
	}
	return strings.Join(parts, " > ")
}

// findHeaderByID locates a heading node by its auto-generated ID.
func findHeaderByID(node ast.Node, id string) *ast.Heading {
	var found *ast.Heading
	ast.Walk(node, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if entering && n.Kind() == ast.KindHeading {
			heading := n.(*ast.Heading)
			headingID, ok := heading.AttributeString("id")
			if ok && string(headingID.([]byte)) == id {
				found = heading
				return ast.WalkStop, nil
			}
		}
		return ast.WalkContinue, nil
	})
	return found
}

// lineStart moves pos back to the start of its line so ATX markers are kept.
func lineStart(source []byte, pos int) int {
	if i := bytes.LastIndexByte(source[:pos], '\n'); i >= 0 {
		return i + 1
	}
	return 0
}

func extractContent(source []byte, start, end int) string {
	if start >= end {
		return ""
	}
	return strings.TrimSpace(string(source[start:end]))
}
