package skill

import (
	"bytes"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
)

// The parser configuration never changes and goldmark parsers are safe to
// share; each Parse call creates its own state.
var (
	markdownOnce     sync.Once
	markdownInstance goldmark.Markdown
	previewPolicy    *bluemonday.Policy
)

func markdown() goldmark.Markdown {
	markdownOnce.Do(func() {
		markdownInstance = goldmark.New(goldmark.WithExtensions(extension.GFM))
		previewPolicy = bluemonday.UGCPolicy()
	})
	return markdownInstance
}

// section is one "## Name" heading of a skill document.
type section struct {
	name      string
	lineStart int // offset of the heading line
	bodyStart int // offset just past the heading line
}

// parseSections returns the top-level ATX level-2 headings of source in
// document order. Setext headings and headings inside code blocks, lists or
// quotes are not sections.
func parseSections(source []byte) []section {
	doc := markdown().Parser().Parse(text.NewReader(source))

	var sections []section
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		heading, ok := n.(*ast.Heading)
		if !ok || heading.Level != 2 {
			continue
		}
		lines := heading.Lines()
		if lines.Len() == 0 {
			continue
		}

		first := lines.At(0)
		last := lines.At(lines.Len() - 1)
		start := lineStart(source, first.Start)
		if !bytes.HasPrefix(source[start:], []byte("##")) {
			continue
		}

		var name strings.Builder
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			name.Write(seg.Value(source))
		}

		sections = append(sections, section{
			name:      strings.TrimSpace(name.String()),
			lineStart: start,
			bodyStart: lineEnd(source, last.Stop),
		})
	}
	return sections
}

func lineStart(source []byte, offset int) int {
	if i := bytes.LastIndexByte(source[:offset], '\n'); i >= 0 {
		return i + 1
	}
	return 0
}

func lineEnd(source []byte, offset int) int {
	if i := bytes.IndexByte(source[offset:], '\n'); i >= 0 {
		return offset + i + 1
	}
	return len(source)
}

// withoutCodeBlocks returns source with every line of a fenced or indented
// code block removed.
func withoutCodeBlocks(source []byte) []byte {
	doc := markdown().Parser().Parse(text.NewReader(source))

	var drop [][2]int
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch n.Kind() {
		case ast.KindFencedCodeBlock, ast.KindCodeBlock:
			lines := n.Lines()
			for i := 0; i < lines.Len(); i++ {
				seg := lines.At(i)
				drop = append(drop, [2]int{lineStart(source, seg.Start), lineEnd(source, seg.Start)})
			}
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	if len(drop) == 0 {
		return source
	}

	out := make([]byte, 0, len(source))
	pos := 0
	for _, r := range drop {
		if r[0] < pos {
			continue
		}
		out = append(out, source[pos:r[0]]...)
		pos = r[1]
	}
	return append(out, source[pos:]...)
}

// SectionNames returns the level-2 section names of content in order.
func SectionNames(content string) []string {
	sections := parseSections([]byte(content))
	names := make([]string, 0, len(sections))
	for _, s := range sections {
		names = append(names, s.name)
	}
	return names
}

// HasSection reports whether content has a "## name" heading. The match is
// case-insensitive.
func HasSection(content, name string) bool {
	for _, s := range parseSections([]byte(content)) {
		if strings.EqualFold(s.name, name) {
			return true
		}
	}
	return false
}

// SectionBody returns the trimmed text between the "## name" heading and the
// next level-2 heading, or "" when the section is missing.
func SectionBody(content, name string) string {
	source := []byte(content)
	sections := parseSections(source)
	for i, s := range sections {
		if !strings.EqualFold(s.name, name) {
			continue
		}
		end := len(source)
		if i+1 < len(sections) {
			end = sections[i+1].lineStart
		}
		if s.bodyStart >= end {
			return ""
		}
		return strings.TrimSpace(string(source[s.bodyStart:end]))
	}
	return ""
}

// RenderPreview renders a skill document to sanitized HTML for review
// screens.
func RenderPreview(content string) (string, error) {
	md := markdown()
	var buf bytes.Buffer
	if err := md.Convert([]byte(content), &buf); err != nil {
		return "", err
	}
	return string(previewPolicy.SanitizeBytes(buf.Bytes())), nil
}
