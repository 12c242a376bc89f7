// Package extract converts raw document sources into normalized plain text
// ready for chunking. Markdown is flattened through a goldmark AST walk;
// everything else is treated as plain text.
package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// Normalize collapses whitespace runs into single spaces and strips
// characters outside words and retained punctuation. It is idempotent, so
// re-normalizing already-clean text is a no-op.
func Normalize(input string) string {
	var b strings.Builder
	b.Grow(len(input))

	lastSpace := false
	for _, r := range input {
		switch {
		case unicode.IsSpace(r):
			if !lastSpace {
				b.WriteByte(' ')
				lastSpace = true
			}
		case keepRune(r):
			b.WriteRune(r)
			lastSpace = false
		default:
			// Replaced, not dropped, so adjacent words stay separated.
			if !lastSpace {
				b.WriteByte(' ')
				lastSpace = true
			}
		}
	}

	return strings.TrimSpace(b.String())
}

// keepRune reports whether r survives normalization: letters, digits and
// the punctuation the chunker relies on for sentence splitting.
func keepRune(r rune) bool {
	if unicode.IsLetter(r) || unicode.IsDigit(r) {
		return true
	}
	switch r {
	case '.', ',', '!', '?', ';', ':', '-', '(', ')', '[', ']', '"', '\'':
		return true
	}
	return false
}

// FromMarkdown flattens markdown source to plain text by walking the parsed
// AST and collecting text segments. Block boundaries become newlines so
// headings and paragraphs do not run together.
func FromMarkdown(source []byte) (string, error) {
	md := goldmark.New()
	reader := text.NewReader(source)
	doc := md.Parser().Parse(reader)

	var b strings.Builder
	err := ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Text:
			b.Write(node.Segment.Value(source))
			if node.SoftLineBreak() || node.HardLineBreak() {
				b.WriteByte(' ')
			}
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			lines := n.Lines()
			for i := 0; i < lines.Len(); i++ {
				seg := lines.At(i)
				b.Write(seg.Value(source))
			}
		default:
			if n.Type() == ast.TypeBlock && b.Len() > 0 {
				b.WriteByte('\n')
			}
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return "", fmt.Errorf("walk markdown: %w", err)
	}

	return b.String(), nil
}

// FromFile reads a document from disk and returns its normalized text.
// Markdown files are flattened first; all other files are read as plain text.
func FromFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown":
		flat, err := FromMarkdown(data)
		if err != nil {
			return "", fmt.Errorf("extract %s: %w", path, err)
		}
		return Normalize(flat), nil
	default:
		return Normalize(string(data)), nil
	}
}
