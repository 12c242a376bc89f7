// Package chunker splits normalized document text into bounded, overlapping
// segments along sentence boundaries. Chunks are the retrieval unit for the
// knowledge base: each one is embedded and stored independently.
package chunker

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// ErrInvalidConfig indicates invalid chunking parameters.
var ErrInvalidConfig = errors.New("invalid chunker configuration")

// Chunk is one bounded segment of a document.
type Chunk struct {
	Content    string // Segment text
	Index      int    // Position in document (0, 1, 2...)
	CharLength int    // len(Content)
	WordCount  int    // Whitespace-separated word count
}

// Chunker accumulates sentences greedily up to a size limit and seeds each
// new chunk with the trailing overlap characters of the previous one.
type Chunker struct {
	size    int
	overlap int
}

// New creates a Chunker. overlap must be positive and strictly smaller
// than size, otherwise ErrInvalidConfig is returned.
func New(size, overlap int) (*Chunker, error) {
	if size <= 0 || overlap <= 0 || overlap >= size {
		return nil, fmt.Errorf("%w: size=%d overlap=%d", ErrInvalidConfig, size, overlap)
	}
	return &Chunker{size: size, overlap: overlap}, nil
}

// Chunk splits text into overlapping segments. Sentences are never split:
// a single sentence longer than the chunk size becomes its own oversized
// chunk. Empty input yields no chunks. The overlap seed is a raw trailing
// character slice of the previous buffer, not sentence-aligned, so a chunk
// may begin mid-word.
func (c *Chunker) Chunk(text string) []Chunk {
	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return nil
	}

	var chunks []Chunk
	var current string

	for _, sentence := range sentences {
		switch {
		case current != "" && len(current)+len(sentence) > c.size:
			chunks = append(chunks, newChunk(current, len(chunks)))
			current = tail(current, c.overlap) + " " + sentence
		case current == "":
			current = sentence
		default:
			current += " " + sentence
		}
	}

	if strings.TrimSpace(current) != "" {
		chunks = append(chunks, newChunk(current, len(chunks)))
	}

	return chunks
}

func newChunk(buf string, index int) Chunk {
	content := strings.TrimSpace(buf)
	return Chunk{
		Content:    content,
		Index:      index,
		CharLength: len(content),
		WordCount:  len(strings.Fields(content)),
	}
}

// tail returns the last n bytes of s, advanced to a rune boundary so the
// overlap never slices through a multi-byte character.
func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	i := len(s) - n
	for i < len(s) && !utf8.RuneStart(s[i]) {
		i++
	}
	return s[i:]
}

// splitSentences splits text into sentence-like units at '.', '!' or '?'
// followed by whitespace. Text without terminal punctuation is a single
// sentence.
func splitSentences(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	var sentences []string
	start := 0
	for i := 0; i < len(text)-1; i++ {
		if !isTerminator(text[i]) || !isSpace(text[i+1]) {
			continue
		}
		if s := strings.TrimSpace(text[start : i+1]); s != "" {
			sentences = append(sentences, s)
		}
		j := i + 1
		for j < len(text) && isSpace(text[j]) {
			j++
		}
		start = j
		i = j - 1
	}
	if start < len(text) {
		if s := strings.TrimSpace(text[start:]); s != "" {
			sentences = append(sentences, s)
		}
	}
	return sentences
}

func isTerminator(b byte) bool {
	return b == '.' || b == '!' || b == '?'
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}
