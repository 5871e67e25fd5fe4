package chunker

import (
	"strings"
	"unicode"

	"ragbot/internal/models"
)

const (
	defaultChunkSize    = 1000 // runes
	defaultChunkOverlap = 200  // runes
)

// Chunker splits text blocks into fixed-size windows that overlap by a fixed
// amount. Sizes are counted in runes.
type Chunker struct {
	size    int
	overlap int
}

func New(size, overlap int) *Chunker {
	if size <= 0 {
		size = defaultChunkSize
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		overlap = size / 2 // Reasonable default to avoid excessive overlap
	}
	return &Chunker{size: size, overlap: overlap}
}

func (c *Chunker) Size() int    { return c.size }
func (c *Chunker) Overlap() int { return c.overlap }

// Split chunks every block in order. Each chunk inherits its block's source.
func (c *Chunker) Split(blocks []models.TextBlock) []models.Chunk {
	var chunks []models.Chunk
	for _, block := range blocks {
		for i, content := range c.chunkContent(block.Content) {
			chunks = append(chunks, models.Chunk{
				Content: content,
				Source:  block.Source,
				Index:   i,
			})
		}
	}
	return chunks
}

// chunk content into windows of at most c.size runes, each starting c.overlap
// runes before the end of the previous one
func (c *Chunker) chunkContent(content string) []string {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil
	}

	runes := []rune(content)
	contentLen := len(runes)

	// If content is shorter than the window, return it as a single chunk
	if contentLen <= c.size {
		return []string{content}
	}

	var chunks []string
	start := 0
	for {
		end := min(start+c.size, contentLen)
		if end < contentLen {
			end = c.breakPoint(runes, start, end)
		}

		chunks = append(chunks, string(runes[start:end]))
		if end == contentLen {
			break
		}
		start = end - c.overlap
	}
	return chunks
}

// breakPoint picks where the window [start, end) should end. It prefers a
// paragraph break, then a sentence end, then whitespace, and falls back to a
// hard cut at end. Only the second half of the window is searched, and never
// the first overlap runes, so the next window start always moves forward.
func (c *Chunker) breakPoint(runes []rune, start, end int) int {
	lowest := max(start+c.size/2, start+c.overlap+1)
	if lowest >= end {
		return end
	}

	if i := lastParagraphBreak(runes, lowest, end); i > 0 {
		return i
	}
	if i := lastSentenceBreak(runes, lowest, end); i > 0 {
		return i
	}
	if i := lastWordBreak(runes, lowest, end); i > 0 {
		return i
	}
	return end
}

// each helper returns the index just past the separator, or -1

func lastParagraphBreak(runes []rune, lowest, end int) int {
	for i := end - 1; i >= lowest && i >= 1; i-- {
		if runes[i] == '\n' && runes[i-1] == '\n' {
			return i + 1
		}
	}
	return -1
}

func lastSentenceBreak(runes []rune, lowest, end int) int {
	for i := end - 1; i >= lowest && i >= 1; i-- {
		if runes[i] == '\n' {
			return i + 1
		}
		if unicode.IsSpace(runes[i]) && isSentenceEnd(runes[i-1]) {
			return i + 1
		}
	}
	return -1
}

func lastWordBreak(runes []rune, lowest, end int) int {
	for i := end - 1; i >= lowest; i-- {
		if unicode.IsSpace(runes[i]) {
			return i + 1
		}
	}
	return -1
}

func isSentenceEnd(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}
