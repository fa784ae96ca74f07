package chunker

import (
	"fmt"
	"strings"

	"docchat/internal/domain"
)

// WindowChunker splits text into fixed-size overlapping character windows.
type WindowChunker struct {
	size    int
	overlap int
}

// New validates the window parameters and returns a chunker. The window must
// advance on every step, so overlap has to be strictly smaller than size.
func New(size, overlap int) (*WindowChunker, error) {
	if size <= 0 {
		return nil, &domain.ConfigError{Reason: fmt.Sprintf("chunk size must be positive, got %d", size)}
	}
	if overlap < 0 {
		return nil, &domain.ConfigError{Reason: fmt.Sprintf("overlap cannot be negative, got %d", overlap)}
	}
	if overlap >= size {
		return nil, &domain.ConfigError{Reason: fmt.Sprintf("overlap %d must be smaller than chunk size %d", overlap, size)}
	}
	return &WindowChunker{size: size, overlap: overlap}, nil
}

// Split returns the ordered chunk sequence for the text. Windows are taken in
// characters (runes), trimmed of surrounding whitespace, and dropped when
// empty. The last chunk may be shorter than the nominal size. Empty input
// yields an empty sequence.
func (c *WindowChunker) Split(text string) []string {
	runes := []rune(text)
	step := c.size - c.overlap

	var chunks []string
	for start := 0; start < len(runes); start += step {
		end := start + c.size
		if end > len(runes) {
			end = len(runes)
		}
		chunk := strings.TrimSpace(string(runes[start:end]))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
	}
	return chunks
}

// Size returns the configured window size in characters.
func (c *WindowChunker) Size() int { return c.size }

// Overlap returns the configured overlap in characters.
func (c *WindowChunker) Overlap() int { return c.overlap }
