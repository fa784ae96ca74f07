package port

import "context"

// DocumentLoader extracts plain text from a source document.
type DocumentLoader interface {
	// Load returns the extracted text and the page count.
	Load(ctx context.Context, path string) (string, int, error)
}
