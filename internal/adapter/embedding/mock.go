package embedding

import "context"

// MockEmbedder produces deterministic embeddings derived from the text
// content. Useful for tests and offline runs.
type MockEmbedder struct {
	dimension int

	// Calls counts Embed invocations, so tests can assert that cache hits
	// skip embedding entirely.
	Calls int
}

// NewMockEmbedder returns a deterministic embedder with the given dimension.
func NewMockEmbedder(dimension int) *MockEmbedder {
	return &MockEmbedder{dimension: dimension}
}

func (e *MockEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	e.Calls++

	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		vec := make([]float32, e.dimension)
		for j, r := range text {
			if j >= e.dimension {
				break
			}
			vec[j] = float32(r) / 1000.0
		}
		embeddings[i] = vec
	}
	return embeddings, nil
}

func (e *MockEmbedder) Dimension() int {
	return e.dimension
}

func (e *MockEmbedder) ModelName() string {
	return "mock"
}
