package out

import "context"

// Embedder turns text into a dense vector. Callers truncate the text first.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
}
