package domain

import "errors"

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("duplicate")

	// ErrClassificationUnavailable means not even the fallback campaign could be assigned.
	ErrClassificationUnavailable = errors.New("classification unavailable")
	// ErrEmbeddingUnavailable means the embedding service could not be reached.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")
)
