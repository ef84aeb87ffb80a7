package domain

import "context"

// Retriever is the nearest-neighbor provider over the yoga corpus.
// Result order reflects the provider's own relevance notion and is not
// trusted as final; the re-ranker decides what survives.
type Retriever interface {
	SimilaritySearch(ctx context.Context, query string, k int) ([]Document, error)
}

// Generator is the hosted generative-language model. One blocking call per
// turn, no streaming, no retries.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}
