package domain

// Document is a reference passage from the yoga corpus.
// Immutable from this system's perspective; supplied by the retrieval collaborator.
type Document struct {
	Content string
	Title   string
	URL     string
}

// ScoredDocument pairs a document with its lexical re-rank score.
// Derived transiently during ranking; never persisted.
type ScoredDocument struct {
	Document Document
	Score    int
}
