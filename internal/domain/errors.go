package domain

import "errors"

var (
	// ErrQuotaExhausted signals that the identity spent its daily question quota.
	ErrQuotaExhausted = errors.New("daily quota exhausted")
	// ErrIndexNotReady signals that the corpus index has not been built yet.
	ErrIndexNotReady = errors.New("corpus index not ready")
	// ErrGenerationFailed signals a generation provider failure.
	ErrGenerationFailed = errors.New("generation failed")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrInvalidCredentials signals a failed login attempt.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrSessionNotFound signals a missing chat session.
	ErrSessionNotFound = errors.New("session not found")
	// ErrEmptyQuestion signals a blank chat turn.
	ErrEmptyQuestion = errors.New("empty question")
)
