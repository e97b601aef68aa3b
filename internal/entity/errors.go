package entity

import "errors"

// Domain errors
var (
	// Upload errors
	ErrNoFile          = errors.New("no file uploaded")
	ErrUnsupportedFile = errors.New("unsupported file format")
	ErrFileTooLarge    = errors.New("file too large")
	ErrFileNotFound    = errors.New("file not found")
	ErrCSVUnreadable   = errors.New("CSV empty or unreadable")

	// Generation errors
	ErrProvidersExhausted    = errors.New("all generation providers failed")
	ErrProviderNotConfigured = errors.New("generation provider not configured")
	ErrEmbeddingUnsupported  = errors.New("provider does not support embeddings")
	ErrEmptyCompletion       = errors.New("empty completion")

	// Orchestration errors
	ErrInvalidTransition = errors.New("invalid transition")
	ErrUnknownNode       = errors.New("unknown node")

	// Export errors
	ErrUnknownFormat = errors.New("unsupported export format")

	// Validation errors
	ErrMissingField  = errors.New("required field is missing")
	ErrInvalidFormat = errors.New("invalid format")
)
