package domain

import "errors"

// Domain errors - used across all layers
var (
	// ErrNotFound indicates the requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates the input is invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnauthorized indicates authentication failed or missing
	ErrUnauthorized = errors.New("unauthorized")

	// ErrInvalidCredentials indicates a wrong password
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrTokenExpired indicates the API token has expired
	ErrTokenExpired = errors.New("token expired")

	// ErrUnsupportedSource indicates no extractor handles the document type
	ErrUnsupportedSource = errors.New("unsupported source type")

	// ErrDownloadFailed indicates the document could not be fetched from the object store
	ErrDownloadFailed = errors.New("download failed")

	// ErrNoText indicates extraction produced no usable page text
	ErrNoText = errors.New("no text extracted")

	// ErrEmbeddingFailed indicates the embedding service rejected or failed a request
	ErrEmbeddingFailed = errors.New("embedding failed")

	// ErrPersistFailed indicates chunks could not be written to the store
	ErrPersistFailed = errors.New("persist failed")

	// ErrJobTimeout indicates a job ran past its deadline
	ErrJobTimeout = errors.New(JobTimeoutReason)

	// ErrServiceUnavailable indicates a backing service could not be reached
	ErrServiceUnavailable = errors.New("service unavailable")
)
