package pipeline

import "errors"

var (
	// ErrInvalidMaxAttempts is returned when maxAttempts is <= 0
	ErrInvalidMaxAttempts = errors.New("maxAttempts must be greater than 0")

	// ErrTenantRequired is returned when an operation runs without a tenant scope.
	ErrTenantRequired = errors.New("tenant ID is required")

	// ErrVerificationFailed indicates an upserted vector could not be read
	// back from the index. Transient; the chunk is retried.
	ErrVerificationFailed = errors.New("upsert verification failed")

	// ErrMissingText indicates a record has no embeddable text.
	ErrMissingText = errors.New("record has no embeddable text")
)
