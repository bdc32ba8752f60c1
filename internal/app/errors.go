package app

import "errors"

// Sentinel errors the HTTP layer maps to statuses. Wrap them with context
// where it helps diagnostics; match with errors.Is.
var (
	ErrInvalidRequest        = errors.New("invalid request")
	ErrRateLimited           = errors.New("rate limit exceeded")
	ErrProviderNotConfigured = errors.New("provider not configured")
	ErrNotFound              = errors.New("not found")
)
