package domain

import "errors"

var (
	ErrNotFound             = errors.New("not found")
	ErrEmptyPrompt          = errors.New("prompt is required")
	ErrNoModelSelected      = errors.New("no model selected")
	ErrInsufficientCredits  = errors.New("insufficient credits")
	ErrSubmissionRejected   = errors.New("submission rejected")
	ErrProviderFailure      = errors.New("provider failure")
	ErrTaskNotRetryable     = errors.New("task is not in a terminal state")
	ErrReferenceLimit       = errors.New("reference limit reached")
	ErrUnsupportedMediaType = errors.New("unsupported media type")
	ErrFileTooLarge         = errors.New("file too large")

	// ErrProviderEntityNotFound marks the provider's "requested entity was
	// not found" rejection on the personal-key channel. Callers use it to
	// decide whether the stored key needs re-authentication.
	ErrProviderEntityNotFound = errors.New("provider entity not found")
)
