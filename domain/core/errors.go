package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Model transport errors (one logical call to a provider)
	ErrTimeout           = errors.New("model call timed out")
	ErrProviderRejected  = errors.New("provider rejected request")
	ErrMalformedResponse = errors.New("malformed model response")
	ErrTransientNetwork  = errors.New("transient network error")

	// Stage errors (fatal for the run)
	ErrGenerationFailed       = errors.New("idea generation failed")
	ErrInsufficientCandidates = errors.New("insufficient idea candidates")
	ErrRefinementFailed       = errors.New("plan refinement failed")
	ErrEvaluationFailed       = errors.New("plan evaluation produced no scorecards")

	// Pipeline errors
	ErrRunTimeout      = errors.New("run timed out")
	ErrProfileNotFound = errors.New("user profile not found")
)

// Error constructors with context
func NewMalformedResponseError(role string, reason string) error {
	return fmt.Errorf("%w: %s: %s", ErrMalformedResponse, role, reason)
}

func NewProviderRejectedError(provider string, status int, body string) error {
	return fmt.Errorf("%w: %s returned status %d: %s", ErrProviderRejected, provider, status, body)
}

func NewTransientNetworkError(provider string, cause error) error {
	return fmt.Errorf("%w: %s: %v", ErrTransientNetwork, provider, cause)
}

// IsRetryable reports whether a model error may be retried against the
// same provider. ProviderRejected and MalformedResponse are not: repeating
// the identical request cannot change the outcome there.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTimeout) || errors.Is(err, ErrTransientNetwork)
}

// IsModelError reports whether err belongs to the model transport taxonomy.
func IsModelError(err error) bool {
	return errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrProviderRejected) ||
		errors.Is(err, ErrMalformedResponse) ||
		errors.Is(err, ErrTransientNetwork)
}

// IsFatalStageError reports whether err aborts the whole run.
func IsFatalStageError(err error) bool {
	return errors.Is(err, ErrGenerationFailed) ||
		errors.Is(err, ErrRefinementFailed) ||
		errors.Is(err, ErrEvaluationFailed) ||
		errors.Is(err, ErrRunTimeout)
}
