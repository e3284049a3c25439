package adapter

import (
	"fmt"

	"ai-content-orchestrator/internal/domain/model"
)

// ProviderError wraps one failed provider call with its retry class and
// any usage that was still billed before the call failed.
type ProviderError struct {
	Provider string
	Class    model.ErrorClass
	Usage    Usage
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Provider, e.Class, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Retryable reports whether the class permits another attempt against the
// same provider. Permanent failures get exactly one attempt.
func (e *ProviderError) Retryable() bool {
	return e.Class == model.ErrorClassTransient || e.Class == model.ErrorClassRateLimited
}

// NewProviderError builds a classified provider failure.
func NewProviderError(provider string, class model.ErrorClass, err error) *ProviderError {
	return &ProviderError{Provider: provider, Class: class, Err: err}
}
