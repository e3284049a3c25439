package provider

import (
	"context"
	"errors"
	"net"

	"ai-content-orchestrator/internal/domain/model"
	"ai-content-orchestrator/internal/domain/ports/adapter"
)

// classifyStatus maps an HTTP status code to a retry class. 429 is
// rate-limited, 408 and 5xx are transient, every other 4xx is permanent.
func classifyStatus(code int) model.ErrorClass {
	switch {
	case code == 429:
		return model.ErrorClassRateLimited
	case code == 408 || code >= 500:
		return model.ErrorClassTransient
	default:
		return model.ErrorClassPermanent
	}
}

// classify extracts the retry class from an error. Provider adapters wrap
// their failures in *adapter.ProviderError; anything unclassified is
// treated as transient except caller-side context errors, which must not
// be retried.
func classify(err error) model.ErrorClass {
	var pe *adapter.ProviderError
	if errors.As(err, &pe) {
		return pe.Class
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return model.ErrorClassPermanent
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return model.ErrorClassTransient
	}
	return model.ErrorClassTransient
}

// billedUsage pulls any usage that was still charged out of a failed call.
func billedUsage(err error) adapter.Usage {
	var pe *adapter.ProviderError
	if errors.As(err, &pe) {
		return pe.Usage
	}
	return adapter.Usage{}
}
