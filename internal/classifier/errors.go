package classifier

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"google.golang.org/api/googleapi"
)

// ErrorKind tags provider failures so the retry policy never has to inspect
// any particular SDK's error hierarchy.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindTimeout
	KindRateLimited
	KindTransport
	KindServer
	KindAuth
	KindInvalidRequest
	KindSchemaRejected
	KindEmptyResponse
)

func (k ErrorKind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindRateLimited:
		return "rate_limited"
	case KindTransport:
		return "transport"
	case KindServer:
		return "server"
	case KindAuth:
		return "auth"
	case KindInvalidRequest:
		return "invalid_request"
	case KindSchemaRejected:
		return "schema_rejected"
	case KindEmptyResponse:
		return "empty_response"
	}
	return "unknown"
}

// Retryable reports whether a fresh attempt can plausibly succeed. Auth,
// validation and other client errors fail the same way every time; timeouts,
// rate limits, transport drops and provider 5xx are worth retrying.
func (k ErrorKind) Retryable() bool {
	switch k {
	case KindTimeout, KindRateLimited, KindTransport, KindServer, KindEmptyResponse:
		return true
	}
	return false
}

// ProviderError wraps a provider failure with its kind.
type ProviderError struct {
	Kind ErrorKind
	Err  error
}

func (e *ProviderError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("provider error (%s)", e.Kind)
	}
	return fmt.Sprintf("provider error (%s): %v", e.Kind, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// KindOf maps an arbitrary error from the provider call path onto the
// taxonomy. Already-tagged errors keep their kind.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindUnknown
	}

	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Kind
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	if errors.Is(err, context.Canceled) {
		return KindUnknown
	}

	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch {
		case gerr.Code == http.StatusTooManyRequests:
			return KindRateLimited
		case gerr.Code == http.StatusUnauthorized, gerr.Code == http.StatusForbidden:
			return KindAuth
		case gerr.Code >= 500:
			return KindServer
		case gerr.Code >= 400:
			return KindInvalidRequest
		}
		return KindUnknown
	}

	var nerr net.Error
	if errors.As(err, &nerr) {
		if nerr.Timeout() {
			return KindTimeout
		}
		return KindTransport
	}

	return KindUnknown
}
