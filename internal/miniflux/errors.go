package miniflux

import (
	"errors"
	"fmt"
)

// Kind classifies an API failure. Callers switch on the kind instead of
// inspecting status codes or transport errors.
type Kind int

// Failure kinds, from most to least retryable.
const (
	// KindTransient covers timeouts, connection failures, and 5xx
	// responses. The operation may succeed if re-triggered.
	KindTransient Kind = iota + 1
	// KindNotFound is a 404 or otherwise missing resource.
	KindNotFound
	// KindAuth is a 401/403: bad or missing credentials.
	KindAuth
	// KindAPI is any other 4xx or a malformed payload.
	KindAPI
)

func (k Kind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindNotFound:
		return "not found"
	case KindAuth:
		return "auth"
	case KindAPI:
		return "api"
	default:
		return "unknown"
	}
}

// Error is a classified Miniflux API failure.
type Error struct {
	Kind    Kind
	Op      string
	Status  int
	Message string
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("miniflux %s: %s (status %d): %s", e.Op, e.Kind, e.Status, e.Message)
	}
	return fmt.Sprintf("miniflux %s: %s: %s", e.Op, e.Kind, e.Message)
}

// KindOf extracts the failure kind from err, or 0 when err is not a
// Miniflux API error.
func KindOf(err error) Kind {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return 0
}

func classifyStatus(status int) Kind {
	switch {
	case status >= 500:
		return KindTransient
	case status == 404:
		return KindNotFound
	case status == 401 || status == 403:
		return KindAuth
	default:
		return KindAPI
	}
}
