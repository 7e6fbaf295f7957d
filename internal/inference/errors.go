package inference

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// ErrorKind classifies hard gateway failures.
type ErrorKind int

const (
	// Unreachable covers connection and transport failures.
	Unreachable ErrorKind = iota + 1
	// Timeout means the call exceeded its deadline.
	Timeout
	// RemoteRejected means the service answered with a non-success status.
	RemoteRejected
)

func (k ErrorKind) String() string {
	switch k {
	case Unreachable:
		return "unreachable"
	case Timeout:
		return "timeout"
	case RemoteRejected:
		return "remote_rejected"
	default:
		return "unknown"
	}
}

// GatewayError is returned for transport or service failures. A reachable
// service that produced no usable text is not an error.
type GatewayError struct {
	Kind   ErrorKind
	Status int    // HTTP status for RemoteRejected
	Body   string // response body for RemoteRejected, truncated
	Err    error
}

func (e *GatewayError) Error() string {
	switch e.Kind {
	case RemoteRejected:
		return fmt.Sprintf("inference rejected (HTTP %d): %s", e.Status, e.Body)
	case Timeout:
		return fmt.Sprintf("inference timed out: %v", e.Err)
	default:
		return fmt.Sprintf("inference unreachable: %v", e.Err)
	}
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether err is a transient gateway failure: timeouts,
// transport errors other than caller cancellation, HTTP 429 and 5xx.
func IsRetryable(err error) bool {
	var gwErr *GatewayError
	if !errors.As(err, &gwErr) {
		return false
	}
	switch gwErr.Kind {
	case Timeout:
		return true
	case Unreachable:
		return !errors.Is(gwErr.Err, context.Canceled)
	case RemoteRejected:
		return gwErr.Status == http.StatusTooManyRequests || gwErr.Status >= 500
	}
	return false
}

// transportError classifies an error from executing an outbound request.
func transportError(err error) *GatewayError {
	if errors.Is(err, context.DeadlineExceeded) {
		return &GatewayError{Kind: Timeout, Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &GatewayError{Kind: Timeout, Err: err}
	}
	return &GatewayError{Kind: Unreachable, Err: err}
}

func rejected(status int, body string) *GatewayError {
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}
	return &GatewayError{Kind: RemoteRejected, Status: status, Body: body}
}
