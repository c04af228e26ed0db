package llms

import (
	"context"
	"net"
	"net/http"

	"github.com/cockroachdb/errors"
)

var (
	// ErrNetwork is the kind of errors caused by the transport:
	// connection failures, timeouts, throttling and 5xx responses.
	ErrNetwork = errors.New("network failure")
	// ErrAuthentication is the kind of errors caused by a rejected API key.
	ErrAuthentication = errors.New("authentication failure")
	// ErrProvider is the kind of errors caused by an unexpected or malformed provider response.
	ErrProvider = errors.New("provider error")
	// ErrEmptyConversation is returned when the request has no conversation turns.
	ErrEmptyConversation = errors.New("conversation is empty")
)

// Error kinds as reported by ErrorKind
const (
	KindNetwork        = "network"
	KindAuthentication = "authentication"
	KindProvider       = "provider"
	KindUnknown        = "unknown"
)

// ErrorKind returns the kind of the error,
// one of `network`, `authentication`, `provider` or `unknown`.
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, ErrNetwork):
		return KindNetwork
	case errors.Is(err, ErrAuthentication):
		return KindAuthentication
	case errors.Is(err, ErrProvider), errors.Is(err, ErrEmptyConversation):
		return KindProvider
	}
	return KindUnknown
}

// MarkStatus marks the error with the kind derived from the HTTP status code.
func MarkStatus(err error, status int) error {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return errors.Mark(err, ErrAuthentication)
	case status == http.StatusTooManyRequests || status == http.StatusRequestTimeout || status >= http.StatusInternalServerError:
		return errors.Mark(err, ErrNetwork)
	}
	return errors.Mark(err, ErrProvider)
}

// MarkTransport marks an error that carries no HTTP status:
// context deadlines and net errors are network failures,
// anything else is a provider error.
func MarkTransport(err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled) ||
		errors.As(err, &netErr) {
		return errors.Mark(err, ErrNetwork)
	}
	return errors.Mark(err, ErrProvider)
}
