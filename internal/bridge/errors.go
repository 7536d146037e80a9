package bridge

import (
	"errors"
	"fmt"
)

var (
	// ErrClosed is returned once the bridge loop has stopped.
	ErrClosed = errors.New("bridge closed")

	// ErrSend marks a command that never reached the host, or that the host
	// answered with a transport-level error.
	ErrSend = errors.New("send failed")

	// ErrInterceptor marks a failure raised by the installed interceptor.
	// A failing interceptor never counts as "not intercepted".
	ErrInterceptor = errors.New("interceptor failed")
)

// HostError is a reply the host produced that the bridge could not interpret.
type HostError struct {
	// Method is the host method that was called.
	Method string

	// Message describes what was wrong with the reply.
	Message string
}

func (e *HostError) Error() string {
	return fmt.Sprintf("host %s: %s", e.Method, e.Message)
}

// IsSendError reports whether err (or anything it wraps) is a send failure.
func IsSendError(err error) bool {
	return errors.Is(err, ErrSend)
}

// sendError wraps a channel error for method.
func sendError(method string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrSend, method, err)
}

// interceptorError wraps an interceptor failure for action.
func interceptorError(action string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrInterceptor, action, err)
}
