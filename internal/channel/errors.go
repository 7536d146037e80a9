package channel

import (
	"errors"
	"fmt"
)

// ErrShutdown is reported to pending replies when the pipe closes.
var ErrShutdown = errors.New("channel: shut down")

// ErrFrameTooLarge is returned by ReadFrame for a body over MaxFrameSize.
var ErrFrameTooLarge = errors.New("channel: frame too large")

// RemoteError is an error reported by the host in a reply envelope.
type RemoteError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RemoteError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("host error %d: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("host error: %s", e.Message)
}
