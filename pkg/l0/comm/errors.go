package comm

import (
	"errors"
	"fmt"
)

var (
	// ErrPayloadLength indicates a payload which can't be framed:
	// empty or not shorter than MaxPayload.
	ErrPayloadLength = errors.New("payload length out of range")
)

// TransmitError wraps a failure of the transmit primitive with the
// part of the frame being written.
type TransmitError struct {
	Part string
	Err  error
}

// Error implements error.
func (e *TransmitError) Error() string {
	return fmt.Sprintf("transmit %s: %v", e.Part, e.Err)
}

// Unwrap returns the underlying error.
func (e *TransmitError) Unwrap() error {
	return e.Err
}
