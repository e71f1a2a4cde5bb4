package comm

import "time"

// Timeouts handed to the transmit primitive.
const (
	HeaderTimeout  = 50 * time.Millisecond
	PayloadTimeout = 200 * time.Millisecond
)

// Transmitter is the blocking transmit primitive of the platform. It
// returns once p is fully written or the timeout expired.
type Transmitter interface {
	Transmit(p []byte, timeout time.Duration) error
}

// TransmitFunc is the func form of Transmitter.
type TransmitFunc func(p []byte, timeout time.Duration) error

// Transmit implements Transmitter.
func (f TransmitFunc) Transmit(p []byte, timeout time.Duration) error {
	return f(p, timeout)
}

// Emitter frames responses and writes them through a Transmitter.
// It is owned by the main loop.
type Emitter struct {
	Transmitter Transmitter
	Observer    Observer

	scratch [MaxPayload + 2]byte
}

// NewEmitter creates an Emitter.
func NewEmitter(tx Transmitter) *Emitter {
	return &Emitter{Transmitter: tx}
}

// Send emits resp as one frame: start marker, length, payload and
// checksum, each as one blocking transmit. A response which doesn't fit
// in a frame is not sent and ErrPayloadLength is returned. Nothing is
// retried; the first transmit error aborts the frame.
func (e *Emitter) Send(resp string) error {
	err := e.send(resp)
	if o := e.Observer; o != nil {
		if err != nil {
			o.SendFailed(err)
		} else {
			o.FrameSent(len(resp))
		}
	}
	return err
}

func (e *Emitter) send(resp string) error {
	if !ValidPayloadLength(len(resp)) {
		return ErrPayloadLength
	}
	// scratch layout: [start][length][payload...][checksum]
	n := copy(e.scratch[2:], resp)
	payload := e.scratch[2 : 2+n]
	e.scratch[0], e.scratch[1] = FrameStart, byte(n)
	e.scratch[2+n] = Checksum(payload)

	if err := e.Transmitter.Transmit(e.scratch[0:1], HeaderTimeout); err != nil {
		return &TransmitError{Part: "start", Err: err}
	}
	if err := e.Transmitter.Transmit(e.scratch[1:2], HeaderTimeout); err != nil {
		return &TransmitError{Part: "length", Err: err}
	}
	if err := e.Transmitter.Transmit(payload, PayloadTimeout); err != nil {
		return &TransmitError{Part: "payload", Err: err}
	}
	if err := e.Transmitter.Transmit(e.scratch[2+n:3+n], HeaderTimeout); err != nil {
		return &TransmitError{Part: "checksum", Err: err}
	}
	return nil
}
