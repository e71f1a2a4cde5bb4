package device

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/golang/glog"

	fx "github.com/robotalks/framelink/pkg/framework"
	"github.com/robotalks/framelink/pkg/l0/comm"
)

var (
	// ErrAlreadyArmed indicates Arm was called while a previous request
	// is still pending.
	ErrAlreadyArmed = errors.New("receiver already armed")
)

// Receiver delivers received bytes one at a time. Each Arm requests a
// single delivery; fn must arm again to keep receiving. fn runs in the
// receiving context, not in the main loop.
type Receiver interface {
	Arm(fn func(byte)) error
}

// Platform is what the firmware needs from the board.
type Platform interface {
	Receiver
	comm.Transmitter
}

type writeDeadliner interface {
	SetWriteDeadline(time.Time) error
}

// StreamPlatform implements Platform on top of a byte stream such as a
// serial port, a TCP connection or a websocket.
type StreamPlatform struct {
	Stream io.ReadWriter

	armCh chan func(byte)
}

// NewStreamPlatform creates a StreamPlatform.
func NewStreamPlatform(stream io.ReadWriter) *StreamPlatform {
	return &StreamPlatform{
		Stream: stream,
		armCh:  make(chan func(byte), 1),
	}
}

// Arm implements Receiver.
func (p *StreamPlatform) Arm(fn func(byte)) error {
	select {
	case p.armCh <- fn:
		return nil
	default:
		return ErrAlreadyArmed
	}
}

// Transmit implements comm.Transmitter. The timeout is applied as a
// write deadline when the stream supports it.
func (p *StreamPlatform) Transmit(data []byte, timeout time.Duration) error {
	if d, ok := p.Stream.(writeDeadliner); ok && timeout > 0 {
		if err := d.SetWriteDeadline(time.Now().Add(timeout)); err != nil {
			return err
		}
		defer d.SetWriteDeadline(time.Time{})
	}
	for len(data) > 0 {
		n, err := p.Stream.Write(data)
		if err != nil {
			return err
		}
		data = data[n:]
	}
	return nil
}

// Run implements Runnable. It is the receiving context: bytes read from
// the stream are delivered to the armed callback. Reading pauses while
// nobody is armed.
func (p *StreamPlatform) Run(ctx context.Context) error {
	if closer, ok := p.Stream.(io.Closer); ok {
		return fx.RunWithContextCloser(ctx, closer, func() error {
			return p.receive(ctx)
		})
	}
	return fx.RunWithContext(ctx, func() error {
		return p.receive(ctx)
	})
}

func (p *StreamPlatform) receive(ctx context.Context) error {
	buf := make([]byte, 64)
	for {
		n, err := p.Stream.Read(buf)
		for _, b := range buf[:n] {
			var fn func(byte)
			select {
			case fn = <-p.armCh:
			case <-ctx.Done():
				return ctx.Err()
			}
			fn(b)
		}
		if err != nil {
			if err == io.EOF {
				glog.Info("stream closed by peer")
			}
			return err
		}
	}
}
