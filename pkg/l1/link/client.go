// Package link is the host side of the framed serial protocol.
package link

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang/glog"
	"golang.org/x/time/rate"

	fx "github.com/robotalks/framelink/pkg/framework"
	"github.com/robotalks/framelink/pkg/l0/comm"
	"github.com/robotalks/framelink/pkg/l0/dispatch"
)

const (
	// DefaultTimeout bounds the wait for one response.
	DefaultTimeout = 500 * time.Millisecond
	// DefaultRate limits commands per second so the device receive queue
	// is never flooded.
	DefaultRate = 50
	// DefaultBurst is the number of commands allowed back to back.
	DefaultBurst = 5
)

var (
	// ErrNoReply indicates the device didn't answer in time.
	ErrNoReply = errors.New("no reply")
	// ErrClosed indicates the stream ended.
	ErrClosed = errors.New("link closed")
)

// ResponseError is returned by the helpers when the device answered with
// something other than the success response.
type ResponseError struct {
	Command  string
	Response string
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("%s: device replied %s", e.Command, e.Response)
}

// Client sends commands over a stream and matches the responses. The
// protocol has no sequence numbers, so one command is in flight at a time
// and a response is only accepted if it belongs to the command family of
// the pending command.
type Client struct {
	Timeout time.Duration
	Limiter *rate.Limiter

	stream io.ReadWriter
	slot   chan struct{}

	lock    sync.Mutex
	pending *pendingCmd
	err     error
	done    chan struct{}

	stats     comm.Stats
	unmatched atomic.Uint64
}

type pendingCmd struct {
	expect   string
	resultCh chan result
}

type result struct {
	resp string
	err  error
}

// New creates a Client. Run must be started to receive responses.
func New(stream io.ReadWriter) *Client {
	return &Client{
		Timeout: DefaultTimeout,
		Limiter: rate.NewLimiter(rate.Limit(DefaultRate), DefaultBurst),
		stream:  stream,
		slot:    make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
}

// ResponsePrefix is the prefix every response to cmd starts with.
func ResponsePrefix(cmd string) string {
	switch dispatch.Parse([]byte(cmd)).Kind {
	case dispatch.KindPing:
		return "ACK:"
	case dispatch.KindLED:
		return "LED:"
	case dispatch.KindMotor:
		return "MOTOR:"
	}
	return dispatch.RespUnknown
}

// Run implements Runnable. It reads response frames until the stream
// fails or ctx is done.
func (c *Client) Run(ctx context.Context) error {
	var err error
	if closer, ok := c.stream.(io.Closer); ok {
		err = fx.RunWithContextCloser(ctx, closer, c.readLoop)
	} else {
		err = fx.RunWithContext(ctx, c.readLoop)
	}
	c.close(err)
	return err
}

// Done is closed when Run returns.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Exec sends a command and waits for the response.
func (c *Client) Exec(ctx context.Context, cmd string) (string, error) {
	frame, err := comm.EncodeFrame([]byte(cmd))
	if err != nil {
		return "", err
	}
	select {
	case c.slot <- struct{}{}:
	case <-ctx.Done():
		return "", ctx.Err()
	case <-c.done:
		return "", ErrClosed
	}
	defer func() { <-c.slot }()

	if lim := c.Limiter; lim != nil {
		if err := lim.Wait(ctx); err != nil {
			return "", err
		}
	}

	p := &pendingCmd{expect: ResponsePrefix(cmd), resultCh: make(chan result, 1)}
	c.lock.Lock()
	if c.err != nil {
		c.lock.Unlock()
		return "", ErrClosed
	}
	c.pending = p
	c.lock.Unlock()

	glog.V(2).Infof("SND %q", cmd)
	if _, err := c.stream.Write(frame); err != nil {
		c.abandon(p)
		c.stats.SendFailed(err)
		return "", err
	}
	c.stats.FrameSent(len(cmd))

	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case r := <-p.resultCh:
		return r.resp, r.err
	case <-timer.C:
		c.abandon(p)
		return "", ErrNoReply
	case <-ctx.Done():
		c.abandon(p)
		return "", ctx.Err()
	}
}

// Check executes cmd and requires the exact response ok.
func (c *Client) Check(ctx context.Context, cmd, ok string) error {
	resp, err := c.Exec(ctx, cmd)
	if err != nil {
		return err
	}
	if resp != ok {
		return &ResponseError{Command: cmd, Response: resp}
	}
	return nil
}

// Ping checks the device is alive.
func (c *Client) Ping(ctx context.Context) error {
	return c.Check(ctx, "ping", dispatch.RespPong)
}

// SetLED drives the LED.
func (c *Client) SetLED(ctx context.Context, on bool) error {
	cmd := "led:off"
	if on {
		cmd = "led:on"
	}
	return c.Check(ctx, cmd, dispatch.RespLEDOK)
}

// Motor requests a motor move.
func (c *Client) Motor(ctx context.Context, steps uint32, clockwise bool) error {
	dir := "0"
	if clockwise {
		dir = "1"
	}
	return c.Check(ctx, "motor:"+strconv.FormatUint(uint64(steps), 10)+":"+dir, dispatch.RespMotorOK)
}

// Stats returns the link counters seen from the host.
func (c *Client) Stats() comm.StatsSnapshot {
	return c.stats.Snapshot()
}

// Unmatched counts responses which arrived with no matching command,
// e.g. late answers to timed out commands.
func (c *Client) Unmatched() uint64 {
	return c.unmatched.Load()
}

func (c *Client) readLoop() error {
	var parser comm.Parser
	buf := make([]byte, 256)
	for {
		n, err := c.stream.Read(buf)
		c.stats.BytesReceived(n)
		for _, b := range buf[:n] {
			pr := parser.Parse(b)
			if pr.Drop != comm.DropNone {
				c.stats.FrameDropped(pr.Drop)
				glog.V(2).Infof("response frame dropped: %s", pr.Drop)
				continue
			}
			if pr.Payload != nil {
				c.stats.FrameReceived(len(pr.Payload))
				c.deliver(string(pr.Payload))
			}
		}
		if err != nil {
			return err
		}
	}
}

func (c *Client) deliver(resp string) {
	glog.V(2).Infof("RCV %q", resp)
	c.lock.Lock()
	p := c.pending
	if p != nil && strings.HasPrefix(resp, p.expect) {
		c.pending = nil
	} else {
		p = nil
	}
	c.lock.Unlock()
	if p == nil {
		c.unmatched.Add(1)
		glog.Warningf("unmatched response %q", resp)
		return
	}
	p.resultCh <- result{resp: resp}
}

func (c *Client) abandon(p *pendingCmd) {
	c.lock.Lock()
	if c.pending == p {
		c.pending = nil
	}
	c.lock.Unlock()
}

func (c *Client) close(err error) {
	if err == nil || errors.Is(err, io.EOF) {
		err = ErrClosed
	}
	c.lock.Lock()
	p := c.pending
	c.pending = nil
	if c.err == nil {
		c.err = err
		close(c.done)
	}
	c.lock.Unlock()
	if p != nil {
		p.resultCh <- result{err: ErrClosed}
	}
}
