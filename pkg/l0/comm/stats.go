package comm

import (
	"errors"
	"fmt"
	"sync/atomic"
)

// Observer is notified about link activity. It never changes what goes
// over the wire; it only makes a degraded link visible.
type Observer interface {
	BytesReceived(n int)
	FrameDropped(DropReason)
	FrameReceived(payloadLen int)
	FrameSent(payloadLen int)
	SendFailed(error)
}

// Stats is an Observer counting events. Methods are safe for
// concurrent use.
type Stats struct {
	rxBytes        atomic.Uint64
	overflowDrops  atomic.Uint64
	badLengthDrops atomic.Uint64
	checksumDrops  atomic.Uint64
	framesReceived atomic.Uint64
	framesSent     atomic.Uint64
	sendRejected   atomic.Uint64
	sendErrors     atomic.Uint64
}

// StatsSnapshot is a point-in-time copy of Stats.
type StatsSnapshot struct {
	RxBytes        uint64
	OverflowDrops  uint64
	BadLengthDrops uint64
	ChecksumDrops  uint64
	FramesReceived uint64
	FramesSent     uint64
	SendRejected   uint64
	SendErrors     uint64
}

// BytesReceived implements Observer.
func (s *Stats) BytesReceived(n int) {
	s.rxBytes.Add(uint64(n))
}

// FrameDropped implements Observer.
func (s *Stats) FrameDropped(reason DropReason) {
	switch reason {
	case DropOverflow:
		s.overflowDrops.Add(1)
	case DropBadLength:
		s.badLengthDrops.Add(1)
	case DropChecksum:
		s.checksumDrops.Add(1)
	}
}

// FrameReceived implements Observer.
func (s *Stats) FrameReceived(int) {
	s.framesReceived.Add(1)
}

// FrameSent implements Observer.
func (s *Stats) FrameSent(int) {
	s.framesSent.Add(1)
}

// SendFailed implements Observer.
func (s *Stats) SendFailed(err error) {
	if errors.Is(err, ErrPayloadLength) {
		s.sendRejected.Add(1)
		return
	}
	s.sendErrors.Add(1)
}

// Snapshot copies the counters.
func (s *Stats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		RxBytes:        s.rxBytes.Load(),
		OverflowDrops:  s.overflowDrops.Load(),
		BadLengthDrops: s.badLengthDrops.Load(),
		ChecksumDrops:  s.checksumDrops.Load(),
		FramesReceived: s.framesReceived.Load(),
		FramesSent:     s.framesSent.Load(),
		SendRejected:   s.sendRejected.Load(),
		SendErrors:     s.sendErrors.Load(),
	}
}

// Drops is the total of all dropped bytes and frames.
func (s StatsSnapshot) Drops() uint64 {
	return s.OverflowDrops + s.BadLengthDrops + s.ChecksumDrops
}

// String implements fmt.Stringer.
func (s StatsSnapshot) String() string {
	return fmt.Sprintf("rx=%d frames=%d sent=%d drops(overflow=%d length=%d checksum=%d) send(rejected=%d errors=%d)",
		s.RxBytes, s.FramesReceived, s.FramesSent,
		s.OverflowDrops, s.BadLengthDrops, s.ChecksumDrops,
		s.SendRejected, s.SendErrors)
}
