// Package device runs the L0 protocol engine the way the firmware does:
// bytes arrive in a receiving context, a cooperative main loop turns them
// into frames, commands and responses.
package device

import (
	"github.com/golang/glog"

	fx "github.com/robotalks/framelink/pkg/framework"
	"github.com/robotalks/framelink/pkg/l0/comm"
	"github.com/robotalks/framelink/pkg/l0/dispatch"
)

// Firmware owns the receive queue, parser, dispatcher and emitter of one
// link. OnByteReceived is the only method called from the receiving
// context; everything else runs in the main loop.
type Firmware struct {
	Platform Platform

	queue      *comm.ByteQueue
	parser     comm.Parser
	dispatcher dispatch.Dispatcher
	emitter    *comm.Emitter
	stats      comm.Stats
	loop       fx.LoopControl
}

// NewFirmware creates a Firmware with the default receive queue size.
func NewFirmware(platform Platform, out dispatch.DigitalOutput) *Firmware {
	return NewFirmwareWith(platform, out, comm.RxQueueSize)
}

// NewFirmwareWith creates a Firmware with a receive queue of queueSize.
func NewFirmwareWith(platform Platform, out dispatch.DigitalOutput, queueSize int) *Firmware {
	f := &Firmware{
		Platform: platform,
		queue:    comm.NewByteQueue(queueSize),
	}
	f.emitter = comm.NewEmitter(platform)
	f.emitter.Observer = &f.stats
	f.dispatcher.Output = out
	f.dispatcher.Motor = dispatch.MotorHandlerFunc(f.postMotor)
	return f
}

// Stats returns the link counters.
func (f *Firmware) Stats() comm.StatsSnapshot {
	return f.stats.Snapshot()
}

// ParserState exposes the framing state for diagnostics.
func (f *Firmware) ParserState() comm.ParserState {
	return f.parser.State()
}

// Start arms the receiver for the first byte.
func (f *Firmware) Start() error {
	return f.Platform.Arm(f.OnByteReceived)
}

// OnByteReceived is the receive notification. It queues the byte (or
// drops it when the queue is full), re-arms the receiver and wakes up
// the main loop.
func (f *Firmware) OnByteReceived(b byte) {
	f.stats.BytesReceived(1)
	if !f.queue.Enqueue(b) {
		f.stats.FrameDropped(comm.DropOverflow)
	}
	if err := f.Platform.Arm(f.OnByteReceived); err != nil {
		glog.Errorf("re-arm receiver: %v", err)
	}
	if l := f.loop; l != nil {
		l.TriggerNext()
	}
}

// Poll drains the receive queue through the parser, answering every
// complete frame. It returns the number of bytes consumed.
func (f *Firmware) Poll() (n int) {
	for {
		b, ok := f.queue.Dequeue()
		if !ok {
			return
		}
		n++
		f.feed(b)
	}
}

// Tick implements fx.Task.
func (f *Firmware) Tick(fx.TickContext) error {
	f.Poll()
	return nil
}

// AddToLoop implements fx.LoopAdder.
func (f *Firmware) AddToLoop(l *fx.Loop) {
	f.loop = l
	l.AddTask(fx.StageControl, f)
	if r, ok := f.Platform.(fx.Runnable); ok {
		l.AddRunnable(fx.NamedRun("platform", r))
	}
}

func (f *Firmware) feed(b byte) {
	pr := f.parser.Parse(b)
	if pr.Drop != comm.DropNone {
		f.stats.FrameDropped(pr.Drop)
		glog.V(2).Infof("frame dropped: %s", pr.Drop)
		return
	}
	if pr.Payload == nil {
		return
	}
	f.stats.FrameReceived(len(pr.Payload))
	resp := f.dispatcher.Handle(pr.Payload)
	if err := f.emitter.Send(resp); err != nil {
		glog.Warningf("response %q not sent: %v", resp, err)
	}
}

func (f *Firmware) postMotor(cmd dispatch.MotorCommand) {
	if l := f.loop; l != nil {
		l.PostMessage(&MotorMsg{MotorCommand: cmd})
		l.TriggerNext()
	}
}
