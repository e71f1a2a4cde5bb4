package device

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/golang/glog"

	fx "github.com/robotalks/framelink/pkg/framework"
	"github.com/robotalks/framelink/pkg/l0/dispatch"
)

// FaultBlinkPeriod is the toggle period used by Halt.
const FaultBlinkPeriod = 200 * time.Millisecond

// Pin is an in-memory digital output.
type Pin struct {
	Name string

	high    atomic.Bool
	changes atomic.Uint64
}

// NewPin creates a Pin which starts low.
func NewPin(name string) *Pin {
	return &Pin{Name: name}
}

// Set implements dispatch.DigitalOutput.
func (p *Pin) Set(high bool) {
	if p.high.Swap(high) != high {
		p.changes.Add(1)
	}
	if glog.V(1) {
		level := "low"
		if high {
			level = "high"
		}
		glog.Infof("pin %s %s", p.Name, level)
	}
}

// High reports the current level.
func (p *Pin) High() bool {
	return p.high.Load()
}

// Changes counts level transitions.
func (p *Pin) Changes() uint64 {
	return p.changes.Load()
}

// Halt signals an unrecoverable bring-up failure by toggling out every
// period until ctx is done. Nothing else runs meanwhile.
func Halt(ctx context.Context, out dispatch.DigitalOutput, period time.Duration) error {
	if period <= 0 {
		period = FaultBlinkPeriod
	}
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	var high bool
	for {
		high = !high
		out.Set(high)
		select {
		case <-ctx.Done():
			out.Set(false)
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// MotorMsg carries a validated motor command to the actuate stage.
type MotorMsg struct {
	dispatch.MotorCommand
}

// MotorDriver consumes MotorMsg at the actuate stage and tracks the
// resulting position. Clockwise steps count up.
type MotorDriver struct {
	position atomic.Int64
	moves    atomic.Uint64
}

// AddToLoop implements fx.LoopAdder.
func (m *MotorDriver) AddToLoop(l *fx.Loop) {
	l.AddTask(fx.StageActuate, m)
}

// Tick implements fx.Task.
func (m *MotorDriver) Tick(tc fx.TickContext) error {
	tc.Messages().ProcessMessages(func(msg fx.Message) bool {
		mm, ok := msg.(*MotorMsg)
		if !ok {
			return false
		}
		m.Move(mm.MotorCommand)
		return true
	})
	return nil
}

// Move applies one command.
func (m *MotorDriver) Move(cmd dispatch.MotorCommand) {
	delta := int64(cmd.Steps)
	if !cmd.Clockwise {
		delta = -delta
	}
	pos := m.position.Add(delta)
	m.moves.Add(1)
	glog.Infof("motor: %d steps clockwise=%v position=%d", cmd.Steps, cmd.Clockwise, pos)
}

// Position is the accumulated step count.
func (m *MotorDriver) Position() int64 {
	return m.position.Load()
}

// Moves counts executed commands.
func (m *MotorDriver) Moves() uint64 {
	return m.moves.Load()
}
