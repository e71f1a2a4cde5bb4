package framework

import (
	"context"
	"time"
)

// Named is an abstraction for things with a name.
type Named interface {
	Name() string
}

// Runnable defines a generic interface for background runners.
type Runnable interface {
	Run(context.Context) error
}

// RunFunc is the func form of Runnable.
type RunFunc func(context.Context) error

// Run implements Runnable.
func (f RunFunc) Run(ctx context.Context) error {
	return f(ctx)
}

// Message is anything posted to the loop for tasks of
// a later stage (or a later iteration) to consume.
type Message interface{}

// Task is a piece of mainline work executed once per loop iteration.
type Task interface {
	Tick(TickContext) error
}

// TaskFunc is the func form of Task.
type TaskFunc func(TickContext) error

// Tick implements Task.
func (f TaskFunc) Tick(tc TickContext) error {
	return f(tc)
}

// Stage orders the tasks inside one iteration.
type Stage int

// Stages, executed in this order.
const (
	// StageSense collects inputs.
	StageSense Stage = iota
	// StageControl runs protocol and decision logic.
	StageControl
	// StageActuate drives outputs.
	StageActuate
	// StageIdle runs housekeeping.
	StageIdle

	stageCount
)

// String implements fmt.Stringer.
func (s Stage) String() string {
	switch s {
	case StageSense:
		return "sense"
	case StageControl:
		return "control"
	case StageActuate:
		return "actuate"
	case StageIdle:
		return "idle"
	}
	return "unknown"
}

// TickContext provides the context of the current iteration.
type TickContext interface {
	// Context retrieves context.Context.
	Context() context.Context
	// Time is when the iteration started.
	Time() time.Time
	// Stage is the stage being executed.
	Stage() Stage
	// Messages retrieves messages collected when the iteration started.
	Messages() MessageStore

	LoopControl
}

// LoopControl exposes access to the loop from any goroutine.
type LoopControl interface {
	// PostMessage enqueues the message for the next iteration.
	PostMessage(Message)
	// TriggerNext schedules the next iteration immediately instead of
	// waiting for the idle delay.
	TriggerNext()
}

// MessageStore provides access to the messages of an iteration.
type MessageStore interface {
	// ProcessMessages runs proc over every pending message. Messages
	// for which proc returns true are removed.
	ProcessMessages(proc func(Message) bool)
	// Len returns the number of pending messages.
	Len() int
}
