package framework

import (
	"context"
	"sync"
	"time"

	"github.com/golang/glog"
)

// DefaultIdleDelay is the delay between two iterations when
// nobody triggers the loop.
const DefaultIdleDelay = time.Millisecond

// Loop is a single-goroutine cooperative main loop. Every iteration runs
// the registered tasks stage by stage; between iterations the loop sleeps
// for IdleDelay unless TriggerNext wakes it up earlier.
type Loop struct {
	IdleDelay time.Duration

	stages  [stageCount][]Task
	runners []Runnable

	messages messageList
	lock     sync.Mutex

	wakeUpCh chan struct{}
}

// LoopAdder registers its tasks and runners with a loop.
type LoopAdder interface {
	AddToLoop(*Loop)
}

type loopIteration struct {
	*Loop
	ctx      context.Context
	time     time.Time
	stage    Stage
	messages messageList
}

type messageList struct {
	head *messageItem
	tail *messageItem
	size int
}

type messageItem struct {
	msg  Message
	next *messageItem
}

func (l *messageList) append(item *messageItem) {
	if l.head == nil {
		l.head = item
	} else {
		l.tail.next = item
	}
	l.tail = item
	l.size++
}

func (l *messageList) splice(src *messageList) {
	*l, *src = *src, messageList{}
}

var loopCtxKey = &Loop{}

// LoopCtlFrom gets LoopControl from a context passed to runners
// started by the loop.
func LoopCtlFrom(ctx context.Context) LoopControl {
	ctl, _ := ctx.Value(loopCtxKey).(LoopControl)
	return ctl
}

// NewLoop creates a Loop.
func NewLoop() *Loop {
	return &Loop{
		IdleDelay: DefaultIdleDelay,
		wakeUpCh:  make(chan struct{}, 1),
	}
}

// Add adds LoopAdders.
func (l *Loop) Add(adders ...LoopAdder) *Loop {
	for _, adder := range adders {
		adder.AddToLoop(l)
	}
	return l
}

// AddTask registers tasks at the given stage. Tasks which are also
// Runnable are started together with the loop.
func (l *Loop) AddTask(stage Stage, tasks ...Task) *Loop {
	l.stages[stage] = append(l.stages[stage], tasks...)
	for _, task := range tasks {
		if runner, ok := task.(Runnable); ok {
			l.runners = append(l.runners, runner)
		}
	}
	return l
}

// AddRunnable adds background runners started and stopped with the loop.
func (l *Loop) AddRunnable(runnables ...Runnable) *Loop {
	l.runners = append(l.runners, runnables...)
	return l
}

// Run implements Runnable. It returns when ctx is done or when any
// runner fails; the remaining runners are stopped before returning.
func (l *Loop) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	runCtx := context.WithValue(ctx, loopCtxKey, LoopControl(l))
	errCh := make(chan error, len(l.runners))
	for _, runner := range l.runners {
		go func(runner Runnable) {
			errCh <- runner.Run(runCtx)
		}(runner)
	}
	running := len(l.runners)
	defer func() {
		cancel()
		for ; running > 0; running-- {
			<-errCh
		}
	}()

	delay := l.IdleDelay
	if delay <= 0 {
		delay = DefaultIdleDelay
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-errCh:
			running--
			if err != nil {
				return err
			}
			continue
		case <-timer.C:
		case <-l.wakeUpCh:
			timer.Stop()
		}
		l.runIteration(ctx)
		timer.Reset(delay)
	}
}

// PostMessage implements LoopControl.
func (l *Loop) PostMessage(msg Message) {
	l.lock.Lock()
	l.messages.append(&messageItem{msg: msg})
	l.lock.Unlock()
}

// TriggerNext implements LoopControl. It never blocks and is safe to
// call from any goroutine.
func (l *Loop) TriggerNext() {
	select {
	case l.wakeUpCh <- struct{}{}:
	default:
	}
}

// RunOnce executes a single iteration synchronously.
func (l *Loop) RunOnce(ctx context.Context) {
	l.runIteration(ctx)
}

func (l *Loop) runIteration(ctx context.Context) {
	iter := &loopIteration{Loop: l, ctx: ctx, time: time.Now()}
	l.lock.Lock()
	iter.messages.splice(&l.messages)
	l.lock.Unlock()
	for stage := StageSense; stage < stageCount; stage++ {
		iter.stage = stage
		for _, task := range l.stages[stage] {
			if err := task.Tick(iter); err != nil {
				glog.Errorf("%s task error: %v", stage, err)
			}
		}
	}
	if iter.messages.size > 0 {
		glog.V(3).Infof("%d messages left unprocessed", iter.messages.size)
	}
}

func (t *loopIteration) Context() context.Context { return t.ctx }
func (t *loopIteration) Time() time.Time          { return t.time }
func (t *loopIteration) Stage() Stage             { return t.stage }
func (t *loopIteration) Messages() MessageStore   { return t }
func (t *loopIteration) Len() int                 { return t.messages.size }

func (t *loopIteration) ProcessMessages(proc func(Message) bool) {
	var msgs, remains messageList
	msgs.splice(&t.messages)
	for item := msgs.head; item != nil; {
		next := item.next
		item.next = nil
		if !proc(item.msg) {
			remains.append(item)
		}
		item = next
	}
	t.messages = remains
}
