package framework

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRunnerWait(t *testing.T) {
	errA, errB := errors.New("a"), errors.New("b")
	err := NewRunner().Go(
		RunFunc(func(context.Context) error { return errA }),
		NamedRun("ok", RunFunc(func(context.Context) error { return nil })),
		RunFunc(func(context.Context) error { return errB }),
		RunFunc(func(context.Context) error { return context.Canceled }),
	).Wait()
	require.Error(t, err)
	require.ErrorIs(t, err, errA)
	require.ErrorIs(t, err, errB)
	require.Contains(t, err.Error(), "multiple errors:")

	require.NoError(t, NewRunner().Wait())
}

func TestAggregatedError(t *testing.T) {
	var errs AggregatedError
	require.NoError(t, errs.Add(nil).Aggregate())
	errs.Add(io.EOF, nil)
	require.Equal(t, io.EOF.Error(), errs.Aggregate().Error())
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func TestRunWithContextCloser(t *testing.T) {
	release := make(chan struct{})
	var closed int
	closer := closerFunc(func() error {
		if closed == 0 {
			close(release)
		}
		closed++
		return nil
	})
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	err := RunWithContextCloser(ctx, closer, func() error {
		<-release
		return io.ErrClosedPipe
	})
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 1, closed)

	closed = 0
	release = make(chan struct{})
	err = RunWithContextCloser(context.Background(), closer, func() error { return io.EOF })
	require.ErrorIs(t, err, io.EOF)
	require.Equal(t, 1, closed)
}

func TestRunWithContextAbandons(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := RunWithContext(ctx, func() error {
		<-block
		return nil
	})
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
