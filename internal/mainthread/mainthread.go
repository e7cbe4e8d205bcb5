// Package mainthread runs all marker and document mutations on a single
// goroutine. Other goroutines hand work to it with Post or Invoke.
package mainthread

import (
	"context"
	"errors"
)

// ErrStopped is returned when work is handed to a loop that is not running.
var ErrStopped = errors.New("main loop stopped")

// Task is a unit of work. ctx identifies the loop, so a task that calls
// Invoke again runs the nested work inline.
type Task func(ctx context.Context)

type loopKey struct{}

// Loop is a single-goroutine task runner.
type Loop struct {
	tasks chan Task
	done  chan struct{}
}

// New creates a loop whose queue holds size pending tasks.
func New(size int) *Loop {
	return &Loop{
		tasks: make(chan Task, size),
		done:  make(chan struct{}),
	}
}

// Run executes tasks until ctx is cancelled. It must be called once.
func (l *Loop) Run(ctx context.Context) error {
	defer close(l.done)
	loopCtx := context.WithValue(ctx, loopKey{}, l)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case t := <-l.tasks:
			t(loopCtx)
		}
	}
}

// OnLoop reports whether ctx belongs to a task running on l.
func (l *Loop) OnLoop(ctx context.Context) bool {
	owner, _ := ctx.Value(loopKey{}).(*Loop)
	return owner == l
}

// Post queues t without waiting for it.
func (l *Loop) Post(ctx context.Context, t Task) error {
	select {
	case l.tasks <- t:
		return nil
	case <-l.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Invoke runs t on the loop and waits for it to finish. Called from a task
// already on the loop, t runs immediately.
func (l *Loop) Invoke(ctx context.Context, t Task) error {
	if l.OnLoop(ctx) {
		t(ctx)
		return nil
	}

	finished := make(chan struct{})
	err := l.Post(ctx, func(loopCtx context.Context) {
		defer close(finished)
		t(loopCtx)
	})
	if err != nil {
		return err
	}

	select {
	case <-finished:
		return nil
	case <-l.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}
