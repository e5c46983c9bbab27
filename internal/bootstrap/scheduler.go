package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
)

type TaskOutcome int

const (
	TaskRunning TaskOutcome = iota
	TaskExited
	TaskFailed
	TaskPanicked
)

func (o TaskOutcome) String() string {
	switch o {
	case TaskRunning:
		return "running"
	case TaskExited:
		return "exited"
	case TaskFailed:
		return "failed"
	case TaskPanicked:
		return "panicked"
	default:
		return fmt.Sprintf("TaskOutcome(%d)", int(o))
	}
}

// Task is a supervised background task.
type Task struct {
	done    chan struct{}
	outcome TaskOutcome
	err     error
}

// Done is closed when the task returns or panics.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Result is valid once Done is closed.
func (t *Task) Result() (TaskOutcome, error) {
	select {
	case <-t.done:
		return t.outcome, t.err
	default:
		return TaskRunning, nil
	}
}

// Scheduler runs long-lived tasks on goroutines and logs how each one ends.
// Outcomes are never reported back to whoever spawned the task.
type Scheduler struct {
	wg sync.WaitGroup
}

func NewScheduler() *Scheduler {
	return &Scheduler{}
}

var defaultScheduler = sync.OnceValue(NewScheduler)

// DefaultScheduler returns the process wide scheduler. It is created on first
// use and never torn down.
func DefaultScheduler() *Scheduler {
	return defaultScheduler()
}

// Go starts fn. Returning nil, returning an error and panicking are logged
// as three different events.
func (s *Scheduler) Go(ctx context.Context, name string, fn func(context.Context) error) *Task {
	task := &Task{
		done: make(chan struct{}),
	}
	s.wg.Go(func() {
		defer close(task.done)
		task.outcome, task.err = supervise(ctx, name, fn)
	})
	return task
}

// Wait blocks until every task started by s has ended.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

func supervise(ctx context.Context, name string, fn func(context.Context) error) (outcome TaskOutcome, err error) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		outcome = TaskPanicked
		err = fmt.Errorf("%s panicked: %v", name, r)
		slog.ErrorContext(ctx, name+" panicked", "panic", r, "stack", string(debug.Stack()))
	}()

	err = fn(ctx)
	if err != nil {
		slog.ErrorContext(ctx, name+" failed", "error", err)
		return TaskFailed, err
	}
	slog.InfoContext(ctx, name+" exited normally")
	return TaskExited, nil
}
