package loader

import (
	"context"
	"sync"
	"sync/atomic"
)

// Task is a handle on one in-flight operation.
type Task interface {
	Cancel()
}

type TaskFunc func()

func (f TaskFunc) Cancel() {
	f()
}

// NoopTask is returned by operations that finished before returning.
var NoopTask Task = TaskFunc(func() {})

// Guard delivers a completion at most once. Once cancelled it delivers
// nothing.
type Guard[T any] struct {
	mu         sync.Mutex
	completion func(Result[T])
}

func NewGuard[T any](completion func(Result[T])) *Guard[T] {
	return &Guard[T]{completion: completion}
}

func (g *Guard[T]) Complete(result Result[T]) {
	g.mu.Lock()
	completion := g.completion
	g.completion = nil
	g.mu.Unlock()

	if completion != nil {
		completion(result)
	}
}

func (g *Guard[T]) Cancel() {
	g.mu.Lock()
	g.completion = nil
	g.mu.Unlock()
}

// ChainTask tracks the active step of an operation made of sequential steps.
// Cancelling it cancels the step currently running and keeps later steps
// from starting.
type ChainTask struct {
	mu        sync.Mutex
	cancelled bool
	step      int
	current   Task
	onCancel  Task
}

// NewChainTask returns a ChainTask that also cancels onCancel (usually the
// completion Guard) when cancelled.
func NewChainTask(onCancel Task) *ChainTask {
	return &ChainTask{onCancel: onCancel}
}

// Run starts the next step unless the chain has been cancelled. A step may
// complete synchronously and start the following step from inside start.
func (c *ChainTask) Run(start func() Task) {
	c.mu.Lock()
	if c.cancelled {
		c.mu.Unlock()
		return
	}
	c.step++
	step := c.step
	c.mu.Unlock()

	task := start()

	c.mu.Lock()
	if c.step == step {
		c.current = task
	}
	cancelled := c.cancelled
	c.mu.Unlock()

	if cancelled {
		task.Cancel()
	}
}

func (c *ChainTask) Cancel() {
	c.mu.Lock()
	if c.cancelled {
		c.mu.Unlock()
		return
	}
	c.cancelled = true
	current := c.current
	c.mu.Unlock()

	if c.onCancel != nil {
		c.onCancel.Cancel()
	}
	if current != nil {
		current.Cancel()
	}
}

func (c *ChainTask) Cancelled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cancelled
}

// Go runs fn on its own goroutine. Cancelling the returned task cancels the
// context passed to fn and drops its result.
func Go[T any](fn func(ctx context.Context) (T, error), completion func(Result[T])) Task {
	ctx, cancel := context.WithCancel(context.Background())
	guard := NewGuard(completion)

	go func() {
		defer cancel()

		value, err := fn(ctx)
		if err != nil {
			guard.Complete(Failure[T](err))
			return
		}
		guard.Complete(Success(value))
	}()

	return TaskFunc(func() {
		guard.Cancel()
		cancel()
	})
}

// Lifetime marks whether the owner of in-flight operations is still around.
// Completions that arrive after Release are dropped.
type Lifetime struct {
	released atomic.Bool
}

func (l *Lifetime) Release() {
	l.released.Store(true)
}

func (l *Lifetime) Alive() bool {
	return !l.released.Load()
}

// Bind wraps completion so it only fires while the lifetime is alive.
func Bind[T any](l *Lifetime, completion func(T)) func(T) {
	return func(v T) {
		if l.Alive() {
			completion(v)
		}
	}
}
