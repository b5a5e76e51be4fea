package goroutine

import (
	"context"
	"errors"
	"log/slog"
	"runtime"
	"runtime/debug"
	"sync"

	"github.com/shandysiswandi/otpgate/internal/pkg/stacktrace"
)

// DefaultMaxGoroutine is multiplied by the CPU count when NewManager gets a
// non-positive limit.
const DefaultMaxGoroutine int = 100

// PanicHandler runs after a task's panic has been recovered and logged.
type PanicHandler func(ctx context.Context, recovered any)

type Option func(*Manager)

func WithPanicHandler(h PanicHandler) Option {
	return func(m *Manager) { m.onPanic = h }
}

// Manager runs best-effort background tasks on a bounded number of
// goroutines and keeps their errors for Wait. A nil *Manager drops every task.
type Manager struct {
	slots   chan struct{}
	onPanic PanicHandler

	mu      sync.Mutex
	wg      sync.WaitGroup
	stopped bool
	errs    []error
}

func NewManager(maxGoroutine int, opts ...Option) *Manager {
	if maxGoroutine < 1 {
		maxGoroutine = runtime.NumCPU() * DefaultMaxGoroutine
	}

	m := &Manager{slots: make(chan struct{}, maxGoroutine)}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m
}

// Go starts f unless every slot is busy or Wait has been called, in which
// case f is dropped with a warning. It reports whether f was started.
func (m *Manager) Go(ctx context.Context, f func(ctx context.Context) error) bool {
	if m == nil {
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stopped {
		slog.WarnContext(ctx, "goroutine manager stopped, task dropped")
		return false
	}
	select {
	case m.slots <- struct{}{}:
	default:
		slog.WarnContext(ctx, "goroutine limit reached, task dropped", "limit", cap(m.slots))
		return false
	}

	m.wg.Go(func() {
		defer func() { <-m.slots }()
		defer m.recover(ctx)
		m.run(ctx, f)
	})
	return true
}

func (m *Manager) run(ctx context.Context, f func(ctx context.Context) error) {
	if err := ctx.Err(); err != nil {
		slog.WarnContext(ctx, "task skipped, context done", "error", err)
		return
	}
	if err := f(ctx); err != nil {
		m.mu.Lock()
		m.errs = append(m.errs, err)
		m.mu.Unlock()
	}
}

func (m *Manager) recover(ctx context.Context) {
	rvr := recover()
	if rvr == nil {
		return
	}

	stack := debug.Stack()
	if frames := stacktrace.InternalPaths(stack); len(frames) > 0 {
		slog.ErrorContext(ctx, "panic in background task", "panic", rvr, "stack", frames)
	} else {
		slog.ErrorContext(ctx, "panic in background task", "panic", rvr, "stack", string(stack))
	}

	if m.onPanic != nil {
		m.onPanic(ctx, rvr)
	}
}

// Wait stops accepting tasks, blocks until the running ones finish and
// returns their joined errors.
func (m *Manager) Wait() error {
	if m == nil {
		return nil
	}

	m.mu.Lock()
	m.stopped = true
	m.mu.Unlock()

	m.wg.Wait()

	m.mu.Lock()
	defer m.mu.Unlock()
	return errors.Join(m.errs...)
}
