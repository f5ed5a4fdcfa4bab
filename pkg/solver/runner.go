// Package solver runs a numeric solve against a Scene on a background goroutine with
// cooperative cancellation.
package solver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/keel/internal/logging"
	"github.com/aretw0/keel/pkg/domain"
	"github.com/aretw0/keel/pkg/ports"
)

// DefaultTimeout bounds a single solve unless WithTimeout overrides it.
const DefaultTimeout = 30 * time.Second

// Func adapts a function to ports.Solver.
type Func func(ctx context.Context, ex ports.Exchange) (bool, error)

func (f Func) Solve(ctx context.Context, ex ports.Exchange) (bool, error) { return f(ctx, ex) }

// Runner owns at most one background solve at a time.
type Runner struct {
	solver  ports.Solver
	logger  *slog.Logger
	hooks   domain.LifecycleHooks
	timeout time.Duration

	mu        sync.Mutex
	running   bool
	converged bool
	err       error
	cancel    context.CancelFunc
	done      chan struct{}
	gen       uint64
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		r.logger = logger
	}
}

// WithHooks registers the OnSolveFinished hook.
func WithHooks(hooks domain.LifecycleHooks) Option {
	return func(r *Runner) {
		r.hooks = hooks
	}
}

// WithTimeout bounds every solve. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(r *Runner) {
		r.timeout = d
	}
}

// NewRunner creates a Runner for s.
func NewRunner(s ports.Solver, opts ...Option) *Runner {
	r := &Runner{
		solver:  s,
		logger:  logging.NewNop(),
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start begins solving target in the background. It fails with domain.ErrSolveActive if
// this Runner or another one is already solving target.
func (r *Runner) Start(ctx context.Context, target ports.SolveTarget) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return fmt.Errorf("%w: runner busy", domain.ErrSolveActive)
	}

	var cancel context.CancelFunc
	if r.timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
	} else {
		ctx, cancel = context.WithCancel(ctx)
	}
	release, err := target.BeginSolve(cancel)
	if err != nil {
		cancel()
		return err
	}

	r.gen++
	r.running, r.converged, r.err = true, false, nil
	r.cancel = cancel
	r.done = make(chan struct{})
	go r.run(ctx, target, release, r.gen, r.done)
	return nil
}

func (r *Runner) run(ctx context.Context, target ports.SolveTarget, release func(), gen uint64, done chan struct{}) {
	start := time.Now()
	converged, err := r.solver.Solve(ctx, target)
	target.StateUpdate()
	release()

	event := &domain.SolveEvent{
		Timestamp: time.Now(),
		Duration:  time.Since(start),
		Converged: converged && err == nil,
		Cancelled: errors.Is(ctx.Err(), context.Canceled),
		Err:       err,
	}
	if err == nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		event.Err = fmt.Errorf("solve timed out after %s", r.timeout)
	}

	r.mu.Lock()
	if gen == r.gen {
		r.running = false
		r.converged = event.Converged
		r.err = event.Err
		r.cancel()
	}
	r.mu.Unlock()
	close(done)

	r.logger.Info("solve finished", "converged", event.Converged, "cancelled", event.Cancelled,
		"duration", event.Duration, "err", event.Err)
	if r.hooks.OnSolveFinished != nil {
		r.hooks.OnSolveFinished(context.WithoutCancel(ctx), event)
	}
}

// Cancel signals the active solve to stop. The solver notices at its next context check.
func (r *Runner) Cancel() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running && r.cancel != nil {
		r.cancel()
	}
}

// Running reports whether a solve is active.
func (r *Runner) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// Converged reports whether the last finished solve converged.
func (r *Runner) Converged() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.converged
}

// Err returns the error of the last finished solve.
func (r *Runner) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// Wait blocks until the active solve finishes or ctx is done and returns whether it
// converged.
func (r *Runner) Wait(ctx context.Context) (bool, error) {
	r.mu.Lock()
	done := r.done
	r.mu.Unlock()
	if done == nil {
		return false, nil
	}
	select {
	case <-done:
		r.mu.Lock()
		defer r.mu.Unlock()
		return r.converged, r.err
	case <-ctx.Done():
		return false, ctx.Err()
	}
}
