package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/aretw0/keel/internal/logging"
	"github.com/aretw0/keel/pkg/domain"
)

// SignalContext wraps a context and captures the signal that cancelled it.
type SignalContext struct {
	context.Context
	Cancel func()
	start  sync.Once
	stop   sync.Once
	sigCh  chan os.Signal
	sigVal os.Signal
	mu     sync.Mutex
}

// NewSignalContext creates a context that is cancelled on SIGINT or SIGTERM.
// It acts as a drop-in replacement for signal.NotifyContext but allows retrieving the signal.
func NewSignalContext(parent context.Context) *SignalContext {
	ctx, cancel := context.WithCancel(parent)
	sc := &SignalContext{
		Context: ctx,
		Cancel:  cancel,
		sigCh:   make(chan os.Signal, 1),
	}

	sc.start.Do(func() {
		signal.Notify(sc.sigCh, os.Interrupt, syscall.SIGTERM)
		go func() {
			select {
			case sig := <-sc.sigCh:
				sc.mu.Lock()
				sc.sigVal = sig
				sc.mu.Unlock()
				sc.Cancel()
			case <-sc.Context.Done():
				// Context cancelled elsewhere
			}
			sc.stop.Do(func() {
				signal.Stop(sc.sigCh)
			})
		}()
	})

	return sc
}

// Signal returns the signal that caused the context to be cancelled, or nil.
func (sc *SignalContext) Signal() os.Signal {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.sigVal
}

// createLogger configures the application logger from a level name.
// "off" (or empty) discards everything; logs go to Stderr to keep Stdout for output.
func createLogger(level string) (*slog.Logger, error) {
	switch strings.ToLower(level) {
	case "", "off":
		return logging.NewNop(), nil
	case "debug":
		return logging.New(slog.LevelDebug), nil
	case "info":
		return logging.New(slog.LevelInfo), nil
	case "warn", "warning":
		return logging.New(slog.LevelWarn), nil
	case "error":
		return logging.New(slog.LevelError), nil
	}
	return nil, fmt.Errorf("unknown log level %q", level)
}

// printSystemMessage prints a standardized system message.
func printSystemMessage(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, ">>> %s\n", fmt.Sprintf(format, args...))
}

func createDebugHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnNodeCreated: func(ctx context.Context, e *domain.NodeEvent) {
			logger.Debug("Node Created", "node", e.Name, "kind", e.Kind)
		},
		OnNodeDeleted: func(ctx context.Context, e *domain.NodeEvent) {
			logger.Debug("Node Deleted", "node", e.Name, "kind", e.Kind)
		},
		OnComponentSynced: func(ctx context.Context, e *domain.ComponentEvent) {
			if e.Err != nil {
				logger.Debug("Component Sync (Error)", "component", e.Name, "path", e.Path, "err", e.Err)
			} else {
				logger.Debug("Component Sync (Success)", "component", e.Name, "path", e.Path,
					"created", e.Created, "updated", e.Updated, "deleted", e.Deleted)
			}
		},
	}
}
