package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/aretw0/keel"
	"github.com/aretw0/keel/internal/metrics"
	"github.com/aretw0/keel/internal/presentation/tui"
	"github.com/aretw0/keel/pkg/domain"
)

// RunWatch keeps the model in sync with its description files until ctx is done or the
// process receives SIGINT/SIGTERM. Changed component files re-synchronize the components
// loaded from them; a changed root description reloads the model.
func RunWatch(ctx context.Context, opts Options, w io.Writer) error {
	logger, err := createLogger(opts.LogLevel)
	if err != nil {
		return err
	}
	if tui.IsTerminal(w) {
		tui.PrintBanner(w, keel.Version)
	}

	collector := metrics.New()
	hooks := metrics.Chain(createDebugHooks(logger), collector.Hooks())
	model, err := openModel(opts, logger, hooks)
	if err != nil {
		return err
	}

	sigCtx := NewSignalContext(ctx)
	defer sigCtx.Cancel()

	if opts.MetricsAddr != "" {
		stop, err := serveMetrics(sigCtx, opts.MetricsAddr, collector.Handler())
		if err != nil {
			return err
		}
		defer stop()
		printSystemMessage(w, "Metrics at http://%s/metrics", opts.MetricsAddr)
	}

	logger.Info("Starting Watcher", "dir", opts.Dir, "path", model.Path())
	printSystemMessage(w, "Watching '%s' (%d nodes).", model.Path(), model.Scene().Len())

	previous := model.Scene().Describe()
	err = model.Watch(sigCtx, func(c keel.Change) {
		switch {
		case c.Err != nil:
			printSystemMessage(w, "%s '%s': %v", tui.Status(w, false, "failed"), c.Path, c.Err)
		case c.Reloaded:
			diff := domain.Diff(previous, model.Scene().Describe())
			printSystemMessage(w, "%s '%s': +%d ~%d -%d", tui.Status(w, true, "reloaded"), c.Path,
				len(diff.Added), len(diff.Changed)+len(diff.KindChanged), len(diff.Removed))
		case len(c.Refreshed) > 0:
			names := make([]string, len(c.Refreshed))
			for i, n := range c.Refreshed {
				names[i] = n.Name()
			}
			printSystemMessage(w, "%s %v from '%s'", tui.Status(w, true, "refreshed"), names, c.Path)
		}
		if c.Err == nil {
			previous = model.Scene().Describe()
		}
	})

	if sig := sigCtx.Signal(); sig != nil {
		logger.Info("Stopping watcher (signal received)", "signal", sig)
		printSystemMessage(w, "Stopped.")
	}
	return err
}

// serveMetrics starts an HTTP server for handler on addr. The returned function shuts it down.
func serveMetrics(ctx context.Context, addr string, handler http.Handler) (func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fmt.Printf("metrics server stopped: %v\n", err)
		}
	}()
	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}, nil
}
