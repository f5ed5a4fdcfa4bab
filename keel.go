package keel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/aretw0/keel/internal/logging"
	"github.com/aretw0/keel/pkg/adapters/file"
	"github.com/aretw0/keel/pkg/domain"
	"github.com/aretw0/keel/pkg/ports"
	"github.com/aretw0/keel/pkg/scene"
)

// Version is the release of the keel module.
const Version = "0.1.0"

// Model is the high-level entry point for the keel library: a Scene loaded from a root
// description, together with the source its components are fetched from.
type Model struct {
	scene     *scene.Scene
	source    ports.DescriptionSource
	path      string
	report    *scene.LoadReport
	tolerate  bool
	hooks     domain.LifecycleHooks
	overrides ports.OverrideStore
	sceneOpts []scene.Option
	logger    *slog.Logger
	Name      string
}

// Option defines a functional option for configuring the Model.
type Option func(*Model)

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(m *Model) {
		m.hooks = hooks
	}
}

// WithSource injects a custom DescriptionSource, bypassing the default file source.
func WithSource(src ports.DescriptionSource) Option {
	return func(m *Model) {
		m.source = src
	}
}

// WithLogger sets a custom structured logger for the model.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Model) {
		m.logger = logger
	}
}

// WithOverrideStore sets where overrides on component nodes are kept.
func WithOverrideStore(store ports.OverrideStore) Option {
	return func(m *Model) {
		m.overrides = store
	}
}

// WithTolerateErrors loads the root description skipping failing operations.
func WithTolerateErrors(tolerate bool) Option {
	return func(m *Model) {
		m.tolerate = tolerate
	}
}

// WithSceneOptions passes extra options to the Scene, e.g. additional kinds.
func WithSceneOptions(opts ...scene.Option) Option {
	return func(m *Model) {
		m.sceneOpts = append(m.sceneOpts, opts...)
	}
}

// Open loads the description at path. By default descriptions are read from files below
// dir; if WithSource is provided, dir only names the model.
func Open(dir, path string, opts ...Option) (*Model, error) {
	m := &Model{path: path}
	for _, opt := range opts {
		opt(m)
	}

	if m.logger == nil {
		m.logger = logging.NewNop()
	}
	if m.source == nil {
		if dir == "" {
			return nil, fmt.Errorf("dir is required when no custom source is provided")
		}
		m.source = file.New(dir, file.WithLogger(m.logger))
	}
	if dir != "" {
		if abs, err := filepath.Abs(dir); err == nil {
			m.Name = filepath.Base(abs)
		}
		m.logger = m.logger.With("model", m.Name)
	}

	if err := m.load(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Model) load() error {
	desc, err := m.source.Fetch(m.path)
	if err != nil {
		return fmt.Errorf("failed to fetch %s: %w", m.path, err)
	}
	opts := []scene.Option{
		scene.WithSource(m.source),
		scene.WithLogger(m.logger),
		scene.WithLifecycleHooks(m.hooks),
	}
	if m.overrides != nil {
		opts = append(opts, scene.WithOverrideStore(m.overrides))
	}
	opts = append(opts, m.sceneOpts...)

	s, report, err := scene.Load(desc, scene.LoadOptions{TolerateErrors: m.tolerate}, opts...)
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", m.path, err)
	}
	m.scene, m.report = s, report
	return nil
}

// Scene returns the current Scene. It changes when Watch reloads the root description.
func (m *Model) Scene() *scene.Scene { return m.scene }

// Source returns the description source.
func (m *Model) Source() ports.DescriptionSource { return m.source }

// Path returns the path of the root description.
func (m *Model) Path() string { return m.path }

// Report returns the report of the last load of the root description.
func (m *Model) Report() *scene.LoadReport { return m.report }

// Save writes the description of the Scene to path. The source must support saving.
func (m *Model) Save(path string) error {
	saver, ok := m.source.(interface {
		Save(string, *domain.Description) error
	})
	if !ok {
		return fmt.Errorf("%w: source does not support saving", domain.ErrInvalidArgument)
	}
	return saver.Save(path, m.scene.Describe())
}

// Change is reported by Watch for every processed change notification.
type Change struct {
	Path string
	// Reloaded is set when the root description changed and the Scene was rebuilt.
	Reloaded bool
	// Refreshed lists the components re-synchronized from Path.
	Refreshed []*scene.Node
	Err       error
}

// Watch follows the source until ctx is done. A change to the root description reloads the
// Scene; a change to any other path refreshes the components loaded from it. Every change
// is passed to fn, which may be nil.
func (m *Model) Watch(ctx context.Context, fn func(Change)) error {
	w, ok := m.source.(ports.Watchable)
	if !ok {
		return fmt.Errorf("current source does not support watching")
	}
	ch, err := w.Watch(ctx)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case path, ok := <-ch:
			if !ok {
				return nil
			}
			change := m.apply(path)
			if change.Err != nil {
				m.logger.Warn("change not applied", "path", path, "err", change.Err)
			} else {
				m.logger.Info("change applied", "path", path, "reloaded", change.Reloaded, "refreshed", len(change.Refreshed))
			}
			if fn != nil {
				fn(change)
			}
		}
	}
}

func (m *Model) apply(path string) Change {
	change := Change{Path: path}
	if path == m.path {
		if m.scene.Solving() {
			change.Err = domain.NewOpError("reload", path, domain.ErrSolveActive, "")
			return change
		}
		change.Err = m.load()
		change.Reloaded = change.Err == nil
		return change
	}
	change.Refreshed, change.Err = m.scene.RefreshPath(path)
	return change
}

// IsNotFound reports whether err means a description path does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, domain.ErrSourceNotFound)
}
