// Package file serves structural descriptions from YAML and JSON files below a root
// directory, and reports changes to them through fsnotify.
package file

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/aretw0/keel/internal/logging"
	"github.com/aretw0/keel/pkg/codec"
	"github.com/aretw0/keel/pkg/domain"
)

// DefaultDebounce coalesces the bursts of events editors produce when saving.
const DefaultDebounce = 200 * time.Millisecond

// Source implements ports.DescriptionSource and ports.Watchable over a directory.
// Paths are slash separated and relative to the root.
type Source struct {
	root     string
	debounce time.Duration
	logger   *slog.Logger
}

// Option configures a Source.
type Option func(*Source)

// WithDebounce sets how long Watch waits for a file to settle.
func WithDebounce(d time.Duration) Option {
	return func(s *Source) {
		s.debounce = d
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Source) {
		s.logger = logger
	}
}

// New creates a Source rooted at root. An empty root means the working directory.
func New(root string, opts ...Option) *Source {
	if root == "" {
		root = "."
	}
	s := &Source{root: root, debounce: DefaultDebounce, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Root returns the directory the Source reads from.
func (s *Source) Root() string { return s.root }

func (s *Source) resolve(path string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(path))
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q is outside the source root", domain.ErrInvalidArgument, path)
	}
	return filepath.Join(s.root, clean), nil
}

// Fetch parses the description at path with the codec matching its extension.
func (s *Source) Fetch(path string) (*domain.Description, error) {
	full, err := s.resolve(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(full)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", domain.ErrSourceNotFound, path)
		}
		return nil, fmt.Errorf("failed to open description: %w", err)
	}
	defer f.Close()
	c, err := codec.ForPath(full)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidArgument, err)
	}

	desc, err := c.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return desc, nil
}

// Save writes desc to path atomically, creating parent directories. The format follows
// the extension of path.
func (s *Source) Save(path string, desc *domain.Description) error {
	full, err := s.resolve(path)
	if err != nil {
		return err
	}
	c, err := codec.ForPath(full)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidArgument, err)
	}
	dir := filepath.Dir(full)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to ensure description directory: %w", err)
	}

	// same directory, so the rename stays on one filesystem
	tmp, err := os.CreateTemp(dir, "tmp-*"+filepath.Ext(full))
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}()

	if err := c.Export(desc, tmp); err != nil {
		return fmt.Errorf("failed to encode description: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("failed to fsync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, full); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

// List returns every description file below the root, sorted.
func (s *Source) List() ([]string, error) {
	var paths []string
	err := filepath.WalkDir(s.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !isDescription(p) {
			return nil
		}
		rel, err := filepath.Rel(s.root, p)
		if err != nil {
			return err
		}
		paths = append(paths, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to list descriptions: %w", err)
	}
	sort.Strings(paths)
	return paths, nil
}

func isDescription(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".json":
		return !strings.HasPrefix(filepath.Base(path), "tmp-")
	}
	return false
}

// Watch reports the path of every description file written or created below the root,
// once it has settled for the debounce interval. The channel closes when ctx is done.
func (s *Source) Watch(ctx context.Context) (<-chan string, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	err = filepath.WalkDir(s.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return watcher.Add(p)
		}
		return nil
	})
	if err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", s.root, err)
	}

	out := make(chan string, 16)
	go s.loop(ctx, watcher, out)
	return out, nil
}

func (s *Source) loop(ctx context.Context, watcher *fsnotify.Watcher, out chan<- string) {
	var mu sync.Mutex
	timers := make(map[string]*time.Timer)
	var wg sync.WaitGroup
	defer func() {
		_ = watcher.Close()
		mu.Lock()
		for _, t := range timers {
			if t.Stop() {
				wg.Done()
			}
		}
		mu.Unlock()
		wg.Wait()
		close(out)
	}()

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					_ = watcher.Add(event.Name)
					continue
				}
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 || !isDescription(event.Name) {
				continue
			}
			rel, err := filepath.Rel(s.root, event.Name)
			if err != nil {
				continue
			}
			path := filepath.ToSlash(rel)

			mu.Lock()
			if t, exists := timers[path]; exists && t.Stop() {
				wg.Done()
			}
			wg.Add(1)
			timers[path] = time.AfterFunc(s.debounce, func() {
				defer wg.Done()
				s.logger.Debug("description changed", "path", path)
				select {
				case out <- path:
				case <-ctx.Done():
				}
			})
			mu.Unlock()

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			s.logger.Warn("watcher error", "root", s.root, "err", err)

		case <-ctx.Done():
			return
		}
	}
}
