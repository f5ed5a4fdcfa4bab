package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/aretw0/keel/pkg/domain"
)

// Source implements ports.DescriptionSource and ports.Watchable using an in-memory map.
// Safe for concurrent use.
type Source struct {
	mu       sync.RWMutex
	descs    map[string]*domain.Description
	watchers []chan string
}

// NewSource creates a new in-memory source seeded with the provided descriptions.
func NewSource(data map[string]*domain.Description) *Source {
	descs := make(map[string]*domain.Description, len(data))
	for k, v := range data {
		descs[k] = v.Clone()
	}
	return &Source{descs: descs}
}

// Put stores desc under path and notifies watchers.
func (s *Source) Put(path string, desc *domain.Description) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.descs[path] = desc.Clone()

	// sends happen under the lock so a concurrent unsubscribe can't close w first
	for _, w := range s.watchers {
		select {
		case w <- path:
		default:
			// subscriber is busy, it will pick the path up on its next refresh
		}
	}
}

// Remove deletes the description under path.
func (s *Source) Remove(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.descs, path)
}

// Fetch returns a copy of the description under path.
func (s *Source) Fetch(path string) (*domain.Description, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	desc, ok := s.descs[path]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrSourceNotFound, path)
	}
	return desc.Clone(), nil
}

// List returns all available paths.
func (s *Source) List() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.descs))
	for k := range s.descs {
		keys = append(keys, k)
	}
	sort.Strings(keys) // Deterministic order
	return keys, nil
}

// Watch returns a channel receiving the paths passed to Put.
func (s *Source) Watch(ctx context.Context) (<-chan string, error) {
	ch := make(chan string, 16)
	s.mu.Lock()
	s.watchers = append(s.watchers, ch)
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, w := range s.watchers {
			if w == ch {
				s.watchers = append(s.watchers[:i], s.watchers[i+1:]...)
				break
			}
		}
		close(ch)
	}()
	return ch, nil
}
