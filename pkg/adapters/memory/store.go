package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/aretw0/keel/pkg/domain"
)

// Store implements ports.OverrideStore in memory.
// Safe for concurrent use.
type Store struct {
	data map[string]map[domain.Property]any
	mu   sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[string]map[domain.Property]any),
	}
}

// Set records an override.
func (s *Store) Set(ctx context.Context, node string, property domain.Property, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	props, ok := s.data[node]
	if !ok {
		props = make(map[domain.Property]any)
		s.data[node] = props
	}
	props[property] = value
	return nil
}

// Get returns a copy of the overrides of node so callers can't mutate store state.
func (s *Store) Get(ctx context.Context, node string) (map[domain.Property]any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ret := make(map[domain.Property]any, len(s.data[node]))
	for k, v := range s.data[node] {
		ret[k] = v
	}
	return ret, nil
}

// Delete removes the overrides of node.
func (s *Store) Delete(ctx context.Context, node string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, node)
	return nil
}

// List returns the overrides below prefix, sorted by node then property.
func (s *Store) List(ctx context.Context, prefix string) ([]domain.Override, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Override
	for node, props := range s.data {
		if !MatchesPrefix(node, prefix) {
			continue
		}
		for p, v := range props {
			out = append(out, domain.Override{Node: node, Property: p, Value: v})
		}
	}
	SortOverrides(out)
	return out, nil
}

// Snapshot returns an independent copy of the store.
func (s *Store) Snapshot() *Store {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c := NewStore()
	for node, props := range s.data {
		cp := make(map[domain.Property]any, len(props))
		for k, v := range props {
			cp[k] = v
		}
		c.data[node] = cp
	}
	return c
}

// MatchesPrefix reports whether node is prefix itself or lies below it.
func MatchesPrefix(node, prefix string) bool {
	return prefix == "" || node == prefix || strings.HasPrefix(node, prefix+domain.Separator)
}

// SortOverrides orders overrides by node then property.
func SortOverrides(out []domain.Override) {
	sort.Slice(out, func(i, j int) bool {
		if out[i].Node != out[j].Node {
			return out[i].Node < out[j].Node
		}
		return out[i].Property < out[j].Property
	})
}
