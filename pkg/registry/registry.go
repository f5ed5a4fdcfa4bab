// Package registry allocates and tracks the unique names of the nodes of a Scene.
package registry

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"unicode"

	"github.com/aretw0/keel/pkg/domain"
)

// Registry maps every claimed name to the handle that owns it.
type Registry struct {
	mu    sync.RWMutex
	names map[string]domain.Handle
}

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{
		names: make(map[string]domain.Handle),
	}
}

// Validate checks the syntax of a name: non-empty segments separated by "/" without
// whitespace or control characters.
func Validate(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", domain.ErrNameUnavailable)
	}
	for _, seg := range strings.Split(name, domain.Separator) {
		if seg == "" {
			return fmt.Errorf("%w: empty segment in %q", domain.ErrNameUnavailable, name)
		}
	}
	for _, r := range name {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return fmt.Errorf("%w: %q contains whitespace", domain.ErrNameUnavailable, name)
		}
	}
	return nil
}

// Available reports whether name is valid and unclaimed.
func (r *Registry) Available(name string) bool {
	if Validate(name) != nil {
		return false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, taken := r.names[name]
	return !taken
}

// Reserve returns candidate if it is free, otherwise the first free name obtained by
// repeatedly incrementing its trailing number. The name is not claimed.
func (r *Registry) Reserve(candidate string) (string, error) {
	if err := Validate(candidate); err != nil {
		return "", err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	name := candidate
	for {
		if _, taken := r.names[name]; !taken {
			return name, nil
		}
		name = Increment(name)
	}
}

// Claim binds name to h. It fails if the name is invalid or owned by another handle.
func (r *Registry) Claim(name string, h domain.Handle) error {
	if err := Validate(name); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if owner, taken := r.names[name]; taken && owner != h {
		return fmt.Errorf("%w: %q is taken", domain.ErrNameUnavailable, name)
	}
	r.names[name] = h
	return nil
}

// Release frees name if it is owned by h.
func (r *Registry) Release(name string, h domain.Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if owner, ok := r.names[name]; ok && owner == h {
		delete(r.names, name)
	}
}

// Lookup returns the handle owning name.
func (r *Registry) Lookup(name string) (domain.Handle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.names[name]
	return h, ok
}

// Names returns every claimed name in lexical order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.names))
	for name := range r.names {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of claimed names.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.names)
}

// Clone returns an independent copy of the registry.
func (r *Registry) Clone() *Registry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c := NewRegistry()
	for name, h := range r.names {
		c.names[name] = h
	}
	return c
}

// Increment bumps the trailing number of name ("a9" becomes "a10") or appends "2". Zero
// padding keeps its width ("a007" becomes "a008").
func Increment(name string) string {
	i := len(name)
	for i > 0 && name[i-1] >= '0' && name[i-1] <= '9' {
		i--
	}
	if i == len(name) {
		return name + "2"
	}
	n, err := strconv.Atoi(name[i:])
	if err != nil {
		// overflowing digit runs are extended instead of parsed
		return name + "2"
	}
	return name[:i] + fmt.Sprintf("%0*d", len(name)-i, n+1)
}
