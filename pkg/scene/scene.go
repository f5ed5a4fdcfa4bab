// Package scene owns the mutable graph of named nodes of a model: their structural
// containment, their governance by managers and the rules deciding when a node may be
// created, renamed, reparented, deleted, dissolved, duplicated, copied or imported.
//
// A Scene is single-writer. Every public operation either succeeds with the Scene's
// invariants intact or fails leaving the Scene unchanged:
//
//   - every valid node has a unique name;
//   - every parent, manager and payload reference points to a valid node;
//   - manager-created nodes change structural properties only with the manager's consent;
//   - the parent/manager relation is acyclic;
//   - deleting a node deletes everything that depends on it.
package scene

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aretw0/keel/internal/logging"
	"github.com/aretw0/keel/pkg/adapters/memory"
	"github.com/aretw0/keel/pkg/domain"
	"github.com/aretw0/keel/pkg/ports"
	"github.com/aretw0/keel/pkg/registry"
)

// NameMissHandler may supply a substitute for a name that failed to resolve.
type NameMissHandler func(name string) (string, bool)

// Scene is the ordered arena of nodes of one model.
type Scene struct {
	id       uuid.UUID
	nodes    map[domain.Handle]*Node
	order    []domain.Handle
	next     domain.Handle
	names    *registry.Registry
	kinds    map[domain.Kind]KindSpec
	settings domain.Settings

	ctx       context.Context
	source    ports.DescriptionSource
	overrides ports.OverrideStore
	nameMiss  NameMissHandler
	logger    *slog.Logger
	hooks     domain.LifecycleHooks

	// suppress counts nested replays whose property changes are not overrides.
	suppress int
	// recorded collects override keys written during the current import, for rollback.
	recorded *[]string
	// loading holds the component paths being instantiated, shared with scratch scenes.
	loading map[string]bool

	solve solveState
	exMu  sync.Mutex
}

// Option defines a functional option for configuring the Scene.
type Option func(*Scene)

// WithLogger sets a custom structured logger for the Scene.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scene) {
		s.logger = logger
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(s *Scene) {
		s.hooks = hooks
	}
}

// WithSource injects the DescriptionSource components are fetched from.
func WithSource(src ports.DescriptionSource) Option {
	return func(s *Scene) {
		s.source = src
	}
}

// WithOverrideStore injects the store of overrides on manager-created nodes.
// Defaults to an in-memory store.
func WithOverrideStore(store ports.OverrideStore) Option {
	return func(s *Scene) {
		s.overrides = store
	}
}

// WithNameMissHandler installs the fallback consulted when a name does not resolve.
func WithNameMissHandler(h NameMissHandler) Option {
	return func(s *Scene) {
		s.nameMiss = h
	}
}

// WithKind registers an additional node kind, or replaces a built-in one.
func WithKind(spec KindSpec) Option {
	return func(s *Scene) {
		s.kinds[spec.Kind] = spec
	}
}

// WithSettings sets the scene-wide solver settings.
func WithSettings(settings domain.Settings) Option {
	return func(s *Scene) {
		s.settings = settings
	}
}

// WithContext sets the context passed to collaborator calls (override store).
func WithContext(ctx context.Context) Option {
	return func(s *Scene) {
		s.ctx = ctx
	}
}

// WithID fixes the Scene identifier instead of generating one.
func WithID(id uuid.UUID) Option {
	return func(s *Scene) {
		s.id = id
	}
}

// New creates an empty Scene.
func New(opts ...Option) *Scene {
	s := &Scene{
		id:       uuid.New(),
		nodes:    make(map[domain.Handle]*Node),
		names:    registry.NewRegistry(),
		kinds:    make(map[domain.Kind]KindSpec),
		settings: domain.DefaultSettings(),
		ctx:      context.Background(),
		logger:   logging.NewNop(),
		loading:  make(map[string]bool),
	}
	for _, k := range builtinKinds() {
		s.kinds[k.Kind] = k
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.overrides == nil {
		s.overrides = memory.NewStore()
	}
	return s
}

// options reproduces the collaborators of s for a derived Scene.
func (s *Scene) options() []Option {
	opts := []Option{
		WithLogger(s.logger),
		WithLifecycleHooks(s.hooks),
		WithSource(s.source),
		WithNameMissHandler(s.nameMiss),
		WithSettings(s.settings),
		WithContext(s.ctx),
	}
	for _, k := range s.kinds {
		opts = append(opts, WithKind(k))
	}
	return opts
}

// scratch returns an empty Scene sharing the kind table and source of s, used to validate
// descriptions before touching s.
func (s *Scene) scratch() *Scene {
	sc := New(WithSource(s.source), WithContext(s.ctx))
	sc.kinds = s.kinds
	sc.loading = s.loading
	return sc
}

// ID returns the Scene's instance identifier.
func (s *Scene) ID() uuid.UUID { return s.id }

// Settings returns the scene-wide solver settings.
func (s *Scene) Settings() domain.Settings { return s.settings }

// SetSettings replaces the scene-wide solver settings.
func (s *Scene) SetSettings(settings domain.Settings) error {
	if err := s.guard("settings"); err != nil {
		return err
	}
	s.settings = settings
	return nil
}

// Overrides returns the Scene's override store.
func (s *Scene) Overrides() ports.OverrideStore { return s.overrides }

// Source returns the Scene's description source, possibly nil.
func (s *Scene) Source() ports.DescriptionSource { return s.source }

// Kinds returns the registered kinds in lexical order.
func (s *Scene) Kinds() []domain.Kind {
	out := make([]domain.Kind, 0, len(s.kinds))
	for k := range s.kinds {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Len returns the number of valid nodes.
func (s *Scene) Len() int { return len(s.order) }

// Nodes returns the valid nodes in insertion order.
func (s *Scene) Nodes() []*Node {
	out := make([]*Node, len(s.order))
	for i, h := range s.order {
		out[i] = s.nodes[h]
	}
	return out
}

// Node returns the valid node with handle h.
func (s *Scene) Node(h domain.Handle) (*Node, error) {
	return s.live("node", h)
}

// Contains reports whether h refers to a valid node.
func (s *Scene) Contains(h domain.Handle) bool {
	_, ok := s.nodes[h]
	return ok
}

// AvailableNameLike returns the name a node created with candidate would receive.
func (s *Scene) AvailableNameLike(candidate string) (string, error) {
	return s.names.Reserve(candidate)
}

func (s *Scene) live(op string, h domain.Handle) (*Node, error) {
	n, ok := s.nodes[h]
	if !ok {
		return nil, domain.NewOpError(op, h.String(), domain.ErrInvalidReference, "node does not exist")
	}
	return n, nil
}

func (s *Scene) exact(name string) *Node {
	h, ok := s.names.Lookup(name)
	if !ok {
		return nil
	}
	return s.nodes[h]
}

func (s *Scene) nameOf(h domain.Handle) string {
	if n, ok := s.nodes[h]; ok {
		return n.name
	}
	return ""
}

// Resolve finds a node by name, consulting the name-miss handler on failure.
func (s *Scene) Resolve(name string) (*Node, error) {
	return s.resolve(name, false)
}

// Lookup finds a node by name without consulting the name-miss handler.
func (s *Scene) Lookup(name string) (*Node, bool) {
	n, err := s.resolve(name, true)
	return n, err == nil
}

func (s *Scene) resolve(name string, silent bool) (*Node, error) {
	if n := s.exact(name); n != nil {
		return n, nil
	}
	if n := s.descend(name); n != nil {
		return n, nil
	}
	if !silent && s.nameMiss != nil {
		if alt, ok := s.nameMiss(name); ok && alt != name {
			if n, err := s.resolve(alt, true); err == nil {
				s.logger.Debug("name resolved through miss handler", "name", name, "substitute", alt)
				return n, nil
			}
		}
	}
	return nil, domain.NewOpError("resolve", name, domain.ErrNameNotFound, "")
}

// descend resolves "comp/inner" through the managed map of comp, so that nodes whose
// qualified name was incremented on a collision are still found by their described name.
func (s *Scene) descend(name string) *Node {
	for i := len(name) - 1; i > 0; i-- {
		if name[i] != '/' {
			continue
		}
		comp := s.exact(name[:i])
		if comp == nil {
			continue
		}
		if n := s.within(comp, name[i+1:]); n != nil {
			return n
		}
	}
	return nil
}

func (s *Scene) within(comp *Node, inner string) *Node {
	c, ok := comp.data.(*ComponentData)
	if !ok {
		return nil
	}
	if h, ok := c.managed[inner]; ok {
		return s.nodes[h]
	}
	for i := len(inner) - 1; i > 0; i-- {
		if inner[i] != '/' {
			continue
		}
		if h, ok := c.managed[inner[:i]]; ok {
			if sub := s.nodes[h]; sub != nil {
				if n := s.within(sub, inner[i+1:]); n != nil {
					return n
				}
			}
		}
	}
	return nil
}

// refResolver resolves Go-side reference arguments.
func (s *Scene) refResolver() RefResolver {
	return func(ref any) (*Node, error) {
		switch v := ref.(type) {
		case domain.Handle:
			return s.live("reference", v)
		case *Node:
			if v == nil {
				return nil, fmt.Errorf("%w: nil node", domain.ErrInvalidReference)
			}
			return s.live("reference", v.handle)
		case string:
			n, err := s.resolve(v, false)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", domain.ErrInvalidReference, err)
			}
			return n, nil
		}
		return nil, fmt.Errorf("%w: unsupported reference %T", domain.ErrInvalidArgument, ref)
	}
}

// guard rejects structural edits while a solve is active.
func (s *Scene) guard(op string) error {
	if s.Solving() {
		return domain.NewOpError(op, "", domain.ErrSolveActive, "")
	}
	return nil
}

func (s *Scene) emitCreated(n *Node) {
	s.logger.Debug("node created", "node", n.name, "kind", n.kind, "handle", uint64(n.handle))
	if s.hooks.OnNodeCreated != nil {
		s.hooks.OnNodeCreated(s.ctx, &domain.NodeEvent{
			Timestamp: time.Now(), Scene: s.id.String(), Handle: n.handle, Name: n.name, Kind: n.kind,
		})
	}
}

func (s *Scene) emitDeleted(n *Node) {
	s.logger.Debug("node deleted", "node", n.name, "kind", n.kind, "handle", uint64(n.handle))
	if s.hooks.OnNodeDeleted != nil {
		s.hooks.OnNodeDeleted(s.ctx, &domain.NodeEvent{
			Timestamp: time.Now(), Scene: s.id.String(), Handle: n.handle, Name: n.name, Kind: n.kind,
		})
	}
}
