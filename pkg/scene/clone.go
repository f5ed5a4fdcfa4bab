package scene

import (
	"strings"

	"github.com/google/uuid"

	"github.com/aretw0/keel/pkg/adapters/memory"
	"github.com/aretw0/keel/pkg/domain"
	"github.com/aretw0/keel/pkg/registry"
)

// Copy returns an independent Scene with the same nodes, handles, names and settings.
// Overrides are snapshotted into an in-memory store unless opts supply one. Component
// sources are not fetched again. Copy may run during a solve and sees a consistent set of
// poses.
func (s *Scene) Copy(opts ...Option) (*Scene, error) {
	snapshot := memory.NewStore()
	list, err := s.overrides.List(s.ctx, "")
	if err != nil {
		return nil, &domain.OpError{Op: "copy", Err: err}
	}
	for _, o := range list {
		_ = snapshot.Set(s.ctx, o.Node, o.Property, o.Value)
	}

	base := append(s.options(), WithOverrideStore(snapshot), WithID(uuid.New()))
	c := New(append(base, opts...)...)
	c.next = s.next
	c.names = s.names.Clone()
	c.order = append([]domain.Handle(nil), s.order...)
	// poses may be written by an active solve
	s.exMu.Lock()
	for h, n := range s.nodes {
		cp := *n
		cp.tags = n.Tags()
		cp.data = n.data.Clone()
		c.nodes[h] = &cp
	}
	s.exMu.Unlock()
	if c.overrides != snapshot {
		for _, o := range list {
			if err := c.overrides.Set(c.ctx, o.Node, o.Property, o.Value); err != nil {
				return nil, &domain.OpError{Op: "copy", Node: o.Node, Err: err}
			}
		}
	}
	s.logger.Debug("scene copied", "from", s.id, "to", c.id, "nodes", len(c.order))
	return c, nil
}

// Duplicate clones h and everything depending on it. References inside the cloned set are
// rewritten to the clones; references leaving it are kept. The clone of h gets a name like
// h's, and a node created by a duplicated manager moves below that manager's new name.
func (s *Scene) Duplicate(h domain.Handle) (*Node, error) {
	const op = "duplicate"
	if err := s.guard(op); err != nil {
		return nil, err
	}
	root, err := s.live(op, h)
	if err != nil {
		return nil, err
	}
	if m, mgr := s.creatorOf(root); mgr != nil {
		return nil, domain.NewOpError(op, root.name, domain.ErrManagedNodeProtected, "created by %q", m.name)
	}

	set := append([]domain.Handle{root.handle}, s.dependents(root.handle)...)
	order := s.topological(set, s.dependencies)

	identity := make(map[domain.Handle]domain.Handle, len(order))
	next := s.next
	for _, old := range order {
		next++
		identity[old] = next
	}
	remap := func(h domain.Handle) domain.Handle {
		if n, ok := identity[h]; ok {
			return n
		}
		return h
	}

	taken := make(map[string]bool, len(order))
	reserve := func(candidate string) (string, error) {
		name, err := s.names.Reserve(candidate)
		if err != nil {
			return "", err
		}
		for taken[name] || !s.names.Available(name) {
			name = registry.Increment(name)
		}
		taken[name] = true
		return name, nil
	}

	rootName, err := reserve(root.name)
	if err != nil {
		return nil, &domain.OpError{Op: op, Node: root.name, Err: err}
	}
	prefix := root.name + domain.Separator
	renamed := map[string]string{root.name: rootName}
	for _, old := range order {
		n := s.nodes[old]
		if n == root {
			continue
		}
		candidate := s.duplicateName(n, renamed)
		if candidate == n.name && strings.HasPrefix(candidate, prefix) {
			candidate = rootName + domain.Separator + strings.TrimPrefix(candidate, prefix)
		}
		name, err := reserve(candidate)
		if err != nil {
			return nil, &domain.OpError{Op: op, Node: n.name, Err: err}
		}
		renamed[n.name] = name
	}

	var clones []*Node
	for _, old := range order {
		n := s.nodes[old]
		data := n.data.Clone()
		data.Remap(remap)
		cp := &Node{
			handle:  identity[old],
			name:    renamed[n.name],
			kind:    n.kind,
			parent:  remap(n.parent),
			manager: remap(n.manager),
			valid:   true,
			tags:    n.Tags(),
			data:    data,
		}
		if _, inside := identity[n.manager]; !inside && n.manager != domain.NoHandle {
			// governed by a manager outside the set: aggregates take the clone as a member
			cp.manager = domain.NoHandle
			if m, ok := s.nodes[n.manager]; ok {
				if a, ok := m.data.(adopter); ok {
					a.adopt(cp.handle)
					cp.manager = m.handle
				}
			}
		}
		clones = append(clones, cp)
	}

	s.next = next
	for _, cp := range clones {
		_ = s.names.Claim(cp.name, cp.handle)
		s.nodes[cp.handle] = cp
		s.order = append(s.order, cp.handle)
	}
	for from, to := range renamed {
		if props, err := s.overrides.Get(s.ctx, from); err == nil {
			for p, v := range props {
				_ = s.overrides.Set(s.ctx, to, p, v)
			}
		}
	}
	for _, cp := range clones {
		s.emitCreated(cp)
	}
	return s.nodes[identity[root.handle]], nil
}

// duplicateName rewrites the name of n below the new name of the nearest creator already
// renamed, or returns it unchanged.
func (s *Scene) duplicateName(n *Node, renamed map[string]string) string {
	seen := map[domain.Handle]bool{}
	for m, mgr := s.creatorOf(n); mgr != nil && !seen[m.handle]; m, mgr = s.creatorOf(m) {
		seen[m.handle] = true
		head := m.name + domain.Separator
		if to, ok := renamed[m.name]; ok && strings.HasPrefix(n.name, head) {
			return to + domain.Separator + strings.TrimPrefix(n.name, head)
		}
	}
	return n.name
}
