package scene

import (
	"github.com/aretw0/keel/pkg/domain"
)

// Describe returns the description reconstructing the Scene: singletons first, then every
// node not rebuilt by a generating manager, each after what it depends on, then the
// overrides recorded for component content.
func (s *Scene) Describe() *domain.Description {
	s.exMu.Lock()
	defer s.exMu.Unlock()
	desc := &domain.Description{Format: domain.FormatVersion, Settings: s.settings}

	var rest []domain.Handle
	for _, h := range s.order {
		n := s.nodes[h]
		if s.generated(n) {
			continue
		}
		if s.kinds[n.kind].Singleton {
			desc.Ops = append(desc.Ops, s.describeNode(n))
			continue
		}
		rest = append(rest, h)
	}

	var components []*Node
	for _, h := range s.topological(rest, s.exportDependencies) {
		n := s.nodes[h]
		desc.Ops = append(desc.Ops, s.describeNode(n))
		if n.kind == domain.KindComponent {
			components = append(components, n)
		}
	}

	for _, c := range components {
		list, err := s.overrides.List(s.ctx, c.name)
		if err != nil {
			s.logger.Warn("overrides not described", "component", c.name, "err", err)
			continue
		}
		for _, o := range list {
			if _, ok := s.Lookup(o.Node); !ok {
				continue
			}
			desc.Ops = append(desc.Ops, domain.Op{Op: domain.OpSet, Target: o.Node, Property: o.Property, Value: o.Value})
		}
	}
	return desc
}

func (s *Scene) describeNode(n *Node) domain.Op {
	op := domain.Op{
		Op:   domain.OpCreate,
		Kind: n.kind,
		Name: n.name,
		Args: n.data.Args(s.nameOf),
		Tags: n.Tags(),
	}
	parent := n.parent
	if m, ok := s.nodes[n.manager]; ok {
		switch mgr := m.data.(type) {
		case *AggregateData:
			op.Manager = m.name
		case *CouplingData:
			// the coupling re-attaches the child frame when it is replayed
			if mgr.ChildFrame == n.handle {
				parent = mgr.restoreParent
				position, rotation := mgr.restorePose.Arrays()
				op.Args[string(domain.PropPosition)] = position
				op.Args[string(domain.PropRotation)] = rotation
				if a, ok := s.nodes[mgr.restoreManager]; ok && a.kind == domain.KindAggregate {
					op.Manager = a.name
				}
			}
		}
	}
	op.Parent = s.nameOf(parent)
	if len(op.Tags) == 0 {
		op.Tags = nil
	}
	if len(op.Args) == 0 {
		op.Args = nil
	}
	return op
}

// exportDependencies orders description ops: a reference to a generated node depends on
// the manager generating it.
func (s *Scene) exportDependencies(n *Node) []domain.Handle {
	var deps []domain.Handle
	add := func(h domain.Handle) {
		if h == domain.NoHandle || h == n.handle {
			return
		}
		deps = append(deps, s.exportAnchor(h))
	}
	parent := n.parent
	if m, ok := s.nodes[n.manager]; ok {
		switch mgr := m.data.(type) {
		case *AggregateData:
			add(m.handle)
		case *CouplingData:
			if mgr.ChildFrame == n.handle {
				parent = mgr.restoreParent
				if a, ok := s.nodes[mgr.restoreManager]; ok && a.kind == domain.KindAggregate {
					add(a.handle)
				}
			}
		}
	}
	add(parent)
	for _, h := range n.data.References() {
		add(h)
	}
	return deps
}

func (s *Scene) exportAnchor(h domain.Handle) domain.Handle {
	seen := map[domain.Handle]bool{}
	for n, ok := s.nodes[h]; ok && s.generated(n) && !seen[n.handle]; n, ok = s.nodes[h] {
		seen[n.handle] = true
		m, _ := s.creatorOf(n)
		if m == nil {
			break
		}
		h = m.handle
	}
	return h
}
