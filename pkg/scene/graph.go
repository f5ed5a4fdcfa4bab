package scene

import (
	"sort"

	"github.com/aretw0/keel/pkg/domain"
)

// dependencies returns the nodes n depends on: its parent, its manager and the references
// of its payload, without duplicates.
func (s *Scene) dependencies(n *Node) []domain.Handle {
	var deps []domain.Handle
	seen := make(map[domain.Handle]bool)
	add := func(h domain.Handle) {
		if h == domain.NoHandle || h == n.handle || seen[h] {
			return
		}
		if _, ok := s.nodes[h]; !ok {
			return
		}
		seen[h] = true
		deps = append(deps, h)
	}
	add(n.parent)
	add(n.manager)
	for _, h := range n.data.References() {
		add(h)
	}
	return deps
}

// reverseIndex maps every node to the nodes that depend on it directly.
func (s *Scene) reverseIndex() map[domain.Handle][]domain.Handle {
	idx := make(map[domain.Handle][]domain.Handle, len(s.order))
	for _, h := range s.order {
		for _, d := range s.dependencies(s.nodes[h]) {
			idx[d] = append(idx[d], h)
		}
	}
	return idx
}

// dependents returns every node depending on h directly or transitively, in insertion order.
func (s *Scene) dependents(h domain.Handle) []domain.Handle {
	idx := s.reverseIndex()
	seen := map[domain.Handle]bool{h: true}
	queue := []domain.Handle{h}
	var out []domain.Handle
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, d := range idx[cur] {
			if !seen[d] {
				seen[d] = true
				out = append(out, d)
				queue = append(queue, d)
			}
		}
	}
	// handles are allocated in insertion order
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// DependingOn returns every node that depends on h directly or transitively.
func (s *Scene) DependingOn(h domain.Handle) ([]*Node, error) {
	if _, err := s.live("depending_on", h); err != nil {
		return nil, err
	}
	return s.handlesToNodes(s.dependents(h)), nil
}

// TopologicalOrder returns every node after the nodes it depends on. Ties keep insertion
// order; edges closing a reference cycle are ignored.
func (s *Scene) TopologicalOrder() []*Node {
	return s.handlesToNodes(s.topological(s.order, s.dependencies))
}

// topological orders handles depth-first: a node is emitted after every dependency that is
// part of handles.
func (s *Scene) topological(handles []domain.Handle, deps func(*Node) []domain.Handle) []domain.Handle {
	in := make(map[domain.Handle]bool, len(handles))
	for _, h := range handles {
		in[h] = true
	}
	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[domain.Handle]int, len(handles))
	out := make([]domain.Handle, 0, len(handles))

	var visit func(h domain.Handle)
	visit = func(h domain.Handle) {
		if state[h] != unvisited {
			return // back edges of cycles land here while visiting
		}
		state[h] = visiting
		ds := deps(s.nodes[h])
		sort.Slice(ds, func(i, j int) bool { return ds[i] < ds[j] })
		for _, d := range ds {
			if in[d] {
				visit(d)
			}
		}
		state[h] = done
		out = append(out, h)
	}

	sorted := append([]domain.Handle(nil), handles...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	for _, h := range sorted {
		visit(h)
	}
	return out
}

// PlacementParent returns the nearest ancestor of h accepted by visible, for tree views.
// A node governed but not created by a coupling is placed under the coupling. Otherwise the
// parent chain is walked; an invisible ancestor created by a manager defers to the manager's
// public boundary. The manager chain of h is tried last. NoHandle means top level.
func (s *Scene) PlacementParent(h domain.Handle, visible func(*Node) bool) (domain.Handle, error) {
	n, err := s.live("placement_parent", h)
	if err != nil {
		return domain.NoHandle, err
	}
	if m, ok := s.nodes[n.manager]; ok {
		if mgr, ok := m.data.(*CouplingData); ok && !mgr.Creates(s, n) && visible(m) {
			return m.handle, nil
		}
	}

	seen := map[domain.Handle]bool{n.handle: true}
	for p, ok := s.nodes[n.parent]; ok && !seen[p.handle]; p, ok = s.nodes[p.parent] {
		seen[p.handle] = true
		if visible(p) {
			return p.handle, nil
		}
		if b := s.visibleManager(p, visible); b != domain.NoHandle && b != n.handle {
			return b, nil
		}
	}
	if b := s.visibleManager(n, visible); b != domain.NoHandle {
		return b, nil
	}
	return domain.NoHandle, nil
}

func (s *Scene) visibleManager(n *Node, visible func(*Node) bool) domain.Handle {
	seen := map[domain.Handle]bool{n.handle: true}
	for m, ok := s.nodes[n.manager]; ok && !seen[m.handle]; m, ok = s.nodes[m.manager] {
		seen[m.handle] = true
		if visible(m) {
			return m.handle
		}
	}
	return domain.NoHandle
}

// Children returns the nodes whose parent is h, in insertion order.
func (s *Scene) Children(h domain.Handle) []*Node {
	var out []*Node
	for _, c := range s.order {
		if n := s.nodes[c]; n.parent == h && h != domain.NoHandle {
			out = append(out, n)
		}
	}
	return out
}

// Managed returns the nodes whose manager is h, in insertion order.
func (s *Scene) Managed(h domain.Handle) []*Node {
	var out []*Node
	for _, c := range s.order {
		if n := s.nodes[c]; n.manager == h && h != domain.NoHandle {
			out = append(out, n)
		}
	}
	return out
}

// ancestors returns every node reachable from h through parent and manager edges, h included.
func (s *Scene) ancestors(h domain.Handle) map[domain.Handle]bool {
	seen := make(map[domain.Handle]bool)
	stack := []domain.Handle{h}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n, ok := s.nodes[cur]
		if !ok || seen[cur] {
			continue
		}
		seen[cur] = true
		stack = append(stack, n.parent, n.manager)
	}
	return seen
}

func (s *Scene) handlesToNodes(hs []domain.Handle) []*Node {
	out := make([]*Node, 0, len(hs))
	for _, h := range hs {
		if n, ok := s.nodes[h]; ok {
			out = append(out, n)
		}
	}
	return out
}
