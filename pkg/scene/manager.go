package scene

import (
	"github.com/aretw0/keel/pkg/domain"
)

// Manager is implemented by payloads that govern other nodes.
type Manager interface {
	// Creates reports whether the manager created n (as opposed to merely governing it).
	Creates(s *Scene, n *Node) bool
	// DissolveSome asks the manager to give up control over its created nodes. It returns
	// false with a reason when it refuses.
	DissolveSome(s *Scene, self *Node) (bool, string)
	// TrySwap asks the manager to replace its references to old by new.
	TrySwap(s *Scene, self *Node, old, new domain.Handle) bool
	// PropertyChangeAllowed reports whether property of a governed node may change.
	PropertyChangeAllowed(n *Node, property domain.Property) bool
}

// generator marks managers whose created nodes are rebuilt from the manager itself and so
// are not written to descriptions.
type generator interface {
	generates() bool
}

// releaser is implemented by managers holding governed nodes they did not create; release
// hands them back before the manager is deleted.
type releaser interface {
	holds(s *Scene, self *Node) bool
	release(s *Scene, self *Node)
}

// updater is implemented by payloads that merge a freshly decoded payload into themselves
// instead of being replaced, preserving their internal state.
type updater interface {
	update(s *Scene, self *Node, fresh NodeData) error
}

// managerOf returns the valid manager of n and its capabilities.
func (s *Scene) managerOf(n *Node) (*Node, Manager) {
	m, ok := s.nodes[n.manager]
	if !ok {
		return nil, nil
	}
	mgr, ok := m.data.(Manager)
	if !ok {
		return nil, nil
	}
	return m, mgr
}

// lender is implemented by managers governing nodes they took from another manager.
type lender interface {
	lender(n *Node) domain.Handle
}

// creatorOf returns the valid manager that created n, if any. A node taken over by a
// manager that did not create it still belongs to the manager it was taken from.
func (s *Scene) creatorOf(n *Node) (*Node, Manager) {
	m, mgr := s.managerOf(n)
	if mgr == nil {
		return nil, nil
	}
	if mgr.Creates(s, n) {
		return m, mgr
	}
	l, ok := mgr.(lender)
	if !ok {
		return nil, nil
	}
	o, ok := s.nodes[l.lender(n)]
	if !ok {
		return nil, nil
	}
	if omgr, ok := o.data.(Manager); ok && omgr.Creates(s, n) {
		return o, omgr
	}
	return nil, nil
}

// generated reports whether n is rebuilt by a generating manager somewhere up its creator
// chain.
func (s *Scene) generated(n *Node) bool {
	seen := map[domain.Handle]bool{}
	for m, mgr := s.creatorOf(n); mgr != nil && !seen[m.handle]; m, mgr = s.creatorOf(m) {
		seen[m.handle] = true
		if g, ok := mgr.(generator); ok && g.generates() {
			return true
		}
	}
	return false
}

// insideComponent reports whether n was created by a component, directly or through
// nested managers. Property changes on such nodes are overrides.
func (s *Scene) insideComponent(n *Node) bool {
	seen := map[domain.Handle]bool{}
	for m, mgr := s.creatorOf(n); mgr != nil && !seen[m.handle]; m, mgr = s.creatorOf(m) {
		seen[m.handle] = true
		if _, ok := mgr.(*ComponentData); ok {
			return true
		}
	}
	return false
}

// structural reports whether property belongs to the structure a manager fixes for the
// nodes it creates.
func structural(n *Node, property domain.Property) bool {
	switch property {
	case domain.PropName, domain.PropParent:
		return true
	case domain.PropPosition, domain.PropRotation, domain.PropFixed:
		return n.FrameLike()
	case domain.PropPath:
		return n.kind == domain.KindComponent
	}
	return false
}

// defaultAllowed is the consent rule shared by managers: created nodes keep their
// structure, everything else may change.
func defaultAllowed(n *Node, property domain.Property) bool {
	return !structural(n, property)
}

// checkChange fails with ErrPropertyChangeNotAllowed when n's manager refuses the change.
func (s *Scene) checkChange(op string, n *Node, property domain.Property) error {
	m, mgr := s.managerOf(n)
	if mgr == nil {
		return nil
	}
	if !mgr.PropertyChangeAllowed(n, property) {
		return domain.NewOpError(op, n.name, domain.ErrPropertyChangeNotAllowed, "%s is managed by %q", property, m.name)
	}
	if c, cmgr := s.creatorOf(n); cmgr != nil && c != m && !cmgr.PropertyChangeAllowed(n, property) {
		return domain.NewOpError(op, n.name, domain.ErrPropertyChangeNotAllowed, "%s is managed by %q", property, c.name)
	}
	return nil
}

// AggregateData is the payload of plain aggregate managers. Members are created through
// CreateIn and released when the aggregate is dissolved.
type AggregateData struct {
	Members []domain.Handle
}

// References is empty: members are tracked through their manager field.
func (a *AggregateData) References() []domain.Handle { return nil }

// Remap rewrites the member handles.
func (a *AggregateData) Remap(fn func(domain.Handle) domain.Handle) {
	for i, h := range a.Members {
		a.Members[i] = fn(h)
	}
}

// Clone copies the member list.
func (a *AggregateData) Clone() NodeData {
	return &AggregateData{Members: append([]domain.Handle(nil), a.Members...)}
}

// Args is empty; members describe their aggregate themselves.
func (a *AggregateData) Args(func(domain.Handle) string) map[string]any { return nil }

func (a *AggregateData) adopt(h domain.Handle) { a.Members = append(a.Members, h) }

func (a *AggregateData) forget(h domain.Handle) {
	for i, m := range a.Members {
		if m == h {
			a.Members = append(a.Members[:i], a.Members[i+1:]...)
			return
		}
	}
}

// Creates reports whether n is a member.
func (a *AggregateData) Creates(s *Scene, n *Node) bool {
	for _, m := range a.Members {
		if m == n.handle {
			return true
		}
	}
	return false
}

// DissolveSome releases every member; they become ordinary nodes.
func (a *AggregateData) DissolveSome(s *Scene, self *Node) (bool, string) {
	for _, h := range a.Members {
		if n, ok := s.nodes[h]; ok && n.manager == self.handle {
			n.manager = domain.NoHandle
		}
	}
	a.Members = nil
	return true, ""
}

// TrySwap replaces a member by its successor.
func (a *AggregateData) TrySwap(s *Scene, self *Node, old, new domain.Handle) bool {
	for i, m := range a.Members {
		if m == old {
			a.Members[i] = new
			return true
		}
	}
	return false
}

// PropertyChangeAllowed keeps the structure of members fixed.
func (a *AggregateData) PropertyChangeAllowed(n *Node, property domain.Property) bool {
	return defaultAllowed(n, property)
}
