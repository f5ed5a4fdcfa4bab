package scene

import (
	"github.com/aretw0/keel/pkg/domain"
)

// Delete removes h and everything depending on it, dependents first. A node created by a
// valid manager is only deleted if the manager gives up control through DissolveSome.
func (s *Scene) Delete(h domain.Handle) error {
	const op = "delete"
	if err := s.guard(op); err != nil {
		return err
	}
	n, err := s.live(op, h)
	if err != nil {
		return err
	}
	if m, mgr := s.creatorOf(n); mgr != nil {
		if ok, reason := mgr.DissolveSome(s, m); !ok {
			return domain.NewOpError(op, n.name, domain.ErrManagedNodeProtected, "%s", reason)
		}
		s.logger.Debug("manager released its nodes", "manager", m.name, "node", n.name)
	}
	s.deleteSet(n)
	return nil
}

// deleteSet removes root and its dependency closure. Managers in the closure first release
// the governed nodes they did not create, which may shrink the closure.
func (s *Scene) deleteSet(root *Node) {
	if !root.valid {
		return
	}
	var closure []domain.Handle
	for {
		closure = append([]domain.Handle{root.handle}, s.dependents(root.handle)...)
		released := false
		for _, h := range closure {
			n := s.nodes[h]
			if r, ok := n.data.(releaser); ok && r.holds(s, n) {
				r.release(s, n)
				released = true
			}
		}
		if !released {
			break
		}
	}

	order := s.topological(closure, s.dependencies)
	for i := len(order) - 1; i >= 0; i-- {
		if n, ok := s.nodes[order[i]]; ok {
			s.remove(n)
		}
	}
}
