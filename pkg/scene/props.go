package scene

import (
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"

	"github.com/aretw0/keel/pkg/domain"
	"github.com/aretw0/keel/pkg/registry"
)

// Rename changes the name of h. The name is claimed exactly; a taken name fails with
// ErrNameUnavailable. Renaming a component renames the nodes it created.
func (s *Scene) Rename(h domain.Handle, name string) error {
	return s.SetProperty(h, domain.PropName, name)
}

// SetParent moves h under parent, keeping its local pose. NoHandle moves it to top level.
func (s *Scene) SetParent(h, parent domain.Handle) error {
	return s.SetProperty(h, domain.PropParent, parent)
}

// SetPosition sets the local position of a frame-like node or point.
func (s *Scene) SetPosition(h domain.Handle, position [3]float64) error {
	return s.SetProperty(h, domain.PropPosition, position)
}

// SetRotation sets the local Euler rotation (degrees) of a frame-like node.
func (s *Scene) SetRotation(h domain.Handle, rotation [3]float64) error {
	return s.SetProperty(h, domain.PropRotation, rotation)
}

// SetFixed sets the fixed mask of a frame-like node.
func (s *Scene) SetFixed(h domain.Handle, fixed domain.DOF) error {
	return s.SetProperty(h, domain.PropFixed, fixed)
}

// SetTags replaces the tags of h.
func (s *Scene) SetTags(h domain.Handle, tags []string) error {
	return s.SetProperty(h, domain.PropTags, tags)
}

// SetProperty changes one property of h. Changes to nodes created inside a component are
// recorded in the override store so they survive re-synchronization.
func (s *Scene) SetProperty(h domain.Handle, property domain.Property, value any) error {
	const op = "set"
	if err := s.guard(op); err != nil {
		return err
	}
	n, err := s.live(op, h)
	if err != nil {
		return err
	}
	if property == domain.PropPath {
		path, ok := value.(string)
		if !ok {
			return domain.NewOpError(op, n.name, domain.ErrInvalidArgument, "path must be a string, got %T", value)
		}
		return s.SetComponentPath(h, path)
	}
	if err := s.checkChange(op, n, property); err != nil {
		return err
	}
	if err := s.apply(n, property, value); err != nil {
		return &domain.OpError{Op: op, Node: n.name, Err: err}
	}
	s.recordOverride(n, property)
	return nil
}

// apply changes a property without consulting managers.
func (s *Scene) apply(n *Node, property domain.Property, value any) error {
	switch property {
	case domain.PropName:
		name, ok := value.(string)
		if !ok {
			return fmt.Errorf("%w: name must be a string, got %T", domain.ErrInvalidArgument, value)
		}
		return s.rename(n, name)
	case domain.PropParent:
		return s.reparent(n, value)
	case domain.PropTags:
		var tags []string
		if err := mapstructure.WeakDecode(value, &tags); err != nil {
			return fmt.Errorf("%w: tags: %v", domain.ErrInvalidArgument, err)
		}
		n.tags = tags
		return nil
	}

	spec := s.kinds[n.kind]
	args := n.data.Args(s.nameOf)
	if _, ok := args[string(property)]; !ok && !optionalArg(n, property) {
		return fmt.Errorf("%w: a %s has no property %q", domain.ErrInvalidArgument, n.kind, property)
	}
	if args == nil {
		args = make(map[string]any)
	}
	args[string(property)] = value
	fresh := spec.New()
	if err := spec.Decode(fresh, args, s.refResolver()); err != nil {
		return err
	}
	if u, ok := n.data.(updater); ok {
		return u.update(s, n, fresh)
	}
	s.exMu.Lock()
	n.data = fresh
	s.exMu.Unlock()
	return nil
}

// optionalArg lists properties a payload omits from its arguments while unset.
func optionalArg(n *Node, property domain.Property) bool {
	return n.kind == domain.KindCable && property == domain.PropSection
}

func (s *Scene) rename(n *Node, name string) error {
	if name == n.name {
		return nil
	}
	if err := registry.Validate(name); err != nil {
		return err
	}
	if !s.names.Available(name) {
		return fmt.Errorf("%w: %q is taken", domain.ErrNameUnavailable, name)
	}

	// nodes created inside a component carry its name as prefix
	type move struct {
		node     *Node
		from, to string
	}
	moves := []move{{n, n.name, name}}
	if n.kind == domain.KindComponent {
		prefix := n.name + domain.Separator
		for _, h := range s.order {
			c := s.nodes[h]
			if c != n && strings.HasPrefix(c.name, prefix) && s.createdWithin(c, n) {
				to := name + domain.Separator + strings.TrimPrefix(c.name, prefix)
				if !s.names.Available(to) {
					return fmt.Errorf("%w: %q is taken", domain.ErrNameUnavailable, to)
				}
				moves = append(moves, move{c, c.name, to})
			}
		}
	}

	for _, m := range moves {
		s.names.Release(m.from, m.node.handle)
	}
	for _, m := range moves {
		_ = s.names.Claim(m.to, m.node.handle)
		m.node.name = m.to
	}
	for _, m := range moves[1:] {
		s.moveOverrides(m.from, m.to)
	}
	return nil
}

// createdWithin reports whether c was created by root, directly or through nested managers.
func (s *Scene) createdWithin(c, root *Node) bool {
	seen := map[domain.Handle]bool{}
	for m, mgr := s.creatorOf(c); mgr != nil && !seen[m.handle]; m, mgr = s.creatorOf(m) {
		if m == root {
			return true
		}
		seen[m.handle] = true
	}
	return false
}

func (s *Scene) reparent(n *Node, value any) error {
	parent := domain.NoHandle
	if value != nil && value != domain.NoHandle && value != "" {
		p, err := s.refResolver()(value)
		if err != nil {
			return err
		}
		parent = p.handle
	}
	if parent == n.parent {
		return nil
	}
	if parent != domain.NoHandle {
		if !s.kinds[n.kind].Parented {
			return fmt.Errorf("%w: a %s can not have a parent", domain.ErrInvalidArgument, n.kind)
		}
		if _, err := s.parentFrame(parent); err != nil {
			return err
		}
		if s.ancestors(parent)[n.handle] {
			return fmt.Errorf("%w: %q is an ancestor of the new parent", domain.ErrStructuralCycle, n.name)
		}
	}
	n.parent = parent
	return nil
}

// recordOverride stores the current value of property if n was created inside a component.
func (s *Scene) recordOverride(n *Node, property domain.Property) {
	if s.suppress > 0 || !s.insideComponent(n) {
		return
	}
	var value any
	if property == domain.PropTags {
		value = n.Tags()
	} else {
		value = n.data.Args(s.nameOf)[string(property)]
	}
	if err := s.overrides.Set(s.ctx, n.name, property, value); err != nil {
		s.logger.Warn("override not recorded", "node", n.name, "property", property, "err", err)
		return
	}
	if s.recorded != nil {
		*s.recorded = append(*s.recorded, n.name)
	}
}

func (s *Scene) moveOverrides(from, to string) {
	props, err := s.overrides.Get(s.ctx, from)
	if err != nil || len(props) == 0 {
		return
	}
	for p, v := range props {
		if err := s.overrides.Set(s.ctx, to, p, v); err != nil {
			s.logger.Warn("override not moved", "node", from, "to", to, "err", err)
			return
		}
	}
	_ = s.overrides.Delete(s.ctx, from)
}

// reapplyOverrides restores the overrides recorded below prefix. Failures are logged and
// skipped: the node or property may no longer exist after a re-synchronization.
func (s *Scene) reapplyOverrides(prefix string) {
	list, err := s.overrides.List(s.ctx, prefix)
	if err != nil {
		s.logger.Warn("overrides not listed", "prefix", prefix, "err", err)
		return
	}
	for _, o := range list {
		n, ok := s.Lookup(o.Node)
		if !ok {
			s.logger.Warn("override not re-applied", "node", o.Node, "property", o.Property, "err", domain.ErrNameNotFound)
			continue
		}
		if err := s.checkChange("override", n, o.Property); err != nil {
			s.logger.Warn("override not re-applied", "node", o.Node, "property", o.Property, "err", err)
			continue
		}
		if err := s.apply(n, o.Property, o.Value); err != nil {
			s.logger.Warn("override not re-applied", "node", o.Node, "property", o.Property, "err", err)
		}
	}
}
