package scene

import (
	"fmt"

	"github.com/aretw0/keel/pkg/domain"
	"github.com/aretw0/keel/pkg/registry"
)

// initializer is implemented by payloads that build governed structure when their node is
// created (couplings create their hinge, components load their description).
type initializer interface {
	init(s *Scene, self *Node) error
}

// member tracking for managers that keep an ordered member list
type adopter interface {
	adopt(h domain.Handle)
}

type forgetter interface {
	forget(h domain.Handle)
}

type newNode struct {
	kind    domain.Kind
	name    string
	exact   bool
	parent  domain.Handle
	manager domain.Handle
	data    NodeData
	tags    []string
}

// Create adds a node of kind named like name (incremented if taken) under parent.
// args are decoded with the kind's decoder; node references may be names, handles or nodes.
func (s *Scene) Create(kind domain.Kind, name string, parent domain.Handle, args map[string]any) (*Node, error) {
	return s.createFromArgs("create", domain.NoHandle, kind, name, parent, args)
}

// CreateIn creates a node in the context of an aggregate manager, which owns it.
func (s *Scene) CreateIn(manager domain.Handle, kind domain.Kind, name string, parent domain.Handle, args map[string]any) (*Node, error) {
	const op = "create"
	m, err := s.live(op, manager)
	if err != nil {
		return nil, err
	}
	if _, ok := m.data.(*AggregateData); !ok {
		return nil, domain.NewOpError(op, name, domain.ErrInvalidArgument, "%q is a %s and does not accept members", m.name, m.kind)
	}
	return s.createFromArgs(op, manager, kind, name, parent, args)
}

func (s *Scene) createFromArgs(op string, manager domain.Handle, kind domain.Kind, name string, parent domain.Handle, args map[string]any) (*Node, error) {
	if err := s.guard(op); err != nil {
		return nil, err
	}
	spec, ok := s.kinds[kind]
	if !ok {
		return nil, domain.NewOpError(op, name, domain.ErrUnknownKind, "%s", kind)
	}
	data := spec.New()
	if err := spec.Decode(data, args, s.refResolver()); err != nil {
		return nil, &domain.OpError{Op: op, Node: name, Err: err}
	}
	return s.create(op, newNode{kind: kind, name: name, parent: parent, manager: manager, data: data})
}

// create validates and inserts a decoded node, running its initializer. On failure nothing
// created by the call remains.
func (s *Scene) create(op string, nn newNode) (*Node, error) {
	spec, ok := s.kinds[nn.kind]
	if !ok {
		return nil, domain.NewOpError(op, nn.name, domain.ErrUnknownKind, "%s", nn.kind)
	}
	if nn.parent != domain.NoHandle {
		if !spec.Parented {
			return nil, domain.NewOpError(op, nn.name, domain.ErrInvalidArgument, "a %s can not have a parent", nn.kind)
		}
		if _, err := s.parentFrame(nn.parent); err != nil {
			return nil, &domain.OpError{Op: op, Node: nn.name, Err: err}
		}
	}
	if nn.manager != domain.NoHandle {
		m, ok := s.nodes[nn.manager]
		if !ok {
			return nil, domain.NewOpError(op, nn.name, domain.ErrInvalidReference, "manager does not exist")
		}
		if _, ok := m.data.(Manager); !ok {
			return nil, domain.NewOpError(op, nn.name, domain.ErrInvalidReference, "%q is not a manager", m.name)
		}
	}

	name := nn.name
	if nn.exact {
		if !s.names.Available(name) {
			return nil, domain.NewOpError(op, name, domain.ErrNameUnavailable, "")
		}
	} else {
		var err error
		if name, err = s.names.Reserve(name); err != nil {
			return nil, &domain.OpError{Op: op, Node: nn.name, Err: err}
		}
	}

	n := s.insert(nn, name)
	if in, ok := n.data.(initializer); ok {
		if err := in.init(s, n); err != nil {
			s.deleteSet(n)
			return nil, &domain.OpError{Op: op, Node: name, Err: err}
		}
	}
	s.emitCreated(n)
	return n, nil
}

// insert appends a node without validation. name must be available.
func (s *Scene) insert(nn newNode, name string) *Node {
	s.next++
	n := &Node{
		handle:  s.next,
		name:    name,
		kind:    nn.kind,
		parent:  nn.parent,
		manager: nn.manager,
		valid:   true,
		tags:    append([]string(nil), nn.tags...),
		data:    nn.data,
	}
	// claim can not fail: the name was reserved or checked just before
	_ = s.names.Claim(name, n.handle)
	s.nodes[n.handle] = n
	s.order = append(s.order, n.handle)
	if m, ok := s.nodes[nn.manager]; ok {
		if a, ok := m.data.(adopter); ok {
			a.adopt(n.handle)
		}
	}
	return n
}

// parentFrame returns the frame-like node h.
func (s *Scene) parentFrame(h domain.Handle) (*Node, error) {
	p, ok := s.nodes[h]
	if !ok {
		return nil, fmt.Errorf("%w: parent %s does not exist", domain.ErrInvalidReference, h)
	}
	if !p.FrameLike() {
		return nil, fmt.Errorf("%w: parent %q is a %s, not a frame", domain.ErrInvalidReference, p.name, p.kind)
	}
	return p, nil
}

// remove takes a single node out of the Scene. Callers guarantee nothing valid still
// depends on it.
func (s *Scene) remove(n *Node) {
	if !n.valid {
		return
	}
	n.valid = false
	s.names.Release(n.name, n.handle)
	delete(s.nodes, n.handle)
	for i, h := range s.order {
		if h == n.handle {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	if m, ok := s.nodes[n.manager]; ok {
		if f, ok := m.data.(forgetter); ok {
			f.forget(n.handle)
		}
		if l, ok := m.data.(lender); ok {
			if o, ok := s.nodes[l.lender(n)]; ok {
				if f, ok := o.data.(forgetter); ok {
					f.forget(n.handle)
				}
			}
		}
	}
	s.emitDeleted(n)
}

// Clear removes every node.
func (s *Scene) Clear() error {
	if err := s.guard("clear"); err != nil {
		return err
	}
	for len(s.order) > 0 {
		s.deleteSet(s.nodes[s.order[0]])
	}
	s.names = registry.NewRegistry()
	return nil
}
