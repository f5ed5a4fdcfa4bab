package scene

import (
	"fmt"

	"github.com/aretw0/keel/pkg/domain"
	"github.com/aretw0/keel/pkg/geometry"
)

// Names of the frames a coupling creates below its own name.
const (
	CouplingOnParent = "on_parent"
	CouplingHinge    = "hinge"
)

// CouplingData is the payload of a geometric coupling: it attaches ChildFrame to
// ParentFrame through a fixed frame at Offset and a hinge free about its z axis. The child
// is reparented to the hinge and governed by the coupling without being created by it.
// A child created by the coupling's own manager stays created by that manager.
type CouplingData struct {
	ParentFrame domain.Handle
	ChildFrame  domain.Handle
	Offset      [3]float64

	OnParent domain.Handle
	Hinge    domain.Handle

	restoreParent  domain.Handle
	restoreManager domain.Handle
	restorePose    geometry.Pose
	attached       bool
}

type couplingArgs struct {
	ParentFrame any        `mapstructure:"parent_frame" validate:"required"`
	ChildFrame  any        `mapstructure:"child_frame" validate:"required"`
	Offset      [3]float64 `mapstructure:"offset"`
}

func decodeCoupling(data NodeData, args map[string]any, refs RefResolver) error {
	var a couplingArgs
	if err := DecodeArgs(args, &a); err != nil {
		return err
	}
	c := data.(*CouplingData)
	parent, err := refs(a.ParentFrame)
	if err != nil {
		return err
	}
	child, err := refs(a.ChildFrame)
	if err != nil {
		return err
	}
	for _, n := range []*Node{parent, child} {
		if !n.FrameLike() {
			return fmt.Errorf("%w: coupling frame %q is a %s", domain.ErrInvalidReference, n.name, n.kind)
		}
	}
	c.ParentFrame, c.ChildFrame, c.Offset = parent.handle, child.handle, a.Offset
	return nil
}

// References returns the coupled frames.
func (c *CouplingData) References() []domain.Handle {
	return []domain.Handle{c.ParentFrame, c.ChildFrame}
}

func (c *CouplingData) Remap(fn func(domain.Handle) domain.Handle) {
	c.ParentFrame = fn(c.ParentFrame)
	c.ChildFrame = fn(c.ChildFrame)
	c.OnParent = fn(c.OnParent)
	c.Hinge = fn(c.Hinge)
	if c.restoreParent != domain.NoHandle {
		c.restoreParent = fn(c.restoreParent)
	}
	if c.restoreManager != domain.NoHandle {
		c.restoreManager = fn(c.restoreManager)
	}
}

func (c *CouplingData) Clone() NodeData { cp := *c; return &cp }

// Args describes the coupled frames by name.
func (c *CouplingData) Args(name func(domain.Handle) string) map[string]any {
	return map[string]any{
		"parent_frame":             name(c.ParentFrame),
		"child_frame":              name(c.ChildFrame),
		string(domain.PropOffset): c.Offset,
	}
}

func (c *CouplingData) generates() bool { return true }

func (c *CouplingData) init(s *Scene, self *Node) error {
	parent, child := s.nodes[c.ParentFrame], s.nodes[c.ChildFrame]
	if parent == nil || child == nil {
		return fmt.Errorf("%w: coupling frames must exist", domain.ErrInvalidReference)
	}
	if parent == child {
		return fmt.Errorf("%w: %q can not be coupled to itself", domain.ErrInvalidArgument, child.name)
	}
	if !c.canTake(self, child) {
		return fmt.Errorf("%w: %q is already managed", domain.ErrInvalidArgument, child.name)
	}
	if s.ancestors(parent.handle)[child.handle] {
		return fmt.Errorf("%w: %q is an ancestor of %q", domain.ErrStructuralCycle, child.name, parent.name)
	}

	fixed := domain.AllFixed
	onParent, err := s.create("create", newNode{
		kind:    domain.KindFrame,
		name:    domain.JoinName(self.name, CouplingOnParent),
		parent:  parent.handle,
		manager: self.handle,
		data:    &FrameData{Position: c.Offset, Fixed: fixed},
	})
	if err != nil {
		return err
	}
	free := domain.AllFixed
	free[5] = false
	hinge, err := s.create("create", newNode{
		kind:    domain.KindFrame,
		name:    domain.JoinName(self.name, CouplingHinge),
		parent:  onParent.handle,
		manager: self.handle,
		data:    &FrameData{Fixed: free},
	})
	if err != nil {
		return err
	}
	c.OnParent, c.Hinge = onParent.handle, hinge.handle
	c.attach(s, self, child)
	return nil
}

// canTake reports whether child is free or governed by the manager of the coupling itself.
func (c *CouplingData) canTake(self, child *Node) bool {
	return child.manager == domain.NoHandle || child.manager == self.handle || child.manager == self.manager
}

func (c *CouplingData) attach(s *Scene, self, child *Node) {
	c.restoreParent = child.parent
	c.restoreManager = domain.NoHandle
	if child.manager != self.handle {
		c.restoreManager = child.manager
	}
	if p, ok := child.data.(Placed); ok {
		c.restorePose = p.Pose()
		p.SetPose(geometry.Identity())
	}
	child.parent = c.Hinge
	child.manager = self.handle
	c.ChildFrame = child.handle
	c.attached = true
}

func (c *CouplingData) holds(s *Scene, self *Node) bool {
	return c.attached
}

// release hands the child frame back with its previous parent and pose.
func (c *CouplingData) release(s *Scene, self *Node) {
	c.attached = false
	child, ok := s.nodes[c.ChildFrame]
	if !ok || child.manager != self.handle {
		return
	}
	child.manager = domain.NoHandle
	if _, ok := s.nodes[c.restoreManager]; ok {
		child.manager = c.restoreManager
	}
	c.restoreManager = domain.NoHandle
	child.parent = domain.NoHandle
	if _, ok := s.nodes[c.restoreParent]; ok && !s.ancestors(c.restoreParent)[child.handle] {
		child.parent = c.restoreParent
	}
	if p, ok := child.data.(Placed); ok {
		p.SetPose(c.restorePose)
	}
}

// Creates reports whether n is one of the hinge frames.
func (c *CouplingData) Creates(s *Scene, n *Node) bool {
	return n.handle == c.OnParent || n.handle == c.Hinge
}

// lender returns the manager the child frame was taken from, or NoHandle.
func (c *CouplingData) lender(n *Node) domain.Handle {
	if c.attached && n.handle == c.ChildFrame {
		return c.restoreManager
	}
	return domain.NoHandle
}

// reattach applies a fresh description of the held child frame to the placement restored
// on release. The child stays on the hinge.
func (c *CouplingData) reattach(s *Scene, child *Node, nn newNode) error {
	c.restoreParent = nn.parent
	if p, ok := nn.data.(Placed); ok {
		c.restorePose = p.Pose()
	}
	if u, ok := child.data.(updater); ok {
		if err := u.update(s, child, nn.data); err != nil {
			return err
		}
	} else {
		child.data = nn.data
	}
	if p, ok := child.data.(Placed); ok {
		p.SetPose(geometry.Identity())
	}
	return nil
}

// DissolveSome refuses: the hinge frames exist only while the coupling does.
func (c *CouplingData) DissolveSome(s *Scene, self *Node) (bool, string) {
	return false, fmt.Sprintf("coupling %q keeps its hinge", self.name)
}

// TrySwap follows a replaced parent or child frame.
func (c *CouplingData) TrySwap(s *Scene, self *Node, old, new domain.Handle) bool {
	n, ok := s.nodes[new]
	if !ok || !n.FrameLike() {
		return false
	}
	switch old {
	case c.ParentFrame:
		c.ParentFrame = new
		if op, ok := s.nodes[c.OnParent]; ok {
			op.parent = new
		}
		return true
	case c.ChildFrame:
		if !c.canTake(self, n) {
			return false
		}
		if oldChild, ok := s.nodes[old]; ok && oldChild.manager == self.handle {
			oldChild.manager = domain.NoHandle
			if _, ok := s.nodes[c.restoreManager]; ok {
				oldChild.manager = c.restoreManager
			}
			oldChild.parent = domain.NoHandle
		}
		c.attach(s, self, n)
		return true
	}
	return false
}

// PropertyChangeAllowed protects the hinge frames and the placement of the child frame.
func (c *CouplingData) PropertyChangeAllowed(n *Node, property domain.Property) bool {
	if n.handle == c.ChildFrame {
		return property == domain.PropName || !structural(n, property)
	}
	return defaultAllowed(n, property)
}

// update applies a changed offset in place; changed frames rebuild the coupling.
func (c *CouplingData) update(s *Scene, self *Node, fresh NodeData) error {
	f := fresh.(*CouplingData)
	if f.ParentFrame == c.ParentFrame && f.ChildFrame == c.ChildFrame {
		c.Offset = f.Offset
		if op, ok := s.nodes[c.OnParent]; ok {
			if fd, ok := op.data.(*FrameData); ok {
				fd.Position = f.Offset
			}
		}
		return nil
	}
	if child, ok := s.nodes[f.ChildFrame]; ok && !c.canTake(self, child) {
		return fmt.Errorf("%w: %q is already managed", domain.ErrInvalidArgument, child.name)
	}
	c.release(s, self)
	for _, h := range []domain.Handle{c.Hinge, c.OnParent} {
		if n, ok := s.nodes[h]; ok {
			s.deleteSet(n)
		}
	}
	c.ParentFrame, c.ChildFrame, c.Offset = f.ParentFrame, f.ChildFrame, f.Offset
	return c.init(s, self)
}
