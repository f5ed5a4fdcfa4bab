package scene

import (
	"github.com/aretw0/keel/pkg/domain"
	"github.com/aretw0/keel/pkg/geometry"
)

// Node is one element of a Scene. Its fields are owned by the Scene and changed only
// through Scene operations; a *Node kept after deletion reports Valid() == false and every
// operation given its handle fails with domain.ErrInvalidReference.
type Node struct {
	handle  domain.Handle
	name    string
	kind    domain.Kind
	parent  domain.Handle
	manager domain.Handle
	valid   bool
	tags    []string
	data    NodeData

	// global is the last pose computed by StateUpdate for frame-like nodes and points.
	global geometry.Pose
}

// Handle returns the stable handle of the node. Handles are never reused.
func (n *Node) Handle() domain.Handle { return n.handle }

// Name returns the fully-qualified name.
func (n *Node) Name() string { return n.name }

// Kind returns the kind tag selecting the payload type.
func (n *Node) Kind() domain.Kind { return n.kind }

// Parent returns the handle of the parent frame, or domain.NoHandle.
func (n *Node) Parent() domain.Handle { return n.parent }

// Manager returns the handle of the governing manager, or domain.NoHandle.
func (n *Node) Manager() domain.Handle { return n.manager }

// Valid reports whether the node is still part of its Scene.
func (n *Node) Valid() bool { return n.valid }

// Data returns the kind-specific payload.
func (n *Node) Data() NodeData { return n.data }

// Tags returns a copy of the node's tags.
func (n *Node) Tags() []string {
	return append([]string(nil), n.tags...)
}

// HasTag reports whether the node carries tag.
func (n *Node) HasTag(tag string) bool {
	for _, t := range n.tags {
		if t == tag {
			return true
		}
	}
	return false
}

// FrameLike reports whether the node has a local pose and can parent other nodes.
func (n *Node) FrameLike() bool {
	_, ok := n.data.(Placed)
	return ok
}

// NodeData is the kind-specific payload of a node.
type NodeData interface {
	// References returns the nodes the payload refers to, excluding parent and manager.
	References() []domain.Handle
	// Remap rewrites every reference through fn.
	Remap(fn func(domain.Handle) domain.Handle)
	// Clone returns a deep copy.
	Clone() NodeData
	// Args returns the description arguments of the payload with references given as names.
	Args(name func(domain.Handle) string) map[string]any
}

// Placed is implemented by frame-like payloads.
type Placed interface {
	Pose() geometry.Pose
	SetPose(geometry.Pose)
	DOF() domain.DOF
}

// Positioned is implemented by payloads with a position but no orientation.
type Positioned interface {
	Point() [3]float64
	SetPoint([3]float64)
}
