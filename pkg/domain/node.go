package domain

// Kind names a node kind. New kinds are added through the Scene's kind table.
type Kind string

const (
	// KindFrame is a coordinate system with a local pose and six degrees of freedom.
	KindFrame Kind = "frame"
	// KindPoint is a position expressed in its parent frame.
	KindPoint Kind = "point"
	// KindSection is a cable cross-section. Sections are singletons: components and imports
	// reuse an existing section of the same name instead of creating a prefixed copy.
	KindSection Kind = "section"
	// KindCable connects two or more points and may reference a section.
	KindCable Kind = "cable"
	// KindAggregate is a plain manager owning the nodes created in its context.
	KindAggregate Kind = "aggregate"
	// KindComponent is a frame-like manager instantiated from an external description.
	KindComponent Kind = "component"
	// KindCoupling attaches a child frame to a parent frame through a hinge.
	KindCoupling Kind = "coupling"
)

// Property names a changeable node property.
type Property string

const (
	PropName     Property = "name"
	PropParent   Property = "parent"
	PropPosition Property = "position"
	PropRotation Property = "rotation"
	PropFixed    Property = "fixed"
	PropMass     Property = "mass"
	PropTags     Property = "tags"

	PropPath Property = "path"

	PropConnections Property = "connections"
	PropSection     Property = "section"
	PropLength      Property = "length"

	PropEA            Property = "ea"
	PropMassPerLength Property = "mass_per_length"
	PropDiameter      Property = "diameter"

	PropOffset Property = "offset"
)

// DOF is the fixed mask of a frame in the order x, y, z, rx, ry, rz.
// A true entry means the degree of freedom is fixed.
type DOF [6]bool

// AllFixed is the default mask of a new frame.
var AllFixed = DOF{true, true, true, true, true, true}

// AnyFree reports whether at least one degree of freedom is free.
func (d DOF) AnyFree() bool {
	for _, fixed := range d {
		if !fixed {
			return true
		}
	}
	return false
}

// FreeCount returns the number of free degrees of freedom.
func (d DOF) FreeCount() int {
	n := 0
	for _, fixed := range d {
		if !fixed {
			n++
		}
	}
	return n
}

// Translation returns the free mask of the translational axes.
func (d DOF) Translation() [3]bool {
	return [3]bool{!d[0], !d[1], !d[2]}
}

// Rotation returns the free mask of the rotational axes.
func (d DOF) Rotation() [3]bool {
	return [3]bool{!d[3], !d[4], !d[5]}
}
