package scene

import (
	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/aretw0/keel/pkg/domain"
	"github.com/aretw0/keel/pkg/geometry"
)

const axisTolerance = 1e-9

// Dissolve removes h while keeping its contents: children move to h's parent with local
// poses that preserve their global poses, and the nodes a manager governed become ordinary
// nodes. Frames with free degrees of freedom, frames whose removal would re-orient the free
// axes of a child, and manager-created nodes can not be dissolved.
func (s *Scene) Dissolve(h domain.Handle) error {
	const op = "dissolve"
	if err := s.guard(op); err != nil {
		return err
	}
	n, err := s.live(op, h)
	if err != nil {
		return err
	}

	placed, isFrame := n.data.(Placed)
	if isFrame {
		if placed.DOF().AnyFree() {
			return domain.NewOpError(op, n.name, domain.ErrHasDegreesOfFreedom, "%d free", placed.DOF().FreeCount())
		}
		rotation := placed.Pose().Rotation
		for _, c := range s.Children(n.handle) {
			cp, ok := c.data.(Placed)
			if !ok || !cp.DOF().AnyFree() {
				continue
			}
			dof := cp.DOF()
			if !geometry.PreservesFreeAxes(rotation, dof.Translation(), axisTolerance) ||
				!geometry.PreservesFreeAxes(rotation, dof.Rotation(), axisTolerance) {
				return domain.NewOpError(op, n.name, domain.ErrWouldChangeDofOrientation, "child %q", c.name)
			}
		}
	}
	if m, mgr := s.creatorOf(n); mgr != nil {
		return domain.NewOpError(op, n.name, domain.ErrManagedNodeProtected, "created by %q", m.name)
	}
	for _, h := range s.dependents(n.handle) {
		d := s.nodes[h]
		for _, ref := range d.data.References() {
			if ref == n.handle {
				return domain.NewOpError(op, n.name, domain.ErrInvalidReference, "referenced by %q", d.name)
			}
		}
	}

	switch data := n.data.(type) {
	case *ComponentData:
		data.releaseAll(s, n)
	case Manager:
		if ok, reason := data.DissolveSome(s, n); !ok {
			return domain.NewOpError(op, n.name, domain.ErrManagedNodeProtected, "%s", reason)
		}
	default:
		if !isFrame {
			return domain.NewOpError(op, n.name, domain.ErrInvalidArgument, "a %s can not be dissolved", n.kind)
		}
	}

	if isFrame {
		pose := placed.Pose()
		for _, c := range s.Children(n.handle) {
			switch cd := c.data.(type) {
			case Placed:
				cd.SetPose(geometry.Compose(pose, cd.Pose()))
			case Positioned:
				p := cd.Point()
				g := pose.Apply(v3.Vec{X: p[0], Y: p[1], Z: p[2]})
				cd.SetPoint([3]float64{g.X, g.Y, g.Z})
			}
			c.parent = n.parent
		}
	}
	s.logger.Debug("node dissolved", "node", n.name, "kind", n.kind)
	s.remove(n)
	return nil
}
