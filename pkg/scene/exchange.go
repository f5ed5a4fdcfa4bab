package scene

import (
	"fmt"
	"sync"

	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/aretw0/keel/pkg/domain"
	"github.com/aretw0/keel/pkg/geometry"
)

type solveState struct {
	mu     sync.Mutex
	active bool
	cancel func()
}

// BeginSolve marks the Scene as being solved until release is called. Structural edits fail
// with ErrSolveActive meanwhile; cancel is invoked by CancelSolve.
func (s *Scene) BeginSolve(cancel func()) (release func(), err error) {
	s.solve.mu.Lock()
	defer s.solve.mu.Unlock()
	if s.solve.active {
		return nil, domain.NewOpError("solve", "", domain.ErrSolveActive, "")
	}
	s.solve.active = true
	s.solve.cancel = cancel
	var once sync.Once
	return func() {
		once.Do(func() {
			s.solve.mu.Lock()
			s.solve.active = false
			s.solve.cancel = nil
			s.solve.mu.Unlock()
		})
	}, nil
}

// CancelSolve asks the active solve to stop. It returns false if no solve is active.
func (s *Scene) CancelSolve() bool {
	s.solve.mu.Lock()
	cancel := s.solve.cancel
	active := s.solve.active
	s.solve.mu.Unlock()
	if active && cancel != nil {
		cancel()
	}
	return active
}

// Solving reports whether a solve is active.
func (s *Scene) Solving() bool {
	s.solve.mu.Lock()
	defer s.solve.mu.Unlock()
	return s.solve.active
}

// FreeVariables returns the values of every free degree of freedom: frame-like nodes in
// topological order, and per node x, y, z, rx, ry, rz skipping fixed ones.
func (s *Scene) FreeVariables() []float64 {
	s.exMu.Lock()
	defer s.exMu.Unlock()
	var out []float64
	for _, p := range s.freeFrames() {
		values := poseValues(p.Pose())
		for i, fixed := range p.DOF() {
			if !fixed {
				out = append(out, values[i])
			}
		}
	}
	return out
}

// SetFreeVariables writes values back in the order of FreeVariables.
func (s *Scene) SetFreeVariables(values []float64) error {
	s.exMu.Lock()
	defer s.exMu.Unlock()
	frames := s.freeFrames()
	count := 0
	for _, p := range frames {
		count += p.DOF().FreeCount()
	}
	if len(values) != count {
		return fmt.Errorf("%w: %d free variables, got %d values", domain.ErrInvalidArgument, count, len(values))
	}
	k := 0
	for _, p := range frames {
		current := poseValues(p.Pose())
		for i, fixed := range p.DOF() {
			if !fixed {
				current[i] = values[k]
				k++
			}
		}
		p.SetPose(geometry.Pose{
			Position: v3.Vec{X: current[0], Y: current[1], Z: current[2]},
			Rotation: v3.Vec{X: current[3], Y: current[4], Z: current[5]},
		})
	}
	return nil
}

// StateUpdate recomputes the global pose of every frame-like node and point.
func (s *Scene) StateUpdate() {
	s.exMu.Lock()
	defer s.exMu.Unlock()
	for _, n := range s.TopologicalOrder() {
		parent := geometry.Identity()
		if p, ok := s.nodes[n.parent]; ok {
			parent = p.global
		}
		switch d := n.data.(type) {
		case Placed:
			n.global = geometry.Compose(parent, d.Pose())
		case Positioned:
			pt := d.Point()
			n.global = geometry.Pose{Position: parent.Apply(v3.Vec{X: pt[0], Y: pt[1], Z: pt[2]})}
		}
	}
}

// GlobalPose returns the pose of h in the Scene frame as of the last StateUpdate.
func (s *Scene) GlobalPose(h domain.Handle) (geometry.Pose, error) {
	n, err := s.live("global_pose", h)
	if err != nil {
		return geometry.Pose{}, err
	}
	s.exMu.Lock()
	defer s.exMu.Unlock()
	return n.global, nil
}

func (s *Scene) freeFrames() []Placed {
	var out []Placed
	for _, n := range s.TopologicalOrder() {
		if p, ok := n.data.(Placed); ok && p.DOF().AnyFree() {
			out = append(out, p)
		}
	}
	return out
}

func poseValues(p geometry.Pose) [6]float64 {
	return [6]float64{p.Position.X, p.Position.Y, p.Position.Z, p.Rotation.X, p.Rotation.Y, p.Rotation.Z}
}
