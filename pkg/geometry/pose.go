// Package geometry composes and decomposes frame poses.
//
// A pose is a translation followed by a rotation given as Euler angles in degrees, applied
// about Z, then Y, then X (R = Rz·Ry·Rx). Matrices are sdfx M44 values.
package geometry

import (
	"math"

	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Tolerance is the default comparison tolerance for poses and axes.
const Tolerance = 1e-9

// Pose is a local placement relative to a parent frame.
type Pose struct {
	Position v3.Vec
	Rotation v3.Vec // Euler angles in degrees
}

// Identity returns the pose at the origin without rotation.
func Identity() Pose { return Pose{} }

// FromArrays builds a pose from plain position and rotation triples.
func FromArrays(position, rotation [3]float64) Pose {
	return Pose{
		Position: v3.Vec{X: position[0], Y: position[1], Z: position[2]},
		Rotation: v3.Vec{X: rotation[0], Y: rotation[1], Z: rotation[2]},
	}
}

// Arrays returns the position and rotation as plain triples.
func (p Pose) Arrays() (position, rotation [3]float64) {
	return [3]float64{p.Position.X, p.Position.Y, p.Position.Z},
		[3]float64{p.Rotation.X, p.Rotation.Y, p.Rotation.Z}
}

// RotationMatrix returns Rz·Ry·Rx for Euler angles in degrees.
func RotationMatrix(rotation v3.Vec) sdf.M44 {
	return sdf.RotateZ(radians(rotation.Z)).
		Mul(sdf.RotateY(radians(rotation.Y))).
		Mul(sdf.RotateX(radians(rotation.X)))
}

// Matrix returns the homogeneous transform of the pose.
func (p Pose) Matrix() sdf.M44 {
	return sdf.Translate3d(p.Position).Mul(RotationMatrix(p.Rotation))
}

// Apply maps a point from the pose's frame into its parent frame.
func (p Pose) Apply(v v3.Vec) v3.Vec {
	return p.Matrix().MulPosition(v)
}

// Compose returns the pose of child expressed in the parent of parent.
func Compose(parent, child Pose) Pose {
	return FromMatrix(parent.Matrix().Mul(child.Matrix()))
}

// FromMatrix decomposes a rigid transform into a pose. At gimbal lock the Z angle is set to
// zero and the X angle absorbs the remaining rotation.
func FromMatrix(m sdf.M44) Pose {
	origin, r := basis(m)

	var a, b, c float64
	sb := -r[2][0]
	switch {
	case sb >= 1-gimbalEpsilon:
		b = math.Pi / 2
		a = math.Atan2(-r[1][2], r[1][1])
	case sb <= -1+gimbalEpsilon:
		b = -math.Pi / 2
		a = math.Atan2(-r[1][2], r[1][1])
	default:
		b = math.Asin(sb)
		a = math.Atan2(r[2][1], r[2][2])
		c = math.Atan2(r[1][0], r[0][0])
	}

	return Pose{
		Position: origin,
		Rotation: v3.Vec{X: clean(degrees(a)), Y: clean(degrees(b)), Z: clean(degrees(c))},
	}
}

// Equal compares two poses by the transforms they describe, so equivalent Euler triples
// compare equal.
func Equal(p, q Pose, tol float64) bool {
	po, pr := basis(p.Matrix())
	qo, qr := basis(q.Matrix())
	if !near(po.X, qo.X, tol) || !near(po.Y, qo.Y, tol) || !near(po.Z, qo.Z, tol) {
		return false
	}
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			if !near(pr[i][j], qr[i][j], tol) {
				return false
			}
		}
	}
	return true
}

// PreservesFreeAxes reports whether rotating by the given Euler angles maps the subspace
// spanned by the free axes onto itself, so that a child's free directions keep their meaning
// once expressed in the grandparent frame.
func PreservesFreeAxes(rotation v3.Vec, free [3]bool, tol float64) bool {
	_, r := basis(RotationMatrix(rotation))
	for i := 0; i < 3; i++ {
		if !free[i] {
			continue
		}
		// column i is the image of axis i; it may not leak into a fixed axis
		for j := 0; j < 3; j++ {
			if !free[j] && math.Abs(r[j][i]) > tol {
				return false
			}
		}
	}
	return true
}

const gimbalEpsilon = 1e-12

// basis extracts the translation and the 3x3 rotation (row-major) of m by mapping the unit
// vectors through it.
func basis(m sdf.M44) (v3.Vec, [3][3]float64) {
	origin := m.MulPosition(v3.Vec{})
	cols := [3]v3.Vec{
		m.MulPosition(v3.Vec{X: 1}).Sub(origin),
		m.MulPosition(v3.Vec{Y: 1}).Sub(origin),
		m.MulPosition(v3.Vec{Z: 1}).Sub(origin),
	}
	var r [3][3]float64
	for j, c := range cols {
		r[0][j] = c.X
		r[1][j] = c.Y
		r[2][j] = c.Z
	}
	return origin, r
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }

func degrees(rad float64) float64 { return rad * 180 / math.Pi }

func near(a, b, tol float64) bool { return math.Abs(a-b) <= tol }

// clean folds -0 and float noise around whole degrees.
func clean(deg float64) float64 {
	if r := math.Round(deg); math.Abs(deg-r) < 1e-9 {
		deg = r
	}
	if deg == 0 {
		return 0
	}
	return deg
}
