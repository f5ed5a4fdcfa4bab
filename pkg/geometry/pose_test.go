package geometry

import (
	"testing"

	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/stretchr/testify/assert"
)

const tol = 1e-9

func TestApply_RotationOrder(t *testing.T) {
	// 90 degrees about Z maps x onto y
	p := Pose{Rotation: v3.Vec{Z: 90}}
	got := p.Apply(v3.Vec{X: 1})
	assert.InDelta(t, 0, got.X, tol)
	assert.InDelta(t, 1, got.Y, tol)
	assert.InDelta(t, 0, got.Z, tol)

	// translation is applied after rotation
	p = Pose{Position: v3.Vec{X: 10}, Rotation: v3.Vec{X: 90}}
	got = p.Apply(v3.Vec{Y: 1})
	assert.InDelta(t, 10, got.X, tol)
	assert.InDelta(t, 0, got.Y, tol)
	assert.InDelta(t, 1, got.Z, tol)
}

func TestFromMatrix_RoundTrip(t *testing.T) {
	cases := []Pose{
		Identity(),
		{Position: v3.Vec{X: 1, Y: 2, Z: 3}},
		{Rotation: v3.Vec{X: 30, Y: -20, Z: 45}},
		{Position: v3.Vec{X: -4, Y: 0.5, Z: 7}, Rotation: v3.Vec{X: 170, Y: 10, Z: -120}},
		{Rotation: v3.Vec{X: 15, Y: 90}},
		{Rotation: v3.Vec{X: -40, Y: -90}},
	}
	for _, p := range cases {
		q := FromMatrix(p.Matrix())
		assert.True(t, Equal(p, q, 1e-9), "pose %+v decomposed to %+v", p, q)
	}
}

func TestFromMatrix_CleansWholeDegrees(t *testing.T) {
	q := FromMatrix(Pose{Rotation: v3.Vec{Z: 90}}.Matrix())
	assert.Equal(t, v3.Vec{Z: 90}, q.Rotation)
}

func TestCompose_PreservesGlobalPoint(t *testing.T) {
	parent := Pose{Position: v3.Vec{X: 5}, Rotation: v3.Vec{Z: 90}}
	child := Pose{Position: v3.Vec{X: 1, Y: 2}, Rotation: v3.Vec{X: 30}}
	folded := Compose(parent, child)

	local := v3.Vec{X: 0.3, Y: -1, Z: 2}
	want := parent.Apply(child.Apply(local))
	got := folded.Apply(local)
	assert.InDelta(t, want.X, got.X, tol)
	assert.InDelta(t, want.Y, got.Y, tol)
	assert.InDelta(t, want.Z, got.Z, tol)
}

func TestPreservesFreeAxes(t *testing.T) {
	rz := [3]bool{false, false, true}

	assert.True(t, PreservesFreeAxes(v3.Vec{}, rz, tol))
	assert.True(t, PreservesFreeAxes(v3.Vec{Z: 37}, rz, tol), "rotation about the free axis keeps it")
	assert.True(t, PreservesFreeAxes(v3.Vec{X: 180}, rz, tol), "flipping the axis keeps it")
	assert.False(t, PreservesFreeAxes(v3.Vec{X: 90}, rz, tol))
	assert.False(t, PreservesFreeAxes(v3.Vec{Y: 30}, rz, tol))

	xy := [3]bool{true, true, false}
	assert.True(t, PreservesFreeAxes(v3.Vec{Z: 30}, xy, tol), "in-plane rotation keeps the plane")
	assert.False(t, PreservesFreeAxes(v3.Vec{X: 30}, xy, tol))

	all := [3]bool{true, true, true}
	assert.True(t, PreservesFreeAxes(v3.Vec{X: 12, Y: 34, Z: 56}, all, tol))
	assert.True(t, PreservesFreeAxes(v3.Vec{X: 12, Y: 34, Z: 56}, [3]bool{}, tol))
}
