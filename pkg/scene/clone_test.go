package scene_test

import (
	"testing"

	"github.com/aretw0/keel/pkg/adapters/memory"
	"github.com/aretw0/keel/pkg/domain"
	"github.com/aretw0/keel/pkg/scene"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sampleScene builds a Scene using every built-in kind.
func sampleScene(t *testing.T) (*scene.Scene, *memory.Source) {
	t.Helper()
	src := memory.NewSource(map[string]*domain.Description{
		"rig": desc(
			create(domain.KindSection, "steel", map[string]any{"ea": 2e6, "diameter": 0.05}),
			create(domain.KindFrame, "deck", map[string]any{"position": []any{0, 0, 2}}),
			domain.Op{Op: domain.OpCreate, Kind: domain.KindPoint, Name: "top", Parent: "deck"},
			create(domain.KindPoint, "anchor", map[string]any{"position": []any{20, 0, -30}}),
			create(domain.KindCable, "line", map[string]any{"connections": []any{"top", "anchor"}, "section": "steel", "length": 40}),
		),
	})
	s := scene.New(scene.WithSource(src))

	hull := frame(t, s, "hull", domain.NoHandle, map[string]any{"mass": 1000})
	frame(t, s, "crane", hull.Handle(), map[string]any{"rotation": [3]float64{0, 0, 45}})
	boom := frame(t, s, "boom", domain.NoHandle, map[string]any{"position": [3]float64{3, 0, 0}})
	_, err := s.Create(domain.KindCoupling, "slew", domain.NoHandle, map[string]any{
		"parent_frame": "crane", "child_frame": boom.Handle(), "offset": [3]float64{0, 0, 1},
	})
	require.NoError(t, err)
	point(t, s, "tip", boom.Handle(), 10, 0, 0)

	rig, err := s.Create(domain.KindComponent, "rig", hull.Handle(), map[string]any{"path": "rig"})
	require.NoError(t, err)
	require.NoError(t, s.SetProperty(mustResolve(t, s, "rig/line").Handle(), domain.PropLength, 42.0))
	require.NoError(t, s.SetTags(mustResolve(t, s, "rig/deck").Handle(), []string{"walkway"}))

	group, err := s.Create(domain.KindAggregate, "fenders", domain.NoHandle, nil)
	require.NoError(t, err)
	_, err = s.CreateIn(group.Handle(), domain.KindPoint, "fender", rig.Handle(), map[string]any{"position": []any{0, 5, 0}})
	require.NoError(t, err)
	return s, src
}

func TestCopy_DescriptionRoundTrip(t *testing.T) {
	s, _ := sampleScene(t)
	want := s.Describe()

	c, err := s.Copy()
	require.NoError(t, err)
	assert.NotEqual(t, s.ID(), c.ID())
	assert.Equal(t, want, c.Describe())
	assertUniqueNames(t, c)

	// the copy is independent
	require.NoError(t, c.Delete(mustResolve(t, c, "hull").Handle()))
	assert.Equal(t, want, s.Describe())
}

func TestCopy_DoesNotRefetch(t *testing.T) {
	s, src := sampleScene(t)
	want := s.Describe()
	src.Remove("rig")

	c, err := s.Copy()
	require.NoError(t, err)
	assert.Equal(t, want, c.Describe())

	list, err := c.Overrides().List(t.Context(), "rig")
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestDescribe_LoadReconstructs(t *testing.T) {
	s, src := sampleScene(t)
	want := s.Describe()

	loaded, report, err := scene.Load(want, scene.LoadOptions{}, scene.WithSource(src))
	require.NoError(t, err)
	assert.False(t, report.ErrorsDuringLoad)
	assert.Equal(t, want, loaded.Describe())
	assert.Equal(t, s.Len(), loaded.Len())

	line := mustResolve(t, loaded, "rig/line")
	assert.Equal(t, 42.0, line.Data().(*scene.CableData).Length)
	assert.True(t, mustResolve(t, loaded, "rig/deck").HasTag("walkway"))
	boom := mustResolve(t, loaded, "boom")
	assert.Equal(t, mustResolve(t, loaded, "slew/hinge").Handle(), boom.Parent())
}

func TestDescribe_Order(t *testing.T) {
	s, _ := sampleScene(t)
	d := s.Describe()

	var created []string
	var targets []string
	for _, op := range d.Ops {
		switch op.Op {
		case domain.OpCreate:
			created = append(created, op.Name)
		case domain.OpSet:
			targets = append(targets, op.Target)
		}
	}
	assert.Equal(t, []string{"steel", "hull", "crane", "boom", "slew", "tip", "rig", "fenders", "fender"}, created)
	assert.Equal(t, []string{"rig/deck", "rig/line"}, targets)
	assert.Equal(t, domain.FormatVersion, d.Format)

	for _, op := range d.Ops {
		if op.Name == "boom" {
			assert.Empty(t, op.Parent)
			assert.Equal(t, [3]float64{3, 0, 0}, op.Args["position"])
		}
		if op.Name == "fender" {
			assert.Equal(t, "fenders", op.Manager)
			assert.Equal(t, "rig", op.Parent)
		}
	}
}

func TestDuplicate_RewritesInternalReferences(t *testing.T) {
	s := scene.New()
	outside := point(t, s, "q", domain.NoHandle, 0, 0, -10)
	a := frame(t, s, "A", domain.NoHandle, nil)
	b := frame(t, s, "B", a.Handle(), nil)
	p := point(t, s, "p", b.Handle(), 1, 0, 0)
	_, err := s.Create(domain.KindCable, "c", domain.NoHandle, map[string]any{"connections": []any{p.Handle(), outside.Handle()}})
	require.NoError(t, err)

	a2, err := s.Duplicate(a.Handle())
	require.NoError(t, err)
	assert.Equal(t, "A2", a2.Name())

	b2 := mustResolve(t, s, "B2")
	p2 := mustResolve(t, s, "p2")
	c2 := mustResolve(t, s, "c2")
	assert.Equal(t, a2.Handle(), b2.Parent())
	assert.Equal(t, b2.Handle(), p2.Parent())
	assert.Equal(t, []domain.Handle{p2.Handle(), outside.Handle()}, c2.Data().(*scene.CableData).Connections)
	assert.Equal(t, 9, s.Len())
	assertUniqueNames(t, s)

	// originals are untouched
	assert.Equal(t, []domain.Handle{p.Handle(), outside.Handle()}, mustResolve(t, s, "c").Data().(*scene.CableData).Connections)
}

func TestDuplicate_Component(t *testing.T) {
	src := memory.NewSource(map[string]*domain.Description{
		"X": desc(create(domain.KindFrame, "a", nil), create(domain.KindSection, "steel", nil)),
	})
	s := scene.New(scene.WithSource(src))
	x := loadComponent(t, s, "X", "X")
	a := mustResolve(t, s, "X/a")
	require.NoError(t, s.SetProperty(a.Handle(), domain.PropMass, 4.0))

	x2, err := s.Duplicate(x.Handle())
	require.NoError(t, err)
	assert.Equal(t, "X2", x2.Name())

	a2 := mustResolve(t, s, "X2/a")
	assert.Equal(t, x2.Handle(), a2.Manager())
	assert.Equal(t, 4.0, a2.Data().(*scene.FrameData).Mass)
	assert.ErrorIs(t, s.Rename(a2.Handle(), "free"), domain.ErrPropertyChangeNotAllowed)

	props, err := s.Overrides().Get(t.Context(), "X2/a")
	require.NoError(t, err)
	assert.Equal(t, 4.0, props[domain.PropMass])

	// the singleton is shared, not cloned
	_, ok := s.Lookup("steel2")
	assert.False(t, ok)

	_, err = s.Duplicate(a.Handle())
	assert.ErrorIs(t, err, domain.ErrManagedNodeProtected)
	assertUniqueNames(t, s)
}

func TestDuplicate_CarriesCoupling(t *testing.T) {
	s := scene.New()
	base := frame(t, s, "base", domain.NoHandle, nil)
	arm := frame(t, s, "arm", domain.NoHandle, nil)
	_, err := s.Create(domain.KindCoupling, "joint", domain.NoHandle, map[string]any{
		"parent_frame": base.Handle(), "child_frame": arm.Handle(),
	})
	require.NoError(t, err)

	base2, err := s.Duplicate(base.Handle())
	require.NoError(t, err)
	assert.Equal(t, "base2", base2.Name())

	joint2 := mustResolve(t, s, "joint2")
	onParent2 := mustResolve(t, s, "joint2/on_parent")
	hinge2 := mustResolve(t, s, "joint2/hinge")
	arm2 := mustResolve(t, s, "arm2")
	assert.Equal(t, base2.Handle(), onParent2.Parent())
	assert.Equal(t, joint2.Handle(), hinge2.Manager())
	assert.Equal(t, hinge2.Handle(), arm2.Parent())
	assert.Equal(t, joint2.Handle(), arm2.Manager())
	_, ok := s.Lookup("joint/hinge2")
	assert.False(t, ok)
	assertUniqueNames(t, s)

	// replaying the description yields the same names
	loaded, _, err := scene.Load(s.Describe(), scene.LoadOptions{})
	require.NoError(t, err)
	for _, n := range s.Nodes() {
		_, ok := loaded.Lookup(n.Name())
		assert.True(t, ok, n.Name())
	}
	assert.Equal(t, s.Len(), loaded.Len())
}
