package scene_test

import (
	"testing"

	"github.com/aretw0/keel/pkg/adapters/memory"
	"github.com/aretw0/keel/pkg/domain"
	"github.com/aretw0/keel/pkg/scene"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func create(kind domain.Kind, name string, args map[string]any) domain.Op {
	return domain.Op{Op: domain.OpCreate, Kind: kind, Name: name, Args: args}
}

func desc(ops ...domain.Op) *domain.Description {
	return &domain.Description{Format: domain.FormatVersion, Ops: ops}
}

func loadComponent(t *testing.T, s *scene.Scene, name, path string) *scene.Node {
	t.Helper()
	n, err := s.Create(domain.KindComponent, name, domain.NoHandle, map[string]any{"path": path})
	require.NoError(t, err)
	return n
}

func mustResolve(t *testing.T, s *scene.Scene, name string) *scene.Node {
	t.Helper()
	n, err := s.Resolve(name)
	require.NoError(t, err)
	return n
}

func TestComponent_InstantiatesUnderPrefix(t *testing.T) {
	src := memory.NewSource(map[string]*domain.Description{
		"X": desc(
			create(domain.KindFrame, "a", nil),
			create(domain.KindFrame, "b", map[string]any{"position": []any{1, 0, 0}}),
			domain.Op{Op: domain.OpCreate, Kind: domain.KindPoint, Name: "p", Parent: "b"},
		),
	})
	s := scene.New(scene.WithSource(src))
	x := loadComponent(t, s, "X", "X")

	a := mustResolve(t, s, "X/a")
	b := mustResolve(t, s, "X/b")
	p := mustResolve(t, s, "X/p")
	assert.Equal(t, x.Handle(), a.Parent())
	assert.Equal(t, x.Handle(), a.Manager())
	assert.Equal(t, b.Handle(), p.Parent())
	assert.Equal(t, [3]float64{1, 0, 0}, b.Data().(*scene.FrameData).Position)

	state, err := s.ComponentState(x.Handle())
	require.NoError(t, err)
	assert.Equal(t, scene.ComponentLoaded, state)
	assert.Equal(t, []string{"a", "b", "p"}, x.Data().(*scene.ComponentData).ManagedNames())
	assertUniqueNames(t, s)
}

func TestComponent_FailedLoadLeavesSceneUnchanged(t *testing.T) {
	src := memory.NewSource(map[string]*domain.Description{
		"bad": desc(
			create(domain.KindFrame, "a", nil),
			create(domain.KindCable, "c", map[string]any{"connections": []any{"a", "missing"}}),
		),
	})
	s := scene.New(scene.WithSource(src))

	_, err := s.Create(domain.KindComponent, "X", domain.NoHandle, map[string]any{"path": "bad"})
	assert.ErrorIs(t, err, domain.ErrInvalidReference)
	_, err = s.Create(domain.KindComponent, "X", domain.NoHandle, map[string]any{"path": "absent"})
	assert.ErrorIs(t, err, domain.ErrSourceNotFound)
	assert.Zero(t, s.Len())

	x, err := s.Create(domain.KindComponent, "X", domain.NoHandle, nil)
	require.NoError(t, err)
	err = s.SetComponentPath(x.Handle(), "bad")
	assert.ErrorIs(t, err, domain.ErrInvalidReference)
	assert.Equal(t, 1, s.Len())
	assert.Empty(t, x.Data().(*scene.ComponentData).Path)
}

func TestComponent_SelfInclusionIsACycle(t *testing.T) {
	src := memory.NewSource(map[string]*domain.Description{
		"loop": desc(create(domain.KindComponent, "inner", map[string]any{"path": "loop"})),
	})
	s := scene.New(scene.WithSource(src))
	_, err := s.Create(domain.KindComponent, "X", domain.NoHandle, map[string]any{"path": "loop"})
	assert.ErrorIs(t, err, domain.ErrStructuralCycle)
	assert.Zero(t, s.Len())
}

func TestComponent_ReloadRemovesDroppedNodes(t *testing.T) {
	logger, logs := captureLogs()
	src := memory.NewSource(map[string]*domain.Description{
		"X": desc(create(domain.KindFrame, "a", nil), create(domain.KindFrame, "b", nil)),
	})
	s := scene.New(scene.WithSource(src), scene.WithLogger(logger))
	x := loadComponent(t, s, "X", "X")
	a := mustResolve(t, s, "X/a")
	b := mustResolve(t, s, "X/b")
	require.NoError(t, s.SetProperty(b.Handle(), domain.PropMass, 5.0))

	src.Put("X", desc(create(domain.KindFrame, "a", nil)))
	require.NoError(t, s.RefreshComponent(x.Handle()))

	assert.True(t, a.Valid())
	assert.False(t, b.Valid())
	_, ok := s.Lookup("X/b")
	assert.False(t, ok)
	state, err := s.ComponentState(x.Handle())
	require.NoError(t, err)
	assert.Equal(t, scene.ComponentSynchronized, state)
	assert.Contains(t, logs.String(), "override not re-applied")
}

func TestComponent_ReloadKeepsOverridesAndHandles(t *testing.T) {
	src := memory.NewSource(map[string]*domain.Description{
		"X": desc(create(domain.KindFrame, "a", map[string]any{"mass": 1}), create(domain.KindFrame, "b", nil)),
	})
	s := scene.New(scene.WithSource(src))
	x := loadComponent(t, s, "X", "X")
	a := mustResolve(t, s, "X/a")
	b := mustResolve(t, s, "X/b")
	require.NoError(t, s.SetProperty(a.Handle(), domain.PropMass, 7.0))

	src.Put("X", desc(
		create(domain.KindFrame, "a", map[string]any{"mass": 2}),
		create(domain.KindPoint, "b", nil),
		create(domain.KindFrame, "c", nil),
	))
	require.NoError(t, s.RefreshComponent(x.Handle()))

	assert.True(t, a.Valid())
	assert.Equal(t, 7.0, a.Data().(*scene.FrameData).Mass)

	// a changed kind replaces the node
	nb := mustResolve(t, s, "X/b")
	assert.False(t, b.Valid())
	assert.Equal(t, domain.KindPoint, nb.Kind())
	assert.Equal(t, x.Handle(), nb.Manager())

	c := mustResolve(t, s, "X/c")
	assert.Equal(t, x.Handle(), c.Parent())
	assert.Equal(t, []string{"a", "b", "c"}, x.Data().(*scene.ComponentData).ManagedNames())
	assertUniqueNames(t, s)
}

func TestComponent_RefreshPath(t *testing.T) {
	src := memory.NewSource(map[string]*domain.Description{
		"part": desc(create(domain.KindFrame, "a", nil)),
	})
	s := scene.New(scene.WithSource(src))
	loadComponent(t, s, "X", "part")
	loadComponent(t, s, "Y", "part")

	src.Put("part", desc(create(domain.KindFrame, "a", nil), create(domain.KindFrame, "z", nil)))
	refreshed, err := s.RefreshPath("part")
	require.NoError(t, err)
	assert.Equal(t, []string{"X", "Y"}, names(refreshed))
	mustResolve(t, s, "X/z")
	mustResolve(t, s, "Y/z")
}

func TestComponent_CreatedNodesAreProtected(t *testing.T) {
	src := memory.NewSource(map[string]*domain.Description{
		"X": desc(create(domain.KindFrame, "a", nil)),
	})
	s := scene.New(scene.WithSource(src))
	x := loadComponent(t, s, "X", "X")
	a := mustResolve(t, s, "X/a")

	err := s.Rename(a.Handle(), "renamed")
	assert.ErrorIs(t, err, domain.ErrPropertyChangeNotAllowed)
	assert.Equal(t, "X/a", a.Name())

	assert.ErrorIs(t, s.SetPosition(a.Handle(), [3]float64{1, 0, 0}), domain.ErrPropertyChangeNotAllowed)
	assert.ErrorIs(t, s.SetParent(a.Handle(), domain.NoHandle), domain.ErrPropertyChangeNotAllowed)
	assert.ErrorIs(t, s.Delete(a.Handle()), domain.ErrManagedNodeProtected)
	assert.True(t, a.Valid())

	// deleting the component takes its content along
	require.NoError(t, s.Delete(x.Handle()))
	assert.False(t, a.Valid())
	assert.Zero(t, s.Len())
}

func TestComponent_RenameMovesContent(t *testing.T) {
	src := memory.NewSource(map[string]*domain.Description{
		"X": desc(create(domain.KindFrame, "a", nil)),
	})
	s := scene.New(scene.WithSource(src))
	x := loadComponent(t, s, "X", "X")
	a := mustResolve(t, s, "X/a")
	require.NoError(t, s.SetProperty(a.Handle(), domain.PropMass, 3.0))

	require.NoError(t, s.Rename(x.Handle(), "Y"))
	assert.Equal(t, "Y/a", a.Name())
	assert.Equal(t, a.Handle(), mustResolve(t, s, "Y/a").Handle())

	list, err := s.Overrides().List(t.Context(), "Y")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Y/a", list[0].Node)
}

func TestComponent_SingletonsAreShared(t *testing.T) {
	src := memory.NewSource(map[string]*domain.Description{
		"rig": desc(
			create(domain.KindSection, "steel", map[string]any{"ea": 1e6}),
			create(domain.KindPoint, "p", nil),
			create(domain.KindPoint, "q", map[string]any{"position": []any{0, 0, 5}}),
			create(domain.KindCable, "c", map[string]any{"connections": []any{"p", "q"}, "section": "steel"}),
		),
	})
	s := scene.New(scene.WithSource(src))
	loadComponent(t, s, "A", "rig")
	loadComponent(t, s, "B", "rig")

	steel := mustResolve(t, s, "steel")
	assert.Equal(t, domain.NoHandle, steel.Manager())
	for _, name := range []string{"A/c", "B/c"} {
		c := mustResolve(t, s, name)
		assert.Equal(t, steel.Handle(), c.Data().(*scene.CableData).Section)
	}
	_, ok := s.Lookup("A/steel")
	assert.False(t, ok)
	assertUniqueNames(t, s)
}

func TestComponent_Nested(t *testing.T) {
	src := memory.NewSource(map[string]*domain.Description{
		"inner": desc(create(domain.KindFrame, "f", nil)),
		"outer": desc(create(domain.KindComponent, "I", map[string]any{"path": "inner"})),
	})
	s := scene.New(scene.WithSource(src))
	loadComponent(t, s, "O", "outer")

	f := mustResolve(t, s, "O/I/f")
	inner := mustResolve(t, s, "O/I")
	assert.Equal(t, inner.Handle(), f.Manager())
	assert.ErrorIs(t, s.SetComponentPath(inner.Handle(), "inner"), domain.ErrPropertyChangeNotAllowed)
}

func TestCoupling_AttachAndRelease(t *testing.T) {
	s := scene.New()
	parent := frame(t, s, "P", domain.NoHandle, nil)
	base := frame(t, s, "base", domain.NoHandle, nil)
	child := frame(t, s, "C", base.Handle(), map[string]any{"position": [3]float64{1, 2, 3}})

	cpl, err := s.Create(domain.KindCoupling, "cpl", domain.NoHandle, map[string]any{
		"parent_frame": "P",
		"child_frame":  child.Handle(),
		"offset":       [3]float64{0, 0, 5},
	})
	require.NoError(t, err)

	onParent := mustResolve(t, s, "cpl/on_parent")
	hinge := mustResolve(t, s, "cpl/hinge")
	assert.Equal(t, parent.Handle(), onParent.Parent())
	assert.Equal(t, [3]float64{0, 0, 5}, onParent.Data().(*scene.FrameData).Position)
	assert.Equal(t, onParent.Handle(), hinge.Parent())
	assert.Equal(t, hinge.Handle(), child.Parent())
	assert.Equal(t, cpl.Handle(), child.Manager())
	assert.Equal(t, [3]float64{}, child.Data().(*scene.FrameData).Position)
	assert.Equal(t, 1, hinge.Data().(*scene.FrameData).Fixed.FreeCount())

	// the child is governed, not created
	require.NoError(t, s.Rename(child.Handle(), "C2"))
	assert.ErrorIs(t, s.SetPosition(child.Handle(), [3]float64{1, 0, 0}), domain.ErrPropertyChangeNotAllowed)
	assert.ErrorIs(t, s.Delete(hinge.Handle()), domain.ErrManagedNodeProtected)

	visible := func(n *scene.Node) bool { return n.Kind() != domain.KindFrame || n == child || n == base }
	placed, err := s.PlacementParent(child.Handle(), visible)
	require.NoError(t, err)
	assert.Equal(t, cpl.Handle(), placed)

	require.NoError(t, s.Delete(cpl.Handle()))
	assert.False(t, hinge.Valid())
	assert.True(t, child.Valid())
	assert.Equal(t, base.Handle(), child.Parent())
	assert.Equal(t, domain.NoHandle, child.Manager())
	assert.Equal(t, [3]float64{1, 2, 3}, child.Data().(*scene.FrameData).Position)
}

func TestCoupling_RejectsManagedChild(t *testing.T) {
	s := scene.New()
	frame(t, s, "P", domain.NoHandle, nil)
	frame(t, s, "C", domain.NoHandle, nil)
	args := map[string]any{"parent_frame": "P", "child_frame": "C"}
	_, err := s.Create(domain.KindCoupling, "one", domain.NoHandle, args)
	require.NoError(t, err)

	_, err = s.Create(domain.KindCoupling, "two", domain.NoHandle, args)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	_, ok := s.Lookup("two/hinge")
	assert.False(t, ok)
	assertUniqueNames(t, s)
}

func TestCoupling_OffsetUpdatesInPlace(t *testing.T) {
	s := scene.New()
	frame(t, s, "P", domain.NoHandle, nil)
	frame(t, s, "C", domain.NoHandle, nil)
	cpl, err := s.Create(domain.KindCoupling, "cpl", domain.NoHandle, map[string]any{"parent_frame": "P", "child_frame": "C"})
	require.NoError(t, err)
	hinge := mustResolve(t, s, "cpl/hinge")

	require.NoError(t, s.SetProperty(cpl.Handle(), domain.PropOffset, []any{1, 1, 0}))
	assert.True(t, hinge.Valid())
	assert.Equal(t, [3]float64{1, 1, 0}, mustResolve(t, s, "cpl/on_parent").Data().(*scene.FrameData).Position)
}

func jointDescription(armPosition []any) *domain.Description {
	return desc(
		create(domain.KindFrame, "base", nil),
		create(domain.KindFrame, "arm", map[string]any{"position": armPosition}),
		create(domain.KindCoupling, "joint", map[string]any{
			"parent_frame": "base", "child_frame": "arm", "offset": []any{0, 0, 1},
		}),
	)
}

func TestComponent_ContainsCoupling(t *testing.T) {
	src := memory.NewSource(map[string]*domain.Description{"X": jointDescription([]any{2, 0, 0})})
	s := scene.New(scene.WithSource(src))
	x := loadComponent(t, s, "X", "X")

	arm := mustResolve(t, s, "X/arm")
	joint := mustResolve(t, s, "X/joint")
	hinge := mustResolve(t, s, "X/joint/hinge")
	assert.Equal(t, hinge.Handle(), arm.Parent())
	assert.Equal(t, joint.Handle(), arm.Manager())
	assert.Equal(t, x.Handle(), joint.Manager())

	// the arm still belongs to the component
	assert.ErrorIs(t, s.Delete(arm.Handle()), domain.ErrManagedNodeProtected)
	assert.ErrorIs(t, s.Rename(arm.Handle(), "X/other"), domain.ErrPropertyChangeNotAllowed)
	assert.ErrorIs(t, s.Delete(joint.Handle()), domain.ErrManagedNodeProtected)
	d := s.Describe()
	require.Len(t, d.Ops, 1)
	assert.Equal(t, "X", d.Ops[0].Name)

	// a reload keeps the arm on the hinge
	src.Put("X", jointDescription([]any{3, 0, 0}))
	require.NoError(t, s.RefreshComponent(x.Handle()))
	assert.True(t, arm.Valid())
	assert.Equal(t, hinge.Handle(), arm.Parent())
	assert.Equal(t, [3]float64{}, arm.Data().(*scene.FrameData).Position)

	// dropping the coupling hands the arm back to the component with its described pose
	src.Put("X", desc(
		create(domain.KindFrame, "base", nil),
		create(domain.KindFrame, "arm", map[string]any{"position": []any{3, 0, 0}}),
	))
	require.NoError(t, s.RefreshComponent(x.Handle()))
	assert.False(t, joint.Valid())
	assert.False(t, hinge.Valid())
	assert.Equal(t, x.Handle(), arm.Manager())
	assert.Equal(t, x.Handle(), arm.Parent())
	assert.Equal(t, [3]float64{3, 0, 0}, arm.Data().(*scene.FrameData).Position)

	require.NoError(t, s.Delete(x.Handle()))
	assert.Zero(t, s.Len())
}

func TestImport_ContainerizeCoupling(t *testing.T) {
	host := scene.New()
	frame(t, host, "base", domain.NoHandle, nil)
	arm := frame(t, host, "arm", domain.NoHandle, map[string]any{"position": [3]float64{2, 0, 0}})
	_, err := host.Create(domain.KindCoupling, "joint", domain.NoHandle, map[string]any{
		"parent_frame": "base", "child_frame": arm.Handle(),
	})
	require.NoError(t, err)

	s := scene.New()
	imp, err := s.Import(host.Describe(), "imp", true)
	require.NoError(t, err)
	require.NotNil(t, imp)

	placed := mustResolve(t, s, "imp/arm")
	assert.Equal(t, mustResolve(t, s, "imp/joint/hinge").Handle(), placed.Parent())
	assert.ErrorIs(t, s.Delete(placed.Handle()), domain.ErrManagedNodeProtected)
	assertUniqueNames(t, s)

	// releasing the container keeps the arm on the hinge
	require.NoError(t, s.Dissolve(imp.Handle()))
	assert.Equal(t, mustResolve(t, s, "imp/joint").Handle(), placed.Manager())
}
