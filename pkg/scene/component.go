package scene

import (
	"fmt"
	"reflect"
	"sort"
	"time"

	"github.com/aretw0/keel/pkg/domain"
)

// ComponentState tracks the lifecycle of a component.
type ComponentState int

const (
	ComponentUnloaded ComponentState = iota
	ComponentLoaded
	ComponentSynchronized
)

// String returns the lowercase state name.
func (st ComponentState) String() string {
	switch st {
	case ComponentLoaded:
		return "loaded"
	case ComponentSynchronized:
		return "synchronized"
	}
	return "unloaded"
}

// ComponentData is the payload of components: a frame whose content is instantiated from
// the description at Path, or from inline Ops for containerized imports.
type ComponentData struct {
	FrameData `mapstructure:",squash"`
	Path      string      `mapstructure:"path"`
	Ops       []domain.Op `mapstructure:"ops"`

	state    ComponentState
	managed  map[string]domain.Handle
	byHandle map[domain.Handle]string
}

func newComponent() NodeData {
	return &ComponentData{FrameData: FrameData{Fixed: domain.AllFixed}}
}

func decodeComponent(data NodeData, args map[string]any, _ RefResolver) error {
	c := data.(*ComponentData)
	if err := DecodeArgs(args, c); err != nil {
		return err
	}
	if c.Path != "" && c.Ops != nil {
		return fmt.Errorf("%w: a component has either a path or inline ops", domain.ErrInvalidArgument)
	}
	return nil
}

// State returns the lifecycle state.
func (c *ComponentData) State() ComponentState { return c.state }

// Inline reports whether the component carries its own description.
func (c *ComponentData) Inline() bool { return c.Path == "" && c.Ops != nil }

// ManagedNames returns the described names of the nodes the component created, sorted.
func (c *ComponentData) ManagedNames() []string {
	out := make([]string, 0, len(c.managed))
	for name := range c.managed {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func (c *ComponentData) track(name string, h domain.Handle) {
	if c.managed == nil {
		c.managed = make(map[string]domain.Handle)
		c.byHandle = make(map[domain.Handle]string)
	}
	if old, ok := c.managed[name]; ok {
		delete(c.byHandle, old)
	}
	c.managed[name] = h
	c.byHandle[h] = name
}

func (c *ComponentData) forget(h domain.Handle) {
	if name, ok := c.byHandle[h]; ok {
		delete(c.byHandle, h)
		if c.managed[name] == h {
			delete(c.managed, name)
		}
	}
}

func (c *ComponentData) References() []domain.Handle { return nil }

func (c *ComponentData) Remap(fn func(domain.Handle) domain.Handle) {
	managed := c.managed
	c.managed, c.byHandle = nil, nil
	for name, h := range managed {
		c.track(name, fn(h))
	}
}

func (c *ComponentData) Clone() NodeData {
	cp := *c
	cp.managed, cp.byHandle = nil, nil
	for name, h := range c.managed {
		cp.track(name, h)
	}
	return &cp
}

// Args adds the description path, or the inline ops, to the frame arguments.
func (c *ComponentData) Args(name func(domain.Handle) string) map[string]any {
	args := c.FrameData.Args(name)
	if c.Path != "" {
		args[string(domain.PropPath)] = c.Path
	}
	if c.Inline() {
		args["ops"] = c.Ops
	}
	return args
}

func (c *ComponentData) generates() bool { return true }

// Creates reports whether n was instantiated from the component's description.
func (c *ComponentData) Creates(s *Scene, n *Node) bool {
	_, ok := c.byHandle[n.handle]
	return ok
}

// DissolveSome refuses; content only leaves with a reload or a dissolve of the component.
func (c *ComponentData) DissolveSome(s *Scene, self *Node) (bool, string) {
	return false, fmt.Sprintf("created by component %q", self.name)
}

// TrySwap tracks the successor of a replaced node under the same described name.
func (c *ComponentData) TrySwap(s *Scene, self *Node, old, new domain.Handle) bool {
	name, ok := c.byHandle[old]
	if !ok {
		return false
	}
	c.track(name, new)
	return true
}

// PropertyChangeAllowed keeps the structure of the content fixed.
func (c *ComponentData) PropertyChangeAllowed(n *Node, property domain.Property) bool {
	return defaultAllowed(n, property)
}

// releaseAll turns every created node into an ordinary node.
func (c *ComponentData) releaseAll(s *Scene, self *Node) {
	for h := range c.byHandle {
		if n, ok := s.nodes[h]; ok && n.manager == self.handle {
			n.manager = domain.NoHandle
		}
	}
	c.managed, c.byHandle = nil, nil
	c.state = ComponentUnloaded
}

func (c *ComponentData) init(s *Scene, self *Node) error {
	switch {
	case c.Path != "":
		desc, err := s.fetch(c.Path)
		if err != nil {
			return err
		}
		return s.loadComponent(self, c, desc)
	case c.Ops != nil:
		return s.loadComponent(self, c, &domain.Description{Format: domain.FormatVersion, Ops: c.Ops})
	}
	return nil
}

// update keeps the created nodes and reloads only when the source changed.
func (c *ComponentData) update(s *Scene, self *Node, fresh NodeData) error {
	f := fresh.(*ComponentData)
	c.FrameData = f.FrameData
	if f.Path == c.Path && reflect.DeepEqual(f.Ops, c.Ops) {
		return nil
	}
	prevPath, prevOps := c.Path, c.Ops
	c.Path, c.Ops = f.Path, f.Ops
	if err := s.refresh(self, c); err != nil {
		c.Path, c.Ops = prevPath, prevOps
		return err
	}
	return nil
}

// SetComponentPath points a component at a new description and instantiates it, or
// re-synchronizes it if it was loaded before. A failing fetch or replay leaves the Scene
// unchanged.
func (s *Scene) SetComponentPath(h domain.Handle, path string) error {
	const op = "set_path"
	if err := s.guard(op); err != nil {
		return err
	}
	n, c, err := s.component(op, h)
	if err != nil {
		return err
	}
	if err := s.checkChange(op, n, domain.PropPath); err != nil {
		return err
	}
	desc, err := s.fetch(path)
	if err != nil {
		return &domain.OpError{Op: op, Node: n.name, Err: err}
	}
	prevPath, prevOps := c.Path, c.Ops
	c.Path, c.Ops = path, nil
	if err := s.loadComponent(n, c, desc); err != nil {
		c.Path, c.Ops = prevPath, prevOps
		return &domain.OpError{Op: op, Node: n.name, Err: err}
	}
	return nil
}

// RefreshComponent re-fetches the description of a component and synchronizes its nodes.
func (s *Scene) RefreshComponent(h domain.Handle) error {
	const op = "refresh"
	if err := s.guard(op); err != nil {
		return err
	}
	n, c, err := s.component(op, h)
	if err != nil {
		return err
	}
	if err := s.refresh(n, c); err != nil {
		return &domain.OpError{Op: op, Node: n.name, Err: err}
	}
	return nil
}

// RefreshPath refreshes every component loaded from path and returns them. It keeps going
// after a failure and reports all failures together.
func (s *Scene) RefreshPath(path string) ([]*Node, error) {
	if err := s.guard("refresh"); err != nil {
		return nil, err
	}
	var refreshed []*Node
	var errs []error
	for _, n := range s.Nodes() {
		c, ok := n.data.(*ComponentData)
		if !ok || c.Path != path || !n.valid {
			continue
		}
		if err := s.refresh(n, c); err != nil {
			errs = append(errs, &domain.OpError{Op: "refresh", Node: n.name, Err: err})
			continue
		}
		refreshed = append(refreshed, n)
	}
	if len(errs) > 0 {
		return refreshed, &domain.AggregateError{Errors: errs}
	}
	return refreshed, nil
}

// ComponentState returns the lifecycle state of a component.
func (s *Scene) ComponentState(h domain.Handle) (ComponentState, error) {
	_, c, err := s.component("state", h)
	if err != nil {
		return ComponentUnloaded, err
	}
	return c.state, nil
}

func (s *Scene) component(op string, h domain.Handle) (*Node, *ComponentData, error) {
	n, err := s.live(op, h)
	if err != nil {
		return nil, nil, err
	}
	c, ok := n.data.(*ComponentData)
	if !ok {
		return nil, nil, domain.NewOpError(op, n.name, domain.ErrInvalidArgument, "a %s is not a component", n.kind)
	}
	return n, c, nil
}

func (s *Scene) refresh(n *Node, c *ComponentData) error {
	switch {
	case c.Path != "":
		desc, err := s.fetch(c.Path)
		if err != nil {
			return err
		}
		return s.loadComponent(n, c, desc)
	case c.Ops != nil:
		return s.loadComponent(n, c, &domain.Description{Format: domain.FormatVersion, Ops: c.Ops})
	}
	return nil
}

func (s *Scene) fetch(path string) (*domain.Description, error) {
	if s.source == nil {
		return nil, fmt.Errorf("%w: no description source for %q", domain.ErrInvalidArgument, path)
	}
	if s.loading[path] {
		return nil, fmt.Errorf("%w: component %q includes itself", domain.ErrStructuralCycle, path)
	}
	desc, err := s.source.Fetch(path)
	if err != nil {
		return nil, err
	}
	return desc, nil
}

// loadComponent validates desc in a scratch Scene, then instantiates or re-synchronizes the
// component's nodes.
func (s *Scene) loadComponent(n *Node, c *ComponentData, desc *domain.Description) error {
	if c.Path != "" {
		s.loading[c.Path] = true
		defer delete(s.loading, c.Path)
	}
	if err := s.scratch().replay(desc, &replay{table: make(map[string]domain.Handle)}); err != nil {
		return err
	}

	s.suppress++
	defer func() { s.suppress-- }()

	event := &domain.ComponentEvent{Scene: s.id.String(), Name: n.name, Path: c.Path}
	var err error
	if c.state == ComponentUnloaded {
		err = s.instantiate(n, c, desc, event)
	} else {
		err = s.synchronize(n, c, desc, event)
	}
	event.Timestamp = time.Now()
	event.Err = err
	if err != nil {
		s.logger.Warn("component not loaded", "component", n.name, "path", c.Path, "err", err)
	} else {
		s.logger.Info("component loaded", "component", n.name, "path", c.Path,
			"state", c.state, "created", event.Created, "updated", event.Updated, "deleted", event.Deleted)
	}
	if s.hooks.OnComponentSynced != nil {
		s.hooks.OnComponentSynced(s.ctx, event)
	}
	return err
}

func (s *Scene) instantiate(n *Node, c *ComponentData, desc *domain.Description, event *domain.ComponentEvent) error {
	r := &replay{
		prefix:  n.name + domain.Separator,
		parent:  n.handle,
		manager: n.handle,
		owner:   c,
		table:   make(map[string]domain.Handle),
	}
	if err := s.replay(desc, r); err != nil {
		s.rollback(r)
		return err
	}
	c.state = ComponentLoaded
	event.Created = len(r.created)
	s.reapplyOverrides(n.name)
	return nil
}

// synchronize diffs the managed set against desc: same name and kind is updated in place,
// a changed kind is replaced, new names are created and missing ones deleted.
func (s *Scene) synchronize(n *Node, c *ComponentData, desc *domain.Description, event *domain.ComponentEvent) error {
	existing := make(map[string]domain.Handle, len(c.managed))
	for name, h := range c.managed {
		existing[name] = h
	}
	r := &replay{
		prefix:   n.name + domain.Separator,
		parent:   n.handle,
		manager:  n.handle,
		owner:    c,
		table:    make(map[string]domain.Handle),
		existing: existing,
		seen:     make(map[string]bool),
	}
	err := s.replay(desc, r)

	for _, old := range r.replaced {
		s.deleteSet(old)
	}
	var missing []domain.Handle
	for name, h := range existing {
		if !r.seen[name] {
			missing = append(missing, h)
		}
	}
	sort.Slice(missing, func(i, j int) bool { return missing[i] > missing[j] })
	for _, h := range missing {
		if old, ok := s.nodes[h]; ok {
			s.deleteSet(old)
			event.Deleted++
		}
	}
	event.Created = len(r.created)
	event.Updated = r.updated
	if err != nil {
		return err
	}
	c.state = ComponentSynchronized
	s.reapplyOverrides(n.name)
	return nil
}
