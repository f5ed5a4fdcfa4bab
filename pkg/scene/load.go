package scene

import (
	"fmt"
	"strings"

	"github.com/aretw0/keel/pkg/codec"
	"github.com/aretw0/keel/pkg/domain"
)

// LoadOptions configures Load.
type LoadOptions struct {
	// TolerateErrors skips failing operations instead of aborting the load.
	TolerateErrors bool
}

// LoadFailure records one skipped operation of a tolerant load.
type LoadFailure struct {
	Index int
	Op    domain.Op
	Err   error
}

// LoadReport summarizes a load.
type LoadReport struct {
	ErrorsDuringLoad bool
	Failures         []LoadFailure
}

// Err returns the failures as a *domain.AggregateError, or nil.
func (r *LoadReport) Err() error {
	if r == nil || len(r.Failures) == 0 {
		return nil
	}
	errs := make([]error, len(r.Failures))
	for i, f := range r.Failures {
		errs[i] = f.Err
	}
	return &domain.AggregateError{Errors: errs}
}

func (r *LoadReport) add(i int, op domain.Op, err error) {
	r.ErrorsDuringLoad = true
	r.Failures = append(r.Failures, LoadFailure{Index: i, Op: op, Err: err})
}

// Load builds a new Scene by replaying desc. Without TolerateErrors the first failing
// operation aborts the load and no Scene is returned.
func Load(desc *domain.Description, opts LoadOptions, sceneOpts ...Option) (*Scene, *LoadReport, error) {
	if desc.Format != "" {
		if err := codec.CheckFormat(desc.Format); err != nil {
			return nil, nil, &domain.OpError{Op: "load", Err: err}
		}
	}
	s := New(sceneOpts...)
	if desc.Settings != (domain.Settings{}) {
		s.settings = desc.Settings
	}
	report := &LoadReport{}
	r := &replay{
		table:     make(map[string]domain.Handle),
		tolerate:  opts.TolerateErrors,
		report:    report,
		allowHost: true,
	}
	if err := s.replay(desc, r); err != nil {
		return nil, report, err
	}
	if report.ErrorsDuringLoad {
		s.logger.Warn("scene loaded with errors", "failures", len(report.Failures))
	}
	return s, report, nil
}

// Import merges desc into the Scene with every name prefixed. With containerize the nodes
// are instead owned by a new inline component named prefix, which is returned. References
// the description does not define resolve against existing nodes. A failing import leaves
// the Scene unchanged.
func (s *Scene) Import(desc *domain.Description, prefix string, containerize bool) (*Node, error) {
	const op = "import"
	if err := s.guard(op); err != nil {
		return nil, err
	}
	if desc.Format != "" {
		if err := codec.CheckFormat(desc.Format); err != nil {
			return nil, &domain.OpError{Op: op, Node: prefix, Err: err}
		}
	}
	if containerize {
		if prefix == "" {
			return nil, domain.NewOpError(op, prefix, domain.ErrInvalidArgument, "a container needs a name")
		}
		data := newComponent().(*ComponentData)
		data.Ops = desc.Clone().Ops
		if data.Ops == nil {
			data.Ops = []domain.Op{}
		}
		return s.create(op, newNode{kind: domain.KindComponent, name: strings.TrimSuffix(prefix, domain.Separator), data: data})
	}

	if prefix != "" && !strings.HasSuffix(prefix, domain.Separator) {
		prefix += domain.Separator
	}
	var recorded []string
	s.recorded = &recorded
	defer func() { s.recorded = nil }()

	r := &replay{prefix: prefix, table: make(map[string]domain.Handle), allowHost: true}
	if err := s.replay(desc, r); err != nil {
		s.rollback(r)
		for _, name := range recorded {
			_ = s.overrides.Delete(s.ctx, name)
		}
		return nil, err
	}
	return nil, nil
}

// replay carries the state of one pass over a description.
type replay struct {
	prefix   string
	parent   domain.Handle // parent of top-level described nodes
	manager  domain.Handle // manager of every created node
	owner    *ComponentData
	tolerate bool
	report   *LoadReport
	// allowHost lets unresolved names fall back to nodes already in the Scene.
	allowHost bool

	table   map[string]domain.Handle // described name to node
	created []domain.Handle

	// synchronization of an existing managed set
	existing map[string]domain.Handle
	seen     map[string]bool
	replaced []*Node
	updated  int
}

func (s *Scene) replay(desc *domain.Description, r *replay) error {
	for i, op := range desc.Ops {
		var err error
		switch op.Op {
		case domain.OpCreate:
			err = s.replayCreate(op, r)
		case domain.OpSet:
			err = s.replaySet(op, r)
		default:
			err = domain.NewOpError("replay", op.Name, domain.ErrInvalidArgument, "unknown op %q", op.Op)
		}
		if err == nil {
			continue
		}
		if r.tolerate {
			s.logger.Warn("description op skipped", "index", i, "op", op.Op, "node", opName(op), "err", err)
			r.report.add(i, op, err)
			continue
		}
		return fmt.Errorf("op %d: %w", i, err)
	}
	return nil
}

func opName(op domain.Op) string {
	if op.Op == domain.OpSet {
		return op.Target
	}
	return op.Name
}

// resolver resolves described names: first the names defined by this replay, then the
// prefixed name, then (if allowed) existing nodes.
func (s *Scene) resolver(r *replay) RefResolver {
	host := s.refResolver()
	return func(ref any) (*Node, error) {
		name, ok := ref.(string)
		if !ok {
			return host(ref)
		}
		if h, ok := r.table[name]; ok {
			if n, ok := s.nodes[h]; ok {
				return n, nil
			}
		}
		if r.prefix != "" {
			if n, ok := s.Lookup(r.prefix + name); ok {
				return n, nil
			}
		}
		if r.allowHost {
			return host(name)
		}
		return nil, fmt.Errorf("%w: %q is not defined by the description", domain.ErrInvalidReference, name)
	}
}

func (s *Scene) replayCreate(op domain.Op, r *replay) error {
	spec, ok := s.kinds[op.Kind]
	if !ok {
		return domain.NewOpError("create", op.Name, domain.ErrUnknownKind, "%s", op.Kind)
	}
	if op.Name == "" {
		return domain.NewOpError("create", op.Name, domain.ErrNameUnavailable, "empty name")
	}
	refs := s.resolver(r)

	if spec.Singleton {
		if n := s.exact(op.Name); n != nil && n.kind == op.Kind {
			r.table[op.Name] = n.handle
			return nil
		}
	}

	parent := domain.NoHandle
	if spec.Parented && !spec.Singleton {
		parent = r.parent
	}
	if op.Parent != "" {
		p, err := refs(op.Parent)
		if err != nil {
			return &domain.OpError{Op: "create", Node: op.Name, Err: err}
		}
		parent = p.handle
	}
	manager := domain.NoHandle
	if !spec.Singleton {
		manager = r.manager
	}
	if op.Manager != "" {
		m, err := refs(op.Manager)
		if err != nil {
			return &domain.OpError{Op: "create", Node: op.Name, Err: err}
		}
		if _, ok := m.data.(*AggregateData); !ok {
			return domain.NewOpError("create", op.Name, domain.ErrInvalidArgument, "%q does not accept members", m.name)
		}
		manager = m.handle
	}

	data := spec.New()
	if err := spec.Decode(data, op.Args, refs); err != nil {
		return &domain.OpError{Op: "create", Node: op.Name, Err: err}
	}

	name := op.Name
	if !spec.Singleton {
		name = r.prefix + op.Name
	}
	nn := newNode{kind: op.Kind, name: name, parent: parent, manager: manager, data: data, tags: op.Tags}

	if r.existing != nil && !spec.Singleton {
		if h, ok := r.existing[op.Name]; ok {
			if old, ok := s.nodes[h]; ok {
				r.seen[op.Name] = true
				if old.kind == op.Kind {
					if err := s.updateInPlace(old, nn); err != nil {
						return &domain.OpError{Op: "update", Node: old.name, Err: err}
					}
					r.table[op.Name] = old.handle
					r.updated++
					return nil
				}
				n, err := s.replaceNode(old, nn)
				if err != nil {
					return err
				}
				r.table[op.Name] = n.handle
				r.replaced = append(r.replaced, old)
				r.created = append(r.created, n.handle)
				return nil
			}
		}
	}

	n, err := s.create("create", nn)
	if err != nil {
		return err
	}
	r.table[op.Name] = n.handle
	r.created = append(r.created, n.handle)
	// members of described aggregates belong to the component too
	if r.owner != nil && !spec.Singleton {
		r.owner.track(op.Name, n.handle)
	}
	return nil
}

func (s *Scene) replaySet(op domain.Op, r *replay) error {
	n, err := s.resolver(r)(op.Target)
	if err != nil {
		return &domain.OpError{Op: "set", Node: op.Target, Err: err}
	}
	if op.Property == domain.PropPath {
		path, _ := op.Value.(string)
		return s.SetComponentPath(n.handle, path)
	}
	if err := s.checkChange("set", n, op.Property); err != nil {
		return err
	}
	if err := s.apply(n, op.Property, op.Value); err != nil {
		return &domain.OpError{Op: "set", Node: n.name, Err: err}
	}
	s.recordOverride(n, op.Property)
	return nil
}

// updateInPlace rewrites a kept node from its fresh description, preserving its handle.
func (s *Scene) updateInPlace(n *Node, nn newNode) error {
	if nn.parent != n.parent && nn.parent != domain.NoHandle && s.ancestors(nn.parent)[n.handle] {
		return fmt.Errorf("%w: %q is an ancestor of its new parent", domain.ErrStructuralCycle, n.name)
	}
	n.tags = append([]string(nil), nn.tags...)
	if m, ok := s.nodes[n.manager]; ok {
		if c, ok := m.data.(*CouplingData); ok && c.lender(n) != domain.NoHandle {
			return c.reattach(s, n, nn)
		}
	}
	n.parent = nn.parent
	if u, ok := n.data.(updater); ok {
		return u.update(s, n, nn.data)
	}
	n.data = nn.data
	return nil
}

// replaceNode creates the successor of a node whose kind changed. The old node keeps
// existing, nameless, until the caller deletes it; managers referring to it are offered
// the new node first.
func (s *Scene) replaceNode(old *Node, nn newNode) (*Node, error) {
	s.names.Release(old.name, old.handle)
	nn.name, nn.exact = old.name, true
	n, err := s.create("replace", nn)
	if err != nil {
		_ = s.names.Claim(old.name, old.handle)
		return nil, err
	}
	if m, mgr := s.managerOf(old); mgr != nil {
		mgr.TrySwap(s, m, old.handle, n.handle)
	}
	for _, h := range s.order {
		m := s.nodes[h]
		mgr, ok := m.data.(Manager)
		if !ok || m.handle == old.manager {
			continue
		}
		for _, ref := range m.data.References() {
			if ref == old.handle {
				if mgr.TrySwap(s, m, old.handle, n.handle) {
					s.logger.Debug("manager swapped reference", "manager", m.name, "node", n.name)
				}
				break
			}
		}
	}
	for _, c := range s.Children(old.handle) {
		if n.FrameLike() {
			c.parent = n.handle
		}
	}
	return n, nil
}

// rollback deletes every node created by a failed replay.
func (s *Scene) rollback(r *replay) {
	for i := len(r.created) - 1; i >= 0; i-- {
		if n, ok := s.nodes[r.created[i]]; ok {
			s.deleteSet(n)
		}
	}
}
