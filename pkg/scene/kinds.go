package scene

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"

	"github.com/aretw0/keel/pkg/domain"
	"github.com/aretw0/keel/pkg/geometry"
)

// RefResolver turns a reference argument (a name, a domain.Handle or a *Node) into a live node.
type RefResolver func(ref any) (*Node, error)

// KindSpec registers a node kind in a Scene's kind table.
type KindSpec struct {
	Kind domain.Kind
	// New returns a payload with defaults applied.
	New func() NodeData
	// Decode fills data from description arguments.
	Decode func(data NodeData, args map[string]any, refs RefResolver) error
	// Singleton kinds are shared by name across component and import boundaries.
	Singleton bool
	// Parented kinds may have a structural parent frame.
	Parented bool
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// DecodeArgs decodes description arguments into out with weak typing and rejects unknown
// keys, then validates out's struct tags.
func DecodeArgs(args map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(args); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidArgument, err)
	}
	if err := validate.Struct(out); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidArgument, err)
	}
	return nil
}

func builtinKinds() []KindSpec {
	return []KindSpec{
		{Kind: domain.KindFrame, New: newFrame, Decode: decodeFrame, Parented: true},
		{Kind: domain.KindPoint, New: func() NodeData { return &PointData{} }, Decode: decodePoint, Parented: true},
		{Kind: domain.KindSection, New: func() NodeData { return &SectionData{} }, Decode: decodeSection, Singleton: true},
		{Kind: domain.KindCable, New: func() NodeData { return &CableData{} }, Decode: decodeCable},
		{Kind: domain.KindAggregate, New: func() NodeData { return &AggregateData{} }, Decode: decodeNone},
		{Kind: domain.KindComponent, New: newComponent, Decode: decodeComponent, Parented: true},
		{Kind: domain.KindCoupling, New: func() NodeData { return &CouplingData{} }, Decode: decodeCoupling},
	}
}

func decodeNone(_ NodeData, args map[string]any, _ RefResolver) error {
	if len(args) > 0 {
		return fmt.Errorf("%w: kind takes no arguments", domain.ErrInvalidArgument)
	}
	return nil
}

// FrameData is the payload of frames: a local pose, the fixed mask and a mass.
type FrameData struct {
	Position [3]float64 `mapstructure:"position"`
	Rotation [3]float64 `mapstructure:"rotation"`
	Fixed    domain.DOF `mapstructure:"fixed"`
	Mass     float64    `mapstructure:"mass" validate:"gte=0"`
}

func newFrame() NodeData { return &FrameData{Fixed: domain.AllFixed} }

func decodeFrame(data NodeData, args map[string]any, _ RefResolver) error {
	return DecodeArgs(args, data.(*FrameData))
}

func (f *FrameData) References() []domain.Handle            { return nil }
func (f *FrameData) Remap(func(domain.Handle) domain.Handle) {}
func (f *FrameData) Clone() NodeData                         { c := *f; return &c }
func (f *FrameData) Pose() geometry.Pose                     { return geometry.FromArrays(f.Position, f.Rotation) }
func (f *FrameData) DOF() domain.DOF                         { return f.Fixed }

func (f *FrameData) SetPose(p geometry.Pose) {
	f.Position, f.Rotation = p.Arrays()
}

func (f *FrameData) Args(func(domain.Handle) string) map[string]any {
	return map[string]any{
		string(domain.PropPosition): f.Position,
		string(domain.PropRotation): f.Rotation,
		string(domain.PropFixed):    f.Fixed,
		string(domain.PropMass):     f.Mass,
	}
}

// PointData is the payload of points.
type PointData struct {
	Position [3]float64 `mapstructure:"position"`
}

func decodePoint(data NodeData, args map[string]any, _ RefResolver) error {
	return DecodeArgs(args, data.(*PointData))
}

func (p *PointData) References() []domain.Handle            { return nil }
func (p *PointData) Remap(func(domain.Handle) domain.Handle) {}
func (p *PointData) Clone() NodeData                         { c := *p; return &c }
func (p *PointData) Point() [3]float64                       { return p.Position }
func (p *PointData) SetPoint(v [3]float64)                   { p.Position = v }

func (p *PointData) Args(func(domain.Handle) string) map[string]any {
	return map[string]any{string(domain.PropPosition): p.Position}
}

// SectionData is the payload of cable cross-sections.
type SectionData struct {
	EA            float64 `mapstructure:"ea" validate:"gte=0"`
	MassPerLength float64 `mapstructure:"mass_per_length" validate:"gte=0"`
	Diameter      float64 `mapstructure:"diameter" validate:"gte=0"`
}

func decodeSection(data NodeData, args map[string]any, _ RefResolver) error {
	return DecodeArgs(args, data.(*SectionData))
}

func (s *SectionData) References() []domain.Handle            { return nil }
func (s *SectionData) Remap(func(domain.Handle) domain.Handle) {}
func (s *SectionData) Clone() NodeData                         { c := *s; return &c }

func (s *SectionData) Args(func(domain.Handle) string) map[string]any {
	return map[string]any{
		string(domain.PropEA):            s.EA,
		string(domain.PropMassPerLength): s.MassPerLength,
		string(domain.PropDiameter):      s.Diameter,
	}
}

// CableData is the payload of cables: an ordered list of connected points, an optional
// section and a rest length.
type CableData struct {
	Connections []domain.Handle
	Section     domain.Handle
	Length      float64
}

type cableArgs struct {
	Connections []any   `mapstructure:"connections" validate:"min=2"`
	Section     any     `mapstructure:"section"`
	Length      float64 `mapstructure:"length" validate:"gte=0"`
}

func decodeCable(data NodeData, args map[string]any, refs RefResolver) error {
	var a cableArgs
	if err := DecodeArgs(args, &a); err != nil {
		return err
	}
	c := data.(*CableData)
	c.Connections = c.Connections[:0]
	for _, ref := range a.Connections {
		n, err := refs(ref)
		if err != nil {
			return err
		}
		if n.kind != domain.KindPoint {
			return fmt.Errorf("%w: cable connection %q is a %s, not a point", domain.ErrInvalidReference, n.name, n.kind)
		}
		c.Connections = append(c.Connections, n.handle)
	}
	c.Section = domain.NoHandle
	if a.Section != nil && a.Section != "" {
		n, err := refs(a.Section)
		if err != nil {
			return err
		}
		if n.kind != domain.KindSection {
			return fmt.Errorf("%w: cable section %q is a %s", domain.ErrInvalidReference, n.name, n.kind)
		}
		c.Section = n.handle
	}
	c.Length = a.Length
	return nil
}

func (c *CableData) References() []domain.Handle {
	refs := append([]domain.Handle(nil), c.Connections...)
	if c.Section != domain.NoHandle {
		refs = append(refs, c.Section)
	}
	return refs
}

func (c *CableData) Remap(fn func(domain.Handle) domain.Handle) {
	for i, h := range c.Connections {
		c.Connections[i] = fn(h)
	}
	if c.Section != domain.NoHandle {
		c.Section = fn(c.Section)
	}
}

func (c *CableData) Clone() NodeData {
	cp := *c
	cp.Connections = append([]domain.Handle(nil), c.Connections...)
	return &cp
}

func (c *CableData) Args(name func(domain.Handle) string) map[string]any {
	conns := make([]any, len(c.Connections))
	for i, h := range c.Connections {
		conns[i] = name(h)
	}
	args := map[string]any{
		string(domain.PropConnections): conns,
		string(domain.PropLength):      c.Length,
	}
	if c.Section != domain.NoHandle {
		args[string(domain.PropSection)] = name(c.Section)
	}
	return args
}
