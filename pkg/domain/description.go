package domain

// FormatVersion is the description format written by Describe.
const FormatVersion = "1.0.0"

// OpType distinguishes description operations.
type OpType string

const (
	OpCreate OpType = "create"
	OpSet    OpType = "set"
)

// Description is the structural description of a Scene: replaying its operations in order
// reconstructs an equivalent Scene.
type Description struct {
	Format   string   `json:"format" yaml:"format"`
	Settings Settings `json:"settings" yaml:"settings"`
	Ops      []Op     `json:"ops" yaml:"ops"`
}

// Settings are the scene-wide values consumed by the solver.
type Settings struct {
	Gravity    float64 `json:"gravity" yaml:"gravity" mapstructure:"gravity"`
	WaterLevel float64 `json:"water_level" yaml:"water_level" mapstructure:"water_level"`
	Tolerance  float64 `json:"tolerance" yaml:"tolerance" mapstructure:"tolerance"`
}

// DefaultSettings returns the settings of a new Scene.
func DefaultSettings() Settings {
	return Settings{Gravity: 9.81, Tolerance: 1e-6}
}

// Op is one description operation. Create ops use Kind, Name, Parent, Manager, Args and Tags;
// set ops use Target, Property and Value. Node references are always names.
type Op struct {
	Op       OpType         `json:"op" yaml:"op"`
	Kind     Kind           `json:"kind,omitempty" yaml:"kind,omitempty"`
	Name     string         `json:"name,omitempty" yaml:"name,omitempty"`
	Parent   string         `json:"parent,omitempty" yaml:"parent,omitempty"`
	Manager  string         `json:"manager,omitempty" yaml:"manager,omitempty"`
	Args     map[string]any `json:"args,omitempty" yaml:"args,omitempty"`
	Tags     []string       `json:"tags,omitempty" yaml:"tags,omitempty"`
	Target   string         `json:"target,omitempty" yaml:"target,omitempty"`
	Property Property       `json:"property,omitempty" yaml:"property,omitempty"`
	Value    any            `json:"value,omitempty" yaml:"value,omitempty"`
}

// Override is a property value set on a manager-created node, keyed by its qualified name.
type Override struct {
	Node     string   `json:"node"`
	Property Property `json:"property"`
	Value    any      `json:"value"`
}

// Clone returns a copy of d whose op list, tags and argument maps can be modified without
// affecting d. Argument values are shared.
func (d *Description) Clone() *Description {
	if d == nil {
		return nil
	}
	c := *d
	c.Ops = make([]Op, len(d.Ops))
	for i, op := range d.Ops {
		if op.Args != nil {
			args := make(map[string]any, len(op.Args))
			for k, v := range op.Args {
				args[k] = v
			}
			op.Args = args
		}
		if op.Tags != nil {
			op.Tags = append([]string(nil), op.Tags...)
		}
		c.Ops[i] = op
	}
	return &c
}
