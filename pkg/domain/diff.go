package domain

import (
	"reflect"
)

// DescriptionDiff lists, by node name, how the create operations of two descriptions differ.
// Names keep the order in which they appear in the newer description; removals keep the
// order of the older one.
type DescriptionDiff struct {
	Added       []string `json:"added,omitempty"`
	Changed     []string `json:"changed,omitempty"`
	KindChanged []string `json:"kind_changed,omitempty"`
	Removed     []string `json:"removed,omitempty"`

	// Settings is true when the scene-wide settings differ.
	Settings bool `json:"settings,omitempty"`
	// Overrides is true when the set operations differ.
	Overrides bool `json:"overrides,omitempty"`
}

// Diff calculates the difference between oldDesc and newDesc.
// If oldDesc is nil, every created node of newDesc is reported as added.
func Diff(oldDesc, newDesc *Description) *DescriptionDiff {
	if newDesc == nil {
		return nil
	}
	diff := &DescriptionDiff{}

	previous := make(map[string]Op)
	var previousSets []Op
	if oldDesc != nil {
		for _, op := range oldDesc.Ops {
			if op.Op == OpCreate {
				previous[op.Name] = op
			} else {
				previousSets = append(previousSets, op)
			}
		}
		diff.Settings = oldDesc.Settings != newDesc.Settings
	}

	seen := make(map[string]bool)
	var sets []Op
	for _, op := range newDesc.Ops {
		if op.Op != OpCreate {
			sets = append(sets, op)
			continue
		}
		seen[op.Name] = true
		old, exists := previous[op.Name]
		switch {
		case !exists:
			diff.Added = append(diff.Added, op.Name)
		case old.Kind != op.Kind:
			diff.KindChanged = append(diff.KindChanged, op.Name)
		case !sameCreate(old, op):
			diff.Changed = append(diff.Changed, op.Name)
		}
	}

	if oldDesc != nil {
		for _, op := range oldDesc.Ops {
			if op.Op == OpCreate && !seen[op.Name] {
				diff.Removed = append(diff.Removed, op.Name)
			}
		}
	}

	diff.Overrides = len(previousSets) != len(sets) || (len(sets) > 0 && !reflect.DeepEqual(previousSets, sets))
	return diff
}

func sameCreate(a, b Op) bool {
	if a.Parent != b.Parent || a.Manager != b.Manager {
		return false
	}
	if !reflect.DeepEqual(a.Tags, b.Tags) {
		return false
	}
	if len(a.Args) == 0 && len(b.Args) == 0 {
		return true
	}
	return reflect.DeepEqual(a.Args, b.Args)
}

// IsEmpty checks if the diff contains any change.
func (d *DescriptionDiff) IsEmpty() bool {
	return len(d.Added) == 0 &&
		len(d.Changed) == 0 &&
		len(d.KindChanged) == 0 &&
		len(d.Removed) == 0 &&
		!d.Settings &&
		!d.Overrides
}
