package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func create(kind Kind, name, parent string, args map[string]any) Op {
	return Op{Op: OpCreate, Kind: kind, Name: name, Parent: parent, Args: args}
}

func TestDiff(t *testing.T) {
	base := &Description{
		Format: FormatVersion,
		Ops: []Op{
			create(KindFrame, "a", "", map[string]any{"mass": 1.0}),
			create(KindPoint, "b", "a", nil),
			create(KindFrame, "c", "a", nil),
		},
	}

	tests := []struct {
		name string
		old  *Description
		new  *Description
		want *DescriptionDiff
	}{
		{
			name: "Initial Load (Old is Nil)",
			old:  nil,
			new:  base,
			want: &DescriptionDiff{Added: []string{"a", "b", "c"}},
		},
		{
			name: "No Changes",
			old:  base,
			new:  base,
			want: &DescriptionDiff{},
		},
		{
			name: "Changed, Kind Changed, Removed and Added",
			old:  base,
			new: &Description{
				Format: FormatVersion,
				Ops: []Op{
					create(KindFrame, "a", "", map[string]any{"mass": 2.0}),
					create(KindFrame, "b", "a", nil),
					create(KindPoint, "d", "a", nil),
				},
			},
			want: &DescriptionDiff{
				Added:       []string{"d"},
				Changed:     []string{"a"},
				KindChanged: []string{"b"},
				Removed:     []string{"c"},
			},
		},
		{
			name: "Settings and Overrides",
			old:  base,
			new: &Description{
				Format:   FormatVersion,
				Settings: Settings{Gravity: 1},
				Ops: append(append([]Op{}, base.Ops...),
					Op{Op: OpSet, Target: "a", Property: PropMass, Value: 3.0}),
			},
			want: &DescriptionDiff{Settings: true, Overrides: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Diff(tt.old, tt.new)
			require.NotNil(t, got)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.want.IsEmpty(), got.IsEmpty())
		})
	}
}

func TestDiff_NilNew(t *testing.T) {
	assert.Nil(t, Diff(&Description{}, nil))
}

func TestDiff_JSONOmitsEmptyLists(t *testing.T) {
	d := &DescriptionDiff{Added: []string{"a"}}
	b, err := json.Marshal(d)
	require.NoError(t, err)
	assert.JSONEq(t, `{"added":["a"]}`, string(b))
}

func TestDOF(t *testing.T) {
	d := AllFixed
	assert.False(t, d.AnyFree())
	d[5] = false
	assert.True(t, d.AnyFree())
	assert.Equal(t, 1, d.FreeCount())
	assert.Equal(t, [3]bool{false, false, true}, d.Rotation())
	assert.Equal(t, [3]bool{false, false, false}, d.Translation())
}

func TestOpError(t *testing.T) {
	err := NewOpError("delete", "x/a", ErrManagedNodeProtected, "managed by %s", "x")
	assert.ErrorIs(t, err, ErrManagedNodeProtected)
	assert.Equal(t, `delete "x/a": managed node protected: managed by x`, err.Error())

	agg := &AggregateError{Errors: []error{err, ErrNameNotFound}}
	assert.ErrorIs(t, agg, ErrNameNotFound)
	assert.Contains(t, agg.Error(), "2 errors during load")
}

func TestJoinName(t *testing.T) {
	assert.Equal(t, "a/b", JoinName("a", "", "b"))
	head, rest, ok := SplitName("a/b/c")
	assert.True(t, ok)
	assert.Equal(t, "a", head)
	assert.Equal(t, "b/c", rest)
}
