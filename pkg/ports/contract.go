package ports

import (
	"context"
	"testing"

	"github.com/aretw0/keel/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunOverrideStoreContract runs a suite of tests to verify that an OverrideStore
// implementation adheres to the defined interface contract. The store must start empty.
func RunOverrideStoreContract(t *testing.T, store OverrideStore) {
	ctx := context.Background()

	t.Run("Set and Get", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, "comp/a", domain.PropMass, 2.5))
		require.NoError(t, store.Set(ctx, "comp/a", domain.PropTags, []any{"red"}))

		got, err := store.Get(ctx, "comp/a")
		require.NoError(t, err)
		// JSON-backed stores return float64 and []any, so compare loosely
		assert.EqualValues(t, 2.5, got[domain.PropMass])
		assert.Len(t, got, 2)
	})

	t.Run("Set Replaces", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, "comp/a", domain.PropMass, 4.0))
		got, err := store.Get(ctx, "comp/a")
		require.NoError(t, err)
		assert.EqualValues(t, 4.0, got[domain.PropMass])
	})

	t.Run("Get Unknown", func(t *testing.T) {
		got, err := store.Get(ctx, "nope")
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("List By Prefix", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, "comp/b", domain.PropMass, 1.0))
		require.NoError(t, store.Set(ctx, "compound/c", domain.PropMass, 1.0))
		require.NoError(t, store.Set(ctx, "other/d", domain.PropMass, 1.0))

		list, err := store.List(ctx, "comp")
		require.NoError(t, err)
		var nodes []string
		for _, o := range list {
			nodes = append(nodes, o.Node+"."+string(o.Property))
		}
		assert.Equal(t, []string{"comp/a.mass", "comp/a.tags", "comp/b.mass"}, nodes)

		all, err := store.List(ctx, "")
		require.NoError(t, err)
		assert.Len(t, all, 5)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Delete(ctx, "comp/a"))
		got, err := store.Get(ctx, "comp/a")
		require.NoError(t, err)
		assert.Empty(t, got)

		assert.NoError(t, store.Delete(ctx, "never-set"), "deleting an unknown node is not an error")
	})
}
