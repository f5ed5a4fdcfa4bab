package memory_test

import (
	"context"
	"testing"

	"github.com/aretw0/keel/pkg/adapters/memory"
	"github.com/aretw0/keel/pkg/domain"
	"github.com/aretw0/keel/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_Contract(t *testing.T) {
	store := memory.NewStore()
	ports.RunOverrideStoreContract(t, store)
}

func TestMemoryStore_Snapshot(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	require.NoError(t, store.Set(ctx, "x/a", domain.PropMass, 1.0))

	snap := store.Snapshot()
	require.NoError(t, store.Set(ctx, "x/a", domain.PropMass, 2.0))

	got, err := snap.Get(ctx, "x/a")
	require.NoError(t, err)
	assert.Equal(t, 1.0, got[domain.PropMass])
}
