package ports

import (
	"context"

	"github.com/aretw0/keel/pkg/domain"
)

// OverrideStore persists property values set on manager-created nodes so they survive a
// component re-synchronization. Keys are fully qualified node names.
type OverrideStore interface {
	// Set records value for property of node, replacing a previous value.
	Set(ctx context.Context, node string, property domain.Property, value any) error

	// Get returns the overrides of node. An unknown node yields an empty map.
	Get(ctx context.Context, node string) (map[domain.Property]any, error)

	// Delete removes every override of node.
	Delete(ctx context.Context, node string) error

	// List returns the overrides of every node whose name equals prefix or starts with
	// prefix followed by "/", sorted by node then property. An empty prefix lists everything.
	List(ctx context.Context, prefix string) ([]domain.Override, error)
}
