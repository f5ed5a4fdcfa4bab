package tests

import (
	"errors"
	"testing"

	"github.com/aretw0/keel/pkg/domain"
	"github.com/aretw0/keel/pkg/ports"
)

// DescriptionSourceContractTest is a reusable test suite that verifies if an adapter complies
// with ports.DescriptionSource. setupData maps each path the source was seeded with to its
// description.
func DescriptionSourceContractTest(t *testing.T, source ports.DescriptionSource, setupData map[string]*domain.Description) {
	t.Helper()

	// 1. Test Fetch (Success)
	t.Run("Fetch_Success", func(t *testing.T) {
		for path, expected := range setupData {
			desc, err := source.Fetch(path)
			if err != nil {
				t.Fatalf("unexpected error fetching %s: %v", path, err)
			}
			if len(desc.Ops) != len(expected.Ops) {
				t.Fatalf("op count mismatch for %s. got %d, want %d", path, len(desc.Ops), len(expected.Ops))
			}
			for i, op := range desc.Ops {
				if op.Op != expected.Ops[i].Op || op.Name != expected.Ops[i].Name || op.Kind != expected.Ops[i].Kind {
					t.Errorf("op %d mismatch for %s. got %+v, want %+v", i, path, op, expected.Ops[i])
				}
			}
		}
	})

	// 2. Test Fetch (NotFound)
	t.Run("Fetch_NotFound", func(t *testing.T) {
		_, err := source.Fetch("non-existent-description")
		if !errors.Is(err, domain.ErrSourceNotFound) {
			t.Errorf("expected ErrSourceNotFound, got %v", err)
		}
	})

	// 3. Test List
	t.Run("List", func(t *testing.T) {
		paths, err := source.List()
		if err != nil {
			t.Fatalf("unexpected error listing paths: %v", err)
		}

		if len(paths) != len(setupData) {
			t.Errorf("expected %d paths, got %d", len(setupData), len(paths))
		}

		lookup := make(map[string]bool)
		for _, p := range paths {
			lookup[p] = true
		}
		for p := range setupData {
			if !lookup[p] {
				t.Errorf("path %s missing from list", p)
			}
		}
	})
}
