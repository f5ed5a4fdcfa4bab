package keel_test

import (
	"fmt"
	"log"

	"github.com/aretw0/keel"
	"github.com/aretw0/keel/pkg/adapters/memory"
	"github.com/aretw0/keel/pkg/domain"
)

// ExampleOpen_memory demonstrates loading a model whose descriptions live in memory.
// This is useful for testing or when descriptions come from somewhere other than files.
func ExampleOpen_memory() {
	src := memory.NewSource(map[string]*domain.Description{
		"ship.yaml": {Ops: []domain.Op{
			{Op: domain.OpCreate, Kind: domain.KindFrame, Name: "hull"},
			{Op: domain.OpCreate, Kind: domain.KindComponent, Name: "crane", Parent: "hull",
				Args: map[string]any{"path": "crane.yaml"}},
		}},
		"crane.yaml": {Ops: []domain.Op{
			{Op: domain.OpCreate, Kind: domain.KindFrame, Name: "boom"},
			{Op: domain.OpCreate, Kind: domain.KindPoint, Name: "tip", Parent: "boom"},
		}},
	})

	model, err := keel.Open("fleet", "ship.yaml", keel.WithSource(src))
	if err != nil {
		log.Fatal(err)
	}
	for _, n := range model.Scene().Nodes() {
		fmt.Println(n.Name(), n.Kind())
	}

	// Output:
	// hull frame
	// crane component
	// crane/boom frame
	// crane/tip point
}
