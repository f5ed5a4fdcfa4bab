/*
Package keel is the object/node runtime of an engineering modeling tool.

A model is a graph of named nodes (frames, points, cables, sections, aggregates,
components and couplings) owned by a Scene. The Scene keeps names unique, keeps parent and
manager relations acyclic, protects nodes created by a manager from structural edits and
deletes everything depending on a node together with it. Components instantiate reusable
sub-models from descriptions fetched through a ports.DescriptionSource and re-synchronize
when those descriptions change, keeping the overrides made on their nodes.

# Usage

Open a model from a directory of YAML or JSON descriptions:

	package main

	import (
		"log"

		"github.com/aretw0/keel"
	)

	func main() {
		model, err := keel.Open("./models", "ship.yaml")
		if err != nil {
			log.Fatal(err)
		}
		for _, n := range model.Scene().Nodes() {
			log.Println(n.Name(), n.Kind())
		}
	}

The Scene itself lives in package scene and can be driven directly; package solver runs a
ports.Solver against it in the background.
*/
package keel
