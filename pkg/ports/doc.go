/*
Package ports defines the driven ports (interfaces) of the keel runtime.

These interfaces decouple the Scene from its external collaborators, allowing components to
be read from any description source, overrides to live in any store and any numerical solver
to run over the free-variable vector.

# Key Interfaces

  - DescriptionSource: Fetches the structural description behind a component path.
  - Watchable: Notifies about changed paths so components can be refreshed.
  - OverrideStore: Persists property values set on manager-created nodes.
  - Solver: Drives the free-variable vector of an Exchange to equilibrium.
*/
package ports
