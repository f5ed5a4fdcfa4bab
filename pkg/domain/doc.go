/*
Package domain contains the shared vocabulary of the keel node runtime.

It defines the identifiers, kinds and properties used to address nodes, the structural
description exchanged with serializers, the degree-of-freedom mask of frames and the sentinel
errors returned by every Scene operation. The package is kept free of I/O and of the graph
logic itself, which lives in package scene.

# Key Entities

  - Handle: Stable identity of a node within one Scene, never reused.
  - Kind: The closed set of node kinds (frame, point, section, cable, aggregate, component, coupling).
  - Property: Names of the properties a Scene operation can change.
  - Description: The ordered list of create/set operations that reconstructs a Scene.
  - LifecycleHooks: Callbacks fired on node creation/deletion, component sync and solve completion.
*/
package domain
