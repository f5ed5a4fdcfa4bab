package domain

import (
	"context"
	"time"
)

// NodeEvent describes a node entering or leaving a Scene.
type NodeEvent struct {
	Timestamp time.Time `json:"timestamp"`
	Scene     string    `json:"scene"`
	Handle    Handle    `json:"handle"`
	Name      string    `json:"name"`
	Kind      Kind      `json:"kind"`
}

// ComponentEvent describes a component load or re-synchronization.
type ComponentEvent struct {
	Timestamp time.Time `json:"timestamp"`
	Scene     string    `json:"scene"`
	Name      string    `json:"name"`
	Path      string    `json:"path,omitempty"`
	Created   int       `json:"created"`
	Updated   int       `json:"updated"`
	Deleted   int       `json:"deleted"`
	Err       error     `json:"-"`
}

// SolveEvent describes the end of a background solve.
type SolveEvent struct {
	Timestamp time.Time     `json:"timestamp"`
	Duration  time.Duration `json:"duration"`
	Converged bool          `json:"converged"`
	Cancelled bool          `json:"cancelled"`
	Err       error         `json:"-"`
}

// LifecycleHooks defines callbacks for runtime observability. Nil hooks are skipped.
type LifecycleHooks struct {
	OnNodeCreated     func(context.Context, *NodeEvent)
	OnNodeDeleted     func(context.Context, *NodeEvent)
	OnComponentSynced func(context.Context, *ComponentEvent)
	OnSolveFinished   func(context.Context, *SolveEvent)
}
