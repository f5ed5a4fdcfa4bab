package ports

import "context"

// Exchange is the narrow interface through which a solver reads and writes the free
// variables of a Scene.
type Exchange interface {
	// FreeVariables returns the current values of every free degree of freedom.
	FreeVariables() []float64

	// SetFreeVariables writes values back in the order FreeVariables returned them.
	SetFreeVariables(values []float64) error

	// StateUpdate recomputes derived state (global poses) after a write.
	StateUpdate()
}

// SolveTarget is an Exchange that can be locked against structural edits for the duration
// of a solve.
type SolveTarget interface {
	Exchange

	// BeginSolve registers an active solve. cancel is invoked when the target is asked to
	// stop the solve; release must be called when the solve ends.
	BeginSolve(cancel func()) (release func(), err error)
}

// Solver drives an Exchange to equilibrium. It reports convergence, never structural errors;
// a returned error means the solve could not run (for example ctx was cancelled).
type Solver interface {
	Solve(ctx context.Context, ex Exchange) (converged bool, err error)
}
