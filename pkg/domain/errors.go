package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNameUnavailable is returned when a name is invalid or already taken.
	ErrNameUnavailable = errors.New("name unavailable")
	// ErrNameNotFound is returned when a name does not resolve to a node.
	ErrNameNotFound = errors.New("name not found")
	// ErrInvalidReference is returned when a handle or reference points to a removed or unsuitable node.
	ErrInvalidReference = errors.New("invalid reference")
	// ErrStructuralCycle is returned when a parent or manager change would close a cycle.
	ErrStructuralCycle = errors.New("structural cycle")
	// ErrPropertyChangeNotAllowed is returned when a manager refuses a property change.
	ErrPropertyChangeNotAllowed = errors.New("property change not allowed")
	// ErrHasDegreesOfFreedom is returned when dissolving a frame with a free degree of freedom.
	ErrHasDegreesOfFreedom = errors.New("node has degrees of freedom")
	// ErrWouldChangeDofOrientation is returned when dissolving would re-orient a child's free axes.
	ErrWouldChangeDofOrientation = errors.New("would change dof orientation")
	// ErrManagedNodeProtected is returned when deleting or dissolving a node its manager protects.
	ErrManagedNodeProtected = errors.New("managed node protected")
	// ErrInvalidArgument is returned when operation arguments fail validation.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrSolveActive is returned for structural edits while a solve is running.
	ErrSolveActive = errors.New("solve active")
	// ErrUnknownKind is returned when a kind is not registered in the Scene's kind table.
	ErrUnknownKind = errors.New("unknown kind")
	// ErrIncompatibleFormat is returned when a description's format version is not supported.
	ErrIncompatibleFormat = errors.New("incompatible description format")
)

// OpError records the operation and node that failed together with the cause.
type OpError struct {
	Op   string
	Node string
	Err  error
}

func (e *OpError) Error() string {
	if e.Node == "" {
		return e.Op + ": " + e.Err.Error()
	}
	return fmt.Sprintf("%s %q: %s", e.Op, e.Node, e.Err.Error())
}

func (e *OpError) Unwrap() error { return e.Err }

// NewOpError wraps err, formatting an optional detail after the sentinel.
func NewOpError(op, node string, err error, format string, args ...any) *OpError {
	if format != "" {
		err = fmt.Errorf("%w: %s", err, fmt.Sprintf(format, args...))
	}
	return &OpError{Op: op, Node: node, Err: err}
}

// AggregateError collects the failures of a tolerant load.
type AggregateError struct {
	Errors []error
}

func (e *AggregateError) Error() string {
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d errors during load:\n", len(e.Errors))
	for i, err := range e.Errors {
		fmt.Fprintf(&b, "  %d. %s\n", i+1, err.Error())
	}
	return b.String()
}

// Unwrap exposes the collected errors to errors.Is and errors.As.
func (e *AggregateError) Unwrap() []error { return e.Errors }

// ErrSourceNotFound is returned by description sources for unknown paths.
var ErrSourceNotFound = errors.New("description source not found")
