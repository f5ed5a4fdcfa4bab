package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/aretw0/keel"
	"github.com/aretw0/keel/internal/presentation/graph"
	"github.com/aretw0/keel/internal/presentation/tui"
	"github.com/aretw0/keel/pkg/codec"
	"github.com/aretw0/keel/pkg/domain"
)

// ErrInvalidModel is returned by Validate when the model loads with failures.
var ErrInvalidModel = errors.New("model has errors")

func open(opts Options) (*keel.Model, error) {
	logger, err := createLogger(opts.LogLevel)
	if err != nil {
		return nil, err
	}
	return openModel(opts, logger, createDebugHooks(logger))
}

// Validate loads the model tolerantly and lists every failing operation.
func Validate(opts Options, w io.Writer) error {
	opts.Tolerate = true
	m, err := open(opts)
	if err != nil {
		return err
	}
	report := m.Report()
	if !report.ErrorsDuringLoad {
		fmt.Fprintf(w, "%s %s: %d nodes\n", tui.Status(w, true, "ok"), m.Path(), m.Scene().Len())
		return nil
	}
	for _, f := range report.Failures {
		fmt.Fprintf(w, "%s op %d (%s %s): %v\n", tui.Status(w, false, "error"), f.Index, f.Op.Op, opLabel(f.Op), f.Err)
	}
	return fmt.Errorf("%w: %d of the operations failed", ErrInvalidModel, len(report.Failures))
}

func opLabel(op domain.Op) string {
	if op.Op == domain.OpSet {
		return op.Target + "." + string(op.Property)
	}
	return op.Name
}

// Tree renders the placement tree of the model.
func Tree(opts Options, collapse bool, w io.Writer) error {
	m, err := open(opts)
	if err != nil {
		return err
	}
	md, err := tui.TreeMarkdown(m.Scene(), tui.TreeOptions{Collapse: collapse, Title: m.Path()})
	if err != nil {
		return err
	}
	out, err := tui.NewRenderer(w)(md)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, out)
	return err
}

// Graph prints the Mermaid flowchart of the model.
func Graph(opts Options, w io.Writer) error {
	m, err := open(opts)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, graph.GenerateMermaid(m.Scene(), nil))
	return err
}

// Copy round-trips the model through Copy and Describe and prints the description in
// format ("yaml" or "json").
func Copy(opts Options, format string, w io.Writer) error {
	c, err := codec.ForFormat(format)
	if err != nil {
		return err
	}
	m, err := open(opts)
	if err != nil {
		return err
	}
	original := m.Scene().Describe()
	dup, err := m.Scene().Copy()
	if err != nil {
		return fmt.Errorf("copy failed: %w", err)
	}
	copied := dup.Describe()
	if diff := domain.Diff(original, copied); !diff.IsEmpty() {
		return fmt.Errorf("copy differs from the original: %+v", *diff)
	}
	return c.Export(copied, w)
}
