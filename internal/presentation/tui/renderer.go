package tui

import (
	"io"
	"os"

	"github.com/charmbracelet/glamour"
	"golang.org/x/term"
)

// defaultWidth is the wrap width used when w is not a terminal.
const defaultWidth = 80

// IsTerminal reports whether w writes to a terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// NewRenderer returns a function that renders markdown for w using glamour.
// Terminals get an auto-detected light/dark style wrapped to their width; anything else
// gets the plain "notty" style.
func NewRenderer(w io.Writer) func(string) (string, error) {
	opts := []glamour.TermRendererOption{glamour.WithStandardStyle("notty"), glamour.WithWordWrap(defaultWidth)}
	if IsTerminal(w) {
		width := defaultWidth
		if cols, _, err := term.GetSize(int(w.(*os.File).Fd())); err == nil && cols > 0 {
			width = cols
		}
		opts = []glamour.TermRendererOption{glamour.WithAutoStyle(), glamour.WithWordWrap(width)}
	}

	r, err := glamour.NewTermRenderer(opts...)
	return func(markdown string) (string, error) {
		if err != nil {
			return markdown, err
		}
		return r.Render(markdown)
	}
}
