package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the keel banner and version to w.
func PrintBanner(w io.Writer, version string) {
	out := termenv.NewOutput(w)
	s1 := out.String("  _              _ ").Foreground(out.Color("#38bdf8"))
	s2 := out.String(" | | _____  ___ | |").Foreground(out.Color("#22d3ee"))
	s3 := out.String(" | |/ / _ \\/ _ \\| |").Foreground(out.Color("#2dd4bf"))
	s4 := out.String(" |   <  __/  __/| |").Foreground(out.Color("#34d399"))
	s5 := out.String(" |_|\\_\\___|\\___||_|").Foreground(out.Color("#4ade80"))

	fmt.Fprintln(w)
	for _, s := range []termenv.Style{s1, s2, s3, s4, s5} {
		fmt.Fprintln(w, s)
	}
	fmt.Fprintf(w, " %s\n\n", out.String("v"+version).Faint())
}

// Status colors a short status word for w: green for ok, red for failures.
func Status(w io.Writer, ok bool, text string) string {
	out := termenv.NewOutput(w)
	color := "#ef4444"
	if ok {
		color = "#22c55e"
	}
	return out.String(text).Foreground(out.Color(color)).Bold().String()
}
