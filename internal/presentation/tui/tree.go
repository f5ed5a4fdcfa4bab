package tui

import (
	"fmt"
	"strings"

	"github.com/aretw0/keel/pkg/domain"
	"github.com/aretw0/keel/pkg/scene"
)

// TreeOptions select what TreeMarkdown shows.
type TreeOptions struct {
	// Collapse hides nodes governed by a manager, placing their descendants under the
	// manager's visible boundary.
	Collapse bool
	// Title is the heading of the document. Empty omits it.
	Title string
}

// TreeMarkdown renders the placement tree of s as a nested markdown list. Each entry shows
// the node name, its kind and, for frames, the free degrees of freedom.
func TreeMarkdown(s *scene.Scene, opts TreeOptions) (string, error) {
	visible := func(n *scene.Node) bool {
		return !opts.Collapse || n.Manager() == domain.NoHandle
	}

	children := make(map[domain.Handle][]*scene.Node)
	for _, n := range s.Nodes() {
		if !visible(n) {
			continue
		}
		p, err := s.PlacementParent(n.Handle(), visible)
		if err != nil {
			return "", err
		}
		children[p] = append(children[p], n)
	}

	var sb strings.Builder
	if opts.Title != "" {
		fmt.Fprintf(&sb, "# %s\n\n", opts.Title)
	}
	seen := make(map[domain.Handle]bool)
	var walk func(h domain.Handle, depth int)
	walk = func(h domain.Handle, depth int) {
		for _, n := range children[h] {
			if seen[n.Handle()] {
				continue
			}
			seen[n.Handle()] = true
			fmt.Fprintf(&sb, "%s- **%s** `%s`%s\n", strings.Repeat("  ", depth), n.Name(), n.Kind(), annotate(s, n))
			walk(n.Handle(), depth+1)
		}
	}
	walk(domain.NoHandle, 0)
	return sb.String(), nil
}

var dofNames = [6]string{"x", "y", "z", "rx", "ry", "rz"}

func annotate(s *scene.Scene, n *scene.Node) string {
	var notes []string
	if p, ok := n.Data().(scene.Placed); ok {
		var free []string
		for i, fixed := range p.DOF() {
			if !fixed {
				free = append(free, dofNames[i])
			}
		}
		if len(free) > 0 {
			notes = append(notes, "free "+strings.Join(free, " "))
		}
	}
	if n.Kind() == domain.KindComponent {
		if st, err := s.ComponentState(n.Handle()); err == nil {
			notes = append(notes, st.String())
		}
	}
	if tags := n.Tags(); len(tags) > 0 {
		notes = append(notes, "#"+strings.Join(tags, " #"))
	}
	if len(notes) == 0 {
		return ""
	}
	return " (" + strings.Join(notes, ", ") + ")"
}
