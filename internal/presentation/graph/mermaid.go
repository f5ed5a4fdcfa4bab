package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/keel/pkg/domain"
	"github.com/aretw0/keel/pkg/scene"
)

// GraphOverlay contains dynamic state data to visualize on the graph.
type GraphOverlay struct {
	// Highlight names the nodes to emphasize, e.g. the ones touched by a refresh.
	Highlight []string
	// Selected is the node under inspection.
	Selected string
}

// GenerateMermaid produces a Mermaid flowchart of a Scene.
// Node shape follows kind:
// - Frame: [Rectangle]
// - Point: ((Circle))
// - Component: [[Subroutine]]
// - Aggregate: {{Hexagon}}
// - Coupling: [/Parallelogram/]
// - Other: >Flag]
// Parent edges are solid, manager edges dotted and payload references labelled.
// Frames with free degrees of freedom get the "free" class.
func GenerateMermaid(s *scene.Scene, overlay *GraphOverlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	name := func(h domain.Handle) string {
		if n, err := s.Node(h); err == nil {
			return n.Name()
		}
		return ""
	}

	var free []string
	for _, node := range s.Nodes() {
		safeID := sanitizeMermaidID(node.Name())

		opener, closer := ">", "]"
		switch node.Kind() {
		case domain.KindFrame:
			opener, closer = "[", "]"
		case domain.KindPoint:
			opener, closer = "((", "))"
		case domain.KindComponent:
			opener, closer = "[[", "]]"
		case domain.KindAggregate:
			opener, closer = "{{", "}}"
		case domain.KindCoupling:
			opener, closer = "[/", "/]"
		}
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", safeID, opener, node.Name(), closer)

		if p, ok := node.Data().(scene.Placed); ok && p.DOF().AnyFree() {
			free = append(free, safeID)
		}

		if parent := name(node.Parent()); parent != "" {
			fmt.Fprintf(&sb, "    %s --> %s\n", sanitizeMermaidID(parent), safeID)
		}
		if manager := name(node.Manager()); manager != "" {
			fmt.Fprintf(&sb, "    %s -.-> %s\n", sanitizeMermaidID(manager), safeID)
		}
		for _, ref := range node.Data().References() {
			if target := name(ref); target != "" {
				fmt.Fprintf(&sb, "    %s -- \"uses\" --> %s\n", safeID, sanitizeMermaidID(target))
			}
		}
	}

	if len(free) > 0 {
		sb.WriteString("\n    classDef free stroke:#e65100,stroke-width:2px,stroke-dasharray:4;\n")
		for _, id := range free {
			fmt.Fprintf(&sb, "    class %s free;\n", id)
		}
	}

	// Apply Overlay Styles
	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for high-contrast on light backgrounds, regardless of theme (Light/Dark)
		sb.WriteString("    classDef highlight fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef selected fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		seen := make(map[string]bool)
		for _, n := range overlay.Highlight {
			safeID := sanitizeMermaidID(n)
			if !seen[safeID] && safeID != "" {
				seen[safeID] = true
				fmt.Fprintf(&sb, "    class %s highlight;\n", safeID)
			}
		}

		if overlay.Selected != "" {
			fmt.Fprintf(&sb, "    class %s selected;\n", sanitizeMermaidID(overlay.Selected))
		}
	}

	return sb.String()
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "__")
	s = strings.ReplaceAll(s, "\\", "_")
	s = strings.ReplaceAll(s, " ", "_")
	return s
}
