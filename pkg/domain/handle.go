package domain

import (
	"strconv"
	"strings"
)

// Separator joins the segments of a qualified node name ("component/inner").
const Separator = "/"

// Handle identifies a node within one Scene. Handles are allocated monotonically and never
// reused, so a handle kept after deletion can not alias a node created later.
type Handle uint64

// NoHandle never refers to a node.
const NoHandle Handle = 0

// IsZero reports whether h is NoHandle.
func (h Handle) IsZero() bool { return h == NoHandle }

func (h Handle) String() string {
	if h == NoHandle {
		return "#none"
	}
	return "#" + strconv.FormatUint(uint64(h), 10)
}

// JoinName builds a qualified name from its segments, skipping empty ones.
func JoinName(parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, Separator)
}

// SplitName returns the first segment of a qualified name and the remainder.
func SplitName(name string) (head, rest string, ok bool) {
	return strings.Cut(name, Separator)
}
