package tree

import (
	"bufio"
	"io"
	"strings"
)

// Prefix returns the box-drawing connector drawn before n: "├── " or
// "└── " for n itself, preceded by "│   " or blank runs for each ancestor
// level that still has siblings below it. Top-level nodes have no prefix.
func Prefix(n *Node) string {
	if n.Parent == nil {
		return ""
	}

	var ancestors []*Node
	for a := n.Parent; a != nil; a = a.Parent {
		ancestors = append([]*Node{a}, ancestors...)
	}

	var b strings.Builder
	// The outermost ancestor is top level and draws nothing.
	for _, a := range ancestors[1:] {
		if isLastChild(a) {
			b.WriteString("    ")
		} else {
			b.WriteString("│   ")
		}
	}
	if isLastChild(n) {
		b.WriteString("└── ")
	} else {
		b.WriteString("├── ")
	}
	return b.String()
}

func isLastChild(n *Node) bool {
	if n.Parent == nil {
		return true
	}
	siblings := n.Parent.Children
	return len(siblings) > 0 && siblings[len(siblings)-1] == n
}

// Line returns the single-line text of n: label followed by its title in
// parentheses when there is one.
func Line(n *Node) string {
	if n.Title == "" {
		return n.Label
	}
	return n.Label + " (" + n.Title + ")"
}

// Render writes the whole tree as indented text, one node per line, down to
// maxDepth (0 means no limit; 1 prints only datasets).
func Render(w io.Writer, r *Root, maxDepth int) error {
	bw := bufio.NewWriter(w)
	r.Walk(func(n *Node) bool {
		bw.WriteString(Prefix(n))
		bw.WriteString(Line(n))
		if n.File != nil {
			bw.WriteString("  ")
			bw.WriteString(FormatBytes(n.File.Size))
		}
		bw.WriteByte('\n')
		return maxDepth == 0 || n.Depth+1 < maxDepth
	})
	return bw.Flush()
}
