package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/vanderheijden86/databrowser/pkg/tree"
)

const timeLayout = "2006-01-02 15:04 MST"

// NodeMarkdown describes n for the detail pane. now anchors the relative
// times.
func NodeMarkdown(n *tree.Node, now time.Time) string {
	if n == nil {
		return "_Nothing selected._"
	}

	var sb strings.Builder
	switch n.Kind {
	case tree.KindDataset:
		d := n.Dataset
		sb.WriteString("# Dataset\n\n")
		fmt.Fprintf(&sb, "`%s`\n\n", n.Label)
		sb.WriteString("| Open | Transient | Created | Updated |\n|---|---|---|---|\n")
		fmt.Fprintf(&sb, "| %s | %s | %s | %s |\n\n",
			yesNo(d.IsOpen), yesNo(d.IsTransient), when(d.Created, now), when(d.Updated, now))
		if n.Title != "" {
			fmt.Fprintf(&sb, "**Contents:** %s\n\n", n.Title)
		} else {
			sb.WriteString("_Block list not requested._\n\n")
		}
		writeSizes(&sb, n, "Block sizes")

	case tree.KindBlock:
		b := n.Block
		sb.WriteString("# Block\n\n")
		fmt.Fprintf(&sb, "`%s`\n\n", n.Label)
		sb.WriteString("| Files | Size | Open | Created | Updated |\n|---|---|---|---|---|\n")
		fmt.Fprintf(&sb, "| %d | %s | %s | %s | %s |\n\n",
			b.Files, tree.FormatBytes(b.Bytes), yesNo(b.IsOpen), when(b.Created, now), when(b.Updated, now))
		if n.Parent != nil {
			fmt.Fprintf(&sb, "**Dataset:** `%s`\n\n", n.Parent.Label)
		}
		if n.Title == "" {
			sb.WriteString("_File list not requested._\n\n")
		}
		writeSizes(&sb, n, "File sizes")

	case tree.KindFile:
		f := n.File
		sb.WriteString("# File\n\n")
		fmt.Fprintf(&sb, "`%s`\n\n", n.Label)
		sb.WriteString("| Size | Node | Created |\n|---|---|---|\n")
		fmt.Fprintf(&sb, "| %s | %s | %s |\n\n", tree.FormatBytes(f.Size), orDash(f.Node), when(f.Created, now))
		if f.Checksum != "" {
			fmt.Fprintf(&sb, "**Checksum:** `%s`\n\n", f.Checksum)
		}
		if n.Parent != nil {
			fmt.Fprintf(&sb, "**Block:** `%s`\n\n", n.Parent.Label)
		}

	default:
		sb.WriteString("_" + n.Label + "_\n")
	}
	return strings.TrimRight(sb.String(), "\n") + "\n"
}

func writeSizes(sb *strings.Builder, n *tree.Node, heading string) {
	s, ok := tree.Sizes(n)
	if !ok {
		return
	}
	fmt.Fprintf(sb, "### %s\n\n", heading)
	sb.WriteString("| Count | Total | Min | Median | Mean | Max | Std dev |\n|---|---|---|---|---|---|---|\n")
	fmt.Fprintf(sb, "| %d | %s | %s | %s | %s | %s | %s |\n\n",
		s.Count,
		tree.FormatBytes(s.Total),
		tree.FormatBytes(s.Min),
		tree.FormatBytes(int64(s.Median)),
		tree.FormatBytes(int64(s.Mean)),
		tree.FormatBytes(s.Max),
		tree.FormatBytes(int64(s.StdDev)),
	)
}

func when(t, now time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format(timeLayout) + " (" + formatTimeRelAt(t, now) + ")"
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
