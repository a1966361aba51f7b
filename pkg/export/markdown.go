package export

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/vanderheijden86/databrowser/pkg/tree"
)

// Package-level compiled regex for slug creation (avoids recompilation per call)
var slugNonAlphanumericRegex = regexp.MustCompile(`[^a-z0-9]+`)

// maxGraphBlocks caps the blocks drawn per dataset in the Mermaid graph.
const maxGraphBlocks = 20

// sanitizeMermaidID ensures an ID is valid for Mermaid diagrams.
// Mermaid node IDs must be alphanumeric with hyphens/underscores.
func sanitizeMermaidID(id string) string {
	var sb strings.Builder
	for _, r := range id {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_' {
			sb.WriteRune(r)
		}
	}
	result := sb.String()
	if result == "" {
		return "node"
	}
	return result
}

// sanitizeMermaidText prepares text for use in Mermaid node labels.
func sanitizeMermaidText(text string) string {
	replacer := strings.NewReplacer(
		"\"", "'",
		"[", "(",
		"]", ")",
		"{", "(",
		"}", ")",
		"<", "&lt;",
		">", "&gt;",
		"|", "/",
		"`", "'",
		"\n", " ",
		"\r", "",
	)
	result := replacer.Replace(text)
	result = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, result)
	result = strings.TrimSpace(result)

	// Keep the tail: catalog names share long prefixes.
	runes := []rune(result)
	if len(runes) > 40 {
		result = "..." + string(runes[len(runes)-37:])
	}
	return result
}

// GenerateMarkdown renders a report of the tree: a summary table, a
// Mermaid graph of datasets and blocks, and one section per dataset with
// its blocks. Files are listed in their block's table.
func GenerateMarkdown(root *tree.Root, title string, now time.Time) (string, error) {
	if root == nil || len(root.Nodes) == 0 {
		return "", ErrEmptyTree
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("# %s\n\n", title))
	sb.WriteString(fmt.Sprintf("*Generated: %s*\n\n", now.Format(time.RFC1123)))

	if root.Empty() {
		sb.WriteString("_" + tree.NothingFound + "_\n")
		return sb.String(), nil
	}

	counts := root.Count()
	var bytes int64
	open := 0
	root.Walk(func(n *tree.Node) bool {
		if n.Block != nil {
			bytes += n.Block.Bytes
			if n.Block.IsOpen {
				open++
			}
		}
		return true
	})

	sb.WriteString("## Summary\n\n")
	sb.WriteString("| Metric | Count |\n|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| **Datasets** | %d |\n", counts.Datasets))
	sb.WriteString(fmt.Sprintf("| Blocks | %d |\n", counts.Blocks))
	sb.WriteString(fmt.Sprintf("| Open blocks | %d |\n", open))
	sb.WriteString(fmt.Sprintf("| Files | %d |\n", counts.Files))
	sb.WriteString(fmt.Sprintf("| Bytes | %s |\n\n", tree.FormatBytes(bytes)))

	slugCounts := make(map[string]int, len(root.Nodes))
	slugs := make([]string, len(root.Nodes))
	for i, ds := range root.Nodes {
		slugs[i] = uniqueSlug(createSlug(ds.Label), slugCounts)
	}

	sb.WriteString("## Table of Contents\n\n")
	for i, ds := range root.Nodes {
		sb.WriteString(fmt.Sprintf("- [%s %s](#%s)\n", openIcon(ds), ds.Label, slugs[i]))
	}
	sb.WriteString("\n---\n\n")

	sb.WriteString("## Graph\n\n")
	sb.WriteString("```mermaid\n")
	sb.WriteString(GenerateMermaidGraph(root))
	sb.WriteString("```\n\n---\n\n")

	for i, ds := range root.Nodes {
		sb.WriteString(fmt.Sprintf("<a id=\"%s\"></a>\n\n", slugs[i]))
		sb.WriteString(fmt.Sprintf("## %s\n\n", ds.Label))
		if a := ds.Dataset; a != nil {
			sb.WriteString("| Property | Value |\n|----------|-------|\n")
			sb.WriteString(fmt.Sprintf("| **Open** | %s |\n", yesNo(a.IsOpen)))
			sb.WriteString(fmt.Sprintf("| **Transient** | %s |\n", yesNo(a.IsTransient)))
			sb.WriteString(fmt.Sprintf("| **Created** | %s |\n", formatTime(a.Created)))
			sb.WriteString(fmt.Sprintf("| **Updated** | %s |\n", formatTime(a.Updated)))
			if ds.Title != "" {
				sb.WriteString(fmt.Sprintf("| **Contents** | %s |\n", ds.Title))
			}
			sb.WriteString("\n")
		}
		if ds.Title == "" {
			sb.WriteString("_Block list not requested._\n\n")
			continue
		}

		for _, blk := range ds.Children {
			writeBlock(&sb, blk)
		}
	}

	return sb.String(), nil
}

func writeBlock(sb *strings.Builder, blk *tree.Node) {
	sb.WriteString(fmt.Sprintf("### %s %s\n\n", openIcon(blk), escapeCell(blk.Label)))
	if a := blk.Block; a != nil {
		sb.WriteString(fmt.Sprintf("%d files, %s, created %s\n\n",
			a.Files, tree.FormatBytes(a.Bytes), formatTime(a.Created)))
	}
	if blk.Title == "" {
		return
	}
	if len(blk.Children) == 0 {
		sb.WriteString("_No files._\n\n")
		return
	}
	sb.WriteString("| File | Size | Node | Checksum |\n|------|------|------|----------|\n")
	for _, f := range blk.Children {
		a := f.File
		if a == nil {
			continue
		}
		sb.WriteString(fmt.Sprintf("| `%s` | %s | %s | %s |\n",
			escapeCell(f.Label), tree.FormatBytes(a.Size), escapeCell(a.Node), escapeCell(a.Checksum)))
	}
	sb.WriteString("\n")
}

// GenerateMermaidGraph draws datasets and their blocks as a top-down graph.
// Open nodes are green, closed ones grey.
func GenerateMermaidGraph(root *tree.Root) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")
	sb.WriteString("    classDef open fill:#50FA7B,stroke:#333,color:#000\n")
	sb.WriteString("    classDef closed fill:#6272A4,stroke:#333,color:#fff\n")
	sb.WriteString("\n")

	used := make(map[string]int)
	safeID := func(label string) string {
		return uniqueSlug(sanitizeMermaidID(label), used)
	}

	for _, ds := range root.Nodes {
		if ds.Dataset == nil {
			continue
		}
		dsID := safeID(ds.Label)
		sb.WriteString(fmt.Sprintf("    %s[\"%s\"]:::%s\n", dsID, sanitizeMermaidText(ds.Label), openClass(ds)))

		for i, blk := range ds.Children {
			if i == maxGraphBlocks {
				moreID := safeID(ds.Label + "-more")
				sb.WriteString(fmt.Sprintf("    %s[\"%d more blocks\"]\n", moreID, len(ds.Children)-i))
				sb.WriteString(fmt.Sprintf("    %s --> %s\n", dsID, moreID))
				break
			}
			blkID := safeID(blk.Label)
			sb.WriteString(fmt.Sprintf("    %s[\"%s\"]:::%s\n", blkID, sanitizeMermaidText(blockSuffix(blk.Label)), openClass(blk)))
			sb.WriteString(fmt.Sprintf("    %s --> %s\n", dsID, blkID))
		}
	}
	return sb.String()
}

// SaveMarkdownToFile writes the report for root to filename.
func SaveMarkdownToFile(root *tree.Root, title, filename string) error {
	content, err := GenerateMarkdown(root, title, time.Now())
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(filename), 0o755); err != nil {
		return fmt.Errorf("create parent dir: %w", err)
	}
	return os.WriteFile(filename, []byte(content), 0o644)
}

func uniqueSlug(base string, counts map[string]int) string {
	if base == "" {
		base = "section"
	}
	if count, ok := counts[base]; ok {
		count++
		counts[base] = count
		return fmt.Sprintf("%s-%d", base, count)
	}
	counts[base] = 0
	return base
}

// createSlug creates a URL-friendly slug from heading text.
func createSlug(text string) string {
	slug := strings.ToLower(text)
	slug = slugNonAlphanumericRegex.ReplaceAllString(slug, "-")
	slug = strings.Trim(slug, "-")
	return slug
}

func isOpen(n *tree.Node) bool {
	switch {
	case n.Dataset != nil:
		return n.Dataset.IsOpen
	case n.Block != nil:
		return n.Block.IsOpen
	}
	return false
}

func openIcon(n *tree.Node) string {
	if isOpen(n) {
		return "🟢"
	}
	return "⚫"
}

func openClass(n *tree.Node) string {
	if isOpen(n) {
		return "open"
	}
	return "closed"
}

// blockSuffix returns the part of a block name after '#', or the whole name.
func blockSuffix(name string) string {
	if _, after, ok := strings.Cut(name, "#"); ok && after != "" {
		return "#" + after
	}
	return name
}

func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\r", "")
	return strings.ReplaceAll(s, "|", "\\|")
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format("2006-01-02 15:04")
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
