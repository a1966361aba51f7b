package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/databrowser/pkg/tree"
)

// TreeModel manages the catalog tree view: expansion, cursor and a
// windowed rendering of the visible rows. Expansion and selection are
// remembered by node path, so they survive a refetch that rebuilds the
// nodes from scratch.
type TreeModel struct {
	root           *tree.Root
	expanded       map[*tree.Node]bool
	flatList       []*tree.Node // visible nodes in display order
	cursor         int
	viewportOffset int // index of first visible node
	width          int
	height         int
	theme          Theme
	expandDepth    int
	emptyText      string

	// Remembered across rebuilds, keyed by nodePath.
	remembered   map[string]bool
	selectedPath string
}

// NewTreeModel creates an empty tree model. expandDepth is the number of
// levels open after a build (1 opens datasets to show their blocks).
func NewTreeModel(theme Theme, expandDepth int) TreeModel {
	return TreeModel{
		theme:       theme,
		expanded:    make(map[*tree.Node]bool),
		remembered:  make(map[string]bool),
		expandDepth: expandDepth,
	}
}

// SetSize updates the available dimensions for the tree view
func (t *TreeModel) SetSize(width, height int) {
	t.width = width
	t.height = height
	t.ensureCursorVisible()
}

// SetEmptyText sets what View shows when there is no tree.
func (t *TreeModel) SetEmptyText(s string) {
	t.emptyText = s
}

// Root returns the tree being shown.
func (t *TreeModel) Root() *tree.Root {
	return t.root
}

// Build shows root. Remembered expansion and selection are reapplied where
// the same paths exist; other nodes open down to the expand depth.
func (t *TreeModel) Build(root *tree.Root) {
	t.root = root
	t.expanded = make(map[*tree.Node]bool)
	t.flatList = nil
	t.cursor = 0
	t.viewportOffset = 0
	if root == nil {
		return
	}

	root.Walk(func(n *tree.Node) bool {
		if n.Terminal() {
			return false
		}
		if open, ok := t.remembered[nodePath(n)]; ok {
			t.expanded[n] = open
		} else {
			t.expanded[n] = n.Depth < t.expandDepth
		}
		return true
	})
	t.rebuildFlatList()

	if t.selectedPath != "" {
		for i, n := range t.flatList {
			if nodePath(n) == t.selectedPath {
				t.cursor = i
				break
			}
		}
	}
	t.ensureCursorVisible()
}

// Forget drops remembered expansion and selection, e.g. when the scope
// changes and old paths no longer mean anything.
func (t *TreeModel) Forget() {
	t.remembered = make(map[string]bool)
	t.selectedPath = ""
}

func nodePath(n *tree.Node) string {
	parts := []string{n.Label}
	for p := n.Parent; p != nil; p = p.Parent {
		parts = append(parts, p.Label)
	}
	return strings.Join(parts, "\x00")
}

// IsExpanded reports whether n shows its children.
func (t *TreeModel) IsExpanded(n *tree.Node) bool {
	return t.expanded[n]
}

func (t *TreeModel) setExpanded(n *tree.Node, open bool) {
	if n == nil || n.Terminal() {
		return
	}
	t.expanded[n] = open
	t.remembered[nodePath(n)] = open
}

// View renders the header row and the visible window of nodes.
func (t *TreeModel) View() string {
	if t.root == nil || len(t.flatList) == 0 {
		return t.renderEmptyState()
	}

	var sb strings.Builder
	sb.WriteString(t.RenderHeader())
	sb.WriteString("\n")

	start, end := t.visibleRange()
	for i := start; i < end; i++ {
		line := t.renderNode(t.flatList[i], i == t.cursor)
		sb.WriteString(line)
		if i < end-1 {
			sb.WriteString("\n")
		}
	}

	if len(t.flatList) > t.effectiveVisibleCount() && t.height > 0 {
		sb.WriteString("\n")
		sb.WriteString(t.renderPositionIndicator(start, end))
	}
	return sb.String()
}

func (t *TreeModel) renderEmptyState() string {
	text := t.emptyText
	if text == "" {
		text = "No catalog data."
	}
	return t.theme.MutedText.Render(text)
}

// RenderHeader returns the header row with node counts.
func (t *TreeModel) RenderHeader() string {
	width := t.width
	if width <= 0 {
		width = 80
	}
	label := "CATALOG"
	if t.root != nil && !t.root.Empty() {
		c := t.root.Count()
		label = fmt.Sprintf("CATALOG  %d datasets · %d blocks · %d files", c.Datasets, c.Blocks, c.Files)
	}
	return t.theme.Header.Width(width).Render(truncate(label, width-2))
}

func (t *TreeModel) renderPositionIndicator(start, end int) string {
	return t.theme.MutedText.Render(fmt.Sprintf(" %d-%d of %d", start+1, end, len(t.flatList)))
}

func (t *TreeModel) renderNode(n *tree.Node, selected bool) string {
	r := t.theme.Renderer
	width := t.width
	if width <= 0 {
		width = 80
	}
	// Reduce width by 1 to prevent terminal wrapping on the exact edge
	width--

	prefix := tree.Prefix(n)
	indicator := t.expandIndicator(n)
	used := lipgloss.Width(prefix) + lipgloss.Width(indicator) + 1

	var right string
	rightStyle := t.theme.MutedText
	switch {
	case n.File != nil:
		right = tree.FormatBytes(n.File.Size)
	case n.Block != nil:
		right = flagText(n.Block.IsOpen)
		rightStyle = r.NewStyle().Foreground(t.theme.FlagColor(n.Block.IsOpen))
	case n.Dataset != nil:
		right = flagText(n.Dataset.IsOpen)
		rightStyle = r.NewStyle().Foreground(t.theme.FlagColor(n.Dataset.IsOpen))
	}
	title := ""
	if n.Title != "" {
		title = " (" + n.Title + ")"
	}

	avail := width - used - lipgloss.Width(right) - 1
	labelText := n.Label
	if avail < lipgloss.Width(labelText)+lipgloss.Width(title) {
		if avail-lipgloss.Width(title) >= 12 {
			labelText = truncateMiddle(labelText, avail-lipgloss.Width(title))
		} else {
			title = ""
			labelText = truncateMiddle(labelText, avail)
		}
	}

	labelStyle := r.NewStyle().Foreground(t.theme.KindColor(n.Kind))
	switch n.Kind {
	case tree.KindDataset:
		labelStyle = labelStyle.Bold(true)
	case tree.KindPlaceholder:
		labelStyle = labelStyle.Italic(true)
	}

	var left strings.Builder
	left.WriteString(t.theme.SecondaryText.Render(prefix))
	left.WriteString(t.theme.PrimaryBold.Render(indicator))
	left.WriteString(" ")
	left.WriteString(labelStyle.Render(labelText))
	left.WriteString(t.theme.MutedText.Render(title))

	row := left.String()
	if right != "" {
		gap := width - lipgloss.Width(row) - lipgloss.Width(right)
		if gap < 1 {
			gap = 1
		}
		row += strings.Repeat(" ", gap) + rightStyle.Render(right)
	}

	if selected {
		return t.theme.Selected.Width(width).MaxWidth(width).Render(row)
	}
	return r.NewStyle().MaxWidth(width).Render(row)
}

func flagText(open bool) string {
	if open {
		return "open"
	}
	return "closed"
}

func (t *TreeModel) expandIndicator(n *tree.Node) string {
	if n.Terminal() {
		return "•"
	}
	if t.expanded[n] {
		return "▾"
	}
	return "▸"
}

// SelectedNode returns the node under the cursor, or nil.
func (t *TreeModel) SelectedNode() *tree.Node {
	if t.cursor >= 0 && t.cursor < len(t.flatList) {
		return t.flatList[t.cursor]
	}
	return nil
}

// Cursor returns the cursor's index among the visible nodes.
func (t *TreeModel) Cursor() int {
	return t.cursor
}

// NodeCount returns the number of visible nodes.
func (t *TreeModel) NodeCount() int {
	return len(t.flatList)
}

// MoveDown moves the cursor down in the flat list.
func (t *TreeModel) MoveDown() {
	if t.cursor < len(t.flatList)-1 {
		t.cursor++
		t.afterMove()
	}
}

// MoveUp moves the cursor up in the flat list.
func (t *TreeModel) MoveUp() {
	if t.cursor > 0 {
		t.cursor--
		t.afterMove()
	}
}

// ToggleExpand expands or collapses the selected node.
func (t *TreeModel) ToggleExpand() {
	n := t.SelectedNode()
	if n == nil || n.Terminal() {
		return
	}
	t.setExpanded(n, !t.expanded[n])
	t.rebuildFlatList()
	t.ensureCursorVisible()
}

// ExpandAll expands all nodes in the tree.
func (t *TreeModel) ExpandAll() {
	t.setAll(true)
}

// CollapseAll collapses all nodes in the tree.
func (t *TreeModel) CollapseAll() {
	t.setAll(false)
}

// ToggleExpandCollapseAll expands everything if anything is collapsed and
// collapses everything otherwise.
func (t *TreeModel) ToggleExpandCollapseAll() {
	t.setAll(t.hasAnyCollapsed())
}

func (t *TreeModel) hasAnyCollapsed() bool {
	collapsed := false
	t.root.Walk(func(n *tree.Node) bool {
		if !n.Terminal() && !t.expanded[n] {
			collapsed = true
		}
		return !collapsed
	})
	return collapsed
}

func (t *TreeModel) setAll(open bool) {
	sel := t.SelectedNode()
	t.root.Walk(func(n *tree.Node) bool {
		t.setExpanded(n, open)
		return true
	})
	t.rebuildFlatList()
	// Keep the selection, or fall back to its nearest visible ancestor.
	for n := sel; n != nil; n = n.Parent {
		if t.selectNode(n) {
			break
		}
	}
	t.afterMove()
}

// JumpToTop moves cursor to the first node.
func (t *TreeModel) JumpToTop() {
	t.cursor = 0
	t.afterMove()
}

// JumpToBottom moves cursor to the last node.
func (t *TreeModel) JumpToBottom() {
	if len(t.flatList) > 0 {
		t.cursor = len(t.flatList) - 1
		t.afterMove()
	}
}

// JumpToParent moves cursor to the parent of the selected node.
func (t *TreeModel) JumpToParent() {
	n := t.SelectedNode()
	if n == nil || n.Parent == nil {
		return
	}
	if t.selectNode(n.Parent) {
		t.afterMove()
	}
}

// ExpandOrMoveToChild expands a collapsed node, or moves to the first child
// of an expanded one.
func (t *TreeModel) ExpandOrMoveToChild() {
	n := t.SelectedNode()
	if n == nil || n.Terminal() {
		return
	}
	if !t.expanded[n] {
		t.setExpanded(n, true)
		t.rebuildFlatList()
		t.ensureCursorVisible()
		return
	}
	if t.selectNode(n.Children[0]) {
		t.afterMove()
	}
}

// CollapseOrJumpToParent collapses an expanded node, or moves to the parent.
func (t *TreeModel) CollapseOrJumpToParent() {
	n := t.SelectedNode()
	if n == nil {
		return
	}
	if !n.Terminal() && t.expanded[n] {
		t.setExpanded(n, false)
		t.rebuildFlatList()
		t.ensureCursorVisible()
		return
	}
	t.JumpToParent()
}

// PageDown moves cursor down by half a viewport.
func (t *TreeModel) PageDown() {
	t.cursor += t.halfPage()
	if t.cursor >= len(t.flatList) {
		t.cursor = len(t.flatList) - 1
	}
	if t.cursor < 0 {
		t.cursor = 0
	}
	t.afterMove()
}

// PageUp moves cursor up by half a viewport.
func (t *TreeModel) PageUp() {
	t.cursor -= t.halfPage()
	if t.cursor < 0 {
		t.cursor = 0
	}
	t.afterMove()
}

func (t *TreeModel) halfPage() int {
	if n := t.height / 2; n >= 1 {
		return n
	}
	return 5
}

func (t *TreeModel) selectNode(target *tree.Node) bool {
	for i, n := range t.flatList {
		if n == target {
			t.cursor = i
			return true
		}
	}
	return false
}

func (t *TreeModel) afterMove() {
	if n := t.SelectedNode(); n != nil {
		t.selectedPath = nodePath(n)
	}
	t.ensureCursorVisible()
}

func (t *TreeModel) rebuildFlatList() {
	t.flatList = t.flatList[:0]
	if t.root != nil {
		for _, n := range t.root.Nodes {
			t.appendVisible(n)
		}
	}
	if t.cursor >= len(t.flatList) {
		t.cursor = len(t.flatList) - 1
	}
	if t.cursor < 0 {
		t.cursor = 0
	}
}

func (t *TreeModel) appendVisible(n *tree.Node) {
	t.flatList = append(t.flatList, n)
	if t.expanded[n] {
		for _, c := range n.Children {
			t.appendVisible(c)
		}
	}
}

// effectiveVisibleCount returns the number of node lines that fit, leaving
// room for the header row and, when scrolling, the position indicator.
func (t *TreeModel) effectiveVisibleCount() int {
	visible := t.height - 1
	if visible <= 0 {
		visible = 19
	}
	if len(t.flatList) > visible {
		visible--
	}
	if visible < 1 {
		visible = 1
	}
	return visible
}

func (t *TreeModel) visibleRange() (start, end int) {
	if len(t.flatList) == 0 {
		return 0, 0
	}
	visible := t.effectiveVisibleCount()
	start = t.viewportOffset
	if start < 0 {
		start = 0
	}
	end = start + visible
	if end > len(t.flatList) {
		end = len(t.flatList)
		start = end - visible
		if start < 0 {
			start = 0
		}
	}
	return start, end
}

// ensureCursorVisible scrolls just enough to keep the cursor on screen.
func (t *TreeModel) ensureCursorVisible() {
	if len(t.flatList) == 0 {
		return
	}
	visible := t.effectiveVisibleCount()
	if t.cursor < t.viewportOffset {
		t.viewportOffset = t.cursor
	}
	if t.cursor >= t.viewportOffset+visible {
		t.viewportOffset = t.cursor - visible + 1
	}
	maxOffset := len(t.flatList) - visible
	if maxOffset < 0 {
		maxOffset = 0
	}
	if t.viewportOffset > maxOffset {
		t.viewportOffset = maxOffset
	}
	if t.viewportOffset < 0 {
		t.viewportOffset = 0
	}
}
