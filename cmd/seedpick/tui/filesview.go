package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"seedpick/pkg/filetree"
)

// Selection box glyphs for the wanted column.
const (
	iconChecked   = "[x]"
	iconUnchecked = "[ ]"
	iconPartial   = "[~]"

	iconDirOpen   = "▼"
	iconDirClosed = "▶"
	iconFile      = " "
)

// FilesView renders a file-selection tree with cursor navigation. It keeps
// a flattened copy of the visible rows, rebuilt only when the tree signals
// a change or a directory is toggled.
type FilesView struct {
	tree   *filetree.Tree
	flat   []*filetree.Node
	cursor int
	offset int
	dirty  bool
}

// NewFilesView creates a view over the given tree. The view registers the
// tree's change callback, so it must be the tree's only view.
func NewFilesView(t *filetree.Tree) *FilesView {
	v := &FilesView{tree: t}
	t.SetChangeFunc(func(n *filetree.Node, span filetree.ColumnSpan) {
		v.dirty = true
	})
	v.Rebuild()
	return v
}

// Rebuild re-flattens the visible rows and clamps the cursor.
func (v *FilesView) Rebuild() {
	v.flat = v.tree.Root().Flatten()
	if v.cursor >= len(v.flat) {
		v.cursor = len(v.flat) - 1
	}
	if v.cursor < 0 {
		v.cursor = 0
	}
	v.dirty = false
}

// RebuildIfDirty re-flattens only when a change notification arrived since
// the last rebuild.
func (v *FilesView) RebuildIfDirty() {
	if v.dirty {
		v.Rebuild()
	}
}

// Len returns the number of visible rows.
func (v *FilesView) Len() int { return len(v.flat) }

// Current returns the node under the cursor, or nil when the view is empty.
func (v *FilesView) Current() *filetree.Node {
	if v.cursor < 0 || v.cursor >= len(v.flat) {
		return nil
	}
	return v.flat[v.cursor]
}

// MoveUp moves the cursor up one row.
func (v *FilesView) MoveUp() {
	if v.cursor > 0 {
		v.cursor--
	}
}

// MoveDown moves the cursor down one row.
func (v *FilesView) MoveDown() {
	if v.cursor < len(v.flat)-1 {
		v.cursor++
	}
}

// MoveTop jumps to the first row.
func (v *FilesView) MoveTop() {
	v.cursor = 0
	v.offset = 0
}

// MoveBottom jumps to the last row.
func (v *FilesView) MoveBottom() {
	if len(v.flat) > 0 {
		v.cursor = len(v.flat) - 1
	}
}

// Toggle expands or collapses the directory under the cursor.
func (v *FilesView) Toggle() {
	n := v.Current()
	if n == nil || n.IsLeaf() {
		return
	}
	n.Toggle()
	v.Rebuild()
}

// ExpandAll expands every directory.
func (v *FilesView) ExpandAll() {
	v.tree.Root().ExpandAll()
	v.Rebuild()
}

// CollapseAll collapses every directory and resets the cursor.
func (v *FilesView) CollapseAll() {
	v.tree.Root().CollapseAll()
	v.cursor = 0
	v.offset = 0
	v.Rebuild()
}

// ensureVisible scrolls the window so the cursor row is on screen.
func (v *FilesView) ensureVisible(height int) {
	if height <= 0 {
		return
	}
	if v.cursor < v.offset {
		v.offset = v.cursor
	}
	if v.cursor >= v.offset+height {
		v.offset = v.cursor - height + 1
	}
}

// View renders the visible window of rows into a string of at most height
// lines, each padded to width.
func (v *FilesView) View(width, height int) string {
	v.RebuildIfDirty()
	if len(v.flat) == 0 {
		return mutedTextStyle.Render("no files")
	}
	v.ensureVisible(height)

	var b strings.Builder
	end := v.offset + height
	if end > len(v.flat) {
		end = len(v.flat)
	}
	for i := v.offset; i < end; i++ {
		if i > v.offset {
			b.WriteByte('\n')
		}
		b.WriteString(v.renderRow(v.flat[i], i == v.cursor, width))
	}
	return b.String()
}

// renderRow renders one node as a single line.
func (v *FilesView) renderRow(n *filetree.Node, selected bool, width int) string {
	indent := strings.Repeat("  ", n.Depth()-1)

	icon := iconFile
	if !n.IsLeaf() {
		icon = iconDirClosed
		if n.Expanded() {
			icon = iconDirOpen
		}
	}

	check := renderCheck(n.SubtreeWanted())
	size := sizeStyle.Render(fmt.Sprintf("%9s", humanize.IBytes(n.Size())))
	progress := renderProgress(n)
	priority := renderPriority(n.PriorityMask())

	right := fmt.Sprintf("%s %s %s", size, progress, priority)
	rightWidth := lipgloss.Width(right)

	nameWidth := width - rightWidth - len(indent) - 8
	if nameWidth < 8 {
		nameWidth = 8
	}
	name := truncateName(n.Name(), nameWidth)

	line := fmt.Sprintf("%s%s %s %s", indent, icon, check, name)
	pad := width - lipgloss.Width(line) - rightWidth - 1
	if pad < 1 {
		pad = 1
	}
	line += strings.Repeat(" ", pad) + right

	if selected {
		return cursorRowStyle.Render(line)
	}
	return normalRowStyle.Render(line)
}

// renderCheck maps the tri-state selection to its colored glyph.
func renderCheck(s filetree.TriState) string {
	switch s {
	case filetree.Checked:
		return wantedStyle.Render(iconChecked)
	case filetree.Partial:
		return partialStyle.Render(iconPartial)
	default:
		return unwantedStyle.Render(iconUnchecked)
	}
}

// renderProgress formats the download percentage, highlighting completion.
func renderProgress(n *filetree.Node) string {
	pct := fmt.Sprintf("%4.0f%%", n.Progress()*100)
	if n.IsComplete() && n.SubtreeWanted() != filetree.Unchecked {
		return progressDoneStyle.Render(pct)
	}
	return mutedTextStyle.Render(pct)
}

// renderPriority formats the priority column.
func renderPriority(m filetree.PriorityMask) string {
	label := fmt.Sprintf("%-6s", m.String())
	switch m {
	case filetree.MaskHigh:
		return priorityHighStyle.Render(label)
	case filetree.MaskLow:
		return priorityLowStyle.Render(label)
	default:
		return mutedTextStyle.Render(label)
	}
}
