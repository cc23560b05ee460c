package filetree

import (
	"strings"

	"github.com/RoaringBitmap/roaring"
)

// Node is a single element of the file tree: a leaf for a real file or an
// interior node for a directory. Interior nodes store no aggregates of
// their own; size, progress, wanted state, and priority are derived from
// descendant leaves on demand.
type Node struct {
	name     string
	parent   *Node
	children []*Node

	// Lazy name -> row lookup, valid for rows below firstUnhashedRow.
	// Structural changes reset the watermark to the mutation point
	// instead of discarding the whole map.
	childRows        map[string]int
	firstUnhashedRow int

	// Leaf state. fileIndex is -1 for directories; keep sentinel checks
	// behind IsLeaf.
	fileIndex int
	totalSize uint64
	haveSize  uint64
	wanted    bool
	priority  Priority

	// View state, not part of the aggregation model.
	expanded bool
}

// NewDir creates an interior node. The empty name is reserved for the
// synthetic root.
func NewDir(name string) *Node {
	return &Node{
		name:      name,
		childRows: make(map[string]int),
		fileIndex: -1,
	}
}

// NewLeaf creates a leaf node for the file at the given flat-list index.
func NewLeaf(name string, fileIndex int, size uint64) *Node {
	return &Node{
		name:      name,
		childRows: make(map[string]int),
		fileIndex: fileIndex,
		totalSize: size,
	}
}

// Name returns the node's path segment.
func (n *Node) Name() string { return n.name }

// Parent returns the owning directory, or nil for the root.
func (n *Node) Parent() *Node { return n.parent }

// IsLeaf reports whether the node represents a real file.
func (n *Node) IsLeaf() bool { return n.fileIndex >= 0 }

// FileIndex returns the flat-list index for leaves, -1 for directories.
func (n *Node) FileIndex() int { return n.fileIndex }

// ChildCount returns the number of direct children.
func (n *Node) ChildCount() int { return len(n.children) }

// Child returns the child at the given row, or nil if out of range.
func (n *Node) Child(row int) *Node {
	if row < 0 || row >= len(n.children) {
		return nil
	}
	return n.children[row]
}

// Children returns the ordered child slice. Callers must not mutate it.
func (n *Node) Children() []*Node { return n.children }

// childRowMap extends the row cache up to the current child count and
// returns it. Amortized O(1) per lookup; O(n) once after a bulk append.
func (n *Node) childRowMap() map[string]int {
	for n.firstUnhashedRow < len(n.children) {
		n.childRows[n.children[n.firstUnhashedRow].name] = n.firstUnhashedRow
		n.firstUnhashedRow++
	}
	return n.childRows
}

// AppendChild inserts child at the end of the child sequence and takes
// ownership. Name uniqueness is the caller's responsibility.
func (n *Node) AppendChild(child *Node) {
	child.parent = n
	n.children = append(n.children, child)
	// The new row is hashed lazily on the next lookup.
}

// ChildByName returns the direct child with the given name, or nil.
func (n *Node) ChildByName(name string) *Node {
	row, ok := n.childRowMap()[name]
	if !ok {
		return nil
	}
	return n.children[row]
}

// Row returns this node's index among its parent's children, or -1 for
// the root.
func (n *Node) Row() int {
	if n.parent == nil {
		return -1
	}
	row, ok := n.parent.childRowMap()[n.name]
	if !ok {
		return -1
	}
	return row
}

// detach removes n from its parent, repairing the parent's row cache from
// the removed position onward. Children must already be detached.
func (n *Node) detach() {
	if n.parent == nil {
		return
	}
	pos := n.Row()
	if pos < 0 {
		return
	}
	p := n.parent
	p.children = append(p.children[:pos], p.children[pos+1:]...)
	delete(p.childRows, n.name)
	if p.firstUnhashedRow > pos {
		p.firstUnhashedRow = pos
	}
	n.parent = nil
}

// Update applies a snapshot refresh to a leaf and returns the span of
// changed columns, or EmptySpan. haveSize always tracks the snapshot;
// wanted and priority are overwritten only when updateFields is true, so a
// routine poll cannot clobber an optimistic local edit that the remote has
// not yet confirmed. A rename resets the parent's row cache watermark at
// the old position.
func (n *Node) Update(name string, wanted bool, priority Priority, haveSize uint64, updateFields bool) ColumnSpan {
	span := EmptySpan

	if n.name != name {
		if n.parent != nil {
			if pos := n.Row(); pos >= 0 {
				delete(n.parent.childRows, n.name)
				if n.parent.firstUnhashedRow > pos {
					n.parent.firstUnhashedRow = pos
				}
			}
		}
		n.name = name
		span = span.Union(ColumnSpan{First: ColName, Last: ColName})
	}

	if n.IsLeaf() {
		if n.haveSize != haveSize {
			n.haveSize = haveSize
			span = span.Union(ColumnSpan{First: ColProgress, Last: ColProgress})
		}

		if updateFields {
			if n.wanted != wanted {
				n.wanted = wanted
				span = span.Union(ColumnSpan{First: ColWanted, Last: ColWanted})
			}
			if n.priority != priority {
				n.priority = priority
				span = span.Union(ColumnSpan{First: ColPriority, Last: ColPriority})
			}
		}
	}

	return span
}

// SubtreeWantedSize folds have/total bytes over the wanted leaves of the
// subtree rooted at n.
func (n *Node) SubtreeWantedSize() (have, total uint64) {
	if n.IsLeaf() {
		if n.wanted {
			return n.haveSize, n.totalSize
		}
		return 0, 0
	}
	for _, c := range n.children {
		h, t := c.SubtreeWantedSize()
		have += h
		total += t
	}
	return have, total
}

// Progress returns the downloaded fraction of the wanted subtree in
// [0, 1]. A subtree with zero wanted bytes reports 0.
func (n *Node) Progress() float64 {
	have, total := n.SubtreeWantedSize()
	if total == 0 {
		return 0
	}
	return float64(have) / float64(total)
}

// Size returns the node's effective size: a leaf's full size, or a
// directory's wanted-subtree total. Directories shrink when files under
// them are deselected.
func (n *Node) Size() uint64 {
	if n.IsLeaf() {
		return n.totalSize
	}
	_, total := n.SubtreeWantedSize()
	return total
}

// TotalSize returns a leaf's raw size regardless of wanted state.
func (n *Node) TotalSize() uint64 { return n.totalSize }

// HaveSize returns a leaf's downloaded byte count.
func (n *Node) HaveSize() uint64 { return n.haveSize }

// Wanted returns a leaf's stored wanted flag.
func (n *Node) Wanted() bool { return n.wanted }

// Priority returns a leaf's stored priority.
func (n *Node) Priority() Priority { return n.priority }

// SubtreeWanted returns the tri-state wanted value: a leaf maps its flag
// directly; a directory folds its children, short-circuiting to Partial as
// soon as two children disagree.
func (n *Node) SubtreeWanted() TriState {
	if n.IsLeaf() {
		if n.wanted {
			return Checked
		}
		return Unchecked
	}

	state := TriState(-1)
	for _, c := range n.children {
		cs := c.SubtreeWanted()
		if state == -1 {
			state = cs
		}
		if state != cs {
			return Partial
		}
		if state == Partial {
			return Partial
		}
	}
	if state == -1 {
		// Childless directory, nothing to disagree about.
		return Unchecked
	}
	return state
}

// PriorityMask returns the union of priority bits over the subtree's
// leaves. One bit set means uniform priority, more means mixed.
func (n *Node) PriorityMask() PriorityMask {
	var m PriorityMask
	if n.IsLeaf() {
		m |= n.priority.bit()
	}
	for _, c := range n.children {
		m |= c.PriorityMask()
	}
	return m
}

// SetSubtreeWanted sets the wanted flag on every node of the subtree,
// recording into changed the index of every leaf whose flag actually
// flipped. Setting an already-held value is a no-op per leaf.
func (n *Node) SetSubtreeWanted(wanted bool, changed *roaring.Bitmap) {
	if n.wanted != wanted {
		n.wanted = wanted
		if n.fileIndex >= 0 {
			changed.Add(uint32(n.fileIndex))
		}
	}
	for _, c := range n.children {
		c.SetSubtreeWanted(wanted, changed)
	}
}

// SetSubtreePriority sets the priority on every node of the subtree,
// recording changed leaf indices. Interior nodes take the value too but it
// never contributes to PriorityMask.
func (n *Node) SetSubtreePriority(p Priority, changed *roaring.Bitmap) {
	if n.priority != p {
		n.priority = p
		if n.fileIndex >= 0 {
			changed.Add(uint32(n.fileIndex))
		}
	}
	for _, c := range n.children {
		c.SetSubtreePriority(p, changed)
	}
}

// Path reconstructs the slash-joined path from the root, excluding the
// synthetic root's empty name.
func (n *Node) Path() string {
	var parts []string
	for item := n; item != nil && item.name != ""; item = item.parent {
		parts = append(parts, item.name)
	}
	// Walked leaf-to-root; reverse.
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, "/")
}

// IsComplete reports whether a leaf is fully downloaded. For directories
// it compares the wanted-subtree aggregates.
func (n *Node) IsComplete() bool {
	if n.IsLeaf() {
		return n.haveSize == n.totalSize
	}
	have, total := n.SubtreeWantedSize()
	return have == total
}

// Depth returns the node's distance from the root.
func (n *Node) Depth() int {
	d := 0
	for p := n.parent; p != nil; p = p.parent {
		d++
	}
	return d
}

// Expanded reports the directory's view expansion state.
func (n *Node) Expanded() bool { return n.expanded }

// Toggle flips a directory's expansion state. No effect on leaves.
func (n *Node) Toggle() {
	if !n.IsLeaf() {
		n.expanded = !n.expanded
	}
}

// ExpandAll expands this directory and all descendants.
func (n *Node) ExpandAll() {
	if n.IsLeaf() {
		return
	}
	n.expanded = true
	for _, c := range n.children {
		c.ExpandAll()
	}
}

// CollapseAll collapses this directory and all descendants.
func (n *Node) CollapseAll() {
	if n.IsLeaf() {
		return
	}
	n.expanded = false
	for _, c := range n.children {
		c.CollapseAll()
	}
}

// Flatten returns the visible nodes of the subtree in display order.
// Collapsed directories hide their children. The receiver itself is
// included except for the synthetic root.
func (n *Node) Flatten() []*Node {
	var out []*Node
	if n.name != "" || n.parent != nil {
		out = append(out, n)
		if n.IsLeaf() || !n.expanded {
			return out
		}
	}
	for _, c := range n.children {
		out = append(out, c.Flatten()...)
	}
	return out
}
