package filetree

import (
	"strings"

	"github.com/RoaringBitmap/roaring"
)

// ChangeFunc receives a minimal change notification for one node: the node
// whose row needs repainting and the inclusive column span that changed.
type ChangeFunc func(n *Node, span ColumnSpan)

// Tree owns the file hierarchy built from flat snapshots and exposes the
// edit/query API consumed by the view and session layers. It is
// single-owner and not safe for concurrent mutation; callers confine all
// access to one goroutine.
type Tree struct {
	root     *Node
	index    map[int]*Node
	onChange ChangeFunc
}

// New creates an empty tree with a synthetic root directory.
func New() *Tree {
	return &Tree{
		root:  NewDir(""),
		index: make(map[int]*Node),
	}
}

// Root returns the synthetic root directory.
func (t *Tree) Root() *Node { return t.root }

// Len returns the number of known files.
func (t *Tree) Len() int { return len(t.index) }

// SetChangeFunc registers the view-layer change notification callback.
func (t *Tree) SetChangeFunc(f ChangeFunc) { t.onChange = f }

// notify emits a change notification if a callback is registered.
func (t *Tree) notify(n *Node, span ColumnSpan) {
	if t.onChange != nil && !span.Empty() {
		t.onChange(n, span)
	}
}

// Clear removes every node and empties the file index. Used when switching
// torrents, not for routine refresh.
func (t *Tree) Clear() {
	t.clearSubtree(t.root)
	t.index = make(map[int]*Node)
}

// clearSubtree removes n's descendants bottom-up, honoring the row-cache
// repair discipline on each detach.
func (t *Tree) clearSubtree(n *Node) {
	for len(n.children) > 0 {
		c := n.children[len(n.children)-1]
		t.clearSubtree(c)
		c.detach()
	}
}

// ApplySnapshot folds a flat snapshot into the tree. Unknown paths create
// missing directories and a terminal leaf; known leaves are updated in
// place. contextChanged marks the snapshot as authoritative for
// wanted/priority (a fresh selection load); routine progress polls pass
// false so pending local edits survive. The returned span is the union of
// all per-leaf change spans, for restricting view invalidation.
func (t *Tree) ApplySnapshot(entries []Entry, contextChanged bool) ColumnSpan {
	total := EmptySpan
	// One notification per ancestor per snapshot, no matter how many of
	// its descendants changed.
	visited := make(map[*Node]ColumnSpan)

	for _, e := range entries {
		total = total.Union(t.applyEntry(e, contextChanged, visited))
	}

	for n, span := range visited {
		t.notify(n, span)
	}
	return total
}

// applyEntry walks one path from the root, creating or updating as needed.
func (t *Tree) applyEntry(e Entry, contextChanged bool, visited map[*Node]ColumnSpan) ColumnSpan {
	tokens := strings.Split(strings.Trim(e.Path, "/"), "/")
	if len(tokens) == 0 || tokens[0] == "" {
		return EmptySpan
	}

	node := t.root
	for _, token := range tokens[:len(tokens)-1] {
		child := node.ChildByName(token)
		if child == nil {
			child = NewDir(token)
			child.wanted = e.Wanted
			child.priority = e.Priority
			node.AppendChild(child)
			t.notify(child, ColumnSpan{First: ColName, Last: NumColumns - 1})
		}
		node = child
	}

	name := tokens[len(tokens)-1]
	leaf := t.index[e.FileIndex]
	if leaf == nil {
		// Never create a sibling with a duplicate name; an existing
		// leaf at this path is the one to update, remapped to the
		// snapshot's index.
		if existing := node.ChildByName(name); existing != nil && existing.IsLeaf() {
			delete(t.index, existing.fileIndex)
			existing.fileIndex = e.FileIndex
			t.index[e.FileIndex] = existing
			leaf = existing
		}
	}
	if leaf == nil {
		// An index the snapshot has not shown before: always a
		// creation, never an error.
		leaf = NewLeaf(name, e.FileIndex, e.TotalSize)
		leaf.wanted = e.Wanted
		leaf.priority = e.Priority
		leaf.haveSize = e.HaveSize
		node.AppendChild(leaf)
		t.index[e.FileIndex] = leaf
		t.notify(leaf, ColumnSpan{First: ColName, Last: NumColumns - 1})
		return ColumnSpan{First: ColName, Last: NumColumns - 1}
	}

	span := leaf.Update(name, e.Wanted, e.Priority, e.HaveSize, contextChanged)
	if span.Empty() {
		return span
	}
	t.notify(leaf, span)
	t.accumulateAncestors(leaf, span, visited)
	return span
}

// accumulateAncestors unions span into the pending notification of every
// ancestor of n, stopping early once an ancestor already covers it.
func (t *Tree) accumulateAncestors(n *Node, span ColumnSpan, visited map[*Node]ColumnSpan) {
	for p := n.parent; p != nil && p != t.root; p = p.parent {
		prev, seen := visited[p]
		if !seen {
			visited[p] = span
			continue
		}
		next := prev.Union(span)
		if next == prev {
			// Everything above is already covered.
			return
		}
		visited[p] = next
	}
}

// Resolve returns the leaf for the given flat-list file index.
func (t *Tree) Resolve(fileIndex int) (*Node, bool) {
	n, ok := t.index[fileIndex]
	return n, ok
}

// Contains reports whether n is currently reachable from the tree's root.
// Selections held by the view can race a rebuild, so edits verify
// membership instead of trusting the caller.
func (t *Tree) Contains(n *Node) bool {
	if n == nil {
		return false
	}
	for ; n != nil; n = n.parent {
		if n == t.root {
			return true
		}
	}
	return false
}

// orphans filters a selection down to the nodes whose ancestors are not
// themselves selected. Editing an ancestor already covers the descendant,
// so dropping it avoids redundant subtree walks.
func (t *Tree) orphans(nodes []*Node) []*Node {
	if len(nodes) < 2 {
		return nodes
	}
	selected := make(map[*Node]struct{}, len(nodes))
	for _, n := range nodes {
		selected[n] = struct{}{}
	}
	out := nodes[:0:0]
	for _, n := range nodes {
		if n == nil {
			continue
		}
		covered := false
		for p := n.parent; p != nil; p = p.parent {
			if _, ok := selected[p]; ok {
				covered = true
				break
			}
		}
		if !covered {
			out = append(out, n)
		}
	}
	return out
}

// SetWanted applies a wanted edit to every node of the selection and its
// descendants, optimistically and locally. It returns the set of file
// indices whose state actually changed; the caller forwards the set to the
// session layer for remote persistence. Detached nodes are skipped.
func (t *Tree) SetWanted(nodes []*Node, wanted bool) *roaring.Bitmap {
	changed := roaring.New()
	for _, n := range t.orphans(nodes) {
		if !t.Contains(n) {
			continue
		}
		n.SetSubtreeWanted(wanted, changed)
		t.emitEdit(n, ColumnSpan{First: ColSize, Last: ColWanted})
	}
	return changed
}

// SetPriority is the priority counterpart of SetWanted.
func (t *Tree) SetPriority(nodes []*Node, p Priority) *roaring.Bitmap {
	changed := roaring.New()
	for _, n := range t.orphans(nodes) {
		if !t.Contains(n) {
			continue
		}
		n.SetSubtreePriority(p, changed)
		t.emitEdit(n, ColumnSpan{First: ColPriority, Last: ColPriority})
	}
	return changed
}

// TwiddleWanted toggles the selection: nodes whose subtree is fully
// checked become unwanted, everything else becomes wanted.
func (t *Tree) TwiddleWanted(nodes []*Node) *roaring.Bitmap {
	changed := roaring.New()
	for _, n := range t.orphans(nodes) {
		if !t.Contains(n) {
			continue
		}
		n.SetSubtreeWanted(n.SubtreeWanted() != Checked, changed)
		t.emitEdit(n, ColumnSpan{First: ColSize, Last: ColWanted})
	}
	return changed
}

// TwiddlePriority cycles the selection's priority Normal -> High -> Low.
// Mixed subtrees reset to Normal.
func (t *Tree) TwiddlePriority(nodes []*Node) *roaring.Bitmap {
	changed := roaring.New()
	for _, n := range t.orphans(nodes) {
		if !t.Contains(n) {
			continue
		}
		var next Priority
		switch n.PriorityMask() {
		case MaskNormal:
			next = PriorityHigh
		case MaskHigh:
			next = PriorityLow
		default:
			next = PriorityNormal
		}
		n.SetSubtreePriority(next, changed)
		t.emitEdit(n, ColumnSpan{First: ColPriority, Last: ColPriority})
	}
	return changed
}

// emitEdit notifies the subtree rooted at n and its ancestors after an
// edit, since aggregates above and below the edited node both move.
func (t *Tree) emitEdit(n *Node, span ColumnSpan) {
	t.notifySubtree(n, span)
	visited := make(map[*Node]ColumnSpan)
	t.accumulateAncestors(n, span, visited)
	for p, s := range visited {
		t.notify(p, s)
	}
}

// notifySubtree emits a change for n and every descendant.
func (t *Tree) notifySubtree(n *Node, span ColumnSpan) {
	t.notify(n, span)
	for _, c := range n.children {
		t.notifySubtree(c, span)
	}
}

// Open validates that n is a fully-downloaded leaf and returns its path.
// Actual file opening is the caller's collaborator; the tree only decides
// whether opening is sensible.
func (t *Tree) Open(n *Node) (string, bool) {
	if !t.Contains(n) || !n.IsLeaf() || !n.IsComplete() {
		return "", false
	}
	return n.Path(), true
}
