package filetree_test

import (
	"testing"

	"github.com/RoaringBitmap/roaring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"seedpick/pkg/filetree"
)

func TestNodeRowLookup(t *testing.T) {
	t.Run("resolves children by name lazily", func(t *testing.T) {
		dir := filetree.NewDir("season1")
		for i, name := range []string{"e01.mkv", "e02.mkv", "e03.mkv"} {
			dir.AppendChild(filetree.NewLeaf(name, i, 100))
		}

		e2 := dir.ChildByName("e02.mkv")
		require.NotNil(t, e2)
		assert.Equal(t, 1, e2.Row())
		assert.Nil(t, dir.ChildByName("e04.mkv"))
	})

	t.Run("extends the cache after later appends", func(t *testing.T) {
		dir := filetree.NewDir("d")
		dir.AppendChild(filetree.NewLeaf("a", 0, 1))
		require.NotNil(t, dir.ChildByName("a"))

		// Appending after a lookup must still make the new row findable.
		dir.AppendChild(filetree.NewLeaf("b", 1, 1))
		b := dir.ChildByName("b")
		require.NotNil(t, b)
		assert.Equal(t, 1, b.Row())
	})

	t.Run("root has no row", func(t *testing.T) {
		assert.Equal(t, -1, filetree.NewDir("").Row())
	})
}

func TestNodeUpdate(t *testing.T) {
	t.Run("reports changed columns as a span", func(t *testing.T) {
		leaf := filetree.NewLeaf("a.txt", 0, 100)

		span := leaf.Update("a.txt", true, filetree.PriorityNormal, 40, true)
		assert.Equal(t, filetree.ColProgress, span.First)
		assert.Equal(t, filetree.ColWanted, span.Last)

		// Same values again: nothing changes.
		span = leaf.Update("a.txt", true, filetree.PriorityNormal, 40, true)
		assert.True(t, span.Empty())
	})

	t.Run("have size updates even without field propagation", func(t *testing.T) {
		leaf := filetree.NewLeaf("a.txt", 0, 100)
		leaf.Update("a.txt", true, filetree.PriorityNormal, 0, true)

		span := leaf.Update("a.txt", false, filetree.PriorityHigh, 75, false)
		assert.Equal(t, filetree.ColProgress, span.First)
		assert.Equal(t, filetree.ColProgress, span.Last)
		assert.True(t, leaf.Wanted(), "poll must not clobber wanted")
		assert.Equal(t, filetree.PriorityNormal, leaf.Priority())
		assert.Equal(t, uint64(75), leaf.HaveSize())
	})

	t.Run("rename keeps the node findable under the new name", func(t *testing.T) {
		dir := filetree.NewDir("d")
		dir.AppendChild(filetree.NewLeaf("old.iso", 0, 10))
		dir.AppendChild(filetree.NewLeaf("other.iso", 1, 10))
		require.NotNil(t, dir.ChildByName("old.iso"))

		leaf := dir.Child(0)
		span := leaf.Update("new.iso", false, filetree.PriorityNormal, 0, false)
		assert.Equal(t, filetree.ColName, span.First)
		assert.Equal(t, filetree.ColName, span.Last)

		assert.Nil(t, dir.ChildByName("old.iso"))
		renamed := dir.ChildByName("new.iso")
		require.NotNil(t, renamed)
		assert.Equal(t, 0, renamed.Row())
		assert.Equal(t, 1, dir.ChildByName("other.iso").Row())
	})
}

func TestSubtreeAggregates(t *testing.T) {
	// d/
	//   a.bin wanted 100 (50 done)
	//   b.bin unwanted 200
	build := func() *filetree.Node {
		dir := filetree.NewDir("d")
		a := filetree.NewLeaf("a.bin", 0, 100)
		a.Update("a.bin", true, filetree.PriorityNormal, 50, true)
		b := filetree.NewLeaf("b.bin", 1, 200)
		b.Update("b.bin", false, filetree.PriorityNormal, 0, true)
		dir.AppendChild(a)
		dir.AppendChild(b)
		return dir
	}

	t.Run("wanted subtree size excludes unwanted leaves", func(t *testing.T) {
		dir := build()
		have, total := dir.SubtreeWantedSize()
		assert.Equal(t, uint64(50), have)
		assert.Equal(t, uint64(100), total)
		assert.Equal(t, uint64(100), dir.Size())
	})

	t.Run("progress is have over wanted total", func(t *testing.T) {
		dir := build()
		assert.InDelta(t, 0.5, dir.Progress(), 1e-9)
	})

	t.Run("zero wanted bytes reports zero progress", func(t *testing.T) {
		dir := filetree.NewDir("d")
		b := filetree.NewLeaf("b.bin", 0, 200)
		b.Update("b.bin", false, filetree.PriorityNormal, 0, true)
		dir.AppendChild(b)
		assert.Equal(t, 0.0, dir.Progress())
	})

	t.Run("leaf effective size ignores wanted state", func(t *testing.T) {
		b := filetree.NewLeaf("b.bin", 0, 200)
		b.Update("b.bin", false, filetree.PriorityNormal, 0, true)
		assert.Equal(t, uint64(200), b.Size())
	})
}

func TestSubtreeWantedTriState(t *testing.T) {
	leaf := func(name string, idx int, wanted bool) *filetree.Node {
		l := filetree.NewLeaf(name, idx, 10)
		l.Update(name, wanted, filetree.PriorityNormal, 0, true)
		return l
	}

	t.Run("uniform children agree with the directory", func(t *testing.T) {
		dir := filetree.NewDir("d")
		dir.AppendChild(leaf("a", 0, true))
		dir.AppendChild(leaf("b", 1, true))
		assert.Equal(t, filetree.Checked, dir.SubtreeWanted())
	})

	t.Run("disagreement yields partial", func(t *testing.T) {
		dir := filetree.NewDir("d")
		dir.AppendChild(leaf("a", 0, true))
		dir.AppendChild(leaf("b", 1, false))
		assert.Equal(t, filetree.Partial, dir.SubtreeWanted())
	})

	t.Run("partial propagates to every strict ancestor", func(t *testing.T) {
		root := filetree.NewDir("top")
		mid := filetree.NewDir("mid")
		root.AppendChild(mid)
		root.AppendChild(leaf("c", 2, true))
		mid.AppendChild(leaf("a", 0, true))
		mid.AppendChild(leaf("b", 1, false))

		assert.Equal(t, filetree.Partial, mid.SubtreeWanted())
		assert.Equal(t, filetree.Partial, root.SubtreeWanted())
	})
}

func TestPriorityMask(t *testing.T) {
	leaf := func(name string, idx int, p filetree.Priority) *filetree.Node {
		l := filetree.NewLeaf(name, idx, 10)
		l.Update(name, true, p, 0, true)
		return l
	}

	t.Run("uniform subtree has one bit set", func(t *testing.T) {
		dir := filetree.NewDir("d")
		dir.AppendChild(leaf("a", 0, filetree.PriorityNormal))
		dir.AppendChild(leaf("b", 1, filetree.PriorityNormal))

		m := dir.PriorityMask()
		assert.Equal(t, filetree.MaskNormal, m)
		assert.False(t, m.Mixed())
		assert.Equal(t, "Normal", m.String())
	})

	t.Run("distinct priorities mark the mask mixed", func(t *testing.T) {
		dir := filetree.NewDir("d")
		dir.AppendChild(leaf("a", 0, filetree.PriorityLow))
		dir.AppendChild(leaf("b", 1, filetree.PriorityHigh))

		m := dir.PriorityMask()
		assert.True(t, m.Mixed())
		assert.Equal(t, "Mixed", m.String())
	})

	t.Run("mask folds leaves regardless of wanted state", func(t *testing.T) {
		dir := filetree.NewDir("d")
		a := filetree.NewLeaf("a", 0, 10)
		a.Update("a", false, filetree.PriorityHigh, 0, true)
		dir.AppendChild(a)
		dir.AppendChild(leaf("b", 1, filetree.PriorityNormal))
		assert.True(t, dir.PriorityMask().Mixed())
	})
}

func TestSetSubtree(t *testing.T) {
	t.Run("wanted edit reports only leaves that flipped", func(t *testing.T) {
		dir := filetree.NewDir("d")
		a := filetree.NewLeaf("a", 3, 10)
		a.Update("a", true, filetree.PriorityNormal, 0, true)
		b := filetree.NewLeaf("b", 7, 10)
		dir.AppendChild(a)
		dir.AppendChild(b)

		changed := roaring.New()
		dir.SetSubtreeWanted(true, changed)
		assert.Equal(t, []uint32{7}, changed.ToArray(), "a was already wanted")

		again := roaring.New()
		dir.SetSubtreeWanted(true, again)
		assert.True(t, again.IsEmpty())
	})

	t.Run("priority edit is idempotent per leaf", func(t *testing.T) {
		dir := filetree.NewDir("d")
		dir.AppendChild(filetree.NewLeaf("a", 0, 10))
		dir.AppendChild(filetree.NewLeaf("b", 1, 10))

		changed := roaring.New()
		dir.SetSubtreePriority(filetree.PriorityHigh, changed)
		assert.Equal(t, uint64(2), changed.GetCardinality())

		again := roaring.New()
		dir.SetSubtreePriority(filetree.PriorityHigh, again)
		assert.True(t, again.IsEmpty())
	})
}

func TestNodePath(t *testing.T) {
	root := filetree.NewDir("")
	a := filetree.NewDir("a")
	root.AppendChild(a)
	b := filetree.NewLeaf("b.txt", 0, 1)
	a.AppendChild(b)

	assert.Equal(t, "a/b.txt", b.Path())
	assert.Equal(t, "a", a.Path())
	assert.Equal(t, "", root.Path())
	assert.Equal(t, 2, b.Depth())
}

func TestNodeCompletion(t *testing.T) {
	leaf := filetree.NewLeaf("a", 0, 100)
	assert.False(t, leaf.IsComplete())
	leaf.Update("a", true, filetree.PriorityNormal, 100, true)
	assert.True(t, leaf.IsComplete())
}

func TestFlatten(t *testing.T) {
	tr := filetree.New()
	tr.ApplySnapshot([]filetree.Entry{
		{FileIndex: 0, Path: "a/b.txt", Wanted: true, TotalSize: 1},
		{FileIndex: 1, Path: "a/c.txt", Wanted: true, TotalSize: 1},
		{FileIndex: 2, Path: "d.txt", Wanted: true, TotalSize: 1},
	}, true)

	names := func() []string {
		var out []string
		for _, n := range tr.Root().Flatten() {
			out = append(out, n.Name())
		}
		return out
	}

	// Collapsed by default: directory children stay hidden.
	assert.Equal(t, []string{"a", "d.txt"}, names())

	tr.Root().ExpandAll()
	assert.Equal(t, []string{"a", "b.txt", "c.txt", "d.txt"}, names())

	a := tr.Root().ChildByName("a")
	require.NotNil(t, a)
	a.Toggle()
	assert.Equal(t, []string{"a", "d.txt"}, names())
}
