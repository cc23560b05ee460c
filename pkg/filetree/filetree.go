// Package filetree maintains the hierarchical view of a torrent's files.
//
// A flat per-file snapshot from the RPC session is folded into a
// directory-shaped tree whose interior nodes expose aggregated state:
// wanted-subtree size, download progress, a tri-state wanted flag, and a
// priority mask. The tree supports cheap incremental re-sync against fresh
// snapshots, top-down edits that propagate to descendant leaves, and O(1)
// lookup from a file index back to its node.
package filetree

// Priority is a per-file download priority.
type Priority int

// Download priorities, matching the RPC layer's -1/0/1 encoding. The zero
// value is Normal.
const (
	PriorityLow    Priority = -1
	PriorityNormal Priority = 0
	PriorityHigh   Priority = 1
)

// String returns the display label for the priority.
func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "Low"
	case PriorityHigh:
		return "High"
	default:
		return "Normal"
	}
}

// PriorityMask is a bit set over the priorities present in a subtree.
// A single bit means the subtree is uniform; more than one means mixed.
type PriorityMask uint8

// Mask bits, one per priority value.
const (
	MaskLow PriorityMask = 1 << iota
	MaskNormal
	MaskHigh
)

// bit returns the mask bit for a single priority value.
func (p Priority) bit() PriorityMask {
	switch p {
	case PriorityLow:
		return MaskLow
	case PriorityHigh:
		return MaskHigh
	default:
		return MaskNormal
	}
}

// Mixed reports whether more than one priority is present.
func (m PriorityMask) Mixed() bool {
	return m&(m-1) != 0
}

// String returns the display label for the mask: a single priority's name
// when uniform, "Mixed" otherwise.
func (m PriorityMask) String() string {
	switch m {
	case 0:
		return ""
	case MaskLow:
		return "Low"
	case MaskNormal:
		return "Normal"
	case MaskHigh:
		return "High"
	default:
		return "Mixed"
	}
}

// TriState generalizes the boolean wanted flag to directories with mixed
// children.
type TriState int

// Tri-state wanted values.
const (
	Unchecked TriState = iota
	Partial
	Checked
)

// String returns a short label for the state.
func (s TriState) String() string {
	switch s {
	case Checked:
		return "checked"
	case Unchecked:
		return "unchecked"
	default:
		return "partial"
	}
}

// Logical columns of the tree, used to describe minimal change regions so
// the view can repaint the smallest covering rectangle.
const (
	ColName = iota
	ColSize
	ColProgress
	ColWanted
	ColPriority

	NumColumns
)

// ColumnSpan is an inclusive range of changed columns. The zero value is
// not meaningful; use EmptySpan for "nothing changed".
type ColumnSpan struct {
	First int
	Last  int
}

// EmptySpan is the span reported when no fields changed.
var EmptySpan = ColumnSpan{First: -1, Last: -1}

// Empty reports whether the span covers no columns.
func (s ColumnSpan) Empty() bool {
	return s.First < 0
}

// Union returns the smallest span covering both s and other.
func (s ColumnSpan) Union(other ColumnSpan) ColumnSpan {
	if s.Empty() {
		return other
	}
	if other.Empty() {
		return s
	}
	if other.First < s.First {
		s.First = other.First
	}
	if other.Last > s.Last {
		s.Last = other.Last
	}
	return s
}

// Entry is one file of the flat snapshot supplied by the session layer.
type Entry struct {
	// FileIndex is the file's position in the torrent's flat file list.
	FileIndex int `json:"file_index"`

	// Path is the slash-separated path inside the torrent.
	Path string `json:"path"`

	// Wanted reports whether the file is selected for download.
	Wanted bool `json:"wanted"`

	// Priority is the file's download priority.
	Priority Priority `json:"priority"`

	// TotalSize is the file's size in bytes.
	TotalSize uint64 `json:"total_size"`

	// HaveSize is the number of bytes already downloaded.
	HaveSize uint64 `json:"have_size"`
}
