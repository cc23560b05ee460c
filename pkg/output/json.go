package output

import (
	"bytes"

	"github.com/dustin/go-humanize"
	"github.com/ohler55/ojg/oj"

	"seedpick/pkg/filetree"
)

// jsonNode represents one tree node in JSON output.
type jsonNode struct {
	Name      string      `json:"name"`
	Path      string      `json:"path"`
	Size      uint64      `json:"size"`
	SizeHuman string      `json:"size_human"`
	Progress  float64     `json:"progress"`
	Wanted    string      `json:"wanted"`
	Priority  string      `json:"priority,omitempty"`
	FileIndex *int        `json:"file_index,omitempty"`
	Complete  bool        `json:"complete"`
	Children  []*jsonNode `json:"children,omitempty"`
}

// jsonOutput is the top-level JSON document.
type jsonOutput struct {
	Torrent    string      `json:"torrent"`
	TotalFiles int         `json:"total_files"`
	Size       uint64      `json:"size"`
	SizeHuman  string      `json:"size_human"`
	Progress   float64     `json:"progress"`
	Files      []*jsonNode `json:"files"`
}

// JSONFormatter renders the tree as a single indented JSON document.
type JSONFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *JSONFormatter) Format(w *bytes.Buffer, s *Snapshot) error {
	root := s.Tree.Root()
	doc := jsonOutput{
		Torrent:    s.TorrentName,
		TotalFiles: s.Tree.Len(),
		Size:       root.Size(),
		SizeHuman:  humanize.IBytes(root.Size()),
		Progress:   root.Progress(),
	}
	for _, c := range root.Children() {
		doc.Files = append(doc.Files, buildNode(c))
	}

	b, err := oj.Marshal(&doc, 2)
	if err != nil {
		return err
	}
	w.Write(b)
	w.WriteByte('\n')
	return nil
}

// buildNode converts a subtree to its JSON form.
func buildNode(n *filetree.Node) *jsonNode {
	out := &jsonNode{
		Name:      n.Name(),
		Path:      n.Path(),
		Size:      n.Size(),
		SizeHuman: humanize.IBytes(n.Size()),
		Progress:  n.Progress(),
		Wanted:    n.SubtreeWanted().String(),
		Priority:  n.PriorityMask().String(),
		Complete:  n.IsComplete(),
	}
	if n.IsLeaf() {
		// Pointer so index 0 survives omitempty; directories omit the field.
		idx := n.FileIndex()
		out.FileIndex = &idx
	}
	for _, c := range n.Children() {
		out.Children = append(out.Children, buildNode(c))
	}
	return out
}

func init() {
	Register("json", func() Formatter {
		return &JSONFormatter{}
	})
}

// Ensure JSONFormatter implements Formatter.
var _ Formatter = (*JSONFormatter)(nil)
