package output

import (
	"bytes"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"

	"seedpick/pkg/filetree"
)

// PlainFormatter renders the tree as an indented tab-separated table,
// suitable for scripting. No colors or styling are applied.
type PlainFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *PlainFormatter) Format(w *bytes.Buffer, s *Snapshot) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	if _, err := fmt.Fprintf(tw, "NAME\tSIZE\tDONE\tGET\tPRIORITY\n"); err != nil {
		return err
	}

	var walk func(n *filetree.Node, depth int) error
	walk = func(n *filetree.Node, depth int) error {
		if n.Name() != "" {
			indent := strings.Repeat("  ", depth-1)
			if _, err := fmt.Fprintf(tw, "%s%s\t%s\t%.0f%%\t%s\t%s\n",
				indent, n.Name(),
				humanize.IBytes(n.Size()),
				n.Progress()*100,
				wantedLabel(n.SubtreeWanted()),
				n.PriorityMask().String(),
			); err != nil {
				return err
			}
		}
		for _, c := range n.Children() {
			if err := walk(c, depth+1); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(s.Tree.Root(), 0); err != nil {
		return err
	}
	return tw.Flush()
}

// wantedLabel maps the tri-state to a short table cell.
func wantedLabel(s filetree.TriState) string {
	switch s {
	case filetree.Checked:
		return "yes"
	case filetree.Unchecked:
		return "no"
	default:
		return "some"
	}
}

func init() {
	Register("plain", func() Formatter {
		return &PlainFormatter{}
	})
}

// Ensure PlainFormatter implements Formatter.
var _ Formatter = (*PlainFormatter)(nil)
