package output

import (
	"bufio"
	"io"
	"strings"

	"github.com/sonemaro/arbor/pkg/tree"
)

// writeReport prints a flat "size  path" listing in display order. Paths
// are relative to the root, which is listed first as ".". With FileName
// only the last path element is printed.
func (f *formatter) writeReport(w io.Writer, doc *Document) error {
	f.log.Debug("Formatting report output")

	t := doc.Tree
	type row struct{ size, path string }
	var rows []row
	width := 0

	var visit func(id tree.NodeID)
	visit = func(id tree.NodeID) {
		n := t.Node(id)
		size := "-"
		if n.Kind != tree.ErrorMarker {
			size = f.config.formatSize(f.config.displaySize(n))
		}
		if len(size) > width {
			width = len(size)
		}
		path := t.RelPath(id)
		if f.config.FileName && id != t.Root() {
			path = n.Name
		}
		rows = append(rows, row{size: size, path: path})
		for _, c := range f.config.visibleChildren(t, n) {
			visit(c)
		}
	}
	visit(t.Root())

	bw := bufio.NewWriter(w)
	for _, rw := range rows {
		bw.WriteString(strings.Repeat(" ", width-len(rw.size)))
		bw.WriteString(rw.size)
		bw.WriteString("  ")
		bw.WriteString(rw.path)
		bw.WriteByte('\n')
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	if f.config.WithStats {
		return f.writeStats(w, doc)
	}
	return nil
}
