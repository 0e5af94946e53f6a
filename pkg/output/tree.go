package output

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/sonemaro/arbor/pkg/logger"
	"github.com/sonemaro/arbor/pkg/tree"
)

const (
	branchMid  = "├── "
	branchLast = "└── "
	indentBar  = "│   "
	indentNone = "    "
)

// Line is one rendered row of the tree format.
type Line struct {
	// ID is the node on this line, or tree.NoParent for an omission marker.
	ID     tree.NodeID
	Depth  int
	Prefix string
	Name   string

	// Kind and Size describe the node; they are zero on markers.
	Kind tree.Kind
	Size int64

	// Columns are the padded long-listing and size columns, in display order.
	Columns []string

	// Omitted is the number of hidden lines a marker stands for.
	Omitted int
}

// IsMarker reports whether the line stands in for omitted nodes.
func (l Line) IsMarker() bool {
	return l.ID == tree.NoParent
}

// Renderer lays out the tree format.
type Renderer struct {
	config Config
	log    logger.Logger
}

// NewRenderer creates a renderer for config.
func NewRenderer(config Config, log logger.Logger) *Renderer {
	if log == nil {
		log = logger.Nop()
	}
	return &Renderer{config: config, log: log}
}

// visibleChildren applies the render-only filters: level and dirs_only.
func (c Config) visibleChildren(t *tree.Tree, n *tree.Node) []tree.NodeID {
	if c.Level > 0 && n.Depth >= c.Level {
		return nil
	}
	if !c.DirsOnly {
		return n.Children
	}
	var out []tree.NodeID
	for _, id := range n.Children {
		if t.Node(id).IsDir() {
			out = append(out, id)
		}
	}
	return out
}

// Lines lays out every visible node, truncated to MaxLines.
func (r *Renderer) Lines(t *tree.Tree) []Line {
	plan := r.plan(t)
	lines := make([]Line, 0, plan.budget)

	var emit func(id tree.NodeID, prefix, childPrefix string)
	emit = func(id tree.NodeID, prefix, childPrefix string) {
		if plan.fallback && len(lines) >= plan.budget {
			return
		}
		n := t.Node(id)
		lines = append(lines, r.nodeLine(t, n, prefix))

		children := r.config.visibleChildren(t, n)
		if len(children) == 0 {
			return
		}
		if !plan.fallback && n.Depth >= plan.cutoff {
			lines = append(lines, Line{
				ID:      tree.NoParent,
				Depth:   n.Depth + 1,
				Prefix:  childPrefix + branchLast,
				Name:    fmt.Sprintf("… %d omitted", plan.descendants[id]),
				Omitted: plan.descendants[id],
			})
			return
		}
		for i, c := range children {
			if i == len(children)-1 {
				emit(c, childPrefix+branchLast, childPrefix+indentNone)
			} else {
				emit(c, childPrefix+branchMid, childPrefix+indentBar)
			}
		}
	}
	emit(t.Root(), "", "")

	if plan.fallback {
		hidden := plan.total - len(lines)
		lines = append(lines, Line{
			ID:      tree.NoParent,
			Name:    fmt.Sprintf("… %d more omitted", hidden),
			Omitted: hidden,
		})
	}

	r.layoutColumns(t, lines)

	r.log.WithFields(logger.Fields{
		"visible":  plan.total,
		"rendered": len(lines),
		"cutoff":   plan.cutoff,
		"fallback": plan.fallback,
	}).Debug("Tree layout computed")
	return lines
}

func (r *Renderer) nodeLine(t *tree.Tree, n *tree.Node, prefix string) Line {
	name := n.Name
	if n.ID == t.Root() {
		name = t.RootPath()
	}
	return Line{
		ID:     n.ID,
		Depth:  n.Depth,
		Prefix: prefix,
		Name:   name,
		Kind:   n.Kind,
		Size:   r.config.displaySize(n),
	}
}

// truncation describes how Lines fits the budget.
type truncation struct {
	total       int
	budget      int
	cutoff      int
	fallback    bool
	descendants map[tree.NodeID]int
}

// plan counts visible lines per depth and picks the deepest depth cutoff
// whose lines plus one marker per cut directory fit MaxLines. When even the
// root level does not fit, it falls back to a plain prefix of the listing
// followed by a single marker.
func (r *Renderer) plan(t *tree.Tree) truncation {
	p := truncation{cutoff: -1, descendants: make(map[tree.NodeID]int)}

	var perDepth []int
	var cutDirs []int
	var count func(id tree.NodeID) int
	count = func(id tree.NodeID) int {
		n := t.Node(id)
		for len(perDepth) <= n.Depth {
			perDepth = append(perDepth, 0)
			cutDirs = append(cutDirs, 0)
		}
		perDepth[n.Depth]++
		below := 0
		children := r.config.visibleChildren(t, n)
		if len(children) > 0 {
			cutDirs[n.Depth]++
		}
		for _, c := range children {
			below += count(c)
		}
		p.descendants[id] = below
		return below + 1
	}
	p.total = count(t.Root())
	p.budget = p.total
	p.cutoff = len(perDepth)

	limit := r.config.MaxLines
	if limit <= 0 || p.total <= limit {
		return p
	}

	p.budget = limit
	shown := 0
	best := -1
	for d := 0; d < len(perDepth)-1; d++ {
		shown += perDepth[d]
		if shown+cutDirs[d] <= limit {
			best = d
		}
	}
	if best >= 0 {
		p.cutoff = best
		return p
	}
	p.fallback = true
	p.budget = limit - 1
	return p
}

type column struct {
	value func(n *tree.Node) string
	right bool
}

// layoutColumns fills Columns with uniformly padded values. Widths come
// from one pass over every emitted line.
func (r *Renderer) layoutColumns(t *tree.Tree, lines []Line) {
	var cols []column
	if r.config.Long {
		cols = append(cols,
			column{value: func(n *tree.Node) string { return n.Meta.Mode.String() }},
			column{value: func(n *tree.Node) string { return strconv.FormatUint(n.Meta.Nlink, 10) }, right: true},
			column{value: func(n *tree.Node) string { return strconv.FormatUint(n.Meta.Ino, 10) }, right: true},
			column{value: func(n *tree.Node) string { return n.Meta.ModTime.Format("2006-01-02 15:04") }},
		)
	}
	if !r.config.SuppressSize {
		cols = append(cols, column{
			value: func(n *tree.Node) string { return r.config.formatSize(r.config.displaySize(n)) },
			right: true,
		})
	}
	if len(cols) == 0 {
		return
	}

	values := make([][]string, len(lines))
	widths := make([]int, len(cols))
	for i, l := range lines {
		values[i] = make([]string, len(cols))
		if l.IsMarker() {
			continue
		}
		n := t.Node(l.ID)
		for j, col := range cols {
			if n.Kind == tree.ErrorMarker {
				values[i][j] = "-"
			} else {
				values[i][j] = col.value(n)
			}
			if w := displayWidth(values[i][j]); w > widths[j] {
				widths[j] = w
			}
		}
	}

	for i := range lines {
		lines[i].Columns = make([]string, len(cols))
		for j, v := range values[i] {
			pad := strings.Repeat(" ", widths[j]-displayWidth(v))
			if cols[j].right {
				lines[i].Columns[j] = pad + v
			} else {
				lines[i].Columns[j] = v + pad
			}
		}
	}
}

func displayWidth(s string) int {
	return len([]rune(s))
}

// format renders one line as text.
func (r *Renderer) format(t *tree.Tree, l Line) string {
	var b strings.Builder
	for _, c := range l.Columns {
		b.WriteString(c)
		b.WriteByte(' ')
	}
	b.WriteString(l.Prefix)

	if l.IsMarker() {
		b.WriteString(l.Name)
		return b.String()
	}

	n := t.Node(l.ID)
	if r.config.Icons {
		b.WriteString(iconFor(n))
		b.WriteByte(' ')
	}
	b.WriteString(r.config.Palette.Paint(n, l.Name))
	switch {
	case n.Kind == tree.ErrorMarker:
		fmt.Fprintf(&b, " [error: %s]", shortError(n.Err))
	case n.LinkTarget != "":
		b.WriteString(" -> ")
		b.WriteString(n.LinkTarget)
	}
	return b.String()
}

// Render writes the tree format to w.
func (r *Renderer) Render(w io.Writer, t *tree.Tree) error {
	bw := bufio.NewWriter(w)
	for _, l := range r.Lines(t) {
		if _, err := bw.WriteString(r.format(t, l)); err != nil {
			return err
		}
		if err := bw.WriteByte('\n'); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func (f *formatter) writeTree(w io.Writer, doc *Document) error {
	f.log.Debug("Formatting tree output")

	// The line budget covers the whole document, footer included. A budget
	// too small to hold the footer keeps only the tree.
	config := f.config
	withStats := config.WithStats
	if withStats && config.MaxLines > 0 {
		if footer := footerLines(doc); config.MaxLines > footer {
			config.MaxLines -= footer
		} else {
			withStats = false
		}
	}

	if err := NewRenderer(config, f.log).Render(w, doc.Tree); err != nil {
		return err
	}
	if withStats {
		f.log.Debug("Adding statistics to output")
		return f.writeStats(w, doc)
	}
	return nil
}
