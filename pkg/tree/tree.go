/*
Package tree holds the arena that backs every scanned hierarchy.

Nodes live in one flat slice and refer to each other by NodeID, so the tree
has no pointer cycles and a node's identity never changes while the tree is
being built. The scanner fills the arena through a Builder, the aggregator
writes totals in place, the sorter reorders child lists, and the renderer
only reads.
*/
package tree

import (
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"strings"
	"time"
)

// NodeID addresses a node inside one Tree.
type NodeID int

// NoParent is the parent of the root node.
const NoParent NodeID = -1

// Kind is the file-type variant of a node.
type Kind uint8

const (
	Directory Kind = iota
	RegularFile
	Symlink
	Special
	ErrorMarker
)

func (k Kind) String() string {
	switch k {
	case Directory:
		return "directory"
	case RegularFile:
		return "file"
	case Symlink:
		return "symlink"
	case Special:
		return "special"
	case ErrorMarker:
		return "error"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// KindFromMode classifies a lstat mode.
func KindFromMode(mode fs.FileMode) Kind {
	switch {
	case mode.IsDir():
		return Directory
	case mode&fs.ModeSymlink != 0:
		return Symlink
	case mode.IsRegular():
		return RegularFile
	default:
		return Special
	}
}

// Identity is the (device, inode) pair of a file plus its link count.
// In-memory filesystems may return it from FileInfo.Sys.
type Identity struct {
	Dev   uint64
	Ino   uint64
	Nlink uint64
}

// Metadata is what a single lstat (or stat, when following links) reports.
type Metadata struct {
	Size        int64
	Dev         uint64
	Ino         uint64
	Nlink       uint64
	HasIdentity bool
	ModTime     time.Time
	Mode        fs.FileMode

	// Followed is set when the fields describe a symlink's target.
	Followed bool
}

// Node is one entry of the arena.
type Node struct {
	ID       NodeID
	Parent   NodeID
	Name     string
	Kind     Kind
	Meta     Metadata
	Children []NodeID
	Depth    int

	// LinkTarget is the raw target of a symlink, if it could be read.
	LinkTarget string

	// Err is set on ErrorMarker nodes.
	Err error

	// Tentative directories are dropped by Prune unless a descendant survives.
	Tentative bool

	ApparentTotal int64
	DiskTotal     int64

	// HardlinkDup marks a file whose blocks were already charged to the
	// on-disk totals through another link.
	HardlinkDup bool
}

// IsDir reports whether the node can have children.
func (n *Node) IsDir() bool {
	return n.Kind == Directory
}

// Tree is an arena of nodes with a designated root.
type Tree struct {
	nodes    []Node
	root     NodeID
	rootPath string
}

// New creates a tree whose root node describes rootPath.
func New(rootPath string, kind Kind, meta Metadata) *Tree {
	t := &Tree{rootPath: rootPath}
	t.nodes = append(t.nodes, Node{
		ID:     0,
		Parent: NoParent,
		Name:   rootPath,
		Kind:   kind,
		Meta:   meta,
	})
	t.root = 0
	return t
}

// RootPath is the path the tree was scanned from.
func (t *Tree) RootPath() string {
	return t.rootPath
}

// Root returns the identity of the root node.
func (t *Tree) Root() NodeID {
	return t.root
}

// Len returns the number of nodes in the arena.
func (t *Tree) Len() int {
	return len(t.nodes)
}

// Node returns the node for id, or nil if id is not part of the tree.
func (t *Tree) Node(id NodeID) *Node {
	if id < 0 || int(id) >= len(t.nodes) {
		return nil
	}
	return &t.nodes[id]
}

// Children returns the ordered child identities of id.
func (t *Tree) Children(id NodeID) []NodeID {
	if n := t.Node(id); n != nil {
		return n.Children
	}
	return nil
}

// add appends a node under parent. Callers must hold the single-writer role.
func (t *Tree) add(parent NodeID, name string, kind Kind, meta Metadata) (NodeID, error) {
	p := t.Node(parent)
	if p == nil {
		return NoParent, fmt.Errorf("unknown parent %d for %q", parent, name)
	}
	if !p.IsDir() {
		return NoParent, fmt.Errorf("parent %q is a %s, not a directory", p.Name, p.Kind)
	}

	id := NodeID(len(t.nodes))
	depth := p.Depth + 1
	t.nodes = append(t.nodes, Node{
		ID:     id,
		Parent: parent,
		Name:   name,
		Kind:   kind,
		Meta:   meta,
		Depth:  depth,
	})
	// p may be stale after the append reallocated the slice.
	t.nodes[parent].Children = append(t.nodes[parent].Children, id)
	return id, nil
}

// RelPath returns the slash-separated path of id relative to the root,
// or "." for the root itself.
func (t *Tree) RelPath(id NodeID) string {
	if id == t.root {
		return "."
	}
	var parts []string
	for cur := id; cur != t.root && cur != NoParent; cur = t.nodes[cur].Parent {
		parts = append(parts, t.nodes[cur].Name)
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return path.Join(parts...)
}

// Path returns the filesystem path of id.
func (t *Tree) Path(id NodeID) string {
	rel := t.RelPath(id)
	if rel == "." {
		return t.rootPath
	}
	return filepath.Join(t.rootPath, filepath.FromSlash(rel))
}

// Walk visits nodes in pre-order following each children list. Returning
// false from fn skips the node's descendants.
func (t *Tree) Walk(fn func(n *Node) bool) {
	stack := []NodeID{t.root}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n := &t.nodes[id]
		if !fn(n) {
			continue
		}
		for i := len(n.Children) - 1; i >= 0; i-- {
			stack = append(stack, n.Children[i])
		}
	}
}

// PostOrder visits every node after all of its descendants.
func (t *Tree) PostOrder(fn func(n *Node)) {
	type frame struct {
		id   NodeID
		next int
	}
	stack := []frame{{id: t.root}}
	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		n := &t.nodes[top.id]
		if top.next < len(n.Children) {
			child := n.Children[top.next]
			top.next++
			stack = append(stack, frame{id: child})
			continue
		}
		stack = stack[:len(stack)-1]
		fn(n)
	}
}

// Validate checks the structural invariants: every non-root node has exactly
// one parent, appears exactly once in that parent's children, the structure
// is acyclic and depths are consistent.
func (t *Tree) Validate() error {
	seen := make([]int, len(t.nodes))
	for i := range t.nodes {
		n := &t.nodes[i]
		if n.ID != NodeID(i) {
			return fmt.Errorf("node %d carries id %d", i, n.ID)
		}
		for _, c := range n.Children {
			child := t.Node(c)
			if child == nil {
				return fmt.Errorf("node %d lists unknown child %d", i, c)
			}
			if child.Parent != n.ID {
				return fmt.Errorf("node %d lists child %d whose parent is %d", i, c, child.Parent)
			}
			if child.Depth != n.Depth+1 {
				return fmt.Errorf("node %d has depth %d under parent depth %d", c, child.Depth, n.Depth)
			}
			seen[c]++
		}
	}
	for i := range t.nodes {
		id := NodeID(i)
		if id == t.root {
			if t.nodes[i].Parent != NoParent || t.nodes[i].Depth != 0 {
				return fmt.Errorf("root node has parent %d depth %d", t.nodes[i].Parent, t.nodes[i].Depth)
			}
			if seen[i] != 0 {
				return fmt.Errorf("root node listed as a child")
			}
			continue
		}
		if seen[i] != 1 {
			return fmt.Errorf("node %d (%s) listed %d times", i, t.RelPath(id), seen[i])
		}
	}

	// Depth consistency plus single listing already rule out cycles through the
	// root; this catches detached cycles.
	reached := 0
	t.Walk(func(*Node) bool { reached++; return true })
	if reached != len(t.nodes) {
		return fmt.Errorf("%d nodes unreachable from root", len(t.nodes)-reached)
	}
	return nil
}

// Prune returns a compacted copy of the tree that keeps only the nodes for
// which keep returns true. keep runs bottom-up and receives the number of
// children that survived, so a directory can decide based on its subtree.
// The root is always kept. Node identities are reassigned in pre-order.
func (t *Tree) Prune(keep func(n *Node, keptChildren int) bool) *Tree {
	alive := make([]bool, len(t.nodes))
	t.PostOrder(func(n *Node) {
		kept := 0
		for _, c := range n.Children {
			if alive[c] {
				kept++
			}
		}
		alive[n.ID] = n.ID == t.root || keep(n, kept)
	})

	out := &Tree{rootPath: t.rootPath, nodes: make([]Node, 0, len(t.nodes))}
	remap := make([]NodeID, len(t.nodes))
	t.Walk(func(n *Node) bool {
		if !alive[n.ID] {
			return false
		}
		id := NodeID(len(out.nodes))
		remap[n.ID] = id
		cp := *n
		cp.ID = id
		cp.Children = nil
		if n.Parent != NoParent {
			cp.Parent = remap[n.Parent]
			out.nodes[cp.Parent].Children = append(out.nodes[cp.Parent].Children, id)
		}
		out.nodes = append(out.nodes, cp)
		return true
	})
	return out
}

// Count tallies nodes by kind.
func (t *Tree) Count() map[Kind]int {
	counts := make(map[Kind]int)
	for i := range t.nodes {
		counts[t.nodes[i].Kind]++
	}
	return counts
}

// String renders a compact debug listing, one relative path per line.
func (t *Tree) String() string {
	var b strings.Builder
	t.Walk(func(n *Node) bool {
		b.WriteString(strings.Repeat("  ", n.Depth))
		b.WriteString(n.Name)
		b.WriteByte('\n')
		return true
	})
	return b.String()
}
