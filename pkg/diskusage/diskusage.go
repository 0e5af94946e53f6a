/*
Package diskusage computes directory totals over a scanned tree.

Every file contributes its apparent size (the byte length it reports) and its
on-disk size (that length rounded up to the filesystem block size). A file
reachable through several hard links adds to the on-disk totals once per
Aggregate call, charged to the link with the smallest relative path; its
other lines still show their full size. Directories only add
their own allocation when SelfSizeCounted is set.
*/
package diskusage

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/sonemaro/arbor/pkg/tree"
)

// Mode selects which of the two totals is displayed and sorted on.
type Mode int

const (
	Apparent Mode = iota
	OnDisk
)

func (m Mode) String() string {
	if m == OnDisk {
		return "disk"
	}
	return "apparent"
}

// ParseMode accepts "apparent" or "disk" (also "on-disk" and "physical").
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "apparent", "logical":
		return Apparent, nil
	case "disk", "on-disk", "physical":
		return OnDisk, nil
	}
	return Apparent, fmt.Errorf("unknown disk usage mode %q", s)
}

// Options tunes Aggregate.
type Options struct {
	// SelfSizeCounted adds each directory's own allocation to its total.
	SelfSizeCounted bool

	// BlockSizer reports the allocation unit; nil uses NewBlockSizer.
	BlockSizer BlockSizer
}

// Summary counts what Aggregate visited.
type Summary struct {
	Files            int   `json:"files" yaml:"files"`
	Dirs             int   `json:"directories" yaml:"directories"`
	Symlinks         int   `json:"symlinks" yaml:"symlinks"`
	Errors           int   `json:"errors" yaml:"errors"`
	HardlinksDeduped int   `json:"hardlinks_deduped" yaml:"hardlinks_deduped"`
	Apparent         int64 `json:"apparent_bytes" yaml:"apparent_bytes"`
	Disk             int64 `json:"disk_bytes" yaml:"disk_bytes"`
}

// Size returns the node total for the mode.
func Size(n *tree.Node, mode Mode) int64 {
	if mode == OnDisk {
		return n.DiskTotal
	}
	return n.ApparentTotal
}

// RoundUp rounds size up to a multiple of block. Non-positive blocks leave
// size unchanged.
func RoundUp(size, block int64) int64 {
	if size <= 0 {
		return 0
	}
	if block <= 0 {
		return size
	}
	return (size + block - 1) / block * block
}

type identity [2]uint64

// chargedLinks picks, for every identity that several nodes may share, the
// node whose blocks count towards its ancestors: the one with the smallest
// relative path, so the choice does not depend on discovery order.
//
// Files with a single link are normally unique. A followed symlink reports
// its target's link count though, so once the tree holds one every file
// with an identity is tracked.
type chargedLinks struct {
	all    bool
	owners map[identity]tree.NodeID
}

func newChargedLinks(t *tree.Tree) *chargedLinks {
	c := &chargedLinks{owners: make(map[identity]tree.NodeID)}
	t.Walk(func(n *tree.Node) bool {
		c.all = c.all || n.Meta.Followed
		return !c.all
	})

	paths := make(map[identity]string)
	t.Walk(func(n *tree.Node) bool {
		key, ok := c.key(n)
		if !ok {
			return true
		}
		rel := t.RelPath(n.ID)
		if cur, seen := paths[key]; !seen || rel < cur {
			paths[key] = rel
			c.owners[key] = n.ID
		}
		return true
	})
	return c
}

func (c *chargedLinks) key(n *tree.Node) (identity, bool) {
	if n.IsDir() || n.Kind == tree.ErrorMarker || !n.Meta.HasIdentity {
		return identity{}, false
	}
	if n.Meta.Nlink <= 1 && !c.all {
		return identity{}, false
	}
	return identity{n.Meta.Dev, n.Meta.Ino}, true
}

// duplicate reports whether n shares its identity with the charged node.
func (c *chargedLinks) duplicate(n *tree.Node) bool {
	key, ok := c.key(n)
	if !ok {
		return false
	}
	return c.owners[key] != n.ID
}

// Aggregate fills ApparentTotal and DiskTotal of every node, children
// before parents, and returns the summary. Each call starts with an empty
// hardlink set, so it can be repeated on the same tree.
func Aggregate(t *tree.Tree, opts Options) Summary {
	sizer := opts.BlockSizer
	if sizer == nil {
		sizer = NewBlockSizer()
	}
	links := newChargedLinks(t)
	var sum Summary

	blocks := make(map[uint64]int64)
	blockOf := func(n *tree.Node) int64 {
		if b, ok := blocks[n.Meta.Dev]; ok {
			return b
		}
		dir := t.Path(n.ID)
		if !n.IsDir() {
			dir = filepath.Dir(dir)
		}
		b := sizer.BlockSize(dir, n.Meta.Dev)
		blocks[n.Meta.Dev] = b
		return b
	}

	t.PostOrder(func(n *tree.Node) {
		n.ApparentTotal, n.DiskTotal = 0, 0
		n.HardlinkDup = false

		switch n.Kind {
		case tree.ErrorMarker:
			sum.Errors++
			return
		case tree.Directory:
			sum.Dirs++
			for _, c := range n.Children {
				child := t.Node(c)
				n.ApparentTotal += child.ApparentTotal
				if !child.HardlinkDup {
					n.DiskTotal += child.DiskTotal
				}
			}
			if opts.SelfSizeCounted {
				n.ApparentTotal += n.Meta.Size
				n.DiskTotal += RoundUp(n.Meta.Size, blockOf(n))
			}
			return
		case tree.Symlink:
			sum.Symlinks++
		default:
			sum.Files++
		}

		n.ApparentTotal = n.Meta.Size
		n.DiskTotal = RoundUp(n.Meta.Size, blockOf(n))
		if links.duplicate(n) {
			n.HardlinkDup = true
			sum.HardlinksDeduped++
		}
	})

	root := t.Node(t.Root())
	sum.Apparent = root.ApparentTotal
	sum.Disk = root.DiskTotal
	return sum
}
