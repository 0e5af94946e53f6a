package tree

import (
	"fmt"
	"path"
)

// Entry is one accepted directory entry produced by a scanner worker.
type Entry struct {
	Name       string
	Kind       Kind
	Meta       Metadata
	LinkTarget string
	Err        error
	Tentative  bool
}

// Batch is the private subtree a worker built for one claimed directory.
// Dir is the directory's path relative to the root ("." for the root).
type Batch struct {
	Dir     string
	Entries []Entry
}

// Builder merges worker batches into a Tree. It is not safe for concurrent
// use: one coordinator owns it and merges batches sequentially.
type Builder struct {
	tree  *Tree
	index map[string]NodeID
}

// NewBuilder returns a Builder that inserts into t.
func NewBuilder(t *Tree) *Builder {
	return &Builder{
		tree:  t,
		index: map[string]NodeID{".": t.Root()},
	}
}

// Tree returns the tree being built.
func (b *Builder) Tree() *Tree {
	return b.tree
}

// Lookup resolves a directory's relative path to its node.
func (b *Builder) Lookup(rel string) (NodeID, bool) {
	id, ok := b.index[rel]
	return id, ok
}

// Merge inserts every entry of batch under the directory batch.Dir and returns
// the new identities in entry order. The parent must already be in the tree.
func (b *Builder) Merge(batch Batch) ([]NodeID, error) {
	parent, ok := b.index[batch.Dir]
	if !ok {
		return nil, fmt.Errorf("merge %q: parent directory not in tree", batch.Dir)
	}

	existing := make(map[string]struct{}, len(b.tree.Children(parent))+len(batch.Entries))
	for _, c := range b.tree.Children(parent) {
		existing[b.tree.Node(c).Name] = struct{}{}
	}

	ids := make([]NodeID, 0, len(batch.Entries))
	for _, e := range batch.Entries {
		if _, dup := existing[e.Name]; dup {
			return ids, fmt.Errorf("merge %q: duplicate entry %q", batch.Dir, e.Name)
		}
		existing[e.Name] = struct{}{}

		id, err := b.tree.add(parent, e.Name, e.Kind, e.Meta)
		if err != nil {
			return ids, fmt.Errorf("merge %q: %w", batch.Dir, err)
		}
		n := b.tree.Node(id)
		n.LinkTarget = e.LinkTarget
		n.Err = e.Err
		n.Tentative = e.Tentative

		if e.Kind == Directory {
			b.index[childPath(batch.Dir, e.Name)] = id
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// ChildPath joins a relative directory path and an entry name.
func ChildPath(dir, name string) string {
	return childPath(dir, name)
}

func childPath(dir, name string) string {
	if dir == "." || dir == "" {
		return name
	}
	return path.Join(dir, name)
}
