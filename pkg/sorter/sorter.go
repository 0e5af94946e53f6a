/*
Package sorter orders the children of every directory in a tree.

Exactly one key applies: name (compared with the locale's collation rules),
aggregated size, modification time, or file type followed by name. With
DirsFirst, directories are grouped ahead of everything else before the key
is applied within each group. Sorting is stable, so entries with equal keys
keep the order in which the scan discovered them.
*/
package sorter

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/sonemaro/arbor/pkg/diskusage"
	"github.com/sonemaro/arbor/pkg/tree"
)

// Key is the attribute children are compared on.
type Key string

const (
	ByName  Key = "name"
	BySize  Key = "size"
	ByMtime Key = "mtime"
	ByType  Key = "type"
)

// Direction of the comparison. The zero value picks the key's default.
type Direction string

const (
	Default    Direction = ""
	Ascending  Direction = "asc"
	Descending Direction = "desc"
)

// ParseKey validates a sort key.
func ParseKey(s string) (Key, error) {
	switch k := Key(strings.ToLower(strings.TrimSpace(s))); k {
	case ByName, BySize, ByMtime, ByType:
		return k, nil
	case "":
		return ByName, nil
	}
	return "", fmt.Errorf("unknown sort key %q", s)
}

// ParseDirection validates a sort direction.
func ParseDirection(s string) (Direction, error) {
	switch d := Direction(strings.ToLower(strings.TrimSpace(s))); d {
	case Default, Ascending, Descending:
		return d, nil
	}
	return "", fmt.Errorf("unknown sort direction %q", s)
}

// Options configures Sort.
type Options struct {
	Key       Key
	Direction Direction
	DirsFirst bool

	// Mode picks which aggregated total BySize compares.
	Mode diskusage.Mode

	// Locale drives name collation. language.Und compares raw bytes.
	Locale language.Tag
}

// descending reports the effective direction for the options.
func (o Options) descending() bool {
	switch o.Direction {
	case Ascending:
		return false
	case Descending:
		return true
	}
	return o.Key == BySize
}

// LocaleFromEnv resolves the collation locale the way the C library does:
// LC_ALL, then LC_COLLATE, then LANG. "C", "POSIX" and unset map to
// language.Und.
func LocaleFromEnv() language.Tag {
	for _, name := range []string{"LC_ALL", "LC_COLLATE", "LANG"} {
		if v := os.Getenv(name); v != "" {
			return parseLocale(v)
		}
	}
	return language.Und
}

func parseLocale(v string) language.Tag {
	if i := strings.IndexAny(v, ".@"); i >= 0 {
		v = v[:i]
	}
	if v == "" || v == "C" || v == "POSIX" {
		return language.Und
	}
	tag, err := language.Parse(strings.ReplaceAll(v, "_", "-"))
	if err != nil {
		return language.Und
	}
	return tag
}

// typeRank orders kinds for ByType.
func typeRank(k tree.Kind) int {
	switch k {
	case tree.Directory:
		return 0
	case tree.RegularFile:
		return 1
	case tree.Symlink:
		return 2
	case tree.Special:
		return 3
	default:
		return 4
	}
}

type sorter struct {
	t    *tree.Tree
	opts Options
	coll *collate.Collator
}

// Sort reorders the children list of every directory in t.
func Sort(t *tree.Tree, opts Options) {
	if opts.Key == "" {
		opts.Key = ByName
	}
	s := &sorter{t: t, opts: opts}
	if opts.Locale != language.Und {
		s.coll = collate.New(opts.Locale)
	}

	t.Walk(func(n *tree.Node) bool {
		if len(n.Children) > 1 {
			sort.SliceStable(n.Children, func(i, j int) bool {
				return s.less(t.Node(n.Children[i]), t.Node(n.Children[j]))
			})
		}
		return true
	})
}

func (s *sorter) less(a, b *tree.Node) bool {
	if s.opts.DirsFirst && a.IsDir() != b.IsDir() {
		return a.IsDir()
	}
	c := s.compare(a, b)
	if s.opts.descending() {
		c = -c
	}
	return c < 0
}

func (s *sorter) compare(a, b *tree.Node) int {
	switch s.opts.Key {
	case BySize:
		return cmp64(diskusage.Size(a, s.opts.Mode), diskusage.Size(b, s.opts.Mode))
	case ByMtime:
		return a.Meta.ModTime.Compare(b.Meta.ModTime)
	case ByType:
		if c := typeRank(a.Kind) - typeRank(b.Kind); c != 0 {
			return c
		}
		return s.compareNames(a.Name, b.Name)
	default:
		return s.compareNames(a.Name, b.Name)
	}
}

func (s *sorter) compareNames(a, b string) int {
	if s.coll != nil {
		if c := s.coll.CompareString(a, b); c != 0 {
			return c
		}
	}
	return strings.Compare(a, b)
}

func cmp64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
