package sorter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/sonemaro/arbor/pkg/diskusage"
	"github.com/sonemaro/arbor/pkg/tree"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func entry(name string, kind tree.Kind, size int64, age int) tree.Entry {
	return tree.Entry{
		Name: name,
		Kind: kind,
		Meta: tree.Metadata{Size: size, ModTime: epoch.Add(time.Duration(age) * time.Hour)},
	}
}

// sample is discovered in the order b.txt, sub/, a.txt, link, Z.txt.
func sample(t *testing.T) *tree.Tree {
	t.Helper()
	tr := tree.New("/root", tree.Directory, tree.Metadata{})
	b := tree.NewBuilder(tr)
	_, err := b.Merge(tree.Batch{Dir: ".", Entries: []tree.Entry{
		entry("b.txt", tree.RegularFile, 10, 3),
		entry("sub", tree.Directory, 0, 1),
		entry("a.txt", tree.RegularFile, 20, 2),
		entry("link", tree.Symlink, 4, 5),
		entry("Z.txt", tree.RegularFile, 10, 4),
	}})
	require.NoError(t, err)
	_, err = b.Merge(tree.Batch{Dir: "sub", Entries: []tree.Entry{entry("inner", tree.RegularFile, 5, 0)}})
	require.NoError(t, err)
	diskusage.Aggregate(tr, diskusage.Options{BlockSizer: diskusage.FixedBlockSize(512)})
	return tr
}

func names(tr *tree.Tree, id tree.NodeID) []string {
	var out []string
	for _, c := range tr.Children(id) {
		out = append(out, tr.Node(c).Name)
	}
	return out
}

func TestSort(t *testing.T) {
	tests := []struct {
		name string
		opts Options
		want []string
	}{
		{
			name: "name bytewise",
			opts: Options{Key: ByName},
			want: []string{"Z.txt", "a.txt", "b.txt", "link", "sub"},
		},
		{
			name: "name collated",
			opts: Options{Key: ByName, Locale: language.English},
			want: []string{"a.txt", "b.txt", "link", "sub", "Z.txt"},
		},
		{
			name: "name descending",
			opts: Options{Key: ByName, Direction: Descending},
			want: []string{"sub", "link", "b.txt", "a.txt", "Z.txt"},
		},
		{
			name: "size defaults to descending and is stable",
			opts: Options{Key: BySize},
			want: []string{"a.txt", "b.txt", "Z.txt", "sub", "link"},
		},
		{
			name: "size ascending",
			opts: Options{Key: BySize, Direction: Ascending},
			want: []string{"link", "sub", "b.txt", "Z.txt", "a.txt"},
		},
		{
			name: "mtime",
			opts: Options{Key: ByMtime},
			want: []string{"sub", "a.txt", "b.txt", "Z.txt", "link"},
		},
		{
			name: "type then name",
			opts: Options{Key: ByType},
			want: []string{"sub", "Z.txt", "a.txt", "b.txt", "link"},
		},
		{
			name: "directories first",
			opts: Options{Key: ByName, DirsFirst: true},
			want: []string{"sub", "Z.txt", "a.txt", "b.txt", "link"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := sample(t)
			Sort(tr, tt.opts)
			assert.Equal(t, tt.want, names(tr, tr.Root()))
		})
	}
}

func TestSortSizeDirectoriesFirst(t *testing.T) {
	tr := tree.New("/root", tree.Directory, tree.Metadata{})
	b := tree.NewBuilder(tr)
	_, err := b.Merge(tree.Batch{Dir: ".", Entries: []tree.Entry{
		entry("ten", tree.RegularFile, 10, 0),
		entry("twenty", tree.RegularFile, 20, 0),
		entry("subdir", tree.Directory, 0, 0),
	}})
	require.NoError(t, err)
	_, err = b.Merge(tree.Batch{Dir: "subdir", Entries: []tree.Entry{entry("five", tree.RegularFile, 5, 0)}})
	require.NoError(t, err)
	diskusage.Aggregate(tr, diskusage.Options{BlockSizer: diskusage.FixedBlockSize(512)})

	Sort(tr, Options{Key: BySize, DirsFirst: true})
	assert.Equal(t, []string{"subdir", "twenty", "ten"}, names(tr, tr.Root()))
}

func TestSortIsIdempotent(t *testing.T) {
	for _, key := range []Key{ByName, BySize, ByMtime, ByType} {
		t.Run(string(key), func(t *testing.T) {
			tr := sample(t)
			opts := Options{Key: key, DirsFirst: true}
			Sort(tr, opts)
			once := names(tr, tr.Root())
			Sort(tr, opts)
			assert.Equal(t, once, names(tr, tr.Root()))
			require.NoError(t, tr.Validate())
		})
	}
}

func TestParseKeyAndDirection(t *testing.T) {
	k, err := ParseKey("SIZE")
	require.NoError(t, err)
	assert.Equal(t, BySize, k)

	k, err = ParseKey("")
	require.NoError(t, err)
	assert.Equal(t, ByName, k)

	_, err = ParseKey("color")
	assert.Error(t, err)

	d, err := ParseDirection("desc")
	require.NoError(t, err)
	assert.Equal(t, Descending, d)

	_, err = ParseDirection("sideways")
	assert.Error(t, err)
}

func TestLocaleFromEnv(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want language.Tag
	}{
		{name: "unset", want: language.Und},
		{name: "posix", env: map[string]string{"LANG": "C.UTF-8"}, want: language.Und},
		{name: "lang", env: map[string]string{"LANG": "de_DE.UTF-8"}, want: language.MustParse("de-DE")},
		{name: "lc_all wins", env: map[string]string{"LANG": "de_DE.UTF-8", "LC_ALL": "sv_SE"}, want: language.MustParse("sv-SE")},
		{name: "garbage", env: map[string]string{"LANG": "not a locale!"}, want: language.Und},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, name := range []string{"LC_ALL", "LC_COLLATE", "LANG"} {
				t.Setenv(name, tt.env[name])
			}
			assert.Equal(t, tt.want, LocaleFromEnv())
		})
	}
}
