package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sonemaro/arbor/internal/config"
	"github.com/sonemaro/arbor/pkg/filter"
	"github.com/sonemaro/arbor/pkg/output"
	"github.com/sonemaro/arbor/pkg/scanner"
)

func testConfig() config.Config {
	return config.Config{
		Workers:            2,
		MaxDepth:           config.UnlimitedDepth,
		RespectIgnoreFiles: true,
		SortKey:            "name",
		DiskUsageMode:      "apparent",
		Unit:               "bin",
		Scale:              config.AutoScale,
		MaxLines:           config.UnlimitedLines,
		Color:              "never",
		Format:             "tree",
		NoProgress:         true,
		LogFormat:          "console",
	}
}

func writeFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

func newTestApp(t *testing.T, cfg config.Config) (*App, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	var out, diag bytes.Buffer
	a, err := New(cfg, Streams{Out: &out, Err: &diag})
	require.NoError(t, err)
	return a, &out, &diag
}

func TestRunRendersTree(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"a/x.txt": "hello",
		"b.txt":   "abc",
	})

	a, out, _ := newTestApp(t, testConfig())
	require.NoError(t, a.Run(context.Background(), []string{root}))

	want := "8 " + root + "\n" +
		"5 ├── a\n" +
		"5 │   └── x.txt\n" +
		"3 └── b.txt\n"
	assert.True(t, strings.HasPrefix(out.String(), want), "got:\n%s", out.String())
	assert.Contains(t, out.String(), "2 directories, 2 files, 0 symlinks, 0 errors")
	assert.NotContains(t, out.String(), "scan interrupted")
}

func TestRunSortsBySizeWithDirsFirst(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"small.txt":       "1",
		"large.txt":       "1234567890",
		"subdir/tiny.txt": "12",
	})

	cfg := testConfig()
	cfg.SortKey = "size"
	cfg.DirsFirst = true
	cfg.SuppressSize = true
	a, out, _ := newTestApp(t, cfg)
	require.NoError(t, a.Run(context.Background(), []string{root}))

	want := root + "\n" +
		"├── subdir\n" +
		"│   └── tiny.txt\n" +
		"├── large.txt\n" +
		"└── small.txt\n"
	assert.True(t, strings.HasPrefix(out.String(), want), "got:\n%s", out.String())
}

func TestRunHonorsIgnoreFiles(t *testing.T) {
	tests := []struct {
		name     string
		respect  bool
		wantSeen bool
	}{
		{name: "respected", respect: true, wantSeen: false},
		{name: "disabled", respect: false, wantSeen: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			writeFiles(t, root, map[string]string{
				".gitignore":   "*.log\n",
				"debug.log":    "log",
				"main.go":      "package main",
				"keep/app.log": "log",
			})

			cfg := testConfig()
			cfg.RespectIgnoreFiles = tt.respect
			cfg.SuppressSize = true
			a, out, _ := newTestApp(t, cfg)
			require.NoError(t, a.Run(context.Background(), []string{root}))

			assert.Contains(t, out.String(), "main.go")
			assert.Equal(t, tt.wantSeen, strings.Contains(out.String(), "debug.log"))
			assert.Equal(t, tt.wantSeen, strings.Contains(out.String(), "app.log"))
		})
	}
}

func TestRunPrunesEmptyDirectories(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{"docs/readme.md": "# hi"})
	require.NoError(t, os.MkdirAll(filepath.Join(root, "empty", "nested"), 0o755))

	cfg := testConfig()
	cfg.Prune = true
	cfg.SuppressSize = true
	a, out, _ := newTestApp(t, cfg)
	require.NoError(t, a.Run(context.Background(), []string{root}))

	assert.Contains(t, out.String(), "readme.md")
	assert.NotContains(t, out.String(), "empty")
	assert.NotContains(t, out.String(), "nested")
}

func TestRunOutputWithinMaxLines(t *testing.T) {
	root := t.TempDir()
	files := make(map[string]string)
	for i := 0; i < 20; i++ {
		files[fmt.Sprintf("d/f%02d.txt", i)] = "x"
	}
	writeFiles(t, root, files)

	for _, limit := range []int{1, 3, 4, 5, 8} {
		t.Run(fmt.Sprintf("limit %d", limit), func(t *testing.T) {
			cfg := testConfig()
			cfg.MaxLines = limit
			a, out, _ := newTestApp(t, cfg)
			require.NoError(t, a.Run(context.Background(), []string{root}))

			lines := strings.Split(strings.TrimSuffix(out.String(), "\n"), "\n")
			assert.LessOrEqual(t, len(lines), limit, "got:\n%s", out.String())
			assert.Contains(t, out.String(), "omitted")
			if limit > 3 {
				assert.Contains(t, out.String(), "2 directories, 20 files")
			}
		})
	}

	cfg := testConfig()
	cfg.MaxLines = 5
	a, out, _ := newTestApp(t, cfg)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	doc, err := a.scanRoot(ctx, root)
	require.NoError(t, err)
	require.NoError(t, a.writeOutput([]*output.Document{doc}))
	lines := strings.Split(strings.TrimSuffix(out.String(), "\n"), "\n")
	assert.LessOrEqual(t, len(lines), 5, "got:\n%s", out.String())
	assert.Contains(t, out.String(), "scan interrupted, listing is partial")
}

func TestRunGlobInclude(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		iglob   bool
		want    []string
		notWant []string
	}{
		{
			name:    "glob keeps matching files and their directories",
			pattern: "*.rs",
			want:    []string{"src", "main.rs"},
			notWant: []string{"README.md", "docs", "LIB.RS"},
		},
		{
			name:    "iglob ignores case",
			pattern: "*.rs",
			iglob:   true,
			want:    []string{"main.rs", "LIB.RS"},
			notWant: []string{"README.md", "docs"},
		},
		{
			name:    "negated glob hides matches",
			pattern: "!*.md",
			want:    []string{"main.rs", "LIB.RS"},
			notWant: []string{"README.md", "guide.md"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			writeFiles(t, root, map[string]string{
				"src/main.rs":   "fn main() {}",
				"src/LIB.RS":    "",
				"README.md":     "# readme",
				"docs/guide.md": "# guide",
			})

			cfg := testConfig()
			cfg.IncludePattern = tt.pattern
			cfg.Glob = !tt.iglob
			cfg.IGlob = tt.iglob
			cfg.SuppressSize = true
			a, out, _ := newTestApp(t, cfg)
			require.NoError(t, a.Run(context.Background(), []string{root}))

			for _, w := range tt.want {
				assert.Contains(t, out.String(), w)
			}
			for _, w := range tt.notWant {
				assert.NotContains(t, out.String(), w)
			}
		})
	}
}

func TestRunMultipleRootsInOrder(t *testing.T) {
	first, second := t.TempDir(), t.TempDir()
	writeFiles(t, first, map[string]string{"one.txt": "1"})
	writeFiles(t, second, map[string]string{"two.txt": "22"})

	cfg := testConfig()
	cfg.SuppressSize = true
	a, out, _ := newTestApp(t, cfg)
	require.NoError(t, a.Run(context.Background(), []string{second, first}))

	s := out.String()
	require.Contains(t, s, second+"\n└── two.txt\n")
	require.Contains(t, s, first+"\n└── one.txt\n")
	assert.Less(t, strings.Index(s, second+"\n"), strings.Index(s, first+"\n"))
}

func TestRunMissingRootFailsBeforeOutput(t *testing.T) {
	good := t.TempDir()
	writeFiles(t, good, map[string]string{"a.txt": "a"})
	missing := filepath.Join(t.TempDir(), "does-not-exist")

	a, out, _ := newTestApp(t, testConfig())
	err := a.Run(context.Background(), []string{good, missing})
	require.Error(t, err)

	var rootErr *scanner.RootError
	require.True(t, errors.As(err, &rootErr))
	assert.Equal(t, missing, rootErr.Path)
	assert.True(t, errors.Is(err, os.ErrNotExist))
	assert.Empty(t, out.String())
}

func TestRunMalformedIgnoreFileIsFatal(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, ".gitignore"), []byte{'x', 0, 'y'}, 0o644))
	writeFiles(t, root, map[string]string{"a.txt": "a"})

	a, out, _ := newTestApp(t, testConfig())
	err := a.Run(context.Background(), []string{root})
	require.Error(t, err)

	var ife *filter.IgnoreFileError
	assert.True(t, errors.As(err, &ife))
	assert.Empty(t, out.String())
}

func TestNewRejectsBadPattern(t *testing.T) {
	cfg := testConfig()
	cfg.ExcludePattern = "("

	_, err := New(cfg, Streams{Out: &bytes.Buffer{}, Err: &bytes.Buffer{}})
	require.Error(t, err)

	var pe *filter.PatternError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "exclude", pe.Kind)
}

func TestScanRootCancelledIsPartial(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{"a/b/c.txt": "abc"})

	a, out, _ := newTestApp(t, testConfig())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	doc, err := a.scanRoot(ctx, root)
	require.NoError(t, err)
	assert.True(t, doc.Partial)
	assert.Equal(t, 1, doc.Tree.Len())

	require.NoError(t, a.writeOutput(nil))
	assert.Empty(t, out.String())

	require.NoError(t, a.Run(ctx, []string{root}))
	assert.Empty(t, out.String(), "no root is started once interrupted")
}

func TestWriteOutputMarksPartialTree(t *testing.T) {
	root := t.TempDir()
	a, out, _ := newTestApp(t, testConfig())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	doc, err := a.scanRoot(ctx, root)
	require.NoError(t, err)

	require.NoError(t, a.writeOutput([]*output.Document{doc}))
	assert.Contains(t, out.String(), "scan interrupted, listing is partial")
}

func TestRunWritesOutputFile(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"a.txt":     "aaaa",
		"sub/b.txt": "bb",
	})
	target := filepath.Join(t.TempDir(), "reports", "usage.json")

	cfg := testConfig()
	cfg.Format = "json"
	cfg.OutputFile = target
	a, out, _ := newTestApp(t, cfg)
	require.NoError(t, a.Run(context.Background(), []string{root}))
	assert.Empty(t, out.String())

	data, err := os.ReadFile(target)
	require.NoError(t, err)

	var doc struct {
		Root struct {
			Size     int64 `json:"size"`
			Children []struct {
				Name string `json:"name"`
			} `json:"children"`
		} `json:"root"`
		Mode    string `json:"mode"`
		Partial bool   `json:"partial"`
	}
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, "apparent", doc.Mode)
	assert.False(t, doc.Partial)
	assert.Equal(t, int64(6), doc.Root.Size)
	require.Len(t, doc.Root.Children, 2)
	assert.Equal(t, "a.txt", doc.Root.Children[0].Name)
	assert.Equal(t, "sub", doc.Root.Children[1].Name)
}

func TestSeparator(t *testing.T) {
	assert.Equal(t, "---\n", separator("yaml"))
	assert.Equal(t, "\n", separator("tree"))
	assert.Equal(t, "\n", separator("json"))
}

func TestPaletteFromLSColors(t *testing.T) {
	t.Setenv("LS_COLORS", "di=01;34:*.go=32")
	assert.NotNil(t, palette())

	t.Setenv("LS_COLORS", "")
	assert.NotNil(t, palette())
}
