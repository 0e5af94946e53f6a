package config

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sonemaro/arbor/internal/termcap"
	"github.com/sonemaro/arbor/pkg/diskusage"
	"github.com/sonemaro/arbor/pkg/filter"
	"github.com/sonemaro/arbor/pkg/output"
	"github.com/sonemaro/arbor/pkg/sorter"
)

// isolate clears every ARBOR_ variable and points the config search at an
// empty directory.
func isolate(t *testing.T) string {
	t.Helper()
	for _, o := range options {
		t.Setenv(envName(o.key), "")
		os.Unsetenv(envName(o.key))
	}
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("HOME", dir)
	return dir
}

func defaults() Config {
	return Config{
		Workers:            runtime.NumCPU(),
		MaxDepth:           -1,
		RespectIgnoreFiles: true,
		SortKey:            "name",
		DiskUsageMode:      "disk",
		HumanReadable:      true,
		Unit:               "bin",
		Scale:              AutoScale,
		MaxLines:           -1,
		Color:              "auto",
		Format:             "tree",
		LogFormat:          "console",
	}
}

func newFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	flags := pflag.NewFlagSet("arbor", pflag.ContinueOnError)
	RegisterFlags(flags)
	require.NoError(t, flags.Parse(args))
	return flags
}

func TestConfig(t *testing.T) {
	tests := []struct {
		name     string
		envVars  map[string]string
		expected func(c *Config)
		errMsg   string
	}{
		{
			name:     "default configuration",
			expected: func(c *Config) {},
		},
		{
			name: "configuration from environment variables",
			envVars: map[string]string{
				"ARBOR_WORKERS":              "1",
				"ARBOR_MAX_DEPTH":            "10",
				"ARBOR_SHOW_HIDDEN":          "true",
				"ARBOR_RESPECT_IGNORE_FILES": "false",
				"ARBOR_INCLUDE_PATTERN":      `\.go$`,
				"ARBOR_SORT_KEY":             "size",
				"ARBOR_SORT_DIRECTION":       "asc",
				"ARBOR_DISK_USAGE_MODE":      "apparent",
				"ARBOR_FORMAT":               "json",
				"ARBOR_OUTPUT_FILE":          "out.json",
				"ARBOR_RATE_LIMIT":           "100",
				"ARBOR_NO_PROGRESS":          "1",
				"ARBOR_MAX_RENDER_LINES":     "0",
				"ARBOR_VERBOSE":              "vv",
			},
			expected: func(c *Config) {
				c.Workers = 1
				c.MaxDepth = 10
				c.ShowHidden = true
				c.RespectIgnoreFiles = false
				c.IncludePattern = `\.go$`
				c.SortKey = "size"
				c.SortDirection = "asc"
				c.DiskUsageMode = "apparent"
				c.Format = "json"
				c.OutputFile = "out.json"
				c.RateLimit = 100
				c.NoProgress = true
				c.MaxLines = 0
				c.Verbose = 2
			},
		},
		{
			name:     "zero workers means one per CPU",
			envVars:  map[string]string{"ARBOR_WORKERS": "0"},
			expected: func(c *Config) {},
		},
		{
			name:     "numeric verbosity",
			envVars:  map[string]string{"ARBOR_VERBOSE": "3"},
			expected: func(c *Config) { c.Verbose = 3 },
		},
		{name: "negative workers", envVars: map[string]string{"ARBOR_WORKERS": "-1"}, errMsg: "workers count must be positive"},
		{name: "invalid output format", envVars: map[string]string{"ARBOR_FORMAT": "xml"}, errMsg: "invalid output format: must be one of [tree json yaml report]"},
		{name: "invalid max depth", envVars: map[string]string{"ARBOR_MAX_DEPTH": "-2"}, errMsg: "max depth must be -1 (unlimited) or non-negative"},
		{name: "invalid rate limit", envVars: map[string]string{"ARBOR_RATE_LIMIT": "-1"}, errMsg: "rate limit must be non-negative"},
		{name: "invalid level", envVars: map[string]string{"ARBOR_LEVEL": "-3"}, errMsg: "level must be non-negative"},
		{name: "invalid sort key", envVars: map[string]string{"ARBOR_SORT_KEY": "color"}, errMsg: `unknown sort key "color"`},
		{name: "invalid color", envVars: map[string]string{"ARBOR_COLOR": "rainbow"}, errMsg: `unknown color mode "rainbow"`},
		{name: "invalid disk usage", envVars: map[string]string{"ARBOR_DISK_USAGE_MODE": "blocks"}, errMsg: `unknown disk usage mode "blocks"`},
		{name: "invalid log format", envVars: map[string]string{"ARBOR_LOG_FORMAT": "xml"}, errMsg: `invalid log format "xml"`},
		{name: "invalid verbosity", envVars: map[string]string{"ARBOR_VERBOSE": "loud"}, errMsg: `invalid verbosity "loud"`},
		{name: "scale too large", envVars: map[string]string{"ARBOR_SCALE": "12"}, errMsg: "scale must be -1 (automatic) or between 0 and 9"},
		{name: "glob without pattern", envVars: map[string]string{"ARBOR_IGLOB": "true"}, errMsg: "glob matching requires an include pattern"},
		{
			name: "glob and display options",
			envVars: map[string]string{
				"ARBOR_INCLUDE_PATTERN":  "*.rs",
				"ARBOR_IGLOB":            "true",
				"ARBOR_SCALE":            "2",
				"ARBOR_ICONS":            "true",
				"ARBOR_REPORT_FILE_NAME": "true",
			},
			expected: func(c *Config) {
				c.IncludePattern = "*.rs"
				c.IGlob = true
				c.Scale = 2
				c.Icons = true
				c.FileName = true
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			cfg, err := Load(nil, "")
			if tt.errMsg != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
				return
			}
			require.NoError(t, err)

			want := defaults()
			tt.expected(&want)
			assert.Equal(t, want, cfg)
		})
	}
}

func TestPrecedence(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "arbor"), 0o755))
	file := filepath.Join(dir, "arbor", "config.yaml")
	require.NoError(t, os.WriteFile(file, []byte("sort_key: type\ncolor: never\nlevel: 2\n"), 0o644))

	cfg, err := Load(newFlags(t), "")
	require.NoError(t, err)
	assert.Equal(t, "type", cfg.SortKey, "file beats default")
	assert.Equal(t, "never", cfg.Color)
	assert.Equal(t, 2, cfg.Level)
	assert.Equal(t, file, cfg.ConfigFile)

	t.Setenv("ARBOR_SORT_KEY", "mtime")
	cfg, err = Load(newFlags(t), "")
	require.NoError(t, err)
	assert.Equal(t, "mtime", cfg.SortKey, "env beats file")

	cfg, err = Load(newFlags(t, "--sort=size", "-L", "5", "-vv"), "")
	require.NoError(t, err)
	assert.Equal(t, "size", cfg.SortKey, "flag beats env")
	assert.Equal(t, 5, cfg.Level)
	assert.Equal(t, 2, cfg.Verbose)
	assert.Equal(t, "never", cfg.Color, "unset flags do not mask the file")
}

func TestNoIgnoreFlag(t *testing.T) {
	isolate(t)

	cfg, err := Load(newFlags(t), "")
	require.NoError(t, err)
	assert.True(t, cfg.RespectIgnoreFiles)

	cfg, err = Load(newFlags(t, "--no-ignore"), "")
	require.NoError(t, err)
	assert.False(t, cfg.RespectIgnoreFiles)
}

func TestExplicitConfigFile(t *testing.T) {
	dir := isolate(t)

	_, err := Load(nil, filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading config file")

	file := filepath.Join(dir, "custom.toml")
	require.NoError(t, os.WriteFile(file, []byte("format = \"report\"\nlong = true\n"), 0o644))
	cfg, err := Load(nil, file)
	require.NoError(t, err)
	assert.Equal(t, "report", cfg.Format)
	assert.True(t, cfg.Long)
}

func TestCompile(t *testing.T) {
	cfg := defaults()
	cfg.IncludePattern = `\.go$`
	cfg.SortKey = "size"
	cfg.DiskUsageMode = "apparent"
	cfg.Unit = "si"
	cfg.Level = 3
	cfg.Color = "never"
	cfg.Prune = true
	cfg.FollowSymlinks = true

	opts, err := cfg.Compile()
	require.NoError(t, err)

	assert.True(t, opts.Filter.Include.MatchString("main.go"))
	assert.Nil(t, opts.Filter.Exclude)
	assert.Equal(t, filter.Options{
		MaxDepth:           -1,
		RespectIgnoreFiles: true,
		Include:            opts.Filter.Include,
	}, opts.Filter)
	assert.True(t, opts.Scanner.FollowSymlinks)
	assert.Equal(t, runtime.NumCPU(), opts.Scanner.Workers)
	assert.Equal(t, sorter.BySize, opts.Sort.Key)
	assert.Equal(t, diskusage.Apparent, opts.Sort.Mode)
	assert.Equal(t, diskusage.Apparent, opts.Output.Mode)
	assert.Equal(t, output.UnitSI, opts.Output.Unit)
	assert.Equal(t, output.FormatTree, opts.Output.Format)
	assert.Equal(t, 3, opts.Output.Level)
	assert.Equal(t, termcap.ColorNever, opts.Color)
	assert.Equal(t, -1, opts.MaxLines)
	assert.True(t, opts.Prune)
}

func TestCompileRejectsBadPattern(t *testing.T) {
	cfg := defaults()
	cfg.ExcludePattern = "("

	_, err := cfg.Compile()
	require.Error(t, err)
	var pe *filter.PatternError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "exclude", pe.Kind)
}

func TestCompileGlob(t *testing.T) {
	tests := []struct {
		name      string
		glob      bool
		iglob     bool
		wantMatch []string
		wantMiss  []string
	}{
		{name: "case sensitive", glob: true, wantMatch: []string{"src/main.rs"}, wantMiss: []string{"src/MAIN.RS"}},
		{name: "case insensitive", iglob: true, wantMatch: []string{"src/main.rs", "src/MAIN.RS"}},
		{name: "both flags fold case", glob: true, iglob: true, wantMatch: []string{"LIB.RS"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaults()
			cfg.IncludePattern = "*.rs"
			cfg.Glob = tt.glob
			cfg.IGlob = tt.iglob

			opts, err := cfg.Compile()
			require.NoError(t, err)
			assert.Nil(t, opts.Filter.Include)
			require.NotNil(t, opts.Filter.Glob)
			for _, p := range tt.wantMatch {
				assert.True(t, opts.Filter.Glob.Match(p, false), p)
			}
			for _, p := range tt.wantMiss {
				assert.False(t, opts.Filter.Glob.Match(p, false), p)
			}
		})
	}

	cfg := defaults()
	cfg.IncludePattern = "src/[a-"
	cfg.Glob = true
	_, err := cfg.Compile()
	var pe *filter.PatternError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "glob", pe.Kind)
}

func TestCompileDisplayOptions(t *testing.T) {
	cfg := defaults()
	cfg.Scale = 3
	cfg.Icons = true
	cfg.FileName = true

	opts, err := cfg.Compile()
	require.NoError(t, err)
	assert.Equal(t, 3, opts.Output.Scale)
	assert.True(t, opts.Output.Icons)
	assert.True(t, opts.Output.FileName)

	opts, err = defaults().Compile()
	require.NoError(t, err)
	assert.Equal(t, output.AutoScale, opts.Output.Scale)
}

func TestString(t *testing.T) {
	s := defaults().String()
	assert.True(t, strings.HasPrefix(s, "Config{"))
	assert.Contains(t, s, "Sort: name/")
	assert.Contains(t, s, "Format: tree")
}

func TestRegisterFlags(t *testing.T) {
	flags := newFlags(t)
	for _, name := range []string{"max-depth", "follow", "hidden", "include", "exclude", "sort", "dirs-first",
		"disk-usage", "human", "max-lines", "color", "self-size", "no-ignore", "config", "verbose",
		"glob", "iglob", "scale", "icons", "file-name"} {
		assert.NotNil(t, flags.Lookup(name), name)
	}
	assert.Equal(t, "L", flags.Lookup("level").Shorthand)
	assert.Equal(t, "n", flags.Lookup("scale").Shorthand)
}
