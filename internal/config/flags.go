package config

import (
	"strings"

	"github.com/spf13/pflag"
)

// NoIgnoreFlag turns respect_ignore_files off from the command line.
const NoIgnoreFlag = "no-ignore"

// ConfigFlag names the config file.
const ConfigFlag = "config"

type option struct {
	key   string
	flag  string
	short string
	usage string
	def   interface{}
}

// options is the single table behind defaults, flags and env bindings.
var options = []option{
	{KeyWorkers, "workers", "T", "number of concurrent directory readers (0 for one per CPU)", 0},
	{KeyRateLimit, "rate-limit", "", "maximum directory reads per second (0 for unlimited)", 0},
	{KeyMaxDepth, "max-depth", "", "maximum traversal depth (-1 for unlimited)", UnlimitedDepth},
	{KeyLevel, "level", "L", "maximum display depth; sizes still include deeper entries (0 for unlimited)", 0},
	{KeyFollowSymlinks, "follow", "f", "follow symlinks and report their targets", false},
	{KeyShowHidden, "hidden", "a", "show dot files and directories", false},
	{KeyIncludeGitDir, "include-git-dir", "", "show .git directories", false},
	{KeyRespectIgnore, "", "", "honor .gitignore and .ignore files", true},
	{KeyInclude, "include", "I", "only show entries whose name or path matches this regex", ""},
	{KeyExclude, "exclude", "E", "hide entries whose name or path matches this regex", ""},
	{KeyGlob, "glob", "", "read --include as a gitignore-style glob; a leading '!' hides matches", false},
	{KeyIGlob, "iglob", "", "like --glob, ignoring case", false},
	{KeySortKey, "sort", "s", "sort key: name, size, mtime or type", "name"},
	{KeySortDirection, "direction", "", "sort direction: asc or desc (default depends on key)", ""},
	{KeyDirsFirst, "dirs-first", "", "list directories before other entries", false},
	{KeyDiskUsage, "disk-usage", "d", "size to report: apparent or disk", "disk"},
	{KeySelfSize, "self-size", "", "count each directory's own blocks in its total", false},
	{KeyHumanReadable, "human", "H", "print sizes with unit prefixes", true},
	{KeyUnit, "unit", "u", "unit prefixes for human sizes: bin or si", "bin"},
	{KeyScale, "scale", "n", "digits after the decimal point of human sizes (-1 for automatic)", AutoScale},
	{KeyMaxLines, "max-lines", "", "truncate the tree to this many lines (0 for terminal height, -1 for unlimited)", UnlimitedLines},
	{KeyColor, "color", "C", "colorize output: auto, always or never", "auto"},
	{KeyPrune, "prune", "P", "remove directories that contain no files", false},
	{KeyDirsOnly, "dirs-only", "D", "only show directories", false},
	{KeyLong, "long", "l", "show permissions, link count, inode and modification time", false},
	{KeySuppressSize, "suppress-size", "", "do not show sizes", false},
	{KeyIcons, "icons", "", "show file-type icons (needs a Nerd Font)", false},
	{KeyFileName, "file-name", "", "print file names instead of paths in the report format", false},
	{KeyFormat, "format", "F", "output format: tree, json, yaml or report", "tree"},
	{KeyOutputFile, "output-file", "o", "write output to a file instead of stdout", ""},
	{KeyNoProgress, "no-progress", "", "disable the progress indicator", false},
	{KeyVerbose, "verbose", "v", "increase log verbosity (-v, -vv, -vvv)", 0},
	{KeyLogFormat, "log-format", "", "diagnostics format: console or json", "console"},
}

// RegisterFlags defines every configuration flag on flags.
func RegisterFlags(flags *pflag.FlagSet) {
	for _, o := range options {
		if o.flag == "" {
			continue
		}
		if o.key == KeyVerbose {
			flags.CountP(o.flag, o.short, o.usage)
			continue
		}
		switch def := o.def.(type) {
		case bool:
			flags.BoolP(o.flag, o.short, def, o.usage)
		case int:
			flags.IntP(o.flag, o.short, def, o.usage)
		case string:
			flags.StringP(o.flag, o.short, def, o.usage)
		}
	}
	flags.Bool(NoIgnoreFlag, false, "do not honor .gitignore and .ignore files")
	flags.StringP(ConfigFlag, "c", "", "config file (default $XDG_CONFIG_HOME/arbor/config.yaml)")
}

func envName(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(key)
}
