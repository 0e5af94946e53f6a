package config

// Configuration keys. Environment variables are the upper-cased key with the
// ARBOR_ prefix; flags use the same words joined by dashes unless noted.
const (
	KeyWorkers        = "workers"
	KeyRateLimit      = "rate_limit"
	KeyMaxDepth       = "max_depth"
	KeyLevel          = "level"
	KeyFollowSymlinks = "follow_symlinks"
	KeyShowHidden     = "show_hidden"
	KeyIncludeGitDir  = "include_git_dir"
	KeyRespectIgnore  = "respect_ignore_files"
	KeyInclude        = "include_pattern"
	KeyExclude        = "exclude_pattern"
	KeyGlob           = "glob"
	KeyIGlob          = "iglob"
	KeySortKey        = "sort_key"
	KeySortDirection  = "sort_direction"
	KeyDirsFirst      = "directories_first"
	KeyDiskUsage      = "disk_usage_mode"
	KeySelfSize       = "directory_self_size_counted"
	KeyHumanReadable  = "human_readable_sizes"
	KeyUnit           = "unit"
	KeyScale          = "scale"
	KeyMaxLines       = "max_render_lines"
	KeyColor          = "color"
	KeyPrune          = "prune"
	KeyDirsOnly       = "dirs_only"
	KeyLong           = "long"
	KeySuppressSize   = "suppress_size"
	KeyIcons          = "icons"
	KeyFileName       = "report_file_name"
	KeyFormat         = "format"
	KeyOutputFile     = "output_file"
	KeyNoProgress     = "no_progress"
	KeyVerbose        = "verbose"
	KeyLogFormat      = "log_format"
)

// Constants for configuration limits and defaults
const (
	// MaxWorkerMultiplier is the maximum multiple of CPU cores for worker count
	MaxWorkerMultiplier = 4

	// UnlimitedDepth represents unlimited directory depth
	UnlimitedDepth = -1

	// UnlimitedLines disables truncation; 0 means the terminal height
	UnlimitedLines = -1

	// AutoScale keeps the automatic precision of human sizes
	AutoScale = -1

	// EnvPrefix prefixes every environment variable
	EnvPrefix = "ARBOR"
)
