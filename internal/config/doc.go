// Package config resolves arbor's options from flags, environment variables,
// an optional config file and built-in defaults, in that order of
// precedence.
//
// # Configuration Loading
//
//	flags := pflag.NewFlagSet("arbor", pflag.ContinueOnError)
//	config.RegisterFlags(flags)
//	flags.Parse(os.Args[1:])
//
//	cfg, err := config.Load(flags, "")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	opts, err := cfg.Compile()
//
// # Environment Variables
//
// Every option can be set through an ARBOR_ variable named after its key:
//
//	ARBOR_WORKERS                       Number of concurrent directory readers
//	ARBOR_RATE_LIMIT                    Directory reads per second (0 for unlimited)
//	ARBOR_MAX_DEPTH                     Traversal depth (-1 for unlimited)
//	ARBOR_LEVEL                         Display depth (0 for unlimited)
//	ARBOR_FOLLOW_SYMLINKS               Resolve and descend symlinks
//	ARBOR_SHOW_HIDDEN                   Show dot entries
//	ARBOR_INCLUDE_GIT_DIR               Show .git directories
//	ARBOR_RESPECT_IGNORE_FILES          Honor .gitignore and .ignore files
//	ARBOR_INCLUDE_PATTERN               Keep only entries matching this regex
//	ARBOR_EXCLUDE_PATTERN               Drop entries matching this regex
//	ARBOR_SORT_KEY                      name|size|mtime|type
//	ARBOR_SORT_DIRECTION                asc|desc (empty for the key's default)
//	ARBOR_DIRECTORIES_FIRST             Group directories before files
//	ARBOR_DISK_USAGE_MODE               apparent|disk
//	ARBOR_DIRECTORY_SELF_SIZE_COUNTED   Add each directory's own blocks
//	ARBOR_HUMAN_READABLE_SIZES          Print sizes with unit prefixes
//	ARBOR_UNIT                          bin|si
//	ARBOR_MAX_RENDER_LINES              Line limit (0 for terminal height, -1 for unlimited)
//	ARBOR_COLOR                         auto|always|never
//	ARBOR_FORMAT                        tree|json|yaml|report
//	ARBOR_VERBOSE                       Verbosity level (a number or a string of 'v's)
//
// # Config File
//
// Without --config, $XDG_CONFIG_HOME/arbor/config.yaml and
// ~/.config/arbor/config.yaml are tried. Keys are the same snake_case names:
//
//	sort_key: size
//	human_readable_sizes: true
//	color: never
//
// # Configuration Validation
//
// Validate reports the first invalid value with a plain message such as
// "max depth must be -1 (unlimited) or non-negative". Regular expressions are
// only compiled by Compile, which returns a *filter.PatternError on failure.
package config
