package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strconv"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/sonemaro/arbor/internal/termcap"
	"github.com/sonemaro/arbor/pkg/diskusage"
	"github.com/sonemaro/arbor/pkg/filter"
	"github.com/sonemaro/arbor/pkg/logger"
	"github.com/sonemaro/arbor/pkg/output"
	"github.com/sonemaro/arbor/pkg/scanner"
	"github.com/sonemaro/arbor/pkg/sorter"
)

// Config holds all configuration parameters for the application
type Config struct {
	// Workers is the number of concurrent directory readers
	Workers int

	// RateLimit is the maximum number of directory reads per second (0 for unlimited)
	RateLimit int

	// MaxDepth is the maximum traversal depth (-1 for unlimited)
	MaxDepth int

	// Level is the maximum display depth (0 for unlimited)
	Level int

	FollowSymlinks     bool
	ShowHidden         bool
	IncludeGitDir      bool
	RespectIgnoreFiles bool

	IncludePattern string
	ExcludePattern string

	// Glob and IGlob read IncludePattern as a glob, IGlob ignoring case
	Glob  bool
	IGlob bool

	SortKey       string
	SortDirection string
	DirsFirst     bool

	DiskUsageMode   string
	SelfSizeCounted bool
	HumanReadable   bool
	Unit            string

	// Scale is the number of digits after the decimal point of human sizes (-1 for automatic)
	Scale int

	// MaxLines limits the tree (0 for terminal height, -1 for unlimited)
	MaxLines int
	Color    string

	Prune        bool
	DirsOnly     bool
	Long         bool
	SuppressSize bool
	Icons        bool

	// FileName prints bare names in the report format
	FileName bool

	// Format specifies the output format (tree, json, yaml or report)
	Format string

	// OutputFile is the path to write the output (empty for stdout)
	OutputFile string

	// NoProgress disables progress reporting
	NoProgress bool

	// Verbose sets the verbosity level
	Verbose   int
	LogFormat string

	// ConfigFile is the config file that was read, if any
	ConfigFile string
}

// Load resolves the configuration. flags may be nil; configFile overrides
// the config file search when set.
func Load(flags *pflag.FlagSet, configFile string) (Config, error) {
	v := viper.New()

	// Set default values
	for _, o := range options {
		v.SetDefault(o.key, o.def)
	}

	// Configure environment variables
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	for _, o := range options {
		if err := v.BindEnv(o.key, envName(o.key)); err != nil {
			return Config{}, fmt.Errorf("binding %s: %w", envName(o.key), err)
		}
	}

	used, err := readConfigFile(v, configFile)
	if err != nil {
		return Config{}, err
	}

	if flags != nil {
		for _, o := range options {
			if o.flag == "" {
				continue
			}
			if f := flags.Lookup(o.flag); f != nil {
				if err := v.BindPFlag(o.key, f); err != nil {
					return Config{}, fmt.Errorf("binding --%s: %w", o.flag, err)
				}
			}
		}
		if f := flags.Lookup(NoIgnoreFlag); f != nil && f.Changed {
			noIgnore, _ := flags.GetBool(NoIgnoreFlag)
			v.Set(KeyRespectIgnore, !noIgnore)
		}
	}

	verbose, err := parseVerbose(v.GetString(KeyVerbose))
	if err != nil {
		return Config{}, err
	}

	// Create config instance
	cfg := Config{
		Workers:            v.GetInt(KeyWorkers),
		RateLimit:          v.GetInt(KeyRateLimit),
		MaxDepth:           v.GetInt(KeyMaxDepth),
		Level:              v.GetInt(KeyLevel),
		FollowSymlinks:     v.GetBool(KeyFollowSymlinks),
		ShowHidden:         v.GetBool(KeyShowHidden),
		IncludeGitDir:      v.GetBool(KeyIncludeGitDir),
		RespectIgnoreFiles: v.GetBool(KeyRespectIgnore),
		IncludePattern:     v.GetString(KeyInclude),
		ExcludePattern:     v.GetString(KeyExclude),
		Glob:               v.GetBool(KeyGlob),
		IGlob:              v.GetBool(KeyIGlob),
		SortKey:            v.GetString(KeySortKey),
		SortDirection:      v.GetString(KeySortDirection),
		DirsFirst:          v.GetBool(KeyDirsFirst),
		DiskUsageMode:      v.GetString(KeyDiskUsage),
		SelfSizeCounted:    v.GetBool(KeySelfSize),
		HumanReadable:      v.GetBool(KeyHumanReadable),
		Unit:               v.GetString(KeyUnit),
		Scale:              v.GetInt(KeyScale),
		MaxLines:           v.GetInt(KeyMaxLines),
		Color:              v.GetString(KeyColor),
		Prune:              v.GetBool(KeyPrune),
		DirsOnly:           v.GetBool(KeyDirsOnly),
		Long:               v.GetBool(KeyLong),
		SuppressSize:       v.GetBool(KeySuppressSize),
		Icons:              v.GetBool(KeyIcons),
		FileName:           v.GetBool(KeyFileName),
		Format:             v.GetString(KeyFormat),
		OutputFile:         v.GetString(KeyOutputFile),
		NoProgress:         v.GetBool(KeyNoProgress),
		Verbose:            verbose,
		LogFormat:          v.GetString(KeyLogFormat),
		ConfigFile:         used,
	}

	// Handle special case for workers=0
	if cfg.Workers == 0 {
		cfg.Workers = runtime.NumCPU()
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// readConfigFile reads the explicit file, or the first default location
// that exists. It returns the path that was read.
func readConfigFile(v *viper.Viper, explicit string) (string, error) {
	if explicit != "" {
		v.SetConfigFile(explicit)
		if err := v.ReadInConfig(); err != nil {
			return "", fmt.Errorf("reading config file %s: %w", explicit, err)
		}
		return explicit, nil
	}

	v.SetConfigName("config")
	for _, dir := range defaultConfigDirs() {
		v.AddConfigPath(dir)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return "", nil
		}
		return "", fmt.Errorf("reading config file: %w", err)
	}
	return v.ConfigFileUsed(), nil
}

func defaultConfigDirs() []string {
	var dirs []string
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		dirs = append(dirs, filepath.Join(xdg, "arbor"))
	}
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, filepath.Join(home, ".config", "arbor"))
	}
	return dirs
}

// parseVerbose accepts a number or, like -vvv, a run of 'v's.
func parseVerbose(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	if strings.Trim(s, "v") == "" {
		return len(s), nil
	}
	return 0, fmt.Errorf("invalid verbosity %q", s)
}

// Validate checks if the configuration is valid
func (c Config) Validate() error {
	// Validate workers count
	if c.Workers < 0 {
		return fmt.Errorf("workers count must be positive")
	}
	maxWorkers := runtime.NumCPU() * MaxWorkerMultiplier
	if c.Workers > maxWorkers {
		return fmt.Errorf("workers count cannot exceed system CPU count * %d", MaxWorkerMultiplier)
	}

	if c.RateLimit < 0 {
		return fmt.Errorf("rate limit must be non-negative")
	}
	if c.MaxDepth < UnlimitedDepth {
		return fmt.Errorf("max depth must be -1 (unlimited) or non-negative")
	}
	if c.Level < 0 {
		return fmt.Errorf("level must be non-negative")
	}
	if c.MaxLines < UnlimitedLines {
		return fmt.Errorf("max render lines must be -1 (unlimited), 0 (terminal height) or positive")
	}
	if c.Verbose < 0 {
		return fmt.Errorf("verbosity must be non-negative")
	}
	if c.Scale < AutoScale || c.Scale > output.MaxScale {
		return fmt.Errorf("scale must be -1 (automatic) or between 0 and %d", output.MaxScale)
	}
	if (c.Glob || c.IGlob) && c.IncludePattern == "" {
		return fmt.Errorf("glob matching requires an include pattern")
	}

	if _, err := sorter.ParseKey(c.SortKey); err != nil {
		return err
	}
	if _, err := sorter.ParseDirection(c.SortDirection); err != nil {
		return err
	}
	if _, err := diskusage.ParseMode(c.DiskUsageMode); err != nil {
		return err
	}
	if _, err := output.ParseUnit(c.Unit); err != nil {
		return err
	}
	if _, err := output.ParseFormat(c.Format); err != nil {
		return fmt.Errorf("invalid output format: must be one of [tree json yaml report]")
	}
	if _, err := termcap.ParseColorMode(c.Color); err != nil {
		return err
	}
	switch logger.Format(c.LogFormat) {
	case logger.FormatConsole, logger.FormatJSON, "":
	default:
		return fmt.Errorf("invalid log format %q: must be console or json", c.LogFormat)
	}
	return nil
}

// Options are the core settings derived from a Config.
type Options struct {
	Filter    filter.Options
	Scanner   scanner.Config
	DiskUsage diskusage.Options
	Sort      sorter.Options
	Output    output.Config
	Color     termcap.ColorMode

	// MaxLines is the unresolved line limit; see termcap.ResolveMaxLines.
	MaxLines int
	Prune    bool
}

// Compile validates c, compiles its patterns and converts it into the
// option structs of each stage. Terminal-dependent values (palette, line
// limit, locale) are left for the caller to resolve.
func (c Config) Compile() (Options, error) {
	if err := c.Validate(); err != nil {
		return Options{}, err
	}

	var include *regexp.Regexp
	var glob *filter.Glob
	var err error
	if c.Glob || c.IGlob {
		glob, err = filter.CompileGlob(c.IncludePattern, c.IGlob)
	} else {
		include, err = filter.CompilePattern("include", c.IncludePattern)
	}
	if err != nil {
		return Options{}, err
	}
	exclude, err := filter.CompilePattern("exclude", c.ExcludePattern)
	if err != nil {
		return Options{}, err
	}

	// Validate has already vetted every enum.
	key, _ := sorter.ParseKey(c.SortKey)
	direction, _ := sorter.ParseDirection(c.SortDirection)
	mode, _ := diskusage.ParseMode(c.DiskUsageMode)
	unit, _ := output.ParseUnit(c.Unit)
	format, _ := output.ParseFormat(c.Format)
	color, _ := termcap.ParseColorMode(c.Color)

	return Options{
		Filter: filter.Options{
			MaxDepth:           c.MaxDepth,
			ShowHidden:         c.ShowHidden,
			IncludeGitDir:      c.IncludeGitDir,
			RespectIgnoreFiles: c.RespectIgnoreFiles,
			Include:            include,
			Exclude:            exclude,
			Glob:               glob,
		},
		Scanner: scanner.Config{
			Workers:        c.Workers,
			RateLimit:      c.RateLimit,
			FollowSymlinks: c.FollowSymlinks,
		},
		DiskUsage: diskusage.Options{
			SelfSizeCounted: c.SelfSizeCounted,
		},
		Sort: sorter.Options{
			Key:       key,
			Direction: direction,
			DirsFirst: c.DirsFirst,
			Mode:      mode,
		},
		Output: output.Config{
			Format:        format,
			Mode:          mode,
			HumanReadable: c.HumanReadable,
			Unit:          unit,
			Scale:         c.Scale,
			Level:         c.Level,
			Long:          c.Long,
			SuppressSize:  c.SuppressSize,
			DirsOnly:      c.DirsOnly,
			Icons:         c.Icons,
			FileName:      c.FileName,
		},
		Color:    color,
		MaxLines: c.MaxLines,
		Prune:    c.Prune,
	}, nil
}

// String returns a string representation of the configuration
func (c Config) String() string {
	return fmt.Sprintf(
		"Config{Workers: %d, RateLimit: %d, MaxDepth: %d, Level: %d, Follow: %v, "+
			"Hidden: %v, GitDir: %v, IgnoreFiles: %v, Include: %q, Exclude: %q, Glob: %v, IGlob: %v, "+
			"Sort: %s/%s, DirsFirst: %v, DiskUsage: %s, SelfSize: %v, Human: %v, Unit: %s, Scale: %d, "+
			"MaxLines: %d, Color: %s, Prune: %v, DirsOnly: %v, Long: %v, SuppressSize: %v, Icons: %v, FileName: %v, "+
			"Format: %s, OutputFile: %s, NoProgress: %v, Verbose: %d, LogFormat: %s, ConfigFile: %s}",
		c.Workers, c.RateLimit, c.MaxDepth, c.Level, c.FollowSymlinks,
		c.ShowHidden, c.IncludeGitDir, c.RespectIgnoreFiles, c.IncludePattern, c.ExcludePattern, c.Glob, c.IGlob,
		c.SortKey, c.SortDirection, c.DirsFirst, c.DiskUsageMode, c.SelfSizeCounted, c.HumanReadable, c.Unit, c.Scale,
		c.MaxLines, c.Color, c.Prune, c.DirsOnly, c.Long, c.SuppressSize, c.Icons, c.FileName,
		c.Format, c.OutputFile, c.NoProgress, c.Verbose, c.LogFormat, c.ConfigFile,
	)
}
