// Package version reports how the arbor binary was built.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
)

var (
	// These variables are set during build time
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

// BuildInfo contains build and runtime information
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date"`
	Modified  bool   `json:"modified"`

	GoVersion string `json:"go_version"`
	Compiler  string `json:"compiler"`
	Platform  string `json:"platform"`
	NumCPU    int    `json:"num_cpu"`

	BuildDeps []Module `json:"build_deps"`
}

// Module represents a Go module dependency
type Module struct {
	Path    string `json:"path"`
	Version string `json:"version"`
}

// GetBuildInfo returns build information. Values not injected with
// -ldflags are taken from the module and VCS data the toolchain embeds.
func GetBuildInfo() BuildInfo {
	info := BuildInfo{
		Version:   Version,
		Commit:    Commit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
		Compiler:  runtime.Compiler,
		Platform:  fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
		NumCPU:    runtime.NumCPU(),
	}

	if bi, ok := debug.ReadBuildInfo(); ok {
		applyBuildInfo(&info, bi)
	}
	return info
}

func applyBuildInfo(info *BuildInfo, bi *debug.BuildInfo) {
	if info.Version == "dev" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		info.Version = bi.Main.Version
	}
	for _, setting := range bi.Settings {
		switch setting.Key {
		case "vcs.revision":
			if info.Commit == "unknown" {
				info.Commit = setting.Value
			}
		case "vcs.time":
			if info.BuildDate == "unknown" {
				info.BuildDate = setting.Value
			}
		case "vcs.modified":
			info.Modified = setting.Value == "true"
		}
	}
	for _, dep := range bi.Deps {
		info.BuildDeps = append(info.BuildDeps, Module{Path: dep.Path, Version: dep.Version})
	}
}

// Short returns "arbor <version>".
func Short() string {
	return "arbor " + GetBuildInfo().Version
}

// FullVersion returns a formatted string with complete version information
func FullVersion() string {
	return formatInfo(GetBuildInfo())
}

func formatInfo(info BuildInfo) string {
	commit := info.Commit
	if info.Modified {
		commit += " (modified)"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "arbor %s\n", info.Version)
	fmt.Fprintf(&b, "  Commit:       %s\n", commit)
	fmt.Fprintf(&b, "  Build Date:   %s\n", info.BuildDate)
	fmt.Fprintf(&b, "  Go Version:   %s\n", info.GoVersion)
	fmt.Fprintf(&b, "  Compiler:     %s\n", info.Compiler)
	fmt.Fprintf(&b, "  Platform:     %s\n", info.Platform)
	fmt.Fprintf(&b, "  CPUs:         %d\n", info.NumCPU)

	if len(info.BuildDeps) > 0 {
		b.WriteString("  Dependencies:\n")
		for _, dep := range info.BuildDeps {
			fmt.Fprintf(&b, "    - %s@%s\n", dep.Path, dep.Version)
		}
	}
	return b.String()
}
