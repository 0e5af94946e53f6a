// Package termcap answers the few questions arbor asks about its terminal:
// is output going to one, how big is it, and should it be colored.
package termcap

import (
	"fmt"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"golang.org/x/term"
)

// ColorMode is the user's color preference.
type ColorMode string

const (
	ColorAuto   ColorMode = "auto"
	ColorAlways ColorMode = "always"
	ColorNever  ColorMode = "never"
)

// ParseColorMode validates a color preference.
func ParseColorMode(s string) (ColorMode, error) {
	switch m := ColorMode(strings.ToLower(strings.TrimSpace(s))); m {
	case ColorAuto, ColorAlways, ColorNever:
		return m, nil
	case "":
		return ColorAuto, nil
	}
	return "", fmt.Errorf("unknown color mode %q (want auto, always or never)", s)
}

// Line limits accepted by ResolveMaxLines.
const (
	TerminalHeight = 0
	Unlimited      = -1
)

// Capabilities describes an output stream.
type Capabilities struct {
	Interactive bool
	Width       int
	Height      int
}

// Probe inspects out. Width and height are zero when out is not a terminal.
func Probe(out *os.File) Capabilities {
	if out == nil {
		return Capabilities{}
	}
	fd := out.Fd()
	caps := Capabilities{
		Interactive: isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd),
	}
	if caps.Interactive {
		if w, h, err := term.GetSize(int(fd)); err == nil {
			caps.Width, caps.Height = w, h
		}
	}
	return caps
}

// ResolveColor decides whether output is colored. In auto mode NO_COLOR
// and TERM=dumb turn color off.
func ResolveColor(mode ColorMode, caps Capabilities) bool {
	switch mode {
	case ColorAlways:
		return true
	case ColorNever:
		return false
	}
	if _, set := os.LookupEnv("NO_COLOR"); set {
		return false
	}
	if os.Getenv("TERM") == "dumb" {
		return false
	}
	return caps.Interactive
}

// ResolveMaxLines turns a configured line limit into the renderer's, where
// 0 means unlimited. TerminalHeight uses the terminal's height less one line
// for the prompt, or unlimited when output is not a terminal.
func ResolveMaxLines(requested int, caps Capabilities) int {
	if requested < 0 {
		return 0
	}
	if requested != TerminalHeight {
		return requested
	}
	if !caps.Interactive || caps.Height <= 1 {
		return 0
	}
	return caps.Height - 1
}
