package progress

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

type renderer interface {
	render(status Status, message string, elapsed time.Duration) string
}

type spinnerRenderer struct {
	noColor bool
	frame   int
}

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

func (r *spinnerRenderer) render(status Status, message string, elapsed time.Duration) string {
	r.frame = (r.frame + 1) % len(spinnerFrames)
	spinner := spinnerFrames[r.frame]

	if !r.noColor {
		spinner = fmt.Sprintf("\033[36m%s\033[0m", spinner) // Cyan color
	}

	return fmt.Sprintf("%s %s %s", spinner, message, counters(status, elapsed))
}

type simpleRenderer struct{}

func (r *simpleRenderer) render(status Status, message string, elapsed time.Duration) string {
	return fmt.Sprintf("%s %s", message, counters(status, elapsed))
}

func counters(status Status, elapsed time.Duration) string {
	s := fmt.Sprintf("%s dirs, %s files, %s",
		humanize.Comma(status.Directories),
		humanize.Comma(status.Files),
		humanize.IBytes(uint64(max(status.BytesSeen, 0))))
	if status.Errors > 0 {
		s += fmt.Sprintf(", %d errors", status.Errors)
	}
	return s + " (" + formatDuration(elapsed) + ")"
}

// truncate cuts s to width visible runes. Escape sequences are not counted.
func truncate(s string, width int) string {
	if width <= 0 {
		return s
	}
	var b strings.Builder
	visible := 0
	inEscape := false
	for _, r := range s {
		switch {
		case inEscape:
			b.WriteRune(r)
			if r == 'm' {
				inEscape = false
			}
			continue
		case r == '\033':
			inEscape = true
			b.WriteRune(r)
			continue
		}
		if visible >= width-1 {
			break
		}
		b.WriteRune(r)
		visible++
	}
	return b.String()
}

// Helper functions

func formatDuration(d time.Duration) string {
	if d <= 0 {
		return "0s"
	}
	d = d.Round(time.Second)
	if d < time.Minute {
		return fmt.Sprintf("%.0fs", d.Seconds())
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm%ds",
			int(d.Minutes()),
			int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%dm%ds",
		int(d.Hours()),
		int(d.Minutes())%60,
		int(d.Seconds())%60)
}
