package progress

import (
	"io"
	"time"
)

// Style represents the type of progress visualization
type Style string

const (
	// StyleSpinner shows a spinning indicator
	StyleSpinner Style = "spinner"

	// StyleSimple shows basic text progress
	StyleSimple Style = "simple"
)

// Config holds the configuration for progress visualization
type Config struct {
	// Style defines how progress should be displayed
	Style Style

	// Width is the maximum line width (0 = auto-detect)
	Width int

	// NoColor disables colored output
	NoColor bool

	// RefreshRate defines how often the display updates
	RefreshRate time.Duration

	// HideAfterComplete clears the line once the scan finishes
	HideAfterComplete bool

	// Writer receives the progress line; defaults to stderr
	Writer io.Writer
}

// Status is a snapshot of a running scan
type Status struct {
	Directories int64
	Files       int64
	Errors      int64
	BytesSeen   int64
	StartTime   time.Time
}

// Source returns the latest status when polled.
type Source func() Status

// Progress defines the interface for progress visualization
type Progress interface {
	// Start begins progress visualization with initial message
	Start(message string)

	// Update updates the progress status
	Update(status Status)

	// Complete marks the operation as finished
	Complete(message string)

	// Stop stops progress visualization
	Stop()

	// IsSupportedTerminal checks if the writer is a terminal
	IsSupportedTerminal() bool
}
