/*
Package progress draws a single self-overwriting status line while a scan
runs. It is meant for stderr and is only enabled when stderr is a terminal.

Basic usage:

	p := progress.New(progress.Config{Style: progress.StyleSpinner}, log)
	p.Start("Scanning")
	err := progress.Poll(ctx, p, func() progress.Status { ... }, 100*time.Millisecond)
	p.Complete("Done")
*/
package progress

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"golang.org/x/term"

	"github.com/sonemaro/arbor/pkg/logger"
)

type progress struct {
	config Config
	log    logger.Logger
	writer io.Writer

	// State
	status   Status
	message  string
	isActive bool

	// Rendering
	renderer    renderer
	refreshRate time.Duration
	width       int

	// Synchronization
	mu       sync.Mutex
	stopChan chan struct{}
	doneChan chan struct{}
}

// New creates a new progress visualization instance
func New(config Config, log logger.Logger) Progress {
	if config.RefreshRate == 0 {
		config.RefreshRate = 100 * time.Millisecond
	}
	if config.Writer == nil {
		config.Writer = os.Stderr
	}
	if log == nil {
		log = logger.Nop()
	}

	p := &progress{
		config:      config,
		log:         log,
		writer:      config.Writer,
		refreshRate: config.RefreshRate,
	}

	p.renderer = p.createRenderer()

	// Auto-detect terminal width if not specified
	if p.config.Width == 0 {
		p.width = p.getTerminalWidth()
	} else {
		p.width = p.config.Width
	}

	p.log.WithFields(logger.Fields{
		"style":   p.config.Style,
		"width":   p.width,
		"noColor": p.config.NoColor,
		"refresh": p.config.RefreshRate,
	}).Debug("Created new progress instance")

	return p
}

func (p *progress) Start(message string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.isActive {
		return
	}

	p.log.WithFields(logger.Fields{
		"message": message,
	}).Debug("Starting progress")

	p.message = message
	if p.status.StartTime.IsZero() {
		p.status.StartTime = time.Now()
	}
	p.isActive = true
	p.stopChan = make(chan struct{})
	p.doneChan = make(chan struct{})

	go p.renderLoop(p.stopChan, p.doneChan)
}

func (p *progress) Update(status Status) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.log.WithFields(logger.Fields{
		"directories": status.Directories,
		"files":       status.Files,
	}).Trace("Updating progress")

	if status.StartTime.IsZero() {
		status.StartTime = p.status.StartTime
	}
	p.status = status
}

func (p *progress) Complete(message string) {
	p.halt()

	p.mu.Lock()
	defer p.mu.Unlock()

	p.log.WithFields(logger.Fields{
		"message": message,
	}).Debug("Completing progress")

	p.message = message
	if p.config.HideAfterComplete {
		p.clearLine()
		return
	}
	p.render()
	fmt.Fprintln(p.writer)
}

func (p *progress) Stop() {
	p.halt()

	p.mu.Lock()
	defer p.mu.Unlock()

	p.log.Debug("Stopping progress")
	p.clearLine()
}

// halt stops the render loop and waits for it, without holding the lock the
// loop needs.
func (p *progress) halt() {
	p.mu.Lock()
	if !p.isActive {
		p.mu.Unlock()
		return
	}
	p.isActive = false
	stop, done := p.stopChan, p.doneChan
	p.mu.Unlock()

	close(stop)
	<-done
}

func (p *progress) IsSupportedTerminal() bool {
	if f, ok := p.writer.(*os.File); ok {
		return term.IsTerminal(int(f.Fd()))
	}
	return false
}

// Poll feeds p from source every interval until ctx is done.
func Poll(ctx context.Context, p Progress, source Source, interval time.Duration) error {
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		p.Update(source())
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// Internal methods

func (p *progress) renderLoop(stop <-chan struct{}, done chan<- struct{}) {
	ticker := time.NewTicker(p.refreshRate)
	defer ticker.Stop()
	defer close(done)

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			p.mu.Lock()
			p.render()
			p.mu.Unlock()
		}
	}
}

func (p *progress) render() {
	output := p.renderer.render(p.status, p.message, time.Since(p.status.StartTime))
	p.clearLine()
	fmt.Fprint(p.writer, truncate(output, p.width))
}

func (p *progress) clearLine() {
	if p.IsSupportedTerminal() {
		fmt.Fprint(p.writer, "\r\033[K") // Clear line
	} else {
		fmt.Fprint(p.writer, "\r") // Just return to start
	}
}

func (p *progress) getTerminalWidth() int {
	if f, ok := p.writer.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		if w, _, err := term.GetSize(int(f.Fd())); err == nil && w > 0 {
			return w
		}
	}

	return 80 // Default width
}

func (p *progress) createRenderer() renderer {
	switch p.config.Style {
	case StyleSimple:
		return &simpleRenderer{}
	default:
		return &spinnerRenderer{noColor: p.config.NoColor}
	}
}
