package app

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"

	"github.com/sonemaro/arbor/pkg/logger"
)

// ExitInterrupted is the exit status after a second interrupt.
const ExitInterrupted = 130

// signalState tracks the state of signal handling
type signalState struct {
	interrupted atomic.Bool
}

// NotifyContext returns a context that is cancelled by the first SIGINT or
// SIGTERM, so the scan in flight stops and what was gathered is rendered.
// A second signal exits the process immediately with ExitInterrupted.
// Call stop to release the signal handlers.
func NotifyContext(parent context.Context, log logger.Logger) (ctx context.Context, stop func()) {
	if log == nil {
		log = logger.Nop()
	}

	sigChan := make(chan os.Signal, 2)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	ctx, cancel := context.WithCancel(parent)
	done := make(chan struct{})
	go handleSignals(sigChan, done, cancel, os.Exit, log)

	var once sync.Once
	stop = func() {
		once.Do(func() {
			signal.Stop(sigChan)
			close(done)
			cancel()
		})
	}
	return ctx, stop
}

// handleSignals processes incoming system signals until done is closed.
func handleSignals(sigChan <-chan os.Signal, done <-chan struct{}, cancel context.CancelFunc, exit func(int), log logger.Logger) {
	state := &signalState{}

	for {
		select {
		case <-done:
			return
		case sig := <-sigChan:
			log.WithFields(logger.Fields{
				"signal": sig.String(),
			}).Debug("Received system signal")

			if state.interrupted.CompareAndSwap(false, true) {
				log.Warn("Interrupted, rendering the partial tree; interrupt again to quit")
				cancel()
				continue
			}

			log.Warn("Received second interrupt, exiting")
			exit(ExitInterrupted)
			return
		}
	}
}
