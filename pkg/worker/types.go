package worker

import "time"

// Status represents the current state of the worker pool
type Status string

const (
	// StatusIdle indicates the pool is running with nothing to do
	StatusIdle Status = "idle"

	// StatusProcessing indicates tasks are queued or executing
	StatusProcessing Status = "processing"

	// StatusShuttingDown indicates the pool accepts no more tasks but may still be draining
	StatusShuttingDown Status = "shutting_down"

	// StatusStopped indicates the pool was never started or has been stopped
	StatusStopped Status = "stopped"
)

// Stats provides runtime statistics about the worker pool
type Stats struct {
	ActiveWorkers  int
	QueuedTasks    int
	CompletedTasks int
	FailedTasks    int

	// DiscardedTasks were queued but dropped by Stop
	DiscardedTasks int

	Status Status
	Uptime time.Duration
}
