package scanner

import (
	"sync/atomic"
	"time"

	"github.com/sonemaro/arbor/pkg/filter"
	"github.com/sonemaro/arbor/pkg/tree"
)

// Config contains scanner configuration options
type Config struct {
	// Workers is the size of the directory-reading pool
	Workers int

	// RateLimit caps directory reads per second (0 for unlimited)
	RateLimit int

	// FollowSymlinks resolves link targets for metadata and descends into
	// linked directories
	FollowSymlinks bool
}

// Result contains the complete scan results
type Result struct {
	Tree *tree.Tree

	// Partial is set when the scan was cancelled before it finished
	Partial bool

	Stats ScanStats
}

// ScanStats contains statistics about the scanning operation
type ScanStats struct {
	StartTime   time.Time
	EndTime     time.Time
	Duration    time.Duration
	Directories int64
	Files       int64
	Errors      int64
	Skipped     int64
}

// Progress is a live snapshot of a running scan
type Progress struct {
	Directories int64
	Files       int64
	Errors      int64
	BytesSeen   int64
	StartTime   time.Time
}

// dirJob is one directory waiting to be read.
type dirJob struct {
	path    string
	rel     string
	depth   int
	scope   *filter.Scope
	verdict filter.Verdict
	meta    tree.Metadata
}

// dirResult is a worker's private subtree for one directory.
type dirResult struct {
	job     dirJob
	batch   tree.Batch
	subdirs []dirJob
	err     error
	fatal   error
}

// ScannerStats holds the atomic counters for scanner statistics
type ScannerStats struct {
	directories atomic.Int64
	files       atomic.Int64
	errors      atomic.Int64
	skipped     atomic.Int64
	bytesSeen   atomic.Int64
}

// NewScannerStats creates a zeroed ScannerStats
func NewScannerStats() *ScannerStats {
	return &ScannerStats{}
}

func (s *ScannerStats) AddDirectories(delta int64) int64 { return s.directories.Add(delta) }
func (s *ScannerStats) AddFiles(delta int64) int64       { return s.files.Add(delta) }
func (s *ScannerStats) AddErrors(delta int64) int64      { return s.errors.Add(delta) }
func (s *ScannerStats) AddSkipped(delta int64) int64     { return s.skipped.Add(delta) }
func (s *ScannerStats) AddBytesSeen(delta int64) int64   { return s.bytesSeen.Add(delta) }

func (s *ScannerStats) GetDirectories() int64 { return s.directories.Load() }
func (s *ScannerStats) GetFiles() int64       { return s.files.Load() }
func (s *ScannerStats) GetErrors() int64      { return s.errors.Load() }
func (s *ScannerStats) GetSkipped() int64     { return s.skipped.Load() }
func (s *ScannerStats) GetBytesSeen() int64   { return s.bytesSeen.Load() }
