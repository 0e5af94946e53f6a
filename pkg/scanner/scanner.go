/*
Package scanner walks a directory tree concurrently and builds a tree.Tree.

Each directory is one task on a worker.Pool. A worker reads the directory's
ignore files and entries, consults the filter for every entry and returns a
private batch describing the accepted entries and the subdirectories to
descend. A single coordinator goroutine merges those batches into the arena
and submits the follow-up directories, so the tree has exactly one writer.

Per-entry failures become ErrorMarker nodes and are logged; only a root that
cannot be read (or an ignore file that cannot be parsed) fails the scan.
Cancelling the context stops new directories from being claimed and yields
the partial tree.

Basic usage:

	s := scanner.NewScanner(scanner.Config{Workers: 4}, afero.NewOsFs(), f, log)
	result, err := s.Scan(ctx, "/path/to/scan")
*/
package scanner

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"time"

	"github.com/spf13/afero"

	"github.com/sonemaro/arbor/pkg/filter"
	"github.com/sonemaro/arbor/pkg/logger"
	"github.com/sonemaro/arbor/pkg/tree"
	"github.com/sonemaro/arbor/pkg/worker"
)

// Scanner defines the interface for directory scanning operations
type Scanner interface {
	// Scan builds the tree rooted at root
	Scan(ctx context.Context, root string) (Result, error)

	// Progress returns the counters of the scan in flight
	Progress() Progress
}

type scanner struct {
	config    Config
	fs        SymlinkFs
	filter    *filter.Filter
	log       logger.Logger
	stats     *ScannerStats
	startTime time.Time
}

// NewScanner creates a scanner reading through fs.
func NewScanner(config Config, fs afero.Fs, f *filter.Filter, log logger.Logger) Scanner {
	if log == nil {
		log = logger.Nop()
	}
	if f == nil {
		f = filter.New(filter.Options{MaxDepth: filter.Unlimited}, log)
	}
	return &scanner{
		config: config,
		fs:     asSymlinkFs(fs),
		filter: f,
		log:    log,
		stats:  NewScannerStats(),
	}
}

type identityKey struct {
	dev, ino uint64
}

// Scan performs the directory scan operation
func (s *scanner) Scan(ctx context.Context, root string) (Result, error) {
	if s.config.Workers <= 0 {
		return Result{}, fmt.Errorf("invalid configuration: workers count must be positive")
	}

	s.startTime = time.Now()
	before := s.snapshot()

	s.log.WithFields(logger.Fields{
		"path":    root,
		"workers": s.config.Workers,
		"follow":  s.config.FollowSymlinks,
	}).Info("Starting scan operation")

	// The root is always resolved, even when links below it are not followed.
	rootInfo, err := s.fs.Stat(root)
	if err != nil {
		return Result{}, &RootError{Path: root, Err: err}
	}
	rootMeta := metadataOf(rootInfo)
	t := tree.New(root, tree.KindFromMode(rootInfo.Mode()), rootMeta)
	result := Result{Tree: t, Stats: ScanStats{StartTime: s.startTime}}

	if !rootInfo.IsDir() {
		s.stats.AddFiles(1)
		s.finish(&result, before)
		return result, nil
	}

	scanCtx, cancelScan := context.WithCancel(ctx)
	defer cancelScan()

	pool, err := worker.NewPool(worker.Config{
		Workers:   s.config.Workers,
		RateLimit: s.config.RateLimit,
	})
	if err != nil {
		return Result{}, fmt.Errorf("failed to create worker pool: %w", err)
	}
	if err := pool.Start(scanCtx); err != nil {
		return Result{}, fmt.Errorf("failed to start worker pool: %w", err)
	}
	defer func() {
		if err := pool.Stop(); err != nil {
			s.log.WithFields(logger.Fields{"error": err}).Warn("Error stopping worker pool")
		}
	}()

	builder := tree.NewBuilder(t)
	visited := make(map[identityKey]struct{})
	if rootMeta.HasIdentity {
		visited[identityKey{rootMeta.Dev, rootMeta.Ino}] = struct{}{}
	}

	nextID := 0
	pending := 0
	submit := func(job dirJob) {
		nextID++
		task := worker.Task{
			ID: nextID,
			Execute: func(ctx context.Context) (worker.Result, error) {
				return worker.Result{Data: s.readDir(ctx, job)}, nil
			},
		}
		if err := pool.Submit(task); err != nil {
			s.log.WithFields(logger.Fields{"path": job.path, "error": err}).Debug("Directory not dispatched")
			return
		}
		pending++
	}

	submit(dirJob{
		path:  root,
		rel:   ".",
		depth: 0,
		scope: filter.RootScope(),
		meta:  rootMeta,
	})

	var fatal error
	for res := range pool.Results() {
		pending--
		if fatal == nil {
			fatal = s.merge(res, builder, visited, submit)
			if fatal != nil {
				cancelScan()
			}
		}
		if pending == 0 {
			pool.Close()
		}
	}

	if fatal != nil {
		s.log.WithFields(logger.Fields{"path": root, "error": fatal}).Error("Scan aborted")
		return Result{}, fatal
	}

	if ctx.Err() != nil {
		result.Partial = true
		s.log.WithFields(logger.Fields{"path": root}).Warn("Scan interrupted, tree is partial")
	}

	result.Tree = pruneTentative(t)
	s.finish(&result, before)
	return result, nil
}

// merge folds one worker result into the tree and dispatches its
// subdirectories. A non-nil return aborts the scan.
func (s *scanner) merge(res worker.Result, builder *tree.Builder, visited map[identityKey]struct{}, submit func(dirJob)) error {
	if res.Err != nil {
		// Only the rate limiter fails a task, and only when the scan is ending.
		return nil
	}
	out, ok := res.Data.(dirResult)
	if !ok {
		return fmt.Errorf("unexpected task result %T", res.Data)
	}
	if out.fatal != nil {
		return out.fatal
	}

	if out.err != nil {
		if out.job.rel == "." {
			return &RootError{Path: out.job.path, Err: out.err}
		}
		if id, ok := builder.Lookup(out.job.rel); ok {
			n := builder.Tree().Node(id)
			n.Kind = tree.ErrorMarker
			n.Err = out.err
		}
		return nil
	}

	if _, err := builder.Merge(out.batch); err != nil {
		return fmt.Errorf("building tree: %w", err)
	}

	for _, job := range out.subdirs {
		if job.meta.HasIdentity {
			key := identityKey{job.meta.Dev, job.meta.Ino}
			if _, seen := visited[key]; seen {
				s.log.WithFields(logger.Fields{"path": job.path}).Debug("Directory already visited, not descending")
				continue
			}
			visited[key] = struct{}{}
		}
		submit(job)
	}
	return nil
}

// readDir runs on a worker and builds the private batch for one directory.
func (s *scanner) readDir(ctx context.Context, job dirJob) dirResult {
	out := dirResult{job: job, batch: tree.Batch{Dir: job.rel}}
	s.stats.AddDirectories(1)

	s.log.WithFields(logger.Fields{
		"path":  job.path,
		"depth": job.depth,
	}).Debug("Scanning directory")

	rules, err := s.filter.LoadRules(s.fs, job.path, job.rel)
	if err != nil {
		out.fatal = err
		return out
	}
	scope := job.scope.Push(rules, job.verdict)

	names, err := s.readNames(job.path)
	if err != nil {
		out.err = &EntryError{Path: job.path, Op: "readdir", Err: err}
		s.stats.AddErrors(1)
		s.log.WithFields(logger.Fields{
			"path":  job.path,
			"error": err,
		}).Warn("Directory unreadable")
		return out
	}

	childDepth := job.depth + 1
	for _, name := range names {
		if ctx.Err() != nil {
			break
		}
		childPath := filepath.Join(job.path, name)
		childRel := tree.ChildPath(job.rel, name)

		entry, isDir := s.readEntry(childPath, name)
		verdict := s.filter.Decide(scope, childRel, name, childDepth, isDir)
		if verdict.Decision != filter.Descend {
			s.stats.AddSkipped(1)
			continue
		}
		entry.Tentative = verdict.Tentative
		out.batch.Entries = append(out.batch.Entries, entry)

		if isDir && s.filter.CanDescend(childDepth) {
			out.subdirs = append(out.subdirs, dirJob{
				path:    childPath,
				rel:     childRel,
				depth:   childDepth,
				scope:   scope,
				verdict: verdict,
				meta:    entry.Meta,
			})
		}
	}
	return out
}

func (s *scanner) readNames(dir string) ([]string, error) {
	f, err := s.fs.Open(dir)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return f.Readdirnames(-1)
}

// readEntry lstats one entry and resolves symlinks as configured. Failures
// produce an ErrorMarker entry.
func (s *scanner) readEntry(path, name string) (tree.Entry, bool) {
	info, _, err := s.fs.LstatIfPossible(path)
	if err != nil {
		return s.errorEntry(name, &EntryError{Path: path, Op: "lstat", Err: err}), false
	}

	entry := tree.Entry{
		Name: name,
		Kind: tree.KindFromMode(info.Mode()),
		Meta: metadataOf(info),
	}

	if entry.Kind == tree.Symlink {
		if target, err := s.fs.ReadlinkIfPossible(path); err == nil {
			entry.LinkTarget = target
		}
		if s.config.FollowSymlinks {
			targetInfo, err := s.fs.Stat(path)
			if err != nil {
				return s.errorEntry(name, &EntryError{Path: path, Op: "resolve symlink", Err: err}), false
			}
			entry.Meta = metadataOf(targetInfo)
			entry.Meta.Followed = true
			if targetInfo.IsDir() {
				entry.Kind = tree.Directory
			}
		}
	}

	if entry.Kind != tree.Directory {
		s.stats.AddFiles(1)
		s.stats.AddBytesSeen(entry.Meta.Size)
	}
	return entry, entry.Kind == tree.Directory
}

func (s *scanner) errorEntry(name string, err *EntryError) tree.Entry {
	s.stats.AddErrors(1)
	entryLog := s.log.WithFields(logger.Fields{
		"path":  err.Path,
		"error": err.Err,
	})
	if errors.Is(err.Err, fs.ErrNotExist) {
		entryLog.Warn("Entry vanished during scan")
	} else {
		entryLog.Warn("Entry unreadable")
	}
	return tree.Entry{Name: name, Kind: tree.ErrorMarker, Err: err}
}

// pruneTentative drops directories that were only descended in case a
// descendant would be kept, and nothing was.
func pruneTentative(t *tree.Tree) *tree.Tree {
	tentative := false
	t.Walk(func(n *tree.Node) bool {
		tentative = tentative || n.Tentative
		return !tentative
	})
	if !tentative {
		return t
	}
	return t.Prune(func(n *tree.Node, kept int) bool {
		return !(n.Tentative && kept == 0)
	})
}

func (s *scanner) snapshot() ScanStats {
	return ScanStats{
		Directories: s.stats.GetDirectories(),
		Files:       s.stats.GetFiles(),
		Errors:      s.stats.GetErrors(),
		Skipped:     s.stats.GetSkipped(),
	}
}

func (s *scanner) finish(result *Result, before ScanStats) {
	after := s.snapshot()
	result.Stats.EndTime = time.Now()
	result.Stats.Duration = result.Stats.EndTime.Sub(result.Stats.StartTime)
	result.Stats.Directories = after.Directories - before.Directories
	result.Stats.Files = after.Files - before.Files
	result.Stats.Errors = after.Errors - before.Errors
	result.Stats.Skipped = after.Skipped - before.Skipped

	s.log.WithFields(logger.Fields{
		"path":        result.Tree.RootPath(),
		"nodes":       result.Tree.Len(),
		"directories": result.Stats.Directories,
		"files":       result.Stats.Files,
		"errors":      result.Stats.Errors,
		"partial":     result.Partial,
		"duration":    result.Stats.Duration,
	}).Info("Scan operation completed")
}

// Progress returns the current scanning progress
func (s *scanner) Progress() Progress {
	return Progress{
		Directories: s.stats.GetDirectories(),
		Files:       s.stats.GetFiles(),
		Errors:      s.stats.GetErrors(),
		BytesSeen:   s.stats.GetBytesSeen(),
		StartTime:   s.startTime,
	}
}
