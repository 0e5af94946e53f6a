/*
Package app is the arbor application container. It wires the logger,
filter, scanner, size aggregator, sorter and formatter together and runs
the pipeline for every root:

	scan -> prune (optional) -> aggregate sizes -> sort -> render

Every root is checked before anything is scanned, and every root is
scanned before anything is written, so a fatal error leaves stdout empty.
Cancelling the context stops the walk in progress; the roots finished so
far (and the partial one) are still rendered.

Usage:

	a, err := app.New(cfg, app.Streams{Out: os.Stdout, Err: os.Stderr})
	if err != nil {
	    return err
	}
	return a.Run(ctx, []string{"."})
*/
package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"time"

	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/language"

	"github.com/sonemaro/arbor/internal/config"
	"github.com/sonemaro/arbor/internal/termcap"
	"github.com/sonemaro/arbor/pkg/diskusage"
	"github.com/sonemaro/arbor/pkg/filter"
	"github.com/sonemaro/arbor/pkg/logger"
	"github.com/sonemaro/arbor/pkg/output"
	"github.com/sonemaro/arbor/pkg/progress"
	"github.com/sonemaro/arbor/pkg/scanner"
	"github.com/sonemaro/arbor/pkg/sorter"
	"github.com/sonemaro/arbor/pkg/tree"
)

// progressInterval is how often the progress line is refreshed.
const progressInterval = 100 * time.Millisecond

// Streams are the destinations of the product and of diagnostics.
type Streams struct {
	// Out receives the rendered trees unless an output file is configured
	Out io.Writer

	// Err receives logs and the progress line
	Err io.Writer
}

// App represents the main application container
type App struct {
	config  config.Config
	opts    config.Options
	log     logger.Logger
	streams Streams

	fs     afero.Fs
	sizer  diskusage.BlockSizer
	locale language.Tag
}

// New validates cfg and builds the application. Pattern and configuration
// errors are returned here, before any filesystem access.
func New(cfg config.Config, streams Streams) (*App, error) {
	if streams.Out == nil {
		streams.Out = os.Stdout
	}
	if streams.Err == nil {
		streams.Err = os.Stderr
	}
	if cfg.Workers == 0 {
		cfg.Workers = runtime.NumCPU()
	}

	log := logger.NewLogger(logger.Config{
		Verbosity: cfg.Verbose,
		Output:    streams.Err,
		Format:    logger.Format(cfg.LogFormat),
	})

	opts, err := cfg.Compile()
	if err != nil {
		log.WithFields(logger.Fields{"error": err}).Error("Invalid configuration")
		return nil, err
	}

	a := &App{
		config:  cfg,
		opts:    opts,
		log:     log,
		streams: streams,
		fs:      afero.NewOsFs(),
		sizer:   diskusage.NewBlockSizer(),
		locale:  sorter.LocaleFromEnv(),
	}

	a.log.WithFields(logger.Fields{
		"config": cfg.String(),
		"locale": a.locale.String(),
	}).Debug("Application initialized")

	return a, nil
}

// Logger returns the application logger.
func (a *App) Logger() logger.Logger {
	return a.log
}

// Run scans every root in order and renders the results. An empty paths
// list scans the working directory.
func (a *App) Run(ctx context.Context, paths []string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			a.log.WithFields(logger.Fields{
				"panic": r,
				"stack": string(debug.Stack()),
			}).Error("Recovered from panic")
			err = fmt.Errorf("internal error: %v", r)
		}
	}()

	if len(paths) == 0 {
		paths = []string{"."}
	}

	for _, root := range paths {
		if err := a.validateRoot(root); err != nil {
			return err
		}
	}

	docs := make([]*output.Document, 0, len(paths))
	for _, root := range paths {
		if ctx.Err() != nil {
			a.log.WithFields(logger.Fields{"path": root}).Warn("Interrupted, root not scanned")
			break
		}
		doc, err := a.scanRoot(ctx, root)
		if err != nil {
			return err
		}
		docs = append(docs, doc)
	}

	return a.writeOutput(docs)
}

// validateRoot checks that root exists, following a symlinked root.
func (a *App) validateRoot(root string) error {
	a.log.WithFields(logger.Fields{
		"path": root,
	}).Debug("Validating path")

	if _, err := a.fs.Stat(root); err != nil {
		a.log.WithFields(logger.Fields{
			"path":  root,
			"error": err,
		}).Error("Root not accessible")
		return &scanner.RootError{Path: root, Err: err}
	}
	return nil
}

// scanRoot runs the walk, with the progress reporter alongside it, and
// then the size, prune and sort stages.
func (a *App) scanRoot(ctx context.Context, root string) (*output.Document, error) {
	f := filter.New(a.opts.Filter, a.log)
	s := scanner.NewScanner(a.opts.Scanner, a.fs, f, a.log)

	scanCtx, scanned := context.WithCancel(ctx)
	defer scanned()
	g, gctx := errgroup.WithContext(scanCtx)

	var result scanner.Result
	g.Go(func() error {
		defer scanned()
		var err error
		result, err = s.Scan(gctx, root)
		return err
	})

	p := a.newProgress()
	if p != nil {
		p.Start(root)
		g.Go(func() error {
			return progress.Poll(gctx, p, func() progress.Status {
				cur := s.Progress()
				return progress.Status{
					Directories: cur.Directories,
					Files:       cur.Files,
					Errors:      cur.Errors,
					BytesSeen:   cur.BytesSeen,
					StartTime:   cur.StartTime,
				}
			}, progressInterval)
		})
	}

	err := g.Wait()
	if p != nil {
		p.Stop()
	}
	if err != nil {
		return nil, err
	}

	t := result.Tree
	if a.opts.Prune {
		t = pruneEmptyDirs(t)
	}

	usage := a.opts.DiskUsage
	usage.BlockSizer = a.sizer
	summary := diskusage.Aggregate(t, usage)

	order := a.opts.Sort
	order.Locale = a.locale
	sorter.Sort(t, order)

	a.log.WithFields(logger.Fields{
		"path":     root,
		"nodes":    t.Len(),
		"apparent": summary.Apparent,
		"disk":     summary.Disk,
		"partial":  result.Partial,
	}).Info("Root processed")

	return &output.Document{
		Tree:    t,
		Summary: summary,
		Scan:    result.Stats,
		Partial: result.Partial,
	}, nil
}

// pruneEmptyDirs drops directories that hold no files anywhere below them.
func pruneEmptyDirs(t *tree.Tree) *tree.Tree {
	return t.Prune(func(n *tree.Node, kept int) bool {
		return !n.IsDir() || kept > 0
	})
}

// newProgress returns a reporter when diagnostics go to a terminal and
// progress is enabled, nil otherwise.
func (a *App) newProgress() progress.Progress {
	if a.config.NoProgress {
		return nil
	}
	errFile, ok := a.streams.Err.(*os.File)
	if !ok {
		return nil
	}
	caps := termcap.Probe(errFile)
	if !caps.Interactive {
		return nil
	}
	return progress.New(progress.Config{
		Style:             progress.StyleSpinner,
		Width:             caps.Width,
		NoColor:           !termcap.ResolveColor(a.opts.Color, caps),
		RefreshRate:       progressInterval,
		HideAfterComplete: true,
		Writer:            errFile,
	}, a.log)
}

// writeOutput renders every document to stdout or the output file.
func (a *App) writeOutput(docs []*output.Document) (err error) {
	w := a.streams.Out
	var caps termcap.Capabilities

	if path := a.config.OutputFile; path != "" {
		a.log.WithFields(logger.Fields{"path": path}).Debug("Writing output file")
		if err := a.fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
		file, cerr := a.fs.Create(path)
		if cerr != nil {
			return fmt.Errorf("failed to write output file: %w", cerr)
		}
		defer func() {
			if cerr := file.Close(); cerr != nil && err == nil {
				err = fmt.Errorf("failed to write output file: %w", cerr)
			}
		}()
		w = file
	} else if out, ok := w.(*os.File); ok {
		caps = termcap.Probe(out)
	}

	cfg := a.opts.Output
	cfg.WithStats = true
	cfg.MaxLines = termcap.ResolveMaxLines(a.opts.MaxLines, caps)
	if termcap.ResolveColor(a.opts.Color, caps) {
		cfg.Palette = palette()
	}
	formatter := output.NewFormatter(cfg, a.log)

	for i, doc := range docs {
		if i > 0 {
			if _, err := io.WriteString(w, separator(cfg.Format)); err != nil {
				return fmt.Errorf("failed to write output: %w", err)
			}
		}
		if err := formatter.Write(w, doc); err != nil {
			return fmt.Errorf("failed to write output for %s: %w", doc.Tree.RootPath(), err)
		}
	}
	return nil
}

// separator goes between the documents of consecutive roots.
func separator(format output.Format) string {
	if format == output.FormatYAML {
		return "---\n"
	}
	return "\n"
}

func palette() *output.Palette {
	if spec := os.Getenv("LS_COLORS"); spec != "" {
		return output.ParseLSColors(spec)
	}
	return output.DefaultPalette()
}
