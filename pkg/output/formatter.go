/*
Package output renders an aggregated, sorted tree.

The tree format is an indented listing drawn with box characters, one line
per visible node, optionally preceded by size and long-listing columns and
truncated to a line budget. JSON and YAML emit the same nodes as nested
documents with totals, and the report format is a flat du-like listing.

Basic usage:

	formatter := output.NewFormatter(output.Config{
		Format:        output.FormatTree,
		Mode:          diskusage.OnDisk,
		HumanReadable: true,
		Scale:         output.AutoScale,
		Palette:       output.DefaultPalette(),
	}, log)

	err := formatter.Write(os.Stdout, &output.Document{Tree: t, Summary: sum})
*/
package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/sonemaro/arbor/pkg/diskusage"
	"github.com/sonemaro/arbor/pkg/logger"
	"github.com/sonemaro/arbor/pkg/scanner"
	"github.com/sonemaro/arbor/pkg/tree"
)

// Format represents the output format type
type Format string

const (
	FormatTree   Format = "tree"
	FormatJSON   Format = "json"
	FormatYAML   Format = "yaml"
	FormatReport Format = "report"
)

// ParseFormat validates an output format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatTree, FormatJSON, FormatYAML, FormatReport:
		return f, nil
	case "":
		return FormatTree, nil
	}
	return "", fmt.Errorf("unsupported format: %s", s)
}

// Unit selects the prefixes used for human-readable sizes.
type Unit string

const (
	UnitBinary Unit = "bin"
	UnitSI     Unit = "si"
)

// ParseUnit validates a size unit name.
func ParseUnit(s string) (Unit, error) {
	switch u := Unit(strings.ToLower(strings.TrimSpace(s))); u {
	case UnitBinary, UnitSI:
		return u, nil
	case "":
		return UnitBinary, nil
	}
	return "", fmt.Errorf("unknown size unit %q", s)
}

// Config holds formatter configuration
type Config struct {
	Format Format

	// Mode picks which total is displayed.
	Mode          diskusage.Mode
	HumanReadable bool
	Unit          Unit

	// Scale is the number of digits after the decimal point of human
	// sizes, or AutoScale.
	Scale int

	// MaxLines caps the tree format; 0 means unlimited.
	MaxLines int

	// Level hides nodes deeper than this without affecting totals; 0 means
	// unlimited.
	Level int

	Long         bool
	SuppressSize bool
	DirsOnly     bool
	WithStats    bool

	// Icons prefixes tree names with a file-type glyph.
	Icons bool

	// FileName lists bare names instead of relative paths in the report.
	FileName bool

	// Palette colors names; nil disables color.
	Palette *Palette
}

// Document is everything a formatter needs about one scanned root.
type Document struct {
	Tree    *tree.Tree
	Summary diskusage.Summary
	Scan    scanner.ScanStats
	Partial bool
}

// Formatter defines the interface for output formatting
type Formatter interface {
	Format(*Document) (string, error)
	Write(io.Writer, *Document) error
}

// formatter implements the Formatter interface
type formatter struct {
	config Config
	log    logger.Logger
}

// NewFormatter creates a new formatter instance
func NewFormatter(config Config, log logger.Logger) Formatter {
	if log == nil {
		log = logger.Nop()
	}
	return &formatter{
		config: config,
		log:    log,
	}
}

// Format formats the document according to the configured format
func (f *formatter) Format(doc *Document) (string, error) {
	var b strings.Builder
	if err := f.Write(&b, doc); err != nil {
		return "", err
	}
	return b.String(), nil
}

// Write renders the document to w
func (f *formatter) Write(w io.Writer, doc *Document) error {
	if doc == nil || doc.Tree == nil {
		msg := "nil tree provided for formatting"
		f.log.Error(msg)
		return fmt.Errorf("%s", msg)
	}

	f.log.WithFields(logger.Fields{
		"format":    f.config.Format,
		"withStats": f.config.WithStats,
		"nodes":     doc.Tree.Len(),
	}).Debug("Starting format operation")

	switch f.config.Format {
	case FormatTree, "":
		return f.writeTree(w, doc)
	case FormatJSON:
		return f.writeJSON(w, doc)
	case FormatYAML:
		return f.writeYAML(w, doc)
	case FormatReport:
		return f.writeReport(w, doc)
	default:
		msg := fmt.Sprintf("unsupported format: %s", f.config.Format)
		f.log.Error(msg)
		return fmt.Errorf("%s", msg)
	}
}
