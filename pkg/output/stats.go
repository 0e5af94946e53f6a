package output

import (
	"fmt"
	"io"

	"github.com/sonemaro/arbor/pkg/diskusage"
	"github.com/sonemaro/arbor/pkg/logger"
)

// stats is the summary attached to structured output
type stats struct {
	diskusage.Summary `yaml:",inline"`

	Skipped  int64  `json:"skipped" yaml:"skipped"`
	Duration string `json:"duration" yaml:"duration"`
}

func (f *formatter) calculateStats(doc *Document) *stats {
	f.log.Debug("Calculating directory statistics")

	s := &stats{
		Summary:  doc.Summary,
		Skipped:  doc.Scan.Skipped,
		Duration: doc.Scan.Duration.String(),
	}

	f.log.WithFields(logger.Fields{
		"files":    s.Files,
		"dirs":     s.Dirs,
		"symlinks": s.Symlinks,
		"errors":   s.Errors,
	}).Debug("Statistics calculated")

	return s
}

// footerLines is the number of lines writeStats produces for doc.
func footerLines(doc *Document) int {
	if doc.Partial {
		return 4
	}
	return 3
}

func (f *formatter) writeStats(w io.Writer, doc *Document) error {
	s := f.calculateStats(doc)
	_, err := fmt.Fprintf(w,
		"\n%d directories, %d files, %d symlinks, %d errors\n"+
			"apparent %s, on disk %s (%d hard links counted once)\n",
		s.Dirs, s.Files, s.Symlinks, s.Errors,
		f.config.formatSize(s.Apparent), f.config.formatSize(s.Disk), s.HardlinksDeduped,
	)
	if err == nil && doc.Partial {
		_, err = fmt.Fprintln(w, "scan interrupted, listing is partial")
	}
	return err
}
