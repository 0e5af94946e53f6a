package output

import (
	"errors"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/sonemaro/arbor/pkg/diskusage"
	"github.com/sonemaro/arbor/pkg/tree"
)

// AutoScale keeps humanize's rounding: one decimal below 10, none above.
const AutoScale = -1

// MaxScale is the most digits after the decimal point Scale accepts.
const MaxScale = 9

var (
	binaryUnits = []string{"B", "KiB", "MiB", "GiB", "TiB", "PiB", "EiB"}
	siUnits     = []string{"B", "kB", "MB", "GB", "TB", "PB", "EB"}
)

// formatSize renders bytes as configured.
func (c Config) formatSize(bytes int64) string {
	if !c.HumanReadable {
		return strconv.FormatInt(bytes, 10)
	}
	if bytes < 0 {
		bytes = 0
	}
	if c.Scale >= 0 {
		return c.scaledSize(uint64(bytes))
	}
	if c.Unit == UnitSI {
		return humanize.Bytes(uint64(bytes))
	}
	return humanize.IBytes(uint64(bytes))
}

// scaledSize renders a human size with exactly Scale digits after the
// decimal point, so a column of sizes lines up on it. Plain bytes have none.
func (c Config) scaledSize(bytes uint64) string {
	base, units := 1024.0, binaryUnits
	if c.Unit == UnitSI {
		base, units = 1000.0, siUnits
	}

	value := float64(bytes)
	i := 0
	for value >= base && i < len(units)-1 {
		value /= base
		i++
	}
	if i == 0 {
		return strconv.FormatUint(bytes, 10) + " B"
	}

	format := "#."
	if scale := min(c.Scale, MaxScale); scale > 0 {
		format += strings.Repeat("#", scale)
	}
	return humanize.FormatFloat(format, value) + " " + units[i]
}

// displaySize is the size shown on a node's own line.
func (c Config) displaySize(n *tree.Node) int64 {
	return diskusage.Size(n, c.Mode)
}

// shortError reduces an error chain to its innermost message, which for
// filesystem errors is the errno text ("permission denied").
func shortError(err error) string {
	if err == nil {
		return "unknown"
	}
	for {
		inner := errors.Unwrap(err)
		if inner == nil {
			return err.Error()
		}
		err = inner
	}
}
