package output

import (
	"io/fs"
	"path"
	"strconv"
	"strings"

	"github.com/fatih/color"

	"github.com/sonemaro/arbor/pkg/tree"
)

// Palette maps node types and file extensions to colors.
type Palette struct {
	Dir        *color.Color
	Symlink    *color.Color
	Executable *color.Color
	Pipe       *color.Color
	Socket     *color.Color
	BlockDev   *color.Color
	CharDev    *color.Color
	Error      *color.Color
	Extensions map[string]*color.Color
}

var (
	archiveExtensions = []string{".tar", ".tgz", ".gz", ".bz2", ".xz", ".zst", ".zip", ".7z", ".rar", ".deb", ".rpm", ".jar"}
	imageExtensions   = []string{".png", ".jpg", ".jpeg", ".gif", ".bmp", ".svg", ".webp", ".ico", ".tiff"}
)

func forced(attrs ...color.Attribute) *color.Color {
	c := color.New(attrs...)
	c.EnableColor()
	return c
}

// DefaultPalette is used when LS_COLORS is unset.
func DefaultPalette() *Palette {
	p := &Palette{
		Dir:        forced(color.FgBlue, color.Bold),
		Symlink:    forced(color.FgCyan),
		Executable: forced(color.FgGreen, color.Bold),
		Pipe:       forced(color.FgYellow),
		Socket:     forced(color.FgMagenta, color.Bold),
		BlockDev:   forced(color.FgYellow, color.Bold),
		CharDev:    forced(color.FgYellow, color.Bold),
		Error:      forced(color.FgRed),
		Extensions: make(map[string]*color.Color),
	}
	for _, ext := range archiveExtensions {
		p.Extensions[ext] = forced(color.FgRed, color.Bold)
	}
	for _, ext := range imageExtensions {
		p.Extensions[ext] = forced(color.FgMagenta)
	}
	return p
}

// ParseLSColors overlays an LS_COLORS value on the default palette.
// Unknown keys and malformed entries are ignored.
func ParseLSColors(spec string) *Palette {
	p := DefaultPalette()
	for _, field := range strings.Split(spec, ":") {
		key, value, ok := strings.Cut(field, "=")
		if !ok || value == "" {
			continue
		}
		c, ok := parseSGR(value)
		if !ok {
			continue
		}
		switch key {
		case "di":
			p.Dir = c
		case "ln":
			p.Symlink = c
		case "ex":
			p.Executable = c
		case "pi":
			p.Pipe = c
		case "so":
			p.Socket = c
		case "bd":
			p.BlockDev = c
		case "cd":
			p.CharDev = c
		case "or":
			p.Error = c
		default:
			if strings.HasPrefix(key, "*.") {
				p.Extensions[strings.ToLower(key[1:])] = c
			}
		}
	}
	return p
}

func parseSGR(value string) (*color.Color, bool) {
	var attrs []color.Attribute
	for _, part := range strings.Split(value, ";") {
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			return nil, false
		}
		attrs = append(attrs, color.Attribute(n))
	}
	return forced(attrs...), true
}

// colorFor picks the color of a node, or nil.
func (p *Palette) colorFor(n *tree.Node) *color.Color {
	switch n.Kind {
	case tree.Directory:
		return p.Dir
	case tree.Symlink:
		return p.Symlink
	case tree.ErrorMarker:
		return p.Error
	case tree.Special:
		mode := n.Meta.Mode
		switch {
		case mode&fs.ModeNamedPipe != 0:
			return p.Pipe
		case mode&fs.ModeSocket != 0:
			return p.Socket
		case mode&fs.ModeCharDevice != 0:
			return p.CharDev
		default:
			return p.BlockDev
		}
	}
	if c, ok := p.Extensions[strings.ToLower(path.Ext(n.Name))]; ok {
		return c
	}
	if n.Meta.Mode&0o111 != 0 {
		return p.Executable
	}
	return nil
}

// Paint colors text for n. A nil palette returns text unchanged.
func (p *Palette) Paint(n *tree.Node, text string) string {
	if p == nil {
		return text
	}
	c := p.colorFor(n)
	if c == nil {
		return text
	}
	return c.Sprint(text)
}
