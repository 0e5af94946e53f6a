package output

import (
	"path/filepath"
	"strings"

	"github.com/sonemaro/arbor/pkg/tree"
)

// Glyphs come from the Nerd Fonts private use area; without a patched font
// they show as placeholder boxes.
const (
	iconDirectory = "\uf115"
	iconSymlink   = "\uf481"
	iconFile      = "\uf15b"
	iconError     = "\uf071"
	iconSpecial   = "\uf0a0"
)

// iconsByName wins over the extension table.
var iconsByName = map[string]string{
	".git":         "\ue5fb",
	".gitignore":   "\ue702",
	".gitmodules":  "\ue702",
	"dockerfile":   "\uf308",
	"makefile":     "\ue779",
	"go.mod":       "\ue627",
	"go.sum":       "\ue627",
	"cargo.toml":   "\ue7a8",
	"cargo.lock":   "\ue7a8",
	"license":      "\uf48a",
	"package.json": "\ue71e",
}

var iconsByExt = map[string]string{
	".go":   "\ue627",
	".rs":   "\ue7a8",
	".py":   "\ue606",
	".js":   "\ue74e",
	".ts":   "\ue628",
	".c":    "\ue61e",
	".h":    "\uf0fd",
	".cpp":  "\ue61d",
	".java": "\ue738",
	".rb":   "\ue21e",
	".sh":   "\uf489",
	".md":   "\uf48a",
	".json": "\ue60b",
	".yaml": "\ue6a8",
	".yml":  "\ue6a8",
	".toml": "\ue6b2",
	".html": "\uf13b",
	".css":  "\ue749",
	".txt":  "\uf15c",
	".lock": "\uf023",
	".zip":  "\uf410",
	".gz":   "\uf410",
	".tar":  "\uf410",
	".png":  "\uf1c5",
	".jpg":  "\uf1c5",
	".svg":  "\uf1c5",
	".pdf":  "\uf1c1",
}

// iconFor picks the glyph for n by kind, then by name, then by extension.
func iconFor(n *tree.Node) string {
	switch n.Kind {
	case tree.Directory:
		if icon, ok := iconsByName[n.Name]; ok {
			return icon
		}
		return iconDirectory
	case tree.Symlink:
		return iconSymlink
	case tree.ErrorMarker:
		return iconError
	case tree.Special:
		return iconSpecial
	}

	name := strings.ToLower(n.Name)
	if icon, ok := iconsByName[name]; ok {
		return icon
	}
	if icon, ok := iconsByExt[filepath.Ext(name)]; ok {
		return icon
	}
	return iconFile
}
