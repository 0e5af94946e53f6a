package output

import (
	"encoding/json"
	"io"
	"time"

	"github.com/sonemaro/arbor/pkg/logger"
	"github.com/sonemaro/arbor/pkg/tree"
)

// jsonNode represents a node in JSON and YAML output
type jsonNode struct {
	Name     string      `json:"name" yaml:"name"`
	Path     string      `json:"path" yaml:"path"`
	Type     string      `json:"type" yaml:"type"`
	Size     int64       `json:"size" yaml:"size"`
	Apparent int64       `json:"apparent_size" yaml:"apparent_size"`
	Disk     int64       `json:"disk_size" yaml:"disk_size"`
	ModTime  time.Time   `json:"mod_time" yaml:"mod_time"`
	Target   string      `json:"target,omitempty" yaml:"target,omitempty"`
	Error    string      `json:"error,omitempty" yaml:"error,omitempty"`
	Children []*jsonNode `json:"children,omitempty" yaml:"children,omitempty"`
}

// jsonOutput represents the complete JSON output
type jsonOutput struct {
	Root       *jsonNode `json:"root" yaml:"root"`
	Mode       string    `json:"mode" yaml:"mode"`
	Partial    bool      `json:"partial" yaml:"partial"`
	Statistics *stats    `json:"statistics,omitempty" yaml:"statistics,omitempty"`
	Generated  time.Time `json:"generated" yaml:"generated"`
}

func (f *formatter) document(doc *Document) *jsonOutput {
	out := &jsonOutput{
		Root:      f.convertToJSONNode(doc.Tree, doc.Tree.Root()),
		Mode:      f.config.Mode.String(),
		Partial:   doc.Partial,
		Generated: time.Now(),
	}
	if f.config.WithStats {
		f.log.Debug("Adding statistics to structured output")
		out.Statistics = f.calculateStats(doc)
	}
	return out
}

func (f *formatter) writeJSON(w io.Writer, doc *Document) error {
	f.log.Debug("Formatting JSON output")

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(f.document(doc)); err != nil {
		f.log.WithFields(logger.Fields{
			"error": err,
		}).Error("Failed to marshal JSON")
		return err
	}
	return nil
}

func (f *formatter) convertToJSONNode(t *tree.Tree, id tree.NodeID) *jsonNode {
	n := t.Node(id)

	f.log.WithFields(logger.Fields{
		"node": n.Name,
		"type": n.Kind,
	}).Trace("Converting node to structured format")

	jNode := &jsonNode{
		Name:     n.Name,
		Path:     t.RelPath(id),
		Type:     n.Kind.String(),
		Size:     f.config.displaySize(n),
		Apparent: n.ApparentTotal,
		Disk:     n.DiskTotal,
		ModTime:  n.Meta.ModTime,
		Target:   n.LinkTarget,
	}
	if n.Kind == tree.ErrorMarker {
		jNode.Error = shortError(n.Err)
	}

	children := f.config.visibleChildren(t, n)
	if len(children) > 0 {
		jNode.Children = make([]*jsonNode, len(children))
		for i, c := range children {
			jNode.Children[i] = f.convertToJSONNode(t, c)
		}
	}

	return jNode
}
