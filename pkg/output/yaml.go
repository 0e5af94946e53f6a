package output

import (
	"io"

	"gopkg.in/yaml.v3"

	"github.com/sonemaro/arbor/pkg/logger"
)

func (f *formatter) writeYAML(w io.Writer, doc *Document) error {
	f.log.Debug("Formatting YAML output")

	// Reuse JSON structure for YAML output
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(f.document(doc)); err != nil {
		f.log.WithFields(logger.Fields{
			"error": err,
		}).Error("Failed to marshal YAML")
		return err
	}
	return enc.Close()
}
