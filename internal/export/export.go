package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dgnsrekt/saml_tracer/internal/session"
	"github.com/google/uuid"
)

// fileHeader versions the on-disk export format so a later import layer
// can recognize its own files.
const fileHeader = "<!-- samltrace export v1 -->"

// Exporter writes a session's messages to a delimited XML text file.
type Exporter struct {
	dir string
}

func NewExporter(dir string) *Exporter {
	return &Exporter{dir: dir}
}

// Export writes all messages to a uuid-named file under the export
// directory and returns its path and the number of messages written.
func (e *Exporter) Export(windowID string, messages []session.Message) (string, int, error) {
	dir := filepath.Join(e.dir, "export")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", 0, fmt.Errorf("export: mkdir %s: %w", dir, err)
	}

	var b strings.Builder
	b.WriteString(fileHeader)
	b.WriteString("\n")
	for _, m := range messages {
		fmt.Fprintf(&b, "<!-- message %d kind=%s transport=%s -->\n", m.ID, m.Kind, m.Transport)
		b.WriteString(m.XML)
		b.WriteString("\n")
	}

	path := filepath.Join(dir, uuid.New().String()+".xml")
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return "", 0, fmt.Errorf("export: write %s: %w", path, err)
	}
	return path, len(messages), nil
}
