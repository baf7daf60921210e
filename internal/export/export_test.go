package export

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dgnsrekt/saml_tracer/internal/saml"
	"github.com/dgnsrekt/saml_tracer/internal/session"
)

func TestExport(t *testing.T) {
	dir := t.TempDir()
	e := NewExporter(dir)

	msgs := []session.Message{
		{ID: 1, Kind: saml.KindRequest, Transport: saml.TransportGET, XML: "<samlp:AuthnRequest/>"},
		{ID: 2, Kind: saml.KindResponse, Transport: saml.TransportPOST, XML: "<samlp:Response/>"},
	}
	path, count, err := e.Export("win-1", msgs)
	if err != nil {
		t.Fatalf("Export() error: %v", err)
	}
	if count != 2 {
		t.Fatalf("Export() count = %d, want 2", count)
	}
	if filepath.Dir(path) != filepath.Join(dir, "export") || !strings.HasSuffix(path, ".xml") {
		t.Fatalf("Export() path = %q", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading export file: %v", err)
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	want := []string{
		"<!-- samltrace export v1 -->",
		"<!-- message 1 kind=SAMLRequest transport=GET -->",
		"<samlp:AuthnRequest/>",
		"<!-- message 2 kind=SAMLResponse transport=POST -->",
		"<samlp:Response/>",
	}
	if len(lines) != len(want) {
		t.Fatalf("export has %d lines, want %d:\n%s", len(lines), len(want), data)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Fatalf("line %d = %q, want %q", i, lines[i], want[i])
		}
	}
}

func TestExportEmptySession(t *testing.T) {
	e := NewExporter(t.TempDir())

	path, count, err := e.Export("win-1", nil)
	if err != nil {
		t.Fatalf("Export() error: %v", err)
	}
	if count != 0 {
		t.Fatalf("Export() count = %d, want 0", count)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading export file: %v", err)
	}
	if strings.TrimSpace(string(data)) != "<!-- samltrace export v1 -->" {
		t.Fatalf("empty export content = %q", data)
	}
}

func TestArchiveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	r := NewArchiveRegistry(dir, 16, 5)

	r.Write("win-1", session.Message{ID: 1, Kind: saml.KindResponse, XML: "<Response/>"})
	r.Write("win-1", session.Message{ID: 2, Kind: saml.KindRequest, XML: "<AuthnRequest/>"})
	if err := r.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "archive", "win-1.jsonl"))
	if err != nil {
		t.Fatalf("reading archive: %v", err)
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("archive has %d lines, want 2:\n%s", len(lines), data)
	}
	for i, line := range lines {
		var m session.Message
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			t.Fatalf("line %d is not valid JSON: %v", i, err)
		}
		if m.ID != int64(i+1) {
			t.Fatalf("line %d id = %d, want %d", i, m.ID, i+1)
		}
	}
}

func TestArchiveWriterClosedRejectsWrites(t *testing.T) {
	w := newArchiveWriter(t.TempDir(), "win-1", 4, 5)
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}
	if err := w.Write(session.Message{ID: 1}); err == nil {
		t.Fatalf("Write() after Close() succeeded")
	}
}
