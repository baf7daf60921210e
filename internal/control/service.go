package control

import (
	"context"
	"strings"

	"github.com/dgnsrekt/saml_tracer/internal/cdp"
	"github.com/dgnsrekt/saml_tracer/internal/export"
	"github.com/dgnsrekt/saml_tracer/internal/relay"
	"github.com/dgnsrekt/saml_tracer/internal/session"
)

// TargetDirectory is the subset of the CDP client the control plane needs.
type TargetDirectory interface {
	ListPages(ctx context.Context) ([]cdp.TargetSummary, error)
	WindowForTab(ctx context.Context, tabID string) (string, error)
}

// ImportResult reports how an import batch fared.
type ImportResult struct {
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
}

// ExportResult reports where an export landed.
type ExportResult struct {
	Path  string `json:"path,omitempty"`
	Count int    `json:"count"`
}

// Service exposes capture-session control operations to the API layer.
type Service struct {
	registry *session.Registry
	broker   *relay.Broker
	targets  TargetDirectory
	exporter *export.Exporter
}

func NewService(registry *session.Registry, broker *relay.Broker, targets TargetDirectory, exporter *export.Exporter) *Service {
	return &Service{registry: registry, broker: broker, targets: targets, exporter: exporter}
}

// SessionStatus reports the window's session state. A window with no
// session yields a non-capturing zero status, not an error.
func (s *Service) SessionStatus(ctx context.Context, windowID string) (session.Status, error) {
	_ = ctx
	sess, ok := s.registry.Get(windowID)
	if !ok {
		return session.Status{Capturing: false, WindowID: windowID}, nil
	}
	return sess.Status(), nil
}

// StartCapture creates a session rooted at rootTab. When windowID is
// empty the owning window is resolved from the tab over CDP.
func (s *Service) StartCapture(ctx context.Context, windowID, rootTab string) (session.Status, error) {
	if strings.TrimSpace(rootTab) == "" {
		return session.Status{}, session.NewError(session.CodeValidation, "root_tab is required", nil)
	}

	if windowID == "" {
		if s.targets == nil {
			return session.Status{}, session.NewError(session.CodeValidation, "window_id is required", nil)
		}
		resolved, err := s.targets.WindowForTab(ctx, rootTab)
		if err != nil {
			return session.Status{}, session.NewError(session.CodeCDPUnavailable, "could not resolve window for tab "+rootTab, err)
		}
		windowID = resolved
	}

	sess, err := s.registry.StartCapture(windowID, rootTab)
	if err != nil {
		return session.Status{}, err
	}
	return sess.Status(), nil
}

// StopCapture destroys the window's session; always succeeds.
func (s *Service) StopCapture(ctx context.Context, windowID string) error {
	_ = ctx
	s.registry.StopCapture(windowID)
	return nil
}

// ListMessages returns the window's captured messages in insertion order,
// empty when no session exists.
func (s *Service) ListMessages(ctx context.Context, windowID string) ([]session.Message, error) {
	_ = ctx
	sess, ok := s.registry.Get(windowID)
	if !ok {
		return []session.Message{}, nil
	}
	return sess.Messages(), nil
}

// ClearMessages empties the window's message log and notifies subscribers.
// No-op for windows without a session.
func (s *Service) ClearMessages(ctx context.Context, windowID string) error {
	_ = ctx
	sess, ok := s.registry.Get(windowID)
	if !ok {
		return nil
	}
	sess.Clear()
	s.broker.Publish(windowID, 0)
	return nil
}

// ImportMessages stores XML blobs through the shared dedup/store/evict
// path and notifies subscribers when anything landed.
func (s *Service) ImportMessages(ctx context.Context, windowID string, blobs []string) (ImportResult, error) {
	_ = ctx
	sess, ok := s.registry.Get(windowID)
	if !ok {
		return ImportResult{Skipped: len(blobs)}, nil
	}

	imported := sess.Import(blobs)
	if imported > 0 {
		s.broker.Publish(windowID, sess.MessageCount())
	}
	return ImportResult{Imported: imported, Skipped: len(blobs) - imported}, nil
}

// ExportMessages writes the window's messages to a delimited XML file.
// A window without a session exports nothing.
func (s *Service) ExportMessages(ctx context.Context, windowID string) (ExportResult, error) {
	_ = ctx
	sess, ok := s.registry.Get(windowID)
	if !ok {
		return ExportResult{}, nil
	}

	path, count, err := s.exporter.Export(windowID, sess.Messages())
	if err != nil {
		return ExportResult{}, session.NewError(session.CodeExportFailure, "export failed for window "+windowID, err)
	}
	return ExportResult{Path: path, Count: count}, nil
}

// ListTargets enumerates attachable page targets.
func (s *Service) ListTargets(ctx context.Context) ([]cdp.TargetSummary, error) {
	if s.targets == nil {
		return []cdp.TargetSummary{}, nil
	}
	summaries, err := s.targets.ListPages(ctx)
	if err != nil {
		return nil, session.NewError(session.CodeCDPUnavailable, "target enumeration failed", err)
	}
	return summaries, nil
}
