package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/dgnsrekt/saml_tracer/internal/cdp"
	"github.com/dgnsrekt/saml_tracer/internal/control"
	"github.com/dgnsrekt/saml_tracer/internal/relay"
	"github.com/dgnsrekt/saml_tracer/internal/session"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Service is the control-plane surface the API exposes.
type Service interface {
	SessionStatus(ctx context.Context, windowID string) (session.Status, error)
	StartCapture(ctx context.Context, windowID, rootTab string) (session.Status, error)
	StopCapture(ctx context.Context, windowID string) error
	ListMessages(ctx context.Context, windowID string) ([]session.Message, error)
	ClearMessages(ctx context.Context, windowID string) error
	ImportMessages(ctx context.Context, windowID string, blobs []string) (control.ImportResult, error)
	ExportMessages(ctx context.Context, windowID string) (control.ExportResult, error)
	ListTargets(ctx context.Context) ([]cdp.TargetSummary, error)
}

type windowInput struct {
	WindowID string `path:"window_id"`
}

func NewServer(svc Service, broker *relay.Broker) http.Handler {
	router := chi.NewMux()
	router.Use(middleware.RequestID)
	router.Use(requestLogger)
	router.Use(middleware.Recoverer)

	cfg := huma.DefaultConfig("SAML Tracer API", "1.0.0")
	cfg.DocsPath = ""
	api := humachi.New(router, cfg)

	router.Get("/docs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		if _, err := w.Write([]byte(docsHTML)); err != nil {
			slog.Debug("docs response write failed", "error", err)
		}
	})

	registerSessionHandlers(api, svc)
	registerMessageHandlers(api, svc)
	registerMiscHandlers(api, svc)

	router.Get("/api/v1/events", relay.SSEHandler(broker))
	router.Get("/api/v1/events/ws", relay.WSHandler(broker))

	return router
}

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	var coded *session.CodedError
	if errors.As(err, &coded) {
		switch coded.Code {
		case session.CodeValidation:
			return huma.Error400BadRequest(coded.Message)
		case session.CodeSessionExists:
			return huma.Error409Conflict(coded.Message)
		case session.CodeSessionNotFound:
			return huma.Error404NotFound(coded.Message)
		case session.CodeCDPUnavailable:
			return huma.Error502BadGateway(coded.Message)
		default:
			return huma.Error500InternalServerError(fmt.Sprintf("%s: %s", coded.Code, coded.Message))
		}
	}
	return huma.Error500InternalServerError(err.Error())
}
