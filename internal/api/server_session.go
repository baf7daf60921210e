package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/dgnsrekt/saml_tracer/internal/session"
)

func registerSessionHandlers(api huma.API, svc Service) {
	type statusOutput struct {
		Body session.Status
	}
	huma.Register(api, huma.Operation{OperationID: "get-session", Method: http.MethodGet, Path: "/api/v1/windows/{window_id}/session", Summary: "Get capture session status for a window", Tags: []string{"Session"}},
		func(ctx context.Context, input *windowInput) (*statusOutput, error) {
			status, err := svc.SessionStatus(ctx, input.WindowID)
			if err != nil {
				return nil, mapErr(err)
			}
			out := &statusOutput{}
			out.Body = status
			return out, nil
		})

	type startInput struct {
		WindowID string `path:"window_id"`
		Body     struct {
			RootTab string `json:"root_tab" doc:"Target ID of the tab to trace; spawned tabs join the session automatically"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "start-capture", Method: http.MethodPost, Path: "/api/v1/windows/{window_id}/session", Summary: "Start capturing SAML traffic for a window", Tags: []string{"Session"}},
		func(ctx context.Context, input *startInput) (*statusOutput, error) {
			windowID := input.WindowID
			if windowID == "auto" {
				// Resolve the owning window from the root tab over CDP.
				windowID = ""
			}
			status, err := svc.StartCapture(ctx, windowID, input.Body.RootTab)
			if err != nil {
				return nil, mapErr(err)
			}
			out := &statusOutput{}
			out.Body = status
			return out, nil
		})

	type stopOutput struct {
		Body struct {
			Status string `json:"status"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "stop-capture", Method: http.MethodDelete, Path: "/api/v1/windows/{window_id}/session", Summary: "Stop capturing for a window", Tags: []string{"Session"}},
		func(ctx context.Context, input *windowInput) (*stopOutput, error) {
			if err := svc.StopCapture(ctx, input.WindowID); err != nil {
				return nil, mapErr(err)
			}
			out := &stopOutput{}
			out.Body.Status = "stopped"
			return out, nil
		})
}
