package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/dgnsrekt/saml_tracer/internal/control"
	"github.com/dgnsrekt/saml_tracer/internal/session"
)

func registerMessageHandlers(api huma.API, svc Service) {
	type listOutput struct {
		Body struct {
			Messages []session.Message `json:"messages"`
			Count    int               `json:"count"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "list-messages", Method: http.MethodGet, Path: "/api/v1/windows/{window_id}/messages", Summary: "List captured SAML messages in capture order", Tags: []string{"Messages"}},
		func(ctx context.Context, input *windowInput) (*listOutput, error) {
			messages, err := svc.ListMessages(ctx, input.WindowID)
			if err != nil {
				return nil, mapErr(err)
			}
			out := &listOutput{}
			out.Body.Messages = messages
			out.Body.Count = len(messages)
			return out, nil
		})

	type clearOutput struct {
		Body struct {
			Status string `json:"status"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "clear-messages", Method: http.MethodDelete, Path: "/api/v1/windows/{window_id}/messages", Summary: "Clear all captured messages for a window", Tags: []string{"Messages"}},
		func(ctx context.Context, input *windowInput) (*clearOutput, error) {
			if err := svc.ClearMessages(ctx, input.WindowID); err != nil {
				return nil, mapErr(err)
			}
			out := &clearOutput{}
			out.Body.Status = "cleared"
			return out, nil
		})

	type importInput struct {
		WindowID string `path:"window_id"`
		Body     struct {
			XML []string `json:"xml" doc:"Raw XML blobs; non-XML entries are skipped, duplicates are rejected"`
		}
	}
	type importOutput struct {
		Body control.ImportResult
	}
	huma.Register(api, huma.Operation{OperationID: "import-messages", Method: http.MethodPost, Path: "/api/v1/windows/{window_id}/messages/import", Summary: "Import SAML XML blobs into a window's session", Tags: []string{"Messages"}},
		func(ctx context.Context, input *importInput) (*importOutput, error) {
			result, err := svc.ImportMessages(ctx, input.WindowID, input.Body.XML)
			if err != nil {
				return nil, mapErr(err)
			}
			out := &importOutput{}
			out.Body = result
			return out, nil
		})

	type exportOutput struct {
		Body control.ExportResult
	}
	huma.Register(api, huma.Operation{OperationID: "export-messages", Method: http.MethodPost, Path: "/api/v1/windows/{window_id}/messages/export", Summary: "Export a window's messages to a delimited XML file", Tags: []string{"Messages"}},
		func(ctx context.Context, input *windowInput) (*exportOutput, error) {
			result, err := svc.ExportMessages(ctx, input.WindowID)
			if err != nil {
				return nil, mapErr(err)
			}
			out := &exportOutput{}
			out.Body = result
			return out, nil
		})
}
