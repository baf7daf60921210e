package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/dgnsrekt/saml_tracer/internal/cdp"
)

func registerMiscHandlers(api huma.API, svc Service) {
	type healthOutput struct {
		Body struct {
			Status string `json:"status"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "health", Method: http.MethodGet, Path: "/health", Summary: "Health check", Tags: []string{"Health"}},
		func(ctx context.Context, input *struct{}) (*healthOutput, error) {
			out := &healthOutput{}
			out.Body.Status = "ok"
			return out, nil
		})

	type targetsOutput struct {
		Body struct {
			Targets []cdp.TargetSummary `json:"targets"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "list-targets", Method: http.MethodGet, Path: "/api/v1/targets", Summary: "List attachable page targets", Tags: []string{"Targets"}},
		func(ctx context.Context, input *struct{}) (*targetsOutput, error) {
			targets, err := svc.ListTargets(ctx)
			if err != nil {
				return nil, mapErr(err)
			}
			out := &targetsOutput{}
			out.Body.Targets = targets
			return out, nil
		})
}
