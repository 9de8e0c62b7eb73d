// Package api exposes cmd/pipelined's single HTTP surface, the submission
// endpoint. Ported from the teacher's api package: same martini-contrib/render
// JSON response shape and the same JsonErrorf error-rendering helper,
// generalized from the teacher's bucket/artifact REST resource tree down
// to the one route the pipeline needs (spec.md §4.14: "a Martini router
// exposing POST /submit").
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/martini-contrib/render"
	"github.com/rs/zerolog"

	"github.com/aodn/pipeline/model"
	"github.com/aodn/pipeline/registry"
)

type submitRequest struct {
	HandlerName string `json:"handler_name"`
	InputPath   string `json:"input_path"`
}

type submitResponse struct {
	Disposition string   `json:"disposition"`
	Stored      []string `json:"stored"`
	Overwrote   []string `json:"overwrote"`
	Archived    []string `json:"archived"`
	Harvested   []string `json:"harvested"`
	Failed      []string `json:"failed"`
}

// HandleSubmit is a martini handler, injected with render.Render the way
// the teacher's HandleCreateBucket/HandleGetBucket are: martini resolves
// the *http.Request and render.Render parameters by type, the same
// reflective-DI style server.go wires every route with.
func HandleSubmit(r render.Render, req *http.Request, ctx context.Context, logger *zerolog.Logger, handlers *registry.HandlerRegistry, scratchDir string) {
	var body submitRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		JsonErrorf(r, http.StatusBadRequest, "malformed JSON request")
		return
	}

	h, ok := handlers.Get(body.HandlerName)
	if !ok {
		JsonErrorf(r, http.StatusBadRequest, "unknown handler %q", body.HandlerName)
		return
	}

	state := model.NewHandlerState(ctx, logger, body.HandlerName, body.InputPath, scratchDir)
	result, err := h.Execute(state.Ctx, state)
	if err != nil && result == nil {
		JsonErrorf(r, http.StatusInternalServerError, "%s", err.Error())
		return
	}

	resp := submitResponse{Disposition: result.Disposition.String()}
	if result.Report != nil {
		resp.Stored = result.Report.Stored
		resp.Overwrote = result.Report.Overwrote
		resp.Archived = result.Report.Archived
		resp.Harvested = result.Report.Harvested
		resp.Failed = result.Report.Failed
	}

	status := http.StatusOK
	switch result.Disposition {
	case model.DispositionFailed, model.DispositionSystemError:
		status = http.StatusInternalServerError
	case model.DispositionCheckFailed:
		status = http.StatusUnprocessableEntity
	}

	r.JSON(status, resp)
}
