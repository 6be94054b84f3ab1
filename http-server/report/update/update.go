package update

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/render"

	"robot-maint/internal/response"
	"robot-maint/internal/storage"
)

type DataPatcher interface {
	PatchData(ctx context.Context, componentID int64, data map[string]any, replace bool) (*storage.ReportComponent, error)
}

// PatchComponentData merges the body into the component data. PUT replaces it.
func PatchComponentData(log *slog.Logger, p DataPatcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.report.PatchComponentData"

		id, ok := response.IDParam(r, "id")
		if !ok {
			response.BadRequest(w, r, "invalid component id")
			return
		}

		var data map[string]any
		if err := render.DecodeJSON(r.Body, &data); err != nil || data == nil {
			response.BadRequest(w, r, "body must be a JSON object")
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		c, err := p.PatchData(ctx, id, data, r.Method == http.MethodPut)
		if err != nil {
			response.Fail(w, r, log, op, err)
			return
		}

		render.JSON(w, r, c)
	}
}
