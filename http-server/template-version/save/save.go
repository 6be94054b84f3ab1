package save

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/render"

	"robot-maint/internal/response"
	"robot-maint/internal/schema"
	"robot-maint/internal/storage"
)

type VersionCreator interface {
	CreateVersion(ctx context.Context, modelID int64, initial *schema.Schema, notes string) (*storage.TemplateVersion, error)
}

// CreateVersion appends a draft version to a model. Without a schema the draft starts empty.
func CreateVersion(log *slog.Logger, c VersionCreator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.template_version.CreateVersion"

		modelID, ok := response.IDParam(r, "model_id")
		if !ok {
			response.BadRequest(w, r, "invalid model id")
			return
		}

		var req struct {
			Schema *schema.Schema `json:"schema"`
			Notes  string         `json:"notes"`
		}
		if err := render.DecodeJSON(r.Body, &req); err != nil {
			response.BadRequest(w, r, "invalid JSON")
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		v, err := c.CreateVersion(ctx, modelID, req.Schema, req.Notes)
		if err != nil {
			response.Fail(w, r, log, op, err)
			return
		}

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, v)
	}
}
