package update

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

type VersionUpdater interface {
	UpdateVersion(ctx context.Context, id int64, sch schema.Schema, notes string) (*storage.TemplateVersion, error)
	SetVersionState(ctx context.Context, id int64, state storage.VersionState) (*storage.TemplateVersion, error)
}

func UpdateVersion(log *slog.Logger, u VersionUpdater) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.template_version.UpdateVersion"

		id, ok := response.IDParam(r, "id")
		if !ok {
			response.BadRequest(w, r, "invalid version id")
			return
		}

		var req struct {
			Schema schema.Schema `json:"schema"`
			Notes  string        `json:"notes"`
		}
		if err := render.DecodeJSON(r.Body, &req); err != nil {
			response.BadRequest(w, r, "invalid JSON")
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		v, err := u.UpdateVersion(ctx, id, req.Schema, req.Notes)
		if err != nil {
			response.Fail(w, r, log, op, err)
			return
		}

		render.JSON(w, r, v)
	}
}

// SetVersionState activates, obsoletes or reverts a version to draft.
func SetVersionState(log *slog.Logger, u VersionUpdater) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.template_version.SetVersionState"

		id, ok := response.IDParam(r, "id")
		if !ok {
			response.BadRequest(w, r, "invalid version id")
			return
		}

		var req struct {
			State storage.VersionState `json:"state"`
		}
		if err := render.DecodeJSON(r.Body, &req); err != nil {
			response.BadRequest(w, r, "invalid JSON")
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		v, err := u.SetVersionState(ctx, id, req.State)
		if err != nil {
			response.Fail(w, r, log, op, err)
			return
		}

		render.JSON(w, r, v)
	}
}
