package get

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

type VersionProvider interface {
	ListVersions(ctx context.Context, modelID int64) ([]storage.TemplateVersion, error)
	GetVersion(ctx context.Context, id int64) (*storage.TemplateVersion, error)
	GetActiveVersion(ctx context.Context, modelID int64) (*storage.TemplateVersion, error)
}

type VersionPreviewer interface {
	PreviewVersion(ctx context.Context, id int64, values map[string]any) (schema.Schema, error)
}

func ListVersions(log *slog.Logger, p VersionProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.template_version.ListVersions"

		modelID, ok := response.IDParam(r, "model_id")
		if !ok {
			response.BadRequest(w, r, "invalid model id")
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		versions, err := p.ListVersions(ctx, modelID)
		if err != nil {
			response.Fail(w, r, log, op, err)
			return
		}

		render.JSON(w, r, versions)
	}
}

func GetVersion(log *slog.Logger, p VersionProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.template_version.GetVersion"

		id, ok := response.IDParam(r, "id")
		if !ok {
			response.BadRequest(w, r, "invalid version id")
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		v, err := p.GetVersion(ctx, id)
		if err != nil {
			response.Fail(w, r, log, op, err)
			return
		}

		render.JSON(w, r, v)
	}
}

func GetActiveVersion(log *slog.Logger, p VersionProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.template_version.GetActiveVersion"

		modelID, ok := response.IDParam(r, "model_id")
		if !ok {
			response.BadRequest(w, r, "invalid model id")
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		v, err := p.GetActiveVersion(ctx, modelID)
		if err != nil {
			response.Fail(w, r, log, op, err)
			return
		}

		render.JSON(w, r, v)
	}
}

// PreviewVersion resolves the placeholders of a version against caller supplied values.
// Unknown tokens stay visible.
func PreviewVersion(log *slog.Logger, p VersionPreviewer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.template_version.PreviewVersion"

		id, ok := response.IDParam(r, "id")
		if !ok {
			response.BadRequest(w, r, "invalid version id")
			return
		}

		var req struct {
			Values map[string]any `json:"values"`
		}
		if r.ContentLength != 0 {
			if err := render.DecodeJSON(r.Body, &req); err != nil {
				response.BadRequest(w, r, "invalid JSON")
				return
			}
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		out, err := p.PreviewVersion(ctx, id, req.Values)
		if err != nil {
			response.Fail(w, r, log, op, err)
			return
		}

		render.JSON(w, r, out)
	}
}
