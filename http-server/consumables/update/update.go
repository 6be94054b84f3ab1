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

type LevelsUpdater interface {
	UpdateModelLevels(ctx context.Context, modelID int64, levels []storage.Level) (*storage.ComponentModel, error)
}

func UpdateModelLevels(log *slog.Logger, u LevelsUpdater) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.consumables.UpdateModelLevels"

		modelID, ok := response.IDParam(r, "model_id")
		if !ok {
			response.BadRequest(w, r, "invalid model id")
			return
		}

		var req struct {
			Levels []storage.Level `json:"levels"`
		}
		if err := render.DecodeJSON(r.Body, &req); err != nil {
			response.BadRequest(w, r, "invalid JSON")
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		m, err := u.UpdateModelLevels(ctx, modelID, req.Levels)
		if err != nil {
			response.Fail(w, r, log, op, err)
			return
		}

		render.JSON(w, r, m)
	}
}
