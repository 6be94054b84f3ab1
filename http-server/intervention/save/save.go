package save

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/render"

	"robot-maint/internal/response"
	"robot-maint/internal/service/offer"
	"robot-maint/internal/storage"
)

type InterventionCreator interface {
	CreateIntervention(ctx context.Context, in offer.Input) (*storage.Intervention, error)
}

func CreateIntervention(log *slog.Logger, c InterventionCreator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.intervention.CreateIntervention"

		var req offer.Input
		if err := render.DecodeJSON(r.Body, &req); err != nil {
			response.BadRequest(w, r, "invalid JSON")
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		in, err := c.CreateIntervention(ctx, req)
		if err != nil {
			response.Fail(w, r, log, op, err)
			return
		}

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, in)
	}
}
