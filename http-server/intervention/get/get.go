package get

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/render"

	"robot-maint/internal/response"
	"robot-maint/internal/storage"
)

type InterventionProvider interface {
	GetIntervention(ctx context.Context, id int64) (*storage.Intervention, error)
}

func GetIntervention(log *slog.Logger, p InterventionProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.intervention.GetIntervention"

		id, ok := response.IDParam(r, "id")
		if !ok {
			response.BadRequest(w, r, "invalid intervention id")
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		in, err := p.GetIntervention(ctx, id)
		if err != nil {
			response.Fail(w, r, log, op, err)
			return
		}

		render.JSON(w, r, in)
	}
}
