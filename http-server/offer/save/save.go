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

type OfferCreator interface {
	Create(ctx context.Context, in offer.Input) (*storage.Offer, error)
}

type InterventionGenerator interface {
	GenerateIntervention(ctx context.Context, offerID int64) (*storage.Intervention, error)
}

func CreateOffer(log *slog.Logger, c OfferCreator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.offer.CreateOffer"

		var req offer.Input
		if err := render.DecodeJSON(r.Body, &req); err != nil {
			response.BadRequest(w, r, "invalid JSON")
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
		defer cancel()

		o, err := c.Create(ctx, req)
		if err != nil {
			response.Fail(w, r, log, op, err)
			return
		}

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, o)
	}
}

// GenerateIntervention turns an approved offer into an intervention, once.
func GenerateIntervention(log *slog.Logger, g InterventionGenerator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.offer.GenerateIntervention"

		id, ok := response.IDParam(r, "id")
		if !ok {
			response.BadRequest(w, r, "invalid offer id")
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		in, err := g.GenerateIntervention(ctx, id)
		if err != nil {
			response.Fail(w, r, log, op, err)
			return
		}

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, in)
	}
}
