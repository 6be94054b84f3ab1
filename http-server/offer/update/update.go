package update

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

type OfferUpdater interface {
	Update(ctx context.Context, id int64, in offer.Input) (*storage.Offer, error)
	Recalculate(ctx context.Context, id int64) (*storage.Offer, error)
	SetState(ctx context.Context, id int64, to storage.OfferState) (*storage.Offer, error)
}

func UpdateOffer(log *slog.Logger, u OfferUpdater) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.offer.UpdateOffer"

		id, ok := response.IDParam(r, "id")
		if !ok {
			response.BadRequest(w, r, "invalid offer id")
			return
		}

		var req offer.Input
		if err := render.DecodeJSON(r.Body, &req); err != nil {
			response.BadRequest(w, r, "invalid JSON")
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
		defer cancel()

		o, err := u.Update(ctx, id, req)
		if err != nil {
			response.Fail(w, r, log, op, err)
			return
		}

		render.JSON(w, r, o)
	}
}

func RecalculateOffer(log *slog.Logger, u OfferUpdater) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.offer.RecalculateOffer"

		id, ok := response.IDParam(r, "id")
		if !ok {
			response.BadRequest(w, r, "invalid offer id")
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
		defer cancel()

		o, err := u.Recalculate(ctx, id)
		if err != nil {
			response.Fail(w, r, log, op, err)
			return
		}

		render.JSON(w, r, o)
	}
}

func SetOfferState(log *slog.Logger, u OfferUpdater) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.offer.SetOfferState"

		id, ok := response.IDParam(r, "id")
		if !ok {
			response.BadRequest(w, r, "invalid offer id")
			return
		}

		var req struct {
			State storage.OfferState `json:"state"`
		}
		if err := render.DecodeJSON(r.Body, &req); err != nil {
			response.BadRequest(w, r, "invalid JSON")
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		o, err := u.SetState(ctx, id, req.State)
		if err != nil {
			response.Fail(w, r, log, op, err)
			return
		}

		render.JSON(w, r, o)
	}
}
