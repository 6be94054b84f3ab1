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

type OfferProvider interface {
	Get(ctx context.Context, id int64) (*storage.Offer, error)
}

func GetOffer(log *slog.Logger, p OfferProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.offer.GetOffer"

		id, ok := response.IDParam(r, "id")
		if !ok {
			response.BadRequest(w, r, "invalid offer id")
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		o, err := p.Get(ctx, id)
		if err != nil {
			response.Fail(w, r, log, op, err)
			return
		}

		render.JSON(w, r, o)
	}
}
