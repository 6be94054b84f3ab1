package get

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/render"

	"robot-maint/internal/response"
	"robot-maint/internal/service/purchase"
	"robot-maint/internal/storage"
)

type PurchaseOrderProvider interface {
	GetByIntervention(ctx context.Context, interventionID int64) (*storage.PurchaseOrder, error)
	GetAggregated(ctx context.Context, id int64) (*purchase.Aggregated, error)
}

func GetByIntervention(log *slog.Logger, p PurchaseOrderProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.purchase_order.GetByIntervention"

		interventionID, ok := response.IDParam(r, "intervention_id")
		if !ok {
			response.BadRequest(w, r, "invalid intervention id")
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		po, err := p.GetByIntervention(ctx, interventionID)
		if err != nil {
			response.Fail(w, r, log, op, err)
			return
		}

		render.JSON(w, r, po)
	}
}

func GetAggregated(log *slog.Logger, p PurchaseOrderProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.purchase_order.GetAggregated"

		id, ok := response.IDParam(r, "id")
		if !ok {
			response.BadRequest(w, r, "invalid purchase order id")
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		out, err := p.GetAggregated(ctx, id)
		if err != nil {
			response.Fail(w, r, log, op, err)
			return
		}

		render.JSON(w, r, out)
	}
}
