package save

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/render"

	"robot-maint/internal/response"
	"robot-maint/internal/storage"
)

type PurchaseOrderGenerator interface {
	Generate(ctx context.Context, interventionID int64) (*storage.PurchaseOrder, error)
}

// GeneratePurchaseOrder prices the intervention and stores its only purchase order.
func GeneratePurchaseOrder(log *slog.Logger, g PurchaseOrderGenerator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.purchase_order.GeneratePurchaseOrder"

		interventionID, ok := response.IDParam(r, "intervention_id")
		if !ok {
			response.BadRequest(w, r, "invalid intervention id")
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
		defer cancel()

		po, err := g.Generate(ctx, interventionID)
		if err != nil {
			response.Fail(w, r, log, op, err)
			return
		}

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, po)
	}
}
