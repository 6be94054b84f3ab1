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

type PurchaseOrderUpdater interface {
	Update(ctx context.Context, id int64, upd storage.PurchaseOrderUpdate) (*storage.PurchaseOrder, error)
}

// UpdatePurchaseOrder changes state, notes or lines. Absent fields are left untouched.
func UpdatePurchaseOrder(log *slog.Logger, u PurchaseOrderUpdater) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.purchase_order.UpdatePurchaseOrder"

		id, ok := response.IDParam(r, "id")
		if !ok {
			response.BadRequest(w, r, "invalid purchase order id")
			return
		}

		var upd storage.PurchaseOrderUpdate
		if err := render.DecodeJSON(r.Body, &upd); err != nil {
			response.BadRequest(w, r, "invalid JSON")
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		po, err := u.Update(ctx, id, upd)
		if err != nil {
			response.Fail(w, r, log, op, err)
			return
		}

		render.JSON(w, r, po)
	}
}
