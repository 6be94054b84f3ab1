package remove

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"robot-maint/internal/response"
)

type PurchaseOrderDeleter interface {
	Delete(ctx context.Context, id int64) error
}

func DeletePurchaseOrder(log *slog.Logger, d PurchaseOrderDeleter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.purchase_order.DeletePurchaseOrder"

		id, ok := response.IDParam(r, "id")
		if !ok {
			response.BadRequest(w, r, "invalid purchase order id")
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		if err := d.Delete(ctx, id); err != nil {
			response.Fail(w, r, log, op, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}
