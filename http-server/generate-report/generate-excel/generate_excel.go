package generate_excel

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"robot-maint/internal/response"
)

type GenerateExcelHandler interface {
	GeneratePurchaseOrder(ctx context.Context, id int64) ([]byte, error)
}

func PurchaseOrderExcel(log *slog.Logger, gen GenerateExcelHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handler.purchase_order.PurchaseOrderExcel"

		id, ok := response.IDParam(r, "id")
		if !ok {
			response.BadRequest(w, r, "invalid purchase order id")
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
		defer cancel()

		excelBytes, err := gen.GeneratePurchaseOrder(ctx, id)
		if err != nil {
			response.Fail(w, r, log, op, err)
			return
		}

		fileName := fmt.Sprintf("purchase_order_%d_%s.xlsx", id, time.Now().Format("2006-01-02_150405"))

		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", "attachment; filename="+fileName)
		w.Write(excelBytes)
	}
}
