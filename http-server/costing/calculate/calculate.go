package calculate

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/render"

	"robot-maint/internal/response"
	"robot-maint/internal/service/costing"
	"robot-maint/internal/storage"
)

type TotalsCalculator interface {
	ComputeTotals(ctx context.Context, selections []storage.Selection) (costing.Totals, error)
	GenerateLines(ctx context.Context, selections []storage.Selection) (costing.Result, error)
}

type Request struct {
	Selections []storage.Selection `json:"selections"`
	WithLines  bool                `json:"with_lines"`
}

// CalculateTotals prices an ad-hoc selection without storing anything.
func CalculateTotals(log *slog.Logger, calc TotalsCalculator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handler.costing.CalculateTotals"

		var req Request
		if err := render.DecodeJSON(r.Body, &req); err != nil {
			response.BadRequest(w, r, "invalid JSON")
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		if req.WithLines {
			res, err := calc.GenerateLines(ctx, req.Selections)
			if err != nil {
				response.Fail(w, r, log, op, err)
				return
			}
			render.JSON(w, r, res)
			return
		}

		totals, err := calc.ComputeTotals(ctx, req.Selections)
		if err != nil {
			response.Fail(w, r, log, op, err)
			return
		}

		render.JSON(w, r, totals)
	}
}
