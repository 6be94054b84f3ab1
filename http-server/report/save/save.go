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

type ReportCreator interface {
	CreateReport(ctx context.Context, interventionID, systemID int64, overrides map[int64]int64) (*storage.Report, error)
}

type Request struct {
	InterventionID int64 `json:"intervention_id"`
	SystemID       int64 `json:"system_id"`
	// Versions pins a template version per component model id instead of the active one.
	Versions map[int64]int64 `json:"versions,omitempty"`
}

func CreateReport(log *slog.Logger, c ReportCreator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.report.CreateReport"

		var req Request
		if err := render.DecodeJSON(r.Body, &req); err != nil {
			response.BadRequest(w, r, "invalid JSON")
			return
		}
		if req.InterventionID <= 0 || req.SystemID <= 0 {
			response.BadRequest(w, r, "intervention_id and system_id are required")
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
		defer cancel()

		report, err := c.CreateReport(ctx, req.InterventionID, req.SystemID, req.Versions)
		if err != nil {
			response.Fail(w, r, log, op, err)
			return
		}

		log.Info("report created", slog.String("op", op), slog.Int64("report_id", report.ID))

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, report)
	}
}
