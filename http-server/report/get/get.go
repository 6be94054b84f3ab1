package get

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/render"

	"robot-maint/internal/placeholder"
	"robot-maint/internal/response"
	"robot-maint/internal/service/report"
	"robot-maint/internal/storage"
)

type ReportProvider interface {
	GetReport(ctx context.Context, id int64) (*storage.Report, error)
	GetComponent(ctx context.Context, id int64) (*storage.ReportComponent, error)
}

type ReportAssembler interface {
	AssembleReport(ctx context.Context, reportID int64, policy placeholder.Policy) (*report.Assembled, error)
}

func GetReport(log *slog.Logger, p ReportProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.report.GetReport"

		id, ok := response.IDParam(r, "id")
		if !ok {
			response.BadRequest(w, r, "invalid report id")
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		rep, err := p.GetReport(ctx, id)
		if err != nil {
			response.Fail(w, r, log, op, err)
			return
		}

		render.JSON(w, r, rep)
	}
}

func GetComponent(log *slog.Logger, p ReportProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.report.GetComponent"

		id, ok := response.IDParam(r, "id")
		if !ok {
			response.BadRequest(w, r, "invalid component id")
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		c, err := p.GetComponent(ctx, id)
		if err != nil {
			response.Fail(w, r, log, op, err)
			return
		}

		render.JSON(w, r, c)
	}
}

// AssembleReport returns the report with placeholders resolved for printing. Pass
// ?unresolved=keep to leave unknown tokens visible.
func AssembleReport(log *slog.Logger, a ReportAssembler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.report.AssembleReport"

		id, ok := response.IDParam(r, "id")
		if !ok {
			response.BadRequest(w, r, "invalid report id")
			return
		}

		policy := placeholder.EmptyUnresolved
		if r.URL.Query().Get("unresolved") == "keep" {
			policy = placeholder.KeepUnresolved
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		out, err := a.AssembleReport(ctx, id, policy)
		if err != nil {
			response.Fail(w, r, log, op, err)
			return
		}

		render.JSON(w, r, out)
	}
}
