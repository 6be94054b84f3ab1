package remove

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"robot-maint/internal/response"
)

type VersionDeleter interface {
	DeleteVersion(ctx context.Context, id int64) error
}

func DeleteVersion(log *slog.Logger, d VersionDeleter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.template_version.DeleteVersion"

		id, ok := response.IDParam(r, "id")
		if !ok {
			response.BadRequest(w, r, "invalid version id")
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		if err := d.DeleteVersion(ctx, id); err != nil {
			response.Fail(w, r, log, op, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}
