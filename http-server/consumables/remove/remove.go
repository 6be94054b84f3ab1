package remove

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"robot-maint/internal/response"
	"robot-maint/internal/storage"
)

type CatalogDeleter interface {
	DeleteCatalogItem(ctx context.Context, kind storage.ConsumableKind, id int64) error
}

func DeleteCatalogItem(log *slog.Logger, d CatalogDeleter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.consumables.DeleteCatalogItem"

		kind, ok := storage.ParseConsumableKind(chi.URLParam(r, "kind"))
		if !ok {
			response.BadRequest(w, r, "unknown catalog")
			return
		}
		id, ok := response.IDParam(r, "id")
		if !ok {
			response.BadRequest(w, r, "invalid catalog item id")
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		if err := d.DeleteCatalogItem(ctx, kind, id); err != nil {
			response.Fail(w, r, log, op, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}
