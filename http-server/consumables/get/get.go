package get

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"robot-maint/internal/response"
	"robot-maint/internal/storage"
)

type ConsumablesProvider interface {
	GetByModel(ctx context.Context, modelID int64) (*storage.ModelConsumables, error)
	GetByManufacturer(ctx context.Context, manufacturerID int64) ([]storage.ModelConsumables, error)
}

type CatalogProvider interface {
	ListCatalog(ctx context.Context, kind storage.ConsumableKind) ([]storage.CatalogItem, error)
}

func GetByModel(log *slog.Logger, p ConsumablesProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.consumables.GetByModel"

		modelID, ok := response.IDParam(r, "model_id")
		if !ok {
			response.BadRequest(w, r, "invalid model id")
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		out, err := p.GetByModel(ctx, modelID)
		if err != nil {
			response.Fail(w, r, log, op, err)
			return
		}

		render.JSON(w, r, out)
	}
}

func GetByManufacturer(log *slog.Logger, p ConsumablesProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.consumables.GetByManufacturer"

		id, ok := response.IDParam(r, "id")
		if !ok {
			response.BadRequest(w, r, "invalid manufacturer id")
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		out, err := p.GetByManufacturer(ctx, id)
		if err != nil {
			response.Fail(w, r, log, op, err)
			return
		}

		render.JSON(w, r, out)
	}
}

// ListCatalog lists one priced catalog. The kind accepts the legacy Spanish names too.
func ListCatalog(log *slog.Logger, p CatalogProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.consumables.ListCatalog"

		kind, ok := storage.ParseConsumableKind(chi.URLParam(r, "kind"))
		if !ok {
			response.BadRequest(w, r, "unknown catalog")
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		items, err := p.ListCatalog(ctx, kind)
		if err != nil {
			response.Fail(w, r, log, op, err)
			return
		}

		render.JSON(w, r, items)
	}
}
