package save

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

type ConsumablesSaver interface {
	Upsert(ctx context.Context, entry storage.ConsumablesLevel) (*storage.ConsumablesLevel, error)
	UpsertBatch(ctx context.Context, entries []storage.ConsumablesLevel) ([]storage.ConsumablesLevel, error)
}

type CatalogSaver interface {
	CreateCatalogItem(ctx context.Context, item storage.CatalogItem) (*storage.CatalogItem, error)
}

// UpsertLevel writes the entry of one (model, level) pair taken from the URL.
func UpsertLevel(log *slog.Logger, s ConsumablesSaver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.consumables.UpsertLevel"

		modelID, ok := response.IDParam(r, "model_id")
		if !ok {
			response.BadRequest(w, r, "invalid model id")
			return
		}

		var entry storage.ConsumablesLevel
		if err := render.DecodeJSON(r.Body, &entry); err != nil {
			response.BadRequest(w, r, "invalid JSON")
			return
		}
		entry.ModelID = modelID
		entry.Level = storage.Level(chi.URLParam(r, "level"))

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		out, err := s.Upsert(ctx, entry)
		if err != nil {
			response.Fail(w, r, log, op, err)
			return
		}

		render.JSON(w, r, out)
	}
}

// UpsertBatch writes every entry of the body in one transaction.
func UpsertBatch(log *slog.Logger, s ConsumablesSaver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.consumables.UpsertBatch"

		var req struct {
			Entries []storage.ConsumablesLevel `json:"entries"`
		}
		if err := render.DecodeJSON(r.Body, &req); err != nil {
			response.BadRequest(w, r, "invalid JSON")
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
		defer cancel()

		out, err := s.UpsertBatch(ctx, req.Entries)
		if err != nil {
			response.Fail(w, r, log, op, err)
			return
		}

		render.JSON(w, r, out)
	}
}

func CreateCatalogItem(log *slog.Logger, s CatalogSaver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.consumables.CreateCatalogItem"

		kind, ok := storage.ParseConsumableKind(chi.URLParam(r, "kind"))
		if !ok {
			response.BadRequest(w, r, "unknown catalog")
			return
		}

		var item storage.CatalogItem
		if err := render.DecodeJSON(r.Body, &item); err != nil {
			response.BadRequest(w, r, "invalid JSON")
			return
		}
		item.Kind = kind

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		out, err := s.CreateCatalogItem(ctx, item)
		if err != nil {
			response.Fail(w, r, log, op, err)
			return
		}

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, out)
	}
}
