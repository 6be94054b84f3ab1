// Package consumables manages the per-level consumables catalog of component models.
package consumables

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"robot-maint/internal/storage"
)

type Storage interface {
	GetComponentModel(ctx context.Context, id int64) (*storage.ComponentModel, error)
	GetModelsByIDs(ctx context.Context, ids []int64) ([]storage.ComponentModel, error)
	UpdateModelLevels(ctx context.Context, id int64, levels []storage.Level) error
	GetConsumablesByModel(ctx context.Context, modelID int64) ([]storage.ConsumablesLevel, error)
	GetConsumablesByManufacturer(ctx context.Context, manufacturerID int64) ([]storage.ModelConsumables, error)
	UpsertConsumablesLevels(ctx context.Context, entries []storage.ConsumablesLevel) ([]storage.ConsumablesLevel, error)
	ListCatalogItems(ctx context.Context, kind storage.ConsumableKind) ([]storage.CatalogItem, error)
	CreateCatalogItem(ctx context.Context, item storage.CatalogItem) (int64, error)
	DeleteCatalogItem(ctx context.Context, kind storage.ConsumableKind, id int64) error
}

type Service struct {
	log     *slog.Logger
	storage Storage
}

func NewService(log *slog.Logger, storage Storage) *Service {
	return &Service{log: log, storage: storage}
}

func (s *Service) GetByModel(ctx context.Context, modelID int64) (*storage.ModelConsumables, error) {
	const op = "service.consumables.GetByModel"

	model, err := s.storage.GetComponentModel(ctx, modelID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	entries, err := s.storage.GetConsumablesByModel(ctx, modelID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &storage.ModelConsumables{Model: *model, Entries: entries}, nil
}

func (s *Service) GetByManufacturer(ctx context.Context, manufacturerID int64) ([]storage.ModelConsumables, error) {
	const op = "service.consumables.GetByManufacturer"

	out, err := s.storage.GetConsumablesByManufacturer(ctx, manufacturerID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

func (s *Service) Upsert(ctx context.Context, entry storage.ConsumablesLevel) (*storage.ConsumablesLevel, error) {
	const op = "service.consumables.Upsert"

	saved, err := s.UpsertBatch(ctx, []storage.ConsumablesLevel{entry})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &saved[0], nil
}

// UpsertBatch validates every entry before writing the whole set in one transaction.
func (s *Service) UpsertBatch(ctx context.Context, entries []storage.ConsumablesLevel) ([]storage.ConsumablesLevel, error) {
	const op = "service.consumables.UpsertBatch"

	if len(entries) == 0 {
		return []storage.ConsumablesLevel{}, nil
	}

	ids := make([]int64, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.ModelID)
	}
	slices.Sort(ids)
	ids = slices.Compact(ids)

	models, err := s.storage.GetModelsByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	byID := make(map[int64]storage.ComponentModel, len(models))
	for _, m := range models {
		byID[m.ID] = m
	}

	type slot struct {
		modelID int64
		level   storage.Level
	}
	seen := make(map[slot]struct{}, len(entries))
	for i, e := range entries {
		model, ok := byID[e.ModelID]
		if !ok {
			return nil, fmt.Errorf("%s: model %d: %w", op, e.ModelID, storage.ErrNotFound)
		}
		if err := validateEntry(model, e); err != nil {
			return nil, fmt.Errorf("%s: entry %d: %w", op, i, err)
		}

		key := slot{modelID: e.ModelID, level: e.Level}
		if _, dup := seen[key]; dup {
			return nil, fmt.Errorf("%s: model %d level %s given twice: %w", op, e.ModelID, e.Level, storage.ErrInvalidInput)
		}
		seen[key] = struct{}{}
	}

	saved, err := s.storage.UpsertConsumablesLevels(ctx, entries)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("consumables saved", slog.String("op", op), slog.Int("entries", len(saved)))

	return saved, nil
}

func validateEntry(model storage.ComponentModel, e storage.ConsumablesLevel) error {
	if !e.Level.Valid() || !model.HasLevel(e.Level) {
		return fmt.Errorf("level %q of model %d: %w", e.Level, model.ID, storage.ErrInvalidLevel)
	}
	if e.Hours != nil && *e.Hours < 0 {
		return fmt.Errorf("negative hours: %w", storage.ErrInvalidInput)
	}
	if e.MiscCost != nil && *e.MiscCost < 0 {
		return fmt.Errorf("negative misc cost: %w", storage.ErrInvalidInput)
	}
	for _, ref := range e.Consumables {
		if ref.Quantity < 0 {
			return fmt.Errorf("negative quantity for %s #%d: %w", ref.Kind, ref.RefID, storage.ErrInvalidInput)
		}
		if ref.RefID > 0 && !ref.Kind.Valid() {
			return fmt.Errorf("consumable kind %q: %w", ref.Kind, storage.ErrInvalidInput)
		}
	}
	return nil
}

// UpdateModelLevels replaces the level set of a model. Mandatory levels cannot be removed.
// The stored set is deduplicated and kept in canonical order.
func (s *Service) UpdateModelLevels(ctx context.Context, modelID int64, levels []storage.Level) (*storage.ComponentModel, error) {
	const op = "service.consumables.UpdateModelLevels"

	model, err := s.storage.GetComponentModel(ctx, modelID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	set := make(map[storage.Level]struct{}, len(levels))
	for _, l := range levels {
		if !l.Valid() {
			return nil, fmt.Errorf("%s: level %q: %w", op, l, storage.ErrInvalidLevel)
		}
		set[l] = struct{}{}
	}
	for _, l := range storage.MandatoryLevels(model.Kind) {
		if _, ok := set[l]; !ok {
			return nil, fmt.Errorf("%s: level %s is mandatory: %w", op, l, storage.ErrInvalidLevel)
		}
	}

	next := make([]storage.Level, 0, len(set))
	for _, l := range []storage.Level{storage.Level1, storage.Level2Lower, storage.Level2Upper, storage.Level3} {
		if _, ok := set[l]; ok {
			next = append(next, l)
		}
	}

	if err := s.storage.UpdateModelLevels(ctx, modelID, next); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	model.Levels = next
	return model, nil
}

func (s *Service) ListCatalog(ctx context.Context, kind storage.ConsumableKind) ([]storage.CatalogItem, error) {
	const op = "service.consumables.ListCatalog"

	items, err := s.storage.ListCatalogItems(ctx, kind)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return items, nil
}

func (s *Service) CreateCatalogItem(ctx context.Context, item storage.CatalogItem) (*storage.CatalogItem, error) {
	const op = "service.consumables.CreateCatalogItem"

	item.Name = strings.TrimSpace(item.Name)
	if item.Name == "" {
		return nil, fmt.Errorf("%s: name is required: %w", op, storage.ErrInvalidInput)
	}
	if !item.Kind.Valid() {
		return nil, fmt.Errorf("%s: kind %q: %w", op, item.Kind, storage.ErrInvalidInput)
	}
	if (item.Cost != nil && *item.Cost < 0) || (item.Price != nil && *item.Price < 0) {
		return nil, fmt.Errorf("%s: negative amount: %w", op, storage.ErrInvalidInput)
	}

	id, err := s.storage.CreateCatalogItem(ctx, item)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	item.ID = id
	return &item, nil
}

// DeleteCatalogItem removes a catalog row. Entries still pointing at it are priced as stale
// references afterwards.
func (s *Service) DeleteCatalogItem(ctx context.Context, kind storage.ConsumableKind, id int64) error {
	const op = "service.consumables.DeleteCatalogItem"

	if err := s.storage.DeleteCatalogItem(ctx, kind, id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("catalog item deleted", slog.String("op", op), slog.String("kind", string(kind)), slog.Int64("id", id))

	return nil
}
