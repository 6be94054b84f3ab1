package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"robot-maint/internal/storage"
)

var catalogTables = map[storage.ConsumableKind]string{
	storage.ConsumableOil:     "catalog_oils",
	storage.ConsumableBattery: "catalog_batteries",
	storage.ConsumableGeneric: "catalog_consumables",
}

func catalogTable(kind storage.ConsumableKind) (string, error) {
	table, ok := catalogTables[kind]
	if !ok {
		return "", fmt.Errorf("consumable kind %q: %w", kind, storage.ErrInvalidInput)
	}
	return table, nil
}

const levelColumns = `id, model_id, level, hours, misc_cost, consumables`

func scanLevel(row interface{ Scan(...any) error }) (storage.ConsumablesLevel, error) {
	var (
		e         storage.ConsumablesLevel
		hours     sql.NullFloat64
		misc      sql.NullFloat64
		itemsJSON string
	)
	if err := row.Scan(&e.ID, &e.ModelID, &e.Level, &hours, &misc, &itemsJSON); err != nil {
		return e, err
	}
	e.Hours = floatPtr(hours)
	e.MiscCost = floatPtr(misc)

	if err := json.Unmarshal([]byte(itemsJSON), &e.Consumables); err != nil {
		return e, fmt.Errorf("consumables of entry %d: %w", e.ID, err)
	}
	if e.Consumables == nil {
		e.Consumables = []storage.ConsumableRef{}
	}
	return e, nil
}

func (s *Storage) queryLevels(ctx context.Context, op, query string, args ...any) ([]storage.ConsumablesLevel, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	entries := []storage.ConsumablesLevel{}
	for rows.Next() {
		e, err := scanLevel(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		entries = append(entries, e)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows: %w", op, err)
	}

	return entries, nil
}

func (s *Storage) GetConsumablesByModelIDs(ctx context.Context, modelIDs []int64) ([]storage.ConsumablesLevel, error) {
	const op = "storage.mysql.GetConsumablesByModelIDs"

	if len(modelIDs) == 0 {
		return nil, nil
	}
	marks, args := inClause(modelIDs)

	return s.queryLevels(ctx, op,
		`SELECT `+levelColumns+` FROM consumables_levels WHERE model_id IN (`+marks+`) ORDER BY model_id, level`, args...)
}

func (s *Storage) GetConsumablesByModel(ctx context.Context, modelID int64) ([]storage.ConsumablesLevel, error) {
	const op = "storage.mysql.GetConsumablesByModel"

	return s.queryLevels(ctx, op,
		`SELECT `+levelColumns+` FROM consumables_levels WHERE model_id = ? ORDER BY level`, modelID)
}

// GetConsumablesByManufacturer groups the entries of every model of a manufacturer. Models
// without entries are included with an empty list.
func (s *Storage) GetConsumablesByManufacturer(ctx context.Context, manufacturerID int64) ([]storage.ModelConsumables, error) {
	const op = "storage.mysql.GetConsumablesByManufacturer"

	models, err := s.ListComponentModels(ctx, manufacturerID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	out := make([]storage.ModelConsumables, 0, len(models))
	if len(models) == 0 {
		return out, nil
	}

	ids := make([]int64, len(models))
	for i, m := range models {
		ids[i] = m.ID
	}

	entries, err := s.GetConsumablesByModelIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	byModel := make(map[int64][]storage.ConsumablesLevel, len(models))
	for _, e := range entries {
		byModel[e.ModelID] = append(byModel[e.ModelID], e)
	}

	for _, m := range models {
		list := byModel[m.ID]
		if list == nil {
			list = []storage.ConsumablesLevel{}
		}
		out = append(out, storage.ModelConsumables{Model: m, Entries: list})
	}

	return out, nil
}

// UpsertConsumablesLevels writes every entry, keyed by (model, level), in one transaction.
func (s *Storage) UpsertConsumablesLevels(ctx context.Context, entries []storage.ConsumablesLevel) ([]storage.ConsumablesLevel, error) {
	const op = "storage.mysql.UpsertConsumablesLevels"

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: begin tx: %w", op, err)
	}
	defer tx.Rollback()

	out := make([]storage.ConsumablesLevel, 0, len(entries))
	for _, e := range entries {
		items := e.Consumables
		if items == nil {
			items = []storage.ConsumableRef{}
		}
		raw, err := json.Marshal(items)
		if err != nil {
			return nil, fmt.Errorf("%s: marshal consumables: %w", op, err)
		}

		var id int64
		err = tx.QueryRowContext(ctx, `SELECT id FROM consumables_levels WHERE model_id = ? AND level = ?`, e.ModelID, e.Level).Scan(&id)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			res, err := tx.ExecContext(ctx,
				`INSERT INTO consumables_levels (model_id, level, hours, misc_cost, consumables) VALUES (?, ?, ?, ?, ?)`,
				e.ModelID, e.Level, nullFloat(e.Hours), nullFloat(e.MiscCost), string(raw))
			if err != nil {
				if isDuplicate(err) {
					return nil, fmt.Errorf("%s: model %d level %s: %w", op, e.ModelID, e.Level, storage.ErrAlreadyExists)
				}
				return nil, fmt.Errorf("%s: insert: %w", op, err)
			}
			if id, err = res.LastInsertId(); err != nil {
				return nil, fmt.Errorf("%s: last insert id: %w", op, err)
			}
		case err != nil:
			return nil, fmt.Errorf("%s: lookup: %w", op, err)
		default:
			_, err = tx.ExecContext(ctx,
				`UPDATE consumables_levels SET hours = ?, misc_cost = ?, consumables = ? WHERE id = ?`,
				nullFloat(e.Hours), nullFloat(e.MiscCost), string(raw), id)
			if err != nil {
				return nil, fmt.Errorf("%s: update: %w", op, err)
			}
		}

		e.ID = id
		e.Consumables = items
		out = append(out, e)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%s: commit: %w", op, err)
	}

	return out, nil
}

func (s *Storage) CreateCatalogItem(ctx context.Context, item storage.CatalogItem) (int64, error) {
	const op = "storage.mysql.CreateCatalogItem"

	table, err := catalogTable(item.Kind)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	res, err := s.db.ExecContext(ctx, `INSERT INTO `+table+` (name, reference, cost, price) VALUES (?, ?, ?, ?)`,
		item.Name, item.Reference, nullFloat(item.Cost), nullFloat(item.Price))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return res.LastInsertId()
}

func (s *Storage) DeleteCatalogItem(ctx context.Context, kind storage.ConsumableKind, id int64) error {
	const op = "storage.mysql.DeleteCatalogItem"

	table, err := catalogTable(kind)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM `+table+` WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%s: %s %d: %w", op, kind, id, storage.ErrNotFound)
	}

	return nil
}

// GetCatalogItems loads the rows of one catalog. Missing ids are simply absent.
func (s *Storage) GetCatalogItems(ctx context.Context, kind storage.ConsumableKind, ids []int64) ([]storage.CatalogItem, error) {
	const op = "storage.mysql.GetCatalogItems"

	if len(ids) == 0 {
		return nil, nil
	}
	marks, args := inClause(ids)

	return s.queryCatalog(ctx, op, kind, `WHERE id IN (`+marks+`) ORDER BY id`, args...)
}

func (s *Storage) ListCatalogItems(ctx context.Context, kind storage.ConsumableKind) ([]storage.CatalogItem, error) {
	const op = "storage.mysql.ListCatalogItems"

	return s.queryCatalog(ctx, op, kind, `ORDER BY name, id`)
}

func (s *Storage) queryCatalog(ctx context.Context, op string, kind storage.ConsumableKind, tail string, args ...any) ([]storage.CatalogItem, error) {
	table, err := catalogTable(kind)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT id, name, reference, cost, price FROM `+table+` `+tail, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	items := []storage.CatalogItem{}
	for rows.Next() {
		var (
			it          storage.CatalogItem
			cost, price sql.NullFloat64
		)
		if err := rows.Scan(&it.ID, &it.Name, &it.Reference, &cost, &price); err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		it.Kind = kind
		it.Cost = floatPtr(cost)
		it.Price = floatPtr(price)
		items = append(items, it)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows: %w", op, err)
	}

	return items, nil
}
