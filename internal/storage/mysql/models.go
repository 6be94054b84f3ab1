package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"robot-maint/internal/storage"
)

func (s *Storage) CreateManufacturer(ctx context.Context, name string) (int64, error) {
	const op = "storage.mysql.CreateManufacturer"

	res, err := s.db.ExecContext(ctx, `INSERT INTO manufacturers (name) VALUES (?)`, name)
	if err != nil {
		if isDuplicate(err) {
			return 0, fmt.Errorf("%s: manufacturer %q: %w", op, name, storage.ErrAlreadyExists)
		}
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return res.LastInsertId()
}

func (s *Storage) CreateComponentModel(ctx context.Context, m storage.ComponentModel) (int64, error) {
	const op = "storage.mysql.CreateComponentModel"

	levels, err := json.Marshal(m.Levels)
	if err != nil {
		return 0, fmt.Errorf("%s: marshal levels: %w", op, err)
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO component_models (manufacturer_id, kind, name, levels, updated_at) VALUES (?, ?, ?, ?, ?)`,
		m.ManufacturerID, m.Kind, m.Name, string(levels), s.now())
	if err != nil {
		if isDuplicate(err) {
			return 0, fmt.Errorf("%s: model %q: %w", op, m.Name, storage.ErrAlreadyExists)
		}
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return res.LastInsertId()
}

const modelColumns = `id, manufacturer_id, kind, name, levels`

func scanModel(row interface{ Scan(...any) error }) (storage.ComponentModel, error) {
	var (
		m          storage.ComponentModel
		levelsJSON string
	)
	if err := row.Scan(&m.ID, &m.ManufacturerID, &m.Kind, &m.Name, &levelsJSON); err != nil {
		return m, err
	}
	if err := json.Unmarshal([]byte(levelsJSON), &m.Levels); err != nil {
		return m, fmt.Errorf("levels of model %d: %w", m.ID, err)
	}
	return m, nil
}

func (s *Storage) GetComponentModel(ctx context.Context, id int64) (*storage.ComponentModel, error) {
	const op = "storage.mysql.GetComponentModel"

	m, err := scanModel(s.db.QueryRowContext(ctx, `SELECT `+modelColumns+` FROM component_models WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: model %d: %w", op, id, storage.ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &m, nil
}

func (s *Storage) GetModelsByIDs(ctx context.Context, ids []int64) ([]storage.ComponentModel, error) {
	const op = "storage.mysql.GetModelsByIDs"

	if len(ids) == 0 {
		return nil, nil
	}
	marks, args := inClause(ids)

	return s.queryModels(ctx, op, `SELECT `+modelColumns+` FROM component_models WHERE id IN (`+marks+`) ORDER BY id`, args...)
}

func (s *Storage) ListComponentModels(ctx context.Context, manufacturerID int64) ([]storage.ComponentModel, error) {
	const op = "storage.mysql.ListComponentModels"

	return s.queryModels(ctx, op, `SELECT `+modelColumns+` FROM component_models WHERE manufacturer_id = ? ORDER BY kind, name`, manufacturerID)
}

func (s *Storage) queryModels(ctx context.Context, op, query string, args ...any) ([]storage.ComponentModel, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var models []storage.ComponentModel
	for rows.Next() {
		m, err := scanModel(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		models = append(models, m)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows: %w", op, err)
	}

	return models, nil
}

func (s *Storage) UpdateModelLevels(ctx context.Context, id int64, levels []storage.Level) error {
	const op = "storage.mysql.UpdateModelLevels"

	raw, err := json.Marshal(levels)
	if err != nil {
		return fmt.Errorf("%s: marshal levels: %w", op, err)
	}

	res, err := s.db.ExecContext(ctx, `UPDATE component_models SET levels = ?, updated_at = ? WHERE id = ?`, string(raw), s.now(), id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%s: model %d: %w", op, id, storage.ErrNotFound)
	}

	return nil
}

func (s *Storage) CreateClient(ctx context.Context, c storage.Client) (int64, error) {
	const op = "storage.mysql.CreateClient"

	res, err := s.db.ExecContext(ctx, `INSERT INTO clients (name, address, contact) VALUES (?, ?, ?)`, c.Name, c.Address, c.Contact)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return res.LastInsertId()
}

func (s *Storage) GetClient(ctx context.Context, id int64) (*storage.Client, error) {
	const op = "storage.mysql.GetClient"

	var c storage.Client
	err := s.db.QueryRowContext(ctx, `SELECT id, name, address, contact FROM clients WHERE id = ?`, id).
		Scan(&c.ID, &c.Name, &c.Address, &c.Contact)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: client %d: %w", op, id, storage.ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &c, nil
}

func (s *Storage) CreateSystem(ctx context.Context, sys storage.System) (int64, error) {
	const op = "storage.mysql.CreateSystem"

	res, err := s.db.ExecContext(ctx, `INSERT INTO systems (client_id, name, serial, location) VALUES (?, ?, ?, ?)`,
		sys.ClientID, sys.Name, sys.Serial, sys.Location)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return res.LastInsertId()
}

func (s *Storage) GetSystem(ctx context.Context, id int64) (*storage.System, error) {
	const op = "storage.mysql.GetSystem"

	systems, err := s.GetSystemsByIDs(ctx, []int64{id})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if len(systems) == 0 {
		return nil, fmt.Errorf("%s: system %d: %w", op, id, storage.ErrNotFound)
	}

	return &systems[0], nil
}

func (s *Storage) GetSystemsByIDs(ctx context.Context, ids []int64) ([]storage.System, error) {
	const op = "storage.mysql.GetSystemsByIDs"

	if len(ids) == 0 {
		return nil, nil
	}
	marks, args := inClause(ids)

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, client_id, name, serial, location FROM systems WHERE id IN (`+marks+`) ORDER BY id`, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var systems []storage.System
	for rows.Next() {
		var sys storage.System
		if err := rows.Scan(&sys.ID, &sys.ClientID, &sys.Name, &sys.Serial, &sys.Location); err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		systems = append(systems, sys)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows: %w", op, err)
	}

	return systems, nil
}

func (s *Storage) CreatePhysicalComponent(ctx context.Context, c storage.PhysicalComponent) (int64, error) {
	const op = "storage.mysql.CreatePhysicalComponent"

	res, err := s.db.ExecContext(ctx, `INSERT INTO physical_components (system_id, model_id, serial, position) VALUES (?, ?, ?, ?)`,
		c.SystemID, c.ModelID, c.Serial, c.Position)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return res.LastInsertId()
}

// GetComponentsBySystemIDs returns components ordered by system, position and id.
func (s *Storage) GetComponentsBySystemIDs(ctx context.Context, systemIDs []int64) ([]storage.PhysicalComponent, error) {
	const op = "storage.mysql.GetComponentsBySystemIDs"

	if len(systemIDs) == 0 {
		return nil, nil
	}
	marks, args := inClause(systemIDs)

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, system_id, model_id, serial, position FROM physical_components
		WHERE system_id IN (`+marks+`) ORDER BY system_id, position, id`, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var components []storage.PhysicalComponent
	for rows.Next() {
		var c storage.PhysicalComponent
		if err := rows.Scan(&c.ID, &c.SystemID, &c.ModelID, &c.Serial, &c.Position); err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		components = append(components, c)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows: %w", op, err)
	}

	return components, nil
}
