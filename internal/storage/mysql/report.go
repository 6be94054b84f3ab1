package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"robot-maint/internal/schema"
	"robot-maint/internal/storage"
)

// CreateReport inserts the report and all of its frozen components in one transaction.
// The frozen schema is serialized once here and never written again.
func (s *Storage) CreateReport(ctx context.Context, interventionID, systemID int64, components []storage.NewReportComponent) (*storage.Report, error) {
	const op = "storage.mysql.CreateReport"

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: begin tx: %w", op, err)
	}
	defer tx.Rollback()

	now := s.now()
	res, err := tx.ExecContext(ctx, `INSERT INTO reports (intervention_id, system_id, created_at) VALUES (?, ?, ?)`,
		interventionID, systemID, now)
	if err != nil {
		if isDuplicate(err) {
			return nil, fmt.Errorf("%s: report for intervention %d system %d: %w", op, interventionID, systemID, storage.ErrAlreadyExists)
		}
		return nil, fmt.Errorf("%s: insert report: %w", op, err)
	}

	reportID, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("%s: last insert id: %w", op, err)
	}

	for _, c := range components {
		frozen, err := json.Marshal(c.SchemaFrozen)
		if err != nil {
			return nil, fmt.Errorf("%s: marshal frozen schema: %w", op, err)
		}
		data, err := marshalData(c.Data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO report_components (report_id, physical_component_id, template_version_id, schema_frozen, data, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			reportID, c.PhysicalComponentID, c.TemplateVersionID, string(frozen), data, now, now)
		if err != nil {
			return nil, fmt.Errorf("%s: insert component %d: %w", op, c.PhysicalComponentID, err)
		}
	}

	report, err := getReport(ctx, tx, reportID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%s: commit: %w", op, err)
	}

	return report, nil
}

func marshalData(data map[string]any) (string, error) {
	if data == nil {
		data = map[string]any{}
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("marshal data: %w", err)
	}
	return string(raw), nil
}

const componentColumns = `id, report_id, physical_component_id, template_version_id, schema_frozen, data, created_at, updated_at`

func scanComponent(row interface{ Scan(...any) error }) (storage.ReportComponent, error) {
	var (
		c                storage.ReportComponent
		frozenJSON, data string
	)
	err := row.Scan(&c.ID, &c.ReportID, &c.PhysicalComponentID, &c.TemplateVersionID, &frozenJSON, &data, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return c, err
	}

	if c.SchemaFrozen, err = schema.Parse([]byte(frozenJSON)); err != nil {
		return c, fmt.Errorf("frozen schema of component %d: %w", c.ID, err)
	}
	if err = json.Unmarshal([]byte(data), &c.Data); err != nil {
		return c, fmt.Errorf("data of component %d: %w", c.ID, err)
	}
	if c.Data == nil {
		c.Data = map[string]any{}
	}

	return c, nil
}

func getReport(ctx context.Context, q queryer, id int64) (*storage.Report, error) {
	var r storage.Report
	err := q.QueryRowContext(ctx, `SELECT id, intervention_id, system_id, created_at FROM reports WHERE id = ?`, id).
		Scan(&r.ID, &r.InterventionID, &r.SystemID, &r.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("report %d: %w", id, storage.ErrNotFound)
		}
		return nil, err
	}

	rows, err := q.QueryContext(ctx, `SELECT `+componentColumns+` FROM report_components WHERE report_id = ? ORDER BY id`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	r.Components = []storage.ReportComponent{}
	for rows.Next() {
		c, err := scanComponent(rows)
		if err != nil {
			return nil, err
		}
		r.Components = append(r.Components, c)
	}

	return &r, rows.Err()
}

func (s *Storage) GetReport(ctx context.Context, id int64) (*storage.Report, error) {
	const op = "storage.mysql.GetReport"

	r, err := getReport(ctx, s.db, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return r, nil
}

func (s *Storage) GetReportComponent(ctx context.Context, id int64) (*storage.ReportComponent, error) {
	const op = "storage.mysql.GetReportComponent"

	c, err := scanComponent(s.db.QueryRowContext(ctx, `SELECT `+componentColumns+` FROM report_components WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: report component %d: %w", op, id, storage.ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &c, nil
}

// UpdateReportComponentData replaces the data map. The frozen schema column is not touched.
func (s *Storage) UpdateReportComponentData(ctx context.Context, id int64, data map[string]any) error {
	const op = "storage.mysql.UpdateReportComponentData"

	raw, err := marshalData(data)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	res, err := s.db.ExecContext(ctx, `UPDATE report_components SET data = ?, updated_at = ? WHERE id = ?`, raw, s.now(), id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%s: report component %d: %w", op, id, storage.ErrNotFound)
	}

	return nil
}
