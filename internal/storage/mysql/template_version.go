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

const versionColumns = `id, model_id, version, state, schema_json, notes, created_at, updated_at`

func scanVersion(row interface{ Scan(...any) error }) (storage.TemplateVersion, error) {
	var (
		v          storage.TemplateVersion
		schemaJSON string
	)
	err := row.Scan(&v.ID, &v.ModelID, &v.Version, &v.State, &schemaJSON, &v.Notes, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		return v, err
	}

	v.Schema, err = schema.Parse([]byte(schemaJSON))
	if err != nil {
		return v, fmt.Errorf("schema of version %d: %w", v.ID, err)
	}

	return v, nil
}

func getVersion(ctx context.Context, q queryer, id int64) (*storage.TemplateVersion, error) {
	v, err := scanVersion(q.QueryRowContext(ctx, `SELECT `+versionColumns+` FROM template_versions WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("template version %d: %w", id, storage.ErrNotFound)
		}
		return nil, err
	}
	return &v, nil
}

func isVersionReferenced(ctx context.Context, q queryer, id int64) (bool, error) {
	var one int
	err := q.QueryRowContext(ctx, `SELECT 1 FROM report_components WHERE template_version_id = ? LIMIT 1`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// CreateTemplateVersion inserts a draft with the next version number of the model.
func (s *Storage) CreateTemplateVersion(ctx context.Context, modelID int64, sch schema.Schema, notes string) (*storage.TemplateVersion, error) {
	const op = "storage.mysql.CreateTemplateVersion"

	raw, err := json.Marshal(sch)
	if err != nil {
		return nil, fmt.Errorf("%s: marshal schema: %w", op, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: begin tx: %w", op, err)
	}
	defer tx.Rollback()

	if err := s.touchModel(ctx, tx, modelID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var next int
	err = tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) + 1 FROM template_versions WHERE model_id = ?`, modelID).Scan(&next)
	if err != nil {
		return nil, fmt.Errorf("%s: next version: %w", op, err)
	}

	now := s.now()
	res, err := tx.ExecContext(ctx,
		`INSERT INTO template_versions (model_id, version, state, schema_json, notes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		modelID, next, storage.VersionDraft, string(raw), notes, now, now)
	if err != nil {
		if isDuplicate(err) {
			return nil, fmt.Errorf("%s: version %d of model %d: %w", op, next, modelID, storage.ErrAlreadyExists)
		}
		return nil, fmt.Errorf("%s: insert: %w", op, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("%s: last insert id: %w", op, err)
	}

	v, err := getVersion(ctx, tx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%s: commit: %w", op, err)
	}

	return v, nil
}

func (s *Storage) GetTemplateVersion(ctx context.Context, id int64) (*storage.TemplateVersion, error) {
	const op = "storage.mysql.GetTemplateVersion"

	v, err := getVersion(ctx, s.db, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return v, nil
}

// GetActiveTemplateVersion always reads the database; nothing caches the active version.
func (s *Storage) GetActiveTemplateVersion(ctx context.Context, modelID int64) (*storage.TemplateVersion, error) {
	const op = "storage.mysql.GetActiveTemplateVersion"

	v, err := scanVersion(s.db.QueryRowContext(ctx,
		`SELECT `+versionColumns+` FROM template_versions WHERE model_id = ? AND state = ?`, modelID, storage.VersionActive))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: model %d: %w", op, modelID, storage.ErrNoActiveVersion)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &v, nil
}

// ListTemplateVersions returns the versions of a model, newest first.
func (s *Storage) ListTemplateVersions(ctx context.Context, modelID int64) ([]storage.TemplateVersion, error) {
	const op = "storage.mysql.ListTemplateVersions"

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+versionColumns+` FROM template_versions WHERE model_id = ? ORDER BY version DESC`, modelID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	versions := []storage.TemplateVersion{}
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		versions = append(versions, v)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows: %w", op, err)
	}

	return versions, nil
}

// SetTemplateVersionState moves a version to state in one transaction. Activating demotes
// every other active version of the model to obsolete before the target is promoted, so
// readers see exactly one active version before and after. Returning to draft is refused
// once a report component froze the version.
func (s *Storage) SetTemplateVersionState(ctx context.Context, id int64, state storage.VersionState) (*storage.TemplateVersion, error) {
	const op = "storage.mysql.SetTemplateVersionState"

	if !state.Valid() {
		return nil, fmt.Errorf("%s: state %q: %w", op, state, storage.ErrInvalidInput)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: begin tx: %w", op, err)
	}
	defer tx.Rollback()

	v, err := getVersion(ctx, tx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := s.touchModel(ctx, tx, v.ModelID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	// re-read now that writers on this model are serialized
	if v, err = getVersion(ctx, tx, id); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if v.State == state {
		return v, tx.Commit()
	}

	now := s.now()

	switch state {
	case storage.VersionActive:
		_, err = tx.ExecContext(ctx,
			`UPDATE template_versions SET state = ?, updated_at = ? WHERE model_id = ? AND state = ? AND id <> ?`,
			storage.VersionObsolete, now, v.ModelID, storage.VersionActive, id)
		if err != nil {
			return nil, fmt.Errorf("%s: demote siblings: %w", op, err)
		}
	case storage.VersionDraft:
		referenced, err := isVersionReferenced(ctx, tx, id)
		if err != nil {
			return nil, fmt.Errorf("%s: references: %w", op, err)
		}
		if referenced {
			return nil, fmt.Errorf("%s: version %d backs frozen reports: %w", op, id, storage.ErrInvalidState)
		}
	}

	if _, err = tx.ExecContext(ctx, `UPDATE template_versions SET state = ?, updated_at = ? WHERE id = ?`, state, now, id); err != nil {
		if isDuplicate(err) {
			return nil, fmt.Errorf("%s: model %d already has an active version: %w", op, v.ModelID, storage.ErrInvalidState)
		}
		return nil, fmt.Errorf("%s: update state: %w", op, err)
	}

	if v, err = getVersion(ctx, tx, id); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%s: commit: %w", op, err)
	}

	return v, nil
}

// UpdateTemplateVersion replaces schema and notes of a draft or active version.
func (s *Storage) UpdateTemplateVersion(ctx context.Context, id int64, sch schema.Schema, notes string) (*storage.TemplateVersion, error) {
	const op = "storage.mysql.UpdateTemplateVersion"

	raw, err := json.Marshal(sch)
	if err != nil {
		return nil, fmt.Errorf("%s: marshal schema: %w", op, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: begin tx: %w", op, err)
	}
	defer tx.Rollback()

	v, err := getVersion(ctx, tx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := s.touchModel(ctx, tx, v.ModelID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE template_versions SET schema_json = ?, notes = ?, updated_at = ? WHERE id = ? AND state <> ?`,
		string(raw), notes, s.now(), id, storage.VersionObsolete)
	if err != nil {
		return nil, fmt.Errorf("%s: update: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("%s: rows affected: %w", op, err)
	}
	if n == 0 {
		return nil, fmt.Errorf("%s: version %d is obsolete: %w", op, id, storage.ErrInvalidState)
	}

	if v, err = getVersion(ctx, tx, id); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%s: commit: %w", op, err)
	}

	return v, nil
}

// DeleteTemplateVersion removes a version that is neither active nor frozen in a report.
func (s *Storage) DeleteTemplateVersion(ctx context.Context, id int64) error {
	const op = "storage.mysql.DeleteTemplateVersion"

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: begin tx: %w", op, err)
	}
	defer tx.Rollback()

	v, err := getVersion(ctx, tx, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.touchModel(ctx, tx, v.ModelID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if v, err = getVersion(ctx, tx, id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if v.State == storage.VersionActive {
		return fmt.Errorf("%s: version %d is active: %w", op, id, storage.ErrInvalidState)
	}

	referenced, err := isVersionReferenced(ctx, tx, id)
	if err != nil {
		return fmt.Errorf("%s: references: %w", op, err)
	}
	if referenced {
		return fmt.Errorf("%s: version %d backs frozen reports: %w", op, id, storage.ErrInvalidState)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM template_versions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("%s: delete: %w", op, err)
	}

	return tx.Commit()
}
