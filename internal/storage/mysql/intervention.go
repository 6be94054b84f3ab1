package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"robot-maint/internal/storage"
)

func (s *Storage) CreateIntervention(ctx context.Context, in storage.Intervention) (*storage.Intervention, error) {
	const op = "storage.mysql.CreateIntervention"

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: begin tx: %w", op, err)
	}
	defer tx.Rollback()

	id, err := s.insertIntervention(ctx, tx, in)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	out, err := getIntervention(ctx, tx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%s: commit: %w", op, err)
	}

	return out, nil
}

func (s *Storage) insertIntervention(ctx context.Context, tx *sql.Tx, in storage.Intervention) (int64, error) {
	if in.State == "" {
		in.State = storage.InterventionPlanned
	}

	var scheduled sql.NullTime
	if in.ScheduledAt != nil {
		scheduled = sql.NullTime{Time: in.ScheduledAt.UTC(), Valid: true}
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO interventions (client_id, offer_id, title, state, scheduled_at, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		in.ClientID, nullInt(in.OfferID), in.Title, in.State, scheduled, s.now())
	if err != nil {
		return 0, fmt.Errorf("insert intervention: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}

	for i, sel := range in.Selections {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO intervention_systems (intervention_id, sort, system_id, level) VALUES (?, ?, ?, ?)`,
			id, i, sel.SystemID, sel.Level)
		if err != nil {
			return 0, fmt.Errorf("insert selection: %w", err)
		}
	}

	return id, nil
}

func getIntervention(ctx context.Context, q queryer, id int64) (*storage.Intervention, error) {
	var (
		in        storage.Intervention
		offerID   sql.NullInt64
		scheduled sql.NullTime
	)
	err := q.QueryRowContext(ctx,
		`SELECT id, client_id, offer_id, title, state, scheduled_at, created_at FROM interventions WHERE id = ?`, id).
		Scan(&in.ID, &in.ClientID, &offerID, &in.Title, &in.State, &scheduled, &in.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("intervention %d: %w", id, storage.ErrNotFound)
		}
		return nil, err
	}
	in.OfferID = intPtr(offerID)
	if scheduled.Valid {
		t := scheduled.Time
		in.ScheduledAt = &t
	}

	rows, err := q.QueryContext(ctx,
		`SELECT system_id, level FROM intervention_systems WHERE intervention_id = ? ORDER BY sort, id`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	in.Selections = []storage.Selection{}
	for rows.Next() {
		var sel storage.Selection
		if err := rows.Scan(&sel.SystemID, &sel.Level); err != nil {
			return nil, err
		}
		in.Selections = append(in.Selections, sel)
	}

	return &in, rows.Err()
}

func (s *Storage) GetIntervention(ctx context.Context, id int64) (*storage.Intervention, error) {
	const op = "storage.mysql.GetIntervention"

	in, err := getIntervention(ctx, s.db, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return in, nil
}
