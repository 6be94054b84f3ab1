package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"robot-maint/internal/storage"
)

func (s *Storage) CreateOffer(ctx context.Context, o storage.Offer) (*storage.Offer, error) {
	const op = "storage.mysql.CreateOffer"

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: begin tx: %w", op, err)
	}
	defer tx.Rollback()

	if o.State == "" {
		o.State = storage.OfferDraft
	}

	now := s.now()
	res, err := tx.ExecContext(ctx,
		`INSERT INTO offers (client_id, title, state, notes, total_hours, total_cost, total_price, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.ClientID, o.Title, o.State, o.Notes, o.TotalHours, o.TotalCost, o.TotalPrice, now, now)
	if err != nil {
		return nil, fmt.Errorf("%s: insert: %w", op, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("%s: last insert id: %w", op, err)
	}

	if err := insertOfferSystems(ctx, tx, id, o.Systems); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	out, err := getOffer(ctx, tx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%s: commit: %w", op, err)
	}

	return out, nil
}

func insertOfferSystems(ctx context.Context, tx *sql.Tx, offerID int64, systems []storage.OfferSystem) error {
	for i, sys := range systems {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO offer_systems (offer_id, sort, system_id, system_name, level, hours, cost, price)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			offerID, i, sys.SystemID, sys.SystemName, sys.Level, sys.Hours, sys.Cost, sys.Price)
		if err != nil {
			return fmt.Errorf("insert offer system %d: %w", sys.SystemID, err)
		}
	}
	return nil
}

func getOffer(ctx context.Context, q queryer, id int64) (*storage.Offer, error) {
	var (
		o              storage.Offer
		interventionID sql.NullInt64
	)
	err := q.QueryRowContext(ctx,
		`SELECT id, client_id, title, state, notes, total_hours, total_cost, total_price, intervention_id, created_at, updated_at
		FROM offers WHERE id = ?`, id).
		Scan(&o.ID, &o.ClientID, &o.Title, &o.State, &o.Notes, &o.TotalHours, &o.TotalCost, &o.TotalPrice,
			&interventionID, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("offer %d: %w", id, storage.ErrNotFound)
		}
		return nil, err
	}
	o.InterventionID = intPtr(interventionID)

	rows, err := q.QueryContext(ctx,
		`SELECT system_id, system_name, level, hours, cost, price FROM offer_systems WHERE offer_id = ? ORDER BY sort, id`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	o.Systems = []storage.OfferSystem{}
	for rows.Next() {
		var sys storage.OfferSystem
		if err := rows.Scan(&sys.SystemID, &sys.SystemName, &sys.Level, &sys.Hours, &sys.Cost, &sys.Price); err != nil {
			return nil, err
		}
		o.Systems = append(o.Systems, sys)
	}

	return &o, rows.Err()
}

func (s *Storage) GetOffer(ctx context.Context, id int64) (*storage.Offer, error) {
	const op = "storage.mysql.GetOffer"

	o, err := getOffer(ctx, s.db, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return o, nil
}

// UpdateDraftOffer rewrites a draft offer and replaces its systems (delete then recreate)
// in one transaction. A non-draft offer yields ErrInvalidState and nothing is written.
func (s *Storage) UpdateDraftOffer(ctx context.Context, o storage.Offer) (*storage.Offer, error) {
	const op = "storage.mysql.UpdateDraftOffer"

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: begin tx: %w", op, err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE offers SET title = ?, notes = ?, total_hours = ?, total_cost = ?, total_price = ?, updated_at = ?
		WHERE id = ? AND state = ?`,
		o.Title, o.Notes, o.TotalHours, o.TotalCost, o.TotalPrice, s.now(), o.ID, storage.OfferDraft)
	if err != nil {
		return nil, fmt.Errorf("%s: update: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("%s: rows affected: %w", op, err)
	}
	if n == 0 {
		if _, err := getOffer(ctx, tx, o.ID); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		return nil, fmt.Errorf("%s: offer %d is not a draft: %w", op, o.ID, storage.ErrInvalidState)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM offer_systems WHERE offer_id = ?`, o.ID); err != nil {
		return nil, fmt.Errorf("%s: delete systems: %w", op, err)
	}
	if err := insertOfferSystems(ctx, tx, o.ID, o.Systems); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	out, err := getOffer(ctx, tx, o.ID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%s: commit: %w", op, err)
	}

	return out, nil
}

// SetOfferState moves the offer from one state to another. The from state is part of the
// WHERE clause so a concurrent transition makes this one fail with ErrInvalidState.
func (s *Storage) SetOfferState(ctx context.Context, id int64, from, to storage.OfferState) error {
	const op = "storage.mysql.SetOfferState"

	res, err := s.db.ExecContext(ctx, `UPDATE offers SET state = ?, updated_at = ? WHERE id = ? AND state = ?`,
		to, s.now(), id, from)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%s: offer %d left state %s: %w", op, id, from, storage.ErrInvalidState)
	}

	return nil
}

// CreateInterventionFromOffer inserts the intervention and links it to the approved offer
// in one transaction. An offer already linked yields ErrAlreadyExists.
func (s *Storage) CreateInterventionFromOffer(ctx context.Context, offerID int64, in storage.Intervention) (*storage.Intervention, error) {
	const op = "storage.mysql.CreateInterventionFromOffer"

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: begin tx: %w", op, err)
	}
	defer tx.Rollback()

	in.OfferID = &offerID
	id, err := s.insertIntervention(ctx, tx, in)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE offers SET intervention_id = ?, updated_at = ? WHERE id = ? AND state = ? AND intervention_id IS NULL`,
		id, s.now(), offerID, storage.OfferApproved)
	if err != nil {
		if isDuplicate(err) {
			return nil, fmt.Errorf("%s: offer %d: %w", op, offerID, storage.ErrAlreadyExists)
		}
		return nil, fmt.Errorf("%s: link offer: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("%s: rows affected: %w", op, err)
	}
	if n == 0 {
		o, err := getOffer(ctx, tx, offerID)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if o.InterventionID != nil {
			return nil, fmt.Errorf("%s: offer %d already generated intervention %d: %w", op, offerID, *o.InterventionID, storage.ErrAlreadyExists)
		}
		return nil, fmt.Errorf("%s: offer %d is %s: %w", op, offerID, o.State, storage.ErrInvalidState)
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
