package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"robot-maint/internal/storage"
)

// CreatePurchaseOrder persists the order and its lines in one transaction. The unique key on
// intervention_id turns a concurrent second generation into ErrAlreadyExists.
func (s *Storage) CreatePurchaseOrder(ctx context.Context, po storage.PurchaseOrder) (*storage.PurchaseOrder, error) {
	const op = "storage.mysql.CreatePurchaseOrder"

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: begin tx: %w", op, err)
	}
	defer tx.Rollback()

	if po.State == "" {
		po.State = storage.PurchaseOrderPending
	}

	now := s.now()
	res, err := tx.ExecContext(ctx,
		`INSERT INTO purchase_orders (intervention_id, state, total_hours, misc_cost, total_cost, total_price, notes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		po.InterventionID, po.State, po.TotalHours, po.MiscCost, po.TotalCost, po.TotalPrice, po.Notes, now, now)
	if err != nil {
		if isDuplicate(err) {
			return nil, fmt.Errorf("%s: purchase order for intervention %d: %w", op, po.InterventionID, storage.ErrAlreadyExists)
		}
		return nil, fmt.Errorf("%s: insert: %w", op, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("%s: last insert id: %w", op, err)
	}

	if err := insertLines(ctx, tx, id, po.Lines); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	out, err := getPurchaseOrder(ctx, tx, `id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%s: commit: %w", op, err)
	}

	return out, nil
}

func insertLines(ctx context.Context, tx *sql.Tx, orderID int64, lines []storage.PurchaseOrderLine) error {
	for i, l := range lines {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO purchase_order_lines (purchase_order_id, sort, kind, ref_id, name, quantity, unit_cost, unit_price,
				total_cost, total_price, system_id, system_name, component_kind, model_name, level, stale)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			orderID, i, l.Kind, l.RefID, l.Name, l.Quantity, l.UnitCost, l.UnitPrice,
			l.TotalCost, l.TotalPrice, l.SystemID, l.SystemName, l.ComponentKind, l.ModelName, l.Level, l.Stale)
		if err != nil {
			return fmt.Errorf("insert line %d: %w", i, err)
		}
	}
	return nil
}

func getPurchaseOrder(ctx context.Context, q queryer, where string, arg any) (*storage.PurchaseOrder, error) {
	var po storage.PurchaseOrder
	err := q.QueryRowContext(ctx,
		`SELECT id, intervention_id, state, total_hours, misc_cost, total_cost, total_price, notes, created_at, updated_at
		FROM purchase_orders WHERE `+where, arg).
		Scan(&po.ID, &po.InterventionID, &po.State, &po.TotalHours, &po.MiscCost, &po.TotalCost, &po.TotalPrice,
			&po.Notes, &po.CreatedAt, &po.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("purchase order: %w", storage.ErrNotFound)
		}
		return nil, err
	}

	rows, err := q.QueryContext(ctx,
		`SELECT id, kind, ref_id, name, quantity, unit_cost, unit_price, total_cost, total_price,
			system_id, system_name, component_kind, model_name, level, stale
		FROM purchase_order_lines WHERE purchase_order_id = ? ORDER BY sort, id`, po.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	po.Lines = []storage.PurchaseOrderLine{}
	for rows.Next() {
		var l storage.PurchaseOrderLine
		err := rows.Scan(&l.ID, &l.Kind, &l.RefID, &l.Name, &l.Quantity, &l.UnitCost, &l.UnitPrice, &l.TotalCost, &l.TotalPrice,
			&l.SystemID, &l.SystemName, &l.ComponentKind, &l.ModelName, &l.Level, &l.Stale)
		if err != nil {
			return nil, err
		}
		po.Lines = append(po.Lines, l)
	}

	return &po, rows.Err()
}

func (s *Storage) GetPurchaseOrder(ctx context.Context, id int64) (*storage.PurchaseOrder, error) {
	const op = "storage.mysql.GetPurchaseOrder"

	po, err := getPurchaseOrder(ctx, s.db, `id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("%s: id %d: %w", op, id, err)
	}

	return po, nil
}

func (s *Storage) GetPurchaseOrderByIntervention(ctx context.Context, interventionID int64) (*storage.PurchaseOrder, error) {
	const op = "storage.mysql.GetPurchaseOrderByIntervention"

	po, err := getPurchaseOrder(ctx, s.db, `intervention_id = ?`, interventionID)
	if err != nil {
		return nil, fmt.Errorf("%s: intervention %d: %w", op, interventionID, err)
	}

	return po, nil
}

// UpdatePurchaseOrder writes state, notes and totals when the order is still in state from.
// When replaceLines is set the lines are deleted and reinserted in the same transaction.
// An order that left from meanwhile yields ErrInvalidState and nothing is written.
func (s *Storage) UpdatePurchaseOrder(ctx context.Context, po storage.PurchaseOrder, from storage.PurchaseOrderState, replaceLines bool) (*storage.PurchaseOrder, error) {
	const op = "storage.mysql.UpdatePurchaseOrder"

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: begin tx: %w", op, err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE purchase_orders SET state = ?, total_hours = ?, misc_cost = ?, total_cost = ?, total_price = ?, notes = ?, updated_at = ?
		WHERE id = ? AND state = ?`,
		po.State, po.TotalHours, po.MiscCost, po.TotalCost, po.TotalPrice, po.Notes, s.now(), po.ID, from)
	if err != nil {
		return nil, fmt.Errorf("%s: update: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("%s: rows affected: %w", op, err)
	}
	if n == 0 {
		if _, err := getPurchaseOrder(ctx, tx, `id = ?`, po.ID); err != nil {
			return nil, fmt.Errorf("%s: id %d: %w", op, po.ID, err)
		}
		return nil, fmt.Errorf("%s: purchase order %d left state %s: %w", op, po.ID, from, storage.ErrInvalidState)
	}

	if replaceLines {
		if _, err := tx.ExecContext(ctx, `DELETE FROM purchase_order_lines WHERE purchase_order_id = ?`, po.ID); err != nil {
			return nil, fmt.Errorf("%s: delete lines: %w", op, err)
		}
		if err := insertLines(ctx, tx, po.ID, po.Lines); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	out, err := getPurchaseOrder(ctx, tx, `id = ?`, po.ID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%s: commit: %w", op, err)
	}

	return out, nil
}

func (s *Storage) DeletePurchaseOrder(ctx context.Context, id int64) error {
	const op = "storage.mysql.DeletePurchaseOrder"

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: begin tx: %w", op, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM purchase_order_lines WHERE purchase_order_id = ?`, id); err != nil {
		return fmt.Errorf("%s: delete lines: %w", op, err)
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM purchase_orders WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("%s: delete: %w", op, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%s: purchase order %d: %w", op, id, storage.ErrNotFound)
	}

	return tx.Commit()
}
