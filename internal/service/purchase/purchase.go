// Package purchase generates and maintains the single purchase order of an intervention.
package purchase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"robot-maint/internal/observability/metrics"
	"robot-maint/internal/service/costing"
	"robot-maint/internal/storage"
)

type Storage interface {
	GetIntervention(ctx context.Context, id int64) (*storage.Intervention, error)
	CreatePurchaseOrder(ctx context.Context, po storage.PurchaseOrder) (*storage.PurchaseOrder, error)
	GetPurchaseOrder(ctx context.Context, id int64) (*storage.PurchaseOrder, error)
	GetPurchaseOrderByIntervention(ctx context.Context, interventionID int64) (*storage.PurchaseOrder, error)
	UpdatePurchaseOrder(ctx context.Context, po storage.PurchaseOrder, from storage.PurchaseOrderState, replaceLines bool) (*storage.PurchaseOrder, error)
	DeletePurchaseOrder(ctx context.Context, id int64) error
}

type Coster interface {
	GenerateLines(ctx context.Context, selections []storage.Selection) (costing.Result, error)
}

type Service struct {
	log     *slog.Logger
	storage Storage
	coster  Coster
}

func NewService(log *slog.Logger, storage Storage, coster Coster) *Service {
	return &Service{log: log, storage: storage, coster: coster}
}

// Aggregated is a purchase order with its lines grouped by catalog reference.
type Aggregated struct {
	storage.PurchaseOrder
	Aggregated []costing.AggregatedLine `json:"aggregated"`
}

// Generate prices the intervention's selections and stores the resulting order.
func (s *Service) Generate(ctx context.Context, interventionID int64) (po *storage.PurchaseOrder, err error) {
	const op = "service.purchase.Generate"

	start := time.Now()
	defer func() {
		metrics.ObservePurchaseOrderGenerate(metrics.Result(err), time.Since(start))
	}()

	in, err := s.storage.GetIntervention(ctx, interventionID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if len(in.Selections) == 0 {
		return nil, fmt.Errorf("%s: intervention %d: %w", op, interventionID, storage.ErrNoSystems)
	}

	existing, err := s.storage.GetPurchaseOrderByIntervention(ctx, interventionID)
	switch {
	case err == nil:
		return nil, fmt.Errorf("%s: purchase order %d: %w", op, existing.ID, storage.ErrAlreadyExists)
	case !errors.Is(err, storage.ErrNotFound):
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	res, err := s.coster.GenerateLines(ctx, in.Selections)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	po, err = s.storage.CreatePurchaseOrder(ctx, storage.PurchaseOrder{
		InterventionID: interventionID,
		State:          storage.PurchaseOrderPending,
		TotalHours:     res.Hours,
		MiscCost:       res.MiscCost,
		TotalCost:      res.Cost,
		TotalPrice:     res.Price,
		Lines:          res.Lines,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("purchase order generated",
		slog.String("op", op),
		slog.Int64("intervention_id", interventionID),
		slog.Int64("purchase_order_id", po.ID),
		slog.Int("lines", len(po.Lines)),
	)

	return po, nil
}

func (s *Service) GetByIntervention(ctx context.Context, interventionID int64) (*storage.PurchaseOrder, error) {
	const op = "service.purchase.GetByIntervention"

	po, err := s.storage.GetPurchaseOrderByIntervention(ctx, interventionID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return po, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*storage.PurchaseOrder, error) {
	const op = "service.purchase.Get"

	po, err := s.storage.GetPurchaseOrder(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return po, nil
}

func (s *Service) GetAggregated(ctx context.Context, id int64) (*Aggregated, error) {
	const op = "service.purchase.GetAggregated"

	po, err := s.storage.GetPurchaseOrder(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Aggregated{PurchaseOrder: *po, Aggregated: costing.AggregateLines(po.Lines)}, nil
}

// Update applies the non-nil fields of upd. State only moves forward, and the lines of a
// received order are closed. Replacing lines recomputes every line total and the order
// totals as misc cost plus the sum of lines.
func (s *Service) Update(ctx context.Context, id int64, upd storage.PurchaseOrderUpdate) (*storage.PurchaseOrder, error) {
	const op = "service.purchase.Update"

	po, err := s.storage.GetPurchaseOrder(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if upd.Lines != nil && po.State == storage.PurchaseOrderReceived {
		return nil, fmt.Errorf("%s: lines of a received order: %w", op, storage.ErrInvalidState)
	}

	next := *po
	if upd.State != nil {
		if !upd.State.Valid() {
			return nil, fmt.Errorf("%s: state %q: %w", op, *upd.State, storage.ErrInvalidInput)
		}
		if upd.State.Rank() < po.State.Rank() {
			return nil, fmt.Errorf("%s: %s -> %s: %w", op, po.State, *upd.State, storage.ErrInvalidState)
		}
		next.State = *upd.State
	}
	if upd.Notes != nil {
		next.Notes = *upd.Notes
	}

	replace := upd.Lines != nil
	if replace {
		lines, err := recomputeLines(*upd.Lines)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		cost, price := costing.LinesTotals(lines)
		misc := decimal.NewFromFloat(po.MiscCost)
		next.Lines = lines
		next.TotalCost = costing.Round(misc.Add(cost))
		next.TotalPrice = costing.Round(misc.Add(price))
	}

	out, err := s.storage.UpdatePurchaseOrder(ctx, next, po.State, replace)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("purchase order updated",
		slog.String("op", op),
		slog.Int64("purchase_order_id", id),
		slog.String("state", string(out.State)),
		slog.Bool("lines_replaced", replace),
	)

	return out, nil
}

func recomputeLines(in []storage.PurchaseOrderLine) ([]storage.PurchaseOrderLine, error) {
	out := make([]storage.PurchaseOrderLine, len(in))

	for i, l := range in {
		if !l.Kind.Valid() {
			return nil, fmt.Errorf("line %d: kind %q: %w", i, l.Kind, storage.ErrInvalidInput)
		}
		if l.Quantity < 0 || l.UnitCost < 0 || l.UnitPrice < 0 {
			return nil, fmt.Errorf("line %d: negative amount: %w", i, storage.ErrInvalidInput)
		}

		qty := decimal.NewFromFloat(l.Quantity)
		l.TotalCost = costing.Round(decimal.NewFromFloat(l.UnitCost).Mul(qty))
		l.TotalPrice = costing.Round(decimal.NewFromFloat(l.UnitPrice).Mul(qty))
		out[i] = l
	}

	return out, nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	const op = "service.purchase.Delete"

	if err := s.storage.DeletePurchaseOrder(ctx, id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("purchase order deleted", slog.String("op", op), slog.Int64("purchase_order_id", id))

	return nil
}
