// Package costing rolls per-level consumables of every component of the selected systems
// up into hours, cost and price totals and into purchase-order lines.
package costing

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"robot-maint/internal/observability/metrics"
	"robot-maint/internal/storage"
)

// Places is the number of decimals kept on every amount leaving the engine.
const Places = 4

type Storage interface {
	GetSystemsByIDs(ctx context.Context, ids []int64) ([]storage.System, error)
	GetComponentsBySystemIDs(ctx context.Context, systemIDs []int64) ([]storage.PhysicalComponent, error)
	GetModelsByIDs(ctx context.Context, ids []int64) ([]storage.ComponentModel, error)
	GetConsumablesByModelIDs(ctx context.Context, modelIDs []int64) ([]storage.ConsumablesLevel, error)
	GetCatalogItems(ctx context.Context, kind storage.ConsumableKind, ids []int64) ([]storage.CatalogItem, error)
}

type Service struct {
	storage Storage
}

func NewService(storage Storage) *Service {
	return &Service{storage: storage}
}

// SystemTotals is the subtotal of one (system, level) selection.
type SystemTotals struct {
	SystemID   int64         `json:"system_id"`
	SystemName string        `json:"system_name"`
	Level      storage.Level `json:"level"`
	Hours      float64       `json:"hours"`
	Cost       float64       `json:"cost"`
	Price      float64       `json:"price"`
}

type Totals struct {
	Hours    float64        `json:"total_hours"`
	MiscCost float64        `json:"misc_cost"`
	Cost     float64        `json:"total_cost"`
	Price    float64        `json:"total_price"`
	Systems  []SystemTotals `json:"systems"`
}

// Result is Totals plus one line per component and assigned consumable reference.
type Result struct {
	Totals
	Lines []storage.PurchaseOrderLine `json:"lines"`
}

// ComputeTotals prices the selections against the current catalogs.
func (s *Service) ComputeTotals(ctx context.Context, selections []storage.Selection) (Totals, error) {
	res, err := s.run(ctx, selections, false)
	if err != nil {
		return Totals{}, err
	}
	return res.Totals, nil
}

// GenerateLines is ComputeTotals keeping every unaggregated line with its provenance.
func (s *Service) GenerateLines(ctx context.Context, selections []storage.Selection) (Result, error) {
	return s.run(ctx, selections, true)
}

type entryKey struct {
	modelID int64
	level   storage.Level
}

type refKey struct {
	kind storage.ConsumableKind
	id   int64
}

// snapshot is everything one run reads from storage.
type snapshot struct {
	systems    map[int64]storage.System
	components map[int64][]storage.PhysicalComponent
	models     map[int64]storage.ComponentModel
	entries    map[entryKey]storage.ConsumablesLevel
	catalog    map[refKey]storage.CatalogItem
}

func (s *Service) run(ctx context.Context, selections []storage.Selection, withLines bool) (res Result, err error) {
	const op = "service.costing.run"

	start := time.Now()
	defer func() {
		metrics.ObserveCosting(metrics.Result(err), time.Since(start))
	}()

	if len(selections) == 0 {
		return Result{}, fmt.Errorf("%s: %w", op, storage.ErrNoSystems)
	}
	for _, sel := range selections {
		if !sel.Level.Valid() {
			return Result{}, fmt.Errorf("%s: level %q: %w", op, sel.Level, storage.ErrInvalidLevel)
		}
	}

	snap, err := s.load(ctx, selections)
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", op, err)
	}

	for _, sel := range selections {
		if _, ok := snap.systems[sel.SystemID]; !ok {
			return Result{}, fmt.Errorf("%s: system %d: %w", op, sel.SystemID, storage.ErrNotFound)
		}
	}

	return compute(snap, selections, withLines), nil
}

// load reads the snapshot in three rounds: systems and components, then models and
// consumables entries, then one catalog query per consumable kind.
func (s *Service) load(ctx context.Context, selections []storage.Selection) (*snapshot, error) {
	snap := &snapshot{
		systems:    make(map[int64]storage.System),
		components: make(map[int64][]storage.PhysicalComponent),
		models:     make(map[int64]storage.ComponentModel),
		entries:    make(map[entryKey]storage.ConsumablesLevel),
		catalog:    make(map[refKey]storage.CatalogItem),
	}

	systemIDs := make([]int64, 0, len(selections))
	for _, sel := range selections {
		systemIDs = append(systemIDs, sel.SystemID)
	}
	systemIDs = uniqueSorted(systemIDs)

	var (
		systems    []storage.System
		components []storage.PhysicalComponent
	)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		systems, err = s.storage.GetSystemsByIDs(gCtx, systemIDs)
		if err != nil {
			return fmt.Errorf("systems: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		components, err = s.storage.GetComponentsBySystemIDs(gCtx, systemIDs)
		if err != nil {
			return fmt.Errorf("components: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, sys := range systems {
		snap.systems[sys.ID] = sys
	}

	modelIDs := make([]int64, 0, len(components))
	for _, c := range components {
		snap.components[c.SystemID] = append(snap.components[c.SystemID], c)
		modelIDs = append(modelIDs, c.ModelID)
	}
	modelIDs = uniqueSorted(modelIDs)
	if len(modelIDs) == 0 {
		return snap, nil
	}

	var (
		models  []storage.ComponentModel
		entries []storage.ConsumablesLevel
	)

	g, gCtx = errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		models, err = s.storage.GetModelsByIDs(gCtx, modelIDs)
		if err != nil {
			return fmt.Errorf("models: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		entries, err = s.storage.GetConsumablesByModelIDs(gCtx, modelIDs)
		if err != nil {
			return fmt.Errorf("consumables: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, m := range models {
		snap.models[m.ID] = m
	}
	for _, e := range entries {
		snap.entries[entryKey{e.ModelID, e.Level}] = e
	}

	// only references reachable from a requested (model, level) pair are priced
	wanted := make(map[entryKey]struct{})
	for _, sel := range selections {
		for _, c := range snap.components[sel.SystemID] {
			wanted[entryKey{c.ModelID, sel.Level}] = struct{}{}
		}
	}

	refIDs := make(map[storage.ConsumableKind][]int64)
	for key := range wanted {
		for _, ref := range snap.entries[key].Consumables {
			if ref.Assigned() {
				refIDs[ref.Kind] = append(refIDs[ref.Kind], ref.RefID)
			}
		}
	}
	if len(refIDs) == 0 {
		return snap, nil
	}

	var mu sync.Mutex
	g, gCtx = errgroup.WithContext(ctx)
	for kind, ids := range refIDs {
		ids := uniqueSorted(ids)
		g.Go(func() error {
			items, err := s.storage.GetCatalogItems(gCtx, kind, ids)
			if err != nil {
				return fmt.Errorf("catalog %s: %w", kind, err)
			}
			mu.Lock()
			defer mu.Unlock()
			for _, it := range items {
				snap.catalog[refKey{kind, it.ID}] = it
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return snap, nil
}

func compute(snap *snapshot, selections []storage.Selection, withLines bool) Result {
	var res Result
	var hours, misc, cost, price decimal.Decimal
	stale := make(map[storage.ConsumableKind]int)

	res.Systems = make([]SystemTotals, 0, len(selections))
	if withLines {
		res.Lines = []storage.PurchaseOrderLine{}
	}

	for _, sel := range selections {
		sys := snap.systems[sel.SystemID]
		var sHours, sMisc, sCost, sPrice decimal.Decimal

		for _, comp := range snap.components[sel.SystemID] {
			model, ok := snap.models[comp.ModelID]
			if !ok {
				continue
			}
			entry, ok := snap.entries[entryKey{model.ID, sel.Level}]
			if !ok {
				continue
			}

			sHours = sHours.Add(dec(entry.Hours))
			sMisc = sMisc.Add(dec(entry.MiscCost))

			for _, ref := range entry.Consumables {
				if !ref.Assigned() {
					continue
				}

				item, found := snap.catalog[refKey{ref.Kind, ref.RefID}]
				qty := decimal.NewFromFloat(ref.Quantity)
				unitCost, unitPrice := dec(item.Cost), dec(item.Price)
				lineCost, linePrice := unitCost.Mul(qty), unitPrice.Mul(qty)

				sCost = sCost.Add(lineCost)
				sPrice = sPrice.Add(linePrice)

				if !found {
					stale[ref.Kind]++
				}
				if !withLines {
					continue
				}

				name := item.Name
				if !found {
					name = StaleName(ref.Kind, ref.RefID)
				}
				res.Lines = append(res.Lines, storage.PurchaseOrderLine{
					Kind:          ref.Kind,
					RefID:         ref.RefID,
					Name:          name,
					Quantity:      ref.Quantity,
					UnitCost:      Round(unitCost),
					UnitPrice:     Round(unitPrice),
					TotalCost:     Round(lineCost),
					TotalPrice:    Round(linePrice),
					SystemID:      sys.ID,
					SystemName:    sys.Name,
					ComponentKind: model.Kind,
					ModelName:     model.Name,
					Level:         sel.Level,
					Stale:         !found,
				})
			}
		}

		// misc cost is charged at cost and at price alike
		sCost = sCost.Add(sMisc)
		sPrice = sPrice.Add(sMisc)

		res.Systems = append(res.Systems, SystemTotals{
			SystemID:   sys.ID,
			SystemName: sys.Name,
			Level:      sel.Level,
			Hours:      Round(sHours),
			Cost:       Round(sCost),
			Price:      Round(sPrice),
		})

		hours = hours.Add(sHours)
		misc = misc.Add(sMisc)
		cost = cost.Add(sCost)
		price = price.Add(sPrice)
	}

	res.Hours = Round(hours)
	res.MiscCost = Round(misc)
	res.Cost = Round(cost)
	res.Price = Round(price)

	for kind, n := range stale {
		metrics.AddStaleReferences(string(kind), n)
	}

	return res
}

// StaleName is the line name of a reference whose catalog row is gone.
func StaleName(kind storage.ConsumableKind, id int64) string {
	return fmt.Sprintf("%s #%d (not found)", kind.Label(), id)
}

// Round converts an exact amount to the float returned to callers.
func Round(d decimal.Decimal) float64 {
	return d.Round(Places).InexactFloat64()
}

func dec(f *float64) decimal.Decimal {
	if f == nil {
		return decimal.Zero
	}
	return decimal.NewFromFloat(*f)
}

func uniqueSorted(ids []int64) []int64 {
	out := slices.Clone(ids)
	slices.Sort(out)
	return slices.Compact(out)
}
