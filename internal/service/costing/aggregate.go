package costing

import (
	"cmp"
	"slices"

	"github.com/shopspring/decimal"

	"robot-maint/internal/storage"
)

// Occurrence is one line that contributed to an aggregated line.
type Occurrence struct {
	SystemID      int64             `json:"system_id"`
	SystemName    string            `json:"system_name"`
	ComponentKind storage.ModelKind `json:"component_kind"`
	ModelName     string            `json:"model_name"`
	Level         storage.Level     `json:"level"`
	Quantity      float64           `json:"quantity"`
}

// AggregatedLine is every line of one catalog reference merged together. Unit values are
// quantity weighted.
type AggregatedLine struct {
	Kind        storage.ConsumableKind `json:"kind"`
	RefID       int64                  `json:"ref_id"`
	Name        string                 `json:"name"`
	Quantity    float64                `json:"quantity"`
	UnitCost    float64                `json:"unit_cost"`
	UnitPrice   float64                `json:"unit_price"`
	TotalCost   float64                `json:"total_cost"`
	TotalPrice  float64                `json:"total_price"`
	Stale       bool                   `json:"stale"`
	Occurrences []Occurrence           `json:"occurrences"`
}

type aggregate struct {
	line        AggregatedLine
	qty         decimal.Decimal
	cost, price decimal.Decimal
	named       bool
}

// AggregateLines groups lines by (kind, ref id). The output does not depend on the order of
// lines: groups are sorted by kind then ref id, occurrences by system, level, component kind,
// model name and quantity.
func AggregateLines(lines []storage.PurchaseOrderLine) []AggregatedLine {
	groups := make(map[refKey]*aggregate)

	for _, l := range lines {
		key := refKey{l.Kind, l.RefID}
		g, ok := groups[key]
		if !ok {
			g = &aggregate{line: AggregatedLine{Kind: l.Kind, RefID: l.RefID, Stale: true}}
			groups[key] = g
		}

		qty := decimal.NewFromFloat(l.Quantity)
		g.qty = g.qty.Add(qty)
		g.cost = g.cost.Add(decimal.NewFromFloat(l.UnitCost).Mul(qty))
		g.price = g.price.Add(decimal.NewFromFloat(l.UnitPrice).Mul(qty))

		// a resolved name wins over the stale placeholder; ties break lexically
		switch {
		case !l.Stale && (!g.named || l.Name < g.line.Name):
			g.line.Name = l.Name
			g.named = true
		case l.Stale && !g.named && (g.line.Name == "" || l.Name < g.line.Name):
			g.line.Name = l.Name
		}
		g.line.Stale = g.line.Stale && l.Stale

		g.line.Occurrences = append(g.line.Occurrences, Occurrence{
			SystemID:      l.SystemID,
			SystemName:    l.SystemName,
			ComponentKind: l.ComponentKind,
			ModelName:     l.ModelName,
			Level:         l.Level,
			Quantity:      l.Quantity,
		})
	}

	out := make([]AggregatedLine, 0, len(groups))
	for _, g := range groups {
		line := g.line
		line.Quantity = Round(g.qty)
		line.TotalCost = Round(g.cost)
		line.TotalPrice = Round(g.price)
		if !g.qty.IsZero() {
			line.UnitCost = Round(g.cost.DivRound(g.qty, Places+2))
			line.UnitPrice = Round(g.price.DivRound(g.qty, Places+2))
		}
		slices.SortFunc(line.Occurrences, compareOccurrences)
		out = append(out, line)
	}

	slices.SortFunc(out, func(a, b AggregatedLine) int {
		return cmp.Or(
			cmp.Compare(a.Kind, b.Kind),
			cmp.Compare(a.RefID, b.RefID),
		)
	})

	return out
}

func compareOccurrences(a, b Occurrence) int {
	return cmp.Or(
		cmp.Compare(a.SystemID, b.SystemID),
		cmp.Compare(a.Level, b.Level),
		cmp.Compare(a.ComponentKind, b.ComponentKind),
		cmp.Compare(a.ModelName, b.ModelName),
		cmp.Compare(a.Quantity, b.Quantity),
		cmp.Compare(a.SystemName, b.SystemName),
	)
}

// LinesTotals sums quantity times unit values of lines exactly.
func LinesTotals(lines []storage.PurchaseOrderLine) (cost, price decimal.Decimal) {
	for _, l := range lines {
		qty := decimal.NewFromFloat(l.Quantity)
		cost = cost.Add(decimal.NewFromFloat(l.UnitCost).Mul(qty))
		price = price.Add(decimal.NewFromFloat(l.UnitPrice).Mul(qty))
	}
	return cost, price
}
