package storage

import (
	"encoding/json"
	"strings"
)

// ConsumableKind selects the priced catalog a reference resolves against.
type ConsumableKind string

const (
	ConsumableOil     ConsumableKind = "oil"
	ConsumableBattery ConsumableKind = "battery"
	ConsumableGeneric ConsumableKind = "generic"
)

var kindAliases = map[string]ConsumableKind{
	"oil":        ConsumableOil,
	"aceite":     ConsumableOil,
	"battery":    ConsumableBattery,
	"bateria":    ConsumableBattery,
	"batería":    ConsumableBattery,
	"generic":    ConsumableGeneric,
	"consumible": ConsumableGeneric,
	"generico":   ConsumableGeneric,
	"genérico":   ConsumableGeneric,
}

// ParseConsumableKind accepts the canonical names and the legacy Spanish ones.
func ParseConsumableKind(s string) (ConsumableKind, bool) {
	k, ok := kindAliases[strings.ToLower(strings.TrimSpace(s))]
	return k, ok
}

func (k ConsumableKind) Valid() bool {
	switch k {
	case ConsumableOil, ConsumableBattery, ConsumableGeneric:
		return true
	}
	return false
}

// Label is the human name used in generated documents.
func (k ConsumableKind) Label() string {
	switch k {
	case ConsumableOil:
		return "Oil"
	case ConsumableBattery:
		return "Battery"
	case ConsumableGeneric:
		return "Consumable"
	}
	return string(k)
}

// ConsumableRef points at a catalog row. RefID <= 0 marks a slot that is not assigned yet.
type ConsumableRef struct {
	Kind     ConsumableKind `json:"tipo"`
	RefID    int64          `json:"id"`
	Quantity float64        `json:"cantidad"`
}

// Assigned reports whether the reference takes part in costing.
func (r ConsumableRef) Assigned() bool {
	return r.RefID > 0 && r.Kind.Valid()
}

// UnmarshalJSON reads the tipo/id/cantidad form and falls back to kind/ref_id/quantity.
func (r *ConsumableRef) UnmarshalJSON(data []byte) error {
	var aux struct {
		Tipo     string   `json:"tipo"`
		ID       *int64   `json:"id"`
		Cantidad *float64 `json:"cantidad"`
		Kind     string   `json:"kind"`
		RefID    *int64   `json:"ref_id"`
		Quantity *float64 `json:"quantity"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	raw := aux.Tipo
	if raw == "" {
		raw = aux.Kind
	}
	kind, ok := ParseConsumableKind(raw)
	if !ok {
		kind = ConsumableKind(raw)
	}

	*r = ConsumableRef{Kind: kind}
	switch {
	case aux.ID != nil:
		r.RefID = *aux.ID
	case aux.RefID != nil:
		r.RefID = *aux.RefID
	}
	switch {
	case aux.Cantidad != nil:
		r.Quantity = *aux.Cantidad
	case aux.Quantity != nil:
		r.Quantity = *aux.Quantity
	}
	return nil
}

// ConsumablesLevel is the catalog entry of one (model, level) pair.
type ConsumablesLevel struct {
	ID          int64           `json:"id"`
	ModelID     int64           `json:"model_id"`
	Level       Level           `json:"level"`
	Hours       *float64        `json:"hours"`
	MiscCost    *float64        `json:"misc_cost"`
	Consumables []ConsumableRef `json:"consumibles"`
}

// ModelConsumables groups every level entry of one model.
type ModelConsumables struct {
	Model   ComponentModel     `json:"model"`
	Entries []ConsumablesLevel `json:"entries"`
}

// CatalogItem is a priced oil, battery or generic consumable. Cost and Price may be
// missing on legitimate rows.
type CatalogItem struct {
	ID        int64          `json:"id"`
	Kind      ConsumableKind `json:"kind"`
	Name      string         `json:"name"`
	Reference string         `json:"reference"`
	Cost      *float64       `json:"cost"`
	Price     *float64       `json:"price"`
}
