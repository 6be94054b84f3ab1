package storage

import "time"

type PurchaseOrderState string

const (
	PurchaseOrderPending  PurchaseOrderState = "pending"
	PurchaseOrderOrdered  PurchaseOrderState = "ordered"
	PurchaseOrderReceived PurchaseOrderState = "received"
)

func (s PurchaseOrderState) Valid() bool {
	switch s {
	case PurchaseOrderPending, PurchaseOrderOrdered, PurchaseOrderReceived:
		return true
	}
	return false
}

// Rank orders states along pending → ordered → received.
func (s PurchaseOrderState) Rank() int {
	switch s {
	case PurchaseOrderPending:
		return 0
	case PurchaseOrderOrdered:
		return 1
	case PurchaseOrderReceived:
		return 2
	}
	return -1
}

type PurchaseOrder struct {
	ID             int64               `json:"id"`
	InterventionID int64               `json:"intervention_id"`
	State          PurchaseOrderState  `json:"state"`
	TotalHours     float64             `json:"total_hours"`
	MiscCost       float64             `json:"misc_cost"`
	TotalCost      float64             `json:"total_cost"`
	TotalPrice     float64             `json:"total_price"`
	Notes          string              `json:"notes"`
	CreatedAt      time.Time           `json:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at"`
	Lines          []PurchaseOrderLine `json:"lines"`
}

// PurchaseOrderLine is one occurrence of a consumable reference on one component.
// Stale marks a reference whose catalog row no longer exists.
type PurchaseOrderLine struct {
	ID            int64          `json:"id"`
	Kind          ConsumableKind `json:"kind"`
	RefID         int64          `json:"ref_id"`
	Name          string         `json:"name"`
	Quantity      float64        `json:"quantity"`
	UnitCost      float64        `json:"unit_cost"`
	UnitPrice     float64        `json:"unit_price"`
	TotalCost     float64        `json:"total_cost"`
	TotalPrice    float64        `json:"total_price"`
	SystemID      int64          `json:"system_id"`
	SystemName    string         `json:"system_name"`
	ComponentKind ModelKind      `json:"component_kind"`
	ModelName     string         `json:"model_name"`
	Level         Level          `json:"level"`
	Stale         bool           `json:"stale"`
}

// PurchaseOrderUpdate carries the fields a caller wants to change; nil means untouched.
type PurchaseOrderUpdate struct {
	State *PurchaseOrderState  `json:"state"`
	Lines *[]PurchaseOrderLine `json:"lines"`
	Notes *string              `json:"notes"`
}
