package storage

import "time"

type OfferState string

const (
	OfferDraft    OfferState = "draft"
	OfferSent     OfferState = "sent"
	OfferApproved OfferState = "approved"
	OfferRejected OfferState = "rejected"
)

func (s OfferState) Valid() bool {
	switch s {
	case OfferDraft, OfferSent, OfferApproved, OfferRejected:
		return true
	}
	return false
}

type Offer struct {
	ID             int64         `json:"id"`
	ClientID       int64         `json:"client_id"`
	Title          string        `json:"title"`
	State          OfferState    `json:"state"`
	Notes          string        `json:"notes"`
	TotalHours     float64       `json:"total_hours"`
	TotalCost      float64       `json:"total_cost"`
	TotalPrice     float64       `json:"total_price"`
	InterventionID *int64        `json:"intervention_id"`
	Systems        []OfferSystem `json:"systems"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

// OfferSystem is one selection of an offer with its computed subtotals.
type OfferSystem struct {
	SystemID   int64   `json:"system_id"`
	SystemName string  `json:"system_name"`
	Level      Level   `json:"level"`
	Hours      float64 `json:"hours"`
	Cost       float64 `json:"cost"`
	Price      float64 `json:"price"`
}

// Selections returns the (system, level) pairs of the offer in order.
func (o Offer) Selections() []Selection {
	out := make([]Selection, len(o.Systems))
	for i, s := range o.Systems {
		out[i] = Selection{SystemID: s.SystemID, Level: s.Level}
	}
	return out
}
