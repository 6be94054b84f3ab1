package storage

import "time"

type InterventionState string

const (
	InterventionPlanned    InterventionState = "planned"
	InterventionInProgress InterventionState = "in_progress"
	InterventionDone       InterventionState = "done"
)

// Selection asks for one system to be serviced at one maintenance level.
type Selection struct {
	SystemID int64 `json:"system_id"`
	Level    Level `json:"level"`
}

type Intervention struct {
	ID          int64             `json:"id"`
	ClientID    int64             `json:"client_id"`
	OfferID     *int64            `json:"offer_id"`
	Title       string            `json:"title"`
	State       InterventionState `json:"state"`
	ScheduledAt *time.Time        `json:"scheduled_at"`
	CreatedAt   time.Time         `json:"created_at"`
	Selections  []Selection       `json:"selections"`
}
