package storage

import (
	"time"

	"robot-maint/internal/schema"
)

type VersionState string

const (
	VersionDraft    VersionState = "draft"
	VersionActive   VersionState = "active"
	VersionObsolete VersionState = "obsolete"
)

func (s VersionState) Valid() bool {
	switch s {
	case VersionDraft, VersionActive, VersionObsolete:
		return true
	}
	return false
}

type TemplateVersion struct {
	ID        int64         `json:"id"`
	ModelID   int64         `json:"model_id"`
	Version   int           `json:"version"`
	State     VersionState  `json:"state"`
	Schema    schema.Schema `json:"schema"`
	Notes     string        `json:"notes"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}
