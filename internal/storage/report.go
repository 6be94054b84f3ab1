package storage

import (
	"time"

	"robot-maint/internal/schema"
)

type Report struct {
	ID             int64             `json:"id"`
	InterventionID int64             `json:"intervention_id"`
	SystemID       int64             `json:"system_id"`
	CreatedAt      time.Time         `json:"created_at"`
	Components     []ReportComponent `json:"components"`
}

// ReportComponent owns a frozen copy of the template schema it was created from. Only
// Data changes after creation.
type ReportComponent struct {
	ID                  int64          `json:"id"`
	ReportID            int64          `json:"report_id"`
	PhysicalComponentID int64          `json:"physical_component_id"`
	TemplateVersionID   int64          `json:"template_version_id"`
	SchemaFrozen        schema.Schema  `json:"schema_frozen"`
	Data                map[string]any `json:"data"`
	CreatedAt           time.Time      `json:"created_at"`
	UpdatedAt           time.Time      `json:"updated_at"`
}

type NewReportComponent struct {
	PhysicalComponentID int64
	TemplateVersionID   int64
	SchemaFrozen        schema.Schema
	Data                map[string]any
}
