package report

import (
	"context"
	"fmt"
	"maps"
	"time"

	"robot-maint/internal/placeholder"
	"robot-maint/internal/schema"
	"robot-maint/internal/storage"
)

// AssembledComponent is a report component with its frozen schema rendered for one context.
type AssembledComponent struct {
	storage.ReportComponent
	Document schema.Schema `json:"document"`
}

type Assembled struct {
	ID             int64                `json:"id"`
	InterventionID int64                `json:"intervention_id"`
	SystemID       int64                `json:"system_id"`
	CreatedAt      time.Time            `json:"created_at"`
	Components     []AssembledComponent `json:"components"`
}

// AssembleReport resolves placeholders of every frozen schema of the report. The stored
// schemas are not modified.
func (s *Service) AssembleReport(ctx context.Context, reportID int64, policy placeholder.Policy) (*Assembled, error) {
	const op = "service.report.AssembleReport"

	r, err := s.storage.GetReport(ctx, reportID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	in, err := s.storage.GetIntervention(ctx, r.InterventionID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	sys, err := s.storage.GetSystem(ctx, r.SystemID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	client, err := s.storage.GetClient(ctx, sys.ClientID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	physical, err := s.storage.GetComponentsBySystemIDs(ctx, []int64{sys.ID})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	byID := make(map[int64]storage.PhysicalComponent, len(physical))
	modelIDs := make([]int64, 0, len(physical))
	for _, p := range physical {
		byID[p.ID] = p
		modelIDs = append(modelIDs, p.ModelID)
	}

	models, err := s.storage.GetModelsByIDs(ctx, modelIDs)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	modelByID := make(map[int64]storage.ComponentModel, len(models))
	for _, m := range models {
		modelByID[m.ID] = m
	}

	base := baseContext(client, sys, in, r, s.now())

	out := &Assembled{
		ID:             r.ID,
		InterventionID: r.InterventionID,
		SystemID:       r.SystemID,
		CreatedAt:      r.CreatedAt,
		Components:     make([]AssembledComponent, 0, len(r.Components)),
	}

	for i, c := range r.Components {
		p := byID[c.PhysicalComponentID]
		m := modelByID[p.ModelID]

		values := maps.Clone(base)
		values["component"] = map[string]any{
			"index":    i + 1,
			"total":    len(r.Components),
			"serial":   p.Serial,
			"position": p.Position,
			"model":    m.Name,
			"kind":     string(m.Kind),
		}

		out.Components = append(out.Components, AssembledComponent{
			ReportComponent: c,
			Document:        placeholder.ResolveSchema(c.SchemaFrozen, values, policy),
		})
	}

	return out, nil
}

func baseContext(client *storage.Client, sys *storage.System, in *storage.Intervention, r *storage.Report, now time.Time) map[string]any {
	intervention := map[string]any{
		"id":    in.ID,
		"title": in.Title,
		"state": string(in.State),
	}
	if in.ScheduledAt != nil {
		intervention["scheduled_at"] = *in.ScheduledAt
	}

	return map[string]any{
		"client": map[string]any{
			"name":    client.Name,
			"address": client.Address,
			"contact": client.Contact,
		},
		"system": map[string]any{
			"name":     sys.Name,
			"serial":   sys.Serial,
			"location": sys.Location,
		},
		"intervention": intervention,
		"report": map[string]any{
			"id":         r.ID,
			"created_at": r.CreatedAt,
		},
		"date": map[string]any{
			"today": now,
			"year":  now.Year(),
		},
	}
}
