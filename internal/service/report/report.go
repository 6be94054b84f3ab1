// Package report freezes template versions into reports and assembles them for display.
package report

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"time"

	"robot-maint/internal/observability/metrics"
	"robot-maint/internal/schema"
	"robot-maint/internal/storage"
)

type Storage interface {
	GetIntervention(ctx context.Context, id int64) (*storage.Intervention, error)
	GetClient(ctx context.Context, id int64) (*storage.Client, error)
	GetSystem(ctx context.Context, id int64) (*storage.System, error)
	GetComponentsBySystemIDs(ctx context.Context, systemIDs []int64) ([]storage.PhysicalComponent, error)
	GetModelsByIDs(ctx context.Context, ids []int64) ([]storage.ComponentModel, error)
	GetTemplateVersion(ctx context.Context, id int64) (*storage.TemplateVersion, error)
	GetActiveTemplateVersion(ctx context.Context, modelID int64) (*storage.TemplateVersion, error)
	CreateReport(ctx context.Context, interventionID, systemID int64, components []storage.NewReportComponent) (*storage.Report, error)
	GetReport(ctx context.Context, id int64) (*storage.Report, error)
	GetReportComponent(ctx context.Context, id int64) (*storage.ReportComponent, error)
	UpdateReportComponentData(ctx context.Context, id int64, data map[string]any) error
}

type Service struct {
	log     *slog.Logger
	storage Storage
	now     func() time.Time
}

func NewService(log *slog.Logger, storage Storage) *Service {
	return &Service{log: log, storage: storage, now: time.Now}
}

// Frozen is a private copy of a version's schema. It shares nothing with the version row.
type Frozen struct {
	VersionID int64
	Schema    schema.Schema
}

// FreezeSchema copies the active version of the model.
func (s *Service) FreezeSchema(ctx context.Context, modelID int64) (Frozen, error) {
	const op = "service.report.FreezeSchema"

	v, err := s.storage.GetActiveTemplateVersion(ctx, modelID)
	if err != nil {
		return Frozen{}, fmt.Errorf("%s: %w", op, err)
	}

	return Frozen{VersionID: v.ID, Schema: v.Schema.Clone()}, nil
}

// FreezeVersion copies an explicitly chosen version, drafts included.
func (s *Service) FreezeVersion(ctx context.Context, versionID int64) (Frozen, error) {
	const op = "service.report.FreezeVersion"

	v, err := s.storage.GetTemplateVersion(ctx, versionID)
	if err != nil {
		return Frozen{}, fmt.Errorf("%s: %w", op, err)
	}

	return Frozen{VersionID: v.ID, Schema: v.Schema.Clone()}, nil
}

// CreateReport freezes a template for every component of the system, then writes the report
// and its components in one transaction. overrides maps a model id to the version to freeze
// instead of the active one. Nothing is written when any component cannot be frozen.
func (s *Service) CreateReport(ctx context.Context, interventionID, systemID int64, overrides map[int64]int64) (report *storage.Report, err error) {
	const op = "service.report.CreateReport"

	start := time.Now()
	defer func() {
		metrics.ObserveReportCreate(metrics.Result(err), time.Since(start))
	}()

	in, err := s.storage.GetIntervention(ctx, interventionID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !selects(in, systemID) {
		return nil, fmt.Errorf("%s: system %d is not part of intervention %d: %w", op, systemID, interventionID, storage.ErrInvalidState)
	}
	if _, err := s.storage.GetSystem(ctx, systemID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	components, err := s.storage.GetComponentsBySystemIDs(ctx, []int64{systemID})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	rows := make([]storage.NewReportComponent, 0, len(components))
	for _, c := range components {
		frozen, err := s.freezeFor(ctx, c.ModelID, overrides)
		if err != nil {
			return nil, fmt.Errorf("%s: component %d: %w", op, c.ID, err)
		}

		rows = append(rows, storage.NewReportComponent{
			PhysicalComponentID: c.ID,
			TemplateVersionID:   frozen.VersionID,
			SchemaFrozen:        frozen.Schema,
			Data:                schema.InitData(frozen.Schema),
		})
	}

	report, err = s.storage.CreateReport(ctx, interventionID, systemID, rows)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("report created",
		slog.String("op", op),
		slog.Int64("report_id", report.ID),
		slog.Int64("intervention_id", interventionID),
		slog.Int64("system_id", systemID),
		slog.Int("components", len(rows)),
	)

	return report, nil
}

func (s *Service) freezeFor(ctx context.Context, modelID int64, overrides map[int64]int64) (Frozen, error) {
	versionID, ok := overrides[modelID]
	if !ok {
		return s.FreezeSchema(ctx, modelID)
	}

	v, err := s.storage.GetTemplateVersion(ctx, versionID)
	if err != nil {
		return Frozen{}, err
	}
	if v.ModelID != modelID {
		return Frozen{}, fmt.Errorf("version %d belongs to model %d, not %d: %w", versionID, v.ModelID, modelID, storage.ErrInvalidInput)
	}

	return Frozen{VersionID: v.ID, Schema: v.Schema.Clone()}, nil
}

func selects(in *storage.Intervention, systemID int64) bool {
	for _, sel := range in.Selections {
		if sel.SystemID == systemID {
			return true
		}
	}
	return false
}

func (s *Service) GetReport(ctx context.Context, id int64) (*storage.Report, error) {
	const op = "service.report.GetReport"

	r, err := s.storage.GetReport(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return r, nil
}

func (s *Service) GetComponent(ctx context.Context, id int64) (*storage.ReportComponent, error) {
	const op = "service.report.GetComponent"

	c, err := s.storage.GetReportComponent(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return c, nil
}

// PatchData replaces the data map of a component, or merges data into it key by key when
// replace is false. The frozen schema is left alone.
func (s *Service) PatchData(ctx context.Context, componentID int64, data map[string]any, replace bool) (*storage.ReportComponent, error) {
	const op = "service.report.PatchData"

	c, err := s.storage.GetReportComponent(ctx, componentID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	next := data
	if !replace {
		next = maps.Clone(c.Data)
		if next == nil {
			next = make(map[string]any, len(data))
		}
		maps.Copy(next, data)
	}
	if next == nil {
		next = map[string]any{}
	}

	if err := s.storage.UpdateReportComponentData(ctx, componentID, next); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	updated, err := s.storage.GetReportComponent(ctx, componentID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return updated, nil
}
