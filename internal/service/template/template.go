// Package template drives the lifecycle of component template versions.
package template

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"robot-maint/internal/observability/metrics"
	"robot-maint/internal/placeholder"
	"robot-maint/internal/schema"
	"robot-maint/internal/storage"
)

type Storage interface {
	GetComponentModel(ctx context.Context, id int64) (*storage.ComponentModel, error)
	CreateTemplateVersion(ctx context.Context, modelID int64, sch schema.Schema, notes string) (*storage.TemplateVersion, error)
	ListTemplateVersions(ctx context.Context, modelID int64) ([]storage.TemplateVersion, error)
	GetTemplateVersion(ctx context.Context, id int64) (*storage.TemplateVersion, error)
	GetActiveTemplateVersion(ctx context.Context, modelID int64) (*storage.TemplateVersion, error)
	SetTemplateVersionState(ctx context.Context, id int64, state storage.VersionState) (*storage.TemplateVersion, error)
	UpdateTemplateVersion(ctx context.Context, id int64, sch schema.Schema, notes string) (*storage.TemplateVersion, error)
	DeleteTemplateVersion(ctx context.Context, id int64) error
}

type Service struct {
	log     *slog.Logger
	storage Storage
}

func NewService(log *slog.Logger, storage Storage) *Service {
	return &Service{log: log, storage: storage}
}

// CreateVersion adds a draft to the model. A nil schema starts the draft empty.
func (s *Service) CreateVersion(ctx context.Context, modelID int64, initial *schema.Schema, notes string) (*storage.TemplateVersion, error) {
	const op = "service.template.CreateVersion"

	sch := schema.New()
	if initial != nil {
		sch = initial.Clone()
	}
	if err := prepare(&sch); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	v, err := s.storage.CreateTemplateVersion(ctx, modelID, sch, notes)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("template version created",
		slog.String("op", op), slog.Int64("model_id", modelID), slog.Int("version", v.Version))

	return v, nil
}

func (s *Service) ListVersions(ctx context.Context, modelID int64) ([]storage.TemplateVersion, error) {
	const op = "service.template.ListVersions"

	if _, err := s.storage.GetComponentModel(ctx, modelID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	versions, err := s.storage.ListTemplateVersions(ctx, modelID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return versions, nil
}

func (s *Service) GetVersion(ctx context.Context, id int64) (*storage.TemplateVersion, error) {
	const op = "service.template.GetVersion"

	v, err := s.storage.GetTemplateVersion(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return v, nil
}

// GetActiveVersion returns storage.ErrNoActiveVersion when the model cannot produce
// reports yet.
func (s *Service) GetActiveVersion(ctx context.Context, modelID int64) (*storage.TemplateVersion, error) {
	const op = "service.template.GetActiveVersion"

	v, err := s.storage.GetActiveTemplateVersion(ctx, modelID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return v, nil
}

// SetVersionState is the single state setter: activation (including re-activation of an
// obsolete version), obsoletion and the return to draft.
func (s *Service) SetVersionState(ctx context.Context, id int64, state storage.VersionState) (*storage.TemplateVersion, error) {
	const op = "service.template.SetVersionState"

	if !state.Valid() {
		return nil, fmt.Errorf("%s: state %q: %w", op, state, storage.ErrInvalidInput)
	}

	v, err := s.storage.SetTemplateVersionState(ctx, id, state)
	metrics.IncVersionState(string(state), metrics.Result(err))
	if err != nil {
		if !errors.Is(err, storage.ErrInvalidState) && !errors.Is(err, storage.ErrNotFound) {
			s.log.Error("failed to change version state",
				slog.String("op", op), slog.Int64("version_id", id), slog.String("err", err.Error()))
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("template version state changed",
		slog.String("op", op), slog.Int64("version_id", id), slog.Int64("model_id", v.ModelID), slog.String("state", string(state)))

	return v, nil
}

// UpdateVersion edits the live row. Obsolete versions are read-only.
func (s *Service) UpdateVersion(ctx context.Context, id int64, sch schema.Schema, notes string) (*storage.TemplateVersion, error) {
	const op = "service.template.UpdateVersion"

	sch = sch.Clone()
	if err := prepare(&sch); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	v, err := s.storage.UpdateTemplateVersion(ctx, id, sch, notes)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return v, nil
}

func (s *Service) DeleteVersion(ctx context.Context, id int64) error {
	const op = "service.template.DeleteVersion"

	if err := s.storage.DeleteTemplateVersion(ctx, id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("template version deleted", slog.String("op", op), slog.Int64("version_id", id))

	return nil
}

// PreviewVersion resolves placeholders of a version against values supplied by the editor.
// Unknown tokens stay visible so the author notices them.
func (s *Service) PreviewVersion(ctx context.Context, id int64, values map[string]any) (schema.Schema, error) {
	const op = "service.template.PreviewVersion"

	v, err := s.storage.GetTemplateVersion(ctx, id)
	if err != nil {
		return schema.Schema{}, fmt.Errorf("%s: %w", op, err)
	}

	return placeholder.ResolveSchema(v.Schema, values, placeholder.KeepUnresolved), nil
}

func prepare(sch *schema.Schema) error {
	if sch.Blocks == nil {
		sch.Blocks = []schema.Block{}
	}
	sch.EnsureIDs()
	return sch.Validate()
}
