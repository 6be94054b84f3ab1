// Package offer prices commercial offers and turns approved ones into interventions.
package offer

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"robot-maint/internal/service/costing"
	"robot-maint/internal/storage"
)

type Storage interface {
	GetClient(ctx context.Context, id int64) (*storage.Client, error)
	GetSystemsByIDs(ctx context.Context, ids []int64) ([]storage.System, error)
	CreateOffer(ctx context.Context, o storage.Offer) (*storage.Offer, error)
	GetOffer(ctx context.Context, id int64) (*storage.Offer, error)
	UpdateDraftOffer(ctx context.Context, o storage.Offer) (*storage.Offer, error)
	SetOfferState(ctx context.Context, id int64, from, to storage.OfferState) error
	CreateInterventionFromOffer(ctx context.Context, offerID int64, in storage.Intervention) (*storage.Intervention, error)
	CreateIntervention(ctx context.Context, in storage.Intervention) (*storage.Intervention, error)
	GetIntervention(ctx context.Context, id int64) (*storage.Intervention, error)
}

type Coster interface {
	ComputeTotals(ctx context.Context, selections []storage.Selection) (costing.Totals, error)
}

type Service struct {
	log     *slog.Logger
	storage Storage
	coster  Coster
}

func NewService(log *slog.Logger, storage Storage, coster Coster) *Service {
	return &Service{log: log, storage: storage, coster: coster}
}

// Input is what a caller provides to create or rewrite an offer or an intervention.
type Input struct {
	ClientID   int64               `json:"client_id"`
	Title      string              `json:"title"`
	Notes      string              `json:"notes"`
	Selections []storage.Selection `json:"selections"`
}

// transitions lists the states reachable from each state. Approved is final.
var transitions = map[storage.OfferState][]storage.OfferState{
	storage.OfferDraft:    {storage.OfferSent},
	storage.OfferSent:     {storage.OfferApproved, storage.OfferRejected, storage.OfferDraft},
	storage.OfferRejected: {storage.OfferDraft},
}

// CanTransition reports whether an offer may move from one state to another.
func CanTransition(from, to storage.OfferState) bool {
	return slices.Contains(transitions[from], to)
}

func (s *Service) Create(ctx context.Context, in Input) (*storage.Offer, error) {
	const op = "service.offer.Create"

	if len(in.Selections) == 0 {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNoSystems)
	}
	if err := s.checkSelections(ctx, in.ClientID, in.Selections); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	o := storage.Offer{
		ClientID: in.ClientID,
		Title:    strings.TrimSpace(in.Title),
		State:    storage.OfferDraft,
		Notes:    in.Notes,
	}
	if err := s.price(ctx, &o, in.Selections); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	out, err := s.storage.CreateOffer(ctx, o)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("offer created",
		slog.String("op", op),
		slog.Int64("offer_id", out.ID),
		slog.Int("systems", len(out.Systems)),
		slog.Float64("total_price", out.TotalPrice),
	)

	return out, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*storage.Offer, error) {
	const op = "service.offer.Get"

	o, err := s.storage.GetOffer(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return o, nil
}

// Update rewrites a draft offer and replaces its selections. The client cannot change.
func (s *Service) Update(ctx context.Context, id int64, in Input) (*storage.Offer, error) {
	const op = "service.offer.Update"

	current, err := s.storage.GetOffer(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if current.State != storage.OfferDraft {
		return nil, fmt.Errorf("%s: offer %d is %s: %w", op, id, current.State, storage.ErrInvalidState)
	}
	if len(in.Selections) == 0 {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNoSystems)
	}
	if err := s.checkSelections(ctx, current.ClientID, in.Selections); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	next := *current
	next.Title = strings.TrimSpace(in.Title)
	next.Notes = in.Notes
	if err := s.price(ctx, &next, in.Selections); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	out, err := s.storage.UpdateDraftOffer(ctx, next)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

// Recalculate reprices a draft offer against the current catalogs.
func (s *Service) Recalculate(ctx context.Context, id int64) (*storage.Offer, error) {
	const op = "service.offer.Recalculate"

	current, err := s.storage.GetOffer(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if current.State != storage.OfferDraft {
		return nil, fmt.Errorf("%s: offer %d is %s: %w", op, id, current.State, storage.ErrInvalidState)
	}

	next := *current
	if err := s.price(ctx, &next, current.Selections()); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	out, err := s.storage.UpdateDraftOffer(ctx, next)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("offer recalculated",
		slog.String("op", op),
		slog.Int64("offer_id", id),
		slog.Float64("total_price", out.TotalPrice),
	)

	return out, nil
}

func (s *Service) SetState(ctx context.Context, id int64, to storage.OfferState) (*storage.Offer, error) {
	const op = "service.offer.SetState"

	if !to.Valid() {
		return nil, fmt.Errorf("%s: state %q: %w", op, to, storage.ErrInvalidInput)
	}

	current, err := s.storage.GetOffer(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if current.State == to {
		return current, nil
	}
	if !CanTransition(current.State, to) {
		return nil, fmt.Errorf("%s: %s -> %s: %w", op, current.State, to, storage.ErrInvalidState)
	}

	if err := s.storage.SetOfferState(ctx, id, current.State, to); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("offer state changed",
		slog.String("op", op),
		slog.Int64("offer_id", id),
		slog.String("from", string(current.State)),
		slog.String("to", string(to)),
	)

	out, err := s.storage.GetOffer(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

// GenerateIntervention copies the client and selections of an approved offer into a new
// intervention. An offer generates at most one intervention.
func (s *Service) GenerateIntervention(ctx context.Context, offerID int64) (*storage.Intervention, error) {
	const op = "service.offer.GenerateIntervention"

	o, err := s.storage.GetOffer(ctx, offerID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if o.InterventionID != nil {
		return nil, fmt.Errorf("%s: offer %d: %w", op, offerID, storage.ErrAlreadyExists)
	}
	if o.State != storage.OfferApproved {
		return nil, fmt.Errorf("%s: offer %d is %s: %w", op, offerID, o.State, storage.ErrInvalidState)
	}

	in, err := s.storage.CreateInterventionFromOffer(ctx, offerID, storage.Intervention{
		ClientID:   o.ClientID,
		Title:      o.Title,
		State:      storage.InterventionPlanned,
		Selections: o.Selections(),
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("intervention generated",
		slog.String("op", op),
		slog.Int64("offer_id", offerID),
		slog.Int64("intervention_id", in.ID),
	)

	return in, nil
}

func (s *Service) CreateIntervention(ctx context.Context, in Input) (*storage.Intervention, error) {
	const op = "service.offer.CreateIntervention"

	if err := s.checkSelections(ctx, in.ClientID, in.Selections); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	out, err := s.storage.CreateIntervention(ctx, storage.Intervention{
		ClientID:   in.ClientID,
		Title:      strings.TrimSpace(in.Title),
		State:      storage.InterventionPlanned,
		Selections: in.Selections,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

func (s *Service) GetIntervention(ctx context.Context, id int64) (*storage.Intervention, error) {
	const op = "service.offer.GetIntervention"

	in, err := s.storage.GetIntervention(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return in, nil
}

// checkSelections verifies the client exists and owns every selected system.
func (s *Service) checkSelections(ctx context.Context, clientID int64, selections []storage.Selection) error {
	if _, err := s.storage.GetClient(ctx, clientID); err != nil {
		return err
	}

	ids := make([]int64, 0, len(selections))
	for _, sel := range selections {
		if !sel.Level.Valid() {
			return fmt.Errorf("level %q: %w", sel.Level, storage.ErrInvalidLevel)
		}
		ids = append(ids, sel.SystemID)
	}
	if len(ids) == 0 {
		return nil
	}
	slices.Sort(ids)
	ids = slices.Compact(ids)

	systems, err := s.storage.GetSystemsByIDs(ctx, ids)
	if err != nil {
		return err
	}
	owner := make(map[int64]int64, len(systems))
	for _, sys := range systems {
		owner[sys.ID] = sys.ClientID
	}

	for _, id := range ids {
		c, ok := owner[id]
		if !ok {
			return fmt.Errorf("system %d: %w", id, storage.ErrNotFound)
		}
		if c != clientID {
			return fmt.Errorf("system %d belongs to client %d: %w", id, c, storage.ErrInvalidInput)
		}
	}

	return nil
}

// price runs the costing engine and stores totals and per-system subtotals on o.
func (s *Service) price(ctx context.Context, o *storage.Offer, selections []storage.Selection) error {
	totals, err := s.coster.ComputeTotals(ctx, selections)
	if err != nil {
		return err
	}

	o.TotalHours = totals.Hours
	o.TotalCost = totals.Cost
	o.TotalPrice = totals.Price
	o.Systems = make([]storage.OfferSystem, len(totals.Systems))
	for i, st := range totals.Systems {
		o.Systems[i] = storage.OfferSystem{
			SystemID:   st.SystemID,
			SystemName: st.SystemName,
			Level:      st.Level,
			Hours:      st.Hours,
			Cost:       st.Cost,
			Price:      st.Price,
		}
	}

	return nil
}
