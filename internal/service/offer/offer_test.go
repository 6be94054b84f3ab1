package offer

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"robot-maint/internal/service/costing"
	"robot-maint/internal/storage"
)

type mockStorage struct {
	mock.Mock
}

func (m *mockStorage) GetClient(ctx context.Context, id int64) (*storage.Client, error) {
	args := m.Called(ctx, id)
	if v := args.Get(0); v != nil {
		return v.(*storage.Client), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockStorage) GetSystemsByIDs(ctx context.Context, ids []int64) ([]storage.System, error) {
	args := m.Called(ctx, ids)
	return args.Get(0).([]storage.System), args.Error(1)
}

func (m *mockStorage) CreateOffer(ctx context.Context, o storage.Offer) (*storage.Offer, error) {
	args := m.Called(ctx, o)
	if v := args.Get(0); v != nil {
		return v.(*storage.Offer), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockStorage) GetOffer(ctx context.Context, id int64) (*storage.Offer, error) {
	args := m.Called(ctx, id)
	if v := args.Get(0); v != nil {
		return v.(*storage.Offer), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockStorage) UpdateDraftOffer(ctx context.Context, o storage.Offer) (*storage.Offer, error) {
	args := m.Called(ctx, o)
	if v := args.Get(0); v != nil {
		return v.(*storage.Offer), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockStorage) SetOfferState(ctx context.Context, id int64, from, to storage.OfferState) error {
	return m.Called(ctx, id, from, to).Error(0)
}

func (m *mockStorage) CreateInterventionFromOffer(ctx context.Context, offerID int64, in storage.Intervention) (*storage.Intervention, error) {
	args := m.Called(ctx, offerID, in)
	if v := args.Get(0); v != nil {
		return v.(*storage.Intervention), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockStorage) CreateIntervention(ctx context.Context, in storage.Intervention) (*storage.Intervention, error) {
	args := m.Called(ctx, in)
	if v := args.Get(0); v != nil {
		return v.(*storage.Intervention), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockStorage) GetIntervention(ctx context.Context, id int64) (*storage.Intervention, error) {
	args := m.Called(ctx, id)
	if v := args.Get(0); v != nil {
		return v.(*storage.Intervention), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockCoster struct {
	mock.Mock
}

func (m *mockCoster) ComputeTotals(ctx context.Context, selections []storage.Selection) (costing.Totals, error) {
	args := m.Called(ctx, selections)
	return args.Get(0).(costing.Totals), args.Error(1)
}

func newService(st *mockStorage, c *mockCoster) *Service {
	return NewService(slog.New(slog.NewTextHandler(io.Discard, nil)), st, c)
}

func acmeSystems() []storage.System {
	return []storage.System{{ID: 1, ClientID: 10, Name: "Cell A"}, {ID: 2, ClientID: 10, Name: "Cell B"}}
}

func TestCreate_StoresTotalsAndSubtotals(t *testing.T) {
	ctx := context.Background()
	st := &mockStorage{}
	c := &mockCoster{}

	sels := []storage.Selection{{SystemID: 2, Level: storage.Level3}, {SystemID: 1, Level: storage.Level1}}
	st.On("GetClient", ctx, int64(10)).Return(&storage.Client{ID: 10}, nil)
	st.On("GetSystemsByIDs", ctx, []int64{1, 2}).Return(acmeSystems(), nil)
	c.On("ComputeTotals", ctx, sels).Return(costing.Totals{
		Hours: 5, Cost: 120, Price: 180,
		Systems: []costing.SystemTotals{
			{SystemID: 2, SystemName: "Cell B", Level: storage.Level3, Hours: 4, Cost: 100, Price: 150},
			{SystemID: 1, SystemName: "Cell A", Level: storage.Level1, Hours: 1, Cost: 20, Price: 30},
		},
	}, nil)

	want := storage.Offer{
		ClientID: 10, Title: "Yearly", State: storage.OfferDraft,
		TotalHours: 5, TotalCost: 120, TotalPrice: 180,
		Systems: []storage.OfferSystem{
			{SystemID: 2, SystemName: "Cell B", Level: storage.Level3, Hours: 4, Cost: 100, Price: 150},
			{SystemID: 1, SystemName: "Cell A", Level: storage.Level1, Hours: 1, Cost: 20, Price: 30},
		},
	}
	saved := want
	saved.ID = 3
	st.On("CreateOffer", ctx, want).Return(&saved, nil)

	out, err := newService(st, c).Create(ctx, Input{ClientID: 10, Title: " Yearly ", Selections: sels})
	require.NoError(t, err)
	assert.Equal(t, int64(3), out.ID)
	st.AssertExpectations(t)
}

func TestCreate_Rejects(t *testing.T) {
	ctx := context.Background()

	t.Run("no systems", func(t *testing.T) {
		_, err := newService(&mockStorage{}, &mockCoster{}).Create(ctx, Input{ClientID: 10})
		assert.ErrorIs(t, err, storage.ErrNoSystems)
	})

	t.Run("system of another client", func(t *testing.T) {
		st := &mockStorage{}
		st.On("GetClient", ctx, int64(11)).Return(&storage.Client{ID: 11}, nil)
		st.On("GetSystemsByIDs", ctx, []int64{1}).Return(acmeSystems()[:1], nil)

		_, err := newService(st, &mockCoster{}).Create(ctx, Input{ClientID: 11,
			Selections: []storage.Selection{{SystemID: 1, Level: storage.Level1}}})
		assert.ErrorIs(t, err, storage.ErrInvalidInput)
	})

	t.Run("unknown system", func(t *testing.T) {
		st := &mockStorage{}
		st.On("GetClient", ctx, int64(10)).Return(&storage.Client{ID: 10}, nil)
		st.On("GetSystemsByIDs", ctx, []int64{7}).Return([]storage.System{}, nil)

		_, err := newService(st, &mockCoster{}).Create(ctx, Input{ClientID: 10,
			Selections: []storage.Selection{{SystemID: 7, Level: storage.Level1}}})
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("bad level", func(t *testing.T) {
		st := &mockStorage{}
		st.On("GetClient", ctx, int64(10)).Return(&storage.Client{ID: 10}, nil)

		_, err := newService(st, &mockCoster{}).Create(ctx, Input{ClientID: 10,
			Selections: []storage.Selection{{SystemID: 1, Level: "2"}}})
		assert.ErrorIs(t, err, storage.ErrInvalidLevel)
	})
}

func TestUpdate_OnlyDraft(t *testing.T) {
	ctx := context.Background()
	st := &mockStorage{}
	st.On("GetOffer", ctx, int64(3)).Return(&storage.Offer{ID: 3, ClientID: 10, State: storage.OfferSent}, nil)

	_, err := newService(st, &mockCoster{}).Update(ctx, 3, Input{
		Selections: []storage.Selection{{SystemID: 1, Level: storage.Level1}}})
	assert.ErrorIs(t, err, storage.ErrInvalidState)
	st.AssertNotCalled(t, "UpdateDraftOffer", mock.Anything, mock.Anything)
}

func TestRecalculate_UsesCurrentSelections(t *testing.T) {
	ctx := context.Background()
	st := &mockStorage{}
	c := &mockCoster{}

	current := &storage.Offer{ID: 3, ClientID: 10, State: storage.OfferDraft, TotalPrice: 50,
		Systems: []storage.OfferSystem{{SystemID: 1, Level: storage.Level2Lower, Price: 50}}}
	st.On("GetOffer", ctx, int64(3)).Return(current, nil)
	c.On("ComputeTotals", ctx, []storage.Selection{{SystemID: 1, Level: storage.Level2Lower}}).Return(costing.Totals{
		Price: 75, Systems: []costing.SystemTotals{{SystemID: 1, Level: storage.Level2Lower, Price: 75}},
	}, nil)
	st.On("UpdateDraftOffer", ctx, mock.MatchedBy(func(o storage.Offer) bool {
		return o.TotalPrice == 75 && len(o.Systems) == 1 && o.Systems[0].Price == 75
	})).Return(&storage.Offer{ID: 3, TotalPrice: 75}, nil)

	out, err := newService(st, c).Recalculate(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, 75.0, out.TotalPrice)
	assert.Equal(t, 50.0, current.TotalPrice)
}

func TestCanTransition(t *testing.T) {
	allowed := [][2]storage.OfferState{
		{storage.OfferDraft, storage.OfferSent},
		{storage.OfferSent, storage.OfferApproved},
		{storage.OfferSent, storage.OfferRejected},
		{storage.OfferSent, storage.OfferDraft},
		{storage.OfferRejected, storage.OfferDraft},
	}
	for _, tr := range allowed {
		assert.True(t, CanTransition(tr[0], tr[1]), "%s -> %s", tr[0], tr[1])
	}

	denied := [][2]storage.OfferState{
		{storage.OfferDraft, storage.OfferApproved},
		{storage.OfferApproved, storage.OfferDraft},
		{storage.OfferApproved, storage.OfferRejected},
		{storage.OfferRejected, storage.OfferApproved},
	}
	for _, tr := range denied {
		assert.False(t, CanTransition(tr[0], tr[1]), "%s -> %s", tr[0], tr[1])
	}
}

func TestSetState(t *testing.T) {
	ctx := context.Background()

	t.Run("allowed", func(t *testing.T) {
		st := &mockStorage{}
		st.On("GetOffer", ctx, int64(3)).Return(&storage.Offer{ID: 3, State: storage.OfferDraft}, nil).Once()
		st.On("SetOfferState", ctx, int64(3), storage.OfferDraft, storage.OfferSent).Return(nil)
		st.On("GetOffer", ctx, int64(3)).Return(&storage.Offer{ID: 3, State: storage.OfferSent}, nil).Once()

		out, err := newService(st, nil).SetState(ctx, 3, storage.OfferSent)
		require.NoError(t, err)
		assert.Equal(t, storage.OfferSent, out.State)
	})

	t.Run("approved is final", func(t *testing.T) {
		st := &mockStorage{}
		st.On("GetOffer", ctx, int64(3)).Return(&storage.Offer{ID: 3, State: storage.OfferApproved}, nil)

		_, err := newService(st, nil).SetState(ctx, 3, storage.OfferDraft)
		assert.ErrorIs(t, err, storage.ErrInvalidState)
		st.AssertNotCalled(t, "SetOfferState", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestGenerateIntervention(t *testing.T) {
	ctx := context.Background()

	approved := &storage.Offer{ID: 3, ClientID: 10, Title: "Yearly", State: storage.OfferApproved,
		Systems: []storage.OfferSystem{{SystemID: 2, Level: storage.Level3}, {SystemID: 1, Level: storage.Level1}}}

	t.Run("copies client and selections", func(t *testing.T) {
		st := &mockStorage{}
		st.On("GetOffer", ctx, int64(3)).Return(approved, nil)
		st.On("CreateInterventionFromOffer", ctx, int64(3), storage.Intervention{
			ClientID: 10, Title: "Yearly", State: storage.InterventionPlanned,
			Selections: []storage.Selection{{SystemID: 2, Level: storage.Level3}, {SystemID: 1, Level: storage.Level1}},
		}).Return(&storage.Intervention{ID: 8}, nil)

		in, err := newService(st, nil).GenerateIntervention(ctx, 3)
		require.NoError(t, err)
		assert.Equal(t, int64(8), in.ID)
	})

	t.Run("second call", func(t *testing.T) {
		linked := *approved
		id := int64(8)
		linked.InterventionID = &id

		st := &mockStorage{}
		st.On("GetOffer", ctx, int64(3)).Return(&linked, nil)

		_, err := newService(st, nil).GenerateIntervention(ctx, 3)
		assert.ErrorIs(t, err, storage.ErrAlreadyExists)
	})

	t.Run("not approved", func(t *testing.T) {
		sent := *approved
		sent.State = storage.OfferSent

		st := &mockStorage{}
		st.On("GetOffer", ctx, int64(3)).Return(&sent, nil)

		_, err := newService(st, nil).GenerateIntervention(ctx, 3)
		assert.ErrorIs(t, err, storage.ErrInvalidState)
	})
}
