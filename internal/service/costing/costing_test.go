package costing

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"robot-maint/internal/storage"
)

type fakeStore struct {
	systems     []storage.System
	components  []storage.PhysicalComponent
	models      []storage.ComponentModel
	entries     []storage.ConsumablesLevel
	catalog     map[storage.ConsumableKind][]storage.CatalogItem
	catalogCall map[storage.ConsumableKind][]int64
}

func (f *fakeStore) GetSystemsByIDs(_ context.Context, ids []int64) ([]storage.System, error) {
	var out []storage.System
	for _, s := range f.systems {
		if contains(ids, s.ID) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeStore) GetComponentsBySystemIDs(_ context.Context, ids []int64) ([]storage.PhysicalComponent, error) {
	var out []storage.PhysicalComponent
	for _, c := range f.components {
		if contains(ids, c.SystemID) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeStore) GetModelsByIDs(_ context.Context, ids []int64) ([]storage.ComponentModel, error) {
	var out []storage.ComponentModel
	for _, m := range f.models {
		if contains(ids, m.ID) {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeStore) GetConsumablesByModelIDs(_ context.Context, ids []int64) ([]storage.ConsumablesLevel, error) {
	var out []storage.ConsumablesLevel
	for _, e := range f.entries {
		if contains(ids, e.ModelID) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeStore) GetCatalogItems(_ context.Context, kind storage.ConsumableKind, ids []int64) ([]storage.CatalogItem, error) {
	if f.catalogCall == nil {
		f.catalogCall = make(map[storage.ConsumableKind][]int64)
	}
	f.catalogCall[kind] = ids

	var out []storage.CatalogItem
	for _, it := range f.catalog[kind] {
		if contains(ids, it.ID) {
			out = append(out, it)
		}
	}
	return out, nil
}

func contains(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func ptr(f float64) *float64 { return &f }

// scenarioStore is one system with one mechanical unit of model 7 whose level 1 entry
// uses two litres of oil #3.
func scenarioStore() *fakeStore {
	return &fakeStore{
		systems:    []storage.System{{ID: 1, ClientID: 1, Name: "Cell A"}},
		components: []storage.PhysicalComponent{{ID: 10, SystemID: 1, ModelID: 7}},
		models: []storage.ComponentModel{{
			ID: 7, Kind: storage.KindMechanicalUnit, Name: "IRB 6700",
			Levels: storage.DefaultLevels(storage.KindMechanicalUnit),
		}},
		entries: []storage.ConsumablesLevel{{
			ModelID: 7, Level: storage.Level1, Hours: ptr(2), MiscCost: ptr(10),
			Consumables: []storage.ConsumableRef{{Kind: storage.ConsumableOil, RefID: 3, Quantity: 2}},
		}},
		catalog: map[storage.ConsumableKind][]storage.CatalogItem{
			storage.ConsumableOil: {{ID: 3, Kind: storage.ConsumableOil, Name: "Kyodo TMO 150", Cost: ptr(5), Price: ptr(8)}},
		},
	}
}

func TestComputeTotals_SingleComponentScenario(t *testing.T) {
	svc := NewService(scenarioStore())

	totals, err := svc.ComputeTotals(context.Background(), []storage.Selection{{SystemID: 1, Level: storage.Level1}})
	require.NoError(t, err)

	assert.Equal(t, 2.0, totals.Hours)
	assert.Equal(t, 10.0, totals.MiscCost)
	assert.Equal(t, 20.0, totals.Cost)
	assert.Equal(t, 26.0, totals.Price)
	assert.Equal(t, []SystemTotals{{SystemID: 1, SystemName: "Cell A", Level: storage.Level1, Hours: 2, Cost: 20, Price: 26}}, totals.Systems)
}

func TestComputeTotals_SpanishKindDecodes(t *testing.T) {
	var ref storage.ConsumableRef
	require.NoError(t, json.Unmarshal([]byte(`{"tipo":"aceite","id":3,"cantidad":2}`), &ref))
	assert.Equal(t, storage.ConsumableRef{Kind: storage.ConsumableOil, RefID: 3, Quantity: 2}, ref)
}

func TestComputeTotals_EnglishKeysDecode(t *testing.T) {
	var entry storage.ConsumablesLevel
	require.NoError(t, json.Unmarshal([]byte(`{"consumibles":[{"kind":"oil","ref_id":3,"quantity":2}]}`), &entry))
	require.Len(t, entry.Consumables, 1)
	assert.Equal(t, storage.ConsumableRef{Kind: storage.ConsumableOil, RefID: 3, Quantity: 2}, entry.Consumables[0])
	assert.True(t, entry.Consumables[0].Assigned())
}

func TestComputeTotals_Idempotent(t *testing.T) {
	store := scenarioStore()
	store.entries[0].Hours = ptr(0.1)
	store.entries[0].MiscCost = ptr(0.2)
	store.entries[0].Consumables[0].Quantity = 0.3
	store.catalog[storage.ConsumableOil][0].Cost = ptr(0.7)
	svc := NewService(store)

	sel := []storage.Selection{{SystemID: 1, Level: storage.Level1}, {SystemID: 1, Level: storage.Level1}}

	first, err := svc.ComputeTotals(context.Background(), sel)
	require.NoError(t, err)
	second, err := svc.ComputeTotals(context.Background(), sel)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 0.2, first.Hours)
	assert.Equal(t, 0.82, first.Cost)
}

func TestComputeTotals_Errors(t *testing.T) {
	svc := NewService(scenarioStore())

	_, err := svc.ComputeTotals(context.Background(), nil)
	assert.ErrorIs(t, err, storage.ErrNoSystems)

	_, err = svc.ComputeTotals(context.Background(), []storage.Selection{{SystemID: 99, Level: storage.Level1}})
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = svc.ComputeTotals(context.Background(), []storage.Selection{{SystemID: 1, Level: "4"}})
	assert.ErrorIs(t, err, storage.ErrInvalidLevel)
}

func TestComputeTotals_MissingEntryAndPricesContributeZero(t *testing.T) {
	store := scenarioStore()
	store.catalog[storage.ConsumableOil][0].Price = nil
	svc := NewService(store)

	totals, err := svc.ComputeTotals(context.Background(), []storage.Selection{
		{SystemID: 1, Level: storage.Level1},
		{SystemID: 1, Level: storage.Level3},
	})
	require.NoError(t, err)

	assert.Equal(t, 20.0, totals.Cost)
	assert.Equal(t, 10.0, totals.Price)
	require.Len(t, totals.Systems, 2)
	assert.Equal(t, SystemTotals{SystemID: 1, SystemName: "Cell A", Level: storage.Level3}, totals.Systems[1])
}

func TestComputeTotals_UnassignedSlotsAreNotPriced(t *testing.T) {
	store := scenarioStore()
	store.entries[0].Consumables = append(store.entries[0].Consumables,
		storage.ConsumableRef{Kind: storage.ConsumableBattery, RefID: 0, Quantity: 4},
		storage.ConsumableRef{Kind: storage.ConsumableGeneric, RefID: -1, Quantity: 1},
	)
	svc := NewService(store)

	res, err := svc.GenerateLines(context.Background(), []storage.Selection{{SystemID: 1, Level: storage.Level1}})
	require.NoError(t, err)

	assert.Len(t, res.Lines, 1)
	assert.Equal(t, map[storage.ConsumableKind][]int64{storage.ConsumableOil: {3}}, store.catalogCall)
}

func TestGenerateLines_StaleReference(t *testing.T) {
	store := scenarioStore()
	store.entries[0].Consumables = append(store.entries[0].Consumables,
		storage.ConsumableRef{Kind: storage.ConsumableBattery, RefID: 42, Quantity: 1})
	svc := NewService(store)

	res, err := svc.GenerateLines(context.Background(), []storage.Selection{{SystemID: 1, Level: storage.Level1}})
	require.NoError(t, err)
	require.Len(t, res.Lines, 2)

	assert.Equal(t, storage.PurchaseOrderLine{
		Kind: storage.ConsumableOil, RefID: 3, Name: "Kyodo TMO 150", Quantity: 2,
		UnitCost: 5, UnitPrice: 8, TotalCost: 10, TotalPrice: 16,
		SystemID: 1, SystemName: "Cell A", ComponentKind: storage.KindMechanicalUnit,
		ModelName: "IRB 6700", Level: storage.Level1,
	}, res.Lines[0])

	stale := res.Lines[1]
	assert.Equal(t, "Battery #42 (not found)", stale.Name)
	assert.True(t, stale.Stale)
	assert.Zero(t, stale.TotalCost)
	assert.Zero(t, stale.TotalPrice)
	assert.Equal(t, 20.0, res.Cost)
	assert.Equal(t, 26.0, res.Price)
}

type mockStorage struct {
	mock.Mock
}

func (m *mockStorage) GetSystemsByIDs(ctx context.Context, ids []int64) ([]storage.System, error) {
	args := m.Called(ctx, ids)
	return args.Get(0).([]storage.System), args.Error(1)
}

func (m *mockStorage) GetComponentsBySystemIDs(ctx context.Context, ids []int64) ([]storage.PhysicalComponent, error) {
	args := m.Called(ctx, ids)
	return args.Get(0).([]storage.PhysicalComponent), args.Error(1)
}

func (m *mockStorage) GetModelsByIDs(ctx context.Context, ids []int64) ([]storage.ComponentModel, error) {
	args := m.Called(ctx, ids)
	return args.Get(0).([]storage.ComponentModel), args.Error(1)
}

func (m *mockStorage) GetConsumablesByModelIDs(ctx context.Context, ids []int64) ([]storage.ConsumablesLevel, error) {
	args := m.Called(ctx, ids)
	return args.Get(0).([]storage.ConsumablesLevel), args.Error(1)
}

func (m *mockStorage) GetCatalogItems(ctx context.Context, kind storage.ConsumableKind, ids []int64) ([]storage.CatalogItem, error) {
	args := m.Called(ctx, kind, ids)
	return args.Get(0).([]storage.CatalogItem), args.Error(1)
}

func TestComputeTotals_StorageErrorAborts(t *testing.T) {
	st := new(mockStorage)
	dbErr := errors.New("connection reset")

	st.On("GetSystemsByIDs", mock.Anything, []int64{1, 2}).Return([]storage.System{}, dbErr)
	st.On("GetComponentsBySystemIDs", mock.Anything, []int64{1, 2}).Return([]storage.PhysicalComponent{}, nil).Maybe()

	_, err := NewService(st).ComputeTotals(context.Background(), []storage.Selection{
		{SystemID: 2, Level: storage.Level1},
		{SystemID: 1, Level: storage.Level1},
	})

	assert.ErrorIs(t, err, dbErr)
	st.AssertExpectations(t)
}

func sampleLines() []storage.PurchaseOrderLine {
	return []storage.PurchaseOrderLine{
		{Kind: storage.ConsumableOil, RefID: 3, Name: "Kyodo", Quantity: 2, UnitCost: 5, UnitPrice: 8, SystemID: 1, SystemName: "A", ComponentKind: storage.KindMechanicalUnit, ModelName: "IRB", Level: storage.Level1},
		{Kind: storage.ConsumableOil, RefID: 3, Name: "Kyodo", Quantity: 1.5, UnitCost: 5.5, UnitPrice: 9, SystemID: 2, SystemName: "B", ComponentKind: storage.KindMechanicalUnit, ModelName: "IRB", Level: storage.Level2Lower},
		{Kind: storage.ConsumableOil, RefID: 3, Name: "Kyodo", Quantity: 0.1, UnitCost: 0.3, UnitPrice: 0.7, SystemID: 1, SystemName: "A", ComponentKind: storage.KindDriveUnit, ModelName: "DSQC", Level: storage.Level1},
		{Kind: storage.ConsumableBattery, RefID: 9, Name: "Battery #9 (not found)", Quantity: 1, SystemID: 1, SystemName: "A", ComponentKind: storage.KindController, ModelName: "IRC5", Level: storage.Level1, Stale: true},
		{Kind: storage.ConsumableBattery, RefID: 4, Name: "Lithium pack", Quantity: 3, UnitCost: 12, UnitPrice: 20, SystemID: 2, SystemName: "B", ComponentKind: storage.KindController, ModelName: "IRC5", Level: storage.Level2Lower},
		{Kind: storage.ConsumableGeneric, RefID: 1, Name: "Filter", Quantity: 2, UnitCost: 1.1, UnitPrice: 2.2, SystemID: 1, SystemName: "A", ComponentKind: storage.KindController, ModelName: "IRC5", Level: storage.Level1},
	}
}

func TestAggregateLines(t *testing.T) {
	out := AggregateLines(sampleLines())
	require.Len(t, out, 4)

	assert.Equal(t, storage.ConsumableBattery, out[0].Kind)
	assert.Equal(t, int64(4), out[0].RefID)
	assert.Equal(t, int64(9), out[1].RefID)
	assert.True(t, out[1].Stale)
	assert.Equal(t, storage.ConsumableGeneric, out[2].Kind)

	oil := out[3]
	assert.Equal(t, storage.ConsumableOil, oil.Kind)
	assert.Equal(t, "Kyodo", oil.Name)
	assert.False(t, oil.Stale)
	assert.Equal(t, 3.6, oil.Quantity)
	assert.Equal(t, 18.28, oil.TotalCost)
	assert.Equal(t, 29.57, oil.TotalPrice)
	assert.Equal(t, 5.0778, oil.UnitCost)
	require.Len(t, oil.Occurrences, 3)
	assert.Equal(t, storage.KindDriveUnit, oil.Occurrences[0].ComponentKind)
	assert.Equal(t, int64(2), oil.Occurrences[2].SystemID)
}

func TestAggregateLines_OrderIndependent(t *testing.T) {
	lines := sampleLines()
	want := AggregateLines(lines)

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 50; i++ {
		shuffled := append([]storage.PurchaseOrderLine(nil), lines...)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })

		assert.Equal(t, want, AggregateLines(shuffled))
	}
}

func TestAggregateLines_Empty(t *testing.T) {
	assert.Empty(t, AggregateLines(nil))
}
