package mysql

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"robot-maint/internal/storage"
)

func ptr(f float64) *float64 { return &f }

func TestUpsertConsumablesLevels(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	saved, err := f.st.UpsertConsumablesLevels(ctx, []storage.ConsumablesLevel{
		{ModelID: f.modelID, Level: storage.Level1, Hours: ptr(2), MiscCost: ptr(10),
			Consumables: []storage.ConsumableRef{{Kind: storage.ConsumableOil, RefID: 3, Quantity: 2}}},
		{ModelID: f.modelID, Level: storage.Level3},
	})
	require.NoError(t, err)
	require.Len(t, saved, 2)
	firstID := saved[0].ID

	_, err = f.st.UpsertConsumablesLevels(ctx, []storage.ConsumablesLevel{
		{ModelID: f.modelID, Level: storage.Level1, Hours: ptr(3),
			Consumables: []storage.ConsumableRef{{Kind: storage.ConsumableBattery, RefID: 0, Quantity: 1}}},
	})
	require.NoError(t, err)

	entries, err := f.st.GetConsumablesByModel(ctx, f.modelID)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, firstID, entries[0].ID)
	assert.Equal(t, storage.Level1, entries[0].Level)
	assert.Equal(t, 3.0, *entries[0].Hours)
	assert.Nil(t, entries[0].MiscCost)
	assert.Equal(t, []storage.ConsumableRef{{Kind: storage.ConsumableBattery, RefID: 0, Quantity: 1}}, entries[0].Consumables)

	assert.Nil(t, entries[1].Hours)
	assert.Equal(t, []storage.ConsumableRef{}, entries[1].Consumables)
}

func TestGetConsumablesByManufacturer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ctrl, err := f.st.CreateComponentModel(ctx, storage.ComponentModel{
		ManufacturerID: f.manufacturerID, Kind: storage.KindController, Name: "IRC5",
		Levels: storage.DefaultLevels(storage.KindController),
	})
	require.NoError(t, err)

	_, err = f.st.UpsertConsumablesLevels(ctx, []storage.ConsumablesLevel{{ModelID: ctrl, Level: storage.Level1, Hours: ptr(1)}})
	require.NoError(t, err)

	grouped, err := f.st.GetConsumablesByManufacturer(ctx, f.manufacturerID)
	require.NoError(t, err)
	require.Len(t, grouped, 2)

	assert.Equal(t, "IRC5", grouped[0].Model.Name)
	assert.Len(t, grouped[0].Entries, 1)
	assert.Equal(t, "IRB 6700", grouped[1].Model.Name)
	assert.Empty(t, grouped[1].Entries)
}

func TestCatalogItems(t *testing.T) {
	st := newTestStorage(t)
	ctx := context.Background()

	oil, err := st.CreateCatalogItem(ctx, storage.CatalogItem{Kind: storage.ConsumableOil, Name: "Kyodo", Cost: ptr(5), Price: ptr(8)})
	require.NoError(t, err)
	unpriced, err := st.CreateCatalogItem(ctx, storage.CatalogItem{Kind: storage.ConsumableOil, Name: "Shell Omala"})
	require.NoError(t, err)

	items, err := st.GetCatalogItems(ctx, storage.ConsumableOil, []int64{oil, unpriced, 999})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, 8.0, *items[0].Price)
	assert.Nil(t, items[1].Cost)
	assert.Equal(t, storage.ConsumableOil, items[1].Kind)

	batteries, err := st.GetCatalogItems(ctx, storage.ConsumableBattery, []int64{oil})
	require.NoError(t, err)
	assert.Empty(t, batteries)

	require.NoError(t, st.DeleteCatalogItem(ctx, storage.ConsumableOil, oil))
	assert.ErrorIs(t, st.DeleteCatalogItem(ctx, storage.ConsumableOil, oil), storage.ErrNotFound)

	_, err = st.ListCatalogItems(ctx, "water")
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}

func TestModelsAndSystems(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.st.UpdateModelLevels(ctx, f.modelID, []storage.Level{storage.Level1, storage.Level3}))
	m, err := f.st.GetComponentModel(ctx, f.modelID)
	require.NoError(t, err)
	assert.Equal(t, []storage.Level{storage.Level1, storage.Level3}, m.Levels)

	assert.ErrorIs(t, f.st.UpdateModelLevels(ctx, 999, []storage.Level{storage.Level1}), storage.ErrNotFound)

	comps, err := f.st.GetComponentsBySystemIDs(ctx, []int64{f.systemID})
	require.NoError(t, err)
	require.Len(t, comps, 1)
	assert.Equal(t, f.modelID, comps[0].ModelID)

	_, err = f.st.GetSystem(ctx, 999)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	none, err := f.st.GetSystemsByIDs(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, none)
}
