package mysql

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"robot-maint/internal/schema"
	"robot-maint/internal/storage"
)

func TestCreateReport_FrozenSchemaSurvivesTemplateEdits(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	v, err := f.st.CreateTemplateVersion(ctx, f.modelID, noteSchema(), "")
	require.NoError(t, err)
	_, err = f.st.SetTemplateVersionState(ctx, v.ID, storage.VersionActive)
	require.NoError(t, err)

	in, err := f.st.CreateIntervention(ctx, storage.Intervention{ClientID: f.clientID, Title: "Annual"})
	require.NoError(t, err)

	report, err := f.st.CreateReport(ctx, in.ID, f.systemID, []storage.NewReportComponent{{
		PhysicalComponentID: f.componentID,
		TemplateVersionID:   v.ID,
		SchemaFrozen:        v.Schema.Clone(),
		Data:                schema.InitData(v.Schema),
	}})
	require.NoError(t, err)
	require.Len(t, report.Components, 1)

	comp := report.Components[0]
	assert.Equal(t, map[string]any{"note": nil, "items": []any{}}, comp.Data)
	assert.Equal(t, noteSchema(), comp.SchemaFrozen)

	before := frozenSchemaRaw(t, f.st, comp.ID)

	changed := noteSchema()
	changed.Blocks = append(changed.Blocks, schema.Block{ID: "b3", Config: schema.SignatureConfig{Key: "sign"}})
	_, err = f.st.UpdateTemplateVersion(ctx, v.ID, changed, "edited")
	require.NoError(t, err)

	v2, err := f.st.CreateTemplateVersion(ctx, f.modelID, changed, "")
	require.NoError(t, err)
	_, err = f.st.SetTemplateVersionState(ctx, v2.ID, storage.VersionActive)
	require.NoError(t, err)
	_, err = f.st.SetTemplateVersionState(ctx, v.ID, storage.VersionActive)
	require.NoError(t, err)

	require.NoError(t, f.st.UpdateReportComponentData(ctx, comp.ID, map[string]any{"note": "ok"}))

	assert.Equal(t, before, frozenSchemaRaw(t, f.st, comp.ID))

	got, err := f.st.GetReportComponent(ctx, comp.ID)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"note": "ok"}, got.Data)
	assert.Equal(t, noteSchema(), got.SchemaFrozen)
}

func TestCreateReport_DuplicateAndNotFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	in, err := f.st.CreateIntervention(ctx, storage.Intervention{ClientID: f.clientID, Title: "Annual"})
	require.NoError(t, err)

	_, err = f.st.CreateReport(ctx, in.ID, f.systemID, nil)
	require.NoError(t, err)

	_, err = f.st.CreateReport(ctx, in.ID, f.systemID, nil)
	assert.ErrorIs(t, err, storage.ErrAlreadyExists)

	_, err = f.st.GetReport(ctx, 404)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	assert.ErrorIs(t, f.st.UpdateReportComponentData(ctx, 404, nil), storage.ErrNotFound)
}

func TestIntervention_RoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	in, err := f.st.CreateIntervention(ctx, storage.Intervention{
		ClientID: f.clientID,
		Title:    "Cell A yearly",
		Selections: []storage.Selection{
			{SystemID: f.systemID, Level: storage.Level2Lower},
			{SystemID: f.systemID, Level: storage.Level1},
		},
	})
	require.NoError(t, err)

	got, err := f.st.GetIntervention(ctx, in.ID)
	require.NoError(t, err)
	assert.Equal(t, storage.InterventionPlanned, got.State)
	assert.Nil(t, got.OfferID)
	assert.Equal(t, []storage.Selection{
		{SystemID: f.systemID, Level: storage.Level2Lower},
		{SystemID: f.systemID, Level: storage.Level1},
	}, got.Selections)

	_, err = f.st.GetIntervention(ctx, 404)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
