package mysql

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"robot-maint/internal/storage"
)

// sqliteDDL mirrors migrations/001_init.sql in the SQLite dialect.
var sqliteDDL = []string{
	`CREATE TABLE manufacturers (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE
	)`,
	`CREATE TABLE component_models (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		manufacturer_id INTEGER NOT NULL,
		kind TEXT NOT NULL,
		name TEXT NOT NULL,
		levels TEXT NOT NULL,
		updated_at DATETIME NOT NULL,
		UNIQUE (manufacturer_id, kind, name)
	)`,
	`CREATE TABLE template_versions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		model_id INTEGER NOT NULL,
		version INTEGER NOT NULL,
		state TEXT NOT NULL,
		schema_json TEXT NOT NULL,
		notes TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		UNIQUE (model_id, version)
	)`,
	`CREATE UNIQUE INDEX ux_template_versions_active ON template_versions (model_id) WHERE state = 'active'`,
	`CREATE TABLE clients (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		address TEXT NOT NULL DEFAULT '',
		contact TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE systems (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		client_id INTEGER NOT NULL,
		name TEXT NOT NULL,
		serial TEXT NOT NULL DEFAULT '',
		location TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE physical_components (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		system_id INTEGER NOT NULL,
		model_id INTEGER NOT NULL,
		serial TEXT NOT NULL DEFAULT '',
		position TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE consumables_levels (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		model_id INTEGER NOT NULL,
		level TEXT NOT NULL,
		hours REAL,
		misc_cost REAL,
		consumables TEXT NOT NULL,
		UNIQUE (model_id, level)
	)`,
	`CREATE TABLE catalog_oils (id INTEGER PRIMARY KEY AUTOINCREMENT, name TEXT NOT NULL, reference TEXT NOT NULL DEFAULT '', cost REAL, price REAL)`,
	`CREATE TABLE catalog_batteries (id INTEGER PRIMARY KEY AUTOINCREMENT, name TEXT NOT NULL, reference TEXT NOT NULL DEFAULT '', cost REAL, price REAL)`,
	`CREATE TABLE catalog_consumables (id INTEGER PRIMARY KEY AUTOINCREMENT, name TEXT NOT NULL, reference TEXT NOT NULL DEFAULT '', cost REAL, price REAL)`,
	`CREATE TABLE offers (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		client_id INTEGER NOT NULL,
		title TEXT NOT NULL,
		state TEXT NOT NULL,
		notes TEXT NOT NULL,
		total_hours REAL NOT NULL DEFAULT 0,
		total_cost REAL NOT NULL DEFAULT 0,
		total_price REAL NOT NULL DEFAULT 0,
		intervention_id INTEGER UNIQUE,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE TABLE offer_systems (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		offer_id INTEGER NOT NULL,
		sort INTEGER NOT NULL,
		system_id INTEGER NOT NULL,
		system_name TEXT NOT NULL DEFAULT '',
		level TEXT NOT NULL,
		hours REAL NOT NULL DEFAULT 0,
		cost REAL NOT NULL DEFAULT 0,
		price REAL NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE interventions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		client_id INTEGER NOT NULL,
		offer_id INTEGER,
		title TEXT NOT NULL,
		state TEXT NOT NULL,
		scheduled_at DATETIME,
		created_at DATETIME NOT NULL
	)`,
	`CREATE TABLE intervention_systems (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		intervention_id INTEGER NOT NULL,
		sort INTEGER NOT NULL,
		system_id INTEGER NOT NULL,
		level TEXT NOT NULL
	)`,
	`CREATE TABLE reports (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		intervention_id INTEGER NOT NULL,
		system_id INTEGER NOT NULL,
		created_at DATETIME NOT NULL,
		UNIQUE (intervention_id, system_id)
	)`,
	`CREATE TABLE report_components (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		report_id INTEGER NOT NULL,
		physical_component_id INTEGER NOT NULL,
		template_version_id INTEGER NOT NULL,
		schema_frozen TEXT NOT NULL,
		data TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE TABLE purchase_orders (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		intervention_id INTEGER NOT NULL UNIQUE,
		state TEXT NOT NULL,
		total_hours REAL NOT NULL DEFAULT 0,
		misc_cost REAL NOT NULL DEFAULT 0,
		total_cost REAL NOT NULL DEFAULT 0,
		total_price REAL NOT NULL DEFAULT 0,
		notes TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE TABLE purchase_order_lines (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		purchase_order_id INTEGER NOT NULL,
		sort INTEGER NOT NULL,
		kind TEXT NOT NULL,
		ref_id INTEGER NOT NULL,
		name TEXT NOT NULL,
		quantity REAL NOT NULL,
		unit_cost REAL NOT NULL,
		unit_price REAL NOT NULL,
		total_cost REAL NOT NULL,
		total_price REAL NOT NULL,
		system_id INTEGER NOT NULL,
		system_name TEXT NOT NULL DEFAULT '',
		component_kind TEXT NOT NULL DEFAULT '',
		model_name TEXT NOT NULL DEFAULT '',
		level TEXT NOT NULL DEFAULT '',
		stale INTEGER NOT NULL DEFAULT 0
	)`,
}

// newTestStorage opens a private in-memory database. A single connection keeps every
// statement on the same memory database and serializes transactions.
func newTestStorage(t *testing.T) *Storage {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	for _, ddl := range sqliteDDL {
		_, err := db.Exec(ddl)
		require.NoError(t, err, ddl)
	}

	return NewWithDB(db)
}

type fixture struct {
	st             *Storage
	manufacturerID int64
	modelID        int64
	clientID       int64
	systemID       int64
	componentID    int64
}

// newFixture creates one client with one system holding one mechanical unit.
func newFixture(t *testing.T) fixture {
	t.Helper()

	ctx := context.Background()
	f := fixture{st: newTestStorage(t)}

	var err error
	f.manufacturerID, err = f.st.CreateManufacturer(ctx, "ABB")
	require.NoError(t, err)

	f.modelID, err = f.st.CreateComponentModel(ctx, storage.ComponentModel{
		ManufacturerID: f.manufacturerID,
		Kind:           storage.KindMechanicalUnit,
		Name:           "IRB 6700",
		Levels:         storage.DefaultLevels(storage.KindMechanicalUnit),
	})
	require.NoError(t, err)

	f.clientID, err = f.st.CreateClient(ctx, storage.Client{Name: "Acme Robotics"})
	require.NoError(t, err)

	f.systemID, err = f.st.CreateSystem(ctx, storage.System{ClientID: f.clientID, Name: "Cell A", Serial: "S-1"})
	require.NoError(t, err)

	f.componentID, err = f.st.CreatePhysicalComponent(ctx, storage.PhysicalComponent{
		SystemID: f.systemID, ModelID: f.modelID, Serial: "M-1", Position: "1",
	})
	require.NoError(t, err)

	return f
}

func countActive(t *testing.T, st *Storage, modelID int64) int {
	t.Helper()

	var n int
	err := st.db.QueryRow(`SELECT COUNT(*) FROM template_versions WHERE model_id = ? AND state = 'active'`, modelID).Scan(&n)
	require.NoError(t, err)
	return n
}

// frozenSchemaRaw returns the stored bytes of a component's frozen schema.
func frozenSchemaRaw(t *testing.T, st *Storage, componentID int64) []byte {
	t.Helper()

	var raw string
	err := st.db.QueryRow(`SELECT schema_frozen FROM report_components WHERE id = ?`, componentID).Scan(&raw)
	require.NoError(t, err)
	return []byte(raw)
}

func versionReferenced(t *testing.T, st *Storage, versionID int64) bool {
	t.Helper()

	referenced, err := isVersionReferenced(context.Background(), st.db, versionID)
	require.NoError(t, err)
	return referenced
}
