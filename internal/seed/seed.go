// Package seed loads a YAML fixture describing manufacturers, models, catalogs, clients and
// template versions into storage.
package seed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"robot-maint/internal/schema"
	"robot-maint/internal/storage"
)

type Storage interface {
	CreateManufacturer(ctx context.Context, name string) (int64, error)
	CreateComponentModel(ctx context.Context, m storage.ComponentModel) (int64, error)
	CreateCatalogItem(ctx context.Context, item storage.CatalogItem) (int64, error)
	UpsertConsumablesLevels(ctx context.Context, entries []storage.ConsumablesLevel) ([]storage.ConsumablesLevel, error)
	CreateTemplateVersion(ctx context.Context, modelID int64, sch schema.Schema, notes string) (*storage.TemplateVersion, error)
	SetTemplateVersionState(ctx context.Context, id int64, state storage.VersionState) (*storage.TemplateVersion, error)
	CreateClient(ctx context.Context, c storage.Client) (int64, error)
	CreateSystem(ctx context.Context, sys storage.System) (int64, error)
	CreatePhysicalComponent(ctx context.Context, c storage.PhysicalComponent) (int64, error)
}

type Fixture struct {
	Catalog       []CatalogItem  `yaml:"catalog"`
	Manufacturers []Manufacturer `yaml:"manufacturers"`
	Clients       []Client       `yaml:"clients"`
}

// CatalogItem is addressed from consumables entries by Key.
type CatalogItem struct {
	Key       string   `yaml:"key"`
	Kind      string   `yaml:"kind"`
	Name      string   `yaml:"name"`
	Reference string   `yaml:"reference"`
	Cost      *float64 `yaml:"cost"`
	Price     *float64 `yaml:"price"`
}

type Manufacturer struct {
	Name   string  `yaml:"name"`
	Models []Model `yaml:"models"`
}

type Model struct {
	Name        string             `yaml:"name"`
	Kind        string             `yaml:"kind"`
	Levels      []string           `yaml:"levels"`
	Consumables []ConsumablesLevel `yaml:"consumables"`
	Templates   []Template         `yaml:"templates"`
}

type ConsumablesLevel struct {
	Level    string    `yaml:"level"`
	Hours    *float64  `yaml:"hours"`
	MiscCost *float64  `yaml:"misc_cost"`
	Items    []ItemRef `yaml:"items"`
}

type ItemRef struct {
	Key      string  `yaml:"key"`
	Quantity float64 `yaml:"quantity"`
}

// Template is a version created in order. State defaults to draft.
type Template struct {
	State  string         `yaml:"state"`
	Notes  string         `yaml:"notes"`
	Schema map[string]any `yaml:"schema"`
}

type Client struct {
	Name    string   `yaml:"name"`
	Address string   `yaml:"address"`
	Contact string   `yaml:"contact"`
	Systems []System `yaml:"systems"`
}

type System struct {
	Name       string      `yaml:"name"`
	Serial     string      `yaml:"serial"`
	Location   string      `yaml:"location"`
	Components []Component `yaml:"components"`
}

// Component names its model by "<manufacturer>/<model>".
type Component struct {
	Model    string `yaml:"model"`
	Serial   string `yaml:"serial"`
	Position string `yaml:"position"`
}

// Summary counts what Apply created.
type Summary struct {
	CatalogItems int `json:"catalog_items"`
	Models       int `json:"models"`
	Entries      int `json:"entries"`
	Versions     int `json:"versions"`
	Clients      int `json:"clients"`
	Systems      int `json:"systems"`
	Components   int `json:"components"`
}

func Load(r io.Reader) (*Fixture, error) {
	const op = "seed.Load"

	var fx Fixture
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&fx); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &fx, nil
}

// Apply writes the fixture in dependency order. It stops at the first error; rows already
// written stay.
func Apply(ctx context.Context, st Storage, fx *Fixture) (Summary, error) {
	const op = "seed.Apply"

	var sum Summary

	items := make(map[string]storage.ConsumableRef, len(fx.Catalog))
	for _, c := range fx.Catalog {
		kind, ok := storage.ParseConsumableKind(c.Kind)
		if !ok {
			return sum, fmt.Errorf("%s: catalog %q: kind %q: %w", op, c.Key, c.Kind, storage.ErrInvalidInput)
		}
		if _, dup := items[c.Key]; dup {
			return sum, fmt.Errorf("%s: catalog key %q given twice: %w", op, c.Key, storage.ErrInvalidInput)
		}

		id, err := st.CreateCatalogItem(ctx, storage.CatalogItem{
			Kind: kind, Name: c.Name, Reference: c.Reference, Cost: c.Cost, Price: c.Price,
		})
		if err != nil {
			return sum, fmt.Errorf("%s: catalog %q: %w", op, c.Key, err)
		}
		items[c.Key] = storage.ConsumableRef{Kind: kind, RefID: id}
		sum.CatalogItems++
	}

	models := make(map[string]int64)
	for _, mf := range fx.Manufacturers {
		mfID, err := st.CreateManufacturer(ctx, mf.Name)
		if err != nil {
			return sum, fmt.Errorf("%s: manufacturer %q: %w", op, mf.Name, err)
		}

		for _, m := range mf.Models {
			id, err := applyModel(ctx, st, mfID, m, items, &sum)
			if err != nil {
				return sum, fmt.Errorf("%s: model %s/%s: %w", op, mf.Name, m.Name, err)
			}
			models[mf.Name+"/"+m.Name] = id
		}
	}

	for _, c := range fx.Clients {
		clientID, err := st.CreateClient(ctx, storage.Client{Name: c.Name, Address: c.Address, Contact: c.Contact})
		if err != nil {
			return sum, fmt.Errorf("%s: client %q: %w", op, c.Name, err)
		}
		sum.Clients++

		for _, s := range c.Systems {
			sysID, err := st.CreateSystem(ctx, storage.System{ClientID: clientID, Name: s.Name, Serial: s.Serial, Location: s.Location})
			if err != nil {
				return sum, fmt.Errorf("%s: system %q: %w", op, s.Name, err)
			}
			sum.Systems++

			for _, comp := range s.Components {
				modelID, ok := models[comp.Model]
				if !ok {
					return sum, fmt.Errorf("%s: system %q: model %q: %w", op, s.Name, comp.Model, storage.ErrNotFound)
				}
				if _, err := st.CreatePhysicalComponent(ctx, storage.PhysicalComponent{
					SystemID: sysID, ModelID: modelID, Serial: comp.Serial, Position: comp.Position,
				}); err != nil {
					return sum, fmt.Errorf("%s: component %q: %w", op, comp.Serial, err)
				}
				sum.Components++
			}
		}
	}

	return sum, nil
}

func applyModel(ctx context.Context, st Storage, manufacturerID int64, m Model, items map[string]storage.ConsumableRef, sum *Summary) (int64, error) {
	kind := storage.ModelKind(m.Kind)
	if !kind.Valid() {
		return 0, fmt.Errorf("kind %q: %w", m.Kind, storage.ErrInvalidInput)
	}

	levels := storage.DefaultLevels(kind)
	if len(m.Levels) > 0 {
		levels = make([]storage.Level, len(m.Levels))
		for i, l := range m.Levels {
			levels[i] = storage.Level(l)
		}
	}

	id, err := st.CreateComponentModel(ctx, storage.ComponentModel{
		ManufacturerID: manufacturerID, Kind: kind, Name: m.Name, Levels: levels,
	})
	if err != nil {
		return 0, err
	}
	sum.Models++

	if len(m.Consumables) > 0 {
		entries := make([]storage.ConsumablesLevel, len(m.Consumables))
		for i, c := range m.Consumables {
			refs := make([]storage.ConsumableRef, len(c.Items))
			for j, it := range c.Items {
				ref, ok := items[it.Key]
				if !ok {
					return 0, fmt.Errorf("catalog key %q: %w", it.Key, storage.ErrNotFound)
				}
				ref.Quantity = it.Quantity
				refs[j] = ref
			}
			entries[i] = storage.ConsumablesLevel{
				ModelID: id, Level: storage.Level(c.Level), Hours: c.Hours, MiscCost: c.MiscCost, Consumables: refs,
			}
		}

		saved, err := st.UpsertConsumablesLevels(ctx, entries)
		if err != nil {
			return 0, err
		}
		sum.Entries += len(saved)
	}

	for i, t := range m.Templates {
		sch, err := toSchema(t.Schema)
		if err != nil {
			return 0, fmt.Errorf("template #%d: %w", i+1, err)
		}

		v, err := st.CreateTemplateVersion(ctx, id, sch, t.Notes)
		if err != nil {
			return 0, err
		}
		sum.Versions++

		if t.State != "" && storage.VersionState(t.State) != storage.VersionDraft {
			if _, err := st.SetTemplateVersionState(ctx, v.ID, storage.VersionState(t.State)); err != nil {
				return 0, err
			}
		}
	}

	return id, nil
}

// toSchema goes through JSON so the block codec of the schema package applies.
func toSchema(raw map[string]any) (schema.Schema, error) {
	if raw == nil {
		return schema.New(), nil
	}

	b, err := json.Marshal(raw)
	if err != nil {
		return schema.Schema{}, err
	}

	sch, err := schema.Parse(b)
	if err != nil {
		return schema.Schema{}, err
	}
	sch.EnsureIDs()
	if err := sch.Validate(); err != nil {
		return schema.Schema{}, err
	}

	return sch, nil
}
