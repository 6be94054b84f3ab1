// Package schema holds the declarative block model of a component template.
//
// A schema is an ordered list of blocks. Every block carries a typed config; the set of
// config variants is closed (the Config interface is sealed) so callers branch on the
// concrete config type instead of probing untyped maps.
package schema

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Type names a block variant as it is persisted.
type Type string

// Data-producing block types. Each contributes one entry to a report's data map.
const (
	TypeTextField     Type = "text_field"
	TypeNumberField   Type = "number_field"
	TypeDateField     Type = "date_field"
	TypeTextareaField Type = "textarea_field"
	TypeSelectField   Type = "select_field"
	TypeSignature     Type = "signature"
	TypeTristateItem  Type = "tristate_item"
	TypeChecklist     Type = "checklist"
	TypeTable         Type = "table"
	TypeImageGallery  Type = "image_gallery"
)

// Structural block types. They render but never produce data.
const (
	TypeHeading     Type = "heading"
	TypeTextBlock   Type = "text_block"
	TypeDivider     Type = "divider"
	TypeSpacer      Type = "spacer"
	TypePageBreak   Type = "page_break"
	TypeStaticImage Type = "static_image"
)

var ErrInvalidSchema = errors.New("schema: invalid schema")

// IsDataProducing reports whether blocks of type t contribute to report data.
func IsDataProducing(t Type) bool {
	switch t {
	case TypeTextField, TypeNumberField, TypeDateField, TypeTextareaField, TypeSelectField,
		TypeSignature, TypeTristateItem, TypeChecklist, TypeTable, TypeImageGallery:
		return true
	}
	return false
}

// Schema is the full template payload: blocks in display order plus page settings.
type Schema struct {
	Blocks     []Block    `json:"blocks"`
	PageConfig PageConfig `json:"pageConfig"`
}

type PageConfig struct {
	Size        string   `json:"size,omitempty"`
	Orientation string   `json:"orientation,omitempty"`
	Margins     *Margins `json:"margins,omitempty"`
	Header      string   `json:"header,omitempty"`
	Footer      string   `json:"footer,omitempty"`
}

type Margins struct {
	Top    float64 `json:"top"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
	Left   float64 `json:"left"`
}

// Block is one unit of a template. Config is never nil for a decoded block.
type Block struct {
	ID     string
	Config Config
}

// Type returns the persisted type name of the block.
func (b Block) Type() Type {
	if b.Config == nil {
		return ""
	}
	return b.Config.blockType()
}

// DataKey returns the data map key of a data-producing block. ok is false for structural
// blocks and for data blocks without a key, which cannot be addressed.
func (b Block) DataKey() (key string, ok bool) {
	dc, isData := b.Config.(DataConfig)
	if !isData {
		return "", false
	}
	key = dc.DataKey()
	return key, key != ""
}

// New returns an empty schema ready to be serialized.
func New() Schema {
	return Schema{Blocks: []Block{}}
}

// Clone returns a deep copy that shares no mutable state with s.
func (s Schema) Clone() Schema {
	return s.MapStrings(keep)
}

// MapStrings returns a deep copy of s in which every text leaf of every block config and
// the page header/footer went through fn. Block ids, types and data keys are identifiers
// and are copied unchanged.
func (s Schema) MapStrings(fn func(string) string) Schema {
	out := Schema{
		Blocks:     make([]Block, len(s.Blocks)),
		PageConfig: s.PageConfig,
	}
	if s.PageConfig.Margins != nil {
		m := *s.PageConfig.Margins
		out.PageConfig.Margins = &m
	}
	out.PageConfig.Header = fn(s.PageConfig.Header)
	out.PageConfig.Footer = fn(s.PageConfig.Footer)

	for i, b := range s.Blocks {
		out.Blocks[i] = Block{ID: b.ID}
		if b.Config != nil {
			out.Blocks[i].Config = b.Config.mapStrings(fn)
		}
	}

	return out
}

// EnsureIDs assigns a random id to every block saved without one.
func (s *Schema) EnsureIDs() {
	for i := range s.Blocks {
		if s.Blocks[i].ID == "" {
			s.Blocks[i].ID = uuid.NewString()
		}
	}
}

// Validate checks block ids and data keys are unique.
func (s Schema) Validate() error {
	ids := make(map[string]struct{}, len(s.Blocks))
	keys := make(map[string]string)

	for i, b := range s.Blocks {
		if b.ID == "" {
			return fmt.Errorf("%w: block #%d has no id", ErrInvalidSchema, i)
		}
		if b.Config == nil {
			return fmt.Errorf("%w: block %q has no config", ErrInvalidSchema, b.ID)
		}
		if _, dup := ids[b.ID]; dup {
			return fmt.Errorf("%w: duplicate block id %q", ErrInvalidSchema, b.ID)
		}
		ids[b.ID] = struct{}{}

		key, ok := b.DataKey()
		if !ok {
			continue
		}
		if other, dup := keys[key]; dup {
			return fmt.Errorf("%w: blocks %q and %q share data key %q", ErrInvalidSchema, other, b.ID, key)
		}
		keys[key] = b.ID
	}

	return nil
}
