package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
)

type blockJSON struct {
	ID     string          `json:"id"`
	Type   Type            `json:"type"`
	Config json.RawMessage `json:"config,omitempty"`
}

func (b Block) MarshalJSON() ([]byte, error) {
	var cfg any = b.Config
	if g, ok := b.Config.(GenericConfig); ok {
		cfg = g.Values
	}
	if cfg == nil {
		cfg = struct{}{}
	}

	raw, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("schema: encode block %q: %w", b.ID, err)
	}

	return json.Marshal(blockJSON{ID: b.ID, Type: b.Type(), Config: raw})
}

func (b *Block) UnmarshalJSON(data []byte) error {
	var raw blockJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.Type == "" {
		return fmt.Errorf("%w: block %q has no type", ErrInvalidSchema, raw.ID)
	}

	cfg, err := decodeConfig(raw.Type, raw.Config)
	if err != nil {
		return fmt.Errorf("schema: decode block %q (%s): %w", raw.ID, raw.Type, err)
	}

	b.ID = raw.ID
	b.Config = cfg
	return nil
}

func (s Schema) MarshalJSON() ([]byte, error) {
	type plain Schema
	if s.Blocks == nil {
		s.Blocks = []Block{}
	}
	return json.Marshal(plain(s))
}

func decodeConfig(t Type, raw json.RawMessage) (Config, error) {
	switch t {
	case TypeTextField:
		return decodeAs[TextFieldConfig](raw)
	case TypeNumberField:
		return decodeAs[NumberFieldConfig](raw)
	case TypeDateField:
		return decodeAs[DateFieldConfig](raw)
	case TypeTextareaField:
		return decodeAs[TextareaFieldConfig](raw)
	case TypeSelectField:
		return decodeAs[SelectFieldConfig](raw)
	case TypeSignature:
		return decodeAs[SignatureConfig](raw)
	case TypeTristateItem:
		return decodeAs[TristateConfig](raw)
	case TypeChecklist:
		return decodeAs[ChecklistConfig](raw)
	case TypeTable:
		return decodeAs[TableConfig](raw)
	case TypeImageGallery:
		return decodeAs[ImageGalleryConfig](raw)
	case TypeHeading:
		return decodeAs[HeadingConfig](raw)
	case TypeTextBlock:
		return decodeAs[TextBlockConfig](raw)
	case TypeDivider:
		return decodeAs[DividerConfig](raw)
	case TypeSpacer:
		return decodeAs[SpacerConfig](raw)
	case TypePageBreak:
		return decodeAs[PageBreakConfig](raw)
	case TypeStaticImage:
		return decodeAs[StaticImageConfig](raw)
	}

	values := map[string]any{}
	if !isEmpty(raw) {
		if err := json.Unmarshal(raw, &values); err != nil {
			return nil, err
		}
	}
	return GenericConfig{Kind: t, Values: values}, nil
}

// decodeAs fills the typed config of a known block type. Keys the config does not declare
// are dropped, so schemas frozen by older builds keep decoding.
func decodeAs[T Config](raw json.RawMessage) (Config, error) {
	var cfg T
	if isEmpty(raw) {
		return cfg, nil
	}
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func isEmpty(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) == 0 || bytes.Equal(raw, []byte("null"))
}

// Parse decodes a persisted schema. An empty payload yields an empty schema.
func Parse(data []byte) (Schema, error) {
	s := New()
	if isEmpty(data) {
		return s, nil
	}
	if err := json.Unmarshal(data, &s); err != nil {
		return Schema{}, fmt.Errorf("schema: parse: %w", err)
	}
	if s.Blocks == nil {
		s.Blocks = []Block{}
	}
	return s, nil
}
