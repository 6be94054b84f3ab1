package schema

// InitData builds the empty fill-in payload of a report component from its frozen schema.
// Blocks are visited in order; structural blocks and data blocks without a key are skipped.
func InitData(s Schema) map[string]any {
	data := make(map[string]any)

	for _, b := range s.Blocks {
		key, ok := b.DataKey()
		if !ok {
			continue
		}
		data[key] = initialValue(b.Config)
	}

	return data
}

// initialValue is the per-type initial value table. A new data-producing variant must add
// its own case; anything not listed starts as null.
func initialValue(cfg Config) any {
	switch c := cfg.(type) {
	case TristateConfig:
		return map[string]any{"value": nil, "note": ""}
	case ChecklistConfig:
		return []any{}
	case ImageGalleryConfig:
		return []any{}
	case TableConfig:
		if len(c.FixedRows) == 0 {
			return []any{}
		}
		rows := make([]any, len(c.FixedRows))
		for i, row := range c.FixedRows {
			rows[i] = mapValue(row, keep)
		}
		return rows
	default:
		return nil
	}
}

func keep(v string) string { return v }
