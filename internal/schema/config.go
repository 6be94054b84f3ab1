package schema

// Config is the typed configuration of one block variant. The interface is sealed: the
// variants below are the complete list.
type Config interface {
	blockType() Type
	mapStrings(fn func(string) string) Config
}

// DataConfig is implemented by the configs of data-producing blocks.
type DataConfig interface {
	Config
	DataKey() string
}

type TextFieldConfig struct {
	Key         string `json:"key"`
	Label       string `json:"label"`
	Placeholder string `json:"placeholder,omitempty"`
	Required    bool   `json:"required,omitempty"`
}

func (TextFieldConfig) blockType() Type { return TypeTextField }
func (c TextFieldConfig) DataKey() string { return c.Key }
func (c TextFieldConfig) mapStrings(fn func(string) string) Config {
	c.Label = fn(c.Label)
	c.Placeholder = fn(c.Placeholder)
	return c
}

type NumberFieldConfig struct {
	Key      string   `json:"key"`
	Label    string   `json:"label"`
	Unit     string   `json:"unit,omitempty"`
	Min      *float64 `json:"min,omitempty"`
	Max      *float64 `json:"max,omitempty"`
	Required bool     `json:"required,omitempty"`
}

func (NumberFieldConfig) blockType() Type { return TypeNumberField }
func (c NumberFieldConfig) DataKey() string { return c.Key }
func (c NumberFieldConfig) mapStrings(fn func(string) string) Config {
	c.Label = fn(c.Label)
	c.Unit = fn(c.Unit)
	c.Min = copyFloat(c.Min)
	c.Max = copyFloat(c.Max)
	return c
}

type DateFieldConfig struct {
	Key      string `json:"key"`
	Label    string `json:"label"`
	Required bool   `json:"required,omitempty"`
}

func (DateFieldConfig) blockType() Type { return TypeDateField }
func (c DateFieldConfig) DataKey() string { return c.Key }
func (c DateFieldConfig) mapStrings(fn func(string) string) Config {
	c.Label = fn(c.Label)
	return c
}

type TextareaFieldConfig struct {
	Key         string `json:"key"`
	Label       string `json:"label"`
	Placeholder string `json:"placeholder,omitempty"`
	Rows        int    `json:"rows,omitempty"`
	Required    bool   `json:"required,omitempty"`
}

func (TextareaFieldConfig) blockType() Type { return TypeTextareaField }
func (c TextareaFieldConfig) DataKey() string { return c.Key }
func (c TextareaFieldConfig) mapStrings(fn func(string) string) Config {
	c.Label = fn(c.Label)
	c.Placeholder = fn(c.Placeholder)
	return c
}

type SelectFieldConfig struct {
	Key      string   `json:"key"`
	Label    string   `json:"label"`
	Options  []string `json:"options"`
	Required bool     `json:"required,omitempty"`
}

func (SelectFieldConfig) blockType() Type { return TypeSelectField }
func (c SelectFieldConfig) DataKey() string { return c.Key }
func (c SelectFieldConfig) mapStrings(fn func(string) string) Config {
	c.Label = fn(c.Label)
	c.Options = mapSlice(c.Options, fn)
	return c
}

type SignatureConfig struct {
	Key        string `json:"key"`
	Label      string `json:"label"`
	SignerRole string `json:"signerRole,omitempty"`
}

func (SignatureConfig) blockType() Type { return TypeSignature }
func (c SignatureConfig) DataKey() string { return c.Key }
func (c SignatureConfig) mapStrings(fn func(string) string) Config {
	c.Label = fn(c.Label)
	c.SignerRole = fn(c.SignerRole)
	return c
}

// TristateConfig is an inspection item answered ok / not ok / not applicable.
type TristateConfig struct {
	Key         string `json:"key"`
	Label       string `json:"label"`
	Description string `json:"description,omitempty"`
	Required    bool   `json:"required,omitempty"`
}

func (TristateConfig) blockType() Type { return TypeTristateItem }
func (c TristateConfig) DataKey() string { return c.Key }
func (c TristateConfig) mapStrings(fn func(string) string) Config {
	c.Label = fn(c.Label)
	c.Description = fn(c.Description)
	return c
}

type ChecklistConfig struct {
	Key   string   `json:"key"`
	Label string   `json:"label"`
	Items []string `json:"items"`
}

func (ChecklistConfig) blockType() Type { return TypeChecklist }
func (c ChecklistConfig) DataKey() string { return c.Key }
func (c ChecklistConfig) mapStrings(fn func(string) string) Config {
	c.Label = fn(c.Label)
	c.Items = mapSlice(c.Items, fn)
	return c
}

type TableColumn struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Type  string `json:"type,omitempty"`
}

// TableConfig rows are free-form objects keyed by column key. FixedRows seed the data of
// a new report.
type TableConfig struct {
	Key          string           `json:"key"`
	Label        string           `json:"label"`
	Columns      []TableColumn    `json:"columns"`
	FixedRows    []map[string]any `json:"fixedRows,omitempty"`
	AllowAddRows bool             `json:"allowAddRows,omitempty"`
}

func (TableConfig) blockType() Type { return TypeTable }
func (c TableConfig) DataKey() string { return c.Key }
func (c TableConfig) mapStrings(fn func(string) string) Config {
	c.Label = fn(c.Label)
	if c.Columns != nil {
		cols := make([]TableColumn, len(c.Columns))
		for i, col := range c.Columns {
			col.Label = fn(col.Label)
			cols[i] = col
		}
		c.Columns = cols
	}
	if c.FixedRows != nil {
		rows := make([]map[string]any, len(c.FixedRows))
		for i, row := range c.FixedRows {
			rows[i] = mapValue(row, fn).(map[string]any)
		}
		c.FixedRows = rows
	}
	return c
}

type ImageGalleryConfig struct {
	Key       string `json:"key"`
	Label     string `json:"label"`
	MaxImages int    `json:"maxImages,omitempty"`
}

func (ImageGalleryConfig) blockType() Type { return TypeImageGallery }
func (c ImageGalleryConfig) DataKey() string { return c.Key }
func (c ImageGalleryConfig) mapStrings(fn func(string) string) Config {
	c.Label = fn(c.Label)
	return c
}

type HeadingConfig struct {
	Text  string `json:"text"`
	Level int    `json:"level,omitempty"`
}

func (HeadingConfig) blockType() Type { return TypeHeading }
func (c HeadingConfig) mapStrings(fn func(string) string) Config {
	c.Text = fn(c.Text)
	return c
}

type TextBlockConfig struct {
	Content string `json:"content"`
	Align   string `json:"align,omitempty"`
}

func (TextBlockConfig) blockType() Type { return TypeTextBlock }
func (c TextBlockConfig) mapStrings(fn func(string) string) Config {
	c.Content = fn(c.Content)
	return c
}

type DividerConfig struct {
	Style string `json:"style,omitempty"`
}

func (DividerConfig) blockType() Type { return TypeDivider }
func (c DividerConfig) mapStrings(func(string) string) Config { return c }

type SpacerConfig struct {
	Height float64 `json:"height,omitempty"`
}

func (SpacerConfig) blockType() Type { return TypeSpacer }
func (c SpacerConfig) mapStrings(func(string) string) Config { return c }

type PageBreakConfig struct{}

func (PageBreakConfig) blockType() Type { return TypePageBreak }
func (c PageBreakConfig) mapStrings(func(string) string) Config { return c }

type StaticImageConfig struct {
	URL     string  `json:"url"`
	Caption string  `json:"caption,omitempty"`
	Width   float64 `json:"width,omitempty"`
}

func (StaticImageConfig) blockType() Type { return TypeStaticImage }
func (c StaticImageConfig) mapStrings(fn func(string) string) Config {
	c.URL = fn(c.URL)
	c.Caption = fn(c.Caption)
	return c
}

// GenericConfig keeps blocks of a type this build does not know. They are treated as
// structural so old frozen schemas keep decoding.
type GenericConfig struct {
	Kind   Type
	Values map[string]any
}

func (c GenericConfig) blockType() Type { return c.Kind }
func (c GenericConfig) mapStrings(fn func(string) string) Config {
	if c.Values != nil {
		c.Values = mapValue(c.Values, fn).(map[string]any)
	}
	return c
}

func mapSlice(in []string, fn func(string) string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = fn(v)
	}
	return out
}

// mapValue deep-copies JSON-like values, passing string leaves through fn.
func mapValue(v any, fn func(string) string) any {
	switch t := v.(type) {
	case string:
		return fn(t)
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = mapValue(val, fn)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = mapValue(val, fn)
		}
		return out
	case []map[string]any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = mapValue(val, fn)
		}
		return out
	case []string:
		return mapSlice(t, fn)
	default:
		return v
	}
}

func copyFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}
