// Package placeholder projects contextual values into template text.
//
// Tokens look like {{client.name}}. A token is looked up by walking nested maps of the
// context; what happens to a token that cannot be resolved depends on the Policy chosen
// by the caller.
package placeholder

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"robot-maint/internal/schema"
)

type Policy int

const (
	// KeepUnresolved leaves unknown tokens visible. Used by the editor preview.
	KeepUnresolved Policy = iota
	// EmptyUnresolved replaces unknown tokens with an empty string. Used when assembling
	// a real report.
	EmptyUnresolved
)

var tokenRe = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_\-]+(?:\.[A-Za-z0-9_\-]+)*)\s*\}\}`)

// Resolve replaces every token of text found in ctx. It never fails.
func Resolve(text string, ctx map[string]any, policy Policy) string {
	if !strings.Contains(text, "{{") {
		return text
	}

	return tokenRe.ReplaceAllStringFunc(text, func(token string) string {
		path := tokenRe.FindStringSubmatch(token)[1]

		v, ok := Lookup(ctx, path)
		if !ok {
			if policy == KeepUnresolved {
				return token
			}
			return ""
		}

		return Stringify(v)
	})
}

// ResolveSchema resolves every text leaf of a deep copy of s.
func ResolveSchema(s schema.Schema, ctx map[string]any, policy Policy) schema.Schema {
	return s.MapStrings(func(v string) string {
		return Resolve(v, ctx, policy)
	})
}

// Lookup walks a dotted path through nested maps.
func Lookup(ctx map[string]any, path string) (any, bool) {
	var cur any = ctx

	for _, part := range strings.Split(path, ".") {
		switch m := cur.(type) {
		case map[string]any:
			v, ok := m[part]
			if !ok {
				return nil, false
			}
			cur = v
		case map[string]string:
			v, ok := m[part]
			if !ok {
				return nil, false
			}
			cur = v
		default:
			return nil, false
		}
	}

	return cur, true
}

// Stringify renders a context value the way it appears in a document.
func Stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		if t == math.Trunc(t) && math.Abs(t) < 1e15 {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case time.Time:
		return t.Format(time.DateOnly)
	case *time.Time:
		if t == nil {
			return ""
		}
		return t.Format(time.DateOnly)
	case json.Number:
		return t.String()
	}

	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}
