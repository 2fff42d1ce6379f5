// Package rowmap reshapes flat driver rows into the typed, possibly nested
// objects a column spec describes. The column map records, per output SQL
// column, the result key and declared type; the mapper walks the spec and
// coerces values per field. Coercion never fails: a value that will not
// parse stays what it was.
package rowmap

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/qbloq/qmap/internal/qspec"
)

// Field is one column map entry.
type Field struct {
	Key  string
	Type qspec.TypeTag
}

// BuildColumnMap walks a column spec and records the output column to
// result field mapping. A star spec has no map; rows copy through as is.
func BuildColumnMap(cols *qspec.Columns) map[string]Field {
	if cols == nil || cols.Star {
		return nil
	}
	m := make(map[string]Field)
	addItems(m, cols.Items)
	return m
}

func addItems(m map[string]Field, items []qspec.ColItem) {
	for _, item := range items {
		switch item.Kind {
		case qspec.ColRaw:
			m[item.Key] = Field{Key: item.Key, Type: item.Type}
		case qspec.ColNested:
			if !item.Nested.Star {
				addItems(m, item.Nested.Items)
			}
		default:
			out := item.Ref.OutName()
			m[out] = Field{Key: out, Type: item.Ref.Type}
		}
	}
}

// MapRows reshapes a result set. The usual shape is a list of mapped rows;
// a spec whose single top level key holds a list groups rows into a map
// keyed by each row's value for that column.
func MapRows(rows []map[string]any, cols *qspec.Columns, cmap map[string]Field) any {
	if cols == nil || cols.Star {
		out := make([]map[string]any, 0, len(rows))
		for _, row := range rows {
			out = append(out, copyRow(row))
		}
		return out
	}

	if len(cols.Items) == 1 && cols.Items[0].Kind == qspec.ColNested &&
		cols.Items[0].NestedIsList {
		item := cols.Items[0]
		// the grouping column is selected alongside the nested columns and
		// comes back under its output name
		key := item.Ref.OutName()
		if key == "" {
			key = item.Key
		}
		out := make(map[string]any, len(rows))
		for _, row := range rows {
			out[indexKey(row[key])] = MapRow(row, item.Nested, cmap)
		}
		return out
	}

	out := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		out = append(out, MapRow(row, cols, cmap))
	}
	return out
}

// MapRow reshapes one row per the spec, coercing each field to its
// declared type and recursing into nested sub objects.
func MapRow(row map[string]any, cols *qspec.Columns, cmap map[string]Field) map[string]any {
	if cols == nil || cols.Star {
		return copyRow(row)
	}

	out := make(map[string]any, len(cols.Items))
	for _, item := range cols.Items {
		switch item.Kind {
		case qspec.ColRaw:
			out[item.Key] = Coerce(row[item.Key], item.Type)
		case qspec.ColNested:
			out[item.Key] = MapRow(row, item.Nested, cmap)
		default:
			name := item.Ref.OutName()
			f, ok := cmap[name]
			if !ok {
				f = Field{Key: name, Type: item.Ref.Type}
			}
			out[f.Key] = Coerce(row[name], f.Type)
		}
	}
	return out
}

func copyRow(row map[string]any) map[string]any {
	out := make(map[string]any, len(row))
	for k, v := range row {
		if b, ok := v.([]byte); ok {
			v = string(b)
		}
		out[k] = v
	}
	return out
}

func indexKey(v any) string {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return fmt.Sprint(v)
}

// Coerce converts a raw driver value to its declared type. Nil passes
// through untouched; []byte reads as a string first.
func Coerce(v any, t qspec.TypeTag) any {
	if v == nil {
		return nil
	}
	if b, ok := v.([]byte); ok {
		v = string(b)
	}

	switch t {
	case qspec.TypeInt:
		return coerceInt(v)
	case qspec.TypeNumber:
		return coerceNumber(v)
	case qspec.TypeBool:
		return coerceBool(v)
	case qspec.TypeObject, qspec.TypeJSON:
		return coerceJSON(v)
	}
	return v
}

func coerceInt(v any) any {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case int32:
		return int64(n)
	case float64:
		return int64(n)
	case float32:
		return int64(n)
	case string:
		if i, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64); err == nil {
			return i
		}
		if f, err := strconv.ParseFloat(strings.TrimSpace(n), 64); err == nil {
			return int64(f)
		}
	}
	return v
}

func coerceNumber(v any) any {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int64:
		return float64(n)
	case int:
		return float64(n)
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(n), 64); err == nil {
			return f
		}
	}
	return v
}

func coerceBool(v any) any {
	switch b := v.(type) {
	case bool:
		return b
	case int64:
		return b != 0
	case int:
		return b != 0
	case float64:
		return b != 0
	case string:
		switch strings.ToLower(strings.TrimSpace(b)) {
		case "", "0", "false", "f", "no":
			return false
		}
		return true
	}
	return v != nil
}

// coerceJSON parses a JSON payload, degrading to the raw string when the
// payload is corrupt.
func coerceJSON(v any) any {
	s, ok := v.(string)
	if !ok {
		return v
	}
	var out any
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return s
	}
	return out
}
