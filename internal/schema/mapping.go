package schema

import (
	"fmt"
	"strings"

	"github.com/xxxsen/csvsearch/internal/model"
)

const (
	KeywordSuffix      = ".keyword"
	KeywordIgnoreAbove = 256
)

// FieldMapping is the engine neutral description of one indexed field.
type FieldMapping struct {
	Field    string
	Type     string
	Analyzer string
	Keyword  bool
}

func FieldMappings(cols []model.Column) []FieldMapping {
	out := make([]FieldMapping, 0, len(cols))
	for _, col := range cols {
		out = append(out, fieldMapping(col))
	}
	return out
}

func fieldMapping(col model.Column) FieldMapping {
	switch col.Type {
	case model.ColumnNumeric:
		return FieldMapping{Field: col.Name, Type: "double"}
	case model.ColumnDate:
		return FieldMapping{Field: col.Name, Type: "date"}
	case model.ColumnBoolean:
		return FieldMapping{Field: col.Name, Type: "boolean"}
	default:
		return FieldMapping{Field: col.Name, Type: "text", Analyzer: "standard", Keyword: true}
	}
}

// ColumnTypeFromEngine maps an engine field type back to a column type.
func ColumnTypeFromEngine(fieldType string) model.ColumnType {
	switch strings.ToLower(fieldType) {
	case "double", "float", "half_float", "scaled_float", "long", "integer", "short", "byte", "unsigned_long", "number":
		return model.ColumnNumeric
	case "date", "date_nanos", "datetime":
		return model.ColumnDate
	case "boolean":
		return model.ColumnBoolean
	default:
		return model.ColumnText
	}
}

// AggregationField is the exact-value field term aggregations bucket on.
func AggregationField(column string) string {
	return column + KeywordSuffix
}

// Coerce converts a raw cell into the value indexed for col. A nil value
// with a nil error means the cell is empty and the field is omitted.
func Coerce(col model.Column, raw string) (any, error) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return nil, nil
	}
	switch col.Type {
	case model.ColumnNumeric:
		f, ok := ParseNumber(v)
		if !ok {
			return nil, fmt.Errorf("cannot parse %q as numeric", truncate(v, 64))
		}
		return f, nil
	case model.ColumnDate:
		t, ok := ParseDate(v)
		if !ok {
			return nil, fmt.Errorf("cannot parse %q as date", truncate(v, 64))
		}
		return t, nil
	case model.ColumnBoolean:
		b, ok := ParseBool(v)
		if !ok {
			return nil, fmt.Errorf("cannot parse %q as boolean", truncate(v, 64))
		}
		return b, nil
	default:
		return raw, nil
	}
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
