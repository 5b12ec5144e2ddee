package query

import (
	"fmt"
	"strings"

	"github.com/xxxsen/csvsearch/internal/engine"
	"github.com/xxxsen/csvsearch/internal/model"
	appErr "github.com/xxxsen/csvsearch/internal/pkg/errors"
	"github.com/xxxsen/csvsearch/internal/schema"
)

const fuzzinessAuto = "AUTO"

type Limits struct {
	DefaultSize     int
	MaxSize         int
	AggregationSize int
	Highlight       bool
}

func DefaultLimits() Limits {
	return Limits{DefaultSize: 10, MaxSize: 100, AggregationSize: 10, Highlight: true}
}

// Compose turns a search request into an engine query against an index with
// the given columns.
func Compose(req model.SearchRequest, cols []model.Column, limits Limits) (*engine.Query, error) {
	text := strings.TrimSpace(req.QueryText)
	if text == "" {
		return nil, appErr.ErrEmptyQuery
	}
	q := &engine.Query{
		Text:      text,
		Fields:    model.TextColumns(cols),
		Fuzziness: fuzzinessAuto,
		Size:      clampSize(req.ResultSize, limits),
		Highlight: limits.Highlight,
	}
	if len(q.Fields) == 0 {
		q.Fields = nil
		q.Lenient = true
	}
	aggs, err := aggregations(req.AggregationFields, cols, limits.AggregationSize)
	if err != nil {
		return nil, err
	}
	q.Aggregations = aggs
	return q, nil
}

func clampSize(size int, limits Limits) int {
	if size <= 0 {
		size = limits.DefaultSize
	}
	if limits.MaxSize > 0 && size > limits.MaxSize {
		size = limits.MaxSize
	}
	return size
}

func aggregations(fields []string, cols []model.Column, size int) ([]engine.TermsAggregation, error) {
	if len(fields) == 0 {
		return nil, nil
	}
	types := make(map[string]model.ColumnType, len(cols))
	for _, col := range cols {
		types[col.Name] = col.Type
	}
	seen := make(map[string]struct{}, len(fields))
	out := make([]engine.TermsAggregation, 0, len(fields))
	for _, field := range fields {
		field = strings.TrimSpace(field)
		if _, ok := seen[field]; ok {
			continue
		}
		seen[field] = struct{}{}
		typ, ok := types[field]
		if !ok {
			return nil, fmt.Errorf("%w: unknown field %q", appErr.ErrInvalidAggregation, field)
		}
		if typ != model.ColumnText {
			return nil, fmt.Errorf("%w: field %q is %s, only text fields can be aggregated", appErr.ErrInvalidAggregation, field, typ)
		}
		out = append(out, engine.TermsAggregation{
			Name:  field,
			Field: schema.AggregationField(field),
			Size:  size,
		})
	}
	return out, nil
}
