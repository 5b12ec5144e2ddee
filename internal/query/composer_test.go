package query

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/csvsearch/internal/model"
	appErr "github.com/xxxsen/csvsearch/internal/pkg/errors"
)

var productColumns = []model.Column{
	{Name: "name", Type: model.ColumnText},
	{Name: "category", Type: model.ColumnText},
	{Name: "price", Type: model.ColumnNumeric},
}

func TestComposeFuzzyOverTextColumns(t *testing.T) {
	q, err := Compose(model.SearchRequest{QueryText: "  lapto  "}, productColumns, DefaultLimits())
	require.NoError(t, err)
	require.Equal(t, "lapto", q.Text)
	require.Equal(t, []string{"name", "category"}, q.Fields)
	require.Equal(t, "AUTO", q.Fuzziness)
	require.False(t, q.Lenient)
	require.Equal(t, 10, q.Size)
	require.True(t, q.Highlight)
	require.Empty(t, q.Aggregations)
}

func TestComposeEmptyQuery(t *testing.T) {
	for _, text := range []string{"", "   ", "\t\n"} {
		_, err := Compose(model.SearchRequest{QueryText: text}, productColumns, DefaultLimits())
		require.ErrorIs(t, err, appErr.ErrEmptyQuery)
	}
}

func TestComposeSizeClamp(t *testing.T) {
	cases := []struct {
		in   int
		want int
	}{
		{in: 0, want: 10},
		{in: -5, want: 10},
		{in: 1, want: 1},
		{in: 100, want: 100},
		{in: 10000, want: 100},
	}
	for _, tc := range cases {
		q, err := Compose(model.SearchRequest{QueryText: "x", ResultSize: tc.in}, productColumns, DefaultLimits())
		require.NoError(t, err)
		require.Equal(t, tc.want, q.Size, "size %d", tc.in)
	}
}

func TestComposeAggregations(t *testing.T) {
	q, err := Compose(model.SearchRequest{
		QueryText:         "x",
		AggregationFields: []string{"category", "category", " name "},
	}, productColumns, Limits{DefaultSize: 5, MaxSize: 50, AggregationSize: 3})
	require.NoError(t, err)
	require.Len(t, q.Aggregations, 2)
	require.Equal(t, "category", q.Aggregations[0].Name)
	require.Equal(t, "category.keyword", q.Aggregations[0].Field)
	require.Equal(t, 3, q.Aggregations[0].Size)
	require.Equal(t, "name", q.Aggregations[1].Name)
	require.False(t, q.Highlight)
}

func TestComposeRejectsBadAggregation(t *testing.T) {
	_, err := Compose(model.SearchRequest{QueryText: "x", AggregationFields: []string{"colour"}}, productColumns, DefaultLimits())
	require.ErrorIs(t, err, appErr.ErrInvalidAggregation)
	_, err = Compose(model.SearchRequest{QueryText: "x", AggregationFields: []string{"price"}}, productColumns, DefaultLimits())
	require.ErrorIs(t, err, appErr.ErrInvalidAggregation)
}

func TestComposeWithoutTextColumns(t *testing.T) {
	q, err := Compose(model.SearchRequest{QueryText: "42"}, []model.Column{{Name: "n", Type: model.ColumnNumeric}}, DefaultLimits())
	require.NoError(t, err)
	require.Nil(t, q.Fields)
	require.True(t, q.Lenient)
}
