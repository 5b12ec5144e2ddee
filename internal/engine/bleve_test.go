package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/csvsearch/internal/config"
	"github.com/xxxsen/csvsearch/internal/csvfile"
	"github.com/xxxsen/csvsearch/internal/model"
	appErr "github.com/xxxsen/csvsearch/internal/pkg/errors"
)

var cityColumns = []model.Column{
	{Name: "city", Type: model.ColumnText},
	{Name: "population", Type: model.ColumnNumeric},
}

func seedCities(t *testing.T, e Engine, name string) {
	t.Helper()
	ctx := context.Background()
	created, err := e.CreateIndex(ctx, name, cityColumns, IndexMeta{Name: "cities"})
	require.NoError(t, err)
	require.True(t, created)
	rejected, err := e.BulkIndex(ctx, name, []Document{
		{Position: 0, Fields: map[string]any{"city": "Berlin", "population": 3.6}},
		{Position: 1, Fields: map[string]any{"city": "Berlin", "population": 3.7}},
		{Position: 2, Fields: map[string]any{"city": "Paris", "population": 2.1}},
	}, BulkOptions{Refresh: true})
	require.NoError(t, err)
	require.Empty(t, rejected)
}

func TestBleveCreateIsIdempotent(t *testing.T) {
	e, err := NewBleve("")
	require.NoError(t, err)
	defer e.Close()
	ctx := context.Background()

	created, err := e.CreateIndex(ctx, "temp-a-x", cityColumns, IndexMeta{})
	require.NoError(t, err)
	require.True(t, created)
	created, err = e.CreateIndex(ctx, "temp-a-x", nil, IndexMeta{})
	require.NoError(t, err)
	require.False(t, created)

	info, err := e.GetIndex(ctx, "temp-a-x")
	require.NoError(t, err)
	require.Equal(t, cityColumns, info.Columns)
	require.Zero(t, info.DocsCount)
}

func TestBleveSearchFuzzyWithFacets(t *testing.T) {
	e, err := NewBleve("")
	require.NoError(t, err)
	defer e.Close()
	seedCities(t, e, "temp-a-cities")

	res, err := e.Search(context.Background(), "temp-a-cities", &Query{
		Text:      "Berln",
		Fields:    []string{"city"},
		Fuzziness: "AUTO",
		Size:      10,
		Highlight: true,
		Aggregations: []TermsAggregation{
			{Name: "city", Field: "city.keyword", Size: 10},
		},
	})
	require.NoError(t, err)
	require.Equal(t, int64(2), res.Total)
	require.Len(t, res.Hits, 2)
	require.Equal(t, "Berlin", res.Hits[0].Source["city"])
	require.NotContains(t, res.Hits[0].Source, "city.keyword")
	require.NotEmpty(t, res.Hits[0].Highlights["city"])
	require.Equal(t, []model.Bucket{{Value: "Berlin", Count: 2}}, res.Aggregations["city"])
}

func TestBleveSearchMissingIndex(t *testing.T) {
	e, err := NewBleve("")
	require.NoError(t, err)
	defer e.Close()
	_, err = e.Search(context.Background(), "temp-a-none", &Query{Text: "x", Size: 10})
	require.ErrorIs(t, err, appErr.ErrIndexNotFound)
	_, err = e.GetIndex(context.Background(), "temp-a-none")
	require.ErrorIs(t, err, appErr.ErrIndexNotFound)
}

func TestBleveListByPrefix(t *testing.T) {
	e, err := NewBleve("")
	require.NoError(t, err)
	defer e.Close()
	seedCities(t, e, "temp-b-two")
	seedCities(t, e, "temp-b-one")
	seedCities(t, e, "temp-c-one")

	list, err := e.ListIndices(context.Background(), "temp-b-")
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, "temp-b-one", list[0].Name)
	require.Equal(t, "temp-b-two", list[1].Name)
	require.Equal(t, int64(3), list[0].DocsCount)

	list, err = e.ListIndices(context.Background(), "temp-d-")
	require.NoError(t, err)
	require.Empty(t, list)
}

func TestBleveDeleteAndPersist(t *testing.T) {
	dir := t.TempDir()
	e, err := NewBleve(dir)
	require.NoError(t, err)
	seedCities(t, e, "temp-a-kept")
	seedCities(t, e, "temp-a-dropped")
	require.NoError(t, e.DeleteIndex(context.Background(), "temp-a-dropped"))
	require.NoError(t, e.DeleteIndex(context.Background(), "temp-a-dropped"))
	require.NoError(t, e.Close())

	reopened, err := NewBleve(dir)
	require.NoError(t, err)
	defer reopened.Close()
	list, err := reopened.ListIndices(context.Background(), "temp-a-")
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, "temp-a-kept", list[0].Name)
	require.Equal(t, cityColumns, list[0].Columns)
}

func TestBleveFuzziness(t *testing.T) {
	require.Equal(t, 0, bleveFuzziness("ab", "AUTO"))
	require.Equal(t, 1, bleveFuzziness("berln", "AUTO"))
	require.Equal(t, 2, bleveFuzziness("frankfurt", "AUTO"))
	require.Equal(t, 0, bleveFuzziness("frankfurt am", "AUTO"))
	require.Equal(t, 0, bleveFuzziness("frankfurt", ""))
}

func TestRegistryBuildsEngines(t *testing.T) {
	e, err := New(config.EngineConfig{Type: "bleve"})
	require.NoError(t, err)
	require.Equal(t, "bleve", e.Type())
	require.NoError(t, e.Close())

	e, err = New(config.EngineConfig{Type: "Elasticsearch", Data: map[string]interface{}{"host": "es", "port": 9201}})
	require.NoError(t, err)
	require.Equal(t, "elasticsearch", e.Type())

	_, err = New(config.EngineConfig{Type: "solr"})
	require.Error(t, err)
}

func TestBleveRejectsDottedColumns(t *testing.T) {
	e, err := NewBleve("")
	require.NoError(t, err)
	defer e.Close()
	_, err = e.CreateIndex(context.Background(), "temp-a-prices", []model.Column{
		{Name: "price.usd", Type: model.ColumnText},
	}, IndexMeta{})
	require.ErrorIs(t, err, appErr.ErrInvalid)
	_, err = e.GetIndex(context.Background(), "temp-a-prices")
	require.ErrorIs(t, err, appErr.ErrIndexNotFound)
}

func TestBleveSearchesNormalizedDottedHeader(t *testing.T) {
	e, err := NewBleve("")
	require.NoError(t, err)
	defer e.Close()
	ctx := context.Background()

	field := csvfile.NormalizeHeader([]string{"price.usd"})[0]
	columns := []model.Column{{Name: field, Type: model.ColumnText}}
	_, err = e.CreateIndex(ctx, "temp-a-prices", columns, IndexMeta{})
	require.NoError(t, err)
	_, err = e.BulkIndex(ctx, "temp-a-prices", []Document{
		{Position: 0, Fields: map[string]any{field: "cheap"}},
	}, BulkOptions{Refresh: true})
	require.NoError(t, err)

	res, err := e.Search(ctx, "temp-a-prices", &Query{
		Text:      "cheap",
		Fields:    []string{field},
		Fuzziness: "AUTO",
		Size:      10,
	})
	require.NoError(t, err)
	require.Equal(t, int64(1), res.Total)
	require.Equal(t, "cheap", res.Hits[0].Source[field])
}
