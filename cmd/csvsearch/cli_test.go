package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/csvsearch/internal/history"
	"github.com/xxxsen/csvsearch/internal/model"
	appErr "github.com/xxxsen/csvsearch/internal/pkg/errors"
)

type fakeSearcher struct {
	calls []model.SearchRequest
}

func (f *fakeSearcher) Search(ctx context.Context, token string, req model.SearchRequest) (*model.SearchResponse, error) {
	f.calls = append(f.calls, req)
	if req.IndexName == "missing" {
		return nil, appErr.ErrIndexNotFound
	}
	return &model.SearchResponse{
		Query:             req.QueryText,
		IndexName:         req.IndexName,
		TotalResults:      1,
		ReturnedResults:   1,
		SearchTimeSeconds: 0.002,
		Results: []model.SearchHit{
			{Score: 1.5, Source: map[string]any{"name": "item", "category": "laptop"}},
		},
	}, nil
}

func TestShellRecordsHistory(t *testing.T) {
	fake := &fakeSearcher{}
	out := &bytes.Buffer{}
	sh := &shell{search: fake, index: "products", history: history.New(2), out: out}

	in := strings.NewReader("laptop\n\nphone\n:index missing\ntablet\n:index products\nmonitor\n:history\n:quit\nignored\n")
	require.NoError(t, sh.loop(context.Background(), in))

	require.Len(t, fake.calls, 4)
	require.Equal(t, "missing", fake.calls[2].IndexName)
	require.Equal(t, 2, sh.history.Len())
	recent := sh.history.Recent()
	require.Equal(t, "monitor", recent[0].Query)
	require.Equal(t, "phone", recent[1].Query)

	text := out.String()
	require.Contains(t, text, "category=laptop name=item")
	require.Contains(t, text, "error: ")
	require.NotContains(t, text, "ignored")
}

func TestShellEndsOnEOF(t *testing.T) {
	sh := &shell{search: &fakeSearcher{}, index: "products", history: history.New(0), out: &bytes.Buffer{}}
	require.NoError(t, sh.loop(context.Background(), strings.NewReader(":history\n")))
	require.Zero(t, sh.history.Len())
}
