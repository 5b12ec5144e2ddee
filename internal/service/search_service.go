package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/csvsearch/internal/engine"
	"github.com/xxxsen/csvsearch/internal/indexname"
	"github.com/xxxsen/csvsearch/internal/metrics"
	"github.com/xxxsen/csvsearch/internal/model"
	appErr "github.com/xxxsen/csvsearch/internal/pkg/errors"
	"github.com/xxxsen/csvsearch/internal/query"
	"github.com/xxxsen/csvsearch/internal/session"
)

type SearchService struct {
	engine  engine.Engine
	catalog *CatalogService
	metrics *metrics.Metrics
	limits  query.Limits
}

func NewSearchService(eng engine.Engine, catalog *CatalogService, m *metrics.Metrics, limits query.Limits) *SearchService {
	return &SearchService{engine: eng, catalog: catalog, metrics: m, limits: limits}
}

// ResolveIndex maps a user supplied index reference to an identifier owned
// by the session. Both a plain name and a full engine index name are
// accepted; a full name from another session is reported as not found.
func ResolveIndex(token, ref string) (indexname.Identifier, error) {
	sess, err := session.Normalize(token)
	if err != nil {
		return indexname.Identifier{}, err
	}
	ref = strings.TrimSpace(ref)
	if id, ok := indexname.Parse(strings.ToLower(ref)); ok {
		if id.Session != sess {
			return indexname.Identifier{}, fmt.Errorf("%w: %s", appErr.ErrIndexNotFound, id.Name)
		}
		return id, nil
	}
	return indexname.Resolve(sess, ref)
}

func (s *SearchService) Search(ctx context.Context, token string, req model.SearchRequest) (*model.SearchResponse, error) {
	start := time.Now()
	resp, err := s.search(ctx, token, req)
	s.metrics.ObserveSearch(err, time.Since(start))
	return resp, err
}

func (s *SearchService) search(ctx context.Context, token string, req model.SearchRequest) (*model.SearchResponse, error) {
	if strings.TrimSpace(req.QueryText) == "" {
		return nil, appErr.ErrEmptyQuery
	}
	id, err := ResolveIndex(token, req.IndexName)
	if err != nil {
		return nil, err
	}
	columns, err := s.catalog.Describe(ctx, id)
	if err != nil {
		return nil, s.notFound(ctx, token, id, err)
	}
	q, err := query.Compose(req, columns, s.limits)
	if err != nil {
		return nil, err
	}

	logger := logutil.GetLogger(ctx).With(zap.String("index", id.String()))
	start := time.Now()
	res, err := s.engine.Search(ctx, id.String(), q)
	elapsed := time.Since(start)
	if err != nil {
		if appErr.IsNotFound(err) {
			s.catalog.Invalidate(id)
		}
		logger.Error("search failed", zap.String("query", q.Text), zap.Error(err))
		return nil, s.notFound(ctx, token, id, err)
	}
	logger.Debug("search finished",
		zap.String("query", q.Text),
		zap.Int64("total", res.Total),
		zap.Duration("duration", elapsed),
	)

	resp := &model.SearchResponse{
		Query:             q.Text,
		IndexName:         id.String(),
		Results:           make([]model.SearchHit, 0, len(res.Hits)),
		TotalResults:      res.Total,
		ReturnedResults:   len(res.Hits),
		SearchTimeSeconds: elapsed.Seconds(),
		EngineTookMs:      res.Took.Milliseconds(),
		Aggregations:      map[string][]model.Bucket{},
	}
	for _, hit := range res.Hits {
		resp.Results = append(resp.Results, model.SearchHit{
			Score:      hit.Score,
			Source:     hit.Source,
			Highlights: hit.Highlights,
		})
	}
	for _, agg := range q.Aggregations {
		buckets := res.Aggregations[agg.Name]
		if buckets == nil {
			buckets = []model.Bucket{}
		}
		resp.Aggregations[agg.Name] = buckets
	}
	return resp, nil
}

// notFound decorates a missing-index error with close names from the
// session's catalog. Other errors pass through.
func (s *SearchService) notFound(ctx context.Context, token string, id indexname.Identifier, err error) error {
	if !errors.Is(err, appErr.ErrIndexNotFound) {
		return err
	}
	suggestions := s.catalog.Suggest(ctx, token, id.Name)
	if len(suggestions) == 0 {
		return fmt.Errorf("%w: %s", appErr.ErrIndexNotFound, id.Name)
	}
	return fmt.Errorf("%w: %s, did you mean: %s", appErr.ErrIndexNotFound, id.Name, strings.Join(suggestions, ", "))
}
