package service

import (
	"context"
	"sort"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/csvsearch/internal/engine"
	"github.com/xxxsen/csvsearch/internal/indexname"
	"github.com/xxxsen/csvsearch/internal/model"
	"github.com/xxxsen/csvsearch/internal/session"
)

const (
	maxSuggestions      = 3
	maxSuggestDistance  = 3
	defaultCatalogCache = 256
)

type CatalogService struct {
	engine engine.Engine
	schema *expirable.LRU[string, []model.Column]
}

func NewCatalogService(eng engine.Engine, cacheSize int, ttl time.Duration) *CatalogService {
	if cacheSize <= 0 {
		cacheSize = defaultCatalogCache
	}
	return &CatalogService{
		engine: eng,
		schema: expirable.NewLRU[string, []model.Column](cacheSize, nil, ttl),
	}
}

// List returns the indices owned by the session, sorted by name.
func (s *CatalogService) List(ctx context.Context, token string) ([]model.CatalogEntry, error) {
	sess, err := session.Normalize(token)
	if err != nil {
		return nil, err
	}
	infos, err := s.engine.ListIndices(ctx, indexname.SessionPrefix(sess))
	if err != nil {
		return nil, err
	}
	out := make([]model.CatalogEntry, 0, len(infos))
	for _, info := range infos {
		id, ok := indexname.Parse(info.Name)
		if !ok || id.Session != sess {
			continue
		}
		columns := info.Columns
		if columns == nil {
			columns = []model.Column{}
		}
		s.schema.Add(info.Name, columns)
		out = append(out, model.CatalogEntry{
			Name:        info.Name,
			DisplayName: id.Name,
			Columns:     columns,
			DocsCount:   info.DocsCount,
		})
	}
	return out, nil
}

// Describe returns the columns of one index, served from cache when fresh.
func (s *CatalogService) Describe(ctx context.Context, id indexname.Identifier) ([]model.Column, error) {
	key := id.String()
	if cols, ok := s.schema.Get(key); ok {
		return cols, nil
	}
	info, err := s.engine.GetIndex(ctx, key)
	if err != nil {
		return nil, err
	}
	s.schema.Add(key, info.Columns)
	return info.Columns, nil
}

func (s *CatalogService) Invalidate(id indexname.Identifier) {
	s.schema.Remove(id.String())
}

// Suggest returns up to three index names of the session that look like
// name. Lookup failures yield no suggestions.
func (s *CatalogService) Suggest(ctx context.Context, token, name string) []string {
	entries, err := s.List(ctx, token)
	if err != nil {
		logutil.GetLogger(ctx).Debug("list indices for suggestions failed", zap.Error(err))
		return nil
	}
	type candidate struct {
		name     string
		distance int
	}
	var candidates []candidate
	for _, entry := range entries {
		distance := fuzzy.LevenshteinDistance(name, entry.DisplayName)
		if fuzzy.MatchFold(name, entry.DisplayName) || distance <= maxSuggestDistance {
			candidates = append(candidates, candidate{name: entry.DisplayName, distance: distance})
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].distance < candidates[j].distance
	})
	out := make([]string, 0, maxSuggestions)
	for _, c := range candidates {
		if len(out) == maxSuggestions {
			break
		}
		out = append(out, c.name)
	}
	return out
}
