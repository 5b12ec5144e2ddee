package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/xxxsen/csvsearch/internal/config"
	"github.com/xxxsen/csvsearch/internal/model"
	appErr "github.com/xxxsen/csvsearch/internal/pkg/errors"
)

// Engine is the search engine boundary. Implementations translate these
// operations to their own wire format and map failures onto the shared
// sentinel errors: ErrIndexNotFound for missing indices and
// ErrEngineUnavailable for connectivity problems.
type Engine interface {
	Type() string
	// CreateIndex creates name with the given columns unless it already
	// exists. created reports whether this call made the index.
	CreateIndex(ctx context.Context, name string, columns []model.Column, meta IndexMeta) (created bool, err error)
	DeleteIndex(ctx context.Context, name string) error
	GetIndex(ctx context.Context, name string) (*IndexInfo, error)
	BulkIndex(ctx context.Context, name string, docs []Document, opts BulkOptions) ([]BulkItem, error)
	// Refresh makes everything indexed so far visible to search.
	Refresh(ctx context.Context, name string) error
	Search(ctx context.Context, name string, q *Query) (*Result, error)
	ListIndices(ctx context.Context, prefix string) ([]IndexInfo, error)
	Health(ctx context.Context) (*Health, error)
	Close() error
}

type IndexMeta struct {
	Session string `json:"session"`
	Name    string `json:"name"`
}

type IndexInfo struct {
	Name      string
	Columns   []model.Column
	DocsCount int64
}

// Document is one row ready for indexing. Position is the row's index in
// the source table so engine side rejections can be reported against it.
type Document struct {
	Position int
	Fields   map[string]any
}

type BulkOptions struct {
	Refresh bool
}

// BulkItem reports an engine side rejection for one document.
type BulkItem struct {
	Position int
	Reason   string
}

type TermsAggregation struct {
	Name  string
	Field string
	Size  int
}

type Query struct {
	Text         string
	Fields       []string
	Fuzziness    string
	Lenient      bool
	Size         int
	Aggregations []TermsAggregation
	Highlight    bool
}

type Hit struct {
	Score      float64
	Source     map[string]any
	Highlights map[string][]string
}

type Result struct {
	Total        int64
	Took         time.Duration
	Hits         []Hit
	Aggregations map[string][]model.Bucket
}

type Health struct {
	Status  string `json:"status"`
	Cluster string `json:"cluster"`
}

// checkColumns rejects field names the engines would read as object paths.
func checkColumns(columns []model.Column) error {
	for _, c := range columns {
		if c.Name == "" || strings.Contains(c.Name, ".") {
			return fmt.Errorf("%w: unsupported column name %q", appErr.ErrInvalid, c.Name)
		}
	}
	return nil
}

type Factory func(args interface{}) (Engine, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{}
)

func Register(name string, factory Factory) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" || factory == nil {
		return
	}
	registryMu.Lock()
	registry[key] = factory
	registryMu.Unlock()
}

func New(cfg config.EngineConfig) (Engine, error) {
	key := strings.ToLower(strings.TrimSpace(cfg.Type))
	if key == "" {
		return nil, fmt.Errorf("engine.type is required")
	}
	registryMu.RLock()
	factory := registry[key]
	registryMu.RUnlock()
	if factory == nil {
		return nil, fmt.Errorf("unsupported engine type: %s", cfg.Type)
	}
	return factory(cfg.Data)
}

func decodeConfig(args interface{}, dst interface{}) error {
	if args == nil {
		return nil
	}
	data, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("encode engine config: %w", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode engine config: %w", err)
	}
	return nil
}
