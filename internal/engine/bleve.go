package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/blevesearch/bleve"
	"github.com/blevesearch/bleve/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/mapping"
	"github.com/blevesearch/bleve/search/query"
	"github.com/google/uuid"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/csvsearch/internal/model"
	appErr "github.com/xxxsen/csvsearch/internal/pkg/errors"
	"github.com/xxxsen/csvsearch/internal/schema"
)

var bleveSchemaKey = []byte("csvsearch.schema")

type bleveConfig struct {
	Dir string `json:"dir"`
}

type bleveSchema struct {
	Columns []model.Column `json:"columns"`
	Meta    IndexMeta      `json:"meta"`
}

// bleveEngine keeps one bleve index per engine index, in memory when dir is
// empty and otherwise in a directory named after the index.
type bleveEngine struct {
	dir     string
	mu      sync.RWMutex
	indices map[string]bleve.Index
}

func init() {
	Register("bleve", createBleveEngine)
}

func createBleveEngine(args interface{}) (Engine, error) {
	cfg := &bleveConfig{}
	if err := decodeConfig(args, cfg); err != nil {
		return nil, err
	}
	return NewBleve(cfg.Dir)
}

func NewBleve(dir string) (Engine, error) {
	e := &bleveEngine{dir: dir, indices: make(map[string]bleve.Index)}
	if dir == "" {
		return e, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create bleve dir: %w", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read bleve dir: %w", err)
	}
	logger := logutil.GetLogger(context.Background())
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		idx, err := bleve.Open(filepath.Join(dir, entry.Name()))
		if err != nil {
			logger.Warn("skip unreadable bleve index", zap.String("index", entry.Name()), zap.Error(err))
			continue
		}
		e.indices[entry.Name()] = idx
	}
	return e, nil
}

func (e *bleveEngine) Type() string {
	return "bleve"
}

func (e *bleveEngine) CreateIndex(ctx context.Context, name string, columns []model.Column, meta IndexMeta) (bool, error) {
	if err := checkColumns(columns); err != nil {
		return false, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.indices[name]; ok {
		return false, nil
	}
	im := bleveMapping(columns)
	var (
		idx bleve.Index
		err error
	)
	if e.dir == "" {
		idx, err = bleve.NewMemOnly(im)
	} else {
		idx, err = bleve.New(filepath.Join(e.dir, name), im)
	}
	if err != nil {
		return false, fmt.Errorf("create bleve index: %w", err)
	}
	raw, err := json.Marshal(bleveSchema{Columns: columns, Meta: meta})
	if err != nil {
		_ = idx.Close()
		return false, err
	}
	if err := idx.SetInternal(bleveSchemaKey, raw); err != nil {
		_ = idx.Close()
		return false, fmt.Errorf("store bleve schema: %w", err)
	}
	e.indices[name] = idx
	return true, nil
}

func bleveMapping(columns []model.Column) *mapping.IndexMappingImpl {
	doc := bleve.NewDocumentStaticMapping()
	for _, fm := range schema.FieldMappings(columns) {
		switch fm.Type {
		case "double":
			doc.AddFieldMappingsAt(fm.Field, bleve.NewNumericFieldMapping())
		case "date":
			doc.AddFieldMappingsAt(fm.Field, bleve.NewDateTimeFieldMapping())
		case "boolean":
			doc.AddFieldMappingsAt(fm.Field, bleve.NewBooleanFieldMapping())
		default:
			text := bleve.NewTextFieldMapping()
			text.Analyzer = standard.Name
			exact := bleve.NewTextFieldMapping()
			exact.Name = schema.AggregationField(fm.Field)
			exact.Analyzer = keyword.Name
			exact.Store = false
			exact.IncludeInAll = false
			exact.IncludeTermVectors = false
			doc.AddFieldMappingsAt(fm.Field, text, exact)
		}
	}
	im := bleve.NewIndexMapping()
	im.DefaultAnalyzer = standard.Name
	im.DefaultMapping = doc
	return im
}

func (e *bleveEngine) DeleteIndex(ctx context.Context, name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	idx, ok := e.indices[name]
	if !ok {
		return nil
	}
	delete(e.indices, name)
	if err := idx.Close(); err != nil {
		return err
	}
	if e.dir != "" {
		return os.RemoveAll(filepath.Join(e.dir, name))
	}
	return nil
}

func (e *bleveEngine) lookup(name string) (bleve.Index, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	idx, ok := e.indices[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", appErr.ErrIndexNotFound, name)
	}
	return idx, nil
}

func (e *bleveEngine) GetIndex(ctx context.Context, name string) (*IndexInfo, error) {
	idx, err := e.lookup(name)
	if err != nil {
		return nil, err
	}
	return describeBleve(name, idx)
}

func describeBleve(name string, idx bleve.Index) (*IndexInfo, error) {
	raw, err := idx.GetInternal(bleveSchemaKey)
	if err != nil {
		return nil, fmt.Errorf("read bleve schema: %w", err)
	}
	var stored bleveSchema
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &stored); err != nil {
			return nil, fmt.Errorf("decode bleve schema: %w", err)
		}
	}
	count, err := idx.DocCount()
	if err != nil {
		return nil, err
	}
	return &IndexInfo{Name: name, Columns: stored.Columns, DocsCount: int64(count)}, nil
}

func (e *bleveEngine) BulkIndex(ctx context.Context, name string, docs []Document, opts BulkOptions) ([]BulkItem, error) {
	idx, err := e.lookup(name)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	batch := idx.NewBatch()
	var rejected []BulkItem
	for _, doc := range docs {
		if err := batch.Index(uuid.NewString(), doc.Fields); err != nil {
			rejected = append(rejected, BulkItem{Position: doc.Position, Reason: err.Error()})
		}
	}
	if err := idx.Batch(batch); err != nil {
		return nil, fmt.Errorf("bleve batch: %w", err)
	}
	return rejected, nil
}

// Refresh only checks that the index exists; bleve batches are searchable
// once applied.
func (e *bleveEngine) Refresh(ctx context.Context, name string) error {
	_, err := e.lookup(name)
	return err
}

func (e *bleveEngine) Search(ctx context.Context, name string, q *Query) (*Result, error) {
	idx, err := e.lookup(name)
	if err != nil {
		return nil, err
	}
	req := bleve.NewSearchRequestOptions(bleveQuery(q), q.Size, 0, false)
	req.Fields = []string{"*"}
	if q.Highlight {
		req.Highlight = bleve.NewHighlight()
	}
	for _, agg := range q.Aggregations {
		req.AddFacet(agg.Name, bleve.NewFacetRequest(agg.Field, agg.Size))
	}
	res, err := idx.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("bleve search: %w", err)
	}
	out := &Result{
		Total:        int64(res.Total),
		Took:         res.Took,
		Hits:         make([]Hit, 0, len(res.Hits)),
		Aggregations: make(map[string][]model.Bucket, len(q.Aggregations)),
	}
	for _, hit := range res.Hits {
		source := make(map[string]any, len(hit.Fields))
		for k, v := range hit.Fields {
			if strings.HasSuffix(k, schema.KeywordSuffix) {
				continue
			}
			source[k] = v
		}
		highlights := make(map[string][]string, len(hit.Fragments))
		for k, v := range hit.Fragments {
			highlights[k] = v
		}
		out.Hits = append(out.Hits, Hit{Score: hit.Score, Source: source, Highlights: highlights})
	}
	for _, agg := range q.Aggregations {
		buckets := []model.Bucket{}
		if facet, ok := res.Facets[agg.Name]; ok && facet != nil {
			for _, term := range facet.Terms {
				buckets = append(buckets, model.Bucket{Value: term.Term, Count: int64(term.Count)})
			}
		}
		out.Aggregations[agg.Name] = buckets
	}
	return out, nil
}

func bleveQuery(q *Query) query.Query {
	fuzziness := bleveFuzziness(q.Text, q.Fuzziness)
	if len(q.Fields) == 0 {
		match := bleve.NewMatchQuery(q.Text)
		match.SetFuzziness(fuzziness)
		return match
	}
	disjunction := bleve.NewDisjunctionQuery()
	for _, field := range q.Fields {
		match := bleve.NewMatchQuery(q.Text)
		match.SetField(field)
		match.SetFuzziness(fuzziness)
		disjunction.AddQuery(match)
	}
	return disjunction
}

// bleveFuzziness applies the AUTO edit distance rule to the shortest term,
// so short terms never become wildcards.
func bleveFuzziness(text, mode string) int {
	if mode != "AUTO" {
		return 0
	}
	shortest := -1
	for _, term := range strings.Fields(text) {
		n := len([]rune(term))
		if shortest < 0 || n < shortest {
			shortest = n
		}
	}
	switch {
	case shortest <= 2:
		return 0
	case shortest <= 5:
		return 1
	default:
		return 2
	}
}

func (e *bleveEngine) ListIndices(ctx context.Context, prefix string) ([]IndexInfo, error) {
	e.mu.RLock()
	names := make([]string, 0, len(e.indices))
	for name := range e.indices {
		if strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
	}
	e.mu.RUnlock()
	sort.Strings(names)

	out := make([]IndexInfo, 0, len(names))
	for _, name := range names {
		idx, err := e.lookup(name)
		if err != nil {
			// deleted between the scan and now
			continue
		}
		info, err := describeBleve(name, idx)
		if err != nil {
			return nil, err
		}
		out = append(out, *info)
	}
	return out, nil
}

func (e *bleveEngine) Health(ctx context.Context) (*Health, error) {
	return &Health{Status: "green", Cluster: "bleve"}, nil
}

func (e *bleveEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	var firstErr error
	for name, idx := range e.indices {
		if err := idx.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(e.indices, name)
	}
	return firstErr
}
