package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/xxxsen/csvsearch/internal/model"
	appErr "github.com/xxxsen/csvsearch/internal/pkg/errors"
	"github.com/xxxsen/csvsearch/internal/schema"
)

const esMetaKey = "csvsearch"

type esConfig struct {
	Addresses []string `json:"addresses"`
	Host      string   `json:"host"`
	Port      esPort   `json:"port"`
	Username  string   `json:"username"`
	Password  string   `json:"password"`
	Timeout   string   `json:"timeout"`
}

// esPort accepts a number or a numeric string; ports taken from the
// environment arrive as strings.
type esPort int

func (p *esPort) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(strings.TrimSpace(string(data)), `"`)
	if raw == "" || raw == "null" {
		*p = 0
		return nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 || v > 65535 {
		return fmt.Errorf("invalid elasticsearch port %q", raw)
	}
	*p = esPort(v)
	return nil
}

type esEngine struct {
	client *elasticsearch.Client
}

func init() {
	Register("elasticsearch", createESEngine)
}

func createESEngine(args interface{}) (Engine, error) {
	cfg := &esConfig{}
	if err := decodeConfig(args, cfg); err != nil {
		return nil, err
	}
	addresses := cfg.Addresses
	if len(addresses) == 0 {
		host := cfg.Host
		if host == "" {
			host = "localhost"
		}
		port := cfg.Port
		if port == 0 {
			port = 9200
		}
		addresses = []string{fmt.Sprintf("http://%s:%d", host, port)}
	}
	timeout := 30 * time.Second
	if cfg.Timeout != "" {
		d, err := time.ParseDuration(cfg.Timeout)
		if err != nil {
			return nil, fmt.Errorf("parse elasticsearch timeout: %w", err)
		}
		timeout = d
	}
	return NewElasticsearch(elasticsearch.Config{
		Addresses: addresses,
		Username:  cfg.Username,
		Password:  cfg.Password,
		Transport: newESTransport(timeout),
	})
}

func newESTransport(timeout time.Duration) *http.Transport {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.ResponseHeaderTimeout = timeout
	return transport
}

func NewElasticsearch(cfg elasticsearch.Config) (Engine, error) {
	client, err := elasticsearch.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("init elasticsearch client: %w", err)
	}
	return &esEngine{client: client}, nil
}

func (e *esEngine) Type() string {
	return "elasticsearch"
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %v", appErr.ErrEngineUnavailable, err)
}

type esErrorBody struct {
	Error struct {
		Type   string `json:"type"`
		Reason string `json:"reason"`
	} `json:"error"`
}

// statusError maps a failed response onto the shared error taxonomy.
func statusError(res *esapi.Response, name string) error {
	body, _ := io.ReadAll(io.LimitReader(res.Body, 64*1024))
	var parsed esErrorBody
	_ = json.Unmarshal(body, &parsed)
	reason := parsed.Error.Reason
	if reason == "" {
		reason = strings.TrimSpace(string(body))
	}
	switch {
	case res.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s", appErr.ErrIndexNotFound, name)
	case res.StatusCode == http.StatusBadGateway,
		res.StatusCode == http.StatusServiceUnavailable,
		res.StatusCode == http.StatusGatewayTimeout:
		return fmt.Errorf("%w: status %d %s", appErr.ErrEngineUnavailable, res.StatusCode, reason)
	default:
		return &esStatusError{Status: res.StatusCode, Type: parsed.Error.Type, Reason: reason}
	}
}

type esStatusError struct {
	Status int
	Type   string
	Reason string
}

func (e *esStatusError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("elasticsearch: status %d %s: %s", e.Status, e.Type, e.Reason)
	}
	return fmt.Sprintf("elasticsearch: status %d: %s", e.Status, e.Reason)
}

func esProperties(columns []model.Column) map[string]any {
	props := make(map[string]any, len(columns))
	for _, fm := range schema.FieldMappings(columns) {
		field := map[string]any{"type": fm.Type}
		if fm.Analyzer != "" {
			field["analyzer"] = fm.Analyzer
		}
		if fm.Keyword {
			field["fields"] = map[string]any{
				strings.TrimPrefix(schema.KeywordSuffix, "."): map[string]any{
					"type":         "keyword",
					"ignore_above": schema.KeywordIgnoreAbove,
				},
			}
		}
		if fm.Type == "date" {
			field["format"] = "strict_date_optional_time||epoch_millis"
		}
		props[fm.Field] = field
	}
	return props
}

type esMeta struct {
	Session string         `json:"session"`
	Name    string         `json:"name"`
	Columns []model.Column `json:"columns"`
}

func (e *esEngine) CreateIndex(ctx context.Context, name string, columns []model.Column, meta IndexMeta) (bool, error) {
	if err := checkColumns(columns); err != nil {
		return false, err
	}
	exists, err := e.client.Indices.Exists([]string{name}, e.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return false, unavailable(err)
	}
	exists.Body.Close()
	if exists.StatusCode == http.StatusOK {
		return false, nil
	}
	if exists.StatusCode != http.StatusNotFound {
		return false, statusError(exists, name)
	}

	body, err := json.Marshal(map[string]any{
		"mappings": map[string]any{
			"_meta": map[string]any{
				esMetaKey: esMeta{Session: meta.Session, Name: meta.Name, Columns: columns},
			},
			"properties": esProperties(columns),
		},
	})
	if err != nil {
		return false, err
	}
	res, err := e.client.Indices.Create(name,
		e.client.Indices.Create.WithContext(ctx),
		e.client.Indices.Create.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return false, unavailable(err)
	}
	defer res.Body.Close()
	if res.IsError() {
		err := statusError(res, name)
		var se *esStatusError
		// a concurrent upload created it first
		if asStatus(err, &se) && se.Type == "resource_already_exists_exception" {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func asStatus(err error, target **esStatusError) bool {
	se, ok := err.(*esStatusError)
	if ok {
		*target = se
	}
	return ok
}

func (e *esEngine) DeleteIndex(ctx context.Context, name string) error {
	res, err := e.client.Indices.Delete([]string{name}, e.client.Indices.Delete.WithContext(ctx))
	if err != nil {
		return unavailable(err)
	}
	defer res.Body.Close()
	if res.StatusCode == http.StatusNotFound {
		return nil
	}
	if res.IsError() {
		return statusError(res, name)
	}
	return nil
}

type esMappingEntry struct {
	Mappings struct {
		Meta       map[string]json.RawMessage `json:"_meta"`
		Properties map[string]struct {
			Type string `json:"type"`
		} `json:"properties"`
	} `json:"mappings"`
}

func columnsFromMapping(entry esMappingEntry) []model.Column {
	if raw, ok := entry.Mappings.Meta[esMetaKey]; ok {
		var meta esMeta
		if err := json.Unmarshal(raw, &meta); err == nil && len(meta.Columns) > 0 {
			return meta.Columns
		}
	}
	// not created by us: fall back to the properties, which carry no order
	names := make([]string, 0, len(entry.Mappings.Properties))
	for field := range entry.Mappings.Properties {
		names = append(names, field)
	}
	sort.Strings(names)
	cols := make([]model.Column, 0, len(names))
	for _, field := range names {
		cols = append(cols, model.Column{
			Name: field,
			Type: schema.ColumnTypeFromEngine(entry.Mappings.Properties[field].Type),
		})
	}
	return cols
}

func (e *esEngine) mappings(ctx context.Context, pattern string) (map[string]esMappingEntry, error) {
	res, err := e.client.Indices.GetMapping(
		e.client.Indices.GetMapping.WithContext(ctx),
		e.client.Indices.GetMapping.WithIndex(pattern),
	)
	if err != nil {
		return nil, unavailable(err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, statusError(res, pattern)
	}
	out := make(map[string]esMappingEntry)
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode mapping: %w", err)
	}
	return out, nil
}

type esCatIndex struct {
	Index     string `json:"index"`
	DocsCount string `json:"docs.count"`
}

func (e *esEngine) catIndices(ctx context.Context, pattern string) ([]esCatIndex, error) {
	res, err := e.client.Cat.Indices(
		e.client.Cat.Indices.WithContext(ctx),
		e.client.Cat.Indices.WithIndex(pattern),
		e.client.Cat.Indices.WithFormat("json"),
		e.client.Cat.Indices.WithH("index", "docs.count"),
	)
	if err != nil {
		return nil, unavailable(err)
	}
	defer res.Body.Close()
	if res.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if res.IsError() {
		return nil, statusError(res, pattern)
	}
	var out []esCatIndex
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode cat indices: %w", err)
	}
	return out, nil
}

func (e *esEngine) GetIndex(ctx context.Context, name string) (*IndexInfo, error) {
	entries, err := e.mappings(ctx, name)
	if err != nil {
		return nil, err
	}
	entry, ok := entries[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", appErr.ErrIndexNotFound, name)
	}
	return &IndexInfo{Name: name, Columns: columnsFromMapping(entry)}, nil
}

func (e *esEngine) ListIndices(ctx context.Context, prefix string) ([]IndexInfo, error) {
	pattern := prefix + "*"
	cat, err := e.catIndices(ctx, pattern)
	if err != nil {
		return nil, err
	}
	if len(cat) == 0 {
		return []IndexInfo{}, nil
	}
	entries, err := e.mappings(ctx, pattern)
	if err != nil {
		return nil, err
	}
	sort.Slice(cat, func(i, j int) bool { return cat[i].Index < cat[j].Index })
	out := make([]IndexInfo, 0, len(cat))
	for _, item := range cat {
		// the wildcard is only a hint; the prefix decides visibility
		if !strings.HasPrefix(item.Index, prefix) || strings.HasPrefix(item.Index, ".") {
			continue
		}
		count, _ := strconv.ParseInt(item.DocsCount, 10, 64)
		out = append(out, IndexInfo{
			Name:      item.Index,
			Columns:   columnsFromMapping(entries[item.Index]),
			DocsCount: count,
		})
	}
	return out, nil
}

type esBulkResponse struct {
	Errors bool `json:"errors"`
	Items  []map[string]struct {
		Status int `json:"status"`
		Error  *struct {
			Type   string `json:"type"`
			Reason string `json:"reason"`
		} `json:"error"`
	} `json:"items"`
}

func (e *esEngine) BulkIndex(ctx context.Context, name string, docs []Document, opts BulkOptions) ([]BulkItem, error) {
	var buf bytes.Buffer
	action := []byte(`{"index":{}}` + "\n")
	for _, doc := range docs {
		payload, err := json.Marshal(doc.Fields)
		if err != nil {
			return nil, fmt.Errorf("encode document %d: %w", doc.Position, err)
		}
		buf.Write(action)
		buf.Write(payload)
		buf.WriteByte('\n')
	}
	refresh := "false"
	if opts.Refresh {
		refresh = "wait_for"
	}
	res, err := e.client.Bulk(&buf,
		e.client.Bulk.WithContext(ctx),
		e.client.Bulk.WithIndex(name),
		e.client.Bulk.WithRefresh(refresh),
	)
	if err != nil {
		return nil, unavailable(err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, statusError(res, name)
	}
	var parsed esBulkResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode bulk response: %w", err)
	}
	if !parsed.Errors {
		return nil, nil
	}
	var rejected []BulkItem
	for i, item := range parsed.Items {
		if i >= len(docs) {
			break
		}
		for _, result := range item {
			if result.Error == nil {
				continue
			}
			rejected = append(rejected, BulkItem{
				Position: docs[i].Position,
				Reason:   result.Error.Type + ": " + result.Error.Reason,
			})
		}
	}
	return rejected, nil
}

func (e *esEngine) Refresh(ctx context.Context, name string) error {
	res, err := e.client.Indices.Refresh(
		e.client.Indices.Refresh.WithContext(ctx),
		e.client.Indices.Refresh.WithIndex(name),
	)
	if err != nil {
		return unavailable(err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return statusError(res, name)
	}
	return nil
}

func esQueryBody(q *Query) map[string]any {
	match := map[string]any{
		"query": q.Text,
		"type":  "best_fields",
	}
	if q.Fuzziness != "" {
		match["fuzziness"] = q.Fuzziness
	}
	if len(q.Fields) > 0 {
		match["fields"] = q.Fields
	} else {
		match["fields"] = []string{"*"}
	}
	if q.Lenient {
		match["lenient"] = true
	}
	body := map[string]any{
		"size":             q.Size,
		"track_total_hits": true,
		"query":            map[string]any{"multi_match": match},
	}
	if len(q.Aggregations) > 0 {
		aggs := make(map[string]any, len(q.Aggregations))
		for _, agg := range q.Aggregations {
			aggs[agg.Name] = map[string]any{
				"terms": map[string]any{"field": agg.Field, "size": agg.Size},
			}
		}
		body["aggs"] = aggs
	}
	if q.Highlight {
		body["highlight"] = map[string]any{"fields": map[string]any{"*": map[string]any{}}}
	}
	return body
}

type esSearchResponse struct {
	Took int64 `json:"took"`
	Hits struct {
		Total struct {
			Value int64 `json:"value"`
		} `json:"total"`
		Hits []struct {
			Score     *float64            `json:"_score"`
			Source    map[string]any      `json:"_source"`
			Highlight map[string][]string `json:"highlight"`
		} `json:"hits"`
	} `json:"hits"`
	Aggregations map[string]struct {
		Buckets []struct {
			Key         any    `json:"key"`
			KeyAsString string `json:"key_as_string"`
			DocCount    int64  `json:"doc_count"`
		} `json:"buckets"`
	} `json:"aggregations"`
}

func (e *esEngine) Search(ctx context.Context, name string, q *Query) (*Result, error) {
	body, err := json.Marshal(esQueryBody(q))
	if err != nil {
		return nil, err
	}
	res, err := e.client.Search(
		e.client.Search.WithContext(ctx),
		e.client.Search.WithIndex(name),
		e.client.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return nil, unavailable(err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, statusError(res, name)
	}
	var parsed esSearchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	out := &Result{
		Total:        parsed.Hits.Total.Value,
		Took:         time.Duration(parsed.Took) * time.Millisecond,
		Hits:         make([]Hit, 0, len(parsed.Hits.Hits)),
		Aggregations: make(map[string][]model.Bucket, len(q.Aggregations)),
	}
	for _, hit := range parsed.Hits.Hits {
		score := 0.0
		if hit.Score != nil {
			score = *hit.Score
		}
		highlights := hit.Highlight
		if highlights == nil {
			highlights = map[string][]string{}
		}
		out.Hits = append(out.Hits, Hit{Score: score, Source: hit.Source, Highlights: highlights})
	}
	for _, agg := range q.Aggregations {
		buckets := []model.Bucket{}
		for _, b := range parsed.Aggregations[agg.Name].Buckets {
			value := b.KeyAsString
			if value == "" {
				value = fmt.Sprint(b.Key)
			}
			buckets = append(buckets, model.Bucket{Value: value, Count: b.DocCount})
		}
		out.Aggregations[agg.Name] = buckets
	}
	return out, nil
}

func (e *esEngine) Health(ctx context.Context) (*Health, error) {
	res, err := e.client.Cluster.Health(e.client.Cluster.Health.WithContext(ctx))
	if err != nil {
		return nil, unavailable(err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, statusError(res, "")
	}
	var parsed struct {
		Status      string `json:"status"`
		ClusterName string `json:"cluster_name"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode cluster health: %w", err)
	}
	return &Health{Status: parsed.Status, Cluster: parsed.ClusterName}, nil
}

func (e *esEngine) Close() error {
	return nil
}
