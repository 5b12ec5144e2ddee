package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/csvsearch/internal/config"
	"github.com/xxxsen/csvsearch/internal/csvfile"
	"github.com/xxxsen/csvsearch/internal/engine"
	"github.com/xxxsen/csvsearch/internal/indexname"
	"github.com/xxxsen/csvsearch/internal/metrics"
	"github.com/xxxsen/csvsearch/internal/model"
	appErr "github.com/xxxsen/csvsearch/internal/pkg/errors"
	"github.com/xxxsen/csvsearch/internal/schema"
)

type IngestOptions struct {
	// ReplaceExisting drops an existing index before ingesting instead of
	// appending to it.
	ReplaceExisting bool
}

type IngestService struct {
	engine           engine.Engine
	catalog          *CatalogService
	metrics          *metrics.Metrics
	batchSize        int
	sampleSize       int
	maxDocumentBytes int
}

func NewIngestService(eng engine.Engine, catalog *CatalogService, m *metrics.Metrics, cfg config.IngestConfig) *IngestService {
	s := &IngestService{
		engine:           eng,
		catalog:          catalog,
		metrics:          m,
		batchSize:        cfg.BatchSize,
		sampleSize:       cfg.SampleSize,
		maxDocumentBytes: cfg.MaxDocumentBytes,
	}
	if s.batchSize <= 0 {
		s.batchSize = 500
	}
	if s.sampleSize <= 0 {
		s.sampleSize = schema.DefaultSampleSize
	}
	return s
}

// Ingest indexes table into id and reports per-row outcomes. When the engine
// becomes unreachable the partial report is returned with the error.
func (s *IngestService) Ingest(ctx context.Context, id indexname.Identifier, table *model.Table, opts IngestOptions) (*model.IngestReport, error) {
	res, err := s.Upload(ctx, id, table, opts)
	if res == nil {
		return nil, err
	}
	return res.Stats, err
}

// Upload is Ingest plus the resolved index name, the column schema in use
// and whether the index was created by this call.
func (s *IngestService) Upload(ctx context.Context, id indexname.Identifier, table *model.Table, opts IngestOptions) (*model.UploadResult, error) {
	if table == nil {
		return nil, fmt.Errorf("%w: no table", appErr.ErrInvalidFile)
	}
	table = &model.Table{Header: csvfile.NormalizeHeader(table.Header), Rows: table.Rows}
	name := id.String()
	logger := logutil.GetLogger(ctx).With(zap.String("index", name))
	start := time.Now()

	if opts.ReplaceExisting {
		if err := s.engine.DeleteIndex(ctx, name); err != nil {
			return nil, err
		}
		logger.Info("existing index dropped before ingest")
	}
	if s.catalog != nil {
		defer s.catalog.Invalidate(id)
	}

	inferred := schema.Infer(table.Header, table.Rows, s.sampleSize)
	created, err := s.engine.CreateIndex(ctx, name, inferred, engine.IndexMeta{Session: id.Session, Name: id.Name})
	if err != nil {
		return nil, err
	}
	columns := inferred
	if !created {
		info, err := s.engine.GetIndex(ctx, name)
		if err != nil {
			return nil, err
		}
		if len(info.Columns) > 0 {
			columns = info.Columns
		}
	}
	logger.Info("ingest started",
		zap.Bool("created", created),
		zap.Int("rows", len(table.Rows)),
		zap.Int("columns", len(columns)),
	)

	fields := alignColumns(table.Header, columns)
	report := model.IngestReport{Errors: []model.RowError{}}
	var ingestErr error
	refreshed := true
	for lo := 0; lo < len(table.Rows); lo += s.batchSize {
		if err := ctx.Err(); err != nil {
			ingestErr = err
			break
		}
		hi := min(lo+s.batchSize, len(table.Rows))
		last := hi == len(table.Rows)
		out, err := s.indexBatch(ctx, name, fields, table.Rows[lo:hi], lo, last)
		report = report.Merge(out.success, out.errs)
		if out.success > 0 {
			refreshed = false
		}
		if last && out.sent {
			refreshed = true
		}
		if err != nil {
			ingestErr = err
			break
		}
	}
	if ingestErr == nil && !refreshed {
		if err := s.engine.Refresh(ctx, name); err != nil {
			ingestErr = err
		}
	}

	elapsed := time.Since(start)
	report = finish(report, elapsed)
	s.metrics.ObserveIngest(report.SuccessCount, report.FailureCount, elapsed)
	fieldsLog := []zap.Field{
		zap.Int("success", report.SuccessCount),
		zap.Int("failure", report.FailureCount),
		zap.Duration("duration", elapsed),
	}
	if ingestErr != nil {
		logger.Error("ingest aborted", append(fieldsLog, zap.Error(ingestErr))...)
	} else {
		logger.Info("ingest finished", fieldsLog...)
	}
	return &model.UploadResult{
		IndexName:   name,
		DisplayName: id.Name,
		Created:     created,
		Columns:     columns,
		Stats:       &report,
	}, ingestErr
}

func finish(r model.IngestReport, elapsed time.Duration) model.IngestReport {
	out := r
	out.IndexingTimeSeconds = elapsed.Seconds()
	if out.IndexingTimeSeconds > 0 {
		out.DocumentsPerSecond = float64(out.SuccessCount) / out.IndexingTimeSeconds
	}
	return out
}

// alignColumns returns the column for each header position. Header names
// unknown to an existing index are indexed as text.
func alignColumns(header []string, columns []model.Column) []model.Column {
	byName := make(map[string]model.Column, len(columns))
	for _, col := range columns {
		byName[col.Name] = col
	}
	out := make([]model.Column, len(header))
	for i, h := range header {
		col, ok := byName[h]
		if !ok {
			col = model.Column{Name: h, Type: model.ColumnText}
		}
		out[i] = col
	}
	return out
}

type batchOutcome struct {
	success int
	errs    []model.RowError
	// sent is set when a bulk request reached the engine.
	sent bool
}

// indexBatch coerces and bulk-indexes rows whose first row sits at offset.
// The returned error is set only when ingestion must stop.
func (s *IngestService) indexBatch(ctx context.Context, name string, fields []model.Column, rows [][]string, offset int, last bool) (batchOutcome, error) {
	docs := make([]engine.Document, 0, len(rows))
	var errs []model.RowError
	for i, row := range rows {
		doc, rowErr := s.buildDocument(fields, row, offset+i)
		if rowErr != nil {
			errs = append(errs, *rowErr)
			continue
		}
		docs = append(docs, doc)
	}
	if len(docs) == 0 {
		return batchOutcome{errs: errs}, nil
	}
	rejected, err := s.engine.BulkIndex(ctx, name, docs, engine.BulkOptions{Refresh: last})
	if err != nil {
		if appErr.IsUnavailable(err) || ctx.Err() != nil {
			return batchOutcome{errs: errs}, err
		}
		logutil.GetLogger(ctx).Warn("bulk request failed, batch recorded as failed",
			zap.String("index", name),
			zap.Int("offset", offset),
			zap.Int("documents", len(docs)),
			zap.Error(err),
		)
		for _, doc := range docs {
			errs = append(errs, model.RowError{RowIndex: doc.Position, Reason: "bulk request failed: " + err.Error()})
		}
		sortRowErrors(errs)
		return batchOutcome{errs: errs}, nil
	}
	for _, item := range rejected {
		errs = append(errs, model.RowError{RowIndex: item.Position, Reason: item.Reason})
	}
	sortRowErrors(errs)
	return batchOutcome{success: len(docs) - len(rejected), errs: errs, sent: true}, nil
}

func sortRowErrors(errs []model.RowError) {
	sort.SliceStable(errs, func(i, j int) bool { return errs[i].RowIndex < errs[j].RowIndex })
}

func (s *IngestService) buildDocument(fields []model.Column, row []string, position int) (engine.Document, *model.RowError) {
	if len(row) > len(fields) {
		return engine.Document{}, &model.RowError{
			RowIndex: position,
			Reason:   "row has " + strconv.Itoa(len(row)) + " cells but the header has " + strconv.Itoa(len(fields)),
		}
	}
	doc := make(map[string]any, len(row))
	for i, raw := range row {
		value, err := schema.Coerce(fields[i], raw)
		if err != nil {
			return engine.Document{}, &model.RowError{RowIndex: position, Column: fields[i].Name, Reason: err.Error()}
		}
		if value != nil {
			doc[fields[i].Name] = value
		}
	}
	if s.maxDocumentBytes > 0 {
		encoded, err := json.Marshal(doc)
		if err != nil {
			return engine.Document{}, &model.RowError{RowIndex: position, Reason: err.Error()}
		}
		if len(encoded) > s.maxDocumentBytes {
			return engine.Document{}, &model.RowError{
				RowIndex: position,
				Reason:   "document is " + strconv.Itoa(len(encoded)) + " bytes, limit is " + strconv.Itoa(s.maxDocumentBytes),
			}
		}
	}
	return engine.Document{Position: position, Fields: doc}, nil
}
