package model

type SearchRequest struct {
	IndexName         string   `json:"index_name"`
	QueryText         string   `json:"query"`
	ResultSize        int      `json:"size"`
	AggregationFields []string `json:"agg_fields"`
}

type SearchHit struct {
	Score      float64             `json:"score"`
	Source     map[string]any      `json:"source"`
	Highlights map[string][]string `json:"highlights"`
}

type Bucket struct {
	Value string `json:"value"`
	Count int64  `json:"count"`
}

type SearchResponse struct {
	Query             string              `json:"query"`
	IndexName         string              `json:"index_name"`
	Results           []SearchHit         `json:"results"`
	TotalResults      int64               `json:"total_results"`
	ReturnedResults   int                 `json:"returned_results"`
	SearchTimeSeconds float64             `json:"search_time_seconds"`
	EngineTookMs      int64               `json:"engine_took_ms"`
	Aggregations      map[string][]Bucket `json:"aggregations"`
}

type CatalogEntry struct {
	Name        string   `json:"name"`
	DisplayName string   `json:"display_name"`
	Columns     []Column `json:"columns"`
	DocsCount   int64    `json:"docs_count"`
}
