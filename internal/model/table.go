package model

// Table is a parsed CSV: one header and zero or more data rows.
// Rows may be ragged; schema inference and ingestion cope with that.
type Table struct {
	Header []string   `json:"header"`
	Rows   [][]string `json:"rows"`
}
