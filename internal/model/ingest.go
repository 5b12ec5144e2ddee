package model

import "strconv"

type RowError struct {
	RowIndex int    `json:"row_index"`
	Column   string `json:"column,omitempty"`
	Reason   string `json:"reason"`
}

func (e RowError) Error() string {
	if e.Column != "" {
		return "row " + strconv.Itoa(e.RowIndex) + " column " + e.Column + ": " + e.Reason
	}
	return "row " + strconv.Itoa(e.RowIndex) + ": " + e.Reason
}

type IngestReport struct {
	TotalDocuments      int        `json:"total_documents"`
	SuccessCount        int        `json:"success_count"`
	FailureCount        int        `json:"failure_count"`
	IndexingTimeSeconds float64    `json:"indexing_time_seconds"`
	DocumentsPerSecond  float64    `json:"documents_per_second"`
	Errors              []RowError `json:"errors"`
}

// Merge returns a new report with one batch outcome folded in. The receiver
// is left untouched.
func (r IngestReport) Merge(success int, errs []RowError) IngestReport {
	out := r
	out.TotalDocuments += success + len(errs)
	out.SuccessCount += success
	out.FailureCount += len(errs)
	out.Errors = make([]RowError, 0, len(r.Errors)+len(errs))
	out.Errors = append(out.Errors, r.Errors...)
	out.Errors = append(out.Errors, errs...)
	return out
}

type UploadResult struct {
	Filename    string        `json:"filename,omitempty"`
	IndexName   string        `json:"index_name"`
	DisplayName string        `json:"display_name"`
	Created     bool          `json:"created"`
	Columns     []Column      `json:"columns"`
	Stats       *IngestReport `json:"stats"`
}
