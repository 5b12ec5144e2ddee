package schema

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/xxxsen/csvsearch/internal/model"
)

const DefaultSampleSize = 100

var dateLayouts = []string{
	"2006-01-02",
	"02.01.2006",
	"01/02/2006",
	"02/01/2006",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	time.RFC3339Nano,
}

// OutlierPercent is the share of sampled values, rounded down, that may fail
// to parse without demoting a typed column to text. Below twenty samples no
// outlier is tolerated. Outliers are still rejected row by row on ingest.
const OutlierPercent = 5

// Infer derives one column per header entry from at most sampleSize
// non-empty values of each column. Columns with nothing to sample are text.
func Infer(header []string, rows [][]string, sampleSize int) []model.Column {
	if sampleSize <= 0 {
		sampleSize = DefaultSampleSize
	}
	out := make([]model.Column, len(header))
	for col, name := range header {
		out[col] = model.Column{Name: name, Type: inferColumn(rows, col, sampleSize)}
	}
	return out
}

func maxOutliers(n int) int {
	return n * OutlierPercent / 100
}

func inferColumn(rows [][]string, col int, sampleSize int) model.ColumnType {
	var seen, badNumeric, badDate, badBool int
	limit := maxOutliers(sampleSize)
	for _, row := range rows {
		if seen >= sampleSize {
			break
		}
		if col >= len(row) {
			continue
		}
		v := strings.TrimSpace(row[col])
		if v == "" {
			continue
		}
		seen++
		if _, ok := ParseNumber(v); !ok {
			badNumeric++
		}
		if _, ok := ParseDate(v); !ok {
			badDate++
		}
		if _, ok := ParseBool(v); !ok {
			badBool++
		}
		if badNumeric > limit && badDate > limit && badBool > limit {
			return model.ColumnText
		}
	}
	allowed := maxOutliers(seen)
	switch {
	case seen == 0:
		return model.ColumnText
	case badNumeric <= allowed:
		return model.ColumnNumeric
	case badDate <= allowed:
		return model.ColumnDate
	case badBool <= allowed:
		return model.ColumnBoolean
	default:
		return model.ColumnText
	}
}

func ParseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	// NaN and Inf parse fine but no engine accepts them as doubles.
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func ParseBool(s string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "t", "yes", "y":
		return true, true
	case "false", "f", "no", "n":
		return false, true
	default:
		return false, false
	}
}
