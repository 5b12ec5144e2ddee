package csvfile

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/xxxsen/csvsearch/internal/model"
	appErr "github.com/xxxsen/csvsearch/internal/pkg/errors"
)

// Parse reads a whole CSV document into a header and raw rows. Rows keep
// their original width; callers decide what to do with ragged rows.
func Parse(r io.Reader) (*model.Table, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: read csv: %v", appErr.ErrInvalidFile, err)
	}
	data, err := decode(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: decode csv: %v", appErr.ErrInvalidFile, err)
	}

	cr := csv.NewReader(bytes.NewReader(data))
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: csv file is empty", appErr.ErrInvalidFile)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read header: %v", appErr.ErrInvalidFile, err)
	}
	table := &model.Table{Header: NormalizeHeader(header), Rows: [][]string{}}
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", appErr.ErrInvalidFile, err)
		}
		table.Rows = append(table.Rows, rec)
	}
	return table, nil
}

// decode returns UTF-8 content. A UTF-8 or UTF-16 byte order mark decides
// the charset; otherwise invalid UTF-8 is read as Windows-1252.
func decode(raw []byte) ([]byte, error) {
	if hasUTF16BOM(raw) || utf8.Valid(raw) {
		out, _, err := transform.Bytes(unicode.BOMOverride(unicode.UTF8.NewDecoder()), raw)
		return out, err
	}
	out, _, err := transform.Bytes(charmap.Windows1252.NewDecoder(), raw)
	return out, err
}

func hasUTF16BOM(raw []byte) bool {
	return bytes.HasPrefix(raw, []byte{0xFE, 0xFF}) || bytes.HasPrefix(raw, []byte{0xFF, 0xFE})
}

// NormalizeHeader trims names, replaces dots with underscores, names empty
// columns column_N (1-based) and suffixes repeated names with _2, _3 and so
// on. Engines treat a dot in a field name as a path separator.
func NormalizeHeader(header []string) []string {
	out := make([]string, len(header))
	used := make(map[string]bool, len(header))
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\uFEFF"))
		h = strings.ReplaceAll(h, ".", "_")
		if h == "" {
			h = "column_" + strconv.Itoa(i+1)
		}
		name := h
		for n := 2; used[name]; n++ {
			name = h + "_" + strconv.Itoa(n)
		}
		used[name] = true
		out[i] = name
	}
	return out
}
