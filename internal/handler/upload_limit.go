package handler

import (
	"errors"
	"net/http"
	"strconv"
)

// uploadLimitText renders the upload cap for error messages, in whole MB or
// KB for caps under a megabyte.
func uploadLimitText(limit int64) string {
	const (
		kb = 1 << 10
		mb = 1 << 20
	)
	switch {
	case limit <= 0:
		return "unlimited"
	case limit >= mb:
		return strconv.FormatInt(limit/mb, 10) + "MB"
	case limit >= kb:
		return strconv.FormatInt(limit/kb, 10) + "KB"
	default:
		return strconv.FormatInt(limit, 10) + "B"
	}
}

// isBodyTooLarge reports whether err came from reading past the body limit
// set by middleware.BodyLimit.
func isBodyTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}
