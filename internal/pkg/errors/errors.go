package errors

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrInvalid            = errors.New("invalid")
	ErrTooMany            = errors.New("too many requests")
	ErrInternal           = errors.New("internal")
	ErrInvalidFile        = errors.New("invalid file")
	ErrInvalidSession     = errors.New("invalid session token")
	ErrInvalidName        = errors.New("invalid index name")
	ErrEmptyQuery         = errors.New("query must not be empty")
	ErrInvalidAggregation = errors.New("invalid aggregation field")
	ErrIndexNotFound      = errors.New("index not found")
	ErrEngineUnavailable  = errors.New("search engine unavailable")
)

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrIndexNotFound)
}

func IsUnavailable(err error) bool {
	return errors.Is(err, ErrEngineUnavailable)
}
