package errcode

const (
	ErrUnknown = 10000000 + iota
	ErrNotFound
	ErrInvalid
	ErrTooMany
	ErrInternal
	ErrInvalidFile
	ErrInvalidSession
	ErrInvalidName
	ErrEmptyQuery
	ErrInvalidAggregation
	ErrIndexNotFound
	ErrEngineUnavailable
	ErrUploadFailed
)
