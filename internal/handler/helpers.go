package handler

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/csvsearch/internal/middleware"
	"github.com/xxxsen/csvsearch/internal/pkg/errcode"
	appErr "github.com/xxxsen/csvsearch/internal/pkg/errors"
	"github.com/xxxsen/csvsearch/internal/pkg/response"
)

// sessionToken prefers the token picked up by the session middleware and
// falls back to one sent in the request body.
func sessionToken(c *gin.Context, fallback string) string {
	if token := middleware.SessionFromContext(c); token != "" {
		return token
	}
	return strings.TrimSpace(fallback)
}

// errorCode maps an error to its envelope code and the message shown to the
// client. User correctable errors keep their full text.
func errorCode(err error) (int, string) {
	switch {
	case errors.Is(err, appErr.ErrInvalidSession):
		return errcode.ErrInvalidSession, err.Error()
	case errors.Is(err, appErr.ErrInvalidName):
		return errcode.ErrInvalidName, err.Error()
	case errors.Is(err, appErr.ErrEmptyQuery):
		return errcode.ErrEmptyQuery, err.Error()
	case errors.Is(err, appErr.ErrInvalidAggregation):
		return errcode.ErrInvalidAggregation, err.Error()
	case errors.Is(err, appErr.ErrIndexNotFound):
		return errcode.ErrIndexNotFound, err.Error()
	case errors.Is(err, appErr.ErrEngineUnavailable):
		return errcode.ErrEngineUnavailable, "search engine unavailable, try again later"
	case errors.Is(err, appErr.ErrInvalidFile):
		return errcode.ErrInvalidFile, err.Error()
	case errors.Is(err, appErr.ErrInvalid):
		return errcode.ErrInvalid, err.Error()
	case errors.Is(err, appErr.ErrNotFound):
		return errcode.ErrNotFound, "not found"
	case errors.Is(err, appErr.ErrTooMany):
		return errcode.ErrTooMany, "too many requests"
	default:
		return errcode.ErrInternal, "internal error"
	}
}

func logError(c *gin.Context, err error) {
	requestID, _ := c.Get(middleware.ContextRequestIDKey)
	logutil.GetLogger(c.Request.Context()).Error("request failed",
		zap.Any("request_id", requestID),
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.String("session", middleware.SessionFromContext(c)),
		zap.Error(err),
	)
}

func handleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	logError(c, err)
	code, msg := errorCode(err)
	response.Error(c, code, msg)
}

// handlePartialError reports a failure that still produced a result worth
// returning, such as an ingest that stopped halfway.
func handlePartialError(c *gin.Context, err error, data interface{}) {
	logError(c, err)
	code, msg := errorCode(err)
	response.ErrorWithData(c, code, msg, data)
}
