package handler

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/csvsearch/internal/csvfile"
	"github.com/xxxsen/csvsearch/internal/indexname"
	"github.com/xxxsen/csvsearch/internal/middleware"
	"github.com/xxxsen/csvsearch/internal/pkg/errcode"
	appErr "github.com/xxxsen/csvsearch/internal/pkg/errors"
	"github.com/xxxsen/csvsearch/internal/pkg/response"
	"github.com/xxxsen/csvsearch/internal/service"
)

type UploadHandler struct {
	ingest          *service.IngestService
	maxUploadSize   int64
	replaceExisting bool
}

func NewUploadHandler(ingest *service.IngestService, maxUploadSize int64, replaceExisting bool) *UploadHandler {
	return &UploadHandler{ingest: ingest, maxUploadSize: maxUploadSize, replaceExisting: replaceExisting}
}

// BodyLimit bounds the upload body. It must run before anything that reads
// the form, including the rate limiter.
func (h *UploadHandler) BodyLimit() gin.HandlerFunc {
	return middleware.BodyLimit(h.maxUploadSize)
}

func (h *UploadHandler) tooLarge(c *gin.Context) {
	response.Error(c, errcode.ErrInvalidFile, "file too large (max "+uploadLimitText(h.maxUploadSize)+")")
}

func (h *UploadHandler) Upload(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		if isBodyTooLarge(err) {
			h.tooLarge(c)
			return
		}
		response.Error(c, errcode.ErrInvalidFile, "file is required")
		return
	}
	if h.maxUploadSize > 0 && file.Size > h.maxUploadSize {
		h.tooLarge(c)
		return
	}
	if strings.ToLower(filepath.Ext(file.Filename)) != ".csv" {
		response.Error(c, errcode.ErrInvalidFile, "csv file required")
		return
	}

	rawName := strings.TrimSpace(c.PostForm("index_name"))
	if rawName == "" {
		rawName = strings.TrimSuffix(filepath.Base(file.Filename), filepath.Ext(file.Filename))
	}
	id, err := indexname.Resolve(sessionToken(c, c.PostForm("session_id")), rawName)
	if err != nil {
		handleError(c, err)
		return
	}
	replace := h.replaceExisting
	if v := strings.TrimSpace(c.PostForm("replace_existing")); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			handleError(c, fmt.Errorf("%w: replace_existing must be a boolean", appErr.ErrInvalid))
			return
		}
		replace = parsed
	}

	opened, err := file.Open()
	if err != nil {
		response.Error(c, errcode.ErrInvalidFile, "failed to open file")
		return
	}
	defer opened.Close()
	table, err := csvfile.Parse(opened)
	if err != nil {
		handleError(c, err)
		return
	}

	result, err := h.ingest.Upload(c.Request.Context(), id, table, service.IngestOptions{ReplaceExisting: replace})
	if result != nil {
		result.Filename = file.Filename
	}
	if err != nil {
		if result != nil {
			handlePartialError(c, err, result)
			return
		}
		handleError(c, err)
		return
	}
	response.Success(c, result)
}
