package handler

import (
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/csvsearch/internal/model"
	appErr "github.com/xxxsen/csvsearch/internal/pkg/errors"
	"github.com/xxxsen/csvsearch/internal/pkg/response"
	"github.com/xxxsen/csvsearch/internal/service"
)

type SearchHandler struct {
	search *service.SearchService
}

func NewSearchHandler(search *service.SearchService) *SearchHandler {
	return &SearchHandler{search: search}
}

type searchRequest struct {
	model.SearchRequest
	SessionID string `json:"session_id"`
}

func (h *SearchHandler) Search(c *gin.Context) {
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(c, fmt.Errorf("%w: %v", appErr.ErrInvalid, err))
		return
	}
	resp, err := h.search.Search(c.Request.Context(), sessionToken(c, req.SessionID), req.SearchRequest)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, resp)
}
