package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/xxxsen/csvsearch/internal/pkg/response"
	"github.com/xxxsen/csvsearch/internal/service"
)

type IndexHandler struct {
	catalog *service.CatalogService
}

func NewIndexHandler(catalog *service.CatalogService) *IndexHandler {
	return &IndexHandler{catalog: catalog}
}

func (h *IndexHandler) List(c *gin.Context) {
	entries, err := h.catalog.List(c.Request.Context(), sessionToken(c, ""))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"indices": entries})
}
