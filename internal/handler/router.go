package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/csvsearch/internal/middleware"
)

type RouterDeps struct {
	Upload         *UploadHandler
	Search         *SearchHandler
	Indices        *IndexHandler
	Session        *SessionHandler
	Health         *HealthHandler
	Metrics        http.Handler
	UploadInterval time.Duration
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	api.GET("/session", deps.Session.New)
	api.GET("/health", deps.Health.Health)
	if deps.Metrics != nil {
		api.GET("/metrics", gin.WrapH(deps.Metrics))
	}

	sessionGroup := api.Group("")
	sessionGroup.Use(middleware.Session())
	sessionGroup.POST("/upload-csv",
		deps.Upload.BodyLimit(),
		middleware.RateLimit(deps.UploadInterval),
		deps.Upload.Upload,
	)
	sessionGroup.POST("/search", deps.Search.Search)
	sessionGroup.GET("/indices", deps.Indices.List)
}
