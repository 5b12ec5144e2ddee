package handler

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/csvsearch/internal/engine"
	"github.com/xxxsen/csvsearch/internal/pkg/response"
)

const healthTimeout = 5 * time.Second

type HealthHandler struct {
	engine engine.Engine
}

func NewHealthHandler(eng engine.Engine) *HealthHandler {
	return &HealthHandler{engine: eng}
}

type healthResponse struct {
	AppStatus     string `json:"app_status"`
	Engine        string `json:"engine"`
	EngineStatus  string `json:"engine_status"`
	EngineCluster string `json:"engine_cluster,omitempty"`
	Error         string `json:"error,omitempty"`
	Timestamp     int64  `json:"timestamp"`
}

// Health always answers; an unreachable engine is reported in the payload
// rather than as a failure of the app itself.
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
	defer cancel()
	out := healthResponse{
		AppStatus: "ok",
		Engine:    h.engine.Type(),
		Timestamp: time.Now().Unix(),
	}
	health, err := h.engine.Health(ctx)
	if err != nil {
		out.EngineStatus = "error"
		out.Error = err.Error()
	} else {
		out.EngineStatus = health.Status
		out.EngineCluster = health.Cluster
	}
	response.Success(c, out)
}
