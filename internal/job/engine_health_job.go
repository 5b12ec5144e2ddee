package job

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/csvsearch/internal/engine"
	"github.com/xxxsen/csvsearch/internal/metrics"
)

// EngineHealthJob checks the search engine and exports the result as the
// engine_up gauge. State changes are logged once.
type EngineHealthJob struct {
	engine  engine.Engine
	metrics *metrics.Metrics
	timeout time.Duration
	up      atomic.Int32
}

func NewEngineHealthJob(eng engine.Engine, m *metrics.Metrics, timeout time.Duration) *EngineHealthJob {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &EngineHealthJob{engine: eng, metrics: m, timeout: timeout}
}

func (j *EngineHealthJob) Name() string {
	return "engine_health"
}

func (j *EngineHealthJob) Run(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()
	health, err := j.engine.Health(ctx)
	up := err == nil && health.Status != "red"
	j.metrics.SetEngineUp(up)

	state := int32(-1)
	if up {
		state = 1
	}
	if prev := j.up.Swap(state); prev != state {
		logger := logutil.GetLogger(ctx).With(zap.String("engine", j.engine.Type()))
		if up {
			logger.Info("search engine is up", zap.String("status", health.Status), zap.String("cluster", health.Cluster))
		} else {
			logger.Warn("search engine is down", zap.Error(err))
		}
	}
	return err
}

// Up reports the result of the last check.
func (j *EngineHealthJob) Up() bool {
	return j.up.Load() == 1
}
