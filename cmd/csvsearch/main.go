package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi"
	"go.uber.org/zap"

	"github.com/xxxsen/csvsearch/internal/config"
	"github.com/xxxsen/csvsearch/internal/engine"
	"github.com/xxxsen/csvsearch/internal/handler"
	"github.com/xxxsen/csvsearch/internal/job"
	"github.com/xxxsen/csvsearch/internal/metrics"
	"github.com/xxxsen/csvsearch/internal/middleware"
	"github.com/xxxsen/csvsearch/internal/query"
	"github.com/xxxsen/csvsearch/internal/schedule"
	"github.com/xxxsen/csvsearch/internal/service"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:           "csvsearch",
		Short:         "session scoped csv search",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config.json")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run csvsearch server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if configPath == "" {
				return fmt.Errorf("--config is required")
			}
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			logutil.GetLogger(context.Background()).Info("config loaded", zap.String("config", configPath))
			return runServer(cfg)
		},
	}

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(newSessionCmd())
	rootCmd.AddCommand(newIngestCmd(&configPath))
	rootCmd.AddCommand(newSearchCmd(&configPath))
	rootCmd.AddCommand(newIndicesCmd(&configPath))
	rootCmd.AddCommand(newShellCmd(&configPath))

	if err := rootCmd.Execute(); err != nil {
		logutil.GetLogger(context.Background()).Fatal("command failed", zap.Error(err))
	}
}

// loadConfig reads the config and initializes logging from it. An empty path
// runs on defaults and environment overrides.
func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	logger.Init(
		cfg.LogConfig.File,
		cfg.LogConfig.Level,
		int(cfg.LogConfig.FileCount),
		int(cfg.LogConfig.FileSize),
		int(cfg.LogConfig.KeepDays),
		cfg.LogConfig.Console,
	)
	return cfg, nil
}

type app struct {
	engine  engine.Engine
	metrics *metrics.Metrics
	catalog *service.CatalogService
	ingest  *service.IngestService
	search  *service.SearchService
}

func newApp(cfg *config.Config) (*app, error) {
	eng, err := engine.New(cfg.Engine)
	if err != nil {
		return nil, fmt.Errorf("init engine: %w", err)
	}
	m := metrics.New()
	catalog := service.NewCatalogService(eng, cfg.Catalog.CacheSize, cfg.Catalog.CacheTTL)
	limits := query.Limits{
		DefaultSize:     cfg.Search.DefaultSize,
		MaxSize:         cfg.Search.MaxSize,
		AggregationSize: cfg.Search.AggregationSize,
		Highlight:       cfg.Search.Highlight,
	}
	return &app{
		engine:  eng,
		metrics: m,
		catalog: catalog,
		ingest:  service.NewIngestService(eng, catalog, m, cfg.Ingest),
		search:  service.NewSearchService(eng, catalog, m, limits),
	}, nil
}

func (a *app) Close() error {
	return a.engine.Close()
}

func runServer(cfg *config.Config) error {
	logutil.GetLogger(context.Background()).Info(
		"starting server",
		zap.Int("port", cfg.Port),
		zap.String("engine", cfg.Engine.Type),
	)
	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scheduler := schedule.NewCronScheduler()
	healthJob := job.NewEngineHealthJob(a.engine, a.metrics, 5*time.Second)
	if err := scheduler.AddJob(healthJob, cfg.HealthCheckSpec); err != nil {
		return fmt.Errorf("schedule health check: %w", err)
	}
	scheduler.Start(ctx)
	defer scheduler.Stop()
	if err := scheduler.RunNow(healthJob.Name()); err != nil {
		logutil.GetLogger(ctx).Error("initial health check failed", zap.Error(err))
	}

	deps := handler.RouterDeps{
		Upload:         handler.NewUploadHandler(a.ingest, cfg.Ingest.MaxUploadBytes, cfg.Ingest.ReplaceExisting),
		Search:         handler.NewSearchHandler(a.search),
		Indices:        handler.NewIndexHandler(a.catalog),
		Session:        handler.NewSessionHandler(),
		Health:         handler.NewHealthHandler(a.engine),
		Metrics:        a.metrics.Handler(),
		UploadInterval: cfg.UploadInterval,
	}
	addr := fmt.Sprintf("0.0.0.0:%d", cfg.Port)
	web, err := webapi.NewEngine(
		"/api/v1",
		addr,
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.RequestID(),
			middleware.CORS(cfg.CORS),
			gzip.Gzip(gzip.DefaultCompression),
		),
	)
	if err != nil {
		return fmt.Errorf("init web engine: %w", err)
	}
	logutil.GetLogger(ctx).Info("http server listening", zap.String("addr", addr))

	go func() {
		if err := web.Run(); err != nil && err != http.ErrServerClosed {
			logutil.GetLogger(context.Background()).Error("server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logutil.GetLogger(context.Background()).Info("server stopping...")
	return nil
}
