// Package app assembles repositories, services and HTTP routes around one
// record store handle.
package app

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/classroom-api/internal/events"
	"github.com/noah-isme/classroom-api/internal/handler"
	internalmiddleware "github.com/noah-isme/classroom-api/internal/middleware"
	"github.com/noah-isme/classroom-api/internal/repository"
	"github.com/noah-isme/classroom-api/internal/service"
	"github.com/noah-isme/classroom-api/pkg/apper"
	"github.com/noah-isme/classroom-api/pkg/config"
	"github.com/noah-isme/classroom-api/pkg/jobs"
	"github.com/noah-isme/classroom-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/classroom-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/classroom-api/pkg/middleware/requestid"
	"github.com/noah-isme/classroom-api/pkg/storage"
)

// Options are the externally built dependencies.
type Options struct {
	Config *config.Config
	Logger *zap.Logger
	Store  *apper.Handle
	// Cache is optional; nil disables response caching.
	Cache service.CacheRepository
}

// App is the fully wired API.
type App struct {
	Engine  *gin.Engine
	Metrics *service.MetricsService
	Bus     *events.Bus
	Stats   *service.StatsService
	Exports *service.ExportService

	queue    *jobs.Queue
	store    *apper.Handle
	logger   *zap.Logger
	detaches []func()
}

// New wires every layer. It does not touch the record store; the handle
// connects lazily on first use.
func New(opts Options) (*App, error) {
	cfg := opts.Config
	if cfg == nil {
		return nil, fmt.Errorf("app: config is required")
	}
	if opts.Store == nil {
		return nil, fmt.Errorf("app: store handle is required")
	}
	logr := opts.Logger
	if logr == nil {
		logr = zap.NewNop()
	}

	metrics := service.NewMetricsService()
	bus := events.NewBus(logr)
	tables := repository.NewTables(opts.Store, bus, metrics, logr)

	students := repository.NewStudentRepository(tables.Students)
	grades := repository.NewGradeRepository(tables.Grades)
	attendance := repository.NewAttendanceRepository(tables.Attendance)
	activities := repository.NewActivityRepository(tables.Activities)

	validate := service.NewValidator()
	cache := service.NewCacheService(opts.Cache, metrics, cfg.Dashboard.CacheTTL, logr, opts.Cache != nil)

	studentSvc := service.NewStudentService(students, validate, logr)
	gradeSvc := service.NewGradeService(grades, validate, logr)
	attendanceSvc := service.NewAttendanceService(attendance, validate, logr)
	activitySvc := service.NewActivityService(activities, validate, logr)
	statsSvc := service.NewStatsService(grades, attendance, metrics, logr)

	dashboardSvc := service.NewDashboardService(service.DashboardServiceParams{
		Students:   students,
		Metrics:    statsSvc,
		Activities: activities,
		Cache:      cache,
		Logger:     logr,
		Config: service.DashboardServiceConfig{
			CacheTTL:    cfg.Dashboard.CacheTTL,
			SampleSize:  cfg.Dashboard.SampleSize,
			Concurrency: cfg.Dashboard.Concurrency,
		},
	})
	reportSvc := service.NewReportService(service.ReportServiceParams{
		Students:   students,
		Grades:     grades,
		Attendance: attendance,
		Cache:      cache,
		Logger:     logr,
		Config: service.ReportServiceConfig{
			CacheTTL:         cfg.Reports.CacheTTL,
			PerformanceLimit: cfg.Reports.PerformanceLimit,
		},
	})

	files, err := storage.NewLocalStorage(cfg.Exports.Dir)
	if err != nil {
		return nil, fmt.Errorf("app: export storage: %w", err)
	}
	exportSvc := service.NewExportService(service.ExportServiceParams{
		Reports: reportSvc,
		Storage: files,
		Signer:  storage.NewSignedURLSigner(cfg.Exports.SigningSecret, cfg.Exports.ResultTTL),
		Logger:  logr,
		Config: service.ExportServiceConfig{
			APIPrefix:       cfg.APIPrefix,
			ResultTTL:       cfg.Exports.ResultTTL,
			CleanupInterval: cfg.Exports.CleanupInterval,
		},
	})
	queue := jobs.NewQueue("exports", exportSvc.Handle, jobs.QueueConfig{
		Workers:     cfg.Exports.Workers,
		MaxRetries:  cfg.Exports.MaxRetries,
		Logger:      logr,
		OnExhausted: exportSvc.Fail,
	})
	exportSvc.UseQueue(queue)

	a := &App{
		Metrics: metrics,
		Bus:     bus,
		Stats:   statsSvc,
		Exports: exportSvc,
		queue:   queue,
		store:   opts.Store,
		logger:  logr,
	}
	a.detaches = append(a.detaches,
		statsSvc.Attach(bus),
		cache.InvalidateOn(bus, tables.Names(), "dash:*", "report:*"),
	)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr, "/health", "/ready", "/metrics"))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metrics))
	r.Use(internalmiddleware.WithResponseMeta())

	handler.RegisterRoutes(r, cfg.APIPrefix, handler.Handlers{
		Students:   handler.NewStudentHandler(studentSvc, statsSvc),
		Grades:     handler.NewGradeHandler(gradeSvc),
		Attendance: handler.NewAttendanceHandler(attendanceSvc),
		Activities: handler.NewActivityHandler(activitySvc),
		Dashboard:  handler.NewDashboardHandler(dashboardSvc),
		Reports:    handler.NewReportHandler(reportSvc, exportSvc),
		Stream:     handler.NewStreamHandler(statsSvc, 0),
		System:     handler.NewSystemHandler(opts.Store, metrics),
	})
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}
	a.Engine = r
	return a, nil
}

// Start launches the export workers and the export cleanup loop. Both stop
// when ctx is cancelled or Close is called.
func (a *App) Start(ctx context.Context) {
	a.queue.Start(ctx)
	a.Exports.StartCleanup(ctx)
	a.Metrics.SetStoreState(a.store.State())
}

// Warm connects the record store in the background so the first request
// does not pay for it.
func (a *App) Warm(ctx context.Context) {
	go func() {
		if _, err := a.store.Get(ctx); err != nil {
			a.logger.Warn("record store warm-up failed", zap.Error(err))
		}
		a.Metrics.SetStoreState(a.store.State())
	}()
}

// Close stops background work and drops event subscriptions.
func (a *App) Close() {
	a.queue.Stop()
	for _, detach := range a.detaches {
		detach()
	}
}
