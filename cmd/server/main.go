package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	appfees "github.com/feeledger/backend/internal/application/fees"
	"github.com/feeledger/backend/internal/application/importer"
	"github.com/feeledger/backend/internal/domain/bulk"
	"github.com/feeledger/backend/internal/infrastructure/cache"
	"github.com/feeledger/backend/internal/infrastructure/config"
	"github.com/feeledger/backend/internal/infrastructure/logger"
	"github.com/feeledger/backend/internal/infrastructure/persistence"
	"github.com/feeledger/backend/internal/interfaces/http/dto"
	"github.com/feeledger/backend/internal/interfaces/http/handler"
	"github.com/feeledger/backend/internal/interfaces/http/middleware"
	"github.com/feeledger/backend/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting FeeLedger Backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// GORM logging rides on zap
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))

	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	statsCache, err := cache.NewRedisStatsCache(cfg.Redis, cfg.Cache.StatsTTL)
	if err != nil {
		log.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer func() {
		if err := statsCache.Close(); err != nil {
			log.Error("Error closing Redis client", zap.Error(err))
		}
	}()
	log.Info("Redis connected successfully")

	// Repositories
	dueRepo := persistence.NewGormDueRepository(db.DB)
	paymentRepo := persistence.NewGormPaymentRepository(db.DB)
	studentRepo := persistence.NewGormStudentRepository(db.DB)
	classRepo := persistence.NewGormSchoolClassRepository(db.DB)
	yearRepo := persistence.NewGormAcademicYearRepository(db.DB)
	feeStructureRepo := persistence.NewGormFeeStructureRepository(db.DB)
	batchRepo := persistence.NewGormImportBatchRepository(db.DB)

	scope := persistence.NewGormTransactionScope(db.DB)

	// Application services
	dashboardService := appfees.NewDashboardService(dueRepo, paymentRepo, statsCache, log)
	paymentService := appfees.NewPaymentService(scope, paymentRepo, dashboardService)
	dueService := appfees.NewDueService(scope, dueRepo, studentRepo, feeStructureRepo, log)
	importService := importer.NewPaymentImportService(
		paymentService, batchRepo, classRepo, studentRepo, dueRepo, paymentRepo,
		cfg.Import.MaxRetainedRows, log,
	)

	// Batches stuck from a crashed run get failed at startup so they do not
	// sit in processing forever.
	failStaleBatches(batchRepo, cfg.Import.StaleBatchCutoff, log)

	// HTTP engine
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	dto.RegisterCustomValidators()
	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		log.Fatal("Failed to set trusted proxies", zap.Error(err))
	}

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	corsCfg.AllowMethods = cfg.HTTP.CORSAllowMethods
	corsCfg.AllowHeaders = cfg.HTTP.CORSAllowHeaders

	engine.Use(
		middleware.RequestID(),
		logger.GinMiddleware(log),
		logger.Recovery(log),
		middleware.CORSWithConfig(corsCfg),
		middleware.BodyLimit(cfg.HTTP.MaxBodySize),
	)

	engine.GET("/health", healthHandler(db))

	r := router.NewRouter(engine)
	r.Register(handler.NewPaymentHandler(paymentService)).
		Register(handler.NewDueHandler(dueService)).
		Register(handler.NewDashboardHandler(dashboardService)).
		Register(handler.NewImportHandler(importService, batchRepo, cfg.Import.MaxFileSize)).
		Register(handler.NewCatalogHandler(classRepo, studentRepo, yearRepo, feeStructureRepo))
	r.Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// failStaleBatches fails import batches left pending or processing past the
// cutoff by a previous run.
func failStaleBatches(batchRepo *persistence.GormImportBatchRepository, cutoff time.Duration, log *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	stale, err := batchRepo.FindStale(ctx, time.Now().Add(-cutoff))
	if err != nil {
		log.Warn("Failed to scan for stale import batches", zap.Error(err))
		return
	}
	for _, batch := range stale {
		detail := []bulk.RowErrorDetail{{Row: 0, Code: "STALE_BATCH", Message: "Abandoned by a previous run"}}
		if err := batch.Fail(detail); err != nil {
			log.Warn("Could not fail stale batch",
				zap.String("batch_id", batch.ID.String()), zap.Error(err))
			continue
		}
		if err := batchRepo.Save(ctx, batch); err != nil {
			log.Warn("Could not save stale batch",
				zap.String("batch_id", batch.ID.String()), zap.Error(err))
			continue
		}
		log.Info("Failed stale import batch", zap.String("batch_id", batch.ID.String()))
	}
}

func healthHandler(db *persistence.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		reqLog := logger.GetGinLogger(c)
		if err := db.Ping(); err != nil {
			reqLog.Warn("Health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"time":     time.Now().Format(time.RFC3339),
				"database": "error",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":   "healthy",
			"time":     time.Now().Format(time.RFC3339),
			"database": "ok",
		})
	}
}
