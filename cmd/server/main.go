package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	appstock "github.com/dermaclinic/backend/internal/application/stock"
	"github.com/dermaclinic/backend/internal/domain/shared"
	"github.com/dermaclinic/backend/internal/domain/stock"
	"github.com/dermaclinic/backend/internal/infrastructure/cache"
	"github.com/dermaclinic/backend/internal/infrastructure/config"
	"github.com/dermaclinic/backend/internal/infrastructure/event"
	"github.com/dermaclinic/backend/internal/infrastructure/logger"
	"github.com/dermaclinic/backend/internal/infrastructure/persistence"
	"github.com/dermaclinic/backend/internal/infrastructure/telemetry"
	"github.com/dermaclinic/backend/internal/interfaces/http/handler"
	"github.com/dermaclinic/backend/internal/interfaces/http/middleware"
	"github.com/dermaclinic/backend/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	defer logger.Sync(log)

	log.Info("Starting server",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	db, err := persistence.NewDatabase(&cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}

	scope := persistence.NewGormTransactionScope(db, cfg.Stock.LockTimeout)

	idemStore, err := newIdempotencyStore(cfg, log)
	if err != nil {
		log.Fatal("Failed to initialize idempotency store", zap.Error(err))
	}
	defer idemStore.Close()

	idemConfig := shared.IdempotencyConfig{
		TTL:     cfg.Idempotency.TTL,
		Enabled: true,
	}

	// Event bus with a single async worker; ledger writes never block on it
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := event.NewInMemoryEventBus(256, log)
	if err := bus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	defer func() {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer stopCancel()
		if err := bus.Stop(stopCtx); err != nil {
			log.Warn("Event bus did not stop cleanly", zap.Error(err))
		}
	}()

	bus.Subscribe(event.NewIdempotentHandler(
		&movementAuditHandler{logger: log},
		idemStore,
		idemConfig,
		log,
	), stock.EventMovementRecorded)

	// Telemetry
	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := meterProvider.Shutdown(shutdownCtx); err != nil {
			log.Warn("Meter provider did not shut down cleanly", zap.Error(err))
		}
	}()

	var metrics appstock.MetricsRecorder = appstock.NoOpMetrics{}
	if meterProvider.IsEnabled() {
		stockMetrics, err := telemetry.NewStockMetrics(telemetry.StockMetricsConfig{
			Meter:    meterProvider.Meter("clinic-stock"),
			Logger:   log,
			Provider: telemetry.NewGormStockMetricsProvider(db),
		})
		if err != nil {
			log.Fatal("Failed to initialize stock metrics", zap.Error(err))
		}
		stockMetrics.StartPeriodicCollection(ctx, cfg.Telemetry.CollectInterval)
		defer stockMetrics.Stop()
		metrics = stockMetrics
	}

	// Application services
	ledger := appstock.NewLedgerService(scope, bus, metrics, log)
	locations := appstock.NewLocationService(scope, log)
	batches := appstock.NewBatchService(scope, ledger, log)
	queries := appstock.NewQueryService(scope)
	orchestrator := appstock.NewOrchestrator(scope, idemStore, idemConfig, bus, metrics, log)

	// HTTP server
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Fatal("Failed to set trusted proxies", zap.Error(err))
		}
	}

	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	engine.GET("/health", healthHandler(db))

	router.NewRouter(engine, router.WithAPIVersion("v1")).
		Register(handler.NewLocationHandler(locations)).
		Register(handler.NewBatchHandler(batches, queries)).
		Register(handler.NewStockHandler(ledger, queries)).
		Register(handler.NewSaleHandler(orchestrator, queries)).
		Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server stopped")
}

func newIdempotencyStore(cfg *config.Config, log *zap.Logger) (shared.IdempotencyStore, error) {
	switch cfg.Idempotency.Backend {
	case "redis":
		log.Info("Using Redis idempotency store", zap.String("addr", cfg.Redis.Addr()))
		return cache.NewRedisIdempotencyStore(cfg.Redis)
	default:
		log.Info("Using in-memory idempotency store")
		return cache.NewInMemoryIdempotencyStore(), nil
	}
}

// healthHandler pings the database and reports service health
func healthHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request.Context())
		}
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unhealthy",
				"error":  err.Error(),
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status": "healthy",
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// movementAuditHandler writes an audit log line for every recorded movement
type movementAuditHandler struct {
	logger *zap.Logger
}

func (h *movementAuditHandler) Handle(_ context.Context, e shared.DomainEvent) error {
	h.logger.Info("Stock movement recorded",
		zap.String("event_id", e.EventID().String()),
		zap.String("aggregate_id", e.AggregateID().String()),
		zap.Time("occurred_at", e.OccurredAt()),
	)
	return nil
}

func (h *movementAuditHandler) EventTypes() []string {
	return []string{stock.EventMovementRecorded}
}
