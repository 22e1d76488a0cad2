package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	procapp "github.com/erp/procurement/internal/application/procurement"
	"github.com/erp/procurement/internal/domain/procurement"
	"github.com/erp/procurement/internal/infrastructure/auth"
	"github.com/erp/procurement/internal/infrastructure/cache"
	"github.com/erp/procurement/internal/infrastructure/config"
	"github.com/erp/procurement/internal/infrastructure/event"
	"github.com/erp/procurement/internal/infrastructure/lock"
	"github.com/erp/procurement/internal/infrastructure/logger"
	"github.com/erp/procurement/internal/infrastructure/persistence"
	"github.com/erp/procurement/internal/infrastructure/telemetry"
	"github.com/erp/procurement/internal/interfaces/http/handler"
	"github.com/erp/procurement/internal/interfaces/http/router"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(logger.Options{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting reconciliation service",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	ctx := context.Background()

	// Telemetry providers. Each degrades to a no-op when disabled.
	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	defer shutdownWithTimeout(tracerProvider.Shutdown, log, "tracer provider")

	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	defer shutdownWithTimeout(meterProvider.Shutdown, log, "meter provider")

	loggerProvider, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize logger provider", zap.Error(err))
	}
	defer shutdownWithTimeout(loggerProvider.Shutdown, log, "logger provider")

	if loggerProvider.IsEnabled() {
		log = telemetry.BridgeZapLogger(log, loggerProvider, cfg.Telemetry.ServiceName, zapcore.InfoLevel)
	}

	if cfg.Telemetry.ProfilerEnabled {
		profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
			Enabled:         true,
			ServerAddress:   cfg.Telemetry.ProfilerAddress,
			ApplicationName: cfg.Telemetry.ServiceName,
		}, log)
		if err != nil {
			log.Warn("Failed to start profiler", zap.Error(err))
		} else {
			defer func() {
				if err := profiler.Stop(); err != nil {
					log.Error("Error stopping profiler", zap.Error(err))
				}
			}()
			if err := tracerProvider.EnableSpanProfiles(); err != nil {
				log.Warn("Failed to enable span profiles", zap.Error(err))
			}
		}
	}

	// Database
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
	log.Info("Database connected")

	if meterProvider.IsEnabled() {
		if _, err := telemetry.RegisterDBMetrics(db.DB, meterProvider, telemetry.DBMetricsConfig{
			Enabled:            true,
			SlowQueryThreshold: cfg.Telemetry.DBSlowQueryThresh,
		}, log); err != nil {
			log.Warn("Failed to register database metrics", zap.Error(err))
		}
	}
	if cfg.Telemetry.DBTraceEnabled && tracerProvider.IsEnabled() {
		tracingPlugin := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{
			Enabled:         true,
			SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
		}, log)
		if err := tracingPlugin.RegisterOtelGorm(db.DB); err != nil {
			log.Warn("Failed to register database tracing", zap.Error(err))
		}
	}

	// Repositories
	orderRepo := persistence.NewGormPurchaseOrderRepository(db.DB)
	receiptRepo := persistence.NewGormGoodsReceiptRepository(db.DB)
	invoiceRepo := persistence.NewGormVendorInvoiceRepository(db.DB)
	resultRepo := persistence.NewGormMatchResultRepository(db.DB)
	ruleRepo := persistence.NewGormPolicyRuleRepository(db.DB)

	// Per-order lock. In-process by default; Redis-backed when running more
	// than one instance.
	var orderLocker procapp.OrderLocker
	if cfg.Reconciliation.DistributedLockEnabled {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				log.Error("Error closing Redis client", zap.Error(err))
			}
		}()
		orderLocker = lock.WithTimeout(lock.NewRedisLocker(redisClient, log), cfg.Reconciliation.LockTimeout)
		log.Info("Distributed order locking enabled", zap.String("redis", cfg.Redis.Addr()))
	} else {
		orderLocker = lock.WithTimeout(lock.NewKeyedMutex(), cfg.Reconciliation.LockTimeout)
	}

	// Application services
	orderService := procapp.NewPurchaseOrderService(orderRepo)
	receiptService := procapp.NewGoodsReceiptService(receiptRepo, orderRepo, log)
	invoiceService := procapp.NewVendorInvoiceService(invoiceRepo, orderRepo, log)
	policyService := procapp.NewPolicyService(ruleRepo, log)
	reconService := procapp.NewReconciliationService(
		orderRepo, receiptRepo, invoiceRepo, resultRepo, ruleRepo, orderLocker, log,
	)
	reconService.SetPolicyCache(cache.NewPolicySetCache(cache.WithPolicySetLogger(log)))

	if meterProvider.IsEnabled() {
		businessMetrics, err := telemetry.NewBusinessMetrics(telemetry.BusinessMetricsConfig{
			Meter:           meterProvider.Meter("reconciliation"),
			Logger:          log,
			BacklogProvider: &invoiceBacklog{repo: invoiceRepo},
		})
		if err != nil {
			log.Warn("Failed to initialize business metrics", zap.Error(err))
		} else {
			reconService.SetBusinessMetrics(businessMetrics)
			businessMetrics.StartPeriodicCollection(ctx, time.Minute)
			defer businessMetrics.Stop()
		}
	}

	// Event bus: document changes trigger recomputes asynchronously
	eventBus := event.NewInMemoryEventBus(log)
	eventBus.Subscribe(procapp.NewGoodsReceiptEventHandler(reconService, log))
	eventBus.Subscribe(procapp.NewVendorInvoiceEventHandler(reconService, log))
	eventBus.Subscribe(procapp.NewPolicyChangedHandler(reconService, invoiceRepo, log))

	if err := eventBus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	defer func() {
		if err := eventBus.Stop(context.Background()); err != nil {
			log.Error("Error stopping event bus", zap.Error(err))
		}
	}()

	receiptService.SetEventPublisher(eventBus)
	invoiceService.SetEventPublisher(eventBus)
	policyService.SetEventPublisher(eventBus)
	reconService.SetEventPublisher(eventBus)

	jwtService := auth.NewJWTService(cfg.JWT)

	engine, err := router.New(router.Dependencies{
		Config:         cfg,
		Logger:         log,
		JWTService:     jwtService,
		TracerProvider: tracerProvider,
		MeterProvider:  meterProvider,
	}, router.Handlers{
		PurchaseOrders: handler.NewPurchaseOrderHandler(orderService),
		GoodsReceipts:  handler.NewGoodsReceiptHandler(receiptService),
		VendorInvoices: handler.NewVendorInvoiceHandler(invoiceService),
		Reconciliation: handler.NewReconciliationHandler(reconService),
		Policy:         handler.NewPolicyHandler(policyService),
		Health:         handler.NewHealthHandler(db),
	})
	if err != nil {
		log.Fatal("Failed to build router", zap.Error(err))
	}

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

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// invoiceBacklog feeds the backlog gauge from invoice counts per status.
type invoiceBacklog struct {
	repo procurement.VendorInvoiceRepository
}

func (b *invoiceBacklog) CountByStatus(ctx context.Context) (map[string]int64, error) {
	statuses := []procurement.InvoiceStatus{
		procurement.InvoiceStatusPendingReview,
		procurement.InvoiceStatusMatched,
		procurement.InvoiceStatusMismatch,
		procurement.InvoiceStatusApproved,
	}
	counts := make(map[string]int64, len(statuses))
	for _, status := range statuses {
		n, err := b.repo.CountByStatus(ctx, status)
		if err != nil {
			return nil, err
		}
		counts[status.String()] = n
	}
	return counts, nil
}

func shutdownWithTimeout(fn func(context.Context) error, log *zap.Logger, name string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := fn(ctx); err != nil {
		log.Error("Error shutting down "+name, zap.Error(err))
	}
}
