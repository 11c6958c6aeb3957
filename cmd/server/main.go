package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	_ "github.com/tesoreria/backend/docs"
	ledgerapp "github.com/tesoreria/backend/internal/application/ledger"
	"github.com/tesoreria/backend/internal/application/voucher"
	"github.com/tesoreria/backend/internal/infrastructure/auth"
	"github.com/tesoreria/backend/internal/infrastructure/config"
	"github.com/tesoreria/backend/internal/infrastructure/logger"
	"github.com/tesoreria/backend/internal/infrastructure/persistence"
	"github.com/tesoreria/backend/internal/infrastructure/printing"
	"github.com/tesoreria/backend/internal/infrastructure/storage"
	"github.com/tesoreria/backend/internal/infrastructure/telemetry"
	"github.com/tesoreria/backend/internal/interfaces/http/handler"
	"github.com/tesoreria/backend/internal/interfaces/http/router"
)

//	@title			Tesorería Backend API
//	@version		1.0
//	@description	API de tesorería: registros de egresos e ingresos con comprobantes PDF

//	@host		localhost:8080
//	@BasePath	/api/v1

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token authentication. Format: "Bearer {token}"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting tesorería backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	rootCtx, rootCancel := context.WithCancel(context.Background())
	defer rootCancel()

	// Telemetry providers. Each one degrades to a no-op when its flag is off.
	tracerProvider, err := telemetry.NewTracerProvider(rootCtx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}

	meterProvider, err := telemetry.NewMeterProvider(rootCtx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.MetricsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}

	loggerProvider, err := telemetry.NewLoggerProvider(rootCtx, telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.LogsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize OTEL logger provider", zap.Error(err))
	}
	if loggerProvider.IsEnabled() {
		otelCore := telemetry.NewZapOTELCore(telemetry.ZapBridgeConfig{
			ServiceName:    cfg.Telemetry.ServiceName,
			LoggerProvider: loggerProvider,
		})
		log = telemetry.NewBridgedLogger(log.Core(), otelCore)
	}

	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:           cfg.Telemetry.ProfilingEnabled,
		ServerAddress:     cfg.Telemetry.ProfilingServer,
		ApplicationName:   cfg.Telemetry.ServiceName,
		ProfileCPU:        true,
		ProfileInuseSpace: true,
		ProfileAllocSpace: true,
		ProfileGoroutines: true,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize profiler", zap.Error(err))
	}
	if profiler.IsEnabled() && tracerProvider.IsEnabled() {
		if err := tracerProvider.EnableSpanProfiles(); err != nil {
			log.Warn("Span profiles integration failed", zap.Error(err))
		}
	}

	// Database connection with zap-backed GORM logger
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabaseWithCustomLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected")

	if cfg.Telemetry.DBTraceEnabled {
		dbTracing := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{
			Enabled:          true,
			LogFullSQL:       cfg.Telemetry.DBLogFullSQL,
			SlowQueryThresh:  cfg.Telemetry.DBSlowQueryThresh,
			WithoutVariables: !cfg.Telemetry.DBLogFullSQL,
		}, log)
		if err := dbTracing.RegisterOtelGorm(db.DB); err != nil {
			log.Fatal("Failed to register database tracing", zap.Error(err))
		}
	}

	var dbMetrics *telemetry.DBMetrics
	if meterProvider.IsEnabled() {
		dbMetrics, err = telemetry.NewDBMetrics(
			meterProvider.Meter("db"),
			telemetry.DBMetricsConfig{
				Enabled:            true,
				SlowQueryThreshold: cfg.Telemetry.DBSlowQueryThresh,
			}, log)
		if err != nil {
			log.Fatal("Failed to initialize database metrics", zap.Error(err))
		}
		if sqlDB, err := db.DB.DB(); err == nil {
			dbMetrics.SetSQLDB(sqlDB)
			dbMetrics.StartPoolStatsCollection(rootCtx)
		}
		if err := db.DB.Use(telemetry.NewDBMetricsPlugin(dbMetrics, log)); err != nil {
			log.Fatal("Failed to register database metrics plugin", zap.Error(err))
		}
	}

	// Repositories
	recordRepo := persistence.NewGormLedgerRecordRepository(db.DB)
	counterpartyRepo := persistence.NewGormCounterpartyRepository(db.DB)
	agreementRepo := persistence.NewGormAgreementRepository(db.DB)

	// Object storage. Both buckets must exist before the first upload.
	store, err := storage.NewS3DocumentStore(&cfg.Storage)
	if err != nil {
		log.Fatal("Failed to initialize document store", zap.Error(err))
	}
	buckets := voucher.Buckets{
		Expense: cfg.Storage.ExpenseBucket,
		Income:  cfg.Storage.IncomeBucket,
	}
	ensureCtx, ensureCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer ensureCancel()
	for _, bucket := range []string{buckets.Expense, buckets.Income} {
		if err := store.EnsureBucket(ensureCtx, bucket); err != nil {
			log.Fatal("Failed to ensure bucket", zap.String("bucket", bucket), zap.Error(err))
		}
	}
	log.Info("Document store ready",
		zap.String("expense_bucket", buckets.Expense),
		zap.String("income_bucket", buckets.Income),
	)

	// PDF renderer
	renderer, err := printing.NewChromedpRenderer(&printing.ChromedpConfig{
		RemoteURL:      cfg.Render.BrowserURL,
		DefaultTimeout: cfg.Render.Timeout,
		NoSandbox:      true,
		Logger:         log,
	})
	if err != nil {
		log.Fatal("Failed to initialize PDF renderer", zap.Error(err))
	}
	defer renderer.Close()

	// Voucher services
	generator, err := voucher.NewGenerator(renderer, voucher.Organization{
		Name:    cfg.Org.Name,
		TaxID:   cfg.Org.TaxID,
		City:    cfg.Org.City,
		Phone:   cfg.Org.Phone,
		LogoURL: cfg.Org.LogoURL,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize voucher generator", zap.Error(err))
	}
	cache := voucher.NewCache()
	resolver := voucher.NewResolver(store, cache, buckets, cfg.Voucher.ResolveConcurrency, log)
	uploads := voucher.NewUploadService(store, cache, buckets, log)
	voids := voucher.NewVoidService(recordRepo, counterpartyRepo, generator, store, cache, buckets, log)

	// Application services
	recordService := ledgerapp.NewRecordService(
		recordRepo, counterpartyRepo, agreementRepo,
		generator, uploads, resolver, log,
	)

	// Business metrics with periodic backlog collection
	var ledgerMetrics *telemetry.LedgerMetrics
	if meterProvider.IsEnabled() {
		ledgerMetrics, err = telemetry.NewLedgerMetrics(telemetry.LedgerMetricsConfig{
			Meter:           meterProvider.Meter("ledger"),
			Logger:          log,
			CollectInterval: cfg.Telemetry.MetricsInterval,
			StatsProvider:   persistence.NewLedgerStats(db.DB),
		})
		if err != nil {
			log.Fatal("Failed to initialize ledger metrics", zap.Error(err))
		}
		generator.SetMetrics(ledgerMetrics)
		uploads.SetMetrics(ledgerMetrics)
		voids.SetMetrics(ledgerMetrics)
		recordService.SetMetrics(ledgerMetrics)
		ledgerMetrics.StartPeriodicCollection(rootCtx, cfg.Telemetry.MetricsInterval)
	}

	// Auth
	jwtService := auth.NewJWTService(cfg.JWT)
	var blacklist auth.TokenBlacklist
	if cfg.Redis.Enabled {
		redisBlacklist, err := auth.NewRedisTokenBlacklist(auth.RedisTokenBlacklistConfig{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			log.Fatal("Failed to connect to Redis token blacklist", zap.Error(err))
		}
		defer func() {
			if err := redisBlacklist.Close(); err != nil {
				log.Error("Error closing Redis client", zap.Error(err))
			}
		}()
		blacklist = redisBlacklist
		log.Info("Token revocation list enabled",
			zap.String("host", cfg.Redis.Host),
			zap.Int("port", cfg.Redis.Port),
		)
	}

	// HTTP layer
	recordHandler := handler.NewRecordHandler(recordService, uploads, voids)
	engine, err := router.New(cfg, log, jwtService, recordHandler, meterProvider, blacklist, db)
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

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	rootCancel()
	if ledgerMetrics != nil {
		ledgerMetrics.Stop()
	}
	if dbMetrics != nil {
		dbMetrics.Stop()
	}
	if err := profiler.Stop(); err != nil {
		log.Error("Error stopping profiler", zap.Error(err))
	}
	if err := meterProvider.Shutdown(ctx); err != nil {
		log.Error("Error shutting down meter provider", zap.Error(err))
	}
	if err := tracerProvider.Shutdown(ctx); err != nil {
		log.Error("Error shutting down tracer provider", zap.Error(err))
	}
	if err := loggerProvider.Shutdown(ctx); err != nil {
		log.Error("Error shutting down OTEL logger provider", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}
