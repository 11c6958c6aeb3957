package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/tesoreria/backend/internal/infrastructure/auth"
	"github.com/tesoreria/backend/internal/infrastructure/config"
	"github.com/tesoreria/backend/internal/infrastructure/logger"
	"github.com/tesoreria/backend/internal/infrastructure/telemetry"
	"github.com/tesoreria/backend/internal/interfaces/http/handler"
	"github.com/tesoreria/backend/internal/interfaces/http/middleware"
)

// RouteRegistrar defines the interface for registering routes
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// Router manages HTTP route registration
type Router struct {
	engine     *gin.Engine
	apiVersion string
	registrars []RouteRegistrar
}

// RouterOption is a functional option for Router configuration
type RouterOption func(*Router)

// WithAPIVersion sets the API version prefix (e.g., "v1", "v2")
func WithAPIVersion(version string) RouterOption {
	return func(r *Router) {
		r.apiVersion = version
	}
}

// NewRouter creates a new Router instance
func NewRouter(engine *gin.Engine, opts ...RouterOption) *Router {
	r := &Router{
		engine:     engine,
		apiVersion: "v1",
		registrars: make([]RouteRegistrar, 0),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Register adds a RouteRegistrar to be registered later
func (r *Router) Register(registrar RouteRegistrar) *Router {
	r.registrars = append(r.registrars, registrar)
	return r
}

// Setup registers all routes with the engine
func (r *Router) Setup() {
	api := r.engine.Group("/api/" + r.apiVersion)

	for _, registrar := range r.registrars {
		registrar.RegisterRoutes(api)
	}
}

// RecordRoutes registers the ledger record and agreement endpoints.
// Read endpoints only need a valid token; everything that mutates records
// or stored documents additionally requires a document-manager role.
type RecordRoutes struct {
	records *handler.RecordHandler
}

// NewRecordRoutes creates the record route registrar
func NewRecordRoutes(records *handler.RecordHandler) *RecordRoutes {
	return &RecordRoutes{records: records}
}

// RegisterRoutes implements RouteRegistrar
func (rr *RecordRoutes) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/records", rr.records.ListRecords)
	rg.GET("/records/:kind/:id", rr.records.GetRecord)
	rg.GET("/agreements", rr.records.ListAgreements)

	manage := rg.Group("", middleware.RequireDocumentManager())
	manage.POST("/records/expenses", rr.records.CreateExpense)
	manage.POST("/records/incomes", rr.records.CreateIncome)
	manage.POST("/records/:kind/:id/void", rr.records.VoidRecord)
	manage.PUT("/records/expenses/:id/signed", rr.records.UploadSignedExpense)
	manage.PUT("/records/incomes/:id/receipt", rr.records.UploadIncomeReceipt)
	manage.POST("/records/incomes/:id/voucher", rr.records.RenderIncomeVoucher)
}

// SystemRoutes registers the system probe endpoints
type SystemRoutes struct {
	system *handler.SystemHandler
}

// NewSystemRoutes creates the system route registrar
func NewSystemRoutes(db handler.DBHealth) *SystemRoutes {
	return &SystemRoutes{system: handler.NewSystemHandler(db)}
}

// RegisterRoutes implements RouteRegistrar
func (sr *SystemRoutes) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/system/info", sr.system.GetSystemInfo)
	rg.GET("/system/ping", sr.system.Ping)
	rg.GET("/system/db", sr.system.GetDBHealth)
}

// New builds the fully wired gin engine: middleware chain, health probe and
// the versioned API routes. meter and blacklist may be nil when metrics or
// token revocation are disabled.
func New(cfg *config.Config, log *zap.Logger, jwtService *auth.JWTService, records *handler.RecordHandler, meter *telemetry.MeterProvider, blacklist auth.TokenBlacklist, db handler.DBHealth) (*gin.Engine, error) {
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	middleware.SetupValidator()

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		return nil, err
	}

	corsConfig := middleware.DefaultCORSConfig()
	if len(cfg.HTTP.CORSAllowOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	}
	if len(cfg.HTTP.CORSAllowMethods) > 0 {
		corsConfig.AllowMethods = cfg.HTTP.CORSAllowMethods
	}
	if len(cfg.HTTP.CORSAllowHeaders) > 0 {
		corsConfig.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	}

	engine.Use(
		middleware.RequestID(),
		logger.GinMiddleware(log),
		logger.Recovery(log),
		middleware.CORSWithConfig(corsConfig),
		middleware.Secure(),
		middleware.BodyLimit(cfg.HTTP.MaxBodySize),
	)

	if cfg.Telemetry.Enabled {
		engine.Use(
			middleware.TracingWithConfig(middleware.TracingConfig{
				Enabled:     true,
				ServiceName: cfg.Telemetry.ServiceName,
			}),
			middleware.SpanErrorMarker(),
		)
	}
	if cfg.Telemetry.MetricsEnabled && meter != nil {
		engine.Use(middleware.HTTPMetrics(middleware.HTTPMetricsConfig{
			MeterProvider: meter,
			ServiceName:   cfg.Telemetry.ServiceName,
			Enabled:       true,
		}))
	}
	if cfg.Telemetry.ProfilingEnabled {
		engine.Use(middleware.Profiling())
	}

	if cfg.HTTP.RateLimitEnabled {
		limiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		engine.Use(middleware.RateLimit(limiter))
		log.Info("Rate limiting enabled",
			zap.Int("requests", cfg.HTTP.RateLimitRequests),
			zap.Duration("window", cfg.HTTP.RateLimitWindow),
		)
	}

	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": cfg.App.Name,
			"env":     cfg.App.Env,
		})
	})

	jwtCfg := middleware.DefaultJWTConfig(jwtService)
	jwtCfg.Blacklist = blacklist
	jwtCfg.Logger = log
	jwtAuth := middleware.JWTAuthMiddlewareWithConfig(jwtCfg)

	if cfg.Swagger.Enabled {
		// Registered before the JWT middleware; SwaggerProtection applies
		// its own auth and IP checks.
		engine.GET("/swagger/*any",
			middleware.SwaggerProtection(middleware.SwaggerConfig{
				Enabled:     true,
				RequireAuth: cfg.Swagger.RequireAuth,
				AllowedIPs:  cfg.Swagger.AllowedIPs,
			}, jwtAuth),
			ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	engine.Use(jwtAuth)
	if cfg.Telemetry.Enabled {
		// Runs after auth so spans carry the caller's identity.
		engine.Use(middleware.TracingAttributeInjector())
	}

	r := NewRouter(engine, WithAPIVersion("v1"))
	r.Register(NewRecordRoutes(records))
	r.Register(NewSystemRoutes(db))
	r.Setup()

	return engine, nil
}
