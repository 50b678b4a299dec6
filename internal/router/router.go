package router

import (
	"context"
	"time"

	"warehouse/internal/config"
	"warehouse/internal/handler"
	"warehouse/internal/infra"
	"warehouse/internal/ledger"
	"warehouse/internal/middleware"
	"warehouse/internal/model"
	"warehouse/internal/repository"
	"warehouse/internal/service"
	"warehouse/internal/worker"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Deps are the process-wide collaborators built in main.
type Deps struct {
	DB         *gorm.DB
	Redis      *redis.Client
	Dispatcher *worker.Dispatcher
	SMTPCB     *infra.CircuitBreaker
}

// New wires all dependencies and returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis
// ctx bounds the rate limiter purge loops.
func New(ctx context.Context, cfg *config.Config, deps Deps) (*gin.Engine, error) {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	apiLimiter := middleware.NewRateLimiter(600, time.Minute, "Too many requests. Try again shortly.")
	loginLimiter := middleware.NewLoginRateLimiter()
	go apiLimiter.RunPurge(ctx)
	go loginLimiter.RunPurge(ctx)

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(middleware.ErrorHandler())
	r.Use(apiLimiter.Middleware())

	// ── Repositories ─────────────────────────────────────────────────────────
	userRepo := repository.NewUserRepository(deps.DB)
	productRepo := repository.NewProductRepository(deps.DB)
	movementRepo := repository.NewMovementRepository(deps.DB)
	restockRepo := repository.NewRestockRepository(deps.DB)

	// ── Services ─────────────────────────────────────────────────────────────
	cache := service.NewDashboardCache(deps.Redis, cfg.DashboardCacheTTL)
	authSvc := service.NewAuthService(userRepo, cfg)
	productSvc := service.NewProductService(productRepo, cache)

	var alerts service.AlertDispatcher
	if deps.Dispatcher != nil {
		alerts = deps.Dispatcher
	}
	stockSvc := service.NewStockService(
		productRepo, movementRepo, restockRepo,
		cache,
		service.NewSheetLocker(deps.Redis),
		alerts,
		service.StockOptions{
			AllowNegative:     cfg.StockAllowNegative,
			LowStockThreshold: cfg.LowStockThreshold,
			Location:          loc,
		},
	)

	// ── Handlers ─────────────────────────────────────────────────────────────
	authH := handler.NewAuthHandler(authSvc)
	productsH := handler.NewProductsHandler(productSvc)
	stockH := handler.NewStockHandler(stockSvc)

	// ── Routes ───────────────────────────────────────────────────────────────

	// Public
	r.GET("/health", handler.Health(deps.DB, deps.Redis, deps.SMTPCB))

	auth := r.Group("/v1/auth")
	{
		auth.POST("/login", loginLimiter.Middleware(), authH.Login)
		auth.POST("/refresh", authH.Refresh)
	}

	// Protected routes: every authenticated role can read
	v1 := r.Group("/v1", middleware.JWTAuth(cfg.JWTSecret))
	writers := middleware.RequireRole(model.RoleStorekeeper, model.RoleAdmin)
	admins := middleware.RequireRole(model.RoleAdmin)
	{
		v1.GET("/dashboard", productsH.Dashboard)
		v1.GET("/dashboard/export", productsH.ExportDashboard)

		v1.GET("/products", productsH.List)
		v1.GET("/products/:id", productsH.Get)
		v1.POST("/products", admins, productsH.Create)
		v1.PUT("/products/:id", admins, productsH.Update)

		stock := v1.Group("/stock")
		{
			stock.GET("/issues", stockH.Sheet(ledger.Issue))
			stock.POST("/issues", writers, stockH.SaveMovements(ledger.Issue))
			stock.GET("/returns", stockH.Sheet(ledger.Return))
			stock.POST("/returns", writers, stockH.SaveMovements(ledger.Return))
			stock.GET("/losses", stockH.LossSheet)
			stock.POST("/losses", writers, stockH.SaveLosses)
		}

		v1.GET("/restocks", stockH.ListRestocks)
		v1.POST("/restocks", writers, stockH.SaveRestock)
	}

	// Swagger UI, only enabled outside production
	if cfg.Env != "production" {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return r, nil
}
