package api

import (
	"context"
	"time"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/storefront/cartsync/internal/api/handler"
	"github.com/storefront/cartsync/internal/api/middleware"
	"github.com/storefront/cartsync/internal/core/domain"
	"github.com/storefront/cartsync/internal/core/ports"
	"github.com/storefront/cartsync/internal/core/service"
	mongorepo "github.com/storefront/cartsync/internal/infrastructure/db/mongo"
	redisstore "github.com/storefront/cartsync/internal/infrastructure/db/redis"
	"github.com/storefront/cartsync/internal/infrastructure/queue"
)

// RouterConfig carries the settings the HTTP layer needs.
type RouterConfig struct {
	JWTSecret   string
	TokenTTL    time.Duration
	CartWorkers int
}

// Services are the use cases the routes delegate to.
type Services struct {
	Auth      ports.AuthService
	Carts     ports.CartService
	Readiness map[string]handler.DependencyCheck
}

// NewRouter wires Mongo and Redis backed services and returns the Echo instance.
// Cart writes are serialized per user on workers that live until ctx is done.
func NewRouter(ctx context.Context, db *mongo.Database, rdb *redis.Client, cfg RouterConfig, log zerolog.Logger) *echo.Echo {
	authRepo := mongorepo.NewAuthRepository(db)
	revoker := redisstore.NewRevocationStore(rdb)
	cartRepo := mongorepo.NewCartRepository(db)
	productRepo := mongorepo.NewProductRepository(db)

	writes := queue.NewDispatcher(cfg.CartWorkers, log.With().Str("component", "cart_writes").Logger())
	writes.Start(ctx)
	carts := service.NewCartService(cartRepo, productRepo, log.With().Str("component", "cart_service").Logger())

	return NewServer(Services{
		Auth:  service.NewAuthService(authRepo, revoker, cfg.JWTSecret, cfg.TokenTTL),
		Carts: service.NewOrderedCartService(carts, writes),
		Readiness: map[string]handler.DependencyCheck{
			"mongodb": handler.MongoCheck(db),
			"redis":   handler.RedisCheck(rdb),
		},
	}, log)
}

// NewServer builds the Echo instance with all routes registered.
func NewServer(svc Services, log zerolog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(log))
	e.Use(middleware.Metrics())

	authHandler := handler.NewAuthHandler(svc.Auth)
	cartHandler := handler.NewCartHandler(svc.Carts)
	productHandler := handler.NewProductHandler(svc.Carts)
	authMiddleware := middleware.Auth(svc.Auth)

	// --- Auth routes ---
	e.POST("/auth/register", authHandler.Register)
	e.POST("/auth/login", authHandler.Login)
	e.POST("/auth/logout", authHandler.Logout, authMiddleware)

	// --- Cart routes ---
	me := e.Group("/users/me", authMiddleware)
	me.GET("/cart", cartHandler.Get)
	me.POST("/cart", cartHandler.Replace)

	// --- Catalog ---
	e.GET("/products/:id", productHandler.Get)
	e.PUT("/products/:id", productHandler.Put, authMiddleware, middleware.RBAC(log, domain.RoleAdmin))

	// --- Health checks (no auth required) ---
	healthHandler := handler.NewHealthHandler()
	healthDepsHandler := handler.NewHealthDependenciesHandler(svc.Readiness)

	e.GET("/health", healthHandler.Liveness)            // liveness: is the process alive?
	e.GET("/health/ready", healthDepsHandler.Readiness) // readiness: are dependencies up?
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	return e
}

func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(_ echo.Context, v echomiddleware.RequestLoggerValues) error {
			ev := log.Info()
			if v.Error != nil {
				ev = log.Warn().Err(v.Error)
			}
			ev.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Msg("request")
			return nil
		},
	})
}
