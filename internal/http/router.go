package http

import (
	"context"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/spendtrack/spendtrack/internal/auth"
	"github.com/spendtrack/spendtrack/internal/config"
	"github.com/spendtrack/spendtrack/internal/http/handlers"
	"github.com/spendtrack/spendtrack/internal/http/middlewares"
	"github.com/spendtrack/spendtrack/internal/observability"
	"github.com/spendtrack/spendtrack/web"
)

// Deps carries the wired stores so tests can substitute the in-memory
// repositories for postgres.
type Deps struct {
	Users    UserStore
	Expenses handlers.ExpenseStore

	// optional
	Pool     *pgxpool.Pool        // readiness probe
	Redis    *redis.Client        // shared rate-limit counters
	Prom     *observability.Prom  // shared with the repos
	Registry *prometheus.Registry // backs /metrics
}

// UserStore is the union of what the auth handler and the auth gate need.
type UserStore interface {
	handlers.UserReader
	handlers.UserWriter
	middlewares.UserResolver
}

func NewRouter(log *slog.Logger, cfg config.Config, deps Deps) *gin.Engine {
	if cfg.Env != "dev" && cfg.Env != "test" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	registry := deps.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	prom := deps.Prom
	if prom == nil {
		prom = observability.NewProm(registry)
	}

	// The preprocessing chain, in order: recovery, tracing, request id,
	// logging, metrics, headers, CORS, body cap, content-type check.
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware("spendtrack"))
	r.Use(middlewares.RequestID())
	r.Use(middlewares.RequestLogger(log))
	r.Use(prom.HTTPMiddleware())
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddleware(cfg.AllowedOrigins))
	r.Use(middlewares.MaxBodyBytes(cfg.MaxBodyBytes))
	r.Use(middlewares.RequireJSON())

	// health + metrics
	ping := func() error {
		if deps.Pool == nil {
			return nil
		}

		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
		defer cancel()

		return deps.Pool.Ping(ctx)
	}

	h := handlers.NewHealthHandler(ping)
	r.GET("/healthz", h.Healthz)
	r.GET("/readyz", h.Readyz)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	// embedded dashboard
	index, err := web.StaticFS.ReadFile("static/index.html")
	if err == nil {
		r.GET("/", func(ctx *gin.Context) {
			ctx.Data(http.StatusOK, "text/html; charset=utf-8", index)
		})
	}
	r.StaticFS("/static", http.FS(mustSub(web.StaticFS, "static")))

	// wire up auth
	jwtManager := auth.NewManager(cfg.JWTSecret, cfg.TokenTTL)
	authMW := middlewares.NewAuthMiddleware(jwtManager, deps.Users)

	var counters middlewares.CounterStore
	if deps.Redis != nil {
		counters = middlewares.NewRedisCounterStore(deps.Redis)
	}
	authLimiter := middlewares.NewRateLimiter(counters, cfg.AuthRateLimit, cfg.RateLimitWindow)
	apiLimiter := middlewares.NewRateLimiter(counters, cfg.APIRateLimit, cfg.RateLimitWindow)

	authHandler := handlers.NewAuthHandler(deps.Users, deps.Users, jwtManager)
	expensesHandler := handlers.NewExpensesHandler(deps.Expenses)

	authGroup := r.Group("/api/auth")
	authGroup.Use(authLimiter.Middleware(middlewares.KeyByIP))
	authGroup.POST("/register", authHandler.Register)
	authGroup.POST("/login", authHandler.Login)
	authGroup.GET("/info", authMW.RequireAuth(), authHandler.Info)

	expenseGroup := r.Group("/api/expense")
	expenseGroup.Use(authMW.RequireAuth(), apiLimiter.Middleware(middlewares.KeyByUserOrIP))
	expenseGroup.GET("/expenses", expensesHandler.List)
	expenseGroup.GET("/stats", expensesHandler.Stats)
	expenseGroup.GET("/:id", expensesHandler.Get)
	expenseGroup.POST("", expensesHandler.Create)
	expenseGroup.PUT("/:id", expensesHandler.Update)
	expenseGroup.DELETE("/:id", expensesHandler.Delete)

	return r
}

func mustSub(fsys fs.FS, dir string) fs.FS {
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		panic(err)
	}
	return sub
}
