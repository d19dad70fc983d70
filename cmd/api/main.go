package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/spendtrack/spendtrack/internal/config"
	"github.com/spendtrack/spendtrack/internal/db"
	httpx "github.com/spendtrack/spendtrack/internal/http"
	"github.com/spendtrack/spendtrack/internal/observability"
	"github.com/spendtrack/spendtrack/internal/redisclient"
	"github.com/spendtrack/spendtrack/internal/repo/postgres"
)

func main() {
	cfg := config.Load()

	log := observability.NewLogger(cfg.Env)

	if cfg.JWTSecret == "" {
		log.Error("JWT_SECRET_KEY is required")
		os.Exit(1)
	}

	// optional tracing
	if cfg.OTLPEndpoint != "" {
		shutdownTracer, err := observability.InitTracer(context.Background(), "spendtrack", cfg.OTLPEndpoint)

		if err != nil {
			log.Error("tracer init failed", "err", err)
		} else {
			defer func() {
				ctx, cancel := config.WithTimeout(3 * time.Second)
				defer cancel()
				_ = shutdownTracer(ctx)
			}()
		}
	}

	if err := db.RunMigrations(cfg.DBURL); err != nil {
		log.Error("migrations failed", "err", err)
		os.Exit(1)
	}

	pool, err := db.NewPool(cfg.DBURL)

	if err != nil {
		log.Error("db connect failed", "err", err)
		os.Exit(1)
	}

	defer pool.Close()

	registry := prometheus.NewRegistry()
	prom := observability.NewProm(registry)

	deps := httpx.Deps{
		Users:    postgres.NewUsersRepo(pool, prom),
		Expenses: postgres.NewExpensesRepo(pool, prom),
		Pool:     pool,
		Prom:     prom,
		Registry: registry,
	}

	// optional shared rate-limit counters
	if cfg.RedisAddr != "" {
		rc := redisclient.New(redisclient.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})

		ctx, cancel := config.WithTimeout(2 * time.Second)
		err = rc.Ping(ctx)
		cancel()

		if err != nil {
			log.Error("redis unreachable, falling back to in-memory rate limiting", "err", err)
			_ = rc.Close()
		} else {
			defer rc.Close()
			deps.Redis = rc.Raw()
		}
	}

	router := httpx.NewRouter(log, cfg, deps)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("Server starting", "port", cfg.Port, "env", cfg.Env)
		err := srv.ListenAndServe()

		if err != nil && err != http.ErrServerClosed {
			log.Error("server failed", "err", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Info("server shutting down")

	shutdownCh := make(chan struct{})

	go func() {
		defer close(shutdownCh)

		ctx, cancel := config.WithTimeout(10 * time.Second)

		defer cancel()

		err := srv.Shutdown(ctx)

		if err != nil {
			log.Error("graceful shutdown failed", "err", err)

			return
		}
	}()

	select {
	case <-shutdownCh:
		log.Info("shutdown complete")

	case <-time.After(12 * time.Second):
		log.Error("shutdown timed out")
	}
}
