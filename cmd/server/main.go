package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/stackvest/dca-engine/internal/amm"
	"github.com/stackvest/dca-engine/internal/config"
	"github.com/stackvest/dca-engine/internal/invest"
	"github.com/stackvest/dca-engine/internal/metrics"
	"github.com/stackvest/dca-engine/internal/oracle"
	"github.com/stackvest/dca-engine/internal/store"
	"github.com/stackvest/dca-engine/internal/trigger"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("config invalid", "err", err)
		os.Exit(1)
	}

	// --- Initialize store ---
	var st store.Store
	var cleanup []func()

	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
		if err != nil {
			slog.Error("database connection failed", "err", err)
			os.Exit(1)
		}
		cleanup = append(cleanup, pool.Close)
		st = store.NewPostgresStore(pool)
		slog.Info("connected to PostgreSQL")

		// Wrap with Redis read-through cache if configured.
		if cfg.RedisURL != "" {
			opt, err := redis.ParseURL(cfg.RedisURL)
			if err != nil {
				slog.Error("invalid redis_url", "err", err)
				os.Exit(1)
			}
			rdb := redis.NewClient(opt)
			cleanup = append(cleanup, func() { rdb.Close() })
			st = store.NewCachedStore(st, rdb, 30*time.Second)
			slog.Info("Redis cache enabled")
		}
	} else {
		slog.Warn("database_url not set, using in-memory store (data will not persist)")
		st = store.NewMemoryStore()
	}

	defer func() {
		for _, fn := range cleanup {
			fn()
		}
	}()

	// --- Price feeds + oracle adapter ---
	basePrice, err := decimal.NewFromString(cfg.Oracle.BaseFeed.Price)
	if err != nil {
		slog.Error("invalid base feed price", "err", err)
		os.Exit(1)
	}
	targetPrice, err := decimal.NewFromString(cfg.Oracle.TargetFeed.Price)
	if err != nil {
		slog.Error("invalid target feed price", "err", err)
		os.Exit(1)
	}
	baseFeed := oracle.NewStaticFeed(basePrice, cfg.Oracle.BaseFeed.Decimals)
	targetFeed := oracle.NewStaticFeed(targetPrice, cfg.Oracle.TargetFeed.Decimals)
	ora := oracle.NewAdapter(baseFeed, targetFeed, time.Duration(cfg.Oracle.MaxAgeSeconds)*time.Second)

	// --- AMM collaborators ---
	rate, err := decimal.NewFromString(cfg.AMM.Rate)
	if err != nil {
		slog.Error("invalid amm rate", "err", err)
		os.Exit(1)
	}
	router := amm.NewFixedRateRouter(rate)
	factory := amm.NewStaticFactory([2]string{cfg.Assets.Target, cfg.Assets.WrappedBase})

	// --- WebSocket hub ---
	wsHub := invest.NewWSHub()
	go wsHub.Run()

	// --- Service ---
	assets := invest.Assets{
		BaseAsset:   cfg.Assets.Base,
		WrappedBase: cfg.Assets.WrappedBase,
		TargetAsset: cfg.Assets.Target,
	}
	auth := invest.NewKeyAuthorizer(cfg.OperatorKey)
	svc, err := invest.NewService(context.Background(), assets, st, ora, factory, router, auth, wsHub)
	if err != nil {
		slog.Error("service init failed", "err", err)
		os.Exit(1)
	}

	// --- Optional cron batch trigger ---
	if cfg.BatchCron != "" {
		trg := trigger.New(svc, st)
		if err := trg.Register(cfg.BatchCron); err != nil {
			slog.Error("batch trigger registration failed", "err", err)
			os.Exit(1)
		}
		trg.Start()
		defer trg.Stop()
	}

	// --- HTTP router ---
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(metrics.Middleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","service":"dca-engine"}`))
	})

	// Prometheus metrics endpoint.
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		// WebSocket endpoint for the live batch event stream.
		r.Get("/ws", wsHub.HandleWS)

		// Enrollment and queries.
		r.Post("/investments", svc.Enroll)
		r.Get("/investments/{userID}", svc.ViewInvestment)
		r.Get("/investments/{userID}/history", svc.GetHistory)

		// Operator batch execution.
		r.Post("/batch", svc.RunBatch)

		// Price queries.
		r.Get("/oracle/{selector}", svc.GetOraclePrice)
		r.Get("/quote", svc.GetQuote)
	})

	// --- Server ---
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("dca-engine listening", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	slog.Info("shutting down dca-engine...")
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "err", err)
	}
	fmt.Println("dca-engine stopped")
}
