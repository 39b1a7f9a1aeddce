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

	"github.com/atmx/options-engine/internal/analytics"
	"github.com/atmx/options-engine/internal/config"
	"github.com/atmx/options-engine/internal/metrics"
	"github.com/atmx/options-engine/internal/provider"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "err", err)
		os.Exit(1)
	}

	// --- Initialize provider ---
	// Live data comes from the broker gateway or, failing that, a Postgres
	// snapshot of the broker feed. Without either, requests run on the values
	// the caller supplies.
	var p provider.Provider
	var cleanup []func()

	if cfg.BrokerAPIBase != "" {
		p = provider.NewBrokerClient(cfg.BrokerAPIBase, cfg.BrokerAPIToken, cfg.BrokerTimeout)
		slog.Info("broker gateway configured", "base", cfg.BrokerAPIBase)
	}

	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
		if err != nil {
			slog.Error("database connection failed", "err", err)
			os.Exit(1)
		}
		cleanup = append(cleanup, pool.Close)
		snapshot := provider.NewPostgresProvider(pool)
		if p != nil {
			p = provider.NewFallback(p, snapshot)
		} else {
			p = snapshot
		}
		slog.Info("connected to PostgreSQL")
	}

	if p != nil {
		// Wrap with Redis read-through cache if configured.
		if cfg.RedisURL != "" {
			opt, err := redis.ParseURL(cfg.RedisURL)
			if err != nil {
				slog.Error("invalid REDIS_URL", "err", err)
				os.Exit(1)
			}
			rdb := redis.NewClient(opt)
			cleanup = append(cleanup, func() { rdb.Close() })
			p = provider.NewCachedProvider(p, rdb, cfg.QuoteCacheTTL)
			slog.Info("Redis quote cache enabled", "ttl", cfg.QuoteCacheTTL)
		}
	} else {
		slog.Warn("no market data source configured, live quotes disabled")
	}

	defer func() {
		for _, fn := range cleanup {
			fn()
		}
	}()

	// --- WebSocket hub ---
	wsHub := analytics.NewWSHub()
	go wsHub.Run()
	defer wsHub.Close()

	// --- Analytics service ---
	settings := analytics.DefaultSettings()
	settings.DefaultRiskFreeRate = cfg.DefaultRiskFreeRate
	settings.DefaultThetaAlert = cfg.DefaultThetaAlert
	settings.CurvePoints = cfg.CurvePoints
	settings.CurveRangePct = cfg.CurveRangePct
	settings.DecayDays = cfg.DecayDays
	settings.PositionWorkers = cfg.PositionWorkers
	svc := analytics.NewService(p, wsHub, settings)

	// --- HTTP router ---
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(metrics.Middleware)

	// CORS middleware for frontend cross-origin requests.
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","service":"options-engine"}`))
	})

	// Prometheus metrics endpoint.
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		// WebSocket endpoint for theta alerts. Registered outside the
		// timeout group so long-lived connections are not cut.
		r.Get("/ws", wsHub.HandleWS)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(30 * time.Second))

			// Contract analytics.
			r.Post("/greeks", svc.Greeks)
			r.Post("/estimate", svc.Estimate)
			r.Post("/simulate", svc.Simulate)
			r.Post("/watchdog", svc.Watchdog)

			// Broker data.
			r.Get("/quote/{ticker}", svc.GetQuote)
			r.Get("/positions", svc.Positions)

			// Option chain browsing.
			r.Get("/chain/{ticker}/expirations", svc.Expirations)
			r.Get("/chain/{ticker}/strikes", svc.Strikes)
		})
	})

	// --- Server ---
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("options-engine listening", "port", cfg.Port)
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

	slog.Info("shutting down options-engine...")
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "err", err)
	}
	fmt.Println("options-engine stopped")
}
