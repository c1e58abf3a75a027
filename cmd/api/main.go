package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"oilcall-go/internal/api"
	"oilcall-go/internal/cache"
	"oilcall-go/internal/config"
	"oilcall-go/internal/logger"
	"oilcall-go/internal/metrics"
	"oilcall-go/internal/processor"
	"oilcall-go/internal/retell"
	"oilcall-go/internal/store"
)

func main() {
	_ = godotenv.Load() // loads .env

	log := logger.New()
	log.Info("starting service")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// one platform client for the whole process
	platform, err := retell.New(cfg.RetellBaseURL, cfg.RetellAPIKey, cfg.RetellTimeout, log)
	if err != nil {
		log.WithError(err).Fatal("failed to create calling platform client")
	}

	var calls processor.Store
	if cfg.DatabaseDSN != "" {
		db, err := store.Open(ctx, cfg.DatabaseDSN, log)
		if err != nil {
			log.WithError(err).Fatal("failed to open database")
		}
		defer db.Close()
		if err := store.Migrate(ctx, db); err != nil {
			log.WithError(err).Fatal("failed to migrate database")
		}
		calls = store.NewRepository(db, log)
	} else {
		log.Warn("DATABASE_DSN not set, phone calls are kept in memory")
		calls = store.NewMemory()
	}

	opts := processor.Options{
		FromNumber:    cfg.RetellFromNumber,
		DefaultRegion: cfg.PhoneDefaultRegion,
	}
	if cfg.RedisAddr != "" {
		callCache, err := cache.New(ctx, cfg.RedisAddr, cfg.RedisTTL, log)
		if err != nil {
			log.WithError(err).Warn("redis unavailable, call cache disabled")
		} else {
			defer callCache.Close()
			opts.Cache = callCache
		}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	proc := processor.New(platform, calls, m, log, opts)

	addr := fmt.Sprintf(":%s", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      api.NewRouter(proc, reg, log),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
		BaseContext:  func(_ net.Listener) context.Context { return ctx },
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Error("graceful shutdown failed")
		}
	}()

	log.WithField("addr", addr).Info("listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.WithError(err).Fatal("server terminated")
	}
	log.Info("server stopped")
}
