// @title        Habit Tracker API
// @version      1.0
// @description  REST API for personal habit tracking with bearer-token auth, per-client rate limiting and an append-only audit trail.

// @host      localhost:8080
// @BasePath  /

// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
// @description                 Type "Bearer" followed by a space and the token.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/habittracker/habit-api/internal/api"
	"github.com/habittracker/habit-api/internal/audit"
	"github.com/habittracker/habit-api/internal/infrastructure/config"
	mongodb "github.com/habittracker/habit-api/internal/infrastructure/db/mongo"
	redisdb "github.com/habittracker/habit-api/internal/infrastructure/db/redis"
	"github.com/habittracker/habit-api/internal/ratelimit"
	"github.com/habittracker/habit-api/pkg/logger"
)

func main() {
	cfg := config.Load()
	log := logger.Init(logger.Options{Level: cfg.LogLevel, Env: cfg.Env})

	ctx := context.Background()

	client, db, err := mongodb.Connect(ctx, mongodb.Config{
		URI:      cfg.Mongo.URI,
		Database: cfg.Mongo.Database,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("mongodb connection failed")
	}

	rdb, err := redisdb.Connect(ctx, redisdb.Config{
		Addr: cfg.Redis.Addr,
		DB:   cfg.Redis.DB,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("redis connection failed")
	}

	if err := mongodb.EnsureIndexes(ctx, db); err != nil {
		log.Fatal().Err(err).Msg("index creation failed")
	}

	recorder, err := audit.NewRecorder(audit.Config{Output: cfg.Audit.Output}, log)
	if err != nil {
		log.Fatal().Err(err).Msg("audit recorder setup failed")
	}

	globalLimiter := ratelimit.New(ratelimit.Config{
		Capacity:     cfg.RateLimit.Capacity,
		RefillPerSec: cfg.RateLimit.RefillPerSec,
	}, log)
	authLimiter := ratelimit.New(ratelimit.Config{
		Capacity:     cfg.RateLimit.AuthCapacity,
		RefillPerSec: cfg.RateLimit.AuthRefill,
	}, log)

	e := api.NewRouter(api.Deps{
		Config:        cfg,
		DB:            db,
		Redis:         rdb,
		Recorder:      recorder,
		GlobalLimiter: globalLimiter,
		AuthLimiter:   authLimiter,
		Log:           log,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           e,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Str("env", cfg.Env).Msg("starting habit-api")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("listen failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Stop accepting requests first, then tear down in reverse dependency
	// order so in-flight handlers can still reach the stores and the trail.
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown failed")
	}
	globalLimiter.Close()
	authLimiter.Close()
	if err := recorder.Close(); err != nil {
		log.Error().Err(err).Msg("audit recorder close failed")
	}
	_ = rdb.Close()
	_ = client.Disconnect(shutdownCtx)

	log.Info().Msg("stopped")
}
