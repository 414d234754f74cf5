package main

import (
	"Postpilot/internal/api/config"
	"Postpilot/internal/pkg/database"
	"Postpilot/internal/pkg/llm"
	"Postpilot/internal/pkg/logger"
	"Postpilot/internal/pkg/mongo"
	"Postpilot/internal/pkg/redis"
	"Postpilot/internal/wire"
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
)

func main() {
	if err := config.LoadConfig(); err != nil {
		log.Error("Fatal error: failed to load configuration", "err", err)
		panic(err)
	}
	cfg := config.Cfg

	logger.InitLogger()

	// database
	dbCfg := cfg.DB
	db, err := database.NewGormDB(&dbCfg)
	if err != nil {
		log.Error("Fatal error: failed to create database connection", "err", err)
		panic(err)
	}
	if err = database.AutoMigrate(db); err != nil {
		log.Error("Fatal error: failed to migrate database", "err", err)
		panic(err)
	}

	// redis
	if err = redis.InitRedis(cfg.Redis); err != nil {
		log.Error("Fatal error: failed to create redis connection", "err", err)
		panic(err)
	}

	// mongo, optional
	mongoDB, err := mongo.InitMongo(cfg.Mongo)
	if err != nil {
		log.Error("Fatal error: failed to create mongo connection", "err", err)
		panic(err)
	}
	if mongoDB != nil {
		indexCtx, indexCancel := context.WithTimeout(context.Background(), 10*time.Second)
		err = mongo.EnsureIndexes(indexCtx, mongoDB, cfg.Mongo.Collection)
		indexCancel()
		if err != nil {
			log.Error("Fatal error: failed to create job indexes", "err", err)
			panic(err)
		}
	}

	// llm
	model, err := llm.InitLLM(cfg.LLM)
	if err != nil {
		log.Error("Fatal error: failed to initialize llm model", "err", err)
		panic(err)
	}

	app, err := wire.BuildApplication(db, mongoDB, model, cfg)
	if err != nil {
		log.Error("Fatal error: failed to create application", "err", err)
		panic(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	// scheduler
	if err = app.CronMgr.Start(); err != nil {
		log.Error("Fatal error: failed to start scheduler", "err", err)
		panic(err)
	}
	if app.AutoStart {
		if err = app.GeneratorJob.Start(ctx); err != nil {
			log.Error("Fatal error: failed to schedule content generation", "err", err)
			panic(err)
		}
	}
	g.Go(func() error {
		<-ctx.Done()
		log.Info("Scheduler stopping...")
		app.CronMgr.Stop()
		return nil
	})

	// http
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           app.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	g.Go(func() error {
		log.Info("HTTP Server starting...", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	// graceful shutdown
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case <-ctx.Done():
		case sig := <-quit:
			log.Info("Received signal, shutting down...", "signal", sig)
			cancel()
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("HTTP Server shutdown failed", "err", err)
		}
		return nil
	})

	if err = g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("App exited with error", "err", err)
	}
	if app.Producer != nil {
		if err = app.Producer.Close(); err != nil {
			log.Error("Kafka producer close failed", "err", err)
		}
	}
	log.Info("App exited successfully.")
}
