package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"ntraining/backend/config"
	"ntraining/backend/internal/api/handler"
	"ntraining/backend/internal/api/router"
	"ntraining/backend/internal/repository"
	"ntraining/backend/internal/service"
	"ntraining/backend/pkg/database"
	"ntraining/backend/pkg/jwt"
	applogger "ntraining/backend/pkg/logger"
	"ntraining/backend/pkg/redis"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	// 1. configuration; a local .env is optional and never overrides the
	// real environment
	_ = godotenv.Load()
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	// 2. logging
	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("starting server",
		zap.Int("port", cfg.Server.Port),
		zap.String("log_level", cfg.Log.Level),
	)

	// 3. database
	db, err := database.NewDB(&cfg.Database, cfg.Log.Level, logger)
	if err != nil {
		logger.Fatal("connect database", zap.Error(err))
	}

	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("get sql.DB", zap.Error(err))
	}
	if err := database.RunMigrations(sqlDB, logger); err != nil {
		logger.Fatal("run migrations", zap.Error(err))
	}

	// 4. redis is optional: without it verification is uncached and
	// unthrottled, and issued events are not published
	rdb, err := redis.NewClient(&cfg.Redis, logger)
	if err != nil {
		logger.Warn("redis unavailable, running without cache, rate limit and token blacklist", zap.Error(err))
		rdb = nil
	}

	// 5. token verification
	jwtMgr := jwt.NewManager(&cfg.Auth)

	// 6. repository → service → handler
	repo := repository.NewRepository(db)
	svc := service.NewService(cfg, repo, rdb, logger)
	h := handler.NewHandler(svc, rdb)

	engine := router.Setup(cfg, h, jwtMgr, rdb, logger)

	var sweeper *service.ExpirySweeper
	if cfg.Attempt.SweepSchedule != "" {
		sweeper, err = service.NewExpirySweeper(svc.Attempt, cfg.Attempt.SweepSchedule, logger)
		if err != nil {
			logger.Fatal("init expiry sweeper", zap.Error(err))
		}
		sweeper.Start()
	}

	// 7. HTTP server with graceful shutdown
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("http server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("shutting down", zap.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	if sweeper != nil {
		sweeper.Stop(ctx)
	}

	if err := sqlDB.Close(); err != nil {
		logger.Warn("close database", zap.Error(err))
	}
	if rdb != nil {
		rdb.Close()
	}

	logger.Info("server stopped")
}
