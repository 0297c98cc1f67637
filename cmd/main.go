package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/oksasatya/appserv/config"
	"github.com/oksasatya/appserv/db"
	"github.com/oksasatya/appserv/internal/container"
	"github.com/oksasatya/appserv/internal/interface/middleware"
	"github.com/oksasatya/appserv/internal/router"
	"github.com/oksasatya/appserv/pkg/helpers"
	"github.com/oksasatya/appserv/pkg/validation"
)

func main() {
	_ = godotenv.Load() // load .env if present

	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName, cfg.Env)
	gin.SetMode(cfg.GinMode)
	validation.Init()

	ctx := context.Background()

	if err := db.Up(cfg.PostgresDSN()); err != nil {
		logger.WithError(err).Fatal("migration failed")
	}

	app, err := container.New(ctx, cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("init failed")
	}
	defer app.Close()

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RealIP(cfg.Env != "development"))
	r.Use(middleware.RequestIDMiddleware())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins(),
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.HeaderRequestID},
		ExposeHeaders:    []string{"Content-Length", middleware.HeaderNewToken, middleware.HeaderNewExpire, middleware.HeaderRequestID},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	r.Use(middleware.RequestLogger(logger, cfg.HTTPLogEnabled))
	r.Use(middleware.Metrics(app.Metrics))
	r.MaxMultipartMemory = 4 << 20

	reg := router.NewRegistry(r)
	router.InitModules(reg, app)
	reg.RegisterAll()

	app.Scheduler.Start()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Infof("server starting on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("listen: %s\n", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctxShutdown); err != nil {
		logger.WithError(err).Error("server forced to shutdown")
	}
	app.Scheduler.Stop()
	logger.Info("server exited properly")
}
