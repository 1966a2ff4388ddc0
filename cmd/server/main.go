package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/feichai0017/document-harvester/api/handlers"
	"github.com/feichai0017/document-harvester/api/routes"
	"github.com/feichai0017/document-harvester/config"
	"github.com/feichai0017/document-harvester/internal/service/document"
	"github.com/feichai0017/document-harvester/pkg/logger"
	"github.com/feichai0017/document-harvester/pkg/queue"
)

func main() {
	cfg, err := config.Load(os.Getenv(config.EnvConfigPath))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// init logger
	log, err := logger.NewLogger(logger.WithConfig(cfg.Logger))
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx := context.Background()

	q := queue.NewAsynqQueue(queue.QueueConfig{
		RedisAddr:     cfg.Redis.Addr,
		RedisPassword: cfg.Redis.Password,
		RedisDB:       cfg.Redis.DB,
	})
	if err := q.Ping(ctx); err != nil {
		log.Warn("Redis is not reachable, uploads will fail until it is", logger.Error(err))
	}

	// init document service
	docService, err := document.GetService(ctx, cfg, log, document.WithQueue(q), document.WithCloser(q))
	if err != nil {
		log.Fatal("Failed to get document service", logger.Error(err))
	}
	defer docService.Close()

	// init handlers
	h := handlers.NewHandlers(docService, log.Named("api"))
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	routes.SetupRoutes(r, h, log.Named("http"), routes.Options{
		AllowOrigins:  cfg.Server.AllowOrigins,
		MaxUploadSize: cfg.Server.MaxUploadSize,
	})

	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: r,
	}

	// start server
	go func() {
		log.Info("Server starting", logger.String("addr", cfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Server error", logger.Error(err))
		}
	}()

	// wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	// graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", logger.Error(err))
	}
}
