package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/onesoftuk/bugflow/internal/blob"
	"github.com/onesoftuk/bugflow/internal/config"
	"github.com/onesoftuk/bugflow/internal/database"
	"github.com/onesoftuk/bugflow/internal/router"
	"github.com/onesoftuk/bugflow/pkg/logger"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg.Env)

	pool, err := database.Open(context.Background(), cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("db connect failed")
	}
	defer pool.Close()

	blobs, err := blob.NewDir(cfg.UploadDir)
	if err != nil {
		log.Fatal().Err(err).Str("dir", cfg.UploadDir).Msg("upload dir unavailable")
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router.New(log, pool, blobs, cfg),
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info().Str("addr", srv.Addr).Str("env", cfg.Env).Msg("api listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("shutdown incomplete")
	}
	log.Info().Msg("shutdown complete")
}
