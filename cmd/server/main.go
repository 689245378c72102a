package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"prescripto-auth/internal/app"
	"prescripto-auth/internal/config"
	"prescripto-auth/internal/logger"

	"golang.org/x/sync/errgroup"
)

func main() {
	logger.Init()
	cfg := config.Load()
	logger.SetLevel(cfg.LogLevel)

	if config.JWTSecret() == nil {
		// not fatal: protected routes answer 500 until it is set
		logger.Warn("JWT_SECRET is not defined; set it in the server environment", nil)
	}

	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer stop()

	application, err := app.New(ctx, cfg)
	if err != nil {
		logger.Fatal("failed to initialize app", map[string]any{
			"error": err.Error(),
		})
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("prescripto-auth started", map[string]any{
			"port": cfg.AppPort,
		})
		return application.Run()
	})

	g.Go(func() error {
		<-gctx.Done() // signal or server failure

		logger.Info("shutdown signal received", nil)

		shutdownCtx, cancel := context.WithTimeout(
			context.Background(),
			10*time.Second,
		)
		defer cancel()

		return application.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Fatal("server stopped with error", map[string]any{
			"error": err.Error(),
		})
	}

	logger.Info("prescripto-auth stopped cleanly", nil)
}
