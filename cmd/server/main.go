package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/lk2023060901/media-edge-backend/internal/conf"
	"github.com/lk2023060901/media-edge-backend/internal/pkg/injector"
	"github.com/lk2023060901/media-edge-backend/internal/pkg/logger"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

func main() {
	flags := conf.NewFlagSet(os.Args[0])
	if err := flags.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	configFile, _ := flags.GetString("config")

	// Load configuration
	config, err := conf.LoadConfig(configFile, flags)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log, err := logger.New(&config.Log)
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer log.Sync()

	log.Info("config loaded successfully",
		zap.String("config", configFile),
		zap.String("blob_driver", config.Storage.BlobDriver),
		zap.String("kv_driver", config.Storage.KVDriver))

	app, cleanup, err := injector.InitializeApp(config, log)
	if err != nil {
		log.Fatal("failed to initialize application", zap.Error(err))
	}
	defer cleanup()

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.HTTPServer.Start()
	}()

	log.Info("server started successfully")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		log.Info("shutting down server...", zap.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			log.Error("HTTP server failed", zap.Error(err))
		}
	}

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), config.Server.ShutdownTimeout)
	defer cancel()

	if err := app.Shutdown(ctx); err != nil {
		log.Warn("shutdown incomplete", zap.Error(err))
	}

	log.Info("server exited")
}
