package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/aushadhi/client/config"
	httpDelivery "github.com/aushadhi/client/internal/delivery/http"
	"github.com/aushadhi/client/internal/infrastructure/imaging"
	"github.com/aushadhi/client/internal/infrastructure/inference"
	"github.com/aushadhi/client/internal/infrastructure/preview"
	"github.com/aushadhi/client/internal/logging"
	"github.com/aushadhi/client/internal/usecase"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := logging.NewLogger(cfg.Server.Environment)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("starting aushadhi front end",
		zap.String("version", httpDelivery.Version),
		zap.String("environment", cfg.Server.Environment),
		zap.String("port", cfg.Server.Port),
		zap.String("inference_base_url", cfg.Inference.BaseURL),
	)

	// Initialize infrastructure dependencies
	normalizer := imaging.NewNormalizer(logger)
	previews := preview.NewMemoryStore()
	defer previews.Close()

	inferenceClient := inference.NewClient(cfg.Inference.BaseURL, inference.Options{
		Timeout:   cfg.Inference.Timeout,
		RateLimit: cfg.Inference.RateLimit,
		RateBurst: cfg.Inference.RateBurst,
	}, logger)

	// Enable debug mode in development environment
	if cfg.Server.Environment == "development" {
		inferenceClient.SetDebug(true)
		logger.Debug("inference client debug mode enabled")
	}

	// Initialize usecase layer
	machine := usecase.NewMachine(normalizer, inferenceClient, previews, usecase.MachineConfig{
		Params:       cfg.InferenceParams(),
		MaxDimension: cfg.Image.MaxDimension,
		PreviewTTL:   cfg.Preview.TTL,
	}, logger)
	defer machine.Close()

	proxy, err := httpDelivery.NewInferenceProxy(cfg.Inference.BaseURL, logger)
	if err != nil {
		logger.Fatal("failed to create inference proxy", zap.Error(err))
	}

	handler := httpDelivery.NewHandler(machine, previews)
	router := httpDelivery.SetupRouter(cfg, handler, proxy, logger)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	logger.Info("server listening", zap.String("addr", server.Addr))

	if err := serveHTTPServer(server, shutdownTimeout, logger); err != nil {
		logger.Error("server stopped with error", zap.Error(err))
		return
	}
	logger.Info("server stopped")
}

func serveHTTPServer(server *http.Server, shutdownTimeout time.Duration, logger *zap.Logger) error {
	return serveHTTPServerWithOptions(server, shutdownTimeout, logger, nil, nil)
}

func serveHTTPServerWithOptions(server *http.Server, shutdownTimeout time.Duration, logger *zap.Logger, listener net.Listener, signalCh <-chan os.Signal) error {
	errCh := make(chan error, 1)
	go func() {
		var err error
		if listener != nil {
			err = server.Serve(listener)
		} else {
			err = server.ListenAndServe()
		}
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		errCh <- err
	}()

	sigCh := signalCh
	if sigCh == nil {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(ch)
		sigCh = ch
	}

	select {
	case err := <-errCh:
		return err
	case sig, ok := <-sigCh:
		if !ok {
			return <-errCh
		}
		logger.Info("received shutdown signal", zap.String("signal", sig.String()))
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return <-errCh
	}
}
