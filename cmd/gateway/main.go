package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/opsdeck/opsdeck-backend/internal/gateway"
	"github.com/opsdeck/opsdeck-backend/internal/gateway/config"
	"github.com/opsdeck/opsdeck-backend/pkg/logging"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := config.Init(); err != nil {
		panic(fmt.Sprintf("Failed to initialize config: %v", err))
	}

	logConfig := logging.LoggerConfig{
		ProcessName:   logging.GatewayProcess,
		IsDevelopment: config.IsDevMode(),
	}

	logger, err := logging.NewZapLogger(logConfig)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}

	logger.Info("Starting Gateway service ...")

	server, err := gateway.NewServer(logger)
	if err != nil {
		logger.Fatal("Failed to create gateway server", "error", err)
	}
	logger.Info("[1/2] Gateway server assembled")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start(ctx)
	}()
	logger.Info("[2/2] Gateway service is running")

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-shutdown:
		logger.Info("Received shutdown signal", "signal", sig.String())
	case err := <-serverErr:
		if err != nil {
			logger.Error("Gateway server stopped unexpectedly", "error", err)
		}
	}

	performGracefulShutdown(server, logger)
}

func performGracefulShutdown(server *gateway.Server, logger logging.Logger) {
	logger.Info("Initiating graceful shutdown...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Warn("Non-critical errors during gateway shutdown", "error", err)
	} else {
		logger.Info("Gateway shutdown complete")
	}
}
