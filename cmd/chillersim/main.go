// cmd/chillersim/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/acascioli/serial-chiller/internal/config"
	"github.com/acascioli/serial-chiller/internal/simulator"
	"github.com/acascioli/serial-chiller/internal/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := utils.NewLogger(&cfg.Logging)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer utils.CloseLogger(logger)

	serviceLogger := utils.NewServiceLogger(logger, "chiller-simulator")
	serviceLogger.LogServiceStart(cfg.App.Version, cfg.Simulator)

	table := simulator.NewCommandTable(cfg.Simulator.Responses, cfg.Simulator.DefaultResponse)
	responder := simulator.NewResponder(table, cfg.Simulator.ReplyDelay, logger)

	port, err := simulator.OpenPort(&cfg.Simulator)
	if err != nil {
		logger.Fatal("Failed to open serial port",
			zap.String("port", cfg.Simulator.Port),
			zap.Error(err))
	}

	logger.Info("Simulator listening",
		zap.String("port", cfg.Simulator.Port),
		zap.Int("baud_rate", cfg.Simulator.BaudRate),
		zap.Int("commands", table.Len()),
	)

	ctx, cancel := context.WithCancel(context.Background())

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-quit
		logger.Info("Received shutdown signal", zap.String("signal", sig.String()))
		cancel()
		port.Close()
	}()

	if err := responder.Run(ctx, port); err != nil {
		utils.LogError(logger, "Responder stopped with error", err)
	}

	serviceLogger.LogServiceStop("responder finished")
}
