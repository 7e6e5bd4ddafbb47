// ====================================
// File: cmd/bot/main.go
// ====================================
package main

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/dex-sniper/internal/bot"
	"github.com/rovshanmuradov/dex-sniper/internal/config"
	"github.com/rovshanmuradov/dex-sniper/internal/logging"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	configPath := "configs/config.json"
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}

	// Config errors are fatal: nothing can run without credentials and
	// trading parameters.
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(logging.DefaultOptions(cfg.LogFile, cfg.DebugLogging))
	defer logging.Sync(logger)
	logger.Info("Starting sniper bot")

	runner, err := bot.NewRunner(cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize bot", zap.Error(err))
		logging.Sync(logger)
		os.Exit(1)
	}

	if err := runner.Run(ctx); err != nil {
		logger.Error("Bot execution error", zap.Error(err))
		logging.Sync(logger)
		os.Exit(1)
	}
}
