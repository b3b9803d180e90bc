package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"qitrader/internal/alert"
	"qitrader/internal/config"
	"qitrader/internal/engine"
	"qitrader/internal/exchange/okx"
	"qitrader/internal/market"
	"qitrader/internal/strategy/probe"
	"qitrader/pkg/logging"
	"qitrader/pkg/telemetry"
)

var (
	// Version information (set via build flags)
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	configPath := flag.String("config", "configs/trader.yaml", "Path to configuration file")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("trader version %s (built %s)\n", version, buildTime)
		os.Exit(0)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	tel, err := telemetry.Setup("qitrader")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to set up telemetry: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.NewZapLogger(cfg.System.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}

	logger.Info("starting trader",
		"version", version,
		"sim", cfg.Okx.Sim,
		"symbol", cfg.Trading.Symbol,
	)

	metrics := telemetry.NewMetricsServer(cfg.System.MetricsPort, logger)
	metrics.Start()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	eng := engine.New(logger)
	cache := market.NewCache()

	notifier := alert.NewNotifier(eng, logger)
	if cfg.Notice.Enabled {
		notifier.AddChannel(alert.NewWebhookChannel(cfg.Notice.WebhookURL))
	}

	eng.RegisterComponent(notifier)
	eng.RegisterComponent(probe.New(eng, cfg.Trading.Symbol, cfg.Trading.ProbeOrder, logger))
	eng.RegisterComponent(okx.New(eng, cfg.Okx, cache, logger))

	err = eng.Run(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = metrics.Stop(shutdownCtx)
	_ = tel.Shutdown(shutdownCtx)
	_ = logger.Sync()

	if err != nil {
		logger.Error("trader stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("trader stopped")
}
