package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/2beens/calorietracker/internal/accounts"
	"github.com/2beens/calorietracker/internal/config"
	"github.com/2beens/calorietracker/internal/logging"
	"github.com/2beens/calorietracker/internal/progress"
	"github.com/2beens/calorietracker/internal/records"
	"github.com/2beens/calorietracker/internal/session"
	"github.com/2beens/calorietracker/internal/telemetry/metrics"
	"github.com/2beens/calorietracker/internal/telemetry/tracing"

	log "github.com/sirupsen/logrus"
)

func main() {
	env := flag.String("env", "development", "environment [prod | production | dev | development]")
	configPath := flag.String("config", "./config.toml", "path for the TOML config file")
	flag.Parse()

	if err := run(*env, *configPath); err != nil {
		fmt.Fprintf(os.Stderr, "calorietracker: %s\n", err)
		log.Fatalf("calorietracker: %s", err)
	}
}

func run(env, configPath string) error {
	cfg, err := config.Load(env, configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logging.Setup(logging.LoggerSetupParams{
		LogFileName:      cfg.LogsPath,
		LogToStdout:      cfg.LogToStdout,
		LogLevel:         cfg.LogLevel,
		LogFormatJSON:    cfg.LogFormatJSON,
		Environment:      cfg.Environment,
		SentryEnabled:    cfg.SentryEnabled,
		SentryDSN:        os.Getenv("SENTRY_DSN"),
		SentryServerName: "calorietracker-cli",
	})
	log.Debugf("---->> running in [%s] environment, data dir [%s]", cfg.Environment, cfg.DataDir)

	otelShutdown, err := tracing.HoneycombSetup(cfg.HoneycombEnabled, "calorietracker-cli")
	if err != nil {
		return fmt.Errorf("tracing setup: %w", err)
	}
	defer otelShutdown()

	promRegistry := metrics.SetupPrometheus()
	metricsManager := metrics.NewManager("calorietracker", "cli", promRegistry)
	defer func() {
		if err := metrics.WriteTextfile(promRegistry, cfg.MetricsTextfilePath); err != nil {
			log.Errorf("metrics: %s", err)
		}
	}()

	registry, err := accounts.NewRegistry(cfg.RegistryPath(), metricsManager)
	if err != nil {
		return fmt.Errorf("open registry: %w", err)
	}
	store, err := records.NewStore(cfg.DataDir, metricsManager)
	if err != nil {
		return fmt.Errorf("open records store: %w", err)
	}

	s := session.New(
		os.Stdin,
		os.Stdout,
		registry,
		store,
		progress.NewService(registry, store, metricsManager),
		metricsManager,
	)

	err = s.Run(context.Background())
	if errors.Is(err, accounts.ErrUnderage) {
		// sign up refused, the user has already been told why
		log.Infof("session ended: %s", err)
		return nil
	}
	return err
}
