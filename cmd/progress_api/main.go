package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/2beens/calorietracker/internal/accounts"
	"github.com/2beens/calorietracker/internal/api"
	"github.com/2beens/calorietracker/internal/config"
	"github.com/2beens/calorietracker/internal/logging"
	"github.com/2beens/calorietracker/internal/progress"
	"github.com/2beens/calorietracker/internal/records"
	"github.com/2beens/calorietracker/internal/telemetry/metrics"
	"github.com/2beens/calorietracker/internal/telemetry/tracing"

	"github.com/getsentry/sentry-go"
	log "github.com/sirupsen/logrus"
)

func main() {
	fmt.Println("starting ...")

	env := flag.String("env", "development", "environment [prod | production | dev | development]")
	configPath := flag.String("config", "./config.toml", "path for the TOML config file")
	flag.Parse()

	log.Warnf("---->> running in [%s] environment", *env)

	cfg, err := config.Load(*env, *configPath)
	if err != nil {
		log.Fatalf("load config: %s", err)
	}

	logging.Setup(logging.LoggerSetupParams{
		LogFileName:      cfg.LogsPath,
		LogToStdout:      cfg.LogToStdout,
		LogLevel:         cfg.LogLevel,
		LogFormatJSON:    cfg.LogFormatJSON,
		Environment:      cfg.Environment,
		SentryEnabled:    cfg.SentryEnabled,
		SentryDSN:        os.Getenv("SENTRY_DSN"),
		SentryServerName: "calorietracker-api",
	})

	if cfg.HoneycombEnabled && os.Getenv("HONEYCOMB_API_KEY") == "" {
		log.Warnln("HONEYCOMB_API_KEY env var not set")
	}
	otelShutdown, err := tracing.HoneycombSetup(cfg.HoneycombEnabled, "calorietracker-api")
	if err != nil {
		log.Fatalf("tracing setup: %s", err)
	}

	promRegistry := metrics.SetupPrometheus()
	metricsManager := metrics.NewManager("calorietracker", "api", promRegistry)

	registry, err := accounts.NewRegistry(cfg.RegistryPath(), metricsManager)
	if err != nil {
		log.Fatalf("open registry: %s", err)
	}
	store, err := records.NewStore(cfg.DataDir, metricsManager)
	if err != nil {
		log.Fatalf("open records store: %s", err)
	}

	server := api.NewServer(
		api.NewHandler(progress.NewService(registry, store, metricsManager), registry),
		metricsManager,
		promRegistry,
	)

	chOsInterrupt := make(chan os.Signal, 1)
	signal.Notify(chOsInterrupt, os.Interrupt, syscall.SIGTERM)

	serveErrs := server.Serve(cfg.ApiHost, cfg.ApiPort)
	select {
	case receivedSig := <-chOsInterrupt:
		log.Warnf("signal [%s] received, shutting down ...", receivedSig)
	case err := <-serveErrs:
		if err != nil {
			log.Errorf("api server: %s", err)
		}
	}

	server.GracefulShutdown()
	otelShutdown()

	if ok := sentry.Flush(5 * time.Second); ok {
		log.Debugf("sentry flush ok: %t", ok)
	}
}
