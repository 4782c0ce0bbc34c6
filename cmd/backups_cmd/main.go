package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/2beens/calorietracker/internal/backup"
	"github.com/2beens/calorietracker/internal/config"
	"github.com/2beens/calorietracker/internal/logging"

	log "github.com/sirupsen/logrus"
)

func main() {
	env := flag.String("env", "development", "environment [prod | production | dev | development]")
	configPath := flag.String("config", "./config.toml", "path for the TOML config file")
	credentialsFile := flag.String("gd-creds", "", "google drive credentials json (empty to keep the backup local)")
	flag.Parse()

	cfg, err := config.Load(*env, *configPath)
	if err != nil {
		log.Fatalf("load config: %s", err)
	}

	logging.Setup(logging.LoggerSetupParams{
		LogFileName:      cfg.LogsPath,
		LogToStdout:      true,
		LogLevel:         cfg.LogLevel,
		LogFormatJSON:    cfg.LogFormatJSON,
		Environment:      cfg.Environment,
		SentryEnabled:    cfg.SentryEnabled,
		SentryDSN:        os.Getenv("SENTRY_DSN"),
		SentryServerName: "calorietracker-backup",
	})

	log.Println("starting calorietracker backup ...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	var service *backup.Service
	if *credentialsFile == "" {
		log.Println("no google drive credentials given, backup stays local")
		service = backup.NewService(cfg.DataDir, cfg.BackupDir, nil)
	} else {
		credentialsFileBytes, err := os.ReadFile(*credentialsFile)
		if err != nil {
			log.Fatalf("unable to read client secret file: %v", err)
		}
		uploader, err := backup.NewGoogleDriveUploader(ctx, credentialsFileBytes)
		if err != nil {
			log.Fatalf("failed to create google drive uploader: %s", err)
		}
		service = backup.NewService(cfg.DataDir, cfg.BackupDir, uploader)
	}

	archivePath, err := service.Backup(ctx, time.Now())
	if err != nil {
		log.Fatalf("backup failed: %s", err)
	}
	log.Printf("backup done: %s", archivePath)
}
