package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	log "github.com/sirupsen/logrus"
)

const (
	defaultDataDir      = "."
	defaultRegistryFile = "database.txt"
	defaultLogsPath     = "calorietracker.log"
	defaultLogLevel     = "info"
	defaultApiHost      = "localhost"
	defaultApiPort      = 9090
)

type Config struct {
	Environment string `toml:"-"`
	// storage
	DataDir      string `toml:"data_dir"`
	RegistryFile string `toml:"registry_file"`
	// logging
	LogLevel      string `toml:"log_level"`
	LogsPath      string `toml:"logs_path"`
	LogToStdout   bool   `toml:"log_to_stdout"`
	LogFormatJSON bool   `toml:"log_format_json"`
	SentryEnabled bool   `toml:"sentry_enabled"`
	// telemetry
	HoneycombEnabled    bool   `toml:"honeycomb_enabled"`
	MetricsTextfilePath string `toml:"metrics_textfile_path"`
	// progress api
	ApiHost string `toml:"api_host"`
	ApiPort int    `toml:"api_port"`
	// backups
	BackupDir string `toml:"backup_dir"`
}

type Toml struct {
	Development *Config
	Production  *Config
}

func (t *Toml) Get(env string) (*Config, error) {
	var cfg *Config
	switch strings.ToLower(env) {
	case "dev", "development":
		cfg = t.Development
	case "prod", "production":
		cfg = t.Production
	default:
		return nil, fmt.Errorf("unknown env: %s", env)
	}
	if cfg == nil {
		return nil, fmt.Errorf("no config section for env: %s", env)
	}
	return cfg, nil
}

// Default is used when no config file is present.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads the TOML file at path and returns the section for env.
// A missing file is not an error, defaults are used instead.
func Load(env, path string) (*Config, error) {
	var t Toml
	if _, err := toml.DecodeFile(path, &t); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			log.Warnf("config file [%s] not found, using defaults", path)
			cfg := Default()
			cfg.Environment = env
			return cfg, nil
		}
		return nil, fmt.Errorf("decode config %s: %w", path, err)
	}

	cfg, err := t.Get(env)
	if err != nil {
		return nil, err
	}
	cfg.Environment = env
	cfg.applyDefaults()

	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.DataDir == "" {
		c.DataDir = defaultDataDir
	}
	if c.RegistryFile == "" {
		c.RegistryFile = defaultRegistryFile
	}
	if c.LogLevel == "" {
		c.LogLevel = defaultLogLevel
	}
	if c.LogsPath == "" && !c.LogToStdout {
		c.LogsPath = defaultLogsPath
	}
	if c.ApiHost == "" {
		c.ApiHost = defaultApiHost
	}
	if c.ApiPort == 0 {
		c.ApiPort = defaultApiPort
	}
	if c.BackupDir == "" {
		c.BackupDir = c.DataDir
	}
}

// RegistryPath resolves the registry file, relative paths being relative to DataDir.
func (c *Config) RegistryPath() string {
	if filepath.IsAbs(c.RegistryFile) {
		return c.RegistryFile
	}
	return filepath.Join(c.DataDir, c.RegistryFile)
}
