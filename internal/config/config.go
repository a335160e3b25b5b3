// Package config loads an immutable configuration value for the process. Config is
// read once at startup from defaults, an optional TOML file, a .env file, and the
// environment, in ascending priority, then never mutated again — every component
// receives it by value at construction ("global mutable settings
// singleton").
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Transport selects the ingestion transport policy for a provider.
type Transport string

const (
	TransportWS   Transport = "ws"
	TransportREST Transport = "rest"
	TransportAuto Transport = "auto"
)

// Config is the fully resolved, immutable application configuration.
type Config struct {
	// DataDir is where the embedded bar store lives.
	DataDir string
	// StorePath is the resolved path to the SQLite database file.
	StorePath string

	// HTTPAddr is the bind address for the HTTP API, e.g. ":8080".
	HTTPAddr string

	// LogLevel is a zerolog level name.
	LogLevel string
	// LogPretty enables the console writer.
	LogPretty bool

	// BinanceSymbols is the uppercase subscription set.
	BinanceSymbols []string
	// BinanceTransport selects ws / rest / auto.
	BinanceTransport Transport
	// BinanceRESTPollSeconds is the REST polling cadence.
	BinanceRESTPollSeconds float64

	// BarIntervals is the enabled set of higher-timeframe targets. Always includes 1m.
	BarIntervals []string

	// BackupS3Bucket, when non-empty, enables periodic S3/R2 snapshot backups.
	BackupS3Bucket          string
	BackupS3Endpoint        string
	BackupS3Region          string
	BackupS3AccessKeyID     string
	BackupS3SecretAccessKey string
	// BackupIntervalSeconds is the cron cadence between snapshot attempts.
	BackupIntervalSeconds float64
	// BackupRetentionDays prunes snapshots older than this; 0 disables pruning.
	BackupRetentionDays int
}

// fileConfig mirrors the subset of Config a TOML file may override.
type fileConfig struct {
	DataDir                string   `toml:"data_dir"`
	HTTPAddr               string   `toml:"http_addr"`
	LogLevel               string   `toml:"log_level"`
	BinanceSymbols         []string `toml:"binance_symbols"`
	BinanceTransport       string   `toml:"binance_transport"`
	BinanceRESTPollSeconds float64  `toml:"binance_rest_poll_seconds"`
	BarIntervals           []string `toml:"bar_intervals"`
	BackupS3Bucket          string  `toml:"backup_s3_bucket"`
	BackupS3Endpoint        string  `toml:"backup_s3_endpoint"`
	BackupS3Region          string  `toml:"backup_s3_region"`
	BackupS3AccessKeyID     string  `toml:"backup_s3_access_key_id"`
	BackupS3SecretAccessKey string  `toml:"backup_s3_secret_access_key"`
	BackupIntervalSeconds   float64 `toml:"backup_interval_seconds"`
	BackupRetentionDays     int     `toml:"backup_retention_days"`
}

func defaults() Config {
	return Config{
		DataDir:                "./data",
		HTTPAddr:               ":8080",
		LogLevel:               "info",
		LogPretty:              true,
		BinanceSymbols:         []string{"BTCUSDT"},
		BinanceTransport:       TransportAuto,
		BinanceRESTPollSeconds: 2.0,
		BarIntervals:           []string{"1m", "5m", "15m", "1h", "4h", "1d", "1w"},
		BackupIntervalSeconds:  86400,
		BackupRetentionDays:    30,
	}
}

// Load resolves configuration from defaults, an optional TOML file (tomlPath, may be
// empty), a .env file in the working directory (if present), and the process
// environment, in that ascending priority.
func Load(tomlPath string) (Config, error) {
	cfg := defaults()

	if tomlPath != "" {
		var fc fileConfig
		if _, err := toml.DecodeFile(tomlPath, &fc); err != nil {
			return Config{}, fmt.Errorf("config: failed to parse TOML file %s: %w", tomlPath, err)
		}
		applyFileConfig(&cfg, fc)
	}

	// .env is optional; a missing file is not an error.
	_ = godotenv.Load()

	applyEnv(&cfg)

	if err := cfg.normalize(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyFileConfig(cfg *Config, fc fileConfig) {
	if fc.DataDir != "" {
		cfg.DataDir = fc.DataDir
	}
	if fc.HTTPAddr != "" {
		cfg.HTTPAddr = fc.HTTPAddr
	}
	if fc.LogLevel != "" {
		cfg.LogLevel = fc.LogLevel
	}
	if len(fc.BinanceSymbols) > 0 {
		cfg.BinanceSymbols = fc.BinanceSymbols
	}
	if fc.BinanceTransport != "" {
		cfg.BinanceTransport = Transport(fc.BinanceTransport)
	}
	if fc.BinanceRESTPollSeconds > 0 {
		cfg.BinanceRESTPollSeconds = fc.BinanceRESTPollSeconds
	}
	if len(fc.BarIntervals) > 0 {
		cfg.BarIntervals = fc.BarIntervals
	}
	if fc.BackupS3Bucket != "" {
		cfg.BackupS3Bucket = fc.BackupS3Bucket
	}
	if fc.BackupS3Endpoint != "" {
		cfg.BackupS3Endpoint = fc.BackupS3Endpoint
	}
	if fc.BackupS3Region != "" {
		cfg.BackupS3Region = fc.BackupS3Region
	}
	if fc.BackupS3AccessKeyID != "" {
		cfg.BackupS3AccessKeyID = fc.BackupS3AccessKeyID
	}
	if fc.BackupS3SecretAccessKey != "" {
		cfg.BackupS3SecretAccessKey = fc.BackupS3SecretAccessKey
	}
	if fc.BackupIntervalSeconds > 0 {
		cfg.BackupIntervalSeconds = fc.BackupIntervalSeconds
	}
	if fc.BackupRetentionDays > 0 {
		cfg.BackupRetentionDays = fc.BackupRetentionDays
	}
}

func applyEnv(cfg *Config) {
	if v, ok := os.LookupEnv("MARKETPULSE_DATA_DIR"); ok && v != "" {
		cfg.DataDir = v
	}
	if v, ok := os.LookupEnv("MARKETPULSE_HTTP_ADDR"); ok && v != "" {
		cfg.HTTPAddr = v
	}
	if v, ok := os.LookupEnv("MARKETPULSE_LOG_LEVEL"); ok && v != "" {
		cfg.LogLevel = v
	}
	if v, ok := os.LookupEnv("MARKETPULSE_LOG_PRETTY"); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.LogPretty = b
		}
	}
	if v, ok := os.LookupEnv("MARKETPULSE_BINANCE_SYMBOLS"); ok && v != "" {
		cfg.BinanceSymbols = splitCSV(v)
	}
	if v, ok := os.LookupEnv("MARKETPULSE_BINANCE_TRANSPORT"); ok && v != "" {
		cfg.BinanceTransport = Transport(strings.ToLower(v))
	}
	if v, ok := os.LookupEnv("MARKETPULSE_REST_POLL_SECONDS"); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			cfg.BinanceRESTPollSeconds = f
		}
	}
	if v, ok := os.LookupEnv("MARKETPULSE_BAR_INTERVALS"); ok && v != "" {
		cfg.BarIntervals = splitCSV(v)
	}
	if v, ok := os.LookupEnv("MARKETPULSE_BACKUP_S3_BUCKET"); ok && v != "" {
		cfg.BackupS3Bucket = v
	}
	if v, ok := os.LookupEnv("MARKETPULSE_BACKUP_S3_ENDPOINT"); ok && v != "" {
		cfg.BackupS3Endpoint = v
	}
	if v, ok := os.LookupEnv("MARKETPULSE_BACKUP_S3_REGION"); ok && v != "" {
		cfg.BackupS3Region = v
	}
	if v, ok := os.LookupEnv("MARKETPULSE_BACKUP_S3_ACCESS_KEY_ID"); ok && v != "" {
		cfg.BackupS3AccessKeyID = v
	}
	if v, ok := os.LookupEnv("MARKETPULSE_BACKUP_S3_SECRET_ACCESS_KEY"); ok && v != "" {
		cfg.BackupS3SecretAccessKey = v
	}
	if v, ok := os.LookupEnv("MARKETPULSE_BACKUP_INTERVAL_SECONDS"); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			cfg.BackupIntervalSeconds = f
		}
	}
	if v, ok := os.LookupEnv("MARKETPULSE_BACKUP_RETENTION_DAYS"); ok && v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.BackupRetentionDays = n
		}
	}
}

// normalize resolves the data directory to an absolute path, creates it if missing,
// derives StorePath, uppercases symbols, and ensures "1m" is always enabled.
func (cfg *Config) normalize() error {
	absDir, err := filepath.Abs(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("config: failed to resolve data directory: %w", err)
	}
	if err := os.MkdirAll(absDir, 0755); err != nil {
		return fmt.Errorf("config: failed to create data directory: %w", err)
	}
	cfg.DataDir = absDir
	cfg.StorePath = filepath.Join(absDir, "bars.db")

	upper := make([]string, 0, len(cfg.BinanceSymbols))
	for _, s := range cfg.BinanceSymbols {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s != "" {
			upper = append(upper, s)
		}
	}
	cfg.BinanceSymbols = upper
	if len(cfg.BinanceSymbols) == 0 {
		return fmt.Errorf("config: at least one binance symbol must be configured")
	}

	switch cfg.BinanceTransport {
	case TransportWS, TransportREST, TransportAuto:
	default:
		return fmt.Errorf("config: invalid binance_transport %q", cfg.BinanceTransport)
	}

	hasOneMinute := false
	for _, iv := range cfg.BarIntervals {
		if iv == "1m" {
			hasOneMinute = true
			break
		}
	}
	if !hasOneMinute {
		cfg.BarIntervals = append([]string{"1m"}, cfg.BarIntervals...)
	}

	return nil
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
