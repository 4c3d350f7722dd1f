package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config holds all ledgerscope configuration.
type Config struct {
	General  GeneralConfig  `toml:"general"`
	Forecast ForecastConfig `toml:"forecast"`
	Fraud    FraudConfig    `toml:"fraud"`
	Alerts   AlertsConfig   `toml:"alerts"`
	Postgres PostgresConfig `toml:"postgres"`
	Logging  LoggingConfig  `toml:"logging"`
	Metrics  MetricsConfig  `toml:"metrics"`
}

// GeneralConfig holds settings shared by both pipelines.
type GeneralConfig struct {
	DBPath  string `toml:"db_path,omitempty"`
	Tune    bool   `toml:"tune"`
	Seed    int64  `toml:"seed"`
	Workers int    `toml:"workers"` // 0 = GOMAXPROCS
}

// ForecastConfig holds monthly spending forecast settings.
type ForecastConfig struct {
	TestFraction     float64         `toml:"test_fraction"`
	CVFolds          int             `toml:"cv_folds"`
	SearchIterations int             `toml:"search_iterations"`
	MinRows          int             `toml:"min_rows"`
	MinTransactions  int             `toml:"min_transactions"`
	MaxLag           int             `toml:"max_lag"`
	Windows          []int           `toml:"windows"`
	EnableXGBoost    bool            `toml:"enable_xgboost"`
	CategoryTopN     int             `toml:"category_top_n"`
	Weights          EnsembleWeights `toml:"weights"`
}

// FraudConfig holds fraud scoring settings.
type FraudConfig struct {
	Contamination   float64 `toml:"contamination"`
	FlagThreshold   float64 `toml:"flag_threshold"`
	TopN            int     `toml:"top_n"`
	MinTransactions int     `toml:"min_transactions"`
}

// AlertsConfig holds Kafka alert settings. No brokers disables alerts.
type AlertsConfig struct {
	Brokers []string `toml:"brokers,omitempty"`
	Topic   string   `toml:"topic"`
	MinRisk string   `toml:"min_risk"`
}

// PostgresConfig points at an alternative Postgres ledger.
type PostgresConfig struct {
	DSN string `toml:"dsn,omitempty"`
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // console or json
}

// MetricsConfig holds the Prometheus textfile destination.
type MetricsConfig struct {
	Textfile string `toml:"textfile,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		General: GeneralConfig{
			Tune: true,
			Seed: 42,
		},
		Forecast: ForecastConfig{
			TestFraction:     0.2,
			CVFolds:          3,
			SearchIterations: 30,
			MinRows:          6,
			MinTransactions:  10,
			MaxLag:           6,
			Windows:          []int{2, 3, 6},
			EnableXGBoost:    true,
			CategoryTopN:     10,
			Weights:          DefaultWeights(),
		},
		Fraud: FraudConfig{
			Contamination:   0.05,
			FlagThreshold:   50,
			TopN:            10,
			MinTransactions: 10,
		},
		Alerts: AlertsConfig{
			Topic:   "ledgerscope.fraud-alerts",
			MinRisk: "High",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Dir returns the XDG-compliant config directory.
func Dir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "ledgerscope")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "ledgerscope")
}

// Path returns the full path to the config file.
func Path() string {
	return filepath.Join(Dir(), "config.toml")
}

// DataDir returns the XDG-compliant data directory holding the database.
func DataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "ledgerscope")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", "ledgerscope")
}

// DBPath returns the configured database path, or the default location.
func DBPath(cfg Config) string {
	if cfg.General.DBPath != "" {
		return cfg.General.DBPath
	}
	return filepath.Join(DataDir(), "ledger.db")
}

// Load reads the config file, returning defaults if it doesn't exist.
func Load() (Config, error) {
	return LoadFrom(Path())
}

// LoadFrom reads the config file at path over the defaults.
func LoadFrom(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path) //nolint:gosec // path is the user's own config file
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Forecast.Weights.Validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}

	return cfg, nil
}

// Save writes the config to disk.
func Save(cfg Config) error {
	return SaveTo(Path(), cfg)
}

// SaveTo writes the config to path, creating its directory.
func SaveTo(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600) //nolint:gosec // path is the user's own config file
	if err != nil {
		return fmt.Errorf("creating config file: %w", err)
	}
	defer f.Close()

	enc := toml.NewEncoder(f)
	return enc.Encode(cfg)
}

// GetPostgresDSN returns the DSN from env var or config, in that order.
func GetPostgresDSN(cfg Config) string {
	if dsn := os.Getenv("LEDGERSCOPE_PG_DSN"); dsn != "" {
		return dsn
	}
	return cfg.Postgres.DSN
}

// Exists returns true if a config file exists on disk.
func Exists() bool {
	_, err := os.Stat(Path())
	return err == nil
}
