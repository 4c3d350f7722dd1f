// Package cmd implements the ledgerscope CLI commands.
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/theirongolddev/ledgerscope/internal/alert"
	"github.com/theirongolddev/ledgerscope/internal/config"
	"github.com/theirongolddev/ledgerscope/internal/logging"
	"github.com/theirongolddev/ledgerscope/internal/metrics"
	"github.com/theirongolddev/ledgerscope/internal/model"
	"github.com/theirongolddev/ledgerscope/internal/pipeline"
	"github.com/theirongolddev/ledgerscope/internal/store"
)

var (
	flagConfig      string
	flagDB          string
	flagUser        int64
	flagNoTune      bool
	flagJSON        bool
	flagQuiet       bool
	flagLogLevel    string
	flagMetricsFile string
	flagReuse       bool
	flagPostgres    bool
)

var rootCmd = &cobra.Command{
	Use:   "ledgerscope",
	Short: "Expense forecasting and fraud scoring for transaction ledgers",
	Long:  "Forecast next month's spending and score transactions for fraud from a local or Postgres ledger.",
	RunE:  runSummary,

	SilenceUsage: true,
}

// Execute is the main entry point called from main.go.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Config file (default "+config.Path()+")")
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "SQLite ledger database")
	rootCmd.PersistentFlags().Int64VarP(&flagUser, "user", "u", 0, "Restrict to one user id (0 = all users)")
	rootCmd.PersistentFlags().BoolVar(&flagNoTune, "no-tune", false, "Skip hyperparameter search and use default parameters")
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "Print results as JSON")
	rootCmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "Suppress progress output")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&flagMetricsFile, "metrics-file", "", "Write Prometheus metrics to this textfile after the run")
	rootCmd.PersistentFlags().BoolVar(&flagReuse, "reuse", false, "Reuse the latest saved models when the ledger is unchanged")
	rootCmd.PersistentFlags().BoolVar(&flagPostgres, "postgres", false, "Read transactions from Postgres (dsn from config or LEDGERSCOPE_PG_DSN)")
}

// loadConfig reads the config file and applies flag overrides.
func loadConfig() (config.Config, error) {
	path := flagConfig
	if path == "" {
		path = config.Path()
	}
	cfg, err := config.LoadFrom(path)
	if err != nil {
		return cfg, err
	}

	if flagDB != "" {
		cfg.General.DBPath = flagDB
	}
	if flagNoTune {
		cfg.General.Tune = false
	}
	if flagLogLevel != "" {
		cfg.Logging.Level = flagLogLevel
	}
	if flagMetricsFile != "" {
		cfg.Metrics.Textfile = flagMetricsFile
	}
	return cfg, nil
}

func newLogger(cfg config.Config) zerolog.Logger {
	if flagQuiet && flagLogLevel == "" {
		cfg.Logging.Level = "error"
	}
	return logging.New(cfg.Logging, os.Stderr)
}

// openStore opens the SQLite database, creating its directory on first use.
func openStore(cfg config.Config) (*store.Store, error) {
	path := config.DBPath(cfg)
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("creating data dir: %w", err)
	}
	return store.Open(path)
}

// session bundles everything a pipeline command needs. close releases the
// store, the Postgres pool and the alert producer, and writes the metrics
// textfile when one is configured.
type session struct {
	cfg    config.Config
	store  *store.Store
	runner *pipeline.Runner
	close  func()
}

func newSession(ctx context.Context) (*session, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger := newLogger(cfg)

	st, err := openStore(cfg)
	if err != nil {
		return nil, err
	}
	closers := []func(){func() { _ = st.Close() }}
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	var src pipeline.Source = st
	if flagPostgres {
		dsn := config.GetPostgresDSN(cfg)
		if dsn == "" {
			cleanup()
			return nil, fmt.Errorf("--postgres needs [postgres] dsn or LEDGERSCOPE_PG_DSN: %w", model.ErrInvalidConfiguration)
		}
		pg, err := store.NewPostgresSource(ctx, dsn)
		if err != nil {
			cleanup()
			return nil, err
		}
		closers = append(closers, pg.Close)
		src = pg
	}

	var pub alert.Publisher = alert.Nop{}
	if len(cfg.Alerts.Brokers) > 0 {
		kp, err := alert.NewKafkaPublisher(cfg.Alerts.Brokers, cfg.Alerts.Topic, model.RiskLevel(cfg.Alerts.MinRisk))
		if err != nil {
			cleanup()
			return nil, err
		}
		closers = append(closers, func() { _ = kp.Close() })
		pub = kp
	}

	recorder := metrics.NewRecorder()
	if cfg.Metrics.Textfile != "" {
		path := cfg.Metrics.Textfile
		// Closers run in reverse, so metrics are written before anything is released.
		closers = append(closers, func() {
			if err := recorder.WriteTextfile(path); err != nil {
				logger.Warn().Err(err).Str("path", path).Msg("writing metrics textfile")
			}
		})
	}

	return &session{
		cfg:   cfg,
		store: st,
		runner: &pipeline.Runner{
			Source:   src,
			Bundles:  st,
			Alerts:   pub,
			Config:   cfg,
			Logger:   logger,
			Recorder: recorder,
			Reuse:    flagReuse,
		},
		close: cleanup,
	}, nil
}

// progress prints a parse progress line on stderr unless --quiet is set.
func progress(current, total int) {
	if flagQuiet {
		return
	}
	if current%50 == 0 || current == total {
		fmt.Fprintf(os.Stderr, "\r  Parsing [%d/%d]", current, total)
	}
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding output: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func userLabel(userID int64) string {
	if userID == 0 {
		return "All users"
	}
	return fmt.Sprintf("User %d", userID)
}
