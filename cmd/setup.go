package cmd

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/theirongolddev/ledgerscope/internal/config"
	"github.com/theirongolddev/ledgerscope/internal/model"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "First-time setup wizard",
	RunE:  runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

func runSetup(_ *cobra.Command, _ []string) error {
	path := flagConfig
	if path == "" {
		path = config.Path()
	}
	cfg, err := config.LoadFrom(path)
	if err != nil {
		cfg = config.DefaultConfig()
	}

	dbPath := config.DBPath(cfg)
	tune := cfg.General.Tune
	contamination := strconv.FormatFloat(cfg.Fraud.Contamination, 'f', -1, 64)
	threshold := strconv.FormatFloat(cfg.Fraud.FlagThreshold, 'f', -1, 64)
	brokers := strings.Join(cfg.Alerts.Brokers, ",")
	topic := cfg.Alerts.Topic
	minRisk := cfg.Alerts.MinRisk
	dsn := cfg.Postgres.DSN
	logLevel := cfg.Logging.Level
	logFormat := cfg.Logging.Format

	riskOptions := make([]string, 0, len(model.RiskLevels))
	for _, l := range model.RiskLevels {
		riskOptions = append(riskOptions, string(l))
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewNote().
				Title("Welcome to ledgerscope").
				Description("Settings are written to "+path+".\nEvery value can be overridden with a flag later."),
			huh.NewInput().
				Title("Ledger database").
				Description("SQLite file holding imported transactions and saved models.").
				Value(&dbPath).
				Validate(notEmpty),
			huh.NewConfirm().
				Title("Tune hyperparameters?").
				Description("Searching parameters is slower but usually more accurate.").
				Affirmative("Yes").
				Negative("No").
				Value(&tune),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Fraud contamination").
				Description("Expected share of anomalous transactions, in (0, 0.5].").
				Value(&contamination).
				Validate(floatIn(0, 0.5, false)),
			huh.NewInput().
				Title("Flag threshold").
				Description("Transactions scoring above this (0-100) are flagged.").
				Value(&threshold).
				Validate(floatIn(0, 100, true)),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Kafka brokers").
				Description("Comma-separated host:port list. Leave empty to disable alerts.").
				Value(&brokers),
			huh.NewInput().
				Title("Alert topic").
				Value(&topic).
				Validate(notEmpty),
			huh.NewSelect[string]().
				Title("Minimum alert risk").
				Options(huh.NewOptions(riskOptions...)...).
				Value(&minRisk),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Postgres DSN").
				Description("Optional ledger source for --postgres. LEDGERSCOPE_PG_DSN takes precedence.").
				EchoMode(huh.EchoModePassword).
				Value(&dsn),
			huh.NewSelect[string]().
				Title("Log level").
				Options(huh.NewOptions("debug", "info", "warn", "error")...).
				Value(&logLevel),
			huh.NewSelect[string]().
				Title("Log format").
				Options(huh.NewOptions("console", "json")...).
				Value(&logFormat),
		),
	)

	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			fmt.Println("  Setup cancelled, nothing written.")
			return nil
		}
		return err
	}

	if dbPath != config.DBPath(config.DefaultConfig()) {
		cfg.General.DBPath = strings.TrimSpace(dbPath)
	}
	cfg.General.Tune = tune
	cfg.Fraud.Contamination, _ = strconv.ParseFloat(strings.TrimSpace(contamination), 64)
	cfg.Fraud.FlagThreshold, _ = strconv.ParseFloat(strings.TrimSpace(threshold), 64)
	cfg.Alerts.Brokers = splitList(brokers)
	cfg.Alerts.Topic = strings.TrimSpace(topic)
	cfg.Alerts.MinRisk = minRisk
	cfg.Postgres.DSN = strings.TrimSpace(dsn)
	cfg.Logging.Level = logLevel
	cfg.Logging.Format = logFormat

	if err := config.SaveTo(path, cfg); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}
	fmt.Printf("\n  Saved to %s\n", path)
	fmt.Println("  Next: `ledgerscope import <csv>` or `ledgerscope generate --import`, then `ledgerscope forecast`.")
	return nil
}

func notEmpty(s string) error {
	if strings.TrimSpace(s) == "" {
		return errors.New("required")
	}
	return nil
}

// floatIn validates a number within (lo, hi], or [lo, hi] when closed.
func floatIn(lo, hi float64, closed bool) func(string) error {
	return func(s string) error {
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return errors.New("not a number")
		}
		if v > hi || v < lo || (!closed && v == lo) {
			return fmt.Errorf("must be within %g and %g", lo, hi)
		}
		return nil
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
