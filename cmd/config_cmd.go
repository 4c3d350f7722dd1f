package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/ledgerscope/internal/config"
	"github.com/theirongolddev/ledgerscope/internal/model"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show current configuration",
	RunE:  runConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)
}

func runConfig(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	path := flagConfig
	if path == "" {
		path = config.Path()
	}
	fmt.Printf("  Config file: %s\n", path)
	if fileExists(path) {
		fmt.Println("  Status: loaded")
	} else {
		fmt.Println("  Status: using defaults (no config file)")
	}
	fmt.Println()

	fmt.Println("  [General]")
	fmt.Printf("    Database:          %s\n", config.DBPath(cfg))
	fmt.Printf("    Tune:              %v\n", cfg.General.Tune)
	fmt.Printf("    Seed:              %d\n", cfg.General.Seed)
	fmt.Printf("    Workers:           %s\n", workersLabel(cfg.General.Workers))
	fmt.Println()

	fmt.Println("  [Forecast]")
	fmt.Printf("    Test fraction:     %.2f\n", cfg.Forecast.TestFraction)
	fmt.Printf("    CV folds:          %d\n", cfg.Forecast.CVFolds)
	fmt.Printf("    Search iterations: %d\n", cfg.Forecast.SearchIterations)
	fmt.Printf("    Min rows:          %d\n", cfg.Forecast.MinRows)
	fmt.Printf("    Min transactions:  %d\n", cfg.Forecast.MinTransactions)
	fmt.Printf("    Max lag:           %d\n", cfg.Forecast.MaxLag)
	fmt.Printf("    Windows:           %v\n", cfg.Forecast.Windows)
	fmt.Printf("    XGBoost-style:     %v\n", cfg.Forecast.EnableXGBoost)
	fmt.Printf("    Category top N:    %d\n", cfg.Forecast.CategoryTopN)
	weights := make([]string, 0, len(model.ForecastModels))
	for _, name := range model.ForecastModels {
		weights = append(weights, fmt.Sprintf("%s=%.2f", name, cfg.Forecast.Weights.Get(name)))
	}
	fmt.Printf("    Weights:           %s\n", strings.Join(weights, " "))
	fmt.Println()

	fmt.Println("  [Fraud]")
	fmt.Printf("    Contamination:     %.3f\n", cfg.Fraud.Contamination)
	fmt.Printf("    Flag threshold:    %.0f\n", cfg.Fraud.FlagThreshold)
	fmt.Printf("    Top N:             %d\n", cfg.Fraud.TopN)
	fmt.Printf("    Min transactions:  %d\n", cfg.Fraud.MinTransactions)
	fmt.Println()

	fmt.Println("  [Alerts]")
	if len(cfg.Alerts.Brokers) > 0 {
		fmt.Printf("    Brokers:           %s\n", strings.Join(cfg.Alerts.Brokers, ", "))
		fmt.Printf("    Topic:             %s\n", cfg.Alerts.Topic)
		fmt.Printf("    Min risk:          %s\n", cfg.Alerts.MinRisk)
	} else {
		fmt.Println("    Brokers:           not configured (alerts disabled)")
	}
	fmt.Println()

	fmt.Println("  [Postgres]")
	if dsn := config.GetPostgresDSN(cfg); dsn != "" {
		fmt.Printf("    DSN:               %s\n", maskDSN(dsn))
	} else {
		fmt.Println("    DSN:               not configured")
	}
	fmt.Println()

	fmt.Println("  [Logging]")
	fmt.Printf("    Level:             %s\n", cfg.Logging.Level)
	fmt.Printf("    Format:            %s\n", cfg.Logging.Format)
	if cfg.Metrics.Textfile != "" {
		fmt.Printf("    Metrics textfile:  %s\n", cfg.Metrics.Textfile)
	}
	fmt.Println()

	fmt.Println("  Run `ledgerscope setup` to reconfigure.")
	return nil
}

func workersLabel(n int) string {
	if n <= 0 {
		return "auto"
	}
	return fmt.Sprintf("%d", n)
}

// maskDSN hides the password of a postgres URL or keyword/value DSN.
func maskDSN(dsn string) string {
	if scheme, rest, ok := strings.Cut(dsn, "://"); ok {
		creds, host, ok := strings.Cut(rest, "@")
		if !ok {
			return dsn
		}
		if user, _, hasPass := strings.Cut(creds, ":"); hasPass {
			return scheme + "://" + user + ":****@" + host
		}
		return dsn
	}
	fields := strings.Fields(dsn)
	for i, f := range fields {
		if strings.HasPrefix(f, "password=") {
			fields[i] = "password=****"
		}
	}
	return strings.Join(fields, " ")
}
