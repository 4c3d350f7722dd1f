package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/ledgerscope/internal/cli"
	"github.com/theirongolddev/ledgerscope/internal/config"
	"github.com/theirongolddev/ledgerscope/internal/generator"
	"github.com/theirongolddev/ledgerscope/internal/model"
	"github.com/theirongolddev/ledgerscope/internal/source"
)

var (
	flagGenUsers    int
	flagGenMonths   int
	flagGenPerMonth int
	flagGenOutliers float64
	flagGenSeed     int64
	flagGenStart    string
	flagGenOut      string
	flagGenImport   bool
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a synthetic ledger",
	Long:  "Generate a seeded synthetic ledger with seasonal spending and injected outliers, as CSV or straight into the database.",
	RunE:  runGenerate,
}

func init() {
	def := generator.DefaultConfig()
	generateCmd.Flags().IntVar(&flagGenUsers, "users", def.NumUsers, "Number of users")
	generateCmd.Flags().IntVar(&flagGenMonths, "months", def.Months, "Months of history")
	generateCmd.Flags().IntVar(&flagGenPerMonth, "per-month", def.PerMonth, "Mean transactions per user per month")
	generateCmd.Flags().Float64Var(&flagGenOutliers, "outliers", def.OutlierRate, "Share of anomalous transactions")
	generateCmd.Flags().Int64Var(&flagGenSeed, "seed", def.Seed, "Random seed")
	generateCmd.Flags().StringVar(&flagGenStart, "start", def.Start.Format("2006-01"), "First month (YYYY-MM)")
	generateCmd.Flags().StringVarP(&flagGenOut, "out", "o", "", "Write CSV to this file (default stdout)")
	generateCmd.Flags().BoolVar(&flagGenImport, "import", false, "Store the rows in the database instead of writing CSV")
	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, _ []string) error {
	start, err := time.Parse("2006-01", flagGenStart)
	if err != nil {
		return fmt.Errorf("invalid --start %q: %w", flagGenStart, model.ErrInvalidConfiguration)
	}
	if flagGenOutliers < 0 || flagGenOutliers > 1 {
		return fmt.Errorf("--outliers must be within [0, 1]: %w", model.ErrInvalidConfiguration)
	}

	gen := generator.New(generator.Config{
		NumUsers:    flagGenUsers,
		Months:      flagGenMonths,
		PerMonth:    flagGenPerMonth,
		OutlierRate: flagGenOutliers,
		Start:       start,
		Seed:        flagGenSeed,
	})
	txns, err := gen.Generate(cmd.Context())
	if err != nil {
		return err
	}

	if flagGenImport {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		st, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer st.Close()

		n, err := st.InsertTransactions(cmd.Context(), txns)
		if err != nil {
			return err
		}
		if !flagQuiet {
			fmt.Fprintf(os.Stderr, "  Stored %s transactions for %d users in %s\n",
				cli.FormatNumber(int64(n)), gen.Config().NumUsers, config.DBPath(cfg))
		}
		return nil
	}

	w := os.Stdout
	if flagGenOut != "" {
		f, err := os.Create(flagGenOut)
		if err != nil {
			return fmt.Errorf("creating %s: %w", flagGenOut, err)
		}
		defer f.Close()
		w = f
	}
	if err := source.WriteCSV(w, txns); err != nil {
		return err
	}
	if flagGenOut != "" && !flagQuiet {
		fmt.Fprintf(os.Stderr, "  Wrote %s transactions to %s\n", cli.FormatNumber(int64(len(txns))), flagGenOut)
	}
	return nil
}
