package cmd

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/ledgerscope/internal/cli"
	"github.com/theirongolddev/ledgerscope/internal/forecast"
	"github.com/theirongolddev/ledgerscope/internal/fraud"
	"github.com/theirongolddev/ledgerscope/internal/store"
)

var flagModelsKind string

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List saved model bundles",
	RunE:  runModels,
}

var modelsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a saved bundle's parameters and metrics",
	Args:  cobra.ExactArgs(1),
	RunE:  runModelsShow,
}

var modelsRmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Delete a saved bundle",
	Args:  cobra.ExactArgs(1),
	RunE:  runModelsRm,
}

func init() {
	modelsCmd.Flags().StringVar(&flagModelsKind, "kind", "", "Only list bundles of this kind (forecast or fraud)")
	modelsCmd.AddCommand(modelsShowCmd, modelsRmCmd)
	rootCmd.AddCommand(modelsCmd)
}

func withStore(fn func(st *store.Store) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()
	return fn(st)
}

func runModels(cmd *cobra.Command, _ []string) error {
	return withStore(func(st *store.Store) error {
		recs, err := st.ListBundles(cmd.Context(), flagModelsKind)
		if err != nil {
			return err
		}
		if flagJSON {
			return printJSON(bundleRows(recs))
		}
		if len(recs) == 0 {
			fmt.Println("\n  No saved bundles.")
			return nil
		}

		fmt.Println()
		fmt.Println(cli.RenderTitle("SAVED MODELS"))
		fmt.Println()

		rows := make([][]string, 0, len(recs))
		for _, r := range recs {
			tuned := "no"
			if r.Tuned {
				tuned = "yes"
			}
			rows = append(rows, []string{
				r.ID,
				r.Kind,
				userLabel(r.UserID),
				cli.FormatTimestamp(r.CreatedAt.Local()),
				tuned,
				cli.Truncate(r.Fingerprint, 12),
			})
		}
		fmt.Print(cli.RenderTable(cli.Table{
			Headers: []string{"ID", "Kind", "Scope", "Created", "Tuned", "Fingerprint"},
			Rows:    rows,
			Aligns:  []cli.Align{cli.AlignLeft, cli.AlignLeft, cli.AlignLeft, cli.AlignLeft, cli.AlignLeft, cli.AlignLeft},
		}))
		return nil
	})
}

type bundleRow struct {
	ID          string `json:"id"`
	Kind        string `json:"kind"`
	UserID      int64  `json:"user_id"`
	CreatedAt   string `json:"created_at"`
	Tuned       bool   `json:"tuned"`
	Fingerprint string `json:"fingerprint"`
}

func bundleRows(recs []store.BundleRecord) []bundleRow {
	out := make([]bundleRow, 0, len(recs))
	for _, r := range recs {
		out = append(out, bundleRow{
			ID:          r.ID,
			Kind:        r.Kind,
			UserID:      r.UserID,
			CreatedAt:   r.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
			Tuned:       r.Tuned,
			Fingerprint: r.Fingerprint,
		})
	}
	return out
}

func runModelsShow(cmd *cobra.Command, args []string) error {
	return withStore(func(st *store.Store) error {
		rec, err := st.Bundle(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if flagJSON {
			fmt.Println(string(rec.Payload))
			return nil
		}

		fmt.Println()
		fmt.Println(cli.RenderTitle(fmt.Sprintf("%s BUNDLE  %s", strings.ToUpper(rec.Kind), rec.ID)))
		fmt.Println()

		switch rec.Kind {
		case forecast.Kind:
			var b forecast.Bundle
			if err := json.Unmarshal(rec.Payload, &b); err != nil {
				return fmt.Errorf("decoding bundle %s: %w", rec.ID, err)
			}
			showForecastBundle(&b)
		case fraud.Kind:
			var b fraud.Bundle
			if err := json.Unmarshal(rec.Payload, &b); err != nil {
				return fmt.Errorf("decoding bundle %s: %w", rec.ID, err)
			}
			showFraudBundle(&b)
		default:
			fmt.Printf("  Unknown bundle kind %q (%d bytes)\n", rec.Kind, len(rec.Payload))
		}
		return nil
	})
}

func showForecastBundle(b *forecast.Bundle) {
	names := make([]string, 0, len(b.Models))
	for name := range b.Models {
		names = append(names, name)
	}
	sort.Strings(names)

	rows := make([][]string, 0, len(names))
	for _, name := range names {
		m := b.Metrics[name]
		label := name
		if name == b.BestModel {
			label += " *"
		}
		rows = append(rows, []string{
			label,
			cli.FormatPercent(b.Weights[name]),
			cli.FormatMetric(m.RMSE, 2),
			cli.FormatMetric(m.R2, 3),
			cli.Muted(b.Params[name]),
		})
	}
	fmt.Print(cli.RenderTable(cli.Table{
		Headers: []string{"Model", "Weight", "RMSE", "R²", "Params"},
		Rows:    rows,
		Aligns:  []cli.Align{cli.AlignLeft, cli.AlignRight, cli.AlignRight, cli.AlignRight, cli.AlignLeft},
	}))
	fmt.Printf("\n  %d features: %s\n", len(b.FeatureNames), cli.Muted(strings.Join(b.FeatureNames, ", ")))
}

func showFraudBundle(b *fraud.Bundle) {
	trees := 0
	if b.Forest != nil {
		trees = len(b.Forest.Trees)
	}
	fmt.Print(cli.RenderTable(cli.Table{
		Rows: [][]string{
			{"Trees", cli.FormatNumber(int64(trees))},
			{"Contamination", cli.FormatPercent(b.Summary.Contamination)},
			{"Training anomalies", cli.FormatNumber(int64(b.Summary.Anomalies))},
			{"Anomaly rate", cli.FormatPercent(b.Summary.AnomalyRate)},
			{"Decision range", fmt.Sprintf("%s .. %s", cli.FormatMetric(b.DecisionMin, 4), cli.FormatMetric(b.DecisionMax, 4))},
		},
	}))
	fmt.Printf("\n  %d features: %s\n", len(b.FeatureNames), cli.Muted(strings.Join(b.FeatureNames, ", ")))
}

func runModelsRm(cmd *cobra.Command, args []string) error {
	return withStore(func(st *store.Store) error {
		if err := st.DeleteBundle(cmd.Context(), args[0]); err != nil {
			return fmt.Errorf("deleting bundle %s: %w", args[0], err)
		}
		if !flagQuiet {
			fmt.Printf("  Deleted bundle %s\n", args[0])
		}
		return nil
	})
}
