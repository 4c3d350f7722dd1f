package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/ledgerscope/internal/cli"
	"github.com/theirongolddev/ledgerscope/internal/model"
	"github.com/theirongolddev/ledgerscope/internal/pipeline"
)

var flagBundle string

var fraudCmd = &cobra.Command{
	Use:   "fraud",
	Short: "Score transactions for fraud risk",
	Long: "Train an anomaly forest on the ledger and fuse its score with rule checks. " +
		"With --bundle, score with a previously saved model instead of training.",
	RunE: runFraud,
}

func init() {
	fraudCmd.Flags().StringVar(&flagBundle, "bundle", "", "Score with a saved fraud bundle id")
	rootCmd.AddCommand(fraudCmd)
}

func runFraud(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	s, err := newSession(ctx)
	if err != nil {
		return err
	}
	defer s.close()

	var out pipeline.FraudOutcome
	if flagBundle != "" {
		out = s.runner.FraudWithBundle(ctx, flagUser, flagBundle)
	} else {
		out = s.runner.Fraud(ctx, flagUser)
	}
	if flagJSON {
		return printJSON(out)
	}
	if !out.OK() {
		return fmt.Errorf("fraud scoring failed: %s", out.Message)
	}
	renderFraud(out)
	return nil
}

func renderFraud(out pipeline.FraudOutcome) {
	rep := out.Results

	fmt.Println()
	fmt.Println(cli.RenderTitle(fmt.Sprintf("FRAUD SCORING  %s", userLabel(flagUser))))
	fmt.Println()

	source := "trained"
	if out.Reused {
		source = "reused"
	}
	flaggedShare := 0.0
	if rep.TotalTransactions > 0 {
		flaggedShare = float64(rep.FlaggedTransactions) / float64(rep.TotalTransactions)
	}
	rows := [][]string{
		{"Transactions", cli.FormatNumber(int64(rep.TotalTransactions))},
		{"Flagged", fmt.Sprintf("%s (%s)", cli.FormatNumber(int64(rep.FlaggedTransactions)), cli.FormatPercent(flaggedShare))},
		{"Forest anomalies", fmt.Sprintf("%s of training set (%s)", cli.FormatNumber(int64(rep.Training.Anomalies)), cli.FormatPercent(rep.Training.AnomalyRate))},
		{"Contamination", cli.FormatPercent(rep.Training.Contamination)},
	}
	if out.AlertsSent > 0 {
		rows = append(rows, []string{"Alerts sent", cli.FormatNumber(int64(out.AlertsSent))})
	}
	rows = append(rows, []string{"---"}, []string{"Bundle", cli.Truncate(out.BundleID, 13) + " (" + source + ")"})
	fmt.Print(cli.RenderTable(cli.Table{Title: "Summary", Rows: rows}))
	fmt.Println()

	distRows := make([][]string, 0, len(model.RiskLevels))
	for i := len(model.RiskLevels) - 1; i >= 0; i-- {
		level := model.RiskLevels[i]
		n := rep.RiskDistribution[level]
		distRows = append(distRows, []string{
			cli.RenderRisk(level),
			cli.FormatNumber(int64(n)),
			cli.RenderProgressBar(n, rep.TotalTransactions, 20),
		})
	}
	fmt.Print(cli.RenderTable(cli.Table{
		Title:   "Risk Distribution",
		Headers: []string{"Risk", "Count", ""},
		Rows:    distRows,
		Aligns:  []cli.Align{cli.AlignLeft, cli.AlignRight, cli.AlignLeft},
	}))
	fmt.Println()

	if len(rep.TopFlagged) == 0 {
		fmt.Println("  No transactions above the flag threshold.")
		return
	}
	topRows := make([][]string, 0, len(rep.TopFlagged))
	for _, f := range rep.TopFlagged {
		topRows = append(topRows, []string{
			fmt.Sprintf("%d", f.ID),
			cli.FormatTimestamp(f.Timestamp),
			cli.FormatAmount(f.Amount),
			cli.Truncate(f.Category, 16),
			cli.Truncate(f.Merchant, 22),
			cli.FormatScore(f.Score),
			cli.RenderRisk(f.Risk),
		})
	}
	fmt.Print(cli.RenderTable(cli.Table{
		Title:   "Top Flagged",
		Headers: []string{"ID", "Date", "Amount", "Category", "Merchant", "Score", "Risk"},
		Rows:    topRows,
		Aligns: []cli.Align{cli.AlignRight, cli.AlignLeft, cli.AlignRight, cli.AlignLeft, cli.AlignLeft,
			cli.AlignRight, cli.AlignLeft},
	}))
}
