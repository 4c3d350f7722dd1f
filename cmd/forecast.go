package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/ledgerscope/internal/cli"
	"github.com/theirongolddev/ledgerscope/internal/model"
	"github.com/theirongolddev/ledgerscope/internal/pipeline"
)

var forecastCmd = &cobra.Command{
	Use:   "forecast",
	Short: "Forecast next month's spending",
	RunE:  runForecast,
}

func init() {
	rootCmd.AddCommand(forecastCmd)
}

func runForecast(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	s, err := newSession(ctx)
	if err != nil {
		return err
	}
	defer s.close()

	out := s.runner.Forecast(ctx, flagUser)
	if flagJSON {
		return printJSON(out)
	}
	if !out.OK() {
		return fmt.Errorf("forecast failed: %s", out.Message)
	}
	renderForecast(out)
	return nil
}

func renderForecast(out pipeline.ForecastOutcome) {
	pred := out.Predictions

	fmt.Println()
	fmt.Println(cli.RenderTitle(fmt.Sprintf("SPEND FORECAST  %s  %s", userLabel(flagUser), pred.Month)))
	fmt.Println()

	source := "trained"
	if out.Reused {
		source = "reused"
	}
	fmt.Print(cli.RenderTable(cli.Table{
		Title: "Next Month",
		Rows: [][]string{
			{"Ensemble", cli.FormatAmount(pred.Ensemble)},
			{"Confidence", cli.FormatPercent(pred.Confidence / 100)},
			{"Trend", cli.RenderTrend(pred.Trend)},
			{"Best model", pred.BestModel},
			{"---"},
			{"Bundle", cli.Truncate(out.BundleID, 13) + " (" + source + ")"},
		},
	}))
	fmt.Println()

	names := make([]string, 0, len(out.ModelResults))
	for name := range out.ModelResults {
		if name != model.ModelEnsemble {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	rows := make([][]string, 0, len(names)+2)
	for _, name := range names {
		rows = append(rows, modelRow(name, out.ModelResults[name], pred.Predictions[name]))
	}
	if m, ok := out.ModelResults[model.ModelEnsemble]; ok {
		rows = append(rows, []string{"---"}, modelRow(model.ModelEnsemble, m, pred.Ensemble))
	}
	fmt.Print(cli.RenderTable(cli.Table{
		Title:   "Models",
		Headers: []string{"Model", "Prediction", "RMSE", "R²", "MAPE"},
		Rows:    rows,
	}))
	fmt.Println()

	if len(out.MonthlyTotals) > 0 {
		values := make([]float64, len(out.MonthlyTotals))
		for i, m := range out.MonthlyTotals {
			values[i] = m.Total
		}
		first, last := out.MonthlyTotals[0], out.MonthlyTotals[len(out.MonthlyTotals)-1]
		fmt.Printf("  Monthly spend  %s  %s\n", cli.RenderSparkline(values),
			cli.Muted(fmt.Sprintf("%s .. %s, last %s", first.Month, last.Month, cli.FormatAmount(last.Total))))
		fmt.Println()
	}

	if len(out.CategoryPredictions) > 0 {
		peak := out.CategoryPredictions[0].PredictedAmount
		catRows := make([][]string, 0, len(out.CategoryPredictions))
		for _, c := range out.CategoryPredictions {
			catRows = append(catRows, []string{
				c.Category,
				cli.FormatAmount(c.PredictedAmount),
				cli.FormatPercent(c.Confidence / 100),
				cli.RenderTrend(c.Trend),
				cli.FormatAmount(c.AvgTransaction),
				cli.FormatNumber(int64(c.TransactionCount)),
				cli.RenderHorizontalBar(c.PredictedAmount, peak, 16),
			})
		}
		fmt.Print(cli.RenderTable(cli.Table{
			Title:   "Categories",
			Headers: []string{"Category", "Predicted", "Conf.", "Trend", "Avg Txn", "Txns", ""},
			Rows:    catRows,
			Aligns:  []cli.Align{cli.AlignLeft, cli.AlignRight, cli.AlignRight, cli.AlignLeft, cli.AlignRight, cli.AlignRight, cli.AlignLeft},
		}))
	}
}

func modelRow(name string, m model.EvalMetrics, prediction float64) []string {
	return []string{
		name,
		cli.FormatAmount(prediction),
		cli.FormatMetric(m.RMSE, 2),
		cli.FormatMetric(m.R2, 3),
		cli.FormatMetric(m.MAPE, 1) + "%",
	}
}
