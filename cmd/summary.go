package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/ledgerscope/internal/cli"
	"github.com/theirongolddev/ledgerscope/internal/model"
	"github.com/theirongolddev/ledgerscope/internal/pipeline"
	"github.com/theirongolddev/ledgerscope/internal/store"
)

var (
	flagSince string
	flagUntil string
)

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Ledger summary with monthly spend and breakdowns",
	RunE:  runSummary,
}

func init() {
	for _, c := range []*cobra.Command{rootCmd, summaryCmd} {
		c.Flags().StringVar(&flagSince, "since", "", "Only transactions on or after this date (YYYY-MM-DD)")
		c.Flags().StringVar(&flagUntil, "until", "", "Only transactions before this date (YYYY-MM-DD)")
	}
	rootCmd.AddCommand(summaryCmd)
}

func runSummary(cmd *cobra.Command, _ []string) error {
	since, until, err := parseWindow()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	s, err := newSession(ctx)
	if err != nil {
		return err
	}
	defer s.close()

	txns, err := s.runner.Source.Transactions(ctx, flagUser)
	if err != nil {
		return err
	}
	txns = pipeline.FilterByTime(txns, since, until)
	if len(txns) == 0 {
		fmt.Println("\n  No transactions found.")
		fmt.Println("  Import a CSV ledger with `ledgerscope import` or try `ledgerscope generate --import`.")
		return nil
	}

	sum := pipeline.Summarize(txns)
	buckets, err := pipeline.AggregateMonthly(txns)
	if err != nil {
		return err
	}
	cats := pipeline.CategoryBreakdown(txns)
	pays := pipeline.PaymentBreakdown(txns)

	if flagJSON {
		monthly := make([]pipeline.MonthTotal, 0, len(buckets))
		for _, b := range buckets {
			monthly = append(monthly, pipeline.MonthTotal{Month: b.Key(), Total: b.Total})
		}
		return printJSON(map[string]any{
			"transactions":    sum.Transactions,
			"users":           sum.Users,
			"total":           sum.Total,
			"average":         sum.Average,
			"largest":         sum.Largest,
			"first":           sum.First.Timestamp,
			"last":            sum.Last.Timestamp,
			"monthly":         monthly,
			"categories":      cats,
			"payment_methods": pays,
		})
	}

	fmt.Println()
	fmt.Println(cli.RenderTitle(fmt.Sprintf("LEDGER SUMMARY  %s", userLabel(flagUser))))
	fmt.Println()

	rows := [][]string{
		{"Transactions", cli.FormatNumber(int64(sum.Transactions))},
		{"Users", cli.FormatNumber(int64(sum.Users))},
		{"Period", fmt.Sprintf("%s .. %s", sum.First.Timestamp.Format("2006-01-02"), sum.Last.Timestamp.Format("2006-01-02"))},
		{"---"},
		{"Total spend", cli.FormatDecimal(sum.Total)},
		{"Average txn", cli.FormatDecimal(sum.Average)},
		{"Largest txn", cli.FormatDecimal(sum.Largest)},
	}
	if n := len(buckets); n > 0 {
		last := buckets[n-1]
		monthStr := cli.FormatAmount(last.Total)
		if n > 1 {
			monthStr += fmt.Sprintf("  (%s vs %s)", cli.FormatDelta(last.Total, buckets[n-2].Total), buckets[n-2].Key())
		}
		rows = append(rows, []string{"---"}, []string{"Last month " + last.Key(), monthStr})
		rows = append(rows, []string{"Monthly spend", cli.RenderSparkline(pipeline.MonthlyTotals(buckets))})
	}
	fmt.Print(cli.RenderTable(cli.Table{Headers: []string{"Metric", "Value"}, Rows: rows}))
	fmt.Println()

	fmt.Print(cli.RenderTable(breakdownTable("Categories", "Category", cats)))
	fmt.Println()
	fmt.Print(cli.RenderTable(breakdownTable("Payment Methods", "Method", pays)))

	if flagUser == 0 && !flagPostgres {
		users, err := s.store.Users(ctx)
		if err != nil {
			return err
		}
		if len(users) > 1 {
			fmt.Println()
			fmt.Print(cli.RenderTable(usersTable(users)))
		}
	}
	return nil
}

func parseWindow() (time.Time, time.Time, error) {
	var since, until time.Time
	var err error
	if flagSince != "" {
		if since, err = time.Parse("2006-01-02", flagSince); err != nil {
			return since, until, fmt.Errorf("invalid --since %q: %w", flagSince, model.ErrInvalidConfiguration)
		}
	}
	if flagUntil != "" {
		if until, err = time.Parse("2006-01-02", flagUntil); err != nil {
			return since, until, fmt.Errorf("invalid --until %q: %w", flagUntil, model.ErrInvalidConfiguration)
		}
	}
	return since, until, nil
}

func breakdownTable(title, keyHeader string, rows []pipeline.SpendRow) cli.Table {
	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, []string{
			r.Key,
			cli.FormatDecimal(r.Total),
			cli.FormatNumber(int64(r.Count)),
			cli.FormatDecimal(r.Average),
			cli.FormatPercent(r.Share),
			cli.RenderHorizontalBar(r.Share, rows[0].Share, 16),
		})
	}
	return cli.Table{
		Title:   title,
		Headers: []string{keyHeader, "Total", "Txns", "Average", "Share", ""},
		Rows:    out,
		Aligns:  []cli.Align{cli.AlignLeft, cli.AlignRight, cli.AlignRight, cli.AlignRight, cli.AlignRight, cli.AlignLeft},
	}
}

func usersTable(users []store.UserSummary) cli.Table {
	rows := make([][]string, 0, len(users))
	for _, u := range users {
		rows = append(rows, []string{
			fmt.Sprintf("%d", u.UserID),
			cli.FormatNumber(int64(u.Count)),
			cli.FormatDecimal(u.Total),
			u.First.Format("2006-01-02"),
			u.Last.Format("2006-01-02"),
		})
	}
	return cli.Table{
		Title:   "Users",
		Headers: []string{"User", "Txns", "Total", "First", "Last"},
		Rows:    rows,
	}
}
