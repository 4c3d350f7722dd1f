package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/ledgerscope/internal/cli"
	"github.com/theirongolddev/ledgerscope/internal/pipeline"
)

var importCmd = &cobra.Command{
	Use:   "import <file|dir>",
	Short: "Import CSV ledger files into the database",
	Long: "Parse CSV files (id,user_id,date,amount,category,merchant,payment_method) and store their rows. " +
		"Files unchanged since the last import are skipped.",
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	if !flagQuiet {
		fmt.Fprintf(os.Stderr, "  Scanning %s...\n", args[0])
	}
	res, err := pipeline.Import(cmd.Context(), args[0], st, cfg.General.Workers, progress)
	if err != nil {
		return err
	}
	if !flagQuiet && res.Reparsed > 0 {
		fmt.Fprintln(os.Stderr)
	}
	logger.Info().
		Int("files", res.TotalFiles).
		Int("reparsed", res.Reparsed).
		Int("unchanged", res.Unchanged).
		Int("inserted", res.Inserted).
		Int("parse_errors", res.ParseErrors).
		Int("file_errors", res.FileErrors).
		Msg("import finished")

	if flagJSON {
		return printJSON(map[string]int{
			"files":        res.TotalFiles,
			"reparsed":     res.Reparsed,
			"unchanged":    res.Unchanged,
			"inserted":     res.Inserted,
			"parse_errors": res.ParseErrors,
			"file_errors":  res.FileErrors,
		})
	}

	total, err := st.TransactionCount(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Println()
	fmt.Print(cli.RenderTable(cli.Table{
		Title: "Import",
		Rows: [][]string{
			{"Files found", cli.FormatNumber(int64(res.TotalFiles))},
			{"Parsed", cli.FormatNumber(int64(res.Reparsed))},
			{"Unchanged", cli.FormatNumber(int64(res.Unchanged))},
			{"Rows stored", cli.FormatNumber(int64(res.Inserted))},
			{"Malformed rows", cli.FormatNumber(int64(res.ParseErrors))},
			{"Unreadable files", cli.FormatNumber(int64(res.FileErrors))},
			{"---"},
			{"Ledger rows", cli.FormatNumber(int64(total))},
		},
	}))
	return nil
}
