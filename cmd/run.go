package cmd

import (
	"github.com/spf13/cobra"

	"github.com/theirongolddev/ledgerscope/internal/pipeline"
)

var flagTask string

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run forecasting and/or fraud scoring and print one JSON document",
	Long: "Run the selected task and print {task, user_id, tuning, expense_prediction, fraud_detection}. " +
		"Section failures are reported inside the document; the command only fails on bad arguments.",
	RunE: runTask,
}

func init() {
	runCmd.Flags().StringVar(&flagTask, "task", pipeline.TaskAll, "Task to run: all, predict or fraud")
	rootCmd.AddCommand(runCmd)
}

func runTask(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	s, err := newSession(ctx)
	if err != nil {
		return err
	}
	defer s.close()

	res, err := s.runner.Run(ctx, flagTask, flagUser)
	if err != nil {
		return err
	}
	return printJSON(res)
}
