package commands

import (
	"quiz-pilot/internal/app"
	"quiz-pilot/internal/logger"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(extractCmd)
}

var extractCmd = &cobra.Command{
	Use:   "extract <url>",
	Short: "Extracts the questions and attachments of a quiz page without solving it.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		container, err := app.Build(cfg, logger.Get(), app.Options{SkipSolver: true})
		if err != nil {
			return err
		}
		defer func() { _ = container.Close() }()

		result, err := container.Extractor.Extract(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), result)
	},
}
