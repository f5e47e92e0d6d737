package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"quiz-pilot/internal/app"
	"quiz-pilot/internal/domain"
	"quiz-pilot/internal/logger"
	"quiz-pilot/internal/util"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	runEmail  string
	runSecret string
	runStore  bool
	runCache  bool
)

func init() {
	runCmd.Flags().StringVar(&runEmail, "email", "", "Student email (defaults to student.email).")
	runCmd.Flags().StringVar(&runSecret, "secret", "", "Student secret (defaults to student.secret).")
	runCmd.Flags().BoolVar(&runStore, "store", false, "Record the run and its steps in the database.")
	runCmd.Flags().BoolVar(&runCache, "cache", false, "Use Redis for LLM reply caching and progress.")
	rootCmd.AddCommand(runCmd)
}

var runCmd = &cobra.Command{
	Use:   "run <url>",
	Short: "Solves the quiz chain starting at url and prints a summary.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		log := logger.Get()
		pageURL, err := util.NormalizeURL(args[0])
		if err != nil {
			return fmt.Errorf("invalid url %q: %w", args[0], err)
		}

		email := firstNonEmpty(runEmail, cfg.Student.Email)
		secret := firstNonEmpty(runSecret, cfg.Student.Secret)
		if email == "" || secret == "" {
			return fmt.Errorf("student email and secret are required (flags or STUDENT_EMAIL/STUDENT_SECRET)")
		}

		container, err := app.Build(cfg, log, app.Options{Persistence: runStore, Cache: runCache})
		if err != nil {
			return err
		}
		defer func() { _ = container.Close() }()

		req := domain.RunRequest{Email: email, Secret: secret, URL: pageURL}
		var run *domain.Run
		if container.Runs != nil {
			req.RunID = util.NewULID()
			run = domain.NewRun(req.RunID, email, pageURL)
			run.MarkRunning(time.Now())
			if err := container.Runs.Create(cmd.Context(), run); err != nil {
				return fmt.Errorf("failed to record run: %w", err)
			}
		}

		summary, runErr := container.Pipeline.Run(cmd.Context(), req)

		if run != nil {
			run.StepCount = summary.Steps
			run.Finish(time.Now(), runErr)
			storeCtx, cancel := context.WithTimeout(context.WithoutCancel(cmd.Context()), 5*time.Second)
			defer cancel()
			if err := container.Runs.Update(storeCtx, run); err != nil {
				log.Error("Failed to record run result", zap.String("run_id", run.ID), zap.Error(err))
			}
		}

		if err := printJSON(cmd.OutOrStdout(), summary); err != nil {
			return err
		}
		return runErr
	},
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
