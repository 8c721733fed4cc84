package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/kiranshivaraju/postpilot/pkg/models"
	"github.com/spf13/cobra"
)

func newRunOnceCmd(s *session) *cobra.Command {
	var contentType string

	cmd := &cobra.Command{
		Use:   "run-once [topic | job-id]",
		Short: "Run the pipeline once",
		Long: `Run the pipeline once and print the run report.

If the argument names an existing job, that job runs now without shifting its
next scheduled run. Otherwise the argument is used as an ad-hoc topic; with no
argument the first configured topic is used.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var ct models.ContentType
			if contentType != "" {
				parsed, err := models.ParseContentType(contentType)
				if err != nil {
					return err
				}
				ct = parsed
			}
			var arg string
			if len(args) == 1 {
				arg = args[0]
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, s.cfg, s.logger, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer a.Close()

			report, err := a.runOnce(ctx, arg, ct)
			if err != nil {
				return err
			}
			printReport(cmd.OutOrStdout(), report)
			if report.Outcome() == models.OutcomeFailed {
				return fmt.Errorf("run failed: %s", report.FailureReason)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&contentType, "type", "", "content type for an ad-hoc run (article, slide-deck, graph, infographic)")
	return cmd
}
