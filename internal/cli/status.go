package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newStatusCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "status [id]",
		Short: "Show job counts, or one job with its run history",
		Long: `Show job counts by status, or the detail and recent run history of one job.

Examples:
  postpilot status       # counts by status
  postpilot status ai    # detail for job ai`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, s, func(ctx context.Context, a *app) error {
				out := cmd.OutOrStdout()
				if len(args) == 1 {
					job, err := a.sched.Status(ctx, args[0])
					if err != nil {
						return fmt.Errorf("job %s: %w", args[0], err)
					}
					printJob(out, job)
					return nil
				}

				counts, err := a.sched.JobCounts(ctx)
				if err != nil {
					return fmt.Errorf("count jobs: %w", err)
				}
				printCounts(out, counts)
				return nil
			})
		},
	}
}
