package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/kiranshivaraju/postpilot/internal/scheduler"
	"github.com/kiranshivaraju/postpilot/pkg/models"
	"github.com/spf13/cobra"
)

// withApp wires the app for a short-lived management command.
func withApp(cmd *cobra.Command, s *session, fn func(ctx context.Context, a *app) error) error {
	ctx := cmd.Context()
	a, err := newApp(ctx, s.cfg, s.logger, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

func newAddJobCmd(s *session) *cobra.Command {
	var (
		topic       string
		topics      []string
		schedule    string
		contentType string
	)

	cmd := &cobra.Command{
		Use:   "add-job <id>",
		Short: "Add a scheduled job, or update an existing one",
		Long: `Add a scheduled job, or update an existing one in place.

A job posts about --topic, or rotates through --topics. Without --type the
content type follows the weekday rotation.

Examples:
  postpilot add-job ai --topic "artificial intelligence"
  postpilot add-job tech --topics "cloud,security,devops" --schedule "every 48h"
  postpilot add-job weekly --topic "rust" --schedule @weekly --type article`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			spec := scheduler.JobSpec{
				ID:       args[0],
				Topic:    strings.TrimSpace(topic),
				Topics:   topics,
				Schedule: schedule,
			}
			if contentType != "" {
				ct, err := models.ParseContentType(contentType)
				if err != nil {
					return err
				}
				spec.ContentType = ct
			}
			return withApp(cmd, s, func(ctx context.Context, a *app) error {
				job, err := a.sched.AddJob(ctx, spec)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Job %s saved, next run %s\n", job.ID, formatTime(job.NextRun))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&topic, "topic", "", "topic to post about")
	cmd.Flags().StringSliceVar(&topics, "topics", nil, "comma-separated topics to rotate through")
	cmd.Flags().StringVar(&schedule, "schedule", "", `schedule such as "every 24h" or @daily (default from config)`)
	cmd.Flags().StringVar(&contentType, "type", "", "fixed content type (article, slide-deck, graph, infographic)")
	return cmd
}

func newRemoveJobCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "remove-job <id>",
		Short: "Remove a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, s, func(ctx context.Context, a *app) error {
				if err := a.sched.RemoveJob(ctx, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Job %s removed\n", args[0])
				return nil
			})
		},
	}
}

func newPauseJobCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "pause-job <id>",
		Short: "Stop a job from firing until it is resumed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, s, func(ctx context.Context, a *app) error {
				job, err := a.sched.PauseJob(ctx, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Job %s paused\n", job.ID)
				return nil
			})
		},
	}
}

func newResumeJobCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "resume-job <id>",
		Short: "Resume a paused job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, s, func(ctx context.Context, a *app) error {
				job, err := a.sched.ResumeJob(ctx, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Job %s resumed, next run %s\n", job.ID, formatTime(job.NextRun))
				return nil
			})
		},
	}
}

func newListJobsCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "list-jobs",
		Short: "List jobs in next-run order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, s, func(ctx context.Context, a *app) error {
				jobs, err := a.sched.ListJobs(ctx)
				if err != nil {
					return fmt.Errorf("list jobs: %w", err)
				}
				printJobs(cmd.OutOrStdout(), jobs)
				return nil
			})
		},
	}
}
