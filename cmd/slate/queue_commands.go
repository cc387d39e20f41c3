package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"slate/internal/config"
	"slate/internal/queue"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect the job queue",
	}
	queueCmd.AddCommand(newQueueListCommand(ctx))
	queueCmd.AddCommand(newQueueStatusCommand(ctx))
	queueCmd.AddCommand(newQueueHealthCommand(ctx))
	return queueCmd
}

func newQueueListCommand(ctx *commandContext) *cobra.Command {
	var statusFilter string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List jobs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(_ *config.Config, store *queue.Store) error {
				var statuses []queue.Status
				if trimmed := strings.TrimSpace(statusFilter); trimmed != "" {
					status, ok := queue.ParseStatus(trimmed)
					if !ok {
						return fmt.Errorf("unknown status %q", trimmed)
					}
					statuses = append(statuses, status)
				}
				jobs, err := store.List(cmd.Context(), statuses...)
				if err != nil {
					return err
				}
				if len(jobs) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "queue is empty")
					return nil
				}

				rows := make([][]string, 0, len(jobs))
				for _, job := range jobs {
					rows = append(rows, []string{
						job.JobID,
						string(job.Status.Public()),
						string(job.Status),
						job.Format,
						fmt.Sprintf("%d", job.Priority),
						job.CreatedAt.Local().Format(time.RFC3339),
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"JOB", "STATUS", "STAGE", "FORMAT", "PRI", "CREATED"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
				))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&statusFilter, "status", "", "Filter by internal status")
	return cmd
}

func newQueueStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status <job-id>",
		Short: "Show one job in detail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(_ *config.Config, store *queue.Store) error {
				job, err := store.GetByJobID(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if job == nil {
					return fmt.Errorf("job %s not found", args[0])
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Job:       %s\n", job.JobID)
				fmt.Fprintf(out, "Owner:     %s\n", job.OwnerID)
				fmt.Fprintf(out, "Status:    %s (%s)\n", job.Status.Public(), job.Status)
				fmt.Fprintf(out, "Format:    %s\n", job.Format)
				fmt.Fprintf(out, "Priority:  %d\n", job.Priority)
				fmt.Fprintf(out, "Created:   %s\n", job.CreatedAt.Local().Format(time.RFC3339))
				if job.ProgressStage != "" {
					fmt.Fprintf(out, "Stage:     %s\n", job.ProgressStage)
				}
				if job.ReportID != "" {
					fmt.Fprintf(out, "Report:    %s\n", job.ReportID)
				}
				if job.ErrorMessage != "" {
					fmt.Fprintf(out, "Error:     %s\n", job.ErrorMessage)
				}
				if job.CompletedAt != nil {
					fmt.Fprintf(out, "Finished:  %s\n", job.CompletedAt.Local().Format(time.RFC3339))
				}
				return nil
			})
		},
	}
}

func newQueueHealthCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Summarize queue counts by public status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(_ *config.Config, store *queue.Store) error {
				summary, err := store.Health(cmd.Context())
				if err != nil {
					return err
				}
				rows := [][]string{
					{"pending", fmt.Sprintf("%d", summary.Pending)},
					{"running", fmt.Sprintf("%d", summary.Running)},
					{"completed", fmt.Sprintf("%d", summary.Completed)},
					{"failed", fmt.Sprintf("%d", summary.Failed)},
					{"cancelled", fmt.Sprintf("%d", summary.Cancelled)},
					{"total", fmt.Sprintf("%d", summary.Total)},
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"STATUS", "JOBS"},
					rows,
					[]columnAlignment{alignLeft, alignRight},
				))
				return nil
			})
		},
	}
}
