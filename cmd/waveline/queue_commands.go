package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"waveline/internal/queue"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and manage the job queue",
	}

	queueCmd.AddCommand(newQueueStatsCommand(ctx))
	queueCmd.AddCommand(newQueueListCommand(ctx))
	queueCmd.AddCommand(newQueueShowCommand(ctx))
	queueCmd.AddCommand(newQueueRetryCommand(ctx))
	queueCmd.AddCommand(newQueueResetCommand(ctx))
	queueCmd.AddCommand(newQueueClearCommand(ctx))
	queueCmd.AddCommand(newQueueHealthCommand(ctx))

	return queueCmd
}

func newQueueStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show job counts per status and type",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *queue.Store) error {
				stats, err := store.Stats(cmd.Context())
				if err != nil {
					return err
				}
				typeStats, err := store.TypeStats(cmd.Context())
				if err != nil {
					return err
				}

				total := 0
				statusRows := make([][]string, 0, len(stats))
				for _, status := range queue.AllStatuses() {
					statusRows = append(statusRows, []string{string(status), strconv.Itoa(stats[status])})
					total += stats[status]
				}
				if total == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty")
					return nil
				}

				out := cmd.OutOrStdout()
				fmt.Fprintln(out, renderTable([]string{"Status", "Jobs"}, statusRows, 2))

				typeRows := make([][]string, 0, len(typeStats))
				for _, jt := range queue.AllJobTypes() {
					typeRows = append(typeRows, []string{string(jt), strconv.Itoa(typeStats[jt])})
				}
				fmt.Fprintln(out, renderTable([]string{"Type", "Jobs"}, typeRows, 2))
				return nil
			})
		},
	}
}

func newQueueListCommand(ctx *commandContext) *cobra.Command {
	var listStatuses []string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			var statuses []queue.Status
			for _, value := range listStatuses {
				status, ok := queue.ParseStatus(value)
				if !ok {
					return fmt.Errorf("unknown status %q", value)
				}
				statuses = append(statuses, status)
			}

			return ctx.withStore(func(store *queue.Store) error {
				jobs, err := store.List(cmd.Context(), statuses...)
				if err != nil {
					return err
				}
				if len(jobs) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty")
					return nil
				}

				names := make(map[int64]string)
				rows := make([][]string, 0, len(jobs))
				for _, job := range jobs {
					name, ok := names[job.AudioFileID]
					if !ok {
						if file, err := store.GetAudioFile(cmd.Context(), job.AudioFileID); err == nil && file != nil {
							name = file.OriginalName
						}
						names[job.AudioFileID] = name
					}
					rows = append(rows, []string{
						strconv.FormatInt(job.ID, 10),
						string(job.Type),
						string(job.Status),
						fmt.Sprintf("%.0f%%", job.Progress),
						strconv.Itoa(job.Attempts),
						formatLocalTime(job.CreatedAt),
						name,
					})
				}
				table := renderTable(
					[]string{"ID", "Type", "Status", "Progress", "Attempts", "Created", "File"},
					rows, 1, 4, 5,
				)
				fmt.Fprintln(cmd.OutOrStdout(), table)
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVar(&listStatuses, "status", nil, "Filter by status (repeatable)")
	return cmd
}

func newQueueShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show job details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid job id %q", args[0])
			}
			return ctx.withStore(func(store *queue.Store) error {
				job, err := store.GetJob(cmd.Context(), id)
				if err != nil {
					return err
				}
				if job == nil {
					return fmt.Errorf("job %d not found", id)
				}
				file, err := store.GetAudioFile(cmd.Context(), job.AudioFileID)
				if err != nil {
					return err
				}
				printJob(cmd, job, file)
				return nil
			})
		},
	}
}

func printJob(cmd *cobra.Command, job *queue.Job, file *queue.AudioFile) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Job %d\n", job.ID)
	fmt.Fprintf(out, "  Type:      %s\n", job.Type)
	fmt.Fprintf(out, "  Status:    %s\n", job.Status)
	fmt.Fprintf(out, "  Progress:  %.0f%%\n", job.Progress)
	fmt.Fprintf(out, "  Attempts:  %d\n", job.Attempts)
	fmt.Fprintf(out, "  Created:   %s\n", formatLocalTime(job.CreatedAt))
	fmt.Fprintf(out, "  Updated:   %s\n", formatLocalTime(job.UpdatedAt))
	if job.CompletedAt != nil {
		fmt.Fprintf(out, "  Completed: %s\n", formatLocalTime(*job.CompletedAt))
	}
	if job.NextAttemptAt != nil {
		fmt.Fprintf(out, "  Retry at:  %s\n", formatLocalTime(*job.NextAttemptAt))
	}
	if file != nil {
		fmt.Fprintf(out, "  File:      %s (id %d, %d bytes)\n", file.OriginalName, file.ID, file.SizeBytes)
		fmt.Fprintf(out, "  Stored:    %s\n", file.Path)
	}
	if job.OutputPath != "" {
		fmt.Fprintf(out, "  Output:    %s\n", job.OutputPath)
	}
	if params := strings.TrimSpace(job.ParamsJSON); params != "" {
		fmt.Fprintf(out, "  Params:    %s\n", params)
	}
	if result := strings.TrimSpace(job.ResultJSON); result != "" {
		fmt.Fprintf(out, "  Result:    %s\n", result)
	}
	if job.ErrorMessage != "" {
		fmt.Fprintf(out, "  Error:     %s\n", job.ErrorMessage)
	}
}

func newQueueRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry [id...]",
		Short: "Reset failed jobs back to pending",
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]int64, 0, len(args))
			for _, arg := range args {
				id, err := strconv.ParseInt(arg, 10, 64)
				if err != nil {
					return fmt.Errorf("invalid job id %q", arg)
				}
				ids = append(ids, id)
			}
			return ctx.withStore(func(store *queue.Store) error {
				count, err := store.RetryFailed(cmd.Context(), ids...)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Requeued %d job(s)\n", count)
				return nil
			})
		},
	}
}

func newQueueResetCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Return stuck processing jobs to pending",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *queue.Store) error {
				count, err := store.ResetStuckProcessing(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Reset %d job(s)\n", count)
				return nil
			})
		},
	}
}

func newQueueClearCommand(ctx *commandContext) *cobra.Command {
	var clearCompleted bool
	var clearFailed bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove jobs from the queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *queue.Store) error {
				var (
					count int64
					err   error
				)
				switch {
				case clearCompleted && clearFailed:
					return fmt.Errorf("use at most one of --completed and --failed")
				case clearCompleted:
					count, err = store.ClearCompleted(cmd.Context())
				case clearFailed:
					count, err = store.ClearFailed(cmd.Context())
				default:
					count, err = store.Clear(cmd.Context())
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d job(s)\n", count)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&clearCompleted, "completed", false, "Only remove completed jobs")
	cmd.Flags().BoolVar(&clearFailed, "failed", false, "Only remove failed jobs")
	return cmd
}

func newQueueHealthCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Show job database diagnostics",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *queue.Store) error {
				health, err := store.CheckHealth(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Database:    %s\n", health.DBPath)
				fmt.Fprintf(out, "Readable:    %s\n", yesNo(health.DatabaseReadable))
				fmt.Fprintf(out, "Integrity:   %s\n", yesNo(health.IntegrityCheck))
				fmt.Fprintf(out, "Jobs:        %d\n", health.TotalJobs)
				fmt.Fprintf(out, "Audio files: %d\n", health.TotalAudioFiles)
				if len(health.MissingTables) > 0 {
					fmt.Fprintf(out, "Missing:     %s\n", strings.Join(health.MissingTables, ", "))
				}
				if health.Error != "" {
					fmt.Fprintf(out, "Error:       %s\n", health.Error)
				}
				return nil
			})
		},
	}
}

func formatLocalTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format("2006-01-02 15:04:05")
}
