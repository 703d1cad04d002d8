package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"waveline/internal/deps"
	"waveline/internal/queue"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show queue summary and dependency availability",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return ctx.withStore(func(store *queue.Store) error {
				summary, err := store.Health(cmd.Context())
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Database: %s\n\n", store.Path())

				rows := [][]string{
					{"pending", fmt.Sprintf("%d", summary.Pending)},
					{"processing", fmt.Sprintf("%d", summary.Processing)},
					{"completed", fmt.Sprintf("%d", summary.Completed)},
					{"failed", fmt.Sprintf("%d", summary.Failed)},
					{"total", fmt.Sprintf("%d", summary.Total)},
				}
				fmt.Fprintln(out, renderTable([]string{"Status", "Jobs"}, rows, 2))

				depRows := make([][]string, 0, 2)
				for _, status := range deps.CheckBinaries(deps.Requirements(cfg)) {
					detail := status.Detail
					if status.Available {
						detail = ""
					}
					depRows = append(depRows, []string{status.Name, status.Command, yesNo(status.Available), detail})
				}
				fmt.Fprintln(out, renderTable([]string{"Dependency", "Command", "Available", "Detail"}, depRows))
				return nil
			})
		},
	}
}
