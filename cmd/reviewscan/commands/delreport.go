package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func NewDelReportCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delreport <company-id>...",
		Short: "Delete stored reports",
		Long: `Delete the stored report and explanation of companies

The companies are also taken off the evaluation queue, so a pending
job does not recreate the report. Imported company data is kept.`,

		Example: `  reviewscan delreport 70000001
  reviewscan delreport 70000001 70000002`,

		Args: cobra.MinimumNArgs(1),

		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newEnv(cmd)
			if err != nil {
				return err
			}
			defer env.Close()

			scanner, err := env.Scanner()
			if err != nil {
				return err
			}
			q, err := env.Queue()
			if err != nil {
				return err
			}

			store := scanner.Store()
			deleted := 0
			for _, id := range args {
				had := store.HasReport(id)
				if err := store.DeleteResults(id); err != nil {
					return fmt.Errorf("failed to delete report of %s: %w", id, err)
				}
				dequeued := q.Remove(id)
				switch {
				case had:
					deleted++
					env.Slog.Info("report deleted", "company", id, "dequeued", dequeued)
				case dequeued:
					env.Slog.Info("dequeued", "company", id)
				default:
					env.Slog.Warn("no report", "company", id)
				}
			}

			if err := q.Save(); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d reports (%d waiting)\n", deleted, q.Len())
			return nil
		},
	}

	return cmd
}
