package commands

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
)

func NewReportCommand() *cobra.Command {
	var full bool

	cmd := &cobra.Command{
		Use:   "report <company-id>",
		Short: "Show the stored report of a company",
		Long: `Show the stored report of a company

By default the verdict is printed. With --full the whole report is
printed as JSON, including the company, exported relations and
warnings raised during the run.`,

		Example: `  reviewscan report 70000001
  reviewscan report 70000001 --full | jq .relations`,

		Args: cobra.ExactArgs(1),

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

			report, err := scanner.Report(context.Background(), args[0])
			if err != nil {
				return err
			}

			if !full {
				return printReport(cmd.OutOrStdout(), report)
			}

			data, err := json.MarshalIndent(report, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to marshal report: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\n", data)
			return nil
		},
	}

	cmd.Flags().BoolVar(&full, "full", false, "Print the whole report as JSON")

	return cmd
}
