package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"tangled.org/atscan.net/reviewscan/internal/format"
)

func NewImportCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <file|->",
		Short: "Import companies, reviewers and reviews",
		Long: `Import a dataset document into the data directory

The document is a JSON object with "companies", "reviewers" and
"reviews" arrays. Reviews are grouped per company and attached to the
profile of their author. Importing the same ids again overwrites them.`,

		Example: `  reviewscan import dataset.json
  cat dataset.json | reviewscan import -`,

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

			var in io.Reader = cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("failed to open dataset: %w", err)
				}
				defer f.Close()
				in = f
			}

			stats, err := scanner.Import(in)
			if err != nil {
				return err
			}

			env.Slog.Info("import finished",
				"companies", stats.Companies,
				"reviewers", stats.Reviewers,
				"reviews", stats.Reviews,
				"skipped", stats.Skipped)

			fmt.Fprintf(cmd.OutOrStdout(), "Imported %s companies, %s reviewers, %s reviews (%d skipped)\n",
				format.Number(stats.Companies), format.Number(stats.Reviewers), format.Number(stats.Reviews), stats.Skipped)
			return nil
		},
	}

	return cmd
}
