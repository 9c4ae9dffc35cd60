package commands

import (
	"context"

	"github.com/spf13/cobra"
)

func NewExplainCommand() *cobra.Command {
	var noPager bool

	cmd := &cobra.Command{
		Use:   "explain <company-id>",
		Short: "Show why a company was found untrusted",
		Long: `Show the stored explanation of an untrusted verdict

Explanations list, per triggered detection, the evidence behind it:
rating gaps, reviewer ages, suspicious relations and the reviewers who
connect them. Output is piped through $PAGER when stdout is a terminal.`,

		Example: `  reviewscan explain 70000001
  reviewscan explain 70000001 --no-pager > explanation.txt`,

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

			out := pagedOutput(noPager)
			defer out.Close()

			return copyExplanation(context.Background(), scanner, args[0], out)
		},
	}

	cmd.Flags().BoolVar(&noPager, "no-pager", false, "Disable pager (output directly)")

	return cmd
}
