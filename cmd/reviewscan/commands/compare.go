package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"tangled.org/atscan.net/reviewscan"
)

func NewCompareCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "compare <company-a> <company-b>",
		Short: "Show the reviewers two companies share",
		Long: `Show the reviewers two companies share

Lists every account that reviewed both companies with its lifetime
review count and the rating it gave each side, then the mean ratings,
the median review count and whether the pair forms a dangerous
relation under the current thresholds.`,

		Example: `  reviewscan compare 70000001 70000002
  reviewscan compare 70000001 70000002 --json`,

		Args: cobra.ExactArgs(2),

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

			cmp, err := scanner.Compare(context.Background(), args[0], args[1])
			if err != nil {
				return err
			}

			if asJSON {
				data, err := json.MarshalIndent(cmp, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\n", data)
				return nil
			}

			printComparison(cmd.OutOrStdout(), cmp)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")

	return cmd
}

func printComparison(w io.Writer, cmp *reviewscan.Comparison) {
	fmt.Fprintf(w, "A: %s %s (%s)\n", cmp.A.ID, cmp.A.DisplayTitle(), cmp.A.Address)
	fmt.Fprintf(w, "B: %s %s (%s)\n", cmp.B.ID, cmp.B.DisplayTitle(), cmp.B.Address)
	fmt.Fprintf(w, "--\n")

	for i, s := range cmp.Shared {
		fmt.Fprintf(w, "%d: %d/%d nr:%d uid:%s %s\n", i+1, s.RatingA, s.RatingB, s.NReviews, s.ID, s.Name)
	}

	fmt.Fprintf(w, "--\n")
	fmt.Fprintf(w, "common: %d users, private: %d\n", len(cmp.Shared), cmp.Private)
	if len(cmp.Shared) == 0 {
		return
	}
	fmt.Fprintf(w, "median num reviews: %d\n", cmp.MedianRPU)
	fmt.Fprintf(w, "avg rating %s: %.2f avg rating %s: %.2f\n",
		cmp.A.DisplayTitle(), cmp.MeanA, cmp.B.DisplayTitle(), cmp.MeanB)
	if cmp.Dangerous {
		fmt.Fprintf(w, "dangerous relation\n")
	}
}
