package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func NewListCommand() *cobra.Command {
	var (
		town     string
		name     string
		withRep  bool
		noReport bool
		limit    int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List imported companies",
		Long: `List imported companies

Prints id, title, town, number of stored reviews and the verdict of
every imported company. Filters combine: --town matches the town
exactly (ignoring case), --name matches part of the title.`,

		Example: `  reviewscan list --town Kazan
  reviewscan list --name coffee --noreport
  reviewscan list --report --limit 20`,

		Args: cobra.NoArgs,

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
			ctx := context.Background()
			store := scanner.Store()

			ids, err := store.Companies()
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			shown := 0
			for _, id := range ids {
				if limit > 0 && shown >= limit {
					break
				}
				c, err := store.Company(ctx, id)
				if err != nil {
					env.Slog.Warn("skipped", "company", id, "error", err)
					continue
				}
				if town != "" && !strings.EqualFold(c.Town(), town) {
					continue
				}
				if name != "" && !strings.Contains(strings.ToLower(c.DisplayTitle()), strings.ToLower(name)) {
					continue
				}

				state := "-"
				report, err := scanner.Report(ctx, id)
				hasReport := err == nil
				if hasReport {
					state = "trusted"
					if !report.Verdict.Trusted {
						state = "untrusted"
					}
				}
				if (withRep && !hasReport) || (noReport && hasReport) {
					continue
				}

				reviews, err := store.Reviews(ctx, id)
				if err != nil {
					return err
				}

				fmt.Fprintf(w, "%-16s %-32s %-16s %6d  %s\n", id, c.DisplayTitle(), c.Town(), len(reviews), state)
				shown++
			}

			fmt.Fprintf(w, "%d of %d companies\n", shown, len(ids))
			return nil
		},
	}

	cmd.Flags().StringVar(&town, "town", "", "Only companies in this town")
	cmd.Flags().StringVar(&name, "name", "", "Only companies whose title contains this text")
	cmd.Flags().BoolVar(&withRep, "report", false, "Only companies with a report")
	cmd.Flags().BoolVar(&noReport, "noreport", false, "Only companies without a report")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Show at most this many companies (0 = all)")
	cmd.MarkFlagsMutuallyExclusive("report", "noreport")

	return cmd
}
