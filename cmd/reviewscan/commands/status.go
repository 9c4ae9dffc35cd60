package commands

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"tangled.org/atscan.net/reviewscan"
	"tangled.org/atscan.net/reviewscan/internal/format"
)

func NewStatusCommand() *cobra.Command {
	var (
		asJSON        bool
		untrustedOnly bool
	)

	cmd := &cobra.Command{
		Use:     "status",
		Aliases: []string{"ls"},
		Short:   "Show stored companies and their verdicts",
		Long: `Show stored companies and their verdicts

Lists every company with a report, its verdict and the detections that
fired, followed by companies still waiting for evaluation.`,

		Example: `  reviewscan status
  reviewscan status --untrusted
  reviewscan status --json`,

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

			st, err := scanner.Status(context.Background())
			if err != nil {
				return err
			}

			if untrustedOnly {
				kept := st.Results[:0]
				for _, r := range st.Results {
					if !r.Trusted {
						kept = append(kept, r)
					}
				}
				st.Results = kept
			}

			if asJSON {
				data, err := json.MarshalIndent(st, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\n", data)
				return nil
			}

			showStatus(cmd.OutOrStdout(), env.Dir, st)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	cmd.Flags().BoolVar(&untrustedOnly, "untrusted", false, "Only list untrusted companies")

	return cmd
}

func showStatus(w io.Writer, dir string, st *reviewscan.Status) {
	fmt.Fprintf(w, "═══════════════════════════════════════════════════════════════\n")
	fmt.Fprintf(w, "               reviewscan Status\n")
	fmt.Fprintf(w, "═══════════════════════════════════════════════════════════════\n\n")

	fmt.Fprintf(w, "📁 %s\n\n", dir)

	if st.Companies == 0 {
		fmt.Fprintf(w, "⚠️  No companies stored\n\n")
		fmt.Fprintf(w, "Get started:\n")
		fmt.Fprintf(w, "  reviewscan import <file>    Import a dataset\n\n")
		return
	}

	fmt.Fprintf(w, "   Companies:  %s\n", format.Number(st.Companies))
	fmt.Fprintf(w, "   Reports:    %s\n", format.Number(st.Reports))
	fmt.Fprintf(w, "   Untrusted:  %s\n", format.Number(st.Untrusted))
	fmt.Fprintf(w, "   Pending:    %s\n\n", format.Number(len(st.Pending)))

	for _, r := range st.Results {
		mark := "✓"
		if !r.Trusted {
			mark = "✗"
		}
		line := fmt.Sprintf(" %s %-12s %s", mark, r.ID, r.Title)
		if len(r.Detections) > 0 {
			line += "  [" + strings.Join(r.Detections, "; ") + "]"
		}
		if r.Remark != "" {
			line += "  (" + r.Remark + ")"
		}
		fmt.Fprintln(w, line)
	}

	if len(st.Pending) > 0 {
		fmt.Fprintf(w, "\nWaiting for evaluation: %s\n", strings.Join(st.Pending, ", "))
	}
}
