package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"tangled.org/atscan.net/reviewscan"
	"tangled.org/atscan.net/reviewscan/cmd/reviewscan/ui"
)

func NewDetectCommand() *cobra.Command {
	var (
		force      bool
		explain    bool
		noProgress bool
	)

	cmd := &cobra.Command{
		Use:   "detect <company-id>...",
		Short: "Evaluate companies now",
		Long: `Evaluate companies in the foreground and store their reports

Every company is evaluated in an isolated run. Companies with a stored
report are skipped unless --force is given; the stored verdict is
printed instead. A progress bar is shown when stderr is a terminal.`,

		Example: `  reviewscan detect 70000001
  reviewscan detect 70000001 70000002 --force
  reviewscan detect 70000001 --explain`,

		Args: cobra.MinimumNArgs(1),

		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newEnv(cmd)
			if err != nil {
				return err
			}
			defer env.Close()

			tracker := &progressTracker{enabled: !noProgress && !env.Quiet && isTTY(os.Stderr)}
			scanner, err := env.Scanner(reviewscan.WithProgress(tracker.update))
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			out := cmd.OutOrStdout()
			failed := 0
			for _, id := range args {
				tracker.start(id)
				report, err := scanner.Detect(ctx, id, reviewscan.DetectOptions{Force: force})
				tracker.finish()

				if errors.Is(err, reviewscan.ErrReportExists) {
					env.Slog.Info("report exists, use --force to rerun", "company", id)
					report, err = scanner.Report(ctx, id)
				}
				if err != nil {
					if ctx.Err() != nil {
						return ctx.Err()
					}
					env.Slog.Error("detection failed", "company", id, "error", err)
					failed++
					continue
				}

				if err := printReport(out, report); err != nil {
					return err
				}
				if explain && report.Explained() {
					if err := copyExplanation(ctx, scanner, id, out); err != nil {
						return err
					}
				}
			}

			if failed > 0 {
				return fmt.Errorf("%d of %d detections failed", failed, len(args))
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Rerun even if a report exists")
	cmd.Flags().BoolVar(&explain, "explain", false, "Print the explanation of untrusted verdicts")
	cmd.Flags().BoolVar(&noProgress, "no-progress", false, "Disable the progress bar")

	return cmd
}

// printReport writes the company line and the verdict as indented JSON
func printReport(w io.Writer, report *reviewscan.Report) error {
	data, err := json.MarshalIndent(report.Verdict, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal verdict: %w", err)
	}

	state := "trusted"
	if !report.Verdict.Trusted {
		state = "UNTRUSTED"
	}
	fmt.Fprintf(w, "%s %s (%s): %s\n", report.Company.ID, report.Company.DisplayTitle(), report.Company.Address, state)
	fmt.Fprintf(w, "%s\n", data)
	return nil
}

func copyExplanation(ctx context.Context, scanner *reviewscan.Scanner, id string, w io.Writer) error {
	rc, err := scanner.Explanation(ctx, id)
	if err != nil {
		return err
	}
	defer rc.Close()

	_, err = io.Copy(w, rc)
	return err
}

// progressTracker keeps one progress bar per detection run
type progressTracker struct {
	enabled bool
	label   string
	bar     *ui.ProgressBar
}

func (p *progressTracker) start(label string) {
	p.label = label
	p.bar = nil
}

func (p *progressTracker) update(done, total int) {
	if !p.enabled {
		return
	}
	if p.bar == nil {
		p.bar = ui.NewProgressBar(os.Stderr, p.label, total)
	}
	p.bar.Set(done)
}

func (p *progressTracker) finish() {
	if p.bar != nil {
		p.bar.Finish()
		p.bar = nil
	}
}
