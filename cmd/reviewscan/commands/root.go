package commands

import (
	"github.com/spf13/cobra"
)

// NewRootCommand assembles the reviewscan command tree
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "reviewscan",
		Short: "Fake review detection for business listings",
		Long: `reviewscan ` + GetVersion() + ` - fake review detection

Scores a business by its reviews: rating anomalies, young reviewer
accounts, low-signal reviewer bursts and rings of reviewers praising
the same set of businesses. Untrusted verdicts come with an explanation.`,

		Example: `  reviewscan import dataset.json
  reviewscan detect 70000001 --explain
  reviewscan submit 70000001 70000002
  reviewscan serve --websocket --metrics`,

		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.String("dir", "", "Data directory (default: current directory)")
	flags.String("config", "", "YAML file with detection thresholds")
	flags.String("log-file", "", "Also write JSON logs to this file")
	flags.String("log-level", "info", "Log level (debug, info, warn, error)")
	flags.BoolP("quiet", "q", false, "Only print warnings and errors")

	root.AddCommand(
		NewImportCommand(),
		NewDetectCommand(),
		NewReportCommand(),
		NewExplainCommand(),
		NewCompareCommand(),
		NewListCommand(),
		NewDelReportCommand(),
		NewStatusCommand(),
		NewSubmitCommand(),
		NewWorkerCommand(),
		NewServeCommand(),
		NewConfigCommand(),
		NewVersionCommand(),
	)

	return root
}
