package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
	"tangled.org/atscan.net/reviewscan/detector"
)

func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show the effective detection thresholds",
		Long: `Show the effective detection thresholds as YAML

Thresholds come from the file given with --config, falling back to the
defaults for every key the file omits. The parameter fingerprint stored
with every verdict is printed as a trailing comment.`,

		Example: `  reviewscan config
  reviewscan --config strict.yaml config
  reviewscan config init strict.yaml`,

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newEnv(cmd)
			if err != nil {
				return err
			}
			defer env.Close()

			data, err := yaml.Marshal(env.Thresholds)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s", data)
			fmt.Fprintf(out, "# param_fp: %s\n", env.Thresholds.Fingerprint())
			return nil
		},
	}

	cmd.AddCommand(newConfigInitCommand())

	return cmd
}

func newConfigInitCommand() *cobra.Command {
	var overwrite bool

	cmd := &cobra.Command{
		Use:   "init <file>",
		Short: "Write the default thresholds to a file",
		Args:  cobra.ExactArgs(1),

		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			if _, err := os.Stat(path); err == nil && !overwrite {
				return fmt.Errorf("%s exists (use --overwrite)", path)
			}

			data, err := yaml.Marshal(detector.DefaultThresholds())
			if err != nil {
				return err
			}
			if err := os.WriteFile(path, data, 0644); err != nil {
				return fmt.Errorf("failed to write %s: %w", path, err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Wrote default thresholds to %s\n", path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace an existing file")

	return cmd
}
