package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func NewSubmitCommand() *cobra.Command {
	var (
		force    bool
		all      bool
		remove   bool
		clearAll bool
	)

	cmd := &cobra.Command{
		Use:   "submit [company-id]...",
		Short: "Queue companies for the worker",
		Long: `Queue companies for background evaluation

Queued companies are evaluated by 'reviewscan worker' or by the worker
pool of 'reviewscan serve'. A company is queued at most once; queuing
it again with --force upgrades the pending job.

With --remove the given companies are taken off the queue instead;
--clear empties it.`,

		Example: `  reviewscan submit 70000001 70000002
  reviewscan submit --all
  reviewscan submit 70000001 --force
  reviewscan submit --remove 70000002
  reviewscan submit --clear`,

		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newEnv(cmd)
			if err != nil {
				return err
			}
			defer env.Close()

			if remove || clearAll {
				return unqueue(cmd, env, args, clearAll)
			}

			scanner, err := env.Scanner()
			if err != nil {
				return err
			}

			ids := args
			if all {
				ids, err = scanner.Store().Companies()
				if err != nil {
					return err
				}
			}
			if len(ids) == 0 {
				return fmt.Errorf("no companies given (use ids or --all)")
			}

			q, err := env.Queue()
			if err != nil {
				return err
			}

			added := 0
			for _, id := range ids {
				if _, err := scanner.Store().Company(context.Background(), id); err != nil {
					env.Slog.Warn("not queued", "company", id, "error", err)
					continue
				}
				_, ok, err := q.Push(id, force)
				if err != nil {
					return err
				}
				if ok {
					added++
				}
			}

			if err := q.Save(); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Queued %d companies (%d waiting)\n", added, q.Len())
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Rerun even if a report exists")
	cmd.Flags().BoolVar(&all, "all", false, "Queue every stored company")
	cmd.Flags().BoolVar(&remove, "remove", false, "Remove the given companies from the queue")
	cmd.Flags().BoolVar(&clearAll, "clear", false, "Remove every queued company")
	cmd.MarkFlagsMutuallyExclusive("remove", "clear", "all")
	cmd.MarkFlagsMutuallyExclusive("remove", "force")

	return cmd
}

// unqueue drops the given companies, or all of them, from the queue
func unqueue(cmd *cobra.Command, env *Env, ids []string, all bool) error {
	q, err := env.Queue()
	if err != nil {
		return err
	}

	removed := 0
	if all {
		removed = q.Len()
		q.Clear()
	} else {
		if len(ids) == 0 {
			return fmt.Errorf("no companies given to remove")
		}
		for _, id := range ids {
			if q.Remove(id) {
				removed++
			} else {
				env.Slog.Warn("not queued", "company", id)
			}
		}
	}

	if err := q.Save(); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Removed %d companies (%d waiting)\n", removed, q.Len())
	return nil
}
