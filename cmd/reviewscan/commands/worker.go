package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"tangled.org/atscan.net/reviewscan/internal/format"
	"tangled.org/atscan.net/reviewscan/internal/worker"
)

func NewWorkerCommand() *cobra.Command {
	var (
		workers  int
		interval time.Duration
		once     bool
	)

	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Evaluate queued companies",
		Long: `Evaluate queued companies with a pool of workers

Each job is an isolated run; a failing or panicking run is logged and
counted and never stops the pool. Without --once the queue is polled
until the process is interrupted. Interrupted jobs stay queued.`,

		Example: `  reviewscan worker
  reviewscan worker --workers 8 --interval 30s
  reviewscan worker --once`,

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
			q, err := env.Queue()
			if err != nil {
				return err
			}

			pool := worker.NewPool(q, scanner, &worker.Config{
				Workers:  workers,
				Interval: interval,
				Logger:   env.Logger,
			})

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if once {
				start := time.Now()
				n, err := pool.RunOnce(ctx)
				fmt.Fprintf(cmd.OutOrStdout(), "Processed %d companies in %s (%d waiting)\n", n, format.Duration(time.Since(start)), q.Len())
				return err
			}

			err = pool.Run(ctx)
			if errors.Is(err, context.Canceled) {
				env.Slog.Info("worker stopped", "queued", q.Len())
				return nil
			}
			return err
		},
	}

	cmd.Flags().IntVarP(&workers, "workers", "w", 4, "Number of concurrent runs")
	cmd.Flags().DurationVar(&interval, "interval", 10*time.Second, "Queue polling interval")
	cmd.Flags().BoolVar(&once, "once", false, "Drain the queue once and exit")

	return cmd
}
