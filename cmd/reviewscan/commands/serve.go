package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"tangled.org/atscan.net/reviewscan/internal/worker"
	"tangled.org/atscan.net/reviewscan/server"
)

func NewServeCommand() *cobra.Command {
	var (
		host            string
		port            string
		enableWebSocket bool
		enableMetrics   bool
		workers         int
		interval        time.Duration
		allowOrigins    []string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Start the HTTP API over stored reports

Serves reports and explanations, accepts submissions and, unless
--workers is 0, evaluates submitted companies in the background.
Finished runs are pushed to /ws subscribers when --websocket is set.`,

		Example: `  reviewscan serve
  reviewscan serve --port 9000 --websocket --metrics
  reviewscan serve --workers 0`,

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

			addr := fmt.Sprintf("%s:%s", host, port)
			srv := server.New(scanner, q, &server.Config{
				Addr:            addr,
				EnableWebSocket: enableWebSocket,
				EnableMetrics:   enableMetrics,
				Version:         GetVersion(),
				Logger:          env.Logger,
				AllowedOrigins:  allowOrigins,
			})

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			poolDone := make(chan struct{})
			if workers > 0 {
				pool := worker.NewPool(q, scanner, &worker.Config{
					Workers:  workers,
					Interval: interval,
					Logger:   env.Logger,
					OnResult: srv.Hub().Publish,
				})
				go func() {
					defer close(poolDone)
					if err := pool.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
						env.Slog.Error("worker pool stopped", "error", err)
					}
				}()
			} else {
				close(poolDone)
			}

			env.Slog.Info("starting reviewscan server",
				"addr", addr,
				"dir", env.Dir,
				"websocket", enableWebSocket,
				"metrics", enableMetrics,
				"workers", workers)

			serveErr := make(chan error, 1)
			go func() {
				serveErr <- srv.ListenAndServe()
			}()

			select {
			case err := <-serveErr:
				stop()
				<-poolDone
				if !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("server error: %w", err)
				}
				return nil
			case <-ctx.Done():
			}

			env.Slog.Info("shutdown signal received")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				env.Slog.Error("server shutdown failed", "error", err)
			}

			<-poolDone
			if err := q.Save(); err != nil {
				return fmt.Errorf("failed to save queue: %w", err)
			}
			env.Slog.Info("shutdown complete", "queued", q.Len())
			return nil
		},
	}

	cmd.Flags().StringVar(&host, "host", "127.0.0.1", "HTTP server host")
	cmd.Flags().StringVar(&port, "port", "8080", "HTTP server port")
	cmd.Flags().BoolVar(&enableWebSocket, "websocket", false, "Enable the /ws verdict stream")
	cmd.Flags().BoolVar(&enableMetrics, "metrics", false, "Enable the /metrics endpoint")
	cmd.Flags().IntVarP(&workers, "workers", "w", 2, "Background workers (0 = submissions are only queued)")
	cmd.Flags().DurationVar(&interval, "interval", 5*time.Second, "Queue polling interval")
	cmd.Flags().StringSliceVar(&allowOrigins, "allow-origin", nil, "Browser origin allowed besides the server host (repeatable, * for any)")

	return cmd
}
