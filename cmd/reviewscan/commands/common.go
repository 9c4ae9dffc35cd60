package commands

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"tangled.org/atscan.net/reviewscan"
	"tangled.org/atscan.net/reviewscan/detector"
	"tangled.org/atscan.net/reviewscan/internal/logging"
	"tangled.org/atscan.net/reviewscan/internal/queue"
)

// Env is what a command needs to run: the resolved directory, logger
// and thresholds
type Env struct {
	Dir        string
	Slog       *slog.Logger
	Logger     *logging.Printf
	Thresholds *detector.Thresholds
	Quiet      bool

	closeLog func() error
}

// Close flushes and closes the log outputs
func (e *Env) Close() {
	if e.closeLog != nil {
		e.closeLog()
	}
}

// newEnv reads the persistent root flags
func newEnv(cmd *cobra.Command) (*Env, error) {
	flags := cmd.Root().PersistentFlags()
	dir, _ := flags.GetString("dir")
	configPath, _ := flags.GetString("config")
	logFile, _ := flags.GetString("log-file")
	levelName, _ := flags.GetString("log-level")
	quiet, _ := flags.GetBool("quiet")

	if dir == "" {
		var err error
		dir, err = os.Getwd()
		if err != nil {
			return nil, err
		}
	}

	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("invalid directory path: %w", err)
	}

	level, err := logging.ParseLevel(levelName)
	if err != nil {
		return nil, err
	}

	th := detector.DefaultThresholds()
	if configPath != "" {
		th, err = detector.LoadThresholds(configPath)
		if err != nil {
			return nil, err
		}
	}

	logger, closeLog := logging.Setup(logging.Options{Level: level, File: logFile, Quiet: quiet})

	return &Env{
		Dir:        absDir,
		Slog:       logger,
		Logger:     logging.NewPrintf(logger),
		Thresholds: th,
		Quiet:      quiet,
		closeLog:   closeLog,
	}, nil
}

// Scanner opens the scanner over the environment's directory
func (e *Env) Scanner(opts ...reviewscan.Option) (*reviewscan.Scanner, error) {
	opts = append([]reviewscan.Option{
		reviewscan.WithDirectory(e.Dir),
		reviewscan.WithThresholds(e.Thresholds),
		reviewscan.WithLogger(e.Logger),
	}, opts...)
	return reviewscan.New(opts...)
}

// Queue opens the persisted evaluation queue
func (e *Env) Queue() (*queue.Queue, error) {
	return queue.New(e.Dir, e.Logger)
}
