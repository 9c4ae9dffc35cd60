package reviewscan

import (
	"time"

	"tangled.org/atscan.net/reviewscan/detector"
)

type config struct {
	dir        string
	thresholds *detector.Thresholds
	registry   *detector.Registry
	logger     Logger
	now        func() time.Time
	progress   ProgressFunc
}

func defaultConfig() *config {
	return &config{
		dir:        "./reviewscan_data",
		thresholds: detector.DefaultThresholds(),
		logger:     nopLogger{},
		now:        time.Now,
	}
}

// Option configures the Scanner
type Option func(*config)

// WithDirectory sets the data directory
func WithDirectory(dir string) Option {
	return func(c *config) {
		c.dir = dir
	}
}

// WithThresholds sets detection thresholds
func WithThresholds(th *detector.Thresholds) Option {
	return func(c *config) {
		if th != nil {
			c.thresholds = th
		}
	}
}

// WithRegistry replaces the built-in detector set
func WithRegistry(r *detector.Registry) Option {
	return func(c *config) {
		c.registry = r
	}
}

// WithLogger sets a custom logger
func WithLogger(logger Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithClock sets the clock used for review ages and verdict dates
func WithClock(now func() time.Time) Option {
	return func(c *config) {
		c.now = now
	}
}

// WithProgress reports feeding progress of every detection
func WithProgress(fn ProgressFunc) Option {
	return func(c *config) {
		c.progress = fn
	}
}
