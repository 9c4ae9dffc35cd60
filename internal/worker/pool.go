package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"tangled.org/atscan.net/reviewscan"
	"tangled.org/atscan.net/reviewscan/internal/queue"
	"tangled.org/atscan.net/reviewscan/internal/types"
)

// Detector runs one isolated detection
type Detector interface {
	Detect(ctx context.Context, companyID string, opts reviewscan.DetectOptions) (*reviewscan.Report, error)
}

// Result is the outcome of one job
type Result struct {
	Job      queue.Job
	Report   *reviewscan.Report
	Err      error
	Label    string
	Duration time.Duration
}

// Config configures the pool
type Config struct {
	Workers  int
	Interval time.Duration
	Logger   types.Logger
	OnResult func(Result)
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		Workers:  4,
		Interval: 10 * time.Second,
	}
}

// Pool drains the queue with a fixed number of workers. A failing or
// panicking run never stops the pool.
type Pool struct {
	queue    *queue.Queue
	detector Detector
	config   *Config
	logger   types.Logger
}

// NewPool creates a pool over q
func NewPool(q *queue.Queue, d Detector, config *Config) *Pool {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Workers < 1 {
		config.Workers = 1
	}
	if config.Interval <= 0 {
		config.Interval = 10 * time.Second
	}
	logger := config.Logger
	if logger == nil {
		logger = types.NopLogger{}
	}
	return &Pool{queue: q, detector: d, config: config, logger: logger}
}

// Run processes the queue until ctx is done, polling every Interval
func (p *Pool) Run(ctx context.Context) error {
	p.logger.Printf("[Worker] Started (%d workers, interval: %s)", p.config.Workers, p.config.Interval)

	total, err := p.RunOnce(ctx)
	if err != nil {
		return err
	}

	ticker := time.NewTicker(p.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Printf("[Worker] Stopped (total processed: %d)", total)
			return ctx.Err()

		case <-ticker.C:
			n, err := p.RunOnce(ctx)
			if err != nil {
				if ctx.Err() != nil {
					continue
				}
				p.logger.Printf("[Worker] Error: %v", err)
				continue
			}
			total += n
		}
	}
}

// RunOnce drains the queue and returns the number of processed jobs
func (p *Pool) RunOnce(ctx context.Context) (int, error) {
	queueLength.Set(float64(p.queue.Len()))
	if p.queue.Len() == 0 {
		return 0, nil
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		processed int
	)

	for i := 0; i < p.config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				default:
				}

				job, ok := p.queue.Pop()
				if !ok {
					return
				}
				queueLength.Set(float64(p.queue.Len()))

				result := p.runJob(ctx, job)
				if result.Err != nil && ctx.Err() != nil {
					// interrupted, keep it for the next start
					if err := p.queue.Requeue(job); err != nil {
						p.logger.Printf("[Worker] Failed to requeue %s: %v", job.CompanyID, err)
					}
					return
				}
				p.record(result)

				mu.Lock()
				processed++
				mu.Unlock()

				if err := p.queue.SaveIfNeeded(); err != nil {
					p.logger.Printf("[Worker] Failed to save queue: %v", err)
				}
			}
		}()
	}
	wg.Wait()

	if err := p.queue.Save(); err != nil {
		return processed, fmt.Errorf("failed to save queue: %w", err)
	}
	return processed, nil
}

// runJob runs one detection, converting panics into errors
func (p *Pool) runJob(ctx context.Context, job queue.Job) (result Result) {
	start := time.Now()
	result.Job = job

	defer func() {
		result.Duration = time.Since(start)
		if r := recover(); r != nil {
			result.Report = nil
			result.Err = fmt.Errorf("panic in run %s: %v\n%s", job.CompanyID, r, debug.Stack())
			result.Label = ResultPanic
		}
	}()

	report, err := p.detector.Detect(ctx, job.CompanyID, reviewscan.DetectOptions{Force: job.Force})
	switch {
	case errors.Is(err, reviewscan.ErrReportExists):
		result.Label = ResultExists
	case err != nil:
		result.Err = err
		result.Label = ResultError
	case report.Verdict.Trusted:
		result.Report = report
		result.Label = ResultTrusted
	default:
		result.Report = report
		result.Label = ResultUntrusted
	}
	return result
}

func (p *Pool) record(result Result) {
	runsTotal.WithLabelValues(result.Label).Inc()
	runDuration.Observe(result.Duration.Seconds())

	switch result.Label {
	case ResultError, ResultPanic:
		p.logger.Printf("[Worker] %s failed: %v", result.Job.CompanyID, result.Err)
	case ResultExists:
		p.logger.Printf("[Worker] %s already has a report, skipped", result.Job.CompanyID)
	default:
		p.logger.Printf("[Worker] %s %s in %s", result.Job.CompanyID, result.Label, result.Duration.Round(time.Millisecond))
	}

	if p.config.OnResult != nil {
		p.config.OnResult(result)
	}
}
