package reviewscan

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"tangled.org/atscan.net/reviewscan/detector"
	"tangled.org/atscan.net/reviewscan/internal/storage"
	"tangled.org/atscan.net/reviewscan/internal/types"
	"tangled.org/atscan.net/reviewscan/relation"
	"tangled.org/atscan.net/reviewscan/review"
)

// Scanner is the main entry point: it runs detections for stored companies
// and keeps their reports. It is safe for concurrent use; every Detect call
// is an independent run.
type Scanner struct {
	store    *storage.Store
	th       *detector.Thresholds
	registry *detector.Registry
	logger   Logger
	now      func() time.Time
	progress ProgressFunc
}

// New creates a Scanner
func New(opts ...Option) (*Scanner, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	if err := cfg.thresholds.Validate(); err != nil {
		return nil, err
	}

	store, err := storage.New(cfg.dir, cfg.logger)
	if err != nil {
		return nil, err
	}

	return &Scanner{
		store:    store,
		th:       cfg.thresholds,
		registry: cfg.registry,
		logger:   cfg.logger,
		now:      cfg.now,
		progress: cfg.progress,
	}, nil
}

// Store exposes the underlying storage
func (s *Scanner) Store() *storage.Store { return s.store }

// Thresholds returns the active thresholds
func (s *Scanner) Thresholds() *detector.Thresholds { return s.th }

// Import loads a dataset document into storage
func (s *Scanner) Import(r io.Reader) (*storage.ImportStats, error) {
	return s.store.Import(r)
}

// Detect evaluates one company and stores its report. Companies with too
// few reviews are trusted without running detectors.
func (s *Scanner) Detect(ctx context.Context, companyID string, opts DetectOptions) (*Report, error) {
	company, err := s.store.Company(ctx, companyID)
	if err != nil {
		if errors.Is(err, review.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNoCompany, companyID)
		}
		return nil, err
	}

	if !opts.Force && s.HasReport(ctx, companyID) {
		return nil, fmt.Errorf("%w: %s", ErrReportExists, companyID)
	}

	reviews, err := s.store.Reviews(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to load reviews: %w", err)
	}

	start := time.Now()
	var (
		report  *Report
		explain *bytes.Buffer
	)

	if len(reviews) <= s.th.MinReviews {
		report = s.tooFew(company, reviews)
	} else {
		report, explain, err = s.run(ctx, company, reviews)
		if err != nil {
			return nil, err
		}
	}

	if err := s.store.DeleteResults(companyID); err != nil {
		return nil, fmt.Errorf("failed to remove previous results: %w", err)
	}
	if explain != nil {
		if err := s.store.SaveExplanation(companyID, explain); err != nil {
			return nil, err
		}
	}
	if err := s.store.SaveReport(companyID, report); err != nil {
		return nil, err
	}

	s.logger.Printf("%s %s trusted=%v detections=%d reviews=%d in %s",
		companyID, company.DisplayTitle(), report.Verdict.Trusted, len(report.Verdict.Detections),
		len(reviews), time.Since(start).Round(time.Millisecond))
	return report, nil
}

// run performs one full detection
func (s *Scanner) run(ctx context.Context, company *review.Company, reviews []review.Review) (*Report, *bytes.Buffer, error) {
	m := detector.NewMaster(detector.MasterConfig{
		Target:     company.ID,
		Thresholds: s.th,
		Reviewers:  s.store,
		Companies:  s.store,
		Registry:   s.registry,
		Logger:     s.logger,
		Now:        s.now,
	})

	for i, r := range reviews {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		m.Feed(ctx, r)
		if s.progress != nil {
			s.progress(i+1, len(reviews))
		}
	}

	verdict, err := m.Score(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("score %s: %w", company.ID, err)
	}

	report := &Report{
		Version:   types.DATAFORMAT_VERSION,
		Company:   company,
		Verdict:   verdict,
		Relations: m.Relations(),
		Warnings:  m.Warnings(),
	}
	if report.Relations == nil {
		report.Relations = make([]relation.Record, 0)
	}
	for _, w := range report.Warnings {
		s.logger.Printf("%s: %s", company.ID, w)
	}

	if verdict.Trusted {
		return report, nil, nil
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "Explanation for %s %s (%s)\n%s\n\n", company.ID, company.DisplayTitle(), company.Address, verdict.ParamFingerprint)
	if err := m.Explain(&buf); err != nil {
		return nil, nil, err
	}
	return report, &buf, nil
}

// tooFew builds the report of a company below the review minimum
func (s *Scanner) tooFew(company *review.Company, reviews []review.Review) *Report {
	metrics := make(detector.Metrics)
	metrics.SetInt("total_reviews", len(reviews))

	providers := make(map[string]int)
	for _, r := range reviews {
		providers[r.Provider]++
	}

	return &Report{
		Version: types.DATAFORMAT_VERSION,
		Company: company,
		Verdict: &detector.Verdict{
			Trusted:          true,
			Detections:       make([]string, 0),
			Metrics:          metrics,
			Providers:        providers,
			ParamFingerprint: s.th.Fingerprint(),
			Date:             s.now().UTC(),
			Remark:           fmt.Sprintf("too few reviews (%d)", len(reviews)),
		},
		Relations: make([]relation.Record, 0),
	}
}

// Report returns the stored report of a company. Reports written by an
// incompatible version, or lacking the verdict or company, count as missing.
func (s *Scanner) Report(ctx context.Context, companyID string) (*Report, error) {
	var report Report
	if err := s.store.LoadReport(companyID, &report); err != nil {
		if errors.Is(err, review.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNoReport, companyID)
		}
		return nil, err
	}
	if report.Version != types.DATAFORMAT_VERSION {
		return nil, fmt.Errorf("%w: %s has version %d", ErrNoReport, companyID, report.Version)
	}
	if report.Verdict == nil || report.Company == nil {
		return nil, fmt.Errorf("%w: %s has an incomplete report", ErrNoReport, companyID)
	}
	return &report, nil
}

// HasReport reports whether a company has a current, complete report
func (s *Scanner) HasReport(ctx context.Context, companyID string) bool {
	if !s.store.HasReport(companyID) {
		return false
	}
	_, err := s.Report(ctx, companyID)
	return err == nil
}

// Explanation opens the stored explanation of an untrusted company
func (s *Scanner) Explanation(ctx context.Context, companyID string) (io.ReadCloser, error) {
	rc, err := s.store.OpenExplanation(companyID)
	if err != nil {
		if errors.Is(err, review.ErrNotFound) {
			return nil, fmt.Errorf("%w: explanation for %s", ErrNoReport, companyID)
		}
		return nil, err
	}
	return rc, nil
}
