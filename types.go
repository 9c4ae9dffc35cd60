package reviewscan

import (
	"errors"

	"tangled.org/atscan.net/reviewscan/detector"
	"tangled.org/atscan.net/reviewscan/internal/types"
	"tangled.org/atscan.net/reviewscan/relation"
	"tangled.org/atscan.net/reviewscan/review"
)

// Re-export commonly used types for convenience
type (
	Verdict    = detector.Verdict
	Thresholds = detector.Thresholds
	Company    = review.Company
	Relation   = relation.Record
	Logger     = types.Logger
)

var (
	// ErrReportExists is returned by Detect when a report is stored and no rerun was forced
	ErrReportExists = errors.New("report already exists")

	// ErrNoCompany is returned for companies that are not stored
	ErrNoCompany = errors.New("no such company")

	// ErrNoReport is returned when a company has no (current) report
	ErrNoReport = errors.New("no report")
)

// DetectOptions tunes a single detection
type DetectOptions struct {
	// Force reruns detection even if a report exists
	Force bool
}

// ProgressFunc receives the number of fed reviews out of total
type ProgressFunc func(done, total int)

// Report is what gets stored for a company after detection
type Report struct {
	Version   int             `json:"version"`
	Company   *review.Company `json:"company"`
	Verdict   *Verdict        `json:"score"`
	Relations []Relation      `json:"relations"`
	Warnings  []string        `json:"warnings,omitempty"`
}

// Explained reports whether an explanation was stored with the report
func (r *Report) Explained() bool {
	return r.Verdict != nil && !r.Verdict.Trusted
}

type nopLogger = types.NopLogger
