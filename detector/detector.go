// detector/detector.go
package detector

import (
	"context"
	"errors"
	"fmt"
	"io"

	"tangled.org/atscan.net/reviewscan/review"
)

var (
	// ErrMetricCollision means two detectors reported the same metric with
	// different values. It indicates a registration bug, not bad data.
	ErrMetricCollision = errors.New("metric collision")

	// ErrInvalidState is the panic value for calls made in the wrong
	// orchestrator state (feed after score, explain before score)
	ErrInvalidState = errors.New("invalid detector state")
)

// Detector tests one fraud signature over the reviews of a single business
type Detector interface {
	// Name returns the detector's unique identifier
	Name() string

	// Description returns a human-readable description
	Description() string

	// Feed passes one review; lowSignal marks weak/duplicate reviewers
	Feed(s Sample, lowSignal bool)

	// Score finalizes the detector. Repeated calls return the same score.
	Score(ctx context.Context) *Score

	// Explain writes the evidence behind the detections of Score
	Explain(w io.Writer) error
}

// Sample is a review together with its resolved author.
// Reviewer is nil for anonymous reviews and private profiles.
type Sample struct {
	Review   review.Review
	Reviewer *review.Reviewer
}

// RPU returns the author's lifetime review count
func (s Sample) RPU() int {
	return s.Reviewer.NReviews()
}

// ReviewerID returns the author id or "-" when unknown
func (s Sample) ReviewerID() string {
	if s.Review.ReviewerID == "" {
		return "-"
	}
	return s.Review.ReviewerID
}

// Score is the partial result of one detector
type Score struct {
	Detector   string   `json:"detector"`
	Metrics    Metrics  `json:"metrics"`
	Detections []string `json:"detections"`
}

func newScore(name string) *Score {
	return &Score{
		Detector:   name,
		Metrics:    make(Metrics),
		Detections: make([]string, 0),
	}
}

// Triggered reports whether the detector found anything
func (s *Score) Triggered() bool {
	return len(s.Detections) > 0
}

func (s *Score) detect(format string, args ...interface{}) {
	s.Detections = append(s.Detections, fmt.Sprintf(format, args...))
}

// Env is what a detector gets to know about the run it belongs to
type Env struct {
	Target     string
	Thresholds *Thresholds
	Companies  review.CompanyLookup
}

func (e Env) thresholds() *Thresholds {
	if e.Thresholds == nil {
		return DefaultThresholds()
	}
	return e.Thresholds
}
