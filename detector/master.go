package detector

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"tangled.org/atscan.net/reviewscan/internal/types"
	"tangled.org/atscan.net/reviewscan/relation"
	"tangled.org/atscan.net/reviewscan/review"
)

type masterState int

const (
	stateFeeding masterState = iota
	stateScored
	stateExplained
)

// MasterConfig configures one detection run
type MasterConfig struct {
	Target     string
	Thresholds *Thresholds
	Reviewers  review.ReviewerLookup
	Companies  review.CompanyLookup
	Registry   *Registry    // nil means DefaultRegistry
	Logger     types.Logger // nil means no logging
	Now        func() time.Time
}

// Verdict is the final, serializable outcome of one run
type Verdict struct {
	Trusted          bool           `json:"trusted"`
	Detections       []string       `json:"detections"`
	Metrics          Metrics        `json:"metrics"`
	Providers        map[string]int `json:"providers"`
	ParamFingerprint string         `json:"param_fp"`
	Date             time.Time      `json:"date"`
	Remark           string         `json:"remark,omitempty"`
}

// DetectionNames returns the leading metric name of every detection line
func (v *Verdict) DetectionNames() []string {
	names := make([]string, 0, len(v.Detections))
	for _, d := range v.Detections {
		name, _, _ := strings.Cut(d, " ")
		names = append(names, name)
	}
	return names
}

// Master feeds reviews of one business to every registered detector and
// combines their scores into a Verdict. A Master is used for one run only.
type Master struct {
	target    string
	th        *Thresholds
	reviewers *review.Cache
	detectors []Detector
	relations *RelationDetector
	logger    types.Logger
	now       func() time.Time

	state     masterState
	seen      map[string]struct{}
	providers map[string]int
	total     int
	processed int
	lowSignal int
	discarded int
	warnings  []string

	verdict *Verdict
	scores  []*Score
	err     error
}

// NewMaster builds a fresh orchestrator with its own detectors and reviewer cache
func NewMaster(cfg MasterConfig) *Master {
	th := cfg.Thresholds
	if th == nil {
		th = DefaultThresholds()
	}
	registry := cfg.Registry
	if registry == nil {
		registry = DefaultRegistry()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = types.NopLogger{}
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	m := &Master{
		target:    cfg.Target,
		th:        th,
		reviewers: review.NewCache(cfg.Reviewers),
		logger:    logger,
		now:       now,
		seen:      make(map[string]struct{}),
		providers: make(map[string]int),
	}

	m.detectors = registry.Build(Env{
		Target:     cfg.Target,
		Thresholds: th,
		Companies:  cfg.Companies,
	})
	for _, d := range m.detectors {
		if rd, ok := d.(*RelationDetector); ok {
			m.relations = rd
		}
	}
	return m
}

// Detectors returns the detectors of this run in registration order
func (m *Master) Detectors() []Detector {
	return append([]Detector(nil), m.detectors...)
}

// Feed classifies one review and passes it to every detector
func (m *Master) Feed(ctx context.Context, r review.Review) {
	if m.state != stateFeeding {
		panic(fmt.Errorf("%w: feed after score", ErrInvalidState))
	}
	m.total++

	if err := r.Validate(); err != nil {
		m.discarded++
		return
	}
	if r.Age(m.now()) > m.th.MaxAge() {
		m.discarded++
		return
	}

	var reviewer *review.Reviewer
	if !r.Anonymous() {
		u, err := m.reviewers.Reviewer(ctx, r.ReviewerID)
		switch {
		case err == nil:
			reviewer = u
		case errors.Is(err, review.ErrNotFound):
			// private or removed profile, treated as low-signal
		default:
			m.discarded++
			m.warn("discard review %s: reviewer %s: %v", r.ID, r.ReviewerID, err)
			return
		}
	}

	lowSignal := reviewer == nil || reviewer.NReviews() <= 1
	if !lowSignal {
		if _, dup := m.seen[r.ReviewerID]; dup {
			lowSignal = true
		}
	}

	m.processed++
	if lowSignal {
		m.lowSignal++
	}
	m.providers[r.Provider]++

	s := Sample{Review: r, Reviewer: reviewer}
	for _, d := range m.detectors {
		d.Feed(s, lowSignal)
	}

	if !lowSignal {
		m.seen[r.ReviewerID] = struct{}{}
	}
}

// FeedAll feeds every review, checking ctx between reviews
func (m *Master) FeedAll(ctx context.Context, reviews []review.Review) error {
	for _, r := range reviews {
		if err := ctx.Err(); err != nil {
			return err
		}
		m.Feed(ctx, r)
	}
	return nil
}

// Score finalizes every detector and builds the verdict. Repeated calls
// return the same verdict (or the same error).
func (m *Master) Score(ctx context.Context) (*Verdict, error) {
	if m.state != stateFeeding {
		return m.verdict, m.err
	}
	m.state = stateScored

	metrics := make(Metrics)
	metrics.SetInt("total_reviews", m.total)
	metrics.SetInt("processed_reviews", m.processed)
	metrics.SetInt("low_signal_reviews", m.lowSignal)
	metrics.SetInt("discarded", m.discarded)
	if m.processed == 0 {
		metrics.SetText("status", "insufficient data")
	}

	detections := make([]string, 0)
	for _, d := range m.detectors {
		score := d.Score(ctx)
		m.scores = append(m.scores, score)
		if err := metrics.Merge(score.Metrics); err != nil {
			m.err = fmt.Errorf("detector %s: %w", d.Name(), err)
			return nil, m.err
		}
		detections = append(detections, score.Detections...)
	}

	if m.relations != nil {
		m.warnings = append(m.warnings, m.relations.Graph().Warnings()...)
	}

	providers := make(map[string]int, len(m.providers))
	for k, v := range m.providers {
		providers[k] = v
	}

	m.verdict = &Verdict{
		Trusted:          len(detections) == 0,
		Detections:       detections,
		Metrics:          metrics,
		Providers:        providers,
		ParamFingerprint: m.th.Fingerprint(),
		Date:             m.now().UTC(),
	}
	return m.verdict, nil
}

// Explain writes the evidence of every triggered detector in registration order
func (m *Master) Explain(w io.Writer) error {
	if m.state == stateFeeding || m.verdict == nil {
		panic(fmt.Errorf("%w: explain before score", ErrInvalidState))
	}
	m.state = stateExplained

	for i, d := range m.detectors {
		if !m.scores[i].Triggered() {
			continue
		}
		if err := d.Explain(w); err != nil {
			return fmt.Errorf("explain %s: %w", d.Name(), err)
		}
	}
	return nil
}

// Relations returns the relation export, nil when no relation detector is registered
func (m *Master) Relations() []relation.Record {
	if m.relations == nil {
		return nil
	}
	return m.relations.Export()
}

// Warnings returns non-fatal problems met during the run
func (m *Master) Warnings() []string {
	return append([]string(nil), m.warnings...)
}

// CacheStats returns reviewer cache hits and misses
func (m *Master) CacheStats() (hits, misses int) {
	return m.reviewers.Stats()
}

func (m *Master) warn(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	m.warnings = append(m.warnings, msg)
	m.logger.Printf("[%s] %s", m.target, msg)
}
