package detector

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"tangled.org/atscan.net/reviewscan/relation"
)

// Thresholds holds every tunable parameter of a detection run.
// Percent values are integers in 0..100.
type Thresholds struct {
	// Reviews older than this many days are discarded before any detector sees them
	MaxReviewAge int `yaml:"max_review_age"`
	// Companies with at most this many reviews are trusted without detection
	MinReviews int `yaml:"min_reviews"`
	// Minimal cohort size below which a detector abstains
	MinSampleSize int `yaml:"min_sample_size"`

	LowSignalRatio int     `yaml:"low_signal_ratio"`
	RatingDiff     float64 `yaml:"rating_diff"`
	HighRating     float64 `yaml:"high_rating"`
	MedianUserAge  int     `yaml:"median_user_age"`
	MedianRPU      int     `yaml:"median_rpu"`
	RPUSplit       int     `yaml:"rpu_split"`

	// Dangerous relation rule
	RiskHits   int `yaml:"risk_hits"`
	RiskMedian int `yaml:"risk_median"`
	ShowHits   int `yaml:"show_hits"`

	HappyLongRelMinTowns   int `yaml:"happy_long_rel_min_towns"`
	HappyLongRelHappyRatio int `yaml:"happy_long_rel_happy_ratio"`
	HappyLongRel           int `yaml:"happy_long_rel"`
	SametitleRel           int `yaml:"sametitle_rel"`
	SametitleRatio         int `yaml:"sametitle_ratio"`
	RiskUserRatio          int `yaml:"risk_user_ratio"`
}

// DefaultThresholds returns the documented defaults
func DefaultThresholds() *Thresholds {
	return &Thresholds{
		MaxReviewAge:  730,
		MinReviews:    20,
		MinSampleSize: 5,

		LowSignalRatio: 30,
		RatingDiff:     1.0,
		HighRating:     4.5,
		MedianUserAge:  30,
		MedianRPU:      15,
		RPUSplit:       5,

		RiskHits:   10,
		RiskMedian: 15,
		ShowHits:   5,

		HappyLongRelMinTowns:   3,
		HappyLongRelHappyRatio: 50,
		HappyLongRel:           50,
		SametitleRel:           5,
		SametitleRatio:         50,
		RiskUserRatio:          30,
	}
}

// LoadThresholds reads a YAML file on top of the defaults
func LoadThresholds(path string) (*Thresholds, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read thresholds: %w", err)
	}
	return ParseThresholds(data)
}

// ParseThresholds decodes YAML on top of the defaults. Unknown keys are rejected.
func ParseThresholds(data []byte) (*Thresholds, error) {
	th := DefaultThresholds()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(th); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse thresholds: %w", err)
	}

	if err := th.Validate(); err != nil {
		return nil, err
	}
	return th, nil
}

// Validate checks parameter ranges
func (t *Thresholds) Validate() error {
	var problems []string

	for _, p := range t.Params() {
		if p.Value < 0 {
			problems = append(problems, fmt.Sprintf("%s must not be negative", p.Key))
		}
	}
	if t.MinSampleSize < 1 {
		problems = append(problems, "min_sample_size must be at least 1")
	}
	if t.HighRating < 1 || t.HighRating > 5 {
		problems = append(problems, "high_rating must be within 1..5")
	}
	percents := map[string]int{
		"low_signal_ratio":           t.LowSignalRatio,
		"happy_long_rel_happy_ratio": t.HappyLongRelHappyRatio,
		"happy_long_rel":             t.HappyLongRel,
		"sametitle_ratio":            t.SametitleRatio,
		"risk_user_ratio":            t.RiskUserRatio,
	}
	for _, key := range sortedKeys(percents) {
		if percents[key] > 100 {
			problems = append(problems, fmt.Sprintf("%s is a percent and must be <= 100", key))
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid thresholds: %s", strings.Join(problems, "; "))
	}
	return nil
}

// Param is one named threshold value
type Param struct {
	Key   string
	Value float64
}

// Params lists every threshold in fixed order
func (t *Thresholds) Params() []Param {
	return []Param{
		{"max_review_age", float64(t.MaxReviewAge)},
		{"min_reviews", float64(t.MinReviews)},
		{"min_sample_size", float64(t.MinSampleSize)},
		{"low_signal_ratio", float64(t.LowSignalRatio)},
		{"rating_diff", t.RatingDiff},
		{"high_rating", t.HighRating},
		{"median_user_age", float64(t.MedianUserAge)},
		{"median_rpu", float64(t.MedianRPU)},
		{"rpu_split", float64(t.RPUSplit)},
		{"risk_hits", float64(t.RiskHits)},
		{"risk_median", float64(t.RiskMedian)},
		{"show_hits", float64(t.ShowHits)},
		{"happy_long_rel_min_towns", float64(t.HappyLongRelMinTowns)},
		{"happy_long_rel_happy_ratio", float64(t.HappyLongRelHappyRatio)},
		{"happy_long_rel", float64(t.HappyLongRel)},
		{"sametitle_rel", float64(t.SametitleRel)},
		{"sametitle_ratio", float64(t.SametitleRatio)},
		{"risk_user_ratio", float64(t.RiskUserRatio)},
	}
}

// Fingerprint serializes all thresholds; two verdicts are comparable only
// when their fingerprints match
func (t *Thresholds) Fingerprint() string {
	params := t.Params()
	parts := make([]string, 0, len(params))
	for _, p := range params {
		parts = append(parts, p.Key+"="+strconv.FormatFloat(p.Value, 'g', -1, 64))
	}
	return strings.Join(parts, " ")
}

// MaxAge returns MaxReviewAge as a duration
func (t *Thresholds) MaxAge() time.Duration {
	return time.Duration(t.MaxReviewAge) * 24 * time.Hour
}

// RelationRules returns the dangerous relation rule
func (t *Thresholds) RelationRules() relation.Rules {
	return relation.Rules{
		HighRating:   t.HighRating,
		MinHits:      t.RiskHits,
		MaxMedianRPU: t.RiskMedian,
		ShowHits:     t.ShowHits,
	}
}

// highRated reports whether a single star rating reaches HighRating
func (t *Thresholds) highRated(rating int) bool {
	return float64(rating) >= t.HighRating
}
