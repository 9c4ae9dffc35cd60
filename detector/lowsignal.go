package detector

import (
	"context"
	"fmt"
	"io"

	"tangled.org/atscan.net/reviewscan/internal/stats"
)

// LowSignalDetector compares ratings of disposable accounts (at most one
// lifetime review, or repeated within the run) with ratings of verified reviewers
type LowSignalDetector struct {
	th *Thresholds

	lowRatings      []int
	verifiedRatings []int
	records         []string

	score *Score
}

func NewLowSignalDetector(env Env) *LowSignalDetector {
	return &LowSignalDetector{th: env.thresholds()}
}

func (d *LowSignalDetector) Name() string { return "low_signal" }
func (d *LowSignalDetector) Description() string {
	return "Share of reviews from disposable accounts and their rating gap to verified reviewers"
}

func (d *LowSignalDetector) Feed(s Sample, lowSignal bool) {
	r := s.Review
	if lowSignal {
		d.lowRatings = append(d.lowRatings, r.Rating)
		d.records = append(d.records, fmt.Sprintf("LOW %s %d %s uid:%s %s nr:%d",
			r.CreatedString(), r.Rating, r.Provider, s.ReviewerID(), r.ReviewerName, s.RPU()))
		return
	}
	d.verifiedRatings = append(d.verifiedRatings, r.Rating)
	d.records = append(d.records, fmt.Sprintf("VERIFIED %s %d %s uid:%s %s nr:%d",
		r.CreatedString(), r.Rating, r.Provider, s.ReviewerID(), r.ReviewerName, s.RPU()))
}

func (d *LowSignalDetector) Score(ctx context.Context) *Score {
	if d.score != nil {
		return d.score
	}
	score := newScore(d.Name())
	d.score = score

	if len(d.lowRatings) < d.th.MinSampleSize {
		score.Metrics.SetText("low_signal_status", fmt.Sprintf("few low-signal reviews (%d)", len(d.lowRatings)))
		return score
	}
	if len(d.verifiedRatings) < d.th.MinSampleSize {
		score.Metrics.SetText("low_signal_status", fmt.Sprintf("few verified reviews (%d)", len(d.verifiedRatings)))
		return score
	}

	total := len(d.lowRatings) + len(d.verifiedRatings)
	ratio := stats.Percent(len(d.lowRatings), total)
	lowRating := stats.Round3(stats.Mean(d.lowRatings))
	verifiedRating := stats.Round3(stats.Mean(d.verifiedRatings))
	diff := gap(lowRating, verifiedRating)

	score.Metrics.SetInt("low_signal_ratio", ratio)
	score.Metrics.SetFloat("low_signal_rating", lowRating)
	score.Metrics.SetFloat("verified_rating", verifiedRating)

	if ratio >= d.th.LowSignalRatio && diff >= d.th.RatingDiff {
		score.detect("low_signal_ratio %d%% >= %d%%; low_signal_rating(%.1f) - verified_rating(%.1f) = %.1f >= %.1f",
			ratio, d.th.LowSignalRatio, lowRating, verifiedRating, diff, d.th.RatingDiff)
	}

	return score
}

func (d *LowSignalDetector) Explain(w io.Writer) error {
	ew := &explainWriter{w: w}
	ew.printf("EXPLAIN low_signal_ratio")
	for _, line := range d.records {
		ew.printf("%s", line)
	}
	ew.printf("Low-signal ratings (%d): %s", len(d.lowRatings), formatInts(d.lowRatings))
	ew.printf("Verified ratings (%d): %s", len(d.verifiedRatings), formatInts(d.verifiedRatings))
	if d.score != nil {
		for _, line := range d.score.Detections {
			ew.printf("result: %s", line)
		}
	}
	ew.printf("")
	return ew.err
}
