package detector

import (
	"context"
	"io"

	"tangled.org/atscan.net/reviewscan/internal/stats"
)

type rpuSample struct {
	reviewerID string
	name       string
	rating     int
	rpu        int
}

// ReviewsPerUserDetector compares reviewers with few lifetime reviews
// against prolific ones
type ReviewsPerUserDetector struct {
	th *Thresholds

	samples []rpuSample
	score   *Score
}

func NewReviewsPerUserDetector(env Env) *ReviewsPerUserDetector {
	return &ReviewsPerUserDetector{th: env.thresholds()}
}

func (d *ReviewsPerUserDetector) Name() string { return "median_rpu" }
func (d *ReviewsPerUserDetector) Description() string {
	return "Median reviews-per-user of verified reviewers and the rating gap between low and high RPU cohorts"
}

func (d *ReviewsPerUserDetector) Feed(s Sample, lowSignal bool) {
	if lowSignal {
		return
	}
	d.samples = append(d.samples, rpuSample{
		reviewerID: s.ReviewerID(),
		name:       s.Review.ReviewerName,
		rating:     s.Review.Rating,
		rpu:        s.RPU(),
	})
}

func (d *ReviewsPerUserDetector) split() (low, high []int) {
	for _, s := range d.samples {
		if s.rpu <= d.th.RPUSplit {
			low = append(low, s.rating)
		} else {
			high = append(high, s.rating)
		}
	}
	return low, high
}

func (d *ReviewsPerUserDetector) rpus() []int {
	out := make([]int, len(d.samples))
	for i, s := range d.samples {
		out[i] = s.rpu
	}
	return out
}

func (d *ReviewsPerUserDetector) Score(ctx context.Context) *Score {
	if d.score != nil {
		return d.score
	}
	score := newScore(d.Name())
	d.score = score

	if len(d.samples) == 0 {
		return score
	}

	median := stats.MedianInt(d.rpus())
	score.Metrics.SetInt("median_rpu", median)

	if len(d.samples) < d.th.MinSampleSize {
		return score
	}

	low, high := d.split()
	if len(low) == 0 || len(high) == 0 {
		return score
	}

	lowRating := stats.Round3(stats.Mean(low))
	highRating := stats.Round3(stats.Mean(high))
	diff := gap(lowRating, highRating)

	score.Metrics.SetFloat("low_rpu_rating", lowRating)
	score.Metrics.SetFloat("high_rpu_rating", highRating)

	if median <= d.th.MedianRPU && diff >= d.th.RatingDiff {
		score.detect("median_rpu %d <= %d (low_rpu %.1f - high_rpu %.1f = %.1f >= %.1f; %d of %d with rpu <= %d)",
			median, d.th.MedianRPU, lowRating, highRating, diff, d.th.RatingDiff, len(low), len(d.samples), d.th.RPUSplit)
	}

	return score
}

func (d *ReviewsPerUserDetector) Explain(w io.Writer) error {
	ew := &explainWriter{w: w}
	ew.printf("EXPLAIN median_rpu")
	for _, s := range d.samples {
		cohort := "high"
		if s.rpu <= d.th.RPUSplit {
			cohort = "low"
		}
		ew.printf("%s %s %s rating %d rpu %d", cohort, s.reviewerID, s.name, s.rating, s.rpu)
	}
	ew.printf("RPUs: %s", formatInts(stats.Sorted(d.rpus())))
	if d.score != nil {
		for _, line := range d.score.Detections {
			ew.printf("result: %s", line)
		}
	}
	ew.printf("")
	return ew.err
}
