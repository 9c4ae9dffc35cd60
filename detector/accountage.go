package detector

import (
	"context"
	"io"
	"sort"
	"time"

	"tangled.org/atscan.net/reviewscan/internal/stats"
)

type ageSample struct {
	reviewerID string
	name       string
	created    time.Time
	birthday   time.Time
	age        int
	rating     int
	high       bool
}

// AccountAgeDetector looks for young accounts posting maximal ratings.
// The median age is taken over high-rated reviews; the young/old rating gap
// is measured over every verified review with a known account age.
type AccountAgeDetector struct {
	th *Thresholds

	samples []ageSample
	highN   int
	unknown int // verified reviews with no account age (private profiles)

	median     int
	young, old []ageSample
	score      *Score
}

func NewAccountAgeDetector(env Env) *AccountAgeDetector {
	return &AccountAgeDetector{th: env.thresholds()}
}

func (d *AccountAgeDetector) Name() string { return "account_age" }
func (d *AccountAgeDetector) Description() string {
	return "Median account age of high-rating reviewers and the rating gap between young and old accounts"
}

func (d *AccountAgeDetector) Feed(s Sample, lowSignal bool) {
	if lowSignal || s.Reviewer == nil {
		return
	}
	age, ok := s.Reviewer.AccountAgeAt(s.Review.Created)
	if !ok {
		d.unknown++
		return
	}
	d.samples = append(d.samples, ageSample{
		reviewerID: s.ReviewerID(),
		name:       s.Review.ReviewerName,
		created:    s.Review.Created,
		birthday:   s.Reviewer.Birthday,
		age:        age,
		rating:     s.Review.Rating,
		high:       d.th.highRated(s.Review.Rating),
	})
	if d.th.highRated(s.Review.Rating) {
		d.highN++
	}
}

func (d *AccountAgeDetector) Score(ctx context.Context) *Score {
	if d.score != nil {
		return d.score
	}
	score := newScore(d.Name())
	d.score = score

	if d.highN == 0 {
		return score
	}

	ages := make([]int, 0, d.highN)
	for _, s := range d.samples {
		if s.high {
			ages = append(ages, s.age)
		}
	}
	d.median = stats.MedianInt(ages)
	score.Metrics.SetInt("median_user_age", d.median)

	for _, s := range d.samples {
		if s.age <= d.median {
			d.young = append(d.young, s)
		} else {
			d.old = append(d.old, s)
		}
	}

	if len(d.young) < d.th.MinSampleSize || len(d.old) == 0 {
		return score
	}

	youngRating := stats.Round3(stats.Mean(ratingsOf(d.young)))
	oldRating := stats.Round3(stats.Mean(ratingsOf(d.old)))
	diff := gap(youngRating, oldRating)

	score.Metrics.SetFloat("young_rating", youngRating)
	score.Metrics.SetFloat("old_rating", oldRating)

	if d.median <= d.th.MedianUserAge && diff >= d.th.RatingDiff {
		score.detect("median_user_age %d <= %d (young %.1f - old %.1f = %.1f >= %.1f; %d of %d young)",
			d.median, d.th.MedianUserAge, youngRating, oldRating, diff, d.th.RatingDiff, len(d.young), len(d.samples))
	}

	return score
}

func ratingsOf(samples []ageSample) []int {
	out := make([]int, len(samples))
	for i, s := range samples {
		out[i] = s.rating
	}
	return out
}

func (d *AccountAgeDetector) Explain(w io.Writer) error {
	ew := &explainWriter{w: w}
	ew.printf("EXPLAIN median_user_age")

	sorted := append([]ageSample(nil), d.samples...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].age < sorted[j].age })

	for _, s := range sorted {
		cohort := "old"
		if s.age <= d.median {
			cohort = "young"
		}
		mark := ""
		if s.high {
			mark = " *"
		}
		ew.printf("%s %s (%s %s - %s) = %d days rating %d%s",
			cohort, s.reviewerID, s.name, s.created.Format(time.DateOnly), s.birthday.Format(time.DateOnly), s.age, s.rating, mark)
	}
	ew.printf("high-rated ages (median %d): %s", d.median, formatInts(sortedAges(d.samples)))
	if d.unknown > 0 {
		ew.printf("skipped %d reviews with unknown account age", d.unknown)
	}
	if d.score != nil {
		for _, line := range d.score.Detections {
			ew.printf("result: %s", line)
		}
	}
	ew.printf("")
	return ew.err
}

func sortedAges(samples []ageSample) []int {
	var ages []int
	for _, s := range samples {
		if s.high {
			ages = append(ages, s.age)
		}
	}
	return stats.Sorted(ages)
}
