package relation

import (
	"fmt"

	"tangled.org/atscan.net/reviewscan/internal/stats"
	"tangled.org/atscan.net/reviewscan/review"
)

// Rules decides which relations are dangerous and which are worth showing
type Rules struct {
	HighRating   float64 // both mean ratings must reach this
	MinHits      int     // minimal number of hits
	MaxMedianRPU int     // median lifetime review count of shared reviewers must not exceed this
	ShowHits     int     // non-dangerous relations below this are hidden from export
}

// Relation aggregates all reviewers who reviewed both the target business
// and one neighbor business
type Relation struct {
	BusinessID string

	hits      int
	reviewers map[string]int // reviewer id -> lifetime review count
	order     []string       // reviewer ids in first-hit order
	ratingsA  []int
	ratingsB  []int

	calculated bool
	median     int
	meanA      float64
	meanB      float64

	neighbor *review.Company
}

func newRelation(businessID string) *Relation {
	return &Relation{
		BusinessID: businessID,
		reviewers:  make(map[string]int),
	}
}

func (r *Relation) hit(reviewerID string, rpu, ratingA, ratingB int) {
	if _, ok := r.reviewers[reviewerID]; !ok {
		r.order = append(r.order, reviewerID)
	}
	r.reviewers[reviewerID] = rpu
	r.ratingsA = append(r.ratingsA, ratingA)
	r.ratingsB = append(r.ratingsB, ratingB)
	r.hits++
	r.calculated = false
}

// calc computes the cached derived values
func (r *Relation) calc() {
	if r.calculated {
		return
	}
	rpus := make([]int, 0, len(r.order))
	for _, id := range r.order {
		rpus = append(rpus, r.reviewers[id])
	}
	r.median = stats.MedianInt(rpus)
	r.meanA = stats.Round3(stats.Mean(r.ratingsA))
	r.meanB = stats.Round3(stats.Mean(r.ratingsB))
	r.calculated = true
}

// Hits returns the number of qualifying co-occurrences
func (r *Relation) Hits() int { return r.hits }

// Reviewers returns distinct reviewer ids in first-hit order
func (r *Relation) Reviewers() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// ReviewerRPU returns the lifetime review count recorded for a reviewer
func (r *Relation) ReviewerRPU(id string) int { return r.reviewers[id] }

// RatingsA returns ratings given to the target business
func (r *Relation) RatingsA() []int { return append([]int(nil), r.ratingsA...) }

// RatingsB returns ratings given to the neighbor business
func (r *Relation) RatingsB() []int { return append([]int(nil), r.ratingsB...) }

// Median is the median lifetime review count of the shared reviewers
func (r *Relation) Median() int {
	r.calc()
	return r.median
}

// MeanA is the mean rating given to the target business
func (r *Relation) MeanA() float64 {
	r.calc()
	return r.meanA
}

// MeanB is the mean rating given to the neighbor business
func (r *Relation) MeanB() float64 {
	r.calc()
	return r.meanB
}

// HighRated reports whether both sides are rated at least rules.HighRating
func (r *Relation) HighRated(rules Rules) bool {
	r.calc()
	return r.meanA >= rules.HighRating && r.meanB >= rules.HighRating
}

// IsDangerous applies the reciprocal-rating ring rule
func (r *Relation) IsDangerous(rules Rules) bool {
	r.calc()
	return r.HighRated(rules) &&
		r.hits >= rules.MinHits &&
		r.median <= rules.MaxMedianRPU
}

// Visible reports whether the relation belongs in the export
func (r *Relation) Visible(rules Rules) bool {
	return r.IsDangerous(rules) || r.hits >= rules.ShowHits
}

// Neighbor returns the resolved neighbor company, nil if unresolved
func (r *Relation) Neighbor() *review.Company { return r.neighbor }

// Title returns the neighbor title, falling back to its id
func (r *Relation) Title() string {
	if r.neighbor == nil {
		return r.BusinessID
	}
	return r.neighbor.DisplayTitle()
}

// Town returns the neighbor town, empty if unknown
func (r *Relation) Town() string {
	if r.neighbor == nil {
		return ""
	}
	return r.neighbor.Town()
}

func (r *Relation) String() string {
	r.calc()
	return fmt.Sprintf("%s (%s): hits: %d/%d median: %d rating: %.1f %.1f",
		r.Title(), r.Town(), len(r.order), r.hits, r.median, r.meanA, r.meanB)
}
