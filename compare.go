package reviewscan

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"tangled.org/atscan.net/reviewscan/relation"
	"tangled.org/atscan.net/reviewscan/review"
)

// SharedReviewer is one account that reviewed both compared companies
type SharedReviewer struct {
	ID       string `json:"uid"`
	Name     string `json:"name,omitempty"`
	NReviews int    `json:"nreviews"`
	RatingA  int    `json:"rating_a"`
	RatingB  int    `json:"rating_b"`
}

// Comparison is the relation between two companies through their shared reviewers
type Comparison struct {
	A         *review.Company  `json:"a"`
	B         *review.Company  `json:"b"`
	Shared    []SharedReviewer `json:"shared"`
	Private   int              `json:"private"` // shared accounts without a profile
	MedianRPU int              `json:"median_rpu"`
	MeanA     float64          `json:"rating_a"`
	MeanB     float64          `json:"rating_b"`
	Dangerous bool             `json:"dangerous"`
}

// Compare finds the reviewers companies a and b have in common. A reviewer
// counts as shared when either company's review list or the reviewer's own
// profile shows a review of both.
func (s *Scanner) Compare(ctx context.Context, a, b string) (*Comparison, error) {
	if a == b {
		return nil, fmt.Errorf("cannot compare %s with itself", a)
	}
	ca, byA, err := s.reviewsByAuthor(ctx, a)
	if err != nil {
		return nil, err
	}
	cb, byB, err := s.reviewsByAuthor(ctx, b)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(byA)+len(byB))
	for id := range byA {
		ids = append(ids, id)
	}
	for id := range byB {
		if _, ok := byA[id]; !ok {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	graph := relation.NewGraph(a, s.th.RelationRules())
	cmp := &Comparison{A: ca, B: cb, Shared: make([]SharedReviewer, 0)}

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		ra, okA := byA[id]
		rb, okB := byB[id]

		u, err := s.store.Reviewer(ctx, id)
		if err != nil {
			if !errors.Is(err, review.ErrNotFound) {
				return nil, err
			}
			if okA && okB {
				cmp.Private++
			}
			continue
		}
		if !okA {
			ra, okA = reviewOf(u, a)
		}
		if !okB {
			rb, okB = reviewOf(u, b)
		}
		if !okA || !okB {
			continue
		}

		cmp.Shared = append(cmp.Shared, SharedReviewer{
			ID:       id,
			Name:     u.Name,
			NReviews: u.NReviews(),
			RatingA:  ra.Rating,
			RatingB:  rb.Rating,
		})
		graph.RecordHit(b, id, u.NReviews(), ra.Rating, rb.Rating)
	}

	if rel, ok := graph.Lookup(b); ok {
		cmp.MedianRPU = rel.Median()
		cmp.MeanA = rel.MeanA()
		cmp.MeanB = rel.MeanB()
		cmp.Dangerous = rel.IsDangerous(graph.Rules())
	}
	return cmp, nil
}

// reviewsByAuthor loads a company and indexes its reviews by reviewer id
func (s *Scanner) reviewsByAuthor(ctx context.Context, companyID string) (*review.Company, map[string]review.Review, error) {
	company, err := s.store.Company(ctx, companyID)
	if err != nil {
		if errors.Is(err, review.ErrNotFound) {
			return nil, nil, fmt.Errorf("%w: %s", ErrNoCompany, companyID)
		}
		return nil, nil, err
	}
	reviews, err := s.store.Reviews(ctx, companyID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load reviews of %s: %w", companyID, err)
	}

	by := make(map[string]review.Review, len(reviews))
	for _, r := range reviews {
		if r.Anonymous() {
			continue
		}
		if _, seen := by[r.ReviewerID]; !seen {
			by[r.ReviewerID] = r
		}
	}
	return company, by, nil
}

// reviewOf returns the first review of businessID in a reviewer's profile
func reviewOf(u *review.Reviewer, businessID string) (review.Review, bool) {
	for _, r := range u.Reviews {
		if r.BusinessID == businessID {
			return r, true
		}
	}
	return review.Review{}, false
}
