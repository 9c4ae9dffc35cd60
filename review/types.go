package review

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"sort"
	"strings"
	"time"
)

// ErrNotFound is returned by lookups when the requested object does not exist
var ErrNotFound = errors.New("not found")

const (
	MinRating = 1
	MaxRating = 5
)

// Review is a single review posted by a reviewer for a business
type Review struct {
	ID              string    `json:"id,omitempty"`
	BusinessID      string    `json:"oid"`
	BusinessTitle   string    `json:"title,omitempty"`
	BusinessAddress string    `json:"address,omitempty"`
	ReviewerID      string    `json:"uid,omitempty"`
	ReviewerName    string    `json:"user_name,omitempty"`
	Rating          int       `json:"rating"`
	Created         time.Time `json:"created"`
	Provider        string    `json:"provider,omitempty"`
}

// Validate checks that the fields the detectors depend on are present
func (r *Review) Validate() error {
	if r.BusinessID == "" {
		return fmt.Errorf("review %q: missing business id", r.ID)
	}
	if r.Rating < MinRating || r.Rating > MaxRating {
		return fmt.Errorf("review %q: rating %d out of range", r.ID, r.Rating)
	}
	if r.Created.IsZero() {
		return fmt.Errorf("review %q: missing creation date", r.ID)
	}
	return nil
}

// Age returns how old the review is relative to now
func (r *Review) Age(now time.Time) time.Duration {
	return now.Sub(r.Created)
}

// Anonymous reports whether the review has no resolvable author
func (r *Review) Anonymous() bool {
	return r.ReviewerID == ""
}

// CreatedString formats the creation date the way reports print it
func (r *Review) CreatedString() string {
	return r.Created.Format(time.DateOnly)
}

// Reviewer is an account that authored one or more reviews
type Reviewer struct {
	ID          string    `json:"public_id"`
	Name        string    `json:"name,omitempty"`
	ReviewCount int       `json:"review_count,omitempty"`
	Birthday    time.Time `json:"birthday,omitempty"`
	Private     bool      `json:"private,omitempty"`
	Reviews     []Review  `json:"reviews,omitempty"`
}

// NReviews returns the lifetime review count (RPU)
func (u *Reviewer) NReviews() int {
	if u == nil {
		return 0
	}
	if u.ReviewCount > 0 {
		return u.ReviewCount
	}
	return len(u.Reviews)
}

// BirthdayFromReviews sets Birthday to the earliest known review date if unset
func (u *Reviewer) BirthdayFromReviews() {
	if !u.Birthday.IsZero() {
		return
	}
	for _, r := range u.Reviews {
		if r.Created.IsZero() {
			continue
		}
		if u.Birthday.IsZero() || r.Created.Before(u.Birthday) {
			u.Birthday = r.Created
		}
	}
}

// AccountAgeAt returns the account age in days at time t.
// ok is false when the birthday is unknown (private profile).
func (u *Reviewer) AccountAgeAt(t time.Time) (days int, ok bool) {
	if u == nil || u.Birthday.IsZero() {
		return 0, false
	}
	return int(t.Sub(u.Birthday).Hours() / 24), true
}

// Others yields every review by this reviewer that targets a different business.
// Reviews are yielded in creation order.
func (u *Reviewer) Others(businessID string) iter.Seq[Review] {
	return func(yield func(Review) bool) {
		if u == nil {
			return
		}
		sorted := make([]Review, len(u.Reviews))
		copy(sorted, u.Reviews)
		sort.SliceStable(sorted, func(i, j int) bool {
			return sorted[i].Created.Before(sorted[j].Created)
		})
		for _, r := range sorted {
			if r.BusinessID == businessID {
				continue
			}
			if !yield(r) {
				return
			}
		}
	}
}

// Company is a business listing
type Company struct {
	ID      string  `json:"oid"`
	Title   string  `json:"title"`
	Address string  `json:"address,omitempty"`
	Rating  float64 `json:"rating,omitempty"`
	Tags    string  `json:"tags,omitempty"`
	Alias   string  `json:"alias,omitempty"`
}

// DisplayTitle returns the title, falling back to the id
func (c *Company) DisplayTitle() string {
	if c.Title == "" {
		return c.ID
	}
	return c.Title
}

// Town returns the first component of the address
func (c *Company) Town() string {
	return TownOf(c.Address)
}

// TownOf extracts the town from an address ("Town, Street, 1")
func TownOf(address string) string {
	if address == "" {
		return ""
	}
	town, _, _ := strings.Cut(address, ",")
	return strings.TrimSpace(strings.ReplaceAll(town, "\u00a0", " "))
}

// ReviewerLookup resolves reviewers by id
type ReviewerLookup interface {
	Reviewer(ctx context.Context, id string) (*Reviewer, error)
}

// CompanyLookup resolves companies by id
type CompanyLookup interface {
	Company(ctx context.Context, id string) (*Company, error)
}

// ReviewSource provides the review stream of a company
type ReviewSource interface {
	Reviews(ctx context.Context, companyID string) ([]Review, error)
}
