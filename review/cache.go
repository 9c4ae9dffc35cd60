package review

import (
	"context"
	"errors"
)

// Cache memoizes reviewer lookups for the duration of one detection run.
// It is not safe for concurrent use; create one per run.
type Cache struct {
	lookup  ReviewerLookup
	entries map[string]*Reviewer
	missing map[string]struct{}

	hits   int
	misses int
}

// NewCache wraps lookup with a run-scoped memo
func NewCache(lookup ReviewerLookup) *Cache {
	return &Cache{
		lookup:  lookup,
		entries: make(map[string]*Reviewer),
		missing: make(map[string]struct{}),
	}
}

// Reviewer returns the cached reviewer or asks the underlying lookup.
// Not-found answers are cached too; other errors are not.
func (c *Cache) Reviewer(ctx context.Context, id string) (*Reviewer, error) {
	if u, ok := c.entries[id]; ok {
		c.hits++
		return u, nil
	}
	if _, ok := c.missing[id]; ok {
		c.hits++
		return nil, ErrNotFound
	}

	c.misses++
	u, err := c.lookup.Reviewer(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			c.missing[id] = struct{}{}
		}
		return nil, err
	}
	u.BirthdayFromReviews()
	c.entries[id] = u
	return u, nil
}

// Stats returns cache hits and misses
func (c *Cache) Stats() (hits, misses int) {
	return c.hits, c.misses
}
