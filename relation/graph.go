package relation

import (
	"context"
	"fmt"
	"sort"

	"tangled.org/atscan.net/reviewscan/internal/stats"
	"tangled.org/atscan.net/reviewscan/review"
)

// Graph links one target business to every other business reached through
// a shared reviewer. A Graph belongs to exactly one detection run.
type Graph struct {
	target    string
	rules     Rules
	relations map[string]*Relation
	reviewers map[string]int // every reviewer touched -> lifetime review count

	finalized       bool
	dangerous       int
	medianOfMedians int
	riskReviewers   map[string]struct{}

	warnings []string
}

// NewGraph creates an empty graph for target
func NewGraph(target string, rules Rules) *Graph {
	return &Graph{
		target:        target,
		rules:         rules,
		relations:     make(map[string]*Relation),
		reviewers:     make(map[string]int),
		riskReviewers: make(map[string]struct{}),
	}
}

// Target returns the target business id
func (g *Graph) Target() string { return g.target }

// Rules returns the rules the graph classifies with
func (g *Graph) Rules() Rules { return g.rules }

// Relation returns the relation to businessID, creating it on first use
func (g *Graph) Relation(businessID string) *Relation {
	rel, ok := g.relations[businessID]
	if !ok {
		rel = newRelation(businessID)
		g.relations[businessID] = rel
	}
	return rel
}

// Lookup returns an existing relation without creating one
func (g *Graph) Lookup(businessID string) (*Relation, bool) {
	rel, ok := g.relations[businessID]
	return rel, ok
}

// RecordHit adds one co-occurrence of reviewerID on the target and businessID.
// Repeated calls for the same pair add more hits.
func (g *Graph) RecordHit(businessID, reviewerID string, rpu, ratingA, ratingB int) {
	if businessID == g.target {
		return
	}
	g.Relation(businessID).hit(reviewerID, rpu, ratingA, ratingB)
	g.reviewers[reviewerID] = rpu
	g.finalized = false
}

// Len returns the number of relations
func (g *Graph) Len() int { return len(g.relations) }

// Finalize computes per-relation statistics and graph aggregates
func (g *Graph) Finalize() {
	if g.finalized {
		return
	}

	g.dangerous = 0
	g.riskReviewers = make(map[string]struct{})
	medians := make([]int, 0, len(g.relations))

	for _, rel := range g.relations {
		rel.calc()
		medians = append(medians, rel.median)
		if rel.IsDangerous(g.rules) {
			g.dangerous++
			for _, id := range rel.order {
				g.riskReviewers[id] = struct{}{}
			}
		}
	}

	g.medianOfMedians = stats.MedianInt(medians)
	g.finalized = true
}

// DangerousCount returns the number of dangerous relations
func (g *Graph) DangerousCount() int {
	g.Finalize()
	return g.dangerous
}

// MedianOfMedians returns the median of per-relation reviewer medians
func (g *Graph) MedianOfMedians() int {
	g.Finalize()
	return g.medianOfMedians
}

// ReviewerCount returns the number of distinct reviewers touched
func (g *Graph) ReviewerCount() int { return len(g.reviewers) }

// RiskReviewers returns ids of reviewers present in at least one dangerous relation, sorted
func (g *Graph) RiskReviewers() []string {
	g.Finalize()
	ids := make([]string, 0, len(g.riskReviewers))
	for id := range g.riskReviewers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// RiskReviewerRatio returns the percent of touched reviewers that are in a dangerous relation
func (g *Graph) RiskReviewerRatio() int {
	g.Finalize()
	return stats.Percent(len(g.riskReviewers), len(g.reviewers))
}

// Sorted returns all relations ordered by hits desc, then business id
func (g *Graph) Sorted() []*Relation {
	rels := make([]*Relation, 0, len(g.relations))
	for _, rel := range g.relations {
		rels = append(rels, rel)
	}
	sort.Slice(rels, func(i, j int) bool {
		if rels[i].hits != rels[j].hits {
			return rels[i].hits > rels[j].hits
		}
		return rels[i].BusinessID < rels[j].BusinessID
	})
	return rels
}

// Dangerous returns dangerous relations ordered like Sorted
func (g *Graph) Dangerous() []*Relation {
	var out []*Relation
	for _, rel := range g.Sorted() {
		if rel.IsDangerous(g.rules) {
			out = append(out, rel)
		}
	}
	return out
}

// Resolve looks up neighbor companies for every visible relation.
// Failed lookups are recorded as warnings and never abort.
func (g *Graph) Resolve(ctx context.Context, lookup review.CompanyLookup) {
	if lookup == nil {
		return
	}
	for _, rel := range g.Sorted() {
		if rel.neighbor != nil || !rel.Visible(g.rules) {
			continue
		}
		c, err := lookup.Company(ctx, rel.BusinessID)
		if err != nil {
			g.warnings = append(g.warnings, fmt.Sprintf("ignore neighbor %s with %d hits: %v", rel.BusinessID, rel.hits, err))
			continue
		}
		rel.neighbor = c
	}
}

// Warnings returns messages about neighbors that could not be resolved
func (g *Graph) Warnings() []string {
	return append([]string(nil), g.warnings...)
}

// Record is the flat, serializable view of one relation
type Record struct {
	BusinessID string  `json:"oid"`
	Title      string  `json:"title"`
	Town       string  `json:"town"`
	Tags       string  `json:"tags,omitempty"`
	Alias      string  `json:"alias,omitempty"`
	Hits       int     `json:"hits"`
	Median     int     `json:"median"`
	ARating    float64 `json:"arating"`
	BRating    float64 `json:"brating"`
	Dangerous  bool    `json:"risk"`
}

// Export returns visible, resolved relations sorted by hits desc
func (g *Graph) Export() []Record {
	g.Finalize()
	records := make([]Record, 0)
	for _, rel := range g.Sorted() {
		if !rel.Visible(g.rules) || rel.neighbor == nil {
			continue
		}
		records = append(records, Record{
			BusinessID: rel.BusinessID,
			Title:      rel.neighbor.DisplayTitle(),
			Town:       rel.neighbor.Town(),
			Tags:       rel.neighbor.Tags,
			Alias:      rel.neighbor.Alias,
			Hits:       rel.hits,
			Median:     rel.Median(),
			ARating:    rel.MeanA(),
			BRating:    rel.MeanB(),
			Dangerous:  rel.IsDangerous(g.rules),
		})
	}
	return records
}
