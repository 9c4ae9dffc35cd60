package relation_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"tangled.org/atscan.net/reviewscan/relation"
	"tangled.org/atscan.net/reviewscan/review"
)

var rules = relation.Rules{
	HighRating:   4.5,
	MinHits:      10,
	MaxMedianRPU: 15,
	ShowHits:     5,
}

type companies map[string]*review.Company

func (c companies) Company(ctx context.Context, id string) (*review.Company, error) {
	if id == "broken" {
		return nil, errors.New("lookup failed")
	}
	company, ok := c[id]
	if !ok {
		return nil, fmt.Errorf("company %s: %w", id, review.ErrNotFound)
	}
	return company, nil
}

// hitN records n hits from distinct reviewers with the given rpu and ratings
func hitN(g *relation.Graph, neighbor string, n, rpu, ratingA, ratingB int) {
	for i := 0; i < n; i++ {
		g.RecordHit(neighbor, fmt.Sprintf("%s-u%d", neighbor, i), rpu, ratingA, ratingB)
	}
}

// ====================================================================================
// HIT BOOKKEEPING
// ====================================================================================

func TestRecordHit(t *testing.T) {
	g := relation.NewGraph("A", rules)

	g.RecordHit("B", "u1", 3, 5, 5)
	g.RecordHit("B", "u1", 3, 5, 4) // same reviewer again
	g.RecordHit("B", "u2", 7, 4, 5)
	g.RecordHit("A", "u1", 3, 5, 5) // target itself is ignored

	if g.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", g.Len())
	}

	rel, ok := g.Lookup("B")
	if !ok {
		t.Fatal("relation B missing")
	}

	t.Run("ParallelListsMatchHits", func(t *testing.T) {
		if rel.Hits() != 3 {
			t.Errorf("Hits() = %d, want 3", rel.Hits())
		}
		if len(rel.RatingsA()) != rel.Hits() || len(rel.RatingsB()) != rel.Hits() {
			t.Errorf("ratings lengths %d/%d != hits %d", len(rel.RatingsA()), len(rel.RatingsB()), rel.Hits())
		}
		if len(rel.Reviewers()) > rel.Hits() {
			t.Errorf("reviewers %d > hits %d", len(rel.Reviewers()), rel.Hits())
		}
		if len(rel.Reviewers()) != 2 {
			t.Errorf("distinct reviewers = %d, want 2", len(rel.Reviewers()))
		}
	})

	t.Run("DerivedValues", func(t *testing.T) {
		if got := rel.Median(); got != 5 {
			t.Errorf("Median() = %d, want 5", got)
		}
		if got := rel.MeanA(); got != 4.667 {
			t.Errorf("MeanA() = %v, want 4.667", got)
		}
		if got := rel.MeanB(); got != 4.667 {
			t.Errorf("MeanB() = %v, want 4.667", got)
		}
	})

	t.Run("LazyCreation", func(t *testing.T) {
		empty := g.Relation("C")
		if empty.Hits() != 0 {
			t.Errorf("new relation has %d hits", empty.Hits())
		}
		if g.Relation("C") != empty {
			t.Error("Relation() created a second instance")
		}
	})
}

// ====================================================================================
// DANGEROUS RULE BOUNDARIES
// ====================================================================================

func TestIsDangerous(t *testing.T) {
	tests := []struct {
		name    string
		hits    int
		rpu     int
		ratingA int
		ratingB int
		want    bool
	}{
		{"AllConditions", 10, 15, 5, 5, true},
		{"HitsBelowMin", 9, 2, 5, 5, false},
		{"MedianAboveMax", 12, 16, 5, 5, false},
		{"LowRatingA", 12, 2, 4, 5, false},
		{"LowRatingB", 12, 2, 5, 4, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := relation.NewGraph("A", rules)
			hitN(g, "B", tt.hits, tt.rpu, tt.ratingA, tt.ratingB)
			rel, _ := g.Lookup("B")
			if got := rel.IsDangerous(rules); got != tt.want {
				t.Errorf("IsDangerous() = %v, want %v (%s)", got, tt.want, rel)
			}
		})
	}

	t.Run("MeanExactlyAtHighRating", func(t *testing.T) {
		g := relation.NewGraph("A", rules)
		// ratings 5,4 -> mean 4.5 on both sides
		for i := 0; i < 10; i++ {
			rating := 5
			if i%2 == 1 {
				rating = 4
			}
			g.RecordHit("B", fmt.Sprintf("u%d", i), 1, rating, rating)
		}
		rel, _ := g.Lookup("B")
		if rel.MeanA() != 4.5 {
			t.Fatalf("MeanA() = %v, want 4.5", rel.MeanA())
		}
		if !rel.IsDangerous(rules) {
			t.Error("mean equal to HighRating must count as high")
		}
	})
}

// ====================================================================================
// GRAPH AGGREGATES
// ====================================================================================

func TestFinalize(t *testing.T) {
	g := relation.NewGraph("A", rules)
	hitN(g, "B", 12, 2, 5, 5)  // dangerous
	hitN(g, "C", 12, 30, 5, 5) // high RPU
	hitN(g, "D", 3, 2, 5, 5)   // too few hits
	g.Finalize()

	if got := g.DangerousCount(); got != 1 {
		t.Errorf("DangerousCount() = %d, want 1", got)
	}
	if got := g.MedianOfMedians(); got != 2 {
		t.Errorf("MedianOfMedians() = %d, want 2", got)
	}
	if got := g.ReviewerCount(); got != 27 {
		t.Errorf("ReviewerCount() = %d, want 27", got)
	}
	if got := len(g.RiskReviewers()); got != 12 {
		t.Errorf("RiskReviewers() = %d, want 12", got)
	}
	if got := g.RiskReviewerRatio(); got != 44 {
		t.Errorf("RiskReviewerRatio() = %d, want 44", got)
	}

	t.Run("NewHitsInvalidateAggregates", func(t *testing.T) {
		hitN(g, "E", 11, 1, 5, 5)
		if got := g.DangerousCount(); got != 2 {
			t.Errorf("DangerousCount() = %d, want 2", got)
		}
	})
}

// ====================================================================================
// EXPORT
// ====================================================================================

func TestExport(t *testing.T) {
	lookup := companies{
		"B": {ID: "B", Title: "Bakery", Address: "Kazan, Lenina 1"},
		"C": {ID: "C", Title: "Cafe", Address: "Moscow, Arbat 2"},
		"D": {ID: "D", Title: "Dentist", Address: "Omsk, Mira 3"},
		"E": {ID: "E", Title: "Eatery", Address: "Omsk, Mira 4"},
	}

	g := relation.NewGraph("A", rules)
	hitN(g, "B", 11, 2, 5, 5)  // dangerous
	hitN(g, "C", 20, 40, 3, 3) // visible by hits
	hitN(g, "D", 4, 2, 5, 5)   // hidden
	hitN(g, "E", 5, 40, 4, 4)  // exactly ShowHits -> visible
	hitN(g, "gone", 30, 2, 5, 5)
	hitN(g, "broken", 12, 2, 5, 5)

	g.Resolve(context.Background(), lookup)
	records := g.Export()

	var ids []string
	for _, r := range records {
		ids = append(ids, r.BusinessID)
	}
	if got := strings.Join(ids, ","); got != "C,B,E" {
		t.Fatalf("Export() ids = %s, want C,B,E", got)
	}

	if !records[1].Dangerous || records[0].Dangerous {
		t.Errorf("dangerous flags wrong: %+v", records)
	}
	if records[1].Town != "Kazan" || records[1].Title != "Bakery" {
		t.Errorf("unexpected record: %+v", records[1])
	}

	t.Run("MissingNeighborsWarn", func(t *testing.T) {
		warnings := g.Warnings()
		if len(warnings) != 2 {
			t.Fatalf("Warnings() = %v, want 2 entries", warnings)
		}
		joined := strings.Join(warnings, "\n")
		if !strings.Contains(joined, "gone") || !strings.Contains(joined, "broken") {
			t.Errorf("warnings miss neighbors: %v", warnings)
		}
	})

	t.Run("UnresolvedNeighborFallsBackToID", func(t *testing.T) {
		rel, _ := g.Lookup("gone")
		if rel.Title() != "gone" || rel.Town() != "" {
			t.Errorf("Title/Town = %q/%q", rel.Title(), rel.Town())
		}
	})
}
