package detector

import (
	"context"
	"io"
	"sort"
	"strings"

	"tangled.org/atscan.net/reviewscan/internal/stats"
	"tangled.org/atscan.net/reviewscan/relation"
	"tangled.org/atscan.net/reviewscan/review"
)

// RelationDetector builds the relation graph of the target business and
// looks for reciprocal high-rating rings with other businesses
type RelationDetector struct {
	th        *Thresholds
	target    string
	companies review.CompanyLookup

	graph     *relation.Graph
	processed int
	names     map[string]string // reviewer id -> name

	highHits  int
	dangerous []*relation.Relation
	townHits  map[string]int
	topTown   string
	totalHits int
	longHits  int
	titles    map[string][]string
	riskUsers map[string][]string
	riskOrder []string
	score     *Score
}

func NewRelationDetector(env Env) *RelationDetector {
	th := env.thresholds()
	return &RelationDetector{
		th:        th,
		target:    env.Target,
		companies: env.Companies,
		graph:     relation.NewGraph(env.Target, th.RelationRules()),
		names:     make(map[string]string),
	}
}

func (d *RelationDetector) Name() string { return "relation" }
func (d *RelationDetector) Description() string {
	return "Reciprocal high-rating relations with other businesses through shared reviewers"
}

// Graph exposes the relation graph owned by this detector
func (d *RelationDetector) Graph() *relation.Graph { return d.graph }

func (d *RelationDetector) Feed(s Sample, lowSignal bool) {
	if lowSignal || s.Reviewer == nil {
		return
	}
	u := s.Reviewer
	d.names[u.ID] = u.Name
	for other := range u.Others(d.target) {
		if other.Rating < review.MinRating || other.Rating > review.MaxRating {
			continue
		}
		d.graph.RecordHit(other.BusinessID, u.ID, u.NReviews(), s.Review.Rating, other.Rating)
	}
	d.processed++
}

func (d *RelationDetector) Score(ctx context.Context) *Score {
	if d.score != nil {
		return d.score
	}
	score := newScore(d.Name())
	d.score = score

	d.graph.Finalize()
	d.graph.Resolve(ctx, d.companies)

	score.Metrics.SetInt("relations", d.graph.Len())
	score.Metrics.SetInt("dangerous_relations", d.graph.DangerousCount())
	score.Metrics.SetInt("relation_median", d.graph.MedianOfMedians())

	if d.processed == 0 {
		return score
	}

	rules := d.graph.Rules()
	d.townHits = make(map[string]int)
	d.titles = make(map[string][]string)
	d.riskUsers = make(map[string][]string)

	for _, rel := range d.graph.Sorted() {
		if rel.Hits() >= rules.MinHits {
			d.highHits++
		}
		if !rel.IsDangerous(rules) {
			continue
		}
		d.dangerous = append(d.dangerous, rel)
		if town := rel.Town(); town != "" {
			d.townHits[town] += rel.Hits()
			d.totalHits += rel.Hits()
		}
		d.titles[rel.Title()] = append(d.titles[rel.Title()], rel.BusinessID)
		for _, id := range rel.Reviewers() {
			if _, seen := d.riskUsers[id]; !seen {
				d.riskOrder = append(d.riskOrder, id)
			}
			d.riskUsers[id] = append(d.riskUsers[id], rel.BusinessID)
		}
	}

	for _, town := range sortedKeys(d.townHits) {
		if d.topTown == "" || d.townHits[town] > d.townHits[d.topTown] {
			d.topTown = town
		}
	}
	d.longHits = d.totalHits - d.townHits[d.topTown]

	happyRatio := stats.Percent(len(d.dangerous), d.highHits)
	happyLongRel := stats.Percent(d.longHits, d.totalHits)
	sametitleRel := stats.Percent(len(d.titles), len(d.dangerous))
	riskUsers := stats.Percent(len(d.riskUsers), d.processed)

	score.Metrics.SetInt("happy_ratio", happyRatio)
	score.Metrics.SetInt("happy_long_rel", happyLongRel)
	score.Metrics.SetInt("sametitle_rel", sametitleRel)
	score.Metrics.SetInt("risk_users", riskUsers)

	if len(d.townHits) >= d.th.HappyLongRelMinTowns &&
		happyRatio >= d.th.HappyLongRelHappyRatio &&
		happyLongRel >= d.th.HappyLongRel {
		score.detect("happy_long_rel %d%% (%d / %d)", happyLongRel, d.longHits, d.totalHits)
	}

	if len(d.dangerous) >= d.th.SametitleRel && sametitleRel <= d.th.SametitleRatio {
		score.detect("sametitle_rel %d%% (%d titles / %d dangerous)", sametitleRel, len(d.titles), len(d.dangerous))
	}

	if riskUsers > d.th.RiskUserRatio {
		score.detect("risk_users %d%% (%d / %d)", riskUsers, len(d.riskUsers), d.processed)
	}

	return score
}

// Export returns the relation records for the report
func (d *RelationDetector) Export() []relation.Record {
	return d.graph.Export()
}

func (d *RelationDetector) Explain(w io.Writer) error {
	ew := &explainWriter{w: w}
	ew.printf("EXPLAIN relations")
	if d.score == nil {
		return ew.err
	}

	for _, line := range d.score.Detections {
		name, _, _ := strings.Cut(line, " ")
		ew.printf("DETECTION: %s", name)

		switch name {
		case "happy_long_rel":
			towns := make([]string, 0, len(d.townHits))
			for _, town := range sortedKeys(d.townHits) {
				towns = append(towns, town+"="+itoa(d.townHits[town]))
			}
			ew.printf("Towns (%d >= %d): %s (top: %s)", len(d.townHits), d.th.HappyLongRelMinTowns, strings.Join(towns, " "), d.topTown)
			for _, rel := range d.dangerous {
				if rel.Town() == "" {
					continue
				}
				ew.printf("    %s %s (%s) hits: %d median: %d rating: %.1f %.1f",
					rel.BusinessID, rel.Title(), rel.Town(), rel.Hits(), rel.Median(), rel.MeanA(), rel.MeanB())
			}
			ew.printf("happy_long_rel is %d/%d = %d%% >= %d%%", d.longHits, d.totalHits, stats.Percent(d.longHits, d.totalHits), d.th.HappyLongRel)

		case "sametitle_rel":
			for _, title := range sortedKeys(d.titles) {
				ids := d.titles[title]
				ew.printf("    %q (%d): %s", title, len(ids), strings.Join(ids, " "))
			}
			ew.printf("Dangerous relations (%d >= %d) and sametitle_rel %d/%d = %d%% <= %d%%",
				len(d.dangerous), d.th.SametitleRel, len(d.titles), len(d.dangerous),
				stats.Percent(len(d.titles), len(d.dangerous)), d.th.SametitleRatio)

		case "risk_users":
			ew.printf("Risk users (%d / %d > %d%%)", len(d.riskUsers), d.processed, d.th.RiskUserRatio)
			ids := append([]string(nil), d.riskOrder...)
			sort.Strings(ids)
			for idx, id := range ids {
				ew.printf("user #%d. %s %s (%d):", idx+1, id, d.names[id], len(d.riskUsers[id]))
				for _, oid := range d.riskUsers[id] {
					rel, _ := d.graph.Lookup(oid)
					if c := rel.Neighbor(); c != nil {
						ew.printf("    %s %s %s", oid, c.DisplayTitle(), c.Address)
					} else {
						ew.printf("    %s [unresolved]", oid)
					}
				}
			}
			ew.printf("%d / %d = %d%%", len(d.riskUsers), d.processed, stats.Percent(len(d.riskUsers), d.processed))
		}
		ew.printf("")
	}
	return ew.err
}
