package detector_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"
	"testing"
	"time"

	"tangled.org/atscan.net/reviewscan/detector"
	"tangled.org/atscan.net/reviewscan/review"
)

var testNow = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

func daysAgo(n int) time.Time {
	return testNow.AddDate(0, 0, -n)
}

// world is an in-memory reviewer and company lookup
type world struct {
	reviewers map[string]*review.Reviewer
	companies map[string]*review.Company
	reviews   []review.Review
}

func newWorld() *world {
	return &world{
		reviewers: make(map[string]*review.Reviewer),
		companies: make(map[string]*review.Company),
	}
}

func (w *world) Reviewer(ctx context.Context, id string) (*review.Reviewer, error) {
	if id == "flaky" {
		return nil, errors.New("connection reset")
	}
	u, ok := w.reviewers[id]
	if !ok {
		return nil, fmt.Errorf("reviewer %s: %w", id, review.ErrNotFound)
	}
	return u, nil
}

func (w *world) Company(ctx context.Context, id string) (*review.Company, error) {
	c, ok := w.companies[id]
	if !ok {
		return nil, fmt.Errorf("company %s: %w", id, review.ErrNotFound)
	}
	return c, nil
}

// post adds a review of target by uid and registers it on the reviewer
func (w *world) post(target, uid string, rating int, created time.Time) review.Review {
	r := review.Review{
		ID:         fmt.Sprintf("r%d", len(w.reviews)),
		BusinessID: target,
		ReviewerID: uid,
		Rating:     rating,
		Created:    created,
		Provider:   "2gis",
	}
	if u, ok := w.reviewers[uid]; ok {
		u.Reviews = append(u.Reviews, r)
	}
	w.reviews = append(w.reviews, r)
	return r
}

func (w *world) addReviewer(id string, count int, birthday time.Time) *review.Reviewer {
	u := &review.Reviewer{ID: id, Name: "name-" + id, ReviewCount: count, Birthday: birthday}
	w.reviewers[id] = u
	return u
}

// targetReviews returns reviews of target in posting order
func (w *world) targetReviews(target string) []review.Review {
	var out []review.Review
	for _, r := range w.reviews {
		if r.BusinessID == target {
			out = append(out, r)
		}
	}
	return out
}

func (w *world) master(target string, th *detector.Thresholds) *detector.Master {
	return detector.NewMaster(detector.MasterConfig{
		Target:     target,
		Thresholds: th,
		Reviewers:  w,
		Companies:  w,
		Now:        func() time.Time { return testNow },
	})
}

func run(t *testing.T, w *world, target string) (*detector.Master, *detector.Verdict) {
	t.Helper()
	m := w.master(target, nil)
	if err := m.FeedAll(context.Background(), w.targetReviews(target)); err != nil {
		t.Fatalf("FeedAll() error = %v", err)
	}
	v, err := m.Score(context.Background())
	if err != nil {
		t.Fatalf("Score() error = %v", err)
	}
	return m, v
}

// scenarioA: 20 disposable five-star accounts, 5 established three-star reviewers
func scenarioA() *world {
	w := newWorld()
	for i := 0; i < 20; i++ {
		id := fmt.Sprintf("low%02d", i)
		w.addReviewer(id, 1, time.Time{})
		w.post("A", id, 5, daysAgo(i+1))
	}
	for i := 0; i < 5; i++ {
		id := fmt.Sprintf("old%02d", i)
		w.addReviewer(id, 50, daysAgo(2000))
		w.post("A", id, 3, daysAgo(i+30))
	}
	return w
}

// scenarioB: 30 distinct established reviewers with spread ratings
func scenarioB() *world {
	w := newWorld()
	for i := 0; i < 30; i++ {
		id := fmt.Sprintf("u%02d", i)
		w.addReviewer(id, 30+i, daysAgo(3*365))
		w.post("A", id, 3+i%3, daysAgo(i+1))
	}
	return w
}

// scenarioC: 15 two-review accounts rating A and B (other town) five stars
func scenarioC() *world {
	w := newWorld()
	w.companies["A"] = &review.Company{ID: "A", Title: "Target", Address: "Moscow, Tverskaya 1"}
	w.companies["B"] = &review.Company{ID: "B", Title: "Partner", Address: "Kazan, Baumana 2"}
	for i := 0; i < 15; i++ {
		id := fmt.Sprintf("u%02d", i)
		w.addReviewer(id, 2, time.Time{})
		w.post("B", id, 5, daysAgo(100))
		w.post("A", id, 5, daysAgo(10))
	}
	return w
}

// ====================================================================================
// END-TO-END SCENARIOS
// ====================================================================================

func TestScenarioLowSignal(t *testing.T) {
	_, v := run(t, scenarioA(), "A")

	if v.Trusted {
		t.Fatal("expected untrusted verdict")
	}
	if got := v.DetectionNames(); !reflect.DeepEqual(got, []string{"low_signal_ratio"}) {
		t.Errorf("detections = %v", v.Detections)
	}
	if ratio, _ := v.Metrics.Int("low_signal_ratio"); ratio != 80 {
		t.Errorf("low_signal_ratio = %d, want 80", ratio)
	}
	if low, _ := v.Metrics.Float("low_signal_rating"); low != 5 {
		t.Errorf("low_signal_rating = %v, want 5", low)
	}
	if verified, _ := v.Metrics.Float("verified_rating"); verified != 3 {
		t.Errorf("verified_rating = %v, want 3", verified)
	}
	if n, _ := v.Metrics.Int("low_signal_reviews"); n != 20 {
		t.Errorf("low_signal_reviews = %d, want 20", n)
	}
	if v.Providers["2gis"] != 25 {
		t.Errorf("providers = %v", v.Providers)
	}
}

func TestScenarioClean(t *testing.T) {
	_, v := run(t, scenarioB(), "A")

	if !v.Trusted {
		t.Fatalf("expected trusted verdict, detections: %v", v.Detections)
	}
	if len(v.Detections) != 0 {
		t.Errorf("detections = %v, want empty", v.Detections)
	}
	if v.Detections == nil {
		t.Error("detections should be an empty list, not nil")
	}
	if _, ok := v.Metrics.Text("low_signal_status"); !ok {
		t.Error("low_signal detector should report abstention")
	}
	if n, _ := v.Metrics.Int("processed_reviews"); n != 30 {
		t.Errorf("processed_reviews = %d, want 30", n)
	}
}

func TestScenarioRelationRing(t *testing.T) {
	m, v := run(t, scenarioC(), "A")

	if v.Trusted {
		t.Fatal("expected untrusted verdict")
	}

	t.Run("DangerousRelation", func(t *testing.T) {
		records := m.Relations()
		if len(records) != 1 {
			t.Fatalf("relations = %+v, want 1", records)
		}
		rec := records[0]
		if rec.BusinessID != "B" || !rec.Dangerous || rec.Hits != 15 || rec.Median != 2 {
			t.Errorf("record = %+v", rec)
		}
		if rec.Town != "Kazan" || rec.Title != "Partner" {
			t.Errorf("record neighbor = %q/%q", rec.Title, rec.Town)
		}
		if rec.ARating != 5 || rec.BRating != 5 {
			t.Errorf("ratings = %v/%v", rec.ARating, rec.BRating)
		}
	})

	t.Run("RiskUsers", func(t *testing.T) {
		if got := v.DetectionNames(); !reflect.DeepEqual(got, []string{"risk_users"}) {
			t.Errorf("detections = %v", v.Detections)
		}
		if got, _ := v.Metrics.Int("risk_users"); got != 100 {
			t.Errorf("risk_users = %d, want 100", got)
		}
		if got, _ := v.Metrics.Int("dangerous_relations"); got != 1 {
			t.Errorf("dangerous_relations = %d, want 1", got)
		}
		if got, _ := v.Metrics.Int("happy_long_rel"); got != 0 {
			t.Errorf("happy_long_rel = %d, want 0", got)
		}
	})

	t.Run("Explanation", func(t *testing.T) {
		var buf bytes.Buffer
		if err := m.Explain(&buf); err != nil {
			t.Fatalf("Explain() error = %v", err)
		}
		out := buf.String()
		if !strings.Contains(out, "DETECTION: risk_users") {
			t.Errorf("missing risk_users section:\n%s", out)
		}
		for i := 0; i < 15; i++ {
			if id := fmt.Sprintf("u%02d", i); !strings.Contains(out, id) {
				t.Errorf("explanation omits reviewer %s", id)
			}
		}
		if strings.Contains(out, "EXPLAIN low_signal_ratio") || strings.Contains(out, "EXPLAIN median_rpu") {
			t.Errorf("explanation includes non-triggered detectors:\n%s", out)
		}
	})
}

func TestHappyLongRel(t *testing.T) {
	w := newWorld()
	towns := map[string]string{"N1": "Kazan", "N2": "Omsk", "N3": "Tula"}
	for id, town := range towns {
		w.companies[id] = &review.Company{ID: id, Title: "Shop " + id, Address: town + ", Main st"}
	}
	for i := 0; i < 10; i++ {
		id := fmt.Sprintf("u%02d", i)
		w.addReviewer(id, 4, time.Time{})
		for _, n := range []string{"N1", "N2", "N3"} {
			w.post(n, id, 5, daysAgo(200))
		}
		w.post("A", id, 5, daysAgo(5))
	}

	_, v := run(t, w, "A")

	if got := v.DetectionNames(); !reflect.DeepEqual(got, []string{"happy_long_rel", "risk_users"}) {
		t.Fatalf("detections = %v", v.Detections)
	}
	if v.Detections[0] != "happy_long_rel 66% (20 / 30)" {
		t.Errorf("detection = %q", v.Detections[0])
	}
	if got, _ := v.Metrics.Int("happy_ratio"); got != 100 {
		t.Errorf("happy_ratio = %d, want 100", got)
	}
}

func TestSametitleRel(t *testing.T) {
	w := newWorld()
	neighbors := []string{"N1", "N2", "N3", "N4", "N5"}
	for _, id := range neighbors {
		w.companies[id] = &review.Company{ID: id, Title: "Same Cafe", Address: "Kazan, " + id}
	}
	for i := 0; i < 10; i++ {
		id := fmt.Sprintf("u%02d", i)
		w.addReviewer(id, 6, time.Time{})
		for _, n := range neighbors {
			w.post(n, id, 5, daysAgo(300))
		}
		w.post("A", id, 5, daysAgo(3))
	}

	m, v := run(t, w, "A")

	found := false
	for _, d := range v.Detections {
		if d == "sametitle_rel 20% (1 titles / 5 dangerous)" {
			found = true
		}
	}
	if !found {
		t.Fatalf("detections = %v", v.Detections)
	}

	var buf bytes.Buffer
	if err := m.Explain(&buf); err != nil {
		t.Fatal(err)
	}
	for _, id := range neighbors {
		if !strings.Contains(buf.String(), id) {
			t.Errorf("explanation omits neighbor %s", id)
		}
	}
}

func hasDetection(v *detector.Verdict, name string) bool {
	for _, n := range v.DetectionNames() {
		if n == name {
			return true
		}
	}
	return false
}

func TestRelationBoundaries(t *testing.T) {
	t.Run("RiskUsers", func(t *testing.T) {
		tests := []struct {
			name    string
			clean   int
			ratio   int
			trigger bool
		}{
			// 10 of 33 truncates to exactly 30%
			{"AtThreshold", 23, 30, false},
			{"AboveThreshold", 22, 31, true},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				w := newWorld()
				w.companies["B"] = &review.Company{ID: "B", Title: "Partner", Address: "Kazan, Baumana 2"}
				for i := 0; i < 10; i++ {
					id := fmt.Sprintf("ring%02d", i)
					w.addReviewer(id, 2, time.Time{})
					w.post("B", id, 5, daysAgo(100))
					w.post("A", id, 5, daysAgo(10))
				}
				for i := 0; i < tt.clean; i++ {
					id := fmt.Sprintf("clean%02d", i)
					w.addReviewer(id, 40, daysAgo(2000))
					w.post("A", id, 4, daysAgo(20+i))
				}

				_, v := run(t, w, "A")
				if got, _ := v.Metrics.Int("risk_users"); got != tt.ratio {
					t.Errorf("risk_users = %d, want %d", got, tt.ratio)
				}
				if hasDetection(v, "risk_users") != tt.trigger {
					t.Errorf("risk_users detection = %v, want %v (%v)", !tt.trigger, tt.trigger, v.Detections)
				}
			})
		}
	})

	t.Run("Sametitle", func(t *testing.T) {
		tests := []struct {
			name    string
			titles  []string
			ratio   int
			trigger bool
		}{
			{"RatioAtThreshold", []string{"Cafe", "Cafe", "Bar", "Bar", "Shop", "Shop"}, 50, true},
			{"RatioAboveThreshold", []string{"Cafe", "Cafe", "Bar", "Bar", "Shop", "Deli"}, 66, false},
			{"CountAtThreshold", []string{"Cafe", "Cafe", "Cafe", "Cafe", "Cafe"}, 20, true},
			{"CountBelowThreshold", []string{"Cafe", "Cafe", "Cafe", "Cafe"}, 25, false},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				w := newWorld()
				var neighbors []string
				for i, title := range tt.titles {
					id := fmt.Sprintf("N%d", i+1)
					neighbors = append(neighbors, id)
					w.companies[id] = &review.Company{ID: id, Title: title, Address: "Kazan, " + id}
				}
				for i := 0; i < 10; i++ {
					id := fmt.Sprintf("u%02d", i)
					w.addReviewer(id, len(neighbors)+1, time.Time{})
					for _, n := range neighbors {
						w.post(n, id, 5, daysAgo(300))
					}
					w.post("A", id, 5, daysAgo(3))
				}

				_, v := run(t, w, "A")
				if got, _ := v.Metrics.Int("dangerous_relations"); got != len(tt.titles) {
					t.Errorf("dangerous_relations = %d, want %d", got, len(tt.titles))
				}
				if got, _ := v.Metrics.Int("sametitle_rel"); got != tt.ratio {
					t.Errorf("sametitle_rel = %d, want %d", got, tt.ratio)
				}
				if hasDetection(v, "sametitle_rel") != tt.trigger {
					t.Errorf("sametitle_rel detection = %v, want %v (%v)", !tt.trigger, tt.trigger, v.Detections)
				}
			})
		}
	})

	t.Run("HappyLongRel", func(t *testing.T) {
		tests := []struct {
			name     string
			thirdTwn string
			extra    bool // one more reviewer of the top-town neighbor only
			ratio    int
			trigger  bool
		}{
			// Kazan 20 hits, Omsk 10, Tula 10: 20 of 40 outside the top town
			{"AtThreshold", "Tula", false, 50, true},
			{"BelowThreshold", "Tula", true, 48, false},
			{"TwoTowns", "Omsk", false, 50, false},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				w := newWorld()
				w.companies["N1"] = &review.Company{ID: "N1", Title: "Shop N1", Address: "Kazan, Main st"}
				w.companies["N2"] = &review.Company{ID: "N2", Title: "Shop N2", Address: "Omsk, Main st"}
				w.companies["N3"] = &review.Company{ID: "N3", Title: "Shop N3", Address: tt.thirdTwn + ", Side st"}

				n := 20
				if tt.extra {
					n++
				}
				for i := 0; i < n; i++ {
					id := fmt.Sprintf("u%02d", i)
					w.addReviewer(id, 3, time.Time{})
					w.post("N1", id, 5, daysAgo(200))
					switch {
					case i < 10:
						w.post("N2", id, 5, daysAgo(200))
					case i < 20:
						w.post("N3", id, 5, daysAgo(200))
					}
					w.post("A", id, 5, daysAgo(5))
				}

				_, v := run(t, w, "A")
				if got, _ := v.Metrics.Int("happy_long_rel"); got != tt.ratio {
					t.Errorf("happy_long_rel = %d, want %d", got, tt.ratio)
				}
				if hasDetection(v, "happy_long_rel") != tt.trigger {
					t.Errorf("happy_long_rel detection = %v, want %v (%v)", !tt.trigger, tt.trigger, v.Detections)
				}
			})
		}
	})
}

// ====================================================================================
// ORCHESTRATOR RULES
// ====================================================================================

func TestZeroReviews(t *testing.T) {
	m := newWorld().master("A", nil)

	v, err := m.Score(context.Background())
	if err != nil {
		t.Fatalf("Score() error = %v", err)
	}
	if !v.Trusted || len(v.Detections) != 0 {
		t.Errorf("verdict = %+v", v)
	}
	if status, _ := v.Metrics.Text("status"); status != "insufficient data" {
		t.Errorf("status = %q", status)
	}
	if n, ok := v.Metrics.Int("processed_reviews"); !ok || n != 0 {
		t.Errorf("processed_reviews = %d, %v", n, ok)
	}
}

func TestScoreIdempotent(t *testing.T) {
	w := scenarioA()
	m := w.master("A", nil)
	m.FeedAll(context.Background(), w.targetReviews("A"))

	v1, err := m.Score(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	v2, err := m.Score(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if v1 != v2 {
		t.Error("Score() should return the cached verdict")
	}

	// a second run over the same data yields an identical verdict
	m2 := w.master("A", nil)
	m2.FeedAll(context.Background(), w.targetReviews("A"))
	v3, _ := m2.Score(context.Background())
	if !reflect.DeepEqual(v1, v3) {
		t.Errorf("verdicts differ:\n%+v\n%+v", v1, v3)
	}
}

func TestDiscarded(t *testing.T) {
	w := newWorld()
	w.addReviewer("good", 10, daysAgo(900))
	reviews := []review.Review{
		w.post("A", "good", 5, daysAgo(1)),
		w.post("A", "good", 4, daysAgo(800)), // too old
		w.post("A", "good", 0, daysAgo(1)),   // malformed rating
		w.post("A", "flaky", 5, daysAgo(1)),  // lookup error
		w.post("A", "ghost", 5, daysAgo(1)),  // not found, low-signal
		w.post("A", "", 5, daysAgo(1)),       // anonymous, low-signal
	}

	m := w.master("A", nil)
	m.FeedAll(context.Background(), reviews)
	v, err := m.Score(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	want := map[string]int{
		"total_reviews":      6,
		"discarded":          3,
		"processed_reviews":  3,
		"low_signal_reviews": 2,
	}
	for name, n := range want {
		if got, _ := v.Metrics.Int(name); got != n {
			t.Errorf("%s = %d, want %d", name, got, n)
		}
	}

	warnings := m.Warnings()
	if len(warnings) != 1 || !strings.Contains(warnings[0], "flaky") {
		t.Errorf("warnings = %v", warnings)
	}
}

func TestFingerprintAndDate(t *testing.T) {
	th := detector.DefaultThresholds()
	th.RiskHits = 7
	m := newWorld().master("A", th)
	v, _ := m.Score(context.Background())

	if v.ParamFingerprint != th.Fingerprint() {
		t.Errorf("param_fp = %q", v.ParamFingerprint)
	}
	if !strings.Contains(v.ParamFingerprint, "risk_hits=7") {
		t.Errorf("fingerprint misses override: %q", v.ParamFingerprint)
	}
	if !v.Date.Equal(testNow) {
		t.Errorf("date = %v, want %v", v.Date, testNow)
	}
}

// ====================================================================================
// STATE MACHINE
// ====================================================================================

func expectInvalidState(t *testing.T, fn func()) {
	t.Helper()
	defer func() {
		t.Helper()
		r := recover()
		if r == nil {
			t.Fatal("expected panic")
		}
		err, ok := r.(error)
		if !ok || !errors.Is(err, detector.ErrInvalidState) {
			t.Fatalf("panic value = %v, want ErrInvalidState", r)
		}
	}()
	fn()
}

func TestStateMachine(t *testing.T) {
	w := scenarioB()

	t.Run("FeedAfterScore", func(t *testing.T) {
		m := w.master("A", nil)
		m.Score(context.Background())
		expectInvalidState(t, func() {
			m.Feed(context.Background(), w.reviews[0])
		})
	})

	t.Run("ExplainBeforeScore", func(t *testing.T) {
		m := w.master("A", nil)
		expectInvalidState(t, func() {
			m.Explain(io.Discard)
		})
	})

	t.Run("ExplainTrustedWritesNothing", func(t *testing.T) {
		m := w.master("A", nil)
		m.FeedAll(context.Background(), w.targetReviews("A"))
		m.Score(context.Background())
		var buf bytes.Buffer
		if err := m.Explain(&buf); err != nil {
			t.Fatal(err)
		}
		if buf.Len() != 0 {
			t.Errorf("unexpected explanation:\n%s", buf.String())
		}
	})
}

// recorder captures the low-signal flag of every fed sample
type recorder struct {
	name    string
	metric  string
	value   int
	flags   []bool
	scored  int
	explain string
}

func (r *recorder) Name() string        { return r.name }
func (r *recorder) Description() string { return "test recorder" }
func (r *recorder) Feed(s detector.Sample, lowSignal bool) {
	r.flags = append(r.flags, lowSignal)
}
func (r *recorder) Score(ctx context.Context) *detector.Score {
	r.scored++
	s := &detector.Score{Detector: r.name, Metrics: make(detector.Metrics)}
	if r.metric != "" {
		s.Metrics.SetInt(r.metric, r.value)
	}
	if r.explain != "" {
		s.Detections = []string{r.explain}
	}
	return s
}
func (r *recorder) Explain(w io.Writer) error {
	_, err := fmt.Fprintln(w, "explain", r.name)
	return err
}

func masterWith(w *world, detectors ...*recorder) *detector.Master {
	reg := detector.NewRegistry()
	for _, d := range detectors {
		d := d
		reg.Register(d.name, func(env detector.Env) detector.Detector { return d })
	}
	return detector.NewMaster(detector.MasterConfig{
		Target:    "A",
		Reviewers: w,
		Companies: w,
		Registry:  reg,
		Now:       func() time.Time { return testNow },
	})
}

func TestDuplicateSuppression(t *testing.T) {
	w := newWorld()
	w.addReviewer("prolific", 40, daysAgo(1000))
	w.addReviewer("once", 1, daysAgo(1000))
	reviews := []review.Review{
		w.post("A", "prolific", 5, daysAgo(3)),
		w.post("A", "prolific", 5, daysAgo(2)),
		w.post("A", "once", 5, daysAgo(2)),
		w.post("A", "once", 5, daysAgo(1)),
	}

	rec := &recorder{name: "rec"}
	m := masterWith(w, rec)
	m.FeedAll(context.Background(), reviews)

	want := []bool{false, true, true, true}
	if !reflect.DeepEqual(rec.flags, want) {
		t.Errorf("low-signal flags = %v, want %v", rec.flags, want)
	}

	hits, misses := m.CacheStats()
	if misses != 2 || hits != 2 {
		t.Errorf("cache hits/misses = %d/%d, want 2/2", hits, misses)
	}
}

func TestMetricCollision(t *testing.T) {
	t.Run("Divergent", func(t *testing.T) {
		m := masterWith(newWorld(),
			&recorder{name: "one", metric: "shared", value: 1},
			&recorder{name: "two", metric: "shared", value: 2},
		)
		v, err := m.Score(context.Background())
		if !errors.Is(err, detector.ErrMetricCollision) {
			t.Fatalf("Score() error = %v, want ErrMetricCollision", err)
		}
		if v != nil {
			t.Error("no verdict expected on collision")
		}
		if _, err2 := m.Score(context.Background()); !errors.Is(err2, detector.ErrMetricCollision) {
			t.Errorf("second Score() error = %v", err2)
		}
	})

	t.Run("Equal", func(t *testing.T) {
		m := masterWith(newWorld(),
			&recorder{name: "one", metric: "shared", value: 3},
			&recorder{name: "two", metric: "shared", value: 3},
		)
		if _, err := m.Score(context.Background()); err != nil {
			t.Fatalf("Score() error = %v", err)
		}
	})
}

func TestDetectionOrder(t *testing.T) {
	first := &recorder{name: "first", explain: "first hit"}
	quiet := &recorder{name: "quiet"}
	second := &recorder{name: "second", explain: "second hit"}
	m := masterWith(newWorld(), first, quiet, second)

	v, err := m.Score(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(v.Detections, []string{"first hit", "second hit"}) {
		t.Errorf("detections = %v", v.Detections)
	}

	var buf bytes.Buffer
	m.Explain(&buf)
	if buf.String() != "explain first\nexplain second\n" {
		t.Errorf("explain output = %q", buf.String())
	}
	if first.scored != 1 || quiet.scored != 1 {
		t.Errorf("detectors scored %d/%d times, want once", first.scored, quiet.scored)
	}
}
