package storage_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"tangled.org/atscan.net/reviewscan/internal/storage"
	"tangled.org/atscan.net/reviewscan/review"
)

type testLogger struct {
	t *testing.T
}

func (l *testLogger) Printf(format string, v ...interface{}) {
	l.t.Logf(format, v...)
}

func (l *testLogger) Println(v ...interface{}) {
	l.t.Log(v...)
}

func newStore(t *testing.T) *storage.Store {
	t.Helper()
	s, err := storage.New(t.TempDir(), &testLogger{t: t})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return s
}

func makeReviews(company string, n int) []review.Review {
	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	out := make([]review.Review, n)
	for i := range out {
		out[i] = review.Review{
			ID:         company + "-r" + string(rune('a'+i%26)),
			BusinessID: company,
			ReviewerID: "u" + string(rune('a'+i%26)),
			Rating:     1 + i%5,
			Created:    base.Add(time.Duration(i) * time.Hour),
			Provider:   "2gis",
		}
	}
	return out
}

// ====================================================================================
// COMPRESSION TESTS
// ====================================================================================

func TestCompression(t *testing.T) {
	t.Run("RoundTrip", func(t *testing.T) {
		data := bytes.Repeat([]byte(`{"oid":"1","rating":5}`+"\n"), 500)
		compressed := storage.Compress(data)
		if len(compressed) >= len(data) {
			t.Errorf("compression failed: %d >= %d", len(compressed), len(data))
		}
		back, err := storage.Decompress(compressed)
		if err != nil {
			t.Fatalf("Decompress failed: %v", err)
		}
		if !bytes.Equal(back, data) {
			t.Error("round trip mismatch")
		}
	})

	t.Run("Corrupted", func(t *testing.T) {
		if _, err := storage.Decompress([]byte("not zstd at all")); err == nil {
			t.Error("expected error for corrupted input")
		}
	})

	t.Run("Streaming", func(t *testing.T) {
		var buf bytes.Buffer
		w := storage.NewStreamingWriter(&buf)
		for i := 0; i < 100; i++ {
			io.WriteString(w, "line of explanation text\n")
		}
		if err := w.Close(); err != nil {
			t.Fatal(err)
		}
		w.Release()

		r := storage.NewStreamingReader(&buf)
		defer r.Release()
		out, err := io.ReadAll(r)
		if err != nil {
			t.Fatal(err)
		}
		if strings.Count(string(out), "\n") != 100 {
			t.Errorf("got %d lines", strings.Count(string(out), "\n"))
		}
	})
}

// ====================================================================================
// JSONL TESTS
// ====================================================================================

func TestJSONL(t *testing.T) {
	reviews := makeReviews("c1", 30)
	data, err := storage.SerializeJSONL(reviews)
	if err != nil {
		t.Fatal(err)
	}
	if lines := bytes.Count(data, []byte("\n")); lines != 30 {
		t.Errorf("lines = %d, want 30", lines)
	}

	parsed, err := storage.ParseJSONL(bytes.NewReader(append(data, '\n')))
	if err != nil {
		t.Fatalf("ParseJSONL failed: %v", err)
	}
	if len(parsed) != len(reviews) {
		t.Fatalf("parsed %d reviews, want %d", len(parsed), len(reviews))
	}
	for i := range reviews {
		if parsed[i].ID != reviews[i].ID || parsed[i].Rating != reviews[i].Rating || !parsed[i].Created.Equal(reviews[i].Created) {
			t.Errorf("review %d mismatch: %+v vs %+v", i, parsed[i], reviews[i])
		}
	}

	t.Run("BadLine", func(t *testing.T) {
		_, err := storage.ParseJSONL(strings.NewReader("{\"oid\":\"x\"}\n{broken\n"))
		if err == nil || !strings.Contains(err.Error(), "line 2") {
			t.Errorf("error = %v, want line 2", err)
		}
	})
}

// ====================================================================================
// STORE TESTS
// ====================================================================================

func TestStoreCompanies(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	c := &review.Company{ID: "141265769338187", Title: "Coffee", Address: "Moscow, Arbat 1", Rating: 4.8}
	if err := s.SaveCompany(c); err != nil {
		t.Fatalf("SaveCompany failed: %v", err)
	}

	t.Run("Load", func(t *testing.T) {
		got, err := s.Company(ctx, c.ID)
		if err != nil {
			t.Fatalf("Company failed: %v", err)
		}
		if *got != *c {
			t.Errorf("company = %+v, want %+v", got, c)
		}
	})

	t.Run("NotFound", func(t *testing.T) {
		_, err := s.Company(ctx, "missing")
		if !errors.Is(err, review.ErrNotFound) {
			t.Errorf("error = %v, want ErrNotFound", err)
		}
	})

	t.Run("InvalidID", func(t *testing.T) {
		if err := s.SaveCompany(&review.Company{ID: "../escape"}); err == nil {
			t.Error("expected error for path-like id")
		}
		if _, err := s.Company(ctx, "../escape"); !errors.Is(err, review.ErrNotFound) {
			t.Errorf("error = %v, want ErrNotFound", err)
		}
	})

	t.Run("ResultSuffixID", func(t *testing.T) {
		s.SaveCompany(&review.Company{ID: "shop"})
		if err := s.SaveReport("shop", map[string]bool{"trusted": true}); err != nil {
			t.Fatal(err)
		}
		for _, id := range []string{"shop-report", "shop-reviews", "shop-explain"} {
			if err := s.SaveCompany(&review.Company{ID: id, Title: "impostor"}); err == nil {
				t.Errorf("SaveCompany(%q) should fail", id)
			}
			if _, err := s.Company(ctx, id); !errors.Is(err, review.ErrNotFound) {
				t.Errorf("Company(%q) error = %v, want ErrNotFound", id, err)
			}
			if err := s.SaveReport(id, map[string]bool{"trusted": false}); err == nil {
				t.Errorf("SaveReport(%q) should fail", id)
			}
		}
		var report map[string]bool
		if err := s.LoadReport("shop", &report); err != nil || !report["trusted"] {
			t.Errorf("report of shop = %v, %v", report, err)
		}
		if err := s.DeleteResults("shop"); err != nil {
			t.Fatal(err)
		}
		if err := os.Remove(filepath.Join(s.Dir(), "companies", "shop.json.zst")); err != nil {
			t.Fatal(err)
		}
	})

	t.Run("List", func(t *testing.T) {
		s.SaveCompany(&review.Company{ID: "aaa"})
		s.SaveReport("aaa", map[string]bool{"trusted": true})
		ids, err := s.Companies()
		if err != nil {
			t.Fatal(err)
		}
		want := []string{"141265769338187", "aaa"}
		if strings.Join(ids, ",") != strings.Join(want, ",") {
			t.Errorf("Companies() = %v, want %v", ids, want)
		}
	})

	t.Run("NoTempFilesLeft", func(t *testing.T) {
		matches, _ := filepath.Glob(filepath.Join(s.Dir(), "companies", "*.tmp"))
		if len(matches) > 0 {
			t.Errorf("temp files left: %v", matches)
		}
	})
}

func TestStoreReviews(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	t.Run("Missing", func(t *testing.T) {
		reviews, err := s.Reviews(ctx, "nothing")
		if err != nil || len(reviews) != 0 {
			t.Errorf("Reviews() = %v, %v", reviews, err)
		}
	})

	t.Run("RoundTrip", func(t *testing.T) {
		reviews := makeReviews("c1", 200)
		if err := s.SaveReviews("c1", reviews); err != nil {
			t.Fatal(err)
		}
		loaded, err := s.Reviews(ctx, "c1")
		if err != nil {
			t.Fatal(err)
		}
		if len(loaded) != 200 {
			t.Fatalf("loaded %d reviews", len(loaded))
		}
		if loaded[42].ReviewerID != reviews[42].ReviewerID {
			t.Errorf("review 42 mismatch")
		}
	})

	t.Run("Replace", func(t *testing.T) {
		s.SaveReviews("c1", makeReviews("c1", 3))
		loaded, _ := s.Reviews(ctx, "c1")
		if len(loaded) != 3 {
			t.Errorf("loaded %d reviews after replace, want 3", len(loaded))
		}
	})
}

func TestStoreReviewers(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	u := &review.Reviewer{ID: "u1", Name: "Ivan", ReviewCount: 7, Reviews: makeReviews("c2", 2)}
	if err := s.SaveReviewer(u); err != nil {
		t.Fatal(err)
	}

	got, err := s.Reviewer(ctx, "u1")
	if err != nil {
		t.Fatalf("Reviewer failed: %v", err)
	}
	if got.Name != "Ivan" || got.NReviews() != 7 || len(got.Reviews) != 2 {
		t.Errorf("reviewer = %+v", got)
	}

	if _, err := s.Reviewer(ctx, "nobody"); !errors.Is(err, review.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestStoreReports(t *testing.T) {
	s := newStore(t)

	type report struct {
		Trusted    bool     `json:"trusted"`
		Detections []string `json:"detections"`
	}

	if s.HasReport("c1") {
		t.Fatal("unexpected report")
	}

	in := report{Trusted: false, Detections: []string{"risk_users 100% (15 / 15)"}}
	if err := s.SaveReport("c1", in); err != nil {
		t.Fatal(err)
	}
	if !s.HasReport("c1") {
		t.Error("HasReport() = false after save")
	}

	var out report
	if err := s.LoadReport("c1", &out); err != nil {
		t.Fatal(err)
	}
	if out.Trusted || len(out.Detections) != 1 || out.Detections[0] != in.Detections[0] {
		t.Errorf("report = %+v", out)
	}

	if err := s.LoadReport("c2", &out); !errors.Is(err, review.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}

	t.Run("Explanation", func(t *testing.T) {
		text := "EXPLAIN relations\nDETECTION: risk_users\n"
		if err := s.SaveExplanation("c1", strings.NewReader(text)); err != nil {
			t.Fatal(err)
		}
		rc, err := s.OpenExplanation("c1")
		if err != nil {
			t.Fatal(err)
		}
		defer rc.Close()
		got, _ := io.ReadAll(rc)
		if string(got) != text {
			t.Errorf("explanation = %q", got)
		}

		if _, err := s.OpenExplanation("c9"); !errors.Is(err, review.ErrNotFound) {
			t.Errorf("error = %v, want ErrNotFound", err)
		}
	})

	t.Run("DeleteResults", func(t *testing.T) {
		if err := s.DeleteResults("c1"); err != nil {
			t.Fatal(err)
		}
		if s.HasReport("c1") {
			t.Error("report still present")
		}
		if _, err := os.Stat(filepath.Join(s.Dir(), "companies", "c1-explain.txt.zst")); !os.IsNotExist(err) {
			t.Error("explanation still present")
		}
		if err := s.DeleteResults("c1"); err != nil {
			t.Errorf("second delete: %v", err)
		}
	})
}

// ====================================================================================
// IMPORT TESTS
// ====================================================================================

const dataset = `{
  "companies": [
    {"oid": "A", "title": "Target", "address": "Moscow, Tverskaya 1"},
    {"oid": "B", "title": "Partner", "address": "Kazan, Baumana 2"}
  ],
  "reviewers": [
    {"public_id": "u1", "name": "Anna", "review_count": 2},
    {"public_id": "u2", "name": "Boris"}
  ],
  "reviews": [
    {"oid": "A", "uid": "u1", "rating": 5, "created": "2025-05-01T10:00:00Z", "provider": "2gis"},
    {"oid": "B", "uid": "u1", "rating": 5, "created": "2025-04-01T10:00:00Z", "provider": "2gis"},
    {"oid": "A", "uid": "u2", "rating": 3, "created": "2025-05-02T10:00:00Z", "provider": "yandex"},
    {"oid": "A", "uid": "u3", "rating": 1, "created": "2025-05-03T10:00:00Z"},
    {"oid": "", "uid": "u1", "rating": 4, "created": "2025-05-03T10:00:00Z"}
  ]
}`

func TestImport(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	stats, err := s.Import(strings.NewReader(dataset))
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if stats.Companies != 2 || stats.Reviewers != 2 || stats.Reviews != 4 || stats.Skipped != 1 {
		t.Errorf("stats = %+v", stats)
	}

	reviews, _ := s.Reviews(ctx, "A")
	if len(reviews) != 3 {
		t.Errorf("company A has %d reviews, want 3", len(reviews))
	}

	u1, err := s.Reviewer(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if len(u1.Reviews) != 2 {
		t.Errorf("u1 has %d reviews attached, want 2", len(u1.Reviews))
	}
	others := 0
	for r := range u1.Others("A") {
		if r.BusinessID != "B" {
			t.Errorf("unexpected other review %+v", r)
		}
		others++
	}
	if others != 1 {
		t.Errorf("others = %d, want 1", others)
	}

	if _, err := s.Reviewer(ctx, "u3"); !errors.Is(err, review.ErrNotFound) {
		t.Errorf("u3 should be unknown, got %v", err)
	}

	t.Run("Malformed", func(t *testing.T) {
		if _, err := s.Import(strings.NewReader("{not json")); err == nil {
			t.Error("expected decode error")
		}
	})
}
