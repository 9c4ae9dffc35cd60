package storage

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/goccy/go-json"

	"tangled.org/atscan.net/reviewscan/internal/types"
	"tangled.org/atscan.net/reviewscan/review"
)

const (
	companySuffix  = ".json.zst"
	reviewsSuffix  = "-reviews.jsonl.zst"
	reportSuffix   = "-report.json.zst"
	explainSuffix  = "-explain.txt.zst"
	reviewerSuffix = ".json.zst"
)

// Store keeps companies, their reviews, reviewers, reports and explanations
// as zstd-compressed files under one directory
type Store struct {
	dir    string
	logger types.Logger
	mu     sync.RWMutex
}

// New opens (and creates if needed) a store rooted at dir
func New(dir string, logger types.Logger) (*Store, error) {
	if logger == nil {
		logger = types.NopLogger{}
	}
	for _, sub := range []string{types.COMPANY_DIR, types.REVIEWER_DIR} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0755); err != nil {
			return nil, fmt.Errorf("failed to create %s directory: %w", sub, err)
		}
	}
	return &Store{dir: dir, logger: logger}, nil
}

// Dir returns the store root
func (s *Store) Dir() string { return s.dir }

// ========================================
// PATHS
// ========================================

func checkID(id string) error {
	if id == "" || id == "." || id == ".." || strings.ContainsAny(id, `/\`) {
		return fmt.Errorf("invalid id %q", id)
	}
	return nil
}

// resultMarkers end the names of per-company result files; a company id
// ending in one would share a path with another company's results
var resultMarkers = []string{"-report", "-reviews", "-explain"}

func checkCompanyID(id string) error {
	if err := checkID(id); err != nil {
		return err
	}
	for _, m := range resultMarkers {
		if strings.HasSuffix(id, m) {
			return fmt.Errorf("invalid company id %q: must not end in %q", id, m)
		}
	}
	return nil
}

func (s *Store) companyPath(id, suffix string) string {
	return filepath.Join(s.dir, types.COMPANY_DIR, id+suffix)
}

func (s *Store) reviewerPath(id string) string {
	return filepath.Join(s.dir, types.REVIEWER_DIR, id+reviewerSuffix)
}

// ========================================
// FILE OPERATIONS
// ========================================

// writeAtomic writes data to a temp file next to path and renames it into place
func writeAtomic(path string, data []byte) error {
	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename file: %w", err)
	}
	return nil
}

func notFound(kind, id string, err error) error {
	if os.IsNotExist(err) {
		return fmt.Errorf("%s %s: %w", kind, id, review.ErrNotFound)
	}
	return fmt.Errorf("%s %s: %w", kind, id, err)
}

// saveJSON compresses and atomically writes v
func (s *Store) saveJSON(path string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal: %w", err)
	}
	return writeAtomic(path, Compress(data))
}

// loadJSON reads, decompresses and decodes path into v
func (s *Store) loadJSON(path string, v interface{}) error {
	compressed, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	data, err := Decompress(compressed)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
	}
	return nil
}

// ========================================
// COMPANIES
// ========================================

// SaveCompany stores a company
func (s *Store) SaveCompany(c *review.Company) error {
	if err := checkCompanyID(c.ID); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveJSON(s.companyPath(c.ID, companySuffix), c)
}

// Company implements review.CompanyLookup
func (s *Store) Company(ctx context.Context, id string) (*review.Company, error) {
	if err := checkCompanyID(id); err != nil {
		return nil, notFound("company", id, os.ErrNotExist)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var c review.Company
	if err := s.loadJSON(s.companyPath(id, companySuffix), &c); err != nil {
		return nil, notFound("company", id, err)
	}
	return &c, nil
}

// Companies returns the ids of all stored companies, sorted
func (s *Store) Companies() ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(s.dir, types.COMPANY_DIR))
	if err != nil {
		return nil, fmt.Errorf("failed to list companies: %w", err)
	}
	var ids []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, companySuffix) {
			continue
		}
		id := strings.TrimSuffix(name, companySuffix)
		// reports share the suffix
		if checkCompanyID(id) != nil {
			continue
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// ========================================
// REVIEWS (JSONL)
// ========================================

// SerializeJSONL serializes reviews to newline-delimited JSON
func SerializeJSONL(reviews []review.Review) ([]byte, error) {
	var buf bytes.Buffer
	for _, r := range reviews {
		data, err := json.Marshal(r)
		if err != nil {
			return nil, err
		}
		buf.Write(data)
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

// ParseJSONL parses newline-delimited JSON reviews
func ParseJSONL(r io.Reader) ([]review.Review, error) {
	var reviews []review.Review
	scanner := bufio.NewScanner(r)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)

	line := 0
	for scanner.Scan() {
		line++
		data := scanner.Bytes()
		if len(data) == 0 {
			continue
		}
		var rv review.Review
		if err := json.Unmarshal(data, &rv); err != nil {
			return nil, fmt.Errorf("failed to parse line %d: %w", line, err)
		}
		reviews = append(reviews, rv)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanner error: %w", err)
	}
	return reviews, nil
}

// SaveReviews replaces the stored reviews of a company
func (s *Store) SaveReviews(companyID string, reviews []review.Review) error {
	if err := checkCompanyID(companyID); err != nil {
		return err
	}
	data, err := SerializeJSONL(reviews)
	if err != nil {
		return fmt.Errorf("failed to serialize reviews: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return writeAtomic(s.companyPath(companyID, reviewsSuffix), Compress(data))
}

// Reviews implements review.ReviewSource. A company without a review file has no reviews.
func (s *Store) Reviews(ctx context.Context, companyID string) ([]review.Review, error) {
	if err := checkCompanyID(companyID); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	file, err := os.Open(s.companyPath(companyID, reviewsSuffix))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open reviews: %w", err)
	}
	defer file.Close()

	reader := NewStreamingReader(file)
	defer reader.Release()

	return ParseJSONL(reader)
}

// ========================================
// REVIEWERS
// ========================================

// SaveReviewer stores a reviewer profile with its reviews
func (s *Store) SaveReviewer(u *review.Reviewer) error {
	if err := checkID(u.ID); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveJSON(s.reviewerPath(u.ID), u)
}

// Reviewer implements review.ReviewerLookup
func (s *Store) Reviewer(ctx context.Context, id string) (*review.Reviewer, error) {
	if err := checkID(id); err != nil {
		return nil, notFound("reviewer", id, os.ErrNotExist)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var u review.Reviewer
	if err := s.loadJSON(s.reviewerPath(id), &u); err != nil {
		return nil, notFound("reviewer", id, err)
	}
	return &u, nil
}

// ========================================
// REPORTS AND EXPLANATIONS
// ========================================

// HasReport reports whether a company has a stored report
func (s *Store) HasReport(companyID string) bool {
	if checkCompanyID(companyID) != nil {
		return false
	}
	_, err := os.Stat(s.companyPath(companyID, reportSuffix))
	return err == nil
}

// SaveReport stores v as the report of a company
func (s *Store) SaveReport(companyID string, v interface{}) error {
	if err := checkCompanyID(companyID); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveJSON(s.companyPath(companyID, reportSuffix), v)
}

// LoadReport decodes the stored report of a company into v
func (s *Store) LoadReport(companyID string, v interface{}) error {
	if err := checkCompanyID(companyID); err != nil {
		return notFound("report", companyID, os.ErrNotExist)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.loadJSON(s.companyPath(companyID, reportSuffix), v); err != nil {
		return notFound("report", companyID, err)
	}
	return nil
}

// SaveExplanation stores explanation text, streaming it through the compressor
func (s *Store) SaveExplanation(companyID string, r io.Reader) error {
	if err := checkCompanyID(companyID); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.companyPath(companyID, explainSuffix)
	tempPath := path + ".tmp"

	file, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}

	writer := NewStreamingWriter(file)
	_, copyErr := io.Copy(writer, r)
	closeErr := writer.Close()
	writer.Release()
	fileErr := file.Close()

	for _, err := range []error{copyErr, closeErr, fileErr} {
		if err != nil {
			os.Remove(tempPath)
			return fmt.Errorf("failed to write explanation: %w", err)
		}
	}

	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename file: %w", err)
	}
	return nil
}

// OpenExplanation returns a reader over the decompressed explanation text
func (s *Store) OpenExplanation(companyID string) (io.ReadCloser, error) {
	if err := checkCompanyID(companyID); err != nil {
		return nil, notFound("explanation", companyID, os.ErrNotExist)
	}
	file, err := os.Open(s.companyPath(companyID, explainSuffix))
	if err != nil {
		return nil, notFound("explanation", companyID, err)
	}
	return &decompressedReader{reader: NewStreamingReader(file), file: file}, nil
}

// DeleteResults removes the report and explanation of a company, if any
func (s *Store) DeleteResults(companyID string) error {
	if err := checkCompanyID(companyID); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, suffix := range []string{reportSuffix, explainSuffix} {
		if err := os.Remove(s.companyPath(companyID, suffix)); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}

// decompressedReader wraps a zstd decoder and underlying file
type decompressedReader struct {
	reader StreamReader
	file   *os.File
}

func (dr *decompressedReader) Read(p []byte) (int, error) {
	return dr.reader.Read(p)
}

func (dr *decompressedReader) Close() error {
	dr.reader.Release()
	return dr.file.Close()
}
