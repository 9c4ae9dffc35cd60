package storage

import (
	"fmt"
	"io"
	"sort"

	"github.com/goccy/go-json"

	"tangled.org/atscan.net/reviewscan/review"
)

// Dataset is the import document: companies, reviewer profiles and the
// flat list of reviews linking them
type Dataset struct {
	Companies []review.Company  `json:"companies"`
	Reviewers []review.Reviewer `json:"reviewers"`
	Reviews   []review.Review   `json:"reviews"`
}

// ImportStats summarizes one import
type ImportStats struct {
	Companies int `json:"companies"`
	Reviewers int `json:"reviewers"`
	Reviews   int `json:"reviews"`
	Skipped   int `json:"skipped"`
}

// Import loads a dataset document. Reviews are grouped per company and
// attached to the profile of their author. Reviews without a business id
// are skipped. Reviewers without a profile stay unknown (private).
func (s *Store) Import(r io.Reader) (*ImportStats, error) {
	var ds Dataset
	if err := json.NewDecoder(r).Decode(&ds); err != nil {
		return nil, fmt.Errorf("failed to decode dataset: %w", err)
	}
	return s.ImportDataset(&ds)
}

// ImportDataset stores an already decoded dataset
func (s *Store) ImportDataset(ds *Dataset) (*ImportStats, error) {
	stats := &ImportStats{}

	byCompany := make(map[string][]review.Review)
	byReviewer := make(map[string][]review.Review)
	for _, rv := range ds.Reviews {
		if rv.BusinessID == "" || checkCompanyID(rv.BusinessID) != nil {
			stats.Skipped++
			continue
		}
		byCompany[rv.BusinessID] = append(byCompany[rv.BusinessID], rv)
		if rv.ReviewerID != "" {
			byReviewer[rv.ReviewerID] = append(byReviewer[rv.ReviewerID], rv)
		}
		stats.Reviews++
	}

	for i := range ds.Companies {
		if err := s.SaveCompany(&ds.Companies[i]); err != nil {
			return nil, err
		}
		stats.Companies++
	}

	ids := make([]string, 0, len(byCompany))
	for id := range byCompany {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if err := s.SaveReviews(id, byCompany[id]); err != nil {
			return nil, err
		}
	}

	for i := range ds.Reviewers {
		u := ds.Reviewers[i]
		if len(u.Reviews) == 0 {
			u.Reviews = byReviewer[u.ID]
		}
		if err := s.SaveReviewer(&u); err != nil {
			return nil, err
		}
		stats.Reviewers++
	}

	s.logger.Printf("imported %d companies, %d reviewers, %d reviews (%d skipped)",
		stats.Companies, stats.Reviewers, stats.Reviews, stats.Skipped)
	return stats, nil
}
