package reviewscan

import (
	"context"
)

// Summary is one line of the status listing
type Summary struct {
	ID         string   `json:"oid"`
	Title      string   `json:"title"`
	Trusted    bool     `json:"trusted"`
	Detections []string `json:"detections,omitempty"`
	Remark     string   `json:"remark,omitempty"`
}

// Status describes the stored data set
type Status struct {
	Companies int       `json:"companies"`
	Reports   int       `json:"reports"`
	Untrusted int       `json:"untrusted"`
	Pending   []string  `json:"pending,omitempty"` // companies without a report
	Results   []Summary `json:"results"`
}

// Status walks every stored company and summarizes its report
func (s *Scanner) Status(ctx context.Context) (*Status, error) {
	ids, err := s.store.Companies()
	if err != nil {
		return nil, err
	}

	st := &Status{Companies: len(ids), Results: make([]Summary, 0)}
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		report, err := s.Report(ctx, id)
		if err != nil {
			st.Pending = append(st.Pending, id)
			continue
		}
		st.Reports++
		if !report.Verdict.Trusted {
			st.Untrusted++
		}
		st.Results = append(st.Results, Summary{
			ID:         id,
			Title:      report.Company.DisplayTitle(),
			Trusted:    report.Verdict.Trusted,
			Detections: report.Verdict.Detections,
			Remark:     report.Verdict.Remark,
		})
	}
	return st, nil
}
