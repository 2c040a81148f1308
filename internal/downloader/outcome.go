package downloader

import (
	"time"

	"bookmarkdl/pkg/links"
)

// Status is the per-item state. Items move Pending -> Invoking -> one of
// the three final states and never go back.
type Status string

const (
	StatusPending   Status = "pending"
	StatusInvoking  Status = "invoking"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusTimedOut  Status = "timed_out"
)

// Outcome is the result of the single attempt made for one URL
type Outcome struct {
	URL     links.CandidateURL
	Index   int
	Status  Status
	Reason  string
	Elapsed time.Duration
}

// OK reports whether the item was retrieved
func (o Outcome) OK() bool {
	return o.Status == StatusSucceeded
}

// RunSummary aggregates the outcomes of a run.
// Total is the size of the unfiltered URL set, so Total-Successful-Failed
// gives the rejected (or, after an interruption, unattempted) count.
type RunSummary struct {
	Total      int
	Successful int
	Failed     int
	TimedOut   int
	OutputDir  string
	BackupFile string
	Outcomes   []Outcome
	Elapsed    time.Duration
}

// Attempted is the number of URLs that reached a final state
func (s RunSummary) Attempted() int {
	return s.Successful + s.Failed
}

func (s *RunSummary) record(o Outcome) {
	s.Outcomes = append(s.Outcomes, o)
	switch o.Status {
	case StatusSucceeded:
		s.Successful++
	case StatusTimedOut:
		s.TimedOut++
		s.Failed++
	default:
		s.Failed++
	}
}
