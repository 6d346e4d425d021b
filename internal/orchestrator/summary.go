package orchestrator

import (
	"errors"
	"fmt"
	"time"

	"kaizen/internal/arrival"
)

// RunSummary contains statistics from a sweep.
type RunSummary struct {
	Moved        int            // Files moved into category folders
	Failed       int            // Moves abandoned after retries or errors
	Unrecognized int            // Files with no matching category
	Ignored      int            // Incomplete downloads and other ignored names
	Vanished     int            // Files gone before they could be moved
	ScanErrors   []error        // Roots that could not be listed
	Duration     time.Duration  // Total processing time
	ByCategory   map[string]int // Moved files per category
}

// Total is the number of files looked at.
func (s *RunSummary) Total() int {
	return s.Moved + s.Failed + s.Unrecognized + s.Ignored + s.Vanished
}

// HasErrors reports whether any move or root failed.
func (s *RunSummary) HasErrors() bool {
	return s.Failed > 0 || len(s.ScanErrors) > 0
}

// String renders a one-line summary.
func (s *RunSummary) String() string {
	return fmt.Sprintf("Processed %d files: %d moved, %d failed, %d unrecognized, %d ignored",
		s.Total(), s.Moved, s.Failed, s.Unrecognized, s.Ignored)
}

// outcomeResult pairs an arrival outcome with the error Process returned.
type outcomeResult struct {
	outcome arrival.Outcome
	err     error
}

// generateSummary folds sweep outcomes into a RunSummary.
func generateSummary(results []outcomeResult, scanErrs []error, duration time.Duration) *RunSummary {
	summary := &RunSummary{
		ScanErrors: scanErrs,
		Duration:   duration,
		ByCategory: make(map[string]int),
	}
	for _, r := range results {
		switch {
		case r.err == nil && r.outcome.Status == arrival.StatusMoved:
			summary.Moved++
			summary.ByCategory[r.outcome.Category]++
		case errors.Is(r.err, arrival.ErrIgnored):
			summary.Ignored++
		case errors.Is(r.err, arrival.ErrUnclassified):
			summary.Unrecognized++
		case errors.Is(r.err, arrival.ErrVanished):
			summary.Vanished++
		default:
			summary.Failed++
		}
	}
	return summary
}
