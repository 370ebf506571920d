package scan

import (
	"time"

	"rommate/internal/verify"
)

// Aggregate accumulates the results of one scan. It is mutated only by the
// scanner and must be treated as read-only once Scan returns.
type Aggregate struct {
	Root       string
	Candidates int
	// Excluded lists track files skipped because a CUE sheet references them.
	Excluded []string
	Results  []verify.Result
	Counts   map[verify.Status]int

	Verified  int
	Attention int
	Failed    int

	Canceled bool
	Started  time.Time
	Finished time.Time
}

func newAggregate(root string) *Aggregate {
	return &Aggregate{
		Root:    root,
		Counts:  make(map[verify.Status]int, len(verify.Statuses)),
		Started: time.Now(),
	}
}

func (a *Aggregate) add(r verify.Result) {
	a.Results = append(a.Results, r)
	a.Counts[r.Status]++
	switch r.Status.Group() {
	case verify.GroupVerified:
		a.Verified++
	case verify.GroupFailed:
		a.Failed++
	default:
		a.Attention++
	}
}

// Processed is the number of files that produced a result.
func (a *Aggregate) Processed() int {
	return len(a.Results)
}

// Count returns the number of results with status s.
func (a *Aggregate) Count(s verify.Status) int {
	return a.Counts[s]
}

// Duration is the wall time of the scan.
func (a *Aggregate) Duration() time.Duration {
	if a.Finished.IsZero() {
		return 0
	}
	return a.Finished.Sub(a.Started)
}
