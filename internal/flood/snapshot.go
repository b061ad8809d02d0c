// Package flood turns a chosen sea-level-rise statistic into per-point flood
// decisions: the soft-edged membership test, the fade animation, the
// single-slot snapshot history, and the comparison band between the current
// and previous runs.
package flood

import "time"

// Snapshot is one completed simulation run's chosen sea-level rise, retained
// for display and for comparison against the next run.
type Snapshot struct {
	SeaLevelRise float64   `json:"sea_level_rise"`
	RunID        string    `json:"run_id,omitempty"`
	Stat         string    `json:"stat,omitempty"`
	TakenAt      time.Time `json:"taken_at"`
}

// History is the snapshot store: exactly one current and one previous slot.
// It is not a stack; assigning a new current snapshot overwrites whatever
// previous held before.
type History struct {
	Current  *Snapshot `json:"current,omitempty"`
	Previous *Snapshot `json:"previous,omitempty"`
}

// Push installs s as the current snapshot, demoting the old current to
// previous unconditionally.
func (h *History) Push(s Snapshot) {
	h.Previous = h.Current
	h.Current = &s
}

// Detach removes the active snapshot, demoting it to previous so the next
// flood can still be compared against it.
func (h *History) Detach() {
	if h.Current == nil {
		return
	}
	h.Previous = h.Current
	h.Current = nil
}

// Comparable reports whether both slots hold a snapshot, which the
// comparison overlay requires.
func (h *History) Comparable() bool {
	return h.Current != nil && h.Previous != nil
}
