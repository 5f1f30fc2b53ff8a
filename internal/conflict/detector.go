// Package conflict computes pairwise time overlaps across the event catalog.
//
// The detector is pure and stateless: it is re-run whenever the catalog
// changes, and the resulting Set is safe for concurrent readers.
package conflict

import (
	"sort"
	"time"

	"campusflow/internal/event"
)

// Record is one overlapping pair. Symmetric: (A,B) and (B,A) are the same
// conflict and are stored once, with EventA < EventB by ID.
type Record struct {
	EventA  string
	EventB  string
	Overlap time.Duration
}

// Set holds the conflicts for one catalog version.
type Set struct {
	records []Record
	byEvent map[string][]Record
}

// Records returns all conflicts, each pair exactly once.
func (s *Set) Records() []Record {
	if s == nil {
		return nil
	}
	return s.records
}

// Has reports whether the given event overlaps any other event.
func (s *Set) Has(eventID string) bool {
	if s == nil {
		return false
	}
	return len(s.byEvent[eventID]) > 0
}

// For returns the conflicts involving the given event.
func (s *Set) For(eventID string) []Record {
	if s == nil {
		return nil
	}
	return s.byEvent[eventID]
}

func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.records)
}

// Detect runs an interval-overlap sweep over the events.
//
// Events are sorted by start time; a window of still-active intervals is
// compared against each newcomer. Two events overlap when
// max(startA, startB) < min(endA, endB) — half-open semantics, so an event
// ending exactly when another starts is not a conflict. Zero-duration
// events are never flagged. O(n log n + k) for k overlaps.
func Detect(events []event.Event) *Set {
	sorted := make([]event.Event, 0, len(events))
	for _, e := range events {
		if e.DurationMinutes <= 0 {
			continue
		}
		sorted = append(sorted, e)
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start.Before(sorted[j].Start) })

	set := &Set{byEvent: make(map[string][]Record)}

	// active holds indices into sorted whose end time is still ahead of the
	// sweep position.
	active := make([]int, 0, 8)
	for i, e := range sorted {
		w := e.Window()

		// Expire intervals that ended at or before this start.
		keep := active[:0]
		for _, j := range active {
			if sorted[j].End().After(w.Start) {
				keep = append(keep, j)
			}
		}
		active = keep

		for _, j := range active {
			o := sorted[j].Window()
			d := w.Overlap(o)
			if d <= 0 {
				continue
			}
			set.add(e.ID, sorted[j].ID, d)
		}
		active = append(active, i)
	}

	sort.Slice(set.records, func(i, j int) bool {
		a, b := set.records[i], set.records[j]
		if a.EventA != b.EventA {
			return a.EventA < b.EventA
		}
		return a.EventB < b.EventB
	})
	return set
}

func (s *Set) add(idA, idB string, d time.Duration) {
	if idA == idB {
		return
	}
	if idB < idA {
		idA, idB = idB, idA
	}
	r := Record{EventA: idA, EventB: idB, Overlap: d}
	s.records = append(s.records, r)
	s.byEvent[idA] = append(s.byEvent[idA], r)
	s.byEvent[idB] = append(s.byEvent[idB], r)
}
