package event

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Category is the fixed set of campus event categories.
type Category string

const (
	CategoryTech             Category = "Tech"
	CategoryAIML             Category = "AI/ML"
	CategoryCareer           Category = "Career Development"
	CategoryEntrepreneurship Category = "Entrepreneurship"
	CategoryCultural         Category = "Cultural"
	CategorySports           Category = "Sports"
)

// Categories lists all known categories in display order.
func Categories() []Category {
	return []Category{
		CategoryTech, CategoryAIML, CategoryCareer,
		CategoryEntrepreneurship, CategoryCultural, CategorySports,
	}
}

func (c Category) Valid() bool {
	switch c {
	case CategoryTech, CategoryAIML, CategoryCareer,
		CategoryEntrepreneurship, CategoryCultural, CategorySports:
		return true
	}
	return false
}

var (
	ErrEmptyID      = errors.New("event: empty id")
	ErrBadDuration  = errors.New("event: duration must be >= 0 minutes")
	ErrBadScore     = errors.New("event: match score must be in [0,100]")
	ErrBadCategory  = errors.New("event: unknown category")
	ErrBadCapacity  = errors.New("event: capacity must be >= 0")
	ErrZeroStart    = errors.New("event: missing start time")
	ErrOverCapacity = errors.New("event: registered count exceeds capacity")
)

// Event is an immutable campus event record.
//
// Events are created once when the catalog is loaded and are never mutated
// in place; an update (e.g. a venue move) produces a new value carrying the
// same ID. Consumers treat the catalog as read-only input.
type Event struct {
	ID              string
	Title           string
	Category        Category
	Start           time.Time
	DurationMinutes int
	Location        string
	RegisteredCount int
	Capacity        int
	MatchScore      int // 0..100, precomputed interest match
	Organizer       string
	OrganizerPhone  string
	Tags            []string
}

// Validate checks structural invariants. Malformed events are rejected here,
// before they ever reach the conflict detector or the policy engine.
func (e Event) Validate() error {
	if strings.TrimSpace(e.ID) == "" {
		return ErrEmptyID
	}
	if e.Start.IsZero() {
		return fmt.Errorf("%w (id=%s)", ErrZeroStart, e.ID)
	}
	// Zero duration is well-formed (an instantaneous marker entry); such
	// events are simply never flagged by the conflict detector.
	if e.DurationMinutes < 0 {
		return fmt.Errorf("%w (id=%s)", ErrBadDuration, e.ID)
	}
	if e.MatchScore < 0 || e.MatchScore > 100 {
		return fmt.Errorf("%w (id=%s)", ErrBadScore, e.ID)
	}
	if !e.Category.Valid() {
		return fmt.Errorf("%w %q (id=%s)", ErrBadCategory, e.Category, e.ID)
	}
	if e.Capacity < 0 {
		return fmt.Errorf("%w (id=%s)", ErrBadCapacity, e.ID)
	}
	if e.Capacity > 0 && e.RegisteredCount > e.Capacity {
		return fmt.Errorf("%w (id=%s)", ErrOverCapacity, e.ID)
	}
	return nil
}

// End returns the exclusive end of the event's time window.
func (e Event) End() time.Time {
	return e.Start.Add(time.Duration(e.DurationMinutes) * time.Minute)
}

// Window returns the half-open [Start, End) window used for overlap checks.
func (e Event) Window() TimeWindow {
	return TimeWindow{Start: e.Start, End: e.End()}
}

// AtCapacity reports whether no spots remain. Capacity 0 means unlimited.
func (e Event) AtCapacity() bool {
	return e.Capacity > 0 && e.RegisteredCount >= e.Capacity
}

// SpotsLeft returns remaining capacity, or -1 for unlimited events.
func (e Event) SpotsLeft() int {
	if e.Capacity <= 0 {
		return -1
	}
	n := e.Capacity - e.RegisteredCount
	if n < 0 {
		return 0
	}
	return n
}

// WithLocation returns a copy of the event moved to a new venue.
// The ID is preserved; callers publish the copy as a new catalog version.
func (e Event) WithLocation(loc string) Event {
	cp := e
	cp.Location = loc
	cp.Tags = append([]string(nil), e.Tags...)
	return cp
}

// TimeWindow is a half-open interval [Start, End).
// Derived from an Event for overlap computation; never persisted.
type TimeWindow struct {
	Start time.Time
	End   time.Time
}

// Overlaps reports whether two half-open windows intersect.
// Back-to-back windows (w.End == o.Start) do not overlap.
func (w TimeWindow) Overlaps(o TimeWindow) bool {
	return maxTime(w.Start, o.Start).Before(minTime(w.End, o.End))
}

// Overlap returns the duration both windows share (0 if disjoint).
func (w TimeWindow) Overlap(o TimeWindow) time.Duration {
	start := maxTime(w.Start, o.Start)
	end := minTime(w.End, o.End)
	if !start.Before(end) {
		return 0
	}
	return end.Sub(start)
}

func maxTime(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func minTime(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}
