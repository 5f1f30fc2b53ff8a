// Package quiet implements the quiet-hours gate: a time-of-day window during
// which non-urgent notifications are suppressed.
package quiet

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"campusflow/internal/policy"
)

// MinuteOfDay is a clock position on the circular 24h dial, 0..1439.
type MinuteOfDay int

// ParseClock parses "HH:MM" into a MinuteOfDay.
func ParseClock(s string) (MinuteOfDay, error) {
	parts := strings.SplitN(strings.TrimSpace(s), ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("quiet: invalid clock %q (want HH:MM)", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("quiet: invalid hour in %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("quiet: invalid minute in %q", s)
	}
	return MinuteOfDay(h*60 + m), nil
}

// Gate evaluates whether a notification must be held back at a given time.
// The zero Gate is disabled and never suppresses.
type Gate struct {
	Enabled bool
	Start   MinuteOfDay // window start, inclusive
	End     MinuteOfDay // window end, exclusive
}

// NewGate builds a gate from "HH:MM" bounds.
func NewGate(enabled bool, start, end string) (Gate, error) {
	if !enabled {
		return Gate{}, nil
	}
	s, err := ParseClock(start)
	if err != nil {
		return Gate{}, err
	}
	e, err := ParseClock(end)
	if err != nil {
		return Gate{}, err
	}
	if s == e {
		return Gate{}, errors.New("quiet: start and end must differ")
	}
	return Gate{Enabled: true, Start: s, End: e}, nil
}

// Suppressed reports whether a notification of the given priority is held
// back at time now.
//
// Urgent is never suppressed. Normal and Ambient are suppressed while now
// falls within [Start, End) on the circular clock; Start > End means the
// window wraps across midnight (e.g. 22:00–08:00).
func (g Gate) Suppressed(p policy.Priority, now time.Time) bool {
	if !g.Enabled || p == policy.PriorityUrgent {
		return false
	}
	cur := MinuteOfDay(now.Hour()*60 + now.Minute())
	if g.Start < g.End {
		return cur >= g.Start && cur < g.End
	}
	// Wrapped window.
	return cur >= g.Start || cur < g.End
}
