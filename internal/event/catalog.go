package event

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	yaml "go.yaml.in/yaml/v3"
)

// Catalog is the working set of events the engine operates on.
// It is immutable after construction; a catalog change produces a new Catalog.
type Catalog struct {
	events []Event
	byID   map[string]Event
}

// NewCatalog validates and indexes the given events.
// Duplicate IDs and malformed events are rejected.
func NewCatalog(events []Event) (*Catalog, error) {
	byID := make(map[string]Event, len(events))
	out := make([]Event, 0, len(events))
	for _, e := range events {
		if err := e.Validate(); err != nil {
			return nil, err
		}
		if _, dup := byID[e.ID]; dup {
			return nil, fmt.Errorf("event: duplicate id %q", e.ID)
		}
		byID[e.ID] = e
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return &Catalog{events: out, byID: byID}, nil
}

// Events returns the catalog contents sorted by start time.
// The returned slice must not be modified.
func (c *Catalog) Events() []Event { return c.events }

// Get looks up an event by ID.
func (c *Catalog) Get(id string) (Event, bool) {
	e, ok := c.byID[id]
	return e, ok
}

func (c *Catalog) Len() int { return len(c.events) }

// Change describes the difference between two catalog versions.
// Used by the catalog watcher to derive notification candidates.
type Change struct {
	Added []Event
	// Moved holds new versions of events whose location changed.
	Moved []Event
}

// Diff compares an old catalog against c (the new version).
func (c *Catalog) Diff(old *Catalog) Change {
	var ch Change
	if old == nil {
		ch.Added = append(ch.Added, c.events...)
		return ch
	}
	for _, e := range c.events {
		prev, ok := old.byID[e.ID]
		if !ok {
			ch.Added = append(ch.Added, e)
			continue
		}
		if prev.Location != e.Location {
			ch.Moved = append(ch.Moved, e)
		}
	}
	return ch
}

// catalogFile is the on-disk YAML shape.
type catalogFile struct {
	Events []eventRecord `yaml:"events"`
}

type eventRecord struct {
	ID              string   `yaml:"id"`
	Title           string   `yaml:"title"`
	Category        string   `yaml:"category"`
	Start           string   `yaml:"start"` // RFC 3339
	DurationMinutes int      `yaml:"duration_minutes"`
	Location        string   `yaml:"location"`
	RegisteredCount int      `yaml:"registered_count"`
	Capacity        int      `yaml:"capacity"`
	MatchScore      int      `yaml:"match_score"`
	Organizer       string   `yaml:"organizer"`
	OrganizerPhone  string   `yaml:"organizer_phone"`
	Tags            []string `yaml:"tags"`
}

// LoadCatalog reads a catalog file. The format is chosen by extension:
// .yaml/.yml for the native format, .ics for iCalendar feeds.
func LoadCatalog(path string) (*Catalog, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".ics":
		evs, err := parseICS(b)
		if err != nil {
			return nil, fmt.Errorf("catalog %s: %w", path, err)
		}
		return NewCatalog(evs)
	default:
		return parseYAML(path, b)
	}
}

func parseYAML(path string, b []byte) (*Catalog, error) {
	var f catalogFile
	dec := yaml.NewDecoder(strings.NewReader(string(b)))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}

	evs := make([]Event, 0, len(f.Events))
	for _, r := range f.Events {
		start, err := time.Parse(time.RFC3339, strings.TrimSpace(r.Start))
		if err != nil {
			return nil, fmt.Errorf("catalog %s: event %q: invalid start: %w", path, r.ID, err)
		}
		evs = append(evs, Event{
			ID:              r.ID,
			Title:           r.Title,
			Category:        Category(r.Category),
			Start:           start,
			DurationMinutes: r.DurationMinutes,
			Location:        r.Location,
			RegisteredCount: r.RegisteredCount,
			Capacity:        r.Capacity,
			MatchScore:      r.MatchScore,
			Organizer:       r.Organizer,
			OrganizerPhone:  r.OrganizerPhone,
			Tags:            r.Tags,
		})
	}
	return NewCatalog(evs)
}
