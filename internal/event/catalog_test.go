package event

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func mk(id string, start time.Time) Event {
	e := sample()
	e.ID = id
	e.Start = start
	return e
}

func TestNewCatalog(t *testing.T) {
	t.Parallel()
	at := func(h int) time.Time { return time.Date(2026, 3, 14, h, 0, 0, 0, time.UTC) }

	cat, err := NewCatalog([]Event{mk("b", at(12)), mk("a", at(10))})
	if err != nil {
		t.Fatalf("NewCatalog: %v", err)
	}
	if cat.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", cat.Len())
	}
	evs := cat.Events()
	if evs[0].ID != "a" || evs[1].ID != "b" {
		t.Fatalf("events not sorted by start: %v, %v", evs[0].ID, evs[1].ID)
	}
	if _, ok := cat.Get("a"); !ok {
		t.Fatal("Get(a) missed")
	}
	if _, ok := cat.Get("missing"); ok {
		t.Fatal("Get(missing) hit")
	}
}

func TestNewCatalogRejects(t *testing.T) {
	t.Parallel()
	at := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

	if _, err := NewCatalog([]Event{mk("dup", at), mk("dup", at.Add(time.Hour))}); err == nil {
		t.Fatal("duplicate id accepted")
	}
	bad := mk("x", at)
	bad.DurationMinutes = -5
	if _, err := NewCatalog([]Event{bad}); err == nil {
		t.Fatal("invalid event accepted")
	}
}

func TestNewCatalogAcceptsZeroDuration(t *testing.T) {
	t.Parallel()
	at := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	marker := mk("marker", at)
	marker.DurationMinutes = 0

	cat, err := NewCatalog([]Event{marker, mk("talk", at)})
	if err != nil {
		t.Fatalf("zero-duration entry rejected: %v", err)
	}
	got, ok := cat.Get("marker")
	if !ok {
		t.Fatal("marker missing")
	}
	if !got.End().Equal(got.Start) {
		t.Fatalf("End() = %v, want Start", got.End())
	}
}

func TestDiff(t *testing.T) {
	t.Parallel()
	at := func(h int) time.Time { return time.Date(2026, 3, 14, h, 0, 0, 0, time.UTC) }

	old, err := NewCatalog([]Event{mk("a", at(10)), mk("b", at(12))})
	if err != nil {
		t.Fatal(err)
	}
	moved := mk("b", at(12)).WithLocation("Annex 3")
	next, err := NewCatalog([]Event{mk("a", at(10)), moved, mk("c", at(14))})
	if err != nil {
		t.Fatal(err)
	}

	ch := next.Diff(old)
	if len(ch.Added) != 1 || ch.Added[0].ID != "c" {
		t.Fatalf("Added = %+v, want [c]", ch.Added)
	}
	if len(ch.Moved) != 1 || ch.Moved[0].ID != "b" || ch.Moved[0].Location != "Annex 3" {
		t.Fatalf("Moved = %+v", ch.Moved)
	}

	// Diff against nil reports everything as added.
	all := next.Diff(nil)
	if len(all.Added) != 3 || len(all.Moved) != 0 {
		t.Fatalf("Diff(nil) = %+v", all)
	}
}

const catalogYAML = `events:
  - id: ev-1
    title: AI Careers Panel
    category: AI/ML
    start: "2026-03-14T10:00:00Z"
    duration_minutes: 60
    location: Hall A
    capacity: 50
    registered_count: 10
    match_score: 96
    organizer: ACM Chapter
  - id: ev-2
    title: Spring Concert
    category: Cultural
    start: "2026-03-14T18:00:00Z"
    duration_minutes: 120
    location: Quad
    match_score: 40
`

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadCatalogYAML(t *testing.T) {
	t.Parallel()
	cat, err := LoadCatalog(writeFile(t, "events.yaml", catalogYAML))
	if err != nil {
		t.Fatalf("LoadCatalog: %v", err)
	}
	if cat.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", cat.Len())
	}
	ev, ok := cat.Get("ev-1")
	if !ok {
		t.Fatal("ev-1 missing")
	}
	if ev.Category != CategoryAIML || ev.MatchScore != 96 || ev.Capacity != 50 {
		t.Fatalf("ev-1 = %+v", ev)
	}
	if !ev.Start.Equal(time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)) {
		t.Fatalf("start = %v", ev.Start)
	}
}

func TestLoadCatalogYAMLStrict(t *testing.T) {
	t.Parallel()
	body := strings.Replace(catalogYAML, "organizer:", "organiser:", 1)
	if _, err := LoadCatalog(writeFile(t, "events.yaml", body)); err == nil {
		t.Fatal("unknown field accepted")
	}
}

func TestLoadCatalogYAMLBadStart(t *testing.T) {
	t.Parallel()
	body := strings.Replace(catalogYAML, "2026-03-14T10:00:00Z", "tomorrow", 1)
	if _, err := LoadCatalog(writeFile(t, "events.yaml", body)); err == nil {
		t.Fatal("invalid start accepted")
	}
}

const catalogICS = "BEGIN:VCALENDAR\r\n" +
	"VERSION:2.0\r\n" +
	"PRODID:-//campus//feed//EN\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:ics-1\r\n" +
	"SUMMARY:Robotics Demo\r\n" +
	"LOCATION:Lab 2\r\n" +
	"CATEGORIES:Tech\r\n" +
	"DTSTART:20260314T100000Z\r\n" +
	"DTEND:20260314T113000Z\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:ics-2\r\n" +
	"SUMMARY:Open Mic Night\r\n" +
	"DTSTART:20260314T190000Z\r\n" +
	"END:VEVENT\r\n" +
	"END:VCALENDAR\r\n"

func TestLoadCatalogICS(t *testing.T) {
	t.Parallel()
	cat, err := LoadCatalog(writeFile(t, "feed.ics", catalogICS))
	if err != nil {
		t.Fatalf("LoadCatalog: %v", err)
	}
	if cat.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", cat.Len())
	}

	ev, ok := cat.Get("ics-1")
	if !ok {
		t.Fatal("ics-1 missing")
	}
	if ev.Title != "Robotics Demo" || ev.Location != "Lab 2" {
		t.Fatalf("ics-1 = %+v", ev)
	}
	if ev.Category != CategoryTech {
		t.Fatalf("category = %q", ev.Category)
	}
	if ev.DurationMinutes != 90 {
		t.Fatalf("duration = %d, want 90", ev.DurationMinutes)
	}

	// No DTEND falls back to the default duration; no CATEGORIES lands in
	// the catch-all bucket.
	ev2, _ := cat.Get("ics-2")
	if ev2.DurationMinutes != defaultICSDurationMinutes {
		t.Fatalf("default duration = %d", ev2.DurationMinutes)
	}
	if ev2.Category != CategoryCultural {
		t.Fatalf("fallback category = %q", ev2.Category)
	}
}
