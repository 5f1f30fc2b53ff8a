// Package trigger turns time and catalog changes into notification
// candidates.
//
// The engine core never assumes a timer mechanism; these sources are the
// default producers (imminent-start scanner, daily digest cron, catalog
// file watcher), and tests drive the engine directly with hand-built
// candidates instead.
package trigger

import (
	"context"
	"time"

	"campusflow/internal/event"
	"campusflow/internal/policy"
)

// Engine is the dispatcher surface trigger sources need.
type Engine interface {
	Submit(ctx context.Context, c policy.Candidate) error
	SetCatalog(cat *event.Catalog)
	Catalog() *event.Catalog
}

// Config controls the built-in trigger sources.
type Config struct {
	// DigestCron is the daily digest schedule (standard 5-field cron).
	DigestCron string
	// ImminentLead is how far before start an event counts as imminent.
	ImminentLead time.Duration
	// ScanEvery is the imminent-start scan cadence.
	ScanEvery time.Duration
}

func (c *Config) withDefaults() {
	if c.DigestCron == "" {
		c.DigestCron = "0 8 * * *"
	}
	if c.ImminentLead <= 0 {
		c.ImminentLead = 30 * time.Minute
	}
	if c.ScanEvery <= 0 {
		c.ScanEvery = time.Minute
	}
}
