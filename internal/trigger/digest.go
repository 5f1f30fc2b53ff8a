package trigger

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"campusflow/internal/event"
	"campusflow/internal/policy"
	logx "campusflow/pkg/logx"
)

// DigestCron fires the daily digest candidate on a cron schedule.
// The candidate references the top upcoming high-match event so the
// dispatcher's catalog guard and fingerprinting stay uniform; digest
// fingerprints are additionally keyed by calendar date downstream.
type DigestCron struct {
	cfg    Config
	engine Engine
	log    logx.Logger
	sched  cron.Schedule

	now func() time.Time
}

func NewDigestCron(cfg Config, engine Engine, log logx.Logger) (*DigestCron, error) {
	cfg.withDefaults()
	if log.IsZero() {
		log = logx.Nop()
	}
	sched, err := cron.ParseStandard(cfg.DigestCron)
	if err != nil {
		return nil, fmt.Errorf("trigger: invalid digest cron %q: %w", cfg.DigestCron, err)
	}
	return &DigestCron{
		cfg:    cfg,
		engine: engine,
		log:    log.With(logx.String("trigger", "digest")),
		sched:  sched,
		now:    time.Now,
	}, nil
}

// SetClock injects a virtual clock for tests. Not safe after Run.
func (d *DigestCron) SetClock(now func() time.Time) { d.now = now }

// Run sleeps until each next cron firing and offers a digest candidate.
func (d *DigestCron) Run(ctx context.Context) {
	for {
		next := d.sched.Next(d.now())
		t := time.NewTimer(next.Sub(d.now()))
		select {
		case <-ctx.Done():
			t.Stop()
			return
		case <-t.C:
			d.Fire(ctx)
		}
	}
}

// Fire offers one digest candidate for the current catalog.
func (d *DigestCron) Fire(ctx context.Context) {
	cat := d.engine.Catalog()
	if cat == nil {
		return
	}
	top, ok := topUpcoming(cat, d.now())
	if !ok {
		d.log.Debug("no upcoming events; skipping digest")
		return
	}
	c := policy.Candidate{
		EventID:    top.ID,
		Reason:     policy.ReasonDailyDigest,
		MatchScore: top.MatchScore,
	}
	if err := d.engine.Submit(ctx, c); err != nil {
		d.log.Warn("digest candidate failed", logx.String("event", top.ID), logx.Err(err))
	}
}

func topUpcoming(cat *event.Catalog, now time.Time) (event.Event, bool) {
	var best event.Event
	found := false
	for _, ev := range cat.Events() {
		if !ev.Start.After(now) {
			continue
		}
		if !found || ev.MatchScore > best.MatchScore {
			best = ev
			found = true
		}
	}
	return best, found
}
