package trigger

import (
	"context"
	"sync"
	"time"

	"campusflow/internal/policy"
	logx "campusflow/pkg/logx"
)

// ImminentScanner periodically walks the catalog and offers an
// imminent-start candidate for every event whose start falls within the
// lead window.
//
// The scanner offers each event at most once per process; re-offering after
// a failed send is deliberate caller policy, not something the engine does,
// so the scanner keeps its own offered set rather than leaning on dedup TTLs.
type ImminentScanner struct {
	cfg    Config
	engine Engine
	log    logx.Logger

	mu      sync.Mutex
	offered map[string]struct{}

	now func() time.Time
}

func NewImminentScanner(cfg Config, engine Engine, log logx.Logger) *ImminentScanner {
	cfg.withDefaults()
	if log.IsZero() {
		log = logx.Nop()
	}
	return &ImminentScanner{
		cfg:     cfg,
		engine:  engine,
		log:     log.With(logx.String("trigger", "imminent")),
		offered: map[string]struct{}{},
		now:     time.Now,
	}
}

// SetClock injects a virtual clock for tests. Not safe after Run.
func (s *ImminentScanner) SetClock(now func() time.Time) { s.now = now }

// Run scans on the configured cadence until ctx is done.
func (s *ImminentScanner) Run(ctx context.Context) {
	t := time.NewTicker(s.cfg.ScanEvery)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.Scan(ctx)
		}
	}
}

// Scan offers candidates for events starting within the lead window.
func (s *ImminentScanner) Scan(ctx context.Context) {
	cat := s.engine.Catalog()
	if cat == nil {
		return
	}
	now := s.now()
	for _, ev := range cat.Events() {
		until := ev.Start.Sub(now)
		if until <= 0 || until > s.cfg.ImminentLead {
			continue
		}

		s.mu.Lock()
		_, seen := s.offered[ev.ID]
		if !seen {
			s.offered[ev.ID] = struct{}{}
		}
		s.mu.Unlock()
		if seen {
			continue
		}

		c := policy.Candidate{
			EventID:           ev.ID,
			Reason:            policy.ReasonImminentStart,
			MatchScore:        ev.MatchScore,
			MinutesUntilStart: int(until / time.Minute),
		}
		if err := s.engine.Submit(ctx, c); err != nil {
			s.log.Warn("imminent candidate failed", logx.String("event", ev.ID), logx.Err(err))
		}
	}
}
