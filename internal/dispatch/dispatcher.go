package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"campusflow/internal/channels"
	"campusflow/internal/conflict"
	"campusflow/internal/dedup"
	"campusflow/internal/event"
	"campusflow/internal/eventbus"
	"campusflow/internal/policy"
	"campusflow/internal/quiet"
	logx "campusflow/pkg/logx"
)

// Bus event types published by the dispatcher.
const (
	EvAdmitted   = "notify.admitted"
	EvDeduped    = "notify.deduped"
	EvSuppressed = "notify.suppressed"
	EvSent       = "notify.sent"
	EvFailed     = "notify.failed"
	EvExpired    = "notify.expired"
	EvDropped    = "notify.dropped"
	EvCatalog    = "catalog.reloaded"
)

// BusData is the payload attached to dispatcher bus events.
type BusData struct {
	EventID     string          `json:"event_id,omitempty"`
	Reason      string          `json:"reason,omitempty"`
	Channel     string          `json:"channel,omitempty"`
	Fingerprint string          `json:"fingerprint,omitempty"`
	Priority    string          `json:"priority,omitempty"`
	Status      channels.Status `json:"status,omitempty"`
	Error       string          `json:"error,omitempty"`
}

// ChannelConfig gates which channels are even considered before a routing
// decision reaches the senders. A disabled channel is treated as absent from
// the decision's channel set.
type ChannelConfig struct {
	EmailEnabled     bool
	MessagingEnabled bool
	// MessagingUrgentOnly drops non-urgent messaging sends ("urgent only" mode).
	MessagingUrgentOnly bool
	PushEnabled         bool
}

// Options configures the dispatcher.
type Options struct {
	// BannerTTL bounds transient notifications; a duplicate fingerprint
	// within this window is dropped.
	BannerTTL time.Duration
	// DigestTTL bounds daily digest fingerprints (keyed by calendar date).
	DigestTTL time.Duration
	// SweepEvery is the expiry sweep cadence.
	SweepEvery time.Duration

	Channels ChannelConfig
}

func (o *Options) withDefaults() {
	if o.BannerTTL <= 0 {
		o.BannerTTL = 8 * time.Second
	}
	if o.DigestTTL <= 0 {
		o.DigestTTL = 24 * time.Hour
	}
	if o.SweepEvery <= 0 {
		o.SweepEvery = time.Second
	}
}

// Dispatcher is the scheduling core: it accepts candidates from trigger
// sources, consults the policy engine, the quiet-hours gate and the dedup
// store, and hands admitted notifications to the channel senders.
//
// Submit is safe for concurrent use; candidates may arrive from multiple
// triggers at once. The dedup store's lock is never held across a send.
type Dispatcher struct {
	log  logx.Logger
	bus  eventbus.Bus
	deds *dedup.Store

	mu        sync.RWMutex
	opts      Options
	gate      quiet.Gate
	catalog   *event.Catalog
	conflicts *conflict.Set
	senders   map[policy.Channel]channels.Sender

	// reopt nudges the sweep loop after Apply so a new cadence takes
	// effect without waiting out the old ticker interval.
	reopt chan struct{}

	now func() time.Time
}

func New(opts Options, gate quiet.Gate, store *dedup.Store, log logx.Logger, bus eventbus.Bus) *Dispatcher {
	opts.withDefaults()
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Dispatcher{
		log:     log,
		bus:     bus,
		deds:    store,
		opts:    opts,
		gate:    gate,
		senders: map[policy.Channel]channels.Sender{},
		reopt:   make(chan struct{}, 1),
		now:     time.Now,
	}
}

// SetClock injects a virtual clock for tests. Not safe after Start.
func (d *Dispatcher) SetClock(now func() time.Time) { d.now = now }

// RegisterSender installs the sender for its channel, replacing any previous one.
func (d *Dispatcher) RegisterSender(s channels.Sender) {
	d.mu.Lock()
	d.senders[s.Channel()] = s
	d.mu.Unlock()
}

// Apply swaps gate and options at runtime (config reload).
func (d *Dispatcher) Apply(opts Options, gate quiet.Gate) {
	opts.withDefaults()
	d.mu.Lock()
	d.opts = opts
	d.gate = gate
	d.mu.Unlock()

	select {
	case d.reopt <- struct{}{}:
	default:
	}
}

// SetCatalog installs a new catalog version and recomputes conflicts.
func (d *Dispatcher) SetCatalog(cat *event.Catalog) {
	set := conflict.Detect(cat.Events())
	d.mu.Lock()
	d.catalog = cat
	d.conflicts = set
	d.mu.Unlock()

	d.publish(EvCatalog, BusData{})
	d.log.Info("catalog installed",
		logx.Int("events", cat.Len()),
		logx.Int("conflicts", set.Len()),
	)
}

// Catalog returns the current catalog (may be nil before the first load).
func (d *Dispatcher) Catalog() *event.Catalog {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.catalog
}

// Conflicts returns the conflict set for the current catalog.
func (d *Dispatcher) Conflicts() *conflict.Set {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.conflicts
}

// Submit processes one candidate end to end.
//
// Unknown events and policy drops are logged and ignored, never fatal.
// A misconfigured TTL fails fast with dedup.ErrBadTTL. Send failures are
// recorded as Failed and returned as a non-fatal joined error; the engine
// never retries — a fresh candidate after expiry is the retry path.
func (d *Dispatcher) Submit(ctx context.Context, cand policy.Candidate) error {
	d.mu.RLock()
	opts := d.opts
	gate := d.gate
	cat := d.catalog
	conf := d.conflicts
	d.mu.RUnlock()

	if cat == nil {
		d.log.Warn("candidate before catalog load; dropping", logx.String("event", cand.EventID))
		return nil
	}
	ev, ok := cat.Get(cand.EventID)
	if !ok {
		d.log.Warn("candidate for unknown event; dropping",
			logx.String("event", cand.EventID),
			logx.String("reason", string(cand.Reason)),
		)
		d.publish(EvDropped, BusData{EventID: cand.EventID, Reason: string(cand.Reason), Error: "unknown event"})
		return nil
	}

	// The dispatcher owns the conflict signal; trigger sources don't.
	cand.HasConflict = conf.Has(ev.ID)

	dec := policy.Route(cand, ev)
	if !dec.Allowed {
		d.publish(EvDropped, BusData{EventID: ev.ID, Reason: string(cand.Reason)})
		return nil
	}

	now := d.now()
	var errs []error
	for _, ch := range dec.Channels {
		if !opts.Channels.allows(ch, dec.Priority) {
			continue
		}

		fp, ttl := d.keyFor(cand, ch, opts, now)
		admitted, err := d.deds.TryAdmit(fp, ttl)
		if err != nil {
			// TTL misconfiguration fails fast at submission time.
			return err
		}
		data := BusData{
			EventID:     ev.ID,
			Reason:      string(cand.Reason),
			Channel:     string(ch),
			Fingerprint: fp,
			Priority:    dec.Priority.String(),
		}
		if !admitted {
			d.publish(EvDeduped, data)
			continue
		}

		// Quiet hours: Urgent bypasses; suppressed candidates drop without a
		// retry admission (the fingerprint stays live until its TTL).
		if gate.Suppressed(dec.Priority, now) {
			d.publish(EvSuppressed, data)
			continue
		}

		n := channels.Notification{
			ID:          uuid.NewString(),
			Fingerprint: fp,
			Channel:     ch,
			Priority:    dec.Priority,
			CreatedAt:   now,
			ExpiresAt:   now.Add(ttl),
			Status:      channels.StatusPending,
		}
		n.Title, n.Body = render(cand, ev, ch)
		d.deds.Attach(fp, &n)
		d.publish(EvAdmitted, data)

		if err := d.send(ctx, n); err != nil {
			data.Error = err.Error()
			data.Status = channels.StatusFailed
			d.publish(EvFailed, data)
			errs = append(errs, fmt.Errorf("%s: %w", ch, err))
			continue
		}
		data.Status = channels.StatusSent
		d.publish(EvSent, data)
	}
	return errors.Join(errs...)
}

func (c ChannelConfig) allows(ch policy.Channel, p policy.Priority) bool {
	switch ch {
	case policy.ChannelEmail:
		return c.EmailEnabled
	case policy.ChannelMessaging:
		if !c.MessagingEnabled {
			return false
		}
		return !c.MessagingUrgentOnly || p == policy.PriorityUrgent
	case policy.ChannelPush:
		return c.PushEnabled
	}
	return false
}

func (d *Dispatcher) keyFor(cand policy.Candidate, ch policy.Channel, opts Options, now time.Time) (string, time.Duration) {
	if cand.Reason == policy.ReasonDailyDigest {
		return dedup.DigestFingerprint(cand.EventID, ch, now), opts.DigestTTL
	}
	return dedup.Fingerprint(cand.EventID, cand.Reason, ch), opts.BannerTTL
}

// send delivers without holding any store lock, then records the outcome
// under a fresh short lock. At most one attempt per admitted fingerprint.
func (d *Dispatcher) send(ctx context.Context, n channels.Notification) error {
	d.mu.RLock()
	s := d.senders[n.Channel]
	d.mu.RUnlock()
	if s == nil {
		d.deds.SetStatus(n.Fingerprint, channels.StatusFailed)
		return fmt.Errorf("no sender registered for channel %q", n.Channel)
	}

	ack, err := s.Send(ctx, n)
	if err != nil {
		d.deds.SetStatus(n.Fingerprint, channels.StatusFailed)
		return err
	}
	d.deds.SetStatus(n.Fingerprint, channels.StatusSent)
	d.log.Debug("sent",
		logx.String("channel", string(n.Channel)),
		logx.String("id", n.ID),
		logx.String("ref", ack.Ref),
	)
	return nil
}

// Run drives the periodic TTL sweep until ctx is done. The sweep runs
// independently of candidate arrival and only takes the store lock briefly
// per pass.
func (d *Dispatcher) Run(ctx context.Context) {
	t := time.NewTicker(d.sweepEvery())
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-d.reopt:
			t.Reset(d.sweepEvery())
		case <-t.C:
			for _, n := range d.deds.Sweep(d.now()) {
				d.publish(EvExpired, BusData{
					Channel:     string(n.Channel),
					Fingerprint: n.Fingerprint,
					Status:      channels.StatusExpired,
				})
			}
		}
	}
}

func (d *Dispatcher) sweepEvery() time.Duration {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.opts.SweepEvery
}

func (d *Dispatcher) publish(typ string, data BusData) {
	if d.bus == nil {
		return
	}
	d.bus.Publish(eventbus.Event{Type: typ, Time: d.now(), Data: data})
}
