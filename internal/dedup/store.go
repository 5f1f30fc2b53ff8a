// Package dedup enforces the at-most-one-live-notification-per-fingerprint
// guarantee. The fingerprint map is the only shared mutable state in the
// engine core; everything here happens under one short-held mutex.
package dedup

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"campusflow/internal/channels"
	"campusflow/internal/policy"
	"campusflow/internal/storage"
)

var ErrBadTTL = errors.New("dedup: ttl must be > 0")

// Fingerprint derives the dedup key for an event/reason/channel triple.
func Fingerprint(eventID string, reason policy.TriggerReason, ch policy.Channel) string {
	h := fnv.New64a()
	_, _ = h.Write([]byte(eventID))
	_, _ = h.Write([]byte("|"))
	_, _ = h.Write([]byte(reason))
	_, _ = h.Write([]byte("|"))
	_, _ = h.Write([]byte(ch))
	return fmt.Sprintf("%x", h.Sum64())
}

// DigestFingerprint keys daily digests additionally by calendar date, so a
// digest admitted today never blocks tomorrow's.
func DigestFingerprint(eventID string, ch policy.Channel, day time.Time) string {
	h := fnv.New64a()
	_, _ = h.Write([]byte(eventID))
	_, _ = h.Write([]byte("|"))
	_, _ = h.Write([]byte(policy.ReasonDailyDigest))
	_, _ = h.Write([]byte("|"))
	_, _ = h.Write([]byte(ch))
	_, _ = h.Write([]byte("|"))
	_, _ = h.Write([]byte(day.Format("2006-01-02")))
	return fmt.Sprintf("%x", h.Sum64())
}

type entry struct {
	expiresAt time.Time
	// n is attached by the dispatcher once the notification is built.
	// It is only read or written under the store mutex.
	n *channels.Notification
}

// Store is the in-memory registry of live notification fingerprints.
//
// TryAdmit is atomic with respect to concurrent candidates sharing a
// fingerprint: by construction a double-admit cannot occur.
type Store struct {
	mu      sync.Mutex
	entries map[string]*entry

	// persist, when set, mirrors suppress-until times across restarts.
	// Best-effort: persistence failures never block admission.
	persist storage.Store

	now func() time.Time
}

type Option func(*Store)

// WithClock injects a virtual clock for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithPersistence mirrors admissions to st so a restart inside a TTL window
// does not re-notify.
func WithPersistence(st storage.Store) Option {
	return func(s *Store) { s.persist = st }
}

func New(opts ...Option) *Store {
	s := &Store{
		entries: make(map[string]*entry),
		now:     time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// TryAdmit admits the fingerprint if no unexpired entry exists.
// True means the caller may dispatch; false means an entry is live and the
// caller must drop. A non-positive ttl is a configuration error.
func (s *Store) TryAdmit(fp string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		return false, fmt.Errorf("%w (got %v)", ErrBadTTL, ttl)
	}
	now := s.now()

	s.mu.Lock()
	if e, ok := s.entries[fp]; ok && now.Before(e.expiresAt) {
		s.mu.Unlock()
		return false, nil
	}
	until := now.Add(ttl)
	s.entries[fp] = &entry{expiresAt: until}
	s.mu.Unlock()

	// Cross-restart check after the cheap in-memory path.
	if s.persist != nil {
		cctx, cancel := context.WithTimeout(context.Background(), 25*time.Millisecond)
		prev, ok, err := s.persist.GetDedup(cctx, fp)
		cancel()
		if err == nil && ok && now.Before(prev) {
			s.mu.Lock()
			s.entries[fp] = &entry{expiresAt: prev}
			s.mu.Unlock()
			return false, nil
		}
		cctx, cancel = context.WithTimeout(context.Background(), 250*time.Millisecond)
		_ = s.persist.PutDedup(cctx, fp, until)
		cancel()
	}
	return true, nil
}

// Attach binds the built notification to its admitted fingerprint so the
// sweep can expire it.
func (s *Store) Attach(fp string, n *channels.Notification) {
	s.mu.Lock()
	if e, ok := s.entries[fp]; ok {
		e.n = n
	}
	s.mu.Unlock()
}

// SetStatus records the adapter outcome for an admitted fingerprint.
// Expired entries are left alone; Expired is terminal.
func (s *Store) SetStatus(fp string, st channels.Status) {
	s.mu.Lock()
	if e, ok := s.entries[fp]; ok && e.n != nil && e.n.Status != channels.StatusExpired {
		e.n.Status = st
	}
	s.mu.Unlock()
}

// Get returns a copy of the notification attached to fp, if any.
func (s *Store) Get(fp string) (channels.Notification, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[fp]
	if !ok || e.n == nil {
		return channels.Notification{}, false
	}
	return *e.n, true
}

// Live reports whether fp currently has an unexpired entry.
func (s *Store) Live(fp string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[fp]
	return ok && s.now().Before(e.expiresAt)
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Sweep removes entries whose expiry is at or before now, transitioning any
// attached notification to Expired. Returns copies of the expired
// notifications for observability.
func (s *Store) Sweep(now time.Time) []channels.Notification {
	var expired []channels.Notification
	s.mu.Lock()
	for fp, e := range s.entries {
		if e.expiresAt.After(now) {
			continue
		}
		if e.n != nil {
			e.n.Status = channels.StatusExpired
			expired = append(expired, *e.n)
		}
		delete(s.entries, fp)
	}
	s.mu.Unlock()
	return expired
}
