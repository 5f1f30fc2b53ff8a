// Package policy decides whether and where a notification candidate is sent.
//
// Route is a pure function: no clocks, no I/O, no state. Identical inputs
// always yield identical decisions, so the dispatcher can call it from any
// goroutine and tests can assert exact outcomes.
package policy

import "campusflow/internal/event"

// Score thresholds for high-match routing. An exceptional match with spots
// remaining interrupts over messaging; a merely good match goes to push.
const (
	exceptionalMatchScore = 95
	highMatchScore        = 75
)

// Lead time under which an upcoming start is treated as urgent.
const imminentWindowMinutes = 30

// Route maps a candidate to a routing decision. Rules are evaluated in
// order, first match wins; candidates matching no rule are silently dropped.
//
// The event is the catalog's current version for the candidate's EventID;
// passing the zero Event (unknown ID) always yields a drop.
//
// HasConflict never changes channel selection. It is surfaced downstream in
// rendered content for email and push notifications.
func Route(c Candidate, ev event.Event) Decision {
	if ev.ID == "" || ev.ID != c.EventID || !c.Reason.Valid() {
		return Decision{}
	}

	switch {
	case c.Reason == ReasonImminentStart && c.MinutesUntilStart <= imminentWindowMinutes:
		return allow(PriorityUrgent, ChannelMessaging)

	case c.Reason == ReasonLocationChanged:
		return allow(PriorityUrgent, ChannelMessaging)

	case c.Reason == ReasonHighMatchNew && c.MatchScore >= exceptionalMatchScore && !ev.AtCapacity():
		return allow(PriorityUrgent, ChannelMessaging)

	case c.Reason == ReasonHighMatchNew && c.MatchScore >= highMatchScore:
		return allow(PriorityNormal, ChannelPush)

	case c.Reason == ReasonFriendActivity:
		return allow(PriorityAmbient, ChannelPush)

	case c.Reason == ReasonDailyDigest:
		return allow(PriorityNormal, ChannelEmail)
	}

	return Decision{}
}

func allow(p Priority, chs ...Channel) Decision {
	return Decision{Allowed: true, Channels: chs, Priority: p}
}
