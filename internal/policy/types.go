package policy

// TriggerReason says why a notification candidate was produced.
type TriggerReason string

const (
	ReasonImminentStart   TriggerReason = "imminent_start"
	ReasonHighMatchNew    TriggerReason = "high_match_new"
	ReasonLocationChanged TriggerReason = "location_changed"
	ReasonDailyDigest     TriggerReason = "daily_digest"
	ReasonFriendActivity  TriggerReason = "friend_activity"
)

func (r TriggerReason) Valid() bool {
	switch r {
	case ReasonImminentStart, ReasonHighMatchNew, ReasonLocationChanged,
		ReasonDailyDigest, ReasonFriendActivity:
		return true
	}
	return false
}

// Channel is a delivery channel.
type Channel string

const (
	ChannelEmail     Channel = "email"
	ChannelMessaging Channel = "messaging"
	ChannelPush      Channel = "push"
)

// Priority orders how intrusive a notification is allowed to be.
// Urgent is the only priority that bypasses quiet hours.
type Priority int

const (
	PriorityAmbient Priority = iota
	PriorityNormal
	PriorityUrgent
)

func (p Priority) String() string {
	switch p {
	case PriorityUrgent:
		return "urgent"
	case PriorityNormal:
		return "normal"
	default:
		return "ambient"
	}
}

// Candidate is the ephemeral input to the policy engine: an event reference,
// the trigger reason, and the signals computed by the trigger source.
// It is consumed by the dispatcher and discarded.
type Candidate struct {
	EventID           string
	Reason            TriggerReason
	MatchScore        int
	HasConflict       bool
	MinutesUntilStart int
}

// Decision is the routing outcome for one candidate.
type Decision struct {
	Allowed  bool
	Channels []Channel
	Priority Priority
}
