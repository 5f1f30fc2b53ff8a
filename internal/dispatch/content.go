package dispatch

import (
	"fmt"
	"strings"

	"campusflow/internal/event"
	"campusflow/internal/policy"
)

// render builds the user-facing title and body for one channel-bound
// notification. Conflict status never changes routing, but it is surfaced
// in email and push content so the schedule view downstream can point at
// the overlap.
func render(cand policy.Candidate, ev event.Event, ch policy.Channel) (title, body string) {
	switch cand.Reason {
	case policy.ReasonImminentStart:
		title = "Event starting soon"
		body = fmt.Sprintf("%s starts in %d minutes at %s.", ev.Title, cand.MinutesUntilStart, ev.Location)
		if ev.Organizer != "" {
			body += fmt.Sprintf(" Organizer: %s.", ev.Organizer)
		}

	case policy.ReasonLocationChanged:
		title = "Important: location changed"
		body = fmt.Sprintf("%s has been moved to %s.", ev.Title, ev.Location)

	case policy.ReasonHighMatchNew:
		if cand.MatchScore >= exceptionalMatchThreshold {
			title = fmt.Sprintf("Exceptional match: %d%%", cand.MatchScore)
		} else {
			title = "New high-match event"
		}
		body = fmt.Sprintf("%s (%d%% match) was just added to your feed.", ev.Title, cand.MatchScore)
		if left := ev.SpotsLeft(); left >= 0 {
			body += fmt.Sprintf(" Limited spots: %d remaining.", left)
		}

	case policy.ReasonDailyDigest:
		title = "Your daily CampusFlow digest"
		body = fmt.Sprintf("Good morning! Top match today: %s, %s at %s (%d%% match).",
			ev.Title, ev.Start.Format("Mon 3:04 PM"), ev.Location, ev.MatchScore)

	case policy.ReasonFriendActivity:
		title = "Your friends are going"
		body = fmt.Sprintf("Friends registered for %s.", ev.Title)

	default:
		title = ev.Title
		body = ev.Title
	}

	// Only the calm channels carry the conflict note; messaging stays terse.
	if cand.HasConflict && (ch == policy.ChannelEmail || ch == policy.ChannelPush) {
		body = strings.TrimRight(body, " ") + " Note: this event overlaps another on your schedule."
	}
	return title, body
}

// Mirror of the policy threshold for headline wording only.
const exceptionalMatchThreshold = 95
