package policy

import (
	"reflect"
	"testing"
	"time"

	"campusflow/internal/event"
)

func testEvent(id string) event.Event {
	return event.Event{
		ID:              id,
		Title:           "Test Event",
		Category:        event.CategoryTech,
		Start:           time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC),
		DurationMinutes: 60,
		Capacity:        100,
		RegisteredCount: 10,
		MatchScore:      80,
	}
}

func TestRoute(t *testing.T) {
	t.Parallel()

	full := testEvent("ev")
	full.RegisteredCount = full.Capacity

	cases := []struct {
		name string
		cand Candidate
		ev   event.Event
		want Decision
	}{
		{
			name: "imminent start is urgent messaging",
			cand: Candidate{EventID: "ev", Reason: ReasonImminentStart, MinutesUntilStart: 15},
			ev:   testEvent("ev"),
			want: Decision{Allowed: true, Channels: []Channel{ChannelMessaging}, Priority: PriorityUrgent},
		},
		{
			name: "imminent at window boundary still urgent",
			cand: Candidate{EventID: "ev", Reason: ReasonImminentStart, MinutesUntilStart: 30},
			ev:   testEvent("ev"),
			want: Decision{Allowed: true, Channels: []Channel{ChannelMessaging}, Priority: PriorityUrgent},
		},
		{
			name: "imminent outside window drops",
			cand: Candidate{EventID: "ev", Reason: ReasonImminentStart, MinutesUntilStart: 31},
			ev:   testEvent("ev"),
			want: Decision{},
		},
		{
			name: "location change is urgent messaging",
			cand: Candidate{EventID: "ev", Reason: ReasonLocationChanged},
			ev:   testEvent("ev"),
			want: Decision{Allowed: true, Channels: []Channel{ChannelMessaging}, Priority: PriorityUrgent},
		},
		{
			name: "exceptional match with spots interrupts",
			cand: Candidate{EventID: "ev", Reason: ReasonHighMatchNew, MatchScore: 95},
			ev:   testEvent("ev"),
			want: Decision{Allowed: true, Channels: []Channel{ChannelMessaging}, Priority: PriorityUrgent},
		},
		{
			name: "exceptional match at capacity downgrades to push",
			cand: Candidate{EventID: "ev", Reason: ReasonHighMatchNew, MatchScore: 95},
			ev:   full,
			want: Decision{Allowed: true, Channels: []Channel{ChannelPush}, Priority: PriorityNormal},
		},
		{
			name: "high match goes to push",
			cand: Candidate{EventID: "ev", Reason: ReasonHighMatchNew, MatchScore: 75},
			ev:   testEvent("ev"),
			want: Decision{Allowed: true, Channels: []Channel{ChannelPush}, Priority: PriorityNormal},
		},
		{
			name: "low match drops",
			cand: Candidate{EventID: "ev", Reason: ReasonHighMatchNew, MatchScore: 74},
			ev:   testEvent("ev"),
			want: Decision{},
		},
		{
			name: "friend activity is ambient push",
			cand: Candidate{EventID: "ev", Reason: ReasonFriendActivity},
			ev:   testEvent("ev"),
			want: Decision{Allowed: true, Channels: []Channel{ChannelPush}, Priority: PriorityAmbient},
		},
		{
			name: "daily digest is normal email",
			cand: Candidate{EventID: "ev", Reason: ReasonDailyDigest},
			ev:   testEvent("ev"),
			want: Decision{Allowed: true, Channels: []Channel{ChannelEmail}, Priority: PriorityNormal},
		},
		{
			name: "unknown reason drops",
			cand: Candidate{EventID: "ev", Reason: "capacity_warning"},
			ev:   testEvent("ev"),
			want: Decision{},
		},
		{
			name: "zero event drops",
			cand: Candidate{EventID: "ev", Reason: ReasonDailyDigest},
			ev:   event.Event{},
			want: Decision{},
		},
		{
			name: "mismatched event id drops",
			cand: Candidate{EventID: "other", Reason: ReasonDailyDigest},
			ev:   testEvent("ev"),
			want: Decision{},
		},
		{
			name: "conflict never changes routing",
			cand: Candidate{EventID: "ev", Reason: ReasonHighMatchNew, MatchScore: 80, HasConflict: true},
			ev:   testEvent("ev"),
			want: Decision{Allowed: true, Channels: []Channel{ChannelPush}, Priority: PriorityNormal},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Route(tc.cand, tc.ev)
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("Route() = %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestRouteDeterministic(t *testing.T) {
	t.Parallel()
	cand := Candidate{EventID: "ev", Reason: ReasonHighMatchNew, MatchScore: 95}
	ev := testEvent("ev")
	first := Route(cand, ev)
	for i := 0; i < 100; i++ {
		if got := Route(cand, ev); !reflect.DeepEqual(got, first) {
			t.Fatalf("Route not deterministic: %+v vs %+v", got, first)
		}
	}
}

func TestRouteOrderImminentBeatsHighMatch(t *testing.T) {
	t.Parallel()
	// An imminent candidate for an exceptional-match event routes by its
	// reason, not by the score.
	ev := testEvent("ev")
	ev.MatchScore = 99
	got := Route(Candidate{EventID: "ev", Reason: ReasonImminentStart, MatchScore: 99, MinutesUntilStart: 10}, ev)
	want := Decision{Allowed: true, Channels: []Channel{ChannelMessaging}, Priority: PriorityUrgent}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Route() = %+v, want %+v", got, want)
	}
}

func TestPriorityString(t *testing.T) {
	t.Parallel()
	if PriorityUrgent.String() != "urgent" || PriorityNormal.String() != "normal" || PriorityAmbient.String() != "ambient" {
		t.Fatal("Priority.String mismatch")
	}
}
