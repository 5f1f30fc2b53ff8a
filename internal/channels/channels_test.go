package channels

import (
	"context"
	"sync"
	"testing"
	"time"

	"campusflow/internal/policy"
	logx "campusflow/pkg/logx"
)

func TestConsoleSender(t *testing.T) {
	t.Parallel()
	s := NewConsoleSender(policy.ChannelPush, logx.Nop())
	if s.Channel() != policy.ChannelPush {
		t.Fatalf("Channel() = %v", s.Channel())
	}

	ack, err := s.Send(context.Background(), Notification{ID: "n-1", Title: "t"})
	if err != nil {
		t.Fatal(err)
	}
	if ack.Channel != policy.ChannelPush || ack.Ref == "" {
		t.Fatalf("ack = %+v", ack)
	}

	// Refs are unique per delivery.
	ack2, err := s.Send(context.Background(), Notification{ID: "n-2"})
	if err != nil {
		t.Fatal(err)
	}
	if ack2.Ref == ack.Ref {
		t.Fatalf("duplicate ref %q", ack.Ref)
	}
}

func TestConsoleSenderConcurrentRefsUnique(t *testing.T) {
	t.Parallel()
	s := NewConsoleSender(policy.ChannelEmail, logx.Nop())

	const workers = 16
	const perWorker = 25
	refs := make(chan string, workers*perWorker)
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			for j := 0; j < perWorker; j++ {
				ack, err := s.Send(context.Background(), Notification{ID: "n"})
				if err != nil {
					t.Error(err)
					return
				}
				refs <- ack.Ref
			}
		}()
	}
	close(start)
	wg.Wait()
	close(refs)

	seen := make(map[string]struct{}, workers*perWorker)
	for ref := range refs {
		if _, dup := seen[ref]; dup {
			t.Fatalf("duplicate ref %q", ref)
		}
		seen[ref] = struct{}{}
	}
	if len(seen) != workers*perWorker {
		t.Fatalf("refs = %d, want %d", len(seen), workers*perWorker)
	}
}

func TestConsoleSenderCanceledContext(t *testing.T) {
	t.Parallel()
	s := NewConsoleSender(policy.ChannelEmail, logx.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.Send(ctx, Notification{ID: "n-1"}); err == nil {
		t.Fatal("canceled context accepted")
	}
}

func TestThrottlePassesThrough(t *testing.T) {
	t.Parallel()
	inner := NewConsoleSender(policy.ChannelMessaging, logx.Nop())
	th := Throttle(inner, 100)
	if th.Channel() != policy.ChannelMessaging {
		t.Fatalf("Channel() = %v", th.Channel())
	}
	if _, err := th.Send(context.Background(), Notification{ID: "n-1"}); err != nil {
		t.Fatal(err)
	}
}

func TestThrottleBlocksBurst(t *testing.T) {
	t.Parallel()
	inner := NewConsoleSender(policy.ChannelMessaging, logx.Nop())
	th := Throttle(inner, 1)

	ctx := context.Background()
	if _, err := th.Send(ctx, Notification{ID: "n-1"}); err != nil {
		t.Fatal(err)
	}
	// Second send inside the same second must wait for a token.
	start := time.Now()
	if _, err := th.Send(ctx, Notification{ID: "n-2"}); err != nil {
		t.Fatal(err)
	}
	if time.Since(start) < 500*time.Millisecond {
		t.Fatal("burst not throttled")
	}
}

func TestThrottleHonorsCancellation(t *testing.T) {
	t.Parallel()
	inner := NewConsoleSender(policy.ChannelMessaging, logx.Nop())
	th := Throttle(inner, 1)

	if _, err := th.Send(context.Background(), Notification{ID: "n-1"}); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := th.Send(ctx, Notification{ID: "n-2"}); err == nil {
		t.Fatal("throttled send ignored deadline")
	}
}
