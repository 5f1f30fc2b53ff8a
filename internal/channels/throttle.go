package channels

import (
	"context"

	"golang.org/x/time/rate"

	"campusflow/internal/policy"
)

// Throttled wraps a Sender with a token-bucket rate limit so a burst of
// admitted notifications cannot flood a channel.
type Throttled struct {
	inner   Sender
	limiter *rate.Limiter
}

// Throttle limits the sender to perSec sends per second.
// Burst equals perSec so short spikes don't block too hard.
func Throttle(inner Sender, perSec int) *Throttled {
	if perSec <= 0 {
		perSec = 3
	}
	return &Throttled{
		inner:   inner,
		limiter: rate.NewLimiter(rate.Limit(perSec), perSec),
	}
}

func (t *Throttled) Channel() policy.Channel { return t.inner.Channel() }

func (t *Throttled) Send(ctx context.Context, n Notification) (Ack, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return Ack{}, err
	}
	return t.inner.Send(ctx, n)
}
