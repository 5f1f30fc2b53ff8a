package channels

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"campusflow/internal/policy"
	logx "campusflow/pkg/logx"
)

// ConsoleSender writes notifications to the structured log. It stands in for
// real transports (SMTP, push subscriptions, messaging gateways), which live
// outside this engine behind the Sender contract. Send is safe for
// concurrent use; candidates arrive from multiple trigger goroutines.
type ConsoleSender struct {
	channel policy.Channel
	log     logx.Logger
	seq     atomic.Uint64
}

func NewConsoleSender(ch policy.Channel, log logx.Logger) *ConsoleSender {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &ConsoleSender{channel: ch, log: log.With(logx.String("channel", string(ch)))}
}

func (s *ConsoleSender) Channel() policy.Channel { return s.channel }

func (s *ConsoleSender) Send(ctx context.Context, n Notification) (Ack, error) {
	if err := ctx.Err(); err != nil {
		return Ack{}, err
	}
	seq := s.seq.Add(1)
	s.log.Info("deliver",
		logx.String("id", n.ID),
		logx.String("priority", n.Priority.String()),
		logx.String("title", n.Title),
		logx.String("body", n.Body),
	)
	return Ack{
		Channel: s.channel,
		SentAt:  time.Now(),
		Ref:     fmt.Sprintf("console-%s-%d", s.channel, seq),
	}, nil
}
