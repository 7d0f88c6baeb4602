package services

import (
	"context"
	"time"

	"github.com/huangang/campy/pkg/logger"
)

const (
	MaxRetryCount = 3
	RetryInterval = 2 * time.Second
)

// RetrySender retries a failing sender with a linear backoff. The in-process
// queue has no retries of its own; asynq retries on top of this.
type RetrySender struct {
	next     Sender
	attempts int
	interval time.Duration
}

func NewRetrySender(next Sender, attempts int, interval time.Duration) *RetrySender {
	if attempts <= 0 {
		attempts = 1
	}
	return &RetrySender{next: next, attempts: attempts, interval: interval}
}

func (s *RetrySender) Send(ctx context.Context, task *DeliveryTask) error {
	var err error
	for attempt := 1; attempt <= s.attempts; attempt++ {
		if err = s.next.Send(ctx, task); err == nil {
			return nil
		}
		if attempt == s.attempts {
			break
		}
		logger.Warn().Err(err).
			Str("channel", string(task.Channel)).
			Int("attempt", attempt).
			Int("max_attempts", s.attempts).
			Msg("delivery failed, retrying")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * s.interval):
		}
	}
	return err
}
