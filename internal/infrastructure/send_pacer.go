package infrastructure

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// SendPacer spaces outbound campaign sends so the aggregate provider call
// rate stays bounded for the whole tenant population. It is global, not
// per-recipient: the dispatcher waits once after every job regardless of
// outcome.
type SendPacer struct {
	limiter *rate.Limiter
}

// NewSendPacer builds a pacer admitting one send per interval, no burst.
func NewSendPacer(interval time.Duration) *SendPacer {
	if interval <= 0 {
		interval = 200 * time.Millisecond
	}
	return &SendPacer{
		limiter: rate.NewLimiter(rate.Every(interval), 1),
	}
}

// Wait blocks until the next send slot or the context is cancelled.
func (p *SendPacer) Wait(ctx context.Context) error {
	return p.limiter.Wait(ctx)
}

// Interval reports the configured spacing between sends.
func (p *SendPacer) Interval() time.Duration {
	return time.Duration(float64(time.Second) / float64(p.limiter.Limit()))
}
