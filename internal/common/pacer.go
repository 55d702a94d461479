package common

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Pacer blocks until the next call to an external API is allowed.
type Pacer interface {
	Wait(ctx context.Context) error
}

// NewPacer returns a fixed-interval pacer: the first call passes immediately and each
// following call waits until interval has elapsed since the previous one.
// A non-positive interval yields a no-op pacer.
func NewPacer(interval time.Duration) Pacer {
	if interval <= 0 {
		return NopPacer{}
	}
	return rate.NewLimiter(rate.Every(interval), 1)
}

// NopPacer never waits. It only reports context cancellation.
type NopPacer struct{}

func (NopPacer) Wait(ctx context.Context) error {
	return ctx.Err()
}
