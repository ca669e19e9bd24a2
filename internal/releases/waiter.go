package releases

import (
	"context"
	"time"
)

// Waiter pauses between polls.
type Waiter interface {
	Wait(executionContext context.Context, duration time.Duration) error
}

// TimerWaiter sleeps on a timer and returns early when the context ends.
type TimerWaiter struct{}

// Wait blocks for the duration or until the context is done.
func (TimerWaiter) Wait(executionContext context.Context, duration time.Duration) error {
	timer := time.NewTimer(duration)
	defer timer.Stop()

	select {
	case <-executionContext.Done():
		return executionContext.Err()
	case <-timer.C:
		return nil
	}
}
