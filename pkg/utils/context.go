package utils

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// SleepResult represents the outcome of a context-aware sleep.
type SleepResult int

const (
	// SleepCompleted indicates the full duration elapsed.
	SleepCompleted SleepResult = iota
	// SleepCancelled indicates the context ended first.
	SleepCancelled
)

// String returns the result name.
func (r SleepResult) String() string {
	if r == SleepCancelled {
		return "cancelled"
	}

	return "completed"
}

// ContextSleep sleeps for duration unless ctx ends first.
func ContextSleep(ctx context.Context, duration time.Duration) SleepResult {
	if duration <= 0 {
		if ctx.Err() != nil {
			return SleepCancelled
		}

		return SleepCompleted
	}

	timer := time.NewTimer(duration)
	defer timer.Stop()

	select {
	case <-timer.C:
		return SleepCompleted
	case <-ctx.Done():
		return SleepCancelled
	}
}

// ContextSleepWithLog behaves like ContextSleep and logs cancelMessage at
// info level when the context ends first.
func ContextSleepWithLog(ctx context.Context, duration time.Duration, logger *zap.Logger, cancelMessage string) SleepResult {
	result := ContextSleep(ctx, duration)
	if result == SleepCancelled && logger != nil && cancelMessage != "" {
		logger.Info(cancelMessage, zap.Duration("duration", duration))
	}

	return result
}
