package utils_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/tagscout/tagscout/pkg/utils"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestContextSleep(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		duration    time.Duration
		cancelAfter time.Duration
		preCancel   bool
		want        utils.SleepResult
	}{
		{name: "completes normally", duration: 10 * time.Millisecond, want: utils.SleepCompleted},
		{name: "cancelled midway", duration: time.Second, cancelAfter: 10 * time.Millisecond, want: utils.SleepCancelled},
		{name: "zero duration", duration: 0, want: utils.SleepCompleted},
		{name: "zero duration on cancelled context", duration: 0, preCancel: true, want: utils.SleepCancelled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ctx, cancel := context.WithCancel(t.Context())
			defer cancel()

			if tt.preCancel {
				cancel()
			}

			if tt.cancelAfter > 0 {
				go func() {
					time.Sleep(tt.cancelAfter)
					cancel()
				}()
			}

			assert.Equal(t, tt.want, utils.ContextSleep(ctx, tt.duration))
		})
	}
}

func TestContextSleepWithLog(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.InfoLevel)

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	result := utils.ContextSleepWithLog(ctx, time.Second, zap.New(core), "Member list wait cancelled")
	assert.Equal(t, utils.SleepCancelled, result)
	assert.Equal(t, 1, logs.FilterMessage("Member list wait cancelled").Len())

	result = utils.ContextSleepWithLog(t.Context(), time.Millisecond, zap.New(core), "unused")
	assert.Equal(t, utils.SleepCompleted, result)
	assert.Equal(t, 0, logs.FilterMessage("unused").Len())
}
