package utils_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tagscout/tagscout/pkg/utils"
)

var (
	errTemporary = errors.New("temporary error")
	errInvalid   = errors.New("invalid token")
)

func TestWithRetry(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		operation     func(calls int) (string, error)
		expectedCalls int
		expectedErr   error
		expected      string
	}{
		{
			name: "succeeds first try",
			operation: func(int) (string, error) {
				return "ready", nil
			},
			expectedCalls: 1,
			expected:      "ready",
		},
		{
			name: "succeeds after retries",
			operation: func(calls int) (string, error) {
				if calls < 3 {
					return "", errTemporary
				}

				return "ready", nil
			},
			expectedCalls: 3,
			expected:      "ready",
		},
		{
			name: "fails all retries",
			operation: func(int) (string, error) {
				return "", errTemporary
			},
			expectedCalls: 4, // Initial + 3 retries
			expectedErr:   errTemporary,
		},
		{
			name: "permanent error stops immediately",
			operation: func(int) (string, error) {
				return "", utils.Permanent(errInvalid)
			},
			expectedCalls: 1,
			expectedErr:   errInvalid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			calls := 0
			opts := utils.RetryOptions{
				MaxElapsedTime:  time.Second,
				InitialInterval: 5 * time.Millisecond,
				MaxInterval:     10 * time.Millisecond,
				MaxRetries:      3,
			}

			result, err := utils.WithRetry(t.Context(), func() (string, error) {
				calls++
				return tt.operation(calls)
			}, opts)

			if tt.expectedErr != nil {
				require.ErrorIs(t, err, tt.expectedErr)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.expected, result)
			}

			assert.Equal(t, tt.expectedCalls, calls)
		})
	}
}

func TestWithRetryContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(t.Context())
	calls := 0

	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	_, err := utils.WithRetry(ctx, func() (int, error) {
		calls++
		return 0, errTemporary
	}, utils.RetryOptions{
		MaxElapsedTime:  time.Second,
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     200 * time.Millisecond,
		MaxRetries:      5,
	})

	require.ErrorIs(t, err, context.Canceled)
	assert.Less(t, calls, 5)
}
