package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var errBusy = errors.New("busy")

func TestDo(t *testing.T) {
	always := func(error, int) bool { return true }

	tests := []struct {
		name        string
		failures    int
		maxAttempts int
		shouldRetry shouldRetry
		wantCalls   int
		wantErr     error
	}{
		{"first try", 0, 3, always, 1, nil},
		{"recovers", 2, 3, always, 3, nil},
		{"exhausted", 5, 3, always, 3, errBusy},
		{"not retryable", 5, 3, func(error, int) bool { return false }, 1, errBusy},
		{"at least once", 0, 0, always, 1, nil},
		{"predicate sees attempts", 5, 10, func(_ error, attempt int) bool { return attempt < 2 }, 2, errBusy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := Do(context.Background(), tt.maxAttempts, 0, tt.shouldRetry, func(context.Context) error {
				calls++
				if calls <= tt.failures {
					return errBusy
				}
				return nil
			})
			assert.Equal(t, tt.wantCalls, calls)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestDo_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := Do(ctx, 10, time.Hour, func(error, int) bool { return true }, func(context.Context) error {
		calls++
		cancel()
		return errBusy
	})
	assert.ErrorIs(t, err, errBusy)
	assert.Equal(t, 1, calls)
}
