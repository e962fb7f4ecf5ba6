package postgres

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fleet/internal/repository"
)

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"bad conn", driver.ErrBadConn, true},
		{"wrapped bad conn", fmt.Errorf("exec: %w", driver.ErrBadConn), true},
		{"serialization failure", &pq.Error{Code: "40001"}, true},
		{"deadlock", &pq.Error{Code: "40P01"}, true},
		{"lock not available", &pq.Error{Code: "55P03"}, true},
		{"connection failure", &pq.Error{Code: "08006"}, true},
		{"unique violation", &pq.Error{Code: "23505"}, false},
		{"plain error", errors.New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}

// scriptedRunner returns a TxRunner whose units of work fail with errs in
// order and then succeed. Delays are recorded instead of slept.
func scriptedRunner(errs []error, opts ...TxOption) (r *TxRunner, calls *int, delays *[]time.Duration) {
	calls = new(int)
	delays = new([]time.Duration)
	r = NewTxRunner(nil, opts...)
	r.run = func(ctx context.Context, fn func(ctx context.Context, s repository.Store) error) error {
		*calls++
		if *calls <= len(errs) {
			return errs[*calls-1]
		}
		return nil
	}
	r.after = func(d time.Duration) <-chan time.Time {
		*delays = append(*delays, d)
		ch := make(chan time.Time, 1)
		ch <- time.Time{}
		return ch
	}
	return r, calls, delays
}

func noop(ctx context.Context, s repository.Store) error { return nil }

func TestTxRunner_WithinTxRetries(t *testing.T) {
	serialization := &pq.Error{Code: "40001"}
	unique := &pq.Error{Code: "23505"}

	tests := []struct {
		name        string
		errs        []error
		maxAttempts int
		wantErr     error
		wantCalls   int
		wantDelays  []time.Duration
	}{
		{
			name:        "first attempt succeeds",
			maxAttempts: 3,
			wantCalls:   1,
		},
		{
			name:        "transient then success",
			errs:        []error{serialization},
			maxAttempts: 3,
			wantCalls:   2,
			wantDelays:  []time.Duration{10 * time.Millisecond},
		},
		{
			name:        "backoff doubles",
			errs:        []error{serialization, driver.ErrBadConn, serialization},
			maxAttempts: 4,
			wantCalls:   4,
			wantDelays:  []time.Duration{10 * time.Millisecond, 20 * time.Millisecond, 40 * time.Millisecond},
		},
		{
			name:        "gives up at the attempt cap",
			errs:        []error{serialization, serialization, serialization, serialization},
			maxAttempts: 3,
			wantErr:     serialization,
			wantCalls:   3,
			wantDelays:  []time.Duration{10 * time.Millisecond, 20 * time.Millisecond},
		},
		{
			name:        "non-transient error is not retried",
			errs:        []error{unique},
			maxAttempts: 3,
			wantErr:     unique,
			wantCalls:   1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var hooked []int
			r, calls, delays := scriptedRunner(tt.errs,
				WithMaxAttempts(tt.maxAttempts),
				WithBackoff(10*time.Millisecond),
				WithRetryHook(func(attempt int, err error) {
					hooked = append(hooked, attempt)
					assert.True(t, IsTransient(err))
				}),
			)

			err := r.WithinTx(context.Background(), noop)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.wantCalls, *calls)
			assert.Equal(t, tt.wantDelays, *delays)
			assert.Len(t, hooked, len(tt.wantDelays))
			for i, attempt := range hooked {
				assert.Equal(t, i+1, attempt)
			}
		})
	}
}

func TestTxRunner_CancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	r, calls, _ := scriptedRunner([]error{driver.ErrBadConn, driver.ErrBadConn})
	r.after = func(d time.Duration) <-chan time.Time {
		cancel()
		return make(chan time.Time)
	}

	err := r.WithinTx(ctx, noop)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, *calls)
}

func TestNewTxRunner_Defaults(t *testing.T) {
	r := NewTxRunner(nil, WithMaxAttempts(0))
	assert.Equal(t, defaultMaxAttempts, r.maxAttempts)
	assert.Equal(t, defaultBackoff, r.backoff)
}
