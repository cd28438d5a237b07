package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	errTransient = errors.New("transient")
	errAbandon   = errors.New("abandon")
)

func testPolicy(maxAttempts uint) Policy {
	return Policy{
		MaxAttempts: maxAttempts,
		Delay:       time.Millisecond,
		Abandon:     func(err error) bool { return errors.Is(err, errAbandon) },
	}
}

func TestDo(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		maxAttempts  uint
		results      []error
		wantErr      error
		wantAttempts int
	}{
		{
			name:         "succeeds first time",
			maxAttempts:  3,
			results:      []error{nil},
			wantAttempts: 1,
		},
		{
			name:         "succeeds after transient failures",
			maxAttempts:  3,
			results:      []error{errTransient, errTransient, nil},
			wantAttempts: 3,
		},
		{
			name:         "exhausts attempts and returns last error",
			maxAttempts:  3,
			results:      []error{errTransient, errTransient, errTransient, nil},
			wantErr:      errTransient,
			wantAttempts: 3,
		},
		{
			name:         "abandon error stops immediately",
			maxAttempts:  3,
			results:      []error{errAbandon, nil},
			wantErr:      errAbandon,
			wantAttempts: 1,
		},
		{
			name:         "abandon error after a transient failure",
			maxAttempts:  3,
			results:      []error{errTransient, errAbandon, nil},
			wantErr:      errAbandon,
			wantAttempts: 2,
		},
		{
			name:         "zero attempts behaves as one",
			maxAttempts:  0,
			results:      []error{errTransient, nil},
			wantErr:      errTransient,
			wantAttempts: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			attempts := 0
			var failures []int
			p := testPolicy(tt.maxAttempts)
			p.OnFailure = func(attempt int, _ error) { failures = append(failures, attempt) }

			err := Do(context.Background(), p, "test", func(_ context.Context, attempt int) error {
				attempts++
				assert.Equal(t, attempts, attempt)
				return tt.results[attempt-1]
			})

			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.wantAttempts, attempts)
			if tt.wantErr != nil {
				assert.Len(t, failures, attempts)
			}
		})
	}
}

func TestDo_WaitsBetweenAttempts(t *testing.T) {
	t.Parallel()

	p := Policy{MaxAttempts: 2, Delay: 20 * time.Millisecond}
	start := time.Now()
	_ = Do(context.Background(), p, "delayed", func(_ context.Context, _ int) error {
		return errTransient
	})

	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestDefaultPolicy(t *testing.T) {
	t.Parallel()

	p := DefaultPolicy(nil)
	assert.Equal(t, uint(3), p.MaxAttempts)
	assert.Equal(t, time.Minute, p.Delay)
}

func TestDo_ReturnsAbandonErrorUnwrapped(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		results []error
	}{
		{name: "abandon on first attempt", results: []error{errAbandon}},
		{name: "abandon on final attempt", results: []error{errTransient, errAbandon}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := Do(context.Background(), testPolicy(uint(len(tt.results))), "test",
				func(_ context.Context, attempt int) error {
					return tt.results[attempt-1]
				})

			assert.Same(t, errAbandon, err)
		})
	}
}
