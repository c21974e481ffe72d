package retry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPolicyDo(t *testing.T) {
	errBoom := errors.New("boom")

	tests := []struct {
		name          string
		policy        Policy
		failures      int
		permanent     bool
		expectedCalls int
		expectErr     bool
	}{
		{name: "success first try", policy: Policy{MaxAttempts: 3}, failures: 0, expectedCalls: 1},
		{name: "recovers on retry", policy: Policy{MaxAttempts: 3}, failures: 2, expectedCalls: 3},
		{name: "gives up after max attempts", policy: Policy{MaxAttempts: 2}, failures: 5, expectedCalls: 2, expectErr: true},
		{name: "zero attempts means one", policy: Policy{}, failures: 5, expectedCalls: 1, expectErr: true},
		{name: "permanent stops immediately", policy: Policy{MaxAttempts: 5}, failures: 5, permanent: true, expectedCalls: 1, expectErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := tt.policy.Do(context.Background(), func() error {
				calls++
				if calls <= tt.failures {
					if tt.permanent {
						return Permanent(errBoom)
					}
					return errBoom
				}
				return nil
			})

			assert.Equal(t, tt.expectedCalls, calls)
			if tt.expectErr {
				assert.ErrorIs(t, err, errBoom)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestPolicyDoStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := Policy{MaxAttempts: 5}.Do(ctx, func() error {
		calls++
		return errors.New("fail")
	})

	assert.Error(t, err)
	assert.LessOrEqual(t, calls, 1)
}
