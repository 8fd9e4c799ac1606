package replication_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/AntonStoeckl/pos-eventstore-go/replication"
)

func Test_RetryWithExponentialBackoff(t *testing.T) {
	connectivityErr := errors.Join(replication.ErrSyncConnectivity, errors.New("connection refused"))
	rejectedErr := errors.Join(replication.ErrRemoteRejected, errors.New("400 Bad Request"))

	testCases := []struct {
		name          string
		failures      []error
		expectedCalls int
		expectedErr   error
	}{
		{name: "success at once", failures: nil, expectedCalls: 1},
		{name: "connectivity failures are retried", failures: []error{connectivityErr, connectivityErr}, expectedCalls: 3},
		{name: "rejections fail fast", failures: []error{rejectedErr}, expectedCalls: 1, expectedErr: replication.ErrRemoteRejected},
		{name: "other errors fail fast", failures: []error{errors.New("boom")}, expectedCalls: 1, expectedErr: errors.New("boom")},
		{
			name:          "gives up after max attempts",
			failures:      []error{connectivityErr, connectivityErr, connectivityErr, connectivityErr},
			expectedCalls: 3,
			expectedErr:   replication.ErrSyncConnectivity,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// arrange
			calls := 0
			fn := func(context.Context) error {
				calls++
				if calls <= len(tc.failures) {
					return tc.failures[calls-1]
				}
				return nil
			}

			// act
			err := replication.RetryWithExponentialBackoff(context.Background(), fn,
				replication.WithMaxAttempts(3),
				replication.WithBaseDelay(time.Millisecond),
				replication.WithJitterFactor(0))

			// assert
			assert.Equal(t, tc.expectedCalls, calls)
			switch {
			case tc.expectedErr == nil:
				assert.NoError(t, err)
			case errors.Is(tc.expectedErr, replication.ErrSyncConnectivity) || errors.Is(tc.expectedErr, replication.ErrRemoteRejected):
				assert.ErrorIs(t, err, tc.expectedErr)
			default:
				assert.EqualError(t, err, tc.expectedErr.Error())
			}
		})
	}
}

func Test_RetryWithExponentialBackoff_StopsWhenCanceled(t *testing.T) {
	// arrange
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	fn := func(context.Context) error {
		calls++
		cancel()
		return errors.Join(replication.ErrSyncConnectivity, errors.New("connection reset"))
	}

	// act
	err := replication.RetryWithExponentialBackoff(ctx, fn, replication.WithBaseDelay(time.Hour))

	// assert
	assert.Equal(t, 1, calls)
	assert.ErrorIs(t, err, replication.ErrSyncConnectivity)
}

func Test_RetryWithExponentialBackoff_InvalidOptions(t *testing.T) {
	fn := func(context.Context) error { return nil }

	assert.ErrorIs(t, replication.RetryWithExponentialBackoff(context.Background(), fn, replication.WithMaxAttempts(0)),
		replication.ErrInvalidMaxAttempts)
	assert.ErrorIs(t, replication.RetryWithExponentialBackoff(context.Background(), fn, replication.WithBaseDelay(-time.Second)),
		replication.ErrNegativeBaseDelay)
	assert.ErrorIs(t, replication.RetryWithExponentialBackoff(context.Background(), fn, replication.WithJitterFactor(1.5)),
		replication.ErrInvalidJitterFactor)
}
