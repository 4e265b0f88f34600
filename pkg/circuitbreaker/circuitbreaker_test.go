package circuitbreaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBroker = errors.New("broker unreachable")

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestBreaker(clock *fakeClock, onChange func(string, State, State)) *CircuitBreaker {
	return New("publisher", Config{
		MaxRequests:   1,
		Timeout:       10 * time.Second,
		ReadyToTrip:   func(c Counts) bool { return c.ConsecutiveFailures >= 3 },
		OnStateChange: onChange,
		Now:           clock.Now,
	})
}

func fail(context.Context) error    { return errBroker }
func succeed(context.Context) error { return nil }

func TestCircuitBreaker_StaysClosedOnSuccess(t *testing.T) {
	cb := newTestBreaker(&fakeClock{now: time.Unix(0, 0)}, nil)

	for i := 0; i < 10; i++ {
		require.NoError(t, cb.Execute(context.Background(), succeed))
	}

	assert.Equal(t, StateClosed, cb.State())
	assert.Equal(t, uint32(10), cb.Counts().TotalSuccesses)
}

func TestCircuitBreaker_TripsAfterConsecutiveFailures(t *testing.T) {
	cb := newTestBreaker(&fakeClock{now: time.Unix(0, 0)}, nil)

	for i := 0; i < 3; i++ {
		assert.ErrorIs(t, cb.Execute(context.Background(), fail), errBroker)
	}
	require.Equal(t, StateOpen, cb.State())

	called := false
	err := cb.Execute(context.Background(), func(context.Context) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, ErrOpenState)
	assert.False(t, called, "open breaker must not invoke fn")
}

func TestCircuitBreaker_SuccessResetsConsecutiveFailures(t *testing.T) {
	cb := newTestBreaker(&fakeClock{now: time.Unix(0, 0)}, nil)

	_ = cb.Execute(context.Background(), fail)
	_ = cb.Execute(context.Background(), fail)
	require.NoError(t, cb.Execute(context.Background(), succeed))
	_ = cb.Execute(context.Background(), fail)

	assert.Equal(t, StateClosed, cb.State())
	assert.Equal(t, uint32(1), cb.Counts().ConsecutiveFailures)
}

func TestCircuitBreaker_HalfOpenRecovers(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	var transitions []string
	cb := newTestBreaker(clock, func(_ string, from, to State) {
		transitions = append(transitions, from.String()+"->"+to.String())
	})

	for i := 0; i < 3; i++ {
		_ = cb.Execute(context.Background(), fail)
	}
	clock.Advance(11 * time.Second)
	assert.Equal(t, StateHalfOpen, cb.State())

	require.NoError(t, cb.Execute(context.Background(), succeed))
	assert.Equal(t, StateClosed, cb.State())
	assert.Equal(t, []string{"CLOSED->OPEN", "OPEN->HALF_OPEN", "HALF_OPEN->CLOSED"}, transitions)
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	cb := newTestBreaker(clock, nil)

	for i := 0; i < 3; i++ {
		_ = cb.Execute(context.Background(), fail)
	}
	clock.Advance(11 * time.Second)

	assert.ErrorIs(t, cb.Execute(context.Background(), fail), errBroker)
	assert.Equal(t, StateOpen, cb.State())
}

func TestCircuitBreaker_HalfOpenLimitsProbes(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	cb := newTestBreaker(clock, nil)

	for i := 0; i < 3; i++ {
		_ = cb.Execute(context.Background(), fail)
	}
	clock.Advance(11 * time.Second)

	// 第一个探测请求还没返回时, 第二个请求被拒绝
	err := cb.Execute(context.Background(), func(ctx context.Context) error {
		assert.ErrorIs(t, cb.Execute(ctx, succeed), ErrOpenState)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreaker_IntervalClearsCounts(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	cb := New("cache", Config{
		Interval:    time.Minute,
		ReadyToTrip: func(c Counts) bool { return c.TotalFailures >= 3 },
		Now:         clock.Now,
	})

	_ = cb.Execute(context.Background(), fail)
	_ = cb.Execute(context.Background(), fail)
	clock.Advance(2 * time.Minute)
	_ = cb.Execute(context.Background(), fail)

	assert.Equal(t, StateClosed, cb.State())
	assert.Equal(t, uint32(1), cb.Counts().TotalFailures)
}

func TestCircuitBreaker_CancelledContextNotCounted(t *testing.T) {
	cb := newTestBreaker(&fakeClock{now: time.Unix(0, 0)}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, cb.Execute(ctx, succeed), context.Canceled)
	assert.Equal(t, uint32(0), cb.Counts().Requests)
}
