package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func TestNewAdaptiveLimiter_Clamps(t *testing.T) {
	lim := NewAdaptiveLimiter(50, 1, 5, 1, 0.5)
	assert.Equal(t, 5.0, lim.CurrentLimit())
	assert.Equal(t, rate.Limit(1), lim.MinLimit())
	assert.Equal(t, rate.Limit(5), lim.MaxLimit())
}

func TestAdaptiveLimiter_Adjusts(t *testing.T) {
	now := time.Unix(0, 0)
	lim := NewAdaptiveLimiter(4, 1, 8, 1, 0.5)
	lim.now = func() time.Time { return now }

	lim.RateLimited()
	assert.Equal(t, 2.0, lim.CurrentLimit())

	lim.Success()
	assert.Equal(t, 2.0, lim.CurrentLimit(), "no increase during quiet period")

	now = now.Add(quietPeriod + time.Second)
	lim.Success()
	assert.Equal(t, 3.0, lim.CurrentLimit())

	for range 10 {
		lim.Success()
	}
	assert.Equal(t, 8.0, lim.CurrentLimit())

	for range 10 {
		lim.RateLimited()
	}
	assert.Equal(t, 1.0, lim.CurrentLimit())
}

func TestObserve(t *testing.T) {
	now := time.Unix(0, 0)
	lim := NewAdaptiveLimiter(4, 1, 8, 1, 0.5)
	lim.now = func() time.Time { return now }

	lim.Observe(errors.New("bad request"))
	assert.Equal(t, 4.0, lim.CurrentLimit(), "plain errors are ignored")

	lim.Observe(fmt.Errorf("push: %w", &StatusError{Code: http.StatusTooManyRequests, Err: errors.New("slow down")}))
	assert.Equal(t, 2.0, lim.CurrentLimit())
}

func TestIsOverload(t *testing.T) {
	assert.True(t, IsOverload(&StatusError{Code: 503, Err: errors.New("x")}))
	assert.True(t, IsOverload(&StatusError{Code: 429, Err: errors.New("x")}))
	assert.False(t, IsOverload(&StatusError{Code: 400, Err: errors.New("x")}))
	assert.False(t, IsOverload(nil))
}

func TestWait_Cancelled(t *testing.T) {
	lim := NewAdaptiveLimiter(1, 1, 1, 0, 0.5)
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, lim.Wait(ctx))
	cancel()
	assert.Error(t, lim.Wait(ctx))
}
