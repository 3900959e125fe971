package main

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// slowRunner ignores cancellation the way a database write in flight would.
type slowRunner struct {
	delay     time.Duration
	active    int32
	maxActive int32
	completed int32
}

func (r *slowRunner) Run(ctx context.Context) error {
	n := atomic.AddInt32(&r.active, 1)
	for {
		peak := atomic.LoadInt32(&r.maxActive)
		if n <= peak || atomic.CompareAndSwapInt32(&r.maxActive, peak, n) {
			break
		}
	}

	time.Sleep(r.delay)

	atomic.AddInt32(&r.active, -1)
	atomic.AddInt32(&r.completed, 1)
	return nil
}

func TestScheduleNeverOverlapsRuns(t *testing.T) {
	if testing.Short() {
		t.Skip("slow scheduling test")
	}

	runner := &slowRunner{delay: 2500 * time.Millisecond}
	ctx, cancel := context.WithTimeout(context.Background(), 6*time.Second)
	defer cancel()

	require.NoError(t, schedule(ctx, runner, false, "@every 1s"))

	assert.Equal(t, int32(1), atomic.LoadInt32(&runner.maxActive), "runs must not overlap")
	assert.Zero(t, atomic.LoadInt32(&runner.active), "shutdown waits for the active run")
	assert.GreaterOrEqual(t, atomic.LoadInt32(&runner.completed), int32(2))
}

func TestScheduleSingleRun(t *testing.T) {
	runner := &slowRunner{}

	require.NoError(t, schedule(context.Background(), runner, true, "not a cron spec"))
	assert.Equal(t, int32(1), runner.completed)
}

func TestScheduleInvalidFrequency(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	err := schedule(ctx, &slowRunner{}, false, "not a cron spec")
	assert.ErrorContains(t, err, "invalid updateFrequency")
}
