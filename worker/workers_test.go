package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weatherbet/models"
)

type countingSweeper struct {
	calls atomic.Int32
	err   error
}

func (s *countingSweeper) SweepDueBets(ctx context.Context) ([]*models.Bet, error) {
	s.calls.Add(1)
	return []*models.Bet{{ID: "a"}}, s.err
}

type countingCollector struct {
	calls atomic.Int32
}

func (c *countingCollector) CollectGarbage(ctx context.Context) (int, error) {
	c.calls.Add(1)
	return 2, nil
}

func TestResolutionWorker_RunsAtStartup(t *testing.T) {
	sweeper := &countingSweeper{}
	stop := StartResolutionWorker(context.Background(), sweeper, time.Hour)

	require.Eventually(t, func() bool { return sweeper.calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	stop()
	stop()
	assert.Equal(t, int32(1), sweeper.calls.Load())
}

func TestResolutionWorker_Ticks(t *testing.T) {
	sweeper := &countingSweeper{err: errors.New("store down")}
	stop := StartResolutionWorker(context.Background(), sweeper, 10*time.Millisecond)
	defer stop()

	require.Eventually(t, func() bool { return sweeper.calls.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)
}

func TestRetryGCWorker_StopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	collector := &countingCollector{}
	stop := StartRetryGCWorker(ctx, collector, time.Hour)

	require.Eventually(t, func() bool { return collector.calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	cancel()

	finished := make(chan struct{})
	go func() {
		stop()
		close(finished)
	}()
	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop after cancellation")
	}
}
