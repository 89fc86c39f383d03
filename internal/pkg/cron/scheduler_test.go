package cron

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type countingSweeper struct{ calls, removed int }

func (s *countingSweeper) Sweep() int {
	s.calls++
	return s.removed
}

type evictionSpy struct {
	reason string
	total  int
}

func (e *evictionSpy) AddCacheEvictions(reason string, n int) {
	e.reason = reason
	e.total += n
}

func TestScheduler_RunOnce(t *testing.T) {
	s := NewScheduler(nil)
	var ran []string
	s.AddJob("first", time.Minute, func(ctx context.Context) error {
		ran = append(ran, "first")
		return nil
	})
	s.AddJob("failing", time.Minute, func(ctx context.Context) error {
		ran = append(ran, "failing")
		return errors.New("boom")
	})
	s.AddJob("disabled", 0, func(ctx context.Context) error {
		ran = append(ran, "disabled")
		return nil
	})

	s.RunOnce(context.Background())
	assert.Equal(t, []string{"first", "failing"}, ran)
}

func TestScheduler_StartStop(t *testing.T) {
	s := NewScheduler(nil)
	var runs atomic.Int32
	s.AddJob("tick", 5*time.Millisecond, func(ctx context.Context) error {
		runs.Add(1)
		return nil
	})

	s.Start(context.Background())
	assert.Eventually(t, func() bool { return runs.Load() >= 2 }, time.Second, 5*time.Millisecond)
	s.Stop()

	after := runs.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, after, runs.Load())
}

func TestCacheJobs_SweepExpired(t *testing.T) {
	sweeper := &countingSweeper{removed: 3}
	spy := &evictionSpy{}
	jobs := NewCacheJobs(sweeper, spy, nil, time.Minute)

	s := NewScheduler(nil)
	jobs.RegisterJobs(s)
	s.RunOnce(context.Background())

	assert.Equal(t, 1, sweeper.calls)
	assert.Equal(t, "sweep", spy.reason)
	assert.Equal(t, 3, spy.total)
}
