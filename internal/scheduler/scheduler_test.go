package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orunio/climate/backend/pkg/logger"
)

type fakeJob struct {
	name     string
	schedule string
	err      error
	block    chan struct{}
	runs     atomic.Int32
}

func (f *fakeJob) Name() string     { return f.name }
func (f *fakeJob) Schedule() string { return f.schedule }

func (f *fakeJob) Run(ctx context.Context) error {
	f.runs.Add(1)
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return f.err
}

func TestAddJob(t *testing.T) {
	s := New(logger.Nop())

	require.NoError(t, s.AddJob(&fakeJob{name: "a", schedule: "0 0 6 * * *"}))
	assert.Error(t, s.AddJob(&fakeJob{name: "a", schedule: "0 0 6 * * *"}))
	assert.Error(t, s.AddJob(&fakeJob{name: "bad", schedule: "not a schedule"}))
	require.NoError(t, s.AddJob(&fakeJob{name: "b", schedule: "@hourly"}))

	assert.Equal(t, []string{"a", "b"}, s.Jobs())
}

func TestRunNow_RecordsHistory(t *testing.T) {
	s := New(logger.Nop())
	ok := &fakeJob{name: "ok", schedule: "@daily"}
	failing := &fakeJob{name: "failing", schedule: "@daily", err: errors.New("sink down")}
	require.NoError(t, s.AddJob(ok))
	require.NoError(t, s.AddJob(failing))

	require.NoError(t, s.RunNow(context.Background(), "ok"))
	require.Error(t, s.RunNow(context.Background(), "failing"))
	require.Error(t, s.RunNow(context.Background(), "missing"))

	// failures are not retried
	assert.Equal(t, int32(1), failing.runs.Load())

	stats := s.Stats()
	assert.Equal(t, 1, stats["ok"].TotalRuns)
	assert.Equal(t, 1.0, stats["ok"].SuccessRate)
	assert.Equal(t, 1, stats["failing"].FailureCount)
	assert.Equal(t, "sink down", stats["failing"].LastError)
	require.NotNil(t, stats["failing"].LastRun)
}

func TestRunNow_SkipsOverlap(t *testing.T) {
	s := New(logger.Nop())
	job := &fakeJob{name: "slow", schedule: "@daily", block: make(chan struct{})}
	require.NoError(t, s.AddJob(job))

	done := make(chan error, 1)
	go func() { done <- s.RunNow(context.Background(), "slow") }()

	require.Eventually(t, func() bool { return job.runs.Load() == 1 }, time.Second, 5*time.Millisecond)
	assert.Error(t, s.RunNow(context.Background(), "slow"))

	close(job.block)
	require.NoError(t, <-done)
	assert.Equal(t, int32(1), job.runs.Load())
}

func TestRunTimeout(t *testing.T) {
	s := New(logger.Nop(), WithRunTimeout(20*time.Millisecond))
	job := &fakeJob{name: "stuck", schedule: "@daily", block: make(chan struct{})}
	require.NoError(t, s.AddJob(job))

	err := s.RunNow(context.Background(), "stuck")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestJobHistory(t *testing.T) {
	h := &JobHistory{}
	_, ok := h.Last()
	assert.False(t, ok)
	assert.Equal(t, 0.0, h.SuccessRate())

	for i := 0; i < maxHistory+10; i++ {
		h.Add(JobResult{JobName: "x", Success: i%2 == 0})
	}
	assert.Len(t, h.Results, maxHistory)
	assert.Equal(t, 50, h.Failures())
	assert.InDelta(t, 0.5, h.SuccessRate(), 1e-9)
}
