package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeJob struct {
	name     string
	schedule string
	calls    atomic.Int32
	run      func(call int32) error
}

func (j *fakeJob) Name() string     { return j.name }
func (j *fakeJob) Schedule() string { return j.schedule }
func (j *fakeJob) Run(ctx context.Context) error {
	return j.run(j.calls.Add(1))
}

func newJob(run func(call int32) error) *fakeJob {
	return &fakeJob{name: "test", schedule: "0 0 0 1 1 *", run: run}
}

func TestScheduler_RunNow(t *testing.T) {
	tests := []struct {
		name      string
		run       func(call int32) error
		wantErr   bool
		wantCalls int32
	}{
		{"success", func(int32) error { return nil }, false, 1},
		{"retried then ok", func(c int32) error {
			if c < 3 {
				return errors.New("flaky")
			}
			return nil
		}, false, 3},
		{"exhausts retries", func(int32) error { return errors.New("down") }, true, 3},
		{"permanent not retried", func(int32) error { return Permanent(errors.New("bad data")) }, true, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(nil, WithRetry(2, 0))
			job := newJob(tt.run)
			require.NoError(t, s.AddJob(job))

			err := s.RunNow(context.Background(), job.Name())
			assert.Equal(t, tt.wantErr, err != nil)
			assert.Equal(t, tt.wantCalls, job.calls.Load())

			history, err := s.GetJobHistory(job.Name())
			require.NoError(t, err)
			require.Len(t, history.Results, 1)
			assert.Equal(t, !tt.wantErr, history.Results[0].Success)
			assert.Equal(t, int(tt.wantCalls), history.Results[0].Attempts)
		})
	}
}

func TestScheduler_AddRemove(t *testing.T) {
	s := New(nil)
	job := newJob(func(int32) error { return nil })

	require.NoError(t, s.AddJob(job))
	assert.Error(t, s.AddJob(job), "duplicate name")
	assert.Equal(t, []string{"test"}, s.GetAllJobs())

	bad := &fakeJob{name: "bad", schedule: "not a cron", run: func(int32) error { return nil }}
	assert.Error(t, s.AddJob(bad))

	require.NoError(t, s.RemoveJob("test"))
	assert.Empty(t, s.GetAllJobs())
	assert.Error(t, s.RemoveJob("test"))
	assert.Error(t, s.RunNow(context.Background(), "test"))
}

func TestScheduler_Stats(t *testing.T) {
	s := New(nil, WithRetry(0, 0))
	fail := true
	job := newJob(func(int32) error {
		if fail {
			return errors.New("boom")
		}
		return nil
	})
	require.NoError(t, s.AddJob(job))

	_ = s.RunNow(context.Background(), job.Name())
	fail = false
	_ = s.RunNow(context.Background(), job.Name())

	stats := s.GetJobStats()["test"]
	assert.Equal(t, 2, stats.TotalRuns)
	assert.Equal(t, 1, stats.SuccessCount)
	assert.Equal(t, 1, stats.FailureCount)
	assert.InDelta(t, 0.5, stats.SuccessRate, 1e-9)
	assert.NotNil(t, stats.LastSuccess)
	assert.Nil(t, stats.LastFailure)
}

func TestScheduler_StopCancelsRetries(t *testing.T) {
	s := New(nil, WithRetry(5, time.Hour))
	job := newJob(func(int32) error { return errors.New("down") })
	require.NoError(t, s.AddJob(job))

	s.Start()
	require.NoError(t, s.RunJob(job.Name()))
	require.Eventually(t, func() bool { return job.calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	s.Stop()
	assert.Eventually(t, func() bool {
		h, _ := s.GetJobHistory(job.Name())
		return len(h.Results) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(1), job.calls.Load())
}

func TestJobHistory_Bounded(t *testing.T) {
	h := &JobHistory{}
	for i := 0; i < maxHistory+20; i++ {
		h.AddResult(JobResult{Success: i%2 == 0})
	}
	assert.Len(t, h.Results, maxHistory)
	assert.Len(t, h.GetLatestResults(5), 5)
	assert.Empty(t, h.GetLatestResults(0))
	assert.InDelta(t, 0.5, h.GetSuccessRate(), 1e-9)
}
