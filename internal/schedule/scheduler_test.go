package schedule

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

type countingJob struct {
	runs atomic.Int32
}

func (j *countingJob) Name() string { return "counting" }

func (j *countingJob) Run(ctx context.Context) error {
	j.runs.Add(1)
	return nil
}

func TestCronSchedulerRunNow(t *testing.T) {
	s := NewCronScheduler()
	job := &countingJob{}
	require.NoError(t, s.AddJob(job, "@every 1h"))
	require.Error(t, s.AddJob(job, "@every 1h"))

	require.NoError(t, s.RunNow("counting"))
	require.NoError(t, s.RunNow("counting"))
	require.Equal(t, int32(2), job.runs.Load())
	require.Error(t, s.RunNow("missing"))
}

func TestCronSchedulerRejectsBadSpec(t *testing.T) {
	s := NewCronScheduler()
	require.Error(t, s.AddJob(&countingJob{}, "not a spec"))
}

func TestCronSchedulerStartStop(t *testing.T) {
	s := NewCronScheduler()
	require.NoError(t, s.AddJob(&countingJob{}, "*/1 * * * *"))
	s.Start(context.Background())
	s.Stop()
}
