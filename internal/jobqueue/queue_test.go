package jobqueue

import (
	"context"
	"testing"
	"time"

	"github.com/aidino/aicode-reviewer/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubExecutor drives every submitted job straight to a configured
// terminal state without touching the real agent stack, mirroring the
// teacher's mockProcessJobBuilder.
type stubExecutor struct {
	result *model.ReportData
	failed bool
	delay  time.Duration
}

func (s *stubExecutor) Run(ctx context.Context, state *model.GraphState) *model.GraphState {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return state
		}
	}
	if s.failed {
		state.CurrentStep = model.StepErrorHandled
		state.Error = "stub failure"
		return state
	}
	state.CurrentStep = model.StepCompleted
	state.ReportData = s.result
	return state
}

func newTestQueue(t *testing.T, exec Executor) *Queue {
	t.Helper()
	q, err := New(10, 2, WithExecutor(exec))
	require.NoError(t, err)
	return q
}

func TestSubmitThenStatusReportsCompleted(t *testing.T) {
	q := newTestQueue(t, &stubExecutor{result: &model.ReportData{Summary: model.Summary{TotalFindings: 3}}})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q.Start(ctx)
	defer q.Stop()

	scanID, jobID, err := q.Submit(ctx, model.ScanRequest{RepoURL: "https://x/y"}, nil)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		job, ok := q.Status(jobID)
		return ok && job.Status.Terminal()
	}, time.Second, 5*time.Millisecond)

	job, ok := q.Status(jobID)
	require.True(t, ok)
	assert.Equal(t, model.JobCompleted, job.Status)
	assert.Equal(t, 100, job.Progress)
	require.NotNil(t, job.Result)
	assert.Equal(t, 3, job.Result.Summary.TotalFindings)

	byScan, ok := q.StatusByScan(scanID)
	require.True(t, ok)
	assert.Equal(t, jobID, byScan.JobID)
}

func TestSubmitFailedRunMarksJobFailed(t *testing.T) {
	q := newTestQueue(t, &stubExecutor{failed: true})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q.Start(ctx)
	defer q.Stop()

	_, jobID, err := q.Submit(ctx, model.ScanRequest{RepoURL: "https://x/y"}, nil)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		job, ok := q.Status(jobID)
		return ok && job.Status.Terminal()
	}, time.Second, 5*time.Millisecond)

	job, _ := q.Status(jobID)
	assert.Equal(t, model.JobFailed, job.Status)
	assert.Equal(t, "stub failure", job.Error)
}

func TestSubmitWithCallbackBypassesDefaultExecutor(t *testing.T) {
	q := newTestQueue(t, &stubExecutor{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q.Start(ctx)
	defer q.Stop()

	called := make(chan struct{})
	cb := func(_ context.Context, req model.ScanRequest) (*model.ReportData, error) {
		close(called)
		return &model.ReportData{Summary: model.Summary{TotalFindings: 1}}, nil
	}

	_, jobID, err := q.Submit(ctx, model.ScanRequest{RepoURL: "https://x/y"}, cb)
	require.NoError(t, err)

	select {
	case <-called:
	case <-time.After(time.Second):
		t.Fatal("callback was never invoked")
	}

	require.Eventually(t, func() bool {
		job, ok := q.Status(jobID)
		return ok && job.Status.Terminal()
	}, time.Second, 5*time.Millisecond)
	job, _ := q.Status(jobID)
	assert.Equal(t, model.JobCompleted, job.Status)
}

func TestCancelRunningJobTransitionsToCancelled(t *testing.T) {
	q := newTestQueue(t, &stubExecutor{delay: time.Second})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q.Start(ctx)
	defer q.Stop()

	_, jobID, err := q.Submit(ctx, model.ScanRequest{RepoURL: "https://x/y"}, nil)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		job, ok := q.Status(jobID)
		return ok && job.Status == model.JobRunning
	}, time.Second, 5*time.Millisecond)

	assert.True(t, q.Cancel(jobID))

	require.Eventually(t, func() bool {
		job, ok := q.Status(jobID)
		return ok && job.Status.Terminal()
	}, time.Second, 5*time.Millisecond)
	job, _ := q.Status(jobID)
	assert.Equal(t, model.JobCancelled, job.Status)
}

func TestCancelUnknownJobReturnsFalse(t *testing.T) {
	q := newTestQueue(t, &stubExecutor{})
	assert.False(t, q.Cancel("does-not-exist"))
}

func TestCancelAlreadyTerminalJobReturnsFalse(t *testing.T) {
	q := newTestQueue(t, &stubExecutor{result: &model.ReportData{}})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q.Start(ctx)
	defer q.Stop()

	_, jobID, err := q.Submit(ctx, model.ScanRequest{RepoURL: "https://x/y"}, nil)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		job, ok := q.Status(jobID)
		return ok && job.Status.Terminal()
	}, time.Second, 5*time.Millisecond)

	assert.False(t, q.Cancel(jobID))
}

func TestSubmitRejectsWhenQueueIsFull(t *testing.T) {
	q, err := New(1, 0, WithExecutor(&stubExecutor{delay: time.Second}))
	require.NoError(t, err)
	// No Start call: the single buffered slot fills and the next Submit
	// must reject rather than block, since nothing ever drains it.
	ctx := context.Background()
	_, _, err = q.Submit(ctx, model.ScanRequest{RepoURL: "https://x/y"}, nil)
	require.NoError(t, err)

	_, _, err = q.Submit(ctx, model.ScanRequest{RepoURL: "https://x/y"}, nil)
	assert.Error(t, err)
}

func TestSweepOldRemovesTerminalJobsPastRetention(t *testing.T) {
	now := time.Now()
	clock := func() time.Time { return now }
	q, err := New(10, 2, WithExecutor(&stubExecutor{result: &model.ReportData{}}), WithClock(clock))
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q.Start(ctx)
	defer q.Stop()

	_, jobID, err := q.Submit(ctx, model.ScanRequest{RepoURL: "https://x/y"}, nil)
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		job, ok := q.Status(jobID)
		return ok && job.Status.Terminal()
	}, time.Second, 5*time.Millisecond)

	clock = func() time.Time { return now.Add(48 * time.Hour) }
	q.clock = clock

	removed := q.SweepOld(24 * time.Hour)
	assert.Equal(t, 1, removed)
	_, ok := q.Status(jobID)
	assert.False(t, ok)
}

func TestOnStageCompletedIgnoresStateWithoutJobID(t *testing.T) {
	q := newTestQueue(t, &stubExecutor{})
	state := &model.GraphState{Metadata: map[string]any{}}
	// Must not panic without a job_id in metadata.
	q.onStageCompleted(model.StepFetchCode, state)
}

func TestOnStageCompletedIsMonotonic(t *testing.T) {
	q := newTestQueue(t, &stubExecutor{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q.Start(ctx)
	defer q.Stop()

	_, jobID, err := q.Submit(ctx, model.ScanRequest{RepoURL: "https://x/y"}, nil)
	require.NoError(t, err)

	state := &model.GraphState{Metadata: map[string]any{"job_id": jobID}}
	q.onStageCompleted(model.StepStaticAnalysis, state)
	job, ok := q.Status(jobID)
	require.True(t, ok)
	highWater := job.Progress
	assert.GreaterOrEqual(t, highWater, stepProgress[model.StepStaticAnalysis])

	q.onStageCompleted(model.StepFetchCode, state)
	job, _ = q.Status(jobID)
	assert.Equal(t, highWater, job.Progress, "progress must never regress")
}
