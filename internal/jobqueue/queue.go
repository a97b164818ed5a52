// Package jobqueue is the asynchronous job queue (C6): it hosts scan
// executions, tracks progress, supports cooperative cancellation, and ages
// out completed jobs. It generalizes the teacher's BuildQueue (channel-fed
// worker pool, active-job map, history-via-JobStore, event emission) from a
// build-report executor to the orchestrator's GraphState executor.
package jobqueue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/aidino/aicode-reviewer/internal/agents"
	"github.com/aidino/aicode-reviewer/internal/logfields"
	"github.com/aidino/aicode-reviewer/internal/metrics"
	"github.com/aidino/aicode-reviewer/internal/model"
	"github.com/aidino/aicode-reviewer/internal/orchestrator"
)

// Executor drives a GraphState to a terminal step. orchestrator.Orchestrator
// satisfies this directly; tests substitute a stub.
type Executor interface {
	Run(ctx context.Context, state *model.GraphState) *model.GraphState
}

// Callback lets a caller supply its own execution logic in place of the
// default orchestrator (§4.6: "If an orchestrator_callback was provided, it
// is invoked exactly once with the request; its return value becomes
// result"). A non-nil error fails the job with that message.
type Callback func(ctx context.Context, req model.ScanRequest) (*model.ReportData, error)

// stepProgress assigns a monotonically increasing progress percentage to
// each stage as it completes. Stages a given scan never visits (e.g.
// impact_analysis on a project scan) simply never bump progress past their
// predecessor's value — still monotonic, still reaching 100 once reporting
// completes successfully (§4.6, P6).
var stepProgress = map[model.StepName]int{
	model.StepStartScan:       5,
	model.StepFetchCode:       25,
	model.StepParseCode:       40,
	model.StepStaticAnalysis:  55,
	model.StepImpactAnalysis:  65,
	model.StepProjectScanning: 80,
	model.StepLLMAnalysis:     85,
	model.StepReporting:       95,
	model.StepHandleError:     95,
}

type queuedJob struct {
	job      *model.Job
	callback Callback
	ctx      context.Context
	cancel   context.CancelFunc
}

// Queue is the worker-pool job queue. A single instance is safe for
// concurrent Submit/Status/Cancel calls from multiple goroutines.
type Queue struct {
	jobs    chan queuedJob
	workers int
	maxSize int

	store    *model.JobStore
	executor Executor
	recorder metrics.Recorder
	events   EventSink
	clock    func() time.Time

	mu      sync.Mutex
	cancels map[string]context.CancelFunc

	active   atomic.Int32
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// Option configures a Queue at construction.
type Option func(*Queue)

// WithRecorder injects a metrics recorder (default metrics.NoopRecorder{}).
func WithRecorder(r metrics.Recorder) Option {
	return func(q *Queue) {
		if r != nil {
			q.recorder = r
		}
	}
}

// WithEventSink injects a lifecycle event sink (default NoopEventSink{}).
func WithEventSink(s EventSink) Option {
	return func(q *Queue) {
		if s != nil {
			q.events = s
		}
	}
}

// WithExecutor overrides the default orchestrator-backed executor, mainly
// for tests.
func WithExecutor(e Executor) Option {
	return func(q *Queue) {
		if e != nil {
			q.executor = e
		}
	}
}

// WithClock injects a clock for deterministic tests.
func WithClock(c func() time.Time) Option {
	return func(q *Queue) {
		if c != nil {
			q.clock = c
		}
	}
}

// defaultBundle wires the C4 agent implementations used when a job is
// submitted without its own callback (§4.6: "the job uses the default
// orchestrator from C5 with default agent implementations").
func defaultBundle() (orchestrator.Bundle, error) {
	reporter, err := agents.NewTemplateReporter()
	if err != nil {
		return orchestrator.Bundle{}, fmt.Errorf("jobqueue: build default reporter: %w", err)
	}
	return orchestrator.Bundle{
		Fetcher:        agents.NewGitCodeFetcher(),
		Parser:         agents.NewRegexASTParser(),
		Analyzer:       agents.NewHeuristicStaticAnalyzer(),
		LLM:            agents.NewNullLLMClient(),
		ProjectScanner: agents.NewRiskProjectScanner(),
		ImpactAnalyzer: agents.NewDependencyImpactAnalyzer(),
		Reporter:       reporter,
	}, nil
}

// New constructs a Queue with maxSize pending slots and the given worker
// count. Call Start to begin processing.
func New(maxSize, workers int, opts ...Option) (*Queue, error) {
	if maxSize <= 0 {
		maxSize = 100
	}
	if workers <= 0 {
		workers = 2
	}

	bundle, err := defaultBundle()
	if err != nil {
		return nil, err
	}

	q := &Queue{
		jobs:     make(chan queuedJob, maxSize),
		workers:  workers,
		maxSize:  maxSize,
		store:    model.NewJobStore(),
		recorder: metrics.NoopRecorder{},
		events:   NoopEventSink{},
		clock:    time.Now,
		cancels:  make(map[string]context.CancelFunc),
		stopChan: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(q)
	}
	if q.executor == nil {
		q.executor = orchestrator.New(bundle,
			orchestrator.WithRecorder(q.recorder),
			orchestrator.WithClock(orchestrator.Clock(q.clock)),
			orchestrator.WithStepObserver(q.onStageCompleted),
		)
	}
	return q, nil
}

// onStageCompleted is the orchestrator's step observer: it reads the job id
// stashed in state.Metadata at submission time and bumps that job's
// progress monotonically (§4.6 P6). The same Orchestrator instance is
// shared across concurrently running jobs, so correlation happens through
// the state rather than through any queue-level "current job" field.
func (q *Queue) onStageCompleted(step model.StepName, state *model.GraphState) {
	jobID, _ := state.Metadata["job_id"].(string)
	if jobID == "" {
		return
	}
	target, ok := stepProgress[step]
	if !ok {
		return
	}
	q.mutateAndEmit(jobID, func(j *model.Job) {
		if target > j.Progress {
			j.Progress = target
		}
	})
}

// Start spawns the worker pool. ctx governs the workers' lifetime: once it
// is canceled, each worker returns after the job it is running (if any)
// finishes. Running jobs' contexts derive from the ctx given to Submit and
// are not canceled by this ctx; Stop cancels them.
func (q *Queue) Start(ctx context.Context) {
	slog.Info("starting job queue", "workers", q.workers, "max_size", q.maxSize)
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(ctx, fmt.Sprintf("worker-%d", i))
	}
}

// Stop gracefully shuts down the queue, canceling all in-flight jobs and
// waiting for workers to return.
func (q *Queue) Stop() {
	close(q.stopChan)
	q.mu.Lock()
	for _, cancel := range q.cancels {
		cancel()
	}
	q.mu.Unlock()
	q.wg.Wait()
}

// Submit creates a Job record and enqueues it for execution, returning its
// scan id and job id immediately (§4.6 submit). callback may be nil, in
// which case the default orchestrator runs the request.
func (q *Queue) Submit(ctx context.Context, req model.ScanRequest, callback Callback) (scanID, jobID string, err error) {
	scanID = uuid.New().String()
	jobID = uuid.New().String()

	job := &model.Job{
		JobID:     jobID,
		ScanID:    scanID,
		Request:   req,
		Status:    model.JobPending,
		CreatedAt: q.clock(),
	}

	jobCtx, cancel := context.WithCancel(ctx)

	select {
	case q.jobs <- queuedJob{job: job, callback: callback, ctx: jobCtx, cancel: cancel}:
	default:
		cancel()
		return "", "", errors.New("jobqueue: queue is full")
	}

	q.store.Put(job)
	q.mu.Lock()
	q.cancels[jobID] = cancel
	q.mu.Unlock()
	q.recorder.SetQueueDepth(len(q.jobs))

	return scanID, jobID, nil
}

// Status returns a snapshot of the named job (§4.6 status).
func (q *Queue) Status(jobID string) (*model.Job, bool) {
	return q.store.Get(jobID)
}

// StatusByScan returns a snapshot looked up by scan id via a table scan
// (§4.6 status_by_scan).
func (q *Queue) StatusByScan(scanID string) (*model.Job, bool) {
	return q.store.GetByScan(scanID)
}

// Cancel signals cancellation for a job. It returns true if a live job was
// found and signaled, regardless of whether it was already running or
// still waiting in the channel — the next safe point (stage boundary, or
// the pre-dispatch check in processJob) observes ctx.Err() and transitions
// the job to CANCELLED (§4.6 cancel).
func (q *Queue) Cancel(jobID string) bool {
	q.mu.Lock()
	cancel, ok := q.cancels[jobID]
	q.mu.Unlock()
	if !ok {
		return false
	}

	job, ok := q.store.Get(jobID)
	if !ok || job.Status.Terminal() {
		return false
	}

	cancel()
	return true
}

// SweepOld deletes terminal jobs past the retention window and returns the
// count removed (§4.6 sweep_old). Callers — typically the maintenance loop
// (C7) — are expected to invoke this periodically; nothing happens
// automatically.
func (q *Queue) SweepOld(maxAge time.Duration) int {
	removed := q.store.SweepOld(maxAge, q.clock())
	if removed > 0 {
		q.recorder.IncJobRetention(removed)
	}
	return removed
}

func (q *Queue) worker(ctx context.Context, workerID string) {
	defer q.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-q.stopChan:
			return
		case qj := <-q.jobs:
			q.recorder.SetQueueDepth(len(q.jobs))
			q.active.Add(1)
			q.recorder.SetActiveWorkers(int(q.active.Load()))
			q.processJob(qj, workerID)
			q.active.Add(-1)
			q.recorder.SetActiveWorkers(int(q.active.Load()))
		}
	}
}

func (q *Queue) processJob(qj queuedJob, workerID string) {
	job := qj.job
	defer func() {
		q.mu.Lock()
		delete(q.cancels, job.JobID)
		q.mu.Unlock()
		qj.cancel()
	}()

	if qj.ctx.Err() != nil {
		q.finish(job, model.JobCancelled, 0, "", nil)
		return
	}

	start := q.clock()
	q.mutateAndEmit(job.JobID, func(j *model.Job) {
		j.StartedAt = &start
		j.Status = model.JobRunning
	})
	slog.Debug("job started", logfields.JobID(job.JobID), logfields.Worker(workerID))

	var (
		result *model.ReportData
		runErr error
	)
	if qj.callback != nil {
		result, runErr = qj.callback(qj.ctx, job.Request)
	} else {
		result, runErr = q.runDefault(qj.ctx, job)
	}

	status := model.JobCompleted
	errMsg := ""
	switch {
	case qj.ctx.Err() != nil && runErr == nil && result == nil:
		status = model.JobCancelled
	case runErr != nil:
		status = model.JobFailed
		errMsg = runErr.Error()
	}

	q.finish(job, status, 0, errMsg, result)
}

// runDefault executes the request through the shared default orchestrator.
// Per-stage progress is reported via onStageCompleted, which correlates
// back to this job through state.Metadata["job_id"].
func (q *Queue) runDefault(ctx context.Context, job *model.Job) (*model.ReportData, error) {
	state := model.NewGraphState(job.Request)
	state.Metadata["job_id"] = job.JobID
	state.Metadata["scan_id"] = job.ScanID

	state = q.executor.Run(ctx, state)

	if state.CurrentStep == model.StepErrorHandled {
		msg := state.Error
		if msg == "" {
			msg = "scan failed"
		}
		return state.ReportData, errors.New(msg)
	}
	return state.ReportData, nil
}

func (q *Queue) finish(job *model.Job, status model.JobStatus, _ time.Duration, errMsg string, result *model.ReportData) {
	end := q.clock()
	var updated *model.Job
	q.mutateAndEmit(job.JobID, func(j *model.Job) {
		j.CompletedAt = &end
		j.Status = status
		j.Error = errMsg
		j.Result = result
		if status == model.JobCompleted {
			j.Progress = 100
		}
		updated = j
	})

	if updated != nil {
		q.recorder.ObserveJobDuration(updated.Duration())
	}
	switch status {
	case model.JobCompleted:
		q.recorder.IncJobOutcome(metrics.JobOutcomeSuccess)
	case model.JobCancelled:
		q.recorder.IncJobOutcome(metrics.JobOutcomeCancelled)
	default:
		q.recorder.IncJobOutcome(metrics.JobOutcomeFailed)
	}
}

// mutateAndEmit applies fn under the store's lock and, if the status
// changed, publishes a JobEvent (§4.6 expansion: lifecycle event bus).
func (q *Queue) mutateAndEmit(jobID string, fn func(j *model.Job)) {
	before, _ := q.store.Get(jobID)
	after, ok := q.store.Mutate(jobID, fn)
	if !ok {
		return
	}
	var oldStatus model.JobStatus
	if before != nil {
		oldStatus = before.Status
	}
	if oldStatus == after.Status {
		return
	}
	q.events.Publish(JobEvent{
		JobID:     after.JobID,
		ScanID:    after.ScanID,
		OldStatus: oldStatus,
		NewStatus: after.Status,
		Timestamp: q.clock(),
	})
}
