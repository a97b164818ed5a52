package glue

import (
	"context"
	"testing"
	"time"

	"github.com/aidino/aicode-reviewer/internal/jobqueue"
	"github.com/aidino/aicode-reviewer/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeQueue struct {
	submitScanID, submitJobID string
	submitErr                 error
	jobsByID                  map[string]*model.Job
	jobsByScan                map[string]*model.Job
	cancelled                 map[string]bool
}

func newFakeQueue() *fakeQueue {
	return &fakeQueue{
		jobsByID:   make(map[string]*model.Job),
		jobsByScan: make(map[string]*model.Job),
		cancelled:  make(map[string]bool),
	}
}

func (f *fakeQueue) Submit(_ context.Context, _ model.ScanRequest, _ jobqueue.Callback) (string, string, error) {
	return f.submitScanID, f.submitJobID, f.submitErr
}

func (f *fakeQueue) Status(jobID string) (*model.Job, bool) {
	j, ok := f.jobsByID[jobID]
	return j, ok
}

func (f *fakeQueue) StatusByScan(scanID string) (*model.Job, bool) {
	j, ok := f.jobsByScan[scanID]
	return j, ok
}

func (f *fakeQueue) Cancel(jobID string) bool {
	if _, ok := f.jobsByID[jobID]; !ok {
		return false
	}
	f.cancelled[jobID] = true
	return true
}

func TestInitiateRejectsUnknownScanType(t *testing.T) {
	svc := New(newFakeQueue())
	_, err := svc.Initiate(context.Background(), model.ScanRequest{RepoURL: "https://x/y", ScanType: "bogus"})
	assert.Error(t, err)
}

func TestInitiateDefaultsScanTypeAndEstimatesDuration(t *testing.T) {
	q := newFakeQueue()
	q.submitScanID, q.submitJobID = "scan-1", "job-1"
	svc := New(q)

	result, err := svc.Initiate(context.Background(), model.ScanRequest{RepoURL: "https://x/y"})

	require.NoError(t, err)
	assert.Equal(t, "scan-1", result.ScanID)
	assert.Equal(t, "job-1", result.JobID)
	assert.Equal(t, estimatedProjectScanDuration, result.EstimatedDuration)
}

func TestInitiatePRScanEstimatesShorterDuration(t *testing.T) {
	q := newFakeQueue()
	svc := New(q)
	result, err := svc.Initiate(context.Background(), model.ScanRequest{RepoURL: "https://x/y", ScanType: model.ScanTypePR, PRID: "7"})
	require.NoError(t, err)
	assert.Equal(t, estimatedPRScanDuration, result.EstimatedDuration)
}

func TestReportReturnsNotFoundForUnknownScan(t *testing.T) {
	svc := New(newFakeQueue())
	_, err := svc.Report("missing")
	assert.Error(t, err)
}

func TestReportReturnsSynthesizedReportWhileRunning(t *testing.T) {
	q := newFakeQueue()
	q.jobsByScan["scan-1"] = &model.Job{ScanID: "scan-1", JobID: "job-1", Status: model.JobRunning, Request: model.ScanRequest{RepoURL: "https://x/y"}}
	svc := New(q)

	report, err := svc.Report("scan-1")

	require.NoError(t, err)
	assert.Equal(t, "in_progress", report.Summary.ScanStatus)
	assert.Equal(t, "https://x/y", report.ScanInfo.Repository)
}

func TestReportReturnsStoredResultWhenCompleted(t *testing.T) {
	q := newFakeQueue()
	want := &model.ReportData{Summary: model.Summary{ScanStatus: "completed", TotalFindings: 2}}
	q.jobsByScan["scan-1"] = &model.Job{ScanID: "scan-1", JobID: "job-1", Status: model.JobCompleted, Result: want}
	svc := New(q)

	report, err := svc.Report("scan-1")

	require.NoError(t, err)
	assert.Same(t, want, report)
}

func TestStatusFallsBackFromJobIDToScanID(t *testing.T) {
	q := newFakeQueue()
	job := &model.Job{JobID: "job-1", ScanID: "scan-1", Status: model.JobRunning, Progress: 40, CreatedAt: time.Now()}
	q.jobsByScan["scan-1"] = job
	svc := New(q)

	view, err := svc.Status("scan-1")

	require.NoError(t, err)
	assert.Equal(t, "job-1", view.JobID)
	assert.Equal(t, 40, view.Progress)
}

func TestStatusNotFound(t *testing.T) {
	svc := New(newFakeQueue())
	_, err := svc.Status("nope")
	assert.Error(t, err)
}

func TestCancelFallsBackToScanLookup(t *testing.T) {
	q := newFakeQueue()
	q.jobsByID["job-1"] = &model.Job{JobID: "job-1", ScanID: "scan-1"}
	q.jobsByScan["scan-1"] = q.jobsByID["job-1"]
	svc := New(q)

	ok, err := svc.Cancel("scan-1")

	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, q.cancelled["job-1"])
}

func TestCancelNotFound(t *testing.T) {
	svc := New(newFakeQueue())
	_, err := svc.Cancel("nope")
	assert.Error(t, err)
}
