// Package glue is the external interface glue (C8): a thin dispatcher
// between a request boundary and the job queue. It generalizes the
// request-validation-then-delegate shape of the teacher's
// internal/server/handlers/*.go into a transport-agnostic service, since
// the HTTP surface itself is out of scope (§1 Non-goals).
package glue

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aidino/aicode-reviewer/internal/foundation/errors"
	"github.com/aidino/aicode-reviewer/internal/jobqueue"
	"github.com/aidino/aicode-reviewer/internal/model"
)

// InitiateResult is returned by Initiate: the freshly created job/scan
// pair plus a rough duration estimate for the caller to display.
type InitiateResult struct {
	ScanID            string
	JobID             string
	EstimatedDuration time.Duration
}

const (
	estimatedPRScanDuration      = 45 * time.Second
	estimatedProjectScanDuration = 3 * time.Minute
)

// Queue is the subset of jobqueue.Queue the glue layer depends on.
type Queue interface {
	Submit(ctx context.Context, req model.ScanRequest, callback jobqueue.Callback) (scanID, jobID string, err error)
	Status(jobID string) (*model.Job, bool)
	StatusByScan(scanID string) (*model.Job, bool)
	Cancel(jobID string) bool
}

// Service dispatches requests into a Queue and translates job snapshots
// into the external job-status and report shapes (§6, §4.8).
type Service struct {
	queue Queue
}

// New constructs a Service over queue.
func New(queue Queue) *Service {
	return &Service{queue: queue}
}

// Initiate validates req and submits it to the job queue, returning ids
// and an estimated duration (§4.8 initiate). Deep validation of repo_url
// happens inside the workflow's start_scan stage (§4.5 stage 1); this
// layer only rejects shapes the queue could never route (unknown
// scan_type).
func (s *Service) Initiate(ctx context.Context, req model.ScanRequest) (InitiateResult, error) {
	if strings.TrimSpace(string(req.ScanType)) == "" {
		req.ScanType = model.ScanTypeProject
	}
	if req.ScanType != model.ScanTypePR && req.ScanType != model.ScanTypeProject {
		return InitiateResult{}, errors.ValidationError(
			fmt.Sprintf("unknown scan_type %q", req.ScanType)).Build()
	}

	scanID, jobID, err := s.queue.Submit(ctx, req, nil)
	if err != nil {
		return InitiateResult{}, errors.WrapError(err, errors.CategoryQueue, "failed to submit scan").Build()
	}

	estimate := estimatedProjectScanDuration
	if req.ScanType == model.ScanTypePR {
		estimate = estimatedPRScanDuration
	}
	return InitiateResult{ScanID: scanID, JobID: jobID, EstimatedDuration: estimate}, nil
}

// Report returns the report for a completed (or errored) scan. Per §7's
// propagation policy, report() never throws a raw error for a failed
// scan — a FAILED/CANCELLED job still has a well-formed report via
// handle_error — but a scan_id with no matching job is a genuine NotFound.
func (s *Service) Report(scanID string) (*model.ReportData, error) {
	job, ok := s.queue.StatusByScan(scanID)
	if !ok {
		return nil, errors.NewError(errors.CategoryNotFound, fmt.Sprintf("no scan found for id %q", scanID)).Build()
	}
	if job.Result != nil {
		return job.Result, nil
	}
	return pendingReport(job), nil
}

// Status returns a job status snapshot, looking up by job id first and
// falling back to scan id (§4.8 status accepts either).
func (s *Service) Status(id string) (JobStatusView, error) {
	job, ok := s.queue.Status(id)
	if !ok {
		job, ok = s.queue.StatusByScan(id)
	}
	if !ok {
		return JobStatusView{}, errors.NewError(errors.CategoryNotFound, fmt.Sprintf("no job found for id %q", id)).Build()
	}
	return toStatusView(job), nil
}

// Cancel cancels a job, looking up by job id first and falling back to
// scan id (§4.8 cancel).
func (s *Service) Cancel(id string) (bool, error) {
	if s.queue.Cancel(id) {
		return true, nil
	}
	if job, ok := s.queue.StatusByScan(id); ok {
		return s.queue.Cancel(job.JobID), nil
	}
	return false, errors.NewError(errors.CategoryNotFound, fmt.Sprintf("no job found for id %q", id)).Build()
}

// JobStatusView is the external job-status shape (§6 "Job status shape").
type JobStatusView struct {
	JobID           string
	ScanID          string
	Status          model.JobStatus
	Progress        int
	CreatedAt       time.Time
	StartedAt       *time.Time
	CompletedAt     *time.Time
	DurationSeconds float64
	ErrorMessage    string
	Repository      string
	ScanType        model.ScanType
}

func toStatusView(job *model.Job) JobStatusView {
	return JobStatusView{
		JobID:           job.JobID,
		ScanID:          job.ScanID,
		Status:          job.Status,
		Progress:        job.Progress,
		CreatedAt:       job.CreatedAt,
		StartedAt:       job.StartedAt,
		CompletedAt:     job.CompletedAt,
		DurationSeconds: job.Duration().Seconds(),
		ErrorMessage:    job.Error,
		Repository:      job.Request.RepoURL,
		ScanType:        job.Request.ScanType,
	}
}

// pendingReport synthesizes a report shape for a job with no Result yet
// (still running, or terminal without a result — cancelled). §7: every
// failure yields a well-formed report with scan_status reflecting the
// job's terminal/non-terminal state; no endpoint returns a raw error.
func pendingReport(job *model.Job) *model.ReportData {
	status := "pending"
	switch job.Status {
	case model.JobRunning:
		status = "in_progress"
	case model.JobFailed:
		status = "error"
	case model.JobCancelled:
		status = "cancelled"
	}
	return &model.ReportData{
		ScanInfo: model.ScanInfo{
			ScanID:     job.ScanID,
			Repository: job.Request.RepoURL,
			PRID:       job.Request.PRID,
			ScanType:   job.Request.ScanType,
			Timestamp:  job.CreatedAt,
		},
		Summary: model.Summary{
			ScanStatus:   status,
			ErrorMessage: job.Error,
		},
	}
}
