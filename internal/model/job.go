package model

import "time"

// JobStatus is the lifecycle state of a queued scan.
type JobStatus string

const (
	JobPending   JobStatus = "PENDING"
	JobRunning   JobStatus = "RUNNING"
	JobCompleted JobStatus = "COMPLETED"
	JobFailed    JobStatus = "FAILED"
	JobCancelled JobStatus = "CANCELLED"
)

// Terminal reports whether the status ends the job's lifecycle.
func (s JobStatus) Terminal() bool {
	switch s {
	case JobCompleted, JobFailed, JobCancelled:
		return true
	default:
		return false
	}
}

// Job is one hosted scan execution, tracked by the job queue (C6).
type Job struct {
	JobID      string
	ScanID     string
	Request    ScanRequest
	Status     JobStatus
	Progress   int
	CreatedAt  time.Time
	StartedAt  *time.Time
	CompletedAt *time.Time
	Error      string
	Result     *ReportData
}

// Duration returns the elapsed run time, or zero if the job hasn't started.
func (j *Job) Duration() time.Duration {
	if j.StartedAt == nil {
		return 0
	}
	end := time.Now()
	if j.CompletedAt != nil {
		end = *j.CompletedAt
	}
	return end.Sub(*j.StartedAt)
}
