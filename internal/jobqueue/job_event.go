package jobqueue

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/aidino/aicode-reviewer/internal/model"
)

// JobEvent is published on every job status transition. It is observability
// only — Status/StatusByScan remain the source of truth (§4.6 expansion:
// "this does not change Status/StatusByScan semantics").
type JobEvent struct {
	JobID     string          `json:"job_id"`
	ScanID    string          `json:"scan_id"`
	OldStatus model.JobStatus `json:"old_status"`
	NewStatus model.JobStatus `json:"new_status"`
	Timestamp time.Time       `json:"timestamp"`
}

// EventSink abstracts where job lifecycle events go. The zero-value default
// is NoopEventSink; NATSEventSink fans transitions out to other processes.
type EventSink interface {
	Publish(event JobEvent)
}

// NoopEventSink discards every event.
type NoopEventSink struct{}

func (NoopEventSink) Publish(JobEvent) {}

// NATSEventSink publishes job transitions as JSON to a fixed subject.
// Publish failures are logged, never returned — a dropped lifecycle event
// must not affect job execution.
type NATSEventSink struct {
	conn    *nats.Conn
	subject string
}

// NewNATSEventSink wires a sink to an already-connected NATS client.
func NewNATSEventSink(conn *nats.Conn, subject string) *NATSEventSink {
	if subject == "" {
		subject = "codereviewer.jobs.events"
	}
	return &NATSEventSink{conn: conn, subject: subject}
}

func (s *NATSEventSink) Publish(event JobEvent) {
	if s == nil || s.conn == nil {
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		slog.Warn("jobqueue: failed to marshal job event", "job_id", event.JobID, "err", err)
		return
	}
	if err := s.conn.Publish(s.subject, data); err != nil {
		slog.Warn("jobqueue: failed to publish job event", "job_id", event.JobID, "err", err)
	}
}
