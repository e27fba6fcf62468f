package domain

import (
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of an Execution. Pending and Running are
// transient; Success and Failed are terminal.
type Status string

const (
	StatusPending Status = "Pending"
	StatusRunning Status = "Running"
	StatusSuccess Status = "Success"
	StatusFailed  Status = "Failed"
)

func (s Status) Terminal() bool {
	return s == StatusSuccess || s == StatusFailed
}

// Execution is one run of a Job. It is created Pending by a trigger (or
// Running directly for a manual run) and mutated only by the pipeline
// that owns it.
type Execution struct {
	ID         string
	JobID      string
	Status     Status
	CreatedAt  time.Time
	StartedAt  time.Time
	EndedAt    *time.Time
	Log        []string
	Size       *int64
	RemotePath *string
	Metadata   map[string]string
}

func NewExecution(jobID string, status Status) *Execution {
	now := time.Now()
	return &Execution{
		ID:        uuid.NewString(),
		JobID:     jobID,
		Status:    status,
		CreatedAt: now,
		StartedAt: now,
		Metadata:  map[string]string{},
	}
}

// LastError returns the most recent ERROR log line, so a consumer can
// present a failure without re-parsing the log stream.
func (e *Execution) LastError() string {
	for i := len(e.Log) - 1; i >= 0; i-- {
		if len(e.Log[i]) >= 6 && e.Log[i][:6] == "ERROR " {
			return e.Log[i][6:]
		}
	}
	return ""
}
