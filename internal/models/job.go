package models

import "strings"

// JobStatus is the state reported by the backend. The four states below are
// classified; anything else the backend sends is kept verbatim for display
// and treated as non-terminal.
type JobStatus string

const (
	JobStatusPending  JobStatus = "pending"
	JobStatusRunning  JobStatus = "running"
	JobStatusComplete JobStatus = "complete"
	JobStatusCanceled JobStatus = "canceled"

	// JobStatusUnknown stands in for a missing status.
	JobStatusUnknown JobStatus = "unknown"
)

// ParseJobStatus normalises the spelling of the known states and keeps any
// other non-empty value as sent.
func ParseJobStatus(s string) JobStatus {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "":
		return JobStatusUnknown
	case "pending":
		return JobStatusPending
	case "running":
		return JobStatusRunning
	case "complete":
		return JobStatusComplete
	case "canceled", "cancelled":
		return JobStatusCanceled
	default:
		return JobStatus(s)
	}
}

// Known reports whether s is one of the classified states.
func (s JobStatus) Known() bool {
	switch s {
	case JobStatusPending, JobStatusRunning, JobStatusComplete, JobStatusCanceled:
		return true
	}
	return false
}

// IsTerminal returns true once no further state changes can occur.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusComplete || s == JobStatusCanceled
}

func (s JobStatus) String() string {
	if s == "" {
		return string(JobStatusUnknown)
	}
	return string(s)
}

func (s JobStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *JobStatus) UnmarshalText(text []byte) error {
	*s = ParseJobStatus(string(text))
	return nil
}

// Job is an asynchronous unit of work scheduled against a repository.
type Job struct {
	ID         ID        `json:"id"`
	Name       string    `json:"name"`
	Status     JobStatus `json:"status"`
	CreatorID  ID        `json:"creatorId"`
	CreatedAt  Timestamp `json:"createdAt"`
	UpdatedAt  Timestamp `json:"updatedAt"`
	Cancelable bool      `json:"cancelable"`
}

// IsTerminal is shorthand for j.Status.IsTerminal().
func (j *Job) IsTerminal() bool {
	return j.Status.IsTerminal()
}

// JobParams are the fields accepted when scheduling a job.
type JobParams struct {
	Name string `json:"name"`
}
