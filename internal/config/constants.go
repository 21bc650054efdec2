package config

import "time"

type JobStatus string

const (
	JobStatusQueued     JobStatus = "queued"
	JobStatusProcessing JobStatus = "processing"
	JobStatusReady      JobStatus = "ready"
	JobStatusFailed     JobStatus = "failed"
)

const (
	// DefaultMaxRetryAttempts bounds automatic re-enqueues after a clean failure.
	DefaultMaxRetryAttempts = 3
	DefaultStaleTimeout     = 15 * time.Minute
	DefaultTargetLength     = 10

	// DefaultGenerationTimeout stays below DefaultStaleTimeout so a live
	// worker gives up before the reconciler takes its claim.
	DefaultGenerationTimeout = 12 * time.Minute
)

// Progress stages a worker may report while a job is processing.
var AllowedProgressStages = []string{"outline", "first_half", "second_half", "audio", "upload"}

// Valid reports whether s is one of the four job states.
func (s JobStatus) Valid() bool {
	switch s {
	case JobStatusQueued, JobStatusProcessing, JobStatusReady, JobStatusFailed:
		return true
	}
	return false
}

// CanTransition reports whether from -> to is an edge of the job state machine.
func CanTransition(from, to JobStatus) bool {
	switch from {
	case JobStatusQueued:
		return to == JobStatusProcessing
	case JobStatusProcessing:
		return to == JobStatusReady || to == JobStatusFailed || to == JobStatusQueued
	case JobStatusFailed:
		return to == JobStatusQueued
	}
	return false
}
