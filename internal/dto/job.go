package dto

import (
	"encoding/json"
	"time"
)

type ClaimRequestDTO struct {
	WorkerID string `json:"worker_id" validate:"required,max=128"`
}

// ClaimedJobDTO is the descriptor handed to the worker that won a claim.
type ClaimedJobDTO struct {
	ID            string          `json:"id"`
	OwnerID       string          `json:"owner_id"`
	SchedulingDay string          `json:"scheduling_day"`
	Payload       json.RawMessage `json:"payload"`
}

type ClaimResponseDTO struct {
	Available bool           `json:"available"`
	Job       *ClaimedJobDTO `json:"job,omitempty"`
}

type MarkReadyDTO struct {
	WorkerID  string `json:"worker_id" validate:"required,max=128"`
	ResultRef string `json:"result_ref" validate:"required"`
}

type MarkFailedDTO struct {
	WorkerID string `json:"worker_id" validate:"required,max=128"`
	Error    string `json:"error" validate:"required"`
}

type ProgressDTO struct {
	WorkerID string `json:"worker_id" validate:"required,max=128"`
	Stage    string `json:"stage" validate:"required"`
}

// AppliedDTO tells a worker whether its report changed the job. A false
// value means the job was no longer processing under that worker.
type AppliedDTO struct {
	Applied bool `json:"applied"`
}

type JobResponseDTO struct {
	ID            string          `json:"id"`
	OwnerID       string          `json:"owner_id"`
	SchedulingDay string          `json:"scheduling_day"`
	Status        string          `json:"status"`
	Payload       json.RawMessage `json:"payload,omitempty"`
	ClaimedAt     *time.Time      `json:"claimed_at,omitempty"`
	ClaimedBy     string          `json:"claimed_by,omitempty"`
	ProgressStage string          `json:"progress_stage,omitempty"`
	RetryCount    int             `json:"retry_count"`
	ErrorDetail   string          `json:"error_detail,omitempty"`
	ResultRef     string          `json:"result_ref,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

type ReconcileResponseDTO struct {
	ResetCount int `json:"reset_count"`
}
