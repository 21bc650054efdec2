package dto

import "time"

// InputSnapshot is one raw input as captured at enqueue time.
type InputSnapshot struct {
	ID         string    `json:"id"`
	Sender     string    `json:"sender"`
	Subject    string    `json:"subject"`
	Body       string    `json:"body"`
	ReceivedAt time.Time `json:"received_at"`
}

// GenerationPayload is the immutable snapshot stored on a job. Re-enqueueing
// replaces it wholesale.
type GenerationPayload struct {
	OwnerID             string          `json:"owner_id"`
	SchedulingDay       string          `json:"scheduling_day"`
	Timezone            string          `json:"timezone"`
	UserEmail           string          `json:"user_email,omitempty"`
	TargetLengthMinutes int             `json:"target_length_minutes"`
	InputIDs            []string        `json:"input_ids"`
	Inputs              []InputSnapshot `json:"inputs"`
	SnapshotAt          time.Time       `json:"snapshot_at"`
}
