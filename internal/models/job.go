package models

import (
	"time"

	"github.com/joshu-sajeev/dailygist/internal/config"
	"gorm.io/datatypes"
)

// Job is one generation job per owner per scheduling day.
type Job struct {
	ID            string           `gorm:"type:varchar(36);primaryKey"`
	OwnerID       string           `gorm:"type:varchar(64);not null;uniqueIndex:idx_generation_jobs_owner_day"`
	SchedulingDay string           `gorm:"type:varchar(10);not null;uniqueIndex:idx_generation_jobs_owner_day"`
	Status        config.JobStatus `gorm:"type:varchar(20);not null;default:'queued';index"`
	Payload       datatypes.JSON   `gorm:"type:jsonb;not null"`
	ClaimedAt     *time.Time
	ClaimedBy     *string `gorm:"type:varchar(128)"`
	ProgressStage *string `gorm:"type:varchar(32)"`
	ProgressAt    *time.Time
	RetryCount    int       `gorm:"not null;default:0"`
	ErrorDetail   *string   `gorm:"type:text"`
	ResultRef     *string   `gorm:"type:text"`
	CreatedAt     time.Time `gorm:"not null;index"`
	UpdatedAt     time.Time
}

func (Job) TableName() string { return "generation_jobs" }

// EnqueueOutcome describes what a conditional upsert did to the row.
type EnqueueOutcome string

const (
	EnqueueCreated EnqueueOutcome = "created"
	EnqueueUpdated EnqueueOutcome = "updated"
	// EnqueueSkipped means a row exists in processing, ready or failed and was left alone.
	EnqueueSkipped EnqueueOutcome = "skipped"
)

// Queued reports whether the outcome left a claimable job behind.
func (o EnqueueOutcome) Queued() bool {
	return o == EnqueueCreated || o == EnqueueUpdated
}
