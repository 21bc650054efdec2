package models

import "time"

// Tenant is the read model of account settings the scheduler needs.
type Tenant struct {
	ID                  string `gorm:"type:varchar(64);primaryKey"`
	Email               string `gorm:"type:varchar(255)"`
	Timezone            string `gorm:"type:varchar(64);not null;default:'UTC'"`
	DeliveryHour        int    `gorm:"not null"`
	TargetLengthMinutes int    `gorm:"not null;default:10"`
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// RawInput is one ingested newsletter waiting to be digested.
type RawInput struct {
	ID          string    `gorm:"type:varchar(36);primaryKey"`
	OwnerID     string    `gorm:"type:varchar(64);not null;index"`
	Sender      string    `gorm:"type:varchar(255)"`
	Subject     string    `gorm:"type:text"`
	Body        string    `gorm:"type:text"`
	ReceivedAt  time.Time `gorm:"not null"`
	ProcessedAt *time.Time
}
