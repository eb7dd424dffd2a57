package models

import (
	"time"

	"gorm.io/datatypes"
)

// VerificationLog is an append-only audit entry for a submission.
type VerificationLog struct {
	ID           string            `gorm:"primaryKey;type:uuid" json:"id"`
	SubmissionID string            `gorm:"not null;index" json:"submission_id"`
	Step         string            `gorm:"type:varchar(64);not null" json:"step"`   // submitted, confirmed, dispute_opened, finalized ...
	Outcome      string            `gorm:"type:varchar(32);not null" json:"outcome"` // success, failure
	ActorID      string            `json:"actor_id"`
	Details      datatypes.JSONMap `json:"details,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
}
