package models

import (
	"time"

	"gorm.io/datatypes"
)

// DisputeStatus is the lifecycle state of a dispute.
type DisputeStatus string

const (
	DisputeStatusOpen                 DisputeStatus = "open"
	DisputeStatusUnderReview          DisputeStatus = "under_review"
	DisputeStatusEscalated            DisputeStatus = "escalated"
	DisputeStatusResolvedForSubmitter DisputeStatus = "resolved_for_submitter"
	DisputeStatusResolvedForOpponent  DisputeStatus = "resolved_for_opponent"
	DisputeStatusCancelled            DisputeStatus = "cancelled"
	DisputeStatusDismissed            DisputeStatus = "dismissed"
)

// ActiveDisputeStatuses are the statuses from which a dispute may be resolved.
var ActiveDisputeStatuses = []DisputeStatus{
	DisputeStatusOpen,
	DisputeStatusUnderReview,
	DisputeStatusEscalated,
}

// IsTerminal reports whether the dispute has been closed.
func (s DisputeStatus) IsTerminal() bool {
	switch s {
	case DisputeStatusResolvedForSubmitter, DisputeStatusResolvedForOpponent,
		DisputeStatusCancelled, DisputeStatusDismissed:
		return true
	}
	return false
}

// Valid reports whether s is one of the known statuses.
func (s DisputeStatus) Valid() bool {
	return s.IsTerminal() || s == DisputeStatusOpen || s == DisputeStatusUnderReview || s == DisputeStatusEscalated
}

// Dispute is a formal objection to a submission. At most one active
// dispute exists per submission.
type Dispute struct {
	ID           string `gorm:"primaryKey;type:uuid" json:"id"`
	SubmissionID string `gorm:"not null;index" json:"submission_id"`

	OpenedByUserID string  `gorm:"not null" json:"opened_by_user_id"`
	OpenedByTeamID *string `json:"opened_by_team_id,omitempty"`

	ReasonCode  string `gorm:"type:varchar(64);not null" json:"reason_code"`
	Description string `gorm:"type:text" json:"description"`
	// DisputedResultPayload is the opponent's counter-claim, if supplied.
	DisputedResultPayload datatypes.JSON `json:"disputed_result_payload,omitempty"`

	Status DisputeStatus `gorm:"type:varchar(32);not null;index;default:'open'" json:"status"`
	// Resolution records which organizer strategy closed the dispute.
	Resolution      string `gorm:"type:varchar(32)" json:"resolution,omitempty"`
	ResolutionNotes string `gorm:"type:text" json:"resolution_notes,omitempty"`

	OpenedAt         time.Time  `gorm:"not null" json:"opened_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
	ResolvedAt       *time.Time `json:"resolved_at,omitempty"`
	ResolvedByUserID *string    `json:"resolved_by_user_id,omitempty"`
	EscalatedAt      *time.Time `json:"escalated_at,omitempty"`

	Submission *Submission `gorm:"foreignKey:SubmissionID" json:"submission,omitempty"`
}

// HasCounterClaim reports whether the opponent supplied an alternative result.
func (d *Dispute) HasCounterClaim() bool {
	return len(d.DisputedResultPayload) > 0 && string(d.DisputedResultPayload) != "null"
}
