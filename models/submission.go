package models

import (
	"time"

	"gorm.io/datatypes"
)

// SubmissionStatus is the lifecycle state of a reported match result.
type SubmissionStatus string

const (
	SubmissionStatusPending   SubmissionStatus = "pending"
	SubmissionStatusConfirmed SubmissionStatus = "confirmed"
	SubmissionStatusDisputed  SubmissionStatus = "disputed"
	SubmissionStatusFinalized SubmissionStatus = "finalized"
	SubmissionStatusRejected  SubmissionStatus = "rejected"
)

// ActiveSubmissionStatuses are the statuses a submission can still leave.
var ActiveSubmissionStatuses = []SubmissionStatus{
	SubmissionStatusPending,
	SubmissionStatusConfirmed,
	SubmissionStatusDisputed,
}

// IsTerminal reports whether no further transition is allowed.
func (s SubmissionStatus) IsTerminal() bool {
	return s == SubmissionStatusFinalized || s == SubmissionStatusRejected
}

// Valid reports whether s is one of the known statuses.
func (s SubmissionStatus) Valid() bool {
	switch s {
	case SubmissionStatusPending, SubmissionStatusConfirmed, SubmissionStatusDisputed,
		SubmissionStatusFinalized, SubmissionStatusRejected:
		return true
	}
	return false
}

// Submission is one participant's report of a match result.
// Only one non-terminal submission may exist per match.
type Submission struct {
	ID           string  `gorm:"primaryKey;type:uuid" json:"id"`
	MatchID      string  `gorm:"not null;index:idx_submissions_active_match,unique,where:status <> 'finalized' AND status <> 'rejected'" json:"match_id"`
	TournamentID string  `gorm:"not null;index" json:"tournament_id"`
	StageID      *string `gorm:"index" json:"stage_id,omitempty"`
	GameID       string  `gorm:"index" json:"game_id,omitempty"`

	SubmittedByUserID string  `gorm:"not null;index" json:"submitted_by_user_id"`
	SubmittedByTeamID *string `json:"submitted_by_team_id,omitempty"`
	OpponentTeamID    *string `json:"opponent_team_id,omitempty"`

	// RawResultPayload is game-defined and never rewritten after submission.
	RawResultPayload datatypes.JSON `gorm:"not null" json:"raw_result_payload"`
	// FinalResultPayload is the winning result once finalized: the original,
	// the opponent's counter-claim, or an organizer-supplied custom result.
	FinalResultPayload datatypes.JSON `json:"final_result_payload,omitempty"`
	ProofURL           *string        `json:"proof_url,omitempty"`
	SubmitterNotes     string         `gorm:"type:text" json:"submitter_notes"`

	Status              SubmissionStatus `gorm:"type:varchar(16);not null;index;default:'pending'" json:"status"`
	SubmittedAt         time.Time        `gorm:"not null;index" json:"submitted_at"`
	AutoConfirmDeadline time.Time        `gorm:"not null;index" json:"auto_confirm_deadline"`
	ConfirmedAt         *time.Time       `json:"confirmed_at,omitempty"`
	ConfirmedByUserID   *string          `json:"confirmed_by_user_id,omitempty"`
	AutoConfirmed       bool             `gorm:"default:false" json:"auto_confirmed"`

	ResolvedAt       *time.Time `json:"resolved_at,omitempty"`
	ResolvedByUserID *string    `json:"resolved_by_user_id,omitempty"`
	ResolutionNotes  string     `gorm:"type:text" json:"resolution_notes,omitempty"`

	Timestamps
}
