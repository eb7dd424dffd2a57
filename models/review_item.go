package models

import "time"

// OrganizerReviewItem is a read-only projection of a submission (and its
// active dispute, if any) used by the organizer inbox. It is rebuilt on every
// query and never stored.
type OrganizerReviewItem struct {
	SubmissionID        string           `json:"submission_id"`
	MatchID             string           `json:"match_id"`
	TournamentID        string           `json:"tournament_id"`
	StageID             *string          `json:"stage_id,omitempty"`
	SubmittedByUserID   string           `json:"submitted_by_user_id"`
	SubmittedByTeamID   *string          `json:"submitted_by_team_id,omitempty"`
	Status              SubmissionStatus `json:"status"`
	DisputeID           *string          `json:"dispute_id,omitempty"`
	DisputeStatus       *DisputeStatus   `json:"dispute_status,omitempty"`
	DisputeReason       string           `json:"dispute_reason,omitempty"`
	CreatedAt           time.Time        `json:"created_at"`
	AutoConfirmDeadline time.Time        `json:"auto_confirm_deadline"`
	IsOverdue           bool             `json:"is_overdue"`
	Priority            int              `json:"priority"`
	ProofURL            *string          `json:"proof_url,omitempty"`
	ProofViewURL        string           `json:"proof_view_url,omitempty"`
}
