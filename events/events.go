// Package events defines the result lifecycle events consumed by match,
// bracket, ranking and notification services, and their publishers.
// Field names are a wire contract: change them only with every consumer.
package events

import (
	"encoding/json"
	"time"
)

const (
	TopicMatchResultFinalized = "results.finalized"
	TopicMatchResultRejected  = "results.rejected"
	TopicDisputeResolved      = "disputes.resolved"
	TopicAttentionDigest      = "results.attention_digest"
)

// Event is anything the engine can publish.
type Event interface {
	Topic() string
}

// MatchResultFinalizedEvent tells the match service to complete the match and
// record the winner.
type MatchResultFinalizedEvent struct {
	SubmissionID     string          `json:"submission_id"`
	MatchID          string          `json:"match_id"`
	TournamentID     string          `json:"tournament_id"`
	StageID          *string         `json:"stage_id,omitempty"`
	ResolvedByUserID string          `json:"resolved_by_user_id"`
	FinalResult      json.RawMessage `json:"final_result,omitempty"`
	FinalizedAt      time.Time       `json:"finalized_at"`
}

func (MatchResultFinalizedEvent) Topic() string { return TopicMatchResultFinalized }

// MatchResultRejectedEvent reports a submission the organizer denied.
type MatchResultRejectedEvent struct {
	SubmissionID     string    `json:"submission_id"`
	MatchID          string    `json:"match_id"`
	TournamentID     string    `json:"tournament_id"`
	ResolvedByUserID string    `json:"resolved_by_user_id"`
	Notes            string    `json:"notes,omitempty"`
	RejectedAt       time.Time `json:"rejected_at"`
}

func (MatchResultRejectedEvent) Topic() string { return TopicMatchResultRejected }

// DisputeResolvedEvent reports how a dispute was closed and where that left
// the submission.
type DisputeResolvedEvent struct {
	DisputeID        string    `json:"dispute_id"`
	SubmissionID     string    `json:"submission_id"`
	MatchID          string    `json:"match_id"`
	TournamentID     string    `json:"tournament_id"`
	Resolution       string    `json:"resolution"`
	DisputeStatus    string    `json:"dispute_status"`
	SubmissionStatus string    `json:"submission_status"`
	ResolvedByUserID string    `json:"resolved_by_user_id"`
	ResolvedAt       time.Time `json:"resolved_at"`
}

func (DisputeResolvedEvent) Topic() string { return TopicDisputeResolved }

// ResultsAttentionDigestEvent summarises what waits on organizers in one
// tournament. It is emitted by the read-only sweep.
type ResultsAttentionDigestEvent struct {
	TournamentID    string    `json:"tournament_id"`
	Overdue         int       `json:"overdue"`
	Disputed        int       `json:"disputed"`
	ReadyToFinalize int       `json:"ready_to_finalize"`
	Pending         int       `json:"pending"`
	GeneratedAt     time.Time `json:"generated_at"`
}

func (ResultsAttentionDigestEvent) Topic() string { return TopicAttentionDigest }
