package services

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"strings"
	"time"

	"result-verification-system/models"
	"result-verification-system/stores"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/jonboulle/clockwork"
	"gorm.io/datatypes"
)

// SubmitResultInput is a team's claim about a match outcome.
type SubmitResultInput struct {
	MatchID           string          `json:"match_id"`
	TournamentID      string          `json:"tournament_id"`
	StageID           *string         `json:"stage_id"`
	GameID            string          `json:"game_id"`
	SubmittedByUserID string          `json:"submitted_by_user_id"`
	SubmittedByTeamID *string         `json:"submitted_by_team_id"`
	OpponentTeamID    *string         `json:"opponent_team_id"`
	Result            json.RawMessage `json:"result"`
	ProofURL          *string         `json:"proof_url"`
	Notes             string          `json:"notes"`
}

// OpenDisputeInput is an opponent's challenge to a submission.
type OpenDisputeInput struct {
	SubmissionID   string          `json:"-"`
	OpenedByUserID string          `json:"opened_by_user_id"`
	OpenedByTeamID *string         `json:"opened_by_team_id"`
	ReasonCode     string          `json:"reason_code"`
	Description    string          `json:"description"`
	CounterResult  json.RawMessage `json:"counter_result"`
}

// IntakeService records submissions, confirmations and disputes coming from
// players. Organizer decisions live in ResolutionService.
type IntakeService struct {
	repos  stores.Repositories
	clock  clockwork.Clock
	window time.Duration
}

func NewIntakeService(repos stores.Repositories, clock clockwork.Clock, cfg ResolutionConfig) *IntakeService {
	if cfg.AutoConfirmWindow <= 0 {
		cfg.AutoConfirmWindow = DefaultAutoConfirmWindow
	}
	return &IntakeService{repos: repos, clock: clock, window: cfg.AutoConfirmWindow}
}

// SubmitResult stores a new pending submission. A match holds at most one
// non-terminal submission.
func (s *IntakeService) SubmitResult(ctx context.Context, in SubmitResultInput) (*models.Submission, error) {
	switch {
	case strings.TrimSpace(in.MatchID) == "":
		return nil, &ValidationError{Field: "match_id", Message: "is required"}
	case strings.TrimSpace(in.TournamentID) == "":
		return nil, &ValidationError{Field: "tournament_id", Message: "is required"}
	case strings.TrimSpace(in.SubmittedByUserID) == "":
		return nil, &ValidationError{Field: "submitted_by_user_id", Message: "is required"}
	}
	if !payloadPresent(in.Result) {
		return nil, &ValidationError{Field: "result", Message: "must be a non-empty JSON object"}
	}
	if in.SubmittedByTeamID != nil && in.OpponentTeamID != nil && *in.SubmittedByTeamID == *in.OpponentTeamID {
		return nil, &ValidationError{Field: "opponent_team_id", Message: "must differ from submitted_by_team_id"}
	}

	now := s.clock.Now().UTC()
	sub := &models.Submission{
		ID:                  uuid.NewString(),
		MatchID:             in.MatchID,
		TournamentID:        in.TournamentID,
		StageID:             in.StageID,
		GameID:              in.GameID,
		SubmittedByUserID:   in.SubmittedByUserID,
		SubmittedByTeamID:   in.SubmittedByTeamID,
		OpponentTeamID:      in.OpponentTeamID,
		RawResultPayload:    datatypes.JSON(in.Result),
		ProofURL:            in.ProofURL,
		SubmitterNotes:      in.Notes,
		Status:              models.SubmissionStatusPending,
		SubmittedAt:         now,
		AutoConfirmDeadline: now.Add(s.window),
		Timestamps:          models.Timestamps{CreatedAt: now, UpdatedAt: now},
	}

	err := s.repos.Atomic(ctx, func(tx stores.Repositories) error {
		existing, err := tx.Submissions().FindActiveForMatch(ctx, in.MatchID)
		if err != nil {
			return err
		}
		if existing != nil {
			return &InvalidSubmissionStateError{SubmissionID: existing.ID, Status: existing.Status, Operation: "replace"}
		}
		return tx.Submissions().Create(ctx, sub)
	})
	if errors.Is(err, stores.ErrActiveSubmissionExists) {
		// Lost a race with a concurrent submit for the same match.
		state := &InvalidSubmissionStateError{Operation: "replace"}
		if existing, ferr := s.repos.Submissions().FindActiveForMatch(ctx, in.MatchID); ferr == nil && existing != nil {
			state.SubmissionID, state.Status = existing.ID, existing.Status
		}
		return nil, state
	}
	if err != nil {
		return nil, err
	}

	writeAudit(ctx, s.repos, s.clock, sub.ID, "submitted", "success", in.SubmittedByUserID, map[string]interface{}{"match_id": sub.MatchID})
	log.Printf("[Intake] submission %s recorded for match %s by %s", sub.ID, sub.MatchID, sub.SubmittedByUserID)
	return sub, nil
}

// ConfirmSubmission records the opponent's agreement. The submitter cannot
// confirm their own result.
func (s *IntakeService) ConfirmSubmission(ctx context.Context, id, userID string) (*models.Submission, error) {
	if userID == "" {
		return nil, &ValidationError{Field: "user_id", Message: "is required"}
	}
	sub, err := s.repos.Submissions().Get(ctx, id)
	if err != nil {
		return nil, submissionError(err, id, "confirm")
	}
	if sub.SubmittedByUserID == userID {
		return nil, &ValidationError{Field: "user_id", Message: "submitter cannot confirm their own result"}
	}
	if sub.Status != models.SubmissionStatusPending {
		return nil, &InvalidSubmissionStateError{SubmissionID: id, Status: sub.Status, Operation: "confirm"}
	}

	updated, err := s.repos.Submissions().UpdateStatus(ctx, id, []models.SubmissionStatus{models.SubmissionStatusPending},
		models.SubmissionStatusConfirmed, stores.SubmissionChange{
			At:                s.clock.Now().UTC(),
			ConfirmedByUserID: &userID,
		})
	if err != nil {
		return nil, confirmError(err, id)
	}

	writeAudit(ctx, s.repos, s.clock, id, "confirmed", "success", userID, nil)
	log.Printf("[Intake] submission %s confirmed by %s", id, userID)
	return updated, nil
}

// OpenDispute challenges a pending or confirmed submission and moves it to
// disputed. Only one active dispute may exist per submission, and the
// submitter cannot open it.
func (s *IntakeService) OpenDispute(ctx context.Context, in OpenDisputeInput) (*models.Dispute, error) {
	if in.OpenedByUserID == "" {
		return nil, &ValidationError{Field: "opened_by_user_id", Message: "is required"}
	}
	reason := slug.Make(in.ReasonCode)
	if reason == "" {
		return nil, &ValidationError{Field: "reason_code", Message: "is required"}
	}
	var counter datatypes.JSON
	if len(in.CounterResult) > 0 && string(in.CounterResult) != "null" {
		if !payloadPresent(in.CounterResult) {
			return nil, &ValidationError{Field: "counter_result", Message: "must be a non-empty JSON object"}
		}
		counter = datatypes.JSON(in.CounterResult)
	}

	now := s.clock.Now().UTC()
	d := &models.Dispute{
		ID:                    uuid.NewString(),
		SubmissionID:          in.SubmissionID,
		OpenedByUserID:        in.OpenedByUserID,
		OpenedByTeamID:        in.OpenedByTeamID,
		ReasonCode:            reason,
		Description:           in.Description,
		DisputedResultPayload: counter,
		Status:                models.DisputeStatusOpen,
		OpenedAt:              now,
		UpdatedAt:             now,
	}

	err := s.repos.Atomic(ctx, func(tx stores.Repositories) error {
		sub, err := tx.Submissions().Get(ctx, in.SubmissionID)
		if err != nil {
			return submissionError(err, in.SubmissionID, "dispute")
		}
		if sub.SubmittedByUserID == in.OpenedByUserID {
			return &ValidationError{Field: "opened_by_user_id", Message: "submitter cannot dispute their own result"}
		}
		if sub.Status != models.SubmissionStatusPending && sub.Status != models.SubmissionStatusConfirmed {
			return &InvalidSubmissionStateError{SubmissionID: sub.ID, Status: sub.Status, Operation: "dispute"}
		}
		open, err := tx.Disputes().GetOpenForSubmission(ctx, sub.ID)
		if err != nil {
			return err
		}
		if open != nil {
			return &ConflictError{Entity: "dispute", ID: open.ID, Current: string(open.Status)}
		}
		if err := tx.Disputes().Create(ctx, d); err != nil {
			return err
		}
		_, err = tx.Submissions().UpdateStatus(ctx, sub.ID,
			[]models.SubmissionStatus{models.SubmissionStatusPending, models.SubmissionStatusConfirmed},
			models.SubmissionStatusDisputed, stores.SubmissionChange{At: now})
		if err != nil {
			return submissionError(err, sub.ID, "dispute")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	writeAudit(ctx, s.repos, s.clock, in.SubmissionID, "dispute_opened", "success", in.OpenedByUserID, map[string]interface{}{
		"dispute_id":  d.ID,
		"reason_code": reason,
	})
	log.Printf("[Intake] dispute %s opened on submission %s (%s)", d.ID, in.SubmissionID, reason)
	return d, nil
}

func confirmError(err error, id string) error {
	var conflict *stores.StatusConflictError
	if errors.As(err, &conflict) {
		return &InvalidSubmissionStateError{SubmissionID: id, Status: models.SubmissionStatus(conflict.Current), Operation: "confirm"}
	}
	return submissionError(err, id, "confirm")
}

// payloadPresent reports whether raw is a JSON object with at least one key.
func payloadPresent(raw []byte) bool {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return false
	}
	return len(obj) > 0
}
