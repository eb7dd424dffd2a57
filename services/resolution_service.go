package services

import (
	"context"
	"errors"
	"log"
	"sort"
	"time"

	"result-verification-system/events"
	"result-verification-system/models"
	"result-verification-system/stores"

	"github.com/jonboulle/clockwork"
	"gorm.io/datatypes"
)

// DefaultAutoConfirmWindow is how long the opponent has to react to a submission.
const DefaultAutoConfirmWindow = 24 * time.Hour

// ResolutionConfig tunes the resolution engine.
type ResolutionConfig struct {
	AutoConfirmWindow time.Duration
	// DismissResetsDeadline restarts the confirmation window when a dispute
	// is dismissed. When false the original deadline stays in place.
	DismissResetsDeadline bool
	DefaultRating         int
}

// RatingChange is one team's rating movement caused by a finalization.
type RatingChange struct {
	TeamID string `json:"team_id"`
	GameID string `json:"game_id"`
	Before int    `json:"before"`
	After  int    `json:"after"`
	Delta  int    `json:"delta"`
}

// DisputeOutcome is what ResolveDispute changed.
type DisputeOutcome struct {
	Resolution    ResolutionKind     `json:"resolution"`
	Dispute       *models.Dispute    `json:"dispute"`
	Submission    *models.Submission `json:"submission"`
	RatingChanges []RatingChange     `json:"rating_changes,omitempty"`
}

// BulkFailure is one item of a bulk action that did not go through.
type BulkFailure struct {
	ID    string `json:"id"`
	Error string `json:"error"`
	Code  string `json:"code"`
}

// BulkResult reports a bulk action. Items succeed or fail independently.
type BulkResult struct {
	ProcessedCount int           `json:"processed"`
	Succeeded      []string      `json:"succeeded"`
	Failed         []BulkFailure `json:"failed"`
}

// ResolutionService owns the finalize, reject and dispute resolution
// transitions. Every transition is a conditional update on the current
// status, so concurrent organizer actions cannot both succeed.
type ResolutionService struct {
	repos     stores.Repositories
	rating    RatingEngine
	publisher events.Publisher
	clock     clockwork.Clock
	cfg       ResolutionConfig
}

func NewResolutionService(repos stores.Repositories, rating RatingEngine, publisher events.Publisher, clock clockwork.Clock, cfg ResolutionConfig) *ResolutionService {
	if cfg.AutoConfirmWindow <= 0 {
		cfg.AutoConfirmWindow = DefaultAutoConfirmWindow
	}
	if cfg.DefaultRating <= 0 {
		cfg.DefaultRating = DefaultRating
	}
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &ResolutionService{repos: repos, rating: rating, publisher: publisher, clock: clock, cfg: cfg}
}

// FinalizeSubmission approves the submitter's claim. Legal only from
// confirmed or disputed; an active dispute is resolved for the submitter.
func (s *ResolutionService) FinalizeSubmission(ctx context.Context, id, resolvedByUserID string) (*models.Submission, error) {
	if resolvedByUserID == "" {
		return nil, &ValidationError{Field: "resolved_by_user_id", Message: "is required"}
	}
	sub, err := s.loadSubmission(ctx, id)
	if err != nil {
		return nil, err
	}
	if sub.Status != models.SubmissionStatusConfirmed && sub.Status != models.SubmissionStatusDisputed {
		return nil, &InvalidSubmissionStateError{SubmissionID: id, Status: sub.Status, Operation: "finalize"}
	}

	now := s.clock.Now().UTC()
	var (
		updated *models.Submission
		closed  *models.Dispute
		changes []RatingChange
	)
	err = s.repos.Atomic(ctx, func(tx stores.Repositories) error {
		open, err := tx.Disputes().GetOpenForSubmission(ctx, id)
		if err != nil {
			return err
		}
		if open != nil {
			closed, err = tx.Disputes().UpdateStatus(ctx, open.ID, nil, models.DisputeStatusResolvedForSubmitter, stores.DisputeChange{
				At:               now,
				ResolvedByUserID: resolvedByUserID,
				Resolution:       string(ResolutionApproveOriginal),
			})
			if err != nil {
				return disputeError(err, open.ID)
			}
		}
		updated, changes, err = s.finalizeTx(ctx, tx, sub, []models.SubmissionStatus{
			models.SubmissionStatusConfirmed,
			models.SubmissionStatusDisputed,
		}, sub.RawResultPayload, resolvedByUserID, "finalize", now)
		return err
	})
	if err != nil {
		s.audit(ctx, id, "finalized", "failure", resolvedByUserID, map[string]interface{}{"error": err.Error()})
		return nil, err
	}

	details := map[string]interface{}{"rating_changes": len(changes)}
	if closed != nil {
		details["dispute_id"] = closed.ID
	}
	s.audit(ctx, id, "finalized", "success", resolvedByUserID, details)
	log.Printf("[Resolution] submission %s finalized by %s (match %s)", id, resolvedByUserID, updated.MatchID)

	if closed != nil {
		s.publishDisputeResolved(ctx, closed, updated, string(ResolutionApproveOriginal))
	}
	s.publishFinalized(ctx, updated)
	return updated, nil
}

// RejectSubmission denies a submission. Legal from pending, confirmed and
// disputed; an active dispute is resolved for the opponent.
func (s *ResolutionService) RejectSubmission(ctx context.Context, id, resolvedByUserID, notes string) (*models.Submission, error) {
	if resolvedByUserID == "" {
		return nil, &ValidationError{Field: "resolved_by_user_id", Message: "is required"}
	}
	sub, err := s.loadSubmission(ctx, id)
	if err != nil {
		return nil, err
	}
	if sub.Status.IsTerminal() {
		return nil, &InvalidSubmissionStateError{SubmissionID: id, Status: sub.Status, Operation: "reject"}
	}

	now := s.clock.Now().UTC()
	var (
		updated *models.Submission
		closed  *models.Dispute
	)
	err = s.repos.Atomic(ctx, func(tx stores.Repositories) error {
		open, err := tx.Disputes().GetOpenForSubmission(ctx, id)
		if err != nil {
			return err
		}
		if open != nil {
			closed, err = tx.Disputes().UpdateStatus(ctx, open.ID, nil, models.DisputeStatusResolvedForOpponent, stores.DisputeChange{
				At:               now,
				ResolvedByUserID: resolvedByUserID,
				Resolution:       "rejected",
				Notes:            notes,
			})
			if err != nil {
				return disputeError(err, open.ID)
			}
		}
		updated, err = tx.Submissions().UpdateStatus(ctx, id, models.ActiveSubmissionStatuses, models.SubmissionStatusRejected, stores.SubmissionChange{
			At:               now,
			ResolvedByUserID: &resolvedByUserID,
			ResolutionNotes:  &notes,
		})
		if err != nil {
			return submissionError(err, id, "reject")
		}
		return nil
	})
	if err != nil {
		s.audit(ctx, id, "rejected", "failure", resolvedByUserID, map[string]interface{}{"error": err.Error()})
		return nil, err
	}

	s.audit(ctx, id, "rejected", "success", resolvedByUserID, map[string]interface{}{"notes": notes})
	log.Printf("[Resolution] submission %s rejected by %s", id, resolvedByUserID)

	if closed != nil {
		s.publishDisputeResolved(ctx, closed, updated, "rejected")
	}
	s.publish(ctx, events.MatchResultRejectedEvent{
		SubmissionID:     updated.ID,
		MatchID:          updated.MatchID,
		TournamentID:     updated.TournamentID,
		ResolvedByUserID: resolvedByUserID,
		Notes:            notes,
		RejectedAt:       now,
	})
	return updated, nil
}

// ResolveDispute closes an active dispute with one of the four strategies.
func (s *ResolutionService) ResolveDispute(ctx context.Context, disputeID, resolvedByUserID string, r Resolution) (*DisputeOutcome, error) {
	if resolvedByUserID == "" {
		return nil, &ValidationError{Field: "resolved_by_user_id", Message: "is required"}
	}
	if r == nil {
		return nil, &ValidationError{Field: "resolution_type", Message: "is required"}
	}
	d, err := s.repos.Disputes().Get(ctx, disputeID)
	if err != nil {
		return nil, disputeError(err, disputeID)
	}
	if d.Status.IsTerminal() {
		return nil, &DisputeAlreadyResolvedError{DisputeID: d.ID, Status: d.Status}
	}
	if err := r.Validate(d); err != nil {
		return nil, err
	}
	sub, err := s.loadSubmission(ctx, d.SubmissionID)
	if err != nil {
		return nil, err
	}
	if sub.Status.IsTerminal() {
		return nil, &InvalidSubmissionStateError{SubmissionID: sub.ID, Status: sub.Status, Operation: "resolve dispute on"}
	}

	now := s.clock.Now().UTC()
	notes := resolutionNotes(r)

	var (
		disputeStatus models.DisputeStatus
		payload       datatypes.JSON
	)
	switch v := r.(type) {
	case ApproveOriginal:
		disputeStatus, payload = models.DisputeStatusResolvedForSubmitter, sub.RawResultPayload
	case ApproveDispute:
		disputeStatus, payload = models.DisputeStatusResolvedForOpponent, d.DisputedResultPayload
	case CustomResult:
		disputeStatus, payload = models.DisputeStatusResolvedForOpponent, v.Payload
	case DismissDispute:
		disputeStatus = models.DisputeStatusDismissed
	}

	out := &DisputeOutcome{Resolution: r.Kind()}
	err = s.repos.Atomic(ctx, func(tx stores.Repositories) error {
		closed, err := tx.Disputes().UpdateStatus(ctx, d.ID, nil, disputeStatus, stores.DisputeChange{
			At:               now,
			ResolvedByUserID: resolvedByUserID,
			Resolution:       string(r.Kind()),
			Notes:            notes,
		})
		if err != nil {
			return disputeError(err, d.ID)
		}
		out.Dispute = closed

		if _, dismissed := r.(DismissDispute); dismissed {
			out.Submission, err = s.reopenTx(ctx, tx, sub, now)
			return err
		}
		out.Submission, out.RatingChanges, err = s.finalizeTx(ctx, tx, sub, models.ActiveSubmissionStatuses,
			payload, resolvedByUserID, "resolve dispute on", now)
		return err
	})
	if err != nil {
		s.audit(ctx, sub.ID, "dispute_resolved", "failure", resolvedByUserID, map[string]interface{}{
			"dispute_id": d.ID,
			"resolution": string(r.Kind()),
			"error":      err.Error(),
		})
		return nil, err
	}

	s.audit(ctx, sub.ID, "dispute_resolved", "success", resolvedByUserID, map[string]interface{}{
		"dispute_id": d.ID,
		"resolution": string(r.Kind()),
		"notes":      notes,
	})
	log.Printf("[Resolution] dispute %s resolved (%s) by %s → submission %s",
		d.ID, r.Kind(), resolvedByUserID, out.Submission.Status)

	s.publishDisputeResolved(ctx, out.Dispute, out.Submission, string(r.Kind()))
	if out.Submission.Status == models.SubmissionStatusFinalized {
		s.publishFinalized(ctx, out.Submission)
	}
	return out, nil
}

// MarkUnderReview records that an organizer picked up an open dispute.
func (s *ResolutionService) MarkUnderReview(ctx context.Context, disputeID, organizerID string) (*models.Dispute, error) {
	return s.moveDispute(ctx, disputeID, organizerID, "",
		[]models.DisputeStatus{models.DisputeStatusOpen}, models.DisputeStatusUnderReview)
}

// EscalateDispute hands a dispute to a higher authority.
func (s *ResolutionService) EscalateDispute(ctx context.Context, disputeID, organizerID, notes string) (*models.Dispute, error) {
	return s.moveDispute(ctx, disputeID, organizerID, notes,
		[]models.DisputeStatus{models.DisputeStatusOpen, models.DisputeStatusUnderReview}, models.DisputeStatusEscalated)
}

func (s *ResolutionService) moveDispute(ctx context.Context, disputeID, organizerID, notes string, from []models.DisputeStatus, to models.DisputeStatus) (*models.Dispute, error) {
	if organizerID == "" {
		return nil, &ValidationError{Field: "organizer_id", Message: "is required"}
	}
	d, err := s.repos.Disputes().UpdateStatus(ctx, disputeID, from, to, stores.DisputeChange{
		At:    s.clock.Now().UTC(),
		Notes: notes,
	})
	if err != nil {
		return nil, disputeError(err, disputeID)
	}
	s.audit(ctx, d.SubmissionID, "dispute_"+string(to), "success", organizerID, map[string]interface{}{"dispute_id": d.ID})
	return d, nil
}

// BulkFinalize finalizes each submission independently.
func (s *ResolutionService) BulkFinalize(ctx context.Context, ids []string, resolvedByUserID string) BulkResult {
	return s.bulk(ids, func(id string) error {
		_, err := s.FinalizeSubmission(ctx, id, resolvedByUserID)
		return err
	})
}

// BulkReject rejects each submission independently.
func (s *ResolutionService) BulkReject(ctx context.Context, ids []string, resolvedByUserID, notes string) BulkResult {
	return s.bulk(ids, func(id string) error {
		_, err := s.RejectSubmission(ctx, id, resolvedByUserID, notes)
		return err
	})
}

func (s *ResolutionService) bulk(ids []string, apply func(id string) error) BulkResult {
	res := BulkResult{Succeeded: []string{}, Failed: []BulkFailure{}}
	for _, id := range ids {
		if err := apply(id); err != nil {
			res.Failed = append(res.Failed, BulkFailure{ID: id, Error: err.Error(), Code: ErrorCode(err)})
			continue
		}
		res.Succeeded = append(res.Succeeded, id)
	}
	res.ProcessedCount = len(res.Succeeded)
	log.Printf("[Resolution] bulk action: %d succeeded, %d failed", len(res.Succeeded), len(res.Failed))
	return res
}

// finalizeTx finalizes sub with payload as the winning result and applies
// the rating update in the same transaction. The conditional update is the
// idempotency boundary: ratings only move when it succeeds.
func (s *ResolutionService) finalizeTx(ctx context.Context, tx stores.Repositories, sub *models.Submission, from []models.SubmissionStatus, payload datatypes.JSON, resolvedByUserID, op string, now time.Time) (*models.Submission, []RatingChange, error) {
	updated, err := tx.Submissions().UpdateStatus(ctx, sub.ID, from, models.SubmissionStatusFinalized, stores.SubmissionChange{
		At:                 now,
		ResolvedByUserID:   &resolvedByUserID,
		FinalResultPayload: payload,
	})
	if err != nil {
		return nil, nil, submissionError(err, sub.ID, op)
	}
	changes, err := s.applyRatings(ctx, tx, updated)
	if err != nil {
		return nil, nil, err
	}
	return updated, changes, nil
}

// reopenTx sends a submission whose dispute was dismissed back to pending.
func (s *ResolutionService) reopenTx(ctx context.Context, tx stores.Repositories, sub *models.Submission, now time.Time) (*models.Submission, error) {
	change := stores.SubmissionChange{At: now}
	if s.cfg.DismissResetsDeadline {
		deadline := now.Add(s.cfg.AutoConfirmWindow)
		change.AutoConfirmDeadline = &deadline
	}
	updated, err := tx.Submissions().UpdateStatus(ctx, sub.ID, models.ActiveSubmissionStatuses, models.SubmissionStatusPending, change)
	if err != nil {
		return nil, submissionError(err, sub.ID, "reopen")
	}
	return updated, nil
}

func (s *ResolutionService) applyRatings(ctx context.Context, tx stores.Repositories, sub *models.Submission) ([]RatingChange, error) {
	if sub.GameID == "" || sub.SubmittedByTeamID == nil || sub.OpponentTeamID == nil {
		log.Printf("[Resolution] submission %s has no game/team pairing, ratings unchanged", sub.ID)
		return nil, nil
	}
	teamA, teamB := *sub.SubmittedByTeamID, *sub.OpponentTeamID
	outcome, ok := ParseOutcome(sub.FinalResultPayload, teamA, teamB)
	if !ok {
		log.Printf("⚠️ [Resolution] submission %s result names no winner for %s vs %s, ratings unchanged", sub.ID, teamA, teamB)
		return nil, nil
	}

	// Lock rows in a fixed order so two finalizations touching the same
	// teams cannot deadlock.
	ids := []string{teamA, teamB}
	sort.Strings(ids)
	rows := make(map[string]*models.TeamRanking, 2)
	for _, id := range ids {
		r, err := tx.Rankings().GetOrCreateForUpdate(ctx, id, sub.GameID, s.cfg.DefaultRating)
		if err != nil {
			return nil, err
		}
		rows[id] = r
	}

	a, b := rows[teamA], rows[teamB]
	beforeA, beforeB := a.EloRating, b.EloRating
	deltaA := s.rating.UpdateElo(a, beforeB, outcome)
	deltaB := s.rating.UpdateElo(b, beforeA, outcome.Invert())
	if err := tx.Rankings().Save(ctx, a); err != nil {
		return nil, err
	}
	if err := tx.Rankings().Save(ctx, b); err != nil {
		return nil, err
	}
	return []RatingChange{
		{TeamID: teamA, GameID: sub.GameID, Before: beforeA, After: a.EloRating, Delta: deltaA},
		{TeamID: teamB, GameID: sub.GameID, Before: beforeB, After: b.EloRating, Delta: deltaB},
	}, nil
}

func (s *ResolutionService) loadSubmission(ctx context.Context, id string) (*models.Submission, error) {
	sub, err := s.repos.Submissions().Get(ctx, id)
	if err != nil {
		if errors.Is(err, stores.ErrNotFound) {
			return nil, &NotFoundError{Entity: "submission", ID: id}
		}
		return nil, err
	}
	return sub, nil
}

// audit writes a verification step. It never fails the caller.
func (s *ResolutionService) audit(ctx context.Context, submissionID, step, outcome, actorID string, details map[string]interface{}) {
	writeAudit(ctx, s.repos, s.clock, submissionID, step, outcome, actorID, details)
}

func (s *ResolutionService) publish(ctx context.Context, event events.Event) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		log.Printf("❌ [Resolution] publish %s failed: %v", event.Topic(), err)
	}
}

func (s *ResolutionService) publishFinalized(ctx context.Context, sub *models.Submission) {
	resolvedBy := ""
	if sub.ResolvedByUserID != nil {
		resolvedBy = *sub.ResolvedByUserID
	}
	finalizedAt := s.clock.Now().UTC()
	if sub.ResolvedAt != nil {
		finalizedAt = *sub.ResolvedAt
	}
	s.publish(ctx, events.MatchResultFinalizedEvent{
		SubmissionID:     sub.ID,
		MatchID:          sub.MatchID,
		TournamentID:     sub.TournamentID,
		StageID:          sub.StageID,
		ResolvedByUserID: resolvedBy,
		FinalResult:      []byte(sub.FinalResultPayload),
		FinalizedAt:      finalizedAt,
	})
}

func (s *ResolutionService) publishDisputeResolved(ctx context.Context, d *models.Dispute, sub *models.Submission, kind string) {
	resolvedBy := ""
	if d.ResolvedByUserID != nil {
		resolvedBy = *d.ResolvedByUserID
	}
	resolvedAt := s.clock.Now().UTC()
	if d.ResolvedAt != nil {
		resolvedAt = *d.ResolvedAt
	}
	s.publish(ctx, events.DisputeResolvedEvent{
		DisputeID:        d.ID,
		SubmissionID:     sub.ID,
		MatchID:          sub.MatchID,
		TournamentID:     sub.TournamentID,
		Resolution:       kind,
		DisputeStatus:    string(d.Status),
		SubmissionStatus: string(sub.Status),
		ResolvedByUserID: resolvedBy,
		ResolvedAt:       resolvedAt,
	})
}

func writeAudit(ctx context.Context, repos stores.Repositories, clock clockwork.Clock, submissionID, step, outcome, actorID string, details map[string]interface{}) {
	err := repos.Disputes().LogVerificationStep(ctx, stores.VerificationStep{
		SubmissionID: submissionID,
		Step:         step,
		Outcome:      outcome,
		ActorID:      actorID,
		Details:      details,
		At:           clock.Now().UTC(),
	})
	if err != nil {
		log.Printf("⚠️ [Audit] step %s for submission %s not recorded: %v", step, submissionID, err)
	}
}

func submissionError(err error, id, op string) error {
	var conflict *stores.StatusConflictError
	if errors.As(err, &conflict) {
		status := models.SubmissionStatus(conflict.Current)
		if status.IsTerminal() {
			return &InvalidSubmissionStateError{SubmissionID: id, Status: status, Operation: op}
		}
		return &ConflictError{Entity: "submission", ID: id, Current: conflict.Current}
	}
	if errors.Is(err, stores.ErrNotFound) {
		return &NotFoundError{Entity: "submission", ID: id}
	}
	return err
}

func disputeError(err error, id string) error {
	var closed *stores.DisputeClosedError
	if errors.As(err, &closed) {
		return &DisputeAlreadyResolvedError{DisputeID: id, Status: closed.Status}
	}
	var conflict *stores.StatusConflictError
	if errors.As(err, &conflict) {
		return &ConflictError{Entity: "dispute", ID: id, Current: conflict.Current}
	}
	if errors.Is(err, stores.ErrNotFound) {
		return &NotFoundError{Entity: "dispute", ID: id}
	}
	return err
}
