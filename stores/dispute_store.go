package stores

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"result-verification-system/models"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// DisputeRepository persists disputes and the verification audit trail.
type DisputeRepository interface {
	Create(ctx context.Context, d *models.Dispute) error
	Get(ctx context.Context, id string) (*models.Dispute, error)
	// GetOpenForSubmission returns the active dispute of a submission, or nil.
	GetOpenForSubmission(ctx context.Context, submissionID string) (*models.Dispute, error)
	// UpdateStatus moves an active dispute to `to`. A terminal dispute yields a
	// *DisputeClosedError; an active one outside `from` yields a *StatusConflictError.
	// A nil `from` accepts every active status.
	UpdateStatus(ctx context.Context, id string, from []models.DisputeStatus, to models.DisputeStatus, change DisputeChange) (*models.Dispute, error)
	// ListActive returns active disputes with their submission preloaded.
	ListActive(ctx context.Context, tournamentID string) ([]models.Dispute, error)
	// LogVerificationStep appends an audit entry. Callers treat it as best-effort.
	LogVerificationStep(ctx context.Context, step VerificationStep) error
}

// DisputeChange lists the optional columns written alongside a status change.
type DisputeChange struct {
	At               time.Time
	ResolvedByUserID string
	Resolution       string
	Notes            string
}

// VerificationStep is one audit trail entry.
type VerificationStep struct {
	SubmissionID string
	Step         string
	Outcome      string
	ActorID      string
	Details      map[string]interface{}
	At           time.Time
}

type DisputeStore struct {
	DB *gorm.DB
}

func NewDisputeStore(db *gorm.DB) *DisputeStore {
	return &DisputeStore{DB: db}
}

func (s *DisputeStore) Create(ctx context.Context, d *models.Dispute) error {
	if err := s.DB.WithContext(ctx).Omit("Submission").Create(d).Error; err != nil {
		return fmt.Errorf("create dispute: %w", err)
	}
	return nil
}

func (s *DisputeStore) Get(ctx context.Context, id string) (*models.Dispute, error) {
	if !validID(id) {
		return nil, ErrNotFound
	}
	var d models.Dispute
	if err := s.DB.WithContext(ctx).First(&d, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &d, nil
}

func (s *DisputeStore) GetOpenForSubmission(ctx context.Context, submissionID string) (*models.Dispute, error) {
	var d models.Dispute
	err := s.DB.WithContext(ctx).
		Where("submission_id = ? AND status IN ?", submissionID, models.ActiveDisputeStatuses).
		Order("opened_at DESC").
		First(&d).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (s *DisputeStore) UpdateStatus(ctx context.Context, id string, from []models.DisputeStatus, to models.DisputeStatus, change DisputeChange) (*models.Dispute, error) {
	if !validID(id) {
		return nil, ErrNotFound
	}
	if from == nil {
		from = models.ActiveDisputeStatuses
	}
	if change.At.IsZero() {
		change.At = time.Now().UTC()
	}

	cols := map[string]interface{}{
		"status":     to,
		"updated_at": change.At,
	}
	if to.IsTerminal() {
		cols["resolved_at"] = change.At
		cols["resolved_by_user_id"] = change.ResolvedByUserID
		cols["resolution"] = change.Resolution
	}
	if to == models.DisputeStatusEscalated {
		cols["escalated_at"] = change.At
	}
	if change.Notes != "" {
		cols["resolution_notes"] = change.Notes
	}

	// Both conditions guard the row: the caller's expected statuses, and never
	// a terminal one.
	res := s.DB.WithContext(ctx).Model(&models.Dispute{}).
		Where("id = ? AND status IN ? AND status IN ?", id, from, models.ActiveDisputeStatuses).
		Updates(cols)
	if res.Error != nil {
		return nil, fmt.Errorf("update dispute %s: %w", id, res.Error)
	}

	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if res.RowsAffected == 0 {
		if current.Status.IsTerminal() {
			return nil, &DisputeClosedError{ID: id, Status: current.Status}
		}
		return nil, &StatusConflictError{ID: id, Current: string(current.Status)}
	}
	return current, nil
}

func (s *DisputeStore) ListActive(ctx context.Context, tournamentID string) ([]models.Dispute, error) {
	var disputes []models.Dispute
	q := s.DB.WithContext(ctx).
		Preload("Submission").
		Where("disputes.status IN ?", models.ActiveDisputeStatuses)
	if tournamentID != "" {
		q = q.Joins("JOIN submissions ON submissions.id = disputes.submission_id").
			Where("submissions.tournament_id = ?", tournamentID)
	}
	if err := q.Order("disputes.opened_at ASC").Find(&disputes).Error; err != nil {
		return nil, fmt.Errorf("list active disputes: %w", err)
	}
	return disputes, nil
}

func (s *DisputeStore) LogVerificationStep(ctx context.Context, step VerificationStep) error {
	if step.At.IsZero() {
		step.At = time.Now().UTC()
	}
	entry := models.VerificationLog{
		ID:           uuid.NewString(),
		SubmissionID: step.SubmissionID,
		Step:         step.Step,
		Outcome:      step.Outcome,
		ActorID:      step.ActorID,
		Details:      datatypes.JSONMap(step.Details),
		CreatedAt:    step.At,
	}
	if err := s.DB.WithContext(ctx).Create(&entry).Error; err != nil {
		log.Printf("[Audit] failed to log %s for submission %s: %v", step.Step, step.SubmissionID, err)
		return fmt.Errorf("log verification step: %w", err)
	}
	return nil
}

// ListVerificationSteps returns the audit trail of a submission, oldest first.
func (s *DisputeStore) ListVerificationSteps(ctx context.Context, submissionID string) ([]models.VerificationLog, error) {
	var entries []models.VerificationLog
	err := s.DB.WithContext(ctx).
		Where("submission_id = ?", submissionID).
		Order("created_at ASC").
		Find(&entries).Error
	return entries, err
}
