package stores

import (
	"context"
	"errors"
	"fmt"
	"time"

	"result-verification-system/models"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// SubmissionRepository persists match result submissions.
type SubmissionRepository interface {
	Create(ctx context.Context, sub *models.Submission) error
	Get(ctx context.Context, id string) (*models.Submission, error)
	// FindActiveForMatch returns the non-terminal submission for a match, or nil.
	FindActiveForMatch(ctx context.Context, matchID string) (*models.Submission, error)
	// UpdateStatus moves a submission to `to` only if its current status is one
	// of `from`. A lost race yields a *StatusConflictError.
	UpdateStatus(ctx context.Context, id string, from []models.SubmissionStatus, to models.SubmissionStatus, change SubmissionChange) (*models.Submission, error)
	ListPending(ctx context.Context, tournamentID string) ([]models.Submission, error)
	ListOverdue(ctx context.Context, tournamentID string, now time.Time) ([]models.Submission, error)
	ListReadyForFinalization(ctx context.Context, tournamentID string) ([]models.Submission, error)
}

// SubmissionChange lists the optional columns written alongside a status change.
type SubmissionChange struct {
	At                  time.Time
	ConfirmedByUserID   *string
	AutoConfirmed       bool
	ResolvedByUserID    *string
	ResolutionNotes     *string
	FinalResultPayload  datatypes.JSON
	AutoConfirmDeadline *time.Time
}

func (c SubmissionChange) columns(to models.SubmissionStatus) map[string]interface{} {
	cols := map[string]interface{}{
		"status":     to,
		"updated_at": c.At,
	}
	switch to {
	case models.SubmissionStatusConfirmed:
		cols["confirmed_at"] = c.At
		cols["confirmed_by_user_id"] = c.ConfirmedByUserID
		cols["auto_confirmed"] = c.AutoConfirmed
	case models.SubmissionStatusFinalized, models.SubmissionStatusRejected:
		cols["resolved_at"] = c.At
		cols["resolved_by_user_id"] = c.ResolvedByUserID
	}
	if c.ResolutionNotes != nil {
		cols["resolution_notes"] = *c.ResolutionNotes
	}
	if len(c.FinalResultPayload) > 0 {
		cols["final_result_payload"] = c.FinalResultPayload
	}
	if c.AutoConfirmDeadline != nil {
		cols["auto_confirm_deadline"] = *c.AutoConfirmDeadline
	}
	return cols
}

type SubmissionStore struct {
	DB *gorm.DB
}

func NewSubmissionStore(db *gorm.DB) *SubmissionStore {
	return &SubmissionStore{DB: db}
}

func (s *SubmissionStore) Create(ctx context.Context, sub *models.Submission) error {
	if err := s.DB.WithContext(ctx).Create(sub).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrActiveSubmissionExists
		}
		return fmt.Errorf("create submission: %w", err)
	}
	return nil
}

func (s *SubmissionStore) Get(ctx context.Context, id string) (*models.Submission, error) {
	if !validID(id) {
		return nil, ErrNotFound
	}
	var sub models.Submission
	if err := s.DB.WithContext(ctx).First(&sub, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &sub, nil
}

func (s *SubmissionStore) FindActiveForMatch(ctx context.Context, matchID string) (*models.Submission, error) {
	var sub models.Submission
	err := s.DB.WithContext(ctx).
		Where("match_id = ? AND status IN ?", matchID, models.ActiveSubmissionStatuses).
		Order("submitted_at DESC").
		First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (s *SubmissionStore) UpdateStatus(ctx context.Context, id string, from []models.SubmissionStatus, to models.SubmissionStatus, change SubmissionChange) (*models.Submission, error) {
	if !validID(id) {
		return nil, ErrNotFound
	}
	db := s.DB.WithContext(ctx)
	if change.At.IsZero() {
		change.At = time.Now().UTC()
	}

	res := db.Model(&models.Submission{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(change.columns(to))
	if res.Error != nil {
		return nil, fmt.Errorf("update submission %s: %w", id, res.Error)
	}

	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if res.RowsAffected == 0 {
		return nil, &StatusConflictError{ID: id, Current: string(current.Status)}
	}
	return current, nil
}

func (s *SubmissionStore) ListPending(ctx context.Context, tournamentID string) ([]models.Submission, error) {
	return s.list(ctx, tournamentID, func(q *gorm.DB) *gorm.DB {
		return q.Where("status = ?", models.SubmissionStatusPending)
	})
}

func (s *SubmissionStore) ListOverdue(ctx context.Context, tournamentID string, now time.Time) ([]models.Submission, error) {
	return s.list(ctx, tournamentID, func(q *gorm.DB) *gorm.DB {
		return q.Where("status IN ? AND auto_confirm_deadline < ?", models.ActiveSubmissionStatuses, now)
	})
}

func (s *SubmissionStore) ListReadyForFinalization(ctx context.Context, tournamentID string) ([]models.Submission, error) {
	return s.list(ctx, tournamentID, func(q *gorm.DB) *gorm.DB {
		return q.Where("status = ?", models.SubmissionStatusConfirmed)
	})
}

func (s *SubmissionStore) list(ctx context.Context, tournamentID string, scope func(*gorm.DB) *gorm.DB) ([]models.Submission, error) {
	var subs []models.Submission
	q := scope(s.DB.WithContext(ctx).Model(&models.Submission{}))
	if tournamentID != "" {
		q = q.Where("tournament_id = ?", tournamentID)
	}
	if err := q.Order("auto_confirm_deadline ASC").Find(&subs).Error; err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	return subs, nil
}
