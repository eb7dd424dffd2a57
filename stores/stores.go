// Package stores persists submissions, disputes, rankings and the
// verification audit trail through gorm.
package stores

import (
	"context"
	"errors"
	"fmt"

	"result-verification-system/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned when the requested row does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrStatusConflict is returned when a conditional status update matched no row
	// because the current status is not one of the expected ones.
	ErrStatusConflict = errors.New("status changed concurrently")
	// ErrDisputeClosed is returned when a dispute update targets a terminal dispute.
	ErrDisputeClosed = errors.New("dispute already closed")
	// ErrActiveSubmissionExists is returned when a match already has a
	// submission that is neither finalized nor rejected.
	ErrActiveSubmissionExists = errors.New("match already has an active submission")
)

// StatusConflictError carries the status observed after a failed conditional update.
type StatusConflictError struct {
	ID      string
	Current string
}

func (e *StatusConflictError) Error() string {
	return fmt.Sprintf("status of %s is %q", e.ID, e.Current)
}

func (e *StatusConflictError) Unwrap() error { return ErrStatusConflict }

// DisputeClosedError reports the terminal status a dispute was found in.
type DisputeClosedError struct {
	ID     string
	Status models.DisputeStatus
}

func (e *DisputeClosedError) Error() string {
	return fmt.Sprintf("dispute %s already %s", e.ID, e.Status)
}

func (e *DisputeClosedError) Unwrap() error { return ErrDisputeClosed }

// Repositories groups the repositories so callers can run them inside one
// transaction.
type Repositories interface {
	Submissions() SubmissionRepository
	Disputes() DisputeRepository
	Rankings() RankingRepository
	// Atomic runs fn inside a database transaction. Repositories handed to fn
	// share that transaction.
	Atomic(ctx context.Context, fn func(Repositories) error) error
}

// Store is the gorm-backed Repositories implementation.
type Store struct {
	DB *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{DB: db}
}

func (s *Store) Submissions() SubmissionRepository { return &SubmissionStore{DB: s.DB} }

func (s *Store) Disputes() DisputeRepository { return &DisputeStore{DB: s.DB} }

func (s *Store) Rankings() RankingRepository { return &RankingStore{DB: s.DB} }

func (s *Store) Atomic(ctx context.Context, fn func(Repositories) error) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{DB: tx})
	})
}

// Migrate creates or updates every table owned by this service.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Submission{},
		&models.Dispute{},
		&models.TeamRanking{},
		&models.VerificationLog{},
	)
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// validID reports whether id can name a row. IDs are UUIDs; anything else
// cannot exist and is not worth a round trip.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
