package testutil

import (
	"context"
	"testing"
	"time"

	"result-verification-system/models"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Epoch is the fixed start time used by fake clocks in tests.
var Epoch = time.Date(2026, time.March, 14, 9, 0, 0, 0, time.UTC)

// NewClock returns a fake clock set to Epoch.
func NewClock() *clockwork.FakeClock {
	return clockwork.NewFakeClockAt(Epoch)
}

// StrPtr returns a pointer to s.
func StrPtr(s string) *string { return &s }

// SeedSubmission inserts a pending submission submitted at Epoch with a 24h
// deadline. opts may adjust the row before insert.
func SeedSubmission(t testing.TB, db *gorm.DB, opts ...func(*models.Submission)) *models.Submission {
	t.Helper()

	sub := &models.Submission{
		ID:                  uuid.NewString(),
		MatchID:             uuid.NewString(),
		TournamentID:        "tour-1",
		GameID:              "game-1",
		SubmittedByUserID:   "user-a",
		SubmittedByTeamID:   StrPtr("team-a"),
		OpponentTeamID:      StrPtr("team-b"),
		RawResultPayload:    datatypes.JSON(`{"winner_team_id":"team-a","score":"2-1"}`),
		Status:              models.SubmissionStatusPending,
		SubmittedAt:         Epoch,
		AutoConfirmDeadline: Epoch.Add(24 * time.Hour),
		Timestamps:          models.Timestamps{CreatedAt: Epoch, UpdatedAt: Epoch},
	}
	for _, opt := range opts {
		opt(sub)
	}
	if err := db.WithContext(context.Background()).Create(sub).Error; err != nil {
		t.Fatalf("seed submission: %v", err)
	}
	return sub
}

// SeedDispute inserts an open dispute against sub.
func SeedDispute(t testing.TB, db *gorm.DB, sub *models.Submission, opts ...func(*models.Dispute)) *models.Dispute {
	t.Helper()

	d := &models.Dispute{
		ID:             uuid.NewString(),
		SubmissionID:   sub.ID,
		OpenedByUserID: "user-b",
		OpenedByTeamID: StrPtr("team-b"),
		ReasonCode:     "wrong-score",
		Description:    "score was reversed",
		Status:         models.DisputeStatusOpen,
		OpenedAt:       sub.SubmittedAt.Add(time.Hour),
		UpdatedAt:      sub.SubmittedAt.Add(time.Hour),
	}
	for _, opt := range opts {
		opt(d)
	}
	if err := db.Omit("Submission").Create(d).Error; err != nil {
		t.Fatalf("seed dispute: %v", err)
	}
	return d
}
