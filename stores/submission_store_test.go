package stores_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"result-verification-system/models"
	"result-verification-system/stores"
	"result-verification-system/testutil"

	"github.com/google/uuid"
)

func TestSubmissionStoreGetNotFound(t *testing.T) {
	db := testutil.NewDB(t)
	repo := stores.NewSubmissionStore(db)

	_, err := repo.Get(context.Background(), "missing")
	if !errors.Is(err, stores.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSubmissionStoreUpdateStatusConditional(t *testing.T) {
	db := testutil.NewDB(t)
	repo := stores.NewSubmissionStore(db)
	ctx := context.Background()
	sub := testutil.SeedSubmission(t, db, func(s *models.Submission) {
		s.Status = models.SubmissionStatusConfirmed
	})

	at := testutil.Epoch.Add(time.Hour)
	updated, err := repo.UpdateStatus(ctx, sub.ID,
		[]models.SubmissionStatus{models.SubmissionStatusConfirmed},
		models.SubmissionStatusFinalized,
		stores.SubmissionChange{At: at, ResolvedByUserID: testutil.StrPtr("org-1")})
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if updated.Status != models.SubmissionStatusFinalized {
		t.Fatalf("expected finalized, got %s", updated.Status)
	}
	if updated.ResolvedByUserID == nil || *updated.ResolvedByUserID != "org-1" {
		t.Fatalf("expected resolved_by org-1, got %v", updated.ResolvedByUserID)
	}
	if updated.ResolvedAt == nil || !updated.ResolvedAt.Equal(at) {
		t.Fatalf("expected resolved_at %v, got %v", at, updated.ResolvedAt)
	}

	// A second writer still expecting "confirmed" loses the race.
	_, err = repo.UpdateStatus(ctx, sub.ID,
		[]models.SubmissionStatus{models.SubmissionStatusConfirmed},
		models.SubmissionStatusRejected,
		stores.SubmissionChange{At: at})
	var conflict *stores.StatusConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected StatusConflictError, got %v", err)
	}
	if conflict.Current != string(models.SubmissionStatusFinalized) {
		t.Fatalf("expected current finalized, got %s", conflict.Current)
	}
	if !errors.Is(err, stores.ErrStatusConflict) {
		t.Fatal("expected error to match ErrStatusConflict")
	}
}

func TestSubmissionStoreUpdateStatusMissing(t *testing.T) {
	db := testutil.NewDB(t)
	repo := stores.NewSubmissionStore(db)

	_, err := repo.UpdateStatus(context.Background(), "missing",
		models.ActiveSubmissionStatuses, models.SubmissionStatusRejected, stores.SubmissionChange{})
	if !errors.Is(err, stores.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSubmissionStoreListings(t *testing.T) {
	db := testutil.NewDB(t)
	repo := stores.NewSubmissionStore(db)
	ctx := context.Background()

	pending := testutil.SeedSubmission(t, db)
	confirmed := testutil.SeedSubmission(t, db, func(s *models.Submission) {
		s.Status = models.SubmissionStatusConfirmed
	})
	overdue := testutil.SeedSubmission(t, db, func(s *models.Submission) {
		s.AutoConfirmDeadline = testutil.Epoch.Add(-time.Minute)
	})
	testutil.SeedSubmission(t, db, func(s *models.Submission) {
		s.Status = models.SubmissionStatusFinalized
		s.AutoConfirmDeadline = testutil.Epoch.Add(-time.Hour)
	})
	otherTournament := testutil.SeedSubmission(t, db, func(s *models.Submission) {
		s.TournamentID = "tour-2"
	})

	got, err := repo.ListPending(ctx, "tour-1")
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	assertIDs(t, got, overdue.ID, pending.ID)

	got, err = repo.ListPending(ctx, "")
	if err != nil {
		t.Fatalf("list pending all: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 pending across tournaments, got %d", len(got))
	}

	got, err = repo.ListOverdue(ctx, "tour-1", testutil.Epoch)
	if err != nil {
		t.Fatalf("list overdue: %v", err)
	}
	assertIDs(t, got, overdue.ID)

	got, err = repo.ListReadyForFinalization(ctx, "tour-1")
	if err != nil {
		t.Fatalf("list ready: %v", err)
	}
	assertIDs(t, got, confirmed.ID)

	got, err = repo.ListPending(ctx, "tour-2")
	if err != nil {
		t.Fatalf("list pending tour-2: %v", err)
	}
	assertIDs(t, got, otherTournament.ID)
}

func TestSubmissionStoreFindActiveForMatch(t *testing.T) {
	db := testutil.NewDB(t)
	repo := stores.NewSubmissionStore(db)
	ctx := context.Background()

	old := testutil.SeedSubmission(t, db, func(s *models.Submission) {
		s.MatchID = "match-50"
		s.Status = models.SubmissionStatusRejected
	})
	active := testutil.SeedSubmission(t, db, func(s *models.Submission) {
		s.MatchID = "match-50"
	})

	got, err := repo.FindActiveForMatch(ctx, "match-50")
	if err != nil {
		t.Fatalf("find active: %v", err)
	}
	if got == nil || got.ID != active.ID {
		t.Fatalf("expected active %s, got %+v (rejected was %s)", active.ID, got, old.ID)
	}

	got, err = repo.FindActiveForMatch(ctx, "match-51")
	if err != nil {
		t.Fatalf("find active none: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil, got %+v", got)
	}
}

func assertIDs(t *testing.T, subs []models.Submission, want ...string) {
	t.Helper()
	if len(subs) != len(want) {
		t.Fatalf("expected %d submissions, got %d", len(want), len(subs))
	}
	for i, id := range want {
		if subs[i].ID != id {
			t.Fatalf("position %d: expected %s, got %s", i, id, subs[i].ID)
		}
	}
}

func TestSubmissionStoreCreateSecondActive(t *testing.T) {
	db := testutil.NewDB(t)
	repo := stores.NewSubmissionStore(db)
	ctx := context.Background()

	first := testutil.SeedSubmission(t, db, func(s *models.Submission) { s.MatchID = "match-60" })

	second := *first
	second.ID = uuid.NewString()
	if err := repo.Create(ctx, &second); !errors.Is(err, stores.ErrActiveSubmissionExists) {
		t.Fatalf("second active create err = %v, want ErrActiveSubmissionExists", err)
	}

	testutil.SeedSubmission(t, db, func(s *models.Submission) {
		s.MatchID = "match-60"
		s.Status = models.SubmissionStatusRejected
	})
}
