package workers

import (
	"context"
	"errors"
	"testing"
	"time"

	"result-verification-system/events"
	"result-verification-system/models"
	"result-verification-system/services"
	"result-verification-system/stores"
	"result-verification-system/testutil"
)

func TestDigest(t *testing.T) {
	disputeID := "d-1"
	items := []models.OrganizerReviewItem{
		{TournamentID: "tour-b", Status: models.SubmissionStatusPending, IsOverdue: true, Priority: services.PriorityOverdue},
		{TournamentID: "tour-a", Status: models.SubmissionStatusDisputed, DisputeID: &disputeID, IsOverdue: true, Priority: services.PriorityDisputed},
		{TournamentID: "tour-a", Status: models.SubmissionStatusConfirmed, Priority: services.PriorityRoutine},
		{TournamentID: "tour-c", Status: models.SubmissionStatusPending, Priority: services.PriorityStale},
	}

	got := Digest(items, testutil.Epoch)
	if len(got) != 2 {
		t.Fatalf("digests = %+v, want tour-a and tour-b", got)
	}
	a, b := got[0], got[1]
	if a.TournamentID != "tour-a" || a.Disputed != 1 || a.Overdue != 1 || a.ReadyToFinalize != 1 || a.Pending != 0 {
		t.Fatalf("tour-a = %+v", a)
	}
	if b.TournamentID != "tour-b" || b.Overdue != 1 || b.Pending != 1 || b.Disputed != 0 {
		t.Fatalf("tour-b = %+v", b)
	}
	if !a.GeneratedAt.Equal(testutil.Epoch) {
		t.Fatalf("generated at = %s", a.GeneratedAt)
	}
}

func TestOverdueSweepRunOnceIsReadOnly(t *testing.T) {
	db := testutil.NewDB(t)
	clock := testutil.NewClock()
	clock.Advance(25 * time.Hour)
	repos := stores.NewStore(db)
	pub := &testutil.RecordingPublisher{}
	inbox := services.NewInboxService(repos, clock, nil, services.InboxConfig{})
	sweep := NewOverdueSweep(inbox, pub, clock, time.Minute)

	overdue := testutil.SeedSubmission(t, db)
	testutil.SeedSubmission(t, db, func(s *models.Submission) {
		s.TournamentID = "tour-2"
		s.AutoConfirmDeadline = clock.Now().Add(time.Hour)
	})

	digests, err := sweep.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("run once: %v", err)
	}
	if len(digests) != 1 || digests[0].TournamentID != "tour-1" || digests[0].Overdue != 1 {
		t.Fatalf("digests = %+v", digests)
	}
	if topics := pub.Topics(); len(topics) != 1 || topics[0] != events.TopicAttentionDigest {
		t.Fatalf("topics = %v", topics)
	}

	got, err := repos.Submissions().Get(context.Background(), overdue.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != models.SubmissionStatusPending || !got.AutoConfirmDeadline.Equal(overdue.AutoConfirmDeadline) {
		t.Fatalf("sweep mutated submission: %+v", got)
	}
}

type failingInbox struct{}

func (failingInbox) Build(context.Context, string) ([]models.OrganizerReviewItem, error) {
	return nil, errors.New("db down")
}

func TestOverdueSweepRunOnceError(t *testing.T) {
	pub := &testutil.RecordingPublisher{}
	sweep := NewOverdueSweep(failingInbox{}, pub, testutil.NewClock(), time.Minute)

	if _, err := sweep.RunOnce(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if len(pub.Events()) != 0 {
		t.Fatalf("unexpected events %v", pub.Topics())
	}
}

func TestOverdueSweepStartStop(t *testing.T) {
	sweep := NewOverdueSweep(failingInbox{}, events.NopPublisher{}, testutil.NewClock(), time.Minute)
	if err := sweep.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := sweep.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
}
