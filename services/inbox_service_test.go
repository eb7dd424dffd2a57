package services

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"result-verification-system/models"
	"result-verification-system/stores"
	"result-verification-system/testutil"
)

func TestIsOverdueBoundary(t *testing.T) {
	deadline := testutil.Epoch
	tests := []struct {
		name   string
		status models.SubmissionStatus
		now    time.Time
		want   bool
	}{
		{"before deadline", models.SubmissionStatusPending, deadline.Add(-time.Second), false},
		{"at deadline", models.SubmissionStatusPending, deadline, false},
		{"one second past", models.SubmissionStatusPending, deadline.Add(time.Second), true},
		{"confirmed past", models.SubmissionStatusConfirmed, deadline.Add(time.Hour), true},
		{"finalized past", models.SubmissionStatusFinalized, deadline.Add(time.Hour), false},
		{"rejected past", models.SubmissionStatusRejected, deadline.Add(time.Hour), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsOverdue(tt.status, deadline, tt.now); got != tt.want {
				t.Fatalf("IsOverdue = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPriority(t *testing.T) {
	created := testutil.Epoch
	disputeID := "d-1"
	tests := []struct {
		name string
		item models.OrganizerReviewItem
		now  time.Time
		want int
	}{
		{
			name: "disputed",
			item: models.OrganizerReviewItem{Status: models.SubmissionStatusDisputed, CreatedAt: created},
			now:  created,
			want: PriorityDisputed,
		},
		{
			name: "dispute beats overdue",
			item: models.OrganizerReviewItem{Status: models.SubmissionStatusPending, DisputeID: &disputeID, IsOverdue: true, CreatedAt: created},
			now:  created,
			want: PriorityDisputed,
		},
		{
			name: "overdue",
			item: models.OrganizerReviewItem{Status: models.SubmissionStatusConfirmed, IsOverdue: true, CreatedAt: created},
			now:  created,
			want: PriorityOverdue,
		},
		{
			name: "pending exactly 12h",
			item: models.OrganizerReviewItem{Status: models.SubmissionStatusPending, CreatedAt: created},
			now:  created.Add(12 * time.Hour),
			want: PriorityRoutine,
		},
		{
			name: "pending 12h and 1s",
			item: models.OrganizerReviewItem{Status: models.SubmissionStatusPending, CreatedAt: created},
			now:  created.Add(12*time.Hour + time.Second),
			want: PriorityStale,
		},
		{
			name: "old confirmed",
			item: models.OrganizerReviewItem{Status: models.SubmissionStatusConfirmed, CreatedAt: created},
			now:  created.Add(20 * time.Hour),
			want: PriorityRoutine,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Priority(tt.item, tt.now, DefaultAttentionAge); got != tt.want {
				t.Fatalf("Priority = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestSortReviewItems(t *testing.T) {
	at := func(h int) time.Time { return testutil.Epoch.Add(time.Duration(h) * time.Hour) }
	items := []models.OrganizerReviewItem{
		{SubmissionID: "routine", Priority: 4, AutoConfirmDeadline: at(1)},
		{SubmissionID: "overdue-late", Priority: 2, AutoConfirmDeadline: at(5)},
		{SubmissionID: "disputed", Priority: 1, AutoConfirmDeadline: at(30)},
		{SubmissionID: "overdue-early", Priority: 2, AutoConfirmDeadline: at(3)},
		{SubmissionID: "tie-b", Priority: 3, AutoConfirmDeadline: at(4)},
		{SubmissionID: "tie-a", Priority: 3, AutoConfirmDeadline: at(4)},
	}
	SortReviewItems(items)

	var got []string
	for _, it := range items {
		got = append(got, it.SubmissionID)
	}
	want := "disputed,overdue-early,overdue-late,tie-a,tie-b,routine"
	if strings.Join(got, ",") != want {
		t.Fatalf("order = %v, want %s", got, want)
	}
}

type stubLinker struct{}

func (stubLinker) ViewURL(_ context.Context, ref string) (string, bool) {
	if !strings.HasPrefix(ref, "r2://") {
		return "", false
	}
	return "https://signed.example/" + strings.TrimPrefix(ref, "r2://"), true
}

func TestInboxBuild(t *testing.T) {
	db := testutil.NewDB(t)
	clock := testutil.NewClock()
	clock.Advance(30 * time.Hour)
	svc := NewInboxService(stores.NewStore(db), clock, nil, InboxConfig{})
	ctx := context.Background()

	fresh := testutil.SeedSubmission(t, db, func(s *models.Submission) {
		s.SubmittedAt = clock.Now().Add(-time.Hour)
		s.AutoConfirmDeadline = clock.Now().Add(23 * time.Hour)
	})
	stale := testutil.SeedSubmission(t, db, func(s *models.Submission) {
		s.SubmittedAt = clock.Now().Add(-13 * time.Hour)
		s.AutoConfirmDeadline = clock.Now().Add(11 * time.Hour)
	})
	overdue := testutil.SeedSubmission(t, db)
	disputed := testutil.SeedSubmission(t, db, withStatus(models.SubmissionStatusDisputed))
	d := testutil.SeedDispute(t, db, disputed)
	testutil.SeedSubmission(t, db, withStatus(models.SubmissionStatusFinalized))
	testutil.SeedSubmission(t, db, func(s *models.Submission) { s.TournamentID = "tour-2" })

	items, err := svc.Build(ctx, "tour-1")
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(items) != 4 {
		t.Fatalf("items = %d, want 4: %+v", len(items), items)
	}

	want := []struct {
		id       string
		priority int
	}{
		{disputed.ID, PriorityDisputed},
		{overdue.ID, PriorityOverdue},
		{stale.ID, PriorityStale},
		{fresh.ID, PriorityRoutine},
	}
	for i, w := range want {
		if items[i].SubmissionID != w.id || items[i].Priority != w.priority {
			t.Fatalf("items[%d] = %s/p%d, want %s/p%d", i, items[i].SubmissionID, items[i].Priority, w.id, w.priority)
		}
	}
	if items[0].DisputeID == nil || *items[0].DisputeID != d.ID || items[0].DisputeReason != "wrong-score" {
		t.Fatalf("disputed item lost its dispute: %+v", items[0])
	}
	if !items[0].IsOverdue {
		t.Fatal("disputed item past its deadline should be flagged overdue")
	}
}

func TestInboxBuildIsReadOnly(t *testing.T) {
	db := testutil.NewDB(t)
	clock := testutil.NewClock()
	clock.Advance(48 * time.Hour)
	repos := stores.NewStore(db)
	svc := NewInboxService(repos, clock, nil, InboxConfig{})
	sub := testutil.SeedSubmission(t, db)

	if _, err := svc.Build(context.Background(), ""); err != nil {
		t.Fatalf("build: %v", err)
	}
	got, err := repos.Submissions().Get(context.Background(), sub.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != models.SubmissionStatusPending || got.AutoConfirmed {
		t.Fatalf("overdue submission mutated: %+v", got)
	}
}

func TestInboxQuery(t *testing.T) {
	db := testutil.NewDB(t)
	clock := testutil.NewClock()
	svc := NewInboxService(stores.NewStore(db), clock, stubLinker{}, InboxConfig{DefaultPageSize: 2, MaxPageSize: 3})
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		testutil.SeedSubmission(t, db, func(s *models.Submission) {
			s.AutoConfirmDeadline = testutil.Epoch.Add(time.Duration(i+1) * time.Hour)
		})
	}
	withProof := testutil.SeedSubmission(t, db, func(s *models.Submission) {
		s.Status = models.SubmissionStatusDisputed
		s.ProofURL = testutil.StrPtr("r2://proofs/clip.mp4")
	})
	testutil.SeedDispute(t, db, withProof)

	page, err := svc.Query(ctx, InboxQuery{})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if page.Total != 5 || len(page.Items) != 2 || page.PageSize != 2 || page.Page != 1 {
		t.Fatalf("page = total %d, items %d, size %d, page %d", page.Total, len(page.Items), page.PageSize, page.Page)
	}
	if page.Counts[PriorityDisputed] != 1 || page.Counts[PriorityRoutine] != 4 {
		t.Fatalf("counts = %v", page.Counts)
	}
	if page.Items[0].ProofViewURL != "https://signed.example/proofs/clip.mp4" {
		t.Fatalf("proof view url = %q", page.Items[0].ProofViewURL)
	}

	page, err = svc.Query(ctx, InboxQuery{Page: 2, PageSize: 50})
	if err != nil {
		t.Fatalf("query page 2: %v", err)
	}
	if page.PageSize != 3 || len(page.Items) != 2 {
		t.Fatalf("clamped page = size %d, items %d", page.PageSize, len(page.Items))
	}

	page, err = svc.Query(ctx, InboxQuery{Page: 9})
	if err != nil || len(page.Items) != 0 || page.Total != 5 {
		t.Fatalf("out of range page = %+v, %v", page, err)
	}

	page, err = svc.Query(ctx, InboxQuery{Page: math.MaxInt64/2 + 2, PageSize: 2})
	if err != nil || len(page.Items) != 0 || page.Total != 5 {
		t.Fatalf("overflowing page = %+v, %v", page, err)
	}

	page, err = svc.Query(ctx, InboxQuery{DisputeStatus: models.DisputeStatusOpen})
	if err != nil || page.Total != 1 || page.Items[0].SubmissionID != withProof.ID {
		t.Fatalf("dispute filter = %+v, %v", page, err)
	}

	page, err = svc.Query(ctx, InboxQuery{Status: models.SubmissionStatusPending})
	if err != nil || page.Total != 4 {
		t.Fatalf("status filter = %+v, %v", page, err)
	}

	from := testutil.Epoch.Add(time.Minute)
	page, err = svc.Query(ctx, InboxQuery{DateFrom: &from})
	if err != nil || page.Total != 0 {
		t.Fatalf("date filter = %+v, %v", page, err)
	}
}

func TestInboxQueryValidation(t *testing.T) {
	svc := NewInboxService(stores.NewStore(testutil.NewDB(t)), testutil.NewClock(), nil, InboxConfig{})
	ctx := context.Background()
	from, to := testutil.Epoch, testutil.Epoch.Add(-time.Hour)

	for name, q := range map[string]InboxQuery{
		"status":         {Status: "bogus"},
		"dispute status": {DisputeStatus: "bogus"},
		"date range":     {DateFrom: &from, DateTo: &to},
	} {
		if _, err := svc.Query(ctx, q); !errors.Is(err, ErrValidation) {
			t.Fatalf("%s: err = %v, want ErrValidation", name, err)
		}
	}
}
