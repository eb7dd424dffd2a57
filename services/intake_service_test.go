package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"result-verification-system/models"
	"result-verification-system/stores"
	"result-verification-system/testutil"
)

func newIntake(t *testing.T) (*IntakeService, *stores.Store) {
	t.Helper()
	repos := stores.NewStore(testutil.NewDB(t))
	return NewIntakeService(repos, testutil.NewClock(), ResolutionConfig{AutoConfirmWindow: 24 * time.Hour}), repos
}

func validSubmission() SubmitResultInput {
	return SubmitResultInput{
		MatchID:           "match-7",
		TournamentID:      "tour-1",
		GameID:            "game-1",
		SubmittedByUserID: "user-a",
		SubmittedByTeamID: testutil.StrPtr("team-a"),
		OpponentTeamID:    testutil.StrPtr("team-b"),
		Result:            json.RawMessage(`{"winner_team_id":"team-a"}`),
	}
}

func TestSubmitResult(t *testing.T) {
	svc, _ := newIntake(t)
	ctx := context.Background()

	sub, err := svc.SubmitResult(ctx, validSubmission())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if sub.Status != models.SubmissionStatusPending {
		t.Fatalf("status = %s", sub.Status)
	}
	if want := testutil.Epoch.Add(24 * time.Hour); !sub.AutoConfirmDeadline.Equal(want) {
		t.Fatalf("deadline = %s, want %s", sub.AutoConfirmDeadline, want)
	}

	_, err = svc.SubmitResult(ctx, validSubmission())
	if !errors.Is(err, ErrInvalidSubmissionState) {
		t.Fatalf("duplicate submit err = %v, want ErrInvalidSubmissionState", err)
	}
}

// staleRepos hides active submissions from FindActiveForMatch, as a submit
// racing another one for the same match would see.
type staleRepos struct{ *stores.Store }

func (r staleRepos) Submissions() stores.SubmissionRepository {
	return staleSubmissions{r.Store.Submissions()}
}

func (r staleRepos) Atomic(ctx context.Context, fn func(stores.Repositories) error) error {
	return r.Store.Atomic(ctx, func(tx stores.Repositories) error {
		return fn(staleRepos{tx.(*stores.Store)})
	})
}

type staleSubmissions struct{ stores.SubmissionRepository }

func (staleSubmissions) FindActiveForMatch(context.Context, string) (*models.Submission, error) {
	return nil, nil
}

func TestSubmitResultConcurrentDuplicate(t *testing.T) {
	repos := stores.NewStore(testutil.NewDB(t))
	ctx := context.Background()
	cfg := ResolutionConfig{AutoConfirmWindow: 24 * time.Hour}

	first, err := NewIntakeService(repos, testutil.NewClock(), cfg).SubmitResult(ctx, validSubmission())
	if err != nil {
		t.Fatalf("first submit: %v", err)
	}

	racing := NewIntakeService(staleRepos{repos}, testutil.NewClock(), cfg)
	_, err = racing.SubmitResult(ctx, validSubmission())
	var state *InvalidSubmissionStateError
	if !errors.As(err, &state) {
		t.Fatalf("racing submit err = %v, want InvalidSubmissionStateError", err)
	}
	if state.Operation != "replace" {
		t.Fatalf("state = %+v", state)
	}

	got, err := repos.Submissions().Get(ctx, first.ID)
	if err != nil || got.Status != models.SubmissionStatusPending {
		t.Fatalf("first submission = %+v, %v", got, err)
	}
}

func TestSubmitResultValidation(t *testing.T) {
	tests := []struct {
		name  string
		mod   func(*SubmitResultInput)
		field string
	}{
		{"missing match", func(in *SubmitResultInput) { in.MatchID = " " }, "match_id"},
		{"missing tournament", func(in *SubmitResultInput) { in.TournamentID = "" }, "tournament_id"},
		{"missing submitter", func(in *SubmitResultInput) { in.SubmittedByUserID = "" }, "submitted_by_user_id"},
		{"empty result", func(in *SubmitResultInput) { in.Result = json.RawMessage(`{}`) }, "result"},
		{"result not object", func(in *SubmitResultInput) { in.Result = json.RawMessage(`"2-1"`) }, "result"},
		{"same teams", func(in *SubmitResultInput) { in.OpponentTeamID = testutil.StrPtr("team-a") }, "opponent_team_id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newIntake(t)
			in := validSubmission()
			tt.mod(&in)

			_, err := svc.SubmitResult(context.Background(), in)
			var verr *ValidationError
			if !errors.As(err, &verr) || verr.Field != tt.field {
				t.Fatalf("err = %v, want validation error on %s", err, tt.field)
			}
		})
	}
}

func TestConfirmSubmission(t *testing.T) {
	svc, _ := newIntake(t)
	ctx := context.Background()
	sub, err := svc.SubmitResult(ctx, validSubmission())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	if _, err := svc.ConfirmSubmission(ctx, sub.ID, "user-a"); !errors.Is(err, ErrValidation) {
		t.Fatalf("self confirm err = %v", err)
	}
	got, err := svc.ConfirmSubmission(ctx, sub.ID, "user-b")
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if got.Status != models.SubmissionStatusConfirmed || got.ConfirmedAt == nil || *got.ConfirmedByUserID != "user-b" {
		t.Fatalf("confirmed = %+v", got)
	}
	if _, err := svc.ConfirmSubmission(ctx, sub.ID, "user-b"); !errors.Is(err, ErrInvalidSubmissionState) {
		t.Fatalf("second confirm err = %v", err)
	}
	if _, err := svc.ConfirmSubmission(ctx, "missing", "user-b"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing err = %v", err)
	}
}

func TestOpenDispute(t *testing.T) {
	svc, repos := newIntake(t)
	ctx := context.Background()
	sub, err := svc.SubmitResult(ctx, validSubmission())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	d, err := svc.OpenDispute(ctx, OpenDisputeInput{
		SubmissionID:   sub.ID,
		OpenedByUserID: "user-b",
		ReasonCode:     "Wrong Score",
		CounterResult:  json.RawMessage(`{"winner_team_id":"team-b"}`),
	})
	if err != nil {
		t.Fatalf("open dispute: %v", err)
	}
	if d.ReasonCode != "wrong-score" {
		t.Fatalf("reason code = %q, want wrong-score", d.ReasonCode)
	}
	if !d.HasCounterClaim() {
		t.Fatal("counter claim not stored")
	}

	got, err := repos.Submissions().Get(ctx, sub.ID)
	if err != nil || got.Status != models.SubmissionStatusDisputed {
		t.Fatalf("submission = %+v, %v", got, err)
	}

	_, err = svc.OpenDispute(ctx, OpenDisputeInput{SubmissionID: sub.ID, OpenedByUserID: "user-b", ReasonCode: "again"})
	if !errors.Is(err, ErrInvalidSubmissionState) {
		t.Fatalf("second dispute err = %v", err)
	}
}

func TestOpenDisputeValidation(t *testing.T) {
	svc, repos := newIntake(t)
	ctx := context.Background()
	sub, err := svc.SubmitResult(ctx, validSubmission())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	if _, err := svc.OpenDispute(ctx, OpenDisputeInput{SubmissionID: sub.ID, OpenedByUserID: "user-b", ReasonCode: "  "}); !errors.Is(err, ErrValidation) {
		t.Fatalf("blank reason err = %v", err)
	}
	if _, err := svc.OpenDispute(ctx, OpenDisputeInput{SubmissionID: sub.ID, ReasonCode: "x"}); !errors.Is(err, ErrValidation) {
		t.Fatalf("missing opener err = %v", err)
	}
	bad := OpenDisputeInput{SubmissionID: sub.ID, OpenedByUserID: "user-b", ReasonCode: "x", CounterResult: json.RawMessage(`[]`)}
	if _, err := svc.OpenDispute(ctx, bad); !errors.Is(err, ErrValidation) {
		t.Fatalf("bad counter err = %v", err)
	}

	var verr *ValidationError
	own := OpenDisputeInput{SubmissionID: sub.ID, OpenedByUserID: "user-a", ReasonCode: "changed-my-mind"}
	if _, err := svc.OpenDispute(ctx, own); !errors.As(err, &verr) || verr.Field != "opened_by_user_id" {
		t.Fatalf("self dispute err = %v", err)
	}
	got, err := repos.Submissions().Get(ctx, sub.ID)
	if err != nil || got.Status != models.SubmissionStatusPending {
		t.Fatalf("submission after self dispute = %+v, %v", got, err)
	}
}
