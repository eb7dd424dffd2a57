package services

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"result-verification-system/models"
	"result-verification-system/stores"

	"github.com/jonboulle/clockwork"
)

// Inbox priorities, 1 is the most urgent.
const (
	PriorityDisputed = 1
	PriorityOverdue  = 2
	PriorityStale    = 3
	PriorityRoutine  = 4
)

// DefaultAttentionAge is how long a pending result may wait before it is
// bumped above routine items.
const DefaultAttentionAge = 12 * time.Hour

// IsOverdue reports whether a non-terminal submission is past its deadline.
// A submission exactly at its deadline is not overdue.
func IsOverdue(status models.SubmissionStatus, deadline, now time.Time) bool {
	return !status.IsTerminal() && now.After(deadline)
}

// Priority ranks a review item; the first matching rule wins.
func Priority(item models.OrganizerReviewItem, now time.Time, attentionAge time.Duration) int {
	switch {
	case item.Status == models.SubmissionStatusDisputed || item.DisputeID != nil:
		return PriorityDisputed
	case item.IsOverdue:
		return PriorityOverdue
	case item.Status == models.SubmissionStatusPending && now.Sub(item.CreatedAt) > attentionAge:
		return PriorityStale
	}
	return PriorityRoutine
}

// SortReviewItems orders items by priority, then by earliest deadline. Items
// equal on both keep submission order, then ID order, so output is stable.
func SortReviewItems(items []models.OrganizerReviewItem) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.Priority != b.Priority {
			return a.Priority < b.Priority
		}
		if !a.AutoConfirmDeadline.Equal(b.AutoConfirmDeadline) {
			return a.AutoConfirmDeadline.Before(b.AutoConfirmDeadline)
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.SubmissionID < b.SubmissionID
	})
}

// ProofLinker turns a stored proof reference into a URL organizers can open.
type ProofLinker interface {
	ViewURL(ctx context.Context, proofRef string) (string, bool)
}

// InboxQuery filters and pages the organizer inbox. Zero values match all.
type InboxQuery struct {
	TournamentID  string
	Status        models.SubmissionStatus
	DisputeStatus models.DisputeStatus
	DateFrom      *time.Time
	DateTo        *time.Time
	Page          int
	PageSize      int
}

// InboxPage is one page of the ranked inbox.
type InboxPage struct {
	Items    []models.OrganizerReviewItem `json:"items"`
	Total    int                          `json:"total"`
	Page     int                          `json:"page"`
	PageSize int                          `json:"page_size"`
	Counts   map[int]int                  `json:"counts"`
}

// InboxConfig tunes the inbox.
type InboxConfig struct {
	AttentionAge    time.Duration
	DefaultPageSize int
	MaxPageSize     int
}

// InboxService builds the priority-ordered organizer queue. It only reads.
type InboxService struct {
	repos  stores.Repositories
	clock  clockwork.Clock
	proofs ProofLinker
	cfg    InboxConfig
}

func NewInboxService(repos stores.Repositories, clock clockwork.Clock, proofs ProofLinker, cfg InboxConfig) *InboxService {
	if cfg.AttentionAge <= 0 {
		cfg.AttentionAge = DefaultAttentionAge
	}
	if cfg.DefaultPageSize <= 0 {
		cfg.DefaultPageSize = 25
	}
	if cfg.MaxPageSize < cfg.DefaultPageSize {
		cfg.MaxPageSize = cfg.DefaultPageSize
	}
	return &InboxService{repos: repos, clock: clock, proofs: proofs, cfg: cfg}
}

// Build returns every item needing organizer attention in a tournament (all
// tournaments when tournamentID is empty), ranked.
func (s *InboxService) Build(ctx context.Context, tournamentID string) ([]models.OrganizerReviewItem, error) {
	now := s.clock.Now().UTC()
	subs := s.repos.Submissions()

	pending, err := subs.ListPending(ctx, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("inbox pending: %w", err)
	}
	disputes, err := s.repos.Disputes().ListActive(ctx, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("inbox disputes: %w", err)
	}
	overdue, err := subs.ListOverdue(ctx, tournamentID, now)
	if err != nil {
		return nil, fmt.Errorf("inbox overdue: %w", err)
	}
	ready, err := subs.ListReadyForFinalization(ctx, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("inbox ready: %w", err)
	}

	// A submission can sit in several categories; the dispute-bearing
	// projection wins.
	index := make(map[string]int)
	var items []models.OrganizerReviewItem
	add := func(item models.OrganizerReviewItem) {
		if at, ok := index[item.SubmissionID]; ok {
			if item.DisputeID != nil && items[at].DisputeID == nil {
				items[at] = item
			}
			return
		}
		index[item.SubmissionID] = len(items)
		items = append(items, item)
	}

	for i := range disputes {
		if disputes[i].Submission == nil {
			log.Printf("[Inbox] dispute %s has no submission row, skipping", disputes[i].ID)
			continue
		}
		add(s.project(*disputes[i].Submission, &disputes[i], now))
	}
	for _, group := range [][]models.Submission{pending, overdue, ready} {
		for _, sub := range group {
			add(s.project(sub, nil, now))
		}
	}

	SortReviewItems(items)
	return items, nil
}

func (s *InboxService) project(sub models.Submission, d *models.Dispute, now time.Time) models.OrganizerReviewItem {
	item := models.OrganizerReviewItem{
		SubmissionID:        sub.ID,
		MatchID:             sub.MatchID,
		TournamentID:        sub.TournamentID,
		StageID:             sub.StageID,
		SubmittedByUserID:   sub.SubmittedByUserID,
		SubmittedByTeamID:   sub.SubmittedByTeamID,
		Status:              sub.Status,
		CreatedAt:           sub.SubmittedAt,
		AutoConfirmDeadline: sub.AutoConfirmDeadline,
		IsOverdue:           IsOverdue(sub.Status, sub.AutoConfirmDeadline, now),
		ProofURL:            sub.ProofURL,
	}
	if d != nil {
		id, status := d.ID, d.Status
		item.DisputeID = &id
		item.DisputeStatus = &status
		item.DisputeReason = d.ReasonCode
	}
	item.Priority = Priority(item, now, s.cfg.AttentionAge)
	return item
}

// Query builds the inbox, applies filters and returns the requested page.
// Counts are per priority over the filtered set.
func (s *InboxService) Query(ctx context.Context, q InboxQuery) (*InboxPage, error) {
	if q.Status != "" && !q.Status.Valid() {
		return nil, &ValidationError{Field: "status", Message: fmt.Sprintf("unknown status %q", q.Status)}
	}
	if q.DisputeStatus != "" && !q.DisputeStatus.Valid() {
		return nil, &ValidationError{Field: "dispute_status", Message: fmt.Sprintf("unknown status %q", q.DisputeStatus)}
	}
	if q.DateFrom != nil && q.DateTo != nil && q.DateTo.Before(*q.DateFrom) {
		return nil, &ValidationError{Field: "date_to", Message: "must not be before date_from"}
	}

	items, err := s.Build(ctx, q.TournamentID)
	if err != nil {
		return nil, err
	}

	filtered := items[:0]
	for _, item := range items {
		if matchesQuery(item, q) {
			filtered = append(filtered, item)
		}
	}

	counts := map[int]int{PriorityDisputed: 0, PriorityOverdue: 0, PriorityStale: 0, PriorityRoutine: 0}
	for _, item := range filtered {
		counts[item.Priority]++
	}

	page, size := q.Page, q.PageSize
	if page < 1 {
		page = 1
	}
	if size <= 0 {
		size = s.cfg.DefaultPageSize
	}
	if size > s.cfg.MaxPageSize {
		size = s.cfg.MaxPageSize
	}

	// Compare page numbers, not offsets, so a huge page cannot overflow.
	start := len(filtered)
	if page-1 < (len(filtered)+size-1)/size {
		start = (page - 1) * size
	}
	end := start + size
	if end > len(filtered) {
		end = len(filtered)
	}
	pageItems := append([]models.OrganizerReviewItem{}, filtered[start:end]...)

	if s.proofs != nil {
		for i := range pageItems {
			if pageItems[i].ProofURL == nil {
				continue
			}
			if u, ok := s.proofs.ViewURL(ctx, *pageItems[i].ProofURL); ok {
				pageItems[i].ProofViewURL = u
			}
		}
	}

	return &InboxPage{
		Items:    pageItems,
		Total:    len(filtered),
		Page:     page,
		PageSize: size,
		Counts:   counts,
	}, nil
}

func matchesQuery(item models.OrganizerReviewItem, q InboxQuery) bool {
	if q.Status != "" && item.Status != q.Status {
		return false
	}
	if q.DisputeStatus != "" && (item.DisputeStatus == nil || *item.DisputeStatus != q.DisputeStatus) {
		return false
	}
	if q.DateFrom != nil && item.CreatedAt.Before(*q.DateFrom) {
		return false
	}
	if q.DateTo != nil && item.CreatedAt.After(*q.DateTo) {
		return false
	}
	return true
}
