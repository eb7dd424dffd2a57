// workers/overdue_sweep.go
package workers

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"result-verification-system/events"
	"result-verification-system/models"
	"result-verification-system/services"

	"github.com/go-co-op/gocron/v2"
	"github.com/jonboulle/clockwork"
)

// InboxBuilder is the part of the inbox the sweep reads.
type InboxBuilder interface {
	Build(ctx context.Context, tournamentID string) ([]models.OrganizerReviewItem, error)
}

// OverdueSweep periodically rebuilds the organizer inbox and publishes one
// attention digest per tournament with overdue or disputed results. It never
// writes to submissions or disputes.
type OverdueSweep struct {
	inbox     InboxBuilder
	publisher events.Publisher
	clock     clockwork.Clock
	interval  time.Duration
	sched     gocron.Scheduler
}

func NewOverdueSweep(inbox InboxBuilder, publisher events.Publisher, clock clockwork.Clock, interval time.Duration) *OverdueSweep {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &OverdueSweep{inbox: inbox, publisher: publisher, clock: clock, interval: interval}
}

// Start schedules the sweep. Runs never overlap.
func (w *OverdueSweep) Start(ctx context.Context) error {
	sched, err := gocron.NewScheduler(gocron.WithClock(w.clock), gocron.WithLocation(time.UTC))
	if err != nil {
		return fmt.Errorf("create sweep scheduler: %w", err)
	}
	_, err = sched.NewJob(
		gocron.DurationJob(w.interval),
		gocron.NewTask(func() {
			if _, err := w.RunOnce(ctx); err != nil {
				log.Printf("[Sweep] run failed: %v", err)
			}
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithName("overdue-sweep"),
	)
	if err != nil {
		_ = sched.Shutdown()
		return fmt.Errorf("schedule sweep: %w", err)
	}
	w.sched = sched
	sched.Start()
	log.Printf("[Sweep] overdue sweep scheduled every %s", w.interval)
	return nil
}

// Stop waits for a running sweep and shuts the scheduler down.
func (w *OverdueSweep) Stop() error {
	if w.sched == nil {
		return nil
	}
	return w.sched.Shutdown()
}

// RunOnce builds the inbox and publishes the digests it finds.
func (w *OverdueSweep) RunOnce(ctx context.Context) ([]events.ResultsAttentionDigestEvent, error) {
	items, err := w.inbox.Build(ctx, "")
	if err != nil {
		return nil, err
	}
	digests := Digest(items, w.clock.Now().UTC())
	for _, d := range digests {
		if err := w.publisher.Publish(ctx, d); err != nil {
			log.Printf("❌ [Sweep] digest for tournament %s not published: %v", d.TournamentID, err)
		}
	}
	if len(digests) > 0 {
		log.Printf("[Sweep] %d tournaments need organizer attention", len(digests))
	}
	return digests, nil
}

// Digest counts review items per tournament and keeps tournaments with at
// least one overdue or disputed result, ordered by tournament ID.
func Digest(items []models.OrganizerReviewItem, now time.Time) []events.ResultsAttentionDigestEvent {
	byTournament := make(map[string]*events.ResultsAttentionDigestEvent)
	for _, item := range items {
		d, ok := byTournament[item.TournamentID]
		if !ok {
			d = &events.ResultsAttentionDigestEvent{TournamentID: item.TournamentID, GeneratedAt: now}
			byTournament[item.TournamentID] = d
		}
		if item.Priority == services.PriorityDisputed {
			d.Disputed++
		}
		if item.IsOverdue {
			d.Overdue++
		}
		switch item.Status {
		case models.SubmissionStatusConfirmed:
			d.ReadyToFinalize++
		case models.SubmissionStatusPending:
			d.Pending++
		}
	}

	var out []events.ResultsAttentionDigestEvent
	for _, d := range byTournament {
		if d.Overdue+d.Disputed > 0 {
			out = append(out, *d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TournamentID < out[j].TournamentID })
	return out
}
