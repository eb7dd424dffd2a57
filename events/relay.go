package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/ThreeDotsLabs/watermill/message"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Notification is a message for the notification service.
type Notification struct {
	Topic        string   `json:"topic"`
	TournamentID string   `json:"tournament_id"`
	Audience     []string `json:"audience"` // "participants", "organizers"
	Subject      string   `json:"subject"`
	Body         string   `json:"body"`
}

// Notifier hands notifications to the delivery service.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// LogNotifier writes notifications to the log.
type LogNotifier struct{}

func (LogNotifier) Notify(_ context.Context, n Notification) error {
	log.Printf("[Notify] %s → %v: %s", n.TournamentID, n.Audience, n.Subject)
	return nil
}

// RelayTopics are the topics the notification relay listens on.
var RelayTopics = []string{
	TopicMatchResultFinalized,
	TopicMatchResultRejected,
	TopicDisputeResolved,
	TopicAttentionDigest,
}

// Relay turns lifecycle events into notifications. Delivery is best-effort:
// failures are logged and the message is acked anyway.
type Relay struct {
	sub      message.Subscriber
	notifier Notifier
	wg       sync.WaitGroup
}

func NewRelay(sub message.Subscriber, notifier Notifier) *Relay {
	return &Relay{sub: sub, notifier: notifier}
}

// Start subscribes to every relay topic before returning, then consumes them
// in the background until ctx is cancelled. The bus does not buffer for
// absent subscribers, so call Start before anything publishes.
func (r *Relay) Start(ctx context.Context) error {
	subs := make(map[string]<-chan *message.Message, len(RelayTopics))
	for _, topic := range RelayTopics {
		msgs, err := r.sub.Subscribe(ctx, topic)
		if err != nil {
			return fmt.Errorf("subscribe %s: %w", topic, err)
		}
		subs[topic] = msgs
	}
	for topic, msgs := range subs {
		r.wg.Add(1)
		go func(topic string, msgs <-chan *message.Message) {
			defer r.wg.Done()
			for msg := range msgs {
				r.handle(ctx, topic, msg)
			}
		}(topic, msgs)
	}
	log.Printf("[Events] notification relay listening on %d topics", len(RelayTopics))
	return nil
}

// Wait blocks until every consumer started by Start has exited.
func (r *Relay) Wait() {
	r.wg.Wait()
}

func (r *Relay) handle(ctx context.Context, topic string, msg *message.Message) {
	defer msg.Ack()

	n, err := r.Build(topic, msg.Payload)
	if err != nil {
		log.Printf("[Events] dropping %s message %s: %v", topic, msg.UUID, err)
		return
	}
	if err := r.notifier.Notify(ctx, n); err != nil {
		log.Printf("[Events] notification for %s message %s failed: %v", topic, msg.UUID, err)
	}
}

// Build decodes an event payload and renders its notification.
func (r *Relay) Build(topic string, payload []byte) (Notification, error) {
	switch topic {
	case TopicMatchResultFinalized:
		var e MatchResultFinalizedEvent
		if err := json.Unmarshal(payload, &e); err != nil {
			return Notification{}, err
		}
		return Notification{
			Topic:        topic,
			TournamentID: e.TournamentID,
			Audience:     []string{"participants"},
			Subject:      fmt.Sprintf("Result Finalized For Match %s", e.MatchID),
			Body:         fmt.Sprintf("The result of match %s is now final.", e.MatchID),
		}, nil
	case TopicMatchResultRejected:
		var e MatchResultRejectedEvent
		if err := json.Unmarshal(payload, &e); err != nil {
			return Notification{}, err
		}
		body := fmt.Sprintf("The submitted result of match %s was rejected.", e.MatchID)
		if e.Notes != "" {
			body += " Organizer notes: " + e.Notes
		}
		return Notification{
			Topic:        topic,
			TournamentID: e.TournamentID,
			Audience:     []string{"participants"},
			Subject:      fmt.Sprintf("Result Rejected For Match %s", e.MatchID),
			Body:         body,
		}, nil
	case TopicDisputeResolved:
		var e DisputeResolvedEvent
		if err := json.Unmarshal(payload, &e); err != nil {
			return Notification{}, err
		}
		return Notification{
			Topic:        topic,
			TournamentID: e.TournamentID,
			Audience:     []string{"participants"},
			Subject:      fmt.Sprintf("Dispute Resolved: %s", r.label(e.Resolution)),
			Body: fmt.Sprintf("The dispute on match %s is %s; the result is now %s.",
				e.MatchID, strings.ReplaceAll(e.DisputeStatus, "_", " "), e.SubmissionStatus),
		}, nil
	case TopicAttentionDigest:
		var e ResultsAttentionDigestEvent
		if err := json.Unmarshal(payload, &e); err != nil {
			return Notification{}, err
		}
		return Notification{
			Topic:        topic,
			TournamentID: e.TournamentID,
			Audience:     []string{"organizers"},
			Subject:      fmt.Sprintf("%d Results Need Attention", e.Overdue+e.Disputed),
			Body: fmt.Sprintf("%d disputed, %d overdue, %d ready to finalize, %d pending.",
				e.Disputed, e.Overdue, e.ReadyToFinalize, e.Pending),
		}, nil
	}
	return Notification{}, fmt.Errorf("unknown topic %q", topic)
}

// label turns "approve_dispute" into "Approve Dispute". Casers are stateful,
// so each call gets its own.
func (r *Relay) label(code string) string {
	return cases.Title(language.English).String(strings.ReplaceAll(code, "_", " "))
}
