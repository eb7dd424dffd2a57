package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
)

// Publisher delivers events to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// WatermillPublisher encodes events as JSON messages on a watermill publisher,
// one topic per event type.
type WatermillPublisher struct {
	pub message.Publisher
}

func NewWatermillPublisher(pub message.Publisher) *WatermillPublisher {
	return &WatermillPublisher{pub: pub}
}

func (p *WatermillPublisher) Publish(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode %s: %w", event.Topic(), err)
	}
	msg := message.NewMessage(uuid.NewString(), payload)
	msg.Metadata.Set("event_type", event.Topic())
	msg.SetContext(ctx)

	if err := p.pub.Publish(event.Topic(), msg); err != nil {
		return fmt.Errorf("publish %s: %w", event.Topic(), err)
	}
	log.Printf("[Events] published %s (%s)", event.Topic(), msg.UUID)
	return nil
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
