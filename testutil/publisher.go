package testutil

import (
	"context"
	"sync"

	"result-verification-system/events"
)

// RecordingPublisher keeps every published event in memory.
type RecordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
	Err    error
}

func (p *RecordingPublisher) Publish(_ context.Context, event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Err != nil {
		return p.Err
	}
	p.events = append(p.events, event)
	return nil
}

// Events returns the published events in order.
func (p *RecordingPublisher) Events() []events.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]events.Event(nil), p.events...)
}

// Topics returns the topic of each published event in order.
func (p *RecordingPublisher) Topics() []string {
	var topics []string
	for _, e := range p.Events() {
		topics = append(topics, e.Topic())
	}
	return topics
}
