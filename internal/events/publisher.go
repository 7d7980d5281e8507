// Package events fans store change events out to in-process subscribers
// such as the persistence bridge, metrics and the activity log.
package events

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/rs/zerolog"
	"github.com/tOgg1/geoforce/internal/logging"
	"github.com/tOgg1/geoforce/internal/models"
)

// Subscription errors.
var (
	ErrInvalidSubscriptionID = errors.New("subscription ID is required")
	ErrNilHandler            = errors.New("handler cannot be nil")
	ErrSubscriptionExists    = errors.New("subscription with this ID already exists")
	ErrSubscriptionNotFound  = errors.New("subscription not found")
)

// EventHandler receives one matching event. Each handler gets its own copy.
type EventHandler func(ctx context.Context, event *models.Event)

// Filter selects events. Empty fields match everything.
type Filter struct {
	EventTypes  []models.EventType
	EntityTypes []models.EntityType
	EntityID    string
}

// Matches reports whether event passes every non-empty criterion.
func (f Filter) Matches(event *models.Event) bool {
	switch {
	case event == nil:
		return false
	case len(f.EventTypes) > 0 && !slices.Contains(f.EventTypes, event.Type):
		return false
	case len(f.EntityTypes) > 0 && !slices.Contains(f.EntityTypes, event.EntityType):
		return false
	case f.EntityID != "" && event.EntityID != f.EntityID:
		return false
	}
	return true
}

// Publisher delivers store events to named subscribers.
type Publisher interface {
	// Publish delivers event to every matching subscriber, in subscription
	// order, on the caller's goroutine.
	Publish(ctx context.Context, event *models.Event)

	Subscribe(id string, filter Filter, handler EventHandler) error
	Unsubscribe(id string) error
	SubscriberCount() int
}

type subscription struct {
	id      string
	filter  Filter
	handler EventHandler
}

// InMemoryPublisher is the in-process Publisher. A panicking handler is
// logged and skipped; later subscribers still run.
type InMemoryPublisher struct {
	mu     sync.RWMutex
	subs   []subscription
	logger zerolog.Logger
}

// NewInMemoryPublisher creates an empty publisher.
func NewInMemoryPublisher() *InMemoryPublisher {
	return &InMemoryPublisher{logger: logging.Component("events")}
}

func (p *InMemoryPublisher) Publish(ctx context.Context, event *models.Event) {
	if event == nil {
		return
	}

	p.mu.RLock()
	matched := make([]subscription, 0, len(p.subs))
	for _, sub := range p.subs {
		if sub.filter.Matches(event) {
			matched = append(matched, sub)
		}
	}
	p.mu.RUnlock()

	// Handlers run unlocked so they may subscribe, unsubscribe or publish.
	for _, sub := range matched {
		ev := *event
		p.deliver(ctx, sub, &ev)
	}
}

func (p *InMemoryPublisher) deliver(ctx context.Context, sub subscription, event *models.Event) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error().
				Str("subscriber", sub.id).
				Str("type", string(event.Type)).
				Interface("panic", r).
				Msg("event handler panicked")
		}
	}()
	sub.handler(ctx, event)
}

func (p *InMemoryPublisher) Subscribe(id string, filter Filter, handler EventHandler) error {
	if id == "" {
		return ErrInvalidSubscriptionID
	}
	if handler == nil {
		return ErrNilHandler
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.indexOf(id) >= 0 {
		return ErrSubscriptionExists
	}
	p.subs = append(p.subs, subscription{id: id, filter: filter, handler: handler})
	return nil
}

func (p *InMemoryPublisher) Unsubscribe(id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	idx := p.indexOf(id)
	if idx < 0 {
		return ErrSubscriptionNotFound
	}
	p.subs = slices.Delete(p.subs, idx, idx+1)
	return nil
}

func (p *InMemoryPublisher) SubscriberCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.subs)
}

// Close drops every subscription.
func (p *InMemoryPublisher) Close() {
	p.mu.Lock()
	p.subs = nil
	p.mu.Unlock()
}

func (p *InMemoryPublisher) indexOf(id string) int {
	return slices.IndexFunc(p.subs, func(s subscription) bool { return s.id == id })
}
