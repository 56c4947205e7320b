package events

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"weatherbet/models"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventTypeBetPlaced         EventType = "bet_placed"
	EventTypeBetSettled        EventType = "bet_settled"
	EventTypeBetRetryScheduled EventType = "bet_retry_scheduled"
)

// AllEventTypes lists every event type, used by subscribers that forward everything
var AllEventTypes = []EventType{
	EventTypeBetPlaced,
	EventTypeBetSettled,
	EventTypeBetRetryScheduled,
}

// Event is the base interface for all events
type Event interface {
	Type() EventType
}

// BetPlacedEvent is emitted once a placement has been persisted
type BetPlacedEvent struct {
	BetID                string          `json:"bet_id"`
	Owner                string          `json:"owner"`
	Category             models.Category `json:"category"`
	Mode                 models.Mode     `json:"mode"`
	PredictedValue       *float64        `json:"predicted_value,omitempty"`
	Stake                int64           `json:"stake"`
	Odds                 float64         `json:"odds"`
	VerificationDeadline time.Time       `json:"verification_deadline"`
}

func (e BetPlacedEvent) Type() EventType {
	return EventTypeBetPlaced
}

// BetSettledEvent is emitted when a bet reaches a terminal status
type BetSettledEvent struct {
	BetID          string          `json:"bet_id"`
	Owner          string          `json:"owner"`
	Category       models.Category `json:"category"`
	Status         models.Status   `json:"status"`
	PredictedValue *float64        `json:"predicted_value,omitempty"`
	Result         *float64        `json:"result,omitempty"`
	Won            bool            `json:"won"`
	Stake          int64           `json:"stake"`
	Payout         int64           `json:"payout"`
	Explanation    string          `json:"explanation"`
}

func (e BetSettledEvent) Type() EventType {
	return EventTypeBetSettled
}

// BetRetryScheduledEvent is emitted when an observation fetch failed and the
// bet stays pending for another sweep
type BetRetryScheduledEvent struct {
	BetID        string          `json:"bet_id"`
	Owner        string          `json:"owner"`
	Category     models.Category `json:"category"`
	AttemptCount int             `json:"attempt_count"`
	LastError    string          `json:"last_error"`
}

func (e BetRetryScheduledEvent) Type() EventType {
	return EventTypeBetRetryScheduled
}

// Handler is a function that handles events
type Handler func(ctx context.Context, event Event)

// Bus manages event subscriptions and dispatching
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
	inflight sync.WaitGroup
}

// NewBus creates a new event bus
func NewBus() *Bus {
	return &Bus{
		handlers: make(map[EventType][]Handler),
	}
}

// Subscribe adds a handler for a specific event type
func (b *Bus) Subscribe(eventType EventType, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[eventType] = append(b.handlers[eventType], handler)

	log.WithFields(log.Fields{
		"eventType":    eventType,
		"handlerCount": len(b.handlers[eventType]),
	}).Debug("Subscribed handler to event type")
}

// SubscribeAll adds a handler for every known event type
func (b *Bus) SubscribeAll(handler Handler) {
	for _, t := range AllEventTypes {
		b.Subscribe(t, handler)
	}
}

// Emit publishes an event to all registered handlers asynchronously
func (b *Bus) Emit(ctx context.Context, event Event) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers[event.Type()]))
	copy(handlers, b.handlers[event.Type()])
	b.mu.RUnlock()

	log.WithFields(log.Fields{
		"eventType":    event.Type(),
		"handlerCount": len(handlers),
	}).Debug("Emitting event")

	for i, handler := range handlers {
		b.inflight.Add(1)
		go func(h Handler, handlerIndex int) {
			defer b.inflight.Done()
			defer func() {
				if r := recover(); r != nil {
					log.WithFields(log.Fields{
						"eventType":    event.Type(),
						"handlerIndex": handlerIndex,
						"panic":        r,
					}).Error("Event handler panicked")
				}
			}()
			h(ctx, event)
		}(handler, i)
	}
}

// Wait blocks until every handler started so far has returned
func (b *Bus) Wait() {
	b.inflight.Wait()
}

// TransactionalBus holds events raised inside a unit of work until it commits
type TransactionalBus struct {
	real    *Bus
	pending []Event
}

// NewTransactionalBus creates a transactional bus flushing into real
func NewTransactionalBus(real *Bus) *TransactionalBus {
	return &TransactionalBus{real: real}
}

// Publish stashes an event until Flush
func (b *TransactionalBus) Publish(e Event) {
	b.pending = append(b.pending, e)
}

// Pending returns the number of stashed events
func (b *TransactionalBus) Pending() int {
	return len(b.pending)
}

// Flush emits every stashed event, called after a successful commit.
// Emission uses a background context so handlers outlive the request.
func (b *TransactionalBus) Flush(_ context.Context) {
	log.WithField("pendingEventCount", len(b.pending)).Debug("Flushing pending events")

	if b.real != nil {
		for _, ev := range b.pending {
			b.real.Emit(context.Background(), ev)
		}
	}
	b.pending = nil
}

// Discard drops stashed events, called after a rollback
func (b *TransactionalBus) Discard() {
	b.pending = nil
}
