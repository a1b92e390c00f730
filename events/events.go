package events

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventTypeRoyaltyRunCompleted    EventType = "royalty_run_completed"
	EventTypeRoyaltyRunFailed       EventType = "royalty_run_failed"
	EventTypeReconciliationMismatch EventType = "reconciliation_mismatch"
)

// Event is the base interface for all events
type Event interface {
	Type() EventType
}

// RoyaltyRunCompletedEvent is published after a region run commits its
// terminal completed status.
type RoyaltyRunCompletedEvent struct {
	RunID       int64
	Region      string
	PeriodStart time.Time
	PeriodEnd   time.Time
	LineCounts  map[string]int
}

func (e RoyaltyRunCompletedEvent) Type() EventType {
	return EventTypeRoyaltyRunCompleted
}

// RoyaltyRunFailedEvent is published after a region run is marked failed.
type RoyaltyRunFailedEvent struct {
	RunID  int64
	Region string
	Reason string
}

func (e RoyaltyRunFailedEvent) Type() EventType {
	return EventTypeRoyaltyRunFailed
}

// ReconciliationMismatchEvent signals that the independently recomputed
// sponsorship payout diverged from the persisted ledger.
type ReconciliationMismatchEvent struct {
	RunID         int64
	Region        string
	ExpectedCents int64
	ActualCents   int64
}

func (e ReconciliationMismatchEvent) Type() EventType {
	return EventTypeReconciliationMismatch
}

// Handler is a function that handles events
type Handler func(ctx context.Context, event Event)

// Bus manages event subscriptions and dispatching
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
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

// Emit publishes an event to all registered handlers
func (b *Bus) Emit(ctx context.Context, event Event) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers[event.Type()]))
	copy(handlers, b.handlers[event.Type()])
	b.mu.RUnlock()

	// Call handlers asynchronously to avoid blocking
	for i, handler := range handlers {
		go func(h Handler, handlerIndex int) {
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

// TransactionalBus holds pending events coupled to a unit of work.
// Events publish to the underlying bus only after the database commit,
// so subscribers never observe a run that later rolled back.
type TransactionalBus struct {
	real    *Bus
	pending []Event
}

func NewTransactionalBus(real *Bus) *TransactionalBus {
	return &TransactionalBus{real: real}
}

func (b *TransactionalBus) Publish(e Event) {
	b.pending = append(b.pending, e)
}

// Flush emits all pending events; called after a successful DB commit.
func (b *TransactionalBus) Flush(ctx context.Context) error {
	// Events outlive the transaction context
	eventCtx := context.Background()

	for _, ev := range b.pending {
		log.WithFields(log.Fields{
			"eventType": ev.Type(),
		}).Debug("Emitting event after commit")
		b.real.Emit(eventCtx, ev)
	}
	b.pending = nil
	return nil
}

// Discard drops pending events; called after a rollback.
func (b *TransactionalBus) Discard() {
	b.pending = nil
}
