// Package events provides in-process pub/sub for appointment lifecycle
// events.
package events

import (
	"sync"
	"time"

	"github.com/almonzer-fadl/teramotors/internal/model"
)

// Lifecycle event types.
const (
	TypeAppointmentScheduled  = "appointment.scheduled"
	TypeAppointmentInProgress = "appointment.in_progress"
	TypeAppointmentCompleted  = "appointment.completed"
	TypeAppointmentCancelled  = "appointment.cancelled"
	TypeReminderDispatched    = "reminder.dispatched"
)

// TypeForStatus maps an appointment status to its lifecycle event type.
func TypeForStatus(s model.Status) string {
	switch s {
	case model.StatusScheduled:
		return TypeAppointmentScheduled
	case model.StatusInProgress:
		return TypeAppointmentInProgress
	case model.StatusCompleted:
		return TypeAppointmentCompleted
	case model.StatusCancelled:
		return TypeAppointmentCancelled
	}
	return ""
}

// Event is a lightweight domain event.
type Event struct {
	Type      string
	Payload   any
	CreatedAt time.Time
}

// Handler reacts to an event.
type Handler func(event Event)

// Bus fans events out to subscribers. Handlers run synchronously on the
// publisher's goroutine; subscribers decide their own concurrency.
type Bus struct {
	subscribers map[string][]Handler
	mu          sync.RWMutex
}

// NewBus constructs an empty bus.
func NewBus() *Bus {
	return &Bus{subscribers: make(map[string][]Handler)}
}

// Subscribe registers a handler for a given event type.
func (b *Bus) Subscribe(eventType string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

// Publish notifies subscribers of the event type.
func (b *Bus) Publish(eventType string, payload any) {
	b.mu.RLock()
	handlers := append([]Handler(nil), b.subscribers[eventType]...)
	b.mu.RUnlock()

	ev := Event{Type: eventType, Payload: payload, CreatedAt: time.Now()}
	for _, handler := range handlers {
		handler(ev)
	}
}
