package events

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/almonzer-fadl/teramotors/internal/model"
)

func TestBusFansOutToSubscribers(t *testing.T) {
	bus := NewBus()

	var scheduled, cancelled int
	bus.Subscribe(TypeAppointmentScheduled, func(Event) { scheduled++ })
	bus.Subscribe(TypeAppointmentScheduled, func(Event) { scheduled++ })
	bus.Subscribe(TypeAppointmentCancelled, func(Event) { cancelled++ })

	bus.Publish(TypeAppointmentScheduled, nil)

	assert.Equal(t, 2, scheduled, "every subscriber for the type runs")
	assert.Equal(t, 0, cancelled)
}

func TestBusPayloadAndTimestamp(t *testing.T) {
	bus := NewBus()

	var got Event
	bus.Subscribe(TypeReminderDispatched, func(ev Event) { got = ev })
	bus.Publish(TypeReminderDispatched, &model.Appointment{ID: "appt-1"})

	assert.Equal(t, TypeReminderDispatched, got.Type)
	assert.Equal(t, "appt-1", got.Payload.(*model.Appointment).ID)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestTypeForStatus(t *testing.T) {
	assert.Equal(t, TypeAppointmentScheduled, TypeForStatus(model.StatusScheduled))
	assert.Equal(t, TypeAppointmentInProgress, TypeForStatus(model.StatusInProgress))
	assert.Equal(t, TypeAppointmentCompleted, TypeForStatus(model.StatusCompleted))
	assert.Equal(t, TypeAppointmentCancelled, TypeForStatus(model.StatusCancelled))
	assert.Equal(t, "", TypeForStatus(model.Status("bogus")))
}
