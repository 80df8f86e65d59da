package model

import (
	"time"

	"github.com/almonzer-fadl/teramotors/internal/schedule"
)

// Appointment is a booked service visit. The scheduling engine owns the
// status and interval fields; everything else passes through to the
// record untouched.
type Appointment struct {
	ID            string    `json:"id"`
	MechanicID    string    `json:"mechanic_id"`
	CustomerID    string    `json:"customer_id"`
	VehicleID     string    `json:"vehicle_id"`
	ServiceID     string    `json:"service_id"`
	Date          time.Time `json:"date"` // calendar day, midnight local
	Start         time.Time `json:"start_time"`
	End           time.Time `json:"end_time"`
	Status        Status    `json:"status"`
	Priority      Priority  `json:"priority"`
	EstimatedCost float64   `json:"estimated_cost"`
	Notes         string    `json:"notes,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Interval returns the half-open time range the appointment occupies.
func (a *Appointment) Interval() schedule.Interval {
	return schedule.Interval{Start: a.Start, End: a.End}
}

// WorkOrder is opened against an appointment when the mechanic starts
// the job; opening one drives the scheduled to in-progress transition.
type WorkOrder struct {
	ID            string    `json:"id"`
	AppointmentID string    `json:"appointment_id"`
	MechanicID    string    `json:"mechanic_id"`
	OpenedAt      time.Time `json:"opened_at"`
	Notes         string    `json:"notes,omitempty"`
}

// Contact is the customer-facing delivery address for notifications.
type Contact struct {
	CustomerID string `json:"customer_id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
}
