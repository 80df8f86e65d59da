// Package scheduler implements the appointment scheduling engine: slot
// queries, the booking conflict guard and the appointment lifecycle.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/almonzer-fadl/teramotors/internal/events"
	"github.com/almonzer-fadl/teramotors/internal/metrics"
	"github.com/almonzer-fadl/teramotors/internal/model"
	"github.com/almonzer-fadl/teramotors/internal/schedule"
)

// Repository is the persistence collaborator the engine consumes. Read
// methods return (nil, nil) when the record does not exist.
type Repository interface {
	FindAppointments(ctx context.Context, mechanicID string, date time.Time, statuses []model.Status) ([]model.Appointment, error)
	GetAppointment(ctx context.Context, id string) (*model.Appointment, error)
	CreateAppointment(ctx context.Context, a *model.Appointment) error
	UpdateStatus(ctx context.Context, id string, status model.Status) (*model.Appointment, error)
	OpenWorkOrder(ctx context.Context, w *model.WorkOrder) error

	CustomerExists(ctx context.Context, id string) (bool, error)
	VehicleExists(ctx context.Context, id string) (bool, error)
	MechanicExists(ctx context.Context, id string) (bool, error)
	ServiceExists(ctx context.Context, id string) (bool, error)
}

// EventPublisher receives lifecycle events for interested subscribers.
type EventPublisher interface {
	Publish(eventType string, payload any)
}

// Service drives bookings through validation, conflict checking and
// lifecycle transitions. It must be the sole writer of appointments for
// the per-key lock table to guarantee serialization.
type Service struct {
	repo        Repository
	cal         schedule.Calendar
	gen         *schedule.Generator
	locks       *lockTable
	events      EventPublisher
	horizonDays int
	logger      *zerolog.Logger
}

// New creates a scheduling service. events may be nil. horizonDays
// bounds how far ahead bookings are accepted; zero disables the bound.
func New(repo Repository, cal schedule.Calendar, horizonDays int, events EventPublisher, logger *zerolog.Logger) *Service {
	return &Service{
		repo:        repo,
		cal:         cal,
		gen:         schedule.NewGenerator(cal),
		locks:       newLockTable(),
		events:      events,
		horizonDays: horizonDays,
		logger:      logger,
	}
}

// AvailableSlots returns the bookable start times for a service of the
// given duration on date, for one mechanic. Read-only and safe to call
// with unlimited parallelism.
func (s *Service) AvailableSlots(ctx context.Context, mechanicID string, date time.Time, duration time.Duration) ([]time.Time, error) {
	started := time.Now()
	defer func() { metrics.ObserveSlotQuery(time.Since(started)) }()

	if mechanicID == "" {
		return nil, &ValidationError{Field: "mechanic_id", Reason: "required"}
	}
	if duration <= 0 {
		return nil, &ValidationError{Field: "duration", Reason: "must be positive"}
	}
	ok, err := s.repo.MechanicExists(ctx, mechanicID)
	if err != nil {
		return nil, fmt.Errorf("check mechanic: %w", err)
	}
	if !ok {
		return nil, &ValidationError{Field: "mechanic_id", Reason: "mechanic does not exist"}
	}

	existing, err := s.repo.FindAppointments(ctx, mechanicID, date, model.ActiveStatuses)
	if err != nil {
		return nil, fmt.Errorf("load appointments: %w", err)
	}
	return s.gen.Slots(date, duration, busyIntervals(existing)), nil
}

// Book validates the candidate, re-checks for conflicts under the
// per-(mechanic, date) lock and persists it with status scheduled.
// Overlap at commit time yields a ConflictError. Once the lock is held
// the booking runs to completion; caller cancellation is only honored
// before that point.
func (s *Service) Book(ctx context.Context, appt *model.Appointment) (*model.Appointment, error) {
	if err := s.validateCandidate(ctx, appt); err != nil {
		metrics.IncBooking("rejected")
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	key := bookingKey(appt.MechanicID, appt.Date)
	lock := s.locks.acquire(key)
	defer s.locks.release(key, lock)

	existing, err := s.repo.FindAppointments(ctx, appt.MechanicID, appt.Date, model.ActiveStatuses)
	if err != nil {
		return nil, fmt.Errorf("load appointments: %w", err)
	}
	candidate := appt.Interval()
	for i := range existing {
		if schedule.Overlaps(candidate, existing[i].Interval()) {
			metrics.IncConflict()
			return nil, &ConflictError{MechanicID: appt.MechanicID, Interval: candidate}
		}
	}

	now := time.Now()
	if appt.ID == "" {
		appt.ID = uuid.NewString()
	}
	appt.Status = model.StatusScheduled
	appt.CreatedAt = now
	appt.UpdatedAt = now
	if err := s.repo.CreateAppointment(ctx, appt); err != nil {
		return nil, fmt.Errorf("insert appointment: %w", err)
	}

	metrics.IncBooking("scheduled")
	s.publish(events.TypeForStatus(model.StatusScheduled), appt)
	s.logger.Info().
		Str("appointment_id", appt.ID).
		Str("mechanic_id", appt.MechanicID).
		Str("interval", candidate.String()).
		Msg("appointment booked")
	return appt, nil
}

// ChangeStatus applies a lifecycle transition. It runs under the same
// per-(mechanic, date) lock as Book, so a cancellation is visible to
// every subsequent conflict check before any new booking is accepted.
func (s *Service) ChangeStatus(ctx context.Context, id string, to model.Status) (*model.Appointment, error) {
	if !to.Valid() {
		return nil, &ValidationError{Field: "status", Reason: fmt.Sprintf("unknown status %q", to)}
	}
	appt, err := s.repo.GetAppointment(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load appointment: %w", err)
	}
	if appt == nil {
		return nil, &NotFoundError{Kind: "appointment", ID: id}
	}

	key := bookingKey(appt.MechanicID, appt.Date)
	lock := s.locks.acquire(key)
	defer s.locks.release(key, lock)

	// Re-read under the lock; a concurrent transition may have landed.
	appt, err = s.repo.GetAppointment(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load appointment: %w", err)
	}
	if appt == nil {
		return nil, &NotFoundError{Kind: "appointment", ID: id}
	}
	if !model.CanTransition(appt.Status, to) {
		metrics.IncInvalidTransition()
		return nil, &InvalidTransitionError{From: appt.Status, To: to}
	}

	updated, err := s.repo.UpdateStatus(ctx, id, to)
	if err != nil {
		return nil, fmt.Errorf("update status: %w", err)
	}
	if updated == nil {
		return nil, &NotFoundError{Kind: "appointment", ID: id}
	}

	metrics.IncTransition(string(to))
	s.publish(events.TypeForStatus(to), updated)
	s.logger.Info().
		Str("appointment_id", id).
		Str("from", string(appt.Status)).
		Str("to", string(to)).
		Msg("appointment status changed")
	return updated, nil
}

// OpenWorkOrder opens a work order against a scheduled appointment and
// cascades it to in-progress in a single atomic step.
func (s *Service) OpenWorkOrder(ctx context.Context, appointmentID, notes string) (*model.WorkOrder, error) {
	appt, err := s.repo.GetAppointment(ctx, appointmentID)
	if err != nil {
		return nil, fmt.Errorf("load appointment: %w", err)
	}
	if appt == nil {
		return nil, &NotFoundError{Kind: "appointment", ID: appointmentID}
	}

	key := bookingKey(appt.MechanicID, appt.Date)
	lock := s.locks.acquire(key)
	defer s.locks.release(key, lock)

	appt, err = s.repo.GetAppointment(ctx, appointmentID)
	if err != nil {
		return nil, fmt.Errorf("load appointment: %w", err)
	}
	if appt == nil {
		return nil, &NotFoundError{Kind: "appointment", ID: appointmentID}
	}
	if !model.CanTransition(appt.Status, model.StatusInProgress) {
		metrics.IncInvalidTransition()
		return nil, &InvalidTransitionError{From: appt.Status, To: model.StatusInProgress}
	}

	order := &model.WorkOrder{
		ID:            uuid.NewString(),
		AppointmentID: appointmentID,
		MechanicID:    appt.MechanicID,
		OpenedAt:      time.Now(),
		Notes:         notes,
	}
	if err := s.repo.OpenWorkOrder(ctx, order); err != nil {
		return nil, fmt.Errorf("open work order: %w", err)
	}

	metrics.IncTransition(string(model.StatusInProgress))
	s.publish(events.TypeForStatus(model.StatusInProgress), appt)
	s.logger.Info().
		Str("appointment_id", appointmentID).
		Str("work_order_id", order.ID).
		Msg("work order opened")
	return order, nil
}

func (s *Service) validateCandidate(ctx context.Context, appt *model.Appointment) error {
	if appt.MechanicID == "" {
		return &ValidationError{Field: "mechanic_id", Reason: "required"}
	}
	if appt.CustomerID == "" {
		return &ValidationError{Field: "customer_id", Reason: "required"}
	}
	if appt.VehicleID == "" {
		return &ValidationError{Field: "vehicle_id", Reason: "required"}
	}
	if appt.ServiceID == "" {
		return &ValidationError{Field: "service_id", Reason: "required"}
	}
	if _, err := schedule.NewInterval(appt.Start, appt.End); err != nil {
		return &ValidationError{Field: "interval", Reason: err.Error()}
	}
	if appt.Priority == "" {
		appt.Priority = model.PriorityMedium
	}
	if !appt.Priority.Valid() {
		return &ValidationError{Field: "priority", Reason: fmt.Sprintf("unknown priority %q", appt.Priority)}
	}

	if s.horizonDays > 0 {
		limit := time.Now().AddDate(0, 0, s.horizonDays)
		if appt.Date.After(limit) {
			return &ValidationError{Field: "date", Reason: fmt.Sprintf("more than %d days ahead", s.horizonDays)}
		}
	}

	window, open := s.cal.BusinessWindow(appt.Date)
	if !open {
		return &ValidationError{Field: "date", Reason: "not a working day"}
	}
	if !schedule.ContainedIn(appt.Interval(), window) {
		return &ValidationError{Field: "interval", Reason: "outside business hours"}
	}

	// Referential preconditions fail fast, before the conflict check.
	checks := []struct {
		field  string
		id     string
		exists func(context.Context, string) (bool, error)
	}{
		{"customer_id", appt.CustomerID, s.repo.CustomerExists},
		{"vehicle_id", appt.VehicleID, s.repo.VehicleExists},
		{"mechanic_id", appt.MechanicID, s.repo.MechanicExists},
		{"service_id", appt.ServiceID, s.repo.ServiceExists},
	}
	for _, c := range checks {
		ok, err := c.exists(ctx, c.id)
		if err != nil {
			return fmt.Errorf("check %s: %w", c.field, err)
		}
		if !ok {
			return &ValidationError{Field: c.field, Reason: "referenced entity does not exist"}
		}
	}
	return nil
}

func (s *Service) publish(eventType string, payload any) {
	if s.events != nil {
		s.events.Publish(eventType, payload)
	}
}

func busyIntervals(appts []model.Appointment) []schedule.Interval {
	busy := make([]schedule.Interval, len(appts))
	for i := range appts {
		busy[i] = appts[i].Interval()
	}
	return busy
}
