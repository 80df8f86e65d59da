// Package reminder scans for tomorrow's scheduled appointments and
// sends each customer one reminder.
package reminder

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/almonzer-fadl/teramotors/internal/events"
	"github.com/almonzer-fadl/teramotors/internal/metrics"
	"github.com/almonzer-fadl/teramotors/internal/model"
	"github.com/almonzer-fadl/teramotors/internal/notify"
)

// ErrAlreadyRunning is returned when a dispatch is requested while a
// previous one is still in flight.
var ErrAlreadyRunning = errors.New("reminder dispatch already running")

const defaultMaxConcurrentSends = 8

// AppointmentSource is the persistence surface the dispatcher reads.
type AppointmentSource interface {
	AppointmentsOn(ctx context.Context, date time.Time, status model.Status) ([]model.Appointment, error)
	CustomerContact(ctx context.Context, customerID string) (*model.Contact, error)
}

// EventPublisher receives a reminder.dispatched event per delivery.
type EventPublisher interface {
	Publish(eventType string, payload any)
}

// Dispatcher delivers reminders for appointments scheduled on the day
// after the dispatch time. At most one dispatch runs at a time, and a
// dedupe claim guarantees each appointment is reminded at most once
// per target day even when the scan runs repeatedly.
type Dispatcher struct {
	source        AppointmentSource
	notifier      notify.Notifier
	dedupe        DedupeStore
	events        EventPublisher
	maxConcurrent int
	inFlight      atomic.Bool
	logger        *zerolog.Logger
}

// NewDispatcher creates a dispatcher. events may be nil; maxConcurrent
// falls back to a default when non-positive.
func NewDispatcher(source AppointmentSource, notifier notify.Notifier, dedupe DedupeStore, events EventPublisher, maxConcurrent int, logger *zerolog.Logger) *Dispatcher {
	if maxConcurrent <= 0 {
		maxConcurrent = defaultMaxConcurrentSends
	}
	return &Dispatcher{
		source:        source,
		notifier:      notifier,
		dedupe:        dedupe,
		events:        events,
		maxConcurrent: maxConcurrent,
		logger:        logger,
	}
}

// Dispatch scans the day after now and sends reminders for scheduled
// appointments. It returns the number of reminders sent. A send
// failure is logged and counted but does not abort the batch.
func (d *Dispatcher) Dispatch(ctx context.Context, now time.Time) (int, error) {
	if !d.inFlight.CompareAndSwap(false, true) {
		return 0, ErrAlreadyRunning
	}
	defer d.inFlight.Store(false)

	target := now.AddDate(0, 0, 1)
	appts, err := d.source.AppointmentsOn(ctx, target, model.StatusScheduled)
	if err != nil {
		return 0, fmt.Errorf("scan appointments: %w", err)
	}
	if len(appts) == 0 {
		d.logger.Debug().Str("date", target.Format("2006-01-02")).Msg("no reminders due")
		return 0, nil
	}

	var (
		wg   sync.WaitGroup
		sem  = make(chan struct{}, d.maxConcurrent)
		sent atomic.Int64
	)
	for i := range appts {
		appt := appts[i]

		claimed, err := d.dedupe.MarkSent(ctx, appt.ID, target)
		if err != nil {
			d.logger.Error().Err(err).Str("appointment_id", appt.ID).Msg("dedupe claim failed")
			metrics.IncReminder("failed")
			continue
		}
		if !claimed {
			metrics.IncReminder("skipped")
			continue
		}

		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			if err := d.send(ctx, &appt); err != nil {
				d.logger.Error().Err(err).Str("appointment_id", appt.ID).Msg("reminder failed")
				metrics.IncReminder("failed")
				return
			}
			sent.Add(1)
			metrics.IncReminder("sent")
			if d.events != nil {
				d.events.Publish(events.TypeReminderDispatched, &appt)
			}
		}()
	}
	wg.Wait()

	d.logger.Info().
		Str("date", target.Format("2006-01-02")).
		Int("candidates", len(appts)).
		Int64("sent", sent.Load()).
		Msg("reminder dispatch finished")
	return int(sent.Load()), nil
}

func (d *Dispatcher) send(ctx context.Context, appt *model.Appointment) error {
	contact, err := d.source.CustomerContact(ctx, appt.CustomerID)
	if err != nil {
		return fmt.Errorf("load contact: %w", err)
	}
	if contact == nil {
		return fmt.Errorf("customer %s has no contact record", appt.CustomerID)
	}

	body := fmt.Sprintf("Hi %s, this is a reminder for your appointment tomorrow at %s.",
		contact.Name, appt.Start.Format("15:04"))
	return d.notifier.Send(ctx, contact, "Appointment reminder", body)
}

// RunDaily blocks until ctx is cancelled, triggering a dispatch every
// day at the given local hour.
func (d *Dispatcher) RunDaily(ctx context.Context, hour int) {
	timer := time.NewTimer(timeUntilNextHour(time.Now(), hour))
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			if _, err := d.Dispatch(ctx, time.Now()); err != nil && !errors.Is(err, ErrAlreadyRunning) {
				d.logger.Error().Err(err).Msg("scheduled reminder dispatch failed")
			}
			timer.Reset(24 * time.Hour)
		}
	}
}

func timeUntilNextHour(now time.Time, hour int) time.Duration {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next.Sub(now)
}
