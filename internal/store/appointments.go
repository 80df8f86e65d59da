package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/almonzer-fadl/teramotors/internal/model"
)

const appointmentColumns = `id, mechanic_id, customer_id, vehicle_id, service_id,
	date, start_time, end_time, status, priority, estimated_cost, notes,
	created_at, updated_at`

// FindAppointments returns a mechanic's appointments on one calendar
// day, filtered by status and ordered by start time. statuses must be
// non-empty.
func (s *Store) FindAppointments(ctx context.Context, mechanicID string, date time.Time, statuses []model.Status) ([]model.Appointment, error) {
	if len(statuses) == 0 {
		return nil, fmt.Errorf("find appointments: no statuses given")
	}

	placeholders := make([]string, len(statuses))
	args := []any{mechanicID, dayKey(date)}
	for i, st := range statuses {
		placeholders[i] = "?"
		args = append(args, string(st))
	}

	query := fmt.Sprintf(`SELECT %s FROM appointments
		WHERE mechanic_id = ? AND date = ? AND status IN (%s)
		ORDER BY start_time`, appointmentColumns, strings.Join(placeholders, ", "))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query appointments: %w", err)
	}
	defer rows.Close()
	return scanAppointments(rows)
}

// AppointmentsOn returns every appointment on one calendar day with the
// given status, regardless of mechanic. Used by the reminder scan.
func (s *Store) AppointmentsOn(ctx context.Context, date time.Time, status model.Status) ([]model.Appointment, error) {
	query := fmt.Sprintf(`SELECT %s FROM appointments
		WHERE date = ? AND status = ?
		ORDER BY start_time`, appointmentColumns)

	rows, err := s.db.QueryContext(ctx, query, dayKey(date), string(status))
	if err != nil {
		return nil, fmt.Errorf("query appointments by day: %w", err)
	}
	defer rows.Close()
	return scanAppointments(rows)
}

// GetAppointment returns one appointment by id, or (nil, nil) when it
// does not exist.
func (s *Store) GetAppointment(ctx context.Context, id string) (*model.Appointment, error) {
	query := fmt.Sprintf(`SELECT %s FROM appointments WHERE id = ?`, appointmentColumns)

	a, err := scanAppointment(s.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get appointment: %w", err)
	}
	return a, nil
}

// CreateAppointment inserts a new appointment row.
func (s *Store) CreateAppointment(ctx context.Context, a *model.Appointment) error {
	query := `INSERT INTO appointments
		(id, mechanic_id, customer_id, vehicle_id, service_id, date,
		 start_time, end_time, status, priority, estimated_cost, notes,
		 created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		a.ID, a.MechanicID, a.CustomerID, a.VehicleID, a.ServiceID,
		dayKey(a.Date), a.Start, a.End, string(a.Status), string(a.Priority),
		a.EstimatedCost, a.Notes, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert appointment: %w", err)
	}
	return nil
}

// UpdateStatus sets the appointment's status and returns the updated
// row, or (nil, nil) when the id is unknown.
func (s *Store) UpdateStatus(ctx context.Context, id string, status model.Status) (*model.Appointment, error) {
	query := `UPDATE appointments SET status = ?, updated_at = ? WHERE id = ?`

	res, err := s.db.ExecContext(ctx, query, string(status), time.Now(), id)
	if err != nil {
		return nil, fmt.Errorf("update status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("update status: %w", err)
	}
	if n == 0 {
		return nil, nil
	}
	return s.GetAppointment(ctx, id)
}

// OpenWorkOrder inserts the work order and flips the appointment to
// in-progress in one transaction.
func (s *Store) OpenWorkOrder(ctx context.Context, w *model.WorkOrder) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO work_orders (id, appointment_id, mechanic_id, opened_at, notes)
		 VALUES (?, ?, ?, ?, ?)`,
		w.ID, w.AppointmentID, w.MechanicID, w.OpenedAt, w.Notes)
	if err != nil {
		return fmt.Errorf("insert work order: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE appointments SET status = ?, updated_at = ? WHERE id = ?`,
		string(model.StatusInProgress), time.Now(), w.AppointmentID)
	if err != nil {
		return fmt.Errorf("update appointment: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAppointment(row rowScanner) (*model.Appointment, error) {
	var (
		a        model.Appointment
		day      string
		status   string
		priority string
		notes    sql.NullString
		cost     sql.NullFloat64
	)
	err := row.Scan(&a.ID, &a.MechanicID, &a.CustomerID, &a.VehicleID,
		&a.ServiceID, &day, &a.Start, &a.End, &status, &priority,
		&cost, &notes, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	a.Date, err = time.ParseInLocation(dayFormat, day, time.Local)
	if err != nil {
		return nil, fmt.Errorf("parse date %q: %w", day, err)
	}
	a.Status = model.Status(status)
	a.Priority = model.Priority(priority)
	a.Notes = notes.String
	a.EstimatedCost = cost.Float64
	return &a, nil
}

func scanAppointments(rows *sql.Rows) ([]model.Appointment, error) {
	var out []model.Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan appointment: %w", err)
		}
		out = append(out, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate appointments: %w", err)
	}
	return out, nil
}
