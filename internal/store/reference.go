package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/almonzer-fadl/teramotors/internal/model"
)

// CustomerExists reports whether a customer row with the id exists.
func (s *Store) CustomerExists(ctx context.Context, id string) (bool, error) {
	return s.exists(ctx, "customers", id)
}

// VehicleExists reports whether a vehicle row with the id exists.
func (s *Store) VehicleExists(ctx context.Context, id string) (bool, error) {
	return s.exists(ctx, "vehicles", id)
}

// MechanicExists reports whether an active mechanic with the id exists.
func (s *Store) MechanicExists(ctx context.Context, id string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM mechanics WHERE id = ? AND is_active = 1`, id).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check mechanics: %w", err)
	}
	return count > 0, nil
}

// ServiceExists reports whether a service row with the id exists.
func (s *Store) ServiceExists(ctx context.Context, id string) (bool, error) {
	return s.exists(ctx, "services", id)
}

func (s *Store) exists(ctx context.Context, table, id string) (bool, error) {
	var count int
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE id = ?`, table)
	if err := s.db.QueryRowContext(ctx, query, id).Scan(&count); err != nil {
		return false, fmt.Errorf("check %s: %w", table, err)
	}
	return count > 0, nil
}

// CustomerContact returns the notification address for a customer, or
// (nil, nil) when the customer does not exist.
func (s *Store) CustomerContact(ctx context.Context, customerID string) (*model.Contact, error) {
	var c model.Contact
	err := s.db.QueryRowContext(ctx,
		`SELECT id, first_name || ' ' || last_name, email FROM customers WHERE id = ?`,
		customerID).Scan(&c.CustomerID, &c.Name, &c.Email)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get customer contact: %w", err)
	}
	return &c, nil
}

// UpsertCustomer inserts or replaces a customer reference row.
func (s *Store) UpsertCustomer(ctx context.Context, id, firstName, lastName, email, phone string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO customers (id, first_name, last_name, email, phone)
		 VALUES (?, ?, ?, ?, ?)`, id, firstName, lastName, email, phone)
	if err != nil {
		return fmt.Errorf("upsert customer: %w", err)
	}
	return nil
}

// UpsertVehicle inserts or replaces a vehicle reference row.
func (s *Store) UpsertVehicle(ctx context.Context, id, customerID, carMake, carModel string, year int, plate string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO vehicles (id, customer_id, make, model, year, license_plate)
		 VALUES (?, ?, ?, ?, ?, ?)`, id, customerID, carMake, carModel, year, plate)
	if err != nil {
		return fmt.Errorf("upsert vehicle: %w", err)
	}
	return nil
}

// UpsertMechanic inserts or replaces a mechanic reference row.
func (s *Store) UpsertMechanic(ctx context.Context, id, fullName string, active bool) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO mechanics (id, full_name, is_active)
		 VALUES (?, ?, ?)`, id, fullName, active)
	if err != nil {
		return fmt.Errorf("upsert mechanic: %w", err)
	}
	return nil
}

// UpsertService inserts or replaces a service reference row.
func (s *Store) UpsertService(ctx context.Context, id, name string, durationMinutes int, baseCost float64) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO services (id, name, duration_minutes, base_cost)
		 VALUES (?, ?, ?, ?)`, id, name, durationMinutes, baseCost)
	if err != nil {
		return fmt.Errorf("upsert service: %w", err)
	}
	return nil
}
