// Package store is the sqlite-backed persistence collaborator for the
// scheduling engine.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const dayFormat = "2006-01-02"

// Store wraps sql.DB with the queries the scheduler requires.
type Store struct {
	db *sql.DB
}

// Open opens the database at path and runs migrations.
func Open(path string) (*Store, error) {
	dsn := path
	if path != ":memory:" {
		dsn = path + "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000&_foreign_keys=on"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if path == ":memory:" {
		// A pooled second connection would see its own empty database.
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(time.Hour)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if err := createTables(db); err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// NewWithDB wraps an existing handle without running migrations.
func NewWithDB(db *sql.DB) *Store {
	return &Store{db: db}
}

// Close closes the underlying handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks connectivity for readiness probes.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func createTables(db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS customers (
			id TEXT PRIMARY KEY,
			first_name TEXT NOT NULL,
			last_name TEXT NOT NULL,
			email TEXT NOT NULL,
			phone TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS vehicles (
			id TEXT PRIMARY KEY,
			customer_id TEXT NOT NULL,
			make TEXT,
			model TEXT,
			year INTEGER,
			license_plate TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (customer_id) REFERENCES customers(id)
		)`,

		`CREATE TABLE IF NOT EXISTS mechanics (
			id TEXT PRIMARY KEY,
			full_name TEXT NOT NULL,
			is_active BOOLEAN NOT NULL DEFAULT 1,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS services (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			duration_minutes INTEGER NOT NULL DEFAULT 60,
			base_cost REAL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS appointments (
			id TEXT PRIMARY KEY,
			mechanic_id TEXT NOT NULL,
			customer_id TEXT NOT NULL,
			vehicle_id TEXT NOT NULL,
			service_id TEXT NOT NULL,
			date TEXT NOT NULL,
			start_time DATETIME NOT NULL,
			end_time DATETIME NOT NULL,
			status TEXT NOT NULL DEFAULT 'scheduled',
			priority TEXT NOT NULL DEFAULT 'medium',
			estimated_cost REAL,
			notes TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (mechanic_id) REFERENCES mechanics(id),
			FOREIGN KEY (customer_id) REFERENCES customers(id),
			FOREIGN KEY (vehicle_id) REFERENCES vehicles(id),
			FOREIGN KEY (service_id) REFERENCES services(id)
		)`,

		`CREATE TABLE IF NOT EXISTS work_orders (
			id TEXT PRIMARY KEY,
			appointment_id TEXT NOT NULL,
			mechanic_id TEXT NOT NULL,
			opened_at DATETIME NOT NULL,
			notes TEXT,
			FOREIGN KEY (appointment_id) REFERENCES appointments(id)
		)`,

		`CREATE INDEX IF NOT EXISTS idx_appointments_mechanic_date ON appointments(mechanic_id, date)`,
		`CREATE INDEX IF NOT EXISTS idx_appointments_date_status ON appointments(date, status)`,
		`CREATE INDEX IF NOT EXISTS idx_vehicles_customer ON vehicles(customer_id)`,
		`CREATE INDEX IF NOT EXISTS idx_work_orders_appointment ON work_orders(appointment_id)`,
	}

	for _, q := range queries {
		if _, err := db.Exec(q); err != nil {
			return fmt.Errorf("exec migration %s: %w", trimSQL(q), err)
		}
	}
	return nil
}

func trimSQL(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 60 {
		return s[:60] + "..."
	}
	return s
}

func dayKey(date time.Time) string {
	return date.Format(dayFormat)
}
