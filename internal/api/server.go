// Package api exposes the scheduling engine over HTTP.
package api

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/almonzer-fadl/teramotors/internal/model"
)

// Scheduler is the engine surface the HTTP handlers call.
type Scheduler interface {
	AvailableSlots(ctx context.Context, mechanicID string, date time.Time, duration time.Duration) ([]time.Time, error)
	Book(ctx context.Context, appt *model.Appointment) (*model.Appointment, error)
	ChangeStatus(ctx context.Context, id string, to model.Status) (*model.Appointment, error)
	OpenWorkOrder(ctx context.Context, appointmentID, notes string) (*model.WorkOrder, error)
}

// ReminderRunner triggers a reminder dispatch on demand.
type ReminderRunner interface {
	Dispatch(ctx context.Context, now time.Time) (int, error)
}

// Server wires the HTTP routes to the scheduling engine.
type Server struct {
	scheduler Scheduler
	reminders ReminderRunner
	logger    *zerolog.Logger
}

// NewServer creates the API server. reminders may be nil, in which
// case the manual dispatch route answers 503.
func NewServer(scheduler Scheduler, reminders ReminderRunner, logger *zerolog.Logger) *Server {
	return &Server{scheduler: scheduler, reminders: reminders, logger: logger}
}

// Handler builds the routed handler with request logging.
func (s *Server) Handler() http.Handler {
	router := mux.NewRouter()
	router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	api.HandleFunc("/appointments/available-slots", s.handleAvailableSlots).Methods(http.MethodGet)
	api.HandleFunc("/appointments", s.handleBook).Methods(http.MethodPost)
	api.HandleFunc("/appointments/{id}/status", s.handleChangeStatus).Methods(http.MethodPut)
	api.HandleFunc("/appointments/{id}/work-order", s.handleOpenWorkOrder).Methods(http.MethodPost)
	api.HandleFunc("/reminders/run", s.handleRunReminders).Methods(http.MethodPost)

	return handlers.LoggingHandler(os.Stdout, router)
}
