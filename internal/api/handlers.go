package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/almonzer-fadl/teramotors/internal/model"
	"github.com/almonzer-fadl/teramotors/internal/reminder"
	"github.com/almonzer-fadl/teramotors/internal/scheduler"
)

const (
	dayFormat              = "2006-01-02"
	defaultDurationMinutes = 60
)

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GET /api/appointments/available-slots?mechanic_id=&date=&duration=
func (s *Server) handleAvailableSlots(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	date, err := time.ParseInLocation(dayFormat, q.Get("date"), time.Local)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "date must be YYYY-MM-DD"})
		return
	}

	minutes := defaultDurationMinutes
	if raw := q.Get("duration"); raw != "" {
		minutes, err = strconv.Atoi(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "duration must be whole minutes"})
			return
		}
	}

	slots, err := s.scheduler.AvailableSlots(r.Context(), q.Get("mechanic_id"), date, time.Duration(minutes)*time.Minute)
	if err != nil {
		s.writeError(w, err)
		return
	}

	formatted := make([]string, len(slots))
	for i, t := range slots {
		formatted[i] = t.Format("15:04")
	}
	writeJSON(w, http.StatusOK, map[string]any{"date": q.Get("date"), "slots": formatted})
}

type bookRequest struct {
	MechanicID    string  `json:"mechanic_id"`
	CustomerID    string  `json:"customer_id"`
	VehicleID     string  `json:"vehicle_id"`
	ServiceID     string  `json:"service_id"`
	Date          string  `json:"date"`
	StartTime     string  `json:"start_time"`
	EndTime       string  `json:"end_time"`
	Priority      string  `json:"priority"`
	EstimatedCost float64 `json:"estimated_cost"`
	Notes         string  `json:"notes"`
}

// POST /api/appointments
func (s *Server) handleBook(w http.ResponseWriter, r *http.Request) {
	var req bookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	date, err := time.ParseInLocation(dayFormat, req.Date, time.Local)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "date must be YYYY-MM-DD"})
		return
	}
	start, err := parseClock(date, req.StartTime)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "start_time must be HH:MM"})
		return
	}
	end, err := parseClock(date, req.EndTime)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "end_time must be HH:MM"})
		return
	}

	appt := &model.Appointment{
		MechanicID:    req.MechanicID,
		CustomerID:    req.CustomerID,
		VehicleID:     req.VehicleID,
		ServiceID:     req.ServiceID,
		Date:          date,
		Start:         start,
		End:           end,
		Priority:      model.Priority(req.Priority),
		EstimatedCost: req.EstimatedCost,
		Notes:         req.Notes,
	}

	created, err := s.scheduler.Book(r.Context(), appt)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

type statusRequest struct {
	Status string `json:"status"`
}

// PUT /api/appointments/{id}/status
func (s *Server) handleChangeStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	updated, err := s.scheduler.ChangeStatus(r.Context(), mux.Vars(r)["id"], model.Status(req.Status))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

type workOrderRequest struct {
	Notes string `json:"notes"`
}

// POST /api/appointments/{id}/work-order
func (s *Server) handleOpenWorkOrder(w http.ResponseWriter, r *http.Request) {
	var req workOrderRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
			return
		}
	}

	order, err := s.scheduler.OpenWorkOrder(r.Context(), mux.Vars(r)["id"], req.Notes)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, order)
}

// POST /api/reminders/run
func (s *Server) handleRunReminders(w http.ResponseWriter, r *http.Request) {
	if s.reminders == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "reminders disabled"})
		return
	}
	sent, err := s.reminders.Dispatch(r.Context(), time.Now())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"sent": sent})
}

// writeError maps engine errors to HTTP status codes.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	var (
		validation *scheduler.ValidationError
		conflict   *scheduler.ConflictError
		transition *scheduler.InvalidTransitionError
		notFound   *scheduler.NotFoundError
	)
	switch {
	case errors.As(err, &validation):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: validation.Error()})
	case errors.As(err, &conflict):
		writeJSON(w, http.StatusConflict, errorResponse{Error: conflict.Error()})
	case errors.As(err, &transition):
		writeJSON(w, http.StatusConflict, errorResponse{Error: transition.Error()})
	case errors.As(err, &notFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: notFound.Error()})
	case errors.Is(err, reminder.ErrAlreadyRunning):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
	default:
		s.logger.Error().Err(err).Msg("request failed")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func parseClock(date time.Time, clock string) (time.Time, error) {
	t, err := time.ParseInLocation("15:04", clock, date.Location())
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(date.Year(), date.Month(), date.Day(), t.Hour(), t.Minute(), 0, 0, date.Location()), nil
}
