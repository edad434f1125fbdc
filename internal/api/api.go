/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package api exposes the HTTP surface of the scheduling service.
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/friendsincode/mimir_hire/internal/audit"
	"github.com/friendsincode/mimir_hire/internal/auth"
	"github.com/friendsincode/mimir_hire/internal/conflict"
	"github.com/friendsincode/mimir_hire/internal/directory"
	"github.com/friendsincode/mimir_hire/internal/interval"
	"github.com/friendsincode/mimir_hire/internal/ledger"
	"github.com/friendsincode/mimir_hire/internal/scheduling"
)

// API exposes HTTP handlers.
type API struct {
	jwtSecret  []byte
	scheduling *scheduling.Service
	auditSvc   *audit.Service
	logger     zerolog.Logger
}

// New creates the API router wrapper.
func New(jwtSecret []byte, sched *scheduling.Service, auditSvc *audit.Service, logger zerolog.Logger) *API {
	return &API{
		jwtSecret:  jwtSecret,
		scheduling: sched,
		auditSvc:   auditSvc,
		logger:     logger.With().Str("component", "api").Logger(),
	}
}

// Routes mounts every endpoint on the router.
func (a *API) Routes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", a.handleHealth)

		r.Group(func(pr chi.Router) {
			pr.Use(auth.Middleware(a.jwtSecret))

			pr.Get("/slots", a.handleSlotsList)
			pr.Get("/interviewers", a.handleInterviewersList)

			pr.Route("/bookings", func(r chi.Router) {
				r.Get("/", a.handleBookingsList)
				r.With(auth.RequireRole(auth.RoleCoordinator)).Post("/", a.handleBookingsCreate)

				r.Route("/{bookingID}", func(r chi.Router) {
					r.Get("/", a.handleBookingsGet)
					r.With(auth.RequireRole(auth.RoleCoordinator)).Delete("/", a.handleBookingsCancel)
					r.With(auth.RequireRole(auth.RoleCoordinator)).Post("/reschedule", a.handleBookingsReschedule)
					r.With(auth.RequireRole(auth.RoleCoordinator, auth.RoleInterviewer)).Post("/complete", a.handleBookingsComplete)
					r.With(auth.RequireRole(auth.RoleAdmin)).Post("/meeting-resource", a.handleMeetingResourceAttach)
				})
			})

			pr.With(auth.RequireRole(auth.RoleAdmin)).Get("/audit", a.handleAuditList)
		})
	})
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeDomainError maps service errors onto HTTP statuses. Conflicts carry
// their kind and the blocking booking id so callers can re-query around it.
func (a *API) writeDomainError(w http.ResponseWriter, err error) {
	var c *conflict.Conflict
	switch {
	case errors.As(err, &c):
		writeJSON(w, http.StatusConflict, map[string]string{
			"error":                  "conflict",
			"kind":                   string(c.Kind),
			"conflicting_booking_id": c.ConflictingBookingID,
		})
	case errors.Is(err, ledger.ErrNotFound), errors.Is(err, gorm.ErrRecordNotFound):
		writeError(w, http.StatusNotFound, "not_found")
	case errors.Is(err, ledger.ErrNotYetOccurred):
		writeError(w, http.StatusUnprocessableEntity, "not_yet_occurred")
	case errors.Is(err, ledger.ErrInvalidTransition):
		writeError(w, http.StatusConflict, "invalid_transition")
	case errors.Is(err, directory.ErrNoInterviewerAvailable):
		writeError(w, http.StatusConflict, "no_interviewer_available")
	case errors.Is(err, ledger.ErrStartInPast):
		writeError(w, http.StatusBadRequest, "start_in_past")
	case errors.Is(err, ledger.ErrOutsideWorkingHours):
		writeError(w, http.StatusBadRequest, "outside_working_hours")
	case errors.Is(err, interval.ErrInvalidInterval):
		writeError(w, http.StatusBadRequest, "invalid_interval")
	case errors.Is(err, scheduling.ErrUnknownMode):
		writeError(w, http.StatusBadRequest, "unknown_mode")
	case errors.Is(err, scheduling.ErrMissingField):
		writeError(w, http.StatusBadRequest, "missing_required_fields")
	default:
		a.logger.Error().Err(err).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "internal_error")
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}
