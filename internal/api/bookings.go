/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/friendsincode/mimir_hire/internal/conflict"
	"github.com/friendsincode/mimir_hire/internal/directory"
	"github.com/friendsincode/mimir_hire/internal/ledger"
	"github.com/friendsincode/mimir_hire/internal/models"
	"github.com/friendsincode/mimir_hire/internal/scheduling"
	"github.com/friendsincode/mimir_hire/internal/telemetry"
)

type bookingCreateRequest struct {
	CandidateID   string    `json:"candidate_id"`
	JobID         string    `json:"job_id"`
	InterviewerID string    `json:"interviewer_id,omitempty"`
	Mode          string    `json:"mode"`
	StartsAt      time.Time `json:"starts_at"`
	EndsAt        time.Time `json:"ends_at,omitempty"`
}

type rescheduleRequest struct {
	StartsAt time.Time `json:"starts_at"`
	EndsAt   time.Time `json:"ends_at,omitempty"`
}

type meetingResourceRequest struct {
	MeetingResource string `json:"meeting_resource"`
}

func (a *API) handleBookingsCreate(w http.ResponseWriter, r *http.Request) {
	var req bookingCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}

	booking, err := a.scheduling.Book(r.Context(), scheduling.Proposal{
		CandidateID:   req.CandidateID,
		JobID:         req.JobID,
		InterviewerID: req.InterviewerID,
		Mode:          models.InterviewMode(req.Mode),
		Start:         req.StartsAt,
		End:           req.EndsAt,
	})
	if err != nil {
		a.countBookingFailure(err)
		a.writeDomainError(w, err)
		return
	}

	telemetry.BookingsTotal.WithLabelValues("create").Inc()
	writeJSON(w, http.StatusCreated, booking)
}

func (a *API) handleBookingsGet(w http.ResponseWriter, r *http.Request) {
	booking, err := a.scheduling.GetBooking(r.Context(), chi.URLParam(r, "bookingID"))
	if err != nil {
		a.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

func (a *API) handleBookingsList(w http.ResponseWriter, r *http.Request) {
	filter := ledger.ListFilter{
		InterviewerID: r.URL.Query().Get("interviewer_id"),
		CandidateID:   r.URL.Query().Get("candidate_id"),
		ActiveOnly:    r.URL.Query().Get("active") == "true",
	}
	if day := r.URL.Query().Get("day"); day != "" {
		parsed, err := time.Parse("2006-01-02", day)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_day")
			return
		}
		filter.Day = parsed
	}

	bookings, err := a.scheduling.ListBookings(r.Context(), filter)
	if err != nil {
		a.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bookings)
}

func (a *API) handleBookingsCancel(w http.ResponseWriter, r *http.Request) {
	booking, err := a.scheduling.Cancel(r.Context(), chi.URLParam(r, "bookingID"))
	if err != nil {
		a.writeDomainError(w, err)
		return
	}
	telemetry.BookingsTotal.WithLabelValues("cancel").Inc()
	writeJSON(w, http.StatusOK, booking)
}

func (a *API) handleBookingsReschedule(w http.ResponseWriter, r *http.Request) {
	var req rescheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}

	booking, err := a.scheduling.Reschedule(r.Context(), chi.URLParam(r, "bookingID"), req.StartsAt, req.EndsAt)
	if err != nil {
		a.countBookingFailure(err)
		a.writeDomainError(w, err)
		return
	}
	telemetry.BookingsTotal.WithLabelValues("reschedule").Inc()
	writeJSON(w, http.StatusOK, booking)
}

func (a *API) handleBookingsComplete(w http.ResponseWriter, r *http.Request) {
	booking, err := a.scheduling.Complete(r.Context(), chi.URLParam(r, "bookingID"))
	if err != nil {
		a.writeDomainError(w, err)
		return
	}
	telemetry.BookingsTotal.WithLabelValues("complete").Inc()
	writeJSON(w, http.StatusOK, booking)
}

// handleMeetingResourceAttach is the callback endpoint for the video
// provisioner after it consumes a booking.created event.
func (a *API) handleMeetingResourceAttach(w http.ResponseWriter, r *http.Request) {
	var req meetingResourceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}

	booking, err := a.scheduling.AttachMeetingResource(r.Context(), chi.URLParam(r, "bookingID"), req.MeetingResource)
	if err != nil {
		a.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

func (a *API) countBookingFailure(err error) {
	var c *conflict.Conflict
	if errors.As(err, &c) {
		telemetry.BookingConflictsTotal.WithLabelValues(string(c.Kind)).Inc()
	}
	if errors.Is(err, directory.ErrNoInterviewerAvailable) {
		telemetry.AutoAssignFailuresTotal.Inc()
	}
}
