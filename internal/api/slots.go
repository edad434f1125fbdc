/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/friendsincode/mimir_hire/internal/audit"
	"github.com/friendsincode/mimir_hire/internal/models"
	"github.com/friendsincode/mimir_hire/internal/scheduling"
)

// handleSlotsList serves the candidate-facing calendar: open slots for a
// day, optionally narrowed to one mode or one interviewer.
func (a *API) handleSlotsList(w http.ResponseWriter, r *http.Request) {
	dayParam := r.URL.Query().Get("day")
	if dayParam == "" {
		writeError(w, http.StatusBadRequest, "day_required")
		return
	}
	day, err := time.Parse("2006-01-02", dayParam)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_day")
		return
	}

	slots, err := a.scheduling.ListSlots(r.Context(), scheduling.SlotQuery{
		Day:           day,
		Mode:          models.InterviewMode(r.URL.Query().Get("mode")),
		InterviewerID: r.URL.Query().Get("interviewer_id"),
	})
	if err != nil {
		a.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"day":   day.Format("2006-01-02"),
		"slots": slots,
	})
}

func (a *API) handleInterviewersList(w http.ResponseWriter, r *http.Request) {
	interviewers, err := a.scheduling.ListInterviewers(r.Context())
	if err != nil {
		a.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, interviewers)
}

func (a *API) handleAuditList(w http.ResponseWriter, r *http.Request) {
	filters := auditFiltersFromQuery(r)
	logs, total, err := a.auditSvc.Query(r.Context(), filters)
	if err != nil {
		a.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"total":   total,
		"entries": logs,
	})
}

func auditFiltersFromQuery(r *http.Request) audit.QueryFilters {
	q := r.URL.Query()
	filters := audit.QueryFilters{}
	if v := q.Get("resource_id"); v != "" {
		filters.ResourceID = &v
	}
	if v := q.Get("actor_id"); v != "" {
		filters.ActorID = &v
	}
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filters.Limit = n
		}
	}
	if v := q.Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filters.Offset = n
		}
	}
	return filters
}
