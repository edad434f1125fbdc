/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package conflict decides whether a proposed booking collides with the
// existing booking set. It runs twice on the booking path: best-effort when
// slots are listed, and authoritatively inside the ledger's critical section
// right before the write. Only the second run is load-bearing.
package conflict

import (
	"fmt"

	"github.com/friendsincode/mimir_hire/internal/interval"
	"github.com/friendsincode/mimir_hire/internal/models"
)

// Kind distinguishes which party the proposed interval collides with.
type Kind string

const (
	KindCandidate   Kind = "candidate_conflict"
	KindInterviewer Kind = "interviewer_conflict"
)

// Conflict describes a collision with an existing non-cancelled booking.
// It implements error so it can travel through the usual return paths.
type Conflict struct {
	Kind                 Kind
	ConflictingBookingID string
}

func (c *Conflict) Error() string {
	return fmt.Sprintf("%s with booking %s", c.Kind, c.ConflictingBookingID)
}

// Proposal is the subset of a booking the detector needs.
type Proposal struct {
	BookingID     string // empty for a new booking; set when rescheduling so the old row is skipped
	CandidateID   string
	InterviewerID string
	Interval      interval.Interval
}

// Check returns the first conflict between the proposal and the existing
// bookings, or nil. Candidate conflicts win over interviewer conflicts when
// both apply. Cancelled, rescheduled, and completed bookings never conflict.
func Check(p Proposal, existing []models.Booking) *Conflict {
	var interviewerHit *Conflict

	for i := range existing {
		b := &existing[i]
		if !b.IsActive() || b.ID == p.BookingID {
			continue
		}
		occupied := interval.Interval{Start: b.StartsAt, End: b.EndsAt}
		if !p.Interval.Overlaps(occupied) {
			continue
		}
		if b.CandidateID == p.CandidateID {
			return &Conflict{Kind: KindCandidate, ConflictingBookingID: b.ID}
		}
		if b.InterviewerID == p.InterviewerID && interviewerHit == nil {
			interviewerHit = &Conflict{Kind: KindInterviewer, ConflictingBookingID: b.ID}
		}
	}
	return interviewerHit
}
