/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package conflict

import (
	"testing"
	"time"

	"github.com/friendsincode/mimir_hire/internal/interval"
	"github.com/friendsincode/mimir_hire/internal/models"
)

func at(hour int) time.Time {
	return time.Date(2024, 1, 20, hour, 0, 0, 0, time.UTC)
}

func booking(id, candidateID, interviewerID string, startHour, endHour int, status models.BookingStatus) models.Booking {
	return models.Booking{
		ID:            id,
		CandidateID:   candidateID,
		InterviewerID: interviewerID,
		StartsAt:      at(startHour),
		EndsAt:        at(endHour),
		Status:        status,
	}
}

func TestCheck(t *testing.T) {
	existing := []models.Booking{
		booking("b1", "c1", "i1", 10, 11, models.BookingConfirmed),
		booking("b2", "c2", "i2", 14, 15, models.BookingCancelled),
		booking("b3", "c3", "i3", 9, 10, models.BookingConfirmed),
	}

	tests := []struct {
		name     string
		proposal Proposal
		want     *Conflict
	}{
		{
			name: "no overlap no conflict",
			proposal: Proposal{
				CandidateID:   "c9",
				InterviewerID: "i9",
				Interval:      interval.Interval{Start: at(12), End: at(13)},
			},
			want: nil,
		},
		{
			name: "interviewer double booked",
			proposal: Proposal{
				CandidateID:   "c9",
				InterviewerID: "i1",
				Interval:      interval.Interval{Start: at(10), End: at(11)},
			},
			want: &Conflict{Kind: KindInterviewer, ConflictingBookingID: "b1"},
		},
		{
			name: "candidate double booked",
			proposal: Proposal{
				CandidateID:   "c1",
				InterviewerID: "i9",
				Interval:      interval.Interval{Start: at(10), End: at(11)},
			},
			want: &Conflict{Kind: KindCandidate, ConflictingBookingID: "b1"},
		},
		{
			name: "candidate conflict wins when both parties collide",
			proposal: Proposal{
				CandidateID:   "c1",
				InterviewerID: "i1",
				Interval:      interval.Interval{Start: at(10), End: at(11)},
			},
			want: &Conflict{Kind: KindCandidate, ConflictingBookingID: "b1"},
		},
		{
			name: "cancelled booking frees the interval",
			proposal: Proposal{
				CandidateID:   "c2",
				InterviewerID: "i2",
				Interval:      interval.Interval{Start: at(14), End: at(15)},
			},
			want: nil,
		},
		{
			name: "partial overlap still conflicts",
			proposal: Proposal{
				CandidateID:   "c9",
				InterviewerID: "i1",
				Interval:      interval.Interval{Start: at(9), End: at(11)},
			},
			want: &Conflict{Kind: KindInterviewer, ConflictingBookingID: "b1"},
		},
		{
			name: "adjacent interval does not conflict",
			proposal: Proposal{
				CandidateID:   "c9",
				InterviewerID: "i1",
				Interval:      interval.Interval{Start: at(11), End: at(12)},
			},
			want: nil,
		},
		{
			name: "reschedule skips its own booking",
			proposal: Proposal{
				BookingID:     "b1",
				CandidateID:   "c1",
				InterviewerID: "i1",
				Interval:      interval.Interval{Start: at(10), End: at(11)},
			},
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Check(tt.proposal, existing)
			if (got == nil) != (tt.want == nil) {
				t.Fatalf("Check() = %v, want %v", got, tt.want)
			}
			if got == nil {
				return
			}
			if got.Kind != tt.want.Kind || got.ConflictingBookingID != tt.want.ConflictingBookingID {
				t.Errorf("Check() = %+v, want %+v", got, tt.want)
			}
		})
	}
}
