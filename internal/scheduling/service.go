/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package scheduling is the orchestration layer over the booking ledger, the
// interviewer directory and the availability calculator. HTTP handlers talk
// to this service only; the service decides defaults, runs auto-assignment
// and emits lifecycle events after each committed mutation.
package scheduling

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/friendsincode/mimir_hire/internal/availability"
	"github.com/friendsincode/mimir_hire/internal/cache"
	"github.com/friendsincode/mimir_hire/internal/directory"
	"github.com/friendsincode/mimir_hire/internal/events"
	"github.com/friendsincode/mimir_hire/internal/interval"
	"github.com/friendsincode/mimir_hire/internal/ledger"
	"github.com/friendsincode/mimir_hire/internal/models"
	"github.com/friendsincode/mimir_hire/internal/telemetry"
)

// ErrUnknownMode indicates a proposal naming an interview mode the service
// does not recognize.
var ErrUnknownMode = errors.New("unknown interview mode")

// ErrMissingField indicates a proposal missing a required identifier.
var ErrMissingField = errors.New("missing required field")

// Service coordinates slot queries and booking mutations.
type Service struct {
	ledger    *ledger.Ledger
	directory *directory.Directory
	slotCache *cache.SlotCache
	bus       *events.Bus
	logger    zerolog.Logger

	slotDuration  time.Duration
	modeDurations map[models.InterviewMode]time.Duration
}

// Options configures a scheduling service.
type Options struct {
	// SlotDuration is the slot length the calendar surface offers.
	SlotDuration time.Duration

	// ModeDurations overrides the canonical per-mode default durations.
	// Keys are lowercase mode names; modes absent keep their defaults.
	ModeDurations map[string]time.Duration
}

// New creates the scheduling service.
func New(l *ledger.Ledger, d *directory.Directory, sc *cache.SlotCache, bus *events.Bus, opts Options, logger zerolog.Logger) *Service {
	if opts.SlotDuration <= 0 {
		opts.SlotDuration = time.Hour
	}

	durations := make(map[models.InterviewMode]time.Duration)
	for name, dur := range opts.ModeDurations {
		durations[models.InterviewMode(strings.ToLower(name))] = dur
	}

	return &Service{
		ledger:        l,
		directory:     d,
		slotCache:     sc,
		bus:           bus,
		logger:        logger.With().Str("component", "scheduling").Logger(),
		slotDuration:  opts.SlotDuration,
		modeDurations: durations,
	}
}

// modeDuration resolves the effective duration for a mode: profile override
// first, canonical default otherwise.
func (s *Service) modeDuration(mode models.InterviewMode) time.Duration {
	if dur, ok := s.modeDurations[mode]; ok {
		return dur
	}
	return mode.DefaultDuration()
}

// SlotQuery selects the slots to list.
type SlotQuery struct {
	Day  time.Time
	Mode models.InterviewMode

	// InterviewerID narrows the query to one interviewer. When empty, a
	// slot is offered if at least one auto-assignable interviewer is free.
	InterviewerID string
}

// ListSlots returns the open slots for a day. Results pass through the slot
// cache; a stale hit can at worst offer a slot the ledger will reject at
// booking time.
func (s *Service) ListSlots(ctx context.Context, q SlotQuery) ([]interval.Interval, error) {
	if q.Mode != "" && !q.Mode.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMode, q.Mode)
	}

	key := cache.Key(q.Day, string(q.Mode), q.InterviewerID)
	if slots, ok := s.slotCache.Get(ctx, key); ok {
		telemetry.SlotQueriesTotal.WithLabelValues("hit").Inc()
		return slots, nil
	}
	telemetry.SlotQueriesTotal.WithLabelValues("miss").Inc()

	hours := s.ledger.Hours()
	workStart, workEnd := availability.WindowForDay(q.Day, hours.DayStart, hours.DayEnd)

	var slots []interval.Interval
	var err error
	if q.InterviewerID != "" {
		slots, err = s.interviewerSlots(ctx, q.InterviewerID, q.Day, workStart, workEnd)
	} else {
		slots, err = s.anyInterviewerSlots(ctx, q.Day, workStart, workEnd)
	}
	if err != nil {
		return nil, err
	}

	s.slotCache.Set(ctx, key, slots)
	return slots, nil
}

func (s *Service) interviewerSlots(ctx context.Context, interviewerID string, day, workStart, workEnd time.Time) ([]interval.Interval, error) {
	if _, err := s.directory.Get(ctx, interviewerID); err != nil {
		return nil, err
	}
	busy, err := s.ledger.BusyIntervals(ctx, interviewerID, day)
	if err != nil {
		return nil, err
	}
	return availability.ComputeSlots(workStart, workEnd, s.slotDuration, busy), nil
}

// anyInterviewerSlots offers the union of auto-assignable availability: a
// slot stays in if at least one High or Medium interviewer is free for it.
// One bookings query per day, not per slot.
func (s *Service) anyInterviewerSlots(ctx context.Context, day, workStart, workEnd time.Time) ([]interval.Interval, error) {
	interviewers, err := s.directory.List(ctx)
	if err != nil {
		return nil, err
	}

	eligible := make(map[string]bool, len(interviewers))
	for _, iv := range interviewers {
		if iv.Tier != models.TierLow {
			eligible[iv.ID] = true
		}
	}
	if len(eligible) == 0 {
		return nil, nil
	}

	bookings, err := s.ledger.List(ctx, ledger.ListFilter{Day: day, ActiveOnly: true})
	if err != nil {
		return nil, err
	}

	candidates := availability.ComputeSlots(workStart, workEnd, s.slotDuration, nil)
	slots := candidates[:0]
	for _, slot := range candidates {
		busy := make(map[string]bool)
		for _, b := range bookings {
			if slot.Overlaps(interval.Interval{Start: b.StartsAt, End: b.EndsAt}) {
				busy[b.InterviewerID] = true
			}
		}
		free := false
		for id := range eligible {
			if !busy[id] {
				free = true
				break
			}
		}
		if free {
			slots = append(slots, slot)
		}
	}
	return slots, nil
}

// Proposal carries the caller's intent for a new booking. End and
// InterviewerID are optional; the service fills them in.
type Proposal struct {
	CandidateID   string
	JobID         string
	InterviewerID string
	Mode          models.InterviewMode
	Start         time.Time
	End           time.Time
}

// Book validates a proposal, resolves its defaults and commits it through
// the ledger. A missing end time becomes start plus the mode's duration; a
// missing interviewer triggers auto-assignment.
func (s *Service) Book(ctx context.Context, p Proposal) (*models.Booking, error) {
	if p.CandidateID == "" {
		return nil, fmt.Errorf("%w: candidate_id", ErrMissingField)
	}
	if p.JobID == "" {
		return nil, fmt.Errorf("%w: job_id", ErrMissingField)
	}
	if !p.Mode.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMode, p.Mode)
	}

	end := p.End
	if end.IsZero() {
		end = p.Start.Add(s.modeDuration(p.Mode))
	}
	ival, err := interval.New(p.Start, end)
	if err != nil {
		return nil, err
	}

	interviewerID := p.InterviewerID
	if interviewerID == "" {
		picked, err := s.directory.AutoAssign(ctx, ival)
		if err != nil {
			return nil, err
		}
		interviewerID = picked.ID
	} else if _, err := s.directory.Get(ctx, interviewerID); err != nil {
		return nil, err
	}

	booking, err := s.ledger.Create(ctx, ledger.CreateRequest{
		CandidateID:   p.CandidateID,
		JobID:         p.JobID,
		InterviewerID: interviewerID,
		Interval:      ival,
		Mode:          p.Mode,
	})
	if err != nil {
		return nil, err
	}

	s.afterMutation(ctx, booking, events.EventBookingCreated, events.Payload{
		"booking_id":     booking.ID,
		"candidate_id":   booking.CandidateID,
		"job_id":         booking.JobID,
		"interviewer_id": booking.InterviewerID,
		"mode":           string(booking.Mode),
		"starts_at":      booking.StartsAt,
		"ends_at":        booking.EndsAt,
	})
	return booking, nil
}

// Cancel releases a booking's interval. Repeat cancellations succeed without
// re-emitting the event.
func (s *Service) Cancel(ctx context.Context, bookingID string) (*models.Booking, error) {
	booking, changed, err := s.ledger.Cancel(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if changed {
		s.afterMutation(ctx, booking, events.EventBookingCancelled, events.Payload{
			"booking_id":     booking.ID,
			"candidate_id":   booking.CandidateID,
			"interviewer_id": booking.InterviewerID,
		})
	}
	return booking, nil
}

// Reschedule moves a booking to a new interval. A zero end defaults from the
// booking's mode, same as Book.
func (s *Service) Reschedule(ctx context.Context, bookingID string, newStart, newEnd time.Time) (*models.Booking, error) {
	original, err := s.ledger.Get(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if newEnd.IsZero() {
		newEnd = newStart.Add(s.modeDuration(original.Mode))
	}
	ival, err := interval.New(newStart, newEnd)
	if err != nil {
		return nil, err
	}

	booking, err := s.ledger.Reschedule(ctx, bookingID, ival)
	if err != nil {
		return nil, err
	}

	s.afterMutation(ctx, booking, events.EventBookingRescheduled, events.Payload{
		"booking_id":     booking.ID,
		"replaces":       bookingID,
		"candidate_id":   booking.CandidateID,
		"interviewer_id": booking.InterviewerID,
		"starts_at":      booking.StartsAt,
		"ends_at":        booking.EndsAt,
	})
	// The vacated day changed shape too.
	if !original.StartsAt.Truncate(24 * time.Hour).Equal(booking.StartsAt.Truncate(24 * time.Hour)) {
		s.slotCache.InvalidateDay(ctx, original.StartsAt)
	}
	return booking, nil
}

// Complete marks a booking's interview as held.
func (s *Service) Complete(ctx context.Context, bookingID string) (*models.Booking, error) {
	booking, err := s.ledger.Complete(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	s.bus.Publish(events.EventBookingCompleted, events.Payload{
		"booking_id":   booking.ID,
		"candidate_id": booking.CandidateID,
	})
	return booking, nil
}

// AttachMeetingResource records the provisioned meeting handle for a booking.
func (s *Service) AttachMeetingResource(ctx context.Context, bookingID, resource string) (*models.Booking, error) {
	if resource == "" {
		return nil, fmt.Errorf("%w: meeting_resource", ErrMissingField)
	}
	booking, err := s.ledger.AttachMeetingResource(ctx, bookingID, resource)
	if err != nil {
		return nil, err
	}
	s.bus.Publish(events.EventMeetingAttached, events.Payload{
		"booking_id":       booking.ID,
		"meeting_resource": resource,
	})
	return booking, nil
}

// GetBooking loads one booking.
func (s *Service) GetBooking(ctx context.Context, bookingID string) (*models.Booking, error) {
	return s.ledger.Get(ctx, bookingID)
}

// ListBookings returns bookings matching the filter.
func (s *Service) ListBookings(ctx context.Context, f ledger.ListFilter) ([]models.Booking, error) {
	return s.ledger.List(ctx, f)
}

// ListInterviewers returns the interviewer roster.
func (s *Service) ListInterviewers(ctx context.Context) ([]models.Interviewer, error) {
	return s.directory.List(ctx)
}

// afterMutation publishes the lifecycle event and drops the cached slots for
// the booking's day. The mutation is already committed; event delivery is
// best effort.
func (s *Service) afterMutation(ctx context.Context, booking *models.Booking, eventType events.EventType, payload events.Payload) {
	s.bus.Publish(eventType, payload)
	s.slotCache.InvalidateDay(ctx, booking.StartsAt)
}
