/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package ledger owns the authoritative booking set. Every mutation passes
// through the conflict detector inside the same critical section as the
// write, so two callers racing for one slot cannot both win.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/friendsincode/mimir_hire/internal/availability"
	"github.com/friendsincode/mimir_hire/internal/conflict"
	"github.com/friendsincode/mimir_hire/internal/interval"
	"github.com/friendsincode/mimir_hire/internal/models"
)

var (
	// ErrNotFound indicates an unknown booking id.
	ErrNotFound = errors.New("booking not found")

	// ErrStartInPast indicates a booking proposed for a time already gone.
	ErrStartInPast = errors.New("booking starts in the past")

	// ErrOutsideWorkingHours indicates an interval outside the configured
	// working window for its day.
	ErrOutsideWorkingHours = errors.New("interval outside working hours")

	// ErrNotYetOccurred indicates a completion attempt before the booked
	// interval has elapsed.
	ErrNotYetOccurred = errors.New("booking interval has not yet elapsed")

	// ErrInvalidTransition indicates a state change the booking lifecycle
	// does not allow.
	ErrInvalidTransition = errors.New("invalid booking state transition")
)

// WorkingHours bounds the bookable portion of every day.
type WorkingHours struct {
	DayStart availability.DayClock
	DayEnd   availability.DayClock
}

// Ledger is the single owner of booking writes. A process-wide mutex
// serializes the whole mutation path; the workload is low-volume, so
// per-interviewer locking would be an optimization with nothing to pay for
// it. Reads never take the lock.
type Ledger struct {
	db     *gorm.DB
	hours  WorkingHours
	logger zerolog.Logger
	now    func() time.Time

	mu sync.Mutex
}

// New creates a booking ledger.
func New(db *gorm.DB, hours WorkingHours, logger zerolog.Logger) *Ledger {
	return &Ledger{
		db:     db,
		hours:  hours,
		logger: logger.With().Str("component", "ledger").Logger(),
		now:    time.Now,
	}
}

// WithClock overrides the ledger clock. Tests use this to book around a
// fixed instant.
func (l *Ledger) WithClock(now func() time.Time) *Ledger {
	l.now = now
	return l
}

// CreateRequest carries the fields for a new booking.
type CreateRequest struct {
	CandidateID   string
	JobID         string
	InterviewerID string
	Interval      interval.Interval
	Mode          models.InterviewMode
}

// Create validates the interval, runs the authoritative conflict check and
// inserts a Confirmed booking, all under the write lock. A conflict is
// returned verbatim; the ledger never retries or reassigns.
func (l *Ledger) Create(ctx context.Context, req CreateRequest) (*models.Booking, error) {
	if err := l.validateInterval(req.Interval); err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	var created *models.Booking
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := activeOverlapping(tx, req.Interval, req.CandidateID, req.InterviewerID)
		if err != nil {
			return err
		}
		if c := conflict.Check(conflict.Proposal{
			CandidateID:   req.CandidateID,
			InterviewerID: req.InterviewerID,
			Interval:      req.Interval,
		}, existing); c != nil {
			return c
		}

		booking := models.Booking{
			ID:            uuid.NewString(),
			CandidateID:   req.CandidateID,
			JobID:         req.JobID,
			InterviewerID: req.InterviewerID,
			StartsAt:      req.Interval.Start,
			EndsAt:        req.Interval.End,
			Mode:          req.Mode,
			Status:        models.BookingConfirmed,
		}
		if err := tx.Create(&booking).Error; err != nil {
			return fmt.Errorf("insert booking: %w", err)
		}
		created = &booking
		return nil
	})
	if err != nil {
		return nil, err
	}

	l.logger.Info().
		Str("booking_id", created.ID).
		Str("interviewer_id", created.InterviewerID).
		Str("candidate_id", created.CandidateID).
		Time("starts_at", created.StartsAt).
		Msg("booking created")
	return created, nil
}

// Cancel marks a booking cancelled and frees its interval. Cancelling an
// already-cancelled booking is a no-op success. The returned bool reports
// whether this call changed anything.
func (l *Ledger) Cancel(ctx context.Context, bookingID string) (*models.Booking, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var booking models.Booking
	var changed bool
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&booking, "id = ?", bookingID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("load booking: %w", err)
		}

		switch booking.Status {
		case models.BookingCancelled:
			return nil // idempotent
		case models.BookingProposed, models.BookingConfirmed:
		default:
			return fmt.Errorf("%w: cannot cancel a %s booking", ErrInvalidTransition, booking.Status)
		}

		booking.Status = models.BookingCancelled
		if err := tx.Model(&booking).Update("status", models.BookingCancelled).Error; err != nil {
			return fmt.Errorf("cancel booking: %w", err)
		}
		changed = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	if changed {
		l.logger.Info().Str("booking_id", booking.ID).Msg("booking cancelled")
	}
	return &booking, changed, nil
}

// Reschedule moves a Confirmed booking to a new interval as one atomic
// operation: the old record is marked Rescheduled and a fresh Confirmed
// booking (new id, same candidate/interviewer/mode) references it. If the
// new interval conflicts, nothing changes and the conflict is returned.
func (l *Ledger) Reschedule(ctx context.Context, bookingID string, newInterval interval.Interval) (*models.Booking, error) {
	if err := l.validateInterval(newInterval); err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	var replacement *models.Booking
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var old models.Booking
		if err := tx.First(&old, "id = ?", bookingID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("load booking: %w", err)
		}
		if old.Status != models.BookingConfirmed {
			return fmt.Errorf("%w: cannot reschedule a %s booking", ErrInvalidTransition, old.Status)
		}

		existing, err := activeOverlapping(tx, newInterval, old.CandidateID, old.InterviewerID)
		if err != nil {
			return err
		}
		if c := conflict.Check(conflict.Proposal{
			BookingID:     old.ID,
			CandidateID:   old.CandidateID,
			InterviewerID: old.InterviewerID,
			Interval:      newInterval,
		}, existing); c != nil {
			return c
		}

		if err := tx.Model(&old).Update("status", models.BookingRescheduled).Error; err != nil {
			return fmt.Errorf("retire booking: %w", err)
		}

		next := models.Booking{
			ID:                uuid.NewString(),
			CandidateID:       old.CandidateID,
			JobID:             old.JobID,
			InterviewerID:     old.InterviewerID,
			StartsAt:          newInterval.Start,
			EndsAt:            newInterval.End,
			Mode:              old.Mode,
			Status:            models.BookingConfirmed,
			RescheduledFromID: &old.ID,
		}
		if err := tx.Create(&next).Error; err != nil {
			return fmt.Errorf("insert rescheduled booking: %w", err)
		}
		replacement = &next
		return nil
	})
	if err != nil {
		return nil, err
	}

	l.logger.Info().
		Str("old_booking_id", bookingID).
		Str("booking_id", replacement.ID).
		Time("starts_at", replacement.StartsAt).
		Msg("booking rescheduled")
	return replacement, nil
}

// Complete marks a Confirmed booking Completed once its interval has
// elapsed.
func (l *Ledger) Complete(ctx context.Context, bookingID string) (*models.Booking, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var booking models.Booking
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&booking, "id = ?", bookingID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("load booking: %w", err)
		}
		if booking.Status != models.BookingConfirmed {
			return fmt.Errorf("%w: cannot complete a %s booking", ErrInvalidTransition, booking.Status)
		}
		if l.now().Before(booking.EndsAt) {
			return ErrNotYetOccurred
		}

		booking.Status = models.BookingCompleted
		if err := tx.Model(&booking).Update("status", models.BookingCompleted).Error; err != nil {
			return fmt.Errorf("complete booking: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	l.logger.Info().Str("booking_id", booking.ID).Msg("booking completed")
	return &booking, nil
}

// AttachMeetingResource stores the opaque handle the video provisioner
// allocated for a booking.
func (l *Ledger) AttachMeetingResource(ctx context.Context, bookingID, resource string) (*models.Booking, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var booking models.Booking
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&booking, "id = ?", bookingID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("load booking: %w", err)
		}
		if !booking.IsActive() {
			return fmt.Errorf("%w: cannot attach a meeting to a %s booking", ErrInvalidTransition, booking.Status)
		}

		booking.MeetingResource = resource
		if err := tx.Model(&booking).Update("meeting_resource", resource).Error; err != nil {
			return fmt.Errorf("attach meeting resource: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

// Get loads a booking by id.
func (l *Ledger) Get(ctx context.Context, bookingID string) (*models.Booking, error) {
	var booking models.Booking
	err := l.db.WithContext(ctx).First(&booking, "id = ?", bookingID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load booking: %w", err)
	}
	return &booking, nil
}

// ListFilter narrows List results. Zero values mean "no filter".
type ListFilter struct {
	Day           time.Time
	InterviewerID string
	CandidateID   string
	ActiveOnly    bool
}

// List returns bookings matching the filter in start order.
func (l *Ledger) List(ctx context.Context, f ListFilter) ([]models.Booking, error) {
	query := l.db.WithContext(ctx).Model(&models.Booking{})

	if !f.Day.IsZero() {
		dayStart := f.Day.Truncate(24 * time.Hour)
		query = query.Where("starts_at >= ? AND starts_at < ?", dayStart, dayStart.Add(24*time.Hour))
	}
	if f.InterviewerID != "" {
		query = query.Where("interviewer_id = ?", f.InterviewerID)
	}
	if f.CandidateID != "" {
		query = query.Where("candidate_id = ?", f.CandidateID)
	}
	if f.ActiveOnly {
		query = query.Where("status IN ?", activeStatuses())
	}

	var bookings []models.Booking
	if err := query.Order("starts_at ASC").Find(&bookings).Error; err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	return bookings, nil
}

// BusyIntervals returns the occupied intervals for an interviewer on a day,
// for the availability calculator.
func (l *Ledger) BusyIntervals(ctx context.Context, interviewerID string, day time.Time) ([]interval.Interval, error) {
	bookings, err := l.List(ctx, ListFilter{Day: day, InterviewerID: interviewerID, ActiveOnly: true})
	if err != nil {
		return nil, err
	}
	busy := make([]interval.Interval, 0, len(bookings))
	for _, b := range bookings {
		busy = append(busy, interval.Interval{Start: b.StartsAt, End: b.EndsAt})
	}
	return busy, nil
}

// Hours exposes the configured working window.
func (l *Ledger) Hours() WorkingHours {
	return l.hours
}

// validateInterval enforces the booking interval invariants: strictly in
// the future and entirely within the working window of its day.
func (l *Ledger) validateInterval(ival interval.Interval) error {
	if _, err := interval.New(ival.Start, ival.End); err != nil {
		return err
	}
	if ival.Start.Before(l.now()) {
		return ErrStartInPast
	}

	workStart, workEnd := availability.WindowForDay(ival.Start, l.hours.DayStart, l.hours.DayEnd)
	window := interval.Interval{Start: workStart, End: workEnd}
	if !workStart.Before(workEnd) || !window.Contains(ival) {
		return fmt.Errorf("%w: %s not within [%s, %s)", ErrOutsideWorkingHours,
			ival, workStart.Format("15:04"), workEnd.Format("15:04"))
	}
	return nil
}

func activeStatuses() []models.BookingStatus {
	return []models.BookingStatus{models.BookingProposed, models.BookingConfirmed}
}

// activeOverlapping fetches the non-cancelled bookings that could conflict
// with the proposal. The (interviewer_id, starts_at) and
// (candidate_id, starts_at) indexes keep this narrow.
func activeOverlapping(tx *gorm.DB, ival interval.Interval, candidateID, interviewerID string) ([]models.Booking, error) {
	var bookings []models.Booking
	err := tx.
		Where("starts_at < ? AND ends_at > ?", ival.End, ival.Start).
		Where("status IN ?", activeStatuses()).
		Where("candidate_id = ? OR interviewer_id = ?", candidateID, interviewerID).
		Find(&bookings).Error
	if err != nil {
		return nil, fmt.Errorf("query overlapping bookings: %w", err)
	}
	return bookings, nil
}
