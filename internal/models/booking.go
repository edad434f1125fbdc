/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package models

import "time"

// BookingStatus defines the lifecycle state of a booking.
type BookingStatus string

const (
	BookingProposed    BookingStatus = "proposed"
	BookingConfirmed   BookingStatus = "confirmed"
	BookingCompleted   BookingStatus = "completed"
	BookingCancelled   BookingStatus = "cancelled"
	BookingRescheduled BookingStatus = "rescheduled"
)

// Booking is a confirmed (or historical) interview reservation. Records are
// never physically deleted; cancelled and rescheduled rows stay behind as an
// audit trail and are excluded from conflict and availability queries.
type Booking struct {
	ID            string `gorm:"type:uuid;primaryKey" json:"id"`
	CandidateID   string `gorm:"type:varchar(64);index:idx_bookings_candidate_time;not null" json:"candidate_id"`
	JobID         string `gorm:"type:varchar(64);not null" json:"job_id"`
	InterviewerID string `gorm:"type:uuid;index:idx_bookings_interviewer_time;not null" json:"interviewer_id"`

	StartsAt time.Time `gorm:"index:idx_bookings_interviewer_time;index:idx_bookings_candidate_time;not null" json:"starts_at"`
	EndsAt   time.Time `gorm:"not null" json:"ends_at"`

	Mode   InterviewMode `gorm:"type:varchar(16);not null" json:"mode"`
	Status BookingStatus `gorm:"type:varchar(16);not null;default:'confirmed';index" json:"status"`

	// MeetingResource is the opaque handle the video provisioner attaches
	// after it consumes the booking.created event. Empty until then.
	MeetingResource string `gorm:"type:varchar(512)" json:"meeting_resource,omitempty"`

	// RescheduledFromID links a booking created by a reschedule back to the
	// record it replaced.
	RescheduledFromID *string `gorm:"type:uuid" json:"rescheduled_from_id,omitempty"`

	Interviewer *Interviewer `gorm:"foreignKey:InterviewerID" json:"interviewer,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the table name for GORM.
func (Booking) TableName() string {
	return "bookings"
}

// IsActive reports whether the booking still occupies its interval for
// conflict and availability purposes.
func (b *Booking) IsActive() bool {
	return b.Status == BookingProposed || b.Status == BookingConfirmed
}

// IsCancelled reports whether the booking was cancelled.
func (b *Booking) IsCancelled() bool {
	return b.Status == BookingCancelled
}
