/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package models

import "time"

// AuditAction defines the type of audited action.
type AuditAction string

const (
	AuditActionBookingCreate     AuditAction = "booking.create"
	AuditActionBookingCancel     AuditAction = "booking.cancel"
	AuditActionBookingReschedule AuditAction = "booking.reschedule"
	AuditActionBookingComplete   AuditAction = "booking.complete"
	AuditActionMeetingAttach     AuditAction = "booking.meeting_attach"
)

// AuditLog records every booking mutation for history and compliance.
type AuditLog struct {
	ID           string         `gorm:"type:uuid;primaryKey"`
	Timestamp    time.Time      `gorm:"index:idx_audit_timestamp;not null"`
	ActorID      *string        `gorm:"type:uuid;index:idx_audit_actor"` // NULL for system actions
	Action       AuditAction    `gorm:"type:varchar(64);index:idx_audit_action;not null"`
	ResourceType string         `gorm:"type:varchar(64)"` // "booking"
	ResourceID   string         `gorm:"type:uuid"`
	Details      map[string]any `gorm:"type:jsonb;serializer:json"`
	CreatedAt    time.Time
}

// TableName returns the table name for GORM.
func (AuditLog) TableName() string {
	return "audit_logs"
}
