/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package audit persists a trail of booking mutations. It consumes the same
// event stream the outbound relay does, so the trail and the published
// events can never disagree about what happened.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/friendsincode/mimir_hire/internal/events"
	"github.com/friendsincode/mimir_hire/internal/models"
)

// actionForEvent maps lifecycle events to audit actions.
var actionForEvent = map[events.EventType]models.AuditAction{
	events.EventBookingCreated:     models.AuditActionBookingCreate,
	events.EventBookingCancelled:   models.AuditActionBookingCancel,
	events.EventBookingRescheduled: models.AuditActionBookingReschedule,
	events.EventBookingCompleted:   models.AuditActionBookingComplete,
	events.EventMeetingAttached:    models.AuditActionMeetingAttach,
}

// Service subscribes to booking lifecycle events and stores audit entries.
type Service struct {
	db     *gorm.DB
	bus    *events.Bus
	logger zerolog.Logger
}

// NewService creates a new audit service.
func NewService(db *gorm.DB, bus *events.Bus, logger zerolog.Logger) *Service {
	return &Service{
		db:     db,
		bus:    bus,
		logger: logger.With().Str("component", "audit").Logger(),
	}
}

// Start subscribes to the booking lifecycle stream and records every event
// until the context is cancelled. Run it in its own goroutine.
func (s *Service) Start(ctx context.Context) {
	created := s.bus.Subscribe(events.EventBookingCreated)
	cancelled := s.bus.Subscribe(events.EventBookingCancelled)
	rescheduled := s.bus.Subscribe(events.EventBookingRescheduled)
	completed := s.bus.Subscribe(events.EventBookingCompleted)
	attached := s.bus.Subscribe(events.EventMeetingAttached)

	defer func() {
		s.bus.Unsubscribe(events.EventBookingCreated, created)
		s.bus.Unsubscribe(events.EventBookingCancelled, cancelled)
		s.bus.Unsubscribe(events.EventBookingRescheduled, rescheduled)
		s.bus.Unsubscribe(events.EventBookingCompleted, completed)
		s.bus.Unsubscribe(events.EventMeetingAttached, attached)
	}()

	s.logger.Info().Msg("audit service started")

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("audit service stopping")
			return

		case payload := <-created:
			s.logEvent(ctx, events.EventBookingCreated, payload)

		case payload := <-cancelled:
			s.logEvent(ctx, events.EventBookingCancelled, payload)

		case payload := <-rescheduled:
			s.logEvent(ctx, events.EventBookingRescheduled, payload)

		case payload := <-completed:
			s.logEvent(ctx, events.EventBookingCompleted, payload)

		case payload := <-attached:
			s.logEvent(ctx, events.EventMeetingAttached, payload)
		}
	}
}

// logEvent builds an audit entry from an event payload.
func (s *Service) logEvent(ctx context.Context, eventType events.EventType, payload events.Payload) {
	entry := &models.AuditLog{
		ID:           uuid.NewString(),
		Timestamp:    time.Now(),
		Action:       actionForEvent[eventType],
		ResourceType: "booking",
		Details:      make(map[string]any),
	}

	if bookingID, ok := payload["booking_id"].(string); ok {
		entry.ResourceID = bookingID
	}
	if actorID, ok := payload["actor_id"].(string); ok && actorID != "" {
		entry.ActorID = &actorID
	}

	for k, v := range payload {
		switch k {
		case "booking_id", "actor_id":
			// already extracted
		default:
			entry.Details[k] = v
		}
	}

	if err := s.Log(ctx, entry); err != nil {
		s.logger.Error().Err(err).
			Str("action", string(entry.Action)).
			Msg("failed to log audit entry")
	}
}

// Log records an audit entry directly, for actions outside the event stream.
func (s *Service) Log(ctx context.Context, entry *models.AuditLog) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	if entry.Details == nil {
		entry.Details = make(map[string]any)
	}

	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		return err
	}

	s.logger.Debug().
		Str("action", string(entry.Action)).
		Str("resource_id", entry.ResourceID).
		Msg("audit entry logged")
	return nil
}

// QueryFilters defines filters for querying audit logs.
type QueryFilters struct {
	ActorID    *string
	ResourceID *string
	Action     *models.AuditAction
	StartTime  *time.Time
	EndTime    *time.Time
	Limit      int
	Offset     int
}

// Query retrieves audit logs with filters, most recent first.
func (s *Service) Query(ctx context.Context, filters QueryFilters) ([]models.AuditLog, int64, error) {
	var logs []models.AuditLog
	var total int64

	query := s.db.WithContext(ctx).Model(&models.AuditLog{})

	if filters.ActorID != nil {
		query = query.Where("actor_id = ?", *filters.ActorID)
	}
	if filters.ResourceID != nil {
		query = query.Where("resource_id = ?", *filters.ResourceID)
	}
	if filters.Action != nil {
		query = query.Where("action = ?", *filters.Action)
	}
	if filters.StartTime != nil {
		query = query.Where("timestamp >= ?", *filters.StartTime)
	}
	if filters.EndTime != nil {
		query = query.Where("timestamp <= ?", *filters.EndTime)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filters.Limit > 0 {
		query = query.Limit(filters.Limit)
	} else {
		query = query.Limit(100)
	}
	if filters.Offset > 0 {
		query = query.Offset(filters.Offset)
	}

	if err := query.Order("timestamp DESC").Find(&logs).Error; err != nil {
		return nil, 0, err
	}
	return logs, total, nil
}
