/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package directory answers "who can take this interview". Interviewer rows
// are reference data the identity collaborator syncs in; the directory only
// reads them and cross-checks the booking ledger for freedom.
package directory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/friendsincode/mimir_hire/internal/interval"
	"github.com/friendsincode/mimir_hire/internal/models"
)

// ErrNoInterviewerAvailable indicates auto-assignment found nobody eligible
// and free. The caller must name an interviewer or pick a different slot.
var ErrNoInterviewerAvailable = errors.New("no interviewer available")

// tierRank orders tiers for auto-assignment. Lower is preferred.
var tierRank = map[models.AvailabilityTier]int{
	models.TierHigh:   0,
	models.TierMedium: 1,
	models.TierLow:    2,
}

// Directory resolves interviewer availability.
type Directory struct {
	db     *gorm.DB
	logger zerolog.Logger
}

// New creates an interviewer directory.
func New(db *gorm.DB, logger zerolog.Logger) *Directory {
	return &Directory{
		db:     db,
		logger: logger.With().Str("component", "directory").Logger(),
	}
}

// List returns all known interviewers.
func (d *Directory) List(ctx context.Context) ([]models.Interviewer, error) {
	var interviewers []models.Interviewer
	if err := d.db.WithContext(ctx).Order("display_name ASC").Find(&interviewers).Error; err != nil {
		return nil, fmt.Errorf("list interviewers: %w", err)
	}
	return interviewers, nil
}

// Get loads one interviewer.
func (d *Directory) Get(ctx context.Context, id string) (*models.Interviewer, error) {
	var interviewer models.Interviewer
	err := d.db.WithContext(ctx).First(&interviewer, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("interviewer %s: %w", id, gorm.ErrRecordNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load interviewer: %w", err)
	}
	return &interviewer, nil
}

// Available returns the interviewers whose tier is not excluded and who
// have no non-cancelled booking overlapping ival, ordered for
// auto-assignment: High before Medium, then fewest bookings on the slot's
// day, then display name for determinism.
func (d *Directory) Available(ctx context.Context, ival interval.Interval, excludeTiers []models.AvailabilityTier) ([]models.Interviewer, error) {
	query := d.db.WithContext(ctx).Model(&models.Interviewer{})
	if len(excludeTiers) > 0 {
		query = query.Where("tier NOT IN ?", excludeTiers)
	}

	var interviewers []models.Interviewer
	if err := query.Find(&interviewers).Error; err != nil {
		return nil, fmt.Errorf("list interviewers: %w", err)
	}
	if len(interviewers) == 0 {
		return nil, nil
	}

	busy, err := d.busyDuring(ctx, ival)
	if err != nil {
		return nil, err
	}
	load, err := d.dayLoad(ctx, ival.Start)
	if err != nil {
		return nil, err
	}

	free := interviewers[:0]
	for _, iv := range interviewers {
		if busy[iv.ID] {
			continue
		}
		free = append(free, iv)
	}

	sort.SliceStable(free, func(i, j int) bool {
		if tierRank[free[i].Tier] != tierRank[free[j].Tier] {
			return tierRank[free[i].Tier] < tierRank[free[j].Tier]
		}
		if load[free[i].ID] != load[free[j].ID] {
			return load[free[i].ID] < load[free[j].ID]
		}
		return free[i].DisplayName < free[j].DisplayName
	})
	return free, nil
}

// AutoAssign picks the best available interviewer for the interval. Low
// tier is never auto-assigned.
func (d *Directory) AutoAssign(ctx context.Context, ival interval.Interval) (*models.Interviewer, error) {
	free, err := d.Available(ctx, ival, []models.AvailabilityTier{models.TierLow})
	if err != nil {
		return nil, err
	}
	if len(free) == 0 {
		return nil, ErrNoInterviewerAvailable
	}

	picked := free[0]
	d.logger.Debug().
		Str("interviewer_id", picked.ID).
		Str("tier", string(picked.Tier)).
		Msg("auto-assigned interviewer")
	return &picked, nil
}

// busyDuring returns the interviewers holding a non-cancelled booking that
// overlaps the interval.
func (d *Directory) busyDuring(ctx context.Context, ival interval.Interval) (map[string]bool, error) {
	var ids []string
	err := d.db.WithContext(ctx).Model(&models.Booking{}).
		Where("starts_at < ? AND ends_at > ?", ival.End, ival.Start).
		Where("status IN ?", []models.BookingStatus{models.BookingProposed, models.BookingConfirmed}).
		Distinct().Pluck("interviewer_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("query busy interviewers: %w", err)
	}

	busy := make(map[string]bool, len(ids))
	for _, id := range ids {
		busy[id] = true
	}
	return busy, nil
}

// dayLoad counts each interviewer's active bookings on the day, for the
// load-balancing tie-break.
func (d *Directory) dayLoad(ctx context.Context, day time.Time) (map[string]int, error) {
	dayStart := day.Truncate(24 * time.Hour)

	type row struct {
		InterviewerID string
		N             int
	}
	var rows []row
	err := d.db.WithContext(ctx).Model(&models.Booking{}).
		Select("interviewer_id, COUNT(*) AS n").
		Where("starts_at >= ? AND starts_at < ?", dayStart, dayStart.Add(24*time.Hour)).
		Where("status IN ?", []models.BookingStatus{models.BookingProposed, models.BookingConfirmed}).
		Group("interviewer_id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("query interviewer load: %w", err)
	}

	load := make(map[string]int, len(rows))
	for _, r := range rows {
		load[r.InterviewerID] = r.N
	}
	return load, nil
}
