/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package availability computes bookable slots from a working-hours window
// and the set of already-occupied intervals. Both the calendar surface and
// the booking path go through this single calculator so the two never drift.
package availability

import (
	"fmt"
	"time"

	"github.com/friendsincode/mimir_hire/internal/interval"
)

// ComputeSlots partitions [workStart, workEnd) into consecutive slots of
// slotDuration starting at workStart, then drops every slot that overlaps a
// busy interval. A trailing partial slot is discarded, not truncated: a slot
// is only offered when it fits entirely inside the working window.
//
// The result is in chronological order. An empty result is a normal outcome,
// not an error.
func ComputeSlots(workStart, workEnd time.Time, slotDuration time.Duration, busy []interval.Interval) []interval.Interval {
	if slotDuration <= 0 || !workStart.Before(workEnd) {
		return nil
	}

	var slots []interval.Interval
	for start := workStart; !start.Add(slotDuration).After(workEnd); start = start.Add(slotDuration) {
		slot := interval.Interval{Start: start, End: start.Add(slotDuration)}
		if overlapsAny(slot, busy) {
			continue
		}
		slots = append(slots, slot)
	}
	return slots
}

func overlapsAny(slot interval.Interval, busy []interval.Interval) bool {
	for _, b := range busy {
		if slot.Overlaps(b) {
			return true
		}
	}
	return false
}

// DayClock is a time of day in "HH:MM" form, as configured for the working
// window bounds.
type DayClock struct {
	Hour   int
	Minute int
}

// ParseDayClock parses "HH:MM".
func ParseDayClock(s string) (DayClock, error) {
	parsed, err := time.Parse("15:04", s)
	if err != nil {
		return DayClock{}, fmt.Errorf("parse day clock %q: %w", s, err)
	}
	return DayClock{Hour: parsed.Hour(), Minute: parsed.Minute()}, nil
}

// On anchors the clock time to a calendar day in the day's location.
func (c DayClock) On(day time.Time) time.Time {
	year, month, d := day.Date()
	return time.Date(year, month, d, c.Hour, c.Minute, 0, 0, day.Location())
}

// WindowForDay builds the working-hours interval for a calendar day. A
// window whose start is not before its end yields no bookable time, which
// ComputeSlots treats as an empty schedule.
func WindowForDay(day time.Time, dayStart, dayEnd DayClock) (time.Time, time.Time) {
	return dayStart.On(day), dayEnd.On(day)
}
