/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package interval

import (
	"errors"
	"testing"
	"time"
)

func mk(t *testing.T, startHour, endHour int) Interval {
	t.Helper()
	day := time.Date(2024, 1, 20, 0, 0, 0, 0, time.UTC)
	ival, err := New(day.Add(time.Duration(startHour)*time.Hour), day.Add(time.Duration(endHour)*time.Hour))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return ival
}

func TestNewRejectsInvalidRanges(t *testing.T) {
	at := time.Date(2024, 1, 20, 10, 0, 0, 0, time.UTC)

	if _, err := New(at, at); !errors.Is(err, ErrInvalidInterval) {
		t.Errorf("zero-length interval: got %v, want ErrInvalidInterval", err)
	}
	if _, err := New(at.Add(time.Hour), at); !errors.Is(err, ErrInvalidInterval) {
		t.Errorf("inverted interval: got %v, want ErrInvalidInterval", err)
	}
	if _, err := New(at, at.Add(time.Minute)); err != nil {
		t.Errorf("valid interval: got %v, want nil", err)
	}
}

func TestOverlaps(t *testing.T) {
	tests := []struct {
		name string
		a, b Interval
		want bool
	}{
		{"identical", mk(t, 10, 11), mk(t, 10, 11), true},
		{"partial overlap", mk(t, 10, 12), mk(t, 11, 13), true},
		{"containment", mk(t, 9, 17), mk(t, 10, 11), true},
		{"adjacent ranges do not overlap", mk(t, 10, 11), mk(t, 11, 12), false},
		{"disjoint", mk(t, 9, 10), mk(t, 14, 15), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Overlaps(tt.b); got != tt.want {
				t.Errorf("Overlaps() = %v, want %v", got, tt.want)
			}
			// Overlap is symmetric.
			if got := tt.b.Overlaps(tt.a); got != tt.want {
				t.Errorf("Overlaps() reversed = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestContains(t *testing.T) {
	tests := []struct {
		name         string
		outer, inner Interval
		want         bool
	}{
		{"strictly inside", mk(t, 9, 17), mk(t, 10, 11), true},
		{"equal bounds", mk(t, 9, 17), mk(t, 9, 17), true},
		{"shared start", mk(t, 9, 17), mk(t, 9, 10), true},
		{"extends past end", mk(t, 9, 17), mk(t, 16, 18), false},
		{"starts before", mk(t, 9, 17), mk(t, 8, 10), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.outer.Contains(tt.inner); got != tt.want {
				t.Errorf("Contains() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDuration(t *testing.T) {
	if got := mk(t, 9, 17).Duration(); got != 8*time.Hour {
		t.Errorf("Duration() = %v, want 8h", got)
	}
}
