/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package scheduling

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/friendsincode/mimir_hire/internal/availability"
	"github.com/friendsincode/mimir_hire/internal/cache"
	"github.com/friendsincode/mimir_hire/internal/directory"
	"github.com/friendsincode/mimir_hire/internal/events"
	"github.com/friendsincode/mimir_hire/internal/ledger"
	"github.com/friendsincode/mimir_hire/internal/models"
)

var fixedNow = time.Date(2024, 1, 20, 8, 0, 0, 0, time.UTC)

func at(hour int) time.Time {
	return time.Date(2024, 1, 20, hour, 0, 0, 0, time.UTC)
}

type fixture struct {
	svc *Service
	db  *gorm.DB
	bus *events.Bus
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&models.Interviewer{}, &models.Booking{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	hours := ledger.WorkingHours{
		DayStart: availability.DayClock{Hour: 9},
		DayEnd:   availability.DayClock{Hour: 17},
	}
	led := ledger.New(db, hours, zerolog.Nop()).WithClock(func() time.Time { return fixedNow })
	dir := directory.New(db, zerolog.Nop())
	bus := events.NewBus()

	svc := New(led, dir, cache.Disabled(zerolog.Nop()), bus, opts, zerolog.Nop())
	return &fixture{svc: svc, db: db, bus: bus}
}

func (f *fixture) addInterviewer(t *testing.T, id, name string, tier models.AvailabilityTier) {
	t.Helper()
	iv := models.Interviewer{ID: id, DisplayName: name, Tier: tier}
	if err := f.db.Create(&iv).Error; err != nil {
		t.Fatalf("seed interviewer %s: %v", id, err)
	}
}

func TestBookDefaultsEndFromMode(t *testing.T) {
	f := newFixture(t, Options{SlotDuration: time.Hour})
	f.addInterviewer(t, "i-1", "Astrid", models.TierHigh)

	booking, err := f.svc.Book(context.Background(), Proposal{
		CandidateID:   "C1",
		JobID:         "J1",
		InterviewerID: "i-1",
		Mode:          models.ModeTechnical,
		Start:         at(10),
	})
	if err != nil {
		t.Fatalf("Book: %v", err)
	}
	if want := at(10).Add(90 * time.Minute); !booking.EndsAt.Equal(want) {
		t.Errorf("ends_at = %v, want %v (technical default)", booking.EndsAt, want)
	}
}

func TestBookHonorsModeProfileOverride(t *testing.T) {
	f := newFixture(t, Options{
		SlotDuration:  time.Hour,
		ModeDurations: map[string]time.Duration{"video": 45 * time.Minute},
	})
	f.addInterviewer(t, "i-1", "Astrid", models.TierHigh)

	booking, err := f.svc.Book(context.Background(), Proposal{
		CandidateID: "C1", JobID: "J1", InterviewerID: "i-1",
		Mode: models.ModeVideo, Start: at(10),
	})
	if err != nil {
		t.Fatalf("Book: %v", err)
	}
	if want := at(10).Add(45 * time.Minute); !booking.EndsAt.Equal(want) {
		t.Errorf("ends_at = %v, want %v (profile override)", booking.EndsAt, want)
	}
}

func TestBookAutoAssignsInterviewer(t *testing.T) {
	f := newFixture(t, Options{SlotDuration: time.Hour})
	f.addInterviewer(t, "i-low", "Loki", models.TierLow)
	f.addInterviewer(t, "i-med", "Freya", models.TierMedium)
	f.addInterviewer(t, "i-high", "Odin", models.TierHigh)

	booking, err := f.svc.Book(context.Background(), Proposal{
		CandidateID: "C1", JobID: "J1",
		Mode: models.ModeVideo, Start: at(10),
	})
	if err != nil {
		t.Fatalf("Book: %v", err)
	}
	if booking.InterviewerID != "i-high" {
		t.Errorf("auto-assigned %s, want the high-tier interviewer", booking.InterviewerID)
	}
}

func TestBookFailsWhenNobodyAvailable(t *testing.T) {
	f := newFixture(t, Options{SlotDuration: time.Hour})
	f.addInterviewer(t, "i-low", "Loki", models.TierLow)

	_, err := f.svc.Book(context.Background(), Proposal{
		CandidateID: "C1", JobID: "J1",
		Mode: models.ModeVideo, Start: at(10),
	})
	if !errors.Is(err, directory.ErrNoInterviewerAvailable) {
		t.Errorf("Book error = %v, want ErrNoInterviewerAvailable", err)
	}
}

func TestBookRejectsUnknownMode(t *testing.T) {
	f := newFixture(t, Options{SlotDuration: time.Hour})

	_, err := f.svc.Book(context.Background(), Proposal{
		CandidateID: "C1", JobID: "J1", InterviewerID: "i-1",
		Mode: "seance", Start: at(10),
	})
	if !errors.Is(err, ErrUnknownMode) {
		t.Errorf("Book error = %v, want ErrUnknownMode", err)
	}
}

func TestBookRejectsMissingCandidate(t *testing.T) {
	f := newFixture(t, Options{SlotDuration: time.Hour})

	_, err := f.svc.Book(context.Background(), Proposal{
		JobID: "J1", Mode: models.ModeVideo, Start: at(10),
	})
	if !errors.Is(err, ErrMissingField) {
		t.Errorf("Book error = %v, want ErrMissingField", err)
	}
}

func TestBookPublishesCreatedEvent(t *testing.T) {
	f := newFixture(t, Options{SlotDuration: time.Hour})
	f.addInterviewer(t, "i-1", "Astrid", models.TierHigh)

	sub := f.bus.Subscribe(events.EventBookingCreated)

	booking, err := f.svc.Book(context.Background(), Proposal{
		CandidateID: "C1", JobID: "J1", InterviewerID: "i-1",
		Mode: models.ModeVideo, Start: at(10),
	})
	if err != nil {
		t.Fatalf("Book: %v", err)
	}

	select {
	case payload := <-sub:
		if payload["booking_id"] != booking.ID {
			t.Errorf("event booking_id = %v, want %s", payload["booking_id"], booking.ID)
		}
	case <-time.After(time.Second):
		t.Fatal("no booking.created event published")
	}
}

func TestCancelEmitsEventOnlyOnce(t *testing.T) {
	f := newFixture(t, Options{SlotDuration: time.Hour})
	f.addInterviewer(t, "i-1", "Astrid", models.TierHigh)
	ctx := context.Background()

	booking, err := f.svc.Book(ctx, Proposal{
		CandidateID: "C1", JobID: "J1", InterviewerID: "i-1",
		Mode: models.ModeVideo, Start: at(10),
	})
	if err != nil {
		t.Fatalf("Book: %v", err)
	}

	sub := f.bus.Subscribe(events.EventBookingCancelled)
	if _, err := f.svc.Cancel(ctx, booking.ID); err != nil {
		t.Fatalf("first Cancel: %v", err)
	}
	if _, err := f.svc.Cancel(ctx, booking.ID); err != nil {
		t.Fatalf("second Cancel: %v", err)
	}

	var delivered int
	for {
		select {
		case <-sub:
			delivered++
			continue
		default:
		}
		break
	}
	if delivered != 1 {
		t.Errorf("%d cancelled events, want exactly 1", delivered)
	}
}

func TestRescheduleDefaultsEndFromBookingMode(t *testing.T) {
	f := newFixture(t, Options{SlotDuration: time.Hour})
	f.addInterviewer(t, "i-1", "Astrid", models.TierHigh)
	ctx := context.Background()

	booking, err := f.svc.Book(ctx, Proposal{
		CandidateID: "C1", JobID: "J1", InterviewerID: "i-1",
		Mode: models.ModePhone, Start: at(10),
	})
	if err != nil {
		t.Fatalf("Book: %v", err)
	}

	moved, err := f.svc.Reschedule(ctx, booking.ID, at(14), time.Time{})
	if err != nil {
		t.Fatalf("Reschedule: %v", err)
	}
	if want := at(14).Add(30 * time.Minute); !moved.EndsAt.Equal(want) {
		t.Errorf("ends_at = %v, want %v (phone default)", moved.EndsAt, want)
	}
	if moved.RescheduledFromID == nil || *moved.RescheduledFromID != booking.ID {
		t.Errorf("replacement does not reference original: %+v", moved.RescheduledFromID)
	}
}

func TestListSlotsForInterviewer(t *testing.T) {
	f := newFixture(t, Options{SlotDuration: time.Hour})
	f.addInterviewer(t, "i-1", "Astrid", models.TierHigh)
	ctx := context.Background()

	if _, err := f.svc.Book(ctx, Proposal{
		CandidateID: "C1", JobID: "J1", InterviewerID: "i-1",
		Mode: models.ModeVideo, Start: at(10),
	}); err != nil {
		t.Fatalf("Book: %v", err)
	}

	slots, err := f.svc.ListSlots(ctx, SlotQuery{Day: at(0), InterviewerID: "i-1"})
	if err != nil {
		t.Fatalf("ListSlots: %v", err)
	}
	// 09:00-17:00 yields 8 hourly slots; one is booked.
	if len(slots) != 7 {
		t.Fatalf("got %d slots, want 7", len(slots))
	}
	for _, slot := range slots {
		if slot.Start.Equal(at(10)) {
			t.Errorf("booked 10:00 slot still offered")
		}
	}
}

func TestListSlotsAcrossRoster(t *testing.T) {
	f := newFixture(t, Options{SlotDuration: time.Hour})
	f.addInterviewer(t, "i-1", "Astrid", models.TierHigh)
	f.addInterviewer(t, "i-2", "Bjorn", models.TierMedium)
	ctx := context.Background()

	// Fill 10:00 for both eligible interviewers; the slot disappears.
	for i, id := range []string{"i-1", "i-2"} {
		if _, err := f.svc.Book(ctx, Proposal{
			CandidateID: "C" + string(rune('1'+i)), JobID: "J1", InterviewerID: id,
			Mode: models.ModeVideo, Start: at(10),
		}); err != nil {
			t.Fatalf("Book %s: %v", id, err)
		}
	}

	slots, err := f.svc.ListSlots(ctx, SlotQuery{Day: at(0)})
	if err != nil {
		t.Fatalf("ListSlots: %v", err)
	}
	for _, slot := range slots {
		if slot.Start.Equal(at(10)) {
			t.Errorf("fully-booked 10:00 slot still offered")
		}
	}
	if len(slots) != 7 {
		t.Errorf("got %d slots, want 7", len(slots))
	}
}

func TestListSlotsIgnoresLowTierRoster(t *testing.T) {
	f := newFixture(t, Options{SlotDuration: time.Hour})
	f.addInterviewer(t, "i-low", "Loki", models.TierLow)

	slots, err := f.svc.ListSlots(context.Background(), SlotQuery{Day: at(0)})
	if err != nil {
		t.Fatalf("ListSlots: %v", err)
	}
	if len(slots) != 0 {
		t.Errorf("got %d slots with only a low-tier roster, want 0", len(slots))
	}
}

func TestAttachMeetingResourcePublishesEvent(t *testing.T) {
	f := newFixture(t, Options{SlotDuration: time.Hour})
	f.addInterviewer(t, "i-1", "Astrid", models.TierHigh)
	ctx := context.Background()

	booking, err := f.svc.Book(ctx, Proposal{
		CandidateID: "C1", JobID: "J1", InterviewerID: "i-1",
		Mode: models.ModeVideo, Start: at(10),
	})
	if err != nil {
		t.Fatalf("Book: %v", err)
	}

	sub := f.bus.Subscribe(events.EventMeetingAttached)
	updated, err := f.svc.AttachMeetingResource(ctx, booking.ID, "meet://room/xyz")
	if err != nil {
		t.Fatalf("AttachMeetingResource: %v", err)
	}
	if updated.MeetingResource != "meet://room/xyz" {
		t.Errorf("meeting resource = %q", updated.MeetingResource)
	}

	select {
	case payload := <-sub:
		if payload["meeting_resource"] != "meet://room/xyz" {
			t.Errorf("event payload = %+v", payload)
		}
	case <-time.After(time.Second):
		t.Fatal("no meeting_attached event published")
	}
}
