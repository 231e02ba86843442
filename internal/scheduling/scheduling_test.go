package scheduling

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"appointly/internal/domain"
)

var (
	professionalID = uuid.MustParse("00000000-0000-0000-0000-0000000000a1")
	clientID       = uuid.MustParse("00000000-0000-0000-0000-0000000000c1")
	monday         = time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
)

func intPtr(v int) *int { return &v }

func at(h, m int) time.Time {
	return monday.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute)
}

func weekdayHours() []domain.DaySchedule {
	hours := make([]domain.DaySchedule, 0, 7)
	for wd := 0; wd < 7; wd++ {
		h := domain.DaySchedule{DayOfWeek: wd}
		if wd >= 1 && wd <= 5 {
			h.IsWorkingDay = true
			h.StartMinute = 9 * 60
			h.EndMinute = 17 * 60
			h.BreakStartMinute = intPtr(12 * 60)
			h.BreakEndMinute = intPtr(13 * 60)
		}
		hours = append(hours, h)
	}
	return hours
}

func booking(id string, start, end time.Time) domain.BookedInterval {
	return domain.BookedInterval{
		AppointmentID:  uuid.MustParse(id),
		ProfessionalID: professionalID,
		StartTime:      start,
		EndTime:        end,
		Status:         domain.AppointmentStatusScheduled,
	}
}

func TestResolveDay(t *testing.T) {
	hours := weekdayHours()

	if _, ok := ResolveDay(hours, monday); !ok {
		t.Fatalf("expected monday to be a working day")
	}
	if _, ok := ResolveDay(hours, monday.AddDate(0, 0, -1)); ok {
		t.Fatalf("expected sunday to be non-working")
	}
	if _, ok := ResolveDay(nil, monday); ok {
		t.Fatalf("expected no schedule without entries")
	}
	broken := []domain.DaySchedule{{DayOfWeek: 1, IsWorkingDay: true, StartMinute: 600, EndMinute: 540}}
	if _, ok := ResolveDay(broken, monday); ok {
		t.Fatalf("expected malformed entry to resolve to no schedule")
	}
}

func TestFilterBlocks(t *testing.T) {
	blocks := []domain.ScheduleBlock{
		{ID: uuid.New(), Status: domain.BlockStatusApproved, IsAllDay: true, StartDate: monday, EndDate: monday},
		{ID: uuid.New(), Status: domain.BlockStatusApproved, StartDate: monday.AddDate(0, 0, -2), EndDate: monday.AddDate(0, 0, 2), StartMinute: intPtr(600), EndMinute: intPtr(660)},
		{ID: uuid.New(), Status: domain.BlockStatusPending, IsAllDay: true, StartDate: monday, EndDate: monday},
		{ID: uuid.New(), Status: domain.BlockStatusApproved, StartDate: monday, EndDate: monday},
		{ID: uuid.New(), Status: domain.BlockStatusApproved, IsAllDay: true, StartDate: monday.AddDate(0, 0, 1), EndDate: monday.AddDate(0, 0, 1)},
	}

	got := FilterBlocks(blocks, monday)
	if len(got.FullDay) != 2 {
		t.Fatalf("len(FullDay) = %d, want 2", len(got.FullDay))
	}
	if len(got.Partial) != 1 {
		t.Fatalf("len(Partial) = %d, want 1", len(got.Partial))
	}
	if !got.Any() {
		t.Fatalf("expected Any() to be true")
	}
}

func TestGenerateSlots_GridAndMarking(t *testing.T) {
	sched, _ := ResolveDay(weekdayHours(), monday)
	partial := []domain.ScheduleBlock{{
		ID:          uuid.New(),
		Status:      domain.BlockStatusApproved,
		StartDate:   monday,
		EndDate:     monday,
		StartMinute: intPtr(15 * 60),
		EndMinute:   intPtr(15*60 + 30),
	}}
	bookings := []domain.BookedInterval{
		booking("00000000-0000-0000-0000-000000000001", at(10, 0), at(10, 45)),
		func() domain.BookedInterval {
			b := booking("00000000-0000-0000-0000-000000000002", at(14, 0), at(15, 0))
			b.Status = domain.AppointmentStatusCancelled
			return b
		}(),
	}

	slots := GenerateSlots(monday, time.UTC, sched, 30*time.Minute, partial, bookings)
	if len(slots) != 16 {
		t.Fatalf("len(slots) = %d, want 16", len(slots))
	}
	for i, s := range slots {
		if s.End.Sub(s.Start) != 30*time.Minute {
			t.Fatalf("slot %d length = %v", i, s.End.Sub(s.Start))
		}
		if i > 0 && !slots[i-1].End.Equal(s.Start) {
			t.Fatalf("slots %d and %d are not contiguous", i-1, i)
		}
	}

	byTime := make(map[string]domain.Slot, len(slots))
	for _, s := range slots {
		byTime[s.Time] = s
	}
	tests := []struct {
		time      string
		available bool
		reason    domain.SlotReason
	}{
		{time: "09:00", available: true},
		{time: "10:00", reason: domain.SlotReasonBooked},
		{time: "10:30", reason: domain.SlotReasonBooked},
		{time: "11:00", available: true},
		{time: "12:00", reason: domain.SlotReasonBreak},
		{time: "12:30", reason: domain.SlotReasonBreak},
		{time: "14:00", available: true},
		{time: "15:00", reason: domain.SlotReasonBlocked},
		{time: "15:30", available: true},
	}
	for _, tt := range tests {
		s, ok := byTime[tt.time]
		if !ok {
			t.Fatalf("missing slot %s", tt.time)
		}
		if s.Available != tt.available || s.Reason != tt.reason {
			t.Fatalf("slot %s = available:%v reason:%q, want available:%v reason:%q", tt.time, s.Available, s.Reason, tt.available, tt.reason)
		}
	}
	if id := byTime["10:00"].AppointmentID; id == nil || id.String() != "00000000-0000-0000-0000-000000000001" {
		t.Fatalf("booked slot appointment id = %v", id)
	}
}

func TestGenerateSlots_DropsSlotCrossingClose(t *testing.T) {
	sched := domain.DaySchedule{DayOfWeek: 1, IsWorkingDay: true, StartMinute: 9 * 60, EndMinute: 10*60 + 30}

	slots := GenerateSlots(monday, time.UTC, sched, 45*time.Minute, nil, nil)
	if len(slots) != 2 {
		t.Fatalf("len(slots) = %d, want 2", len(slots))
	}
	if last := slots[len(slots)-1]; last.End.After(at(10, 30)) {
		t.Fatalf("last slot ends at %v, after close", last.End)
	}
}

func TestGenerateSlots_NoAvailableSlotOverlapsBooking(t *testing.T) {
	sched, _ := ResolveDay(weekdayHours(), monday)
	bookings := []domain.BookedInterval{
		booking("00000000-0000-0000-0000-000000000003", at(9, 10), at(9, 20)),
		booking("00000000-0000-0000-0000-000000000004", at(16, 59), at(17, 30)),
	}

	for _, d := range []time.Duration{15 * time.Minute, 20 * time.Minute, 50 * time.Minute} {
		for _, s := range GenerateSlots(monday, time.UTC, sched, d, nil, bookings) {
			if !s.Available {
				continue
			}
			for _, b := range bookings {
				if domain.Overlaps(s.Start, s.End, b.StartTime, b.EndTime) {
					t.Fatalf("available slot %s (%v) overlaps booking %s", s.Time, d, b.AppointmentID)
				}
			}
		}
	}
}

func TestGenerateSlots_LocalTimeZone(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		t.Fatalf("LoadLocation error: %v", err)
	}
	sched, _ := ResolveDay(weekdayHours(), monday)

	slots := GenerateSlots(time.Date(2026, 1, 5, 0, 0, 0, 0, loc), loc, sched, time.Hour, nil, nil)
	if slots[0].Time != "09:00" {
		t.Fatalf("first slot time = %q, want 09:00", slots[0].Time)
	}
	if got := slots[0].Start.UTC().Hour(); got != 8 {
		t.Fatalf("first slot UTC hour = %d, want 8", got)
	}
}

func TestBuildDay(t *testing.T) {
	hours := weekdayHours()

	t.Run("no working hours entry", func(t *testing.T) {
		day := BuildDay(monday, time.UTC, nil, nil, nil, 30*time.Minute)
		if day.IsWorkingDay {
			t.Fatalf("expected non-working day")
		}
		if day.Slots == nil || len(day.Slots) != 0 {
			t.Fatalf("slots = %v, want empty non-nil", day.Slots)
		}
	})

	t.Run("full day block", func(t *testing.T) {
		blocks := []domain.ScheduleBlock{{ID: uuid.New(), Type: domain.BlockTypeVacation, Status: domain.BlockStatusApproved, IsAllDay: true, StartDate: monday, EndDate: monday}}
		day := BuildDay(monday, time.UTC, hours, blocks, nil, 30*time.Minute)
		if !day.IsWorkingDay || !day.HasBlockedPeriod {
			t.Fatalf("day = %+v, want working day with blocked period", day)
		}
		if len(day.Slots) != 0 {
			t.Fatalf("len(slots) = %d, want 0", len(day.Slots))
		}
	})

	t.Run("working day", func(t *testing.T) {
		day := BuildDay(at(15, 0), time.UTC, hours, nil, nil, time.Hour)
		if !day.Date.Equal(monday) {
			t.Fatalf("date = %v, want %v", day.Date, monday)
		}
		if day.WorkingHours == nil || day.WorkingHours.Start != "09:00" || day.WorkingHours.BreakEnd != "13:00" {
			t.Fatalf("working hours = %+v", day.WorkingHours)
		}
		if got := day.Summary().SlotCount; got != 7 {
			t.Fatalf("available slots = %d, want 7", got)
		}
	})
}

func TestResolveDuration(t *testing.T) {
	tests := []struct {
		name     string
		explicit time.Duration
		services []int
		want     time.Duration
		wantErr  bool
	}{
		{name: "explicit wins", explicit: 45 * time.Minute, services: []int{30}, want: 45 * time.Minute},
		{name: "sum of services", services: []int{30, 15}, want: 45 * time.Minute},
		{name: "fallback", want: 30 * time.Minute},
		{name: "negative explicit", explicit: -time.Minute, wantErr: true},
		{name: "bad service", services: []int{0}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveDuration(tt.explicit, tt.services, 30*time.Minute)
			if tt.wantErr {
				ve, ok := domain.IsValidation(err)
				if !ok || ve.Kind != domain.KindInvalidDuration {
					t.Fatalf("error = %v, want invalid_duration", err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Fatalf("ResolveDuration = %v, %v; want %v", got, err, tt.want)
			}
		})
	}
}

func TestRequireKnownServices(t *testing.T) {
	if err := RequireKnownServices(2, 2); err != nil {
		t.Fatalf("RequireKnownServices(2, 2) = %v, want nil", err)
	}
	err := RequireKnownServices(2, 1)
	if ve, ok := domain.IsValidation(err); !ok || ve.Kind != domain.KindInvalidArgument {
		t.Fatalf("RequireKnownServices(2, 1) = %v, want invalid_argument", err)
	}
}
