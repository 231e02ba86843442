package scheduling

import (
	"time"

	"appointly/internal/domain"
)

// GenerateSlots lays a contiguous grid of duration-long slots over the working
// hours of day in loc and marks each one. A slot that would cross the end of
// working hours is dropped. Marking order is break, then timed block, then booking.
func GenerateSlots(day time.Time, loc *time.Location, sched domain.DaySchedule, duration time.Duration, partial []domain.ScheduleBlock, bookings []domain.BookedInterval) []domain.Slot {
	if duration <= 0 {
		return []domain.Slot{}
	}
	day = day.In(loc)
	open := domain.AtMinute(day, sched.StartMinute, loc)
	closeAt := domain.AtMinute(day, sched.EndMinute, loc)

	var breakStart, breakEnd time.Time
	bs, be, hasBreak := sched.Break()
	if hasBreak {
		breakStart = domain.AtMinute(day, bs, loc)
		breakEnd = domain.AtMinute(day, be, loc)
	}
	windows := partialWindows(day, loc, partial)

	slots := make([]domain.Slot, 0, int(closeAt.Sub(open)/duration))
	for start := open; !start.Add(duration).After(closeAt); start = start.Add(duration) {
		end := start.Add(duration)
		slot := domain.Slot{
			Start:     start,
			End:       end,
			Time:      start.In(loc).Format("15:04"),
			Available: true,
		}
		switch {
		case hasBreak && domain.Overlaps(start, end, breakStart, breakEnd):
			slot.Available = false
			slot.Reason = domain.SlotReasonBreak
		case overlapsWindow(start, end, windows):
			slot.Available = false
			slot.Reason = domain.SlotReasonBlocked
		default:
			if b, ok := firstBooking(start, end, bookings); ok {
				id := b.AppointmentID
				slot.Available = false
				slot.Reason = domain.SlotReasonBooked
				slot.AppointmentID = &id
			}
		}
		slots = append(slots, slot)
	}
	return slots
}

// BuildDay answers single-day availability from an already loaded snapshot.
func BuildDay(day time.Time, loc *time.Location, hours []domain.DaySchedule, blocks []domain.ScheduleBlock, bookings []domain.BookedInterval, duration time.Duration) domain.DayAvailability {
	day = domain.StartOfDay(day, loc)
	out := domain.DayAvailability{Date: day, Slots: []domain.Slot{}}

	dayBlocks := FilterBlocks(blocks, day)
	out.HasBlockedPeriod = dayBlocks.Any()

	sched, ok := ResolveDay(hours, day)
	if !ok {
		return out
	}
	out.IsWorkingDay = true
	out.WorkingHours = sched.Hours()
	if len(dayBlocks.FullDay) > 0 {
		return out
	}
	out.Slots = GenerateSlots(day, loc, sched, duration, dayBlocks.Partial, bookings)
	return out
}

func overlapsWindow(start, end time.Time, windows []window) bool {
	for _, w := range windows {
		if domain.Overlaps(start, end, w.start, w.end) {
			return true
		}
	}
	return false
}

func firstBooking(start, end time.Time, bookings []domain.BookedInterval) (domain.BookedInterval, bool) {
	for _, b := range bookings {
		if !b.Status.Occupies() {
			continue
		}
		if domain.Overlaps(start, end, b.StartTime, b.EndTime) {
			return b, true
		}
	}
	return domain.BookedInterval{}, false
}
