package scheduling

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"appointly/internal/domain"
)

// ConflictRequest is one proposed booking. ExcludeAppointmentID lets a
// reschedule ignore the appointment being moved.
type ConflictRequest struct {
	ProfessionalID       uuid.UUID
	ClientID             *uuid.UUID
	Start                time.Time
	Duration             time.Duration
	ExcludeAppointmentID *uuid.UUID
}

func (r ConflictRequest) End() time.Time {
	return r.Start.Add(r.Duration)
}

// ConflictSnapshot is everything CheckConflicts reads. Bookings should already
// be limited to the candidate window; blocks to the dates it touches.
type ConflictSnapshot struct {
	Location             *time.Location
	WorkingHours         []domain.DaySchedule
	Blocks               []domain.ScheduleBlock
	ProfessionalBookings []domain.BookedInterval
	ClientBookings       []domain.BookedInterval
}

// CheckConflicts evaluates every conflict class and reports all of them.
func CheckConflicts(req ConflictRequest, snap ConflictSnapshot) domain.ConflictReport {
	loc := snap.Location
	if loc == nil {
		loc = time.UTC
	}
	start := req.Start.In(loc)
	end := req.End().In(loc)

	var out []domain.ConflictEntry
	out = append(out, professionalBusy(req, start, end, snap.ProfessionalBookings)...)
	out = append(out, clientBusy(req, start, end, snap.ClientBookings)...)
	out = append(out, blockedTime(start, end, loc, snap.Blocks)...)
	out = append(out, outsideWorkingHours(start, end, loc, snap.WorkingHours)...)
	return domain.NewConflictReport(out)
}

func excluded(req ConflictRequest, b domain.BookedInterval) bool {
	return req.ExcludeAppointmentID != nil && *req.ExcludeAppointmentID == b.AppointmentID
}

func professionalBusy(req ConflictRequest, start, end time.Time, bookings []domain.BookedInterval) []domain.ConflictEntry {
	var out []domain.ConflictEntry
	for _, b := range bookings {
		if b.ProfessionalID != req.ProfessionalID || !b.Status.Occupies() || excluded(req, b) {
			continue
		}
		if !domain.Overlaps(start, end, b.StartTime, b.EndTime) {
			continue
		}
		id := b.AppointmentID
		out = append(out, domain.ConflictEntry{
			Type:          domain.ConflictProfessionalBusy,
			Detail:        fmt.Sprintf("professional already booked %s", spanText(b.StartTime, b.EndTime, start.Location())),
			AppointmentID: &id,
		})
	}
	return out
}

func clientBusy(req ConflictRequest, start, end time.Time, bookings []domain.BookedInterval) []domain.ConflictEntry {
	if req.ClientID == nil {
		return nil
	}
	var out []domain.ConflictEntry
	for _, b := range bookings {
		if b.ClientID == nil || *b.ClientID != *req.ClientID || !b.Status.Occupies() || excluded(req, b) {
			continue
		}
		if !domain.Overlaps(start, end, b.StartTime, b.EndTime) {
			continue
		}
		id := b.AppointmentID
		out = append(out, domain.ConflictEntry{
			Type:          domain.ConflictClientBusy,
			Detail:        fmt.Sprintf("client already booked %s", spanText(b.StartTime, b.EndTime, start.Location())),
			AppointmentID: &id,
		})
	}
	return out
}

func blockedTime(start, end time.Time, loc *time.Location, blocks []domain.ScheduleBlock) []domain.ConflictEntry {
	var out []domain.ConflictEntry
	seen := make(map[uuid.UUID]struct{})
	for _, day := range touchedDays(start, end, loc) {
		dayBlocks := FilterBlocks(blocks, day)
		for _, b := range dayBlocks.FullDay {
			if _, ok := seen[b.ID]; ok {
				continue
			}
			seen[b.ID] = struct{}{}
			out = append(out, blockEntry(b, fmt.Sprintf("%s block on %s", b.Type, day.Format(time.DateOnly))))
		}
		for _, w := range partialWindows(day, loc, dayBlocks.Partial) {
			if _, ok := seen[w.blockID]; ok || !domain.Overlaps(start, end, w.start, w.end) {
				continue
			}
			seen[w.blockID] = struct{}{}
			b := findBlock(dayBlocks.Partial, w.blockID)
			out = append(out, blockEntry(b, fmt.Sprintf("%s block %s", b.Type, spanText(w.start, w.end, loc))))
		}
	}
	return out
}

func blockEntry(b domain.ScheduleBlock, detail string) domain.ConflictEntry {
	id := b.ID
	return domain.ConflictEntry{Type: domain.ConflictBlockedTime, Detail: detail, BlockID: &id}
}

func findBlock(blocks []domain.ScheduleBlock, id uuid.UUID) domain.ScheduleBlock {
	for _, b := range blocks {
		if b.ID == id {
			return b
		}
	}
	return domain.ScheduleBlock{}
}

func outsideWorkingHours(start, end time.Time, loc *time.Location, hours []domain.DaySchedule) []domain.ConflictEntry {
	var out []domain.ConflictEntry
	sched, ok := ResolveDay(hours, start)
	if !ok {
		return append(out, domain.ConflictEntry{
			Type:   domain.ConflictOutsideWorkingHours,
			Detail: fmt.Sprintf("no working hours on %s", start.Weekday()),
		})
	}
	open := domain.AtMinute(start, sched.StartMinute, loc)
	closeAt := domain.AtMinute(start, sched.EndMinute, loc)
	if start.Before(open) || end.After(closeAt) {
		out = append(out, domain.ConflictEntry{
			Type:   domain.ConflictOutsideWorkingHours,
			Detail: fmt.Sprintf("outside working hours %s-%s", domain.FormatClock(sched.StartMinute), domain.FormatClock(sched.EndMinute)),
		})
	}
	if bs, be, ok := sched.Break(); ok {
		breakStart := domain.AtMinute(start, bs, loc)
		breakEnd := domain.AtMinute(start, be, loc)
		if domain.Overlaps(start, end, breakStart, breakEnd) {
			out = append(out, domain.ConflictEntry{
				Type:   domain.ConflictOutsideWorkingHours,
				Detail: fmt.Sprintf("overlaps break %s-%s", domain.FormatClock(bs), domain.FormatClock(be)),
			})
		}
	}
	return out
}

// touchedDays lists local midnights of every date [start, end) touches.
func touchedDays(start, end time.Time, loc *time.Location) []time.Time {
	first := domain.StartOfDay(start, loc)
	last := end
	if end.After(start) {
		last = end.Add(-time.Nanosecond)
	}
	var days []time.Time
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

func spanText(start, end time.Time, loc *time.Location) string {
	return fmt.Sprintf("%s-%s", start.In(loc).Format("2006-01-02 15:04"), end.In(loc).Format("15:04"))
}
