package domain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

const minutesPerDay = 24 * 60

// DaySchedule is one weekday row of a professional's working hours.
// Times are minutes after local midnight.
type DaySchedule struct {
	bun.BaseModel `bun:"table:working_hours"`

	TenantID         uuid.UUID `bun:"tenant_id,pk,type:uuid" json:"tenant_id"`
	ProfessionalID   uuid.UUID `bun:"professional_id,pk,type:uuid" json:"professional_id"`
	DayOfWeek        int       `bun:"day_of_week,pk" json:"day_of_week"`
	IsWorkingDay     bool      `bun:"is_working_day,notnull" json:"is_working_day"`
	StartMinute      int       `bun:"start_minute,notnull" json:"start_minute"`
	EndMinute        int       `bun:"end_minute,notnull" json:"end_minute"`
	BreakStartMinute *int      `bun:"break_start_minute" json:"break_start_minute,omitempty"`
	BreakEndMinute   *int      `bun:"break_end_minute" json:"break_end_minute,omitempty"`
}

func (d DaySchedule) Break() (start, end int, ok bool) {
	if d.BreakStartMinute == nil || d.BreakEndMinute == nil {
		return 0, 0, false
	}
	return *d.BreakStartMinute, *d.BreakEndMinute, true
}

func (d DaySchedule) Validate() error {
	if d.DayOfWeek < 0 || d.DayOfWeek > 6 {
		return errors.New("day_of_week must be between 0 and 6")
	}
	if !d.IsWorkingDay {
		return nil
	}
	if d.StartMinute < 0 || d.EndMinute > minutesPerDay || d.StartMinute >= d.EndMinute {
		return errors.New("start time must be before end time")
	}
	if (d.BreakStartMinute == nil) != (d.BreakEndMinute == nil) {
		return errors.New("break start and end must be set together")
	}
	if bs, be, ok := d.Break(); ok {
		if bs < d.StartMinute || bs >= be || be > d.EndMinute {
			return errors.New("break must lie inside working hours")
		}
	}
	return nil
}

// Hours renders the schedule for display.
func (d DaySchedule) Hours() *WorkingHours {
	wh := &WorkingHours{
		Start: FormatClock(d.StartMinute),
		End:   FormatClock(d.EndMinute),
	}
	if bs, be, ok := d.Break(); ok {
		wh.BreakStart = FormatClock(bs)
		wh.BreakEnd = FormatClock(be)
	}
	return wh
}

type WorkingHours struct {
	Start      string `json:"start"`
	End        string `json:"end"`
	BreakStart string `json:"break_start,omitempty"`
	BreakEnd   string `json:"break_end,omitempty"`
}

type BlockType string

const (
	BlockTypeVacation  BlockType = "VACATION"
	BlockTypeSickLeave BlockType = "SICK_LEAVE"
	BlockTypePersonal  BlockType = "PERSONAL"
	BlockTypeTraining  BlockType = "TRAINING"
	BlockTypeOther     BlockType = "OTHER"
)

type BlockStatus string

const (
	BlockStatusPending  BlockStatus = "PENDING"
	BlockStatusApproved BlockStatus = "APPROVED"
	BlockStatusRejected BlockStatus = "REJECTED"
)

// ScheduleBlock is time off requested by or for a professional. StartDate and
// EndDate are inclusive calendar dates. A block that is not all-day applies its
// StartMinute-EndMinute window on every date it spans.
type ScheduleBlock struct {
	bun.BaseModel `bun:"table:schedule_blocks"`

	ID             uuid.UUID   `bun:"id,pk,type:uuid"`
	TenantID       uuid.UUID   `bun:"tenant_id,notnull,type:uuid"`
	ProfessionalID uuid.UUID   `bun:"professional_id,notnull,type:uuid"`
	Type           BlockType   `bun:"type,notnull"`
	StartDate      time.Time   `bun:"start_date,notnull,type:date"`
	EndDate        time.Time   `bun:"end_date,notnull,type:date"`
	IsAllDay       bool        `bun:"is_all_day,notnull"`
	StartMinute    *int        `bun:"start_minute"`
	EndMinute      *int        `bun:"end_minute"`
	Status         BlockStatus `bun:"status,notnull"`
	Reason         string      `bun:"reason"`
	CreatedAt      time.Time   `bun:"created_at,notnull"`
	UpdatedAt      time.Time   `bun:"updated_at,notnull"`
}

func (b *ScheduleBlock) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	return stampModel(query, &b.ID, &b.CreatedAt, &b.UpdatedAt)
}

func (b ScheduleBlock) Approved() bool {
	return b.Status == BlockStatusApproved
}

// FullDay reports whether the block removes whole days. A timed block missing
// either bound is treated as all-day.
func (b ScheduleBlock) FullDay() bool {
	return b.IsAllDay || b.StartMinute == nil || b.EndMinute == nil
}

// CoversDate reports whether the calendar date of day lies in [StartDate, EndDate].
func (b ScheduleBlock) CoversDate(day time.Time) bool {
	d := DateOf(day)
	return !d.Before(DateOf(b.StartDate)) && !d.After(DateOf(b.EndDate))
}

// Window returns the blocked instants on the calendar date of day for a timed block.
func (b ScheduleBlock) Window(day time.Time, loc *time.Location) (time.Time, time.Time, bool) {
	if b.FullDay() {
		return time.Time{}, time.Time{}, false
	}
	return AtMinute(day, *b.StartMinute, loc), AtMinute(day, *b.EndMinute, loc), true
}

// ServiceOffering is a bookable service with its duration.
type ServiceOffering struct {
	bun.BaseModel `bun:"table:services"`

	ID              uuid.UUID `bun:"id,pk,type:uuid"`
	TenantID        uuid.UUID `bun:"tenant_id,notnull,type:uuid"`
	Name            string    `bun:"name,notnull"`
	DurationMinutes int       `bun:"duration_minutes,notnull"`
	CreatedAt       time.Time `bun:"created_at,notnull"`
	UpdatedAt       time.Time `bun:"updated_at,notnull"`
}

func (s *ServiceOffering) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	return stampModel(query, &s.ID, &s.CreatedAt, &s.UpdatedAt)
}

func FormatClock(minute int) string {
	return fmt.Sprintf("%02d:%02d", minute/60, minute%60)
}
