package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type RecurrenceType string

const (
	RecurrenceNone     RecurrenceType = "NONE"
	RecurrenceDaily    RecurrenceType = "DAILY"
	RecurrenceWeekly   RecurrenceType = "WEEKLY"
	RecurrenceBiweekly RecurrenceType = "BIWEEKLY"
	RecurrenceMonthly  RecurrenceType = "MONTHLY"
)

// MaxOccurrences caps every series, whatever its count or end date.
const MaxOccurrences = 52

// RecurrencePattern describes a series. Exactly one of Count or EndDate bounds a
// repeating pattern. EndDate is an inclusive calendar date.
type RecurrencePattern struct {
	Type     RecurrenceType
	Interval int
	Count    *int
	EndDate  *time.Time
}

func (p RecurrencePattern) Repeats() bool {
	return p.Type != "" && p.Type != RecurrenceNone
}

// Normalized fills display defaults: an empty type is NONE and a zero interval
// reads as 1. Validation and expansion never use it.
func (p RecurrencePattern) Normalized() RecurrencePattern {
	if p.Type == "" {
		p.Type = RecurrenceNone
	}
	if p.Interval == 0 {
		p.Interval = 1
	}
	return p
}

type Occurrence struct {
	Date   time.Time
	IsLast bool
}

// GenerateOccurrences expands p from anchor. The first occurrence is always the
// anchor itself and the time of day is kept in anchor's location across DST
// changes. Monthly steps clamp to the last day of shorter months.
func GenerateOccurrences(anchor time.Time, p RecurrencePattern) ([]Occurrence, error) {
	if !p.Repeats() {
		return []Occurrence{{Date: anchor, IsLast: true}}, nil
	}
	switch p.Type {
	case RecurrenceDaily, RecurrenceWeekly, RecurrenceBiweekly, RecurrenceMonthly:
	default:
		return nil, NewValidationError(KindInvalidPattern, "unsupported recurrence type")
	}
	if p.Interval < 1 {
		return nil, NewValidationError(KindInvalidPattern, "interval must be at least 1")
	}
	interval := p.Interval

	limit := MaxOccurrences
	if p.Count != nil && *p.Count < limit {
		limit = max(*p.Count, 1)
	}

	out := make([]Occurrence, 0, limit)
	for i := 0; len(out) < limit; i++ {
		next := stepFrom(anchor, p.Type, interval*i)
		if i > 0 && p.EndDate != nil && DateOf(next).After(DateOf(*p.EndDate)) {
			break
		}
		out = append(out, Occurrence{Date: next})
	}
	out[len(out)-1].IsLast = true
	return out, nil
}

func stepFrom(anchor time.Time, t RecurrenceType, n int) time.Time {
	switch t {
	case RecurrenceDaily:
		return anchor.AddDate(0, 0, n)
	case RecurrenceWeekly:
		return anchor.AddDate(0, 0, 7*n)
	case RecurrenceBiweekly:
		return anchor.AddDate(0, 0, 14*n)
	default:
		return addMonthsClamped(anchor, n)
	}
}

// addMonthsClamped moves t by n months without overflowing into the next month:
// Jan 31 + 1 month is Feb 28 (or 29).
func addMonthsClamped(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(n), 1, 0, 0, 0, 0, t.Location())
	last := first.AddDate(0, 1, -1).Day()
	if d > last {
		d = last
	}
	return time.Date(first.Year(), first.Month(), d, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

// ValidatePattern checks p against now. NONE is always valid.
func ValidatePattern(p RecurrencePattern, now time.Time) error {
	if !p.Repeats() {
		return nil
	}
	switch p.Type {
	case RecurrenceDaily, RecurrenceWeekly, RecurrenceBiweekly, RecurrenceMonthly:
	default:
		return NewValidationError(KindInvalidPattern, "unsupported recurrence type")
	}
	if p.Interval < 1 {
		return NewValidationError(KindInvalidPattern, "interval must be at least 1")
	}
	if p.Count == nil && p.EndDate == nil {
		return NewValidationError(KindInvalidPattern, "count or end date is required")
	}
	if p.Count != nil && p.EndDate != nil {
		return NewValidationError(KindInvalidPattern, "only one of count or end date may be set")
	}
	if p.Count != nil {
		if *p.Count < 1 {
			return NewValidationError(KindInvalidPattern, "count must be at least 1")
		}
		if *p.Count > MaxOccurrences {
			return NewValidationError(KindInvalidPattern, fmt.Sprintf("count cannot exceed %d occurrences", MaxOccurrences))
		}
	}
	if p.EndDate != nil && DateOf(*p.EndDate).Before(DateOf(now)) {
		return NewValidationError(KindInvalidPattern, "end date cannot be in the past")
	}
	return nil
}

// DescribePattern returns a short English description such as "Every 3 weeks".
func DescribePattern(p RecurrencePattern) string {
	p = p.Normalized()
	n := max(p.Interval, 1)
	switch p.Type {
	case RecurrenceNone:
		return "No recurrence"
	case RecurrenceDaily:
		return plural(n, "Daily", "days")
	case RecurrenceWeekly:
		return plural(n, "Weekly", "weeks")
	case RecurrenceBiweekly:
		return plural(2*n, "Weekly", "weeks")
	case RecurrenceMonthly:
		return plural(n, "Monthly", "months")
	default:
		return "Unknown recurrence"
	}
}

func plural(n int, one, unit string) string {
	if n == 1 {
		return one
	}
	return fmt.Sprintf("Every %d %s", n, unit)
}

func NewRecurrenceGroupID() (uuid.UUID, error) {
	return uuid.NewV7()
}
