package domain

import "time"

// Overlaps reports whether [aStart, aEnd) and [bStart, bEnd) intersect.
// Ranges that only touch at a boundary do not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

// DateOf returns the calendar date of t, in t's own location, as midnight UTC.
// Use it to compare dates coming from different zones or from DATE columns.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// AtMinute returns the instant minute minutes after midnight on the calendar date of day, in loc.
func AtMinute(day time.Time, minute int, loc *time.Location) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, 0, minute, 0, 0, loc)
}

// StartOfDay returns local midnight of the calendar date of day in loc.
func StartOfDay(day time.Time, loc *time.Location) time.Time {
	return AtMinute(day, 0, loc)
}
