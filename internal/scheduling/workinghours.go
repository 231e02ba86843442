// Package scheduling is the pure availability and conflict engine. Nothing here
// performs I/O; callers load a snapshot and pass it in.
package scheduling

import (
	"time"

	"appointly/internal/domain"
)

// ResolveDay returns the schedule for the weekday of date. ok is false when the
// professional has no entry for that weekday, the entry is non-working, or the
// entry is malformed.
func ResolveDay(hours []domain.DaySchedule, date time.Time) (domain.DaySchedule, bool) {
	wd := int(date.Weekday())
	for _, h := range hours {
		if h.DayOfWeek != wd {
			continue
		}
		if !h.IsWorkingDay || h.Validate() != nil {
			return domain.DaySchedule{}, false
		}
		return h, true
	}
	return domain.DaySchedule{}, false
}
