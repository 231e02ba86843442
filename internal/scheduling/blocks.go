package scheduling

import (
	"time"

	"github.com/google/uuid"

	"appointly/internal/domain"
)

// DayBlocks holds the approved blocks touching one date.
type DayBlocks struct {
	FullDay []domain.ScheduleBlock
	Partial []domain.ScheduleBlock
}

func (b DayBlocks) Any() bool {
	return len(b.FullDay) > 0 || len(b.Partial) > 0
}

// FilterBlocks keeps approved blocks whose date range covers date and splits
// them into full-day and timed blocks.
func FilterBlocks(blocks []domain.ScheduleBlock, date time.Time) DayBlocks {
	var out DayBlocks
	for _, b := range blocks {
		if !b.Approved() || !b.CoversDate(date) {
			continue
		}
		if b.FullDay() {
			out.FullDay = append(out.FullDay, b)
		} else {
			out.Partial = append(out.Partial, b)
		}
	}
	return out
}

type window struct {
	start, end time.Time
	blockID    uuid.UUID
}

func partialWindows(day time.Time, loc *time.Location, blocks []domain.ScheduleBlock) []window {
	out := make([]window, 0, len(blocks))
	for _, b := range blocks {
		start, end, ok := b.Window(day, loc)
		if !ok {
			continue
		}
		out = append(out, window{start: start, end: end, blockID: b.ID})
	}
	return out
}
