package availability

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"appointly/internal/domain"
	"appointly/internal/scheduling"
	"appointly/internal/store"
)

type rangeSnapshot struct {
	hours    []domain.DaySchedule
	blocks   []domain.ScheduleBlock
	bookings []domain.BookedInterval
}

// runReads executes reads concurrently against a pool-backed reader, or one
// after another for a reader bound to a single transaction.
func runReads(ctx context.Context, concurrent bool, reads ...func(context.Context) error) error {
	if !concurrent {
		for _, read := range reads {
			if err := read(ctx); err != nil {
				return err
			}
		}
		return nil
	}
	g, gctx := errgroup.WithContext(ctx)
	for _, read := range reads {
		g.Go(func() error { return read(gctx) })
	}
	return g.Wait()
}

// loadRange reads blocks and bookings for local days [first, last]. Working
// hours are read too unless hours is already known.
func loadRange(ctx context.Context, r store.ScheduleReader, tenantID, professionalID uuid.UUID, first, last time.Time, loc *time.Location, hours []domain.DaySchedule) (rangeSnapshot, error) {
	from := domain.StartOfDay(first, loc)
	to := domain.StartOfDay(last, loc).AddDate(0, 0, 1)

	snap := rangeSnapshot{hours: hours}
	reads := []func(context.Context) error{
		func(ctx context.Context) error {
			var err error
			snap.blocks, err = r.ApprovedBlocks(ctx, tenantID, professionalID, domain.DateOf(from), domain.DateOf(last.In(loc)))
			return err
		},
		func(ctx context.Context) error {
			var err error
			snap.bookings, err = r.ProfessionalBookings(ctx, tenantID, professionalID, from, to)
			return err
		},
	}
	if hours == nil {
		reads = append(reads, func(ctx context.Context) error {
			var err error
			snap.hours, err = r.WorkingHours(ctx, tenantID, professionalID)
			return err
		})
	}
	if err := runReads(ctx, true, reads...); err != nil {
		return rangeSnapshot{}, store.Unavailable("load_schedule", err)
	}
	return snap, nil
}

// LoadConflictSnapshot reads what CheckConflicts needs for req. Reads run
// sequentially so r may be bound to an open transaction.
func LoadConflictSnapshot(ctx context.Context, r store.ScheduleReader, tenantID uuid.UUID, req scheduling.ConflictRequest, loc *time.Location) (scheduling.ConflictSnapshot, error) {
	return loadConflictSnapshot(ctx, r, tenantID, req, loc, false)
}

func loadConflictSnapshot(ctx context.Context, r store.ScheduleReader, tenantID uuid.UUID, req scheduling.ConflictRequest, loc *time.Location, concurrent bool) (scheduling.ConflictSnapshot, error) {
	start := req.Start
	end := req.End()
	snap := scheduling.ConflictSnapshot{Location: loc}

	reads := []func(context.Context) error{
		func(ctx context.Context) error {
			var err error
			snap.WorkingHours, err = r.WorkingHours(ctx, tenantID, req.ProfessionalID)
			return err
		},
		func(ctx context.Context) error {
			var err error
			snap.Blocks, err = r.ApprovedBlocks(ctx, tenantID, req.ProfessionalID, domain.DateOf(start.In(loc)), domain.DateOf(end.In(loc)))
			return err
		},
		func(ctx context.Context) error {
			var err error
			snap.ProfessionalBookings, err = r.ProfessionalBookings(ctx, tenantID, req.ProfessionalID, start, end)
			return err
		},
	}
	if req.ClientID != nil {
		clientID := *req.ClientID
		reads = append(reads, func(ctx context.Context) error {
			var err error
			snap.ClientBookings, err = r.ClientBookings(ctx, tenantID, clientID, start, end)
			return err
		})
	}
	if err := runReads(ctx, concurrent, reads...); err != nil {
		return scheduling.ConflictSnapshot{}, store.Unavailable("load_conflict_snapshot", err)
	}
	return snap, nil
}
