package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"appointly/internal/domain"
	"appointly/internal/store"
)

// scheduleReader serves the read projections from either the pool or an open transaction.
type scheduleReader struct {
	db bun.IDB
}

type ScheduleRepo struct {
	scheduleReader
}

func NewScheduleRepo(db *bun.DB) *ScheduleRepo {
	return &ScheduleRepo{scheduleReader{db: db}}
}

func (r scheduleReader) WorkingHours(ctx context.Context, tenantID, professionalID uuid.UUID) ([]domain.DaySchedule, error) {
	var rows []domain.DaySchedule
	err := r.db.NewSelect().
		Model(&rows).
		Where("tenant_id = ?", tenantID).
		Where("professional_id = ?", professionalID).
		OrderExpr("day_of_week ASC").
		Scan(ctx)
	if err != nil {
		return nil, store.Unavailable("working_hours", err)
	}
	return rows, nil
}

func (r scheduleReader) ApprovedBlocks(ctx context.Context, tenantID, professionalID uuid.UUID, fromDate, toDate time.Time) ([]domain.ScheduleBlock, error) {
	var rows []domain.ScheduleBlock
	err := r.db.NewSelect().
		Model(&rows).
		Where("tenant_id = ?", tenantID).
		Where("professional_id = ?", professionalID).
		Where("status = ?", domain.BlockStatusApproved).
		Where("start_date <= ?", domain.DateOf(toDate).Format(time.DateOnly)).
		Where("end_date >= ?", domain.DateOf(fromDate).Format(time.DateOnly)).
		OrderExpr("start_date ASC").
		Scan(ctx)
	if err != nil {
		return nil, store.Unavailable("schedule_blocks", err)
	}
	return rows, nil
}

func (r scheduleReader) ProfessionalBookings(ctx context.Context, tenantID, professionalID uuid.UUID, from, to time.Time) ([]domain.BookedInterval, error) {
	return r.bookings(ctx, "professional_id", tenantID, professionalID, from, to)
}

func (r scheduleReader) ClientBookings(ctx context.Context, tenantID, clientID uuid.UUID, from, to time.Time) ([]domain.BookedInterval, error) {
	return r.bookings(ctx, "client_id", tenantID, clientID, from, to)
}

func (r scheduleReader) bookings(ctx context.Context, column string, tenantID, ownerID uuid.UUID, from, to time.Time) ([]domain.BookedInterval, error) {
	var rows []domain.Appointment
	err := r.db.NewSelect().
		Model(&rows).
		Where("tenant_id = ?", tenantID).
		Where("? = ?", bun.Ident(column), ownerID).
		Where("status NOT IN (?)", bun.In(domain.ReleasedStatuses)).
		Where("start_time < ?", to).
		Where("end_time > ?", from).
		OrderExpr("start_time ASC").
		Scan(ctx)
	if err != nil {
		return nil, store.Unavailable("appointments", err)
	}
	out := make([]domain.BookedInterval, 0, len(rows))
	for _, a := range rows {
		out = append(out, a.Interval())
	}
	return out, nil
}

// ServiceDurations returns one duration per known service id; unknown ids are skipped.
func (r scheduleReader) ServiceDurations(ctx context.Context, tenantID uuid.UUID, serviceIDs []uuid.UUID) ([]int, error) {
	if len(serviceIDs) == 0 {
		return nil, nil
	}
	var rows []domain.ServiceOffering
	err := r.db.NewSelect().
		Model(&rows).
		Column("id", "duration_minutes").
		Where("tenant_id = ?", tenantID).
		Where("id IN (?)", bun.In(serviceIDs)).
		Scan(ctx)
	if err != nil {
		return nil, store.Unavailable("services", err)
	}
	out := make([]int, 0, len(rows))
	for _, s := range rows {
		out = append(out, s.DurationMinutes)
	}
	return out, nil
}
