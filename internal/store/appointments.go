package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"appointly/internal/domain"
)

// ScheduleReader supplies the read projections the availability engine works
// from. Every call is scoped to one tenant.
type ScheduleReader interface {
	WorkingHours(ctx context.Context, tenantID, professionalID uuid.UUID) ([]domain.DaySchedule, error)
	// ApprovedBlocks returns approved blocks whose date range intersects [fromDate, toDate], both inclusive.
	ApprovedBlocks(ctx context.Context, tenantID, professionalID uuid.UUID, fromDate, toDate time.Time) ([]domain.ScheduleBlock, error)
	// ProfessionalBookings and ClientBookings return occupying appointments overlapping [from, to).
	ProfessionalBookings(ctx context.Context, tenantID, professionalID uuid.UUID, from, to time.Time) ([]domain.BookedInterval, error)
	ClientBookings(ctx context.Context, tenantID, clientID uuid.UUID, from, to time.Time) ([]domain.BookedInterval, error)
	ServiceDurations(ctx context.Context, tenantID uuid.UUID, serviceIDs []uuid.UUID) ([]int, error)
}

type AppointmentRepository interface {
	Get(ctx context.Context, tenantID, appointmentID uuid.UUID) (domain.Appointment, error)
	List(ctx context.Context, tenantID, professionalID uuid.UUID, windowStart, windowEnd time.Time) ([]domain.Appointment, error)
	CancelSeries(ctx context.Context, tenantID, groupID uuid.UUID, from time.Time) (int, error)

	// InProfessionalTransaction runs fn in one transaction holding the
	// professional's booking lock, so check-then-write is serialized per professional.
	InProfessionalTransaction(ctx context.Context, tenantID, professionalID uuid.UUID, fn func(ctx context.Context, tx BookingTx) error) error
}
