package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/uptrace/bun"

	"appointly/internal/domain"
	"appointly/internal/store"
)

const (
	pgExclusionViolation = "23P01"
	overlapConstraint    = "appointments_no_overlap"
)

type AppointmentRepo struct {
	db *bun.DB
}

func NewAppointmentRepo(db *bun.DB) *AppointmentRepo {
	return &AppointmentRepo{db: db}
}

type bookingTx struct {
	scheduleReader
	tx bun.Tx
}

func (r *AppointmentRepo) Get(ctx context.Context, tenantID, appointmentID uuid.UUID) (domain.Appointment, error) {
	return getAppointment(ctx, r.db, tenantID, appointmentID, false)
}

func (r *AppointmentRepo) List(ctx context.Context, tenantID, professionalID uuid.UUID, windowStart, windowEnd time.Time) ([]domain.Appointment, error) {
	var rows []domain.Appointment
	err := r.db.NewSelect().
		Model(&rows).
		Where("tenant_id = ?", tenantID).
		Where("professional_id = ?", professionalID).
		Where("start_time < ?", windowEnd).
		Where("end_time > ?", windowStart).
		OrderExpr("start_time ASC").
		Scan(ctx)
	if err != nil {
		return nil, store.Unavailable("list_appointments", err)
	}
	return rows, nil
}

// CancelSeries cancels every still-occupying occurrence of a series starting at or after from.
func (r *AppointmentRepo) CancelSeries(ctx context.Context, tenantID, groupID uuid.UUID, from time.Time) (int, error) {
	res, err := r.db.NewUpdate().
		Model((*domain.Appointment)(nil)).
		Set("status = ?", domain.AppointmentStatusCancelled).
		Set("updated_at = ?", time.Now().UTC()).
		Where("tenant_id = ?", tenantID).
		Where("recurrence_group_id = ?", groupID).
		Where("start_time >= ?", from).
		Where("status NOT IN (?)", bun.In([]domain.AppointmentStatus{
			domain.AppointmentStatusCancelled,
			domain.AppointmentStatusNoShow,
			domain.AppointmentStatusCompleted,
		})).
		Exec(ctx)
	if err != nil {
		return 0, store.Unavailable("cancel_series", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, store.Unavailable("cancel_series", err)
	}
	return int(affected), nil
}

func (r *AppointmentRepo) InProfessionalTransaction(ctx context.Context, tenantID, professionalID uuid.UUID, fn func(ctx context.Context, tx store.BookingTx) error) error {
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := lockProfessionalCalendar(ctx, tx, tenantID, professionalID); err != nil {
			return store.Unavailable("lock_calendar", err)
		}
		return fn(ctx, bookingTx{scheduleReader: scheduleReader{db: tx}, tx: tx})
	})
}

func lockProfessionalCalendar(ctx context.Context, tx bun.Tx, tenantID, professionalID uuid.UUID) error {
	_, err := tx.NewRaw("SELECT pg_advisory_xact_lock(hashtext(?))", tenantID.String()+":"+professionalID.String()).Exec(ctx)
	return err
}

// CreateAppointment inserts appt. A row with the same id already present is
// treated as a replay of an idempotent create.
func (r bookingTx) CreateAppointment(ctx context.Context, appt domain.Appointment) (domain.Appointment, error) {
	m := appt
	res, err := r.tx.NewInsert().
		Model(&m).
		On("CONFLICT (id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgExclusionViolation && pgErr.ConstraintName == overlapConstraint {
			return domain.Appointment{}, store.ErrConflict
		}
		return domain.Appointment{}, store.Unavailable("create_appointment", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return domain.Appointment{}, store.Unavailable("create_appointment", err)
	}
	if affected == 0 {
		return r.replayCreate(ctx, m)
	}
	return m, nil
}

// replayCreate resolves a primary key collision from a retried idempotent create.
func (r bookingTx) replayCreate(ctx context.Context, appt domain.Appointment) (domain.Appointment, error) {
	existing, err := getAppointment(ctx, r.tx, appt.TenantID, appt.ID, false)
	if errors.Is(err, store.ErrNotFound) {
		// the id belongs to another tenant
		return domain.Appointment{}, store.ErrIdempotencyConflict
	}
	if err != nil {
		return domain.Appointment{}, err
	}
	if existing.ProfessionalID != appt.ProfessionalID ||
		!sameClient(existing.ClientID, appt.ClientID) ||
		existing.Notes != appt.Notes ||
		!existing.StartTime.Equal(appt.StartTime) ||
		!existing.EndTime.Equal(appt.EndTime) {
		return domain.Appointment{}, store.ErrIdempotencyConflict
	}
	return existing, nil
}

func sameClient(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func (r bookingTx) GetAppointmentForUpdate(ctx context.Context, tenantID, appointmentID uuid.UUID) (domain.Appointment, error) {
	return getAppointment(ctx, r.tx, tenantID, appointmentID, true)
}

func (r bookingTx) UpdateAppointment(ctx context.Context, appt domain.Appointment) (domain.Appointment, error) {
	m := appt
	res, err := r.tx.NewUpdate().
		Model(&m).
		Column("start_time", "end_time", "status", "notes", "updated_at").
		Where("tenant_id = ?", appt.TenantID).
		WherePK().
		Exec(ctx)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgExclusionViolation && pgErr.ConstraintName == overlapConstraint {
			return domain.Appointment{}, store.ErrConflict
		}
		return domain.Appointment{}, store.Unavailable("update_appointment", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return domain.Appointment{}, store.Unavailable("update_appointment", err)
	}
	if affected == 0 {
		return domain.Appointment{}, store.ErrNotFound
	}
	return m, nil
}

func getAppointment(ctx context.Context, db bun.IDB, tenantID, appointmentID uuid.UUID, forUpdate bool) (domain.Appointment, error) {
	var row domain.Appointment
	q := db.NewSelect().
		Model(&row).
		Where("tenant_id = ?", tenantID).
		Where("id = ?", appointmentID).
		Limit(1)
	if forUpdate {
		q = q.For("UPDATE")
	}
	if err := q.Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Appointment{}, store.ErrNotFound
		}
		return domain.Appointment{}, store.Unavailable("get_appointment", err)
	}
	return row, nil
}
