package store

import (
	"context"

	"github.com/google/uuid"

	"appointly/internal/domain"
)

// BookingTx is the view of a professional's calendar inside a booking transaction.
// Reads through it see the transaction's own writes.
type BookingTx interface {
	ScheduleReader

	CreateAppointment(ctx context.Context, appt domain.Appointment) (domain.Appointment, error)
	GetAppointmentForUpdate(ctx context.Context, tenantID, appointmentID uuid.UUID) (domain.Appointment, error)
	UpdateAppointment(ctx context.Context, appt domain.Appointment) (domain.Appointment, error)
}
