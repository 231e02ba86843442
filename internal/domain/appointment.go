package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type AppointmentStatus string

const (
	AppointmentStatusScheduled AppointmentStatus = "SCHEDULED"
	AppointmentStatusConfirmed AppointmentStatus = "CONFIRMED"
	AppointmentStatusCompleted AppointmentStatus = "COMPLETED"
	AppointmentStatusCancelled AppointmentStatus = "CANCELLED"
	AppointmentStatusNoShow    AppointmentStatus = "NO_SHOW"
)

// Occupies reports whether an appointment in this status still holds its time range.
func (s AppointmentStatus) Occupies() bool {
	return s != AppointmentStatusCancelled && s != AppointmentStatusNoShow
}

// ReleasedStatuses are excluded from every overlap check.
var ReleasedStatuses = []AppointmentStatus{AppointmentStatusCancelled, AppointmentStatusNoShow}

type Appointment struct {
	bun.BaseModel `bun:"table:appointments"`

	ID                uuid.UUID         `bun:"id,pk,type:uuid"`
	TenantID          uuid.UUID         `bun:"tenant_id,notnull,type:uuid"`
	ProfessionalID    uuid.UUID         `bun:"professional_id,notnull,type:uuid"`
	ClientID          *uuid.UUID        `bun:"client_id,type:uuid"`
	StartTime         time.Time         `bun:"start_time,notnull"`
	EndTime           time.Time         `bun:"end_time,notnull"`
	Status            AppointmentStatus `bun:"status,notnull"`
	RecurrenceGroupID *uuid.UUID        `bun:"recurrence_group_id,type:uuid"`
	Notes             string            `bun:"notes"`
	CreatedAt         time.Time         `bun:"created_at,notnull"`
	UpdatedAt         time.Time         `bun:"updated_at,notnull"`
}

func (a *Appointment) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	return stampModel(query, &a.ID, &a.CreatedAt, &a.UpdatedAt)
}

// Interval projects the appointment into the read shape used by overlap checks.
func (a Appointment) Interval() BookedInterval {
	return BookedInterval{
		AppointmentID:  a.ID,
		ProfessionalID: a.ProfessionalID,
		ClientID:       a.ClientID,
		StartTime:      a.StartTime,
		EndTime:        a.EndTime,
		Status:         a.Status,
	}
}

// BookedInterval is the time range held by an existing appointment.
type BookedInterval struct {
	AppointmentID  uuid.UUID
	ProfessionalID uuid.UUID
	ClientID       *uuid.UUID
	StartTime      time.Time
	EndTime        time.Time
	Status         AppointmentStatus
}

// stampModel fills ids and timestamps the same way for every bun model we own.
func stampModel(query bun.Query, id *uuid.UUID, createdAt, updatedAt *time.Time) error {
	now := time.Now().UTC()
	switch query.(type) {
	case *bun.InsertQuery:
		if *id == uuid.Nil {
			v, err := uuid.NewV7()
			if err != nil {
				return err
			}
			*id = v
		}
		if createdAt.IsZero() {
			*createdAt = now
		}
		if updatedAt.IsZero() {
			*updatedAt = now
		}
	case *bun.UpdateQuery:
		*updatedAt = now
	}
	return nil
}
