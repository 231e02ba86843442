package appointments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"appointly/internal/domain"
	"appointly/internal/scheduling"
	"appointly/internal/service/availability"
	"appointly/internal/store"
)

const maxIdempotencyKeyLen = 256

// ConflictError rejects a booking write. OccurrenceDate is the start of the
// first occurrence of a series that could not be placed.
type ConflictError struct {
	Report         domain.ConflictReport
	OccurrenceDate time.Time
}

func (e *ConflictError) Error() string {
	types := make([]string, 0, len(e.Report.Conflicts))
	for _, t := range e.Report.Types() {
		types = append(types, string(t))
	}
	return fmt.Sprintf("booking conflicts on %s: %s", e.OccurrenceDate.Format(time.DateOnly), strings.Join(types, ", "))
}

type Config struct {
	DefaultSlotDuration time.Duration
	Location            *time.Location
}

type Service struct {
	repo store.AppointmentRepository
	cfg  Config
	now  func() time.Time
	log  *slog.Logger
}

func NewService(repo store.AppointmentRepository, cfg Config, log *slog.Logger) *Service {
	if cfg.DefaultSlotDuration <= 0 {
		cfg.DefaultSlotDuration = availability.DefaultSlotDuration
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{repo: repo, cfg: cfg, now: time.Now, log: log.With("component", "appointments")}
}

type BookInput struct {
	TenantID       uuid.UUID
	ProfessionalID uuid.UUID
	ClientID       *uuid.UUID
	ServiceIDs     []uuid.UUID
	StartTime      time.Time
	Duration       time.Duration
	Notes          string
	Recurrence     domain.RecurrencePattern
	AllowOverrides []domain.ConflictType
	IdempotencyKey string
}

type BookResult struct {
	Appointments      []domain.Appointment
	RecurrenceGroupID *uuid.UUID
}

// Book creates one appointment, or every occurrence of a recurring series, in a
// single transaction. Any occurrence with a conflict outside AllowOverrides
// rejects the whole request.
func (s *Service) Book(ctx context.Context, in BookInput) (BookResult, error) {
	if err := requireIDs(in.TenantID, in.ProfessionalID); err != nil {
		return BookResult{}, err
	}
	if in.StartTime.IsZero() {
		return BookResult{}, validationError(domain.KindInvalidArgument, "start_time is required")
	}
	if in.Duration < 0 {
		return BookResult{}, validationError(domain.KindInvalidDuration, "duration must be positive")
	}
	if err := validateOverrides(in.AllowOverrides); err != nil {
		return BookResult{}, err
	}
	key := strings.TrimSpace(in.IdempotencyKey)
	if len(key) > maxIdempotencyKeyLen {
		return BookResult{}, validationError(domain.KindInvalidArgument, "idempotency_key too long")
	}

	pattern := in.Recurrence
	if err := domain.ValidatePattern(pattern, s.now()); err != nil {
		return BookResult{}, err
	}
	occurrences, err := domain.GenerateOccurrences(in.StartTime.In(s.cfg.Location), pattern)
	if err != nil {
		return BookResult{}, err
	}

	var groupID *uuid.UUID
	if pattern.Repeats() {
		id, err := domain.NewRecurrenceGroupID()
		if err != nil {
			return BookResult{}, err
		}
		if key != "" {
			id = uuid.NewSHA1(uuid.NameSpaceOID, []byte("appointly:series:"+in.TenantID.String()+":"+key))
		}
		groupID = &id
	}

	var created []domain.Appointment
	err = s.repo.InProfessionalTransaction(ctx, in.TenantID, in.ProfessionalID, func(ctx context.Context, tx store.BookingTx) error {
		duration, err := s.resolveDuration(ctx, tx, in.TenantID, in.Duration, in.ServiceIDs)
		if err != nil {
			return err
		}

		created = make([]domain.Appointment, 0, len(occurrences))
		for i, occ := range occurrences {
			req := scheduling.ConflictRequest{
				ProfessionalID: in.ProfessionalID,
				ClientID:       in.ClientID,
				Start:          occ.Date,
				Duration:       duration,
			}
			appt := domain.Appointment{
				TenantID:          in.TenantID,
				ProfessionalID:    in.ProfessionalID,
				ClientID:          in.ClientID,
				StartTime:         occ.Date.UTC(),
				EndTime:           occ.Date.Add(duration).UTC(),
				Status:            domain.AppointmentStatusScheduled,
				RecurrenceGroupID: groupID,
				Notes:             in.Notes,
			}
			if key != "" {
				appt.ID = bookingID(in.TenantID, key, i)
				req.ExcludeAppointmentID = &appt.ID
			}

			if err := s.check(ctx, tx, in.TenantID, req, in.AllowOverrides); err != nil {
				return err
			}
			saved, err := tx.CreateAppointment(ctx, appt)
			if errors.Is(err, store.ErrConflict) {
				return lateConflict(occ.Date)
			}
			if err != nil {
				return err
			}
			created = append(created, saved)
		}
		return nil
	})
	if err != nil {
		s.logWriteError(ctx, "book", err, "professional_id", in.ProfessionalID)
		return BookResult{}, err
	}

	s.log.InfoContext(ctx, "appointments booked",
		"professional_id", in.ProfessionalID,
		"count", len(created),
		"recurrence", string(pattern.Type),
	)
	return BookResult{Appointments: created, RecurrenceGroupID: groupID}, nil
}

type RescheduleInput struct {
	TenantID       uuid.UUID
	AppointmentID  uuid.UUID
	StartTime      time.Time
	Duration       time.Duration
	AllowOverrides []domain.ConflictType
}

// Reschedule moves an occupying appointment. The current length is kept unless
// Duration is set. The appointment never conflicts with itself.
func (s *Service) Reschedule(ctx context.Context, in RescheduleInput) (domain.Appointment, error) {
	if in.TenantID == uuid.Nil {
		return domain.Appointment{}, validationError(domain.KindInvalidArgument, "tenant_id is required")
	}
	if in.AppointmentID == uuid.Nil {
		return domain.Appointment{}, validationError(domain.KindInvalidArgument, "appointment_id is required")
	}
	if in.StartTime.IsZero() {
		return domain.Appointment{}, validationError(domain.KindInvalidArgument, "start_time is required")
	}
	if in.Duration < 0 {
		return domain.Appointment{}, validationError(domain.KindInvalidDuration, "duration must be positive")
	}
	if err := validateOverrides(in.AllowOverrides); err != nil {
		return domain.Appointment{}, err
	}

	current, err := s.repo.Get(ctx, in.TenantID, in.AppointmentID)
	if err != nil {
		return domain.Appointment{}, err
	}

	var updated domain.Appointment
	err = s.repo.InProfessionalTransaction(ctx, in.TenantID, current.ProfessionalID, func(ctx context.Context, tx store.BookingTx) error {
		appt, err := tx.GetAppointmentForUpdate(ctx, in.TenantID, in.AppointmentID)
		if err != nil {
			return err
		}
		if !appt.Status.Occupies() || appt.Status == domain.AppointmentStatusCompleted {
			return validationError(domain.KindInvalidArgument, fmt.Sprintf("cannot reschedule a %s appointment", strings.ToLower(string(appt.Status))))
		}

		duration := in.Duration
		if duration == 0 {
			duration = appt.EndTime.Sub(appt.StartTime)
		}
		start := in.StartTime.In(s.cfg.Location)
		req := scheduling.ConflictRequest{
			ProfessionalID:       appt.ProfessionalID,
			ClientID:             appt.ClientID,
			Start:                start,
			Duration:             duration,
			ExcludeAppointmentID: &appt.ID,
		}
		if err := s.check(ctx, tx, in.TenantID, req, in.AllowOverrides); err != nil {
			return err
		}

		appt.StartTime = start.UTC()
		appt.EndTime = start.Add(duration).UTC()
		updated, err = tx.UpdateAppointment(ctx, appt)
		if errors.Is(err, store.ErrConflict) {
			return lateConflict(start)
		}
		return err
	})
	if err != nil {
		s.logWriteError(ctx, "reschedule", err, "appointment_id", in.AppointmentID)
		return domain.Appointment{}, err
	}
	s.log.InfoContext(ctx, "appointment rescheduled", "appointment_id", updated.ID, "start_time", updated.StartTime)
	return updated, nil
}

// Cancel releases an appointment's time range. Cancelling twice is a no-op.
func (s *Service) Cancel(ctx context.Context, tenantID, appointmentID uuid.UUID) (domain.Appointment, error) {
	if tenantID == uuid.Nil {
		return domain.Appointment{}, validationError(domain.KindInvalidArgument, "tenant_id is required")
	}
	if appointmentID == uuid.Nil {
		return domain.Appointment{}, validationError(domain.KindInvalidArgument, "appointment_id is required")
	}

	current, err := s.repo.Get(ctx, tenantID, appointmentID)
	if err != nil {
		return domain.Appointment{}, err
	}
	if current.Status == domain.AppointmentStatusCancelled {
		return current, nil
	}

	var cancelled domain.Appointment
	err = s.repo.InProfessionalTransaction(ctx, tenantID, current.ProfessionalID, func(ctx context.Context, tx store.BookingTx) error {
		appt, err := tx.GetAppointmentForUpdate(ctx, tenantID, appointmentID)
		if err != nil {
			return err
		}
		switch appt.Status {
		case domain.AppointmentStatusCancelled:
			cancelled = appt
			return nil
		case domain.AppointmentStatusCompleted, domain.AppointmentStatusNoShow:
			return validationError(domain.KindInvalidArgument, fmt.Sprintf("cannot cancel a %s appointment", strings.ToLower(string(appt.Status))))
		}
		appt.Status = domain.AppointmentStatusCancelled
		cancelled, err = tx.UpdateAppointment(ctx, appt)
		return err
	})
	if err != nil {
		s.logWriteError(ctx, "cancel", err, "appointment_id", appointmentID)
		return domain.Appointment{}, err
	}
	s.log.InfoContext(ctx, "appointment cancelled", "appointment_id", appointmentID)
	return cancelled, nil
}

// CancelSeries cancels the occurrences of a series that have not started yet.
func (s *Service) CancelSeries(ctx context.Context, tenantID, groupID uuid.UUID) (int, error) {
	if tenantID == uuid.Nil {
		return 0, validationError(domain.KindInvalidArgument, "tenant_id is required")
	}
	if groupID == uuid.Nil {
		return 0, validationError(domain.KindInvalidArgument, "recurrence_group_id is required")
	}
	n, err := s.repo.CancelSeries(ctx, tenantID, groupID, s.now().UTC())
	if err != nil {
		s.logWriteError(ctx, "cancel_series", err, "recurrence_group_id", groupID)
		return 0, err
	}
	s.log.InfoContext(ctx, "series cancelled", "recurrence_group_id", groupID, "count", n)
	return n, nil
}

func (s *Service) List(ctx context.Context, tenantID, professionalID uuid.UUID, windowStart, windowEnd time.Time) ([]domain.Appointment, error) {
	if err := requireIDs(tenantID, professionalID); err != nil {
		return nil, err
	}

	start := windowStart.UTC()
	end := windowEnd.UTC()
	if !end.After(start) {
		return nil, validationError(domain.KindInvalidRange, "window_end must be after window_start")
	}

	return s.repo.List(ctx, tenantID, professionalID, start, end)
}

// check runs the conflict detector against tx and drops the overridable entries.
func (s *Service) check(ctx context.Context, tx store.BookingTx, tenantID uuid.UUID, req scheduling.ConflictRequest, overrides []domain.ConflictType) error {
	snap, err := availability.LoadConflictSnapshot(ctx, tx, tenantID, req, s.cfg.Location)
	if err != nil {
		return err
	}
	report := scheduling.CheckConflicts(req, snap).Without(overrides...)
	if report.HasConflict {
		return &ConflictError{Report: report, OccurrenceDate: req.Start}
	}
	return nil
}

func (s *Service) resolveDuration(ctx context.Context, tx store.BookingTx, tenantID uuid.UUID, explicit time.Duration, serviceIDs []uuid.UUID) (time.Duration, error) {
	var minutes []int
	if explicit == 0 && len(serviceIDs) > 0 {
		var err error
		minutes, err = tx.ServiceDurations(ctx, tenantID, serviceIDs)
		if err != nil {
			return 0, store.Unavailable("service_durations", err)
		}
		if err := scheduling.RequireKnownServices(len(serviceIDs), len(minutes)); err != nil {
			return 0, err
		}
	}
	return scheduling.ResolveDuration(explicit, minutes, s.cfg.DefaultSlotDuration)
}

func (s *Service) logWriteError(ctx context.Context, op string, err error, args ...any) {
	args = append(args, "op", op, "error", err)
	var conflict *ConflictError
	switch {
	case errors.As(err, &conflict):
		s.log.InfoContext(ctx, "booking rejected", append(args, "conflicts", len(conflict.Report.Conflicts))...)
	case isValidation(err), errors.Is(err, store.ErrNotFound), errors.Is(err, store.ErrIdempotencyConflict):
		s.log.WarnContext(ctx, "booking write refused", args...)
	default:
		s.log.ErrorContext(ctx, "booking write failed", args...)
	}
}

// bookingID derives the id of the i-th occurrence booked under an idempotency key.
func bookingID(tenantID uuid.UUID, key string, i int) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(fmt.Sprintf("appointly:book:%s:%s:%d", tenantID, key, i)))
}

// lateConflict reports a double booking caught by the store after the checks passed.
func lateConflict(start time.Time) error {
	return &ConflictError{
		Report: domain.NewConflictReport([]domain.ConflictEntry{{
			Type:   domain.ConflictProfessionalBusy,
			Detail: "professional already has an appointment at this time",
		}}),
		OccurrenceDate: start,
	}
}

func validateOverrides(types []domain.ConflictType) error {
	for _, t := range types {
		if !t.Valid() {
			return validationError(domain.KindInvalidArgument, fmt.Sprintf("unknown conflict type %q", t))
		}
		if t == domain.ConflictProfessionalBusy {
			return validationError(domain.KindInvalidArgument, "PROFESSIONAL_BUSY cannot be overridden")
		}
	}
	return nil
}

func requireIDs(tenantID, professionalID uuid.UUID) error {
	if tenantID == uuid.Nil {
		return validationError(domain.KindInvalidArgument, "tenant_id is required")
	}
	if professionalID == uuid.Nil {
		return validationError(domain.KindInvalidArgument, "professional_id is required")
	}
	return nil
}

func validationError(kind domain.ErrorKind, msg string) error {
	return domain.NewValidationError(kind, msg)
}

func isValidation(err error) bool {
	_, ok := domain.IsValidation(err)
	return ok
}
