package grpc

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"appointly/internal/domain"
	"appointly/internal/service/appointments"
)

type AppointmentsServer struct {
	svc appointmentsService
	log *slog.Logger
}

type appointmentsService interface {
	Book(ctx context.Context, in appointments.BookInput) (appointments.BookResult, error)
	Reschedule(ctx context.Context, in appointments.RescheduleInput) (domain.Appointment, error)
	Cancel(ctx context.Context, tenantID, appointmentID uuid.UUID) (domain.Appointment, error)
	CancelSeries(ctx context.Context, tenantID, groupID uuid.UUID) (int, error)
	List(ctx context.Context, tenantID, professionalID uuid.UUID, windowStart, windowEnd time.Time) ([]domain.Appointment, error)
}

func NewAppointmentsServer(svc appointmentsService, log *slog.Logger) *AppointmentsServer {
	if log == nil {
		log = slog.Default()
	}
	return &AppointmentsServer{
		svc: svc,
		log: log.With(slog.String("component", "grpc.appointments")),
	}
}

func (s *AppointmentsServer) BookAppointment(ctx context.Context, req *BookAppointmentRequest) (*BookAppointmentResponse, error) {
	log := s.log.With(slog.String("rpc", "BookAppointment"))

	if req == nil {
		log.Warn("invalid request", slog.String("reason", "nil_request"))
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	if req.StartTime.IsZero() {
		log.Warn("invalid request", slog.String("reason", "missing_start_time"), slog.String("professional_id", req.ProfessionalID))
		return nil, status.Error(codes.InvalidArgument, "start_time is required")
	}

	in := appointments.BookInput{
		StartTime:      req.StartTime,
		Duration:       minutes(req.DurationMinutes),
		Notes:          req.Notes,
		AllowOverrides: parseConflictTypes(req.AllowOverrides),
		IdempotencyKey: idempotencyKey(ctx),
	}
	var err error
	if in.TenantID, err = parseID("tenant_id", req.TenantID); err != nil {
		return nil, toStatus(ctx, log, "book", err)
	}
	if in.ProfessionalID, err = parseID("professional_id", req.ProfessionalID); err != nil {
		return nil, toStatus(ctx, log, "book", err)
	}
	if in.ClientID, err = parseOptionalID("client_id", req.ClientID); err != nil {
		return nil, toStatus(ctx, log, "book", err)
	}
	if in.ServiceIDs, err = parseIDs("service_ids", req.ServiceIDs); err != nil {
		return nil, toStatus(ctx, log, "book", err)
	}
	if req.Recurrence != nil {
		if in.Recurrence, err = parsePattern(*req.Recurrence); err != nil {
			return nil, toStatus(ctx, log, "book", err)
		}
	}

	res, err := s.svc.Book(ctx, in)
	if err != nil {
		return nil, toStatus(ctx, log, "book", err,
			slog.String("professional_id", req.ProfessionalID),
			slog.Time("start_time", req.StartTime),
		)
	}

	log.Info("appointments booked",
		slog.String("professional_id", req.ProfessionalID),
		slog.Int("count", len(res.Appointments)),
		slog.Time("start_time", req.StartTime),
	)
	resp := &BookAppointmentResponse{Appointments: toAppointments(res.Appointments)}
	if res.RecurrenceGroupID != nil {
		resp.RecurrenceGroupID = res.RecurrenceGroupID.String()
	}
	return resp, nil
}

func idempotencyKey(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	values := md.Get("idempotency-key")
	if len(values) == 0 {
		values = md.Get("x-idempotency-key")
	}
	if len(values) == 0 {
		return ""
	}
	return strings.TrimSpace(values[0])
}

func (s *AppointmentsServer) RescheduleAppointment(ctx context.Context, req *RescheduleAppointmentRequest) (*RescheduleAppointmentResponse, error) {
	log := s.log.With(slog.String("rpc", "RescheduleAppointment"))

	if req == nil {
		log.Warn("invalid request", slog.String("reason", "nil_request"))
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	tenantID, err := parseID("tenant_id", req.TenantID)
	if err != nil {
		return nil, toStatus(ctx, log, "reschedule", err)
	}
	id, err := parseID("appointment_id", req.AppointmentID)
	if err != nil {
		return nil, toStatus(ctx, log, "reschedule", err)
	}

	appt, err := s.svc.Reschedule(ctx, appointments.RescheduleInput{
		TenantID:       tenantID,
		AppointmentID:  id,
		StartTime:      req.StartTime,
		Duration:       minutes(req.DurationMinutes),
		AllowOverrides: parseConflictTypes(req.AllowOverrides),
	})
	if err != nil {
		return nil, toStatus(ctx, log, "reschedule", err, slog.String("appointment_id", id.String()))
	}

	log.Info("appointment rescheduled",
		slog.String("appointment_id", appt.ID.String()),
		slog.Time("start_time", appt.StartTime),
		slog.Time("end_time", appt.EndTime),
	)
	return &RescheduleAppointmentResponse{Appointment: toAppointment(appt)}, nil
}

func (s *AppointmentsServer) CancelAppointment(ctx context.Context, req *CancelAppointmentRequest) (*CancelAppointmentResponse, error) {
	log := s.log.With(slog.String("rpc", "CancelAppointment"))

	if req == nil {
		log.Warn("invalid request", slog.String("reason", "nil_request"))
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	tenantID, err := parseID("tenant_id", req.TenantID)
	if err != nil {
		return nil, toStatus(ctx, log, "cancel", err)
	}
	id, err := parseID("appointment_id", req.AppointmentID)
	if err != nil {
		return nil, toStatus(ctx, log, "cancel", err)
	}

	appt, err := s.svc.Cancel(ctx, tenantID, id)
	if err != nil {
		return nil, toStatus(ctx, log, "cancel", err, slog.String("appointment_id", id.String()))
	}

	log.Info("appointment cancelled", slog.String("appointment_id", id.String()))
	return &CancelAppointmentResponse{Appointment: toAppointment(appt)}, nil
}

func (s *AppointmentsServer) CancelSeries(ctx context.Context, req *CancelSeriesRequest) (*CancelSeriesResponse, error) {
	log := s.log.With(slog.String("rpc", "CancelSeries"))

	if req == nil {
		log.Warn("invalid request", slog.String("reason", "nil_request"))
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	tenantID, err := parseID("tenant_id", req.TenantID)
	if err != nil {
		return nil, toStatus(ctx, log, "cancel series", err)
	}
	groupID, err := parseID("recurrence_group_id", req.RecurrenceGroupID)
	if err != nil {
		return nil, toStatus(ctx, log, "cancel series", err)
	}

	n, err := s.svc.CancelSeries(ctx, tenantID, groupID)
	if err != nil {
		return nil, toStatus(ctx, log, "cancel series", err, slog.String("recurrence_group_id", groupID.String()))
	}

	log.Info("series cancelled", slog.String("recurrence_group_id", groupID.String()), slog.Int("count", n))
	return &CancelSeriesResponse{Cancelled: n}, nil
}

func (s *AppointmentsServer) ListAppointments(ctx context.Context, req *ListAppointmentsRequest) (*ListAppointmentsResponse, error) {
	log := s.log.With(slog.String("rpc", "ListAppointments"))

	if req == nil {
		log.Warn("invalid request", slog.String("reason", "nil_request"))
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	if req.WindowStart.IsZero() || req.WindowEnd.IsZero() {
		log.Warn("invalid request", slog.String("reason", "missing_window"), slog.String("professional_id", req.ProfessionalID))
		return nil, status.Error(codes.InvalidArgument, "window_start and window_end are required")
	}
	tenantID, err := parseID("tenant_id", req.TenantID)
	if err != nil {
		return nil, toStatus(ctx, log, "list", err)
	}
	professionalID, err := parseID("professional_id", req.ProfessionalID)
	if err != nil {
		return nil, toStatus(ctx, log, "list", err)
	}

	appts, err := s.svc.List(ctx, tenantID, professionalID, req.WindowStart, req.WindowEnd)
	if err != nil {
		return nil, toStatus(ctx, log, "list", err, slog.String("professional_id", req.ProfessionalID))
	}

	log.Debug("appointments listed",
		slog.String("professional_id", req.ProfessionalID),
		slog.Int("count", len(appts)),
		slog.Time("window_start", req.WindowStart),
		slog.Time("window_end", req.WindowEnd),
	)
	return &ListAppointmentsResponse{Appointments: toAppointments(appts)}, nil
}
