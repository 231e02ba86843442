package grpc

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"appointly/internal/domain"
	"appointly/internal/scheduling"
	"appointly/internal/service/availability"
)

const defaultNextSlotsLimit = 10

type AvailabilityServer struct {
	svc availabilityService
	now func() time.Time
	log *slog.Logger
}

type availabilityService interface {
	GetAvailability(ctx context.Context, tenantID, professionalID uuid.UUID, date time.Time, opts availability.Options) (domain.DayAvailability, error)
	GetAvailabilityRange(ctx context.Context, tenantID, professionalID uuid.UUID, startDate, endDate time.Time, opts availability.Options) ([]domain.DaySummary, error)
	GetNextAvailableSlots(ctx context.Context, tenantID, professionalID uuid.UUID, opts availability.NextOptions) ([]domain.Slot, error)
	CheckConflicts(ctx context.Context, tenantID uuid.UUID, req scheduling.ConflictRequest, opts availability.Options) (domain.ConflictReport, error)
}

func NewAvailabilityServer(svc availabilityService, log *slog.Logger) *AvailabilityServer {
	if log == nil {
		log = slog.Default()
	}
	return &AvailabilityServer{
		svc: svc,
		now: time.Now,
		log: log.With(slog.String("component", "grpc.availability")),
	}
}

type queryTarget struct {
	tenantID       uuid.UUID
	professionalID uuid.UUID
	opts           availability.Options
}

func parseQuery(tenantID, professionalID string, serviceIDs []string, durationMinutes int, tz string) (queryTarget, error) {
	tid, err := parseID("tenant_id", tenantID)
	if err != nil {
		return queryTarget{}, err
	}
	pid, err := parseID("professional_id", professionalID)
	if err != nil {
		return queryTarget{}, err
	}
	sids, err := parseIDs("service_ids", serviceIDs)
	if err != nil {
		return queryTarget{}, err
	}
	loc, err := parseLocation(tz)
	if err != nil {
		return queryTarget{}, err
	}
	return queryTarget{
		tenantID:       tid,
		professionalID: pid,
		opts:           availability.Options{ServiceIDs: sids, Duration: minutes(durationMinutes), Location: loc},
	}, nil
}

func (s *AvailabilityServer) GetAvailability(ctx context.Context, req *GetAvailabilityRequest) (*GetAvailabilityResponse, error) {
	log := s.log.With(slog.String("rpc", "GetAvailability"))

	if req == nil {
		log.Warn("invalid request", slog.String("reason", "nil_request"))
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	q, err := parseQuery(req.TenantID, req.ProfessionalID, req.ServiceIDs, req.DurationMinutes, req.TimeZone)
	if err != nil {
		return nil, toStatus(ctx, log, "availability", err)
	}
	date, err := parseDate("date", req.Date)
	if err != nil {
		return nil, toStatus(ctx, log, "availability", err)
	}

	day, err := s.svc.GetAvailability(ctx, q.tenantID, q.professionalID, date, q.opts)
	if err != nil {
		return nil, toStatus(ctx, log, "availability", err, slog.String("professional_id", req.ProfessionalID))
	}

	log.DebugContext(ctx, "availability computed",
		slog.String("professional_id", req.ProfessionalID),
		slog.String("date", req.Date),
		slog.Int("slots", len(day.Slots)),
	)
	return &GetAvailabilityResponse{
		Date:             day.Date.Format(time.DateOnly),
		IsWorkingDay:     day.IsWorkingDay,
		HasBlockedPeriod: day.HasBlockedPeriod,
		WorkingHours:     day.WorkingHours,
		Slots:            toSlots(day.Slots),
	}, nil
}

func (s *AvailabilityServer) GetAvailabilityRange(ctx context.Context, req *GetAvailabilityRangeRequest) (*GetAvailabilityRangeResponse, error) {
	log := s.log.With(slog.String("rpc", "GetAvailabilityRange"))

	if req == nil {
		log.Warn("invalid request", slog.String("reason", "nil_request"))
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	q, err := parseQuery(req.TenantID, req.ProfessionalID, req.ServiceIDs, req.DurationMinutes, req.TimeZone)
	if err != nil {
		return nil, toStatus(ctx, log, "availability range", err)
	}
	start, err := parseDate("start_date", req.StartDate)
	if err != nil {
		return nil, toStatus(ctx, log, "availability range", err)
	}
	end, err := parseDate("end_date", req.EndDate)
	if err != nil {
		return nil, toStatus(ctx, log, "availability range", err)
	}

	days, err := s.svc.GetAvailabilityRange(ctx, q.tenantID, q.professionalID, start, end, q.opts)
	if err != nil {
		return nil, toStatus(ctx, log, "availability range", err, slog.String("professional_id", req.ProfessionalID))
	}

	out := make([]DaySummary, 0, len(days))
	for _, d := range days {
		out = append(out, DaySummary{
			Date:             d.Date.Format(time.DateOnly),
			Available:        d.Available,
			SlotCount:        d.SlotCount,
			IsWorkingDay:     d.IsWorkingDay,
			HasBlockedPeriod: d.HasBlockedPeriod,
		})
	}
	return &GetAvailabilityRangeResponse{Days: out}, nil
}

func (s *AvailabilityServer) GetNextAvailableSlots(ctx context.Context, req *GetNextAvailableSlotsRequest) (*GetNextAvailableSlotsResponse, error) {
	log := s.log.With(slog.String("rpc", "GetNextAvailableSlots"))

	if req == nil {
		log.Warn("invalid request", slog.String("reason", "nil_request"))
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	q, err := parseQuery(req.TenantID, req.ProfessionalID, req.ServiceIDs, req.DurationMinutes, req.TimeZone)
	if err != nil {
		return nil, toStatus(ctx, log, "next slots", err)
	}
	limit := req.Limit
	if limit == 0 {
		limit = defaultNextSlotsLimit
	}
	opts := availability.NextOptions{Options: q.opts, Limit: limit}
	if req.StartFrom != nil {
		opts.StartFrom = *req.StartFrom
	}

	slots, err := s.svc.GetNextAvailableSlots(ctx, q.tenantID, q.professionalID, opts)
	if err != nil {
		return nil, toStatus(ctx, log, "next slots", err, slog.String("professional_id", req.ProfessionalID))
	}
	return &GetNextAvailableSlotsResponse{Slots: toSlots(slots)}, nil
}

// CheckConflicts reports conflicts in the response body. It fails only on bad
// input or when the schedule cannot be read.
func (s *AvailabilityServer) CheckConflicts(ctx context.Context, req *CheckConflictsRequest) (*CheckConflictsResponse, error) {
	log := s.log.With(slog.String("rpc", "CheckConflicts"))

	if req == nil {
		log.Warn("invalid request", slog.String("reason", "nil_request"))
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	if req.StartTime.IsZero() {
		log.Warn("invalid request", slog.String("reason", "missing_start_time"))
		return nil, status.Error(codes.InvalidArgument, "start_time is required")
	}
	q, err := parseQuery(req.TenantID, req.ProfessionalID, req.ServiceIDs, req.DurationMinutes, req.TimeZone)
	if err != nil {
		return nil, toStatus(ctx, log, "check conflicts", err)
	}
	clientID, err := parseOptionalID("client_id", req.ClientID)
	if err != nil {
		return nil, toStatus(ctx, log, "check conflicts", err)
	}
	exclude, err := parseOptionalID("exclude_appointment_id", req.ExcludeAppointmentID)
	if err != nil {
		return nil, toStatus(ctx, log, "check conflicts", err)
	}

	report, err := s.svc.CheckConflicts(ctx, q.tenantID, scheduling.ConflictRequest{
		ProfessionalID:       q.professionalID,
		ClientID:             clientID,
		Start:                req.StartTime,
		Duration:             q.opts.Duration,
		ExcludeAppointmentID: exclude,
	}, q.opts)
	if err != nil {
		return nil, toStatus(ctx, log, "check conflicts", err, slog.String("professional_id", req.ProfessionalID))
	}

	log.DebugContext(ctx, "conflicts checked",
		slog.String("professional_id", req.ProfessionalID),
		slog.Time("start_time", req.StartTime),
		slog.Int("conflicts", len(report.Conflicts)),
	)
	return &CheckConflictsResponse{HasConflict: report.HasConflict, Conflicts: toConflicts(report)}, nil
}

// GenerateOccurrences previews the dates a pattern would book from start_time.
func (s *AvailabilityServer) GenerateOccurrences(ctx context.Context, req *GenerateOccurrencesRequest) (*GenerateOccurrencesResponse, error) {
	log := s.log.With(slog.String("rpc", "GenerateOccurrences"))

	if req == nil {
		log.Warn("invalid request", slog.String("reason", "nil_request"))
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	if req.StartTime.IsZero() {
		return nil, status.Error(codes.InvalidArgument, "start_time is required")
	}
	pattern, err := parsePattern(req.Recurrence)
	if err != nil {
		return nil, toStatus(ctx, log, "generate occurrences", err)
	}
	loc, err := parseLocation(req.TimeZone)
	if err != nil {
		return nil, toStatus(ctx, log, "generate occurrences", err)
	}
	anchor := req.StartTime
	if loc != nil {
		anchor = anchor.In(loc)
	}

	if err := domain.ValidatePattern(pattern, s.now()); err != nil {
		return nil, toStatus(ctx, log, "generate occurrences", err)
	}
	occs, err := domain.GenerateOccurrences(anchor, pattern)
	if err != nil {
		return nil, toStatus(ctx, log, "generate occurrences", err)
	}

	out := make([]Occurrence, 0, len(occs))
	for _, o := range occs {
		out = append(out, Occurrence{Date: o.Date, IsLast: o.IsLast})
	}
	return &GenerateOccurrencesResponse{Occurrences: out, Description: domain.DescribePattern(pattern)}, nil
}

// ValidatePattern reports an invalid pattern in the response body.
func (s *AvailabilityServer) ValidatePattern(ctx context.Context, req *ValidatePatternRequest) (*ValidatePatternResponse, error) {
	log := s.log.With(slog.String("rpc", "ValidatePattern"))

	if req == nil {
		log.Warn("invalid request", slog.String("reason", "nil_request"))
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	pattern, err := parsePattern(req.Recurrence)
	if err != nil {
		return nil, toStatus(ctx, log, "validate pattern", err)
	}
	if err := domain.ValidatePattern(pattern, s.now()); err != nil {
		resp := &ValidatePatternResponse{Error: err.Error()}
		if ve, ok := domain.IsValidation(err); ok {
			resp.Kind = string(ve.Kind)
		}
		return resp, nil
	}
	return &ValidatePatternResponse{Valid: true, Description: domain.DescribePattern(pattern)}, nil
}

func (s *AvailabilityServer) DescribePattern(ctx context.Context, req *DescribePatternRequest) (*DescribePatternResponse, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	pattern, err := parsePattern(req.Recurrence)
	if err != nil {
		return nil, toStatus(ctx, s.log.With(slog.String("rpc", "DescribePattern")), "describe pattern", err)
	}
	return &DescribePatternResponse{Description: domain.DescribePattern(pattern)}, nil
}
