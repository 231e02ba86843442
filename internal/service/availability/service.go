package availability

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"appointly/internal/domain"
	"appointly/internal/scheduling"
	"appointly/internal/store"
)

const (
	DefaultSlotDuration  = 30 * time.Minute
	DefaultLookaheadDays = 60
	MaxRangeDays         = 366

	nextSlotsChunkDays = 7
)

type Config struct {
	DefaultSlotDuration time.Duration
	LookaheadDays       int
	Location            *time.Location
}

type Service struct {
	reader store.ScheduleReader
	cfg    Config
	now    func() time.Time
	log    *slog.Logger
	tracer trace.Tracer
}

func NewService(reader store.ScheduleReader, cfg Config, log *slog.Logger) *Service {
	if cfg.DefaultSlotDuration <= 0 {
		cfg.DefaultSlotDuration = DefaultSlotDuration
	}
	if cfg.LookaheadDays <= 0 {
		cfg.LookaheadDays = DefaultLookaheadDays
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		reader: reader,
		cfg:    cfg,
		now:    time.Now,
		log:    log.With("component", "availability"),
		tracer: otel.Tracer("appointly/availability"),
	}
}

// Options narrows a query. Duration wins over ServiceIDs; with neither the
// configured default slot length is used. Location overrides the configured zone.
type Options struct {
	ServiceIDs []uuid.UUID
	Duration   time.Duration
	Location   *time.Location
}

type NextOptions struct {
	Options
	Limit     int
	StartFrom time.Time
}

func (s *Service) GetAvailability(ctx context.Context, tenantID, professionalID uuid.UUID, date time.Time, opts Options) (domain.DayAvailability, error) {
	ctx, span := s.tracer.Start(ctx, "availability.GetAvailability", trace.WithAttributes(
		attribute.String("professional_id", professionalID.String()),
		attribute.String("date", date.Format(time.DateOnly)),
	))
	defer span.End()

	if err := requireIDs(tenantID, professionalID); err != nil {
		return domain.DayAvailability{}, err
	}
	loc := s.location(opts)
	day := localDate(date, loc)

	duration, err := s.resolveDuration(ctx, tenantID, opts)
	if err != nil {
		return domain.DayAvailability{}, fail(span, err)
	}
	snap, err := loadRange(ctx, s.reader, tenantID, professionalID, day, day, loc, nil)
	if err != nil {
		return domain.DayAvailability{}, fail(span, err)
	}

	out := scheduling.BuildDay(day, loc, snap.hours, snap.blocks, snap.bookings, duration)
	span.SetAttributes(attribute.Int("slots", len(out.Slots)))
	return out, nil
}

// GetAvailabilityRange summarizes each local day in [startDate, endDate] from one snapshot.
func (s *Service) GetAvailabilityRange(ctx context.Context, tenantID, professionalID uuid.UUID, startDate, endDate time.Time, opts Options) ([]domain.DaySummary, error) {
	ctx, span := s.tracer.Start(ctx, "availability.GetAvailabilityRange", trace.WithAttributes(
		attribute.String("professional_id", professionalID.String()),
		attribute.String("start_date", startDate.Format(time.DateOnly)),
		attribute.String("end_date", endDate.Format(time.DateOnly)),
	))
	defer span.End()

	if err := requireIDs(tenantID, professionalID); err != nil {
		return nil, err
	}
	loc := s.location(opts)
	first := localDate(startDate, loc)
	last := localDate(endDate, loc)
	if last.Before(first) {
		return nil, domain.NewValidationError(domain.KindInvalidRange, "start_date must not be after end_date")
	}
	if days := daysBetween(first, last) + 1; days > MaxRangeDays {
		return nil, domain.NewValidationError(domain.KindInvalidRange, "date range cannot exceed 366 days")
	}

	duration, err := s.resolveDuration(ctx, tenantID, opts)
	if err != nil {
		return nil, fail(span, err)
	}
	snap, err := loadRange(ctx, s.reader, tenantID, professionalID, first, last, loc, nil)
	if err != nil {
		return nil, fail(span, err)
	}

	out := make([]domain.DaySummary, 0, daysBetween(first, last)+1)
	for day := first; !day.After(last); day = day.AddDate(0, 0, 1) {
		out = append(out, scheduling.BuildDay(day, loc, snap.hours, snap.blocks, snap.bookings, duration).Summary())
	}
	return out, nil
}

// GetNextAvailableSlots walks forward from StartFrom (default now) and returns
// up to Limit available slots in order. Slots starting before StartFrom are
// skipped. The walk stops after the lookahead window; running out is not an error.
func (s *Service) GetNextAvailableSlots(ctx context.Context, tenantID, professionalID uuid.UUID, opts NextOptions) ([]domain.Slot, error) {
	ctx, span := s.tracer.Start(ctx, "availability.GetNextAvailableSlots", trace.WithAttributes(
		attribute.String("professional_id", professionalID.String()),
		attribute.Int("limit", opts.Limit),
	))
	defer span.End()

	if err := requireIDs(tenantID, professionalID); err != nil {
		return nil, err
	}
	if opts.Limit < 1 {
		return nil, domain.NewValidationError(domain.KindInvalidArgument, "limit must be at least 1")
	}
	loc := s.location(opts.Options)
	startFrom := opts.StartFrom
	if startFrom.IsZero() {
		startFrom = s.now()
	}
	first := localDate(startFrom.In(loc), loc)
	last := first.AddDate(0, 0, s.cfg.LookaheadDays-1)

	duration, err := s.resolveDuration(ctx, tenantID, opts.Options)
	if err != nil {
		return nil, fail(span, err)
	}
	hours, err := s.reader.WorkingHours(ctx, tenantID, professionalID)
	if err != nil {
		return nil, fail(span, store.Unavailable("working_hours", err))
	}
	if hours == nil {
		hours = []domain.DaySchedule{}
	}

	out := make([]domain.Slot, 0, opts.Limit)
	for chunkStart := first; !chunkStart.After(last) && len(out) < opts.Limit; chunkStart = chunkStart.AddDate(0, 0, nextSlotsChunkDays) {
		chunkEnd := chunkStart.AddDate(0, 0, nextSlotsChunkDays-1)
		if chunkEnd.After(last) {
			chunkEnd = last
		}
		snap, err := loadRange(ctx, s.reader, tenantID, professionalID, chunkStart, chunkEnd, loc, hours)
		if err != nil {
			return nil, fail(span, err)
		}
		for day := chunkStart; !day.After(chunkEnd) && len(out) < opts.Limit; day = day.AddDate(0, 0, 1) {
			for _, slot := range scheduling.BuildDay(day, loc, hours, snap.blocks, snap.bookings, duration).Slots {
				if !slot.Available || slot.Start.Before(startFrom) {
					continue
				}
				out = append(out, slot)
				if len(out) == opts.Limit {
					break
				}
			}
		}
	}

	s.log.DebugContext(ctx, "next available slots", "professional_id", professionalID, "found", len(out), "limit", opts.Limit)
	span.SetAttributes(attribute.Int("found", len(out)))
	return out, nil
}

// CheckConflicts is the advisory pre-check. Bookings re-run it inside their
// write transaction.
func (s *Service) CheckConflicts(ctx context.Context, tenantID uuid.UUID, req scheduling.ConflictRequest, opts Options) (domain.ConflictReport, error) {
	ctx, span := s.tracer.Start(ctx, "availability.CheckConflicts", trace.WithAttributes(
		attribute.String("professional_id", req.ProfessionalID.String()),
	))
	defer span.End()

	if err := requireIDs(tenantID, req.ProfessionalID); err != nil {
		return domain.ConflictReport{}, err
	}
	if req.Start.IsZero() {
		return domain.ConflictReport{}, domain.NewValidationError(domain.KindInvalidArgument, "start_time is required")
	}
	duration, err := s.resolveDuration(ctx, tenantID, Options{ServiceIDs: opts.ServiceIDs, Duration: req.Duration})
	if err != nil {
		return domain.ConflictReport{}, fail(span, err)
	}
	req.Duration = duration

	snap, err := loadConflictSnapshot(ctx, s.reader, tenantID, req, s.location(opts), true)
	if err != nil {
		return domain.ConflictReport{}, fail(span, err)
	}
	report := scheduling.CheckConflicts(req, snap)
	span.SetAttributes(attribute.Int("conflicts", len(report.Conflicts)))
	return report, nil
}

func (s *Service) resolveDuration(ctx context.Context, tenantID uuid.UUID, opts Options) (time.Duration, error) {
	var minutes []int
	if opts.Duration == 0 && len(opts.ServiceIDs) > 0 {
		var err error
		minutes, err = s.reader.ServiceDurations(ctx, tenantID, opts.ServiceIDs)
		if err != nil {
			return 0, store.Unavailable("service_durations", err)
		}
		if err := scheduling.RequireKnownServices(len(opts.ServiceIDs), len(minutes)); err != nil {
			return 0, err
		}
	}
	return scheduling.ResolveDuration(opts.Duration, minutes, s.cfg.DefaultSlotDuration)
}

func (s *Service) location(opts Options) *time.Location {
	if opts.Location != nil {
		return opts.Location
	}
	return s.cfg.Location
}

func requireIDs(tenantID, professionalID uuid.UUID) error {
	if tenantID == uuid.Nil {
		return domain.NewValidationError(domain.KindInvalidArgument, "tenant_id is required")
	}
	if professionalID == uuid.Nil {
		return domain.NewValidationError(domain.KindInvalidArgument, "professional_id is required")
	}
	return nil
}

// localDate keeps the calendar date of t and places it at midnight in loc.
func localDate(t time.Time, loc *time.Location) time.Time {
	return domain.StartOfDay(t, loc)
}

func daysBetween(a, b time.Time) int {
	return int(domain.DateOf(b).Sub(domain.DateOf(a)).Hours() / 24)
}

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
