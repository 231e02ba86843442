package grpc

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"appointly/internal/domain"
	"appointly/internal/scheduling"
	"appointly/internal/service/availability"
	"appointly/internal/store"
)

var errUnreachable = errors.New("dial tcp 10.0.0.5:5432: connect: connection refused")

func intPtr(v int) *int { return &v }

type fakeAvailabilityService struct {
	getFn   func(ctx context.Context, tenantID, professionalID uuid.UUID, date time.Time, opts availability.Options) (domain.DayAvailability, error)
	rangeFn func(ctx context.Context, tenantID, professionalID uuid.UUID, startDate, endDate time.Time, opts availability.Options) ([]domain.DaySummary, error)
	nextFn  func(ctx context.Context, tenantID, professionalID uuid.UUID, opts availability.NextOptions) ([]domain.Slot, error)
	checkFn func(ctx context.Context, tenantID uuid.UUID, req scheduling.ConflictRequest, opts availability.Options) (domain.ConflictReport, error)
}

func (f *fakeAvailabilityService) GetAvailability(ctx context.Context, tenantID, professionalID uuid.UUID, date time.Time, opts availability.Options) (domain.DayAvailability, error) {
	if f.getFn == nil {
		panic("GetAvailability not configured")
	}
	return f.getFn(ctx, tenantID, professionalID, date, opts)
}

func (f *fakeAvailabilityService) GetAvailabilityRange(ctx context.Context, tenantID, professionalID uuid.UUID, startDate, endDate time.Time, opts availability.Options) ([]domain.DaySummary, error) {
	if f.rangeFn == nil {
		panic("GetAvailabilityRange not configured")
	}
	return f.rangeFn(ctx, tenantID, professionalID, startDate, endDate, opts)
}

func (f *fakeAvailabilityService) GetNextAvailableSlots(ctx context.Context, tenantID, professionalID uuid.UUID, opts availability.NextOptions) ([]domain.Slot, error) {
	if f.nextFn == nil {
		panic("GetNextAvailableSlots not configured")
	}
	return f.nextFn(ctx, tenantID, professionalID, opts)
}

func (f *fakeAvailabilityService) CheckConflicts(ctx context.Context, tenantID uuid.UUID, req scheduling.ConflictRequest, opts availability.Options) (domain.ConflictReport, error) {
	if f.checkFn == nil {
		panic("CheckConflicts not configured")
	}
	return f.checkFn(ctx, tenantID, req, opts)
}

func newAvailabilityServer(svc *fakeAvailabilityService) *AvailabilityServer {
	srv := NewAvailabilityServer(svc, slog.Default())
	srv.now = func() time.Time { return time.Date(2026, 1, 5, 8, 0, 0, 0, time.UTC) }
	return srv
}

func TestGetAvailability_ParsesQuery(t *testing.T) {
	var gotDate time.Time
	var gotOpts availability.Options
	booked := uuid.MustParse("00000000-0000-0000-0000-000000000030")
	srv := newAvailabilityServer(&fakeAvailabilityService{
		getFn: func(ctx context.Context, tenantID, professionalID uuid.UUID, date time.Time, opts availability.Options) (domain.DayAvailability, error) {
			gotDate, gotOpts = date, opts
			start := time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)
			return domain.DayAvailability{
				Date:         date,
				IsWorkingDay: true,
				WorkingHours: &domain.WorkingHours{Start: "09:00", End: "17:00"},
				Slots: []domain.Slot{{
					Start: start, End: start.Add(time.Hour), Time: "09:00",
					Reason: domain.SlotReasonBooked, AppointmentID: &booked,
				}},
			}, nil
		},
	})

	resp, err := srv.GetAvailability(context.Background(), &GetAvailabilityRequest{
		TenantID:        testTenant,
		ProfessionalID:  testProfessional,
		Date:            "2026-01-05",
		DurationMinutes: 60,
		TimeZone:        "Europe/Berlin",
	})
	if err != nil {
		t.Fatalf("GetAvailability error: %v", err)
	}
	if gotDate.Format(time.DateOnly) != "2026-01-05" {
		t.Fatalf("date = %v, want 2026-01-05", gotDate)
	}
	if gotOpts.Duration != time.Hour || gotOpts.Location == nil || gotOpts.Location.String() != "Europe/Berlin" {
		t.Fatalf("opts = %+v", gotOpts)
	}
	if len(resp.Slots) != 1 || resp.Slots[0].Reason != "BOOKED" || resp.Slots[0].AppointmentID != booked.String() {
		t.Fatalf("slots = %+v", resp.Slots)
	}
	if resp.Date != "2026-01-05" || resp.WorkingHours == nil {
		t.Fatalf("response = %+v", resp)
	}
}

func TestGetAvailability_RejectsBadInput(t *testing.T) {
	srv := newAvailabilityServer(&fakeAvailabilityService{})

	tests := []struct {
		name string
		req  *GetAvailabilityRequest
	}{
		{name: "nil", req: nil},
		{name: "bad tenant", req: &GetAvailabilityRequest{TenantID: "x", ProfessionalID: testProfessional, Date: "2026-01-05"}},
		{name: "bad date", req: &GetAvailabilityRequest{TenantID: testTenant, ProfessionalID: testProfessional, Date: "05/01/2026"}},
		{name: "bad zone", req: &GetAvailabilityRequest{TenantID: testTenant, ProfessionalID: testProfessional, Date: "2026-01-05", TimeZone: "Nowhere/City"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := srv.GetAvailability(context.Background(), tt.req)
			if status.Code(err) != codes.InvalidArgument {
				t.Fatalf("code = %s, want %s", status.Code(err), codes.InvalidArgument)
			}
		})
	}
}

func TestGetAvailabilityRange_MapsRangeError(t *testing.T) {
	srv := newAvailabilityServer(&fakeAvailabilityService{
		rangeFn: func(ctx context.Context, tenantID, professionalID uuid.UUID, startDate, endDate time.Time, opts availability.Options) ([]domain.DaySummary, error) {
			return nil, domain.NewValidationError(domain.KindInvalidRange, "start_date must not be after end_date")
		},
	})

	_, err := srv.GetAvailabilityRange(context.Background(), &GetAvailabilityRangeRequest{
		TenantID:       testTenant,
		ProfessionalID: testProfessional,
		StartDate:      "2026-02-01",
		EndDate:        "2026-01-01",
	})
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("code = %s, want %s", status.Code(err), codes.InvalidArgument)
	}
}

func TestGetNextAvailableSlots_DefaultLimit(t *testing.T) {
	var got availability.NextOptions
	srv := newAvailabilityServer(&fakeAvailabilityService{
		nextFn: func(ctx context.Context, tenantID, professionalID uuid.UUID, opts availability.NextOptions) ([]domain.Slot, error) {
			got = opts
			return []domain.Slot{}, nil
		},
	})

	resp, err := srv.GetNextAvailableSlots(context.Background(), &GetNextAvailableSlotsRequest{
		TenantID:       testTenant,
		ProfessionalID: testProfessional,
	})
	if err != nil {
		t.Fatalf("GetNextAvailableSlots error: %v", err)
	}
	if got.Limit != defaultNextSlotsLimit || !got.StartFrom.IsZero() {
		t.Fatalf("opts = %+v, want default limit and no start", got)
	}
	if resp.Slots == nil {
		t.Fatalf("slots = nil, want empty list")
	}
}

func TestCheckConflicts_ReportsInBody(t *testing.T) {
	blockID := uuid.MustParse("00000000-0000-0000-0000-000000000040")
	var got scheduling.ConflictRequest
	srv := newAvailabilityServer(&fakeAvailabilityService{
		checkFn: func(ctx context.Context, tenantID uuid.UUID, req scheduling.ConflictRequest, opts availability.Options) (domain.ConflictReport, error) {
			got = req
			return domain.NewConflictReport([]domain.ConflictEntry{{
				Type: domain.ConflictBlockedTime, Detail: "VACATION", BlockID: &blockID,
			}}), nil
		},
	})

	resp, err := srv.CheckConflicts(context.Background(), &CheckConflictsRequest{
		TenantID:             testTenant,
		ProfessionalID:       testProfessional,
		ClientID:             "00000000-0000-0000-0000-0000000000c1",
		StartTime:            time.Date(2026, 1, 6, 10, 0, 0, 0, time.UTC),
		DurationMinutes:      30,
		ExcludeAppointmentID: "00000000-0000-0000-0000-000000000020",
	})
	if err != nil {
		t.Fatalf("CheckConflicts error: %v", err)
	}
	if !resp.HasConflict || len(resp.Conflicts) != 1 || resp.Conflicts[0].BlockID != blockID.String() {
		t.Fatalf("response = %+v", resp)
	}
	if got.ClientID == nil || got.ExcludeAppointmentID == nil || got.Duration != 30*time.Minute {
		t.Fatalf("request = %+v", got)
	}
}

func TestCheckConflicts_StoreFailureIsUnavailable(t *testing.T) {
	srv := newAvailabilityServer(&fakeAvailabilityService{
		checkFn: func(ctx context.Context, tenantID uuid.UUID, req scheduling.ConflictRequest, opts availability.Options) (domain.ConflictReport, error) {
			return domain.ConflictReport{}, store.Unavailable("load_conflict_snapshot", errUnreachable)
		},
	})

	_, err := srv.CheckConflicts(context.Background(), &CheckConflictsRequest{
		TenantID:       testTenant,
		ProfessionalID: testProfessional,
		StartTime:      time.Date(2026, 1, 6, 10, 0, 0, 0, time.UTC),
	})
	if status.Code(err) != codes.Unavailable {
		t.Fatalf("code = %s, want %s", status.Code(err), codes.Unavailable)
	}
}

func TestGenerateOccurrences(t *testing.T) {
	srv := newAvailabilityServer(&fakeAvailabilityService{})

	resp, err := srv.GenerateOccurrences(context.Background(), &GenerateOccurrencesRequest{
		StartTime:  time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC),
		Recurrence: RecurrencePattern{Type: "DAILY", Interval: 1, Count: intPtr(3)},
	})
	if err != nil {
		t.Fatalf("GenerateOccurrences error: %v", err)
	}
	if len(resp.Occurrences) != 3 || !resp.Occurrences[2].IsLast {
		t.Fatalf("occurrences = %+v", resp.Occurrences)
	}
	if !resp.Occurrences[2].Date.Equal(time.Date(2024, 3, 17, 10, 0, 0, 0, time.UTC)) {
		t.Fatalf("last = %v, want 2024-03-17 10:00", resp.Occurrences[2].Date)
	}
	if resp.Description != "Daily" {
		t.Fatalf("description = %q, want Daily", resp.Description)
	}
}

func TestValidatePattern_ReportsInBody(t *testing.T) {
	srv := newAvailabilityServer(&fakeAvailabilityService{})

	resp, err := srv.ValidatePattern(context.Background(), &ValidatePatternRequest{
		Recurrence: RecurrencePattern{Type: "WEEKLY", Interval: 1, EndDate: "2025-12-31"},
	})
	if err != nil {
		t.Fatalf("ValidatePattern error: %v", err)
	}
	if resp.Valid || resp.Kind != string(domain.KindInvalidPattern) || resp.Error != "end date cannot be in the past" {
		t.Fatalf("response = %+v", resp)
	}

	resp, err = srv.ValidatePattern(context.Background(), &ValidatePatternRequest{
		Recurrence: RecurrencePattern{Type: "BIWEEKLY", Interval: 1, Count: intPtr(6)},
	})
	if err != nil {
		t.Fatalf("ValidatePattern error: %v", err)
	}
	if !resp.Valid || resp.Description != "Every 2 weeks" {
		t.Fatalf("response = %+v", resp)
	}
}

func TestDescribePattern(t *testing.T) {
	srv := newAvailabilityServer(&fakeAvailabilityService{})

	resp, err := srv.DescribePattern(context.Background(), &DescribePatternRequest{
		Recurrence: RecurrencePattern{Type: "MONTHLY", Interval: 3},
	})
	if err != nil {
		t.Fatalf("DescribePattern error: %v", err)
	}
	if resp.Description != "Every 3 months" {
		t.Fatalf("description = %q, want %q", resp.Description, "Every 3 months")
	}
}
