package postgres

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"appointly/internal/domain"
	"appointly/internal/store"
)

func TestPostgresIntegration_BookingReadsOverlapAndIdempotency(t *testing.T) {
	databaseURL := strings.TrimSpace(os.Getenv("APPOINTLY_TEST_DATABASE_URL"))
	if databaseURL == "" {
		t.Skip("APPOINTLY_TEST_DATABASE_URL not set")
	}

	db, err := Open(context.Background(), databaseURL, PoolConfig{MaxOpenConns: 1})
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	t.Cleanup(func() {
		_ = Close(db)
	})

	schema := "appointly_test_" + randomHex(t, 8)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_, _ = db.NewRaw("DROP SCHEMA IF EXISTS " + schema + " CASCADE").Exec(ctx)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	tenantID := uuid.MustParse("00000000-0000-0000-0000-00000000000e")
	professionalID := uuid.MustParse("00000000-0000-0000-0000-0000000000a1")
	clientID := uuid.MustParse("00000000-0000-0000-0000-0000000000c1")
	start := time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)

	err = db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewRaw("CREATE SCHEMA " + schema).Exec(ctx); err != nil {
			return err
		}
		if _, err := tx.NewRaw("SET LOCAL search_path TO " + schema).Exec(ctx); err != nil {
			return err
		}
		if err := applyMigrations(ctx, tx); err != nil {
			return err
		}

		c := bookingTx{scheduleReader: scheduleReader{db: tx}, tx: tx}

		breakStart, breakEnd := 12*60, 13*60
		hours := []domain.DaySchedule{
			{TenantID: tenantID, ProfessionalID: professionalID, DayOfWeek: 1, IsWorkingDay: true, StartMinute: 540, EndMinute: 1020, BreakStartMinute: &breakStart, BreakEndMinute: &breakEnd},
			{TenantID: tenantID, ProfessionalID: professionalID, DayOfWeek: 0},
		}
		if _, err := tx.NewInsert().Model(&hours).Exec(ctx); err != nil {
			return err
		}
		gotHours, err := c.WorkingHours(ctx, tenantID, professionalID)
		if err != nil {
			return err
		}
		if len(gotHours) != 2 || gotHours[1].BreakStartMinute == nil || *gotHours[1].BreakStartMinute != breakStart {
			return fmt.Errorf("working hours = %+v", gotHours)
		}

		blocks := []domain.ScheduleBlock{
			{TenantID: tenantID, ProfessionalID: professionalID, Type: domain.BlockTypeVacation, StartDate: start, EndDate: start.AddDate(0, 0, 2), IsAllDay: true, Status: domain.BlockStatusApproved},
			{TenantID: tenantID, ProfessionalID: professionalID, Type: domain.BlockTypePersonal, StartDate: start, EndDate: start, IsAllDay: true, Status: domain.BlockStatusPending},
		}
		if _, err := tx.NewInsert().Model(&blocks).Exec(ctx); err != nil {
			return err
		}
		gotBlocks, err := c.ApprovedBlocks(ctx, tenantID, professionalID, start.AddDate(0, 0, 2), start.AddDate(0, 0, 5))
		if err != nil {
			return err
		}
		if len(gotBlocks) != 1 || gotBlocks[0].Type != domain.BlockTypeVacation {
			return fmt.Errorf("approved blocks = %+v", gotBlocks)
		}

		svc := []domain.ServiceOffering{
			{TenantID: tenantID, Name: "cut", DurationMinutes: 30},
			{TenantID: tenantID, Name: "color", DurationMinutes: 45},
		}
		if _, err := tx.NewInsert().Model(&svc).Exec(ctx); err != nil {
			return err
		}
		durations, err := c.ServiceDurations(ctx, tenantID, []uuid.UUID{svc[0].ID, svc[1].ID, uuid.New()})
		if err != nil {
			return err
		}
		if sum(durations) != 75 {
			return fmt.Errorf("service durations = %v, want sum 75", durations)
		}

		a1, err := c.CreateAppointment(ctx, domain.Appointment{
			ID:             uuid.MustParse("00000000-0000-0000-0000-000000000901"),
			TenantID:       tenantID,
			ProfessionalID: professionalID,
			ClientID:       &clientID,
			StartTime:      start,
			EndTime:        end,
			Status:         domain.AppointmentStatusScheduled,
		})
		if err != nil {
			return err
		}

		booked, err := c.ProfessionalBookings(ctx, tenantID, professionalID, start.Add(-time.Minute), end.Add(time.Minute))
		if err != nil {
			return err
		}
		if len(booked) != 1 || booked[0].AppointmentID != a1.ID {
			return fmt.Errorf("professional bookings = %+v", booked)
		}
		clientBooked, err := c.ClientBookings(ctx, tenantID, clientID, end, end.Add(time.Hour))
		if err != nil {
			return err
		}
		if len(clientBooked) != 0 {
			return fmt.Errorf("touching window returned %d client bookings, want 0", len(clientBooked))
		}

		err = tx.RunInTx(ctx, nil, func(ctx context.Context, sp bun.Tx) error {
			_, err := bookingTx{scheduleReader: scheduleReader{db: sp}, tx: sp}.CreateAppointment(ctx, domain.Appointment{
				ID:             uuid.MustParse("00000000-0000-0000-0000-000000000902"),
				TenantID:       tenantID,
				ProfessionalID: professionalID,
				StartTime:      start.Add(30 * time.Minute),
				EndTime:        end.Add(30 * time.Minute),
				Status:         domain.AppointmentStatusScheduled,
			})
			return err
		})
		if !errors.Is(err, store.ErrConflict) {
			return fmt.Errorf("overlap err = %v, want %v", err, store.ErrConflict)
		}

		a2, err := c.CreateAppointment(ctx, domain.Appointment{
			TenantID:       tenantID,
			ProfessionalID: professionalID,
			StartTime:      end,
			EndTime:        end.Add(time.Hour),
			Status:         domain.AppointmentStatusScheduled,
		})
		if err != nil {
			return err
		}
		if a2.ID == uuid.Nil {
			return fmt.Errorf("expected non-nil id")
		}

		replayed, err := c.CreateAppointment(ctx, domain.Appointment{
			ID:             a1.ID,
			TenantID:       tenantID,
			ProfessionalID: professionalID,
			ClientID:       &clientID,
			StartTime:      start,
			EndTime:        end,
			Status:         domain.AppointmentStatusScheduled,
		})
		if err != nil {
			return err
		}
		if replayed.ID != a1.ID {
			return fmt.Errorf("replayed id = %s, want %s", replayed.ID, a1.ID)
		}

		_, err = c.CreateAppointment(ctx, domain.Appointment{
			ID:             a1.ID,
			TenantID:       tenantID,
			ProfessionalID: professionalID,
			StartTime:      start.Add(2 * time.Hour),
			EndTime:        end.Add(2 * time.Hour),
			Status:         domain.AppointmentStatusScheduled,
		})
		if !errors.Is(err, store.ErrIdempotencyConflict) {
			return fmt.Errorf("idempotency err = %v, want %v", err, store.ErrIdempotencyConflict)
		}

		locked, err := c.GetAppointmentForUpdate(ctx, tenantID, a1.ID)
		if err != nil {
			return err
		}
		locked.Status = domain.AppointmentStatusCancelled
		if _, err := c.UpdateAppointment(ctx, locked); err != nil {
			return err
		}
		booked, err = c.ProfessionalBookings(ctx, tenantID, professionalID, start, end)
		if err != nil {
			return err
		}
		if len(booked) != 0 {
			return fmt.Errorf("cancelled appointment still occupies: %+v", booked)
		}

		if _, err := c.GetAppointmentForUpdate(ctx, uuid.New(), a1.ID); !errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("cross-tenant get err = %v, want %v", err, store.ErrNotFound)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("tx error: %v", err)
	}
}

func sum(v []int) int {
	total := 0
	for _, n := range v {
		total += n
	}
	return total
}

func randomHex(t *testing.T, bytesLen int) string {
	t.Helper()
	b := make([]byte, bytesLen)
	if _, err := rand.Read(b); err != nil {
		t.Fatalf("rand.Read error: %v", err)
	}
	return hex.EncodeToString(b)
}

type rawExecutor interface {
	NewRaw(query string, args ...any) *bun.RawQuery
}

// applyMigrations runs the embedded up migrations statement by statement so
// they can share the caller's transaction and search_path.
func applyMigrations(ctx context.Context, exec rawExecutor) error {
	for _, stmt := range upStatements() {
		if normalized, ok := normalizeExtensionStatement(stmt); ok {
			stmt = normalized
		}
		if _, err := exec.NewRaw(stmt).Exec(ctx); err != nil {
			return err
		}
	}
	return nil
}

func upStatements() []string {
	names, err := fs.Glob(migrationsFS, migrationsDir+"/*.sql")
	if err != nil {
		panic(err)
	}
	sort.Strings(names)

	var out []string
	for _, name := range names {
		b, err := fs.ReadFile(migrationsFS, name)
		if err != nil {
			panic(err)
		}
		upSQL, err := extractGooseUp(string(b))
		if err != nil {
			panic(fmt.Errorf("%s: %w", name, err))
		}
		out = append(out, splitSQLStatements(upSQL)...)
	}
	return out
}

func extractGooseUp(sql string) (string, error) {
	upMarker := "-- +goose Up"
	downMarker := "-- +goose Down"

	upIdx := strings.Index(sql, upMarker)
	if upIdx < 0 {
		return "", fmt.Errorf("missing goose up marker")
	}
	afterUp := sql[upIdx+len(upMarker):]
	afterUp = strings.TrimLeft(afterUp, "\r\n")

	downIdx := strings.Index(afterUp, downMarker)
	if downIdx < 0 {
		return strings.TrimSpace(afterUp), nil
	}
	return strings.TrimSpace(afterUp[:downIdx]), nil
}

func normalizeExtensionStatement(stmt string) (string, bool) {
	s := strings.TrimSpace(stmt)
	upper := strings.ToUpper(s)
	if !strings.HasPrefix(upper, "CREATE EXTENSION") {
		return "", false
	}
	if !strings.Contains(upper, "BTREE_GIST") {
		return "", false
	}
	if strings.Contains(upper, " SCHEMA ") {
		return "", false
	}
	return s + " SCHEMA public", true
}

func splitSQLStatements(sql string) []string {
	parts := strings.Split(sql, ";")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		s := strings.TrimSpace(p)
		if s == "" {
			continue
		}
		out = append(out, s)
	}
	return out
}
