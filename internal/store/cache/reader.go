// Package cache fronts a store.ScheduleReader with Redis for the reads that
// change rarely: working hours and service durations. Blocks and bookings
// always go to the underlying store.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"appointly/internal/domain"
	"appointly/internal/store"
)

const defaultPrefix = "appointly"

type Reader struct {
	store.ScheduleReader

	rdb    redis.Cmdable
	ttl    time.Duration
	prefix string
	log    *slog.Logger
}

// NewReader wraps next. Redis errors are logged and treated as misses.
func NewReader(next store.ScheduleReader, rdb redis.Cmdable, ttl time.Duration, prefix string, log *slog.Logger) *Reader {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = defaultPrefix
	}
	if log == nil {
		log = slog.Default()
	}
	return &Reader{
		ScheduleReader: next,
		rdb:            rdb,
		ttl:            ttl,
		prefix:         prefix,
		log:            log.With("component", "schedule_cache"),
	}
}

func (r *Reader) WorkingHours(ctx context.Context, tenantID, professionalID uuid.UUID) ([]domain.DaySchedule, error) {
	key := r.workingHoursKey(tenantID, professionalID)
	var hours []domain.DaySchedule
	if r.get(ctx, key, &hours) {
		return hours, nil
	}
	hours, err := r.ScheduleReader.WorkingHours(ctx, tenantID, professionalID)
	if err != nil {
		return nil, err
	}
	r.set(ctx, key, hours)
	return hours, nil
}

func (r *Reader) ServiceDurations(ctx context.Context, tenantID uuid.UUID, serviceIDs []uuid.UUID) ([]int, error) {
	if len(serviceIDs) == 0 {
		return nil, nil
	}
	key := r.servicesKey(tenantID, serviceIDs)
	var durations []int
	if r.get(ctx, key, &durations) {
		return durations, nil
	}
	durations, err := r.ScheduleReader.ServiceDurations(ctx, tenantID, serviceIDs)
	if err != nil {
		return nil, err
	}
	r.set(ctx, key, durations)
	return durations, nil
}

func (r *Reader) workingHoursKey(tenantID, professionalID uuid.UUID) string {
	return r.prefix + ":wh:" + tenantID.String() + ":" + professionalID.String()
}

// servicesKey is independent of the order ids were passed in.
func (r *Reader) servicesKey(tenantID uuid.UUID, serviceIDs []uuid.UUID) string {
	ids := make([]string, 0, len(serviceIDs))
	for _, id := range serviceIDs {
		ids = append(ids, id.String())
	}
	slices.Sort(ids)
	return r.prefix + ":svc:" + tenantID.String() + ":" + strings.Join(ids, ",")
}

func (r *Reader) get(ctx context.Context, key string, dst any) bool {
	b, err := r.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.log.WarnContext(ctx, "cache get failed", "key", key, "err", err)
		}
		return false
	}
	if err := json.Unmarshal(b, dst); err != nil {
		r.log.WarnContext(ctx, "cache entry corrupt", "key", key, "err", err)
		return false
	}
	return true
}

func (r *Reader) set(ctx context.Context, key string, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		r.log.WarnContext(ctx, "cache encode failed", "key", key, "err", err)
		return
	}
	if err := r.rdb.Set(ctx, key, b, r.ttl).Err(); err != nil {
		r.log.WarnContext(ctx, "cache set failed", "key", key, "err", err)
	}
}
