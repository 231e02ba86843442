package scheduling

import (
	"time"

	"appointly/internal/domain"
)

// ResolveDuration picks the booking length: an explicit duration wins, then the
// sum of the selected services, then fallback.
func ResolveDuration(explicit time.Duration, serviceMinutes []int, fallback time.Duration) (time.Duration, error) {
	if explicit < 0 {
		return 0, domain.NewValidationError(domain.KindInvalidDuration, "duration must be positive")
	}
	if explicit > 0 {
		return explicit, nil
	}
	total := 0
	for _, m := range serviceMinutes {
		if m <= 0 {
			return 0, domain.NewValidationError(domain.KindInvalidDuration, "service duration must be positive")
		}
		total += m
	}
	if total > 0 {
		return time.Duration(total) * time.Minute, nil
	}
	if fallback <= 0 {
		return 0, domain.NewValidationError(domain.KindInvalidDuration, "duration must be positive")
	}
	return fallback, nil
}

// RequireKnownServices fails when the store returned fewer durations than the
// service ids asked for, so an unknown id never falls back to the default length.
func RequireKnownServices(requested, found int) error {
	if found != requested {
		return domain.NewValidationError(domain.KindInvalidArgument, "unknown service_id")
	}
	return nil
}
