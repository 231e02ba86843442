package grpc

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"appointly/internal/domain"
)

func parseID(field, value string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(value))
	if err != nil {
		return uuid.Nil, status.Errorf(codes.InvalidArgument, "%s must be a UUID", field)
	}
	return id, nil
}

// parseOptionalID returns nil for an empty value.
func parseOptionalID(field, value string) (*uuid.UUID, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}
	id, err := parseID(field, value)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func parseIDs(field string, values []string) ([]uuid.UUID, error) {
	if len(values) == 0 {
		return nil, nil
	}
	out := make([]uuid.UUID, 0, len(values))
	for _, v := range values {
		id, err := parseID(field, v)
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, nil
}

func parseDate(field, value string) (time.Time, error) {
	d, err := time.Parse(time.DateOnly, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, status.Errorf(codes.InvalidArgument, "%s must be a date (YYYY-MM-DD)", field)
	}
	return d, nil
}

// parseLocation returns nil for an empty zone so the service default applies.
func parseLocation(tz string) (*time.Location, error) {
	tz = strings.TrimSpace(tz)
	if tz == "" {
		return nil, nil
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, "time_zone is not a known IANA zone")
	}
	return loc, nil
}

func minutes(n int) time.Duration {
	return time.Duration(n) * time.Minute
}

func parsePattern(p RecurrencePattern) (domain.RecurrencePattern, error) {
	out := domain.RecurrencePattern{
		Type:     domain.RecurrenceType(strings.ToUpper(strings.TrimSpace(p.Type))),
		Interval: p.Interval,
		Count:    p.Count,
	}
	if p.EndDate != "" {
		d, err := parseDate("recurrence.end_date", p.EndDate)
		if err != nil {
			return domain.RecurrencePattern{}, err
		}
		out.EndDate = &d
	}
	return out, nil
}

func parseConflictTypes(values []string) []domain.ConflictType {
	if len(values) == 0 {
		return nil
	}
	out := make([]domain.ConflictType, 0, len(values))
	for _, v := range values {
		out = append(out, domain.ConflictType(strings.ToUpper(strings.TrimSpace(v))))
	}
	return out
}

func toSlots(in []domain.Slot) []Slot {
	out := make([]Slot, 0, len(in))
	for _, s := range in {
		msg := Slot{
			Time:      s.Time,
			Start:     s.Start,
			End:       s.End,
			Available: s.Available,
			Reason:    string(s.Reason),
		}
		if s.AppointmentID != nil {
			msg.AppointmentID = s.AppointmentID.String()
		}
		out = append(out, msg)
	}
	return out
}

func toConflicts(r domain.ConflictReport) []Conflict {
	out := make([]Conflict, 0, len(r.Conflicts))
	for _, c := range r.Conflicts {
		msg := Conflict{Type: string(c.Type), Detail: c.Detail}
		if c.AppointmentID != nil {
			msg.AppointmentID = c.AppointmentID.String()
		}
		if c.BlockID != nil {
			msg.BlockID = c.BlockID.String()
		}
		out = append(out, msg)
	}
	return out
}

func toAppointment(a domain.Appointment) Appointment {
	msg := Appointment{
		ID:             a.ID.String(),
		TenantID:       a.TenantID.String(),
		ProfessionalID: a.ProfessionalID.String(),
		StartTime:      a.StartTime.UTC(),
		EndTime:        a.EndTime.UTC(),
		Status:         string(a.Status),
		Notes:          a.Notes,
		CreatedAt:      a.CreatedAt.UTC(),
		UpdatedAt:      a.UpdatedAt.UTC(),
	}
	if a.ClientID != nil {
		msg.ClientID = a.ClientID.String()
	}
	if a.RecurrenceGroupID != nil {
		msg.RecurrenceGroupID = a.RecurrenceGroupID.String()
	}
	return msg
}

func toAppointments(in []domain.Appointment) []Appointment {
	out := make([]Appointment, 0, len(in))
	for _, a := range in {
		out = append(out, toAppointment(a))
	}
	return out
}
