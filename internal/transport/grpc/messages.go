package grpc

import (
	"time"

	"appointly/internal/domain"
)

// Dates travel as "2006-01-02" strings, instants as RFC 3339 timestamps and ids
// as canonical UUID strings.

type RecurrencePattern struct {
	Type     string `json:"type"`
	Interval int    `json:"interval,omitempty"`
	Count    *int   `json:"count,omitempty"`
	EndDate  string `json:"end_date,omitempty"`
}

type Slot struct {
	Time          string    `json:"time"`
	Start         time.Time `json:"start"`
	End           time.Time `json:"end"`
	Available     bool      `json:"available"`
	Reason        string    `json:"reason,omitempty"`
	AppointmentID string    `json:"appointment_id,omitempty"`
}

type DaySummary struct {
	Date             string `json:"date"`
	Available        bool   `json:"available"`
	SlotCount        int    `json:"slot_count"`
	IsWorkingDay     bool   `json:"is_working_day"`
	HasBlockedPeriod bool   `json:"has_blocked_period"`
}

type Conflict struct {
	Type          string `json:"type"`
	Detail        string `json:"detail"`
	AppointmentID string `json:"appointment_id,omitempty"`
	BlockID       string `json:"block_id,omitempty"`
}

type Appointment struct {
	ID                string    `json:"id"`
	TenantID          string    `json:"tenant_id"`
	ProfessionalID    string    `json:"professional_id"`
	ClientID          string    `json:"client_id,omitempty"`
	StartTime         time.Time `json:"start_time"`
	EndTime           time.Time `json:"end_time"`
	Status            string    `json:"status"`
	RecurrenceGroupID string    `json:"recurrence_group_id,omitempty"`
	Notes             string    `json:"notes,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

type GetAvailabilityRequest struct {
	TenantID        string   `json:"tenant_id"`
	ProfessionalID  string   `json:"professional_id"`
	Date            string   `json:"date"`
	ServiceIDs      []string `json:"service_ids,omitempty"`
	DurationMinutes int      `json:"duration_minutes,omitempty"`
	TimeZone        string   `json:"time_zone,omitempty"`
}

type GetAvailabilityResponse struct {
	Date             string               `json:"date"`
	IsWorkingDay     bool                 `json:"is_working_day"`
	HasBlockedPeriod bool                 `json:"has_blocked_period"`
	WorkingHours     *domain.WorkingHours `json:"working_hours,omitempty"`
	Slots            []Slot               `json:"slots"`
}

type GetAvailabilityRangeRequest struct {
	TenantID        string   `json:"tenant_id"`
	ProfessionalID  string   `json:"professional_id"`
	StartDate       string   `json:"start_date"`
	EndDate         string   `json:"end_date"`
	ServiceIDs      []string `json:"service_ids,omitempty"`
	DurationMinutes int      `json:"duration_minutes,omitempty"`
	TimeZone        string   `json:"time_zone,omitempty"`
}

type GetAvailabilityRangeResponse struct {
	Days []DaySummary `json:"days"`
}

type GetNextAvailableSlotsRequest struct {
	TenantID        string     `json:"tenant_id"`
	ProfessionalID  string     `json:"professional_id"`
	Limit           int        `json:"limit,omitempty"`
	StartFrom       *time.Time `json:"start_from,omitempty"`
	ServiceIDs      []string   `json:"service_ids,omitempty"`
	DurationMinutes int        `json:"duration_minutes,omitempty"`
	TimeZone        string     `json:"time_zone,omitempty"`
}

type GetNextAvailableSlotsResponse struct {
	Slots []Slot `json:"slots"`
}

type CheckConflictsRequest struct {
	TenantID             string    `json:"tenant_id"`
	ProfessionalID       string    `json:"professional_id"`
	ClientID             string    `json:"client_id,omitempty"`
	StartTime            time.Time `json:"start_time"`
	DurationMinutes      int       `json:"duration_minutes,omitempty"`
	ServiceIDs           []string  `json:"service_ids,omitempty"`
	ExcludeAppointmentID string    `json:"exclude_appointment_id,omitempty"`
	TimeZone             string    `json:"time_zone,omitempty"`
}

type CheckConflictsResponse struct {
	HasConflict bool       `json:"has_conflict"`
	Conflicts   []Conflict `json:"conflicts"`
}

type GenerateOccurrencesRequest struct {
	StartTime  time.Time         `json:"start_time"`
	Recurrence RecurrencePattern `json:"recurrence"`
	TimeZone   string            `json:"time_zone,omitempty"`
}

type Occurrence struct {
	Date   time.Time `json:"date"`
	IsLast bool      `json:"is_last"`
}

type GenerateOccurrencesResponse struct {
	Occurrences []Occurrence `json:"occurrences"`
	Description string       `json:"description"`
}

type ValidatePatternRequest struct {
	Recurrence RecurrencePattern `json:"recurrence"`
}

type ValidatePatternResponse struct {
	Valid       bool   `json:"valid"`
	Error       string `json:"error,omitempty"`
	Kind        string `json:"kind,omitempty"`
	Description string `json:"description,omitempty"`
}

type DescribePatternRequest struct {
	Recurrence RecurrencePattern `json:"recurrence"`
}

type DescribePatternResponse struct {
	Description string `json:"description"`
}

type BookAppointmentRequest struct {
	TenantID        string             `json:"tenant_id"`
	ProfessionalID  string             `json:"professional_id"`
	ClientID        string             `json:"client_id,omitempty"`
	ServiceIDs      []string           `json:"service_ids,omitempty"`
	StartTime       time.Time          `json:"start_time"`
	DurationMinutes int                `json:"duration_minutes,omitempty"`
	Notes           string             `json:"notes,omitempty"`
	Recurrence      *RecurrencePattern `json:"recurrence,omitempty"`
	AllowOverrides  []string           `json:"allow_overrides,omitempty"`
}

type BookAppointmentResponse struct {
	Appointments      []Appointment `json:"appointments"`
	RecurrenceGroupID string        `json:"recurrence_group_id,omitempty"`
}

type RescheduleAppointmentRequest struct {
	TenantID        string    `json:"tenant_id"`
	AppointmentID   string    `json:"appointment_id"`
	StartTime       time.Time `json:"start_time"`
	DurationMinutes int       `json:"duration_minutes,omitempty"`
	AllowOverrides  []string  `json:"allow_overrides,omitempty"`
}

type RescheduleAppointmentResponse struct {
	Appointment Appointment `json:"appointment"`
}

type CancelAppointmentRequest struct {
	TenantID      string `json:"tenant_id"`
	AppointmentID string `json:"appointment_id"`
}

type CancelAppointmentResponse struct {
	Appointment Appointment `json:"appointment"`
}

type CancelSeriesRequest struct {
	TenantID          string `json:"tenant_id"`
	RecurrenceGroupID string `json:"recurrence_group_id"`
}

type CancelSeriesResponse struct {
	Cancelled int `json:"cancelled"`
}

type ListAppointmentsRequest struct {
	TenantID       string    `json:"tenant_id"`
	ProfessionalID string    `json:"professional_id"`
	WindowStart    time.Time `json:"window_start"`
	WindowEnd      time.Time `json:"window_end"`
}

type ListAppointmentsResponse struct {
	Appointments []Appointment `json:"appointments"`
}
