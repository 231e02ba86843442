package domain

import (
	"time"

	"github.com/google/uuid"
)

type SlotReason string

const (
	SlotReasonBooked       SlotReason = "BOOKED"
	SlotReasonBlocked      SlotReason = "BLOCKED"
	SlotReasonBreak        SlotReason = "BREAK"
	SlotReasonOutsideHours SlotReason = "OUTSIDE_HOURS"
)

type Slot struct {
	Start         time.Time
	End           time.Time
	Time          string
	Available     bool
	Reason        SlotReason
	AppointmentID *uuid.UUID
}

type DayAvailability struct {
	Date             time.Time
	Slots            []Slot
	IsWorkingDay     bool
	HasBlockedPeriod bool
	WorkingHours     *WorkingHours
}

func (d DayAvailability) AvailableSlots() []Slot {
	out := make([]Slot, 0, len(d.Slots))
	for _, s := range d.Slots {
		if s.Available {
			out = append(out, s)
		}
	}
	return out
}

func (d DayAvailability) Summary() DaySummary {
	n := len(d.AvailableSlots())
	return DaySummary{
		Date:             d.Date,
		Available:        n > 0,
		SlotCount:        n,
		IsWorkingDay:     d.IsWorkingDay,
		HasBlockedPeriod: d.HasBlockedPeriod,
	}
}

type DaySummary struct {
	Date             time.Time
	Available        bool
	SlotCount        int
	IsWorkingDay     bool
	HasBlockedPeriod bool
}

type ConflictType string

const (
	ConflictProfessionalBusy    ConflictType = "PROFESSIONAL_BUSY"
	ConflictClientBusy          ConflictType = "CLIENT_BUSY"
	ConflictBlockedTime         ConflictType = "BLOCKED_TIME"
	ConflictOutsideWorkingHours ConflictType = "OUTSIDE_WORKING_HOURS"
)

func (t ConflictType) Valid() bool {
	switch t {
	case ConflictProfessionalBusy, ConflictClientBusy, ConflictBlockedTime, ConflictOutsideWorkingHours:
		return true
	}
	return false
}

type ConflictEntry struct {
	Type          ConflictType
	Detail        string
	AppointmentID *uuid.UUID
	BlockID       *uuid.UUID
}

// ConflictReport lists every reason a candidate booking cannot be accepted.
// HasConflict is true exactly when Conflicts is non-empty.
type ConflictReport struct {
	HasConflict bool
	Conflicts   []ConflictEntry
}

func NewConflictReport(entries []ConflictEntry) ConflictReport {
	if entries == nil {
		entries = []ConflictEntry{}
	}
	return ConflictReport{HasConflict: len(entries) > 0, Conflicts: entries}
}

func (r ConflictReport) Has(t ConflictType) bool {
	for _, c := range r.Conflicts {
		if c.Type == t {
			return true
		}
	}
	return false
}

// Without drops entries of the given types, for callers allowed to override them.
func (r ConflictReport) Without(types ...ConflictType) ConflictReport {
	if len(types) == 0 {
		return r
	}
	skip := make(map[ConflictType]struct{}, len(types))
	for _, t := range types {
		skip[t] = struct{}{}
	}
	kept := make([]ConflictEntry, 0, len(r.Conflicts))
	for _, c := range r.Conflicts {
		if _, ok := skip[c.Type]; !ok {
			kept = append(kept, c)
		}
	}
	return NewConflictReport(kept)
}

func (r ConflictReport) Types() []ConflictType {
	seen := make(map[ConflictType]struct{}, len(r.Conflicts))
	out := make([]ConflictType, 0, len(r.Conflicts))
	for _, c := range r.Conflicts {
		if _, ok := seen[c.Type]; ok {
			continue
		}
		seen[c.Type] = struct{}{}
		out = append(out, c.Type)
	}
	return out
}
