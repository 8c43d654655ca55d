package model

import (
	"sort"
	"strings"
	"time"
)

// DateLayout is the ISO date format used for every date key in the system
const DateLayout = "2006-01-02"

// Ministry identifies a volunteer department (e.g. "altar-server", "choir")
type Ministry string

// RoleKey identifies a service function within a ministry (e.g. "thurifer")
type RoleKey string

type Sex string

const (
	SexMale    Sex = "M"
	SexFemale  Sex = "F"
	SexUnknown Sex = "Unknown"
)

// ParseSex normalizes free-text sex values from roster rows
func ParseSex(raw string) Sex {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "m", "male":
		return SexMale
	case "f", "female":
		return SexFemale
	default:
		return SexUnknown
	}
}

// Known returns true if the sex is one of the known values
func (s Sex) Known() bool {
	return s == SexMale || s == SexFemale
}

// Flexibility is the scheduling class of a member
type Flexibility string

const (
	Flexible    Flexibility = "Flexible"
	NonFlexible Flexibility = "Non-Flexible"
)

// ParseFlexibility normalizes roster flexibility values, defaulting to NonFlexible
func ParseFlexibility(raw string) Flexibility {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "flexible":
		return Flexible
	default:
		return NonFlexible
	}
}

// MemberRow is a raw roster row as delivered by a roster provider.
// Fields are untrimmed and may be partially empty.
type MemberRow struct {
	ID          string
	FullName    string
	FirstName   string
	LastName    string
	Sex         string
	Flexibility string
	Status      string
}

// Member is a normalized roster entry
type Member struct {
	ID          string
	FullName    string
	Sex         Sex
	Flexibility Flexibility
}

// CapabilityRow is one row of the capability matrix: role key -> 0/1
type CapabilityRow struct {
	MemberID string
	Roles    map[RoleKey]int
}

// Assignment is a persisted role assignment for one slot of one mass
type Assignment struct {
	ID        string
	Ministry  Ministry
	Date      string
	MassLabel string
	Role      RoleKey
	Slot      int
	MemberID  string
}

// HistoricalAssignment is the read-only projection of an Assignment used for scoring
type HistoricalAssignment struct {
	MemberID string
	Role     RoleKey
	Date     string
}

// ToHistorical projects assignments onto their scoring view
func ToHistorical(assignments []Assignment) []HistoricalAssignment {
	history := make([]HistoricalAssignment, 0, len(assignments))
	for _, a := range assignments {
		history = append(history, HistoricalAssignment{
			MemberID: a.MemberID,
			Role:     a.Role,
			Date:     a.Date,
		})
	}
	return history
}

// SpecialMass is an ad-hoc mass whose role counts come from a template
type SpecialMass struct {
	Date       string
	MassLabel  string
	TemplateID string
}

// Requirements maps role keys to the number of slots required for one mass
type Requirements map[RoleKey]int

// Count returns the required slot count for a role (0 when absent)
func (r Requirements) Count(role RoleKey) int {
	return r[role]
}

// Visible returns true if the role is required (count > 0) for the mass
func (r Requirements) Visible(role RoleKey) bool {
	return r[role] > 0
}

// RoleSlots is a sparse slot -> member ID view of one role on one mass.
// A slot <= required that is absent is vacant; a slot > required is not required.
type RoleSlots map[int]string

// Vacant returns the vacant slot numbers up to required, in order
func (rs RoleSlots) Vacant(required int) []int {
	var vacant []int
	for slot := 1; slot <= required; slot++ {
		if _, ok := rs[slot]; !ok {
			vacant = append(vacant, slot)
		}
	}
	return vacant
}

// Ordered returns the member IDs in ascending slot order
func (rs RoleSlots) Ordered() []string {
	slots := make([]int, 0, len(rs))
	for slot := range rs {
		slots = append(slots, slot)
	}
	sort.Ints(slots)

	ids := make([]string, 0, len(slots))
	for _, slot := range slots {
		ids = append(ids, rs[slot])
	}
	return ids
}

// SlotsFor builds the sparse slot view for one role of one mass
func SlotsFor(assignments []Assignment, massLabel string, role RoleKey) RoleSlots {
	slots := make(RoleSlots)
	for _, a := range assignments {
		if a.MassLabel == massLabel && a.Role == role {
			slots[a.Slot] = a.MemberID
		}
	}
	return slots
}

// ScoredCandidate is a member eligible for a role, annotated with rotation data
type ScoredCandidate struct {
	Member
	RotationScore     float64
	RoleCount         int
	DaysSinceLastRole int
	IsPriority        bool
	// IsAssigned is set when the member already holds the role on this mass
	IsAssigned bool
}

// Progress is the running state of a monthly auto-assign run
type Progress struct {
	OccurrencesProcessed int
	TotalOccurrences     int
	MassesProcessed      int
	TotalMasses          int
	AssignmentsMade      int
	Errors               int
}

// ParseDate parses an ISO date key in UTC
func ParseDate(date string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, strings.TrimSpace(date), time.UTC)
}

// FormatDate formats a time as an ISO date key
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}
