package rotation

import (
	"slices"
	"strings"
	"time"

	"github.com/jakechorley/mass-rota/pkg/core/model"
)

// RoleSpec describes one role of a ministry
type RoleSpec struct {
	Key model.RoleKey

	// DefaultCount is the number of slots required on a recurring mass
	DefaultCount int

	// PairBySex requires new members of the role to match the sex of the
	// member holding the lowest occupied slot
	PairBySex bool
}

// RoleSchema parameterizes the engine for one ministry
type RoleSchema struct {
	Ministry model.Ministry

	// Masses are the labels of the masses held on every recurring occurrence date
	Masses []string

	// Roles in the order they are filled by the auto-assign driver
	Roles []RoleSpec

	// Recurrence is an RRULE describing recurring occurrence dates (empty for none)
	Recurrence string

	// RecurrenceStart anchors Recurrence when the rule has no DTSTART of its own.
	// Zero uses a fixed Sunday epoch.
	RecurrenceStart time.Time
}

// Role looks up a role by key
func (s RoleSchema) Role(key model.RoleKey) (RoleSpec, bool) {
	for _, role := range s.Roles {
		if role.Key == key {
			return role, true
		}
	}
	return RoleSpec{}, false
}

// PairsBySex returns true if the role carries the same-sex pairing rule
func (s RoleSchema) PairsBySex(key model.RoleKey) bool {
	role, ok := s.Role(key)
	return ok && role.PairBySex
}

// DefaultRequirements returns the requirement table for a recurring mass
func (s RoleSchema) DefaultRequirements() model.Requirements {
	reqs := make(model.Requirements, len(s.Roles))
	for _, role := range s.Roles {
		reqs[role.Key] = role.DefaultCount
	}
	return reqs
}

// OrderedRoles returns the required roles of reqs, schema roles first in schema
// order, followed by any roles only known to the requirement table in key order
func (s RoleSchema) OrderedRoles(reqs model.Requirements) []model.RoleKey {
	var ordered []model.RoleKey
	seen := make(map[model.RoleKey]bool)
	for _, role := range s.Roles {
		seen[role.Key] = true
		if reqs.Visible(role.Key) {
			ordered = append(ordered, role.Key)
		}
	}

	var extra []model.RoleKey
	for key := range reqs {
		if !seen[key] && reqs.Visible(key) {
			extra = append(extra, key)
		}
	}
	slices.Sort(extra)

	return append(ordered, extra...)
}

// CanonicalCapabilities rewrites capability role columns to the schema's role
// keys, matching case-insensitively and ignoring surrounding whitespace.
// Columns matching no schema role are kept as-is and returned in key order.
func (s RoleSchema) CanonicalCapabilities(rows []model.CapabilityRow) ([]model.CapabilityRow, []model.RoleKey) {
	known := make(map[string]model.RoleKey, len(s.Roles))
	for _, role := range s.Roles {
		known[strings.ToLower(strings.TrimSpace(string(role.Key)))] = role.Key
	}

	unmatched := make(map[model.RoleKey]bool)
	canonical := make([]model.CapabilityRow, 0, len(rows))
	for _, row := range rows {
		roles := make(map[model.RoleKey]int, len(row.Roles))
		for column, value := range row.Roles {
			key, ok := known[strings.ToLower(strings.TrimSpace(string(column)))]
			if !ok {
				key = column
				unmatched[column] = true
			}
			// a 1 wins when two columns collapse onto one role
			if value == 1 || roles[key] != 1 {
				roles[key] = value
			}
		}
		canonical = append(canonical, model.CapabilityRow{MemberID: row.MemberID, Roles: roles})
	}

	columns := make([]model.RoleKey, 0, len(unmatched))
	for column := range unmatched {
		columns = append(columns, column)
	}
	slices.Sort(columns)

	return canonical, columns
}
