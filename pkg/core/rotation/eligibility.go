package rotation

import (
	"slices"
	"strings"

	"github.com/jakechorley/mass-rota/pkg/core/model"
)

// MemberSet is a set of member IDs
type MemberSet map[string]struct{}

// Has returns true if the member is in the set
func (s MemberSet) Has(memberID string) bool {
	_, ok := s[memberID]
	return ok
}

// Add inserts a member into the set
func (s MemberSet) Add(memberID string) {
	s[memberID] = struct{}{}
}

// Eligibility holds both directions of the capability matrix for one ministry
type Eligibility struct {
	RoleToMembers map[model.RoleKey]MemberSet
	MemberToRoles map[string]map[model.RoleKey]struct{}
}

// EmptyEligibility returns an eligibility with no members
func EmptyEligibility() Eligibility {
	return Eligibility{
		RoleToMembers: make(map[model.RoleKey]MemberSet),
		MemberToRoles: make(map[string]map[model.RoleKey]struct{}),
	}
}

// ResolveEligibility scans the capability rows once and indexes every role
// column holding exactly 1
func ResolveEligibility(rows []model.CapabilityRow) Eligibility {
	e := EmptyEligibility()

	for _, row := range rows {
		memberID := strings.TrimSpace(row.MemberID)
		if memberID == "" {
			continue
		}

		for role, value := range row.Roles {
			if value != 1 {
				continue
			}

			members, ok := e.RoleToMembers[role]
			if !ok {
				members = make(MemberSet)
				e.RoleToMembers[role] = members
			}
			members.Add(memberID)

			roles, ok := e.MemberToRoles[memberID]
			if !ok {
				roles = make(map[model.RoleKey]struct{})
				e.MemberToRoles[memberID] = roles
			}
			roles[role] = struct{}{}
		}
	}

	return e
}

// EligibleFor returns the members eligible for a role (never nil)
func (e Eligibility) EligibleFor(role model.RoleKey) MemberSet {
	if members, ok := e.RoleToMembers[role]; ok {
		return members
	}
	return MemberSet{}
}

// IsEligible returns true if the member may serve the role
func (e Eligibility) IsEligible(memberID string, role model.RoleKey) bool {
	return e.EligibleFor(role).Has(memberID)
}

// RolesOf returns the member's eligible roles, sorted by key
func (e Eligibility) RolesOf(memberID string) []model.RoleKey {
	roles := make([]model.RoleKey, 0, len(e.MemberToRoles[memberID]))
	for role := range e.MemberToRoles[memberID] {
		roles = append(roles, role)
	}
	slices.Sort(roles)
	return roles
}

// MemberCount returns the number of members eligible for at least one role
func (e Eligibility) MemberCount() int {
	return len(e.MemberToRoles)
}
