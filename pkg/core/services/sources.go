package services

import (
	"context"

	"github.com/jakechorley/mass-rota/pkg/core/model"
)

// RosterProvider supplies the raw roster of a ministry
type RosterProvider interface {
	ListMembers(ctx context.Context, ministry model.Ministry) ([]model.MemberRow, error)
}

// EligibilityProvider supplies the capability matrix of a ministry
type EligibilityProvider interface {
	ListCapabilities(ctx context.Context, ministry model.Ministry) ([]model.CapabilityRow, error)
}

// RequirementProvider supplies ad-hoc masses and the role counts of their templates
type RequirementProvider interface {
	// ListSpecialMasses returns the special masses between from and to (inclusive)
	ListSpecialMasses(ctx context.Context, ministry model.Ministry, from, to string) ([]model.SpecialMass, error)
	GetTemplateRequirements(ctx context.Context, ministry model.Ministry, templateID string) (map[model.RoleKey]int, error)
}

// AssignmentStore reads and replaces persisted assignments
type AssignmentStore interface {
	// ListAssignments returns the assignments of one date; an empty massLabel returns every mass
	ListAssignments(ctx context.Context, ministry model.Ministry, date, massLabel string) ([]model.Assignment, error)

	// ListAssignmentsBetween returns the assignments between from and to (inclusive)
	ListAssignmentsBetween(ctx context.Context, ministry model.Ministry, from, to string) ([]model.Assignment, error)

	// ListHistoricalAssignments returns assignments dated in [since, before)
	ListHistoricalAssignments(ctx context.Context, ministry model.Ministry, since, before string) ([]model.HistoricalAssignment, error)

	// ReplaceRoleAssignments atomically replaces the members of one role on one
	// mass. memberIDs[i] is stored in slot i+1. It returns the number of rows written.
	ReplaceRoleAssignments(ctx context.Context, ministry model.Ministry, date, massLabel string, role model.RoleKey, memberIDs []string) (int, error)
}

// RosterWriter seeds a database-backed roster, capability matrix and special masses
type RosterWriter interface {
	UpsertMember(ctx context.Context, ministry model.Ministry, member model.MemberRow) error

	// SetCapabilities replaces the capability matrix row of a member
	SetCapabilities(ctx context.Context, ministry model.Ministry, row model.CapabilityRow) error

	AddSpecialMass(ctx context.Context, ministry model.Ministry, mass model.SpecialMass) error

	// SetTemplateRequirements replaces the role counts of a template
	SetTemplateRequirements(ctx context.Context, ministry model.Ministry, templateID string, counts map[model.RoleKey]int) error
}

// Sources bundles the collaborators every engine operation reads from
type Sources struct {
	Roster       RosterProvider
	Eligibility  EligibilityProvider
	Requirements RequirementProvider
	Assignments  AssignmentStore
}
