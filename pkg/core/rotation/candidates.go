package rotation

import (
	"sort"
	"strings"
	"time"

	"github.com/jakechorley/mass-rota/pkg/core/model"
)

// PoolInput contains everything needed to build the candidate pool for one
// role on one mass
type PoolInput struct {
	Role       model.RoleKey
	MassLabel  string
	TargetDate time.Time

	// Members is the normalized active roster (see NormalizeMembers)
	Members []model.Member

	Eligibility Eligibility

	// History is the trailing scoring window for the ministry (all members, all roles)
	History []model.HistoricalAssignment

	// DayAssignments are all assignments of the ministry on the target date,
	// across every mass and role
	DayAssignments []model.Assignment
}

// BuildCandidatePool returns the members assignable to the role, sorted by
// rotation score (lowest first) and then by name.
//
// A member is kept if they already hold the role on this mass (so callers can
// toggle them off), or if they are eligible for the role and not assigned to
// anything else on the same date.
func BuildCandidatePool(in PoolInput) []model.ScoredCandidate {
	assignedAnywhereToday := make(MemberSet)
	assignedToCurrentRole := make(MemberSet)
	for _, a := range in.DayAssignments {
		assignedAnywhereToday.Add(a.MemberID)
		if a.MassLabel == in.MassLabel && a.Role == in.Role {
			assignedToCurrentRole.Add(a.MemberID)
		}
	}

	eligible := in.Eligibility.EligibleFor(in.Role)

	candidates := make([]model.ScoredCandidate, 0)
	for _, member := range in.Members {
		onRole := assignedToCurrentRole.Has(member.ID)
		if !onRole && (!eligible.Has(member.ID) || assignedAnywhereToday.Has(member.ID)) {
			continue
		}

		detail := Score(member.ID, in.Role, in.History, in.TargetDate)
		candidates = append(candidates, model.ScoredCandidate{
			Member:            member,
			RotationScore:     detail.Score,
			RoleCount:         detail.RoleCount,
			DaysSinceLastRole: detail.DaysSinceLastRole,
			IsPriority:        detail.IsPriority(),
			IsAssigned:        onRole,
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].RotationScore != candidates[j].RotationScore {
			return candidates[i].RotationScore < candidates[j].RotationScore
		}
		if candidates[i].FullName != candidates[j].FullName {
			return candidates[i].FullName < candidates[j].FullName
		}
		return candidates[i].ID < candidates[j].ID
	})

	return candidates
}

// NormalizeMembers turns raw roster rows into members.
// IDs are trimmed, the name is the full name or "first last", sex defaults to
// Unknown and flexibility to Non-Flexible. Rows without an ID or name, inactive
// rows and repeated IDs are dropped.
func NormalizeMembers(rows []model.MemberRow) []model.Member {
	members := make([]model.Member, 0, len(rows))
	seen := make(map[string]bool)

	for _, row := range rows {
		id := strings.TrimSpace(row.ID)
		name := displayName(row)
		if id == "" || name == "" {
			continue
		}
		if !isActive(row.Status) {
			continue
		}
		if seen[id] {
			continue
		}
		seen[id] = true

		members = append(members, model.Member{
			ID:          id,
			FullName:    name,
			Sex:         model.ParseSex(row.Sex),
			Flexibility: model.ParseFlexibility(row.Flexibility),
		})
	}

	return members
}

func displayName(row model.MemberRow) string {
	if name := strings.Join(strings.Fields(row.FullName), " "); name != "" {
		return name
	}
	return strings.Join(strings.Fields(row.FirstName+" "+row.LastName), " ")
}

// isActive treats an empty status as active
func isActive(status string) bool {
	status = strings.TrimSpace(status)
	return status == "" || strings.EqualFold(status, "Active")
}
