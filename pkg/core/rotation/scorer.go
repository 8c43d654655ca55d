package rotation

import (
	"math"
	"time"

	"github.com/jakechorley/mass-rota/pkg/core/model"
)

// NeverServed is the DaysSinceLastRole value of a member who has never held the role
const NeverServed = math.MaxInt32

// Rotation score terms. Lower scores are selected first.
const (
	ScoreNewMember     = -5000.0
	ScoreNeverDoneRole = -10000.0

	PenaltyWithinWeek    = 5000.0
	PenaltyWithinMonth   = 2000.0
	PenaltyWithinQuarter = 500.0

	WeightRoleCount        = 1000.0
	WeightTotalAssignments = 10.0
	WeightRoleBalance      = 50.0
)

// PriorityAfterDays marks a candidate as priority when their last turn in the
// role is older than this
const PriorityAfterDays = 30

// ScoreDetail is the fairness score of one member for one role on one date,
// together with the statistics it was derived from
type ScoreDetail struct {
	Score             float64
	RoleCount         int
	DaysSinceLastRole int
	TotalAssignments  int
	RoleBalance       float64
	NewMember         bool
}

// IsPriority returns true if the member has never done the role or has not
// done it for over a month
func (d ScoreDetail) IsPriority() bool {
	return d.RoleCount == 0 || d.DaysSinceLastRole > PriorityAfterDays
}

// Score computes the rotation score for a member and target role.
// history may contain rows for any member and role; only the member's rows are used.
//
// Score composition:
//   - no history at all: ScoreNewMember
//   - same role within 7/30/90 days: +5000/+2000/+500
//   - roleCount * 1000
//   - totalAssignments * 10
//   - roleBalance * -50 (mean absolute deviation of the member's per-role counts)
//   - roleCount == 0: -10000
func Score(memberID string, role model.RoleKey, history []model.HistoricalAssignment, targetDate time.Time) ScoreDetail {
	roleCounts := make(map[model.RoleKey]int)
	total := 0
	var lastRoleDate time.Time
	hasRoleDate := false

	for _, h := range history {
		if h.MemberID != memberID {
			continue
		}
		total++
		roleCounts[h.Role]++

		if h.Role != role {
			continue
		}
		date, err := model.ParseDate(h.Date)
		if err != nil {
			continue
		}
		if !hasRoleDate || date.After(lastRoleDate) {
			lastRoleDate = date
			hasRoleDate = true
		}
	}

	if total == 0 {
		return ScoreDetail{
			Score:             ScoreNewMember,
			DaysSinceLastRole: NeverServed,
			NewMember:         true,
		}
	}

	detail := ScoreDetail{
		RoleCount:         roleCounts[role],
		DaysSinceLastRole: NeverServed,
		TotalAssignments:  total,
		RoleBalance:       roleBalance(roleCounts),
	}
	if hasRoleDate {
		detail.DaysSinceLastRole = daysBetween(lastRoleDate, targetDate)
	}

	score := 0.0
	switch {
	case detail.DaysSinceLastRole < 7:
		score += PenaltyWithinWeek
	case detail.DaysSinceLastRole < 30:
		score += PenaltyWithinMonth
	case detail.DaysSinceLastRole < 90:
		score += PenaltyWithinQuarter
	}
	score += float64(detail.RoleCount) * WeightRoleCount
	score += float64(detail.TotalAssignments) * WeightTotalAssignments
	score -= detail.RoleBalance * WeightRoleBalance
	if detail.RoleCount == 0 {
		score += ScoreNeverDoneRole
	}
	detail.Score = score

	return detail
}

// roleBalance is the mean absolute deviation of the per-role counts from their
// mean, over the distinct roles the member has done
func roleBalance(roleCounts map[model.RoleKey]int) float64 {
	if len(roleCounts) == 0 {
		return 0
	}

	sum := 0
	for _, count := range roleCounts {
		sum += count
	}
	mean := float64(sum) / float64(len(roleCounts))

	deviation := 0.0
	for _, count := range roleCounts {
		deviation += math.Abs(float64(count) - mean)
	}
	return deviation / float64(len(roleCounts))
}

// daysBetween returns the whole number of days between two dates
func daysBetween(a, b time.Time) int {
	days := int(b.Sub(a).Hours() / 24)
	if days < 0 {
		return -days
	}
	return days
}
