package commands

import (
	"fmt"
	"strings"

	"github.com/jakechorley/mass-rota/pkg/core/model"
)

// formatCandidate renders one row of the candidate pool
func formatCandidate(rank int, c model.ScoredCandidate) string {
	last := "never"
	if c.RoleCount > 0 {
		last = fmt.Sprintf("%dd ago", c.DaysSinceLastRole)
	}

	marks := ""
	if c.IsAssigned {
		marks += " [assigned]"
	}
	if c.IsPriority {
		marks += " [priority]"
	}

	return fmt.Sprintf("%2d. %-28s %-4s score %.3f  served %d  last %s%s",
		rank, c.FullName, c.ID, c.RotationScore, c.RoleCount, last, marks)
}

// formatRoles joins role keys, or returns "-" for none
func formatRoles(roles []model.RoleKey) string {
	if len(roles) == 0 {
		return "-"
	}
	parts := make([]string, len(roles))
	for i, r := range roles {
		parts[i] = string(r)
	}
	return strings.Join(parts, ", ")
}

// formatProgress renders a one-line run progress summary
func formatProgress(p model.Progress) string {
	percent := 0
	if p.TotalMasses > 0 {
		percent = p.MassesProcessed * 100 / p.TotalMasses
	}
	return fmt.Sprintf("%3d%%  dates %d/%d  masses %d/%d  assigned %d  errors %d",
		percent,
		p.OccurrencesProcessed, p.TotalOccurrences,
		p.MassesProcessed, p.TotalMasses,
		p.AssignmentsMade, p.Errors)
}
