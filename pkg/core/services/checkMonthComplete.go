package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/jakechorley/mass-rota/pkg/core/model"
	"github.com/jakechorley/mass-rota/pkg/core/rotation"
)

// CompletenessResult reports how many masses of a month are fully staffed
type CompletenessResult struct {
	IsComplete        bool
	TotalMassSlots    int
	CompleteMassSlots int

	// Incomplete lists the masses with at least one understaffed role
	Incomplete []MassInstance
}

// CheckMonthComplete reports whether every mass of a month has every required
// role fully staffed. A month without masses is never complete.
// The check reads the month's assignments once and writes nothing.
func CheckMonthComplete(
	ctx context.Context,
	src Sources,
	schema rotation.RoleSchema,
	opts Options,
	logger *zap.Logger,
	year int,
	month time.Month,
) (*CompletenessResult, error) {
	first, last, err := monthBounds(year, month)
	if err != nil {
		return nil, err
	}

	occurrences, err := OccurrencesInMonth(ctx, src, schema, opts, logger, year, month)
	if err != nil {
		return nil, err
	}

	opCtx, cancel := withTimeout(ctx, opts)
	defer cancel()

	assignments, err := src.Assignments.ListAssignmentsBetween(opCtx, schema.Ministry, model.FormatDate(first), model.FormatDate(last))
	if err != nil {
		return nil, fmt.Errorf("failed to list assignments for month: %w", err)
	}

	byDate := make(map[string][]model.Assignment)
	for _, a := range assignments {
		byDate[a.Date] = append(byDate[a.Date], a)
	}

	// Template lookups are shared between masses of the same template
	templates := make(map[string]model.Requirements)

	result := &CompletenessResult{}
	for _, occ := range occurrences {
		for _, mass := range occ.Masses {
			reqs, ok := templates[mass.TemplateID]
			if !ok {
				reqs, err = RequirementsFor(ctx, src, schema, opts, mass.TemplateID)
				if err != nil {
					return nil, err
				}
				templates[mass.TemplateID] = reqs
			}

			result.TotalMassSlots++
			if massStaffed(byDate[mass.Date], mass, reqs) {
				result.CompleteMassSlots++
			} else {
				result.Incomplete = append(result.Incomplete, mass)
			}
		}
	}

	result.IsComplete = result.TotalMassSlots > 0 && result.CompleteMassSlots == result.TotalMassSlots

	logger.Debug("Checked month completeness",
		zap.String("ministry", string(schema.Ministry)),
		zap.Int("year", year),
		zap.String("month", month.String()),
		zap.Int("masses", result.TotalMassSlots),
		zap.Int("complete", result.CompleteMassSlots))

	return result, nil
}

// massStaffed reports whether every required slot of every role is occupied.
// Members in slots beyond the required count do not cover a vacant lower slot.
func massStaffed(dayAssignments []model.Assignment, mass MassInstance, reqs model.Requirements) bool {
	for role, count := range reqs {
		if count <= 0 {
			continue
		}
		if len(model.SlotsFor(dayAssignments, mass.MassLabel, role).Vacant(count)) > 0 {
			return false
		}
	}
	return true
}
