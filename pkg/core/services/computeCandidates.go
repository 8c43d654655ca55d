package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/jakechorley/mass-rota/pkg/core/model"
	"github.com/jakechorley/mass-rota/pkg/core/rotation"
)

// ComputeCandidates returns the members selectable for one role on one mass,
// fairest first. Members already holding the role are included with IsAssigned set.
//
// Roster, eligibility and history reads degrade to empty data when they fail.
// The same-day assignment read does not: without it double bookings cannot be excluded.
func ComputeCandidates(
	ctx context.Context,
	src Sources,
	schema rotation.RoleSchema,
	opts Options,
	logger *zap.Logger,
	date string,
	massLabel string,
	role model.RoleKey,
) ([]model.ScoredCandidate, error) {
	target, err := parseTarget(date, massLabel, role)
	if err != nil {
		return nil, err
	}
	date = model.FormatDate(target)

	logger.Debug("Computing candidates",
		zap.String("ministry", string(schema.Ministry)),
		zap.String("date", date),
		zap.String("mass", massLabel),
		zap.String("role", string(role)))

	members := loadRoster(ctx, src, schema, opts, logger)
	eligibility := loadEligibility(ctx, src, schema, opts, logger)

	since, before := historyWindow(target, opts.historyWindowDays())
	history := loadHistory(ctx, src, schema, opts, logger, since, before)

	dayAssignments, err := listDayAssignments(ctx, src, schema, opts, date)
	if err != nil {
		return nil, err
	}

	candidates := rotation.BuildCandidatePool(rotation.PoolInput{
		Role:           role,
		MassLabel:      massLabel,
		TargetDate:     target,
		Members:        members,
		Eligibility:    eligibility,
		History:        history,
		DayAssignments: dayAssignments,
	})

	logger.Debug("Candidates computed",
		zap.String("role", string(role)),
		zap.Int("members", len(members)),
		zap.Int("eligible", len(eligibility.EligibleFor(role))),
		zap.Int("candidates", len(candidates)))

	return candidates, nil
}

// listDayAssignments reads every assignment of the ministry on a date
func listDayAssignments(ctx context.Context, src Sources, schema rotation.RoleSchema, opts Options, date string) ([]model.Assignment, error) {
	opCtx, cancel := withTimeout(ctx, opts)
	defer cancel()

	assignments, err := src.Assignments.ListAssignments(opCtx, schema.Ministry, date, "")
	if err != nil {
		return nil, fmt.Errorf("failed to list assignments for %s: %w", date, err)
	}
	return assignments, nil
}
