package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/jakechorley/mass-rota/pkg/core/model"
	"github.com/jakechorley/mass-rota/pkg/core/rotation"
)

// MemberSummary is a roster member with the roles they may serve in
type MemberSummary struct {
	model.Member
	Roles []model.RoleKey
}

// ListMembers returns the normalized active roster of a ministry with each
// member's eligible roles. A failed eligibility read lists members without roles.
func ListMembers(ctx context.Context, src Sources, schema rotation.RoleSchema, opts Options, logger *zap.Logger) ([]MemberSummary, error) {
	opCtx, cancel := withTimeout(ctx, opts)
	defer cancel()

	rows, err := src.Roster.ListMembers(opCtx, schema.Ministry)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}

	members := rotation.NormalizeMembers(rows)
	eligibility := loadEligibility(ctx, src, schema, opts, logger)

	summaries := make([]MemberSummary, 0, len(members))
	for _, m := range members {
		summaries = append(summaries, MemberSummary{
			Member: m,
			Roles:  eligibility.RolesOf(m.ID),
		})
	}

	logger.Debug("Listed members",
		zap.String("ministry", string(schema.Ministry)),
		zap.Int("rows", len(rows)),
		zap.Int("members", len(summaries)))

	return summaries, nil
}
