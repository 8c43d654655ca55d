package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/jakechorley/mass-rota/pkg/core/model"
	"github.com/jakechorley/mass-rota/pkg/core/rotation"
)

// Rejection explains why a submitted member was not saved
type Rejection struct {
	MemberID string
	Reason   string
}

// CommitResult is the outcome of a manual save
type CommitResult struct {
	// Saved is the number of rows written; zero when nothing was written
	Saved int

	// Accepted are the members stored, in slot order
	Accepted []string

	Rejected []Rejection

	// Written is false when every submitted member was rejected
	Written bool

	// Warning wraps ErrInvalidSelection when any member was rejected
	Warning error
}

// CommitSlotAssignment saves a manual selection for one role on one mass,
// replacing whatever the role held before.
//
// Eligibility is re-resolved at save time. Ineligible members and members
// already serving another mass or role that day are rejected and reported in
// the result; the rest are saved in submission order. An empty selection
// clears the role. A selection whose members are all rejected writes nothing.
func CommitSlotAssignment(
	ctx context.Context,
	src Sources,
	schema rotation.RoleSchema,
	opts Options,
	logger *zap.Logger,
	date string,
	massLabel string,
	role model.RoleKey,
	memberIDs []string,
) (*CommitResult, error) {
	target, err := parseTarget(date, massLabel, role)
	if err != nil {
		return nil, err
	}
	date = model.FormatDate(target)

	submitted := dedupeMemberIDs(memberIDs)

	logger.Debug("Committing slot assignment",
		zap.String("ministry", string(schema.Ministry)),
		zap.String("date", date),
		zap.String("mass", massLabel),
		zap.String("role", string(role)),
		zap.Strings("members", submitted))

	eligibility, err := resolveEligibility(ctx, src, schema, opts, logger)
	if err != nil {
		return nil, fmt.Errorf("cannot verify eligibility: %w", err)
	}

	dayAssignments, err := listDayAssignments(ctx, src, schema, opts, date)
	if err != nil {
		return nil, err
	}

	busyElsewhere := make(map[string]model.Assignment)
	for _, a := range dayAssignments {
		if a.MassLabel == massLabel && a.Role == role {
			continue
		}
		if _, seen := busyElsewhere[a.MemberID]; !seen {
			busyElsewhere[a.MemberID] = a
		}
	}

	result := &CommitResult{Accepted: []string{}}
	for _, memberID := range submitted {
		if !eligibility.IsEligible(memberID, role) {
			result.Rejected = append(result.Rejected, Rejection{
				MemberID: memberID,
				Reason:   fmt.Sprintf("not eligible for %s", role),
			})
			continue
		}
		if other, busy := busyElsewhere[memberID]; busy {
			result.Rejected = append(result.Rejected, Rejection{
				MemberID: memberID,
				Reason:   fmt.Sprintf("already serving as %s at %s on %s", other.Role, other.MassLabel, date),
			})
			continue
		}
		result.Accepted = append(result.Accepted, memberID)
	}

	if len(result.Rejected) > 0 {
		result.Warning = rejectionWarning(result.Rejected)
		opts.metrics().SelectionRejected(schema.Ministry, role, len(result.Rejected))
		logger.Warn("Rejected members from selection",
			zap.String("date", date),
			zap.String("mass", massLabel),
			zap.String("role", string(role)),
			zap.Error(result.Warning))
	}

	if len(submitted) > 0 && len(result.Accepted) == 0 {
		logger.Info("Nothing to save, every submitted member was rejected",
			zap.String("role", string(role)))
		return result, nil
	}

	commitCtx, cancel := withTimeout(ctx, opts)
	defer cancel()

	saved, err := src.Assignments.ReplaceRoleAssignments(commitCtx, schema.Ministry, date, massLabel, role, result.Accepted)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s %s: %w", ErrPersistenceFailure, date, massLabel, role, err)
	}
	result.Saved = saved
	result.Written = true

	opts.metrics().AssignmentsMade(schema.Ministry, role, saved)
	logger.Info("Saved slot assignment",
		zap.String("date", date),
		zap.String("mass", massLabel),
		zap.String("role", string(role)),
		zap.Int("saved", saved),
		zap.Int("rejected", len(result.Rejected)))

	return result, nil
}

// Err returns the rejection warning, or nil if every member was accepted
func (r *CommitResult) Err() error {
	return r.Warning
}

func rejectionWarning(rejected []Rejection) error {
	parts := make([]string, len(rejected))
	for i, r := range rejected {
		parts[i] = fmt.Sprintf("%s (%s)", r.MemberID, r.Reason)
	}
	return fmt.Errorf("%w: %s", ErrInvalidSelection, strings.Join(parts, ", "))
}

// dedupeMemberIDs trims IDs and drops empties and repeats, keeping first occurrence order
func dedupeMemberIDs(memberIDs []string) []string {
	seen := make(map[string]bool, len(memberIDs))
	unique := make([]string, 0, len(memberIDs))
	for _, id := range memberIDs {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		unique = append(unique, id)
	}
	return unique
}

// IsInvalidSelection reports whether err carries rejected members
func IsInvalidSelection(err error) bool {
	return errors.Is(err, ErrInvalidSelection)
}
