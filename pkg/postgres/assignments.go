package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jakechorley/mass-rota/pkg/core/model"
	"github.com/jakechorley/mass-rota/pkg/db"
)

func scanAssignments(rows pgx.Rows) ([]model.Assignment, error) {
	defer rows.Close()

	var assignments []model.Assignment
	for rows.Next() {
		var a model.Assignment
		var ministry string
		var role string
		var date time.Time
		if err := rows.Scan(&a.ID, &ministry, &date, &a.MassLabel, &role, &a.Slot, &a.MemberID); err != nil {
			return nil, fmt.Errorf("failed to scan assignment: %w", err)
		}
		a.Ministry = model.Ministry(ministry)
		a.Role = model.RoleKey(role)
		a.Date = model.FormatDate(date)
		assignments = append(assignments, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating assignments: %w", err)
	}

	return assignments, nil
}

// ListAssignments retrieves the assignments of one date. An empty massLabel
// returns the assignments of every mass on that date.
func (d *DB) ListAssignments(ctx context.Context, ministry model.Ministry, date, massLabel string) ([]model.Assignment, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT id::text, ministry, date, mass_label, role, slot, member_id
		FROM assignment
		WHERE ministry = $1 AND date = $2 AND ($3 = '' OR mass_label = $3)
		ORDER BY mass_label, role, slot
	`, string(ministry), date, massLabel)
	if err != nil {
		return nil, fmt.Errorf("failed to query assignments: %w", err)
	}
	return scanAssignments(rows)
}

// ListAssignmentsBetween retrieves the assignments dated between from and to (inclusive)
func (d *DB) ListAssignmentsBetween(ctx context.Context, ministry model.Ministry, from, to string) ([]model.Assignment, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT id::text, ministry, date, mass_label, role, slot, member_id
		FROM assignment
		WHERE ministry = $1 AND date BETWEEN $2 AND $3
		ORDER BY date, mass_label, role, slot
	`, string(ministry), from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query assignments: %w", err)
	}
	return scanAssignments(rows)
}

// ListHistoricalAssignments retrieves the scoring view of assignments dated in [since, before)
func (d *DB) ListHistoricalAssignments(ctx context.Context, ministry model.Ministry, since, before string) ([]model.HistoricalAssignment, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT member_id, role, date
		FROM assignment
		WHERE ministry = $1 AND date >= $2 AND date < $3
		ORDER BY date
	`, string(ministry), since, before)
	if err != nil {
		return nil, fmt.Errorf("failed to query assignment history: %w", err)
	}
	defer rows.Close()

	var history []model.HistoricalAssignment
	for rows.Next() {
		var h model.HistoricalAssignment
		var role string
		var date time.Time
		if err := rows.Scan(&h.MemberID, &role, &date); err != nil {
			return nil, fmt.Errorf("failed to scan assignment history: %w", err)
		}
		h.Role = model.RoleKey(role)
		h.Date = model.FormatDate(date)
		history = append(history, h)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating assignment history: %w", err)
	}

	return history, nil
}

// ReplaceRoleAssignments deletes the members of one role on one mass and inserts
// memberIDs into slots 1..n in one transaction. Concurrent writers of the same
// role are serialized by a transaction-scoped advisory lock.
func (d *DB) ReplaceRoleAssignments(ctx context.Context, ministry model.Ministry, date, massLabel string, role model.RoleKey, memberIDs []string) (int, error) {
	tx, err := d.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	key := db.RoleLockKey(ministry, date, massLabel, role)
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, key); err != nil {
		return 0, fmt.Errorf("failed to lock %s: %w", key, err)
	}

	if _, err := tx.Exec(ctx, `
		DELETE FROM assignment
		WHERE ministry = $1 AND date = $2 AND mass_label = $3 AND role = $4
	`, string(ministry), date, massLabel, string(role)); err != nil {
		return 0, fmt.Errorf("failed to clear assignments: %w", err)
	}

	for i, memberID := range memberIDs {
		if _, err := tx.Exec(ctx, `
			INSERT INTO assignment (id, ministry, date, mass_label, role, slot, member_id)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, uuid.New().String(), string(ministry), date, massLabel, string(role), i+1, memberID); err != nil {
			return 0, fmt.Errorf("failed to insert assignment of %s: %w", memberID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return len(memberIDs), nil
}
