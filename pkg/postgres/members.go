package postgres

import (
	"context"
	"fmt"

	"github.com/jakechorley/mass-rota/pkg/core/model"
)

// ListMembers retrieves the raw roster rows of a ministry
func (d *DB) ListMembers(ctx context.Context, ministry model.Ministry) ([]model.MemberRow, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT id, full_name, first_name, last_name, sex, flexibility, status
		FROM member
		WHERE ministry = $1
		ORDER BY id
	`, string(ministry))
	if err != nil {
		return nil, fmt.Errorf("failed to query members: %w", err)
	}
	defer rows.Close()

	var members []model.MemberRow
	for rows.Next() {
		var m model.MemberRow
		if err := rows.Scan(&m.ID, &m.FullName, &m.FirstName, &m.LastName, &m.Sex, &m.Flexibility, &m.Status); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members = append(members, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating members: %w", err)
	}

	return members, nil
}

// UpsertMember inserts a roster row or updates the existing row with the same ID
func (d *DB) UpsertMember(ctx context.Context, ministry model.Ministry, member model.MemberRow) error {
	_, err := d.pool.Exec(ctx, `
		INSERT INTO member (ministry, id, full_name, first_name, last_name, sex, flexibility, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (ministry, id) DO UPDATE SET
			full_name = EXCLUDED.full_name,
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name,
			sex = EXCLUDED.sex,
			flexibility = EXCLUDED.flexibility,
			status = EXCLUDED.status
	`, string(ministry), member.ID, member.FullName, member.FirstName, member.LastName, member.Sex, member.Flexibility, member.Status)
	if err != nil {
		return fmt.Errorf("failed to upsert member %s: %w", member.ID, err)
	}
	return nil
}

// ListCapabilities retrieves the capability matrix of a ministry, one row per member
func (d *DB) ListCapabilities(ctx context.Context, ministry model.Ministry) ([]model.CapabilityRow, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT member_id, role, enabled
		FROM capability
		WHERE ministry = $1
		ORDER BY member_id, role
	`, string(ministry))
	if err != nil {
		return nil, fmt.Errorf("failed to query capabilities: %w", err)
	}
	defer rows.Close()

	var result []model.CapabilityRow
	index := make(map[string]int)
	for rows.Next() {
		var memberID, role string
		var enabled int16
		if err := rows.Scan(&memberID, &role, &enabled); err != nil {
			return nil, fmt.Errorf("failed to scan capability: %w", err)
		}

		i, ok := index[memberID]
		if !ok {
			i = len(result)
			index[memberID] = i
			result = append(result, model.CapabilityRow{MemberID: memberID, Roles: make(map[model.RoleKey]int)})
		}
		result[i].Roles[model.RoleKey(role)] = int(enabled)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating capabilities: %w", err)
	}

	return result, nil
}

// SetCapabilities replaces every capability of a member with row
func (d *DB) SetCapabilities(ctx context.Context, ministry model.Ministry, row model.CapabilityRow) error {
	tx, err := d.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		DELETE FROM capability WHERE ministry = $1 AND member_id = $2
	`, string(ministry), row.MemberID); err != nil {
		return fmt.Errorf("failed to clear capabilities of %s: %w", row.MemberID, err)
	}

	for role, enabled := range row.Roles {
		if _, err := tx.Exec(ctx, `
			INSERT INTO capability (ministry, member_id, role, enabled)
			VALUES ($1, $2, $3, $4)
		`, string(ministry), row.MemberID, string(role), enabled); err != nil {
			return fmt.Errorf("failed to insert capability %s of %s: %w", role, row.MemberID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
