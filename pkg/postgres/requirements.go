package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jakechorley/mass-rota/pkg/core/model"
)

// ListSpecialMasses retrieves the special masses dated between from and to (inclusive)
func (d *DB) ListSpecialMasses(ctx context.Context, ministry model.Ministry, from, to string) ([]model.SpecialMass, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT date, mass_label, template_id
		FROM special_mass
		WHERE ministry = $1 AND date BETWEEN $2 AND $3
		ORDER BY date, mass_label
	`, string(ministry), from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query special masses: %w", err)
	}
	defer rows.Close()

	var masses []model.SpecialMass
	for rows.Next() {
		var m model.SpecialMass
		var date time.Time
		if err := rows.Scan(&date, &m.MassLabel, &m.TemplateID); err != nil {
			return nil, fmt.Errorf("failed to scan special mass: %w", err)
		}
		m.Date = model.FormatDate(date)
		masses = append(masses, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating special masses: %w", err)
	}

	return masses, nil
}

// AddSpecialMass inserts a special mass, replacing the template of an existing one
func (d *DB) AddSpecialMass(ctx context.Context, ministry model.Ministry, mass model.SpecialMass) error {
	_, err := d.pool.Exec(ctx, `
		INSERT INTO special_mass (ministry, date, mass_label, template_id)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (ministry, date, mass_label) DO UPDATE SET template_id = EXCLUDED.template_id
	`, string(ministry), mass.Date, mass.MassLabel, mass.TemplateID)
	if err != nil {
		return fmt.Errorf("failed to insert special mass: %w", err)
	}
	return nil
}

// GetTemplateRequirements retrieves the role counts of a template.
// An unknown template is an error.
func (d *DB) GetTemplateRequirements(ctx context.Context, ministry model.Ministry, templateID string) (map[model.RoleKey]int, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT role, count
		FROM mass_template_role
		WHERE ministry = $1 AND template_id = $2
	`, string(ministry), templateID)
	if err != nil {
		return nil, fmt.Errorf("failed to query template requirements: %w", err)
	}
	defer rows.Close()

	counts := make(map[model.RoleKey]int)
	for rows.Next() {
		var role string
		var count int
		if err := rows.Scan(&role, &count); err != nil {
			return nil, fmt.Errorf("failed to scan template requirement: %w", err)
		}
		counts[model.RoleKey(role)] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating template requirements: %w", err)
	}

	if len(counts) == 0 {
		return nil, fmt.Errorf("template %s not found", templateID)
	}

	return counts, nil
}

// SetTemplateRequirements replaces the role counts of a template
func (d *DB) SetTemplateRequirements(ctx context.Context, ministry model.Ministry, templateID string, counts map[model.RoleKey]int) error {
	tx, err := d.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		DELETE FROM mass_template_role WHERE ministry = $1 AND template_id = $2
	`, string(ministry), templateID); err != nil {
		return fmt.Errorf("failed to clear template %s: %w", templateID, err)
	}

	for role, count := range counts {
		if _, err := tx.Exec(ctx, `
			INSERT INTO mass_template_role (ministry, template_id, role, count)
			VALUES ($1, $2, $3, $4)
		`, string(ministry), templateID, string(role), count); err != nil {
			return fmt.Errorf("failed to insert requirement %s of template %s: %w", role, templateID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
