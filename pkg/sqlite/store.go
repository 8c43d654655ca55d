package sqlite

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/jakechorley/mass-rota/pkg/core/model"
	"github.com/jakechorley/mass-rota/pkg/db"
)

// ListMembers retrieves the raw roster rows of a ministry
func (d *DB) ListMembers(ctx context.Context, ministry model.Ministry) ([]model.MemberRow, error) {
	var rows []Member
	if result := d.db.WithContext(ctx).Where("ministry = ?", string(ministry)).Order("id").Find(&rows); result.Error != nil {
		return nil, fmt.Errorf("failed to query members: %w", result.Error)
	}

	members := make([]model.MemberRow, 0, len(rows))
	for _, r := range rows {
		members = append(members, model.MemberRow{
			ID:          r.ID,
			FullName:    r.FullName,
			FirstName:   r.FirstName,
			LastName:    r.LastName,
			Sex:         r.Sex,
			Flexibility: r.Flexibility,
			Status:      r.Status,
		})
	}
	return members, nil
}

// UpsertMember inserts a roster row or updates the existing row with the same ID
func (d *DB) UpsertMember(ctx context.Context, ministry model.Ministry, member model.MemberRow) error {
	row := Member{
		Ministry:    string(ministry),
		ID:          member.ID,
		FullName:    member.FullName,
		FirstName:   member.FirstName,
		LastName:    member.LastName,
		Sex:         member.Sex,
		Flexibility: member.Flexibility,
		Status:      member.Status,
	}
	if result := d.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&row); result.Error != nil {
		return fmt.Errorf("failed to upsert member %s: %w", member.ID, result.Error)
	}
	return nil
}

// ListCapabilities retrieves the capability matrix of a ministry, one row per member
func (d *DB) ListCapabilities(ctx context.Context, ministry model.Ministry) ([]model.CapabilityRow, error) {
	var rows []Capability
	if result := d.db.WithContext(ctx).Where("ministry = ?", string(ministry)).Order("member_id, role").Find(&rows); result.Error != nil {
		return nil, fmt.Errorf("failed to query capabilities: %w", result.Error)
	}

	var capabilities []model.CapabilityRow
	index := make(map[string]int)
	for _, r := range rows {
		i, ok := index[r.MemberID]
		if !ok {
			i = len(capabilities)
			index[r.MemberID] = i
			capabilities = append(capabilities, model.CapabilityRow{MemberID: r.MemberID, Roles: make(map[model.RoleKey]int)})
		}
		capabilities[i].Roles[model.RoleKey(r.Role)] = r.Enabled
	}
	return capabilities, nil
}

// SetCapabilities replaces every capability of a member with row
func (d *DB) SetCapabilities(ctx context.Context, ministry model.Ministry, row model.CapabilityRow) error {
	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if result := tx.Where("ministry = ? AND member_id = ?", string(ministry), row.MemberID).Delete(&Capability{}); result.Error != nil {
			return fmt.Errorf("failed to clear capabilities of %s: %w", row.MemberID, result.Error)
		}
		for role, enabled := range row.Roles {
			c := Capability{Ministry: string(ministry), MemberID: row.MemberID, Role: string(role), Enabled: enabled}
			if result := tx.Create(&c); result.Error != nil {
				return fmt.Errorf("failed to insert capability %s of %s: %w", role, row.MemberID, result.Error)
			}
		}
		return nil
	})
}

// ListSpecialMasses retrieves the special masses dated between from and to (inclusive)
func (d *DB) ListSpecialMasses(ctx context.Context, ministry model.Ministry, from, to string) ([]model.SpecialMass, error) {
	var rows []SpecialMass
	result := d.db.WithContext(ctx).
		Where("ministry = ? AND date >= ? AND date <= ?", string(ministry), from, to).
		Order("date, mass_label").
		Find(&rows)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to query special masses: %w", result.Error)
	}

	masses := make([]model.SpecialMass, 0, len(rows))
	for _, r := range rows {
		masses = append(masses, model.SpecialMass{Date: r.Date, MassLabel: r.MassLabel, TemplateID: r.TemplateID})
	}
	return masses, nil
}

// AddSpecialMass inserts a special mass, replacing the template of an existing one
func (d *DB) AddSpecialMass(ctx context.Context, ministry model.Ministry, mass model.SpecialMass) error {
	if _, err := model.ParseDate(mass.Date); err != nil {
		return fmt.Errorf("invalid special mass date %q: %w", mass.Date, err)
	}
	row := SpecialMass{
		Ministry:   string(ministry),
		Date:       mass.Date,
		MassLabel:  mass.MassLabel,
		TemplateID: mass.TemplateID,
	}
	onConflict := clause.OnConflict{
		Columns:   []clause.Column{{Name: "ministry"}, {Name: "date"}, {Name: "mass_label"}},
		DoUpdates: clause.AssignmentColumns([]string{"template_id"}),
	}
	if result := d.db.WithContext(ctx).Clauses(onConflict).Create(&row); result.Error != nil {
		return fmt.Errorf("failed to insert special mass: %w", result.Error)
	}
	return nil
}

// GetTemplateRequirements retrieves the role counts of a template.
// An unknown template is an error.
func (d *DB) GetTemplateRequirements(ctx context.Context, ministry model.Ministry, templateID string) (map[model.RoleKey]int, error) {
	var rows []TemplateRole
	if result := d.db.WithContext(ctx).Where("ministry = ? AND template_id = ?", string(ministry), templateID).Find(&rows); result.Error != nil {
		return nil, fmt.Errorf("failed to query template requirements: %w", result.Error)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("template %s not found", templateID)
	}

	counts := make(map[model.RoleKey]int, len(rows))
	for _, r := range rows {
		counts[model.RoleKey(r.Role)] = r.Count
	}
	return counts, nil
}

// SetTemplateRequirements replaces the role counts of a template
func (d *DB) SetTemplateRequirements(ctx context.Context, ministry model.Ministry, templateID string, counts map[model.RoleKey]int) error {
	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if result := tx.Where("ministry = ? AND template_id = ?", string(ministry), templateID).Delete(&TemplateRole{}); result.Error != nil {
			return fmt.Errorf("failed to clear template %s: %w", templateID, result.Error)
		}
		for role, count := range counts {
			if count < 0 {
				return fmt.Errorf("negative count %d for role %s", count, role)
			}
			r := TemplateRole{Ministry: string(ministry), TemplateID: templateID, Role: string(role), Count: count}
			if result := tx.Create(&r); result.Error != nil {
				return fmt.Errorf("failed to insert requirement %s of template %s: %w", role, templateID, result.Error)
			}
		}
		return nil
	})
}

func toAssignments(rows []Assignment) []model.Assignment {
	assignments := make([]model.Assignment, 0, len(rows))
	for _, r := range rows {
		assignments = append(assignments, model.Assignment{
			ID:        r.ID,
			Ministry:  model.Ministry(r.Ministry),
			Date:      r.Date,
			MassLabel: r.MassLabel,
			Role:      model.RoleKey(r.Role),
			Slot:      r.Slot,
			MemberID:  r.MemberID,
		})
	}
	return assignments
}

// ListAssignments retrieves the assignments of one date. An empty massLabel
// returns the assignments of every mass on that date.
func (d *DB) ListAssignments(ctx context.Context, ministry model.Ministry, date, massLabel string) ([]model.Assignment, error) {
	query := d.db.WithContext(ctx).Where("ministry = ? AND date = ?", string(ministry), date)
	if massLabel != "" {
		query = query.Where("mass_label = ?", massLabel)
	}

	var rows []Assignment
	if result := query.Order("mass_label, role, slot").Find(&rows); result.Error != nil {
		return nil, fmt.Errorf("failed to query assignments: %w", result.Error)
	}
	return toAssignments(rows), nil
}

// ListAssignmentsBetween retrieves the assignments dated between from and to (inclusive)
func (d *DB) ListAssignmentsBetween(ctx context.Context, ministry model.Ministry, from, to string) ([]model.Assignment, error) {
	var rows []Assignment
	result := d.db.WithContext(ctx).
		Where("ministry = ? AND date >= ? AND date <= ?", string(ministry), from, to).
		Order("date, mass_label, role, slot").
		Find(&rows)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to query assignments: %w", result.Error)
	}
	return toAssignments(rows), nil
}

// ListHistoricalAssignments retrieves the scoring view of assignments dated in [since, before)
func (d *DB) ListHistoricalAssignments(ctx context.Context, ministry model.Ministry, since, before string) ([]model.HistoricalAssignment, error) {
	var rows []Assignment
	result := d.db.WithContext(ctx).
		Where("ministry = ? AND date >= ? AND date < ?", string(ministry), since, before).
		Order("date").
		Find(&rows)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to query assignment history: %w", result.Error)
	}
	return model.ToHistorical(toAssignments(rows)), nil
}

// ReplaceRoleAssignments deletes the members of one role on one mass and inserts
// memberIDs into slots 1..n in one transaction, holding the role's lock throughout
func (d *DB) ReplaceRoleAssignments(ctx context.Context, ministry model.Ministry, date, massLabel string, role model.RoleKey, memberIDs []string) (int, error) {
	unlock := d.locks.Lock(db.RoleLockKey(ministry, date, massLabel, role))
	defer unlock()

	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("ministry = ? AND date = ? AND mass_label = ? AND role = ?",
			string(ministry), date, massLabel, string(role)).Delete(&Assignment{})
		if result.Error != nil {
			return fmt.Errorf("failed to clear assignments: %w", result.Error)
		}

		for i, memberID := range memberIDs {
			a := Assignment{
				ID:        uuid.New().String(),
				Ministry:  string(ministry),
				Date:      date,
				MassLabel: massLabel,
				Role:      string(role),
				Slot:      i + 1,
				MemberID:  memberID,
			}
			if result := tx.Create(&a); result.Error != nil {
				return fmt.Errorf("failed to insert assignment of %s: %w", memberID, result.Error)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	return len(memberIDs), nil
}
