package services

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/jakechorley/mass-rota/pkg/core/model"
	"github.com/jakechorley/mass-rota/pkg/core/rotation"
)

// ImportedMember is one roster entry of an import file. Roles lists the roles
// the member may serve in; every other known role is stored as 0.
type ImportedMember struct {
	ID          string          `yaml:"id"`
	FullName    string          `yaml:"fullName,omitempty"`
	FirstName   string          `yaml:"firstName,omitempty"`
	LastName    string          `yaml:"lastName,omitempty"`
	Sex         string          `yaml:"sex,omitempty"`
	Flexibility string          `yaml:"flexibility,omitempty"`
	Status      string          `yaml:"status,omitempty"`
	Roles       []model.RoleKey `yaml:"roles,omitempty"`
}

// ImportedSpecialMass is one ad-hoc mass of an import file
type ImportedSpecialMass struct {
	Date     string `yaml:"date"`
	Mass     string `yaml:"mass"`
	Template string `yaml:"template"`
}

// RosterImport is the content of a roster import file for one ministry
type RosterImport struct {
	Members       []ImportedMember                 `yaml:"members"`
	Templates     map[string]map[model.RoleKey]int `yaml:"templates,omitempty"`
	SpecialMasses []ImportedSpecialMass            `yaml:"specialMasses,omitempty"`
}

// ImportResult counts the rows written by ImportRoster
type ImportResult struct {
	Members       int
	Templates     int
	SpecialMasses int
}

// ImportRoster validates an import and writes it to a database-backed roster.
// Members and capabilities are upserted; templates and special masses replace
// existing entries with the same key. Nothing is written when validation fails.
func ImportRoster(ctx context.Context, store RosterWriter, schema rotation.RoleSchema, opts Options, logger *zap.Logger, data RosterImport) (*ImportResult, error) {
	if err := validateImport(schema, data); err != nil {
		return nil, err
	}

	known := knownRoles(schema, data)
	result := &ImportResult{}

	templateIDs := make([]string, 0, len(data.Templates))
	for id := range data.Templates {
		templateIDs = append(templateIDs, id)
	}
	slices.Sort(templateIDs)

	for _, id := range templateIDs {
		opCtx, cancel := withTimeout(ctx, opts)
		err := store.SetTemplateRequirements(opCtx, schema.Ministry, id, data.Templates[id])
		cancel()
		if err != nil {
			return result, fmt.Errorf("failed to save template %s: %w", id, err)
		}
		result.Templates++
	}

	for _, m := range data.Members {
		row := model.MemberRow{
			ID:          strings.TrimSpace(m.ID),
			FullName:    m.FullName,
			FirstName:   m.FirstName,
			LastName:    m.LastName,
			Sex:         m.Sex,
			Flexibility: m.Flexibility,
			Status:      m.Status,
		}

		capability := model.CapabilityRow{MemberID: row.ID, Roles: make(map[model.RoleKey]int, len(known))}
		for _, role := range known {
			capability.Roles[role] = 0
		}
		for _, role := range m.Roles {
			capability.Roles[role] = 1
		}

		opCtx, cancel := withTimeout(ctx, opts)
		err := store.UpsertMember(opCtx, schema.Ministry, row)
		if err == nil {
			err = store.SetCapabilities(opCtx, schema.Ministry, capability)
		}
		cancel()
		if err != nil {
			return result, fmt.Errorf("failed to save member %s: %w", row.ID, err)
		}
		result.Members++
	}

	for _, sm := range data.SpecialMasses {
		opCtx, cancel := withTimeout(ctx, opts)
		err := store.AddSpecialMass(opCtx, schema.Ministry, model.SpecialMass{
			Date:       strings.TrimSpace(sm.Date),
			MassLabel:  sm.Mass,
			TemplateID: sm.Template,
		})
		cancel()
		if err != nil {
			return result, fmt.Errorf("failed to save special mass %s %s: %w", sm.Date, sm.Mass, err)
		}
		result.SpecialMasses++
	}

	logger.Info("Imported roster",
		zap.String("ministry", string(schema.Ministry)),
		zap.Int("members", result.Members),
		zap.Int("templates", result.Templates),
		zap.Int("special_masses", result.SpecialMasses))

	return result, nil
}

// knownRoles returns the schema roles followed by roles only named in templates
func knownRoles(schema rotation.RoleSchema, data RosterImport) []model.RoleKey {
	seen := make(map[model.RoleKey]bool)
	var roles []model.RoleKey
	for _, role := range schema.Roles {
		seen[role.Key] = true
		roles = append(roles, role.Key)
	}

	var extra []model.RoleKey
	for _, counts := range data.Templates {
		for role := range counts {
			if !seen[role] {
				seen[role] = true
				extra = append(extra, role)
			}
		}
	}
	slices.Sort(extra)

	return append(roles, extra...)
}

func validateImport(schema rotation.RoleSchema, data RosterImport) error {
	known := make(map[model.RoleKey]bool)
	for _, role := range knownRoles(schema, data) {
		known[role] = true
	}

	var problems []string

	for id, counts := range data.Templates {
		if strings.TrimSpace(id) == "" {
			problems = append(problems, "template with an empty id")
		}
		for role, count := range counts {
			if count < 0 {
				problems = append(problems, fmt.Sprintf("template %s: negative count for %s", id, role))
			}
		}
	}

	ids := make(map[string]bool, len(data.Members))
	for i, m := range data.Members {
		id := strings.TrimSpace(m.ID)
		switch {
		case id == "":
			problems = append(problems, fmt.Sprintf("members[%d]: missing id", i))
			continue
		case ids[id]:
			problems = append(problems, fmt.Sprintf("members[%d]: duplicate id %s", i, id))
		}
		ids[id] = true

		for _, role := range m.Roles {
			if !known[role] {
				problems = append(problems, fmt.Sprintf("member %s: unknown role %s", id, role))
			}
		}
	}

	for i, sm := range data.SpecialMasses {
		if _, err := model.ParseDate(sm.Date); err != nil {
			problems = append(problems, fmt.Sprintf("specialMasses[%d]: invalid date %q", i, sm.Date))
		}
		if strings.TrimSpace(sm.Mass) == "" {
			problems = append(problems, fmt.Sprintf("specialMasses[%d]: missing mass", i))
		}
		if strings.TrimSpace(sm.Template) == "" {
			problems = append(problems, fmt.Sprintf("specialMasses[%d]: missing template", i))
		}
	}

	if len(problems) > 0 {
		slices.Sort(problems)
		return fmt.Errorf("invalid roster import: %s", strings.Join(problems, "; "))
	}
	return nil
}
