package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jakechorley/mass-rota/pkg/core/model"
)

type recordingWriter struct {
	members       []model.MemberRow
	capabilities  []model.CapabilityRow
	specialMasses []model.SpecialMass
	templates     map[string]map[model.RoleKey]int

	memberErr error
}

func (w *recordingWriter) UpsertMember(ctx context.Context, ministry model.Ministry, member model.MemberRow) error {
	if w.memberErr != nil {
		return w.memberErr
	}
	w.members = append(w.members, member)
	return nil
}

func (w *recordingWriter) SetCapabilities(ctx context.Context, ministry model.Ministry, row model.CapabilityRow) error {
	w.capabilities = append(w.capabilities, row)
	return nil
}

func (w *recordingWriter) AddSpecialMass(ctx context.Context, ministry model.Ministry, mass model.SpecialMass) error {
	w.specialMasses = append(w.specialMasses, mass)
	return nil
}

func (w *recordingWriter) SetTemplateRequirements(ctx context.Context, ministry model.Ministry, templateID string, counts map[model.RoleKey]int) error {
	if w.templates == nil {
		w.templates = make(map[string]map[model.RoleKey]int)
	}
	w.templates[templateID] = counts
	return nil
}

func sampleImport() RosterImport {
	return RosterImport{
		Members: []ImportedMember{
			{ID: "1", FullName: "Ana Cruz", Sex: "F", Flexibility: "flexible", Status: "Active", Roles: []model.RoleKey{"candle-bearer"}},
			{ID: "2", FullName: "Ben Reyes", Sex: "M", Status: "Active", Roles: []model.RoleKey{"thurifer", "crucifer"}},
		},
		Templates: map[string]map[model.RoleKey]int{
			"solemn": {"thurifer": 1, "candle-bearer": 2, "crucifer": 1},
		},
		SpecialMasses: []ImportedSpecialMass{
			{Date: "2024-12-24", Mass: "12:00 AM", Template: "solemn"},
		},
	}
}

func TestImportRoster(t *testing.T) {
	writer := &recordingWriter{}

	result, err := ImportRoster(context.Background(), writer, testSchema(), testOptions(), zap.NewNop(), sampleImport())
	require.NoError(t, err)

	assert.Equal(t, &ImportResult{Members: 2, Templates: 1, SpecialMasses: 1}, result)

	require.Len(t, writer.members, 2)
	assert.Equal(t, "Ana Cruz", writer.members[0].FullName)

	require.Len(t, writer.capabilities, 2)
	assert.Equal(t, map[model.RoleKey]int{"thurifer": 0, "candle-bearer": 1, "crucifer": 0}, writer.capabilities[0].Roles)
	assert.Equal(t, map[model.RoleKey]int{"thurifer": 1, "candle-bearer": 0, "crucifer": 1}, writer.capabilities[1].Roles)

	assert.Equal(t, map[model.RoleKey]int{"thurifer": 1, "candle-bearer": 2, "crucifer": 1}, writer.templates["solemn"])
	assert.Equal(t, []model.SpecialMass{{Date: "2024-12-24", MassLabel: "12:00 AM", TemplateID: "solemn"}}, writer.specialMasses)
}

func TestImportRoster_RejectsInvalidFile(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*RosterImport)
		message string
	}{
		{
			name:    "unknown role",
			mutate:  func(d *RosterImport) { d.Members[0].Roles = []model.RoleKey{"usher"} },
			message: "member 1: unknown role usher",
		},
		{
			name:    "missing id",
			mutate:  func(d *RosterImport) { d.Members[1].ID = " " },
			message: "members[1]: missing id",
		},
		{
			name:    "duplicate id",
			mutate:  func(d *RosterImport) { d.Members[1].ID = "1" },
			message: "members[1]: duplicate id 1",
		},
		{
			name:    "bad special mass date",
			mutate:  func(d *RosterImport) { d.SpecialMasses[0].Date = "24/12/2024" },
			message: `specialMasses[0]: invalid date "24/12/2024"`,
		},
		{
			name:    "special mass without template",
			mutate:  func(d *RosterImport) { d.SpecialMasses[0].Template = "" },
			message: "specialMasses[0]: missing template",
		},
		{
			name:    "negative count",
			mutate:  func(d *RosterImport) { d.Templates["solemn"]["thurifer"] = -1 },
			message: "template solemn: negative count for thurifer",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := sampleImport()
			tt.mutate(&data)
			writer := &recordingWriter{}

			_, err := ImportRoster(context.Background(), writer, testSchema(), testOptions(), zap.NewNop(), data)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.message)

			assert.Empty(t, writer.members)
			assert.Empty(t, writer.templates)
			assert.Empty(t, writer.specialMasses)
		})
	}
}

func TestImportRoster_StoreError(t *testing.T) {
	writer := &recordingWriter{memberErr: errStoreDown}

	result, err := ImportRoster(context.Background(), writer, testSchema(), testOptions(), zap.NewNop(), sampleImport())
	require.ErrorIs(t, err, errStoreDown)
	assert.Contains(t, err.Error(), "failed to save member 1")
	assert.Equal(t, 1, result.Templates)
	assert.Zero(t, result.Members)
}
