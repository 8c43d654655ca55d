package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/jakechorley/mass-rota/pkg/core/model"
)

func TestListMembers(t *testing.T) {
	store := &mockSources{
		members: []model.MemberRow{
			{ID: "m1", FirstName: "Luz", LastName: "Navarro", Sex: "F", Flexibility: "Flexible"},
			{ID: "m2", FullName: "Rey Ocampo", Status: "Inactive"},
			{ID: "m3", FullName: "Sol Pineda"},
		},
		capabilities: []model.CapabilityRow{
			{MemberID: "m1", Roles: map[model.RoleKey]int{"thurifer": 1, "beller": 1}},
		},
	}

	summaries, err := ListMembers(context.Background(), store.sources(), testSchema(), testOptions(), zap.NewNop())
	require.NoError(t, err)

	require.Len(t, summaries, 2)
	assert.Equal(t, "Luz Navarro", summaries[0].FullName)
	assert.Equal(t, model.Flexible, summaries[0].Flexibility)
	assert.Equal(t, []model.RoleKey{"beller", "thurifer"}, summaries[0].Roles)
	assert.Equal(t, "m3", summaries[1].ID)
	assert.Empty(t, summaries[1].Roles)
}

func TestListMembers_RosterFailure(t *testing.T) {
	store := &mockSources{listMembersErr: errStoreDown}

	_, err := ListMembers(context.Background(), store.sources(), testSchema(), testOptions(), zap.NewNop())
	assert.ErrorIs(t, err, errStoreDown)
}

func TestListMembers_CapabilityColumnsMatchRolesIgnoringCase(t *testing.T) {
	store := &mockSources{
		members: []model.MemberRow{{ID: "m1", FullName: "Luz Navarro"}},
		capabilities: []model.CapabilityRow{
			{MemberID: "m1", Roles: map[model.RoleKey]int{"Thurifer": 1, " Candle-Bearer ": 1, "Beller": 1}},
		},
	}
	core, logs := observer.New(zapcore.WarnLevel)

	summaries, err := ListMembers(context.Background(), store.sources(), testSchema(), testOptions(), zap.New(core))
	require.NoError(t, err)

	require.Len(t, summaries, 1)
	assert.Equal(t, []model.RoleKey{"Beller", "candle-bearer", "thurifer"}, summaries[0].Roles)

	warnings := logs.FilterMessage("Capability columns match no configured role").All()
	require.Len(t, warnings, 1)
	assert.Equal(t, []interface{}{"Beller"}, warnings[0].ContextMap()["columns"])
}
