package sqlite

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jakechorley/mass-rota/pkg/core/model"
	"github.com/jakechorley/mass-rota/pkg/core/rotation"
	"github.com/jakechorley/mass-rota/pkg/core/services"
	"github.com/jakechorley/mass-rota/pkg/db"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	d, err := NewDB("")
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })
	return d
}

func TestNewDB_MemoryDatabasesAreIsolated(t *testing.T) {
	ctx := context.Background()
	a := setupTestDB(t)
	b := setupTestDB(t)

	require.NoError(t, a.UpsertMember(ctx, "lector", model.MemberRow{ID: "m1", FullName: "Ana Cruz"}))

	members, err := b.ListMembers(ctx, "lector")
	require.NoError(t, err)
	assert.Empty(t, members)
}

func TestNewDB_FilePersists(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "data", "rota.sqlite")

	d, err := NewDB(path)
	require.NoError(t, err)
	require.NoError(t, d.UpsertMember(ctx, "lector", model.MemberRow{ID: "m1", FullName: "Ana Cruz"}))
	require.NoError(t, d.Close())

	reopened, err := NewDB(path)
	require.NoError(t, err)
	defer reopened.Close()

	members, err := reopened.ListMembers(ctx, "lector")
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, "Ana Cruz", members[0].FullName)
}

func TestDB_UpsertMember(t *testing.T) {
	ctx := context.Background()
	d := setupTestDB(t)

	require.NoError(t, d.UpsertMember(ctx, "lector", model.MemberRow{ID: "m2", FirstName: "Ben", LastName: "Ramos", Status: "Active"}))
	require.NoError(t, d.UpsertMember(ctx, "lector", model.MemberRow{ID: "m1", FullName: "Ana Cruz", Sex: "F"}))
	require.NoError(t, d.UpsertMember(ctx, "lector", model.MemberRow{ID: "m1", FullName: "Ana Cruz-Reyes", Sex: "F"}))
	require.NoError(t, d.UpsertMember(ctx, "choir", model.MemberRow{ID: "m1", FullName: "Other Ministry"}))

	members, err := d.ListMembers(ctx, "lector")
	require.NoError(t, err)
	require.Len(t, members, 2)
	assert.Equal(t, "m1", members[0].ID)
	assert.Equal(t, "Ana Cruz-Reyes", members[0].FullName)
	assert.Equal(t, "Ben", members[1].FirstName)
}

func TestDB_Capabilities(t *testing.T) {
	ctx := context.Background()
	d := setupTestDB(t)

	require.NoError(t, d.SetCapabilities(ctx, "lector", model.CapabilityRow{
		MemberID: "m1",
		Roles:    map[model.RoleKey]int{"first-reading": 1, "psalm": 1},
	}))
	require.NoError(t, d.SetCapabilities(ctx, "lector", model.CapabilityRow{
		MemberID: "m1",
		Roles:    map[model.RoleKey]int{"first-reading": 0, "commentator": 1},
	}))
	require.NoError(t, d.SetCapabilities(ctx, "lector", model.CapabilityRow{
		MemberID: "m2",
		Roles:    map[model.RoleKey]int{"psalm": 1},
	}))

	caps, err := d.ListCapabilities(ctx, "lector")
	require.NoError(t, err)
	assert.Equal(t, []model.CapabilityRow{
		{MemberID: "m1", Roles: map[model.RoleKey]int{"first-reading": 0, "commentator": 1}},
		{MemberID: "m2", Roles: map[model.RoleKey]int{"psalm": 1}},
	}, caps)
}

func TestDB_SpecialMassesAndTemplates(t *testing.T) {
	ctx := context.Background()
	d := setupTestDB(t)

	require.NoError(t, d.AddSpecialMass(ctx, "lector", model.SpecialMass{Date: "2024-12-24", MassLabel: "10:00 PM", TemplateID: "vigil"}))
	require.NoError(t, d.AddSpecialMass(ctx, "lector", model.SpecialMass{Date: "2024-12-24", MassLabel: "10:00 PM", TemplateID: "christmas"}))
	require.NoError(t, d.AddSpecialMass(ctx, "lector", model.SpecialMass{Date: "2025-01-01", MassLabel: "8:00 AM", TemplateID: "new-year"}))
	assert.Error(t, d.AddSpecialMass(ctx, "lector", model.SpecialMass{Date: "Christmas", MassLabel: "8:00 AM", TemplateID: "x"}))

	masses, err := d.ListSpecialMasses(ctx, "lector", "2024-12-01", "2024-12-31")
	require.NoError(t, err)
	assert.Equal(t, []model.SpecialMass{{Date: "2024-12-24", MassLabel: "10:00 PM", TemplateID: "christmas"}}, masses)

	require.NoError(t, d.SetTemplateRequirements(ctx, "lector", "christmas", map[model.RoleKey]int{"first-reading": 1, "psalm": 2}))
	counts, err := d.GetTemplateRequirements(ctx, "lector", "christmas")
	require.NoError(t, err)
	assert.Equal(t, map[model.RoleKey]int{"first-reading": 1, "psalm": 2}, counts)

	_, err = d.GetTemplateRequirements(ctx, "lector", "easter")
	assert.Error(t, err)

	assert.Error(t, d.SetTemplateRequirements(ctx, "lector", "christmas", map[model.RoleKey]int{"psalm": -1}))
	counts, err = d.GetTemplateRequirements(ctx, "lector", "christmas")
	require.NoError(t, err)
	assert.Equal(t, 2, counts["psalm"], "a failed replacement is rolled back")
}

func TestDB_ReplaceRoleAssignments(t *testing.T) {
	ctx := context.Background()
	d := setupTestDB(t)

	n, err := d.ReplaceRoleAssignments(ctx, "lector", "2024-06-09", "7:00 AM", "psalm", []string{"m1", "m2"})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	_, err = d.ReplaceRoleAssignments(ctx, "lector", "2024-06-09", "9:00 AM", "psalm", []string{"m3"})
	require.NoError(t, err)

	n, err = d.ReplaceRoleAssignments(ctx, "lector", "2024-06-09", "7:00 AM", "psalm", []string{"m4"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	morning, err := d.ListAssignments(ctx, "lector", "2024-06-09", "7:00 AM")
	require.NoError(t, err)
	require.Len(t, morning, 1)
	assert.Equal(t, "m4", morning[0].MemberID)
	assert.Equal(t, 1, morning[0].Slot)
	assert.NotEmpty(t, morning[0].ID)

	day, err := d.ListAssignments(ctx, "lector", "2024-06-09", "")
	require.NoError(t, err)
	assert.Len(t, day, 2)

	n, err = d.ReplaceRoleAssignments(ctx, "lector", "2024-06-09", "7:00 AM", "psalm", nil)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	morning, err = d.ListAssignments(ctx, "lector", "2024-06-09", "7:00 AM")
	require.NoError(t, err)
	assert.Empty(t, morning)
}

func TestDB_HistoryAndRangeBounds(t *testing.T) {
	ctx := context.Background()
	d := setupTestDB(t)

	for _, date := range []string{"2024-05-31", "2024-06-01", "2024-06-15", "2024-06-30", "2024-07-01"} {
		_, err := d.ReplaceRoleAssignments(ctx, "lector", date, "7:00 AM", "psalm", []string{"m1"})
		require.NoError(t, err)
	}

	between, err := d.ListAssignmentsBetween(ctx, "lector", "2024-06-01", "2024-06-30")
	require.NoError(t, err)
	assert.Len(t, between, 3, "both bounds are inclusive")

	history, err := d.ListHistoricalAssignments(ctx, "lector", "2024-06-01", "2024-06-30")
	require.NoError(t, err)
	require.Len(t, history, 2, "before is exclusive")
	assert.Equal(t, model.HistoricalAssignment{MemberID: "m1", Role: "psalm", Date: "2024-06-01"}, history[0])
}

func TestDB_ConcurrentReplaceLeavesOneSelection(t *testing.T) {
	ctx := context.Background()
	d := setupTestDB(t)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ids := []string{fmt.Sprintf("w%d-a", i), fmt.Sprintf("w%d-b", i)}
			_, err := d.ReplaceRoleAssignments(ctx, "altar-server", "2024-06-16", "9:00 AM", "candle-bearer", ids)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	assignments, err := d.ListAssignments(ctx, "altar-server", "2024-06-16", "9:00 AM")
	require.NoError(t, err)
	require.Len(t, assignments, 2)
	assert.Equal(t, 1, assignments[0].Slot)
	assert.Equal(t, 2, assignments[1].Slot)
	// both slots come from the same caller
	assert.Equal(t, assignments[0].MemberID[:3], assignments[1].MemberID[:3])
}

func TestDB_AutoAssignEndToEnd(t *testing.T) {
	ctx := context.Background()
	d := setupTestDB(t)

	names := []string{"Andres", "Bea", "Carlo", "Dina", "Emil", "Fe"}
	for i, name := range names {
		sex := "M"
		if i%2 == 1 {
			sex = "F"
		}
		id := fmt.Sprintf("m%d", i+1)
		require.NoError(t, d.UpsertMember(ctx, "altar-server", model.MemberRow{ID: id, FullName: name, Sex: sex}))
		require.NoError(t, d.SetCapabilities(ctx, "altar-server", model.CapabilityRow{
			MemberID: id,
			Roles:    map[model.RoleKey]int{"thurifer": 1, "candle-bearer": 1},
		}))
	}

	schema := rotation.RoleSchema{
		Ministry:   "altar-server",
		Masses:     []string{"7:00 AM"},
		Recurrence: "FREQ=WEEKLY;BYDAY=SU",
		Roles: []rotation.RoleSpec{
			{Key: "thurifer", DefaultCount: 1},
			{Key: "candle-bearer", DefaultCount: 2, PairBySex: true},
		},
	}
	opts := services.DefaultOptions()
	opts.ProgressInterval = 0

	result, err := services.RunMonthlyAutoAssign(ctx, db.Sources(d), schema, opts, zap.NewNop(), 2024, time.June, nil)
	require.NoError(t, err)
	assert.Equal(t, services.StatusCompleted, result.Status)
	assert.Equal(t, 15, result.Stats.AssignmentsMade)

	check, err := services.CheckMonthComplete(ctx, db.Sources(d), schema, opts, zap.NewNop(), 2024, time.June)
	require.NoError(t, err)
	assert.True(t, check.IsComplete)
	assert.Equal(t, 5, check.TotalMassSlots)
}

func TestDB_ImportRosterSeedsEngine(t *testing.T) {
	ctx := context.Background()
	d := setupTestDB(t)

	schema := rotation.RoleSchema{
		Ministry: "altar-server",
		Roles:    []rotation.RoleSpec{{Key: "thurifer", DefaultCount: 1}},
	}
	data := services.RosterImport{
		Members: []services.ImportedMember{
			{ID: "m1", FullName: "Ana Cruz", Sex: "F", Status: "Active", Roles: []model.RoleKey{"thurifer"}},
			{ID: "m2", FullName: "Ben Reyes", Sex: "M", Status: "Active"},
		},
		Templates:     map[string]map[model.RoleKey]int{"solemn": {"thurifer": 2}},
		SpecialMasses: []services.ImportedSpecialMass{{Date: "2024-12-24", Mass: "12:00 AM", Template: "solemn"}},
	}

	var store db.Database = d
	_, err := services.ImportRoster(ctx, store, schema, services.DefaultOptions(), zap.NewNop(), data)
	require.NoError(t, err)

	members, err := services.ListMembers(ctx, db.Sources(d), schema, services.DefaultOptions(), zap.NewNop())
	require.NoError(t, err)
	require.Len(t, members, 2)

	caps, err := d.ListCapabilities(ctx, "altar-server")
	require.NoError(t, err)
	require.Len(t, caps, 2)

	counts, err := d.GetTemplateRequirements(ctx, "altar-server", "solemn")
	require.NoError(t, err)
	assert.Equal(t, map[model.RoleKey]int{"thurifer": 2}, counts)

	masses, err := d.ListSpecialMasses(ctx, "altar-server", "2024-12-01", "2024-12-31")
	require.NoError(t, err)
	assert.Equal(t, []model.SpecialMass{{Date: "2024-12-24", MassLabel: "12:00 AM", TemplateID: "solemn"}}, masses)
}
