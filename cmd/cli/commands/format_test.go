package commands

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jakechorley/mass-rota/pkg/core/model"
)

func TestFormatCandidate(t *testing.T) {
	member := model.Member{ID: "7", FullName: "Andres Bautista", Sex: model.SexMale}

	tests := []struct {
		name      string
		candidate model.ScoredCandidate
		contains  []string
	}{
		{
			name:      "never served",
			candidate: model.ScoredCandidate{Member: member, RotationScore: 0},
			contains:  []string{" 1. Andres Bautista", "score 0.000", "served 0", "last never"},
		},
		{
			name: "served and assigned",
			candidate: model.ScoredCandidate{
				Member: member, RotationScore: 1.25, RoleCount: 3, DaysSinceLastRole: 14, IsAssigned: true,
			},
			contains: []string{"score 1.250", "served 3", "last 14d ago", "[assigned]"},
		},
		{
			name:      "priority",
			candidate: model.ScoredCandidate{Member: member, IsPriority: true},
			contains:  []string{"[priority]"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			line := formatCandidate(1, tt.candidate)
			for _, s := range tt.contains {
				assert.Contains(t, line, s)
			}
		})
	}
}

func TestFormatRoles(t *testing.T) {
	assert.Equal(t, "-", formatRoles(nil))
	assert.Equal(t, "thurifer, crucifer", formatRoles([]model.RoleKey{"thurifer", "crucifer"}))
}

func TestFormatProgress(t *testing.T) {
	line := formatProgress(model.Progress{
		OccurrencesProcessed: 2, TotalOccurrences: 5,
		MassesProcessed: 4, TotalMasses: 10,
		AssignmentsMade: 12, Errors: 1,
	})
	assert.Equal(t, " 40%  dates 2/5  masses 4/10  assigned 12  errors 1", line)

	assert.Contains(t, formatProgress(model.Progress{}), "  0%")
}

func TestParseYearMonth(t *testing.T) {
	year, month, err := parseYearMonth("2024", "6")
	require.NoError(t, err)
	assert.Equal(t, 2024, year)
	assert.Equal(t, time.June, month)

	tests := []struct {
		name  string
		year  string
		month string
	}{
		{"year not a number", "twenty", "6"},
		{"year zero", "0", "6"},
		{"month zero", "2024", "0"},
		{"month thirteen", "2024", "13"},
		{"month name", "2024", "June"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := parseYearMonth(tt.year, tt.month)
			assert.Error(t, err)
		})
	}
}
