package sheetsclient

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jakechorley/mass-rota/pkg/core/model"
)

type mockValuesReader struct {
	values map[string][][]interface{}
	err    error

	lastSheetID string
}

func (m *mockValuesReader) GetValues(ctx context.Context, spreadsheetID, sheetRange string) ([][]interface{}, error) {
	m.lastSheetID = spreadsheetID
	if m.err != nil {
		return nil, m.err
	}
	return m.values[sheetRange], nil
}

func newTestSource(reader *mockValuesReader) *RosterSource {
	return NewRosterSource(reader, "sheet-123", map[model.Ministry]Tabs{
		"altar-server": {Members: "Servers", Capabilities: "Server roles"},
	})
}

func TestRosterSource_ListMembers(t *testing.T) {
	reader := &mockValuesReader{values: map[string][][]interface{}{
		"Servers": {
			{"  Member ID ", "First Name", "Last Name", "SEX/GENDER", "Status", "Flexibility"},
			{"7", "Andres", "Bautista", "Male", "Active", "Flexible"},
			{"", "", "", "", "", ""},
			{float64(12), "Bea", "Castillo", "F"},
		},
	}}

	members, err := newTestSource(reader).ListMembers(context.Background(), "altar-server")
	require.NoError(t, err)

	assert.Equal(t, "sheet-123", reader.lastSheetID)
	require.Len(t, members, 2)
	assert.Equal(t, model.MemberRow{
		ID: "7", FirstName: "Andres", LastName: "Bautista", Sex: "Male", Status: "Active", Flexibility: "Flexible",
	}, members[0])
	// short rows leave trailing fields empty
	assert.Equal(t, model.MemberRow{ID: "12", FirstName: "Bea", LastName: "Castillo", Sex: "F"}, members[1])
}

func TestRosterSource_ListMembers_HeaderErrors(t *testing.T) {
	tests := []struct {
		name   string
		values [][]interface{}
		errMsg string
	}{
		{
			name:   "empty tab",
			values: nil,
			errMsg: "no header row found",
		},
		{
			name:   "no id column",
			values: [][]interface{}{{"Full name", "Sex"}},
			errMsg: "ID",
		},
		{
			name:   "no name column",
			values: [][]interface{}{{"ID", "Sex"}},
			errMsg: "Full name or First name",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reader := &mockValuesReader{values: map[string][][]interface{}{"Servers": tt.values}}

			_, err := newTestSource(reader).ListMembers(context.Background(), "altar-server")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestRosterSource_ListCapabilities(t *testing.T) {
	reader := &mockValuesReader{values: map[string][][]interface{}{
		"Server roles": {
			{"ID", "thurifer", " candle-bearer ", "", "crucifer"},
			{"7", "1", "TRUE", "note", "0"},
			{"12", "", "x", "", true},
			{""},
		},
	}}

	rows, err := newTestSource(reader).ListCapabilities(context.Background(), "altar-server")
	require.NoError(t, err)

	require.Len(t, rows, 2)
	assert.Equal(t, model.CapabilityRow{
		MemberID: "7",
		Roles:    map[model.RoleKey]int{"thurifer": 1, "candle-bearer": 1, "crucifer": 0},
	}, rows[0])
	assert.Equal(t, model.CapabilityRow{
		MemberID: "12",
		Roles:    map[model.RoleKey]int{"thurifer": 0, "candle-bearer": 1, "crucifer": 1},
	}, rows[1])
}

func TestRosterSource_UnknownMinistry(t *testing.T) {
	_, err := newTestSource(&mockValuesReader{}).ListMembers(context.Background(), "choir")
	assert.ErrorContains(t, err, "no roster tabs configured")

	_, err = newTestSource(&mockValuesReader{}).ListCapabilities(context.Background(), "choir")
	assert.ErrorContains(t, err, "no roster tabs configured")
}

func TestRosterSource_ReadFailure(t *testing.T) {
	apiErr := errors.New("quota exceeded")
	source := newTestSource(&mockValuesReader{err: apiErr})

	_, err := source.ListMembers(context.Background(), "altar-server")
	assert.ErrorIs(t, err, apiErr)

	_, err = source.ListCapabilities(context.Background(), "altar-server")
	assert.ErrorIs(t, err, apiErr)
}
