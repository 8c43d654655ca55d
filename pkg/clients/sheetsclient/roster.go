package sheetsclient

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jakechorley/mass-rota/pkg/core/model"
)

// ValuesReader reads a range of a spreadsheet. Implemented by Client.
type ValuesReader interface {
	GetValues(ctx context.Context, spreadsheetID, sheetRange string) ([][]interface{}, error)
}

// Tabs names the roster and capability tabs of one ministry
type Tabs struct {
	Members      string
	Capabilities string
}

// RosterSource reads ministry rosters and capability matrices from one spreadsheet
type RosterSource struct {
	reader  ValuesReader
	sheetID string
	tabs    map[model.Ministry]Tabs
}

func NewRosterSource(reader ValuesReader, sheetID string, tabs map[model.Ministry]Tabs) *RosterSource {
	return &RosterSource{reader: reader, sheetID: sheetID, tabs: tabs}
}

// Header aliases, matched case-insensitively after trimming
var memberColumns = map[string][]string{
	"id":          {"id", "member id", "unique id"},
	"fullName":    {"full name", "name"},
	"firstName":   {"first name"},
	"lastName":    {"last name", "surname"},
	"sex":         {"sex", "gender", "sex/gender"},
	"flexibility": {"flexibility", "schedule"},
	"status":      {"status"},
}

// ListMembers reads the roster tab of a ministry
func (s *RosterSource) ListMembers(ctx context.Context, ministry model.Ministry) ([]model.MemberRow, error) {
	tabs, err := s.tabsOf(ministry)
	if err != nil {
		return nil, err
	}

	values, err := s.reader.GetValues(ctx, s.sheetID, tabs.Members)
	if err != nil {
		return nil, fmt.Errorf("failed to get roster of %s: %w", ministry, err)
	}

	members, err := parseMembers(values)
	if err != nil {
		return nil, fmt.Errorf("failed to parse roster of %s: %w", ministry, err)
	}
	return members, nil
}

// ListCapabilities reads the capability tab of a ministry. Every column other
// than the member ID column is a role.
func (s *RosterSource) ListCapabilities(ctx context.Context, ministry model.Ministry) ([]model.CapabilityRow, error) {
	tabs, err := s.tabsOf(ministry)
	if err != nil {
		return nil, err
	}

	values, err := s.reader.GetValues(ctx, s.sheetID, tabs.Capabilities)
	if err != nil {
		return nil, fmt.Errorf("failed to get capabilities of %s: %w", ministry, err)
	}

	rows, err := parseCapabilities(values)
	if err != nil {
		return nil, fmt.Errorf("failed to parse capabilities of %s: %w", ministry, err)
	}
	return rows, nil
}

func (s *RosterSource) tabsOf(ministry model.Ministry) (Tabs, error) {
	tabs, ok := s.tabs[ministry]
	if !ok {
		return Tabs{}, fmt.Errorf("no roster tabs configured for ministry %s", ministry)
	}
	return tabs, nil
}

func normalizeHeader(cell interface{}) string {
	return strings.ToLower(strings.Join(strings.Fields(cellString(cell)), " "))
}

func cellString(cell interface{}) string {
	switch v := cell.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

func cellAt(row []interface{}, index int) string {
	if index < 0 || index >= len(row) {
		return ""
	}
	return cellString(row[index])
}

// parseMembers converts raw roster values into member rows. The header must
// carry an ID column and a name column; other columns are optional.
func parseMembers(raw [][]interface{}) ([]model.MemberRow, error) {
	if len(raw) < 1 {
		return nil, fmt.Errorf("no header row found")
	}

	index := make(map[string]int)
	for field := range memberColumns {
		index[field] = -1
	}
	for i, cell := range raw[0] {
		header := normalizeHeader(cell)
		for field, aliases := range memberColumns {
			for _, alias := range aliases {
				if header == alias && index[field] == -1 {
					index[field] = i
				}
			}
		}
	}

	if index["id"] == -1 {
		return nil, fmt.Errorf("missing required field in header: ID")
	}
	if index["fullName"] == -1 && index["firstName"] == -1 {
		return nil, fmt.Errorf("missing required field in header: Full name or First name")
	}

	members := make([]model.MemberRow, 0, len(raw)-1)
	for _, row := range raw[1:] {
		member := model.MemberRow{
			ID:          cellAt(row, index["id"]),
			FullName:    cellAt(row, index["fullName"]),
			FirstName:   cellAt(row, index["firstName"]),
			LastName:    cellAt(row, index["lastName"]),
			Sex:         cellAt(row, index["sex"]),
			Flexibility: cellAt(row, index["flexibility"]),
			Status:      cellAt(row, index["status"]),
		}
		// Blank rows are common at the bottom of a tab
		if strings.TrimSpace(member.ID) == "" {
			continue
		}
		members = append(members, member)
	}

	return members, nil
}

// truthy accepts 1 and the checkbox/text forms sheets produce for it
func truthy(cell string) int {
	switch strings.ToLower(strings.TrimSpace(cell)) {
	case "1", "true", "yes", "y", "x":
		return 1
	default:
		return 0
	}
}

// parseCapabilities converts a capability matrix into rows. Role keys are the
// header cells, trimmed; the ID column is found by the same aliases as the roster.
func parseCapabilities(raw [][]interface{}) ([]model.CapabilityRow, error) {
	if len(raw) < 1 {
		return nil, fmt.Errorf("no header row found")
	}

	idIndex := -1
	roles := make(map[int]model.RoleKey)
	for i, cell := range raw[0] {
		header := normalizeHeader(cell)
		isID := false
		for _, alias := range memberColumns["id"] {
			if header == alias {
				isID = true
			}
		}
		switch {
		case isID && idIndex == -1:
			idIndex = i
		case header != "" && !isID:
			roles[i] = model.RoleKey(strings.TrimSpace(cellString(cell)))
		}
	}

	if idIndex == -1 {
		return nil, fmt.Errorf("missing required field in header: ID")
	}

	rows := make([]model.CapabilityRow, 0, len(raw)-1)
	for _, row := range raw[1:] {
		id := cellAt(row, idIndex)
		if strings.TrimSpace(id) == "" {
			continue
		}
		capability := model.CapabilityRow{MemberID: id, Roles: make(map[model.RoleKey]int, len(roles))}
		for i, role := range roles {
			capability.Roles[role] = truthy(cellAt(row, i))
		}
		rows = append(rows, capability)
	}

	return rows, nil
}
