package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		DatabaseDriver: DriverPostgres,
		DatabaseURL:    "postgres://rota@localhost:5432/rota",
		Ministries: []MinistryConfig{
			{
				Key:    "altar-server",
				Name:   "Altar Servers",
				RRule:  "FREQ=WEEKLY;BYDAY=SU",
				Masses: []string{"7:00 AM", "9:00 AM"},
				Roles: []RoleConfig{
					{Key: "thurifer", Count: 1},
					{Key: "candle-bearer", Count: 2, PairBySex: true},
				},
			},
		},
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rota_config.test.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestValidate_ValidConfig(t *testing.T) {
	assert.NoError(t, Validate(validConfig()))
}

func TestValidate_SQLiteRequiresPath(t *testing.T) {
	cfg := validConfig()
	cfg.DatabaseDriver = DriverSQLite
	cfg.DatabaseURL = ""

	err := Validate(cfg)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")

	cfg.SQLitePath = "rota.db"
	assert.NoError(t, Validate(cfg))
}

func TestValidate_UnknownDriver(t *testing.T) {
	cfg := validConfig()
	cfg.DatabaseDriver = "mysql"

	err := Validate(cfg)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")
}

func TestValidate_SheetsRosterRequiresSheetID(t *testing.T) {
	cfg := validConfig()
	cfg.RosterSource = RosterFromSheets

	err := Validate(cfg)
	assert.Error(t, err)

	cfg.RosterSheetID = "sheet123"
	err = Validate(cfg)
	assert.ErrorContains(t, err, "membersTab and capabilitiesTab are required")

	cfg.Ministries[0].MembersTab = "Servers"
	cfg.Ministries[0].CapabilitiesTab = "Server roles"
	assert.NoError(t, Validate(cfg))
}

func TestValidate_DuplicateRoleKeys(t *testing.T) {
	cfg := validConfig()
	cfg.Ministries[0].Roles = append(cfg.Ministries[0].Roles, RoleConfig{Key: "thurifer", Count: 1})

	err := Validate(cfg)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")
}

func TestValidate_DuplicateMinistryKeys(t *testing.T) {
	cfg := validConfig()
	cfg.Ministries = append(cfg.Ministries, cfg.Ministries[0])

	assert.Error(t, Validate(cfg))
}

func TestValidate_NegativeRoleCount(t *testing.T) {
	cfg := validConfig()
	cfg.Ministries[0].Roles[0].Count = -1

	assert.Error(t, Validate(cfg))
}

func TestValidate_InvalidRRule(t *testing.T) {
	cfg := validConfig()
	cfg.Ministries[0].RRule = "INVALID_RRULE_SYNTAX"

	err := Validate(cfg)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid rrule in ministries[0]")
}

func TestValidate_ComplexValidRRule(t *testing.T) {
	cfg := validConfig()
	cfg.Ministries[0].RRule = "FREQ=MONTHLY;BYDAY=1SU,3SU"

	assert.NoError(t, Validate(cfg))
}

func TestValidate_RecurrenceStart(t *testing.T) {
	cfg := validConfig()
	cfg.Ministries[0].RRule = "FREQ=WEEKLY;INTERVAL=2;BYDAY=SU"
	cfg.Ministries[0].RecurrenceStart = "2024-06-09"
	assert.NoError(t, Validate(cfg))

	cfg.Ministries[0].RecurrenceStart = "09/06/2024"
	assert.ErrorContains(t, Validate(cfg), "validation failed")
}

func TestValidate_CountNeedsStart(t *testing.T) {
	cfg := validConfig()
	cfg.Ministries[0].RRule = "FREQ=WEEKLY;COUNT=4;BYDAY=SU"

	err := Validate(cfg)
	assert.ErrorContains(t, err, "COUNT needs DTSTART or recurrenceStart")

	cfg.Ministries[0].RecurrenceStart = "2024-06-02"
	assert.NoError(t, Validate(cfg))

	cfg.Ministries[0].RecurrenceStart = ""
	cfg.Ministries[0].RRule = "DTSTART=20240602;FREQ=WEEKLY;COUNT=4;BYDAY=SU"
	assert.NoError(t, Validate(cfg))
}

func TestConfig_Ministry(t *testing.T) {
	cfg := validConfig()

	m, err := cfg.Ministry("altar-server")
	require.NoError(t, err)
	assert.Equal(t, "Altar Servers", m.Name)

	_, err = cfg.Ministry("choir")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown ministry")
}

func TestLoadFromPath_ValidConfig(t *testing.T) {
	path := writeConfig(t, `
databaseDriver: sqlite
sqlitePath: "rota.db"
rosterSource: sheets
rosterSheetID: "sheet123"
historyWindowDays: 90
operationTimeout: 5s
metricsAddr: "localhost:9090"
ministries:
  - key: altar-server
    name: Altar Servers
    rrule: "FREQ=WEEKLY;BYDAY=SU"
    membersTab: "Servers"
    capabilitiesTab: "Server Roles"
    masses:
      - "7:00 AM"
      - "9:00 AM"
    roles:
      - key: thurifer
        count: 1
      - key: candle-bearer
        count: 2
        pairBySex: true
`)

	cfg, err := LoadFromPath(path)
	require.NoError(t, err)

	assert.Equal(t, DriverSQLite, cfg.DatabaseDriver)
	assert.Equal(t, "rota.db", cfg.SQLitePath)
	assert.Equal(t, RosterFromSheets, cfg.RosterSource)
	assert.Equal(t, 90, cfg.HistoryWindowDays)
	assert.Equal(t, 5*time.Second, cfg.OperationTimeout)
	assert.Equal(t, DefaultProgressInterval, cfg.ProgressInterval)
	assert.Equal(t, "localhost:9090", cfg.MetricsAddr)

	require.Len(t, cfg.Ministries, 1)
	ministry := cfg.Ministries[0]
	assert.Equal(t, "Server Roles", ministry.CapabilitiesTab)
	assert.Equal(t, []string{"7:00 AM", "9:00 AM"}, ministry.Masses)
	require.Len(t, ministry.Roles, 2)
	assert.True(t, ministry.Roles[1].PairBySex)
	assert.Equal(t, 2, ministry.Roles[1].Count)
}

func TestLoadFromPath_AppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
databaseDriver: postgres
databaseURL: "postgres://localhost/rota"
ministries:
  - key: lector
    rrule: "FREQ=WEEKLY;BYDAY=SA,SU"
    masses: ["6:00 PM"]
    roles:
      - key: reading
        count: 2
`)

	cfg, err := LoadFromPath(path)
	require.NoError(t, err)

	assert.Equal(t, RosterFromDatabase, cfg.RosterSource)
	assert.Equal(t, DefaultHistoryWindowDays, cfg.HistoryWindowDays)
	assert.Equal(t, DefaultOperationTimeout, cfg.OperationTimeout)
	assert.Equal(t, DefaultProgressInterval, cfg.ProgressInterval)
	assert.Empty(t, cfg.MetricsAddr)
}

func TestLoadFromPath_EnvironmentOverrides(t *testing.T) {
	t.Setenv("ROTA_DATABASE_URL", "postgres://override/rota")
	t.Setenv("ROTA_OPERATION_TIMEOUT", "30s")

	path := writeConfig(t, `
databaseDriver: postgres
databaseURL: "postgres://localhost/rota"
ministries:
  - key: lector
    rrule: "FREQ=WEEKLY;BYDAY=SU"
    masses: ["9:00 AM"]
    roles:
      - key: reading
        count: 1
`)

	cfg, err := LoadFromPath(path)
	require.NoError(t, err)

	assert.Equal(t, "postgres://override/rota", cfg.DatabaseURL)
	assert.Equal(t, 30*time.Second, cfg.OperationTimeout)
}

func TestLoadFromPath_EnvironmentSatisfiesRequiredField(t *testing.T) {
	t.Setenv("ROTA_DATABASE_URL", "postgres://from-env/rota")

	path := writeConfig(t, `
databaseDriver: postgres
ministries:
  - key: lector
    rrule: "FREQ=WEEKLY;BYDAY=SU"
    masses: ["9:00 AM"]
    roles:
      - key: reading
        count: 1
`)

	cfg, err := LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, "postgres://from-env/rota", cfg.DatabaseURL)
}

func TestLoadFromPath_InvalidRRule(t *testing.T) {
	path := writeConfig(t, `
databaseDriver: postgres
databaseURL: "postgres://localhost/rota"
ministries:
  - key: lector
    rrule: "INVALID_RRULE_SYNTAX"
    masses: ["9:00 AM"]
    roles:
      - key: reading
        count: 1
`)

	_, err := LoadFromPath(path)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid rrule")
}

func TestLoadFromPath_MissingMinistries(t *testing.T) {
	path := writeConfig(t, `
databaseDriver: postgres
databaseURL: "postgres://localhost/rota"
`)

	_, err := LoadFromPath(path)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")
}

func TestLoadFromPath_InvalidYAML(t *testing.T) {
	path := writeConfig(t, `
databaseDriver: [postgres
databaseURL: "postgres://localhost/rota"
`)

	_, err := LoadFromPath(path)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config file")
}

func TestLoadFromPath_FileNotFound(t *testing.T) {
	_, err := LoadFromPath("/nonexistent/path/config.yaml")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}
