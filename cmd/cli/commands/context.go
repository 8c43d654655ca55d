package commands

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/jakechorley/mass-rota/internal/config"
	"github.com/jakechorley/mass-rota/pkg/core/rotation"
	"github.com/jakechorley/mass-rota/pkg/core/services"
	"github.com/jakechorley/mass-rota/pkg/db"
	"github.com/jakechorley/mass-rota/pkg/metrics"
)

// AppContext holds the application dependencies shared across all commands
type AppContext struct {
	Cfg      *config.Config
	Database db.Database
	Sources  services.Sources
	Metrics  *metrics.Collector
	Logger   *zap.Logger
	Ctx      context.Context
}

// Ministry resolves the role schema and engine options of a configured ministry
func (app *AppContext) Ministry(key string) (rotation.RoleSchema, services.Options, error) {
	schema, err := services.SchemaFromConfig(app.Cfg, key)
	if err != nil {
		return rotation.RoleSchema{}, services.Options{}, err
	}

	var runMetrics services.RunMetrics
	if app.Metrics != nil {
		runMetrics = app.Metrics
	}

	return schema, services.OptionsFromConfig(app.Cfg, runMetrics), nil
}

// parseYearMonth parses the <year> <month> arguments shared by the monthly commands
func parseYearMonth(yearArg, monthArg string) (int, time.Month, error) {
	year, err := strconv.Atoi(yearArg)
	if err != nil || year < 1 {
		return 0, 0, fmt.Errorf("year must be a positive number: %s", yearArg)
	}

	month, err := strconv.Atoi(monthArg)
	if err != nil || month < 1 || month > 12 {
		return 0, 0, fmt.Errorf("month must be a number between 1 and 12: %s", monthArg)
	}

	return year, time.Month(month), nil
}
