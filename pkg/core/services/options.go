package services

import (
	"fmt"
	"time"

	"github.com/jakechorley/mass-rota/internal/config"
	"github.com/jakechorley/mass-rota/pkg/core/model"
	"github.com/jakechorley/mass-rota/pkg/core/rotation"
)

// RunMetrics receives engine events. Implemented by metrics.Collector.
type RunMetrics interface {
	RunStarted(ministry model.Ministry)
	RunFinished(ministry model.Ministry, status string, duration time.Duration)
	AssignmentsMade(ministry model.Ministry, role model.RoleKey, count int)
	ShortfallRecorded(ministry model.Ministry, role model.RoleKey, slots int)
	IterationFailed(ministry model.Ministry, role model.RoleKey)
	SelectionRejected(ministry model.Ministry, role model.RoleKey, count int)
}

// Options tunes the engine operations
type Options struct {
	// HistoryWindowDays is the length of the trailing scoring window
	HistoryWindowDays int

	// OperationTimeout bounds every individual store call
	OperationTimeout time.Duration

	// ProgressInterval is the minimum time between two progress reports
	ProgressInterval time.Duration

	// Metrics is optional
	Metrics RunMetrics
}

// DefaultOptions returns the options used when nothing is configured
func DefaultOptions() Options {
	return Options{
		HistoryWindowDays: config.DefaultHistoryWindowDays,
		OperationTimeout:  config.DefaultOperationTimeout,
		ProgressInterval:  config.DefaultProgressInterval,
	}
}

// OptionsFromConfig builds options from the application configuration
func OptionsFromConfig(cfg *config.Config, metrics RunMetrics) Options {
	opts := DefaultOptions()
	if cfg.HistoryWindowDays > 0 {
		opts.HistoryWindowDays = cfg.HistoryWindowDays
	}
	if cfg.OperationTimeout > 0 {
		opts.OperationTimeout = cfg.OperationTimeout
	}
	if cfg.ProgressInterval > 0 {
		opts.ProgressInterval = cfg.ProgressInterval
	}
	opts.Metrics = metrics
	return opts
}

func (o Options) metrics() RunMetrics {
	if o.Metrics == nil {
		return noopMetrics{}
	}
	return o.Metrics
}

func (o Options) timeout() time.Duration {
	if o.OperationTimeout <= 0 {
		return config.DefaultOperationTimeout
	}
	return o.OperationTimeout
}

func (o Options) historyWindowDays() int {
	if o.HistoryWindowDays <= 0 {
		return config.DefaultHistoryWindowDays
	}
	return o.HistoryWindowDays
}

type noopMetrics struct{}

func (noopMetrics) RunStarted(model.Ministry) {}
func (noopMetrics) RunFinished(model.Ministry, string, time.Duration) {}
func (noopMetrics) AssignmentsMade(model.Ministry, model.RoleKey, int) {}
func (noopMetrics) ShortfallRecorded(model.Ministry, model.RoleKey, int) {}
func (noopMetrics) IterationFailed(model.Ministry, model.RoleKey) {}
func (noopMetrics) SelectionRejected(model.Ministry, model.RoleKey, int) {}

// SchemaFromConfig builds the role schema of a configured ministry
func SchemaFromConfig(cfg *config.Config, ministryKey string) (rotation.RoleSchema, error) {
	ministry, err := cfg.Ministry(ministryKey)
	if err != nil {
		return rotation.RoleSchema{}, err
	}

	schema := rotation.RoleSchema{
		Ministry:   model.Ministry(ministry.Key),
		Masses:     append([]string(nil), ministry.Masses...),
		Recurrence: ministry.RRule,
	}
	if ministry.RecurrenceStart != "" {
		start, err := model.ParseDate(ministry.RecurrenceStart)
		if err != nil {
			return rotation.RoleSchema{}, fmt.Errorf("invalid recurrenceStart for ministry %s: %w", ministryKey, err)
		}
		schema.RecurrenceStart = start
	}
	for _, role := range ministry.Roles {
		schema.Roles = append(schema.Roles, rotation.RoleSpec{
			Key:          model.RoleKey(role.Key),
			DefaultCount: role.Count,
			PairBySex:    role.PairBySex,
		})
	}

	if len(schema.Roles) == 0 {
		return rotation.RoleSchema{}, fmt.Errorf("ministry %s has no roles", ministryKey)
	}

	return schema, nil
}
