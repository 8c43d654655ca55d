package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/teambition/rrule-go"
	"go.uber.org/zap"

	"github.com/jakechorley/mass-rota/pkg/core/model"
	"github.com/jakechorley/mass-rota/pkg/core/rotation"
)

// MassInstance is one mass held on one date
type MassInstance struct {
	Date      string
	MassLabel string

	// TemplateID is set for special masses; recurring masses use the schema defaults
	TemplateID string
}

// Occurrence groups the masses held on one date
type Occurrence struct {
	Date   string
	Masses []MassInstance
}

// monthBounds returns the first and last day of a month in UTC
func monthBounds(year int, month time.Month) (time.Time, time.Time, error) {
	if month < time.January || month > time.December {
		return time.Time{}, time.Time{}, fmt.Errorf("month must be between 1 and 12, got %d", month)
	}
	if year < 1 {
		return time.Time{}, time.Time{}, fmt.Errorf("year must be positive, got %d", year)
	}
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)
	return first, last, nil
}

// recurrenceEpoch anchors rules that carry no start of their own. It is a
// Sunday so weekly and biweekly rules keep one phase across every month.
var recurrenceEpoch = time.Date(2000, time.January, 2, 0, 0, 0, 0, time.UTC)

// recurrenceDates expands an RRULE between first and last (inclusive). The
// rule's own DTSTART wins over anchor; a zero anchor falls back to recurrenceEpoch.
func recurrenceDates(recurrence string, anchor, first, last time.Time) ([]time.Time, error) {
	if strings.TrimSpace(recurrence) == "" {
		return nil, nil
	}

	opt, err := rrule.StrToROption(recurrence)
	if err != nil {
		return nil, fmt.Errorf("invalid recurrence rule %q: %w", recurrence, err)
	}
	if opt.Dtstart.IsZero() {
		opt.Dtstart = anchor
		if anchor.IsZero() {
			opt.Dtstart = recurrenceEpoch
		}
	}

	rule, err := rrule.NewRRule(*opt)
	if err != nil {
		return nil, fmt.Errorf("invalid recurrence rule %q: %w", recurrence, err)
	}

	return rule.Between(first, last, true), nil
}

// OccurrencesInMonth returns the mass instances of a month in date order: every
// recurrence date crossed with the schema masses, merged with special masses.
// A special mass sharing a label with a recurring mass on the same date replaces
// its requirements. A failed special mass read is logged and skipped.
func OccurrencesInMonth(ctx context.Context, src Sources, schema rotation.RoleSchema, opts Options, logger *zap.Logger, year int, month time.Month) ([]Occurrence, error) {
	first, last, err := monthBounds(year, month)
	if err != nil {
		return nil, err
	}

	dates, err := recurrenceDates(schema.Recurrence, schema.RecurrenceStart, first, last)
	if err != nil {
		return nil, err
	}

	byDate := make(map[string][]MassInstance)
	for _, d := range dates {
		date := model.FormatDate(d)
		for _, label := range schema.Masses {
			byDate[date] = append(byDate[date], MassInstance{Date: date, MassLabel: label})
		}
	}

	specials, err := listSpecialMasses(ctx, src, schema, opts, model.FormatDate(first), model.FormatDate(last))
	if err != nil {
		logger.Warn("Special masses unavailable, using recurring masses only",
			zap.String("ministry", string(schema.Ministry)),
			zap.Error(err))
	}
	sort.SliceStable(specials, func(i, j int) bool {
		if specials[i].Date != specials[j].Date {
			return specials[i].Date < specials[j].Date
		}
		return specials[i].MassLabel < specials[j].MassLabel
	})

	for _, special := range specials {
		date := strings.TrimSpace(special.Date)
		if _, err := model.ParseDate(date); err != nil {
			logger.Warn("Skipping special mass with invalid date",
				zap.String("date", special.Date),
				zap.String("mass", special.MassLabel))
			continue
		}

		instance := MassInstance{Date: date, MassLabel: special.MassLabel, TemplateID: special.TemplateID}
		replaced := false
		for i, existing := range byDate[date] {
			if existing.MassLabel == special.MassLabel {
				byDate[date][i] = instance
				replaced = true
				break
			}
		}
		if !replaced {
			byDate[date] = append(byDate[date], instance)
		}
	}

	occurrences := make([]Occurrence, 0, len(byDate))
	for date, masses := range byDate {
		occurrences = append(occurrences, Occurrence{Date: date, Masses: masses})
	}
	sort.Slice(occurrences, func(i, j int) bool {
		return occurrences[i].Date < occurrences[j].Date
	})

	logger.Debug("Resolved month occurrences",
		zap.String("ministry", string(schema.Ministry)),
		zap.Int("recurring_dates", len(dates)),
		zap.Int("special_masses", len(specials)),
		zap.Int("occurrences", len(occurrences)))

	return occurrences, nil
}

func listSpecialMasses(ctx context.Context, src Sources, schema rotation.RoleSchema, opts Options, from, to string) ([]model.SpecialMass, error) {
	if src.Requirements == nil {
		return nil, nil
	}
	opCtx, cancel := withTimeout(ctx, opts)
	defer cancel()

	specials, err := src.Requirements.ListSpecialMasses(opCtx, schema.Ministry, from, to)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list special masses: %w", ErrDataSourceUnavailable, err)
	}
	return specials, nil
}

// RequirementsFor returns the role counts of a mass: the schema defaults for a
// recurring mass, the template counts for a special one
func RequirementsFor(ctx context.Context, src Sources, schema rotation.RoleSchema, opts Options, templateID string) (model.Requirements, error) {
	if templateID == "" {
		return schema.DefaultRequirements(), nil
	}
	if src.Requirements == nil {
		return nil, fmt.Errorf("no requirement provider for template %s", templateID)
	}

	opCtx, cancel := withTimeout(ctx, opts)
	defer cancel()

	counts, err := src.Requirements.GetTemplateRequirements(opCtx, schema.Ministry, templateID)
	if err != nil {
		return nil, fmt.Errorf("failed to get requirements for template %s: %w", templateID, err)
	}

	reqs := make(model.Requirements, len(counts))
	for role, count := range counts {
		reqs[role] = count
	}
	return reqs, nil
}

// withTimeout bounds a single store call
func withTimeout(ctx context.Context, opts Options) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, opts.timeout())
}

// loadRoster reads and normalizes the roster. A failed read degrades to an empty roster.
func loadRoster(ctx context.Context, src Sources, schema rotation.RoleSchema, opts Options, logger *zap.Logger) []model.Member {
	opCtx, cancel := withTimeout(ctx, opts)
	defer cancel()

	rows, err := src.Roster.ListMembers(opCtx, schema.Ministry)
	if err != nil {
		logger.Warn("Roster unavailable, continuing with an empty roster",
			zap.String("ministry", string(schema.Ministry)),
			zap.Error(fmt.Errorf("%w: %w", ErrDataSourceUnavailable, err)))
		return []model.Member{}
	}

	members := rotation.NormalizeMembers(rows)
	logger.Debug("Loaded roster",
		zap.String("ministry", string(schema.Ministry)),
		zap.Int("rows", len(rows)),
		zap.Int("members", len(members)))
	return members
}

// loadEligibility resolves eligibility from the capability matrix.
// A failed read degrades to empty eligibility.
func loadEligibility(ctx context.Context, src Sources, schema rotation.RoleSchema, opts Options, logger *zap.Logger) rotation.Eligibility {
	eligibility, err := resolveEligibility(ctx, src, schema, opts, logger)
	if err != nil {
		logger.Warn("Eligibility unavailable, continuing with no eligible members",
			zap.String("ministry", string(schema.Ministry)),
			zap.Error(err))
		return rotation.EmptyEligibility()
	}
	return eligibility
}

func resolveEligibility(ctx context.Context, src Sources, schema rotation.RoleSchema, opts Options, logger *zap.Logger) (rotation.Eligibility, error) {
	opCtx, cancel := withTimeout(ctx, opts)
	defer cancel()

	rows, err := src.Eligibility.ListCapabilities(opCtx, schema.Ministry)
	if err != nil {
		return rotation.Eligibility{}, fmt.Errorf("%w: failed to list capabilities: %w", ErrDataSourceUnavailable, err)
	}

	rows, unmatched := schema.CanonicalCapabilities(rows)
	if len(unmatched) > 0 {
		columns := make([]string, len(unmatched))
		for i, c := range unmatched {
			columns[i] = string(c)
		}
		logger.Warn("Capability columns match no configured role",
			zap.String("ministry", string(schema.Ministry)),
			zap.Strings("columns", columns))
	}

	return rotation.ResolveEligibility(rows), nil
}

// loadHistory reads assignments dated in [since, before).
// A failed read degrades to empty history, which scores everyone as new.
func loadHistory(ctx context.Context, src Sources, schema rotation.RoleSchema, opts Options, logger *zap.Logger, since, before string) []model.HistoricalAssignment {
	opCtx, cancel := withTimeout(ctx, opts)
	defer cancel()

	history, err := src.Assignments.ListHistoricalAssignments(opCtx, schema.Ministry, since, before)
	if err != nil {
		logger.Warn("Assignment history unavailable, scoring without history",
			zap.String("ministry", string(schema.Ministry)),
			zap.String("since", since),
			zap.String("before", before),
			zap.Error(fmt.Errorf("%w: %w", ErrDataSourceUnavailable, err)))
		return []model.HistoricalAssignment{}
	}
	return history
}

// historyWindow returns the scoring window [since, before) ending at date
func historyWindow(date time.Time, windowDays int) (string, string) {
	return model.FormatDate(date.AddDate(0, 0, -windowDays)), model.FormatDate(date)
}

// historyBefore narrows a history snapshot to the scoring window ending at date
func historyBefore(snapshot []model.HistoricalAssignment, date time.Time, windowDays int) []model.HistoricalAssignment {
	since, before := historyWindow(date, windowDays)
	window := make([]model.HistoricalAssignment, 0, len(snapshot))
	for _, h := range snapshot {
		if h.Date >= since && h.Date < before {
			window = append(window, h)
		}
	}
	return window
}

// parseTarget validates the date, mass and role of a single-slot operation
func parseTarget(date, massLabel string, role model.RoleKey) (time.Time, error) {
	target, err := model.ParseDate(date)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD: %w", date, err)
	}
	if strings.TrimSpace(massLabel) == "" {
		return time.Time{}, fmt.Errorf("mass label is required")
	}
	if strings.TrimSpace(string(role)) == "" {
		return time.Time{}, fmt.Errorf("role is required")
	}
	return target, nil
}
