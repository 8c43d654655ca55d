package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/jakechorley/mass-rota/pkg/core/model"
	"github.com/jakechorley/mass-rota/pkg/core/rotation"
)

// RunStatus is the state of a monthly auto-assign run
type RunStatus string

const (
	StatusIdle                RunStatus = "Idle"
	StatusRunning             RunStatus = "Running"
	StatusCompleted           RunStatus = "Completed"
	StatusCompletedWithErrors RunStatus = "CompletedWithErrors"
	StatusAborted             RunStatus = "Aborted"
	StatusCancelled           RunStatus = "Cancelled"
)

// IterationError records a failure for one role on one mass. The run continues.
type IterationError struct {
	Date      string
	MassLabel string
	Role      model.RoleKey
	Message   string
}

func (e IterationError) Error() string {
	if e.Role == "" {
		return fmt.Sprintf("%s %s: %s", e.Date, e.MassLabel, e.Message)
	}
	return fmt.Sprintf("%s %s %s: %s", e.Date, e.MassLabel, e.Role, e.Message)
}

// RoleOutcome summarizes the fill of one role on one mass
type RoleOutcome struct {
	Date      string
	MassLabel string
	Role      model.RoleKey
	Required  int
	Existing  int
	Assigned  []string
	Shortfall int
	PairedSex model.Sex
}

// RunStats are the counters of a run
type RunStats struct {
	model.Progress

	// Shortfalls counts slots left vacant because no candidate was available
	Shortfalls int
}

// AutoAssignResult is the outcome of RunMonthlyAutoAssign
type AutoAssignResult struct {
	Status      RunStatus
	Stats       RunStats
	Errors      []IterationError
	Outcomes    []RoleOutcome
	AbortReason string
	Duration    time.Duration
}

// autoAssignRun carries the state shared by the iterations of one run
type autoAssignRun struct {
	src      Sources
	schema   rotation.RoleSchema
	opts     Options
	logger   *zap.Logger
	reporter *progressReporter
	result   *AutoAssignResult

	members     []model.Member
	membersByID map[string]model.Member
	eligibility rotation.Eligibility

	// history is the scoring snapshot, extended with this run's own commits
	history []model.HistoricalAssignment
}

// RunMonthlyAutoAssign fills the vacant slots of every mass in a month.
//
// Masses are visited in date order and roles in schema order. Each role is
// filled greedily from its candidate pool; roles without candidates are
// recorded as shortfalls and failed commits as iteration errors, and the run
// carries on. Eligibility and history are read once per run. Picks made by
// the run are visible to the rest of the run for both same-day exclusivity
// and scoring.
//
// The run is Aborted when the month has no masses or no member is eligible
// for anything. It is Cancelled when ctx is done before an iteration starts;
// a commit in flight is always finished.
func RunMonthlyAutoAssign(
	ctx context.Context,
	src Sources,
	schema rotation.RoleSchema,
	opts Options,
	logger *zap.Logger,
	year int,
	month time.Month,
	observer ProgressObserver,
) (*AutoAssignResult, error) {
	first, last, err := monthBounds(year, month)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	metrics := opts.metrics()
	result := &AutoAssignResult{Status: StatusRunning}

	run := &autoAssignRun{
		src:      src,
		schema:   schema,
		opts:     opts,
		logger:   logger.With(zap.String("ministry", string(schema.Ministry))),
		reporter: newProgressReporter(observer, opts.ProgressInterval),
		result:   result,
	}

	run.logger.Info("Starting monthly auto-assign",
		zap.Int("year", year),
		zap.String("month", month.String()))
	metrics.RunStarted(schema.Ministry)

	finish := func(status RunStatus) (*AutoAssignResult, error) {
		result.Status = status
		result.Duration = time.Since(start)
		run.reporter.flush(result.Stats.Progress)
		metrics.RunFinished(schema.Ministry, string(status), result.Duration)
		run.logger.Info("Monthly auto-assign finished",
			zap.String("status", string(status)),
			zap.Int("assignments", result.Stats.AssignmentsMade),
			zap.Int("errors", result.Stats.Errors),
			zap.Int("shortfalls", result.Stats.Shortfalls),
			zap.Duration("duration", result.Duration))
		return result, nil
	}

	occurrences, err := OccurrencesInMonth(ctx, src, schema, opts, run.logger, year, month)
	if err != nil {
		return nil, err
	}
	if len(occurrences) == 0 {
		result.AbortReason = "no mass dates in month"
		return finish(StatusAborted)
	}

	run.members = loadRoster(ctx, src, schema, opts, run.logger)
	run.membersByID = rotation.MembersByID(run.members)
	run.eligibility = loadEligibility(ctx, src, schema, opts, run.logger)
	if run.eligibility.MemberCount() == 0 {
		result.AbortReason = "no eligible members"
		return finish(StatusAborted)
	}

	// One read covers the window of the first date through the end of the month;
	// each iteration narrows it to the window ending at its own date.
	since, _ := historyWindow(first, opts.historyWindowDays())
	run.history = loadHistory(ctx, src, schema, opts, run.logger, since, model.FormatDate(last.AddDate(0, 0, 1)))

	result.Stats.TotalOccurrences = len(occurrences)
	for _, occ := range occurrences {
		result.Stats.TotalMasses += len(occ.Masses)
	}
	run.reporter.flush(result.Stats.Progress)

	for _, occ := range occurrences {
		if ctx.Err() != nil {
			return finish(StatusCancelled)
		}
		if cancelled := run.processOccurrence(ctx, occ); cancelled {
			return finish(StatusCancelled)
		}
		result.Stats.OccurrencesProcessed++
		run.reporter.report(result.Stats.Progress)
	}

	if result.Stats.Errors > 0 {
		return finish(StatusCompletedWithErrors)
	}
	return finish(StatusCompleted)
}

// processOccurrence fills every mass of one date. It returns true when ctx was
// cancelled before an iteration.
func (r *autoAssignRun) processOccurrence(ctx context.Context, occ Occurrence) bool {
	target, err := model.ParseDate(occ.Date)
	if err != nil {
		for _, mass := range occ.Masses {
			r.recordError(mass, "", fmt.Sprintf("invalid date: %v", err))
			r.result.Stats.MassesProcessed++
		}
		return false
	}

	dayAssignments, err := listDayAssignments(ctx, r.src, r.schema, r.opts, occ.Date)
	if err != nil {
		for _, mass := range occ.Masses {
			r.recordError(mass, "", err.Error())
			r.result.Stats.MassesProcessed++
		}
		return false
	}

	history := historyBefore(r.history, target, r.opts.historyWindowDays())

	for _, mass := range occ.Masses {
		reqs, err := RequirementsFor(ctx, r.src, r.schema, r.opts, mass.TemplateID)
		if err != nil {
			r.recordError(mass, "", err.Error())
			r.result.Stats.MassesProcessed++
			r.reporter.report(r.result.Stats.Progress)
			continue
		}

		for _, role := range r.schema.OrderedRoles(reqs) {
			if ctx.Err() != nil {
				return true
			}
			dayAssignments = r.fillRole(ctx, target, mass, role, reqs.Count(role), dayAssignments, history)
			r.reporter.report(r.result.Stats.Progress)
		}

		r.result.Stats.MassesProcessed++
		r.reporter.report(r.result.Stats.Progress)
	}

	return false
}

// fillRole selects and commits members for the vacant slots of one role and
// returns the day's assignments including the new ones
func (r *autoAssignRun) fillRole(
	ctx context.Context,
	target time.Time,
	mass MassInstance,
	role model.RoleKey,
	required int,
	dayAssignments []model.Assignment,
	history []model.HistoricalAssignment,
) []model.Assignment {
	if len(model.SlotsFor(dayAssignments, mass.MassLabel, role).Vacant(required)) == 0 {
		return dayAssignments
	}
	existing := rotation.RoleAssignments(dayAssignments, mass.MassLabel, role)

	candidates := rotation.BuildCandidatePool(rotation.PoolInput{
		Role:           role,
		MassLabel:      mass.MassLabel,
		TargetDate:     target,
		Members:        r.members,
		Eligibility:    r.eligibility,
		History:        history,
		DayAssignments: dayAssignments,
	})

	selection := rotation.SelectForSlots(rotation.SlotInput{
		Candidates: candidates,
		Required:   required,
		Existing:   existing,
		PairBySex:  r.schema.PairsBySex(role),
		Members:    r.membersByID,
	})

	outcome := RoleOutcome{
		Date:      mass.Date,
		MassLabel: mass.MassLabel,
		Role:      role,
		Required:  required,
		Existing:  len(existing),
		Assigned:  []string{},
		PairedSex: selection.PairedSex,
	}

	if len(selection.Selected) > 0 {
		// The commit runs to completion even if ctx is cancelled meanwhile
		commitCtx, cancel := withTimeout(context.WithoutCancel(ctx), r.opts)
		_, err := r.src.Assignments.ReplaceRoleAssignments(commitCtx, r.schema.Ministry, mass.Date, mass.MassLabel, role, selection.MemberIDs)
		cancel()
		if err != nil {
			r.recordError(mass, role, fmt.Errorf("%w: %w", ErrPersistenceFailure, err).Error())
			outcome.Shortfall = selection.Needed
			r.result.Outcomes = append(r.result.Outcomes, outcome)
			return dayAssignments
		}

		dayAssignments = replaceRole(dayAssignments, r.schema.Ministry, mass, role, selection.MemberIDs)
		for _, candidate := range selection.Selected {
			r.history = append(r.history, model.HistoricalAssignment{
				MemberID: candidate.ID,
				Role:     role,
				Date:     mass.Date,
			})
			outcome.Assigned = append(outcome.Assigned, candidate.ID)
		}
		r.result.Stats.AssignmentsMade += len(selection.Selected)
		r.opts.metrics().AssignmentsMade(r.schema.Ministry, role, len(selection.Selected))
	}

	if selection.Shortfall > 0 {
		outcome.Shortfall = selection.Shortfall
		r.result.Stats.Shortfalls += selection.Shortfall
		r.opts.metrics().ShortfallRecorded(r.schema.Ministry, role, selection.Shortfall)
		r.logger.Debug("No candidates for remaining slots",
			zap.String("date", mass.Date),
			zap.String("mass", mass.MassLabel),
			zap.String("role", string(role)),
			zap.Int("shortfall", selection.Shortfall))
	}

	r.result.Outcomes = append(r.result.Outcomes, outcome)
	return dayAssignments
}

// replaceRole mirrors ReplaceRoleAssignments on the in-memory day view:
// memberIDs[i] holds slot i+1.
func replaceRole(dayAssignments []model.Assignment, ministry model.Ministry, mass MassInstance, role model.RoleKey, memberIDs []string) []model.Assignment {
	kept := make([]model.Assignment, 0, len(dayAssignments)+len(memberIDs))
	for _, a := range dayAssignments {
		if a.MassLabel == mass.MassLabel && a.Role == role {
			continue
		}
		kept = append(kept, a)
	}
	for i, id := range memberIDs {
		kept = append(kept, model.Assignment{
			Ministry:  ministry,
			Date:      mass.Date,
			MassLabel: mass.MassLabel,
			Role:      role,
			Slot:      i + 1,
			MemberID:  id,
		})
	}
	return kept
}

func (r *autoAssignRun) recordError(mass MassInstance, role model.RoleKey, message string) {
	iterErr := IterationError{
		Date:      mass.Date,
		MassLabel: mass.MassLabel,
		Role:      role,
		Message:   message,
	}
	r.result.Errors = append(r.result.Errors, iterErr)
	r.result.Stats.Errors++
	r.opts.metrics().IterationFailed(r.schema.Ministry, role)
	r.logger.Warn("Auto-assign iteration failed", zap.Error(iterErr))
}
