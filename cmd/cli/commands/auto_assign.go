package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jakechorley/mass-rota/pkg/core/model"
	"github.com/jakechorley/mass-rota/pkg/core/services"
)

// AutoAssignCmd creates the autoAssign command
func AutoAssignCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "autoAssign <ministry> <year> <month>",
		Short: "Fill every vacant slot of a month from the rotation",
		Long: `Fill every vacant slot of every mass in a month, fairest member first.

Existing assignments are kept. A month that is already fully staffed is
skipped unless --force is given.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			force, _ := cmd.Flags().GetBool("force")

			schema, opts, err := app.Ministry(args[0])
			if err != nil {
				return err
			}
			year, month, err := parseYearMonth(args[1], args[2])
			if err != nil {
				return err
			}

			if !force {
				completeness, err := services.CheckMonthComplete(app.Ctx, app.Sources, schema, opts, app.Logger, year, month)
				if err != nil {
					return err
				}
				if completeness.IsComplete {
					fmt.Printf("\n✓ %s %d is already fully staffed (%d masses). Use --force to run anyway.\n\n",
						month, year, completeness.TotalMassSlots)
					return nil
				}
			}

			if app.Cfg.MetricsAddr != "" && app.Metrics != nil {
				stop := serveMetrics(app, app.Cfg.MetricsAddr)
				defer stop()
			}

			fmt.Printf("\nAuto-assigning %s for %s %d...\n", schema.Ministry, month, year)
			observer := services.ProgressFunc(func(p model.Progress) {
				fmt.Printf("\r%s", formatProgress(p))
			})

			result, err := services.RunMonthlyAutoAssign(app.Ctx, app.Sources, schema, opts, app.Logger, year, month, observer)
			fmt.Println()
			if err != nil {
				return err
			}

			printAutoAssignResult(result)
			return nil
		},
	}

	cmd.Flags().Bool("force", false, "Run even when the month is already fully staffed")

	return cmd
}

func printAutoAssignResult(result *services.AutoAssignResult) {
	switch result.Status {
	case services.StatusCompleted:
		fmt.Printf("\n✓ Auto-assign completed in %s\n\n", result.Duration.Round(time.Millisecond))
	case services.StatusCompletedWithErrors:
		fmt.Printf("\n⚠️  Auto-assign completed with %d error(s) in %s\n\n", len(result.Errors), result.Duration.Round(time.Millisecond))
	case services.StatusAborted:
		fmt.Printf("\n✗ Auto-assign aborted: %s\n\n", result.AbortReason)
		return
	case services.StatusCancelled:
		fmt.Printf("\n✗ Auto-assign cancelled; assignments saved so far are kept\n\n")
	}

	fmt.Printf("Masses processed:  %d/%d\n", result.Stats.MassesProcessed, result.Stats.TotalMasses)
	fmt.Printf("Assignments made:  %d\n", result.Stats.AssignmentsMade)
	fmt.Printf("Vacant slots left: %d\n\n", result.Stats.Shortfalls)

	shortfalls := 0
	for _, o := range result.Outcomes {
		if o.Shortfall > 0 {
			if shortfalls == 0 {
				fmt.Printf("Shortfalls:\n")
			}
			shortfalls++
			fmt.Printf("  - %s %s %s: %d of %d vacant\n", o.Date, o.MassLabel, o.Role, o.Shortfall, o.Required)
		}
	}
	if shortfalls > 0 {
		fmt.Println()
	}

	if len(result.Errors) > 0 {
		fmt.Printf("Errors:\n")
		for _, e := range result.Errors {
			fmt.Printf("  ✗ %s\n", e.Error())
		}
		fmt.Println()
	}
}

// serveMetrics exposes the run metrics for the duration of a run. The returned
// function shuts the server down.
func serveMetrics(app *AppContext, addr string) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", app.Metrics.Handler())
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.Logger.Warn("Metrics server stopped", zap.String("addr", addr), zap.Error(err))
		}
	}()
	app.Logger.Info("Serving metrics", zap.String("addr", addr))

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(ctx)
	}
}
