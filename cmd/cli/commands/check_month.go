package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jakechorley/mass-rota/pkg/core/services"
)

// CheckMonthCmd creates the checkMonth command
func CheckMonthCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "checkMonth <ministry> <year> <month>",
		Short: "Report whether every mass of a month is fully staffed",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			schema, opts, err := app.Ministry(args[0])
			if err != nil {
				return err
			}
			year, month, err := parseYearMonth(args[1], args[2])
			if err != nil {
				return err
			}

			result, err := services.CheckMonthComplete(app.Ctx, app.Sources, schema, opts, app.Logger, year, month)
			if err != nil {
				return err
			}

			printCompleteness(result)
			return nil
		},
	}
}

func printCompleteness(result *services.CompletenessResult) {
	mark := "✗"
	if result.IsComplete {
		mark = "✓"
	}
	fmt.Printf("\n%s %d of %d masses fully staffed\n", mark, result.CompleteMassSlots, result.TotalMassSlots)

	if len(result.Incomplete) > 0 {
		fmt.Printf("\nUnderstaffed masses:\n")
		for _, m := range result.Incomplete {
			fmt.Printf("  - %s %s\n", m.Date, m.MassLabel)
		}
	}
	fmt.Println()
}
