package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jakechorley/mass-rota/pkg/core/model"
	"github.com/jakechorley/mass-rota/pkg/core/services"
)

// CandidatesCmd creates the candidates command
func CandidatesCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "candidates <ministry> <date> <mass> <role>",
		Short: "List the ranked candidates for one role on one mass",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			schema, opts, err := app.Ministry(args[0])
			if err != nil {
				return err
			}

			candidates, err := services.ComputeCandidates(app.Ctx, app.Sources, schema, opts, app.Logger,
				args[1], args[2], model.RoleKey(args[3]))
			if err != nil {
				return err
			}

			fmt.Printf("\nCandidates for %s at %s on %s:\n\n", args[3], args[2], args[1])
			if len(candidates) == 0 {
				fmt.Println("No eligible members available.")
				fmt.Println()
				return nil
			}

			for i, c := range candidates {
				fmt.Println(formatCandidate(i+1, c))
			}
			fmt.Println()

			return nil
		},
	}
}
