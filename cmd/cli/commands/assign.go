package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jakechorley/mass-rota/pkg/core/model"
	"github.com/jakechorley/mass-rota/pkg/core/services"
)

// AssignCmd creates the assign command
func AssignCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "assign <ministry> <date> <mass> <role> [member_id...]",
		Short: "Save a manual selection for one role on one mass (no members clears the role)",
		Args:  cobra.MinimumNArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			schema, opts, err := app.Ministry(args[0])
			if err != nil {
				return err
			}

			result, err := services.CommitSlotAssignment(app.Ctx, app.Sources, schema, opts, app.Logger,
				args[1], args[2], model.RoleKey(args[3]), args[4:])
			if err != nil {
				return err
			}

			switch {
			case !result.Written:
				fmt.Printf("\n✗ Nothing saved - every member was rejected\n\n")
			case len(result.Accepted) == 0:
				fmt.Printf("\n✓ Cleared %s at %s on %s\n\n", args[3], args[2], args[1])
			default:
				fmt.Printf("\n✓ Saved %d member(s) to %s at %s on %s\n\n", result.Saved, args[3], args[2], args[1])
				for i, id := range result.Accepted {
					fmt.Printf("  Slot %d: %s\n", i+1, id)
				}
				fmt.Println()
			}

			if len(result.Rejected) > 0 {
				fmt.Printf("⚠️  Rejected %d member(s):\n", len(result.Rejected))
				for _, r := range result.Rejected {
					fmt.Printf("  ✗ %s: %s\n", r.MemberID, r.Reason)
				}
				fmt.Println()
			}

			return nil
		},
	}
}
