package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jakechorley/mass-rota/pkg/core/services"
)

// ListMembersCmd creates the listMembers command
func ListMembersCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "listMembers <ministry>",
		Short: "List the active roster of a ministry with each member's roles",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			schema, opts, err := app.Ministry(args[0])
			if err != nil {
				return err
			}

			members, err := services.ListMembers(app.Ctx, app.Sources, schema, opts, app.Logger)
			if err != nil {
				return err
			}

			fmt.Printf("\nFound %d members:\n\n", len(members))
			for _, m := range members {
				fmt.Printf("- %s (%s) - %s - %s - %s\n",
					m.FullName,
					m.ID,
					m.Sex,
					m.Flexibility,
					formatRoles(m.Roles),
				)
			}
			fmt.Println()

			return nil
		},
	}
}
