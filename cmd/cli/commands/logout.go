package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jakechorley/mass-rota/pkg/utils"
)

// LogoutCmd creates the logout command. It skips app initialization.
func LogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the saved Google OAuth token for the environment",
		Args:  cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {},
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := cmd.Flags().GetString("env")
			if err != nil {
				return err
			}

			utils.ClearToken()
			if err := utils.DeleteTokenFile(env); err != nil {
				return err
			}

			fmt.Printf("\n✓ Removed saved token for %s\n\n", env)
			return nil
		},
	}
}
