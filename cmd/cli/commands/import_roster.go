package commands

import (
	"bytes"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/jakechorley/mass-rota/internal/config"
	"github.com/jakechorley/mass-rota/pkg/core/services"
)

// ImportCmd creates the import command
func ImportCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "import <ministry> <file>",
		Short: "Seed a database roster, templates and special masses from a YAML file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.Cfg.RosterSource == config.RosterFromSheets {
				fmt.Println("⚠️  Roster is read from Google Sheets; only templates and special masses are used by the engine")
			}

			schema, opts, err := app.Ministry(args[0])
			if err != nil {
				return err
			}

			data, err := readRosterImport(args[1])
			if err != nil {
				return err
			}

			result, err := services.ImportRoster(app.Ctx, app.Database, schema, opts, app.Logger, data)
			if err != nil {
				fmt.Printf("✗ Import failed: %v\n", err)
				return err
			}

			fmt.Printf("✓ Imported %d members, %d templates and %d special masses into %s\n",
				result.Members, result.Templates, result.SpecialMasses, schema.Ministry)

			return nil
		},
	}
}

func readRosterImport(path string) (services.RosterImport, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return services.RosterImport{}, fmt.Errorf("failed to read import file: %w", err)
	}
	return parseRosterImport(raw)
}

func parseRosterImport(raw []byte) (services.RosterImport, error) {
	var data services.RosterImport
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&data); err != nil {
		return services.RosterImport{}, fmt.Errorf("failed to parse import file: %w", err)
	}
	return data, nil
}
