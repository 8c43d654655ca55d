package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jakechorley/mass-rota/cmd/cli/commands"
	"github.com/jakechorley/mass-rota/internal/config"
	"github.com/jakechorley/mass-rota/pkg/clients/sheetsclient"
	"github.com/jakechorley/mass-rota/pkg/core/model"
	"github.com/jakechorley/mass-rota/pkg/db"
	"github.com/jakechorley/mass-rota/pkg/metrics"
	"github.com/jakechorley/mass-rota/pkg/postgres"
	"github.com/jakechorley/mass-rota/pkg/sqlite"
	"github.com/jakechorley/mass-rota/pkg/utils/logging"
)

var (
	env     string
	verbose bool
	app     = &commands.AppContext{}
	stop    context.CancelFunc
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "cli",
		Short: "Mass Rota CLI - Assign ministry members to masses",
		Long:  `A CLI tool for ranking candidates, assigning members to mass roles, and auto-filling monthly rotas.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initApp()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			closeApp()
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&env, "env", "e", "", "Environment (required: test, prod, etc.)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Print debug logs to the console")
	rootCmd.MarkPersistentFlagRequired("env")

	rootCmd.AddCommand(commands.CandidatesCmd(app))
	rootCmd.AddCommand(commands.AssignCmd(app))
	rootCmd.AddCommand(commands.AutoAssignCmd(app))
	rootCmd.AddCommand(commands.CheckMonthCmd(app))
	rootCmd.AddCommand(commands.ListMembersCmd(app))
	rootCmd.AddCommand(commands.ImportCmd(app))
	rootCmd.AddCommand(commands.LogoutCmd())

	if err := rootCmd.Execute(); err != nil {
		closeApp()
		os.Exit(1)
	}
}

// initApp sets up logger, config, database, roster source and metrics
func initApp() error {
	var err error
	app.Ctx, stop = signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	app.Logger, err = logging.InitLogger(env, verbose)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	app.Logger.Info("Starting application", zap.String("environment", env))

	app.Logger.Debug("Loading configuration")
	app.Cfg, err = config.LoadWithEnv(env)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	app.Logger.Debug("Configuration loaded successfully",
		zap.String("database_driver", app.Cfg.DatabaseDriver),
		zap.String("roster_source", app.Cfg.RosterSource),
		zap.Int("ministries", len(app.Cfg.Ministries)))

	app.Database, err = openDatabase(app.Ctx, app.Cfg, app.Logger)
	if err != nil {
		return err
	}
	app.Sources = db.Sources(app.Database)

	if app.Cfg.RosterSource == config.RosterFromSheets {
		roster, err := openRosterSheet(app.Ctx, app.Cfg, app.Logger)
		if err != nil {
			return err
		}
		app.Sources.Roster = roster
		app.Sources.Eligibility = roster
	}

	app.Metrics = metrics.NewCollector()

	return nil
}

func openDatabase(ctx context.Context, cfg *config.Config, logger *zap.Logger) (db.Database, error) {
	switch cfg.DatabaseDriver {
	case config.DriverPostgres:
		logger.Info("Connecting to database", zap.String("driver", cfg.DatabaseDriver))
		database, err := postgres.NewDB(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		if err := database.RunMigrations(ctx); err != nil {
			database.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		logger.Debug("Database initialized successfully")
		return database, nil

	case config.DriverSQLite:
		logger.Info("Opening database", zap.String("driver", cfg.DatabaseDriver), zap.String("path", cfg.SQLitePath))
		database, err := sqlite.NewDB(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		logger.Debug("Database initialized successfully")
		return database, nil

	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.DatabaseDriver)
	}
}

func openRosterSheet(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*sheetsclient.RosterSource, error) {
	logger.Debug("Loading OAuth client configuration")
	oauthCfg, err := config.LoadOAuthClientWithEnv(env)
	if err != nil {
		return nil, fmt.Errorf("failed to load OAuth client config: %w", err)
	}

	logger.Info("Initializing sheets client", zap.String("spreadsheet_id", cfg.RosterSheetID))
	client, err := sheetsclient.NewClient(ctx, oauthCfg, env, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets client: %w", err)
	}

	tabs := make(map[model.Ministry]sheetsclient.Tabs, len(cfg.Ministries))
	for _, m := range cfg.Ministries {
		tabs[model.Ministry(m.Key)] = sheetsclient.Tabs{Members: m.MembersTab, Capabilities: m.CapabilitiesTab}
	}

	return sheetsclient.NewRosterSource(client, cfg.RosterSheetID, tabs), nil
}

func closeApp() {
	if app.Database != nil {
		if err := app.Database.Close(); err != nil && app.Logger != nil {
			app.Logger.Warn("Failed to close database", zap.Error(err))
		}
		app.Database = nil
	}
	if app.Logger != nil {
		app.Logger.Sync()
	}
	if stop != nil {
		stop()
	}
}
