package migrate

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tasklane/tasklane/internal/infrastructure/database"
	"github.com/tasklane/tasklane/internal/infrastructure/migration"
	"github.com/tasklane/tasklane/internal/interfaces/cli/bootstrap"
)

const defaultScriptsDir = "./internal/infrastructure/migration/scripts"

func NewCommand(opts *bootstrap.Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database migration tools",
		Long:  `Manage database migrations including running migrations, checking status, and creating new migration files.`,
	}

	cmd.AddCommand(
		newUpCommand(opts),
		newDownCommand(opts),
		newStatusCommand(opts),
		newCreateCommand(opts),
	)

	return cmd
}

func newUpCommand(opts *bootstrap.Options) *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Run all pending migrations",
		Long:  `Apply all pending database migrations to bring the database schema up to date.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDatabase(opts, func(rt *bootstrap.Runtime, strategy *migration.GooseStrategy) error {
				rt.Log.Infow("running up migrations", "environment", rt.Env)
				if err := strategy.Migrate(database.Get()); err != nil {
					return fmt.Errorf("migration failed: %w", err)
				}
				rt.Log.Infow("migrations completed successfully")
				return nil
			})
		},
	}
}

func newDownCommand(opts *bootstrap.Options) *cobra.Command {
	var steps int
	cmd := &cobra.Command{
		Use:   "down",
		Short: "Rollback migrations",
		Long:  `Rollback a specified number of database migrations.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDatabase(opts, func(rt *bootstrap.Runtime, strategy *migration.GooseStrategy) error {
				rt.Log.Infow("running down migrations", "environment", rt.Env, "steps", steps)
				if err := strategy.MigrateDown(database.Get(), steps); err != nil {
					return fmt.Errorf("down migration failed: %w", err)
				}
				rt.Log.Infow("down migration completed successfully")
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&steps, "steps", "n", 1, "Number of migrations to rollback")

	return cmd
}

func newStatusCommand(opts *bootstrap.Options) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		Long:  `Display the current migration version and status of the database.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDatabase(opts, func(rt *bootstrap.Runtime, strategy *migration.GooseStrategy) error {
				version, err := strategy.GetVersion(database.Get())
				if err != nil {
					return fmt.Errorf("failed to get migration version: %w", err)
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "\nMigration Status:\n")
				fmt.Fprintf(out, "  Environment:     %s\n", rt.Env)
				fmt.Fprintf(out, "  Current Version: %d\n", version)

				return strategy.Status(database.Get())
			})
		},
	}
}

func newCreateCommand(opts *bootstrap.Options) *cobra.Command {
	var name, dir string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new migration",
		Long:  `Create a new SQL migration file with the specified name.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := bootstrap.Load(*opts)
			if err != nil {
				return err
			}
			if err := migration.NewGooseStrategy(rt.Log).Create(dir, name); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Migration '%s' created in %s\n", name, dir)
			return nil
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "Name of the migration (required)")
	cmd.Flags().StringVarP(&dir, "dir", "d", defaultScriptsDir, "Directory the script is written to")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func withDatabase(opts *bootstrap.Options, fn func(*bootstrap.Runtime, *migration.GooseStrategy) error) error {
	rt, err := bootstrap.Load(*opts)
	if err != nil {
		return err
	}
	closeDB, err := rt.OpenDatabase()
	if err != nil {
		return err
	}
	defer closeDB()

	if err := fn(rt, migration.NewGooseStrategy(rt.Log)); err != nil {
		rt.Log.Errorw("migration command failed", "error", err)
		return err
	}
	return nil
}
