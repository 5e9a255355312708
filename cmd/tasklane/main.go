package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tasklane/tasklane/internal/interfaces/cli/bootstrap"
	"github.com/tasklane/tasklane/internal/interfaces/cli/migrate"
	"github.com/tasklane/tasklane/internal/interfaces/cli/rbac"
	"github.com/tasklane/tasklane/internal/interfaces/cli/seed"
	"github.com/tasklane/tasklane/internal/interfaces/cli/server"
	"github.com/tasklane/tasklane/internal/interfaces/cli/token"
	"github.com/tasklane/tasklane/internal/shared/version"
)

// @title Tasklane API
// @version 1.0
// @description Plan administration and entitlement checks.
// @BasePath /
// @securityDefinitions.apikey Bearer
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the JWT.
func main() {
	opts := &bootstrap.Options{}

	rootCmd := &cobra.Command{
		Use:           "tasklane",
		Short:         "Tasklane - plan entitlements for the project management API",
		Long:          `Tasklane serves plan administration and entitlement checks, with migration, seeding and operator tooling.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	opts.BindFlags(rootCmd)

	rootCmd.AddCommand(
		server.NewCommand(opts),
		migrate.NewCommand(opts),
		seed.NewCommand(opts),
		token.NewCommand(opts),
		rbac.NewCommand(opts),
		newVersionCommand(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the build version",
		Run: func(cmd *cobra.Command, args []string) {
			out := version.Current()
			if version.Commit != "" {
				out += " (" + version.Commit + ")"
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
		},
	}
}
