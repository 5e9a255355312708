package rbac

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tasklane/tasklane/internal/infrastructure/database"
	"github.com/tasklane/tasklane/internal/infrastructure/permission"
	"github.com/tasklane/tasklane/internal/interfaces/cli/bootstrap"
	"github.com/tasklane/tasklane/internal/shared/authorization"
)

func NewCommand(opts *bootstrap.Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rbac",
		Short: "Manage admin API role grants",
		Long: `Grant staff roles to individual users in the casbin_rule table.
Running servers pick up grants every auth.rbac_reload_seconds.`,
	}
	cmd.AddCommand(newGrantCommand(opts), newRolesCommand(opts))
	return cmd
}

func newGrantCommand(opts *bootstrap.Options) *cobra.Command {
	var (
		userID uint
		role   string
	)
	cmd := &cobra.Command{
		Use:   "grant",
		Short: "Grant a role to a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !authorization.UserRole(role).IsValid() {
				return fmt.Errorf("unknown role %q", role)
			}
			return withEnforcer(opts, func(rt *bootstrap.Runtime, e *permission.Enforcer) error {
				if err := e.AddRoleForUser(strconv.FormatUint(uint64(userID), 10), role); err != nil {
					return err
				}
				rt.Log.Infow("role granted", "user_id", userID, "role", role)
				fmt.Fprintf(cmd.OutOrStdout(), "Granted %s to user %d\n", role, userID)
				return nil
			})
		},
	}
	cmd.Flags().UintVarP(&userID, "user", "u", 0, "User id (required)")
	cmd.Flags().StringVarP(&role, "role", "r", "", "Role: admin, support or user (required)")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("role")
	return cmd
}

func newRolesCommand(opts *bootstrap.Options) *cobra.Command {
	var userID uint
	cmd := &cobra.Command{
		Use:   "roles",
		Short: "List the roles granted to a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnforcer(opts, func(rt *bootstrap.Runtime, e *permission.Enforcer) error {
				roles, err := e.GetRolesForUser(strconv.FormatUint(uint64(userID), 10))
				if err != nil {
					return err
				}
				if len(roles) == 0 {
					fmt.Fprintf(cmd.OutOrStdout(), "User %d has no granted roles\n", userID)
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "User %d: %s\n", userID, strings.Join(roles, ", "))
				return nil
			})
		},
	}
	cmd.Flags().UintVarP(&userID, "user", "u", 0, "User id (required)")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func withEnforcer(opts *bootstrap.Options, fn func(*bootstrap.Runtime, *permission.Enforcer) error) error {
	rt, err := bootstrap.Load(*opts)
	if err != nil {
		return err
	}
	closeDB, err := rt.OpenDatabase()
	if err != nil {
		return err
	}
	defer closeDB()

	enforcer, err := permission.NewEnforcer(database.Get(), rt.Config.Auth.RBACModelPath, rt.Log.Named("rbac"))
	if err != nil {
		return err
	}
	return fn(rt, enforcer)
}
