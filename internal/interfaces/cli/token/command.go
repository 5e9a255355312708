package token

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/tasklane/tasklane/internal/infrastructure/auth"
	"github.com/tasklane/tasklane/internal/interfaces/cli/bootstrap"
	"github.com/tasklane/tasklane/internal/shared/authorization"
)

func NewCommand(opts *bootstrap.Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Session token tools",
	}
	cmd.AddCommand(newIssueCommand(opts))
	return cmd
}

func newIssueCommand(opts *bootstrap.Options) *cobra.Command {
	var (
		userID uint
		role   string
	)
	cmd := &cobra.Command{
		Use:   "issue",
		Short: "Issue a signed access token",
		Long:  `Issue an access token signed with the configured secret, for operators and local testing.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			userRole := authorization.UserRole(role)
			if !userRole.IsValid() {
				return fmt.Errorf("unknown role %q", role)
			}
			if userID == 0 {
				return fmt.Errorf("--user must be a positive user id")
			}

			rt, err := bootstrap.Load(*opts)
			if err != nil {
				return err
			}
			jwtSvc := auth.NewJWTService(rt.Config.Auth.JWT.Secret, rt.Config.Auth.JWT.AccessExpMinutes)
			issued, err := jwtSvc.Generate(userID, userRole)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), issued.AccessToken)
			fmt.Fprintf(cmd.ErrOrStderr(), "expires at %s\n", issued.ExpiresAt.Format(time.RFC3339))
			return nil
		},
	}

	cmd.Flags().UintVarP(&userID, "user", "u", 0, "User id (required)")
	cmd.Flags().StringVarP(&role, "role", "r", authorization.RoleUser.String(), "Role: admin, support or user")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
