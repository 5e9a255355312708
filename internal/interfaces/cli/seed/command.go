package seed

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tasklane/tasklane/internal/application/plan/usecases"
	"github.com/tasklane/tasklane/internal/infrastructure/database"
	httpRouter "github.com/tasklane/tasklane/internal/interfaces/http"
	"github.com/tasklane/tasklane/internal/interfaces/cli/bootstrap"
)

const defaultPlansFile = "./configs/plans.yaml"

func NewCommand(opts *bootstrap.Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Seed reference data",
	}
	cmd.AddCommand(newPlansCommand(opts))
	return cmd
}

func newPlansCommand(opts *bootstrap.Options) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "plans",
		Short: "Create or update plans from a YAML file",
		Long: `Upsert the plans listed in a YAML seed file, matching existing plans by slug.
Running servers drop their cached policies for every updated plan.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			seedFile, err := usecases.LoadSeedFile(file)
			if err != nil {
				return err
			}

			rt, err := bootstrap.Load(*opts)
			if err != nil {
				return err
			}
			closeDB, err := rt.OpenDatabase()
			if err != nil {
				return err
			}
			defer closeDB()

			redisClient, err := rt.OpenRedis(cmd.Context())
			if err != nil {
				return err
			}
			if redisClient != nil {
				defer redisClient.Close()
			}

			container, err := httpRouter.NewContainer(database.Get(), redisClient, rt.Config, rt.Log)
			if err != nil {
				return fmt.Errorf("failed to build application: %w", err)
			}
			defer container.Shutdown()

			result, err := container.SeedPlans(cmd.Context(), seedFile)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Plans seeded: %d created, %d updated\n", result.Created, result.Updated)
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", defaultPlansFile, "Seed file")
	return cmd
}
