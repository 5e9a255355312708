package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/tasklane/tasklane/internal/infrastructure/database"
	"github.com/tasklane/tasklane/internal/infrastructure/migration"
	httpRouter "github.com/tasklane/tasklane/internal/interfaces/http"
	"github.com/tasklane/tasklane/internal/interfaces/cli/bootstrap"
	"github.com/tasklane/tasklane/internal/shared/constants"
	"github.com/tasklane/tasklane/internal/shared/version"
)

const shutdownTimeout = 30 * time.Second

type serverFlags struct {
	autoMigrate        bool
	skipMigrationCheck bool
}

func NewCommand(opts *bootstrap.Options) *cobra.Command {
	flags := &serverFlags{}
	cmd := &cobra.Command{
		Use:   "server",
		Short: "Start the HTTP server",
		Long:  `Start the Tasklane API server with the plan administration, entitlement and health endpoints.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), *opts, flags)
		},
	}

	cmd.Flags().BoolVar(&flags.autoMigrate, "auto-migrate", false, "Run database migrations on startup (not recommended for production)")
	cmd.Flags().BoolVar(&flags.skipMigrationCheck, "skip-migration-check", false, "Skip migration status check on startup")

	return cmd
}

func run(ctx context.Context, opts bootstrap.Options, flags *serverFlags) error {
	rt, err := bootstrap.Load(opts)
	if err != nil {
		return err
	}
	cfg, log := rt.Config, rt.Log

	log.Infow("starting server",
		"environment", rt.Env,
		"version", version.Current(),
		"auto_migrate", flags.autoMigrate)

	gin.SetMode(cfg.Server.Mode)
	gin.DefaultWriter = io.Discard
	gin.DebugPrintRouteFunc = func(httpMethod, absolutePath, handlerName string, nuHandlers int) {}

	closeDB, err := rt.OpenDatabase()
	if err != nil {
		return err
	}
	defer closeDB()

	if err := handleMigrations(rt, flags); err != nil {
		return fmt.Errorf("migration handling failed: %w", err)
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	redisClient, err := rt.OpenRedis(ctx)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	container, err := httpRouter.NewContainer(database.Get(), redisClient, cfg, log)
	if err != nil {
		return fmt.Errorf("failed to build application: %w", err)
	}
	defer container.Shutdown()
	container.SetupRoutes()

	srv := &http.Server{
		Addr:         cfg.Server.GetAddr(),
		Handler:      container.GetEngine(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Infow("server listening", "address", srv.Addr, "mode", cfg.Server.Mode)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
	}

	log.Infow("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorw("server forced to shutdown", "error", err)
		return err
	}

	log.Infow("server exited gracefully")
	return nil
}

func handleMigrations(rt *bootstrap.Runtime, flags *serverFlags) error {
	log := rt.Log
	if flags.skipMigrationCheck {
		log.Infow("skipping migration check")
		return nil
	}

	if flags.autoMigrate {
		if rt.Env == constants.EnvProduction {
			log.Warnw("auto-migration is enabled in production environment")
		}
		return migration.NewManager(rt.Env, log).Migrate(database.Get())
	}

	current, err := migration.NewGooseStrategy(log).GetVersion(database.Get())
	if err != nil {
		log.Warnw("failed to check migration status", "error", err)
		return nil
	}
	log.Infow("current migration version", "version", current)
	return nil
}
