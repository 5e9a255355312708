// Package bootstrap loads configuration and opens the connections shared by
// the CLI commands.
package bootstrap

import (
	"context"
	"fmt"
	"os"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/tasklane/tasklane/internal/infrastructure/config"
	"github.com/tasklane/tasklane/internal/infrastructure/database"
	sharedConfig "github.com/tasklane/tasklane/internal/shared/config"
	"github.com/tasklane/tasklane/internal/shared/constants"
	"github.com/tasklane/tasklane/internal/shared/logger"
)

// Options are the persistent flags every command accepts.
type Options struct {
	Env        string
	ConfigPath string
}

// BindFlags registers --env and --config on cmd and its subcommands.
func (o *Options) BindFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVarP(&o.Env, "env", "e", constants.EnvDevelopment, "Environment (development, test, production)")
	cmd.PersistentFlags().StringVarP(&o.ConfigPath, "config", "c", "", "Path to config file (default: ./configs/config.yaml)")
}

// Runtime is a loaded configuration plus the process logger.
type Runtime struct {
	Env    string
	Config *config.Config
	Log    logger.Interface
}

// Load reads the configuration and initializes logging. The ENV environment
// variable overrides --env.
func Load(opts Options) (*Runtime, error) {
	env := opts.Env
	if envVar := os.Getenv("ENV"); envVar != "" {
		env = envVar
	}

	cfg, err := config.Load(env, opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	cfg.Server.Mode = GinMode(env)

	if err := logger.Init(&cfg.Logger, cfg.Server.Mode); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return &Runtime{Env: env, Config: cfg, Log: logger.NewLogger()}, nil
}

// OpenDatabase initializes the shared connection pool. The returned func
// closes it.
func (r *Runtime) OpenDatabase() (func(), error) {
	if err := database.Init(&r.Config.Database, r.Log); err != nil {
		return nil, err
	}
	return func() {
		if err := database.Close(); err != nil {
			r.Log.Warnw("failed to close database", "error", err)
		}
	}, nil
}

// OpenRedis connects to Redis when a host is configured. A failed connection
// is fatal only when the entitlement cache lives in Redis; otherwise the
// process runs without cross-instance invalidation.
func (r *Runtime) OpenRedis(ctx context.Context) (*redis.Client, error) {
	required := r.Config.Entitlement.CacheDriver == sharedConfig.CacheDriverRedis
	if r.Config.Redis.Host == "" {
		if required {
			return nil, fmt.Errorf("entitlement cache driver %q requires redis.host", sharedConfig.CacheDriverRedis)
		}
		return nil, nil
	}

	client, err := database.NewRedisClient(ctx, &r.Config.Redis)
	if err != nil {
		if required {
			return nil, err
		}
		r.Log.Warnw("redis unavailable, continuing without it", "addr", r.Config.Redis.GetAddr(), "error", err)
		return nil, nil
	}
	return client, nil
}

// GinMode maps an environment name onto a gin mode.
func GinMode(environment string) string {
	switch environment {
	case constants.EnvProduction, "prod", "release":
		return "release"
	case constants.EnvTest, "testing":
		return "test"
	default:
		return "debug"
	}
}
