package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/getmockd/oasstub/pkg/config"
	"github.com/getmockd/oasstub/pkg/logging"
)

// serveFlag maps a command line flag onto its configuration key.
type serveFlag struct {
	name  string
	key   string
	usage string
}

var serveStringFlags = []serveFlag{
	{"addr", "server.addr", "Listen address"},
	{"stub-prefix", "stub.prefix", "Path prefix of stub calls"},
	{"admin-prefix", "admin.prefix", "Path prefix of the admin API"},
	{"admin-key", "admin.api_key", "API key required by the admin API"},
	{"storage", "storage.persistent", "Definitions storage (memory, file, sqlite, redis)"},
	{"session-storage", "storage.session", "Metrics and records storage (memory, redis)"},
	{"data-dir", "storage.data_dir", "Data directory of the file and sqlite backends"},
	{"redis-addr", "storage.redis.addr", "Redis address"},
	{"definitions", "definitions.dir", "Directory of definitions registered at startup"},
	{"log-level", "logging.level", "Log level (debug, info, warn, error)"},
	{"log-format", "logging.format", "Log format (text, json)"},
}

func newServeCommand(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the stub server",
		Args:  cobra.NoArgs,
		Example: `  # Start with defaults on :8080
  oasstub serve

  # Register every file of ./apis and keep definitions in SQLite
  oasstub serve --definitions ./apis --storage sqlite --data-dir ./data

  # Share definitions, metrics and records through Redis
  oasstub serve --storage redis --session-storage redis --redis-addr redis:6379`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			cfg, err := config.Load(root.configFile, serveOverrides(cmd))
			if err != nil {
				return err
			}
			return runServe(ctx, cfg)
		},
	}
	for _, f := range serveStringFlags {
		cmd.Flags().String(f.name, "", f.usage)
	}
	cmd.Flags().Bool("no-admin", false, "Disable the admin API")
	cmd.Flags().Bool("no-metrics", false, "Disable the Prometheus endpoint")
	return cmd
}

// serveOverrides collects the flags set on the command line as
// configuration overrides.
func serveOverrides(cmd *cobra.Command) map[string]any {
	overrides := make(map[string]any)
	for _, f := range serveStringFlags {
		if cmd.Flags().Changed(f.name) {
			v, _ := cmd.Flags().GetString(f.name)
			overrides[f.key] = v
		}
	}
	if cmd.Flags().Changed("no-admin") {
		v, _ := cmd.Flags().GetBool("no-admin")
		overrides["admin.enabled"] = !v
	}
	if cmd.Flags().Changed("no-metrics") {
		v, _ := cmd.Flags().GetBool("no-metrics")
		overrides["metrics.enabled"] = !v
	}
	return overrides
}

func runServe(ctx context.Context, cfg *config.Config) error {
	logger := logging.New(logging.Parse(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.AddSource, os.Stderr))
	app, err := NewApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Warn("close failed", "error", err)
		}
	}()
	if cfg.Definitions.Dir != "" {
		if _, err := app.LoadDefinitions(ctx, cfg.Definitions.Dir); err != nil {
			return err
		}
	}
	return app.Run(ctx)
}
