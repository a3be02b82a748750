package main

import (
	"fmt"
	"os"
	"time"

	"github.com/danilgotvyansky/cpanel-exporter/internal/collectors"
	"github.com/danilgotvyansky/cpanel-exporter/internal/config"
	"github.com/danilgotvyansky/cpanel-exporter/internal/logging"
	"github.com/danilgotvyansky/cpanel-exporter/internal/server"
	"github.com/danilgotvyansky/cpanel-exporter/internal/uapi"
	"github.com/danilgotvyansky/cpanel-exporter/internal/utils"

	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

// options holds the command line flags; only flags the user set override the config file
type options struct {
	configPath     string
	port           int
	listenAddress  string
	uapiPath       string
	commandTimeout time.Duration
	logLevel       string
	logFormat      string
}

func main() {
	if err := newRootCmd(&options{}).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cpanel-exporter",
		Short: "cPanel Exporter for Prometheus",
		Long: `cPanel Exporter for Prometheus. Scrapes the Statistics panel, resource usage,
MySQL, PostgreSQL, email and FTP accounts information using the cPanel
built-in UAPI and serves it on /metrics.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			newApp(cfg).Run()
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "Path to a JSON or TOML configuration file")
	flags.IntVarP(&opts.port, "port", "P", config.DefaultPort, "Port to serve the exporter on")
	flags.StringVar(&opts.listenAddress, "listen-address", "", "Address to bind, empty for all interfaces")
	flags.StringVar(&opts.uapiPath, "uapi-path", config.DefaultUAPIPath, "Path to the uapi binary")
	flags.DurationVar(&opts.commandTimeout, "command-timeout", config.DefaultCommandTimeout, "Timeout of a single uapi invocation")
	flags.StringVar(&opts.logLevel, "log-level", config.DefaultLogLevel, "Log level (debug, info, warn, error)")
	flags.StringVar(&opts.logFormat, "log-format", config.DefaultLogFormat, "Log format (json, console)")

	return cmd
}

// loadConfig reads the optional config file and applies the flags set on the command line
func loadConfig(cmd *cobra.Command, opts *options) (*config.Config, error) {
	cfg := config.New()
	if opts.configPath != "" {
		loaded, err := config.Load(opts.configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load configuration: %w", err)
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("port") {
		cfg.Server.Port = opts.port
	}
	if flags.Changed("listen-address") {
		cfg.Server.ListenAddress = opts.listenAddress
	}
	if flags.Changed("uapi-path") {
		cfg.UAPI.Path = opts.uapiPath
	}
	if flags.Changed("command-timeout") {
		cfg.UAPI.CommandTimeout.Duration = opts.commandTimeout
	}
	if flags.Changed("log-level") {
		cfg.Logging.Level = opts.logLevel
	}
	if flags.Changed("log-format") {
		cfg.Logging.Format = opts.logFormat
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newApp(cfg *config.Config) *fx.App {
	return fx.New(appOptions(cfg)...)
}

func appOptions(cfg *config.Config) []fx.Option {
	return []fx.Option{
		fx.Supply(cfg),

		// Provide dependencies
		fx.Provide(
			logging.New,
			fx.Annotate(utils.NewSystemCommandExecutor, fx.As(new(utils.CommandExecutor))),
			collectors.NewExporterCollector,
			func(metrics *collectors.ExporterCollector) uapi.Observer { return metrics },
			uapi.NewClient,
			collectors.NewCollectorDependencies,
			collectors.NewScraper,
			server.New,
			server.NewServerLifecycle,
		),

		// Invoke startup functions
		fx.Invoke(
			func(lifecycle fx.Lifecycle, serverLifecycle *server.ServerLifecycle) {
				lifecycle.Append(fx.Hook{
					OnStart: serverLifecycle.Start,
					OnStop:  serverLifecycle.Stop,
				})
			},
		),

		// Configure logging
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log.Named("fx")}
		}),
	}
}
