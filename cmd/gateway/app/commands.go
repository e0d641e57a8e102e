// Package app provides the entry point for the mcp-gateway command-line application.
package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/stacklok/mcpgateway/pkg/bootstrap"
	"github.com/stacklok/mcpgateway/pkg/config"
	"github.com/stacklok/mcpgateway/pkg/logger"
	"github.com/stacklok/mcpgateway/pkg/mcp"
	"github.com/stacklok/mcpgateway/pkg/transport"
)

var rootCmd = &cobra.Command{
	Use:               "mcp-gateway",
	DisableAutoGenTag: true,
	Short:             "MCP gateway - exposes HTTP and SSH resources as Model Context Protocol tools",
	Long: `mcp-gateway is a Model Context Protocol server that exposes configured HTTP
APIs and SSH hosts as MCP tools, over stdio, SSE, or a stateful streamable-HTTP
transport. Resources are declared through local files or a remote catalog and
can be hot-reloaded without restarting the process.`,
	Run: func(cmd *cobra.Command, _ []string) {
		if err := cmd.Help(); err != nil {
			logger.Errorf("error displaying help: %v", err)
		}
	},
}

// NewRootCmd creates the root command for the mcp-gateway CLI.
func NewRootCmd() *cobra.Command {
	rootCmd.PersistentFlags().StringP("config", "c", "", "Path to the gateway configuration file")
	if err := viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config")); err != nil {
		logger.Errorf("error binding config flag: %v", err)
	}

	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newVersionCmd())

	rootCmd.SilenceUsage = true
	return rootCmd
}

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the MCP gateway",
		Long: `Start the MCP gateway: resolve configuration, load the declared HTTP/SSH
resources, and serve MCP over the configured transport until interrupted.`,
		RunE: runGateway,
	}
	cmd.Flags().String("transport", "", "Transport override: stdio, sse, or http")
	return cmd
}

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Validate the gateway configuration file",
		Long:  "Resolve the effective configuration and report whether it passes structural validation.",
		RunE:  validateConfig,
	}
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Printf("mcp-gateway version: %s\n", getVersion())
		},
	}
}

// getVersion returns the version string, overridden at build time via ldflags.
func getVersion() string {
	return version
}

var version = "dev"

func resolveConfig() (*config.Result, error) {
	return config.Resolve(config.Options{
		CLIPath:       viper.GetString("config"),
		EnvPath:       os.Getenv("MCP_CONFIG"),
		AllowFallback: true,
	})
}

func validateConfig(_ *cobra.Command, _ []string) error {
	logger.Initialize("info", false)

	result, err := resolveConfig()
	if err != nil {
		return fmt.Errorf("resolving configuration: %w", err)
	}
	if err := config.Validate(result.Config); err != nil {
		return fmt.Errorf("configuration invalid: %w", err)
	}
	logger.Infof("configuration valid (source=%s path=%s)", result.Meta.Source, result.Meta.Path)
	return nil
}

func runGateway(cmd *cobra.Command, _ []string) error {
	result, err := resolveConfig()
	if err != nil {
		return fmt.Errorf("resolving configuration: %w", err)
	}
	cfg := result.Config

	transportOverride, _ := cmd.Flags().GetString("transport")
	mode := cfg.Transport.Mode
	if transportOverride != "" {
		mode = config.TransportMode(transportOverride)
	}

	// Stdio carries protocol traffic on stdout; the logger must never
	// write there.
	logger.Initialize(cfg.Logging.Level, mode == config.TransportStdio)
	logger.Infof("configuration resolved (source=%s path=%s)", result.Meta.Source, result.Meta.Path)

	ctx := cmd.Context()

	gw, err := bootstrap.BuildGateway(ctx, cfg, mcp.ServerInfo{Name: "mcp-gateway", Version: getVersion()})
	if err != nil {
		return fmt.Errorf("building gateway: %w", err)
	}
	if gw.Auditor != nil {
		defer func() {
			if err := gw.Auditor.Close(); err != nil {
				logger.Errorf("closing auditor: %v", err)
			}
		}()
	}

	var watcher *config.Watcher
	if cfg.Watch.Enabled {
		watcher, err = config.NewWatcher(config.Options{
			CLIPath:       viper.GetString("config"),
			EnvPath:       os.Getenv("MCP_CONFIG"),
			AllowFallback: true,
		}, cfg.Watch.DebounceMs, func(newCfg *config.Config, meta config.Meta) {
			logger.Infof("configuration reloaded (source=%s path=%s)", meta.Source, meta.Path)
			if err := gw.Reload(ctx, newCfg); err != nil {
				logger.Errorf("reloading registry: %v", err)
			}
		}, func(err error) {
			logger.Errorf("config watcher: %v", err)
		})
		if err != nil {
			return fmt.Errorf("starting config watcher: %w", err)
		}
		defer watcher.Close()
	}

	tr, err := buildTransport(mode, cfg, gw.Dispatcher.Dispatch)
	if err != nil {
		return err
	}

	if cfg.Metrics.Enabled {
		metricsServer := startMetricsServer(cfg, gw)
		defer func() {
			if err := metricsServer.Shutdown(context.Background()); err != nil {
				logger.Errorf("metrics server shutdown: %v", err)
			}
		}()
	}

	logger.Infof("starting mcp-gateway transport=%s", mode)
	serveErr := tr.Serve(ctx)
	if shutdownErr := tr.Shutdown(context.Background()); shutdownErr != nil {
		logger.Errorf("transport shutdown: %v", shutdownErr)
	}
	if serveErr != nil && ctx.Err() == nil {
		return fmt.Errorf("transport exited: %w", serveErr)
	}
	return nil
}

// startMetricsServer runs the operator-facing Prometheus listener on
// its own address, independent of whichever MCP transport is active,
// so scraping never competes with protocol traffic.
func startMetricsServer(cfg *config.Config, gw *bootstrap.Gateway) *http.Server {
	mux := http.NewServeMux()
	mux.Handle(cfg.Metrics.Path, gw.Metrics.Handler())
	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Metrics.Host, cfg.Metrics.Port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Errorf("metrics server: %v", err)
		}
	}()
	return srv
}

func buildTransport(mode config.TransportMode, cfg *config.Config, dispatch transport.Dispatch) (transport.Transport, error) {
	switch mode {
	case config.TransportStdio, "":
		return transport.NewStdioTransport(os.Stdin, os.Stdout, dispatch), nil
	case config.TransportSSE:
		return transport.NewSSETransport(transport.SSEOptions{
			Host:         cfg.Transport.SSEHost,
			Port:         cfg.Transport.SSEPort,
			Endpoint:     cfg.Transport.SSEEndpoint,
			PostEndpoint: cfg.Transport.SSEPostEndpoint,
		}, dispatch), nil
	case config.TransportHTTP:
		return transport.NewStreamableTransport(transport.StreamableOptions{
			Host:           cfg.Transport.HTTPHost,
			Port:           cfg.Transport.HTTPPort,
			Endpoint:       cfg.Transport.HTTPEndpoint,
			AllowedOrigins: cfg.Transport.AllowedOrigins,
		}, dispatch), nil
	default:
		return nil, fmt.Errorf("unknown transport mode %q", mode)
	}
}
