package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/firefly-engineering/legacy-relay/internal/config"
	"github.com/firefly-engineering/legacy-relay/internal/logging"
	"github.com/firefly-engineering/legacy-relay/internal/relay"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the relay server",
	Long: `Run the HTTP relay in front of the legacy API.

Routes:
  GET  /           health check
  POST /api/proxy  forward to the upstream
  POST /api/debug  show what would be forwarded (unless --debug-endpoint=false)

Settings come from built-in defaults, then the config file, then RELAY_*
environment variables (and PORT), then flags.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

var serveShutdownTimeout time.Duration

func init() {
	config.RegisterFlags(serveCmd.Flags())
	serveCmd.Flags().DurationVar(&serveShutdownTimeout, "shutdown-timeout", 10*time.Second, "Time to wait for in-flight requests on shutdown")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	server, err := relay.NewServer(relay.FromConfig(cfg, logging.Logger))
	if err != nil {
		return err
	}

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	shutdownErr := make(chan error, 1)
	go func() {
		<-sigCh
		logging.Info("shutting down relay server")
		ctx, cancel := context.WithTimeout(context.Background(), serveShutdownTimeout)
		defer cancel()
		shutdownErr <- server.Shutdown(ctx)
	}()

	logInfo("Starting %s on %s", cfg.ServiceName, cfg.ListenAddr())
	logInfo("Upstream: %s", cfg.UpstreamURL)
	if cfg.DebugEndpoint {
		logInfo("Debug endpoint: %s", relay.PathDebug)
	}
	if path := cfg.AuditLogPath(); path != "" {
		logInfo("Audit log: %s", path)
	}

	if err := server.Start(); err != nil {
		return err
	}

	// Start only returns nil after Shutdown, so this does not block.
	if err := <-shutdownErr; err != nil {
		logging.Warn("shutdown incomplete", "error", err)
	}
	return nil
}
