package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/firefly-engineering/legacy-relay/internal/config"
	"github.com/firefly-engineering/legacy-relay/internal/errors"
	"github.com/firefly-engineering/legacy-relay/internal/health"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check that a relay is running",
	Long: `Probe the health endpoint of a running relay.

Without --url the relay on localhost at the configured port is checked.`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

var statusURL string

func init() {
	statusCmd.Flags().StringVar(&statusURL, "url", "", "Base URL of the relay (default http://localhost:<port>)")
	config.RegisterFlags(statusCmd.Flags(), config.KeyPort)
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	target := statusURL
	if target == "" {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		target = fmt.Sprintf("http://localhost:%d", cfg.Port)
	}

	result, err := health.Probe(cmd.Context(), nil, target)
	if err != nil {
		logError("Relay at %s is not healthy: %v", target, err)
		return errors.Wrap(errors.KindGeneral, errors.ExitGeneralError, 0, "health check failed", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Relay: %s\n", result.URL)
	fmt.Fprintf(out, "Status: %s\n", result.Report.Status)
	fmt.Fprintf(out, "Message: %s\n", result.Report.Message)
	fmt.Fprintf(out, "Latency: %s\n", result.Latency.Round(time.Microsecond))

	if !result.Report.Healthy() {
		logWarning("Relay reported status %q", result.Report.Status)
		return errors.New(errors.KindGeneral, errors.ExitGeneralError, 0,
			fmt.Sprintf("relay reported status %q", result.Report.Status))
	}
	logSuccess("Relay is running")
	return nil
}
