package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/firefly-engineering/legacy-relay/internal/logging"
)

// version is set at build time with -ldflags "-X .../cmd.version=..."
var version = "dev"

var (
	verbose    bool
	jsonOutput bool
	configFile string
)

var rootCmd = &cobra.Command{
	Use:   "legacy-relay",
	Short: "JSON to form-urlencoded relay for the legacy API",
	Long: `legacy-relay accepts JSON requests from modern clients and forwards them
to the legacy API as application/x-www-form-urlencoded POSTs.

Each forward request must carry:
  - username
  - apiaccesskey
  - action

Every other field is passed through unchanged, in the order it was sent.`,
	Version:      version,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.Setup(verbose, jsonOutput, os.Stderr)
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output logs in JSON format")
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Path to a TOML config file (env RELAY_CONFIG)")
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// Helper aliases for user-facing output (delegates to logging package)
var (
	logInfo    = logging.UserInfo
	logSuccess = logging.UserSuccess
	logWarning = logging.UserWarning
	logError   = logging.UserError
)
