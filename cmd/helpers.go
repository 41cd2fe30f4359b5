package cmd

import (
	"github.com/spf13/cobra"

	"github.com/firefly-engineering/legacy-relay/internal/config"
)

// loadConfig resolves the configuration for cmd, letting any config flags
// the command registered override file and env values.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	return config.Load(configFile, cmd.Flags())
}
