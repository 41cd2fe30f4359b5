package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/firefly-engineering/legacy-relay/internal/audit"
	"github.com/firefly-engineering/legacy-relay/internal/config"
)

var auditLogCmd = &cobra.Command{
	Use:   "audit-log [file]",
	Short: "Display the relay audit trail",
	Long: `Display the events recorded in the audit directory.

By default the active file is read; pass a rotated file name such as
relay.events.jsonl.1 to read an older one.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAuditLog,
}

var (
	auditLogJSON   bool
	auditLogAction string
)

func init() {
	auditLogCmd.Flags().BoolVar(&auditLogJSON, "json", false, "Output events as JSON lines")
	auditLogCmd.Flags().StringVar(&auditLogAction, "action", "", "Only show events for this action")
	config.RegisterFlags(auditLogCmd.Flags(), config.KeyAuditDir)
	rootCmd.AddCommand(auditLogCmd)
}

func runAuditLog(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	var name string
	if len(args) > 0 {
		name = args[0]
	}
	path, err := cfg.ResolveAuditFile(name)
	if err != nil {
		return err
	}

	events, err := audit.ReadEvents(path)
	if err != nil {
		return fmt.Errorf("failed to read audit log: %w", err)
	}
	events = audit.Filter(events, auditLogAction)

	if len(events) == 0 {
		logInfo("No events found in %s", path)
		return nil
	}

	out := cmd.OutOrStdout()
	for _, e := range events {
		if auditLogJSON {
			data, err := json.Marshal(e)
			if err != nil {
				return fmt.Errorf("failed to marshal event: %w", err)
			}
			fmt.Fprintln(out, string(data))
			continue
		}

		ts := e.Timestamp.Local().Format("2006-01-02 15:04:05")
		line := fmt.Sprintf("[%s] %-8s %3d %-16s %s", ts, e.Type, e.StatusCode, e.Action, e.Duration)
		if len(e.ParamKeys) > 0 {
			line += " params=" + strings.Join(e.ParamKeys, ",")
		}
		if e.Error != "" {
			line += fmt.Sprintf(" (%s)", e.Error)
		}
		fmt.Fprintln(out, line)
	}

	return nil
}
