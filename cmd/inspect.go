package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	shellquote "github.com/kballard/go-shellquote"
	"github.com/spf13/cobra"

	"github.com/firefly-engineering/legacy-relay/internal/config"
	"github.com/firefly-engineering/legacy-relay/internal/errors"
	"github.com/firefly-engineering/legacy-relay/internal/form"
	"github.com/firefly-engineering/legacy-relay/internal/relay"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect [file]",
	Short: "Show what the relay would send for a request body",
	Long: `Decode a request body the way the relay does and print the debug record:
the pass-through keys, the form-urlencoded upstream body and, when present,
the base64-decoded "parameters" field.

The body is read from file, or from stdin when no file is given. Nothing is
sent upstream. With --curl a curl command that posts the body straight to
the upstream is printed instead.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInspect,
}

var (
	inspectContentType string
	inspectCurl        bool
)

func init() {
	inspectCmd.Flags().StringVar(&inspectContentType, "content-type", form.ContentTypeJSON, "Content type of the body")
	inspectCmd.Flags().BoolVar(&inspectCurl, "curl", false, "Print an equivalent curl command for the upstream")
	config.RegisterFlags(inspectCmd.Flags(), config.KeyUpstreamURL)
	rootCmd.AddCommand(inspectCmd)
}

func runInspect(cmd *cobra.Command, args []string) error {
	data, err := readInput(cmd, args)
	if err != nil {
		return err
	}

	record, err := relay.Inspect(inspectContentType, data)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()

	if inspectCurl {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, shellquote.Join(
			"curl", "-sS", "-X", "POST",
			"-H", "Content-Type: "+form.ContentTypeForm,
			"--data-raw", record.URLEncodedBody,
			cfg.UpstreamURL,
		))
		return nil
	}

	enc := json.NewEncoder(out)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(record); err != nil {
		return fmt.Errorf("failed to encode debug record: %w", err)
	}
	return nil
}

// readInput reads the body from the named file or, without one, from stdin.
func readInput(cmd *cobra.Command, args []string) ([]byte, error) {
	var (
		data []byte
		err  error
	)
	if len(args) == 0 || args[0] == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(args[0])
	}
	if err != nil {
		return nil, errors.Wrap(errors.KindInvalidBody, errors.ExitInvalidInput, 0, "failed to read request body", err)
	}
	return data, nil
}
