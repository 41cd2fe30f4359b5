package main

import (
	"os"

	"github.com/firefly-engineering/legacy-relay/cmd"
	"github.com/firefly-engineering/legacy-relay/internal/errors"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(errors.GetExitCode(err))
	}
}
