package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/FACorreiaa/statement-import/pkg/config"
)

// setup loads configuration and wires dependencies for one command run.
// Logs go to stderr so stdout stays usable for reports.
func setup(cmd *cobra.Command, opts *globalOptions) (*Dependencies, error) {
	cfg, err := config.Load(opts.envFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	logger := newLogger(cfg.Log, cmd.ErrOrStderr())
	return InitDependencies(cfg, logger)
}
