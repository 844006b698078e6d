package main

import (
	"todocalendar/internal/config"
	"todocalendar/internal/logger"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "todocalendar",
		Short:         "Todo and calendar API server",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runServe,
	}
	root.AddCommand(newServeCmd(), newMigrateCmd(), newVersionCmd(), newHashPasswordCmd())
	return root
}

// loadConfig reads the configuration and builds the process logger from it.
func loadConfig() (config.Config, *log.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, logger.New(cfg.Log.Level, cfg.Log.Format), nil
}
