package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/threadline-dev/threadline/shared/config"
	"github.com/threadline-dev/threadline/shared/logger"
)

const (
	configEnv     = "THREADLINE_CONFIG"
	defaultConfig = "backend/config"
)

type rootOptions struct {
	configFolder string
}

func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "threadline",
		Short:         "Threads API: posts, nested replies and communities",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	defaultFolder := os.Getenv(configEnv)
	if defaultFolder == "" {
		defaultFolder = defaultConfig
	}
	cmd.PersistentFlags().StringVar(&opts.configFolder, "config", defaultFolder,
		"folder with public.yaml and private.yaml (env "+configEnv+")")

	cmd.AddCommand(
		newServeCommand(opts),
		newMigrateCommand(opts),
		newDeleteCommand(opts),
		newRepairCommand(opts),
	)
	return cmd
}

// load reads the config and sets up logging. Tool commands log to stderr so their
// stdout stays machine-readable.
func (o *rootOptions) load(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(o.configFolder)
	if err != nil {
		return nil, err
	}
	logger.InitializeWithWriter(cmd.ErrOrStderr(), cfg.Public.LogLevel, cfg.Public.LogJSON)
	return cfg, nil
}
