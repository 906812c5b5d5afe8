package main

import (
	"errors"
	"log/slog"

	"github.com/FranksOps/dogbook/internal/config"
	"github.com/FranksOps/dogbook/internal/logging"
	"github.com/FranksOps/dogbook/internal/region"
	"github.com/spf13/cobra"
)

// errVerifyFailed makes the process exit 1 after the report was printed.
var errVerifyFailed = errors.New("verification failed")

type rootOptions struct {
	configPath string
	logLevel   string

	cfg    *config.Config
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "dogbook",
		Short:         "Collect, publish and verify prediction topics",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := config.LoadDotEnv(); err != nil {
				return err
			}
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			if opts.logLevel != "" {
				cfg.Log.Level = opts.logLevel
			}
			opts.cfg = cfg
			opts.logger = logging.New(cfg.Log.Level, cfg.Log.Format, cmd.ErrOrStderr())
			slog.SetDefault(opts.logger)
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default ./dogbook.yaml or $DOGBOOK_CONFIG)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn, error")

	cmd.AddCommand(
		newCollectCmd(opts),
		newGenerateCmd(opts),
		newPipelineCmd(opts),
		newVerifyCmd(opts),
		newSeedCmd(opts),
		newHistoryCmd(opts),
	)
	return cmd
}

// parseRegions validates --regions values. An empty list means every region.
func parseRegions(names []string) ([]region.Region, error) {
	if len(names) == 0 {
		return nil, nil
	}
	return region.ParseList(names)
}
