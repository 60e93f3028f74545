// Package cmd holds the roadwatch command line.
package cmd

import (
	"context"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/zalepa/roadwatch/config"
	"github.com/zalepa/roadwatch/dataset"
)

var (
	configPath string
	logLevel   string

	cfg    config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "roadwatch",
	Short: "Cross-filtered road safety enforcement and crash dashboards",
	Long: `roadwatch loads Australian road safety enforcement and crash datasets and
serves linked dashboards where a selection in one chart filters the others.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if logLevel != "" {
			if _, err := config.ParseLevel(logLevel); err != nil {
				return err
			}
			cfg.Log.Level = logLevel
		}
		logger = cfg.Log.Logger(cmd.ErrOrStderr())
		slog.SetDefault(logger)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
}

// Execute runs the command line with os.Args.
func Execute() error {
	return rootCmd.Execute()
}

// run executes the command line with args, writing to out. Tests use it in
// place of Execute.
func run(ctx context.Context, out io.Writer, args ...string) error {
	rootCmd.SetArgs(args)
	rootCmd.SetOut(out)
	rootCmd.SetErr(out)
	return rootCmd.ExecuteContext(ctx)
}

func loadStore(ctx context.Context) (*dataset.Store, error) {
	store, err := dataset.Load(ctx, cfg.Data, logger)
	if err != nil {
		return nil, err
	}
	store.CrashSince = cfg.CrashSince
	return store, nil
}
