// Package cli implements the postpilot command line.
package cli

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/kiranshivaraju/postpilot/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// session carries the state every subcommand shares once the root has loaded
// the configuration.
type session struct {
	v        *viper.Viper
	cfg      *config.Config
	logger   *slog.Logger
	closeLog func() error
}

// NewRootCmd builds the postpilot command tree.
func NewRootCmd() *cobra.Command {
	s := &session{v: viper.New()}

	root := &cobra.Command{
		Use:   "postpilot",
		Short: "Research, write and publish LinkedIn posts on a schedule",
		Long: `postpilot researches a topic, drafts a post with the configured AI
providers and publishes it to LinkedIn, either once or on a schedule.

Examples:
  postpilot run-once "edge computing"   # ad-hoc run for a topic
  postpilot add-job ai --topic "artificial intelligence" --schedule "every 24h"
  postpilot daemon                      # scheduler plus control API`,
		SilenceUsage:      true,
		PersistentPreRunE: s.load,
		PersistentPostRunE: func(*cobra.Command, []string) error {
			if s.closeLog != nil {
				return s.closeLog()
			}
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.String("config", "", "path to a YAML config file (env POSTPILOT_CONFIG)")
	flags.String("log-level", "", "log level: debug, info, warn, error")
	flags.String("store", "", "job store driver: file or postgres")
	flags.Bool("dry-run", false, "print posts instead of publishing them")
	_ = s.v.BindPFlags(flags)

	s.v.SetEnvPrefix("POSTPILOT")
	s.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	s.v.AutomaticEnv()

	root.AddCommand(
		newRunOnceCmd(s),
		newDaemonCmd(s),
		newAddJobCmd(s),
		newRemoveJobCmd(s),
		newPauseJobCmd(s),
		newResumeJobCmd(s),
		newListJobsCmd(s),
		newStatusCmd(s),
	)
	return root
}

// Execute runs the command tree against os.Args.
func Execute() error {
	return NewRootCmd().Execute()
}

// load reads the config file and environment, applies flag overrides and
// installs the process logger.
func (s *session) load(*cobra.Command, []string) error {
	cfg, err := config.Load(s.v.GetString("config"))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if s.v.IsSet("log-level") {
		cfg.Logging.Level = s.v.GetString("log-level")
	}
	if s.v.IsSet("store") {
		cfg.Store.Driver = s.v.GetString("store")
	}
	if s.v.IsSet("dry-run") {
		cfg.LinkedIn.DryRun = s.v.GetBool("dry-run")
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	level, err := config.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return err
	}
	s.logger, s.closeLog = config.SetupLogger(cfg.Logging.File, level)
	slog.SetDefault(s.logger)
	s.cfg = cfg
	return nil
}
