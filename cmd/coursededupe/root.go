package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"course-dedupe/internal/config"
	"course-dedupe/internal/logger"
	"course-dedupe/internal/store"
)

// app is the state shared by every subcommand once the root pre-run has
// loaded configuration.
type app struct {
	configPath string
	verbose    bool

	cfg config.Config
	log *logger.Logger

	in  io.Reader
	out io.Writer
}

func newRootCmd(in io.Reader, out io.Writer) *cobra.Command {
	a := &app{in: in, out: out}

	root := &cobra.Command{
		Use:           "coursededupe",
		Short:         "Find and merge duplicate courses",
		Long:          "Groups courses whose titles refer to the same offering, keeps the strongest one and moves chapters and purchases into it before deleting the rest.",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup()
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.log != nil {
				a.log.Sync()
			}
		},
	}
	root.SetIn(in)
	root.SetOut(out)

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "YAML config file layered over the environment")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(
		newAnalyzeCmd(a),
		newMergeCmd(a),
		newSeedCmd(a),
		newMigrateCmd(a),
	)
	return root
}

func (a *app) setup() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	log, err := logger.New(cfg.LogMode, a.verbose)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	a.cfg = cfg
	a.log = log.WithHashSalt(cfg.LogHashSalt)
	return nil
}

func (a *app) openStore() (store.Store, error) {
	return store.Open(store.Config{
		Driver: a.cfg.DBDriver,
		DSN:    a.cfg.DBURL,
		Debug:  a.cfg.DBDebug,
	}, a.log)
}
