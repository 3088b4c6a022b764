package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/waveCodeSite/aicg/internal/apperr"
	"github.com/waveCodeSite/aicg/internal/config"
	"github.com/waveCodeSite/aicg/internal/logging"
)

// exitCodeFor maps a startup or command failure onto the process exit code:
// 0 is never reached here (Execute only returns non-nil on failure), 1 is a
// configuration or infrastructure dependency failure (can't reach MySQL,
// Redis, the blob store, or AMQP), 2 is the error taxonomy's validation/
// incomplete-materials family surfaced by `compose`, and 3 is anything else
// unexpected.
func exitCodeFor(err error) int {
	switch apperr.KindOf(err) {
	case apperr.KindValidation, apperr.KindIncompleteMaterials, apperr.KindNotFound:
		return 2
	}
	if _, ok := err.(*startupError); ok {
		return 1
	}
	return 3
}

// startupError marks a failure to construct one of the process's
// dependencies (database, redis, blob store, amqp), distinct from a failure
// in the business logic a subcommand then goes on to run.
type startupError struct{ err error }

func (e *startupError) Error() string { return e.err.Error() }
func (e *startupError) Unwrap() error { return e.err }

func wrapStartup(err error) error {
	if err == nil {
		return nil
	}
	return &startupError{err: err}
}

var configPath string

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "aicg",
		Short:         "aicg runs the chapter-to-video pipeline's controller, workers, and sweeper",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file")

	root.AddCommand(newServeCommand())
	root.AddCommand(newWorkerCommand())
	root.AddCommand(newSweeperCommand())
	root.AddCommand(newMigrateCommand())
	root.AddCommand(newComposeCommand())
	return root
}

func loadConfig() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, wrapStartup(fmt.Errorf("load config: %w", err))
	}
	log, err := logging.New(cfg.LogLevel)
	if err != nil {
		return nil, nil, wrapStartup(fmt.Errorf("build logger: %w", err))
	}
	return cfg, log, nil
}
