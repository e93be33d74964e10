package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Mirai3103/remote-grader/internal/config"
	"github.com/Mirai3103/remote-grader/internal/core"
	"github.com/Mirai3103/remote-grader/internal/core/policy"
	"github.com/Mirai3103/remote-grader/internal/logging"
	"github.com/Mirai3103/remote-grader/internal/worker"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Grade one JSON request from stdin and write the JSON result to stdout",
	Args:  cobra.NoArgs,
	RunE:  runWorker,
}

// runWorker always exits zero: every failure, including a broken
// configuration, is reported on stdout in the response envelope.
func runWorker(cmd *cobra.Command, _ []string) error {
	log := workerLogger()
	defer func() { _ = log.Sync() }()

	adapter := worker.NewAdapter(core.NewRunner(policy.DefaultPolicy(), log), log)
	if err := adapter.Serve(cmd.InOrStdin(), cmd.OutOrStdout()); err != nil {
		log.Errorw("response was not written", "error", err)
	}
	return nil
}

func workerLogger() *zap.SugaredLogger {
	cfg, err := loadConfig()
	if err != nil {
		cfg = config.Default()
	}
	log, lerr := newLogger(cfg)
	if lerr != nil {
		return logging.Nop()
	}
	if err != nil {
		log.Warnw("using default configuration", "error", err)
	}
	return log
}
