package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Mirai3103/remote-grader/internal/config"
	"github.com/Mirai3103/remote-grader/internal/host"
	natsClient "github.com/Mirai3103/remote-grader/internal/nats"
	"github.com/Mirai3103/remote-grader/internal/worker"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Consume submissions from NATS and publish their results",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	client, err := newHostClient(cfg, log)
	if err != nil {
		return err
	}

	nc, err := nats.Connect(cfg.NATS.URL,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(cfg.NATS.MaxReconnects),
		nats.ReconnectWait(time.Duration(cfg.NATS.ReconnectWaitSec)*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warnw("NATS disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Infow("NATS reconnected", "url", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			log.Infow("NATS connection closed")
		}),
	)
	if err != nil {
		return fmt.Errorf("connect to NATS: %w", err)
	}
	defer nc.Close()
	log.Infow("connected to NATS", "url", cfg.NATS.URL)

	publisher := natsClient.NewPublisher(nc, cfg.NATS.ResultSubject, log)
	jobTimeout := time.Duration(cfg.Host.JobTimeoutSec) * time.Second
	jobHandler := worker.NewJobHandler(publisher, client, cfg.Host.MaxConcurrentJobs, jobTimeout, log)

	subscriber := natsClient.NewSubscriber(nc, cfg.NATS.SubmissionSubject, cfg.NATS.QueueGroup, jobHandler, log)
	subscription, err := subscriber.SubscribeToSubmissions()
	if err != nil {
		return fmt.Errorf("subscribe to submissions: %w", err)
	}
	defer func() {
		if err := subscription.Unsubscribe(); err != nil {
			log.Warnw("unsubscribe failed", "error", err)
		}
		if err := nc.Drain(); err != nil {
			log.Warnw("drain failed", "error", err)
		}
	}()

	log.Infow("grader is listening for submissions", "subject", cfg.NATS.SubmissionSubject)

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigs
	log.Infow("shutting down", "signal", sig.String())
	return nil
}

// newHostClient launches workers with the configured command, or with
// this binary's run subcommand when none is configured.
func newHostClient(cfg *config.Config, log *zap.SugaredLogger) (*host.Client, error) {
	command := cfg.Host.WorkerCommand
	if len(command) == 0 {
		self, err := os.Executable()
		if err != nil {
			return nil, fmt.Errorf("locate worker binary: %w", err)
		}
		command = []string{self, "run"}
		if configDir != "" {
			command = append(command, "--config", configDir)
		}
	}
	log.Infow("worker command", "command", command, "timeLimitMs", cfg.Host.TimeLimitMs, "memoryLimitKb", cfg.Host.MemoryLimitKb)
	return host.NewClient(host.NewDirectExecutor(log), command, cfg.Host.Limits, log), nil
}
