package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/waveCodeSite/aicg/internal/events"
	"github.com/waveCodeSite/aicg/internal/executor"
	"github.com/waveCodeSite/aicg/internal/queue"
	"github.com/waveCodeSite/aicg/internal/sweeper"
	"github.com/waveCodeSite/aicg/internal/tracing"
)

// newSweeperCommand runs the Provider Polling Sweeper standalone, the
// systems-language analogue of a second always-on goroutine the teacher
// would otherwise start inline inside its single server binary.
func newSweeperCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sweeper",
		Short: "run the polling sweeper",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			defer log.Sync()

			shutdownTracing, err := tracing.Setup(cmd.Context(), "aicg-sweeper", cfg.Tracing.Enabled)
			if err != nil {
				return wrapStartup(err)
			}
			defer shutdownTracing(context.Background())

			d, err := openDeps(cfg)
			if err != nil {
				return err
			}

			redisClient := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password})
			defer redisClient.Close()

			var delay *sweeper.DelayQueue
			if cfg.AMQP.URI != "" {
				delay, err = sweeper.NewDelayQueue(cfg.AMQP.URI)
				if err != nil {
					log.Warn("amqp delay queue unavailable, falling back to redis-only backoff", zap.Error(err))
					delay = nil
				} else {
					defer delay.Close()
				}
			}

			hub := events.NewHub()
			stop := make(chan struct{})
			go hub.Run(stop)
			defer close(stop)

			qc := queue.NewClient(cfg.Redis.Addr, cfg.Redis.Password)
			defer qc.Close()
			exec := executor.New(d.repo, qc, hub, log)

			sw := sweeper.New(d.repo, buildRegistry(), d.blobs, hub, exec, redisClient, delay, log)

			sweepStop := make(chan struct{})
			go sw.Run(cmd.Context(), sweepStop)

			log.Info("sweeper running")
			sig := make(chan os.Signal, 1)
			signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
			<-sig
			close(sweepStop)
			return nil
		},
	}
}
